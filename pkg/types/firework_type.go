// Package types 定义共享的基础类型
// 这个包不依赖任何其他业务包，用于解决循环引用问题
package types

import (
	"fmt"
	"strings"
)

// FireworkType 定义烟花的爆炸形态
type FireworkType int

const (
	// FireworkNone 未指定类型（由工厂按权重随机）
	FireworkNone FireworkType = iota
	// FireworkSphere 球形：随机方向、随机速度
	FireworkSphere
	// FireworkRing 环形：等角度分布、固定速度
	FireworkRing
	// FireworkWillow 柳树：慢衰减、低重力、高阻力
	FireworkWillow
	// FireworkStrobe 频闪：粒子透明度逐帧闪烁
	FireworkStrobe
)

// AllFireworkTypes 按手动发射按钮顺序列出全部可发射类型
var AllFireworkTypes = []FireworkType{FireworkSphere, FireworkRing, FireworkWillow, FireworkStrobe}

// String 返回烟花类型的字符串表示（与配置文件中的键一致）
func (t FireworkType) String() string {
	switch t {
	case FireworkSphere:
		return "sphere"
	case FireworkRing:
		return "ring"
	case FireworkWillow:
		return "willow"
	case FireworkStrobe:
		return "strobe"
	default:
		return "none"
	}
}

// IsValid 判断是否是可发射的具体类型
func (t FireworkType) IsValid() bool {
	return t >= FireworkSphere && t <= FireworkStrobe
}

// ParseFireworkType 将配置中的字符串解析为 FireworkType
// 空字符串返回 FireworkNone（表示不强制类型）
func ParseFireworkType(s string) (FireworkType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return FireworkNone, nil
	case "sphere":
		return FireworkSphere, nil
	case "ring":
		return FireworkRing, nil
	case "willow":
		return FireworkWillow, nil
	case "strobe":
		return FireworkStrobe, nil
	default:
		return FireworkNone, fmt.Errorf("unknown firework type %q", s)
	}
}
