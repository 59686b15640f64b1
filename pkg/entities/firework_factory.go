package entities

import (
	"fmt"

	"github.com/decker502/lunarfest/internal/audio"
	"github.com/decker502/lunarfest/internal/particle"
	"github.com/decker502/lunarfest/pkg/components"
	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/ecs"
	"github.com/decker502/lunarfest/pkg/types"
)

// VoiceSource 为新烟花提供发射音效
// 返回 nil 表示该烟花静音（不是错误）
type VoiceSource interface {
	Acquire() *audio.Voice
}

// NewFireworkEntity 创建一枚从画布底部发射的烟花
//
// 发射点在 [margin, width-margin] 内均匀分布，爆炸高度在 [minApex, height/2] 内；
// 水平速度偏向画布中心，竖直速度向上。
//
// 参数:
//   - em: 实体管理器
//   - cfg: 烟花秀配置（调色板、发射参数、类型阈值）
//   - rnd: 随机源
//   - width, height: 画布尺寸
//   - forced: 强制类型，types.FireworkNone 表示按权重随机选择
//   - voices: 音效来源，可为 nil
//
// 返回:
//   - ecs.EntityID: 创建的烟花实体ID
//   - error: 画布尺寸无效或强制类型无效时返回错误
func NewFireworkEntity(em *ecs.EntityManager, cfg *config.ShowConfig, rnd particle.Source, width, height float64, forced types.FireworkType, voices VoiceSource) (ecs.EntityID, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid canvas size %vx%v", width, height)
	}
	if forced != types.FireworkNone && !forced.IsValid() {
		return 0, fmt.Errorf("invalid firework type %d", int(forced))
	}

	launch := cfg.Launch
	startX := particle.RandomInRange(rnd, launch.Margin, width-launch.Margin)
	targetY := particle.RandomInRange(rnd, launch.MinApex, height/2)

	palette := cfg.Colors()
	clr := palette[int(rnd.Float64()*float64(len(palette)))%len(palette)]

	// 发射时即开始播放音效
	var voice *audio.Voice
	if voices != nil {
		voice = voices.Acquire()
	}

	fireworkType := forced
	if fireworkType == types.FireworkNone {
		fireworkType = SelectFireworkType(launch, rnd.Float64())
	}

	vx := (width/2-startX)*launch.CenterBias + particle.RandomInRange(rnd, -launch.Jitter, launch.Jitter)
	vy := -launch.SpeedRange().Sample(rnd)

	entityID := em.CreateEntity()

	em.AddComponent(entityID, &components.PositionComponent{
		X: startX,
		Y: height,
	})

	em.AddComponent(entityID, &components.FireworkComponent{
		TargetY: targetY,
		VX:      vx,
		VY:      vy,
		Color:   clr,
		Type:    fireworkType,
		Voice:   voice,
	})

	return entityID, nil
}

// SelectFireworkType 按阈值表选择类型：依次判定 r > Above，都未命中时使用默认类型
//
// 默认配置下：r > 0.8 柳树，r > 0.6 环形，r > 0.5 频闪，否则球形
func SelectFireworkType(launch config.LaunchConfig, r float64) types.FireworkType {
	for _, th := range launch.TypeThresholds {
		if r > th.Above {
			return th.FireworkType()
		}
	}
	return launch.DefaultFireworkType()
}
