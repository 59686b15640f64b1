package components

import (
	"image/color"

	"github.com/decker502/lunarfest/internal/audio"
	"github.com/decker502/lunarfest/pkg/types"
)

// FireworkComponent 一枚烟花从发射到消失的全部状态
// 位置由同一实体上的 PositionComponent 保存。
//
// 生命周期：上升 (!Exploded) -> 爆炸 (Exploded, len(Particles) > 0) -> 消失 (Dead)。
// Dead 当且仅当 Exploded 且粒子全部消失；进入 Dead 的那一帧释放 Voice 并销毁实体。
//
// This is a pure data component following ECS principles - it contains no methods.
type FireworkComponent struct {
	TargetY float64 // 爆炸高度（到达或越过即爆炸）
	VX      float64 // 上升阶段速度（像素/参考帧）
	VY      float64

	Color color.RGBA
	Type  types.FireworkType

	Particles []Particle // 爆炸后的粒子，爆炸前为空
	Exploded  bool
	Dead      bool

	// Voice 发射音效，静音或创建失败时为 nil；释放后置 nil
	Voice *audio.Voice
}

// Particle 爆炸产生的单个火花
// 所有速度和衰减量都以参考帧（60Hz）为单位。
type Particle struct {
	X, Y   float64
	VX, VY float64

	// Alpha 当前绘制透明度；Life 单调递减的生命包络
	// 非频闪粒子 Alpha == Life；频闪粒子 Alpha 在高/低亮度间跳变但不超过 Life
	Alpha float64
	Life  float64

	Color   color.RGBA
	Decay   float64 // 每参考帧的透明度衰减
	Gravity float64 // 每参考帧的竖直加速度
	Drag    float64 // 每参考帧的速度保留比例

	// 频闪亮度（FlickerHigh == 0 表示不频闪）
	FlickerHigh float64
	FlickerLow  float64
}
