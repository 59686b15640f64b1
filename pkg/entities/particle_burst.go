package entities

import (
	"image/color"
	"math"

	"github.com/decker502/lunarfest/internal/particle"
	"github.com/decker502/lunarfest/pkg/components"
	"github.com/decker502/lunarfest/pkg/config"
)

// NewParticleBurst 生成烟花在 (x, y) 爆炸时的全部粒子
//
// 粒子数量、初速度、衰减、重力和阻力由 BurstSpec 决定。
// EvenAngles 为 true 时第 i 个粒子的方向为 2π·i/count（环形），否则方向均匀随机。
// 所有粒子初始 Alpha 和 Life 为 1，颜色与烟花相同。
func NewParticleBurst(rnd particle.Source, x, y float64, clr color.RGBA, spec config.BurstSpec) []components.Particle {
	particles := make([]components.Particle, 0, spec.Count)
	speedRange := spec.SpeedRange()
	decayRange := spec.DecayRange()

	for i := 0; i < spec.Count; i++ {
		var angle float64
		if spec.EvenAngles {
			angle = 2 * math.Pi * float64(i) / float64(spec.Count)
		} else {
			angle = particle.RandomInRange(rnd, 0, 2*math.Pi)
		}
		speed := speedRange.Sample(rnd)

		particles = append(particles, components.Particle{
			X:           x,
			Y:           y,
			VX:          math.Cos(angle) * speed,
			VY:          math.Sin(angle) * speed,
			Alpha:       1,
			Life:        1,
			Color:       clr,
			Decay:       decayRange.Sample(rnd),
			Gravity:     spec.Gravity,
			Drag:        spec.Drag,
			FlickerHigh: spec.FlickerHigh,
			FlickerLow:  spec.FlickerLow,
		})
	}
	return particles
}
