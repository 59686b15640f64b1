package systems

import (
	"log"
	"math"

	"github.com/decker502/lunarfest/internal/audio"
	"github.com/decker502/lunarfest/internal/particle"
	"github.com/decker502/lunarfest/pkg/components"
	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/ecs"
	"github.com/decker502/lunarfest/pkg/entities"
)

// VoiceReleaser 回收烟花消失时的音效
type VoiceReleaser interface {
	Release(v *audio.Voice)
}

// FireworkPhysicsSystem 烟花物理系统
// 职责：
//   - 上升阶段：积分位置、施加重力，到达爆炸条件时生成粒子
//   - 爆炸阶段：更新粒子（重力、阻力、衰减、频闪），移除透明度耗尽的粒子
//   - 粒子全部消失时标记 Dead，释放音效并销毁实体
//
// 所有常量以参考帧为单位，按 step = deltaTime * referenceFPS 缩放。
type FireworkPhysicsSystem struct {
	entityManager *ecs.EntityManager
	cfg           *config.ShowConfig
	rnd           particle.Source
	voices        VoiceReleaser

	explosions int
	finished   int
}

// NewFireworkPhysicsSystem 创建物理系统
// voices 可为 nil（不处理音效）
func NewFireworkPhysicsSystem(em *ecs.EntityManager, cfg *config.ShowConfig, rnd particle.Source, voices VoiceReleaser) *FireworkPhysicsSystem {
	return &FireworkPhysicsSystem{
		entityManager: em,
		cfg:           cfg,
		rnd:           rnd,
		voices:        voices,
	}
}

// SetConfig 替换配置（热重载），已存在的粒子保留各自的参数
func (s *FireworkPhysicsSystem) SetConfig(cfg *config.ShowConfig) {
	s.cfg = cfg
}

// Update 推进所有烟花
// 参数:
//   - deltaTime: 自上次更新以来的时间（秒）
func (s *FireworkPhysicsSystem) Update(deltaTime float64) {
	if deltaTime <= 0 {
		return
	}
	step := deltaTime * s.cfg.ReferenceFPS

	for _, id := range ecs.GetEntitiesWith2[*components.PositionComponent, *components.FireworkComponent](s.entityManager) {
		if s.entityManager.IsMarkedForDestroy(id) {
			continue
		}
		pos, _ := ecs.GetComponent[*components.PositionComponent](s.entityManager, id)
		fw, _ := ecs.GetComponent[*components.FireworkComponent](s.entityManager, id)
		if fw.Dead {
			continue
		}

		if !fw.Exploded {
			s.ascend(pos, fw, step)
			// 刚爆炸的粒子从下一帧开始运动
			continue
		}

		fw.Particles = s.updateParticles(fw.Particles, step)
		if len(fw.Particles) == 0 {
			s.finish(id, fw)
		}
	}
}

func (s *FireworkPhysicsSystem) ascend(pos *components.PositionComponent, fw *components.FireworkComponent, step float64) {
	pos.X += fw.VX * step
	pos.Y += fw.VY * step
	fw.VY += s.cfg.Launch.Gravity * step

	// 到达最高点或越过目标高度
	if fw.VY < 0 && pos.Y > fw.TargetY {
		return
	}

	spec, ok := s.cfg.Burst(fw.Type)
	if !ok {
		log.Printf("[FireworkPhysicsSystem] Warning: no burst configured for %s", fw.Type)
	}
	fw.Exploded = true
	fw.Particles = entities.NewParticleBurst(s.rnd, pos.X, pos.Y, fw.Color, spec)
	s.explosions++
}

// updateParticles 原地更新并压缩粒子切片
func (s *FireworkPhysicsSystem) updateParticles(ps []components.Particle, step float64) []components.Particle {
	alive := ps[:0]
	for i := range ps {
		p := ps[i]

		p.X += p.VX * step
		p.Y += p.VY * step
		p.VY += p.Gravity * step

		drag := p.Drag
		if step != 1 {
			drag = math.Pow(p.Drag, step)
		}
		p.VX *= drag
		p.VY *= drag

		fade := p.Decay * step
		p.Life -= fade
		if p.FlickerHigh > 0 {
			level := p.FlickerLow
			if s.rnd.Float64() > 0.5 {
				level = p.FlickerHigh
			}
			p.Alpha = math.Min(level-fade, p.Life)
		} else {
			p.Alpha = p.Life
		}

		if p.Alpha > 0 {
			alive = append(alive, p)
		}
	}
	// 释放尾部引用
	for i := len(alive); i < len(ps); i++ {
		ps[i] = components.Particle{}
	}
	return alive
}

// finish 处理 Exploded -> Dead 转换，每枚烟花只发生一次
func (s *FireworkPhysicsSystem) finish(id ecs.EntityID, fw *components.FireworkComponent) {
	fw.Dead = true
	if fw.Voice != nil {
		if s.voices != nil {
			s.voices.Release(fw.Voice)
		} else {
			fw.Voice.Stop()
		}
		fw.Voice = nil
	}
	s.entityManager.DestroyEntity(id)
	s.finished++
}

// Explosions 返回累计爆炸次数
func (s *FireworkPhysicsSystem) Explosions() int {
	return s.explosions
}

// Finished 返回累计消失的烟花数量
func (s *FireworkPhysicsSystem) Finished() int {
	return s.finished
}

// getFireworkComponent 获取实体的烟花组件
func getFireworkComponent(em *ecs.EntityManager, id ecs.EntityID) (*components.FireworkComponent, bool) {
	return ecs.GetComponent[*components.FireworkComponent](em, id)
}

// LiveFireworks 返回尚未消失的烟花数量
func LiveFireworks(em *ecs.EntityManager) int {
	n := 0
	for _, id := range ecs.GetEntitiesWith1[*components.FireworkComponent](em) {
		if !em.IsMarkedForDestroy(id) {
			n++
		}
	}
	return n
}
