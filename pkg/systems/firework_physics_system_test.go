package systems

import (
	"image/color"
	"math"
	"testing"

	"github.com/decker502/lunarfest/internal/audio"
	"github.com/decker502/lunarfest/pkg/components"
	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/ecs"
	"github.com/decker502/lunarfest/pkg/types"
)

const frame = 1.0 / 60

func TestFireworkPhysics_AscendIntegrates(t *testing.T) {
	em := ecs.NewEntityManager()
	cfg := config.DefaultShowConfig()
	sys := NewFireworkPhysicsSystem(em, cfg, constSource(0.5), nil)

	id := addFirework(em, components.PositionComponent{X: 100, Y: 600},
		components.FireworkComponent{TargetY: 100, VX: 1, VY: -10, Type: types.FireworkSphere})

	sys.Update(frame)

	pos, _ := ecs.GetComponent[*components.PositionComponent](em, id)
	fw, _ := ecs.GetComponent[*components.FireworkComponent](em, id)
	if pos.X != 101 || pos.Y != 590 {
		t.Errorf("position = (%v, %v), want (101, 590)", pos.X, pos.Y)
	}
	if math.Abs(fw.VY-(-9.85)) > 1e-9 {
		t.Errorf("VY = %v, want -9.85", fw.VY)
	}
	if fw.Exploded {
		t.Error("firework should still be ascending")
	}
}

func TestFireworkPhysics_ExplodeConditions(t *testing.T) {
	tests := []struct {
		name string
		pos  components.PositionComponent
		fw   components.FireworkComponent
	}{
		{"越过目标高度", components.PositionComponent{X: 400, Y: 305},
			components.FireworkComponent{TargetY: 300, VY: -10, Type: types.FireworkRing}},
		{"到达最高点", components.PositionComponent{X: 400, Y: 500},
			components.FireworkComponent{TargetY: 50, VY: -0.1, Type: types.FireworkRing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := ecs.NewEntityManager()
			cfg := config.DefaultShowConfig()
			sys := NewFireworkPhysicsSystem(em, cfg, constSource(0.5), nil)
			id := addFirework(em, tt.pos, tt.fw)

			sys.Update(frame)

			pos, _ := ecs.GetComponent[*components.PositionComponent](em, id)
			fw, _ := ecs.GetComponent[*components.FireworkComponent](em, id)
			if !fw.Exploded {
				t.Fatal("firework should have exploded")
			}
			if len(fw.Particles) != 60 {
				t.Fatalf("len(Particles) = %d, want 60 for ring", len(fw.Particles))
			}
			// 爆炸当帧粒子不运动
			for i, p := range fw.Particles {
				if p.X != pos.X || p.Y != pos.Y || p.Alpha != 1 {
					t.Fatalf("particle %d = %+v, want untouched at (%v, %v)", i, p, pos.X, pos.Y)
				}
			}
			if sys.Explosions() != 1 {
				t.Errorf("Explosions() = %d, want 1", sys.Explosions())
			}

			// 爆炸后位置不再变化
			x, y := pos.X, pos.Y
			sys.Update(frame)
			if pos.X != x || pos.Y != y {
				t.Errorf("exploded shell moved to (%v, %v)", pos.X, pos.Y)
			}
		})
	}
}

func TestFireworkPhysics_ParticleMotion(t *testing.T) {
	em := ecs.NewEntityManager()
	cfg := config.DefaultShowConfig()
	sys := NewFireworkPhysicsSystem(em, cfg, constSource(0.5), nil)

	id := addFirework(em, components.PositionComponent{}, components.FireworkComponent{
		Exploded: true,
		Particles: []components.Particle{
			{X: 0, Y: 0, VX: 10, VY: -10, Alpha: 1, Life: 1, Decay: 0.02, Gravity: 0.08, Drag: 0.96},
		},
	})

	sys.Update(frame)

	fw, _ := ecs.GetComponent[*components.FireworkComponent](em, id)
	p := fw.Particles[0]
	if p.X != 10 || p.Y != -10 {
		t.Errorf("position = (%v, %v), want (10, -10)", p.X, p.Y)
	}
	if want := 10 * 0.96; math.Abs(p.VX-want) > 1e-9 {
		t.Errorf("VX = %v, want %v", p.VX, want)
	}
	if want := (-10 + 0.08) * 0.96; math.Abs(p.VY-want) > 1e-9 {
		t.Errorf("VY = %v, want %v", p.VY, want)
	}
	if math.Abs(p.Alpha-0.98) > 1e-9 || p.Alpha != p.Life {
		t.Errorf("Alpha/Life = %v/%v, want 0.98/0.98", p.Alpha, p.Life)
	}
}

// TestFireworkPhysics_DragScalesWithStep 一次两帧长的更新与两次单帧更新的阻力一致
func TestFireworkPhysics_DragScalesWithStep(t *testing.T) {
	cfg := config.DefaultShowConfig()
	run := func(dts ...float64) components.Particle {
		em := ecs.NewEntityManager()
		sys := NewFireworkPhysicsSystem(em, cfg, constSource(0.5), nil)
		id := addFirework(em, components.PositionComponent{}, components.FireworkComponent{
			Exploded:  true,
			Particles: []components.Particle{{VX: 8, Alpha: 1, Life: 1, Decay: 0.01, Drag: 0.92}},
		})
		for _, dt := range dts {
			sys.Update(dt)
		}
		fw, _ := ecs.GetComponent[*components.FireworkComponent](em, id)
		return fw.Particles[0]
	}

	one := run(2 * frame)
	two := run(frame, frame)
	if math.Abs(one.VX-two.VX) > 1e-9 {
		t.Errorf("VX after one double step = %v, after two steps = %v", one.VX, two.VX)
	}
	if math.Abs(one.Life-two.Life) > 1e-9 {
		t.Errorf("Life after one double step = %v, after two steps = %v", one.Life, two.Life)
	}
}

func TestFireworkPhysics_RemovesFadedParticles(t *testing.T) {
	em := ecs.NewEntityManager()
	cfg := config.DefaultShowConfig()
	sys := NewFireworkPhysicsSystem(em, cfg, constSource(0.5), nil)

	id := addFirework(em, components.PositionComponent{}, components.FireworkComponent{
		Exploded: true,
		Particles: []components.Particle{
			{Alpha: 1, Life: 1, Decay: 0.5, Drag: 1, Color: color.RGBA{R: 1}},
			{Alpha: 1, Life: 1, Decay: 0.1, Drag: 1, Color: color.RGBA{R: 2}},
			{Alpha: 1, Life: 1, Decay: 0.5, Drag: 1, Color: color.RGBA{R: 3}},
		},
	})

	sys.Update(frame)
	fw, _ := ecs.GetComponent[*components.FireworkComponent](em, id)
	if len(fw.Particles) != 3 {
		t.Fatalf("after 1 frame len = %d, want 3", len(fw.Particles))
	}

	sys.Update(frame)
	if len(fw.Particles) != 1 {
		t.Fatalf("after 2 frames len = %d, want 1", len(fw.Particles))
	}
	if fw.Particles[0].Color.R != 2 {
		t.Errorf("surviving particle = %+v, want the slow one", fw.Particles[0])
	}
	if fw.Dead {
		t.Error("firework with live particles must not be dead")
	}
}

func TestFireworkPhysics_DeadTransitionOnce(t *testing.T) {
	em := ecs.NewEntityManager()
	cfg := config.DefaultShowConfig()
	voices := &recordingVoices{}
	sys := NewFireworkPhysicsSystem(em, cfg, constSource(0.5), voices)

	voice := audio.NewVoice(nopPlayer{}, 1)
	id := addFirework(em, components.PositionComponent{}, components.FireworkComponent{
		Exploded:  true,
		Voice:     voice,
		Particles: []components.Particle{{Alpha: 1, Life: 1, Decay: 1, Drag: 1}},
	})

	sys.Update(frame)

	fw, _ := ecs.GetComponent[*components.FireworkComponent](em, id)
	if !fw.Dead || len(fw.Particles) != 0 {
		t.Fatalf("firework = %+v, want dead with no particles", fw)
	}
	if fw.Voice != nil {
		t.Error("voice handle should be cleared on release")
	}
	if len(voices.released) != 1 || voices.released[0] != voice {
		t.Fatalf("released = %v, want exactly the firework's voice", voices.released)
	}
	if !em.IsMarkedForDestroy(id) {
		t.Error("dead firework should be marked for destroy")
	}

	// 清理之前再次更新不会重复释放
	sys.Update(frame)
	if len(voices.released) != 1 || sys.Finished() != 1 {
		t.Errorf("released %d times, finished %d, want 1/1", len(voices.released), sys.Finished())
	}

	em.RemoveMarkedEntities()
	if em.IsAlive(id) {
		t.Error("entity should be removed")
	}
}

func TestFireworkPhysics_SilentFireworkDies(t *testing.T) {
	em := ecs.NewEntityManager()
	voices := &recordingVoices{}
	sys := NewFireworkPhysicsSystem(em, config.DefaultShowConfig(), constSource(0.5), voices)

	id := addFirework(em, components.PositionComponent{}, components.FireworkComponent{
		Exploded:  true,
		Particles: []components.Particle{{Alpha: 1, Life: 1, Decay: 1, Drag: 1}},
	})
	sys.Update(frame)

	if !em.IsMarkedForDestroy(id) {
		t.Error("silent firework should still be destroyed")
	}
	if len(voices.released) != 0 {
		t.Errorf("released %d voices, want 0", len(voices.released))
	}
}

func TestFireworkPhysics_Strobe(t *testing.T) {
	em := ecs.NewEntityManager()
	// 高 低 高 低 ...
	src := &sequenceSource{values: []float64{0.9, 0.1}}
	sys := NewFireworkPhysicsSystem(em, config.DefaultShowConfig(), src, nil)

	id := addFirework(em, components.PositionComponent{}, components.FireworkComponent{
		Exploded:  true,
		Type:      types.FireworkStrobe,
		Particles: []components.Particle{{Alpha: 1, Life: 1, Decay: 0.1, Drag: 1, FlickerHigh: 1, FlickerLow: 0.3}},
	})
	fw, _ := ecs.GetComponent[*components.FireworkComponent](em, id)

	sys.Update(frame)
	if p := fw.Particles[0]; math.Abs(p.Alpha-0.9) > 1e-9 {
		t.Errorf("high frame Alpha = %v, want 0.9", p.Alpha)
	}
	sys.Update(frame)
	if p := fw.Particles[0]; math.Abs(p.Alpha-0.2) > 1e-9 || math.Abs(p.Life-0.8) > 1e-9 {
		t.Errorf("low frame Alpha/Life = %v/%v, want 0.2/0.8", p.Alpha, p.Life)
	}

	// 频闪粒子仍随包络在有限帧内消失
	for i := 0; i < 20 && !fw.Dead; i++ {
		for _, p := range fw.Particles {
			if p.Alpha > p.Life+1e-9 {
				t.Fatalf("Alpha %v exceeds Life %v", p.Alpha, p.Life)
			}
		}
		sys.Update(frame)
	}
	if !fw.Dead {
		t.Error("strobe firework should die once its envelope is exhausted")
	}
}

func TestFireworkPhysics_FullLifecycle(t *testing.T) {
	em := ecs.NewEntityManager()
	cfg := config.DefaultShowConfig()
	voices := &recordingVoices{}
	sys := NewFireworkPhysicsSystem(em, cfg, &sequenceSource{values: []float64{0.3, 0.7, 0.5}}, voices)

	id := addFirework(em, components.PositionComponent{X: 400, Y: 600}, components.FireworkComponent{
		TargetY: 200, VY: -14, Type: types.FireworkWillow, Voice: voices.Acquire(),
	})

	exploded := 0
	for i := 0; i < 10000 && em.IsAlive(id); i++ {
		fw, _ := ecs.GetComponent[*components.FireworkComponent](em, id)
		wasExploded := fw.Exploded
		sys.Update(frame)
		if !wasExploded && fw.Exploded {
			exploded++
		}
		em.RemoveMarkedEntities()
	}

	if em.IsAlive(id) {
		t.Fatal("firework never finished")
	}
	if exploded != 1 || sys.Explosions() != 1 {
		t.Errorf("exploded %d times (system counted %d), want 1", exploded, sys.Explosions())
	}
	if len(voices.released) != 1 {
		t.Errorf("voice released %d times, want 1", len(voices.released))
	}
	if LiveFireworks(em) != 0 {
		t.Errorf("LiveFireworks() = %d, want 0", LiveFireworks(em))
	}
}
