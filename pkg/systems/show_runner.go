package systems

import (
	"context"
	"fmt"
	"time"

	"github.com/decker502/lunarfest/internal/particle"
	"github.com/decker502/lunarfest/pkg/components"
	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/ecs"
	"github.com/decker502/lunarfest/pkg/types"
)

// DefaultRunnerTPS 无窗口排练的模拟频率
const DefaultRunnerTPS = 60

// MinuteReport 一分钟（模拟时间）内的统计
type MinuteReport struct {
	Start         time.Time
	Window        ShowWindow
	Phase         string
	Spawned       map[types.FireworkType]int
	Total         int
	Explosions    int
	PeakLive      int
	PeakParticles int
}

// RunSummary 一次排练的汇总
type RunSummary struct {
	Ticks      int
	Spawned    map[types.FireworkType]int
	Total      int
	Explosions int
	Finished   int
	PeakLive   int
}

// ShowRunner 无窗口、无音频地运行调度、发射和物理系统
// 用于排练某个时间段的烟花秀（cmd/showsim）和测试
type ShowRunner struct {
	entityManager *ecs.EntityManager
	scheduler     *ShowScheduler
	spawn         *FireworkSpawnSystem
	physics       *FireworkPhysicsSystem
	tps           int
	now           time.Time
}

// NewShowRunner 创建排练运行器
//
// 参数：
//   - cfg: 烟花秀配置
//   - rnd: 随机源（相同种子得到相同结果）
//   - width, height: 模拟画布尺寸
//   - tps: 每秒模拟帧数，<= 0 时使用 DefaultRunnerTPS
func NewShowRunner(cfg *config.ShowConfig, rnd particle.Source, width, height float64, tps int) *ShowRunner {
	if tps <= 0 {
		tps = DefaultRunnerTPS
	}
	r := &ShowRunner{
		entityManager: ecs.NewEntityManager(),
		scheduler:     NewShowScheduler(cfg),
		tps:           tps,
	}
	r.spawn = NewFireworkSpawnSystem(r.entityManager, cfg, r.scheduler, rnd, nil, func() time.Time { return r.now })
	r.spawn.SetBounds(width, height)
	r.physics = NewFireworkPhysicsSystem(r.entityManager, cfg, rnd, nil)
	return r
}

// Run 从 from 开始模拟 duration 时长
// 每满一分钟（以及结束时不足一分钟的部分）调用一次 report，report 可为 nil。
// ctx 取消时返回已完成部分的汇总和 ctx.Err()。
func (r *ShowRunner) Run(ctx context.Context, from time.Time, duration time.Duration, report func(MinuteReport)) (RunSummary, error) {
	if duration < 0 {
		return RunSummary{}, fmt.Errorf("invalid duration %v", duration)
	}

	dt := 1.0 / float64(r.tps)
	ticks := int(duration.Seconds() * float64(r.tps))
	summary := RunSummary{Spawned: make(map[types.FireworkType]int)}

	var minute *MinuteReport
	explosionsAtMinute := r.physics.Explosions()
	flush := func() {
		if minute == nil {
			return
		}
		stats := r.spawn.Stats()
		minute.Spawned = stats.ByType
		minute.Total = stats.Total
		minute.Explosions = r.physics.Explosions() - explosionsAtMinute
		for ft, n := range stats.ByType {
			summary.Spawned[ft] += n
		}
		summary.Total += stats.Total
		if report != nil {
			report(*minute)
		}
		r.spawn.ResetStats()
		explosionsAtMinute = r.physics.Explosions()
		minute = nil
	}

	for i := 0; i < ticks; i++ {
		if i%r.tps == 0 {
			if err := ctx.Err(); err != nil {
				flush()
				r.finishSummary(&summary)
				return summary, err
			}
		}

		r.now = from.Add(time.Duration(int64(i) * int64(time.Second) / int64(r.tps)))
		if minute != nil && r.now.Sub(minute.Start) >= time.Minute {
			flush()
		}

		r.spawn.Update(dt)
		r.physics.Update(dt)
		r.entityManager.RemoveMarkedEntities()

		if minute == nil {
			d := r.spawn.LastDecision()
			minute = &MinuteReport{Start: r.now, Window: d.Window, Phase: d.Phase}
		}
		live, particles := r.census()
		if live > minute.PeakLive {
			minute.PeakLive = live
		}
		if particles > minute.PeakParticles {
			minute.PeakParticles = particles
		}
		if live > summary.PeakLive {
			summary.PeakLive = live
		}
		summary.Ticks++
	}

	flush()
	r.finishSummary(&summary)
	return summary, nil
}

func (r *ShowRunner) finishSummary(summary *RunSummary) {
	summary.Explosions = r.physics.Explosions()
	summary.Finished = r.physics.Finished()
}

// census 返回存活烟花数和粒子总数
func (r *ShowRunner) census() (live, particles int) {
	for _, id := range ecs.GetEntitiesWith1[*components.FireworkComponent](r.entityManager) {
		fw, _ := ecs.GetComponent[*components.FireworkComponent](r.entityManager, id)
		live++
		particles += len(fw.Particles)
	}
	return live, particles
}

// EntityManager 返回运行器使用的实体管理器（测试使用）
func (r *ShowRunner) EntityManager() *ecs.EntityManager {
	return r.entityManager
}
