package systems

import (
	"log"
	"time"

	"github.com/decker502/lunarfest/internal/particle"
	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/ecs"
	"github.com/decker502/lunarfest/pkg/entities"
	"github.com/decker502/lunarfest/pkg/types"
)

// Clock 返回当前时间（可在排练模式下替换）
type Clock func() time.Time

// SpawnStats 发射计数
type SpawnStats struct {
	Total  int
	Manual int
	ByType map[types.FireworkType]int
}

// FireworkSpawnSystem 烟花发射系统
// 职责：
//   - 每帧向调度器询问发射决策，按帧长换算后的概率判定是否发射
//   - 判定成功时创建 BurstCount 枚烟花（可能带强制类型）
//   - 执行手动发射（跳过概率判定）
//
// 画布尺寸为零时不做任何事。
type FireworkSpawnSystem struct {
	entityManager *ecs.EntityManager
	cfg           *config.ShowConfig
	scheduler     *ShowScheduler
	rnd           particle.Source
	voices        entities.VoiceSource
	clock         Clock

	width  float64
	height float64

	lastDecision SpawnDecision
	stats        SpawnStats
}

// NewFireworkSpawnSystem 创建发射系统
//
// 参数:
//   - em: EntityManager 实例
//   - cfg: 烟花秀配置
//   - scheduler: 调度器
//   - rnd: 随机源
//   - voices: 音效来源，可为 nil（静音）
//   - clock: 时钟，nil 表示 time.Now
func NewFireworkSpawnSystem(em *ecs.EntityManager, cfg *config.ShowConfig, scheduler *ShowScheduler, rnd particle.Source, voices entities.VoiceSource, clock Clock) *FireworkSpawnSystem {
	if clock == nil {
		clock = time.Now
	}
	return &FireworkSpawnSystem{
		entityManager: em,
		cfg:           cfg,
		scheduler:     scheduler,
		rnd:           rnd,
		voices:        voices,
		clock:         clock,
		stats:         SpawnStats{ByType: make(map[types.FireworkType]int)},
	}
}

// SetBounds 设置画布尺寸（窗口大小变化时调用）
func (s *FireworkSpawnSystem) SetBounds(width, height float64) {
	s.width = width
	s.height = height
}

// HasBounds 报告画布尺寸是否有效（零尺寸时不发射）
func (s *FireworkSpawnSystem) HasBounds() bool {
	return s.width > 0 && s.height > 0
}

// SetConfig 替换配置（热重载）
func (s *FireworkSpawnSystem) SetConfig(cfg *config.ShowConfig) {
	s.cfg = cfg
}

// Update 按调度决策随机发射烟花
// 参数:
//   - deltaTime: 自上次更新以来的时间（秒）
func (s *FireworkSpawnSystem) Update(deltaTime float64) {
	if s.width <= 0 || s.height <= 0 {
		return
	}

	decision := s.scheduler.Decide(s.clock(), s.rnd)
	s.lastDecision = decision

	p := FrameProbability(decision.Probability, deltaTime, s.cfg.ReferenceFPS)
	if p <= 0 || s.rnd.Float64() >= p {
		return
	}

	for k := 0; k < decision.BurstCount; k++ {
		s.spawn(decision.ForcedType, false)
	}
}

// Launch 立即发射一枚指定类型的烟花（跳过概率判定）
// 画布尺寸为零时返回 false
func (s *FireworkSpawnSystem) Launch(fireworkType types.FireworkType) bool {
	if !s.HasBounds() {
		return false
	}
	return s.spawn(fireworkType, true)
}

func (s *FireworkSpawnSystem) spawn(forced types.FireworkType, manual bool) bool {
	id, err := entities.NewFireworkEntity(s.entityManager, s.cfg, s.rnd, s.width, s.height, forced, s.voices)
	if err != nil {
		log.Printf("[FireworkSpawnSystem] Warning: failed to create firework: %v", err)
		return false
	}

	s.stats.Total++
	if manual {
		s.stats.Manual++
	}
	if fw, ok := getFireworkComponent(s.entityManager, id); ok {
		s.stats.ByType[fw.Type]++
	}
	return true
}

// LastDecision 返回最近一次 Update 的调度决策
func (s *FireworkSpawnSystem) LastDecision() SpawnDecision {
	return s.lastDecision
}

// Stats 返回发射计数的副本
func (s *FireworkSpawnSystem) Stats() SpawnStats {
	out := SpawnStats{Total: s.stats.Total, Manual: s.stats.Manual, ByType: make(map[types.FireworkType]int, len(s.stats.ByType))}
	for k, v := range s.stats.ByType {
		out.ByType[k] = v
	}
	return out
}

// ResetStats 清零发射计数
func (s *FireworkSpawnSystem) ResetStats() {
	s.stats = SpawnStats{ByType: make(map[types.FireworkType]int)}
}
