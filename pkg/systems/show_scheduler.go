package systems

import (
	"math"
	"time"

	"github.com/decker502/lunarfest/internal/particle"
	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/types"
)

// ShowWindow 当前所处的烟花秀时间窗口
type ShowWindow int

const (
	// WindowNone 不在任何窗口内，不发射
	WindowNone ShowWindow = iota
	// WindowMainEvent 新年后一小时的主活动
	WindowMainEvent
	// WindowDailyShow 每日午夜的小型烟花秀
	WindowDailyShow
)

func (w ShowWindow) String() string {
	switch w {
	case WindowMainEvent:
		return "main-event"
	case WindowDailyShow:
		return "daily-show"
	default:
		return "idle"
	}
}

// SpawnDecision 某一时刻的发射决策
//
// Probability 是每个参考帧发射的概率；ForcedType 和 BurstCount 预先抽取，
// 只有发射判定成功时才会被使用。
type SpawnDecision struct {
	Probability float64
	ForcedType  types.FireworkType // types.FireworkNone 表示不强制
	BurstCount  int                // 发射成功时创建的烟花数量（1 或 3）
	Window      ShowWindow
	Phase       string // 主活动阶段名，其余窗口为空
}

// ShowScheduler 根据当前时间决定发射概率、强制类型和数量
// 纯函数式：不持有随机状态，随机源由调用方注入
type ShowScheduler struct {
	cfg *config.ShowConfig
}

// NewShowScheduler 创建调度器
func NewShowScheduler(cfg *config.ShowConfig) *ShowScheduler {
	return &ShowScheduler{cfg: cfg}
}

// SetConfig 替换配置（热重载）
func (s *ShowScheduler) SetConfig(cfg *config.ShowConfig) {
	s.cfg = cfg
}

// IsMainEvent 报告 now 是否在主活动窗口 [T, T+Duration) 内
func (s *ShowScheduler) IsMainEvent(now time.Time) bool {
	elapsed := now.Sub(s.cfg.TargetTime())
	return elapsed >= 0 && elapsed < s.cfg.MainEvent.Duration
}

// IsDailyShow 报告 now 的本地时间是否在每日烟花秀窗口内（任意日期）
// 窗口跨越午夜时按次日继续计算
func (s *ShowScheduler) IsDailyShow(now time.Time) bool {
	daily := s.cfg.DailyShow
	if daily.Duration <= 0 {
		return false
	}

	local := now.In(s.cfg.Loc())
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())

	start := daily.StartOffset()
	end := start + daily.Duration
	if sinceMidnight >= start && sinceMidnight < end {
		return true
	}
	// 跨越午夜的部分
	return end > 24*time.Hour && sinceMidnight < end-24*time.Hour
}

// Decide 返回 now 时刻的发射决策，主活动优先于每日烟花秀
//
// 参数：
//   - now: 当前时间
//   - rnd: 随机源（强制类型与多发判定）
func (s *ShowScheduler) Decide(now time.Time, rnd particle.Source) SpawnDecision {
	if s.IsMainEvent(now) {
		return s.decideMainEvent(now.Sub(s.cfg.TargetTime()), rnd)
	}

	if s.IsDailyShow(now) {
		daily := s.cfg.DailyShow
		return SpawnDecision{
			Probability: daily.SpawnProbability,
			ForcedType:  drawForced(rnd, daily.ForcedFireworkType(), daily.ForceChance),
			BurstCount:  1,
			Window:      WindowDailyShow,
		}
	}

	return SpawnDecision{BurstCount: 1, Window: WindowNone}
}

func (s *ShowScheduler) decideMainEvent(elapsed time.Duration, rnd particle.Source) SpawnDecision {
	phases := s.cfg.MainEvent.Phases
	phase := phases[len(phases)-1]
	for _, p := range phases {
		if elapsed < p.Until {
			phase = p
			break
		}
	}

	decision := SpawnDecision{
		Probability: phase.SpawnProbability,
		ForcedType:  drawForced(rnd, phase.ForcedFireworkType(), phase.ForceChance),
		BurstCount:  1,
		Window:      WindowMainEvent,
		Phase:       phase.Name,
	}
	if phase.MultiBurstChance > 0 && phase.MultiBurstCount > 1 && rnd.Float64() < phase.MultiBurstChance {
		decision.BurstCount = phase.MultiBurstCount
	}
	return decision
}

// drawForced 以 chance 的概率返回 forced
func drawForced(rnd particle.Source, forced types.FireworkType, chance float64) types.FireworkType {
	if forced == types.FireworkNone || chance <= 0 {
		return types.FireworkNone
	}
	if rnd.Float64() < chance {
		return forced
	}
	return types.FireworkNone
}

// FrameProbability 将每参考帧概率 p 换算为时长 dt 秒内至少发生一次的概率
// 1 - (1-p)^(dt·referenceFPS)；dt 等于一个参考帧时结果就是 p
func FrameProbability(p, dt, referenceFPS float64) float64 {
	if p <= 0 || dt <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}
	frames := dt * referenceFPS
	if math.Abs(frames-1) < 1e-9 {
		return p
	}
	return 1 - math.Pow(1-p, frames)
}
