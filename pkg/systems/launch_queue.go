package systems

import (
	"fmt"
	"sync"
	"time"

	"github.com/decker502/lunarfest/pkg/types"
)

// MixLaunchInterval 「全部发射」中相邻两枚烟花的间隔
const MixLaunchInterval = 300 * time.Millisecond

type pendingLaunch struct {
	fireworkType types.FireworkType
	remaining    float64 // 秒
}

// LaunchQueue 手动发射请求队列
// 输入处理或外部调用方通过 Push 入队，永不阻塞；场景每帧以仿真时间 Drain。
// 可被多个 goroutine 同时使用。
type LaunchQueue struct {
	mu      sync.Mutex
	pending []pendingLaunch
}

// NewLaunchQueue 创建空队列
func NewLaunchQueue() *LaunchQueue {
	return &LaunchQueue{}
}

// Push 在 delay 之后发射一枚指定类型的烟花
func (q *LaunchQueue) Push(fireworkType types.FireworkType, delay time.Duration) error {
	if !fireworkType.IsValid() {
		return fmt.Errorf("invalid firework type %q", fireworkType)
	}
	if delay < 0 {
		delay = 0
	}
	q.mu.Lock()
	q.pending = append(q.pending, pendingLaunch{fireworkType: fireworkType, remaining: delay.Seconds()})
	q.mu.Unlock()
	return nil
}

// PushMix 依次发射全部四种烟花，间隔 MixLaunchInterval
func (q *LaunchQueue) PushMix() {
	for i, ft := range types.AllFireworkTypes {
		_ = q.Push(ft, time.Duration(i)*MixLaunchInterval)
	}
}

// Drain 推进 deltaTime 秒，返回到期的发射请求（按入队顺序）
func (q *LaunchQueue) Drain(deltaTime float64) []types.FireworkType {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []types.FireworkType
	kept := q.pending[:0]
	for _, p := range q.pending {
		p.remaining -= deltaTime
		if p.remaining <= 1e-9 {
			due = append(due, p.fireworkType)
			continue
		}
		kept = append(kept, p)
	}
	q.pending = kept
	return due
}

// Len 返回尚未到期的请求数量
func (q *LaunchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Clear 丢弃所有未到期的请求
func (q *LaunchQueue) Clear() {
	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()
}
