package systems

import (
	"log"
	"time"

	"github.com/decker502/lunarfest/pkg/game"
)

// unlockRetryInterval 解锁后音频仍未就绪时，再次尝试前的最短间隔
const unlockRetryInterval = time.Second

// AudioUnlockSystem 在首次用户交互时解锁音频
// 浏览器等平台在用户交互前挂起音频上下文；每次挂起只在第一次点击、触摸或按键时
// 请求解锁，若 unlockRetryInterval 后仍未就绪则允许下一次交互重试。
type AudioUnlockSystem struct {
	factory game.PlayerFactory
	now     Clock

	requested   bool
	requestedAt time.Time
	unlocks     int
}

// NewAudioUnlockSystem 创建解锁系统，factory 为 nil 时不做任何事
func NewAudioUnlockSystem(factory game.PlayerFactory, now Clock) *AudioUnlockSystem {
	if now == nil {
		now = time.Now
	}
	return &AudioUnlockSystem{factory: factory, now: now}
}

// Update 每帧调用
// 参数:
//   - interacted: 本帧是否发生了点击、触摸或按键
func (s *AudioUnlockSystem) Update(interacted bool) {
	if s.factory == nil {
		return
	}
	if s.factory.IsReady() {
		s.requested = false
		return
	}
	if !interacted {
		return
	}
	if s.requested && s.now().Sub(s.requestedAt) < unlockRetryInterval {
		return
	}

	s.factory.Unlock()
	s.requested = true
	s.requestedAt = s.now()
	s.unlocks++
	log.Printf("[AudioUnlockSystem] Requested audio unlock (%d)", s.unlocks)
}

// Unlocks 返回累计请求解锁的次数
func (s *AudioUnlockSystem) Unlocks() int {
	return s.unlocks
}
