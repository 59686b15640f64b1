package systems

import (
	"testing"

	"github.com/decker502/lunarfest/internal/audio"
	"github.com/decker502/lunarfest/pkg/components"
	"github.com/decker502/lunarfest/pkg/ecs"
	"go.uber.org/goleak"
)

// verifyNoLeaks 检查测试结束时没有遗留 goroutine（忽略测试开始前已存在的）
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	opt := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, opt) })
}

// countingSource 记录调用次数，返回固定值
type countingSource struct {
	value float64
	calls int
}

func (s *countingSource) Float64() float64 {
	s.calls++
	return s.value
}

// sequenceSource 依次循环返回给定的值
type sequenceSource struct {
	values []float64
	i      int
}

func (s *sequenceSource) Float64() float64 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

// nopPlayer 不发声的播放器
type nopPlayer struct{}

func (nopPlayer) Play()             {}
func (nopPlayer) Pause()            {}
func (nopPlayer) IsPlaying() bool   { return true }
func (nopPlayer) SetVolume(float64) {}
func (nopPlayer) Volume() float64   { return 0.5 }
func (nopPlayer) Close() error      { return nil }

// recordingVoices 同时实现 VoiceSource 和 VoiceReleaser
type recordingVoices struct {
	acquired int
	released []*audio.Voice
}

func (r *recordingVoices) Acquire() *audio.Voice {
	r.acquired++
	return audio.NewVoice(nopPlayer{}, 1)
}

func (r *recordingVoices) Release(v *audio.Voice) {
	r.released = append(r.released, v)
	v.Stop()
}

// addFirework 直接创建一枚烟花实体
func addFirework(em *ecs.EntityManager, pos components.PositionComponent, fw components.FireworkComponent) ecs.EntityID {
	id := em.CreateEntity()
	em.AddComponent(id, &pos)
	em.AddComponent(id, &fw)
	return id
}
