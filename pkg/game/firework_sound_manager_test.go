package game

import (
	"errors"
	"math/rand"
	"testing"

	sfx "github.com/decker502/lunarfest/internal/audio"
	"github.com/decker502/lunarfest/pkg/config"
)

type fakePlayer struct {
	playing bool
	volume  float64
	closed  int
}

func (p *fakePlayer) Play()               { p.playing = true }
func (p *fakePlayer) Pause()              { p.playing = false }
func (p *fakePlayer) IsPlaying() bool     { return p.playing }
func (p *fakePlayer) SetVolume(v float64) { p.volume = v }
func (p *fakePlayer) Volume() float64     { return p.volume }
func (p *fakePlayer) Close() error        { p.closed++; return nil }

type fakeFactory struct {
	ready   bool
	err     error
	unlocks int
	rates   []float64
	players []*fakePlayer
}

func (f *fakeFactory) IsReady() bool { return f.ready }
func (f *fakeFactory) Unlock()       { f.unlocks++; f.ready = true }
func (f *fakeFactory) NewPlayer(rate float64) (sfx.Player, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := &fakePlayer{}
	f.rates = append(f.rates, rate)
	f.players = append(f.players, p)
	return p, nil
}

func newTestSoundManager(f PlayerFactory, sm *SettingsManager) *FireworkSoundManager {
	cfg := config.DefaultShowConfig().Sound
	return NewFireworkSoundManager(f, sm, cfg, rand.New(rand.NewSource(1)))
}

func TestFireworkSoundManager_Acquire(t *testing.T) {
	f := &fakeFactory{ready: true}
	m := newTestSoundManager(f, NewSettingsManager(nil))

	v := m.Acquire()
	if v == nil {
		t.Fatal("Acquire() returned nil with a ready factory")
	}
	p := f.players[0]
	if !p.playing {
		t.Error("acquired voice should be playing")
	}
	if p.volume != 0.5 {
		t.Errorf("volume = %v, want 0.5", p.volume)
	}
	if f.rates[0] < 0.9 || f.rates[0] >= 1.1 {
		t.Errorf("rate = %v, want in [0.9, 1.1)", f.rates[0])
	}
	if m.ActiveVoices() != 1 {
		t.Errorf("ActiveVoices() = %d, want 1", m.ActiveVoices())
	}
}

func TestFireworkSoundManager_AcquireSilent(t *testing.T) {
	tests := []struct {
		name    string
		factory PlayerFactory
		muted   bool
	}{
		{"静音", &fakeFactory{ready: true}, true},
		{"无音频设备", nil, false},
		{"上下文未就绪", &fakeFactory{ready: false}, false},
		{"创建失败", &fakeFactory{ready: true, err: errors.New("boom")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewSettingsManager(nil)
			sm.SetSoundEnabled(!tt.muted)
			m := newTestSoundManager(tt.factory, sm)

			// 重复失败不会 panic，也不会返回音轨
			for i := 0; i < 3; i++ {
				if v := m.Acquire(); v != nil {
					t.Fatalf("Acquire() = %v, want nil", v)
				}
			}
			if m.ActiveVoices() != 0 {
				t.Errorf("ActiveVoices() = %d, want 0", m.ActiveVoices())
			}
		})
	}
}

func TestFireworkSoundManager_VolumeFollowsSettings(t *testing.T) {
	f := &fakeFactory{ready: true}
	sm := NewSettingsManager(nil)
	sm.SetSoundVolume(0.5)
	m := newTestSoundManager(f, sm)

	m.Acquire()
	if got := f.players[0].volume; got != 0.25 {
		t.Errorf("volume = %v, want 0.5 * 0.5", got)
	}
}

func TestFireworkSoundManager_ReleaseFadesThenCloses(t *testing.T) {
	f := &fakeFactory{ready: true}
	m := newTestSoundManager(f, nil)

	v := m.Acquire()
	m.Release(v)
	if v.State() != sfx.VoiceFading {
		t.Fatalf("State() = %v, want fading", v.State())
	}
	if m.ActiveVoices() != 0 || m.FadingVoices() != 1 {
		t.Errorf("active/fading = %d/%d, want 0/1", m.ActiveVoices(), m.FadingVoices())
	}

	// 2.5 秒淡出，每帧 1/60 秒
	const dt = 1.0 / 60
	for i := 0; i < 149; i++ {
		m.Update(dt)
	}
	if v.Released() {
		t.Fatal("voice released before the fade finished")
	}
	if vol := f.players[0].volume; vol <= 0 || vol >= 0.5 {
		t.Errorf("volume mid-fade = %v, want within (0, 0.5)", vol)
	}

	m.Update(dt)
	m.Update(dt)
	if !v.Released() {
		t.Fatal("voice should be released after 2.5s")
	}
	if f.players[0].closed != 1 {
		t.Errorf("Close() calls = %d, want 1", f.players[0].closed)
	}
	if m.FadingVoices() != 0 {
		t.Errorf("FadingVoices() = %d, want 0", m.FadingVoices())
	}
}

func TestFireworkSoundManager_ReleaseIsIdempotent(t *testing.T) {
	f := &fakeFactory{ready: true}
	m := newTestSoundManager(f, nil)

	v := m.Acquire()
	m.Release(v)
	m.Release(v)
	m.Release(nil)
	if m.FadingVoices() != 1 {
		t.Errorf("FadingVoices() = %d, want 1", m.FadingVoices())
	}

	m.StopAll()
	m.Release(v) // 已关闭
	if f.players[0].closed != 1 {
		t.Errorf("Close() calls = %d, want 1", f.players[0].closed)
	}
}

func TestFireworkSoundManager_ZeroFade(t *testing.T) {
	f := &fakeFactory{ready: true}
	m := newTestSoundManager(f, nil)
	cfg := config.DefaultShowConfig().Sound
	cfg.FadeOut = 0
	m.SetConfig(cfg)

	v := m.Acquire()
	m.Release(v)
	if !v.Released() {
		t.Error("zero fade should stop the voice immediately")
	}
	if m.FadingVoices() != 0 {
		t.Errorf("FadingVoices() = %d, want 0", m.FadingVoices())
	}
}

func TestFireworkSoundManager_StopAll(t *testing.T) {
	f := &fakeFactory{ready: true}
	m := newTestSoundManager(f, nil)

	a := m.Acquire()
	b := m.Acquire()
	m.Release(b)

	m.StopAll()
	if !a.Released() || !b.Released() {
		t.Error("StopAll() should release every voice")
	}
	if m.ActiveVoices() != 0 || m.FadingVoices() != 0 {
		t.Errorf("active/fading = %d/%d, want 0/0", m.ActiveVoices(), m.FadingVoices())
	}
}
