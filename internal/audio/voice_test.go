package audio

import (
	"errors"
	"math"
	"testing"
	"time"
)

// fakePlayer 记录调用次数的测试播放器
type fakePlayer struct {
	playing    bool
	volume     float64
	pauseCalls int
	closeCalls int
	closeErr   error
}

func (p *fakePlayer) Play()               { p.playing = true }
func (p *fakePlayer) Pause()              { p.playing = false; p.pauseCalls++ }
func (p *fakePlayer) IsPlaying() bool     { return p.playing }
func (p *fakePlayer) SetVolume(v float64) { p.volume = v }
func (p *fakePlayer) Volume() float64     { return p.volume }
func (p *fakePlayer) Close() error        { p.closeCalls++; return p.closeErr }

func newPlayingFake(volume float64) *fakePlayer {
	return &fakePlayer{playing: true, volume: volume}
}

func TestVoice_LinearFade(t *testing.T) {
	p := newPlayingFake(0.5)
	v := NewVoice(p, 1.05)

	if !v.BeginFade(2500 * time.Millisecond) {
		t.Fatal("BeginFade() on a playing voice should return true")
	}
	if v.State() != VoiceFading {
		t.Fatalf("State() = %v, want fading", v.State())
	}

	// 1.25 秒后音量减半
	for i := 0; i < 5; i++ {
		if v.Advance(0.25) {
			t.Fatalf("voice released too early at step %d", i)
		}
	}
	if math.Abs(p.volume-0.25) > 1e-9 {
		t.Errorf("volume after half the fade = %v, want 0.25", p.volume)
	}

	for i := 0; i < 5; i++ {
		v.Advance(0.25)
	}
	if !v.Released() {
		t.Fatal("voice should be released after the full fade")
	}
	if p.pauseCalls != 1 || p.closeCalls != 1 {
		t.Errorf("pause/close calls = %d/%d, want 1/1", p.pauseCalls, p.closeCalls)
	}
}

func TestVoice_ReleaseIsIdempotent(t *testing.T) {
	p := newPlayingFake(0.5)
	v := NewVoice(p, 1)

	v.BeginFade(time.Second)
	if v.BeginFade(time.Second) {
		t.Error("second BeginFade() should be a no-op")
	}

	v.Stop()
	v.Stop()
	if v.BeginFade(time.Second) {
		t.Error("BeginFade() on a released voice should be a no-op")
	}
	if !v.Advance(1) {
		t.Error("Advance() on a released voice should report released")
	}
	if p.pauseCalls != 1 || p.closeCalls != 1 {
		t.Errorf("pause/close calls = %d/%d, want 1/1", p.pauseCalls, p.closeCalls)
	}
}

func TestVoice_StopSwallowsCloseError(t *testing.T) {
	p := newPlayingFake(0.5)
	p.closeErr = errors.New("already closed")
	v := NewVoice(p, 1)

	v.Stop()
	if !v.Released() {
		t.Error("voice should be released even when Close fails")
	}
}

func TestVoice_FinishedPlayerEndsFadeEarly(t *testing.T) {
	p := newPlayingFake(0.5)
	v := NewVoice(p, 1)
	v.BeginFade(10 * time.Second)

	p.playing = false // 音频自然播放结束
	if !v.Advance(1.0 / 60) {
		t.Error("fade should end once the player stops on its own")
	}
}

func TestVoice_ZeroFadeStopsImmediately(t *testing.T) {
	p := newPlayingFake(0.5)
	v := NewVoice(p, 1)

	if !v.BeginFade(0) {
		t.Fatal("BeginFade(0) should succeed on a playing voice")
	}
	if !v.Released() {
		t.Error("BeginFade(0) should release the voice immediately")
	}
}

func TestVoice_PlayingIgnoresAdvance(t *testing.T) {
	p := newPlayingFake(0.5)
	v := NewVoice(p, 0.9)

	if v.Advance(100) {
		t.Error("Advance() must not release a voice that is not fading")
	}
	if p.volume != 0.5 {
		t.Errorf("volume = %v, want untouched 0.5", p.volume)
	}
	if v.Rate() != 0.9 {
		t.Errorf("Rate() = %v, want 0.9", v.Rate())
	}
}
