// Package audio holds the playback-independent parts of firework sound:
// voice lifecycle and fades, the .au decoder, and the fallback synthesized effect.
package audio

import "time"

// Player is the subset of *audio.Player a Voice drives.
type Player interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(volume float64)
	Volume() float64
	Close() error
}

// VoiceState is the lifecycle stage of a Voice.
type VoiceState int

const (
	VoicePlaying VoiceState = iota
	VoiceFading
	VoiceReleased
)

func (s VoiceState) String() string {
	switch s {
	case VoicePlaying:
		return "playing"
	case VoiceFading:
		return "fading"
	case VoiceReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Voice is one independently playing instance of the firework sound.
// A Voice moves Playing -> Fading -> Released and never back.
// Once released its player has been paused and closed and is not touched again.
type Voice struct {
	player Player
	rate   float64
	state  VoiceState

	fadeDuration float64 // seconds
	fadeElapsed  float64
	fadeStart    float64 // volume when the fade began
}

// NewVoice wraps a started player. rate is the playback rate it was created with.
func NewVoice(player Player, rate float64) *Voice {
	return &Voice{player: player, rate: rate, state: VoicePlaying}
}

// Rate returns the playback rate.
func (v *Voice) Rate() float64 { return v.rate }

// State returns the lifecycle stage.
func (v *Voice) State() VoiceState { return v.state }

// Released reports whether the voice has been stopped and closed.
func (v *Voice) Released() bool { return v.state == VoiceReleased }

// BeginFade starts a linear fade to silence over d.
// Returns false, doing nothing, unless the voice is still playing.
// A non-positive d stops the voice immediately.
func (v *Voice) BeginFade(d time.Duration) bool {
	if v.state != VoicePlaying {
		return false
	}
	if d <= 0 {
		v.Stop()
		return true
	}
	v.state = VoiceFading
	v.fadeDuration = d.Seconds()
	v.fadeElapsed = 0
	v.fadeStart = v.player.Volume()
	return true
}

// Advance moves a fade forward by dt seconds and reports whether the voice
// is released. Playing voices are left alone.
func (v *Voice) Advance(dt float64) bool {
	switch v.state {
	case VoiceReleased:
		return true
	case VoicePlaying:
		return false
	}

	v.fadeElapsed += dt
	if v.fadeElapsed >= v.fadeDuration || !v.player.IsPlaying() {
		v.Stop()
		return true
	}
	v.player.SetVolume(v.fadeStart * (1 - v.fadeElapsed/v.fadeDuration))
	return false
}

// Stop pauses and closes the player right away. Safe to call repeatedly;
// errors from an already finished player are ignored.
func (v *Voice) Stop() {
	if v.state == VoiceReleased {
		return
	}
	v.state = VoiceReleased
	v.player.Pause()
	_ = v.player.Close()
}
