package game

import (
	"bytes"
	"fmt"
	"log"

	sfx "github.com/decker502/lunarfest/internal/audio"
	"github.com/hajimehoshi/ebiten/v2/audio"
)

// PlayerFactory creates independent players of the shared firework sound.
// It is the process's audio capability: it may not be ready until the
// viewer has interacted with the page (browsers suspend audio until then).
type PlayerFactory interface {
	// IsReady reports whether players can be created and heard.
	IsReady() bool
	// Unlock asks the platform to resume a suspended audio context.
	Unlock()
	// NewPlayer creates a stopped player at the given playback rate.
	NewPlayer(rate float64) (sfx.Player, error)
}

// ContextPlayerFactory is the PlayerFactory over an Ebitengine audio context.
// Playback rate is applied by resampling: the PCM is treated as recorded at
// sampleRate*rate and converted back to sampleRate, which shifts both speed and pitch.
type ContextPlayerFactory struct {
	context *audio.Context
	pcm     []byte

	unlockPlayer *audio.Player // 复用的静音播放器
}

// NewContextPlayerFactory 创建基于音频上下文的播放器工厂
//
// 参数：
//   - context: 全局音频上下文
//   - pcm: 已解码的 16 位立体声 PCM（采样率与上下文一致）
func NewContextPlayerFactory(context *audio.Context, pcm []byte) *ContextPlayerFactory {
	return &ContextPlayerFactory{context: context, pcm: pcm}
}

// IsReady 音频上下文是否可用
func (f *ContextPlayerFactory) IsReady() bool {
	return f.context != nil && f.context.IsReady()
}

// Unlock 播放一段静音以唤醒被挂起的音频上下文
// 所有尝试共用同一个静音播放器，每次从头播放
func (f *ContextPlayerFactory) Unlock() {
	if f.context == nil {
		return
	}
	if f.unlockPlayer == nil {
		f.unlockPlayer = f.context.NewPlayerFromBytes(make([]byte, sfx.BytesPerFrame))
	} else if err := f.unlockPlayer.SetPosition(0); err != nil {
		log.Printf("[ContextPlayerFactory] Warning: failed to rewind unlock player: %v", err)
	}
	f.unlockPlayer.Play()
}

// NewPlayer 创建指定播放速率的播放器
func (f *ContextPlayerFactory) NewPlayer(rate float64) (sfx.Player, error) {
	if f.context == nil {
		return nil, fmt.Errorf("no audio context")
	}
	if len(f.pcm) == 0 {
		return nil, fmt.Errorf("firework sound not loaded")
	}
	if rate <= 0 {
		return nil, fmt.Errorf("invalid playback rate %v", rate)
	}

	sampleRate := f.context.SampleRate()
	from := int(float64(sampleRate) * rate)
	if from == sampleRate {
		return f.context.NewPlayerFromBytes(f.pcm), nil
	}

	stream := audio.Resample(bytes.NewReader(f.pcm), int64(len(f.pcm)), from, sampleRate)
	player, err := f.context.NewPlayer(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio player: %w", err)
	}
	return player, nil
}
