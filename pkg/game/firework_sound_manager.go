package game

import (
	"fmt"
	"log"

	sfx "github.com/decker502/lunarfest/internal/audio"
	"github.com/decker502/lunarfest/internal/particle"
	"github.com/decker502/lunarfest/pkg/config"
)

// FireworkSoundManager 烟花音效生命周期管理器
// 职责：
//   - 每枚烟花发射时创建一个独立音轨（随机播放速率，固定音量）
//   - 烟花消失时释放音轨：线性淡出后暂停并关闭
//   - 每帧推进所有进行中的淡出
//
// 任何音频故障都只会让烟花静音，不会影响动画。
type FireworkSoundManager struct {
	factory  PlayerFactory    // 可为 nil（无音频设备）
	settings *SettingsManager // 可为 nil（始终开启）
	cfg      config.SoundConfig
	rnd      particle.Source

	live   map[*sfx.Voice]struct{} // 已创建且未开始淡出的音轨
	fading []*sfx.Voice            // 淡出中的音轨
	warned map[string]bool         // 每类警告只记录一次
}

// NewFireworkSoundManager 创建烟花音效管理器
//
// 参数：
//   - factory: 播放器工厂，可为 nil
//   - settings: 设置管理器，可为 nil
//   - cfg: 音效配置（音量、速率范围、淡出时长）
//   - rnd: 随机源（播放速率）
func NewFireworkSoundManager(factory PlayerFactory, settings *SettingsManager, cfg config.SoundConfig, rnd particle.Source) *FireworkSoundManager {
	return &FireworkSoundManager{
		factory:  factory,
		settings: settings,
		cfg:      cfg,
		rnd:      rnd,
		live:     make(map[*sfx.Voice]struct{}),
		warned:   make(map[string]bool),
	}
}

// SetConfig 替换音效配置（热重载）
// 只影响之后创建和释放的音轨
func (m *FireworkSoundManager) SetConfig(cfg config.SoundConfig) {
	m.cfg = cfg
}

// Acquire 为新烟花创建并播放一个音轨
//
// 返回：
//   - *sfx.Voice: 正在播放的音轨；静音、无音频设备、上下文未就绪或创建失败时返回 nil
func (m *FireworkSoundManager) Acquire() *sfx.Voice {
	if m.settings != nil && !m.settings.SoundEnabled() {
		return nil
	}
	if m.factory == nil {
		m.warnOnce("no-factory", "no audio device, fireworks are silent")
		return nil
	}
	if !m.factory.IsReady() {
		m.warnOnce("not-ready", "audio context not ready yet (waiting for user interaction)")
		return nil
	}

	rate := m.cfg.RateRange().Sample(m.rnd)
	player, err := m.factory.NewPlayer(rate)
	if err != nil {
		m.warnOnce("new-player", fmt.Sprintf("failed to create firework sound player: %v", err))
		return nil
	}

	player.SetVolume(m.volume())
	player.Play()

	voice := sfx.NewVoice(player, rate)
	m.live[voice] = struct{}{}
	return voice
}

// Release 开始淡出音轨，淡出结束后暂停并关闭
// 对 nil、未知或已释放的音轨调用是空操作
func (m *FireworkSoundManager) Release(voice *sfx.Voice) {
	if voice == nil {
		return
	}
	if _, ok := m.live[voice]; !ok {
		return
	}
	delete(m.live, voice)

	if !voice.BeginFade(m.cfg.FadeOut) || voice.Released() {
		return
	}
	m.fading = append(m.fading, voice)
}

// Update 推进所有淡出（dt 为秒）
func (m *FireworkSoundManager) Update(dt float64) {
	if len(m.fading) == 0 {
		return
	}
	remaining := m.fading[:0]
	for _, v := range m.fading {
		if !v.Advance(dt) {
			remaining = append(remaining, v)
		}
	}
	// 清除尾部引用
	for i := len(remaining); i < len(m.fading); i++ {
		m.fading[i] = nil
	}
	m.fading = remaining
}

// StopAll 立即停止所有音轨（场景关闭时调用）
func (m *FireworkSoundManager) StopAll() {
	for v := range m.live {
		v.Stop()
	}
	for _, v := range m.fading {
		v.Stop()
	}
	m.live = make(map[*sfx.Voice]struct{})
	m.fading = nil
}

// ActiveVoices 返回正在播放（未淡出）的音轨数量
func (m *FireworkSoundManager) ActiveVoices() int {
	return len(m.live)
}

// FadingVoices 返回淡出中的音轨数量
func (m *FireworkSoundManager) FadingVoices() int {
	return len(m.fading)
}

// volume 音轨音量 = 配置音量 × 主音量
func (m *FireworkSoundManager) volume() float64 {
	v := m.cfg.Volume
	if m.settings != nil {
		v *= m.settings.SoundVolume()
	}
	return v
}

func (m *FireworkSoundManager) warnOnce(key, msg string) {
	if m.warned[key] {
		return
	}
	m.warned[key] = true
	log.Printf("[FireworkSoundManager] Warning: %s", msg)
}
