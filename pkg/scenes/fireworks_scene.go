package scenes

import (
	"log"
	"math/rand"
	"time"

	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/ecs"
	"github.com/decker502/lunarfest/pkg/game"
	"github.com/decker502/lunarfest/pkg/systems"
	"github.com/decker502/lunarfest/pkg/types"
	"github.com/decker502/lunarfest/pkg/utils"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// hudFontSize HUD 字号
const hudFontSize = 16

// launchKeys 测试模式下的手动发射按键，依次对应 types.AllFireworkTypes
var launchKeys = []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4}

// FireworksSceneConfig 烟花场景的启动参数
type FireworksSceneConfig struct {
	// Show 烟花秀配置，nil 使用内置默认配置
	Show *config.ShowConfig
	// ConfigPath 配置文件路径，非空时监听文件变化并热重载
	ConfigPath string
	// Clock 当前时间，nil 表示 time.Now（排练时可固定或偏移）
	Clock systems.Clock
	// Seed 随机种子，0 表示使用当前时间
	Seed int64
	// TestMode 允许 1-5 键手动发射
	TestMode bool
	// ShowHUD 显示状态信息
	ShowHUD bool
}

// FireworksScene 烟花秀场景
//
// 每帧顺序：热重载 -> 手动发射 -> 随机发射 -> 物理 -> 音效淡出 -> 统一删除实体。
// 画布尺寸跟随窗口，由 Resize 通知；尺寸变化不影响正在进行的模拟。
type FireworksScene struct {
	entityManager *ecs.EntityManager
	cfg           *config.ShowConfig
	settings      *game.SettingsManager
	sounds        *game.FireworkSoundManager
	factory       game.PlayerFactory
	watcher       *config.ShowConfigWatcher

	scheduler *systems.ShowScheduler
	spawn     *systems.FireworkSpawnSystem
	physics   *systems.FireworkPhysicsSystem
	render    *systems.FireworkRenderSystem
	hud       *systems.HUDRenderSystem
	unlock    *systems.AudioUnlockSystem
	launches  *systems.LaunchQueue

	testMode bool
	showHUD  bool
	closed   bool
}

// NewFireworksScene 创建烟花秀场景
//
// 参数：
//   - rm: 资源管理器（HUD 字体），可为 nil
//   - settings: 设置管理器（音效开关），可为 nil
//   - factory: 音频播放器工厂，nil 表示无声
//   - sc: 场景参数
//
// 返回：
//   - *FireworksScene: 场景实例
//   - error: 仅在配置文件监听无法启动时返回
func NewFireworksScene(rm *game.ResourceManager, settings *game.SettingsManager, factory game.PlayerFactory, sc FireworksSceneConfig) (*FireworksScene, error) {
	cfg := sc.Show
	if cfg == nil {
		cfg = config.DefaultShowConfig()
	}
	seed := sc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	s := &FireworksScene{
		entityManager: ecs.NewEntityManager(),
		cfg:           cfg,
		settings:      settings,
		factory:       factory,
		launches:      systems.NewLaunchQueue(),
		testMode:      sc.TestMode,
		showHUD:       sc.ShowHUD,
	}

	s.sounds = game.NewFireworkSoundManager(factory, settings, cfg.Sound, rnd)
	s.scheduler = systems.NewShowScheduler(cfg)
	s.spawn = systems.NewFireworkSpawnSystem(s.entityManager, cfg, s.scheduler, rnd, s.sounds, sc.Clock)
	s.physics = systems.NewFireworkPhysicsSystem(s.entityManager, cfg, rnd, s.sounds)
	s.render = systems.NewFireworkRenderSystem(s.entityManager, cfg)
	s.unlock = systems.NewAudioUnlockSystem(factory, nil)

	if sc.ShowHUD {
		s.hud = systems.NewHUDRenderSystem(hudFace(rm))
	}

	if sc.ConfigPath != "" {
		w, err := config.NewShowConfigWatcher(sc.ConfigPath)
		if err != nil {
			return nil, err
		}
		s.watcher = w
	}

	log.Printf("[FireworksScene] Created (seed=%d, testMode=%v, target=%s)", seed, sc.TestMode, cfg.TargetTime().Format(time.RFC3339))
	return s, nil
}

func hudFace(rm *game.ResourceManager) *text.GoTextFace {
	if rm == nil {
		return nil
	}
	face, err := rm.LoadFont("", hudFontSize)
	if err != nil {
		log.Printf("[FireworksScene] Warning: failed to load HUD font: %v", err)
		return nil
	}
	return face
}

// Update 处理输入并推进一帧
func (s *FireworksScene) Update(deltaTime float64) {
	s.handleInput()
	s.step(deltaTime)
}

// handleInput 读取本帧的键盘、鼠标和触摸输入
func (s *FireworksScene) handleInput() {
	s.unlock.Update(utils.IsUserInteraction())

	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		s.ToggleSound()
	}

	if !s.testMode {
		return
	}
	for i, key := range launchKeys {
		if inpututil.IsKeyJustPressed(key) {
			_ = s.Launch(types.AllFireworkTypes[i])
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.Key5) {
		s.LaunchMix()
	}
	// 移动端没有键盘，轻触屏幕发射全部类型
	if utils.IsMobile() {
		if tapped, _, _ := utils.IsPointerJustPressed(); tapped {
			s.LaunchMix()
		}
	}
}

// step 推进模拟，不读取输入
func (s *FireworksScene) step(deltaTime float64) {
	if s.closed {
		return
	}
	s.pollConfig()

	// 画布尺寸为零时手动发射请求留在队列中，等待窗口恢复
	if s.spawn.HasBounds() {
		for _, ft := range s.launches.Drain(deltaTime) {
			if !s.spawn.Launch(ft) {
				log.Printf("[FireworksScene] Warning: manual %v launch failed", ft)
			}
		}
	}
	s.spawn.Update(deltaTime)
	s.physics.Update(deltaTime)
	s.sounds.Update(deltaTime)
	s.entityManager.RemoveMarkedEntities()
}

// pollConfig 应用监听到的新配置，失败的重载保留旧配置
func (s *FireworksScene) pollConfig() {
	if s.watcher == nil {
		return
	}
	select {
	case cfg := <-s.watcher.Updates:
		s.applyConfig(cfg)
	case err := <-s.watcher.Errors:
		log.Printf("[FireworksScene] Warning: config reload failed, keeping previous config: %v", err)
	default:
	}
}

func (s *FireworksScene) applyConfig(cfg *config.ShowConfig) {
	if cfg.Sound.File != s.cfg.Sound.File {
		log.Printf("[FireworksScene] Warning: sound file change takes effect after restart")
	}
	s.cfg = cfg
	s.scheduler.SetConfig(cfg)
	s.spawn.SetConfig(cfg)
	s.physics.SetConfig(cfg)
	s.render.SetConfig(cfg)
	s.sounds.SetConfig(cfg.Sound)
	log.Printf("[FireworksScene] Applied new show config")
}

// Draw 绘制天空层和 HUD
func (s *FireworksScene) Draw(screen *ebiten.Image) {
	s.render.Draw(screen)
	if s.hud != nil {
		s.hud.Draw(screen, s.hudStatus())
	}
}

func (s *FireworksScene) hudStatus() systems.HUDStatus {
	status := systems.HUDStatus{
		Decision:     s.spawn.LastDecision(),
		Live:         systems.LiveFireworks(s.entityManager),
		SoundEnabled: s.settings == nil || s.settings.SoundEnabled(),
		AudioReady:   s.factory != nil && s.factory.IsReady(),
		TestMode:     s.testMode,
		ShowTPS:      true,
	}
	return status
}

// Resize 画布尺寸变化（实现 game.Resizable）
func (s *FireworksScene) Resize(width, height int) {
	s.spawn.SetBounds(float64(width), float64(height))
	s.render.Resize(width, height)
	log.Printf("[FireworksScene] Canvas resized to %dx%d", width, height)
}

// Launch 请求在下一帧发射一枚指定类型的烟花
// 可在任意 goroutine 调用，不阻塞；无效类型返回错误
func (s *FireworksScene) Launch(fireworkType types.FireworkType) error {
	return s.launches.Push(fireworkType, 0)
}

// LaunchMix 依次发射全部四种烟花，间隔 300ms
func (s *FireworksScene) LaunchMix() {
	s.launches.PushMix()
}

// ToggleSound 切换音效开关并保存设置
// 已在播放的音效继续播放到烟花结束，只影响之后发射的烟花
func (s *FireworksScene) ToggleSound() bool {
	if s.settings == nil {
		return true
	}
	enabled := s.settings.ToggleSound()
	if err := s.settings.Save(); err != nil {
		log.Printf("[FireworksScene] Warning: failed to save settings: %v", err)
	}
	log.Printf("[FireworksScene] Sound enabled: %v", enabled)
	return enabled
}

// LiveFireworks 返回当前存活的烟花数量
func (s *FireworksScene) LiveFireworks() int {
	return systems.LiveFireworks(s.entityManager)
}

// Close 停止配置监听并停止所有音效（实现 io.Closer），可重复调用
func (s *FireworksScene) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.launches.Clear()
	s.sounds.StopAll()

	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
