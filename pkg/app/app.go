// Package app 提供烟花秀应用的核心包装器
//
// 该包将初始化逻辑从 main 包提取出来，使其可以被桌面端和移动端共用。
// 桌面端通过 main.go 调用 NewApp()，移动端通过 mobile/mobile.go 调用。
package app

import (
	"fmt"
	"image/color"
	"io"
	"log"
	"time"

	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/game"
	"github.com/decker502/lunarfest/pkg/scenes"
	"github.com/decker502/lunarfest/pkg/utils"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/quasilyte/gdata/v2"
)

// AppName 设置存储使用的应用名
const AppName = "lunarfest"

// Config 定义应用启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// ConfigPath 烟花秀配置文件，为空使用内置默认配置；非空时热重载
	ConfigPath string
	// Now 排练用的起始时间，零值表示使用真实时间
	Now time.Time
	// TestMode 启用手动发射按键
	TestMode bool
	// Seed 随机种子，0 表示使用当前时间
	Seed int64
	// HUD 显示状态信息
	HUD bool
}

// App 是烟花秀应用的核心包装器，实现 ebiten.Game 接口
type App struct {
	sceneManager *game.SceneManager
	settings     *game.SettingsManager
	verbose      bool
}

// NewApp 创建并初始化应用
func NewApp(cfg Config) (*App, error) {
	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	show := config.DefaultShowConfig()
	if cfg.ConfigPath != "" {
		loaded, err := config.LoadShowConfig(cfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("烟花秀配置加载失败: %w", err)
		}
		show = loaded
		log.Printf("[Config] Loaded show config %s", cfg.ConfigPath)
	}

	// 设置存储不可用时降级为内存设置
	if err := utils.EnsureStorageDir(); err != nil {
		log.Printf("[App] Warning: %v", err)
	}
	gdataManager, err := gdata.Open(gdata.Config{AppName: AppName})
	if err != nil {
		log.Printf("[App] Warning: settings storage unavailable: %v", err)
		gdataManager = nil
	}
	settings := game.NewSettingsManager(gdataManager)

	// 初始化音频上下文
	audioContext := audio.NewContext(game.DefaultSampleRate)
	resourceManager := game.NewResourceManager(audioContext)

	var factory game.PlayerFactory
	pcm, err := resourceManager.LoadFireworkSound(show.Sound.File)
	if err != nil {
		log.Printf("[App] Warning: firework sound unavailable, fireworks are silent: %v", err)
	} else {
		factory = game.NewContextPlayerFactory(audioContext, pcm)
	}

	scene, err := scenes.NewFireworksScene(resourceManager, settings, factory, scenes.FireworksSceneConfig{
		Show:       show,
		ConfigPath: cfg.ConfigPath,
		Clock:      rehearsalClock(cfg.Now),
		Seed:       cfg.Seed,
		TestMode:   cfg.TestMode,
		ShowHUD:    cfg.HUD,
	})
	if err != nil {
		return nil, fmt.Errorf("场景创建失败: %w", err)
	}

	sceneManager := game.NewSceneManager()
	sceneManager.SwitchTo(scene)

	if settings.GetSettings().Fullscreen && !utils.IsMobile() {
		ebiten.SetFullscreen(true)
	}

	return &App{
		sceneManager: sceneManager,
		settings:     settings,
		verbose:      cfg.Verbose,
	}, nil
}

// rehearsalClock 从 start 开始随真实时间流逝的时钟；start 为零值时返回 nil（真实时间）
func rehearsalClock(start time.Time) func() time.Time {
	if start.IsZero() {
		return nil
	}
	offset := time.Until(start)
	log.Printf("[App] Rehearsal clock starts at %s", start.Format(time.RFC3339))
	return func() time.Time { return time.Now().Add(offset) }
}

// Update 更新逻辑
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	// F11 切换全屏
	if !utils.IsMobile() && inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		fullscreen := !ebiten.IsFullscreen()
		ebiten.SetFullscreen(fullscreen)
		a.settings.SetFullscreen(fullscreen)
		if err := a.settings.Save(); err != nil {
			log.Printf("[App] Warning: failed to save settings: %v", err)
		}
	}

	// Update 以固定频率调用，模拟按 tick 时长推进
	deltaTime := 1.0 / float64(ebiten.TPS())
	a.sceneManager.Update(deltaTime)
	return nil
}

// Draw 绘制画面
func (a *App) Draw(screen *ebiten.Image) {
	a.sceneManager.Draw(screen)
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(color.Black)
	op := &ebiten.DrawImageOptions{}
	op.GeoM = geoM
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// Layout 画布跟随窗口尺寸
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	a.sceneManager.Resize(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

// GetSceneManager 返回场景管理器
func (a *App) GetSceneManager() *game.SceneManager {
	return a.sceneManager
}

// Close 关闭当前场景（停止配置监听和所有音效）
func (a *App) Close() {
	a.sceneManager.Close()
}

// IsVerbose 返回是否启用了详细日志
func (a *App) IsVerbose() bool {
	return a.verbose
}
