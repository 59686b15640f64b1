// Command lunarfest 播放春节烟花秀
//
// Usage:
//
//	go run . [flags]
//
// Flags:
//
//	--config <file>   烟花秀配置（YAML），修改后自动重载
//	--now <time>      从指定时间开始排练（如 2026-02-17T00:50:00）
//	--test-mode       启用 1-4 手动发射、5 全部发射
//	--hud             显示状态信息
//	--seed <n>        随机种子
//	--verbose         输出日志
//
// Controls:
//
//	M    - 开关音效
//	F11  - 切换全屏
package main

import (
	"flag"
	"log"
	"time"

	"github.com/decker502/lunarfest/pkg/app"
	"github.com/hajimehoshi/ebiten/v2"
)

const (
	windowWidth  = 1024
	windowHeight = 768
)

var (
	configFlag   = flag.String("config", "", "Show config YAML file (hot reloaded)")
	nowFlag      = flag.String("now", "", "Rehearse from this local time, e.g. 2026-02-17T00:50:00")
	testModeFlag = flag.Bool("test-mode", false, "Enable manual launch keys 1-5")
	hudFlag      = flag.Bool("hud", false, "Show status overlay")
	seedFlag     = flag.Int64("seed", 0, "Random seed (0 = time based)")
	verboseFlag  = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	var now time.Time
	if *nowFlag != "" {
		t, err := parseLocalTime(*nowFlag)
		if err != nil {
			log.Fatalf("invalid --now: %v", err)
		}
		now = t
	}

	gameApp, err := app.NewApp(app.Config{
		Verbose:    *verboseFlag,
		ConfigPath: *configFlag,
		Now:        now,
		TestMode:   *testModeFlag,
		Seed:       *seedFlag,
		HUD:        *hudFlag,
	})
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	defer gameApp.Close()

	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowTitle("春节烟花 - Lunar New Year Fireworks")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(gameApp); err != nil {
		log.Fatal(err)
	}
}

// parseLocalTime 解析 RFC3339 或不带时区的本地时间
func parseLocalTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.Local)
}
