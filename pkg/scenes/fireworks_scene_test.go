package scenes

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/game"
	"github.com/decker502/lunarfest/pkg/types"
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/goleak"
)

const frame = 1.0 / 60

// verifyNoLeaks 检查测试结束时配置监听协程已退出
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	opt := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, opt) })
}

// newIdleScene 创建一个处于非烟花秀时段的场景（只有手动发射）
func newIdleScene(t *testing.T, sc FireworksSceneConfig) *FireworksScene {
	t.Helper()
	if sc.Show == nil {
		cfg, err := config.ParseShowConfig([]byte("location: UTC\n"))
		if err != nil {
			t.Fatalf("ParseShowConfig() error = %v", err)
		}
		sc.Show = cfg
	}
	if sc.Clock == nil {
		idle := time.Date(2026, time.February, 12, 12, 0, 0, 0, time.UTC)
		sc.Clock = func() time.Time { return idle }
	}
	if sc.Seed == 0 {
		sc.Seed = 42
	}
	s, err := NewFireworksScene(nil, game.NewSettingsManager(nil), nil, sc)
	if err != nil {
		t.Fatalf("NewFireworksScene() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFireworksScene_LaunchLifecycle(t *testing.T) {
	s := newIdleScene(t, FireworksSceneConfig{})
	s.Resize(800, 600)

	if err := s.Launch(types.FireworkRing); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	// 请求在下一帧执行
	if s.LiveFireworks() != 0 {
		t.Fatalf("LiveFireworks() = %d before the next tick, want 0", s.LiveFireworks())
	}

	s.step(frame)
	if s.LiveFireworks() != 1 {
		t.Fatalf("LiveFireworks() = %d after one tick, want 1", s.LiveFireworks())
	}

	for i := 0; i < 60*30 && s.LiveFireworks() > 0; i++ {
		s.step(frame)
	}
	if s.LiveFireworks() != 0 {
		t.Errorf("firework still alive after 30 s")
	}
	if n := s.entityManager.EntityCount(); n != 0 {
		t.Errorf("EntityCount() = %d, want 0 after the firework died", n)
	}
}

func TestFireworksScene_LaunchInvalidType(t *testing.T) {
	s := newIdleScene(t, FireworksSceneConfig{})
	if err := s.Launch(types.FireworkNone); err == nil {
		t.Error("Launch(FireworkNone) should fail")
	}
}

func TestFireworksScene_LaunchMix(t *testing.T) {
	s := newIdleScene(t, FireworksSceneConfig{TestMode: true})
	s.Resize(800, 600)
	s.LaunchMix()

	s.step(frame)
	if s.spawn.Stats().Manual != 1 {
		t.Fatalf("manual launches after first tick = %d, want 1", s.spawn.Stats().Manual)
	}
	for i := 0; i < 60; i++ {
		s.step(frame)
	}
	stats := s.spawn.Stats()
	if stats.Manual != 4 {
		t.Errorf("manual launches after 1 s = %d, want 4", stats.Manual)
	}
	for _, ft := range types.AllFireworkTypes {
		if stats.ByType[ft] != 1 {
			t.Errorf("launched %d %v, want 1", stats.ByType[ft], ft)
		}
	}
}

func TestFireworksScene_ZeroCanvas(t *testing.T) {
	cfg, err := config.ParseShowConfig([]byte("location: UTC\n"))
	if err != nil {
		t.Fatal(err)
	}
	finale := cfg.TargetTime().Add(58 * time.Minute)
	s := newIdleScene(t, FireworksSceneConfig{Show: cfg, Clock: func() time.Time { return finale }})

	_ = s.Launch(types.FireworkSphere)
	for i := 0; i < 60; i++ {
		s.step(frame)
	}
	if s.LiveFireworks() != 0 {
		t.Errorf("LiveFireworks() = %d on a zero-size canvas, want 0", s.LiveFireworks())
	}
	s.Draw(ebiten.NewImage(1, 1))
}

func TestFireworksScene_LaunchWaitsForCanvas(t *testing.T) {
	s := newIdleScene(t, FireworksSceneConfig{})

	if err := s.Launch(types.FireworkStrobe); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		s.step(frame)
	}
	if s.LiveFireworks() != 0 {
		t.Fatalf("LiveFireworks() = %d on a zero-size canvas, want 0", s.LiveFireworks())
	}
	if n := s.launches.Len(); n != 1 {
		t.Fatalf("queued launches = %d, want the request kept", n)
	}

	// 窗口恢复后在下一帧发射
	s.Resize(800, 600)
	s.step(frame)
	if s.LiveFireworks() != 1 {
		t.Errorf("LiveFireworks() = %d after resize, want 1", s.LiveFireworks())
	}
	if n := s.launches.Len(); n != 0 {
		t.Errorf("queued launches = %d after launch, want 0", n)
	}
	if got := s.spawn.Stats().ByType[types.FireworkStrobe]; got != 1 {
		t.Errorf("strobe launches = %d, want 1", got)
	}
}

func TestFireworksScene_ResizeKeepsSimulation(t *testing.T) {
	s := newIdleScene(t, FireworksSceneConfig{ShowHUD: true})
	s.Resize(800, 600)
	_ = s.Launch(types.FireworkWillow)
	s.step(frame)

	s.Resize(400, 300)
	if s.LiveFireworks() != 1 {
		t.Errorf("LiveFireworks() = %d after resize, want 1", s.LiveFireworks())
	}
	s.Draw(ebiten.NewImage(400, 300))
}

func TestFireworksScene_ToggleSound(t *testing.T) {
	s := newIdleScene(t, FireworksSceneConfig{})

	if enabled := s.ToggleSound(); enabled {
		t.Fatal("first toggle should mute")
	}
	if s.settings.SoundEnabled() {
		t.Error("settings should record the muted state")
	}
	if enabled := s.ToggleSound(); !enabled {
		t.Error("second toggle should unmute")
	}
}

func TestFireworksScene_HotReload(t *testing.T) {
	verifyNoLeaks(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "show.yaml")
	if err := os.WriteFile(path, []byte("location: UTC\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadShowConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	s := newIdleScene(t, FireworksSceneConfig{Show: cfg, ConfigPath: path})

	tmp := filepath.Join(dir, ".show.yaml")
	if err := os.WriteFile(tmp, []byte("location: UTC\nreferenceFPS: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.cfg.ReferenceFPS != 30 && time.Now().Before(deadline) {
		s.step(frame)
		time.Sleep(10 * time.Millisecond)
	}
	if s.cfg.ReferenceFPS != 30 {
		t.Errorf("ReferenceFPS = %v after reload, want 30", s.cfg.ReferenceFPS)
	}
}

func TestFireworksScene_CloseTwice(t *testing.T) {
	verifyNoLeaks(t)
	path := filepath.Join(t.TempDir(), "show.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := newIdleScene(t, FireworksSceneConfig{ConfigPath: path})

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	// 关闭后推进是空操作
	s.step(frame)
}

func TestSceneManager_ClosesFireworksScene(t *testing.T) {
	verifyNoLeaks(t)
	path := filepath.Join(t.TempDir(), "show.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := newIdleScene(t, FireworksSceneConfig{ConfigPath: path})

	sm := game.NewSceneManager()
	sm.Resize(640, 480)
	sm.SwitchTo(s)
	if b := s.render.Sky().Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("sky bounds = %v, want 640x480 from the scene manager", b)
	}

	sm.Close()
	if !s.closed {
		t.Error("SceneManager.Close should close the fireworks scene")
	}
}
