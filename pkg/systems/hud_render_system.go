package systems

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// HUDStatus HUD 显示的状态快照
type HUDStatus struct {
	Decision     SpawnDecision
	Live         int  // 存活的烟花数量
	SoundEnabled bool // 是否开启音效
	AudioReady   bool // 音频上下文是否就绪
	TestMode     bool // 是否允许手动发射
	ShowTPS      bool
}

// HUDRenderSystem 在左上角绘制烟花秀状态
type HUDRenderSystem struct {
	face *text.GoTextFace
}

// NewHUDRenderSystem 创建 HUD 渲染系统
// face 为 nil 时只绘制调试信息
func NewHUDRenderSystem(face *text.GoTextFace) *HUDRenderSystem {
	return &HUDRenderSystem{face: face}
}

// Lines 返回 HUD 文本行
func (s *HUDRenderSystem) Lines(status HUDStatus) []string {
	window := status.Decision.Window.String()
	if status.Decision.Phase != "" {
		window += " / " + status.Decision.Phase
	}

	sound := "off"
	if status.SoundEnabled {
		sound = "on"
		if !status.AudioReady {
			sound = "on (click to enable)"
		}
	}

	lines := []string{
		fmt.Sprintf("show: %s  p=%.2f", window, status.Decision.Probability),
		fmt.Sprintf("fireworks: %d", status.Live),
		fmt.Sprintf("[M] sound: %s", sound),
	}
	if status.TestMode {
		lines = append(lines, "[1] sphere [2] ring [3] willow [4] strobe [5] mix")
	}
	return lines
}

// Draw 绘制 HUD
func (s *HUDRenderSystem) Draw(screen *ebiten.Image, status HUDStatus) {
	if status.ShowTPS {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("TPS: %0.1f", ebiten.ActualTPS()), 10, screen.Bounds().Dy()-20)
	}
	if s.face == nil {
		return
	}

	content := strings.Join(s.Lines(status), "\n")
	lineSpacing := s.face.Size * 1.4

	// 阴影
	shadowOp := &text.DrawOptions{}
	shadowOp.GeoM.Translate(12, 12)
	shadowOp.LineSpacing = lineSpacing
	shadowOp.ColorScale.ScaleWithColor(color.RGBA{0, 0, 0, 180})
	text.Draw(screen, content, s.face, shadowOp)

	op := &text.DrawOptions{}
	op.GeoM.Translate(10, 10)
	op.LineSpacing = lineSpacing
	op.ColorScale.ScaleWithColor(color.RGBA{255, 215, 0, 230})
	text.Draw(screen, content, s.face, op)
}
