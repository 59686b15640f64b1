package game

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Scene represents a screen of the application (the fireworks show).
// Each scene has its own update and rendering logic.
type Scene interface {
	// Update updates the scene logic based on the elapsed time.
	// deltaTime is the time elapsed since the last update in seconds.
	Update(deltaTime float64)

	// Draw renders the scene to the provided screen.
	// screen is the target image where the scene should be drawn.
	Draw(screen *ebiten.Image)
}

// Resizable 是一个可选接口，画布尺寸随窗口变化的场景实现它
//
// 实现此接口的场景会在 Layout 报告的尺寸变化时收到 Resize()，
// 且在首次 Update 之前至少收到一次。
type Resizable interface {
	Resize(width, height int)
}
