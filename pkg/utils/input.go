// Package utils 提供平台相关的输入和存储工具函数
package utils

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// IsPointerJustPressed 检查是否刚刚按下指针（触摸或鼠标左键）
// 返回是否按下以及按下位置，触摸优先
func IsPointerJustPressed() (bool, int, int) {
	touchIDs := inpututil.AppendJustPressedTouchIDs(nil)
	if len(touchIDs) > 0 {
		x, y := ebiten.TouchPosition(touchIDs[0])
		return true, x, y
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		return true, x, y
	}

	return false, 0, 0
}

// IsUserInteraction 检查本帧是否发生了用户交互（点击、触摸或按键）
// 浏览器只在用户交互后才允许播放音频
func IsUserInteraction() bool {
	if pressed, _, _ := IsPointerJustPressed(); pressed {
		return true
	}
	return len(inpututil.AppendJustPressedKeys(nil)) > 0
}
