package components

// PositionComponent 实体在画布上的位置（像素，原点在左上角，y 向下）
type PositionComponent struct {
	X float64
	Y float64
}
