package systems

import (
	"image/color"

	"github.com/decker502/lunarfest/pkg/components"
	"github.com/decker502/lunarfest/pkg/config"
	"github.com/decker502/lunarfest/pkg/ecs"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// dotRadius 预渲染圆点的半径，绘制时按需缩放
const dotRadius = 16

// FireworkRenderSystem 烟花渲染系统
//
// 天空层是一张与画布同尺寸的离屏图像：每帧先以 destination-out 擦除
// TrailFade 的透明度形成拖尾，再以加色混合（lighter）绘制上升的烟花和粒子。
// 最后填充背景色并把天空层叠加到屏幕上。
type FireworkRenderSystem struct {
	entityManager *ecs.EntityManager
	cfg           *config.ShowConfig

	sky   *ebiten.Image
	dot   *ebiten.Image
	pixel *ebiten.Image
}

// NewFireworkRenderSystem 创建渲染系统
func NewFireworkRenderSystem(em *ecs.EntityManager, cfg *config.ShowConfig) *FireworkRenderSystem {
	pixel := ebiten.NewImage(1, 1)
	pixel.Fill(color.White)

	dot := ebiten.NewImage(dotRadius*2, dotRadius*2)
	vector.DrawFilledCircle(dot, dotRadius, dotRadius, dotRadius, color.White, true)

	return &FireworkRenderSystem{
		entityManager: em,
		cfg:           cfg,
		dot:           dot,
		pixel:         pixel,
	}
}

// SetConfig 替换配置（热重载）
func (s *FireworkRenderSystem) SetConfig(cfg *config.ShowConfig) {
	s.cfg = cfg
}

// Resize 按新的画布尺寸重建天空层（拖尾随之清空）
// 尺寸为零时释放天空层，Draw 只填充背景
func (s *FireworkRenderSystem) Resize(width, height int) {
	if s.sky != nil {
		b := s.sky.Bounds()
		if b.Dx() == width && b.Dy() == height {
			return
		}
		s.sky.Deallocate()
		s.sky = nil
	}
	if width <= 0 || height <= 0 {
		return
	}
	s.sky = ebiten.NewImage(width, height)
}

// Draw 绘制一帧
func (s *FireworkRenderSystem) Draw(screen *ebiten.Image) {
	screen.Fill(s.cfg.Render.BackgroundColor())
	if s.sky == nil {
		return
	}

	s.fadeSky()

	for _, id := range ecs.GetEntitiesWith2[*components.PositionComponent, *components.FireworkComponent](s.entityManager) {
		pos, _ := ecs.GetComponent[*components.PositionComponent](s.entityManager, id)
		fw, _ := ecs.GetComponent[*components.FireworkComponent](s.entityManager, id)

		if !fw.Exploded {
			s.drawDot(pos.X, pos.Y, s.cfg.Render.ShellRadius, fw.Color, 1)
			continue
		}
		for i := range fw.Particles {
			p := &fw.Particles[i]
			s.drawDot(p.X, p.Y, s.cfg.Render.ParticleRadius, p.Color, p.Alpha)
		}
	}

	screen.DrawImage(s.sky, nil)
}

// fadeSky 按 TrailFade 擦除天空层已有内容
func (s *FireworkRenderSystem) fadeSky() {
	fade := s.cfg.Render.TrailFade
	if fade <= 0 {
		return
	}
	b := s.sky.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(b.Dx()), float64(b.Dy()))
	op.ColorScale.ScaleAlpha(float32(fade))
	op.Blend = ebiten.BlendDestinationOut
	s.sky.DrawImage(s.pixel, op)
}

func (s *FireworkRenderSystem) drawDot(x, y, radius float64, clr color.RGBA, alpha float64) {
	if alpha <= 0 || radius <= 0 {
		return
	}
	if alpha > 1 {
		alpha = 1
	}
	scale := radius / dotRadius

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(-dotRadius, -dotRadius)
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	op.ColorScale.ScaleAlpha(float32(alpha))
	op.Blend = ebiten.BlendLighter
	op.Filter = ebiten.FilterLinear
	s.sky.DrawImage(s.dot, op)
}

// Sky 返回天空层（测试和截图使用），未分配时为 nil
func (s *FireworkRenderSystem) Sky() *ebiten.Image {
	return s.sky
}
