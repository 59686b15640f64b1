package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"image/color"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/decker502/lunarfest/internal/particle"
	"github.com/decker502/lunarfest/pkg/types"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

//go:embed show_default.yaml
var defaultShowYAML []byte

// targetLayout 目标时刻的格式（本地时间，不带时区）
const targetLayout = "2006-01-02T15:04:05"

// ShowConfig 烟花秀配置
// 包含目标时刻、主活动阶段表、每日小型烟花秀窗口、调色板、发射参数、爆炸参数、音效与渲染参数
type ShowConfig struct {
	Target       string  `yaml:"target"`       // 目标时刻（新年时刻），如 "2026-02-17T00:00:00"
	Location     string  `yaml:"location"`     // 时区名称，"Local" 表示系统时区
	ReferenceFPS float64 `yaml:"referenceFPS"` // 概率与物理常量所对应的参考帧率

	MainEvent MainEventConfig      `yaml:"mainEvent"` // 主活动（新年后一小时）
	DailyShow DailyShowConfig      `yaml:"dailyShow"` // 每日烟花秀
	Palette   []string             `yaml:"palette"`   // 颜色名（x/image/colornames）或 #RRGGBB
	Launch    LaunchConfig         `yaml:"launch"`    // 发射参数
	Bursts    map[string]BurstSpec `yaml:"bursts"`    // 类型名 -> 爆炸参数
	Sound     SoundConfig          `yaml:"sound"`     // 音效参数
	Render    RenderConfig         `yaml:"render"`    // 渲染参数

	// 以下字段由 normalize() 计算
	target   time.Time
	location *time.Location
	colors   []color.RGBA
	bursts   map[types.FireworkType]BurstSpec
}

// MainEventConfig 主活动窗口 [T, T+Duration)
type MainEventConfig struct {
	Duration time.Duration `yaml:"duration"`
	Phases   []PhaseConfig `yaml:"phases"` // 按 Until 升序
}

// PhaseConfig 主活动中的一个阶段
type PhaseConfig struct {
	Name             string        `yaml:"name"`
	Until            time.Duration `yaml:"until"`            // 阶段结束时刻（相对 T，开区间）
	SpawnProbability float64       `yaml:"spawnProbability"` // 每参考帧发射概率
	ForcedType       string        `yaml:"forcedType"`       // 强制类型（可为空）
	ForceChance      float64       `yaml:"forceChance"`      // 强制类型生效的概率
	MultiBurstChance float64       `yaml:"multiBurstChance"` // 一次发射多枚的概率
	MultiBurstCount  int           `yaml:"multiBurstCount"`  // 多枚发射时的数量

	forcedType types.FireworkType
}

// DailyShowConfig 每日烟花秀窗口（本地时间）
type DailyShowConfig struct {
	Start            string        `yaml:"start"` // "HH:MM"
	Duration         time.Duration `yaml:"duration"`
	SpawnProbability float64       `yaml:"spawnProbability"`
	ForcedType       string        `yaml:"forcedType"`
	ForceChance      float64       `yaml:"forceChance"`

	startOffset time.Duration
	forcedType  types.FireworkType
}

// LaunchConfig 烟花发射参数
type LaunchConfig struct {
	Margin         float64         `yaml:"margin"`     // 距左右边缘的最小距离
	MinApex        float64         `yaml:"minApex"`    // 目标高度的最小 y（距顶部）
	CenterBias     float64         `yaml:"centerBias"` // 水平速度向画布中心的偏置系数
	Jitter         float64         `yaml:"jitter"`     // 水平速度随机扰动幅度
	Speed          string          `yaml:"speed"`      // 上升初速度大小范围
	Gravity        float64         `yaml:"gravity"`    // 上升阶段重力
	TypeThresholds []TypeThreshold `yaml:"typeThresholds"`
	DefaultType    string          `yaml:"defaultType"`

	speed       particle.Range
	defaultType types.FireworkType
}

// TypeThreshold 类型权重阈值：随机数 r > Above 时选择 Type（按顺序判定）
type TypeThreshold struct {
	Type  string  `yaml:"type"`
	Above float64 `yaml:"above"`

	fireworkType types.FireworkType
}

// BurstSpec 某类型烟花爆炸时生成粒子的参数
type BurstSpec struct {
	Count       int     `yaml:"count"`
	Speed       string  `yaml:"speed"`
	Decay       string  `yaml:"decay"`
	Gravity     float64 `yaml:"gravity"`
	Drag        float64 `yaml:"drag"`
	EvenAngles  bool    `yaml:"evenAngles"`  // 等角度分布（环形）
	FlickerHigh float64 `yaml:"flickerHigh"` // 频闪高亮值，0 表示不闪烁
	FlickerLow  float64 `yaml:"flickerLow"`  // 频闪低亮值

	speed particle.Range
	decay particle.Range
}

// SoundConfig 烟花音效参数
type SoundConfig struct {
	File    string        `yaml:"file"`    // 音频文件（.mp3/.ogg/.wav/.au），为空则使用合成音效
	Volume  float64       `yaml:"volume"`  // 单个音轨的固定音量
	Rate    string        `yaml:"rate"`    // 播放速率范围
	FadeOut time.Duration `yaml:"fadeOut"` // 释放时的淡出时长

	rate particle.Range
}

// RenderConfig 渲染参数
type RenderConfig struct {
	TrailFade      float64 `yaml:"trailFade"`      // 每帧擦除的透明度（拖尾效果）
	ShellRadius    float64 `yaml:"shellRadius"`    // 上升中烟花的半径
	ParticleRadius float64 `yaml:"particleRadius"` // 粒子半径
	Background     string  `yaml:"background"`     // 背景色

	background color.RGBA
}

// DefaultShowConfig 返回内嵌的默认配置
// 内嵌配置在测试中验证过，解析失败属于编程错误
func DefaultShowConfig() *ShowConfig {
	cfg, err := ParseShowConfig(nil)
	if err != nil {
		panic(fmt.Sprintf("embedded show config is invalid: %v", err))
	}
	return cfg
}

// LoadShowConfig 从 YAML 文件加载烟花秀配置
// 文件中的字段覆盖内嵌默认值，未出现的字段保持默认。
// 空文件视为错误（通常是写入到一半的文件），不会退回默认配置。
func LoadShowConfig(filePath string) (*ShowConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read show config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("show config file %s is empty", filePath)
	}

	cfg, err := ParseShowConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid show config %s: %w", filePath, err)
	}
	return cfg, nil
}

// ParseShowConfig 解析 YAML 数据（叠加在默认配置之上）并验证
func ParseShowConfig(data []byte) (*ShowConfig, error) {
	var cfg ShowConfig
	if err := yaml.Unmarshal(defaultShowYAML, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse default show YAML: %w", err)
	}

	if len(data) > 0 {
		// yaml.v3 会复用已有的 map，先复制一份默认条目
		defaults := make(map[string]BurstSpec, len(cfg.Bursts))
		for name, spec := range cfg.Bursts {
			defaults[name] = spec
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse show YAML: %w", err)
		}
		bursts, err := overlayBursts(defaults, data)
		if err != nil {
			return nil, err
		}
		cfg.Bursts = bursts
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overlayBursts 把文件中的每个爆炸条目叠加在 bursts 中的同名条目之上
// map 的值由 yaml.v3 从零值解码，这里逐条用 yaml.Node 重新解码
func overlayBursts(bursts map[string]BurstSpec, data []byte) (map[string]BurstSpec, error) {
	var overlay struct {
		Bursts map[string]yaml.Node `yaml:"bursts"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse show YAML: %w", err)
	}

	for name, node := range overlay.Bursts {
		spec := bursts[name]
		if err := node.Decode(&spec); err != nil {
			return nil, fmt.Errorf("bursts.%s: %w", name, err)
		}
		bursts[name] = spec
	}
	return bursts, nil
}

// normalize 验证配置并计算派生字段
func (c *ShowConfig) normalize() error {
	loc, err := loadLocation(c.Location)
	if err != nil {
		return err
	}
	c.location = loc

	target, err := time.ParseInLocation(targetLayout, c.Target, loc)
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", c.Target, err)
	}
	c.target = target

	if c.ReferenceFPS <= 0 {
		return fmt.Errorf("referenceFPS must be > 0, got %v", c.ReferenceFPS)
	}

	if err := c.MainEvent.normalize(); err != nil {
		return fmt.Errorf("mainEvent: %w", err)
	}
	if err := c.DailyShow.normalize(); err != nil {
		return fmt.Errorf("dailyShow: %w", err)
	}

	if len(c.Palette) == 0 {
		return fmt.Errorf("palette cannot be empty")
	}
	c.colors = make([]color.RGBA, 0, len(c.Palette))
	for _, name := range c.Palette {
		clr, err := ParseColor(name)
		if err != nil {
			return fmt.Errorf("palette: %w", err)
		}
		c.colors = append(c.colors, clr)
	}

	if err := c.Launch.normalize(); err != nil {
		return fmt.Errorf("launch: %w", err)
	}

	c.bursts = make(map[types.FireworkType]BurstSpec, len(c.Bursts))
	for name, spec := range c.Bursts {
		ft, err := types.ParseFireworkType(name)
		if err != nil || !ft.IsValid() {
			return fmt.Errorf("bursts: unknown firework type %q", name)
		}
		if err := spec.normalize(); err != nil {
			return fmt.Errorf("bursts.%s: %w", name, err)
		}
		c.Bursts[name] = spec
		c.bursts[ft] = spec
	}
	for _, ft := range types.AllFireworkTypes {
		if _, ok := c.bursts[ft]; !ok {
			return fmt.Errorf("bursts: missing spec for %s", ft)
		}
	}

	if err := c.Sound.normalize(); err != nil {
		return fmt.Errorf("sound: %w", err)
	}
	if err := c.Render.normalize(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

func (m *MainEventConfig) normalize() error {
	if m.Duration <= 0 {
		return fmt.Errorf("duration must be > 0, got %v", m.Duration)
	}
	if len(m.Phases) == 0 {
		return fmt.Errorf("phases cannot be empty")
	}

	sort.SliceStable(m.Phases, func(i, j int) bool { return m.Phases[i].Until < m.Phases[j].Until })

	for i := range m.Phases {
		p := &m.Phases[i]
		if p.Until <= 0 {
			return fmt.Errorf("phase %q: until must be > 0", p.Name)
		}
		if err := checkProbability("spawnProbability", p.SpawnProbability); err != nil {
			return fmt.Errorf("phase %q: %w", p.Name, err)
		}
		if err := checkProbability("forceChance", p.ForceChance); err != nil {
			return fmt.Errorf("phase %q: %w", p.Name, err)
		}
		if err := checkProbability("multiBurstChance", p.MultiBurstChance); err != nil {
			return fmt.Errorf("phase %q: %w", p.Name, err)
		}
		if p.MultiBurstCount < 0 {
			return fmt.Errorf("phase %q: multiBurstCount must be >= 0", p.Name)
		}
		ft, err := types.ParseFireworkType(p.ForcedType)
		if err != nil {
			return fmt.Errorf("phase %q: %w", p.Name, err)
		}
		p.forcedType = ft
	}

	// 最后一个阶段必须覆盖到窗口结束
	if last := m.Phases[len(m.Phases)-1]; last.Until < m.Duration {
		return fmt.Errorf("last phase %q ends at %v, before window end %v", last.Name, last.Until, m.Duration)
	}
	return nil
}

func (d *DailyShowConfig) normalize() error {
	offset, err := parseClock(d.Start)
	if err != nil {
		return err
	}
	d.startOffset = offset

	if d.Duration < 0 || d.Duration > 24*time.Hour {
		return fmt.Errorf("duration must be within [0, 24h], got %v", d.Duration)
	}
	if err := checkProbability("spawnProbability", d.SpawnProbability); err != nil {
		return err
	}
	if err := checkProbability("forceChance", d.ForceChance); err != nil {
		return err
	}
	ft, err := types.ParseFireworkType(d.ForcedType)
	if err != nil {
		return err
	}
	d.forcedType = ft
	return nil
}

func (l *LaunchConfig) normalize() error {
	speed, err := particle.ParseRange(l.Speed)
	if err != nil {
		return fmt.Errorf("speed: %w", err)
	}
	if speed.Min <= 0 {
		return fmt.Errorf("speed must be positive, got %v", speed)
	}
	l.speed = speed

	if l.Margin < 0 || l.MinApex < 0 {
		return fmt.Errorf("margin and minApex must be >= 0")
	}

	for i := range l.TypeThresholds {
		th := &l.TypeThresholds[i]
		ft, err := types.ParseFireworkType(th.Type)
		if err != nil || !ft.IsValid() {
			return fmt.Errorf("typeThresholds[%d]: invalid type %q", i, th.Type)
		}
		th.fireworkType = ft
	}

	ft, err := types.ParseFireworkType(l.DefaultType)
	if err != nil || !ft.IsValid() {
		return fmt.Errorf("defaultType: invalid type %q", l.DefaultType)
	}
	l.defaultType = ft
	return nil
}

func (b *BurstSpec) normalize() error {
	if b.Count <= 0 {
		return fmt.Errorf("count must be > 0, got %d", b.Count)
	}
	speed, err := particle.ParseRange(b.Speed)
	if err != nil {
		return fmt.Errorf("speed: %w", err)
	}
	decay, err := particle.ParseRange(b.Decay)
	if err != nil {
		return fmt.Errorf("decay: %w", err)
	}
	if decay.Min <= 0 {
		return fmt.Errorf("decay must be positive, got %v", decay)
	}
	if b.Drag <= 0 || b.Drag > 1 {
		return fmt.Errorf("drag must be in (0, 1], got %v", b.Drag)
	}
	if b.FlickerHigh < 0 || b.FlickerLow < 0 {
		return fmt.Errorf("flicker levels must be >= 0")
	}
	b.speed = speed
	b.decay = decay
	return nil
}

func (s *SoundConfig) normalize() error {
	rate, err := particle.ParseRange(s.Rate)
	if err != nil {
		return fmt.Errorf("rate: %w", err)
	}
	if rate.Min <= 0 {
		return fmt.Errorf("rate must be positive, got %v", rate)
	}
	s.rate = rate
	if s.Volume < 0 || s.Volume > 1 {
		return fmt.Errorf("volume must be in [0, 1], got %v", s.Volume)
	}
	if s.FadeOut < 0 {
		return fmt.Errorf("fadeOut must be >= 0, got %v", s.FadeOut)
	}
	return nil
}

func (r *RenderConfig) normalize() error {
	if r.TrailFade < 0 || r.TrailFade > 1 {
		return fmt.Errorf("trailFade must be in [0, 1], got %v", r.TrailFade)
	}
	bg, err := ParseColor(r.Background)
	if err != nil {
		return fmt.Errorf("background: %w", err)
	}
	r.background = bg
	return nil
}

// TargetTime 返回目标时刻 T
func (c *ShowConfig) TargetTime() time.Time { return c.target }

// Loc 返回每日烟花秀使用的时区
func (c *ShowConfig) Loc() *time.Location { return c.location }

// Colors 返回解析后的调色板
func (c *ShowConfig) Colors() []color.RGBA { return c.colors }

// Burst 返回指定类型的爆炸参数
func (c *ShowConfig) Burst(t types.FireworkType) (BurstSpec, bool) {
	spec, ok := c.bursts[t]
	return spec, ok
}

// ForcedFireworkType 返回阶段的强制类型
func (p PhaseConfig) ForcedFireworkType() types.FireworkType { return p.forcedType }

// StartOffset 返回每日烟花秀开始时间（相对当日零点）
func (d DailyShowConfig) StartOffset() time.Duration { return d.startOffset }

// ForcedFireworkType 返回每日烟花秀的强制类型
func (d DailyShowConfig) ForcedFireworkType() types.FireworkType { return d.forcedType }

// SpeedRange 返回上升速度大小范围
func (l LaunchConfig) SpeedRange() particle.Range { return l.speed }

// DefaultFireworkType 返回所有阈值都未命中时的类型
func (l LaunchConfig) DefaultFireworkType() types.FireworkType { return l.defaultType }

// FireworkType 返回阈值对应的类型
func (t TypeThreshold) FireworkType() types.FireworkType { return t.fireworkType }

// SpeedRange 返回粒子初速度范围
func (b BurstSpec) SpeedRange() particle.Range { return b.speed }

// DecayRange 返回粒子衰减速率范围
func (b BurstSpec) DecayRange() particle.Range { return b.decay }

// Flickers 报告该类型粒子是否频闪
func (b BurstSpec) Flickers() bool { return b.FlickerHigh > 0 }

// RateRange 返回播放速率范围
func (s SoundConfig) RateRange() particle.Range { return s.rate }

// BackgroundColor 返回背景色
func (r RenderConfig) BackgroundColor() color.RGBA { return r.background }

// ParseColor 解析颜色：支持 colornames 中的名称以及 #RGB / #RRGGBB
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return color.RGBA{}, fmt.Errorf("empty color")
	}

	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
	}

	if clr, ok := colornames.Map[strings.ToLower(s)]; ok {
		return clr, nil
	}
	return color.RGBA{}, fmt.Errorf("unknown color name %q", s)
}

func loadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", name, err)
	}
	return loc, nil
}

// parseClock 解析 "HH:MM" 为当日偏移
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid start %q (want HH:MM): %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func checkProbability(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %v", name, v)
	}
	return nil
}
