package annotate

import "log/slog"

// DefaultOverlayID 是标注层 <g> 的约定 id。
const DefaultOverlayID = "metric-markers"

// Options 配置标注行为。零值字段在 New 中补默认值。
type Options struct {
	OverlayID   string          // 标注层元素 id
	TextTag     string          // 需要标注的元素名，默认 text
	SkipTags    []string        // 整个子树都跳过的元素名，默认 defs、metadata
	ClearBefore bool            // 标注前清空标注层中已有的标记
	MarkerSize  float64         // 点标记的半径（用户单位）
	StrokeWidth float64         // 标记线宽（用户单位）
	Colors      map[Mode]string // 每种模式的描边颜色
	Logger      *slog.Logger
	Debug       DebugOptions
}

// DebugOptions 控制报告中的调试输出。
type DebugOptions struct {
	Samples bool // 在 Report 中记录每个度量样本
}

// DefaultColors 区分各模式的标记颜色。
var DefaultColors = map[Mode]string{
	ModeStartPosition:  "#1a9641",
	ModeEndPosition:    "#d7191c",
	ModeRotation:       "#2b83ba",
	ModeComputedLength: "#c51b7d",
	ModeExtent:         "#fdae61",
}

func (o Options) withDefaults() Options {
	if o.OverlayID == "" {
		o.OverlayID = DefaultOverlayID
	}
	if o.TextTag == "" {
		o.TextTag = "text"
	}
	if o.SkipTags == nil {
		o.SkipTags = []string{"defs", "metadata"}
	}
	if o.MarkerSize <= 0 {
		o.MarkerSize = 1
	}
	if o.StrokeWidth <= 0 {
		o.StrokeWidth = 0.2
	}
	colors := make(map[Mode]string, len(DefaultColors))
	for m, c := range DefaultColors {
		colors[m] = c
	}
	for m, c := range o.Colors {
		if c != "" {
			colors[m] = c
		}
	}
	o.Colors = colors
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
