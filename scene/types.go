package scene

import (
	"github.com/ByLCY/glyphprobe/dom"
	"github.com/ByLCY/glyphprobe/textlayout"
)

// 该文件定义场景构建结果，供标注、渲染与调试输出共用。

// Scene 保存构建好的文档树以及资源与元信息。
type Scene struct {
	Doc       *dom.Document
	Resources ResourceSet
	Meta      Meta
	Width     float64 // mm
	Height    float64 // mm
}

// ResourceSet 记录场景声明的字体与颜色。
type ResourceSet struct {
	Fonts  map[string]textlayout.FontResource `json:"fonts"`
	Colors map[string]string                  `json:"colors"` // 名称 → #RRGGBB
}

// Meta 对应 meta 段落，渲染 PDF 时写入文档信息。
type Meta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// BuildOptions 配置场景构建。
type BuildOptions struct {
	// 画布未声明尺寸时使用，单位 mm；<=0 时为 A4。
	DefaultWidth  float64
	DefaultHeight float64
}

const (
	a4Width  = 210.0
	a4Height = 297.0
)
