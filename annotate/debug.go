package annotate

import (
	"encoding/json"
	"os"

	"github.com/ByLCY/glyphprobe/geom"
)

// Report 汇总一次标注调用。
type Report struct {
	Mode           Mode     `json:"mode"`
	OverlayID      string   `json:"overlayId"`
	OverlayCreated bool     `json:"overlayCreated"`
	Cleared        int      `json:"cleared,omitempty"`
	TextElements   int      `json:"textElements"`
	Markers        int      `json:"markers"`
	Samples        []Sample `json:"samples,omitempty"`
}

// Sample 记录生成某个标记时查询到的度量，仅在 Debug.Samples 开启时填充。
// Index 为 -1 表示整段文本（computed-length）。
type Sample struct {
	Element  string      `json:"element,omitempty"`
	Index    int         `json:"index"`
	Start    *geom.Point `json:"start,omitempty"`
	End      *geom.Point `json:"end,omitempty"`
	Rotation *float64    `json:"rotation,omitempty"`
	Length   *float64    `json:"length,omitempty"`
	Extent   *geom.Rect  `json:"extent,omitempty"`
}

// WriteReportJSON 将报告输出为 JSON，便于调试或比对。
func WriteReportJSON(r *Report, path string) error {
	if r == nil {
		return nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
