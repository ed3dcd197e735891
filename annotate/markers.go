package annotate

import (
	"strconv"

	"github.com/ByLCY/glyphprobe/dom"
	"github.com/ByLCY/glyphprobe/geom"
)

// 标记元素都带有 class="metric-marker metric-<mode>"，逐字符标记额外带 data-char。

func (w *walker) newMarker(name string, index int) *dom.Node {
	m := w.overlay.OwnerDocument().CreateElement(name)
	m.SetAttr("class", "metric-marker metric-"+w.mode.String())
	if index >= 0 {
		m.SetAttr("data-char", strconv.Itoa(index))
	}
	m.SetAttr("stroke", w.a.opts.Colors[w.mode])
	m.SetAttr("stroke-width", geom.FormatNumber(w.a.opts.StrokeWidth))
	m.SetAttr("fill", "none")
	return m
}

// pointMarker 是以原点为中心的十字，通过 translate 定位。
func (w *walker) pointMarker(p geom.Point, index int) *dom.Node {
	s := geom.FormatNumber(w.a.opts.MarkerSize)
	d := geom.FormatNumber(2 * w.a.opts.MarkerSize)
	m := w.newMarker("path", index)
	m.SetAttr("d", "M-"+s+",0 h"+d+" M0,-"+s+" v"+d)
	m.SetAttr("transform", geom.Translate(p))
	return m
}

// rotationMarker 是沿基线方向的箭头，平移到中点后按字符角度旋转。
func (w *walker) rotationMarker(mid geom.Point, angle float64, index int) *dom.Node {
	s := w.a.opts.MarkerSize
	m := w.newMarker("path", index)
	m.SetAttr("d", "M-"+geom.FormatNumber(s)+",0 H"+geom.FormatNumber(s)+
		" M"+geom.FormatNumber(s/2)+",-"+geom.FormatNumber(s/2)+
		" L"+geom.FormatNumber(s)+",0 L"+geom.FormatNumber(s/2)+","+geom.FormatNumber(s/2))
	m.SetAttr("transform", geom.TranslateRotate(mid, angle))
	return m
}

func (w *walker) lengthMarker(start geom.Point, length float64) *dom.Node {
	m := w.newMarker("line", -1)
	m.SetAttr("x1", "0")
	m.SetAttr("y1", "0")
	m.SetAttr("x2", geom.FormatNumber(length))
	m.SetAttr("y2", "0")
	m.SetAttr("transform", geom.Translate(start))
	return m
}

func (w *walker) extentMarker(r geom.Rect, index int) *dom.Node {
	m := w.newMarker("rect", index)
	m.SetAttr("x", geom.FormatNumber(r.Left()))
	m.SetAttr("y", geom.FormatNumber(r.Top()))
	m.SetAttr("width", geom.FormatNumber(r.Right()-r.Left()))
	m.SetAttr("height", geom.FormatNumber(r.Bottom()-r.Top()))
	return m
}
