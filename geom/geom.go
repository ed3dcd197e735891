package geom

import (
	"math"
	"strconv"
)

// 该文件定义标注与渲染共用的几何类型。坐标系为 y 轴向下（与 SVG 一致），
// 一个用户单位等于 1mm。

// Point 表示二维坐标。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Rotate 以原点为中心按角度（度）旋转。y 轴向下，正角度为视觉上的顺时针。
func (p Point) Rotate(deg float64) Point {
	if deg == 0 {
		return p
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return Point{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
}

// Midpoint 返回两点连线的中点。
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Rect 表示轴对齐矩形；Width/Height 可以为负，边界方法会做归一化。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Left() float64 {
	if r.Width < 0 {
		return r.X + r.Width
	}
	return r.X
}

func (r Rect) Right() float64 {
	if r.Width < 0 {
		return r.X
	}
	return r.X + r.Width
}

func (r Rect) Top() float64 {
	if r.Height < 0 {
		return r.Y + r.Height
	}
	return r.Y
}

func (r Rect) Bottom() float64 {
	if r.Height < 0 {
		return r.Y
	}
	return r.Y + r.Height
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return Bounds(
		Point{X: r.Left(), Y: r.Top()}, Point{X: r.Right(), Y: r.Bottom()},
		Point{X: o.Left(), Y: o.Top()}, Point{X: o.Right(), Y: o.Bottom()},
	)
}

// Bounds 返回包含全部点的最小矩形；无点时返回零值。
func Bounds(points ...Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// FormatNumber 输出最短的十进制表示，不使用指数形式，且把 -0 规整为 0。
func FormatNumber(v float64) string {
	if v == 0 || math.IsNaN(v) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Translate returns the SVG transform for a translation to p.
func Translate(p Point) string {
	return "translate(" + FormatNumber(p.X) + "," + FormatNumber(p.Y) + ")"
}

// TranslateRotate returns "translate(x,y) rotate(deg)".
func TranslateRotate(p Point, deg float64) string {
	return Translate(p) + " rotate(" + FormatNumber(deg) + ")"
}
