package geom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Matrix is an affine transform [a c e; b d f] in SVG order.
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity is the no-op transform.
var Identity = Matrix{A: 1, D: 1}

// Mul returns m·n, i.e. n is applied first.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

// Apply transforms a point.
func (m Matrix) Apply(p Point) Point {
	return Point{X: m.A*p.X + m.C*p.Y + m.E, Y: m.B*p.X + m.D*p.Y + m.F}
}

func translateMatrix(tx, ty float64) Matrix { return Matrix{A: 1, D: 1, E: tx, F: ty} }

func rotateMatrix(deg float64) Matrix {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return Matrix{A: cos, B: sin, C: -sin, D: cos}
}

func skewXMatrix(deg float64) Matrix { return Matrix{A: 1, C: math.Tan(deg * math.Pi / 180), D: 1} }

func skewYMatrix(deg float64) Matrix { return Matrix{A: 1, B: math.Tan(deg * math.Pi / 180), D: 1} }

// ParseTransform 解析 SVG transform 属性，支持 translate/rotate/scale/skewX/skewY/matrix。
// 空串返回 Identity。
func ParseTransform(s string) (Matrix, error) {
	m := Identity
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closeIdx := strings.IndexByte(rest, ')')
		if open <= 0 || closeIdx < open {
			return Identity, fmt.Errorf("transform 语法错误: %q", s)
		}
		name := strings.TrimSpace(strings.TrimLeft(rest[:open], ", \t\r\n"))
		args, err := parseNumbers(rest[open+1 : closeIdx])
		if err != nil {
			return Identity, fmt.Errorf("transform %s 参数错误: %w", name, err)
		}
		var step Matrix
		switch name {
		case "translate":
			switch len(args) {
			case 1:
				step = translateMatrix(args[0], 0)
			case 2:
				step = translateMatrix(args[0], args[1])
			default:
				return Identity, fmt.Errorf("translate 需要 1 或 2 个参数")
			}
		case "rotate":
			switch len(args) {
			case 1:
				step = rotateMatrix(args[0])
			case 3:
				step = translateMatrix(args[1], args[2]).Mul(rotateMatrix(args[0])).Mul(translateMatrix(-args[1], -args[2]))
			default:
				return Identity, fmt.Errorf("rotate 需要 1 或 3 个参数")
			}
		case "scale":
			switch len(args) {
			case 1:
				step = Matrix{A: args[0], D: args[0]}
			case 2:
				step = Matrix{A: args[0], D: args[1]}
			default:
				return Identity, fmt.Errorf("scale 需要 1 或 2 个参数")
			}
		case "skewX", "skewY":
			if len(args) != 1 {
				return Identity, fmt.Errorf("%s 需要 1 个参数", name)
			}
			step = skewXMatrix(args[0])
			if name == "skewY" {
				step = skewYMatrix(args[0])
			}
		case "matrix":
			if len(args) != 6 {
				return Identity, fmt.Errorf("matrix 需要 6 个参数")
			}
			step = Matrix{A: args[0], B: args[1], C: args[2], D: args[3], E: args[4], F: args[5]}
		default:
			return Identity, fmt.Errorf("不支持的 transform: %s", name)
		}
		m = m.Mul(step)
		rest = strings.TrimSpace(rest[closeIdx+1:])
	}
	return m, nil
}

func parseNumbers(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
