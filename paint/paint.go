// Package paint 解析 SVG 颜色值，供渲染器与文本引擎共用。
package paint

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/colornames"

	"github.com/ByLCY/glyphprobe/dom"
)

// Transparent is the paint of "none".
var Transparent = color.RGBA{}

// IsNone reports whether v disables painting.
func IsNone(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "none" || v == "transparent"
}

// ParseColor parses #rgb, #rrggbb, #rrggbbaa, rgb()/rgba() and the SVG colour keywords.
// 结果为预乘 alpha 的 color.RGBA；none/transparent 返回 Transparent。
func ParseColor(s string) (color.RGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case IsNone(v):
		return Transparent, nil
	case strings.HasPrefix(v, "#"):
		if !isHex(v[1:]) || (len(v) != 4 && len(v) != 7 && len(v) != 9) {
			return Transparent, fmt.Errorf("无法识别的颜色 %q", s)
		}
		return canvas.Hex(v), nil
	case strings.HasPrefix(v, "rgb"):
		return parseFunctional(v, s)
	}
	if c, ok := colornames.Map[v]; ok {
		return c, nil
	}
	return Transparent, fmt.Errorf("无法识别的颜色 %q", s)
}

// Resolve 读取 n 上可继承的颜色属性 attr（fill、stroke）。
// 未设置时返回 def；currentColor 取继承的 color 属性，缺省为黑色。
func Resolve(n *dom.Node, attr string, def color.RGBA) (color.RGBA, error) {
	v, ok := n.InheritedAttr(attr)
	if !ok {
		return def, nil
	}
	if strings.EqualFold(strings.TrimSpace(v), "currentColor") {
		cur, ok := n.InheritedAttr("color")
		if !ok || strings.EqualFold(strings.TrimSpace(cur), "currentColor") {
			return canvas.Black, nil
		}
		v = cur
	}
	c, err := ParseColor(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", attr, err)
	}
	return c, nil
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return s != ""
}

// parseFunctional 解析 rgb(255, 0, 0)、rgb(100%, 0%, 0%) 与 rgba(0, 0, 255, 0.5)。
func parseFunctional(v, orig string) (color.RGBA, error) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return Transparent, fmt.Errorf("无法识别的颜色 %q", orig)
	}
	name := strings.TrimSpace(v[:open])
	if name != "rgb" && name != "rgba" {
		return Transparent, fmt.Errorf("无法识别的颜色 %q", orig)
	}
	args := strings.FieldsFunc(v[open+1:len(v)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '/'
	})
	if len(args) != 3 && len(args) != 4 {
		return Transparent, fmt.Errorf("颜色 %q 需要 3 或 4 个分量", orig)
	}
	var rgb [3]uint8
	for i := range rgb {
		c, err := channel(args[i])
		if err != nil {
			return Transparent, fmt.Errorf("颜色 %q: %w", orig, err)
		}
		rgb[i] = c
	}
	alpha := uint8(255)
	if len(args) == 4 {
		a, err := alphaValue(args[3])
		if err != nil {
			return Transparent, fmt.Errorf("颜色 %q: %w", orig, err)
		}
		alpha = a
	}
	nrgba := color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: alpha}
	return color.RGBAModel.Convert(nrgba).(color.RGBA), nil
}

func channel(s string) (uint8, error) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, err
		}
		return clamp8(f * 255 / 100), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return clamp8(f), nil
}

func alphaValue(s string) (uint8, error) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, err
		}
		return clamp8(f * 255 / 100), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return clamp8(f * 255), nil
}

func clamp8(f float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, f))))
}
