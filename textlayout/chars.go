package textlayout

import (
	"strings"

	"github.com/ByLCY/glyphprobe/dom"
)

// Char 是空白处理之后的单个字符，Owner 为直接包含它的文本元素。
type Char struct {
	Rune  rune
	Owner *dom.Node
}

// 字符收集时会进入的子元素；title、desc 等其余子元素不贡献字符。
var containerElements = map[string]bool{
	"tspan":    true,
	"textPath": true,
	"altGlyph": true,
	"a":        true,
}

// Characters collects the characters rendered by text element n, in document order.
//
// 默认模式下去掉换行符，制表符视为空格，连续空格合并为一个，并去掉首尾空格；
// xml:space="preserve"（可继承）时换行符与制表符各变为一个空格，其余原样保留。
func Characters(n *dom.Node) []Char {
	if n == nil {
		return nil
	}
	c := &charCollector{}
	c.collect(n)
	for len(c.out) > c.keep && c.out[len(c.out)-1].Rune == ' ' {
		c.out = c.out[:len(c.out)-1]
	}
	return c.out
}

// Text returns the characters of n as a string.
func Text(n *dom.Node) string {
	var b strings.Builder
	for _, c := range Characters(n) {
		b.WriteRune(c.Rune)
	}
	return b.String()
}

type charCollector struct {
	out  []Char
	keep int // preserve 区段的结束位置，末尾空格只在其后删除
}

func (c *charCollector) collect(el *dom.Node) {
	if el.GetAttr("display") == "none" {
		return
	}
	preserve := xmlSpacePreserve(el)
	if preserve {
		c.keep = len(c.out)
	}
	for x := el.FirstChild; x != nil; x = x.NextSibling {
		switch x.Type {
		case dom.ElementNode:
			if containerElements[x.LocalName] {
				c.collect(x)
			}
		case dom.TextNode:
			stripFirst := !preserve && (len(c.out) == 0 || c.out[len(c.out)-1].Rune == ' ')
			for _, r := range normalizeSpace(x.Data, preserve, stripFirst) {
				c.out = append(c.out, Char{Rune: r, Owner: el})
			}
			if preserve {
				c.keep = len(c.out)
			}
		}
	}
}

func xmlSpacePreserve(n *dom.Node) bool {
	v, _ := n.InheritedAttr("xml:space")
	return strings.TrimSpace(v) == "preserve"
}

func normalizeSpace(s string, preserve, stripFirst bool) []rune {
	out := make([]rune, 0, len(s))
	if preserve {
		for _, r := range s {
			switch r {
			case '\n', '\r', '\t':
				r = ' '
			}
			out = append(out, r)
		}
		return out
	}
	space := false
	for _, r := range s {
		switch r {
		case '\n', '\r':
		case ' ', '\t':
			if stripFirst || space {
				continue
			}
			out = append(out, ' ')
			space = true
		default:
			out = append(out, r)
			space = false
			stripFirst = false
		}
	}
	return out
}

// Root returns the outermost text element that n belongs to; tspan/textPath
// 的字符在该元素的整体排版中定位。
func Root(n *dom.Node) *dom.Node {
	root := n
	for p := n.Parent; p != nil && p.Type == dom.ElementNode; p = p.Parent {
		if TextElements[p.LocalName] {
			root = p
		} else if !containerElements[p.LocalName] {
			break
		}
	}
	return root
}

// Within reports whether x is n or one of its descendants.
func Within(x, n *dom.Node) bool {
	for ; x != nil; x = x.Parent {
		if x == n {
			return true
		}
	}
	return false
}
