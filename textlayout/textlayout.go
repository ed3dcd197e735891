// Package textlayout 定义逐字符文本度量的提供者接口，具体实现见 textlayout/canvas。
package textlayout

import (
	"errors"
	"fmt"

	"github.com/ByLCY/glyphprobe/dom"
	"github.com/ByLCY/glyphprobe/geom"
)

var (
	// ErrIndexOutOfRange 表示请求的字符下标超出文本长度。
	ErrIndexOutOfRange = errors.New("字符下标越界")
	// ErrNotText 表示节点不是可承载文本的元素。
	ErrNotText = errors.New("节点不是文本元素")
)

// Provider 回答文本元素的逐字符几何查询。坐标均为用户单位（mm）。
type Provider interface {
	NumChars(n *dom.Node) (int, error)
	StartPosition(n *dom.Node, i int) (geom.Point, error)
	EndPosition(n *dom.Node, i int) (geom.Point, error)
	Rotation(n *dom.Node, i int) (float64, error)
	Extent(n *dom.Node, i int) (geom.Rect, error)
	ComputedLength(n *dom.Node) (float64, error)
}

// FontResource 描述字体资源，Src 可以是 builtin:<name>、embed:<name> 或文件路径。
type FontResource struct {
	Name  string `json:"name"`
	Src   string `json:"src"`
	Style string `json:"style,omitempty"`
}

// TextElements lists the local names a provider accepts.
var TextElements = map[string]bool{
	"text":     true,
	"tspan":    true,
	"textPath": true,
}

// CheckIndex returns a wrapped ErrIndexOutOfRange when i is not in [0, n).
func CheckIndex(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: index=%d count=%d", ErrIndexOutOfRange, i, n)
	}
	return nil
}

// CheckText returns a wrapped ErrNotText unless n is a text-bearing element.
func CheckText(n *dom.Node) error {
	if n == nil || n.Type != dom.ElementNode || !TextElements[n.LocalName] {
		name := "<nil>"
		if n != nil {
			name = n.LocalName
		}
		return fmt.Errorf("%w: %s", ErrNotText, name)
	}
	return nil
}
