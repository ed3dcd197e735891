package dom

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// ErrNoSVGRoot is returned when the markup contains no <svg> element.
var ErrNoSVGRoot = errors.New("dom: 缺少 <svg> 根元素")

const svgNamespace = "http://www.w3.org/2000/svg"

// ParseSVG 解析 SVG 标记。使用 HTML5 解析器的 foreign-content 模式，
// 它会修正 SVG 元素/属性的大小写（textPath、viewBox），第一个 <svg> 成为 Root。
func ParseSVG(r io.Reader) (*Document, error) {
	tree, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析 SVG 失败: %w", err)
	}
	svg := findSVG(tree)
	if svg == nil {
		return nil, ErrNoSVGRoot
	}
	d := &Document{}
	d.Root = d.importNode(svg)
	return d, nil
}

func findSVG(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "svg" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findSVG(c); found != nil {
			return found
		}
	}
	return nil
}

func (d *Document) importNode(src *html.Node) *Node {
	var n *Node
	switch src.Type {
	case html.ElementNode:
		n = d.CreateElement(src.Data)
		for _, a := range src.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			n.Attrs = append(n.Attrs, Attr{Name: name, Value: a.Val})
		}
	case html.TextNode:
		return d.CreateTextNode(src.Data)
	default:
		return d.CreateOtherNode(src.Data)
	}
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		n.AppendChild(d.importNode(c))
	}
	return n
}

// Write 把文档序列化为 SVG 标记。根元素缺少 xmlns 时会补上。
func (d *Document) Write(w io.Writer) error {
	if d == nil || d.Root == nil {
		return errors.New("dom: 文档为空")
	}
	bw := bufio.NewWriter(w)
	if _, ok := d.Root.Attr("xmlns"); !ok && d.Root.LocalName == "svg" {
		root := *d.Root
		root.Attrs = append([]Attr{{Name: "xmlns", Value: svgNamespace}}, d.Root.Attrs...)
		writeNode(bw, &root)
	} else {
		writeNode(bw, d.Root)
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

func writeNode(w *bufio.Writer, n *Node) {
	switch n.Type {
	case TextNode:
		xml.EscapeText(w, []byte(n.Data))
		return
	case OtherNode:
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->")
		return
	}
	w.WriteByte('<')
	w.WriteString(n.LocalName)
	for _, a := range n.Attrs {
		w.WriteByte(' ')
		w.WriteString(a.Name)
		w.WriteString(`="`)
		xml.EscapeText(w, []byte(a.Value))
		w.WriteByte('"')
	}
	if n.FirstChild == nil {
		w.WriteString("/>")
		return
	}
	w.WriteByte('>')
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(w, c)
	}
	w.WriteString("</")
	w.WriteString(n.LocalName)
	w.WriteByte('>')
}
