// Package dom 提供一个可变的有序文档树，节点通过 first-child/next-sibling 链接。
package dom

import "strings"

// NodeType 区分元素、文本与其他节点（注释、指令等）。
type NodeType int

const (
	ElementNode NodeType = iota + 1
	TextNode
	OtherNode
)

func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case OtherNode:
		return "other"
	default:
		return "unknown"
	}
}

// Attr is a single attribute; namespaced names keep their prefix (xlink:href).
type Attr struct {
	Name  string
	Value string
}

// Node 是文档树中的一个节点。Parent 与兄弟指针由 AppendChild/RemoveChild 维护，
// 不要直接修改。
type Node struct {
	Type      NodeType
	LocalName string // 仅元素节点
	Data      string // 文本或其他节点的内容
	Attrs     []Attr

	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node

	doc *Document // 所属文档，非拥有引用
}

// OwnerDocument returns the document that created n.
func (n *Node) OwnerDocument() *Document { return n.doc }

// IsElement reports whether n is an element with the given local name.
func (n *Node) IsElement(name string) bool {
	return n != nil && n.Type == ElementNode && n.LocalName == name
}

// Attr 返回属性值以及是否存在。
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// GetAttr returns the attribute value or "".
func (n *Node) GetAttr(name string) string {
	v, _ := n.Attr(name)
	return v
}

// SetAttr 设置属性；已存在时原位覆盖以保持属性顺序。
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

func (n *Node) RemoveAttr(name string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// ID returns the id attribute.
func (n *Node) ID() string { return n.GetAttr("id") }

// AppendChild 把 c 追加为最后一个子节点；若 c 已挂在别处则先摘下。
func (n *Node) AppendChild(c *Node) {
	if c.Parent != nil {
		c.Parent.RemoveChild(c)
	}
	c.Parent = n
	c.PrevSibling = n.LastChild
	c.NextSibling = nil
	if n.LastChild != nil {
		n.LastChild.NextSibling = c
	} else {
		n.FirstChild = c
	}
	n.LastChild = c
}

// RemoveChild detaches c from n. It is a no-op when c is not a child of n.
func (n *Node) RemoveChild(c *Node) {
	if c == nil || c.Parent != n {
		return
	}
	if c.PrevSibling != nil {
		c.PrevSibling.NextSibling = c.NextSibling
	} else {
		n.FirstChild = c.NextSibling
	}
	if c.NextSibling != nil {
		c.NextSibling.PrevSibling = c.PrevSibling
	} else {
		n.LastChild = c.PrevSibling
	}
	c.Parent, c.PrevSibling, c.NextSibling = nil, nil, nil
}

// RemoveChildren 清空全部子节点，返回移除的数量。
func (n *Node) RemoveChildren() int {
	count := 0
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
		count++
	}
	return count
}

// Children 以文档顺序返回子节点快照。
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// ChildElements returns only element children.
func (n *Node) ChildElements() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// TextContent 按文档顺序拼接所有后代文本节点。
func (n *Node) TextContent() string {
	if n.Type == TextNode {
		return n.Data
	}
	var b strings.Builder
	var walk func(*Node)
	walk = func(x *Node) {
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case TextNode:
				b.WriteString(c.Data)
			case ElementNode:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

// InheritedAttr 从 n 开始向上查找第一个定义了 name 的元素，模拟 SVG 表现属性的继承。
func (n *Node) InheritedAttr(name string) (string, bool) {
	for x := n; x != nil; x = x.Parent {
		if x.Type != ElementNode {
			continue
		}
		if v, ok := x.Attr(name); ok && v != "" && v != "inherit" {
			return v, true
		}
	}
	return "", false
}
