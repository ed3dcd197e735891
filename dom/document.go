package dom

// Document 拥有整棵树；Root 对应 SVG 的根元素（documentElement）。
type Document struct {
	Root *Node
}

// NewDocument creates a document whose root element has the given local name.
func NewDocument(rootName string) *Document {
	d := &Document{}
	d.Root = d.CreateElement(rootName)
	return d
}

// CreateElement 创建一个尚未挂载的元素。
func (d *Document) CreateElement(name string) *Node {
	return &Node{Type: ElementNode, LocalName: name, doc: d}
}

// CreateTextNode creates a detached text node.
func (d *Document) CreateTextNode(data string) *Node {
	return &Node{Type: TextNode, Data: data, doc: d}
}

// CreateOtherNode creates a detached comment/instruction node.
func (d *Document) CreateOtherNode(data string) *Node {
	return &Node{Type: OtherNode, Data: data, doc: d}
}

// GetElementByID 以先序遍历返回第一个 id 匹配的元素，找不到返回 nil。
func (d *Document) GetElementByID(id string) *Node {
	if d == nil || d.Root == nil || id == "" {
		return nil
	}
	var found *Node
	var walk func(*Node) bool
	walk = func(n *Node) bool {
		if n.Type == ElementNode && n.ID() == id {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.Root)
	return found
}

// ElementsByName returns every element with the given local name in document order.
func (d *Document) ElementsByName(name string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if n.IsElement(name) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if d != nil && d.Root != nil {
		walk(d.Root)
	}
	return out
}
