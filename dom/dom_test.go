package dom

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.LocalName)
	}
	return out
}

func TestAppendAndRemoveKeepsSiblingLinks(t *testing.T) {
	d := NewDocument("svg")
	a, b, c := d.CreateElement("a"), d.CreateElement("b"), d.CreateElement("c")
	d.Root.AppendChild(a)
	d.Root.AppendChild(b)
	d.Root.AppendChild(c)
	assert.Equal(t, []string{"a", "b", "c"}, names(d.Root.Children()))

	d.Root.RemoveChild(b)
	assert.Equal(t, []string{"a", "c"}, names(d.Root.Children()))
	assert.Same(t, c, a.NextSibling)
	assert.Same(t, a, c.PrevSibling)
	assert.Nil(t, b.Parent)

	// 重新挂载到其他父节点时先从原父节点摘下。
	g := d.CreateElement("g")
	d.Root.AppendChild(g)
	g.AppendChild(a)
	assert.Equal(t, []string{"c", "g"}, names(d.Root.Children()))
	assert.Same(t, g, a.Parent)
	assert.Same(t, d, a.OwnerDocument())

	assert.Equal(t, 2, d.Root.RemoveChildren())
	assert.Nil(t, d.Root.FirstChild)
	assert.Nil(t, d.Root.LastChild)
}

func TestAttributesKeepOrder(t *testing.T) {
	d := NewDocument("svg")
	n := d.CreateElement("rect")
	n.SetAttr("x", "1")
	n.SetAttr("y", "2")
	n.SetAttr("x", "3")
	assert.Equal(t, []Attr{{"x", "3"}, {"y", "2"}}, n.Attrs)
	n.RemoveAttr("x")
	_, ok := n.Attr("x")
	assert.False(t, ok)
	assert.Equal(t, "2", n.GetAttr("y"))
}

func TestGetElementByIDAndInheritance(t *testing.T) {
	d := NewDocument("svg")
	g := d.CreateElement("g")
	g.SetAttr("id", "outer")
	g.SetAttr("font-size", "5")
	txt := d.CreateElement("text")
	txt.SetAttr("id", "t1")
	txt.AppendChild(d.CreateTextNode("Hi"))
	g.AppendChild(txt)
	d.Root.AppendChild(g)

	assert.Same(t, txt, d.GetElementByID("t1"))
	assert.Nil(t, d.GetElementByID("missing"))
	v, ok := txt.InheritedAttr("font-size")
	assert.True(t, ok)
	assert.Equal(t, "5", v)
	assert.Equal(t, "Hi", g.TextContent())
	assert.Len(t, d.ElementsByName("text"), 1)
}

const sampleSVG = `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 100 50">
  <defs><text id="hidden">x</text></defs>
  <g id="content">
    <text id="t1" x="10" y="20">AB<tspan>C</tspan></text>
    <use xlink:href="#hidden"/>
  </g>
  <!-- note -->
</svg>`

func TestParseSVG(t *testing.T) {
	d, err := ParseSVG(strings.NewReader(sampleSVG))
	require.NoError(t, err)
	require.NotNil(t, d.Root)
	assert.Equal(t, "svg", d.Root.LocalName)
	assert.Equal(t, "0 0 100 50", d.Root.GetAttr("viewBox"))

	t1 := d.GetElementByID("t1")
	require.NotNil(t, t1)
	assert.Equal(t, "ABC", t1.TextContent())
	assert.Same(t, d, t1.OwnerDocument())

	use := d.ElementsByName("use")
	require.Len(t, use, 1)
	assert.Equal(t, "#hidden", use[0].GetAttr("xlink:href"))

	var sawComment bool
	for _, c := range d.Root.Children() {
		if c.Type == OtherNode {
			sawComment = true
		}
	}
	assert.True(t, sawComment)
}

func TestParseSVGWithoutRoot(t *testing.T) {
	_, err := ParseSVG(strings.NewReader("<p>hello</p>"))
	assert.ErrorIs(t, err, ErrNoSVGRoot)
}

func TestWriteEscapesAndAddsNamespace(t *testing.T) {
	d := NewDocument("svg")
	txt := d.CreateElement("text")
	txt.SetAttr("data-label", `a"b`)
	txt.AppendChild(d.CreateTextNode("1 < 2 & 3"))
	d.Root.AppendChild(txt)
	d.Root.AppendChild(d.CreateElement("g"))

	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg">`), out)
	assert.Contains(t, out, "1 &lt; 2 &amp; 3")
	assert.Contains(t, out, `data-label="a&#34;b"`)
	assert.Contains(t, out, "<g/>")

	// 序列化结果可以再次解析。
	back, err := ParseSVG(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "1 < 2 & 3", back.Root.TextContent())
}
