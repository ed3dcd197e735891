package annotate

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/glyphprobe/dom"
	"github.com/ByLCY/glyphprobe/geom"
	"github.com/ByLCY/glyphprobe/textlayout"
)

// stubProvider 是测试用的最小实现：字符数取自 data-n 属性（缺省为文本长度），
// 第 i 个字符的起点为 (x+10i, y)，终点为起点右移 5，旋转角为 15i。
type stubProvider struct {
	visited []string
	length  float64
	failAt  int // >=0 时在该下标返回越界错误
}

func newStub() *stubProvider { return &stubProvider{failAt: -1, length: 42.5} }

func (s *stubProvider) NumChars(n *dom.Node) (int, error) {
	if err := textlayout.CheckText(n); err != nil {
		return 0, err
	}
	s.visited = append(s.visited, n.ID())
	return len([]rune(n.TextContent())), nil
}

func (s *stubProvider) origin(n *dom.Node) geom.Point {
	var p geom.Point
	fmt.Sscanf(n.GetAttr("x"), "%g", &p.X)
	fmt.Sscanf(n.GetAttr("y"), "%g", &p.Y)
	return p
}

func (s *stubProvider) check(n *dom.Node, i int) error {
	count := len([]rune(n.TextContent()))
	if i == s.failAt {
		return fmt.Errorf("%w: forced", textlayout.ErrIndexOutOfRange)
	}
	return textlayout.CheckIndex(i, count)
}

func (s *stubProvider) StartPosition(n *dom.Node, i int) (geom.Point, error) {
	if err := s.check(n, i); err != nil {
		return geom.Point{}, err
	}
	return s.origin(n).Add(geom.Point{X: float64(10 * i)}), nil
}

func (s *stubProvider) EndPosition(n *dom.Node, i int) (geom.Point, error) {
	p, err := s.StartPosition(n, i)
	return p.Add(geom.Point{X: 5}), err
}

func (s *stubProvider) Rotation(n *dom.Node, i int) (float64, error) {
	if err := s.check(n, i); err != nil {
		return 0, err
	}
	return float64(15 * i), nil
}

func (s *stubProvider) Extent(n *dom.Node, i int) (geom.Rect, error) {
	p, err := s.StartPosition(n, i)
	return geom.Rect{X: p.X, Y: p.Y - 4, Width: 5, Height: 6}, err
}

func (s *stubProvider) ComputedLength(n *dom.Node) (float64, error) { return s.length, nil }

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newAnnotator(p textlayout.Provider, opts Options) *Annotator {
	opts.Logger = quietLogger
	return New(p, opts)
}

// buildDoc 构造一棵测试树：
//
//	svg
//	├── text#a "abc"
//	├── g#grp
//	│   ├── text#b "de"
//	│   └── g > text#c "f"
//	├── defs > text#hidden "zzz"
//	└── text#d ""
func buildDoc() *dom.Document {
	d := dom.NewDocument("svg")
	text := func(id, content, x, y string) *dom.Node {
		n := d.CreateElement("text")
		n.SetAttr("id", id)
		n.SetAttr("x", x)
		n.SetAttr("y", y)
		n.AppendChild(d.CreateTextNode(content))
		return n
	}
	d.Root.AppendChild(text("a", "abc", "10", "20"))
	d.Root.AppendChild(d.CreateTextNode("\n  "))
	grp := d.CreateElement("g")
	grp.SetAttr("id", "grp")
	grp.AppendChild(text("b", "de", "0", "40"))
	inner := d.CreateElement("g")
	inner.AppendChild(text("c", "f", "0", "60"))
	grp.AppendChild(inner)
	d.Root.AppendChild(grp)
	defs := d.CreateElement("defs")
	defs.AppendChild(text("hidden", "zzz", "0", "0"))
	d.Root.AppendChild(defs)
	d.Root.AppendChild(d.CreateOtherNode(" comment "))
	d.Root.AppendChild(text("d", "", "0", "80"))
	return d
}

func markers(t *testing.T, d *dom.Document) []*dom.Node {
	t.Helper()
	overlay := d.GetElementByID(DefaultOverlayID)
	require.NotNil(t, overlay, "overlay missing")
	return overlay.Children()
}

func TestTraversalFollowsDocumentOrder(t *testing.T) {
	stub := newStub()
	a := newAnnotator(stub, Options{})
	d := buildDoc()

	report, err := a.Annotate(d, "", ModeStartPosition)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, stub.visited)
	assert.Equal(t, 4, report.TextElements)
	// 3 + 2 + 1 + 0
	assert.Equal(t, 6, report.Markers)
	assert.Len(t, markers(t, d), 6)
}

func TestStartPositionScenario(t *testing.T) {
	a := newAnnotator(newStub(), Options{})
	d := buildDoc()

	_, err := a.Annotate(d, "a", ModeStartPosition)
	require.NoError(t, err)

	ms := markers(t, d)
	require.Len(t, ms, 3)
	for i, m := range ms {
		assert.Equal(t, "path", m.LocalName)
		assert.Equal(t, fmt.Sprintf("translate(%d,20)", 10+10*i), m.GetAttr("transform"))
		assert.Equal(t, fmt.Sprint(i), m.GetAttr("data-char"))
		assert.Equal(t, DefaultColors[ModeStartPosition], m.GetAttr("stroke"))
	}
}

func TestEndPositionUsesDistinctColour(t *testing.T) {
	a := newAnnotator(newStub(), Options{})
	d := buildDoc()

	_, err := a.Annotate(d, "b", ModeEndPosition)
	require.NoError(t, err)
	ms := markers(t, d)
	require.Len(t, ms, 2)
	assert.Equal(t, "translate(5,40)", ms[0].GetAttr("transform"))
	assert.Equal(t, "translate(15,40)", ms[1].GetAttr("transform"))
	assert.Equal(t, DefaultColors[ModeEndPosition], ms[0].GetAttr("stroke"))
	assert.NotEqual(t, DefaultColors[ModeStartPosition], ms[0].GetAttr("stroke"))
}

func TestRotationMarkerAtMidpoint(t *testing.T) {
	a := newAnnotator(newStub(), Options{})
	d := buildDoc()

	_, err := a.Annotate(d, "a", ModeRotation)
	require.NoError(t, err)
	ms := markers(t, d)
	require.Len(t, ms, 3)
	assert.Equal(t, "translate(12.5,20) rotate(0)", ms[0].GetAttr("transform"))
	assert.Equal(t, "translate(22.5,20) rotate(15)", ms[1].GetAttr("transform"))
	assert.Equal(t, "translate(32.5,20) rotate(30)", ms[2].GetAttr("transform"))
}

func TestComputedLengthScenario(t *testing.T) {
	a := newAnnotator(newStub(), Options{})
	d := buildDoc()

	report, err := a.Annotate(d, "a", ModeComputedLength)
	require.NoError(t, err)
	ms := markers(t, d)
	require.Len(t, ms, 1)
	assert.Equal(t, 1, report.Markers)
	line := ms[0]
	assert.Equal(t, "line", line.LocalName)
	assert.Equal(t, "translate(10,20)", line.GetAttr("transform"))
	assert.Equal(t, "42.5", line.GetAttr("x2"))
	assert.Equal(t, "0", line.GetAttr("y2"))
	_, hasIndex := line.Attr("data-char")
	assert.False(t, hasIndex)
}

func TestComputedLengthOnePerTextElement(t *testing.T) {
	a := newAnnotator(newStub(), Options{})
	d := buildDoc()

	report, err := a.Annotate(d, "", ModeComputedLength)
	require.NoError(t, err)
	// text#d 为空，不产生标记。
	assert.Equal(t, 4, report.TextElements)
	assert.Equal(t, 3, report.Markers)
}

func TestExtentMarkersMatchRectangles(t *testing.T) {
	a := newAnnotator(newStub(), Options{})
	d := buildDoc()

	_, err := a.Annotate(d, "b", ModeExtent)
	require.NoError(t, err)
	ms := markers(t, d)
	require.Len(t, ms, 2)
	assert.Equal(t, "rect", ms[1].LocalName)
	assert.Equal(t, "10", ms[1].GetAttr("x"))
	assert.Equal(t, "36", ms[1].GetAttr("y"))
	assert.Equal(t, "5", ms[1].GetAttr("width"))
	assert.Equal(t, "6", ms[1].GetAttr("height"))
}

func TestMarkerCountPerMode(t *testing.T) {
	for _, mode := range Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			a := newAnnotator(newStub(), Options{})
			d := buildDoc()
			report, err := a.Annotate(d, "a", mode)
			require.NoError(t, err)
			want := 3
			if !mode.PerCharacter() {
				want = 1
			}
			assert.Equal(t, want, report.Markers)
		})
	}
}

func TestOverlayCreatedOnceAndMarkersAccumulate(t *testing.T) {
	a := newAnnotator(newStub(), Options{})
	d := buildDoc()

	first, err := a.Annotate(d, "a", ModeStartPosition)
	require.NoError(t, err)
	assert.True(t, first.OverlayCreated)

	second, err := a.Annotate(d, "a", ModeEndPosition)
	require.NoError(t, err)
	assert.False(t, second.OverlayCreated)

	count := 0
	for _, g := range d.ElementsByName("g") {
		if g.ID() == DefaultOverlayID {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Len(t, markers(t, d), 6)
	assert.Same(t, d.Root, d.GetElementByID(DefaultOverlayID).Parent)
}

func TestOverlayIDTakenByOtherElement(t *testing.T) {
	d := buildDoc()
	rect := d.CreateElement("rect")
	rect.SetAttr("id", DefaultOverlayID)
	d.Root.AppendChild(rect)

	report, err := newAnnotator(newStub(), Options{}).Annotate(d, "", ModeStartPosition)
	assert.ErrorIs(t, err, ErrOverlayConflict)
	assert.Nil(t, report)
	assert.Nil(t, rect.FirstChild, "不会把标记插入非 g 元素")
}

// resettingStub 记录每次标注开始前的缓存清空。
type resettingStub struct {
	*stubProvider
	resets int
}

func (s *resettingStub) Reset() { s.resets++ }

func TestCachingProviderResetPerCall(t *testing.T) {
	p := &resettingStub{stubProvider: newStub()}
	a := newAnnotator(p, Options{})
	d := buildDoc()

	_, err := a.Annotate(d, "", ModeStartPosition)
	require.NoError(t, err)
	_, err = a.Annotate(d, "", ModeExtent)
	require.NoError(t, err)
	assert.Equal(t, 2, p.resets)
}

func TestClearBeforeRemovesPreviousMarkers(t *testing.T) {
	d := buildDoc()
	_, err := newAnnotator(newStub(), Options{}).Annotate(d, "a", ModeStartPosition)
	require.NoError(t, err)

	report, err := newAnnotator(newStub(), Options{ClearBefore: true}).Annotate(d, "b", ModeStartPosition)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Cleared)
	assert.Len(t, markers(t, d), 2)
}

func TestDefsSubtreeSkipped(t *testing.T) {
	stub := newStub()
	a := newAnnotator(stub, Options{})
	d := buildDoc()

	_, err := a.Annotate(d, "", ModeExtent)
	require.NoError(t, err)
	assert.NotContains(t, stub.visited, "hidden")
	for _, m := range markers(t, d) {
		assert.NotEqual(t, "translate(0,0)", m.GetAttr("transform"))
	}

	// 以 defs 内部节点为根时仍然可以显式标注。
	stub.visited = nil
	_, err = a.Annotate(d, "hidden", ModeStartPosition)
	require.NoError(t, err)
	assert.Equal(t, []string{"hidden"}, stub.visited)
}

func TestCustomSkipTagsAndTextTag(t *testing.T) {
	stub := newStub()
	a := newAnnotator(stub, Options{SkipTags: []string{"g"}})
	d := buildDoc()
	_, err := a.Annotate(d, "", ModeStartPosition)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "hidden", "d"}, stub.visited)

	other := newAnnotator(newStub(), Options{TextTag: "tspan"})
	report, err := other.Annotate(buildDoc(), "", ModeStartPosition)
	require.NoError(t, err)
	assert.Zero(t, report.TextElements)
}

func TestEmptyTextProducesNoMarkers(t *testing.T) {
	a := newAnnotator(newStub(), Options{})
	d := buildDoc()
	for _, mode := range Modes() {
		report, err := a.Annotate(d, "d", mode)
		require.NoError(t, err)
		assert.Zero(t, report.Markers, mode.String())
	}
}

func TestErrors(t *testing.T) {
	d := buildDoc()

	_, err := newAnnotator(nil, Options{}).Annotate(d, "", ModeStartPosition)
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	_, err = newAnnotator(newStub(), Options{}).Annotate(d, "nope", ModeStartPosition)
	assert.ErrorIs(t, err, ErrRootNotFound)

	_, err = newAnnotator(newStub(), Options{}).Annotate(nil, "", ModeStartPosition)
	assert.ErrorIs(t, err, ErrRootNotFound)

	_, err = newAnnotator(newStub(), Options{}).Annotate(d, "", Mode(42))
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestIndexErrorAbortsButKeepsMarkers(t *testing.T) {
	stub := newStub()
	stub.failAt = 1
	d := buildDoc()

	report, err := newAnnotator(stub, Options{}).Annotate(d, "", ModeStartPosition)
	require.Error(t, err)
	assert.True(t, errors.Is(err, textlayout.ErrIndexOutOfRange))
	assert.Contains(t, err.Error(), "a")
	// 下标 0 的标记已经插入，不回滚；后续文本元素不再处理。
	assert.Equal(t, 1, report.Markers)
	assert.Len(t, markers(t, d), 1)
	assert.Equal(t, []string{"a"}, stub.visited)
}

func TestRootTextElementIsAnnotated(t *testing.T) {
	d := buildDoc()
	a := newAnnotator(newStub(), Options{})
	report, err := a.AnnotateNode(d.GetElementByID("c"), ModeStartPosition)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TextElements)
	assert.Equal(t, 1, report.Markers)
}

func TestDebugSamplesAndReportJSON(t *testing.T) {
	d := buildDoc()
	a := newAnnotator(newStub(), Options{Debug: DebugOptions{Samples: true}})
	report, err := a.Annotate(d, "grp", ModeRotation)
	require.NoError(t, err)
	require.Len(t, report.Samples, 3)
	assert.Equal(t, "b", report.Samples[0].Element)
	assert.Equal(t, 1, report.Samples[1].Index)
	require.NotNil(t, report.Samples[1].Rotation)
	assert.Equal(t, 15.0, *report.Samples[1].Rotation)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteReportJSON(report, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"mode": "rotation"`), string(data))
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"":                       ModeStartPosition,
		"start-position":         ModeStartPosition,
		"getStartPositionOfChar": ModeStartPosition,
		"END":                    ModeEndPosition,
		"rotate":                 ModeRotation,
		"computed_length":        ModeComputedLength,
		"getComputedTextLength":  ModeComputedLength,
		"extent":                 ModeExtent,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("sideways")
	assert.ErrorIs(t, err, ErrUnknownMode)
	assert.Contains(t, ModeRotation.Aliases(), "getRotationOfChar")
}
