package canvaslayout

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/glyphprobe/dom"
	"github.com/ByLCY/glyphprobe/fonts"
	"github.com/ByLCY/glyphprobe/geom"
	"github.com/ByLCY/glyphprobe/paint"
	"github.com/ByLCY/glyphprobe/textlayout"
)

// DefaultFontSize is 12pt expressed in user units (mm).
const DefaultFontSize = 12 * geom.PtToMm

// Engine 基于 github.com/tdewolff/canvas 的字体度量实现 textlayout.Provider。
type Engine struct {
	baseDir         string
	fonts           map[string]textlayout.FontResource
	defaultFontSize float64

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily

	layoutMu    sync.Mutex
	layouts     map[*dom.Node][]Glyph // 以最外层 text 元素为键
	layoutCount int
}

var _ textlayout.Provider = (*Engine)(nil)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the engine.
type Options struct {
	BaseDir         string                             // 相对字体路径的根目录
	Fonts           map[string]textlayout.FontResource // 以 font-family 名称索引
	DefaultFontSize float64                            // 用户单位；<=0 时使用 DefaultFontSize
}

// New creates an engine.
func New(opts Options) *Engine {
	size := opts.DefaultFontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	fontsByName := make(map[string]textlayout.FontResource, len(opts.Fonts))
	for name, f := range opts.Fonts {
		if name == "" {
			continue
		}
		if f.Name == "" {
			f.Name = name
		}
		fontsByName[name] = f
	}
	return &Engine{
		baseDir:         opts.BaseDir,
		fonts:           fontsByName,
		defaultFontSize: size,
		fontFamilies:    map[string]*fontFamilyEntry{},
		layouts:         map[*dom.Node][]Glyph{},
	}
}

// Glyph 是排版后的单个字符：基线原点、前进宽度与旋转角度（度）。
type Glyph struct {
	Rune    rune       `json:"rune"`
	Origin  geom.Point `json:"origin"`
	Advance float64    `json:"advance"`
	Rotate  float64    `json:"rotate"`
	Ascent  float64    `json:"ascent"`
	Descent float64    `json:"descent"`

	Owner *dom.Node        `json:"-"` // 直接包含该字符的 text/tspan/textPath
	Face  *canvas.FontFace `json:"-"`
}

// End returns the point one advance along the glyph's rotated baseline.
func (g Glyph) End() geom.Point {
	return g.Origin.Add(geom.Point{X: g.Advance}.Rotate(g.Rotate))
}

// Cell returns the axis-aligned bounds of the rotated glyph cell.
// 字形单元取整个前进宽度与字体的 ascent/descent，与具体字形轮廓无关。
func (g Glyph) Cell() geom.Rect {
	corners := []geom.Point{
		{X: 0, Y: -g.Ascent},
		{X: g.Advance, Y: -g.Ascent},
		{X: g.Advance, Y: g.Descent},
		{X: 0, Y: g.Descent},
	}
	for i := range corners {
		corners[i] = g.Origin.Add(corners[i].Rotate(g.Rotate))
	}
	return geom.Bounds(corners...)
}

// Contains reports whether p lies inside the rotated glyph cell.
func (g Glyph) Contains(p geom.Point) bool {
	local := p.Sub(g.Origin).Rotate(-g.Rotate)
	return local.X >= 0 && local.X <= g.Advance && local.Y >= -g.Ascent && local.Y <= g.Descent
}

// Layout 按 SVG 规则排出文本元素的全部字符。
//
// 整个 text 元素作为一次排版：子 tspan/textPath 上的 x/y/dx/dy/rotate 作用于各自的字符区间，
// 内层元素优先；x/y 给出绝对位置，dx/dy 叠加偏移，rotate 列表的最后一个值向后重复。
// n 为 tspan/textPath 时只返回它自己（含后代）的字符。
// 结果按 text 元素缓存，文档被修改后需调用 Reset。
func (e *Engine) Layout(n *dom.Node) ([]Glyph, error) {
	if err := textlayout.CheckText(n); err != nil {
		return nil, err
	}
	root := textlayout.Root(n)
	glyphs, err := e.layoutRoot(root)
	if err != nil {
		return nil, err
	}
	if root == n {
		return slices.Clone(glyphs), nil
	}
	var out []Glyph
	for _, g := range glyphs {
		if textlayout.Within(g.Owner, n) {
			out = append(out, g)
		}
	}
	return out, nil
}

// Reset 丢弃缓存的排版结果。
func (e *Engine) Reset() {
	e.layoutMu.Lock()
	defer e.layoutMu.Unlock()
	clear(e.layouts)
}

func (e *Engine) layoutRoot(root *dom.Node) ([]Glyph, error) {
	e.layoutMu.Lock()
	defer e.layoutMu.Unlock()
	if glyphs, ok := e.layouts[root]; ok {
		return glyphs, nil
	}
	glyphs, err := e.layout(root)
	if err != nil {
		return nil, err
	}
	e.layouts[root] = glyphs
	e.layoutCount++
	return glyphs, nil
}

// positioning 是一个元素上解析好的定位列表，start 为其第一个字符在整体中的下标。
type positioning struct {
	start                int
	x, y, dx, dy, rotate []float64
}

func (e *Engine) layout(root *dom.Node) ([]Glyph, error) {
	chars := textlayout.Characters(root)
	runes := make([]rune, len(chars))
	for i, c := range chars {
		runes[i] = c.Rune
	}

	lists := map[*dom.Node]*positioning{}
	faces := map[*dom.Node]*canvas.FontFace{}
	// 祖先链从内到外，止于 root
	chain := func(i int) ([]*positioning, error) {
		var out []*positioning
		for x := chars[i].Owner; x != nil; x = x.Parent {
			p, ok := lists[x]
			if !ok {
				var err error
				if p, err = parsePositioning(x); err != nil {
					return nil, err
				}
				p.start = i
				lists[x] = p
			}
			out = append(out, p)
			if x == root {
				break
			}
		}
		return out, nil
	}

	glyphs := make([]Glyph, 0, len(chars))
	var cur geom.Point
	runStart, prefix := 0, 0.0
	for i, c := range chars {
		face, ok := faces[c.Owner]
		if !ok {
			var err error
			if face, err = e.FaceFor(c.Owner); err != nil {
				return nil, err
			}
			faces[c.Owner] = face
		}
		ps, err := chain(i)
		if err != nil {
			return nil, err
		}
		if v, ok := pick(ps, i, func(p *positioning) []float64 { return p.x }); ok {
			cur.X = v
		}
		if v, ok := pick(ps, i, func(p *positioning) []float64 { return p.y }); ok {
			cur.Y = v
		}
		if v, ok := pick(ps, i, func(p *positioning) []float64 { return p.dx }); ok {
			cur.X += v
		}
		if v, ok := pick(ps, i, func(p *positioning) []float64 { return p.dy }); ok {
			cur.Y += v
		}
		rot := 0.0
		for _, p := range ps {
			if len(p.rotate) > 0 {
				rot = p.rotate[min(i-p.start, len(p.rotate)-1)]
				break
			}
		}

		// 同一字体的连续字符为一段，用段内前缀宽度差得到前进宽度，这样字距调整（kerning）会被计入。
		if i > 0 && glyphs[i-1].Face != face && !glyphs[i-1].Face.Equals(face) {
			runStart, prefix = i, 0
		}
		width := face.TextWidth(string(runes[runStart : i+1]))
		advance := width - prefix
		prefix = width

		metrics := face.Metrics()
		glyphs = append(glyphs, Glyph{
			Rune:    c.Rune,
			Origin:  cur,
			Advance: advance,
			Rotate:  rot,
			Ascent:  math.Abs(metrics.Ascent),
			Descent: math.Abs(metrics.Descent),
			Owner:   c.Owner,
			Face:    face,
		})
		cur.X += advance
	}
	return glyphs, nil
}

// pick 返回最内层在下标 i 处有值的元素列表项。
func pick(ps []*positioning, i int, list func(*positioning) []float64) (float64, bool) {
	for _, p := range ps {
		if l := list(p); i-p.start < len(l) {
			return l[i-p.start], true
		}
	}
	return 0, false
}

func parsePositioning(n *dom.Node) (*positioning, error) {
	p := &positioning{}
	var err error
	for _, a := range []struct {
		name string
		dst  *[]float64
	}{{"x", &p.x}, {"y", &p.y}, {"dx", &p.dx}, {"dy", &p.dy}} {
		if *a.dst, err = listAttr(n, a.name); err != nil {
			return nil, err
		}
	}
	if p.rotate, err = numberListAttr(n, "rotate"); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) glyph(n *dom.Node, i int) (Glyph, error) {
	glyphs, err := e.Layout(n)
	if err != nil {
		return Glyph{}, err
	}
	if err := textlayout.CheckIndex(i, len(glyphs)); err != nil {
		return Glyph{}, err
	}
	return glyphs[i], nil
}

// NumChars 以空白处理之后的 rune 计数，不需要加载字体。
func (e *Engine) NumChars(n *dom.Node) (int, error) {
	if err := textlayout.CheckText(n); err != nil {
		return 0, err
	}
	count := 0
	for _, c := range textlayout.Characters(textlayout.Root(n)) {
		if textlayout.Within(c.Owner, n) {
			count++
		}
	}
	return count, nil
}

func (e *Engine) StartPosition(n *dom.Node, i int) (geom.Point, error) {
	g, err := e.glyph(n, i)
	if err != nil {
		return geom.Point{}, err
	}
	return g.Origin, nil
}

func (e *Engine) EndPosition(n *dom.Node, i int) (geom.Point, error) {
	g, err := e.glyph(n, i)
	if err != nil {
		return geom.Point{}, err
	}
	return g.End(), nil
}

func (e *Engine) Rotation(n *dom.Node, i int) (float64, error) {
	g, err := e.glyph(n, i)
	if err != nil {
		return 0, err
	}
	return g.Rotate, nil
}

func (e *Engine) Extent(n *dom.Node, i int) (geom.Rect, error) {
	g, err := e.glyph(n, i)
	if err != nil {
		return geom.Rect{}, err
	}
	return g.Cell(), nil
}

// ComputedLength 是全部字符前进宽度之和。
func (e *Engine) ComputedLength(n *dom.Node) (float64, error) {
	glyphs, err := e.Layout(n)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, g := range glyphs {
		total += g.Advance
	}
	return total, nil
}

// SubStringLength sums the advances of count characters starting at from.
// count 超出末尾时截到最后一个字符；count 为 0 时返回 0。
func (e *Engine) SubStringLength(n *dom.Node, from, count int) (float64, error) {
	glyphs, err := e.Layout(n)
	if err != nil {
		return 0, err
	}
	if err := textlayout.CheckIndex(from, len(glyphs)); err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, fmt.Errorf("%w: count=%d", textlayout.ErrIndexOutOfRange, count)
	}
	total := 0.0
	for _, g := range glyphs[from:min(from+count, len(glyphs))] {
		total += g.Advance
	}
	return total, nil
}

// CharNumAtPosition returns the index of the character whose cell contains p, or -1.
// 字符重叠时取最后绘制的那个。
func (e *Engine) CharNumAtPosition(n *dom.Node, p geom.Point) (int, error) {
	glyphs, err := e.Layout(n)
	if err != nil {
		return -1, err
	}
	for i := len(glyphs) - 1; i >= 0; i-- {
		if glyphs[i].Contains(p) {
			return i, nil
		}
	}
	return -1, nil
}

// FaceFor resolves the inherited font-family/font-size/fill of n into a canvas face.
func (e *Engine) FaceFor(n *dom.Node) (*canvas.FontFace, error) {
	size := e.defaultFontSize
	if v, ok := n.InheritedAttr("font-size"); ok {
		l, err := geom.ParseLength(v)
		if err != nil {
			return nil, fmt.Errorf("font-size 无效: %w", err)
		}
		if l.ToUser() > 0 {
			size = l.ToUser()
		}
	}
	font := e.resolveFontResource(n)
	if style, ok := n.InheritedAttr("font-weight"); ok && font.Style == "" {
		font.Style = style
	}
	fill, err := paint.Resolve(n, "fill", canvas.Black)
	if err != nil {
		return nil, err
	}
	family, style, err := e.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	// 字号在文档中为用户单位（mm），字体系统使用 pt。
	return family.Face(size*geom.MmToPt, fill, style, canvas.FontNormal), nil
}

func (e *Engine) resolveFontResource(n *dom.Node) textlayout.FontResource {
	name, _ := n.InheritedAttr("font-family")
	for _, candidate := range strings.Split(name, ",") {
		candidate = strings.Trim(strings.TrimSpace(candidate), `"'`)
		if candidate == "" {
			continue
		}
		if f, ok := e.fonts[candidate]; ok {
			return f
		}
		if _, err := fonts.Load(candidate); err == nil {
			return textlayout.FontResource{Name: candidate, Src: "builtin:" + candidate}
		}
	}
	return textlayout.FontResource{Name: fonts.Default, Src: "builtin:" + fonts.Default}
}

func (e *Engine) ensureFontFamily(font textlayout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fmt.Sprintf("%s|%s|%s", font.Name, font.Src, font.Style)
	e.fontMu.Lock()
	defer e.fontMu.Unlock()

	if entry, ok := e.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(font.Style)
	family := canvas.NewFontFamily(font.Name)
	if err := e.loadFontIntoFamily(family, font, style); err != nil {
		fallback, fbErr := e.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		e.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: canvas.FontRegular}
		return fallback, canvas.FontRegular, nil
	}
	e.fontFamilies[key] = &fontFamilyEntry{family: family, style: style}
	return family, style, nil
}

func (e *Engine) loadFontIntoFamily(family *canvas.FontFamily, font textlayout.FontResource, style canvas.FontStyle) error {
	data, err := e.loadFontBytes(font)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

func (e *Engine) loadFontBytes(font textlayout.FontResource) ([]byte, error) {
	src := font.Src
	if src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	if strings.HasPrefix(src, "builtin:") || strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	path := src
	if e.baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 builtin:）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.baseDir, path)
	}
	return os.ReadFile(path)
}

// fallback 需在持有 fontMu 时调用。
func (e *Engine) fallback() (*canvas.FontFamily, error) {
	if e.fallbackFamily != nil {
		return e.fallbackFamily, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("glyphprobe-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	e.fallbackFamily = family
	return family, nil
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(strings.TrimSpace(style))
	if s == "" {
		return canvas.FontRegular
	}
	result := canvas.FontRegular
	switch {
	case strings.Contains(s, "black"), s == "900":
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"), s == "800":
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"), s == "600":
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"), s == "700":
		result = canvas.FontBold
	case strings.Contains(s, "medium"), s == "500":
		result = canvas.FontMedium
	case strings.Contains(s, "light"), s == "300":
		result = canvas.FontLight
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func listAttr(n *dom.Node, name string) ([]float64, error) {
	v, ok := n.Attr(name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, nil
	}
	out, err := geom.ParseUserList(v)
	if err != nil {
		return nil, fmt.Errorf("属性 %s 无效: %w", name, err)
	}
	return out, nil
}

func numberListAttr(n *dom.Node, name string) ([]float64, error) {
	v, ok := n.Attr(name)
	if !ok {
		return nil, nil
	}
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		num, err := strconv.ParseFloat(strings.TrimSuffix(f, "deg"), 64)
		if err != nil {
			return nil, fmt.Errorf("属性 %s 无效: %w", name, err)
		}
		out = append(out, num)
	}
	return out, nil
}
