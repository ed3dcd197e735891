package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/glyphprobe/dom"
	"github.com/ByLCY/glyphprobe/geom"
	"github.com/ByLCY/glyphprobe/paint"
	"github.com/ByLCY/glyphprobe/renderer"
	"github.com/ByLCY/glyphprobe/scene"
	canvaslayout "github.com/ByLCY/glyphprobe/textlayout/canvas"
)

// SVG 未设置 stroke-width 时的线宽（用户单位）。
const defaultStrokeWidth = 1.0

// Format 是输出文件格式。
type Format string

const (
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "pdf" or "svg" (case-insensitive); "" means pdf.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPDF, nil
	case FormatPDF, FormatSVG:
		return f, nil
	default:
		return "", fmt.Errorf("不支持的输出格式 %q（可选 pdf、svg）", s)
	}
}

// 这些元素及其子树不产生可见输出。
var skippedElements = map[string]bool{
	"defs": true, "metadata": true, "title": true, "desc": true,
	"style": true, "script": true, "symbol": true, "clipPath": true,
	"mask": true, "marker": true, "linearGradient": true, "radialGradient": true,
}

// Renderer draws dom documents via github.com/tdewolff/canvas.
type Renderer struct {
	baseDir string
	format  Format
	engine  *canvaslayout.Engine
	meta    scene.Meta
	logger  *slog.Logger
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Format  Format
	// Engine 提供文本排版；为 nil 时按 BaseDir 新建一个，只能使用内置字体与路径字体。
	Engine *canvaslayout.Engine
	Meta   scene.Meta // 写入 PDF 文档信息
	Logger *slog.Logger
}

// NewRenderer creates a PDF renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with the given options.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir: opts.BaseDir,
		format:  opts.Format,
		engine:  opts.Engine,
		meta:    opts.Meta,
		logger:  opts.Logger,
	}
	if r.format == "" {
		r.format = FormatPDF
	}
	if r.engine == nil {
		r.engine = canvaslayout.New(canvaslayout.Options{BaseDir: opts.BaseDir})
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Render renders the document into PDF or SVG bytes.
func (r *Renderer) Render(doc *dom.Document) ([]byte, error) {
	if doc == nil || doc.Root == nil {
		return nil, fmt.Errorf("渲染文档为空")
	}
	width, height, err := pageSize(doc.Root)
	if err != nil {
		return nil, err
	}

	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 与文档坐标一致，左上角为原点、y 轴向下
	if view, ok := viewBoxMatrix(doc.Root, width, height); ok {
		ctx.ComposeView(view)
	}
	if err := r.drawChildren(ctx, doc.Root); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch r.format {
	case FormatSVG:
		writer := svg.New(&buf, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 SVG 失败: %w", err)
		}
	case FormatPDF:
		writer := pdf.New(&buf, width, height, nil)
		r.applyMeta(writer)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的输出格式 %q", r.format)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF) {
	keywords := strings.Join(r.meta.Keywords, ", ")
	writer.SetInfo(r.meta.Title, r.meta.Subject, keywords, r.meta.Author, r.meta.Creator)
}

func (r *Renderer) drawChildren(ctx *canvas.Context, parent *dom.Node) error {
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != dom.ElementNode {
			continue
		}
		if err := r.drawElement(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawElement(ctx *canvas.Context, n *dom.Node) error {
	if skippedElements[n.LocalName] || n.GetAttr("display") == "none" {
		return nil
	}
	m, err := geom.ParseTransform(n.GetAttr("transform"))
	if err != nil {
		return fmt.Errorf("%s: %w", describe(n), err)
	}
	ctx.Push()
	defer ctx.Pop()
	if m != geom.Identity {
		ctx.ComposeView(toCanvasMatrix(m))
	}

	switch n.LocalName {
	case "g", "a", "svg":
		return r.drawChildren(ctx, n)
	case "text":
		return r.drawText(ctx, n)
	case "rect":
		return r.drawRect(ctx, n)
	case "line":
		return r.drawLine(ctx, n)
	case "circle":
		return r.drawCircle(ctx, n)
	case "ellipse":
		return r.drawEllipse(ctx, n)
	case "path":
		return r.drawPath(ctx, n)
	case "image":
		return r.drawImage(ctx, n)
	default:
		r.logger.Debug("跳过不支持的元素", "element", describe(n))
		return nil
	}
}

// drawText 逐字符绘制：位置与旋转取自 canvaslayout，和标注使用的度量一致。
func (r *Renderer) drawText(ctx *canvas.Context, n *dom.Node) error {
	glyphs, err := r.engine.Layout(n)
	if err != nil {
		return fmt.Errorf("排版 %s 失败: %w", describe(n), err)
	}
	for _, g := range glyphs {
		// fill 可在 tspan 上单独设为 none
		if unicode.IsSpace(g.Rune) || fillNone(g.Owner) {
			continue
		}
		line := canvas.NewTextLine(g.Face, string(g.Rune), canvas.Left)
		ctx.Push()
		ctx.ComposeView(canvas.Identity.Translate(g.Origin.X, g.Origin.Y).Rotate(g.Rotate))
		ctx.DrawText(0, 0, line)
		ctx.Pop()
	}
	return nil
}

func (r *Renderer) drawRect(ctx *canvas.Context, n *dom.Node) error {
	v, err := lengths(n, "x", "y", "width", "height")
	if err != nil {
		return err
	}
	if v[2] <= 0 || v[3] <= 0 {
		return nil
	}
	if err := r.applyPaint(ctx, n, true); err != nil {
		return err
	}
	ctx.DrawPath(v[0], v[1], canvas.Rectangle(v[2], v[3]))
	return nil
}

// drawLine 绘制直线（毫米单位），线段没有填充。
func (r *Renderer) drawLine(ctx *canvas.Context, n *dom.Node) error {
	v, err := lengths(n, "x1", "y1", "x2", "y2")
	if err != nil {
		return err
	}
	if err := r.applyPaint(ctx, n, false); err != nil {
		return err
	}
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(v[2]-v[0], v[3]-v[1])
	ctx.DrawPath(v[0], v[1], p)
	return nil
}

// drawCircle 绘制圆形，canvas.Circle 以原点为圆心。
func (r *Renderer) drawCircle(ctx *canvas.Context, n *dom.Node) error {
	v, err := lengths(n, "cx", "cy", "r")
	if err != nil {
		return err
	}
	if v[2] <= 0 {
		return nil
	}
	if err := r.applyPaint(ctx, n, true); err != nil {
		return err
	}
	ctx.DrawPath(v[0], v[1], canvas.Circle(v[2]))
	return nil
}

func (r *Renderer) drawEllipse(ctx *canvas.Context, n *dom.Node) error {
	v, err := lengths(n, "cx", "cy", "rx", "ry")
	if err != nil {
		return err
	}
	if v[2] <= 0 || v[3] <= 0 {
		return nil
	}
	if err := r.applyPaint(ctx, n, true); err != nil {
		return err
	}
	ctx.DrawPath(v[0], v[1], canvas.Ellipse(v[2], v[3]))
	return nil
}

func (r *Renderer) drawPath(ctx *canvas.Context, n *dom.Node) error {
	d := strings.TrimSpace(n.GetAttr("d"))
	if d == "" {
		return nil
	}
	p, err := canvas.ParseSVGPath(d)
	if err != nil {
		return fmt.Errorf("%s 的 d 属性无效: %w", describe(n), err)
	}
	if err := r.applyPaint(ctx, n, true); err != nil {
		return err
	}
	ctx.DrawPath(0, 0, p)
	return nil
}

func (r *Renderer) drawImage(ctx *canvas.Context, n *dom.Node) error {
	href := n.GetAttr("href")
	if href == "" {
		href = n.GetAttr("xlink:href")
	}
	if href == "" {
		return nil
	}
	if r.baseDir == "" && !filepath.IsAbs(href) {
		return fmt.Errorf("未指定资源目录时不允许直接使用图片路径：%s", href)
	}
	path := href
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("读取图片 %s 失败: %w", href, err)
	}
	img, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("解码图片 %s 失败: %w", href, err)
	}

	v, err := lengths(n, "x", "y", "width")
	if err != nil {
		return err
	}
	width := v[2]
	if width <= 0 {
		width = float64(img.Bounds().Dx())
	}
	dpmm := float64(img.Bounds().Dx()) / width
	if dpmm <= 0 {
		dpmm = 1
	}
	ctx.DrawImage(v[0], v[1], img, canvas.DPMM(dpmm))
	return nil
}

// applyPaint 设置填充与描边；fill 与 stroke 沿祖先继承，fill 默认黑色，stroke 默认无。
func (r *Renderer) applyPaint(ctx *canvas.Context, n *dom.Node, fillable bool) error {
	fill := paint.Transparent
	if fillable {
		c, err := paint.Resolve(n, "fill", canvas.Black)
		if err != nil {
			return fmt.Errorf("%s: %w", describe(n), err)
		}
		fill = c
	}
	stroke, err := paint.Resolve(n, "stroke", paint.Transparent)
	if err != nil {
		return fmt.Errorf("%s: %w", describe(n), err)
	}
	width := defaultStrokeWidth
	if v, ok := n.InheritedAttr("stroke-width"); ok {
		l, err := geom.ParseLength(v)
		if err != nil {
			return fmt.Errorf("%s 的 stroke-width 无效: %w", describe(n), err)
		}
		width = l.ToUser()
	}
	ctx.SetFillColor(fill)
	ctx.SetStrokeColor(stroke)
	ctx.SetStrokeWidth(width)
	return nil
}

func fillNone(n *dom.Node) bool {
	v, ok := n.InheritedAttr("fill")
	return ok && paint.IsNone(v)
}

// lengths 读取若干长度属性并换算为用户单位，缺省为 0。
func lengths(n *dom.Node, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := n.Attr(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		l, err := geom.ParseLength(v)
		if err != nil {
			return nil, fmt.Errorf("%s 的 %s 无效: %w", describe(n), name, err)
		}
		out[i] = l.ToUser()
	}
	return out, nil
}

// pageSize 取根元素的 width/height，缺失时退回 viewBox 尺寸。
func pageSize(root *dom.Node) (float64, float64, error) {
	size, err := lengths(root, "width", "height")
	if err != nil {
		return 0, 0, err
	}
	if vb, ok := viewBox(root); ok {
		if size[0] <= 0 {
			size[0] = vb[2]
		}
		if size[1] <= 0 {
			size[1] = vb[3]
		}
	}
	if size[0] <= 0 || size[1] <= 0 {
		return 0, 0, fmt.Errorf("无法确定画布尺寸：根元素缺少 width/height 或 viewBox")
	}
	return size[0], size[1], nil
}

func viewBox(root *dom.Node) ([]float64, bool) {
	v, ok := root.Attr("viewBox")
	if !ok {
		return nil, false
	}
	vb, err := geom.ParseUserList(v)
	if err != nil || len(vb) != 4 || vb[2] <= 0 || vb[3] <= 0 {
		return nil, false
	}
	return vb, true
}

// viewBoxMatrix 把 viewBox 映射到页面，不保持宽高比（preserveAspectRatio=none）。
func viewBoxMatrix(root *dom.Node, width, height float64) (canvas.Matrix, bool) {
	vb, ok := viewBox(root)
	if !ok {
		return canvas.Identity, false
	}
	sx, sy := width/vb[2], height/vb[3]
	if sx == 1 && sy == 1 && vb[0] == 0 && vb[1] == 0 {
		return canvas.Identity, false
	}
	return canvas.Identity.Scale(sx, sy).Translate(-vb[0], -vb[1]), true
}

func toCanvasMatrix(m geom.Matrix) canvas.Matrix {
	return canvas.Matrix{{m.A, m.C, m.E}, {m.B, m.D, m.F}}
}

func describe(n *dom.Node) string {
	if id := n.ID(); id != "" {
		return fmt.Sprintf("<%s id=%q>", n.LocalName, id)
	}
	return "<" + n.LocalName + ">"
}
