// Package annotate 遍历文档树，为每个文本元素查询逐字符度量并在标注层中插入标记元素。
package annotate

import (
	"errors"
	"fmt"

	"github.com/ByLCY/glyphprobe/dom"
	"github.com/ByLCY/glyphprobe/geom"
	"github.com/ByLCY/glyphprobe/textlayout"
)

var (
	ErrRootNotFound        = errors.New("annotate: 根节点不存在")
	ErrProviderUnavailable = errors.New("annotate: 缺少文本度量提供者")
	ErrUnknownMode         = errors.New("annotate: 未知模式")
	ErrOverlayConflict     = errors.New("annotate: 标注层 id 已被非 g 元素占用")
)

// resetter 由带缓存的提供者实现，每次标注开始前清空缓存。
type resetter interface {
	Reset()
}

// Annotator 是单线程、同步的：一次调用在返回前完成整个遍历。
// 同一文档被多个 goroutine 共享时由调用方负责串行化。
type Annotator struct {
	provider textlayout.Provider
	opts     Options
	skip     map[string]bool
}

// New creates an annotator. A nil provider is reported by Annotate, not here.
func New(p textlayout.Provider, opts Options) *Annotator {
	opts = opts.withDefaults()
	skip := make(map[string]bool, len(opts.SkipTags))
	for _, t := range opts.SkipTags {
		skip[t] = true
	}
	return &Annotator{provider: p, opts: opts, skip: skip}
}

// Options returns the effective options.
func (a *Annotator) Options() Options { return a.opts }

// Annotate 解析 rootID 后标注其子树。rootID 为空时使用文档根元素。
func (a *Annotator) Annotate(doc *dom.Document, rootID string, mode Mode) (*Report, error) {
	if doc == nil || doc.Root == nil {
		return nil, fmt.Errorf("%w: 文档为空", ErrRootNotFound)
	}
	root := doc.Root
	if rootID != "" {
		root = doc.GetElementByID(rootID)
		if root == nil {
			return nil, fmt.Errorf("%w: id=%q", ErrRootNotFound, rootID)
		}
	}
	return a.AnnotateNode(root, mode)
}

// AnnotateNode 标注 root 的子树（root 自身是文本元素时也会被标注）。
// 出错时立即返回；已插入的标记保留，不做回滚。
func (a *Annotator) AnnotateNode(root *dom.Node, mode Mode) (*Report, error) {
	if a.provider == nil {
		return nil, ErrProviderUnavailable
	}
	if root == nil || root.OwnerDocument() == nil {
		return nil, ErrRootNotFound
	}
	if mode < ModeStartPosition || mode > ModeExtent {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}

	doc := root.OwnerDocument()
	overlay, created, err := a.Overlay(doc)
	if err != nil {
		return nil, err
	}
	if r, ok := a.provider.(resetter); ok {
		r.Reset()
	}
	report := &Report{Mode: mode, OverlayID: a.opts.OverlayID, OverlayCreated: created}
	if a.opts.ClearBefore {
		report.Cleared = overlay.RemoveChildren()
	}

	w := &walker{a: a, mode: mode, overlay: overlay, report: report}
	if root.IsElement(a.opts.TextTag) {
		err = w.annotate(root)
	} else {
		err = w.visit(root)
	}
	if err != nil {
		return report, err
	}
	a.opts.Logger.Info("标注完成",
		"mode", mode.String(),
		"texts", report.TextElements,
		"markers", report.Markers,
		"overlay_created", created)
	return report, nil
}

// Overlay 查找或创建标注层，返回值 created 表示本次是否新建。
// 标注层挂在文档根元素下，每个文档最多创建一次；id 已被其他元素占用时返回 ErrOverlayConflict。
func (a *Annotator) Overlay(doc *dom.Document) (*dom.Node, bool, error) {
	if g := doc.GetElementByID(a.opts.OverlayID); g != nil {
		if !g.IsElement("g") {
			return nil, false, fmt.Errorf("%w: id=%q element=<%s>", ErrOverlayConflict, a.opts.OverlayID, g.LocalName)
		}
		return g, false, nil
	}
	g := doc.CreateElement("g")
	g.SetAttr("id", a.opts.OverlayID)
	g.SetAttr("fill", "none")
	doc.Root.AppendChild(g)
	return g, true, nil
}

type walker struct {
	a       *Annotator
	mode    Mode
	overlay *dom.Node
	report  *Report
}

// visit 以 first-child/next-sibling 顺序递归遍历。
func (w *walker) visit(n *dom.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != dom.ElementNode || c == w.overlay {
			continue
		}
		switch {
		case c.LocalName == w.a.opts.TextTag:
			if err := w.annotate(c); err != nil {
				return err
			}
		case w.a.skip[c.LocalName]:
			continue
		default:
			if err := w.visit(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) annotate(n *dom.Node) error {
	p := w.a.provider
	count, err := p.NumChars(n)
	if err != nil {
		return w.fail(n, -1, err)
	}
	w.report.TextElements++
	w.a.opts.Logger.Debug("标注文本元素", "id", n.ID(), "chars", count, "mode", w.mode.String())

	if w.mode == ModeComputedLength {
		if count == 0 {
			return nil
		}
		length, err := p.ComputedLength(n)
		if err != nil {
			return w.fail(n, -1, err)
		}
		start, err := p.StartPosition(n, 0)
		if err != nil {
			return w.fail(n, 0, err)
		}
		w.emit(w.lengthMarker(start, length), n, -1, Sample{Start: &start, Length: &length})
		return nil
	}

	for i := 0; i < count; i++ {
		switch w.mode {
		case ModeStartPosition, ModeEndPosition:
			query := p.StartPosition
			if w.mode == ModeEndPosition {
				query = p.EndPosition
			}
			pt, err := query(n, i)
			if err != nil {
				return w.fail(n, i, err)
			}
			s := Sample{Start: &pt}
			if w.mode == ModeEndPosition {
				s = Sample{End: &pt}
			}
			w.emit(w.pointMarker(pt, i), n, i, s)
		case ModeRotation:
			angle, err := p.Rotation(n, i)
			if err != nil {
				return w.fail(n, i, err)
			}
			start, err := p.StartPosition(n, i)
			if err != nil {
				return w.fail(n, i, err)
			}
			end, err := p.EndPosition(n, i)
			if err != nil {
				return w.fail(n, i, err)
			}
			mid := geom.Midpoint(start, end)
			w.emit(w.rotationMarker(mid, angle, i), n, i, Sample{Start: &start, End: &end, Rotation: &angle})
		case ModeExtent:
			r, err := p.Extent(n, i)
			if err != nil {
				return w.fail(n, i, err)
			}
			w.emit(w.extentMarker(r, i), n, i, Sample{Extent: &r})
		}
	}
	return nil
}

func (w *walker) emit(marker *dom.Node, text *dom.Node, index int, s Sample) {
	w.overlay.AppendChild(marker)
	w.report.Markers++
	if w.a.opts.Debug.Samples {
		s.Element = text.ID()
		s.Index = index
		w.report.Samples = append(w.report.Samples, s)
	}
}

func (w *walker) fail(n *dom.Node, index int, err error) error {
	id := n.ID()
	if id == "" {
		id = "<" + n.LocalName + ">"
	}
	if index < 0 {
		return fmt.Errorf("标注 %s 失败（%s）: %w", id, w.mode, err)
	}
	return fmt.Errorf("标注 %s 第 %d 个字符失败（%s）: %w", id, index, w.mode, err)
}
