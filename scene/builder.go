package scene

import (
	"fmt"
	"strings"

	"github.com/ByLCY/glyphprobe/binding"
	"github.com/ByLCY/glyphprobe/dom"
	"github.com/ByLCY/glyphprobe/dsl"
	"github.com/ByLCY/glyphprobe/geom"
	"github.com/ByLCY/glyphprobe/textlayout"
)

// 需要换算为用户单位（mm）的几何属性，值可以是列表。
var lengthAttrs = map[string]bool{
	"x": true, "y": true, "dx": true, "dy": true,
	"x1": true, "y1": true, "x2": true, "y2": true,
	"cx": true, "cy": true, "r": true, "rx": true, "ry": true,
	"width": true, "height": true,
	"font-size": true, "stroke-width": true, "textLength": true,
}

var colorAttrs = map[string]bool{"fill": true, "stroke": true, "color": true, "stop-color": true}

var attrAliases = map[string]string{
	"font":   "font-family",
	"size":   "font-size",
	"weight": "font-weight",
}

// Build 根据场景 AST 生成文档树；data 用于 ${} 插值，可以为 nil。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Scene, error) {
	if doc == nil {
		return nil, fmt.Errorf("场景为空")
	}
	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	meta := collectMeta(doc, data)
	canvas := firstCanvas(doc)
	if canvas == nil {
		return nil, fmt.Errorf("场景中缺少 canvas 段落")
	}

	width, height, err := resolveCanvasSize(canvas, opts)
	if err != nil {
		return nil, err
	}

	d := dom.NewDocument("svg")
	d.Root.SetAttr("width", geom.FormatNumber(width)+"mm")
	d.Root.SetAttr("height", geom.FormatNumber(height)+"mm")
	d.Root.SetAttr("viewBox", "0 0 "+geom.FormatNumber(width)+" "+geom.FormatNumber(height))
	if meta.Title != "" {
		title := d.CreateElement("title")
		title.AppendChild(d.CreateTextNode(meta.Title))
		d.Root.AppendChild(title)
	}

	b := &builder{doc: d, res: res, data: data}
	if err := b.block(canvas.Block, d.Root); err != nil {
		return nil, err
	}
	return &Scene{Doc: d, Resources: res, Meta: meta, Width: width, Height: height}, nil
}

type builder struct {
	doc  *dom.Document
	res  ResourceSet
	data any
}

// block 依次处理子语句：命令生成子元素，赋值写入 parent 的属性，字符串生成文本节点。
func (b *builder) block(block *dsl.Block, parent *dom.Node) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Statements {
		switch {
		case stmt.Command != nil:
			if err := b.command(stmt.Command, parent); err != nil {
				return err
			}
		case stmt.Assignment != nil:
			as := stmt.Assignment
			if err := b.setAttr(parent, as.Key, as.Value.Text()); err != nil {
				return fmt.Errorf("第 %d 行 %s: %w", as.Pos.Line, as.Key, err)
			}
		case stmt.Text != nil:
			content := binding.Interpolate(string(stmt.Text.Value), b.data)
			parent.AppendChild(b.doc.CreateTextNode(content))
		}
	}
	return nil
}

func (b *builder) command(cmd *dsl.Command, parent *dom.Node) error {
	switch cmd.Name {
	case "font", "color", "meta", "resources", "canvas":
		return fmt.Errorf("第 %d 行: %s 不能出现在 canvas 中", cmd.Pos.Line, cmd.Name)
	}
	el := b.doc.CreateElement(cmd.Name)
	attrs, err := parseArgs(cmd.Args)
	if err != nil {
		return fmt.Errorf("第 %d 行 %s: %w", cmd.Pos.Line, cmd.Name, err)
	}
	for _, kv := range attrs {
		if err := b.setAttr(el, kv[0], kv[1]); err != nil {
			return fmt.Errorf("第 %d 行 %s: %w", cmd.Pos.Line, cmd.Name, err)
		}
	}
	parent.AppendChild(el)
	return b.block(cmd.Block, el)
}

func (b *builder) setAttr(el *dom.Node, key, value string) error {
	if alias, ok := attrAliases[key]; ok {
		key = alias
	}
	value = binding.Interpolate(value, b.data)
	switch {
	case lengthAttrs[key]:
		values, err := geom.ParseMMList(value)
		if err != nil {
			return err
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = geom.FormatNumber(v)
		}
		value = strings.Join(parts, " ")
	case colorAttrs[key]:
		if hex, ok := b.res.Colors[value]; ok {
			value = hex
		}
	}
	el.SetAttr(key, value)
	return nil
}

// parseArgs 把 `key value key value` 形式的参数拆成有序的键值对。
func parseArgs(args []*dsl.Lexeme) ([][2]string, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("参数必须成对出现（key value），实际 %d 个", len(args))
	}
	out := make([][2]string, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if args[i].Type != "Ident" {
			return nil, fmt.Errorf("参数名 %q 不是标识符", args[i].Raw)
		}
		out = append(out, [2]string{args[i].Value, args[i+1].Value})
	}
	return out, nil
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]textlayout.FontResource{},
		Colors: map[string]string{},
	}
	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			cmd := stmt.Command
			if cmd == nil {
				continue
			}
			switch cmd.Name {
			case "font":
				font, err := parseFontResource(cmd)
				if err != nil {
					return ResourceSet{}, err
				}
				res.Fonts[font.Name] = font
			case "color":
				name, hex, err := parseColorResource(cmd)
				if err != nil {
					return ResourceSet{}, err
				}
				res.Colors[name] = hex
			default:
				return ResourceSet{}, fmt.Errorf("第 %d 行: 未知资源类型 %s", cmd.Pos.Line, cmd.Name)
			}
		}
	}
	return res, nil
}

// parseFontResource 支持块形式 `font Body { src: "..." style: "bold" }`
// 以及行内形式 `font Body src "..."`。
func parseFontResource(cmd *dsl.Command) (textlayout.FontResource, error) {
	if len(cmd.Args) == 0 {
		return textlayout.FontResource{}, fmt.Errorf("第 %d 行: font 缺少名称", cmd.Pos.Line)
	}
	font := textlayout.FontResource{Name: cmd.Args[0].Value}
	inline, err := parseArgs(cmd.Args[1:])
	if err != nil {
		return font, fmt.Errorf("第 %d 行 font %s: %w", cmd.Pos.Line, font.Name, err)
	}
	set := func(key, value string) {
		switch key {
		case "src":
			font.Src = value
		case "style", "weight":
			font.Style = value
		}
	}
	for _, kv := range inline {
		set(kv[0], kv[1])
	}
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Assignment != nil {
				set(stmt.Assignment.Key, stmt.Assignment.Value.Text())
			}
		}
	}
	if font.Src == "" {
		return font, fmt.Errorf("第 %d 行: 字体 %s 缺少 src", cmd.Pos.Line, font.Name)
	}
	return font, nil
}

// parseColorResource 接受 `color Accent #0F62FE` 或 `color Accent = #0F62FE`。
func parseColorResource(cmd *dsl.Command) (string, string, error) {
	var parts []string
	for _, a := range cmd.Args {
		if a.Value == "=" {
			continue
		}
		parts = append(parts, a.Value)
	}
	if len(parts) != 2 || !strings.HasPrefix(parts[1], "#") {
		return "", "", fmt.Errorf("第 %d 行: color 需要名称与 #RRGGBB 值", cmd.Pos.Line)
	}
	return parts[0], parts[1], nil
}

func collectMeta(doc *dsl.Document, data any) Meta {
	var meta Meta
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			as := stmt.Assignment
			if as == nil {
				continue
			}
			value := binding.Interpolate(as.Value.Text(), data)
			switch as.Key {
			case "title":
				meta.Title = value
			case "author":
				meta.Author = value
			case "subject":
				meta.Subject = value
			case "creator":
				meta.Creator = value
			case "keywords":
				meta.Keywords = as.Value.Strings()
			}
		}
	}
	return meta
}

func firstCanvas(doc *dsl.Document) *dsl.CanvasSection {
	for _, section := range doc.Sections {
		if section.Canvas != nil {
			return section.Canvas
		}
	}
	return nil
}

func resolveCanvasSize(c *dsl.CanvasSection, opts BuildOptions) (float64, float64, error) {
	width, height := opts.DefaultWidth, opts.DefaultHeight
	if width <= 0 {
		width = a4Width
	}
	if height <= 0 {
		height = a4Height
	}
	if len(c.Params) > 2 {
		return 0, 0, fmt.Errorf("第 %d 行: canvas 最多接受宽、高两个参数", c.Pos.Line)
	}
	dims := []*float64{&width, &height}
	for i, p := range c.Params {
		l, err := geom.ParseLength(p.Value)
		if err != nil {
			return 0, 0, fmt.Errorf("第 %d 行 canvas: %w", c.Pos.Line, err)
		}
		if l.ToMM() <= 0 {
			return 0, 0, fmt.Errorf("第 %d 行 canvas: 尺寸必须为正数", c.Pos.Line)
		}
		*dims[i] = l.ToMM()
	}
	return width, height, nil
}
