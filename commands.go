package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/glyphprobe/annotate"
	"github.com/ByLCY/glyphprobe/config"
	"github.com/ByLCY/glyphprobe/dom"
	"github.com/ByLCY/glyphprobe/dsl"
	"github.com/ByLCY/glyphprobe/geom"
	canvasrenderer "github.com/ByLCY/glyphprobe/renderer/canvas"
	"github.com/ByLCY/glyphprobe/scene"
	"github.com/ByLCY/glyphprobe/textlayout"
	canvaslayout "github.com/ByLCY/glyphprobe/textlayout/canvas"
)

// AnnotateCmd implements the 'annotate' command.
type AnnotateCmd struct {
	Input   string `arg:"" help:"输入文件：.svg 按 SVG 解析，其余按场景 DSL 解析"`
	Mode    string `short:"m" help:"标注模式，覆盖配置文件（见 modes 命令）"`
	Root    string `short:"r" help:"从该 id 的元素开始遍历，默认文档根元素"`
	Clear   bool   `help:"标注前清空标注层中已有的标记"`
	Out     string `short:"o" help:"输出路径，默认写到标准输出"`
	Format  string `short:"f" help:"输出格式 xml|svg|pdf，覆盖配置文件"`
	Data    string `help:"绑定到场景 DSL 的 JSON 数据"`
	Report  string `help:"标注报告 JSON 输出路径"`
	Samples bool   `help:"在报告中记录每个度量样本"`
}

// Run 串联解析、标注与输出。
func (c *AnnotateCmd) Run(g *Global) error {
	cfg := *g.Config
	if c.Mode != "" {
		cfg.Annotate.Mode = c.Mode
	}
	if c.Clear {
		cfg.Annotate.ClearBefore = true
	}
	if c.Format != "" {
		cfg.Output.Format = strings.ToLower(c.Format)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, err := annotate.ParseMode(cfg.Annotate.Mode)
	if err != nil {
		return err
	}

	in, err := loadInput(c.Input, c.Data)
	if err != nil {
		return err
	}
	engine, err := newEngine(&cfg, c.Input, in)
	if err != nil {
		return err
	}

	opts, err := cfg.Annotate.Options()
	if err != nil {
		return err
	}
	opts.Logger = g.Logger
	opts.Debug.Samples = c.Samples

	report, err := annotate.New(engine, opts).Annotate(in.doc, c.Root, mode)
	if c.Report != "" && report != nil {
		if werr := writeReport(report, c.Report); werr != nil {
			return werr
		}
	}
	if err != nil {
		return fmt.Errorf("标注失败: %w", err)
	}

	var buf bytes.Buffer
	switch cfg.Output.Format {
	case "xml":
		if err := in.doc.Write(&buf); err != nil {
			return fmt.Errorf("序列化文档失败: %w", err)
		}
	default:
		format, err := canvasrenderer.ParseFormat(cfg.Output.Format)
		if err != nil {
			return err
		}
		r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
			BaseDir: baseDir(&cfg, c.Input),
			Format:  format,
			Engine:  engine,
			Meta:    in.meta,
			Logger:  g.Logger,
		})
		out, err := r.Render(in.doc)
		if err != nil {
			return fmt.Errorf("渲染失败: %w", err)
		}
		buf.Write(out)
	}
	return g.emit(c.Out, buf.Bytes())
}

// InspectCmd implements the 'inspect' command.
type InspectCmd struct {
	Input  string    `arg:"" help:"输入文件：.svg 按 SVG 解析，其余按场景 DSL 解析"`
	Data   string    `help:"绑定到场景 DSL 的 JSON 数据"`
	Out    string    `short:"o" help:"输出路径，默认写到标准输出"`
	At     []float64 `help:"命中测试点 x,y（用户单位），输出每个文本在该点的字符下标"`
	Substr []int     `help:"子串 from,count，输出每个文本该区间的前进宽度之和"`
}

type charMetrics struct {
	Index    int        `json:"index"`
	Char     string     `json:"char"`
	Start    geom.Point `json:"start"`
	End      geom.Point `json:"end"`
	Advance  float64    `json:"advance"`
	Rotation float64    `json:"rotation"`
	Extent   geom.Rect  `json:"extent"`
}

type textMetrics struct {
	ID              string        `json:"id,omitempty"`
	Text            string        `json:"text"`
	ComputedLength  float64       `json:"computedLength"`
	CharAt          *int          `json:"charAt,omitempty"`
	SubstringLength *float64      `json:"substringLength,omitempty"`
	Chars           []charMetrics `json:"chars"`
}

// Run prints per-character metrics of every text element as JSON.
func (c *InspectCmd) Run(g *Global) error {
	if len(c.At) != 0 && len(c.At) != 2 {
		return fmt.Errorf("--at 需要 x,y 两个值")
	}
	if len(c.Substr) != 0 && len(c.Substr) != 2 {
		return fmt.Errorf("--substr 需要 from,count 两个值")
	}
	in, err := loadInput(c.Input, c.Data)
	if err != nil {
		return err
	}
	engine, err := newEngine(g.Config, c.Input, in)
	if err != nil {
		return err
	}

	var out []textMetrics
	for _, n := range in.doc.ElementsByName(g.Config.Annotate.TextTag) {
		glyphs, err := engine.Layout(n)
		if err != nil {
			return fmt.Errorf("排版 %q 失败: %w", n.ID(), err)
		}
		tm := textMetrics{ID: n.ID(), Text: textlayout.Text(n), Chars: make([]charMetrics, 0, len(glyphs))}
		if len(c.At) == 2 {
			idx, err := engine.CharNumAtPosition(n, geom.Point{X: c.At[0], Y: c.At[1]})
			if err != nil {
				return fmt.Errorf("命中测试 %q 失败: %w", n.ID(), err)
			}
			tm.CharAt = &idx
		}
		// 起点超出该文本长度时不输出
		if len(c.Substr) == 2 && c.Substr[0] < len(glyphs) {
			l, err := engine.SubStringLength(n, c.Substr[0], c.Substr[1])
			if err != nil {
				return fmt.Errorf("子串长度 %q 失败: %w", n.ID(), err)
			}
			tm.SubstringLength = &l
		}
		for i, gl := range glyphs {
			tm.ComputedLength += gl.Advance
			tm.Chars = append(tm.Chars, charMetrics{
				Index:    i,
				Char:     string(gl.Rune),
				Start:    gl.Origin,
				End:      gl.End(),
				Advance:  gl.Advance,
				Rotation: gl.Rotate,
				Extent:   gl.Cell(),
			})
		}
		out = append(out, tm)
	}
	g.Logger.Debug("度量检查完成", "texts", len(out))

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return g.emit(c.Out, append(data, '\n'))
}

// ModesCmd implements the 'modes' command.
type ModesCmd struct{}

func (c *ModesCmd) Run(g *Global) error {
	for _, m := range annotate.Modes() {
		fmt.Fprintf(g.Stdout, "%-16s %s\n", m.String(), strings.Join(m.Aliases(), ", "))
	}
	return nil
}

type input struct {
	doc       *dom.Document
	meta      scene.Meta
	resources scene.ResourceSet
}

// loadInput 按扩展名选择解析方式；dataJSON 仅用于场景 DSL 的 ${} 插值。
func loadInput(path, dataJSON string) (*input, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开输入文件 %s: %w", path, err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".svg") {
		doc, err := dom.ParseSVG(file)
		if err != nil {
			return nil, fmt.Errorf("解析 SVG 失败: %w", err)
		}
		return &input{doc: doc}, nil
	}

	var data any
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return nil, fmt.Errorf("解析 data JSON 失败: %w", err)
		}
	}
	ast, err := dsl.ParseFile(path, file)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	s, err := scene.Build(ast, data, scene.BuildOptions{})
	if err != nil {
		return nil, fmt.Errorf("构建场景失败: %w", err)
	}
	return &input{doc: s.Doc, meta: s.Meta, resources: s.Resources}, nil
}

func newEngine(cfg *config.Config, inputPath string, in *input) (*canvaslayout.Engine, error) {
	size, err := cfg.Text.FontSizeMM()
	if err != nil {
		return nil, err
	}
	return canvaslayout.New(canvaslayout.Options{
		BaseDir:         baseDir(cfg, inputPath),
		Fonts:           in.resources.Fonts,
		DefaultFontSize: size,
	}), nil
}

// baseDir 优先使用配置中的 text.base_dir，否则为输入文件所在目录。
func baseDir(cfg *config.Config, inputPath string) string {
	if cfg.Text.BaseDir != "" {
		return cfg.Text.BaseDir
	}
	return filepath.Dir(inputPath)
}

func writeReport(r *annotate.Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}
	if err := annotate.WriteReportJSON(r, path); err != nil {
		return fmt.Errorf("输出标注报告失败: %w", err)
	}
	return nil
}

// emit 写到 path；path 为空或 "-" 时写到标准输出。
func (g *Global) emit(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := g.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}
