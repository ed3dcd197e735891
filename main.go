package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ByLCY/glyphprobe/config"
)

// Global 在 AfterApply 中填充，并绑定给各子命令的 Run。
type Global struct {
	Config *config.Config
	Logger *slog.Logger
	Stdout io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string `short:"c" help:"配置文件路径（不存在时使用默认配置）" default:"glyphprobe.yaml"`
	Verbose bool   `short:"v" help:"输出调试日志"`

	Annotate AnnotateCmd `cmd:"" help:"为文本元素插入逐字符度量标记"`
	Inspect  InspectCmd  `cmd:"" help:"以 JSON 输出每个文本元素的逐字符度量"`
	Modes    ModesCmd    `cmd:"" help:"列出标注模式及其别名"`
}

// AfterApply runs after flag parsing; load config and set up logging once.
func (c *CLI) AfterApply(g *Global) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	g.Config = cfg
	g.Logger = newLogger(cfg.Logging, c.Verbose, os.Stderr)
	slog.SetDefault(g.Logger)
	return nil
}

func newLogger(cfg config.LoggingConfig, verbose bool, w io.Writer) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	var cli CLI
	g := &Global{Stdout: os.Stdout}
	ctx := kong.Parse(&cli,
		kong.Name("glyphprobe"),
		kong.Description("查询 SVG 文本的逐字符度量，并把结果以标记的形式画回文档。"),
		kong.UsageOnError(),
		kong.Bind(g),
	)
	if err := ctx.Run(); err != nil {
		slog.Error("命令执行失败", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}
