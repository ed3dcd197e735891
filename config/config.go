// Package config 读取 glyphprobe 的 YAML 配置文件。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/glyphprobe/annotate"
	"github.com/ByLCY/glyphprobe/geom"
)

// Config represents the application configuration.
type Config struct {
	Annotate AnnotateConfig `yaml:"annotate"`
	Text     TextConfig     `yaml:"text"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AnnotateConfig 对应 annotate.Options。
type AnnotateConfig struct {
	Mode        string            `yaml:"mode"`
	OverlayID   string            `yaml:"overlay_id"`
	TextTag     string            `yaml:"text_tag"`
	SkipTags    []string          `yaml:"skip_tags,omitempty"`
	ClearBefore bool              `yaml:"clear_before"`
	MarkerSize  float64           `yaml:"marker_size,omitempty"`
	StrokeWidth float64           `yaml:"stroke_width,omitempty"`
	Colors      map[string]string `yaml:"colors,omitempty"` // 模式名（或别名）→ 颜色
}

// TextConfig configures the canvas text-layout engine.
type TextConfig struct {
	DefaultFontSize string `yaml:"default_font_size"` // 带单位的长度，如 "12pt"
	BaseDir         string `yaml:"base_dir,omitempty"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Format string `yaml:"format"` // xml | svg | pdf
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Annotate: AnnotateConfig{
			Mode:      annotate.ModeStartPosition.String(),
			OverlayID: annotate.DefaultOverlayID,
			TextTag:   "text",
			SkipTags:  []string{"defs", "metadata"},
		},
		Text:    TextConfig{DefaultFontSize: "12pt"},
		Output:  OutputConfig{Format: "xml"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load loads configuration from path. A missing file yields Default();
// ${VAR} references are expanded from the environment before decoding.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置文件 %s 无效: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	var errs []error
	if _, err := annotate.ParseMode(c.Annotate.Mode); err != nil {
		errs = append(errs, fmt.Errorf("annotate.mode: %w", err))
	}
	if _, err := c.Annotate.ModeColors(); err != nil {
		errs = append(errs, err)
	}
	if c.Annotate.MarkerSize < 0 {
		errs = append(errs, fmt.Errorf("annotate.marker_size 不能为负数"))
	}
	if c.Annotate.StrokeWidth < 0 {
		errs = append(errs, fmt.Errorf("annotate.stroke_width 不能为负数"))
	}
	if _, err := c.Text.FontSizeMM(); err != nil {
		errs = append(errs, fmt.Errorf("text.default_font_size: %w", err))
	}
	switch c.Output.Format {
	case "xml", "svg", "pdf":
	default:
		errs = append(errs, fmt.Errorf("output.format 必须是 xml、svg 或 pdf，实际为 %q", c.Output.Format))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format 必须是 text 或 json，实际为 %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// Options converts the section into annotate.Options (Logger 由调用方设置)。
func (a AnnotateConfig) Options() (annotate.Options, error) {
	colors, err := a.ModeColors()
	if err != nil {
		return annotate.Options{}, err
	}
	return annotate.Options{
		OverlayID:   a.OverlayID,
		TextTag:     a.TextTag,
		SkipTags:    a.SkipTags,
		ClearBefore: a.ClearBefore,
		MarkerSize:  a.MarkerSize,
		StrokeWidth: a.StrokeWidth,
		Colors:      colors,
	}, nil
}

// ModeColors resolves the colour map keys through annotate.ParseMode.
func (a AnnotateConfig) ModeColors() (map[annotate.Mode]string, error) {
	if len(a.Colors) == 0 {
		return nil, nil
	}
	out := make(map[annotate.Mode]string, len(a.Colors))
	for name, c := range a.Colors {
		m, err := annotate.ParseMode(name)
		if err != nil {
			return nil, fmt.Errorf("annotate.colors: %w", err)
		}
		out[m] = c
	}
	return out, nil
}

// FontSizeMM parses DefaultFontSize; empty means 0 (engine default).
func (t TextConfig) FontSizeMM() (float64, error) {
	if strings.TrimSpace(t.DefaultFontSize) == "" {
		return 0, nil
	}
	l, err := geom.ParseLength(t.DefaultFontSize)
	if err != nil {
		return 0, err
	}
	if l.ToMM() <= 0 {
		return 0, fmt.Errorf("字号必须为正数")
	}
	return l.ToMM(), nil
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level 无效: %q", s)
	}
}
