package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/glyphprobe/annotate"
	"github.com/ByLCY/glyphprobe/config"
	"github.com/ByLCY/glyphprobe/dom"
)

const sampleSVG = `<svg width="100mm" height="50mm" viewBox="0 0 100 50">
  <text id="t1" x="10" y="20" font-size="5">Hey</text>
  <defs><text id="hidden">zz</text></defs>
</svg>`

const indentedSVG = `<svg width="100mm" height="50mm" viewBox="0 0 100 50">
  <text id="t1" x="10" y="20" font-size="5">
    Hi
  </text>
</svg>`

const sampleScene = `scene Sample v1 {
  meta { title: "Report for ${user}" }
  canvas 100mm 50mm {
    text id t1 x 10mm y 20mm size 5mm { "Hi ${user}" }
  }
}`

func newGlobal(t *testing.T) (*Global, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &Global{
		Config: config.Default(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Stdout: &out,
	}, &out
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnnotateSVGWritesMarkup(t *testing.T) {
	g, out := newGlobal(t)
	input := writeInput(t, "sample.svg", sampleSVG)
	reportPath := filepath.Join(t.TempDir(), "reports", "report.json")

	cmd := &AnnotateCmd{Input: input, Mode: "end", Report: reportPath}
	require.NoError(t, cmd.Run(g))

	doc, err := dom.ParseSVG(out)
	require.NoError(t, err)
	overlay := doc.GetElementByID(annotate.DefaultOverlayID)
	require.NotNil(t, overlay)
	assert.Len(t, overlay.ChildElements(), 3, "three characters, defs skipped")

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, "end-position", report["mode"])
	assert.Equal(t, 3.0, report["markers"])
}

func TestAnnotateIgnoresIndentation(t *testing.T) {
	g, out := newGlobal(t)
	input := writeInput(t, "indented.svg", indentedSVG)

	require.NoError(t, (&AnnotateCmd{Input: input, Mode: "start"}).Run(g))
	doc, err := dom.ParseSVG(out)
	require.NoError(t, err)
	overlay := doc.GetElementByID(annotate.DefaultOverlayID)
	require.NotNil(t, overlay)
	assert.Len(t, overlay.ChildElements(), 2)
	first := overlay.ChildElements()[0]
	assert.Equal(t, "translate(10,20)", first.GetAttr("transform"), "首字符位于 x/y，不被缩进推开")
}

func TestAnnotateSceneWithData(t *testing.T) {
	g, out := newGlobal(t)
	input := writeInput(t, "sample.scene", sampleScene)

	cmd := &AnnotateCmd{Input: input, Mode: "length", Data: `{"user":"Ada"}`}
	require.NoError(t, cmd.Run(g))

	markup := out.String()
	assert.Contains(t, markup, "Hi Ada")
	assert.Contains(t, markup, `transform="translate(10,20)"`)
	assert.Equal(t, 1, strings.Count(markup, "<line"))
}

func TestAnnotateRendersPDF(t *testing.T) {
	g, _ := newGlobal(t)
	input := writeInput(t, "sample.svg", sampleSVG)
	outPath := filepath.Join(t.TempDir(), "out", "annotated.pdf")

	cmd := &AnnotateCmd{Input: input, Mode: "extent", Format: "PDF", Out: outPath}
	require.NoError(t, cmd.Run(g))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestAnnotateErrors(t *testing.T) {
	g, _ := newGlobal(t)
	input := writeInput(t, "sample.svg", sampleSVG)

	err := (&AnnotateCmd{Input: input, Root: "nope"}).Run(g)
	assert.ErrorIs(t, err, annotate.ErrRootNotFound)

	err = (&AnnotateCmd{Input: input, Mode: "sideways"}).Run(g)
	assert.ErrorIs(t, err, annotate.ErrUnknownMode)

	err = (&AnnotateCmd{Input: input, Format: "png"}).Run(g)
	assert.Error(t, err)

	err = (&AnnotateCmd{Input: filepath.Join(t.TempDir(), "missing.svg")}).Run(g)
	assert.Error(t, err)

	scene := writeInput(t, "bad.scene", sampleScene)
	err = (&AnnotateCmd{Input: scene, Data: "{not json"}).Run(g)
	assert.Error(t, err)
}

func TestInspectPrintsMetrics(t *testing.T) {
	g, out := newGlobal(t)
	input := writeInput(t, "sample.svg", sampleSVG)

	require.NoError(t, (&InspectCmd{Input: input}).Run(g))

	var texts []textMetrics
	require.NoError(t, json.Unmarshal(out.Bytes(), &texts))
	require.Len(t, texts, 2)
	assert.Equal(t, "t1", texts[0].ID)
	require.Len(t, texts[0].Chars, 3)
	assert.Equal(t, "H", texts[0].Chars[0].Char)
	assert.Equal(t, 10.0, texts[0].Chars[0].Start.X)
	assert.InDelta(t, texts[0].Chars[1].Start.X, texts[0].Chars[0].End.X, 1e-9)
	assert.Greater(t, texts[0].ComputedLength, 0.0)
}

func TestInspectHitTestAndSubstring(t *testing.T) {
	g, out := newGlobal(t)
	input := writeInput(t, "indented.svg", indentedSVG)

	require.NoError(t, (&InspectCmd{Input: input, At: []float64{10.5, 19}, Substr: []int{0, 1}}).Run(g))
	var texts []textMetrics
	require.NoError(t, json.Unmarshal(out.Bytes(), &texts))
	require.Len(t, texts, 1)
	assert.Equal(t, "Hi", texts[0].Text)
	require.NotNil(t, texts[0].CharAt)
	assert.Equal(t, 0, *texts[0].CharAt)
	require.NotNil(t, texts[0].SubstringLength)
	assert.InDelta(t, texts[0].Chars[0].Advance, *texts[0].SubstringLength, 1e-9)

	err := (&InspectCmd{Input: input, At: []float64{1}}).Run(g)
	assert.Error(t, err)
}

func TestModesListsAliases(t *testing.T) {
	g, out := newGlobal(t)
	require.NoError(t, (&ModesCmd{}).Run(g))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(annotate.Modes()))
	assert.True(t, strings.HasPrefix(lines[0], "start-position"))
	assert.Contains(t, out.String(), "getComputedTextLength")
}

func TestNewLoggerHonoursVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, false, &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = newLogger(config.LoggingConfig{Level: "warn"}, true, &buf)
	logger.Debug("debug line")
	assert.Contains(t, buf.String(), "debug line")
}
