package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	sceneLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\.\d+|\d+)(?:pt|mm|cm|in|px|deg|%)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+*/<>!?;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	// 词法类型 → 名称，用于填充 Lexeme.Type。
	tokenKinds = func() map[lexer.TokenType]string {
		kinds := map[lexer.TokenType]string{}
		for name, tt := range sceneLexer.Symbols() {
			kinds[tt] = name
		}
		return kinds
	}()
	// 命令参数在这些词法类型处结束。
	argumentStops = map[lexer.TokenType]bool{
		sceneLexer.Symbols()["Newline"]: true,
		sceneLexer.Symbols()["LBrace"]:  true,
		sceneLexer.Symbols()["RBrace"]:  true,
	}

	sceneParser = participle.MustBuild[Document](
		participle.Lexer(sceneLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root of a scene file: `scene <Name> <version> { ... }`.
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'scene' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one of meta / resources / canvas.
type Section struct {
	Meta      *MetaSection      `parser:"  @@"`
	Resources *ResourcesSection `parser:"| @@"`
	Canvas    *CanvasSection    `parser:"| @@"`
}

// Kind returns the section keyword.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.Canvas != nil:
		return "canvas"
	default:
		return "unknown"
	}
}

type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

type ResourcesSection struct {
	Block *Block `parser:"'resources' @@"`
}

// CanvasSection 描述画布尺寸（宽、高）以及元素树。
type CanvasSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Params []*Lexeme      `parser:"'canvas' @@*"`
	Block  *Block         `parser:"@@"`
}

// Block is a braced list of statements.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement is an assignment (`key: value`), an element command or a text literal.
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' Newline* @@"`
}

// Command 对应一个元素：名称、`key value` 形式的参数以及可选的子块。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value is the right-hand side of an assignment.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Ident  *string        `parser:"| @Ident"`
	Array  *ArrayValue    `parser:"| @@"`
}

// Text renders the value as an attribute string; arrays are space separated.
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Ident != nil:
		return *v.Ident
	case v.Array != nil:
		parts := make([]string, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			parts = append(parts, item.Text())
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Strings flattens an array value; scalars become a single-item slice.
func (v *Value) Strings() []string {
	if v == nil {
		return nil
	}
	if v.Array == nil {
		return []string{v.Text()}
	}
	out := make([]string, 0, len(v.Array.Values))
	for _, item := range v.Array.Values {
		out = append(out, item.Text())
	}
	return out
}

type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// Lexeme 是命令参数中的单个词法单元，字符串已去掉引号。
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable. 参数一直读到换行、花括号或 ';' 为止。
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if tok == nil || tok.EOF() || argumentStops[tok.Type] || tok.Value == ";" {
		return participle.NextMatch
	}
	tok = lex.Next()
	value := tok.Value
	kind := tokenKinds[tok.Type]
	if kind == "String" {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", tok.Pos, err)
		}
		value = unquoted
	}
	*l = Lexeme{Type: kind, Value: value, Raw: tok.Value, Pos: tok.Pos}
	return nil
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses a scene from r.
func Parse(r io.Reader) (*Document, error) {
	return sceneParser.Parse("", r)
}

// ParseString parses a scene from a string.
func ParseString(input string) (*Document, error) {
	return sceneParser.ParseString("", input)
}

// ParseFile parses a scene and records filename in error positions.
func ParseFile(filename string, r io.Reader) (*Document, error) {
	return sceneParser.Parse(filename, r)
}
