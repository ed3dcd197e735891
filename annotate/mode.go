package annotate

import (
	"fmt"
	"strings"
)

// Mode 选择要查询与标注的度量。
type Mode int

const (
	ModeStartPosition Mode = iota
	ModeEndPosition
	ModeRotation
	ModeComputedLength
	ModeExtent
)

var modeNames = [...]string{
	ModeStartPosition:  "start-position",
	ModeEndPosition:    "end-position",
	ModeRotation:       "rotation",
	ModeComputedLength: "computed-length",
	ModeExtent:         "extent",
}

// 别名：短名与 SVGTextContentElement 的方法名。
var modeAliases = map[string]Mode{
	"start":                  ModeStartPosition,
	"startposition":          ModeStartPosition,
	"getstartpositionofchar": ModeStartPosition,
	"end":                    ModeEndPosition,
	"endposition":            ModeEndPosition,
	"getendpositionofchar":   ModeEndPosition,
	"rotate":                 ModeRotation,
	"getrotationofchar":      ModeRotation,
	"length":                 ModeComputedLength,
	"computedlength":         ModeComputedLength,
	"getcomputedtextlength":  ModeComputedLength,
	"extentofchar":           ModeExtent,
	"getextentofchar":        ModeExtent,
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// PerCharacter reports whether the mode emits one marker per character.
func (m Mode) PerCharacter() bool { return m != ModeComputedLength }

// Modes returns all modes in declaration order.
func Modes() []Mode {
	return []Mode{ModeStartPosition, ModeEndPosition, ModeRotation, ModeComputedLength, ModeExtent}
}

// Aliases returns the accepted alternative spellings of m.
func (m Mode) Aliases() []string {
	var out []string
	for _, alias := range []string{
		"start", "getStartPositionOfChar",
		"end", "getEndPositionOfChar",
		"rotate", "getRotationOfChar",
		"length", "getComputedTextLength",
		"getExtentOfChar",
	} {
		if modeAliases[strings.ToLower(alias)] == m {
			out = append(out, alias)
		}
	}
	return out
}

// ParseMode 解析模式名，大小写与 '-'/'_' 不敏感；空串表示 start-position。
func ParseMode(s string) (Mode, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return ModeStartPosition, nil
	}
	for i, name := range modeNames {
		if v == name {
			return Mode(i), nil
		}
	}
	key := strings.NewReplacer("-", "", "_", "").Replace(v)
	if m, ok := modeAliases[key]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText lets modes appear by name in JSON reports and YAML config.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
