package geom

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is the unit a length was written in.
type Unit int

const (
	UnitNone Unit = iota // user units (== mm)
	UnitMM
	UnitCM
	UnitIN
	UnitPT
	UnitPX // CSS pixel, 1/96 in
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	PxToMm = 25.4 / 96
)

var unitSuffixes = []struct {
	suffix string
	unit   Unit
	toMM   float64
}{
	{"mm", UnitMM, 1},
	{"cm", UnitCM, 10},
	{"in", UnitIN, 25.4},
	{"pt", UnitPT, PtToMm},
	{"px", UnitPX, PxToMm},
}

func (u Unit) String() string {
	for _, s := range unitSuffixes {
		if s.unit == u {
			return s.suffix
		}
	}
	return ""
}

// Length keeps the written value together with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ToMM converts to millimetres. Unit-less values are already user units.
func (l Length) ToMM() float64 {
	for _, s := range unitSuffixes {
		if s.unit == l.Unit {
			return l.Value * s.toMM
		}
	}
	return l.Value
}

func (l Length) ToPT() float64 { return l.ToMM() * MmToPt }

// ToUser converts an SVG attribute length to user units.
// SVG 中 px 就是用户单位，与无单位的值相同；其余绝对单位换算为 mm。
func (l Length) ToUser() float64 {
	if l.Unit == UnitPX {
		return l.Value
	}
	return l.ToMM()
}

func (l Length) String() string { return FormatNumber(l.Value) + l.Unit.String() }

// ParseLength parses "12pt", "3.5mm", "-2", "10px" ...
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, s := range unitSuffixes {
		if strings.HasSuffix(v, s.suffix) {
			unit = s.unit
			num = strings.TrimSpace(strings.TrimSuffix(v, s.suffix))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}

// ParseLengthList splits on whitespace and commas, as SVG coordinate lists do.
func ParseLengthList(value string) ([]Length, error) {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]Length, 0, len(fields))
	for _, f := range fields {
		l, err := ParseLength(f)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// ParseMMList parses a list and converts every entry to millimetres.
func ParseMMList(value string) ([]float64, error) {
	lengths, err := ParseLengthList(value)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(lengths))
	for i, l := range lengths {
		out[i] = l.ToMM()
	}
	return out, nil
}

// ParseUserList parses an SVG coordinate list into user units, see Length.ToUser.
func ParseUserList(value string) ([]float64, error) {
	lengths, err := ParseLengthList(value)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(lengths))
	for i, l := range lengths {
		out[i] = l.ToUser()
	}
	return out, nil
}
