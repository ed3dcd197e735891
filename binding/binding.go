// Package binding 把 ${path} 占位符替换为 JSON 数据中的值。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 替换 text 中的 ${a.b[0].c} 占位符。
// 支持 ${path|fallback}：路径不存在时使用 fallback；既无值也无 fallback 时保留原占位符。
func Interpolate(text string, data any) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-1])
		path, fallback, hasFallback := strings.Cut(expr, "|")
		path = strings.TrimSpace(path)
		if val, ok := Lookup(data, path); ok && val != nil {
			return format(val)
		}
		if hasFallback {
			return strings.TrimSpace(fallback)
		}
		return match
	})
}

// Lookup resolves a dotted path with optional [i] indexes against decoded JSON.
func Lookup(data any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, rest, _ := strings.Cut(segment, "[")
		if name != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			if current, ok = m[name]; !ok {
				return nil, false
			}
		}
		if rest == "" {
			continue
		}
		for _, idx := range strings.Split(strings.TrimSuffix(rest, "]"), "][") {
			i, err := strconv.Atoi(idx)
			if err != nil {
				return nil, false
			}
			list, ok := current.([]any)
			if !ok || i < 0 || i >= len(list) {
				return nil, false
			}
			current = list[i]
		}
	}
	return current, true
}

// JSON 数字解码为 float64，整数值不输出小数部分。
func format(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
