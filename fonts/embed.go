package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10regular"
)

// Default 是找不到字体时使用的内置字体名。
const Default = "lmroman10regular"

var builtin = map[string][]byte{
	"lmroman10regular": lmroman10regular.TTF,
	"lmroman10bold":    lmroman10bold.TTF,
	"lmroman10italic":  lmroman10italic.TTF,
	"lmsans10regular":  lmsans10regular.TTF,
	"lmmono10regular":  lmmono10regular.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "builtin:lmroman10regular"、"embed:lmroman10regular" 或直接写名字。
func Load(name string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(name, "builtin:"), "built-in:"), "embed:")
	clean = strings.ToLower(strings.TrimSpace(clean))
	data, ok := builtin[clean]
	if !ok {
		return nil, fmt.Errorf("找不到内置字体 %s", name)
	}
	return data, nil
}

// Names lists the built-in font names in sorted order.
func Names() []string {
	out := make([]string, 0, len(builtin))
	for k := range builtin {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
