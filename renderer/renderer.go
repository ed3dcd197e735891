package renderer

import "github.com/ByLCY/glyphprobe/dom"

// Renderer 将文档树（通常已带有标注层）输出为最终文件，例如 PDF 或 SVG。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(doc *dom.Document) ([]byte, error)
}
