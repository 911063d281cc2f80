package renderer

import "github.com/ByLCY/lasercal/layout"

// Renderer 将布局结果输出为最终文件，例如 G-code 或预览图。
// Render 返回生成的数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}
