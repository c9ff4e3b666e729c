// Package overlay 管理屏幕上的译文标注
package overlay

import (
	"time"

	"github.com/xianai/xianworker/pkg/geom"
	"github.com/xianai/xianworker/pkg/translate"
)

// Annotation 一条屏幕译文标注
type Annotation struct {
	// ID 单调递增的标注标识
	ID int64 `json:"id"`
	// Result 译文及其原文在屏幕上的位置
	Result translate.Result `json:"result"`
	// Display 标注的显示位置，创建时等于原文位置，之后保持不动
	Display geom.Rect `json:"display"`
	// Expanded 是否展开显示完整译文
	Expanded bool `json:"expanded"`
	// CreatedAt 创建时间
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt 最近一次内容更新时间
	UpdatedAt time.Time `json:"updated_at"`
}

// SourceRect 返回原文的屏幕边界框
func (a *Annotation) SourceRect() geom.Rect {
	return a.Result.Rect
}
