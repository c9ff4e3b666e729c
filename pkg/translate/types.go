// Package translate 提供屏幕文本的批量翻译
package translate

import (
	"context"

	"github.com/xianai/xianworker/pkg/geom"
)

// Item 待翻译的一块文本及其屏幕位置
type Item struct {
	Rect geom.Rect `json:"rect"`
	Text string    `json:"text"`
}

// Result 翻译结果
type Result struct {
	// Rect 原文在屏幕上的边界框
	Rect geom.Rect `json:"rect"`
	// Original 识别出的原文
	Original string `json:"original"`
	// Translated 译文
	Translated string `json:"translated"`
}

// Translator 批量文本翻译接口
// 返回的译文与输入文本一一对应
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error)
	Model() string
}
