package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xianai/xianworker/internal/logger"
	"github.com/xianai/xianworker/pkg/cache"
)

// cacheKey 译文缓存键: 同一文本在不同模型或语言对下互不干扰
type cacheKey struct {
	model      string
	text       string
	sourceLang string
	targetLang string
}

// Service 带缓存的翻译服务
// 先查缓存，未命中的条目合并为一批送翻译器，成功后回填缓存
type Service struct {
	translator Translator
	cache      *cache.LRU[cacheKey, string]
	sourceLang string
	targetLang string
}

// NewService 创建翻译服务
func NewService(translator Translator, cacheSize int, sourceLang, targetLang string) *Service {
	return &Service{
		translator: translator,
		cache:      cache.NewLRU[cacheKey, string](cacheSize),
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
}

// TranslateItems 翻译一批文本块
// 批量翻译失败时整体返回错误，缓存不会被污染
func (s *Service) TranslateItems(ctx context.Context, items []Item) ([]Result, error) {
	if len(items) == 0 {
		return nil, nil
	}

	startTime := time.Now()
	model := s.translator.Model()

	results := make([]Result, len(items))
	var missing []string
	var missingIdx []int

	hits := 0
	for i, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}

		key := cacheKey{model: model, text: text, sourceLang: s.sourceLang, targetLang: s.targetLang}
		if translated, ok := s.cache.Get(key); ok {
			results[i] = Result{Rect: item.Rect, Original: text, Translated: translated}
			hits++
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		translated, err := s.translator.TranslateBatch(ctx, missing, s.sourceLang, s.targetLang)
		if err != nil {
			logger.LogStage("TRANS", false, time.Since(startTime),
				fmt.Sprintf("批量翻译 %d 条失败", len(missing)))
			return nil, err
		}

		for j, idx := range missingIdx {
			text := missing[j]
			key := cacheKey{model: model, text: text, sourceLang: s.sourceLang, targetLang: s.targetLang}
			s.cache.Put(key, translated[j])
			results[idx] = Result{Rect: items[idx].Rect, Original: text, Translated: translated[j]}
		}
	}

	// 过滤空文本条目
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Original != "" && strings.TrimSpace(r.Translated) != "" {
			out = append(out, r)
		}
	}

	logger.LogStage("TRANS", true, time.Since(startTime),
		fmt.Sprintf("共 %d 条, 缓存命中 %d, 实际翻译 %d", len(items), hits, len(missing)))

	return out, nil
}

// CacheLen 返回缓存中的条目数
func (s *Service) CacheLen() int {
	return s.cache.Len()
}

// ClearCache 清空译文缓存
func (s *Service) ClearCache() {
	s.cache.Clear()
}
