package overlay

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xianai/xianworker/internal/logger"
	"github.com/xianai/xianworker/pkg/geom"
	"github.com/xianai/xianworker/pkg/merge"
	"github.com/xianai/xianworker/pkg/translate"
)

// Options 标注管理参数
type Options struct {
	// Merge 碎片合并参数
	Merge merge.Options
	// Match 标注匹配参数
	Match MatchOptions
	// Paragraphs 是否把相邻行聚成段落
	Paragraphs bool
	// MaxInputs 单次更新处理的最大结果数
	MaxInputs int
	// MaxAnnotations 屏幕上标注的数量上限
	MaxAnnotations int
	// DefaultExpanded 新标注是否默认展开
	DefaultExpanded bool
}

// DefaultOptions 默认管理参数
func DefaultOptions() Options {
	return Options{
		Merge:          merge.DefaultOptions(),
		Match:          DefaultMatchOptions(),
		Paragraphs:     false,
		MaxInputs:      50,
		MaxAnnotations: 50,
	}
}

// Manager 标注管理器
// 每轮翻译结果经过合并后与已有标注匹配，尽量就地更新而不是闪烁重建
type Manager struct {
	mu          sync.Mutex
	opts        Options
	annotations []*Annotation
	nextID      int64
	now         func() time.Time
}

// NewManager 创建标注管理器
func NewManager(opts Options) *Manager {
	return &Manager{
		opts: opts,
		now:  time.Now,
	}
}

// Apply 把一轮翻译结果应用到标注集合
// updatedArea 非 nil 时表示本轮只覆盖该屏幕区域，区域内未匹配的旧标注会被移除
func (m *Manager) Apply(results []translate.Result, updatedArea *geom.Rect) []Annotation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(results) > m.opts.MaxInputs {
		logger.Warn("单轮结果过多 (%d), 截断到 %d", len(results), m.opts.MaxInputs)
		results = results[:m.opts.MaxInputs]
	}

	merged := merge.Merge(results, m.opts.Merge, m.opts.Paragraphs)
	matched := make(map[int64]bool)

	for _, result := range merged {
		var bestMatch *Annotation
		var appendTarget *Annotation
		highestScore := 0.0

		for _, ann := range m.annotations {
			if isAppendBelow(ann.Result, result, m.opts.Match) {
				appendTarget = ann
			}
			if score := matchScore(ann.Result, result, m.opts.Match); score > highestScore {
				highestScore = score
				bestMatch = ann
			}
		}

		// 正下方的续行追加到已有标注，不新建
		if appendTarget != nil && strings.TrimSpace(result.Translated) != "" {
			m.appendBelow(appendTarget, result)
			matched[appendTarget.ID] = true
			continue
		}

		if bestMatch != nil && highestScore > m.opts.Match.Cutoff {
			m.updateContent(bestMatch, result)
			matched[bestMatch.ID] = true
			continue
		}

		ann := m.create(result)
		matched[ann.ID] = true
	}

	if updatedArea != nil {
		m.removeStale(*updatedArea, matched)
	}
	m.enforceLimit(matched)

	logger.Debug("标注更新完成: 输入 %d, 合并后 %d, 当前标注 %d",
		len(results), len(merged), len(m.annotations))

	return m.snapshotLocked()
}

// appendBelow 把续行追加到已有标注并扩展其原文区域
func (m *Manager) appendBelow(ann *Annotation, result translate.Result) {
	text := strings.TrimSpace(result.Translated)
	if strings.HasSuffix(ann.Result.Translated, "\n") {
		ann.Result.Translated += text
	} else {
		ann.Result.Translated += "\n" + text
	}
	if o := strings.TrimSpace(result.Original); o != "" {
		ann.Result.Original += "\n" + o
	}
	ann.Result.Rect = ann.Result.Rect.Union(result.Rect)
	ann.UpdatedAt = m.now()
}

// updateContent 就地更新标注内容，显示位置保持不动
func (m *Manager) updateContent(ann *Annotation, result translate.Result) {
	ann.Result = result
	ann.UpdatedAt = m.now()
}

// create 创建新标注
func (m *Manager) create(result translate.Result) *Annotation {
	m.nextID++
	now := m.now()
	ann := &Annotation{
		ID:        m.nextID,
		Result:    result,
		Display:   result.Rect,
		Expanded:  m.opts.DefaultExpanded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.annotations = append(m.annotations, ann)
	return ann
}

// removeStale 移除更新区域内未匹配的旧标注
// 区域向外放宽 5 像素，容忍轻微的位置抖动
func (m *Manager) removeStale(area geom.Rect, matched map[int64]bool) {
	expanded := area.Expand(5)

	kept := m.annotations[:0]
	removed := 0
	for _, ann := range m.annotations {
		src := ann.SourceRect()
		stale := !matched[ann.ID] &&
			(expanded.Intersects(src) || expanded.Contains(src.Center()))
		if stale {
			removed++
			continue
		}
		kept = append(kept, ann)
	}
	m.annotations = kept

	if removed > 0 {
		logger.Debug("移除更新区域内 %d 个过期标注", removed)
	}
}

// enforceLimit 超出上限时淘汰最旧的未匹配标注
func (m *Manager) enforceLimit(matched map[int64]bool) {
	excess := len(m.annotations) - m.opts.MaxAnnotations
	if excess <= 0 {
		return
	}

	kept := m.annotations[:0]
	removed := 0
	for _, ann := range m.annotations {
		if removed < excess && !matched[ann.ID] {
			removed++
			continue
		}
		kept = append(kept, ann)
	}
	m.annotations = kept

	if removed > 0 {
		logger.Warn("标注数量超限, 淘汰 %d 个最旧标注", removed)
	}
}

// Annotations 返回当前标注的副本
func (m *Manager) Annotations() []Annotation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() []Annotation {
	out := make([]Annotation, len(m.annotations))
	for i, ann := range m.annotations {
		out[i] = *ann
	}
	return out
}

// RedactionRects 返回截图前需要遮盖的几何区域
// 包含每个标注的显示位置和原文位置，防止标注自身被再次识别
func (m *Manager) RedactionRects() []geom.Rect {
	m.mu.Lock()
	defer m.mu.Unlock()

	rects := make([]geom.Rect, 0, len(m.annotations)*2)
	for _, ann := range m.annotations {
		rects = append(rects, ann.Display)
		if ann.SourceRect() != ann.Display {
			rects = append(rects, ann.SourceRect())
		}
	}
	return rects
}

// Remove 移除指定标注
func (m *Manager) Remove(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, ann := range m.annotations {
		if ann.ID == id {
			m.annotations = append(m.annotations[:i], m.annotations[i+1:]...)
			return true
		}
	}
	return false
}

// SetExpanded 设置标注的展开状态
func (m *Manager) SetExpanded(id int64, expanded bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ann := range m.annotations {
		if ann.ID == id {
			ann.Expanded = expanded
			return true
		}
	}
	return false
}

// MoveDisplay 移动标注的显示位置
func (m *Manager) MoveDisplay(id int64, x, y int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ann := range m.annotations {
		if ann.ID == id {
			ann.Display.X = x
			ann.Display.Y = y
			return true
		}
	}
	return false
}

// ClearAll 移除所有标注
func (m *Manager) ClearAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.annotations)
	m.annotations = nil
	if n > 0 {
		logger.Info("清除全部 %d 个标注", n)
	}
	return n
}

// Len 返回当前标注数量
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.annotations)
}

// Stats 返回标注统计信息
func (m *Manager) Stats() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("标注: %d/%d", len(m.annotations), m.opts.MaxAnnotations)
}
