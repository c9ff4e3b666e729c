// Package merge 提供翻译结果的碎片合并和段落聚类
package merge

import (
	"sort"
	"strings"

	"github.com/xianai/xianworker/pkg/geom"
	"github.com/xianai/xianworker/pkg/translate"
)

// Options 合并参数
type Options struct {
	// MaxYDelta 同行判定的最大垂直偏差
	MaxYDelta int
	// DupMaxXDelta 重复文本判定的最大水平偏差
	DupMaxXDelta int
	// JoinMinXDelta 拼接判定的最小水平间距 (负值允许轻微重叠)
	JoinMinXDelta int
	// JoinMaxXDelta 拼接判定的最大水平间距
	JoinMaxXDelta int
	// VertClose 段落聚类的垂直接近阈值
	VertClose int
	// VertSlack 段落聚类的垂直容差
	VertSlack int
	// HorizSlack 段落聚类的水平容差
	HorizSlack int
}

// DefaultOptions 默认合并参数
func DefaultOptions() Options {
	return Options{
		MaxYDelta:     20,
		DupMaxXDelta:  50,
		JoinMinXDelta: -20,
		JoinMaxXDelta: 40,
		VertClose:     28,
		VertSlack:     30,
		HorizSlack:    20,
	}
}

// Consolidate 合并同一行上紧邻的碎片结果
// 先按 (y, x) 排序保证结果与输入顺序无关；
// 同行的重复文本丢弃，水平紧邻的文本拼接成一条
func Consolidate(results []translate.Result, opts Options) []translate.Result {
	if len(results) == 0 {
		return nil
	}

	sorted := make([]translate.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Rect.Y != sorted[j].Rect.Y {
			return sorted[i].Rect.Y < sorted[j].Rect.Y
		}
		return sorted[i].Rect.X < sorted[j].Rect.X
	})

	var merged []translate.Result
	for _, res := range sorted {
		grouped := false
		for i := range merged {
			existing := &merged[i]
			yDiff := abs(existing.Rect.Y - res.Rect.Y)
			xDiff := res.Rect.X - existing.Rect.Right()

			if yDiff >= opts.MaxYDelta {
				continue
			}

			// 同行的重复文本直接丢弃
			if strings.TrimSpace(res.Translated) == strings.TrimSpace(existing.Translated) &&
				abs(xDiff) < opts.DupMaxXDelta {
				grouped = true
				break
			}

			if xDiff > opts.JoinMinXDelta && xDiff < opts.JoinMaxXDelta {
				resText := strings.TrimSpace(res.Translated)
				if !strings.Contains(strings.ToLower(existing.Translated), strings.ToLower(resText)) {
					existing.Translated += " " + res.Translated
				}

				newRight := existing.Rect.Right()
				if res.Rect.Right() > newRight {
					newRight = res.Rect.Right()
				}
				if res.Rect.Height > existing.Rect.Height {
					existing.Rect.Height = res.Rect.Height
				}
				if res.Rect.Y < existing.Rect.Y {
					existing.Rect.Y = res.Rect.Y
				}
				existing.Rect.Width = newRight - existing.Rect.X
				grouped = true
				break
			}
		}

		if !grouped {
			merged = append(merged, res)
		}
	}

	return merged
}

// cluster 段落聚类的中间状态
type cluster struct {
	rect  geom.Rect
	items []translate.Result
}

// ClusterParagraphs 把垂直相邻且水平重叠的行聚成段落
// 每个段落内的行按 (y, x) 排序后用换行拼接
func ClusterParagraphs(results []translate.Result, opts Options) []translate.Result {
	if len(results) == 0 {
		return nil
	}

	var clusters []cluster
	for _, res := range results {
		placed := false
		for i := range clusters {
			cl := &clusters[i]
			vertClose := abs(res.Rect.Y-cl.rect.Center().Y) < opts.VertClose ||
				(res.Rect.Y >= cl.rect.Y-opts.VertSlack && res.Rect.Y <= cl.rect.Bottom()+opts.VertSlack)
			overlap := cl.rect.Intersects(res.Rect) ||
				(res.Rect.X <= cl.rect.Right()+opts.HorizSlack && res.Rect.Right() >= cl.rect.X-opts.HorizSlack)

			if vertClose && overlap {
				cl.items = append(cl.items, res)
				cl.rect = cl.rect.Union(res.Rect)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, cluster{rect: res.Rect, items: []translate.Result{res}})
		}
	}

	out := make([]translate.Result, 0, len(clusters))
	for _, cl := range clusters {
		sort.SliceStable(cl.items, func(i, j int) bool {
			if cl.items[i].Rect.Y != cl.items[j].Rect.Y {
				return cl.items[i].Rect.Y < cl.items[j].Rect.Y
			}
			return cl.items[i].Rect.X < cl.items[j].Rect.X
		})

		var texts []string
		var originals []string
		for _, it := range cl.items {
			t := strings.TrimSpace(it.Translated)
			if t == "" {
				continue
			}
			texts = append(texts, t)
			if o := strings.TrimSpace(it.Original); o != "" {
				originals = append(originals, o)
			}
		}
		if len(texts) == 0 {
			continue
		}

		out = append(out, translate.Result{
			Rect:       cl.rect,
			Original:   strings.Join(originals, "\n"),
			Translated: strings.Join(texts, "\n"),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rect.Y != out[j].Rect.Y {
			return out[i].Rect.Y < out[j].Rect.Y
		}
		return out[i].Rect.X < out[j].Rect.X
	})

	return out
}

// Merge 完整的合并流程: 先碎片合并，paragraphs 为 true 时再做段落聚类
func Merge(results []translate.Result, opts Options, paragraphs bool) []translate.Result {
	merged := Consolidate(results, opts)
	if paragraphs {
		return ClusterParagraphs(merged, opts)
	}
	return merged
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
