package overlay

import (
	"strings"

	"github.com/xianai/xianworker/pkg/translate"
)

// MatchOptions 标注匹配参数
type MatchOptions struct {
	// MaxTextDist 文本匹配允许的最大曼哈顿距离
	MaxTextDist int
	// MaxCenterDist 中心点匹配允许的最大距离
	MaxCenterDist int
	// AppendMaxGap 向下追加允许的最大垂直间距
	AppendMaxGap int
	// AppendOverlap 向下追加要求的最小水平重叠比 (相对较窄一方)
	AppendOverlap float64
	// Cutoff 低于该分数时创建新标注
	Cutoff float64
}

// DefaultMatchOptions 默认匹配参数
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		MaxTextDist:   500,
		MaxCenterDist: 100,
		AppendMaxGap:  36,
		AppendOverlap: 0.3,
		Cutoff:        0.4,
	}
}

// matchScore 计算新结果与已有标注的相似度
// 取文本相似、区域 IoU、中心距离三路打分的最大值
func matchScore(existing, candidate translate.Result, opts MatchOptions) float64 {
	score := 0.0

	exText := strings.ToLower(strings.TrimSpace(existing.Translated))
	newText := strings.ToLower(strings.TrimSpace(candidate.Translated))

	// 文本相同或互为子串且位置不远
	if exText == newText || strings.Contains(exText, newText) || strings.Contains(newText, exText) {
		dist := abs(existing.Rect.X-candidate.Rect.X) + abs(existing.Rect.Y-candidate.Rect.Y)
		if dist < opts.MaxTextDist {
			ratio := float64(dist) / float64(opts.MaxTextDist)
			if ratio > 1 {
				ratio = 1
			}
			score = 0.7 + (1.0-ratio)*0.3
		}
	}

	if iou := existing.Rect.IoU(candidate.Rect); iou > score {
		score = iou
	}

	cDist := existing.Rect.Center().ManhattanDistance(candidate.Rect.Center())
	if cDist < opts.MaxCenterDist {
		centerScore := (1.0 - float64(cDist)/float64(opts.MaxCenterDist)) * 0.6
		if centerScore > score {
			score = centerScore
		}
	}

	return score
}

// isAppendBelow 判断新结果是否是已有标注正下方的续行
func isAppendBelow(existing, candidate translate.Result, opts MatchOptions) bool {
	vertGap := candidate.Rect.Y - existing.Rect.Bottom()
	if vertGap < 0 || vertGap > opts.AppendMaxGap {
		return false
	}

	overlap := min(existing.Rect.Right(), candidate.Rect.Right()) -
		max(existing.Rect.X, candidate.Rect.X)
	narrower := min(existing.Rect.Width, candidate.Rect.Width)

	return float64(overlap) >= float64(narrower)*opts.AppendOverlap
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
