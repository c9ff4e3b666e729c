// Package fingerprint 提供图像指纹和识别结果指纹计算
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/nfnt/resize"

	"github.com/xianai/xianworker/pkg/geom"
)

// EmptySignature 空帧 (无识别结果) 的指纹
const EmptySignature = "__empty__"

// ImageHash 计算图像的精确指纹
// 缩小到 16x16 灰度后取 MD5，对逐像素变化敏感，用于缓存键
func ImageHash(img image.Image) string {
	small := resize.Resize(16, 16, img, resize.NearestNeighbor)

	buf := make([]byte, 0, 256)
	bounds := small.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := small.At(x, y).RGBA()
			// ITU-R 601 灰度加权
			gray := (299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000
			buf = append(buf, byte(gray))
		}
	}

	sum := md5.Sum(buf)
	return hex.EncodeToString(sum[:])
}

// PerceptionDistance 计算两幅图像的感知哈希距离
// 距离小表示画面近似，用于跳过仅有光标闪烁等微小变化的帧
func PerceptionDistance(a, b image.Image) (int, error) {
	hashA, err := goimagehash.PerceptionHash(a)
	if err != nil {
		return 0, fmt.Errorf("计算感知哈希失败: %w", err)
	}
	hashB, err := goimagehash.PerceptionHash(b)
	if err != nil {
		return 0, fmt.Errorf("计算感知哈希失败: %w", err)
	}
	dist, err := hashA.Distance(hashB)
	if err != nil {
		return 0, fmt.Errorf("比较感知哈希失败: %w", err)
	}
	return dist, nil
}

// PerceptionHashOf 计算单幅图像的感知哈希，供调用方缓存后比较
func PerceptionHashOf(img image.Image) (*goimagehash.ImageHash, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("计算感知哈希失败: %w", err)
	}
	return h, nil
}

// Entry 参与结果集指纹计算的一条记录
type Entry struct {
	Rect geom.Rect
	Text string
}

// ResultSignature 计算识别结果集合的规范化指纹
// 先按 (x, y, w, h, 文本) 排序再拼接，与输入顺序无关；
// 空集合返回 EmptySignature
func ResultSignature(entries []Entry) string {
	if len(entries) == 0 {
		return EmptySignature
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Rect.X != b.Rect.X {
			return a.Rect.X < b.Rect.X
		}
		if a.Rect.Y != b.Rect.Y {
			return a.Rect.Y < b.Rect.Y
		}
		if a.Rect.Width != b.Rect.Width {
			return a.Rect.Width < b.Rect.Width
		}
		if a.Rect.Height != b.Rect.Height {
			return a.Rect.Height < b.Rect.Height
		}
		return a.Text < b.Text
	})

	var sb strings.Builder
	for _, e := range sorted {
		fmt.Fprintf(&sb, "%d,%d,%d,%d,%s;", e.Rect.X, e.Rect.Y, e.Rect.Width, e.Rect.Height, e.Text)
	}

	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
