// Package capture 提供屏幕截取和预处理功能
package capture

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"

	"github.com/xianai/xianworker/pkg/geom"
)

// CaptureScreen 截取全屏
func CaptureScreen() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("截屏失败: %w", err)
	}
	if img == nil {
		return nil, fmt.Errorf("截屏返回空图像")
	}
	return img, nil
}

// CaptureRegion 截取屏幕区域
func CaptureRegion(r geom.Rect) (image.Image, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("无效的截取区域: %dx%d", r.Width, r.Height)
	}
	img, err := robotgo.CaptureImg(r.X, r.Y, r.Width, r.Height)
	if err != nil {
		return nil, fmt.Errorf("截取区域失败: %w", err)
	}
	if img == nil {
		return nil, fmt.Errorf("截取区域返回空图像")
	}
	return img, nil
}

// GetScreenSize 获取屏幕尺寸
func GetScreenSize() (width, height int) {
	return robotgo.GetScreenSize()
}

// GetDisplayCount 获取显示器数量
func GetDisplayCount() int {
	return robotgo.DisplaysNum()
}

// LooksBlank 检查截图是否疑似失败（全黑画面）
// 采样四角和中心五个点，全为纯黑时判定为空白
func LooksBlank(img image.Image) bool {
	if img == nil {
		return true
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return true
	}

	points := []image.Point{
		{b.Min.X, b.Min.Y},
		{b.Max.X - 1, b.Min.Y},
		{b.Min.X, b.Max.Y - 1},
		{b.Max.X - 1, b.Max.Y - 1},
		{b.Min.X + b.Dx()/2, b.Min.Y + b.Dy()/2},
	}

	for _, p := range points {
		r, g, bl, _ := img.At(p.X, p.Y).RGBA()
		if r != 0 || g != 0 || bl != 0 {
			return false
		}
	}
	return true
}
