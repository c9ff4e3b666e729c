package capture

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/xianai/xianworker/pkg/geom"
)

// Redact 把指定几何区域涂黑后返回新图像
// rects 为屏幕坐标系下的遮盖区域，每个区域向外扩展 margin 像素；
// offset 为截图在屏幕上的左上角，区域截取时用于换算到图像坐标系。
// 原图不会被修改。
func Redact(img image.Image, rects []geom.Rect, margin int, offset geom.Point) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	if len(rects) == 0 {
		return out
	}

	black := image.NewUniform(color.Black)
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		expanded := r.Expand(margin).Translate(-offset.X, -offset.Y)
		target := image.Rect(
			bounds.Min.X+expanded.X,
			bounds.Min.Y+expanded.Y,
			bounds.Min.X+expanded.Right(),
			bounds.Min.Y+expanded.Bottom(),
		).Intersect(bounds)
		if target.Empty() {
			continue
		}
		draw.Draw(out, target, black, image.Point{}, draw.Src)
	}

	return out
}
