package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strings"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// 调试快照的配色
var (
	snapshotBackground = color.RGBA{30, 30, 30, 255}
	annotationFill     = color.RGBA{0, 0, 0, 220}
	annotationBorder   = color.RGBA{90, 160, 255, 255}
	annotationText     = color.RGBA{240, 240, 240, 255}
)

var (
	snapshotFont     *truetype.Font
	snapshotFontErr  error
	snapshotFontOnce sync.Once
)

func loadSnapshotFont() (*truetype.Font, error) {
	snapshotFontOnce.Do(func() {
		snapshotFont, snapshotFontErr = freetype.ParseFont(goregular.TTF)
	})
	if snapshotFontErr != nil {
		return nil, fmt.Errorf("加载字体失败: %w", snapshotFontErr)
	}
	return snapshotFont, nil
}

// RenderSnapshot 把标注渲染成一张调试图
// 每个标注画成带边框的半透明矩形，内部绘制译文的第一部分
func RenderSnapshot(annotations []Annotation, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("无效的快照尺寸: %dx%d", width, height)
	}

	fnt, err := loadSnapshotFont()
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(snapshotBackground), image.Point{}, draw.Src)

	const fontSize = 14

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(fnt)
	ctx.SetFontSize(fontSize)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(image.NewUniform(annotationText))
	ctx.SetHinting(font.HintingFull)

	for _, ann := range annotations {
		r := ann.Display
		rect := image.Rect(r.X, r.Y, r.Right(), r.Bottom()).Intersect(img.Bounds())
		if rect.Empty() {
			continue
		}

		draw.Draw(img, rect, image.NewUniform(annotationFill), image.Point{}, draw.Over)
		drawBorder(img, rect, annotationBorder)

		lines := strings.Split(ann.Result.Translated, "\n")
		if !ann.Expanded && len(lines) > 1 {
			lines = lines[:1]
		}

		y := rect.Min.Y + fontSize + 2
		for _, line := range lines {
			if y > rect.Max.Y {
				break
			}
			pt := freetype.Pt(rect.Min.X+4, y)
			if _, err := ctx.DrawString(line, pt); err != nil {
				return nil, fmt.Errorf("绘制文本失败: %w", err)
			}
			y += fontSize + 4
		}
	}

	return img, nil
}

// drawBorder 绘制 1 像素矩形边框
func drawBorder(img *image.RGBA, rect image.Rectangle, c color.Color) {
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.Set(x, rect.Min.Y, c)
		img.Set(x, rect.Max.Y-1, c)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.Set(rect.Min.X, y, c)
		img.Set(rect.Max.X-1, y, c)
	}
}

// SaveSnapshot 渲染标注并保存为 PNG 文件
func SaveSnapshot(path string, annotations []Annotation, width, height int) error {
	img, err := RenderSnapshot(annotations, width, height)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建快照文件失败: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("编码快照失败: %w", err)
	}
	return nil
}
