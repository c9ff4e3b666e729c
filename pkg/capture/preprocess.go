package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Preprocess 对截图做 OCR 前的预处理
// 转灰度并做直方图均衡，提升低对比度界面文本的识别率
func Preprocess(img image.Image) (image.Image, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("图像转换失败: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(gray, &equalized)

	out, err := equalized.ToImage()
	if err != nil {
		return nil, fmt.Errorf("图像还原失败: %w", err)
	}
	return out, nil
}

// SaveDebugImage 保存调试截图
func SaveDebugImage(path string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("图像转换失败: %w", err)
	}
	defer mat.Close()

	if ok := gocv.IMWrite(path, mat); !ok {
		return fmt.Errorf("保存图像失败: %s", path)
	}
	return nil
}
