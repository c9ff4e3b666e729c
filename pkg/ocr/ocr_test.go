package ocr

import (
	"testing"

	goocr "github.com/getcharzp/go-ocr"
)

func TestConvertResult(t *testing.T) {
	result := goocr.RecResult{
		Box:   [4]int{100, 200, 300, 240},
		Text:  "Hello World",
		Score: 0.95,
	}

	region := convertResult(result)

	if region.Text != "Hello World" {
		t.Errorf("文本不匹配: %s", region.Text)
	}
	if region.Rect.X != 100 || region.Rect.Y != 200 {
		t.Errorf("左上角应为 (100,200), 实际为 (%d,%d)", region.Rect.X, region.Rect.Y)
	}
	if region.Rect.Width != 200 || region.Rect.Height != 40 {
		t.Errorf("尺寸应为 200x40, 实际为 %dx%d", region.Rect.Width, region.Rect.Height)
	}
	if region.Confidence < 0.94 || region.Confidence > 0.96 {
		t.Errorf("置信度应约为 0.95, 实际为 %v", region.Confidence)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.OnnxRuntimeLibPath == "" {
		t.Error("OnnxRuntimeLibPath 不应为空")
	}
	if config.DetModelPath == "" {
		t.Error("DetModelPath 不应为空")
	}
	if config.MinConfidence != 0.2 {
		t.Errorf("默认 MinConfidence 应为 0.2, 实际为 %v", config.MinConfidence)
	}

	t.Logf("默认配置: %+v", config)
}
