package ocr

import (
	"fmt"
	"image"
	"sync"
	"time"

	goocr "github.com/getcharzp/go-ocr"

	"github.com/xianai/xianworker/internal/logger"
	"github.com/xianai/xianworker/pkg/geom"
)

// Engine OCR 识别引擎
// RunOCR 非并发安全，内部用互斥锁串行化调用
type Engine struct {
	engine goocr.Engine
	config Config
	mu     sync.Mutex
}

// NewEngine 创建新的 OCR 引擎
func NewEngine(config Config) (*Engine, error) {
	ocrConfig := goocr.Config{
		OnnxRuntimeLibPath: config.OnnxRuntimeLibPath,
		DetModelPath:       config.DetModelPath,
		RecModelPath:       config.RecModelPath,
		DictPath:           config.DictPath,
	}

	engine, err := goocr.NewPaddleOcrEngine(ocrConfig)
	if err != nil {
		return nil, fmt.Errorf("创建 OCR 引擎失败: %w", err)
	}

	logger.Info("OCR 引擎初始化成功")

	return &Engine{
		engine: engine,
		config: config,
	}, nil
}

// Recognize 识别图像中的所有文字
// 置信度低于 MinConfidence 的结果被过滤掉
func (e *Engine) Recognize(img image.Image) ([]TextRegion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	startTime := time.Now()

	results, err := e.engine.RunOCR(img)
	if err != nil {
		logger.LogStage("OCR", false, time.Since(startTime), "识别失败")
		return nil, fmt.Errorf("OCR 识别失败: %w", err)
	}

	regions := make([]TextRegion, 0, len(results))
	dropped := 0
	for _, result := range results {
		region := convertResult(result)
		if region.Text == "" || region.Confidence < e.config.MinConfidence {
			dropped++
			continue
		}
		regions = append(regions, region)
	}

	logger.LogStage("OCR", true, time.Since(startTime),
		fmt.Sprintf("识别到 %d 个文本, 过滤 %d 个", len(regions), dropped))

	return regions, nil
}

// Close 释放资源
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.engine != nil {
		e.engine.Destroy()
		e.engine = nil
	}
	return nil
}

// convertResult 转换 go-ocr 结果为 TextRegion
func convertResult(result goocr.RecResult) TextRegion {
	// go-ocr RecResult: Box [4]int{x1, y1, x2, y2}, Text string, Score float32
	box := result.Box
	return TextRegion{
		Rect:       geom.NewRect(box[0], box[1], box[2]-box[0], box[3]-box[1]),
		Text:       result.Text,
		Confidence: float64(result.Score),
	}
}
