package worker

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/xianai/xianworker/internal/logger"
	"github.com/xianai/xianworker/pkg/capture"
	"github.com/xianai/xianworker/pkg/fingerprint"
	"github.com/xianai/xianworker/pkg/geom"
	"github.com/xianai/xianworker/pkg/ocr"
	"github.com/xianai/xianworker/pkg/translate"
)

// target 一个捕获目标: 全屏或一个配置区域
type target struct {
	key    string
	rect   geom.Rect
	region bool
}

// cycle 执行一个完整的翻译周期
func (w *Worker) cycle(ctx context.Context) error {
	w.mu.Lock()
	w.cycleCount++
	count := w.cycleCount
	w.mu.Unlock()

	if w.opts.StatsEvery > 0 && count%w.opts.StatsEvery == 0 {
		w.logResourceStats()
	}

	targets := w.targets()
	for _, t := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processTarget(ctx, t); err != nil {
			return fmt.Errorf("处理目标 %s 失败: %w", t.key, err)
		}
	}
	return nil
}

// targets 计算本周期的捕获目标列表
func (w *Worker) targets() []target {
	regions := w.enabledRegions()
	if len(regions) == 0 {
		return []target{{key: fullScreenKey}}
	}

	out := make([]target, 0, len(regions))
	for i, r := range regions {
		key := r.Name
		if key == "" {
			key = fmt.Sprintf("region-%d", i)
		}
		out = append(out, target{
			key:    key,
			rect:   geom.NewRect(r.X, r.Y, r.Width, r.Height),
			region: true,
		})
	}
	return out
}

// processTarget 处理一个捕获目标: 截屏、指纹、识别、翻译、发布
func (w *Worker) processTarget(ctx context.Context, t target) error {
	startTime := time.Now()

	img, offset, err := w.captureTarget(t)
	if err != nil {
		logger.LogStage("CAP", false, time.Since(startTime), t.key)
		// 截屏失败不算周期异常, 按正常节奏等下一轮
		logger.Warn("目标 %s 截屏失败, 跳过本轮: %v", t.key, err)
		return nil
	}
	if capture.LooksBlank(img) {
		logger.Debug("目标 %s 截图疑似空白, 跳过本轮", t.key)
		return nil
	}
	logger.LogStage("CAP", true, time.Since(startTime), t.key)

	redacted := capture.Redact(img, w.snapshotGeometries(), w.opts.RedactMargin, offset)

	if w.opts.DebugDir != "" {
		// 同名覆盖, 只保留每个目标最近一帧
		path := filepath.Join(w.opts.DebugDir, t.key+"-redacted.png")
		if err := capture.SaveDebugImage(path, redacted); err != nil {
			logger.Warn("保存调试截图失败: %v", err)
		}
	}

	// 精确指纹命中: 直接复用整帧的译文
	imgHash := t.key + ":" + fingerprint.ImageHash(redacted)
	if frame, ok := w.getCachedFrame(imgHash); ok {
		logger.Debug("目标 %s 图像缓存命中, 跳过识别和翻译", t.key)
		w.publish(t, frame.results)
		return nil
	}

	// 感知指纹近似: 画面只有微小变化时跳过本轮
	frameHash, skip, err := w.similarToLastFrame(t.key, redacted)
	if err != nil {
		logger.Warn("感知哈希计算失败: %v", err)
	} else if skip {
		logger.Debug("目标 %s 画面近似上一帧, 跳过本轮", t.key)
		return nil
	}

	ocrInput := image.Image(redacted)
	if w.opts.Preprocess {
		if processed, err := capture.Preprocess(redacted); err != nil {
			logger.Warn("预处理失败, 使用原图识别: %v", err)
		} else {
			ocrInput = processed
		}
	}

	regions, err := w.recognizer.Recognize(ocrInput)
	if err != nil {
		return err
	}
	if len(regions) > w.opts.MaxInputs {
		logger.Warn("目标 %s 识别结果过多 (%d), 截断到 %d", t.key, len(regions), w.opts.MaxInputs)
		regions = regions[:w.opts.MaxInputs]
	}

	// 区域模式下把图像坐标换算回屏幕坐标
	if t.region {
		for i := range regions {
			regions[i].Rect = regions[i].Rect.Translate(offset.X, offset.Y)
		}
	}

	if len(regions) == 0 {
		w.storeCachedFrame(imgHash, cachedFrame{})
		w.setLastFrame(t.key, frameHash)
		w.publish(t, nil)
		return nil
	}

	// OCR 指纹命中: 文本和位置未变, 复用译文
	ocrSig := t.key + ":" + fingerprint.ResultSignature(regionEntries(regions))
	if results, ok := w.getCachedOCR(ocrSig); ok {
		logger.Debug("目标 %s OCR 缓存命中, 跳过翻译", t.key)
		w.storeCachedFrame(imgHash, cachedFrame{regions: regions, results: results})
		w.setLastFrame(t.key, frameHash)
		w.publish(t, results)
		return nil
	}

	items := make([]translate.Item, 0, len(regions))
	for _, r := range regions {
		items = append(items, translate.Item{Rect: r.Rect, Text: r.Text})
	}

	results, err := w.translator.TranslateItems(ctx, items)
	if err != nil {
		// 失败时不写任何缓存, 下一周期重试
		return err
	}

	w.storeCachedFrame(imgHash, cachedFrame{regions: regions, results: results})
	w.storeCachedOCR(ocrSig, results)
	w.setLastFrame(t.key, frameHash)
	w.publish(t, results)
	return nil
}

// captureTarget 截取目标画面并返回其在屏幕上的偏移
func (w *Worker) captureTarget(t target) (image.Image, geom.Point, error) {
	if t.region {
		img, err := w.capturer.CaptureRegion(t.rect)
		return img, geom.Point{X: t.rect.X, Y: t.rect.Y}, err
	}
	img, err := w.capturer.CaptureFull()
	return img, geom.Point{}, err
}

// similarToLastFrame 用感知哈希判断画面是否与最近成功处理的一帧近似
// 基准帧只在周期成功后由 setLastFrame 更新, 保证失败后相同画面会重试
func (w *Worker) similarToLastFrame(key string, img image.Image) (*goimagehash.ImageHash, bool, error) {
	hash, err := fingerprint.PerceptionHashOf(img)
	if err != nil {
		return nil, false, err
	}

	w.mu.Lock()
	prev := w.lastFrame[key]
	w.mu.Unlock()

	if prev != nil {
		dist, err := prev.Distance(hash)
		if err == nil && dist <= w.opts.HashMaxDistance {
			return hash, true, nil
		}
	}
	return hash, false, nil
}

// setLastFrame 更新感知哈希基准帧
func (w *Worker) setLastFrame(key string, hash *goimagehash.ImageHash) {
	if hash == nil {
		return
	}
	w.mu.Lock()
	w.lastFrame[key] = hash
	w.mu.Unlock()
}

// publish 带抑制地发布一轮结果
// 结果集指纹与上次发布一致时不再打扰消费方
func (w *Worker) publish(t target, results []translate.Result) {
	sig := fingerprint.ResultSignature(resultEntries(results))

	w.mu.Lock()
	unchanged := w.lastEmitted[t.key] == sig
	if !unchanged {
		w.lastEmitted[t.key] = sig
	}
	w.mu.Unlock()

	if unchanged {
		logger.Debug("目标 %s 结果未变化, 抑制本轮更新", t.key)
		return
	}

	update := Update{Results: results}
	if t.region {
		area := t.rect
		update.UpdatedArea = &area
	}
	w.emit(update)
}

// getCachedFrame / storeCachedFrame 图像缓存读写
func (w *Worker) getCachedFrame(key string) (cachedFrame, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.imageCache.Get(key)
}

func (w *Worker) storeCachedFrame(key string, frame cachedFrame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.imageCache.Put(key, frame)
}

// getCachedOCR / storeCachedOCR OCR 指纹缓存读写
func (w *Worker) getCachedOCR(key string) ([]translate.Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ocrCache.Get(key)
}

func (w *Worker) storeCachedOCR(key string, results []translate.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ocrCache.Put(key, results)
}

// regionEntries 把识别结果转成指纹条目
func regionEntries(regions []ocr.TextRegion) []fingerprint.Entry {
	entries := make([]fingerprint.Entry, len(regions))
	for i, r := range regions {
		entries[i] = fingerprint.Entry{Rect: r.Rect, Text: r.Text}
	}
	return entries
}

// resultEntries 把翻译结果转成指纹条目
func resultEntries(results []translate.Result) []fingerprint.Entry {
	entries := make([]fingerprint.Entry, len(results))
	for i, r := range results {
		entries[i] = fingerprint.Entry{Rect: r.Rect, Text: r.Translated}
	}
	return entries
}
