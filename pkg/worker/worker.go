// Package worker 实现屏幕翻译的后台工作循环
package worker

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/xianai/xianworker/internal/logger"
	"github.com/xianai/xianworker/pkg/cache"
	"github.com/xianai/xianworker/pkg/config"
	"github.com/xianai/xianworker/pkg/geom"
	"github.com/xianai/xianworker/pkg/ocr"
	"github.com/xianai/xianworker/pkg/translate"
)

// Capturer 屏幕截取接口
type Capturer interface {
	CaptureFull() (image.Image, error)
	CaptureRegion(r geom.Rect) (image.Image, error)
}

// Recognizer 文字识别接口
type Recognizer interface {
	Recognize(img image.Image) ([]ocr.TextRegion, error)
}

// Translator 批量翻译接口
type Translator interface {
	TranslateItems(ctx context.Context, items []translate.Item) ([]translate.Result, error)
}

// Update 一轮翻译产生的标注更新
type Update struct {
	// Results 本轮的翻译结果 (屏幕坐标)，为空表示该区域已无文本
	Results []translate.Result
	// UpdatedArea 本轮覆盖的屏幕区域，nil 表示全屏
	UpdatedArea *geom.Rect
}

// Options 工作循环参数
type Options struct {
	// Interval 翻译周期间隔
	Interval time.Duration
	// BackoffMult 周期失败后的退避倍数
	BackoffMult int
	// RedactMargin 遮盖区域向外扩展的像素
	RedactMargin int
	// HashMaxDistance 感知哈希判定画面未变的最大距离
	HashMaxDistance int
	// MaxInputs 单周期送入翻译的最大文本块数
	MaxInputs int
	// ImageCacheSize 图像指纹缓存容量
	ImageCacheSize int
	// OCRCacheSize OCR 指纹缓存容量
	OCRCacheSize int
	// Preprocess 是否在识别前做灰度和对比度预处理
	Preprocess bool
	// DebugDir 遮盖后截图的调试输出目录, 为空时关闭
	DebugDir string
	// StatsEvery 每隔多少个周期记录一次资源占用, 0 表示关闭
	StatsEvery int
}

// DefaultOptions 默认工作循环参数
func DefaultOptions() Options {
	return Options{
		Interval:        2 * time.Second,
		BackoffMult:     5,
		RedactMargin:    15,
		HashMaxDistance: 5,
		MaxInputs:       50,
		ImageCacheSize:  8,
		OCRCacheSize:    16,
		Preprocess:      true,
		StatsEvery:      30,
	}
}

// OptionsFromConfig 从流水线配置构造工作循环参数
func OptionsFromConfig(cfg *config.PipelineConfig) Options {
	return Options{
		Interval:        time.Duration(cfg.IntervalMs) * time.Millisecond,
		BackoffMult:     cfg.BackoffMult,
		RedactMargin:    cfg.RedactMargin,
		HashMaxDistance: cfg.HashMaxDistance,
		MaxInputs:       cfg.OCRMaxInputs,
		ImageCacheSize:  cfg.ImageCacheSize,
		OCRCacheSize:    cfg.OCRCacheSize,
		Preprocess:      cfg.Preprocess,
		StatsEvery:      30,
	}
}

// cachedFrame 图像缓存条目: 同一帧的识别结果和译文
type cachedFrame struct {
	regions []ocr.TextRegion
	results []translate.Result
}

// fullScreenKey 全屏目标的缓存键前缀
const fullScreenKey = "fullscreen"

// Worker 屏幕翻译工作器
// 周期性地截屏、识别、翻译，并把标注更新写入 Updates 通道
type Worker struct {
	capturer   Capturer
	recognizer Recognizer
	translator Translator
	opts       Options

	updates chan Update

	mu          sync.Mutex
	geometries  []geom.Rect
	regions     []config.Region
	lastEmitted map[string]string
	lastFrame   map[string]*goimagehash.ImageHash
	imageCache  *cache.LRU[string, cachedFrame]
	ocrCache    *cache.LRU[string, []translate.Result]
	cycleCount  int
}

// New 创建工作器
func New(capturer Capturer, recognizer Recognizer, translator Translator, opts Options) *Worker {
	return &Worker{
		capturer:    capturer,
		recognizer:  recognizer,
		translator:  translator,
		opts:        opts,
		updates:     make(chan Update, 8),
		lastEmitted: make(map[string]string),
		lastFrame:   make(map[string]*goimagehash.ImageHash),
		imageCache:  cache.NewLRU[string, cachedFrame](opts.ImageCacheSize),
		ocrCache:    cache.NewLRU[string, []translate.Result](opts.OCRCacheSize),
	}
}

// Updates 返回标注更新通道
func (w *Worker) Updates() <-chan Update {
	return w.updates
}

// SetActiveGeometries 设置截屏前需要遮盖的屏幕区域
// 消费方在每次标注变化后回传，防止标注自身被再次识别
func (w *Worker) SetActiveGeometries(rects []geom.Rect) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.geometries = make([]geom.Rect, len(rects))
	copy(w.geometries, rects)
}

// SetRegions 设置捕获区域，无启用区域时回退到全屏模式
func (w *Worker) SetRegions(regions []config.Region) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.regions = make([]config.Region, len(regions))
	copy(w.regions, regions)
}

// Reset 清空所有缓存和抑制状态，下一周期强制重新翻译
func (w *Worker) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastEmitted = make(map[string]string)
	w.lastFrame = make(map[string]*goimagehash.ImageHash)
	w.imageCache.Clear()
	w.ocrCache.Clear()
	logger.Info("工作器状态已重置")
}

// snapshotGeometries 取遮盖区域快照
func (w *Worker) snapshotGeometries() []geom.Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]geom.Rect, len(w.geometries))
	copy(out, w.geometries)
	return out
}

// enabledRegions 取启用的捕获区域快照
func (w *Worker) enabledRegions() []config.Region {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []config.Region
	for _, r := range w.regions {
		if r.Enabled && r.Width > 0 && r.Height > 0 {
			out = append(out, r)
		}
	}
	return out
}

// Run 运行工作循环直到 ctx 取消
// 周期耗时会从下一次等待中扣除，周期失败时按 BackoffMult 退避
func (w *Worker) Run(ctx context.Context) error {
	logger.Info("翻译工作循环启动, 间隔 %v", w.opts.Interval)
	defer logger.Info("翻译工作循环退出")

	for {
		start := time.Now()
		err := w.cycle(ctx)
		elapsed := time.Since(start)

		wait := w.opts.Interval - elapsed
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("翻译周期失败: %v", err)
			wait = w.opts.Interval * time.Duration(w.opts.BackoffMult)
		}
		if wait < 0 {
			wait = 0
		}

		if !w.sleep(ctx, wait) {
			return ctx.Err()
		}
	}
}

// sleep 可取消的分段等待，返回 false 表示 ctx 已取消
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	const chunk = 100 * time.Millisecond

	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ctx.Err() == nil
		}
		if remaining > chunk {
			remaining = chunk
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(remaining):
		}
	}
}

// emit 发送标注更新，通道满时丢弃并告警
func (w *Worker) emit(update Update) {
	select {
	case w.updates <- update:
	default:
		logger.Warn("更新通道已满, 丢弃本轮结果")
	}
}
