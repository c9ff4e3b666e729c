package worker

import (
	"os"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/xianai/xianworker/internal/logger"
)

// logResourceStats 记录当前进程的资源占用
func (w *Worker) logResourceStats() {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("获取进程信息失败: %v", err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		cpuPercent = 0
	}

	var rssMB float64
	if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
		rssMB = float64(memInfo.RSS) / 1024 / 1024
	}

	w.mu.Lock()
	imageLen := w.imageCache.Len()
	ocrLen := w.ocrCache.Len()
	cycles := w.cycleCount
	w.mu.Unlock()

	logger.Info("资源占用: CPU %.1f%%, 内存 %.1fMB, 周期 %d, 图像缓存 %d, OCR 缓存 %d",
		cpuPercent, rssMB, cycles, imageLen, ocrLen)
}
