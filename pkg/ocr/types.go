// Package ocr 提供 OCR 文字识别功能
package ocr

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/xianai/xianworker/pkg/geom"
)

// TextRegion 一块识别出的屏幕文本
type TextRegion struct {
	// Rect 文本的轴对齐边界框 (屏幕坐标)
	Rect geom.Rect `json:"rect"`
	// Text 识别的文字内容
	Text string `json:"text"`
	// Confidence 识别置信度 (0-1)
	Confidence float64 `json:"confidence"`
}

// Config OCR 配置
type Config struct {
	// OnnxRuntimeLibPath ONNX Runtime 动态库路径
	OnnxRuntimeLibPath string
	// DetModelPath 检测模型路径
	DetModelPath string
	// RecModelPath 识别模型路径
	RecModelPath string
	// DictPath 字典文件路径
	DictPath string
	// MinConfidence 低于该置信度的结果丢弃
	MinConfidence float64
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: getDefaultOnnxRuntimePath(),
		DetModelPath:       getDefaultModelPath("det.onnx"),
		RecModelPath:       getDefaultModelPath("rec.onnx"),
		DictPath:           getDefaultModelPath("dict.txt"),
		MinConfidence:      0.2,
	}
}

// getExecutableDir 获取可执行文件所在目录
func getExecutableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return "."
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "."
	}
	return filepath.Dir(execPath)
}

// getDefaultOnnxRuntimePath 获取默认的 ONNX Runtime 库路径
func getDefaultOnnxRuntimePath() string {
	execDir := getExecutableDir()

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			filepath.Join(execDir, "libonnxruntime.dylib"),
			"models/lib/onnxruntime_arm64.dylib",
			"models/lib/onnxruntime_amd64.dylib",
		}
	case "windows":
		paths = []string{
			filepath.Join(execDir, "onnxruntime.dll"),
			"models/lib/onnxruntime.dll",
			"onnxruntime.dll",
		}
	default:
		paths = []string{
			filepath.Join(execDir, "libonnxruntime.so"),
			"models/lib/onnxruntime_arm64.so",
			"models/lib/onnxruntime_amd64.so",
		}
	}

	for _, p := range paths {
		if fileExists(p) {
			return p
		}
	}
	return paths[len(paths)-1]
}

// getDefaultModelPath 获取默认的模型路径
func getDefaultModelPath(filename string) string {
	execDir := getExecutableDir()

	paths := []string{
		filepath.Join(execDir, "models", "paddle_weights", filename),
		filepath.Join("models", "paddle_weights", filename),
	}

	for _, p := range paths {
		if fileExists(p) {
			return p
		}
	}
	return paths[0]
}

// fileExists 检查文件是否存在
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsAvailable 检查 OCR 功能是否可用（模型文件是否存在）
func IsAvailable() bool {
	config := DefaultConfig()
	return fileExists(config.OnnxRuntimeLibPath) &&
		fileExists(config.DetModelPath) &&
		fileExists(config.RecModelPath) &&
		fileExists(config.DictPath)
}
