package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PipelineConfig 翻译流水线配置
type PipelineConfig struct {
	// 轮询
	IntervalMs  int `json:"interval_ms"`  // 翻译周期间隔
	BackoffMult int `json:"backoff_mult"` // 周期失败后的退避倍数

	// 遮盖
	RedactMargin int `json:"redact_margin"` // 遮盖区域向外扩展的像素

	// 指纹
	HashMaxDistance int `json:"hash_max_distance"` // 感知哈希判定相似的最大距离

	// OCR
	Preprocess       bool    `json:"preprocess"`         // 识别前做灰度和对比度预处理
	OCRMinConfidence float64 `json:"ocr_min_confidence"` // 低于该置信度的识别结果丢弃
	OCRMaxInputs     int     `json:"ocr_max_inputs"`     // 单周期送入翻译的最大文本块数

	// 翻译
	OllamaURL    string `json:"ollama_url"`
	Model        string `json:"model"`
	SourceLang   string `json:"source_lang"`
	TargetLang   string `json:"target_lang"`
	TimeoutSec   int    `json:"timeout_sec"`
	ParagraphOCR bool   `json:"paragraph_ocr"` // 段落聚类模式

	// 合并
	MergeMaxYDelta      int `json:"merge_max_y_delta"`      // 同行判定的最大垂直偏差
	MergeDupMaxXDelta   int `json:"merge_dup_max_x_delta"`  // 重复文本判定的最大水平偏差
	MergeJoinMinXDelta  int `json:"merge_join_min_x_delta"` // 拼接判定的最小水平间距
	MergeJoinMaxXDelta  int `json:"merge_join_max_x_delta"` // 拼接判定的最大水平间距
	ParagraphVertClose  int `json:"paragraph_vert_close"`   // 段落聚类的垂直接近阈值
	ParagraphVertSlack  int `json:"paragraph_vert_slack"`   // 段落聚类的垂直容差
	ParagraphHorizSlack int `json:"paragraph_horiz_slack"`  // 段落聚类的水平容差

	// 匹配
	MatchMaxTextDist   int     `json:"match_max_text_dist"`   // 文本匹配的最大曼哈顿距离
	MatchMaxCenterDist int     `json:"match_max_center_dist"` // 中心点匹配的最大距离
	MatchAppendMaxGap  int     `json:"match_append_max_gap"`  // 向下追加的最大垂直间距
	MatchAppendOverlap float64 `json:"match_append_overlap"`  // 向下追加要求的最小水平重叠比
	MatchCutoff        float64 `json:"match_cutoff"`          // 低于该分数创建新标注
	MaxAnnotations     int     `json:"max_annotations"`       // 屏幕上标注的数量上限

	// 缓存容量
	ImageCacheSize int `json:"image_cache_size"`
	OCRCacheSize   int `json:"ocr_cache_size"`
	TextCacheSize  int `json:"text_cache_size"`

	// 日志
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// Region 屏幕捕获区域
type Region struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// DefaultPipelineConfig 默认流水线配置
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		IntervalMs:  2000,
		BackoffMult: 5,

		RedactMargin: 15,

		HashMaxDistance: 5,

		Preprocess:       true,
		OCRMinConfidence: 0.2,
		OCRMaxInputs:     50,

		OllamaURL:    "http://localhost:11434",
		Model:        "qwen2.5:7b",
		SourceLang:   "en",
		TargetLang:   "zh",
		TimeoutSec:   60,
		ParagraphOCR: false,

		MergeMaxYDelta:      20,
		MergeDupMaxXDelta:   50,
		MergeJoinMinXDelta:  -20,
		MergeJoinMaxXDelta:  40,
		ParagraphVertClose:  28,
		ParagraphVertSlack:  30,
		ParagraphHorizSlack: 20,

		MatchMaxTextDist:   500,
		MatchMaxCenterDist: 100,
		MatchAppendMaxGap:  36,
		MatchAppendOverlap: 0.3,
		MatchCutoff:        0.4,
		MaxAnnotations:     50,

		ImageCacheSize: 8,
		OCRCacheSize:   16,
		TextCacheSize:  500,

		LogLevel: "INFO",
		LogFile:  "",
	}
}

// Manager 配置管理器
type Manager struct {
	configDir   string
	configFile  string
	regionsFile string
	mu          sync.RWMutex
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := filepath.Join(homeDir, ".xianworker")
	return newManager(configDir)
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return newManager(configDir)
}

func newManager(configDir string) *Manager {
	return &Manager{
		configDir:   configDir,
		configFile:  filepath.Join(configDir, "config.json"),
		regionsFile: filepath.Join(configDir, "regions.json"),
	}
}

// ensureDir 确保配置目录存在
func (m *Manager) ensureDir() error {
	return os.MkdirAll(m.configDir, 0755)
}

// Load 加载配置，文件不存在时返回默认配置
func (m *Manager) Load() (*PipelineConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return DefaultPipelineConfig(), nil
	}

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		return DefaultPipelineConfig(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 先填默认值，文件里缺失的字段保持默认
	config := DefaultPipelineConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return DefaultPipelineConfig(), fmt.Errorf("解析配置文件失败: %w", err)
	}

	return config, nil
}

// Save 保存配置
func (m *Manager) Save(config *PipelineConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// LoadRegions 加载捕获区域列表，文件不存在时返回空列表
func (m *Manager) LoadRegions() ([]Region, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.regionsFile); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(m.regionsFile)
	if err != nil {
		return nil, fmt.Errorf("读取区域文件失败: %w", err)
	}

	var regions []Region
	if err := json.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("解析区域文件失败: %w", err)
	}

	return regions, nil
}

// SaveRegions 保存捕获区域列表
func (m *Manager) SaveRegions(regions []Region) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(regions, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化区域失败: %w", err)
	}

	if err := os.WriteFile(m.regionsFile, data, 0600); err != nil {
		return fmt.Errorf("写入区域文件失败: %w", err)
	}

	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(m.configFile)
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}
