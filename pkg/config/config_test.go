package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPipelineConfig(t *testing.T) {
	config := DefaultPipelineConfig()

	if config.IntervalMs != 2000 {
		t.Errorf("默认 IntervalMs 应为 2000, 实际为 %d", config.IntervalMs)
	}
	if config.RedactMargin != 15 {
		t.Errorf("默认 RedactMargin 应为 15, 实际为 %d", config.RedactMargin)
	}
	if config.MatchCutoff != 0.4 {
		t.Errorf("默认 MatchCutoff 应为 0.4, 实际为 %v", config.MatchCutoff)
	}
	if config.MaxAnnotations != 50 {
		t.Errorf("默认 MaxAnnotations 应为 50, 实际为 %d", config.MaxAnnotations)
	}
	if config.ImageCacheSize != 8 || config.OCRCacheSize != 16 || config.TextCacheSize != 500 {
		t.Errorf("默认缓存容量应为 8/16/500, 实际为 %d/%d/%d",
			config.ImageCacheSize, config.OCRCacheSize, config.TextCacheSize)
	}
	if config.OCRMinConfidence != 0.2 {
		t.Errorf("默认 OCRMinConfidence 应为 0.2, 实际为 %v", config.OCRMinConfidence)
	}
	if !config.Preprocess {
		t.Error("默认应开启识别前预处理")
	}

	t.Logf("默认配置: %+v", config)
}

func TestManagerSaveAndLoad(t *testing.T) {
	// 使用临时目录
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	// 检查初始状态
	if manager.Exists() {
		t.Error("初始时配置文件不应存在")
	}

	// 保存配置
	config := DefaultPipelineConfig()
	config.IntervalMs = 3000
	config.Model = "llama3:8b"
	config.TargetLang = "ja"
	config.ParagraphOCR = true

	err := manager.Save(config)
	if err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}

	// 检查文件是否存在
	if !manager.Exists() {
		t.Error("保存后配置文件应存在")
	}

	// 加载配置
	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	// 验证内容
	if loaded.IntervalMs != config.IntervalMs {
		t.Errorf("IntervalMs 不匹配: 期望 %d, 实际 %d", config.IntervalMs, loaded.IntervalMs)
	}
	if loaded.Model != config.Model {
		t.Errorf("Model 不匹配: 期望 %s, 实际 %s", config.Model, loaded.Model)
	}
	if loaded.TargetLang != config.TargetLang {
		t.Errorf("TargetLang 不匹配: 期望 %s, 实际 %s", config.TargetLang, loaded.TargetLang)
	}
	if loaded.ParagraphOCR != config.ParagraphOCR {
		t.Errorf("ParagraphOCR 不匹配: 期望 %v, 实际 %v", config.ParagraphOCR, loaded.ParagraphOCR)
	}

	t.Logf("加载的配置: %+v", loaded)
}

func TestManagerLoadPartialFile(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	// 只写部分字段，其余应保持默认值
	configFile := filepath.Join(tempDir, "config.json")
	err := os.WriteFile(configFile, []byte(`{"interval_ms": 5000}`), 0600)
	if err != nil {
		t.Fatalf("创建测试文件失败: %v", err)
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if loaded.IntervalMs != 5000 {
		t.Errorf("IntervalMs 应为 5000, 实际为 %d", loaded.IntervalMs)
	}
	if loaded.MaxAnnotations != 50 {
		t.Errorf("缺失字段 MaxAnnotations 应保持默认值 50, 实际为 %d", loaded.MaxAnnotations)
	}
	if loaded.OllamaURL != "http://localhost:11434" {
		t.Errorf("缺失字段 OllamaURL 应保持默认值, 实际为 %s", loaded.OllamaURL)
	}
	if !loaded.Preprocess {
		t.Error("缺失字段 Preprocess 应保持默认开启")
	}
}

func TestManagerClear(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	// 先保存一个配置
	err := manager.Save(DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}

	if !manager.Exists() {
		t.Fatal("保存后配置文件应存在")
	}

	// 清除配置
	err = manager.Clear()
	if err != nil {
		t.Fatalf("清除配置失败: %v", err)
	}

	if manager.Exists() {
		t.Error("清除后配置文件不应存在")
	}

	// 清除不存在的文件不应报错
	err = manager.Clear()
	if err != nil {
		t.Errorf("清除不存在的配置不应报错: %v", err)
	}
}

func TestManagerLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	// 加载不存在的配置应返回默认值
	config, err := manager.Load()
	if err != nil {
		t.Fatalf("加载不存在的配置不应报错: %v", err)
	}

	defaultConfig := DefaultPipelineConfig()
	if config.IntervalMs != defaultConfig.IntervalMs {
		t.Errorf("应返回默认 IntervalMs")
	}

	t.Log("加载不存在的配置返回默认值: OK")
}

func TestManagerLoadCorruptedFile(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	// 创建一个损坏的配置文件
	configFile := filepath.Join(tempDir, "config.json")
	os.MkdirAll(tempDir, 0755)
	err := os.WriteFile(configFile, []byte("not valid json"), 0600)
	if err != nil {
		t.Fatalf("创建测试文件失败: %v", err)
	}

	// 加载损坏的配置应返回默认值和错误
	config, err := manager.Load()
	if err == nil {
		t.Error("加载损坏的配置应返回错误")
	}

	// 但仍应返回默认配置
	if config == nil {
		t.Error("即使出错也应返回默认配置")
	}

	t.Logf("加载损坏配置的错误: %v", err)
}

func TestRegionsSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	// 空状态应返回空列表
	regions, err := manager.LoadRegions()
	if err != nil {
		t.Fatalf("加载空区域列表不应报错: %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("初始区域列表应为空, 实际有 %d 项", len(regions))
	}

	saved := []Region{
		{X: 100, Y: 200, Width: 640, Height: 480, Name: "字幕区", Enabled: true},
		{X: 0, Y: 0, Width: 320, Height: 240, Name: "聊天框", Enabled: false},
	}

	if err := manager.SaveRegions(saved); err != nil {
		t.Fatalf("保存区域失败: %v", err)
	}

	loaded, err := manager.LoadRegions()
	if err != nil {
		t.Fatalf("加载区域失败: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("应加载 2 个区域, 实际为 %d", len(loaded))
	}
	if loaded[0] != saved[0] {
		t.Errorf("区域不匹配: 期望 %+v, 实际 %+v", saved[0], loaded[0])
	}
	if loaded[1].Enabled {
		t.Error("第二个区域应为禁用状态")
	}

	t.Logf("加载的区域: %+v", loaded)
}

func TestManagerPaths(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	if manager.GetConfigDir() != tempDir {
		t.Errorf("GetConfigDir 应为 %s", tempDir)
	}

	expectedFile := filepath.Join(tempDir, "config.json")
	if manager.GetConfigFile() != expectedFile {
		t.Errorf("GetConfigFile 应为 %s", expectedFile)
	}

	t.Logf("配置目录: %s", manager.GetConfigDir())
	t.Logf("配置文件: %s", manager.GetConfigFile())
}

func TestConfigFilePermissions(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	err := manager.Save(DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}

	// 检查文件权限 (应为 0600)
	info, err := os.Stat(manager.GetConfigFile())
	if err != nil {
		t.Fatalf("获取文件信息失败: %v", err)
	}

	perm := info.Mode().Perm()
	// 在某些系统上权限可能略有不同，但不应该是全局可读的
	if perm&0077 != 0 {
		t.Logf("警告: 配置文件权限为 %o", perm)
	}

	t.Logf("配置文件权限: %o", perm)
}

// BenchmarkSaveLoad 基准测试
func BenchmarkSaveLoad(b *testing.B) {
	tempDir := b.TempDir()
	manager := NewManagerWithDir(tempDir)
	config := DefaultPipelineConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		manager.Save(config)
		manager.Load()
	}
}
