package translate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// IsAvailable 探测 Ollama 服务是否可用
func (c *OllamaClient) IsAvailable() bool {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(c.baseURL + "/api/tags")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// tagsResponse /api/tags 响应体
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// AvailableModels 获取服务端已安装的模型列表
func (c *OllamaClient) AvailableModels() ([]string, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(c.baseURL + "/api/tags")
	if err != nil {
		return nil, fmt.Errorf("获取模型列表失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("获取模型列表失败: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("解析模型列表失败: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if strings.TrimSpace(m.Name) != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

// StatusChecker 防抖的服务可用性检测器
// 短时间内的重复触发只会产生一次实际探测
type StatusChecker struct {
	client   *OllamaClient
	debounce func(func())
	onChange func(available bool)

	mu        sync.Mutex
	available bool
	checked   bool
}

// NewStatusChecker 创建状态检测器
// onChange 在可用性变化时回调，可为 nil
func NewStatusChecker(client *OllamaClient, onChange func(available bool)) *StatusChecker {
	return &StatusChecker{
		client:   client,
		debounce: debounce.New(time.Second),
		onChange: onChange,
	}
}

// Trigger 请求一次可用性检测，1 秒内的重复请求被合并
func (s *StatusChecker) Trigger() {
	s.debounce(s.check)
}

func (s *StatusChecker) check() {
	available := s.client.IsAvailable()

	s.mu.Lock()
	changed := !s.checked || available != s.available
	s.available = available
	s.checked = true
	s.mu.Unlock()

	if changed && s.onChange != nil {
		s.onChange(available)
	}
}

// Available 返回最近一次检测的结果
func (s *StatusChecker) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}
