package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xianai/xianworker/internal/logger"
)

// OllamaClient 通过本地 Ollama 服务做批量文本翻译
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaClient 创建 Ollama 翻译客户端
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Model 返回当前使用的模型名
func (c *OllamaClient) Model() string {
	return c.model
}

// generateRequest /api/generate 请求体
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse /api/generate 响应体
type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// batchPayload 模型被要求返回的 JSON 结构
type batchPayload struct {
	Translations []string `json:"translations"`
}

// TranslateBatch 把一批文本翻译为目标语言
// 译文与输入一一对应，数量不符时返回错误
func (c *OllamaClient) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	startTime := time.Now()

	prompt, err := buildBatchPrompt(texts, sourceLang, targetLang)
	if err != nil {
		return nil, err
	}

	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
		Options: map[string]any{
			"temperature": 0,
			"num_predict": 2048,
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.LogStage("TRANS", false, time.Since(startTime), "请求失败")
		return nil, fmt.Errorf("翻译请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("模型 %s 不存在, 请先执行 ollama pull %s", c.model, c.model)
	}
	if resp.StatusCode != http.StatusOK {
		var genResp generateResponse
		if json.Unmarshal(body, &genResp) == nil && genResp.Error != "" {
			return nil, fmt.Errorf("翻译服务错误 (%d): %s", resp.StatusCode, genResp.Error)
		}
		return nil, fmt.Errorf("翻译服务错误: %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	translations, err := parseBatchResponse(genResp.Response, len(texts))
	if err != nil {
		logger.LogStage("TRANS", false, time.Since(startTime), "解析译文失败")
		return nil, err
	}

	logger.LogStage("TRANS", true, time.Since(startTime),
		fmt.Sprintf("翻译 %d 条文本", len(translations)))

	return translations, nil
}

// buildBatchPrompt 构造批量翻译提示词
// 文本以 JSON 数组传入，要求模型返回等长的 translations 数组
func buildBatchPrompt(texts []string, sourceLang, targetLang string) (string, error) {
	input, err := json.Marshal(texts)
	if err != nil {
		return "", fmt.Errorf("序列化文本失败: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are a professional translator.\n")
	if sourceLang != "" && sourceLang != "auto" {
		fmt.Fprintf(&sb, "Translate each string in the input JSON array from %s to %s.\n", sourceLang, targetLang)
	} else {
		fmt.Fprintf(&sb, "Translate each string in the input JSON array to %s.\n", targetLang)
	}
	sb.WriteString("Rules:\n")
	fmt.Fprintf(&sb, "1. Return ONLY a JSON object: {\"translations\": [...]} with exactly %d strings.\n", len(texts))
	sb.WriteString("2. Keep the order of the input array. Do not merge, split, or drop items.\n")
	fmt.Fprintf(&sb, "3. Every output string MUST be in %s.\n", targetLang)
	sb.WriteString("Input:\n")
	sb.Write(input)

	return sb.String(), nil
}

// parseBatchResponse 解析批量翻译响应，必要时先做 JSON 修复
func parseBatchResponse(content string, want int) ([]string, error) {
	var payload batchPayload

	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		repaired := RepairJSON(content)
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			// 内容不像 JSON 且只有一条输入时，当作纯文本译文
			if want == 1 && !LooksLikeJSON(content) && strings.TrimSpace(content) != "" {
				return []string{strings.TrimSpace(content)}, nil
			}
			return nil, fmt.Errorf("解析译文失败: %w", err)
		}
	}

	if len(payload.Translations) != want {
		return nil, fmt.Errorf("译文数量不符: 期望 %d, 实际 %d", want, len(payload.Translations))
	}

	return payload.Translations, nil
}
