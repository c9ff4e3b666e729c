package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xianai/xianworker/pkg/geom"
)

// fakeTranslator 记录调用的测试翻译器
type fakeTranslator struct {
	calls   [][]string
	fail    bool
	results map[string]string
}

func (f *fakeTranslator) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	f.calls = append(f.calls, texts)
	if f.fail {
		return nil, errors.New("翻译服务不可用")
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		if r, ok := f.results[t]; ok {
			out[i] = r
		} else {
			out[i] = "译:" + t
		}
	}
	return out, nil
}

func (f *fakeTranslator) Model() string { return "fake-model" }

func TestServiceCacheHitSkipsTranslator(t *testing.T) {
	fake := &fakeTranslator{}
	svc := NewService(fake, 100, "en", "zh")

	items := []Item{
		{Rect: geom.NewRect(0, 0, 100, 20), Text: "hello"},
		{Rect: geom.NewRect(0, 30, 100, 20), Text: "world"},
	}

	// 第一轮: 全部未命中
	out, err := svc.TranslateItems(context.Background(), items)
	if err != nil {
		t.Fatalf("翻译失败: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("应返回 2 条结果, 实际 %d", len(out))
	}
	if len(fake.calls) != 1 || len(fake.calls[0]) != 2 {
		t.Fatalf("第一轮应批量翻译 2 条, 实际调用 %v", fake.calls)
	}

	// 第二轮: 全部命中缓存，翻译器不应被调用
	out, err = svc.TranslateItems(context.Background(), items)
	if err != nil {
		t.Fatalf("翻译失败: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("缓存命中也应返回 2 条结果, 实际 %d", len(out))
	}
	if len(fake.calls) != 1 {
		t.Errorf("第二轮不应调用翻译器, 实际调用次数 %d", len(fake.calls))
	}
	if out[0].Translated != "译:hello" {
		t.Errorf("缓存译文不正确: %s", out[0].Translated)
	}
}

func TestServicePartialCacheHit(t *testing.T) {
	fake := &fakeTranslator{}
	svc := NewService(fake, 100, "en", "zh")

	_, err := svc.TranslateItems(context.Background(), []Item{
		{Rect: geom.NewRect(0, 0, 100, 20), Text: "hello"},
	})
	if err != nil {
		t.Fatalf("翻译失败: %v", err)
	}

	// hello 已缓存，只有 world 应送翻译
	out, err := svc.TranslateItems(context.Background(), []Item{
		{Rect: geom.NewRect(0, 0, 100, 20), Text: "hello"},
		{Rect: geom.NewRect(0, 30, 100, 20), Text: "world"},
	})
	if err != nil {
		t.Fatalf("翻译失败: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("应返回 2 条结果, 实际 %d", len(out))
	}

	last := fake.calls[len(fake.calls)-1]
	if len(last) != 1 || last[0] != "world" {
		t.Errorf("第二轮应只翻译 world, 实际 %v", last)
	}
}

func TestServiceFailureDoesNotPolluteCache(t *testing.T) {
	fake := &fakeTranslator{fail: true}
	svc := NewService(fake, 100, "en", "zh")

	items := []Item{{Rect: geom.NewRect(0, 0, 100, 20), Text: "hello"}}

	_, err := svc.TranslateItems(context.Background(), items)
	if err == nil {
		t.Fatal("翻译失败时应返回错误")
	}
	if svc.CacheLen() != 0 {
		t.Errorf("失败后缓存应为空, 实际 %d 条", svc.CacheLen())
	}

	// 恢复后重试应重新翻译
	fake.fail = false
	out, err := svc.TranslateItems(context.Background(), items)
	if err != nil {
		t.Fatalf("恢复后翻译失败: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("恢复后应返回 1 条结果")
	}
	if svc.CacheLen() != 1 {
		t.Errorf("成功后缓存应有 1 条, 实际 %d", svc.CacheLen())
	}
}

func TestServiceSkipsEmptyText(t *testing.T) {
	fake := &fakeTranslator{}
	svc := NewService(fake, 100, "en", "zh")

	out, err := svc.TranslateItems(context.Background(), []Item{
		{Rect: geom.NewRect(0, 0, 100, 20), Text: "  "},
		{Rect: geom.NewRect(0, 30, 100, 20), Text: "hello"},
	})
	if err != nil {
		t.Fatalf("翻译失败: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("空文本应被跳过, 实际返回 %d 条", len(out))
	}
	if len(fake.calls[0]) != 1 {
		t.Errorf("空文本不应送翻译, 实际 %v", fake.calls[0])
	}
}

func TestOllamaClientTranslateBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("意外的请求路径: %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("解析请求失败: %v", err)
		}
		if req.Stream {
			t.Error("应使用非流式请求")
		}

		resp := generateResponse{Response: `{"translations": ["你好", "世界"]}`}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "test-model", 10*time.Second)

	out, err := client.TranslateBatch(context.Background(), []string{"hello", "world"}, "en", "zh")
	if err != nil {
		t.Fatalf("翻译失败: %v", err)
	}
	if len(out) != 2 || out[0] != "你好" || out[1] != "世界" {
		t.Errorf("译文不正确: %v", out)
	}
}

func TestOllamaClientRepairsBrokenResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 截断的 JSON 响应
		resp := generateResponse{Response: `{"translations": ["你好", "世界`}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "test-model", 10*time.Second)

	out, err := client.TranslateBatch(context.Background(), []string{"hello", "world"}, "en", "zh")
	if err != nil {
		t.Fatalf("修复后仍翻译失败: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("应修复出 2 条译文, 实际 %v", out)
	}
}

func TestOllamaClientModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "model not found"}`)
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "missing-model", 10*time.Second)

	_, err := client.TranslateBatch(context.Background(), []string{"hello"}, "en", "zh")
	if err == nil {
		t.Fatal("模型不存在应返回错误")
	}
	t.Logf("错误信息: %v", err)
}

func TestOllamaClientAvailability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"models": [{"name": "qwen2.5:7b"}, {"name": "llama3:8b"}]}`)
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "qwen2.5:7b", 10*time.Second)

	if !client.IsAvailable() {
		t.Error("服务应可用")
	}

	models, err := client.AvailableModels()
	if err != nil {
		t.Fatalf("获取模型列表失败: %v", err)
	}
	if len(models) != 2 || models[0] != "qwen2.5:7b" {
		t.Errorf("模型列表不正确: %v", models)
	}

	// 服务关闭后应不可用
	server.Close()
	if client.IsAvailable() {
		t.Error("服务关闭后应不可用")
	}
}

func TestStatusCheckerDebounce(t *testing.T) {
	var probes int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "test-model", 10*time.Second)

	changes := make(chan bool, 4)
	checker := NewStatusChecker(client, func(available bool) {
		changes <- available
	})

	// 快速连续触发应合并为一次探测
	checker.Trigger()
	checker.Trigger()
	checker.Trigger()

	select {
	case available := <-changes:
		if !available {
			t.Error("服务应可用")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("等待状态回调超时")
	}

	if probes != 1 {
		t.Errorf("连续触发应只探测一次, 实际 %d 次", probes)
	}
	if !checker.Available() {
		t.Error("Available 应返回 true")
	}
}
