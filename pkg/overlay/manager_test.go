package overlay

import (
	"fmt"
	"testing"

	"github.com/xianai/xianworker/pkg/geom"
	"github.com/xianai/xianworker/pkg/translate"
)

func TestApplyCreatesAnnotations(t *testing.T) {
	m := NewManager(DefaultOptions())

	anns := m.Apply([]translate.Result{
		res(100, 100, 200, 30, "你好"),
		res(100, 300, 200, 30, "世界"),
	}, nil)

	if len(anns) != 2 {
		t.Fatalf("应创建 2 个标注, 实际 %d", len(anns))
	}
	if anns[0].Display != anns[0].Result.Rect {
		t.Error("新标注的显示位置应等于原文位置")
	}
}

func TestApplyEmptyKeepsAnnotations(t *testing.T) {
	// 全屏空结果只表示遮盖后已识别不到文本, 既有标注必须保留
	// 否则遮盖区域被清空后, 下一帧又会重新识别出原文, 来回震荡
	m := NewManager(DefaultOptions())

	m.Apply([]translate.Result{res(100, 100, 200, 30, "你好")}, nil)
	m.Apply(nil, nil)

	if m.Len() != 1 {
		t.Fatalf("空更新不应清除标注, 实际剩余 %d", m.Len())
	}
	if len(m.RedactionRects()) == 0 {
		t.Error("空更新后遮盖区域不应为空")
	}
}

func TestApplyUpdatesMatchedAnnotation(t *testing.T) {
	m := NewManager(DefaultOptions())

	m.Apply([]translate.Result{res(100, 100, 200, 30, "你好世界")}, nil)

	// 相同文本轻微位移: 应就地更新而不是新建
	anns := m.Apply([]translate.Result{res(110, 105, 200, 30, "你好世界")}, nil)

	if len(anns) != 1 {
		t.Fatalf("匹配成功应保持 1 个标注, 实际 %d", len(anns))
	}
	if anns[0].Result.Rect.X != 110 {
		t.Errorf("标注内容应更新到新位置, 实际 X=%d", anns[0].Result.Rect.X)
	}
	if anns[0].Display.X != 100 {
		t.Errorf("显示位置应保持不动, 实际 X=%d", anns[0].Display.X)
	}
}

func TestApplyUpdatesHighOverlapDifferentText(t *testing.T) {
	m := NewManager(DefaultOptions())

	m.Apply([]translate.Result{res(100, 100, 200, 30, "加载中")}, nil)
	anns := m.Apply([]translate.Result{res(101, 101, 199, 29, "加载完成")}, nil)

	if len(anns) != 1 {
		t.Fatalf("高度重叠的新文本应就地更新, 实际 %d 个标注", len(anns))
	}
	if anns[0].Result.Translated != "加载完成" {
		t.Errorf("标注文本应更新, 实际为 %q", anns[0].Result.Translated)
	}
}

func TestApplyCreatesWhenBelowCutoff(t *testing.T) {
	m := NewManager(DefaultOptions())

	m.Apply([]translate.Result{res(100, 100, 200, 30, "你好")}, nil)
	anns := m.Apply([]translate.Result{res(100, 600, 200, 30, "再见")}, nil)

	if len(anns) != 2 {
		t.Fatalf("不相关的结果应新建标注, 实际 %d 个", len(anns))
	}
}

func TestApplyAppendBelow(t *testing.T) {
	m := NewManager(DefaultOptions())

	m.Apply([]translate.Result{res(100, 100, 200, 30, "第一行")}, nil)

	// 正下方的续行应追加而不是新建
	anns := m.Apply([]translate.Result{res(100, 140, 200, 30, "第二行")}, nil)

	if len(anns) != 1 {
		t.Fatalf("续行应追加到已有标注, 实际 %d 个", len(anns))
	}
	if anns[0].Result.Translated != "第一行\n第二行" {
		t.Errorf("追加后的文本不正确: %q", anns[0].Result.Translated)
	}
	if anns[0].Result.Rect.Bottom() != 170 {
		t.Errorf("原文区域应扩展到 170, 实际为 %d", anns[0].Result.Rect.Bottom())
	}
}

func TestApplyRemovesStaleInUpdatedArea(t *testing.T) {
	m := NewManager(DefaultOptions())

	m.Apply([]translate.Result{
		res(100, 100, 200, 30, "区域内"),
		res(100, 800, 200, 30, "区域外"),
	}, nil)

	// 本轮只覆盖上半屏, 区域内未匹配的旧标注应被移除
	area := geom.NewRect(0, 0, 1000, 400)
	anns := m.Apply([]translate.Result{res(500, 200, 200, 30, "新内容")}, &area)

	texts := make(map[string]bool)
	for _, a := range anns {
		texts[a.Result.Translated] = true
	}

	if texts["区域内"] {
		t.Error("更新区域内未匹配的标注应被移除")
	}
	if !texts["区域外"] {
		t.Error("更新区域外的标注应保留")
	}
	if !texts["新内容"] {
		t.Error("新结果应创建标注")
	}
}

func TestApplyEnforcesAnnotationLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxInputs = 100
	m := NewManager(opts)

	// 51 个互不相关的结果, 纵向间距拉开避免互相匹配
	var results []translate.Result
	for i := 0; i < 51; i++ {
		results = append(results, res(10, i*700, 200, 30, fmt.Sprintf("文本%d", i)))
	}

	for _, r := range results[:50] {
		m.Apply([]translate.Result{r}, nil)
	}
	if m.Len() != 50 {
		t.Fatalf("应有 50 个标注, 实际 %d", m.Len())
	}

	m.Apply([]translate.Result{results[50]}, nil)
	if m.Len() != 50 {
		t.Errorf("超限后应淘汰回 50 个, 实际 %d", m.Len())
	}

	// 最旧的未匹配标注应被淘汰
	anns := m.Annotations()
	for _, a := range anns {
		if a.Result.Translated == "文本0" {
			t.Error("最旧的标注应被淘汰")
		}
	}
}

func TestApplyTruncatesExcessInputs(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxInputs = 5
	m := NewManager(opts)

	var results []translate.Result
	for i := 0; i < 20; i++ {
		results = append(results, res(10, i*700, 200, 30, fmt.Sprintf("文本%d", i)))
	}

	anns := m.Apply(results, nil)
	if len(anns) != 5 {
		t.Errorf("超出 MaxInputs 的结果应被截断, 实际 %d 个标注", len(anns))
	}
}

func TestRedactionRects(t *testing.T) {
	m := NewManager(DefaultOptions())

	m.Apply([]translate.Result{res(100, 100, 200, 30, "你好")}, nil)

	rects := m.RedactionRects()
	if len(rects) != 1 {
		t.Fatalf("显示位置与原文位置重合时应只有 1 个遮盖区域, 实际 %d", len(rects))
	}

	// 移动显示位置后应同时遮盖两处
	anns := m.Annotations()
	m.MoveDisplay(anns[0].ID, 500, 500)

	rects = m.RedactionRects()
	if len(rects) != 2 {
		t.Errorf("显示位置移动后应有 2 个遮盖区域, 实际 %d", len(rects))
	}
}

func TestClearAll(t *testing.T) {
	m := NewManager(DefaultOptions())

	m.Apply([]translate.Result{
		res(100, 100, 200, 30, "你好"),
		res(100, 800, 200, 30, "世界"),
	}, nil)

	if n := m.ClearAll(); n != 2 {
		t.Errorf("应清除 2 个标注, 实际 %d", n)
	}
	if m.Len() != 0 {
		t.Errorf("清除后应无标注, 实际 %d", m.Len())
	}
	if len(m.RedactionRects()) != 0 {
		t.Error("清除后不应有遮盖区域")
	}
}

func TestRemoveAndSetExpanded(t *testing.T) {
	m := NewManager(DefaultOptions())

	anns := m.Apply([]translate.Result{res(100, 100, 200, 30, "你好")}, nil)
	id := anns[0].ID

	if !m.SetExpanded(id, true) {
		t.Error("SetExpanded 应成功")
	}
	if !m.Annotations()[0].Expanded {
		t.Error("标注应为展开状态")
	}

	if !m.Remove(id) {
		t.Error("Remove 应成功")
	}
	if m.Remove(id) {
		t.Error("重复移除应返回 false")
	}
	if m.Len() != 0 {
		t.Errorf("移除后应无标注, 实际 %d", m.Len())
	}
}
