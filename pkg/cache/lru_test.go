package cache

import (
	"fmt"
	"testing"
)

func TestLRUBound(t *testing.T) {
	c := NewLRU[string, int](3)

	// 插入 N+1 条，应只淘汰最久未访问的一条
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Put("d", 4)

	if c.Len() != 3 {
		t.Fatalf("容量越界: got %d, want 3", c.Len())
	}
	if c.Contains("a") {
		t.Error("最久未访问的条目 a 应被淘汰")
	}
	for _, k := range []string{"b", "c", "d"} {
		if !c.Contains(k) {
			t.Errorf("条目 %s 不应被淘汰", k)
		}
	}
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)

	// 访问 a 后再插入 c，应淘汰 b 而不是 a
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) 失败: got %d, %v", v, ok)
	}
	c.Put("c", 3)

	if !c.Contains("a") {
		t.Error("刚访问过的 a 不应被淘汰")
	}
	if c.Contains("b") {
		t.Error("最久未访问的 b 应被淘汰")
	}
}

func TestLRUPutExistingUpdates(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Put("a", 1)
	c.Put("a", 10)

	if c.Len() != 1 {
		t.Errorf("重复写入不应新增条目: got %d", c.Len())
	}
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("值未更新: got %d, want 10", v)
	}
}

func TestLRUClear(t *testing.T) {
	c := NewLRU[int, string](4)
	for i := 0; i < 4; i++ {
		c.Put(i, fmt.Sprintf("v%d", i))
	}

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("清空后应无条目: got %d", c.Len())
	}
	if _, ok := c.Get(0); ok {
		t.Error("清空后不应命中")
	}
}

func TestLRUEvictionOrder(t *testing.T) {
	c := NewLRU[int, int](100)
	for i := 0; i < 150; i++ {
		c.Put(i, i)
	}

	if c.Len() != 100 {
		t.Fatalf("容量错误: got %d, want 100", c.Len())
	}
	// 前 50 条应全部被淘汰，后 100 条应全部保留
	for i := 0; i < 50; i++ {
		if c.Contains(i) {
			t.Errorf("条目 %d 应被淘汰", i)
		}
	}
	for i := 50; i < 150; i++ {
		if !c.Contains(i) {
			t.Errorf("条目 %d 不应被淘汰", i)
		}
	}
}
