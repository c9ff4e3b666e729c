// Package cache 提供固定容量的 LRU 缓存
//
// 识别与翻译的三级缓存均基于此实现：超出容量时总是淘汰
// 最久未访问的条目。非并发安全，由持有方负责同步。
package cache

import "container/list"

// LRU 固定容量的最近最少使用缓存
type LRU[K comparable, V any] struct {
	capacity int
	order    *list.List
	entries  map[K]*list.Element
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU 创建指定容量的 LRU 缓存，容量至少为 1
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[K]*list.Element, capacity),
	}
}

// Get 查找条目，命中时刷新其访问时间
func (c *LRU[K, V]) Get(key K) (V, bool) {
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*lruEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Put 写入条目；超出容量时淘汰最久未访问的条目
func (c *LRU[K, V]) Put(key K, value V) {
	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	c.entries[key] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry[K, V]).key)
	}
}

// Contains 判断键是否存在，不刷新访问时间
func (c *LRU[K, V]) Contains(key K) bool {
	_, ok := c.entries[key]
	return ok
}

// Len 返回当前条目数
func (c *LRU[K, V]) Len() int {
	return c.order.Len()
}

// Clear 清空全部条目
func (c *LRU[K, V]) Clear() {
	c.order.Init()
	clear(c.entries)
}
