// Package cache 提供一个带 TTL 和容量上限的进程内缓存。
// 过期是惰性的：只在 Get 时检查并剔除，不跑后台清扫。
// 容量满时按 LRU 淘汰。多请求共享同一实例，因此内部加锁。
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Cache 是 key -> V 的有界 TTL 缓存
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List // 队头是最近使用的
	nowFunc  func() time.Time
}

// New 创建缓存实例：capacity 条目上限，ttl 存活时长
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		nowFunc:  time.Now, // 便于测试注入当前时间
	}
}

// Get 取值。key 不存在或已过期都返回 absent；过期条目当场剔除。
// 命中会把条目刷新为 "最近使用"。
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}

	ent := el.Value.(*entry[V])
	if c.nowFunc().After(ent.expiresAt) {
		// 惰性过期：严格晚于 expiresAt 才算过期
		c.order.Remove(el)
		delete(c.items, key)
		return zero, false
	}

	c.order.MoveToFront(el)
	return ent.value, true
}

// Set 写入。已有 key 原地覆盖并重置 TTL；新 key 在容量满时先淘汰 LRU 条目。
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.nowFunc().Add(c.ttl)

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	if len(c.items) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[V]).key)
		}
	}

	el := c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = el
}

// Has 判断 key 是否存在且未过期 (不刷新使用顺序)
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	return !c.nowFunc().After(el.Value.(*entry[V]).expiresAt)
}

// Clear 清空全部条目
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Size 当前条目数 (含尚未被惰性剔除的过期条目)
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
