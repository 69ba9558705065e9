package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_TTL(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		advance time.Duration
		verify  func(*testing.T, *Cache[string])
	}{
		{
			name:    "过期前能取到",
			advance: 5 * time.Minute,
			verify: func(t *testing.T, c *Cache[string]) {
				v, ok := c.Get("user:alice")
				assert.True(t, ok)
				assert.Equal(t, "report-alice", v)
			},
		},
		{
			name:    "正好到期仍然有效",
			advance: 10 * time.Minute,
			verify: func(t *testing.T, c *Cache[string]) {
				_, ok := c.Get("user:alice")
				// 严格晚于 expiresAt 才算过期
				assert.True(t, ok)
			},
		},
		{
			name:    "过期后返回 absent 并被剔除",
			advance: 10*time.Minute + time.Second,
			verify: func(t *testing.T, c *Cache[string]) {
				_, ok := c.Get("user:alice")
				assert.False(t, ok)
				assert.Equal(t, 0, c.Size())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := now
			c := New[string](10, 10*time.Minute)
			c.nowFunc = func() time.Time { return current }

			c.Set("user:alice", "report-alice")
			current = now.Add(tt.advance)
			tt.verify(t, c)
		})
	}
}

func TestCache_ExpiredKeyActsAsFreshInsert(t *testing.T) {
	now := time.Now()
	current := now
	c := New[string](2, time.Minute)
	c.nowFunc = func() time.Time { return current }

	c.Set("a", "v1")
	current = now.Add(2 * time.Minute) // a 已过期

	_, ok := c.Get("a")
	assert.False(t, ok)

	// 对已过期 key 的 Set 等同于新插入
	c.Set("a", "v2")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestCache_LRUEviction(t *testing.T) {
	c := New[int](3, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// 访问 a，让 b 成为最久未用
	_, ok := c.Get("a")
	assert.True(t, ok)

	// 插入第 4 个 key，应该只淘汰 b
	c.Set("d", 4)

	assert.Equal(t, 3, c.Size())
	assert.False(t, c.Has("b"))
	assert.True(t, c.Has("a"))
	assert.True(t, c.Has("c"))
	assert.True(t, c.Has("d"))
}

func TestCache_SetExistingKeyNoEviction(t *testing.T) {
	c := New[int](2, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)

	// 覆盖已有 key 不触发淘汰
	c.Set("a", 100)

	assert.Equal(t, 2, c.Size())
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 100, v)
	assert.True(t, c.Has("b"))
}

func TestCache_CapacityNeverExceeded(t *testing.T) {
	c := New[int](5, time.Hour)

	for i := 0; i < 20; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
		assert.LessOrEqual(t, c.Size(), 5)
	}
	assert.Equal(t, 5, c.Size())
}

func TestCache_Clear(t *testing.T) {
	c := New[int](5, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	assert.Equal(t, 0, c.Size())
	assert.False(t, c.Has("a"))
}
