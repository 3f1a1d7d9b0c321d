package utils

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache 本地 LRU 缓存，条目带过期时间
// 评论串快照按 "threads:<类型>:<id>:" 前缀组织，写入时可整体清除
type TTLCache[V any] struct {
	lru *lru.Cache[string, cacheEntry[V]]
	now func() time.Time
}

func NewTTLCache[V any](size int) (*TTLCache[V], error) {
	l, err := lru.New[string, cacheEntry[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[V]{lru: l, now: time.Now}, nil
}

// Set ttl <= 0 的条目不写入
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.lru.Add(key, cacheEntry[V]{value: value, expiresAt: c.now().Add(ttl)})
}

// Get 过期条目在读取时淘汰
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[V]) Delete(key string) {
	c.lru.Remove(key)
}

// DeletePrefix 删除所有以 prefix 开头的条目，返回删除数量
func (c *TTLCache[V]) DeletePrefix(prefix string) int {
	n := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) && c.lru.Remove(key) {
			n++
		}
	}
	return n
}

// Len returns the number of entries, expired ones included.
func (c *TTLCache[V]) Len() int {
	return c.lru.Len()
}
