package services

import (
	"sync"
	"time"

	"github.com/houzhh15/plantrack/pkg/metrics"
)

// ResultCache 分析结果缓存（带 TTL）。
// 键为 (范围, 年度选择器)；台账任何变更通过 InvalidateProduct
// 立即失效受影响条目，调用方从不自行判断新鲜度。
// 超过 TTL 的条目按未命中处理，触发同步重算，绝不返回过期数据。
type ResultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]*reportCacheEntry
}

type reportCacheEntry struct {
	report    *AnalyticsReport
	scope     map[string]struct{} // 报表覆盖的产品编码集合
	expiresAt time.Time
}

// NewResultCache 创建结果缓存
func NewResultCache(ttl time.Duration) *ResultCache {
	cache := &ResultCache{
		ttl:     ttl,
		entries: make(map[string]*reportCacheEntry),
	}

	// 启动定期清理过期条目的goroutine
	go cache.cleanupExpired()

	return cache
}

// Get 获取缓存的分析报表
func (c *ResultCache) Get(key string) (*AnalyticsReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		metrics.RecordCacheLookup("miss")
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		metrics.RecordCacheLookup("expired")
		return nil, false
	}

	metrics.RecordCacheLookup("hit")
	return entry.report, true
}

// Put 缓存分析报表，scopeCodes 为报表覆盖的产品编码
func (c *ResultCache) Put(key string, scopeCodes []string, report *AnalyticsReport) {
	scope := make(map[string]struct{}, len(scopeCodes))
	for _, code := range scopeCodes {
		scope[code] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &reportCacheEntry{
		report:    report,
		scope:     scope,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// InvalidateProduct 失效覆盖该产品的全部条目。
// 台账每次变更成功后调用，是缓存失效的唯一入口。
func (c *ResultCache) InvalidateProduct(productCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if _, ok := entry.scope[productCode]; ok {
			delete(c.entries, key)
		}
	}
}

// InvalidateAll 清空全部条目（显式刷新）
func (c *ResultCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*reportCacheEntry)
}

// Len 返回当前缓存条目数
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cleanupExpired 定期清理过期条目（每分钟）
func (c *ResultCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
