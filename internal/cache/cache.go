package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cache 请求级内存缓存
// 按字符串键记忆上游响应，条目写入后固定 TTL 内有效，
// 过期条目在读取时惰性删除，不做后台清理
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*cacheItem
	ttl     time.Duration
	maxSize int

	enabled   atomic.Bool  // 缓存开关
	hitCount  atomic.Int64 // 命中计数
	missCount atomic.Int64 // 未命中计数

	// 测试时可替换时钟
	now func() time.Time
}

type cacheItem struct {
	payload  any
	storedAt time.Time
}

// Stats 缓存统计信息
type Stats struct {
	TotalItems int     `json:"total_items"` // 缓存项数量
	HitCount   int64   `json:"hit_count"`   // 命中次数
	MissCount  int64   `json:"miss_count"`  // 未命中次数
	HitRate    float64 `json:"hit_rate"`    // 命中率
	Enabled    bool    `json:"enabled"`     // 缓存开关状态
}

// Config 缓存配置
type Config struct {
	TTL     int64 `json:"ttl"`      // 过期时间（秒）
	MaxSize int   `json:"max_size"` // 最大条目数，0 表示不限制
}

// New 创建缓存，由应用启动时构造一次并注入各调用方
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		items:   make(map[string]*cacheItem),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
	c.enabled.Store(true)
	return c
}

// Get 查找缓存项
// 键不存在返回未命中；条目超过 TTL 时删除该条目并返回未命中；
// 命中不刷新过期时间
func (c *Cache) Get(key string) (any, bool) {
	if !c.enabled.Load() {
		return nil, false
	}

	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		c.missCount.Add(1)
		return nil, false
	}

	if c.now().Sub(item.storedAt) > c.ttl {
		c.mu.Lock()
		// 重新检查，期间可能已被覆盖写入
		if cur, ok := c.items[key]; ok && cur == item {
			delete(c.items, key)
		}
		c.mu.Unlock()
		c.missCount.Add(1)
		return nil, false
	}

	c.hitCount.Add(1)
	return item.payload, true
}

// Set 写入缓存项，同键覆盖，storedAt 重置为当前时间
// 写入永远成功；超出容量时淘汰写入时间最早的条目
func (c *Cache) Set(key string, payload any) {
	if !c.enabled.Load() {
		return
	}

	now := c.now()
	c.mu.Lock()
	if c.maxSize > 0 && len(c.items) >= c.maxSize {
		if _, exists := c.items[key]; !exists {
			// 以首个条目为起点扫描，同一时刻写入的条目也能被淘汰
			var oldest time.Time
			var oldestKey string
			first := true
			for k, v := range c.items {
				if first || v.storedAt.Before(oldest) {
					oldest = v.storedAt
					oldestKey = k
					first = false
				}
			}
			delete(c.items, oldestKey)
		}
	}
	c.items[key] = &cacheItem{
		payload:  payload,
		storedAt: now,
	}
	c.mu.Unlock()
}

// Delete 删除缓存项
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Contains 检查键是否仍物理存在（不触发惰性删除，不计入统计）
func (c *Cache) Contains(key string) bool {
	c.mu.RLock()
	_, exists := c.items[key]
	c.mu.RUnlock()
	return exists
}

// Len 当前条目数（含尚未被读取的过期条目）
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// TTL 返回固定的过期时间
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// SetEnabled 设置缓存开关状态
func (c *Cache) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// Clear 清空缓存并重置统计信息
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*cacheItem)
	c.mu.Unlock()

	c.hitCount.Store(0)
	c.missCount.Store(0)
}

// GetStats 获取缓存统计信息
func (c *Cache) GetStats() Stats {
	hitCount := c.hitCount.Load()
	missCount := c.missCount.Load()
	totalRequests := hitCount + missCount
	hitRate := float64(0)
	if totalRequests > 0 {
		hitRate = float64(hitCount) / float64(totalRequests) * 100
	}

	return Stats{
		TotalItems: c.Len(),
		HitCount:   hitCount,
		MissCount:  missCount,
		HitRate:    hitRate,
		Enabled:    c.enabled.Load(),
	}
}

// GetConfig 获取缓存配置
func (c *Cache) GetConfig() Config {
	return Config{
		TTL:     int64(c.ttl.Seconds()),
		MaxSize: c.maxSize,
	}
}
