package metrics

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"catalog-go/internal/constants"
	"catalog-go/internal/utils"
)

// PathStats 单个接口路径的累计统计
type PathStats struct {
	Requests   atomic.Int64
	Errors     atomic.Int64
	Bytes      atomic.Int64
	LatencySum atomic.Int64
}

// PathStatsJSON 路径统计的序列化结构
type PathStatsJSON struct {
	Path       string  `json:"path"`
	Requests   int64   `json:"requests"`
	Errors     int64   `json:"errors"`
	Bytes      int64   `json:"bytes"`
	AvgLatency string  `json:"avg_latency"`
	ErrorRate  float64 `json:"error_rate"`
}

// Snapshot 对外暴露的指标快照
type Snapshot struct {
	Uptime            string           `json:"uptime"`
	ActiveRequests    int64            `json:"active_requests"`
	TotalRequests     int64            `json:"total_requests"`
	TotalErrors       int64            `json:"total_errors"`
	ErrorRate         float64          `json:"error_rate"`
	TotalBytes        int64            `json:"total_bytes"`
	AvgResponseTime   string           `json:"avg_response_time"`
	RequestsPerSecond float64          `json:"requests_per_second"`
	NumGoroutine      int              `json:"num_goroutine"`
	MemoryUsage       string           `json:"memory_usage"`
	StatusCodeStats   map[string]int64 `json:"status_code_stats"`
	TopPaths          []PathStatsJSON  `json:"top_paths"`
}

// Collector 请求指标收集器
type Collector struct {
	startTime      time.Time
	activeRequests atomic.Int64
	totalRequests  atomic.Int64
	totalErrors    atomic.Int64
	totalBytes     atomic.Int64
	latencySum     atomic.Int64
	statusStats    [6]atomic.Int64 // 按状态码百位分组
	pathStats      sync.Map        // map[string]*PathStats
	pathCount      atomic.Int64
}

func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
	}
}

// BeginRequest 请求开始
func (c *Collector) BeginRequest() {
	c.activeRequests.Add(1)
}

// EndRequest 请求结束
func (c *Collector) EndRequest() {
	c.activeRequests.Add(-1)
}

// RecordRequest 记录一次完成的请求
func (c *Collector) RecordRequest(path string, status int, latency time.Duration, bytes int64) {
	c.totalRequests.Add(1)
	c.totalBytes.Add(bytes)
	c.latencySum.Add(int64(latency))

	if status >= 400 {
		c.totalErrors.Add(1)
	}
	if group := status / 100; group >= 1 && group <= 5 {
		c.statusStats[group].Add(1)
	}

	stats := c.pathStatsFor(path)
	if stats == nil {
		return
	}
	stats.Requests.Add(1)
	stats.Bytes.Add(bytes)
	stats.LatencySum.Add(int64(latency))
	if status >= 400 {
		stats.Errors.Add(1)
	}
}

// pathStatsFor 获取或创建路径统计，路径数量超限后不再新增
func (c *Collector) pathStatsFor(path string) *PathStats {
	if value, ok := c.pathStats.Load(path); ok {
		return value.(*PathStats)
	}
	if c.pathCount.Load() >= int64(constants.MaxPathsStored) {
		return nil
	}
	value, loaded := c.pathStats.LoadOrStore(path, &PathStats{})
	if !loaded {
		c.pathCount.Add(1)
	}
	return value.(*PathStats)
}

// GetSnapshot 生成当前指标快照
func (c *Collector) GetSnapshot() Snapshot {
	total := c.totalRequests.Load()
	errors := c.totalErrors.Load()
	uptime := time.Since(c.startTime)

	errorRate := float64(0)
	avgLatency := time.Duration(0)
	if total > 0 {
		errorRate = float64(errors) / float64(total)
		avgLatency = time.Duration(c.latencySum.Load() / total)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	statusCodeStats := make(map[string]int64)
	labels := [6]string{"", "1xx", "2xx", "3xx", "4xx", "5xx"}
	for i := 1; i <= 5; i++ {
		if count := c.statusStats[i].Load(); count > 0 {
			statusCodeStats[labels[i]] = count
		}
	}

	return Snapshot{
		Uptime:            uptime.Round(time.Second).String(),
		ActiveRequests:    c.activeRequests.Load(),
		TotalRequests:     total,
		TotalErrors:       errors,
		ErrorRate:         errorRate,
		TotalBytes:        c.totalBytes.Load(),
		AvgResponseTime:   avgLatency.Round(time.Millisecond).String(),
		RequestsPerSecond: float64(total) / uptime.Seconds(),
		NumGoroutine:      runtime.NumGoroutine(),
		MemoryUsage:       utils.FormatBytes(int64(mem.Alloc)),
		StatusCodeStats:   statusCodeStats,
		TopPaths:          c.topPaths(10),
	}
}

// topPaths 按请求量排序的前N个路径
func (c *Collector) topPaths(n int) []PathStatsJSON {
	var paths []PathStatsJSON
	c.pathStats.Range(func(key, value any) bool {
		stats := value.(*PathStats)
		requests := stats.Requests.Load()
		if requests == 0 {
			return true
		}

		avgLatency := time.Duration(stats.LatencySum.Load() / requests)
		paths = append(paths, PathStatsJSON{
			Path:       key.(string),
			Requests:   requests,
			Errors:     stats.Errors.Load(),
			Bytes:      stats.Bytes.Load(),
			AvgLatency: avgLatency.Round(time.Millisecond).String(),
			ErrorRate:  float64(stats.Errors.Load()) / float64(requests),
		})
		return true
	})

	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Requests > paths[j].Requests
	})
	if len(paths) > n {
		paths = paths[:n]
	}
	return paths
}

// Totals 当前累计值，用于落盘
func (c *Collector) Totals() (requests, errors, bytes int64, avgLatency time.Duration) {
	requests = c.totalRequests.Load()
	errors = c.totalErrors.Load()
	bytes = c.totalBytes.Load()
	if requests > 0 {
		avgLatency = time.Duration(c.latencySum.Load() / requests)
	}
	return
}
