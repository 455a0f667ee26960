package constants

import (
	"catalog-go/internal/config"
	"time"
)

var (
	// 缓存相关
	CacheTTL        = 5 * time.Minute // 缓存过期时间
	MaxCacheEntries = 10000           // 最大缓存条目数

	// 上游请求相关
	UpstreamTimeout = 10 * time.Second // 上游请求超时
	MaxRetries      = 3                // 5xx重试次数
	RetryBaseDelay  = 500 * time.Millisecond
	RetryMaxDelay   = 8 * time.Second

	// 图片元数据缓存
	AssetMetaTTL     = 5 * time.Minute // 对象元数据缓存时间
	AssetMetaEntries = 2048            // 对象元数据缓存条目数

	// 指标相关
	MetricsSaveInterval = 10 * time.Minute     // 指标快照保存间隔
	MetricsRetention    = 90 * 24 * time.Hour  // 指标历史保留时间
	MaxPathsStored      = 1000                 // 最大存储路径数

	// 健康检查相关
	HealthCheckInterval = 30 * time.Second // 主动探测间隔
	HealthCheckTimeout  = 5 * time.Second  // 探测超时
	FailThreshold       = 3                // 连续失败阈值
	SuccessThreshold    = 2                // 连续成功恢复阈值
)

// UpdateFromConfig 从配置文件更新常量
func UpdateFromConfig(cfg *config.Config) {
	if cfg.Cache.TTLMinutes > 0 {
		CacheTTL = time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	}
	if cfg.Cache.MaxEntries > 0 {
		MaxCacheEntries = cfg.Cache.MaxEntries
	}

	if cfg.Upstream.TimeoutSeconds > 0 {
		UpstreamTimeout = time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
	}
	if cfg.Upstream.MaxRetries > 0 {
		MaxRetries = cfg.Upstream.MaxRetries
	}

	if cfg.Metrics.SaveIntervalMinutes > 0 {
		MetricsSaveInterval = time.Duration(cfg.Metrics.SaveIntervalMinutes) * time.Minute
	}
	if cfg.Metrics.RetentionDays > 0 {
		MetricsRetention = time.Duration(cfg.Metrics.RetentionDays) * 24 * time.Hour
	}
}
