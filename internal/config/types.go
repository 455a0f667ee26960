package config

import "os"

type Config struct {
	Server      ServerConfig      `json:"Server"`
	Upstream    UpstreamConfig    `json:"Upstream"`
	Enrichment  EnrichmentConfig  `json:"Enrichment"`
	Storage     StorageConfig     `json:"Storage"`
	Cache       CacheConfig       `json:"Cache"`
	Compression CompressionConfig `json:"Compression"`
	Metrics     MetricsConfig     `json:"Metrics"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Listen string `json:"Listen"` // 监听地址
}

// UpstreamConfig 上游星战数据API配置
type UpstreamConfig struct {
	BaseURL        string `json:"BaseURL"`        // API基础地址
	TimeoutSeconds int    `json:"TimeoutSeconds"` // 单次请求超时
	MaxRetries     int    `json:"MaxRetries"`     // 5xx重试次数
}

// EnrichmentConfig 扩展数据库配置（SQL over HTTP）
type EnrichmentConfig struct {
	Endpoint       string `json:"Endpoint"` // 数据库HTTP端点
	Token          string `json:"-"`        // Bearer token，只从环境变量读取
	TimeoutSeconds int    `json:"TimeoutSeconds"`
}

// StorageConfig 图片对象存储配置（S3兼容）
type StorageConfig struct {
	Endpoint        string `json:"Endpoint"`     // S3端点，空表示AWS默认
	Bucket          string `json:"Bucket"`       // 存储桶
	Region          string `json:"Region"`       // 区域
	Prefix          string `json:"Prefix"`       // 对象key前缀
	UsePathStyle    bool   `json:"UsePathStyle"` // 是否使用path-style访问
	AccessKeyID     string `json:"-"`            // 只从环境变量读取
	SecretAccessKey string `json:"-"`            // 只从环境变量读取
}

// CacheConfig 请求缓存配置
type CacheConfig struct {
	TTLMinutes int `json:"TTLMinutes"` // 条目有效期（分钟）
	MaxEntries int `json:"MaxEntries"` // 最大条目数，0表示不限制
}

type CompressionConfig struct {
	Gzip   CompressorConfig `json:"Gzip"`
	Brotli CompressorConfig `json:"Brotli"`
}

type CompressorConfig struct {
	Enabled bool `json:"Enabled"`
	Level   int  `json:"Level"`
}

// MetricsConfig 指标收集与落盘配置
type MetricsConfig struct {
	DBPath              string `json:"DBPath"`              // sqlite文件路径
	SaveIntervalMinutes int    `json:"SaveIntervalMinutes"` // 快照保存间隔
	RetentionDays       int    `json:"RetentionDays"`       // 历史数据保留天数
}

// ApplyEnv 用环境变量补齐凭证类配置
// 凭证不落配置文件，统一从环境读取
func (c *Config) ApplyEnv() {
	c.Enrichment.Token = getEnvDefault("CATALOG_DB_TOKEN", c.Enrichment.Token)
	if endpoint := os.Getenv("CATALOG_DB_ENDPOINT"); endpoint != "" {
		c.Enrichment.Endpoint = endpoint
	}

	c.Storage.AccessKeyID = getEnvDefault("CATALOG_S3_ACCESS_KEY_ID", c.Storage.AccessKeyID)
	c.Storage.SecretAccessKey = getEnvDefault("CATALOG_S3_SECRET_ACCESS_KEY", c.Storage.SecretAccessKey)
	if bucket := os.Getenv("CATALOG_S3_BUCKET"); bucket != "" {
		c.Storage.Bucket = bucket
	}
	if endpoint := os.Getenv("CATALOG_S3_ENDPOINT"); endpoint != "" {
		c.Storage.Endpoint = endpoint
	}
	if region := os.Getenv("CATALOG_S3_REGION"); region != "" {
		c.Storage.Region = region
	}
	c.Storage.UsePathStyle = getEnvBool("CATALOG_S3_USE_PATH_STYLE", c.Storage.UsePathStyle)
}

// StorageConfigured 判断对象存储配置是否完整
func (c *Config) StorageConfigured() bool {
	return c.Storage.Bucket != "" &&
		c.Storage.AccessKeyID != "" &&
		c.Storage.SecretAccessKey != "" &&
		c.Storage.Region != ""
}

// EnrichmentConfigured 判断扩展数据库配置是否完整
func (c *Config) EnrichmentConfigured() bool {
	return c.Enrichment.Endpoint != ""
}

// getEnvDefault 获取环境变量，如果不存在则返回默认值
func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}
