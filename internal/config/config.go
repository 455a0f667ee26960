package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

var (
	configCallbacks []func(*Config)
	callbackMutex   sync.RWMutex
)

type ConfigManager struct {
	config     atomic.Value
	configPath string
	mu         sync.RWMutex
}

func NewConfigManager(configPath string) (*ConfigManager, error) {
	cm := &ConfigManager{
		configPath: configPath,
	}

	config, err := cm.loadConfigFromFile()
	if err != nil {
		return nil, err
	}

	config.ApplyEnv()
	cm.config.Store(config)
	log.Printf("[ConfigManager] 配置已加载: 上游 %s", config.Upstream.BaseURL)

	return cm, nil
}

// loadConfigFromFile 从文件加载配置
func (cm *ConfigManager) loadConfigFromFile() (*Config, error) {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		// 如果文件不存在，创建默认配置
		if os.IsNotExist(err) {
			if createErr := cm.createDefaultConfig(); createErr == nil {
				return cm.loadConfigFromFile() // 重新加载
			} else {
				return nil, createErr
			}
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// createDefaultConfig 创建默认配置文件
func (cm *ConfigManager) createDefaultConfig() error {
	if err := os.MkdirAll(filepath.Dir(cm.configPath), 0755); err != nil {
		return err
	}

	defaultConfig := Config{
		Server: ServerConfig{
			Listen: ":3340",
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://swapi.dev/api",
			TimeoutSeconds: 10,
			MaxRetries:     3,
		},
		Enrichment: EnrichmentConfig{
			TimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			Region: "us-east-1",
			Prefix: "images",
		},
		Cache: CacheConfig{
			TTLMinutes: 5, // 缓存5分钟
			MaxEntries: 10000,
		},
		Compression: CompressionConfig{
			Gzip: CompressorConfig{
				Enabled: true,
				Level:   6,
			},
			Brotli: CompressorConfig{
				Enabled: true,
				Level:   6,
			},
		},
		Metrics: MetricsConfig{
			DBPath:              "data/metrics.db",
			SaveIntervalMinutes: 10,
			RetentionDays:       90,
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return err
	}

	log.Printf("[ConfigManager] 配置文件不存在，写入默认配置: %s", cm.configPath)
	return os.WriteFile(cm.configPath, data, 0644)
}

// GetConfig 获取当前配置
func (cm *ConfigManager) GetConfig() *Config {
	return cm.config.Load().(*Config)
}

// UpdateConfig 更新配置
func (cm *ConfigManager) UpdateConfig(newConfig *Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	newConfig.ApplyEnv()

	if err := cm.saveConfigToFile(newConfig); err != nil {
		return err
	}

	cm.config.Store(newConfig)
	TriggerCallbacks(newConfig)

	log.Printf("[ConfigManager] 配置已更新")
	return nil
}

// saveConfigToFile 保存配置到文件
func (cm *ConfigManager) saveConfigToFile(config *Config) error {
	configData, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	// 先写临时文件再改名，避免写坏正式配置
	tempFile := cm.configPath + ".tmp"
	if err := os.WriteFile(tempFile, configData, 0644); err != nil {
		return err
	}

	return os.Rename(tempFile, cm.configPath)
}

// RegisterUpdateCallback 注册配置更新回调函数
func RegisterUpdateCallback(callback func(*Config)) {
	callbackMutex.Lock()
	defer callbackMutex.Unlock()
	configCallbacks = append(configCallbacks, callback)
}

// TriggerCallbacks 触发所有回调
func TriggerCallbacks(cfg *Config) {
	callbackMutex.RLock()
	defer callbackMutex.RUnlock()
	for _, callback := range configCallbacks {
		callback(cfg)
	}
}

func Init(configPath string) (*ConfigManager, error) {
	log.Printf("[Config] 初始化配置管理器...")

	configManager, err := NewConfigManager(configPath)
	if err != nil {
		log.Printf("[Config] 初始化配置管理器失败: %v", err)
		return nil, err
	}

	log.Printf("[Config] 配置管理器初始化成功")
	return configManager, nil
}
