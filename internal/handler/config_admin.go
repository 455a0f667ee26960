package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"catalog-go/internal/config"
)

// ConfigAdminHandler 配置管理接口
type ConfigAdminHandler struct {
	manager *config.ConfigManager
}

func NewConfigAdminHandler(manager *config.ConfigManager) *ConfigAdminHandler {
	return &ConfigAdminHandler{manager: manager}
}

// GetConfig 处理 /admin/api/config/get
// 凭证字段带 json:"-" 标记，不会出现在响应里
func (h *ConfigAdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.manager.GetConfig())
}

// SaveConfig 处理 /admin/api/config/save
// 新配置写入配置文件并立即生效
func (h *ConfigAdminHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var newConfig config.Config
	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		http.Error(w, fmt.Sprintf("解析配置失败: %v", err), http.StatusBadRequest)
		return
	}

	if err := validateConfig(&newConfig); err != nil {
		http.Error(w, fmt.Sprintf("配置验证失败: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.manager.UpdateConfig(&newConfig); err != nil {
		http.Error(w, fmt.Sprintf("保存配置失败: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "配置已更新并生效"})
}

// validateConfig 验证配置
func validateConfig(cfg *config.Config) error {
	if cfg.Server.Listen == "" {
		return fmt.Errorf("监听地址不能为空")
	}
	if cfg.Upstream.BaseURL == "" {
		return fmt.Errorf("上游地址不能为空")
	}
	if _, err := url.Parse(cfg.Upstream.BaseURL); err != nil {
		return fmt.Errorf("上游地址无效: %v", err)
	}
	if cfg.Cache.TTLMinutes < 0 || cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("缓存参数不能为负数")
	}
	return nil
}
