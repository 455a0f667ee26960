package handler

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-go/internal/config"
)

func newConfigAdmin(t *testing.T) (*ConfigAdminHandler, *config.ConfigManager) {
	t.Helper()

	manager, err := config.NewConfigManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	return NewConfigAdminHandler(manager), manager
}

func TestConfigAdminGet(t *testing.T) {
	h, _ := newConfigAdmin(t)

	rec := httptest.NewRecorder()
	h.GetConfig(rec, httptest.NewRequest(http.MethodGet, "/admin/api/config/get", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"BaseURL":"https://swapi.dev/api"`)
	// 凭证字段不出现在响应里
	assert.NotContains(t, rec.Body.String(), "AccessKeyID")
	assert.NotContains(t, rec.Body.String(), "Token")
}

func TestConfigAdminSave(t *testing.T) {
	h, manager := newConfigAdmin(t)

	var callbackCfg *config.Config
	config.RegisterUpdateCallback(func(cfg *config.Config) {
		callbackCfg = cfg
	})

	body := `{
		"Server": {"Listen": ":9000"},
		"Upstream": {"BaseURL": "https://swapi.dev/api", "TimeoutSeconds": 5, "MaxRetries": 2},
		"Cache": {"TTLMinutes": 10, "MaxEntries": 500}
	}`
	rec := httptest.NewRecorder()
	h.SaveConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/api/config/save", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ":9000", manager.GetConfig().Server.Listen)
	assert.Equal(t, 10, manager.GetConfig().Cache.TTLMinutes)

	// 保存后触发配置更新回调
	require.NotNil(t, callbackCfg)
	assert.Equal(t, ":9000", callbackCfg.Server.Listen)
}

func TestConfigAdminSaveInvalid(t *testing.T) {
	h, manager := newConfigAdmin(t)
	original := manager.GetConfig().Server.Listen

	for name, body := range map[string]string{
		"bad json":         "not json",
		"missing listen":   `{"Upstream": {"BaseURL": "https://swapi.dev/api"}}`,
		"missing upstream": `{"Server": {"Listen": ":9000"}}`,
		"negative ttl":     `{"Server": {"Listen": ":9000"}, "Upstream": {"BaseURL": "https://swapi.dev/api"}, "Cache": {"TTLMinutes": -1}}`,
	} {
		rec := httptest.NewRecorder()
		h.SaveConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/api/config/save", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	// 失败的保存不改变运行配置
	assert.Equal(t, original, manager.GetConfig().Server.Listen)
}
