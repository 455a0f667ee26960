package handler

import (
	"database/sql"
	"net/http"
	"strconv"

	"catalog-go/internal/metrics"
	"catalog-go/internal/storage"
)

// MetricsHandler 指标查询接口
type MetricsHandler struct {
	collector *metrics.Collector
	db        *sql.DB
}

func NewMetricsHandler(collector *metrics.Collector, db *sql.DB) *MetricsHandler {
	return &MetricsHandler{
		collector: collector,
		db:        db,
	}
}

// GetMetrics 处理 /admin/api/metrics，返回当前快照
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.collector.GetSnapshot())
}

// GetHistory 处理 /admin/api/metrics/history，返回落盘的历史快照
func (h *MetricsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.db == nil {
		http.Error(w, "Metrics storage not enabled", http.StatusServiceUnavailable)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	history, err := storage.RecentHistory(h.db, limit)
	if err != nil {
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []storage.History{}
	}

	writeJSON(w, http.StatusOK, history)
}
