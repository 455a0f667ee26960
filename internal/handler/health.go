package handler

import (
	"net/http"
	"time"

	"catalog-go/internal/service"
)

// HealthHandler 健康检查接口
type HealthHandler struct {
	catalog *service.CatalogService
}

func NewHealthHandler(catalog *service.CatalogService) *HealthHandler {
	return &HealthHandler{catalog: catalog}
}

// TargetHealthStatus 单个上游的健康状态
type TargetHealthStatus struct {
	Target         string  `json:"target"`
	IsHealthy      bool    `json:"is_healthy"`
	LastCheck      string  `json:"last_check"`
	LastSuccess    string  `json:"last_success"`
	TotalRequests  int64   `json:"total_requests"`
	FailedRequests int64   `json:"failed_requests"`
	SuccessRate    float64 `json:"success_rate"`
	AvgLatency     string  `json:"avg_latency"`
	LastError      string  `json:"last_error,omitempty"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string               `json:"status"` // ok / degraded
	Targets []TargetHealthStatus `json:"targets"`
}

// GetHealth 处理 /api/health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "ok"
	targets := make([]TargetHealthStatus, 0)

	if checker := h.catalog.GetHealthChecker(); checker != nil {
		for target, health := range checker.GetAllHealth() {
			if !health.IsHealthy {
				status = "degraded"
			}

			successRate := float64(0)
			if health.TotalRequests > 0 {
				successRate = float64(health.TotalRequests-health.FailedRequests) /
					float64(health.TotalRequests) * 100
			}

			targets = append(targets, TargetHealthStatus{
				Target:         target,
				IsHealthy:      health.IsHealthy,
				LastCheck:      formatTime(health.LastCheck),
				LastSuccess:    formatTime(health.LastSuccess),
				TotalRequests:  health.TotalRequests,
				FailedRequests: health.FailedRequests,
				SuccessRate:    successRate,
				AvgLatency:     health.AvgLatency.String(),
				LastError:      health.LastError,
			})
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  status,
		Targets: targets,
	})
}

// formatTime 格式化时间
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("2006-01-02 15:04:05")
}
