package service

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"catalog-go/internal/constants"
)

// TargetHealth 单个上游（数据API或扩展数据库）的健康状态
type TargetHealth struct {
	Target         string        // 上游地址
	IsHealthy      bool          // 是否健康
	LastCheck      time.Time     // 上次检查时间
	LastSuccess    time.Time     // 上次成功时间
	FailCount      int           // 连续失败次数
	SuccessCount   int           // 连续成功次数
	TotalRequests  int64         // 总请求数
	FailedRequests int64         // 失败请求数
	AvgLatency     time.Duration // 平均延迟
	LastError      string        // 最后一次错误信息
}

// HealthChecker 上游健康检查
// 被动记录每次真实请求的结果，同时定期主动探测
type HealthChecker struct {
	targets sync.Map // map[string]*TargetHealth
	probes  []string // 主动探测的地址
	client  *http.Client
	stopCh  chan struct{}
	mu      sync.Mutex
}

func NewHealthChecker(probes []string) *HealthChecker {
	hc := &HealthChecker{
		probes: probes,
		client: &http.Client{
			Timeout: constants.HealthCheckTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse // 不跟随重定向
			},
		},
		stopCh: make(chan struct{}),
	}

	go hc.run()
	return hc
}

// RecordRequest 记录一次真实请求的结果（被动健康检查）
func (hc *HealthChecker) RecordRequest(target string, success bool, latency time.Duration, err error) {
	value, _ := hc.targets.LoadOrStore(target, &TargetHealth{
		Target:    target,
		IsHealthy: true,
	})
	health := value.(*TargetHealth)

	hc.mu.Lock()
	defer hc.mu.Unlock()

	health.TotalRequests++
	health.LastCheck = time.Now()

	if success {
		health.SuccessCount++
		health.FailCount = 0
		health.LastSuccess = time.Now()

		// 移动平均
		if health.AvgLatency == 0 {
			health.AvgLatency = latency
		} else {
			health.AvgLatency = (health.AvgLatency*9 + latency) / 10
		}

		if health.SuccessCount >= constants.SuccessThreshold {
			if !health.IsHealthy {
				log.Printf("[Health] 上游 %s 恢复健康 (连续成功 %d 次)", target, health.SuccessCount)
			}
			health.IsHealthy = true
		}
	} else {
		health.FailedRequests++
		health.FailCount++
		health.SuccessCount = 0
		if err != nil {
			health.LastError = err.Error()
		}

		if health.FailCount >= constants.FailThreshold {
			if health.IsHealthy {
				log.Printf("[Health] 上游 %s 标记为不健康 (连续失败 %d 次): %s",
					target, health.FailCount, health.LastError)
			}
			health.IsHealthy = false
		}
	}
}

// IsHealthy 查询上游是否健康，未知上游视为健康
func (hc *HealthChecker) IsHealthy(target string) bool {
	value, ok := hc.targets.Load(target)
	if !ok {
		return true
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()
	return value.(*TargetHealth).IsHealthy
}

// GetAllHealth 返回所有上游健康状态的副本
func (hc *HealthChecker) GetAllHealth() map[string]TargetHealth {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	result := make(map[string]TargetHealth)
	hc.targets.Range(func(key, value any) bool {
		result[key.(string)] = *value.(*TargetHealth)
		return true
	})
	return result
}

// run 主动探测循环
func (hc *HealthChecker) run() {
	ticker := time.NewTicker(constants.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, target := range hc.probes {
				hc.probe(target)
			}
		case <-hc.stopCh:
			return
		}
	}
}

// probe 用HEAD请求探测单个上游
func (hc *HealthChecker) probe(target string) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.HealthCheckTimeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		hc.RecordRequest(target, false, 0, err)
		return
	}

	resp, err := hc.client.Do(req)
	if err != nil {
		hc.RecordRequest(target, false, time.Since(start), err)
		return
	}
	resp.Body.Close()

	// 探测只关心连通性，4xx也算可达
	success := resp.StatusCode < http.StatusInternalServerError
	hc.RecordRequest(target, success, time.Since(start), nil)
}

// Stop 停止主动探测
func (hc *HealthChecker) Stop() {
	close(hc.stopCh)
}
