package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"catalog-go/internal/constants"
	"catalog-go/internal/storage"
)

// MetricsStorage 指标快照的定时落盘
type MetricsStorage struct {
	collector    *Collector
	db           *sql.DB
	saveInterval time.Duration
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

func NewMetricsStorage(collector *Collector, db *sql.DB, saveInterval time.Duration) *MetricsStorage {
	if saveInterval < time.Minute {
		saveInterval = time.Minute
	}

	return &MetricsStorage{
		collector:    collector,
		db:           db,
		saveInterval: saveInterval,
		stopChan:     make(chan struct{}),
	}
}

// Start 启动定时保存任务
func (ms *MetricsStorage) Start() {
	ms.wg.Add(1)
	go ms.runSaveTask()
	log.Printf("[MetricsStorage] 指标存储服务已启动，保存间隔: %v", ms.saveInterval)
}

func (ms *MetricsStorage) runSaveTask() {
	defer ms.wg.Done()

	saveTicker := time.NewTicker(ms.saveInterval)
	defer saveTicker.Stop()

	// 历史清理每天跑一次
	cleanupTicker := time.NewTicker(24 * time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-saveTicker.C:
			ms.save()
		case <-cleanupTicker.C:
			ms.cleanup()
		case <-ms.stopChan:
			// 退出前保存最后一次快照
			ms.save()
			return
		}
	}
}

func (ms *MetricsStorage) save() {
	requests, errors, bytes, avgLatency := ms.collector.Totals()
	if requests == 0 {
		return
	}

	err := storage.SaveHistory(ms.db, storage.History{
		Timestamp:     time.Now(),
		TotalRequests: requests,
		TotalErrors:   errors,
		TotalBytes:    bytes,
		AvgLatency:    int64(avgLatency),
	})
	if err != nil {
		log.Printf("[MetricsStorage] 保存指标快照失败: %v", err)
	}
}

func (ms *MetricsStorage) cleanup() {
	cutoff := time.Now().Add(-constants.MetricsRetention)
	deleted, err := storage.CleanupBefore(ms.db, cutoff)
	if err != nil {
		log.Printf("[MetricsStorage] 清理历史数据失败: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[MetricsStorage] 已清理 %d 条过期历史记录", deleted)
	}
}

// Stop 停止保存任务并等待收尾
func (ms *MetricsStorage) Stop() {
	close(ms.stopChan)
	ms.wg.Wait()
	log.Printf("[MetricsStorage] 指标存储服务已停止")
}
