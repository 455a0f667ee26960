package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// History 指标历史的一条快照记录
type History struct {
	Timestamp     time.Time `json:"timestamp"`
	TotalRequests int64     `json:"total_requests"`
	TotalErrors   int64     `json:"total_errors"`
	TotalBytes    int64     `json:"total_bytes"`
	AvgLatency    int64     `json:"avg_latency"` // 纳秒
}

// Open 打开指标历史数据库并初始化表结构
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics db: %w", err)
	}

	// 优化SQLite配置
	if _, err := db.Exec(`
        PRAGMA journal_mode = WAL;
        PRAGMA synchronous = NORMAL;
        PRAGMA temp_store = MEMORY;
    `); err != nil {
		db.Close()
		return nil, err
	}

	if err := initTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS metrics_history (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
            total_requests INTEGER,
            total_errors INTEGER,
            total_bytes INTEGER,
            avg_latency INTEGER
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics_history(timestamp)
    `)
	return err
}

// SaveHistory 写入一条指标快照
func SaveHistory(db *sql.DB, h History) error {
	_, err := db.Exec(`
        INSERT INTO metrics_history (timestamp, total_requests, total_errors, total_bytes, avg_latency)
        VALUES (?, ?, ?, ?, ?)
    `, h.Timestamp, h.TotalRequests, h.TotalErrors, h.TotalBytes, h.AvgLatency)
	return err
}

// RecentHistory 按时间倒序返回最近的快照
func RecentHistory(db *sql.DB, limit int) ([]History, error) {
	rows, err := db.Query(`
        SELECT timestamp, total_requests, total_errors, total_bytes, avg_latency
        FROM metrics_history
        ORDER BY timestamp DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []History
	for rows.Next() {
		var h History
		if err := rows.Scan(&h.Timestamp, &h.TotalRequests, &h.TotalErrors, &h.TotalBytes, &h.AvgLatency); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// CleanupBefore 删除指定时间之前的历史记录
func CleanupBefore(db *sql.DB, t time.Time) (int64, error) {
	result, err := db.Exec(`DELETE FROM metrics_history WHERE timestamp < ?`, t)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
