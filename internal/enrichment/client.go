package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"catalog-go/internal/cache"
)

// ErrNoRecord 数据库中没有该资源的扩展记录
var ErrNoRecord = errors.New("no enrichment record")

// Record 托管数据库中维护的资源扩展字段
type Record struct {
	ResourceType string `json:"resource_type"` // people / planets / species
	ResourceID   int    `json:"resource_id"`
	Nickname     string `json:"nickname,omitempty"`
	Description  string `json:"description,omitempty"`
	ImageKey     string `json:"image_key,omitempty"` // 对象存储中的图片key
}

// queryResponse 数据库HTTP接口的响应包装
type queryResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt int64           `json:"updated_at"`
}

// Client 扩展数据库客户端（SQL over HTTP）
// 查询结果缓存在 enrich: 键空间下，与上游API的缓存互不干扰
type Client struct {
	endpoint string
	token    string
	client   *http.Client
	cache    *cache.Cache
}

func NewClient(endpoint, token string, timeout time.Duration, c *cache.Cache) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		cache:    c,
	}
}

// Get 查询单个资源的扩展记录，不存在返回ErrNoRecord
func (c *Client) Get(ctx context.Context, resourceType string, id int) (*Record, error) {
	key := fmt.Sprintf("enrich:%s:%d", resourceType, id)
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) (*Record, error) {
		return c.query(ctx, resourceType, id)
	})
}

func (c *Client) query(ctx context.Context, resourceType string, id int) (*Record, error) {
	url := fmt.Sprintf("%s/%s/%d", c.endpoint, resourceType, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrichment db: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoRecord
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("enrichment db error (status %d): %s", resp.StatusCode, string(body))
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !qr.Success {
		return nil, fmt.Errorf("enrichment query failed for %s/%d", resourceType, id)
	}

	var record Record
	if err := json.Unmarshal(qr.Data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}

	return &record, nil
}
