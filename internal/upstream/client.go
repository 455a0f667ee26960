package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"catalog-go/internal/cache"
	"catalog-go/internal/constants"
)

// HealthRecorder 上游请求结果的被动健康记录
type HealthRecorder interface {
	RecordRequest(target string, success bool, latency time.Duration, err error)
}

// Client 星战数据API客户端
// 所有读取先查请求缓存，未命中才访问上游，成功后回填
// 缓存键按资源类型加前缀：people: / planets: / species:
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	health     HealthRecorder

	// 测试时可替换的休眠函数
	sleep func(ctx context.Context, d time.Duration) error
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Health     HealthRecorder
}

func NewClient(opts Options, c *cache.Cache) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = constants.UpstreamTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = constants.MaxRetries
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		maxRetries: maxRetries,
		baseDelay:  constants.RetryBaseDelay,
		maxDelay:   constants.RetryMaxDelay,
		health:     opts.Health,
		sleep:      sleepContext,
	}
}

// BaseURL 返回上游基础地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetPerson 按id获取人物
func (c *Client) GetPerson(ctx context.Context, id int) (*Person, error) {
	key := fmt.Sprintf("people:id:%d", id)
	return fetchOne[Person](ctx, c, key, fmt.Sprintf("people/%d/", id))
}

// ListPeople 获取人物分页列表，search为空表示不过滤
func (c *Client) ListPeople(ctx context.Context, page int, search string) (*Page[Person], error) {
	key := listKey("people", page, search)
	return fetchList[Person](ctx, c, key, "people/", page, search)
}

// GetPlanet 按id获取星球
func (c *Client) GetPlanet(ctx context.Context, id int) (*Planet, error) {
	key := fmt.Sprintf("planets:id:%d", id)
	return fetchOne[Planet](ctx, c, key, fmt.Sprintf("planets/%d/", id))
}

// ListPlanets 获取星球分页列表
func (c *Client) ListPlanets(ctx context.Context, page int, search string) (*Page[Planet], error) {
	key := listKey("planets", page, search)
	return fetchList[Planet](ctx, c, key, "planets/", page, search)
}

// GetSpecies 按id获取物种
func (c *Client) GetSpecies(ctx context.Context, id int) (*Species, error) {
	key := fmt.Sprintf("species:id:%d", id)
	return fetchOne[Species](ctx, c, key, fmt.Sprintf("species/%d/", id))
}

// ListSpecies 获取物种分页列表
func (c *Client) ListSpecies(ctx context.Context, page int, search string) (*Page[Species], error) {
	key := listKey("species", page, search)
	return fetchList[Species](ctx, c, key, "species/", page, search)
}

// listKey 列表缓存键：资源类型 + 页码 + 检索词
func listKey(resource string, page int, search string) string {
	if search == "" {
		return fmt.Sprintf("%s:page:%d", resource, page)
	}
	return fmt.Sprintf("%s:page:%d:search:%s", resource, page, search)
}

func fetchOne[T any](ctx context.Context, c *Client, key, endpoint string) (*T, error) {
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) (*T, error) {
		var entity T
		if err := c.getJSON(ctx, endpoint, nil, &entity); err != nil {
			return nil, err
		}
		return &entity, nil
	})
}

func fetchList[T any](ctx context.Context, c *Client, key, endpoint string, page int, search string) (*Page[T], error) {
	params := map[string]string{}
	if page > 1 {
		params["page"] = strconv.Itoa(page)
	}
	if search != "" {
		params["search"] = search
	}

	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) (*Page[T], error) {
		var result Page[T]
		if err := c.getJSON(ctx, endpoint, params, &result); err != nil {
			return nil, err
		}
		return &result, nil
	})
}

// getJSON 执行GET请求并反序列化，带指数退避重试
func (c *Client) getJSON(ctx context.Context, endpoint string, params map[string]string, entity any) error {
	urlStr, err := c.buildURL(endpoint, params)
	if err != nil {
		return err
	}

	data, err := c.doWithRetry(ctx, urlStr)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}

// doWithRetry 对可重试错误做指数退避加抖动，重试耗尽返回最后一次错误
func (c *Client) doWithRetry(ctx context.Context, urlStr string) ([]byte, error) {
	var lastErr error
	delay := c.baseDelay

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		data, err := c.doRequest(ctx, urlStr)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.maxRetries-1 {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(delay)))
		log.Printf("[SWAPI] 请求失败将重试 (%d/%d): %s: %v", attempt+1, c.maxRetries, urlStr, err)
		if err := c.sleep(ctx, delay+jitter); err != nil {
			return nil, err
		}

		delay *= 2
		if delay > c.maxDelay {
			delay = c.maxDelay
		}
	}
	return nil, lastErr
}

// doRequest 单次HTTP请求，404映射为ErrNotFound
func (c *Client) doRequest(ctx context.Context, urlStr string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordHealth(false, time.Since(start), err)
		return nil, fmt.Errorf("failed to reach upstream: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordHealth(false, time.Since(start), err)
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		c.recordHealth(true, time.Since(start), nil)
		return data, nil
	case resp.StatusCode == http.StatusNotFound:
		// 404是正常业务结果，不算上游故障
		c.recordHealth(true, time.Since(start), nil)
		return nil, fmt.Errorf("%s: %w", urlStr, ErrNotFound)
	default:
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: data}
		c.recordHealth(false, time.Since(start), httpErr)
		return nil, httpErr
	}
}

func (c *Client) recordHealth(success bool, latency time.Duration, err error) {
	if c.health != nil {
		c.health.RecordRequest(c.baseURL, success, latency, err)
	}
}

// buildURL 拼接端点和查询参数，参数按键名排序保证可重现
func (c *Client) buildURL(endpoint string, params map[string]string) (string, error) {
	full, err := url.Parse(c.baseURL + "/" + strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		q := url.Values{}
		for _, k := range keys {
			q.Set(k, params[k])
		}
		full.RawQuery = q.Encode()
	}
	return full.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsNotFound 判断错误是否为资源不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
