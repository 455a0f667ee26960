package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-go/internal/cache"
	"catalog-go/internal/constants"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server, *cache.Cache) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := cache.New(5*time.Minute, 0)
	client := NewClient(Options{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 3,
	}, c)
	// 测试中不真实等待退避
	client.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return client, server, c
}

func TestClientDefaultsFromConstants(t *testing.T) {
	client := NewClient(Options{BaseURL: "https://swapi.dev/api"}, cache.New(5*time.Minute, 0))

	assert.Equal(t, constants.UpstreamTimeout, client.httpClient.Timeout)
	assert.Equal(t, constants.MaxRetries, client.maxRetries)
	assert.Equal(t, constants.RetryBaseDelay, client.baseDelay)
	assert.Equal(t, constants.RetryMaxDelay, client.maxDelay)
}

func TestGetPerson(t *testing.T) {
	var hits atomic.Int64
	client, _, c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/people/1/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Luke Skywalker","birth_year":"19BBY","url":"https://swapi.dev/api/people/1/"}`))
	}))

	person, err := client.GetPerson(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Luke Skywalker", person.Name)
	assert.Equal(t, "19BBY", person.BirthYear)

	// 第二次读取命中缓存，上游只被访问一次
	person, err = client.GetPerson(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Luke Skywalker", person.Name)
	assert.Equal(t, int64(1), hits.Load())
	assert.True(t, c.Contains("people:id:1"))
}

func TestListPeoplePagination(t *testing.T) {
	client, server, c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people/", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Write([]byte(`{"count":82,"next":null,"previous":"prev","results":[{"name":"Leia Organa"}]}`))
	}))
	_ = server

	page, err := client.ListPeople(context.Background(), 2, "")
	require.NoError(t, err)
	assert.Equal(t, 82, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Leia Organa", page.Results[0].Name)
	assert.True(t, c.Contains("people:page:2"))
}

func TestListPeopleSearchKeyNamespace(t *testing.T) {
	client, _, c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "luke", r.URL.Query().Get("search"))
		w.Write([]byte(`{"count":1,"results":[{"name":"Luke Skywalker"}]}`))
	}))

	_, err := client.ListPeople(context.Background(), 1, "luke")
	require.NoError(t, err)

	// 带检索词的列表使用独立缓存键
	assert.True(t, c.Contains("people:page:1:search:luke"))
	assert.False(t, c.Contains("people:page:1"))
}

func TestGetPlanetNotFound(t *testing.T) {
	client, _, c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.GetPlanet(context.Background(), 999)
	assert.True(t, IsNotFound(err))

	// 失败结果不进缓存
	assert.False(t, c.Contains("planets:id:999"))
}

func TestRetryOnServerError(t *testing.T) {
	var hits atomic.Int64
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"name":"Tatooine"}`))
	}))

	planet, err := client.GetPlanet(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Tatooine", planet.Name)
	assert.Equal(t, int64(3), hits.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var hits atomic.Int64
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "teapot", http.StatusTeapot)
	}))

	_, err := client.GetSpecies(context.Background(), 1)
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTeapot, httpErr.StatusCode)
	assert.Equal(t, int64(1), hits.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var hits atomic.Int64
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))

	_, err := client.GetPerson(context.Background(), 1)
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, int64(3), hits.Load())
}

type recordedRequest struct {
	target  string
	success bool
}

type fakeRecorder struct {
	requests []recordedRequest
}

func (f *fakeRecorder) RecordRequest(target string, success bool, latency time.Duration, err error) {
	f.requests = append(f.requests, recordedRequest{target: target, success: success})
}

func TestHealthRecording(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Tatooine"}`))
	}))
	t.Cleanup(server.Close)

	recorder := &fakeRecorder{}
	client := NewClient(Options{
		BaseURL: server.URL,
		Health:  recorder,
	}, cache.New(5*time.Minute, 0))

	_, err := client.GetPlanet(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, recorder.requests, 1)
	assert.Equal(t, server.URL, recorder.requests[0].target)
	assert.True(t, recorder.requests[0].success)

	// 缓存命中时不再访问上游，也不产生健康记录
	_, err = client.GetPlanet(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, recorder.requests, 1)
}
