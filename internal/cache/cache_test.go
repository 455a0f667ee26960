package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可手动推进的时钟，避免测试真实等待 TTL
type fakeClock struct {
	current time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.current
}

func (f *fakeClock) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}

func newTestCache(ttl time.Duration, maxSize int) (*Cache, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(ttl, maxSize)
	c.now = clock.Now
	return c, clock
}

func TestGetMissingKey(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 0)

	value, ok := c.Get("planet:1")
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestSetThenGet(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 0)

	c.Set("char:1", map[string]string{"name": "Luke"})
	value, ok := c.Get("char:1")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"name": "Luke"}, value)
	assert.Equal(t, 5*time.Minute, c.TTL())
}

func TestGetWithinTTL(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 0)

	c.Set("char:1", "Luke")
	clock.Advance(4 * time.Minute)

	value, ok := c.Get("char:1")
	require.True(t, ok)
	assert.Equal(t, "Luke", value)
}

func TestGetAfterTTLEvicts(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 0)

	c.Set("char:1", "Luke")
	clock.Advance(6 * time.Minute)

	value, ok := c.Get("char:1")
	assert.False(t, ok)
	assert.Nil(t, value)

	// 过期条目在读取时被物理删除
	assert.False(t, c.Contains("char:1"))
	assert.Equal(t, 0, c.Len())
}

func TestOverwrite(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 0)

	c.Set("char:1", "Luke")
	c.Set("char:1", "Leia")

	value, ok := c.Get("char:1")
	require.True(t, ok)
	assert.Equal(t, "Leia", value)
	assert.Equal(t, 1, c.Len())
}

func TestReadDoesNotRefreshTTL(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 0)

	c.Set("char:1", "Luke")

	// 反复读取不会顺延过期时间
	for i := 0; i < 3; i++ {
		clock.Advance(90 * time.Second)
		value, ok := c.Get("char:1")
		require.True(t, ok, "read %d should hit", i)
		assert.Equal(t, "Luke", value)
	}

	// 距写入 5 分 30 秒，尽管 30 秒前刚读过，依然过期
	clock.Advance(60 * time.Second)
	_, ok := c.Get("char:1")
	assert.False(t, ok)
}

func TestOverwriteResetsTTL(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 0)

	c.Set("char:1", "Luke")
	clock.Advance(4 * time.Minute)
	c.Set("char:1", "Luke")
	clock.Advance(4 * time.Minute)

	value, ok := c.Get("char:1")
	require.True(t, ok)
	assert.Equal(t, "Luke", value)
}

func TestScenarioFiveMinuteTTL(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 0)

	type character struct {
		Name string
	}

	c.Set("char:1", character{Name: "Luke"})

	clock.Advance(4 * time.Minute)
	value, ok := c.Get("char:1")
	require.True(t, ok)
	assert.Equal(t, character{Name: "Luke"}, value)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get("char:1")
	assert.False(t, ok)
}

func TestMaxSizeEvictsOldest(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 2)

	c.Set("char:1", "Luke")
	clock.Advance(time.Second)
	c.Set("char:2", "Leia")
	clock.Advance(time.Second)
	c.Set("char:3", "Han")

	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Contains("char:1"), "oldest entry should be evicted")
	assert.True(t, c.Contains("char:2"))
	assert.True(t, c.Contains("char:3"))
}

func TestMaxSizeSameInstantStillEvicts(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 2)

	// 同一时刻写满后继续写入，容量上限仍然成立
	c.Set("char:1", "Luke")
	c.Set("char:2", "Leia")
	c.Set("char:3", "Han")

	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains("char:3"))
}

func TestMaxSizeOverwriteDoesNotEvict(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 2)

	c.Set("char:1", "Luke")
	clock.Advance(time.Second)
	c.Set("char:2", "Leia")
	c.Set("char:2", "Leia Organa")

	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains("char:1"))
}

func TestDisabledCache(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 0)
	c.SetEnabled(false)

	c.Set("char:1", "Luke")
	_, ok := c.Get("char:1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	c.SetEnabled(true)
	c.Set("char:1", "Luke")
	_, ok = c.Get("char:1")
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 0)

	c.Set("char:1", "Luke")
	c.Set("planet:1", "Tatooine")
	c.Get("char:1")
	c.Get("missing")

	c.Clear()

	assert.Equal(t, 0, c.Len())
	stats := c.GetStats()
	assert.Equal(t, int64(0), stats.HitCount)
	assert.Equal(t, int64(0), stats.MissCount)
}

func TestStats(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 0)

	c.Set("char:1", "Luke")
	c.Get("char:1")
	c.Get("char:1")
	c.Get("missing")

	stats := c.GetStats()
	assert.Equal(t, 1, stats.TotalItems)
	assert.Equal(t, int64(2), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.InDelta(t, 66.6, stats.HitRate, 0.1)
	assert.True(t, stats.Enabled)
}

func TestFetchMissThenHit(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 0)

	calls := 0
	loader := func(ctx context.Context) (string, error) {
		calls++
		return "Luke", nil
	}

	value, err := Fetch(context.Background(), c, "char:1", loader)
	require.NoError(t, err)
	assert.Equal(t, "Luke", value)
	assert.Equal(t, 1, calls)

	// 第二次命中缓存，loader 不再被调用
	value, err = Fetch(context.Background(), c, "char:1", loader)
	require.NoError(t, err)
	assert.Equal(t, "Luke", value)
	assert.Equal(t, 1, calls)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 0)

	wantErr := errors.New("upstream unreachable")
	calls := 0
	loader := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", wantErr
		}
		return "Luke", nil
	}

	_, err := Fetch(context.Background(), c, "char:1", loader)
	assert.ErrorIs(t, err, wantErr)
	assert.False(t, c.Contains("char:1"))

	value, err := Fetch(context.Background(), c, "char:1", loader)
	require.NoError(t, err)
	assert.Equal(t, "Luke", value)
	assert.Equal(t, 2, calls)
}

func TestFetchReloadsAfterExpiry(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 0)

	calls := 0
	loader := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	value, err := Fetch(context.Background(), c, "planet:1", loader)
	require.NoError(t, err)
	assert.Equal(t, 1, value)

	clock.Advance(6 * time.Minute)

	value, err = Fetch(context.Background(), c, "planet:1", loader)
	require.NoError(t, err)
	assert.Equal(t, 2, value)
}
