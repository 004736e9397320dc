package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockforecast/models"
)

func series(ticker string) models.RawSeries {
	return models.RawSeries{Ticker: ticker, Bars: []models.Bar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 1, Close: 2},
	}}
}

func TestGetOrLoadCaches(t *testing.T) {
	c := NewSeriesCache()
	var calls int32
	load := func(_ context.Context, ticker string) (models.RawSeries, error) {
		atomic.AddInt32(&calls, 1)
		return series(ticker), nil
	}

	first, err := c.GetOrLoad(context.Background(), "aapl", load)
	require.NoError(t, err)
	second, err := c.GetOrLoad(context.Background(), "AAPL", load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "AAPL", first.Ticker, "load receives the normalized key")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, CacheStats{Entries: 1, Hits: 1, Misses: 1}, c.Stats())
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := NewSeriesCache()
	fail := true
	load := func(_ context.Context, ticker string) (models.RawSeries, error) {
		if fail {
			return models.RawSeries{}, errors.New("upstream down")
		}
		return series(ticker), nil
	}

	_, err := c.GetOrLoad(context.Background(), "MSFT", load)
	require.Error(t, err)
	_, ok := c.Get("MSFT")
	assert.False(t, ok)

	fail = false
	s, err := c.GetOrLoad(context.Background(), "MSFT", load)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", s.Ticker)
}

func TestGetOrLoadSurvivesFirstCallerCancel(t *testing.T) {
	c := NewSeriesCache()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	load := func(ctx context.Context, ticker string) (models.RawSeries, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return models.RawSeries{}, err
		}
		return series(ticker), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(ctx, "META", load)
		firstErr <- err
	}()
	<-started

	secondErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(context.Background(), "META", load)
		secondErr <- err
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled, "cancelled caller returns without waiting")

	close(release)
	assert.NoError(t, <-secondErr)
	s, ok := c.Get("META")
	require.True(t, ok, "load finished despite the first caller leaving")
	assert.Equal(t, "META", s.Ticker)
}

func TestGetOrLoadCoalescesConcurrentLoads(t *testing.T) {
	c := NewSeriesCache()
	var calls int32
	release := make(chan struct{})
	load := func(_ context.Context, ticker string) (models.RawSeries, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return series(ticker), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrLoad(context.Background(), "NVDA", load)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	_, ok := c.Get("NVDA")
	assert.True(t, ok)
}

func TestInvalidate(t *testing.T) {
	c := NewSeriesCache()
	_, err := c.GetOrLoad(context.Background(), "TSLA", func(_ context.Context, ticker string) (models.RawSeries, error) {
		return series(ticker), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA"}, c.Tickers())

	c.Invalidate("tsla")
	assert.Empty(t, c.Tickers())
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager(time.Hour, nil)

	s, created := m.GetOrCreate("")
	require.True(t, created)
	_, err := uuid.Parse(s.ID)
	assert.NoError(t, err)

	again, created := m.GetOrCreate(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	other, created := m.GetOrCreate("not-a-uuid")
	assert.True(t, created)
	assert.NotEqual(t, s.ID, other.ID)

	unknown, created := m.GetOrCreate(uuid.NewString())
	assert.True(t, created)
	assert.NotNil(t, unknown)
	assert.Equal(t, 3, m.Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	m := NewManager(time.Hour, nil)
	a, _ := m.GetOrCreate("")
	b, _ := m.GetOrCreate("")

	_, err := a.Cache.GetOrLoad(context.Background(), "GOOG", func(_ context.Context, ticker string) (models.RawSeries, error) {
		return series(ticker), nil
	})
	require.NoError(t, err)

	_, ok := b.Cache.Get("GOOG")
	assert.False(t, ok)

	a.Set("k", 1)
	_, ok = b.Value("k")
	assert.False(t, ok)
	v, ok := a.Value("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestManagerSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(30*time.Minute, nil)
	m.now = func() time.Time { return now }

	idle, _ := m.GetOrCreate("")
	now = now.Add(20 * time.Minute)
	active, _ := m.GetOrCreate("")

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, ok := m.Get(idle.ID)
	assert.False(t, ok)
	_, ok = m.Get(active.ID)
	assert.True(t, ok)
}

func TestManagerSweepDisabled(t *testing.T) {
	m := NewManager(0, nil)
	m.GetOrCreate("")
	assert.Equal(t, 0, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestStartSweeper(t *testing.T) {
	m := NewManager(time.Minute, nil)
	require.Error(t, m.StartSweeper("not a schedule"))

	require.NoError(t, m.StartSweeper("@every 1h"))
	m.Stop()
}
