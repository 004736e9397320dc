package service

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	polygonmodels "github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockforecast/config"
	"stockforecast/models"
)

type fakeProvider struct {
	bars  []models.Bar
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchDaily(_ context.Context, _ string, _, _ time.Time) ([]models.Bar, error) {
	f.calls++
	return f.bars, f.err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestLoader(p Provider, today time.Time) *Loader {
	l := NewLoader(p, date(2016, 1, 1), nil)
	l.now = func() time.Time { return today }
	return l
}

func TestLoaderNormalizes(t *testing.T) {
	p := &fakeProvider{bars: []models.Bar{
		{Date: time.Date(2024, 1, 3, 14, 30, 0, 0, time.UTC), Open: 2, Close: 2.5, Volume: 10},
		{Date: time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC), Open: 1, Close: 1.5, Volume: 10},
		{Date: time.Date(2024, 1, 4, 14, 30, 0, 0, time.UTC), Open: math.NaN(), Close: 3, Volume: 10},
		{Date: time.Date(2015, 12, 31, 14, 30, 0, 0, time.UTC), Open: 1, Close: 1, Volume: 10},
		{Date: time.Date(2024, 2, 1, 14, 30, 0, 0, time.UTC), Open: 1, Close: 1, Volume: 10},
	}}

	series, err := newTestLoader(p, date(2024, 1, 31)).Load(context.Background(), " aapl ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", series.Ticker)
	require.Equal(t, 2, series.Len(), "NaN row and rows outside [start, today] are dropped")
	assert.Equal(t, date(2024, 1, 2), series.Bars[0].Date)
	assert.Equal(t, date(2024, 1, 3), series.Bars[1].Date)
	assert.NoError(t, series.Validate())
}

func TestLoaderFetchErrorIsDataUnavailable(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}

	_, err := newTestLoader(p, date(2024, 1, 31)).Load(context.Background(), "MSFT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))

	var due *DataUnavailableError
	require.True(t, errors.As(err, &due))
	assert.Equal(t, "MSFT", due.Ticker)
	assert.Equal(t, "fake", due.Provider)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLoaderEmptyIsDataUnavailable(t *testing.T) {
	_, err := newTestLoader(&fakeProvider{}, date(2024, 1, 31)).Load(context.Background(), "GOOG")
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}

const yahooBody = `{"chart":{"result":[{"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{"open":[185.1,null,182.0],"close":[185.6,184.2,181.9],"volume":[82488700,58414500,null]}]}}],"error":null}}`

func TestYahooProviderFetchDaily(t *testing.T) {
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	p := NewYahooProvider(srv.URL, "")
	bars, err := p.FetchDaily(context.Background(), "AAPL", date(2024, 1, 1), date(2024, 1, 5))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "1d", gotInterval)
	require.Len(t, bars, 2, "bar with null open is skipped")
	assert.Equal(t, date(2024, 1, 2), models.TruncateToDate(bars[0].Date))
	assert.Equal(t, 185.6, bars[0].Close)
	assert.Equal(t, 0.0, bars[1].Volume, "null volume becomes zero")
}

func TestYahooProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http status", status: http.StatusNotFound, body: "not found"},
		{name: "api error", status: http.StatusOK, body: `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`},
		{name: "bad json", status: http.StatusOK, body: `{"chart":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewYahooProvider(srv.URL, "").FetchDaily(context.Background(), "ZZZZ", date(2024, 1, 1), date(2024, 1, 5))
			assert.Error(t, err)
		})
	}
}

func TestDemoProviderDeterministic(t *testing.T) {
	p := NewDemoProvider()
	ctx := context.Background()

	a, err := p.FetchDaily(ctx, "NVDA", date(2023, 1, 1), date(2023, 3, 31))
	require.NoError(t, err)
	b, err := p.FetchDaily(ctx, "NVDA", date(2023, 1, 1), date(2023, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	for _, bar := range a {
		assert.NotEqual(t, time.Saturday, bar.Date.Weekday())
		assert.NotEqual(t, time.Sunday, bar.Date.Weekday())
		assert.Greater(t, bar.Close, 0.0)
	}

	other, err := p.FetchDaily(ctx, "TSLA", date(2023, 1, 1), date(2023, 3, 31))
	require.NoError(t, err)
	assert.NotEqual(t, a[0].Close, other[0].Close)
}

func TestAggToBar(t *testing.T) {
	ts := time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC)
	bar := aggToBar(polygonmodels.Agg{
		Open:      10,
		Close:     11,
		Volume:    1000,
		Timestamp: polygonmodels.Millis(ts),
	})
	assert.Equal(t, date(2024, 1, 2), models.TruncateToDate(bar.Date))
	assert.Equal(t, 10.0, bar.Open)
	assert.Equal(t, 11.0, bar.Close)
	assert.Equal(t, 1000.0, bar.Volume)
}

func TestAlpacaToBar(t *testing.T) {
	bar := alpacaToBar(marketdata.Bar{
		Timestamp: time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC),
		Open:      20,
		Close:     21,
		Volume:    5000,
	})
	assert.Equal(t, date(2024, 1, 2), models.TruncateToDate(bar.Date))
	assert.Equal(t, 5000.0, bar.Volume)
}

func TestNewProviderFromConfig(t *testing.T) {
	cfg := &config.Config{}
	for _, name := range []string{"yahoo", "polygon", "alpaca", "demo"} {
		cfg.Data.Provider = name
		p, err := NewProviderFromConfig(cfg)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}

	cfg.Data.Provider = "nope"
	_, err := NewProviderFromConfig(cfg)
	assert.Error(t, err)
}
