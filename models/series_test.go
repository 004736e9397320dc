package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizeBars(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)
	bars := []Bar{
		{Date: time.Date(2024, 1, 3, 9, 30, 0, 0, ny), Open: 3, Close: 3.5},
		{Date: time.Date(2024, 1, 2, 16, 0, 0, 0, ny), Open: 1, Close: 1.5},
		{Date: time.Date(2024, 1, 3, 16, 0, 0, 0, ny), Open: 4, Close: 4.5},
	}

	got := NormalizeBars(bars)
	require.Len(t, got, 2, "duplicate dates should collapse")
	assert.Equal(t, day(2024, 1, 2), got[0].Date)
	assert.Equal(t, day(2024, 1, 3), got[1].Date)
	assert.Equal(t, 4.5, got[1].Close, "last duplicate wins")

	s := RawSeries{Ticker: "AAPL", Bars: got}
	assert.NoError(t, s.Validate())
}

func TestNormalizeBarsEmpty(t *testing.T) {
	assert.Nil(t, NormalizeBars(nil))
}

func TestRawSeriesValidateRejectsDuplicates(t *testing.T) {
	s := RawSeries{Ticker: "MSFT", Bars: []Bar{{Date: day(2024, 1, 2)}, {Date: day(2024, 1, 2)}}}
	assert.Error(t, s.Validate())
}

func TestTail(t *testing.T) {
	s := RawSeries{Bars: []Bar{{Close: 1}, {Close: 2}, {Close: 3}}}
	assert.Len(t, s.Tail(5), 3)
	assert.Equal(t, []Bar{{Close: 2}, {Close: 3}}, s.Tail(2))
	assert.Nil(t, s.Tail(0))

	_, ok := RawSeries{}.LastDate()
	assert.False(t, ok)
}

func TestTrainingSeriesRoundTrip(t *testing.T) {
	raw := RawSeries{Ticker: "AAPL"}
	for i := 0; i < 10; i++ {
		raw.Bars = append(raw.Bars, Bar{
			Date:   day(2024, 3, 1).AddDate(0, 0, i),
			Open:   100 + float64(i),
			Close:  101 + float64(i),
			Volume: 1e6,
		})
	}

	train := NewTrainingSeries(raw)
	require.Len(t, train, len(raw.Bars))

	back := train.DateCloses()
	for i, b := range raw.Bars {
		assert.Equal(t, DateClose{Date: b.Date, Close: b.Close}, back[i])
	}
	assert.Equal(t, raw.Bars[3].Date, train.Dates()[3])
	assert.Equal(t, raw.Bars[3].Close, train.Values()[3])
}

func TestHorizonDays(t *testing.T) {
	cases := map[int]int{1: 365, 2: 730, 3: 1095}
	for years, want := range cases {
		c := Configuration{Ticker: "GOOG", HorizonYears: years}
		assert.Equal(t, want, c.HorizonDays(), "years=%d", years)
	}
}

func TestConfigurationValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Configuration
		wantErr bool
	}{
		{name: "valid", cfg: Configuration{Ticker: "NVDA", HorizonYears: 2}},
		{name: "case insensitive", cfg: Configuration{Ticker: "nvda", HorizonYears: 1}},
		{name: "empty ticker", cfg: Configuration{HorizonYears: 1}, wantErr: true},
		{name: "unknown ticker", cfg: Configuration{Ticker: "IBM", HorizonYears: 1}, wantErr: true},
		{name: "horizon too small", cfg: Configuration{Ticker: "GOOG", HorizonYears: 0}, wantErr: true},
		{name: "horizon too large", cfg: Configuration{Ticker: "GOOG", HorizonYears: 4}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(DefaultTickers)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetConnectionPoolConfig(t *testing.T) {
	t.Setenv("DB_MAX_IDLE_CONNS", "7")
	t.Setenv("DB_MAX_OPEN_CONNS", "-3")
	t.Setenv("DB_CONN_MAX_LIFETIME_MINUTES", "abc")
	t.Setenv("DB_CONN_MAX_IDLE_TIME_MINUTES", "2")

	cfg := GetConnectionPoolConfig()
	assert.Equal(t, 7, cfg.MaxIdleConns)
	assert.Equal(t, 10, cfg.MaxOpenConns, "negative value keeps default")
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime, "unparsable value keeps default")
	assert.Equal(t, 2*time.Minute, cfg.ConnMaxIdleTime)
}

func TestInitDatabaseWithoutDSN(t *testing.T) {
	db, err := InitDatabase("", false)
	assert.NoError(t, err)
	assert.Nil(t, db)
}
