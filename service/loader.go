package service

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"stockforecast/models"
)

// Loader turns provider output into a normalized RawSeries covering
// [start, today].
type Loader struct {
	provider Provider
	start    time.Time
	now      func() time.Time
	log      *slog.Logger
}

// NewLoader creates a Loader reading from p with history beginning at start.
func NewLoader(p Provider, start time.Time, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		provider: p,
		start:    models.TruncateToDate(start),
		now:      time.Now,
		log:      log.With("component", "loader", "provider", p.Name()),
	}
}

// ProviderName reports which upstream the loader reads from.
func (l *Loader) ProviderName() string { return l.provider.Name() }

// Load fetches the daily history of ticker. Fetch errors and empty results
// come back as *DataUnavailableError.
func (l *Loader) Load(ctx context.Context, ticker string) (models.RawSeries, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	end := models.TruncateToDate(l.now())

	began := time.Now()
	bars, err := l.provider.FetchDaily(ctx, ticker, l.start, end)
	if err != nil {
		l.log.Warn("fetch failed", "ticker", ticker, "error", err)
		return models.RawSeries{}, &DataUnavailableError{Ticker: ticker, Provider: l.provider.Name(), Err: err}
	}

	series := models.RawSeries{Ticker: ticker, Bars: clean(bars, l.start, end)}
	if series.Empty() {
		return models.RawSeries{}, &DataUnavailableError{Ticker: ticker, Provider: l.provider.Name()}
	}

	l.log.Info("history loaded",
		"ticker", ticker,
		"rows", series.Len(),
		"first", series.Bars[0].Date.Format(models.DateLayout),
		"elapsed", time.Since(began).Round(time.Millisecond),
	)
	return series, nil
}

// clean keeps rows with finite prices inside [start, end] and normalizes
// their dates.
func clean(bars []models.Bar, start, end time.Time) []models.Bar {
	kept := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if !finite(b.Open) || !finite(b.Close) || b.Close <= 0 {
			continue
		}
		if !finite(b.Volume) {
			b.Volume = 0
		}
		kept = append(kept, b)
	}

	normalized := models.NormalizeBars(kept)
	out := normalized[:0]
	for _, b := range normalized {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
