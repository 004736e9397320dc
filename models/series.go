package models

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the calendar-date format used on the wire and in tables.
const DateLayout = "2006-01-02"

// DaysPerYear converts a horizon in years into forecast days. Leap years are
// ignored on purpose so the horizon is always a whole multiple of 365.
const DaysPerYear = 365

// Bar is one trading day of price history.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// RawSeries is the daily history of one ticker, ordered by date ascending.
type RawSeries struct {
	Ticker string `json:"ticker"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of trading days in the series.
func (s RawSeries) Len() int {
	return len(s.Bars)
}

// Empty reports whether the series holds no rows.
func (s RawSeries) Empty() bool {
	return len(s.Bars) == 0
}

// LastDate returns the most recent trading day.
func (s RawSeries) LastDate() (time.Time, bool) {
	if len(s.Bars) == 0 {
		return time.Time{}, false
	}
	return s.Bars[len(s.Bars)-1].Date, true
}

// Tail returns the last n bars, or all of them when n exceeds the length.
func (s RawSeries) Tail(n int) []Bar {
	if n <= 0 {
		return nil
	}
	if n >= len(s.Bars) {
		return s.Bars
	}
	return s.Bars[len(s.Bars)-n:]
}

// Validate checks that dates are strictly increasing.
func (s RawSeries) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("series %s: date %s does not follow %s",
				s.Ticker, s.Bars[i].Date.Format(DateLayout), s.Bars[i-1].Date.Format(DateLayout))
		}
	}
	return nil
}

// TruncateToDate strips the time of day and returns midnight UTC of the
// calendar date t falls on in its own location.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeBars truncates every timestamp to its calendar date, sorts by date
// and collapses duplicate dates keeping the last occurrence.
func NormalizeBars(bars []Bar) []Bar {
	if len(bars) == 0 {
		return nil
	}
	out := make([]Bar, len(bars))
	for i, b := range bars {
		b.Date = TruncateToDate(b.Date)
		out[i] = b
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(b.Date) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

// TrainingPoint is a single observation in the shape the forecasting model
// expects: ds is the date stamp and y the observed value.
type TrainingPoint struct {
	DS time.Time `json:"ds"`
	Y  float64   `json:"y"`
}

// TrainingSeries is the closing-price projection of a RawSeries.
type TrainingSeries []TrainingPoint

// DateClose is the (date, close) subset of a Bar.
type DateClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// NewTrainingSeries projects raw history onto (ds, y) = (date, close).
func NewTrainingSeries(raw RawSeries) TrainingSeries {
	ts := make(TrainingSeries, len(raw.Bars))
	for i, b := range raw.Bars {
		ts[i] = TrainingPoint{DS: b.Date, Y: b.Close}
	}
	return ts
}

// DateCloses renames the model fields back to (date, close).
func (ts TrainingSeries) DateCloses() []DateClose {
	out := make([]DateClose, len(ts))
	for i, p := range ts {
		out[i] = DateClose{Date: p.DS, Close: p.Y}
	}
	return out
}

// Dates returns the ds column.
func (ts TrainingSeries) Dates() []time.Time {
	out := make([]time.Time, len(ts))
	for i, p := range ts {
		out[i] = p.DS
	}
	return out
}

// Values returns the y column.
func (ts TrainingSeries) Values() []float64 {
	out := make([]float64, len(ts))
	for i, p := range ts {
		out[i] = p.Y
	}
	return out
}

// ForecastRow is one predicted day with its uncertainty interval.
type ForecastRow struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"forecast"`
	Lower     float64   `json:"lower_bound"`
	Upper     float64   `json:"upper_bound"`
}
