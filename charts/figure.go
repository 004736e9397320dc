// Package charts builds chart descriptions from price history and forecasts
// and renders them with go-chart.
package charts

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownRange is returned by Window for an unsupported selector key.
var ErrUnknownRange = errors.New("unknown range")

// RangeOption is one button of the range selector.
type RangeOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// RangeOptions are the range selector buttons, narrowest first.
var RangeOptions = []RangeOption{
	{Key: "1m", Label: "1m"},
	{Key: "6m", Label: "6m"},
	{Key: "ytd", Label: "YTD"},
	{Key: "1y", Label: "1y"},
	{Key: "5y", Label: "5y"},
	{Key: "all", Label: "all"},
}

// Track is one line or scatter series.
type Track struct {
	Name   string      `json:"name"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
	Color  string      `json:"color"`
	Dotted bool        `json:"dotted,omitempty"`
	Dashed bool        `json:"dashed,omitempty"`
}

// Len is the number of points on the track.
func (t Track) Len() int { return len(t.Dates) }

// Band is a shaded area between two curves sharing one date axis.
type Band struct {
	Name  string      `json:"name"`
	Dates []time.Time `json:"dates"`
	Lower []float64   `json:"lower"`
	Upper []float64   `json:"upper"`
	Color string      `json:"color"`
}

// Tick is a labelled position on the date axis.
type Tick struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
}

// Figure is a renderer-independent chart.
type Figure struct {
	Title  string  `json:"title"`
	XLabel string  `json:"x_label,omitempty"`
	YLabel string  `json:"y_label,omitempty"`
	Tracks []Track `json:"tracks"`
	Band   *Band   `json:"band,omitempty"`
	Ticks  []Tick  `json:"ticks,omitempty"`

	// RangeSelector enables the 1m/6m/ytd/1y/5y/all buttons.
	RangeSelector bool `json:"range_selector"`
}

// Points counts the points over all tracks.
func (f Figure) Points() int {
	n := 0
	for _, t := range f.Tracks {
		n += t.Len()
	}
	return n
}

// Empty reports whether no track carries data.
func (f Figure) Empty() bool { return f.Points() == 0 }

// Window returns a copy of f restricted to the range selected by key,
// measured back from now.
func (f Figure) Window(key string, now time.Time) (Figure, error) {
	start, all, err := windowStart(key, now)
	if err != nil {
		return Figure{}, err
	}
	if all {
		return f, nil
	}

	out := f
	out.Tracks = make([]Track, len(f.Tracks))
	for i, t := range f.Tracks {
		nt := t
		nt.Dates, nt.Values = nil, nil
		for j, d := range t.Dates {
			if !d.Before(start) {
				nt.Dates = append(nt.Dates, d)
				nt.Values = append(nt.Values, t.Values[j])
			}
		}
		out.Tracks[i] = nt
	}
	if f.Band != nil {
		b := Band{Name: f.Band.Name, Color: f.Band.Color}
		for j, d := range f.Band.Dates {
			if !d.Before(start) {
				b.Dates = append(b.Dates, d)
				b.Lower = append(b.Lower, f.Band.Lower[j])
				b.Upper = append(b.Upper, f.Band.Upper[j])
			}
		}
		out.Band = &b
	}
	return out, nil
}

func windowStart(key string, now time.Time) (time.Time, bool, error) {
	switch key {
	case "", "all":
		return time.Time{}, true, nil
	case "1m":
		return now.AddDate(0, -1, 0), false, nil
	case "6m":
		return now.AddDate(0, -6, 0), false, nil
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), false, nil
	case "1y":
		return now.AddDate(-1, 0, 0), false, nil
	case "5y":
		return now.AddDate(-5, 0, 0), false, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", ErrUnknownRange, key)
}
