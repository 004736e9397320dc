package charts

import (
	"fmt"

	"stockforecast/forecast"
	"stockforecast/models"
)

// Palette.
const (
	colorOpen      = "#1f77b4"
	colorClose     = "#ff7f0e"
	colorActual    = "#000000"
	colorPredicted = "#0072b2"
	colorComponent = "#0072b2"
)

// Track names of the raw-history figure.
const (
	TrackOpen  = "stock_open"
	TrackClose = "stock_close"
)

// RawSeriesFigure plots daily open and close over date. An empty series
// gives a figure with empty tracks.
func RawSeriesFigure(raw models.RawSeries) Figure {
	open := Track{Name: TrackOpen, Color: colorOpen}
	closeT := Track{Name: TrackClose, Color: colorClose}
	for _, b := range raw.Bars {
		open.Dates = append(open.Dates, b.Date)
		open.Values = append(open.Values, b.Open)
		closeT.Dates = append(closeT.Dates, b.Date)
		closeT.Values = append(closeT.Values, b.Close)
	}
	title := "Time Series data"
	if raw.Ticker != "" {
		title = fmt.Sprintf("%s time series data", raw.Ticker)
	}
	return Figure{
		Title:         title,
		XLabel:        "Date",
		YLabel:        "Price",
		Tracks:        []Track{open, closeT},
		RangeSelector: true,
	}
}

// ForecastFigure plots observed closes as points, the prediction as a line
// and the uncertainty interval as a shaded band.
func ForecastFigure(ticker string, res *forecast.Result) Figure {
	fig := Figure{
		Title:  "Forecast",
		XLabel: "ds",
		YLabel: "y",
	}
	if ticker != "" {
		fig.Title = fmt.Sprintf("%s forecast", ticker)
	}
	actual := Track{Name: "actual", Color: colorActual, Dotted: true}
	predicted := Track{Name: "predicted", Color: colorPredicted}
	if res == nil {
		fig.Tracks = []Track{actual, predicted}
		return fig
	}

	for _, p := range res.History {
		actual.Dates = append(actual.Dates, p.DS)
		actual.Values = append(actual.Values, p.Y)
	}
	band := &Band{Name: "uncertainty", Color: colorPredicted}
	for _, r := range res.Rows {
		predicted.Dates = append(predicted.Dates, r.Date)
		predicted.Values = append(predicted.Values, r.Predicted)
		band.Dates = append(band.Dates, r.Date)
		band.Lower = append(band.Lower, r.Lower)
		band.Upper = append(band.Upper, r.Upper)
	}
	fig.Tracks = []Track{actual, predicted}
	fig.Band = band
	fig.RangeSelector = true
	return fig
}

// ComponentFigures returns one figure per decomposition term, in the order
// the model reports them.
func ComponentFigures(res *forecast.Result) []Figure {
	if res == nil {
		return nil
	}
	out := make([]Figure, 0, len(res.Components))
	for _, c := range res.Components {
		out = append(out, ComponentFigure(c))
	}
	return out
}

// ComponentFigure plots a single decomposition term. Weekly and yearly terms
// get day-name and month-name ticks.
func ComponentFigure(c forecast.Component) Figure {
	fig := Figure{
		Title:  c.Name,
		XLabel: "ds",
		YLabel: c.Name,
		Tracks: []Track{{Name: c.Name, Dates: c.Dates, Values: c.Values, Color: colorComponent}},
	}
	switch c.Name {
	case forecast.ComponentWeekly:
		fig.XLabel = "Day of week"
		for _, d := range c.Dates {
			fig.Ticks = append(fig.Ticks, Tick{Date: d, Label: d.Weekday().String()})
		}
	case forecast.ComponentYearly:
		fig.XLabel = "Day of year"
		for _, d := range c.Dates {
			if d.Day() == 1 {
				fig.Ticks = append(fig.Ticks, Tick{Date: d, Label: d.Format("January 2")})
			}
		}
	}
	return fig
}

// Chart kinds served over HTTP.
const (
	KindRaw      = "raw"
	KindForecast = "forecast"
	KindTrend    = forecast.ComponentTrend
	KindWeekly   = forecast.ComponentWeekly
	KindYearly   = forecast.ComponentYearly
)

// Kinds lists every chart kind.
var Kinds = []string{KindRaw, KindForecast, KindTrend, KindWeekly, KindYearly}

// Set holds every figure of one pipeline pass.
type Set struct {
	Raw        Figure   `json:"raw"`
	Forecast   Figure   `json:"forecast"`
	Components []Figure `json:"components"`
}

// Get returns the figure of kind, if the pass produced one.
func (s Set) Get(kind string) (Figure, bool) {
	switch kind {
	case KindRaw:
		return s.Raw, true
	case KindForecast:
		return s.Forecast, true
	}
	for _, f := range s.Components {
		if f.Title == kind {
			return f, true
		}
	}
	return Figure{}, false
}
