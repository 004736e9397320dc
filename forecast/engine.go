package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stockforecast/models"
)

// Engine fits a fresh model per request and predicts over history plus a
// horizon of future calendar days.
type Engine struct {
	newModel ModelFactory
	log      *slog.Logger
}

// NewEngine creates an Engine. A nil factory uses the additive model with
// default options.
func NewEngine(factory ModelFactory, log *slog.Logger) *Engine {
	if factory == nil {
		factory = AdditiveFactory(DefaultOptions())
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{newModel: factory, log: log.With("component", "forecast")}
}

// Result is the output of one forecast.
type Result struct {
	Model          string                `json:"model"`
	History        models.TrainingSeries `json:"history"`
	Rows           []models.ForecastRow  `json:"rows"`
	Components     []Component           `json:"components"`
	LastHistorical time.Time             `json:"last_historical"`
}

// Future returns the rows dated strictly after the last historical date.
func (r *Result) Future() []models.ForecastRow {
	if r == nil {
		return nil
	}
	var out []models.ForecastRow
	for _, row := range r.Rows {
		if row.Date.After(r.LastHistorical) {
			out = append(out, row)
		}
	}
	return out
}

// Component looks up a decomposition term by name.
func (r *Result) Component(name string) (Component, bool) {
	if r == nil {
		return Component{}, false
	}
	for _, c := range r.Components {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

// ComponentNames lists the decomposition terms present in the result.
func (r *Result) ComponentNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.Components))
	for i, c := range r.Components {
		names[i] = c.Name
	}
	return names
}

// Forecast fits on train and predicts over its dates followed by horizonDays
// consecutive calendar days.
func (e *Engine) Forecast(ctx context.Context, train models.TrainingSeries, horizonDays int) (*Result, error) {
	if len(train) < MinObservations {
		return nil, &InsufficientDataError{Have: len(train), Need: MinObservations}
	}
	if horizonDays < 0 {
		return nil, fmt.Errorf("negative horizon: %d days", horizonDays)
	}
	for i := 1; i < len(train); i++ {
		if !train[i].DS.After(train[i-1].DS) {
			return nil, fmt.Errorf("training dates not strictly increasing at row %d", i)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	began := time.Now()
	model := e.newModel()
	if err := model.Fit(train); err != nil {
		return nil, fmt.Errorf("fit %s model: %w", model.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index := FutureDates(train, horizonDays)
	pred, err := model.Predict(index)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	last := models.TruncateToDate(train[len(train)-1].DS)
	e.log.Debug("forecast complete",
		"model", model.Name(),
		"observations", len(train),
		"horizon_days", horizonDays,
		"rows", len(pred.Rows),
		"elapsed", time.Since(began).Round(time.Millisecond),
	)
	return &Result{
		Model:          model.Name(),
		History:        train,
		Rows:           pred.Rows,
		Components:     pred.Components,
		LastHistorical: last,
	}, nil
}

// FutureDates returns the historical dates of train followed by horizonDays
// consecutive days after the last one, all truncated to calendar dates.
func FutureDates(train models.TrainingSeries, horizonDays int) []time.Time {
	if len(train) == 0 {
		return nil
	}
	out := make([]time.Time, 0, len(train)+horizonDays)
	for _, p := range train {
		out = append(out, models.TruncateToDate(p.DS))
	}
	last := out[len(out)-1]
	for i := 1; i <= horizonDays; i++ {
		out = append(out, last.AddDate(0, 0, i))
	}
	return out
}
