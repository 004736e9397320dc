// Package pipeline runs one dashboard pass: load history, chart it, fit the
// forecast and chart the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"stockforecast/charts"
	"stockforecast/forecast"
	"stockforecast/models"
	"stockforecast/service"
	"stockforecast/session"
)

// ErrInvalidConfiguration wraps every configuration validation failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// TailRows is how many of the latest bars the raw-data table shows.
const TailRows = 5

// SeriesLoader loads the daily history of a ticker.
type SeriesLoader interface {
	Load(ctx context.Context, ticker string) (models.RawSeries, error)
	ProviderName() string
}

// Forecaster fits and predicts a training series.
type Forecaster interface {
	Forecast(ctx context.Context, train models.TrainingSeries, horizonDays int) (*forecast.Result, error)
}

var (
	_ SeriesLoader = (*service.Loader)(nil)
	_ Forecaster   = (*forecast.Engine)(nil)
)

// Output is everything the dashboard shows for one configuration.
type Output struct {
	Config   models.Configuration `json:"config"`
	Raw      models.RawSeries     `json:"-"`
	RawTail  []models.Bar         `json:"raw_tail"`
	Forecast *forecast.Result     `json:"-"`
	Future   []models.ForecastRow `json:"forecast"`
	Charts   charts.Set           `json:"-"`
	Elapsed  time.Duration        `json:"elapsed"`
}

// LastClose is the final observed close.
func (o *Output) LastClose() float64 {
	if o == nil || o.Raw.Empty() {
		return 0
	}
	return o.Raw.Bars[len(o.Raw.Bars)-1].Close
}

// FinalRow is the last forecast row, at the end of the horizon.
func (o *Output) FinalRow() (models.ForecastRow, bool) {
	if o == nil || len(o.Future) == 0 {
		return models.ForecastRow{}, false
	}
	return o.Future[len(o.Future)-1], true
}

// Pipeline wires the loader, the forecast engine and the run recorder.
type Pipeline struct {
	loader   SeriesLoader
	engine   Forecaster
	recorder Recorder
	tickers  []string
	log      *slog.Logger
}

// New creates a Pipeline accepting the given tickers. A nil recorder
// disables run history.
func New(loader SeriesLoader, engine Forecaster, recorder Recorder, tickers []string, log *slog.Logger) *Pipeline {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	if len(tickers) == 0 {
		tickers = models.DefaultTickers
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		loader:   loader,
		engine:   engine,
		recorder: recorder,
		tickers:  tickers,
		log:      log.With("component", "pipeline"),
	}
}

// Tickers returns the accepted tickers.
func (p *Pipeline) Tickers() []string { return p.tickers }

// Recorder returns the run recorder.
func (p *Pipeline) Recorder() Recorder { return p.recorder }

// Run executes one pass for cfg. History is read through the session cache
// when sess is non-nil. Any failure aborts the pass; the attempt is recorded
// either way.
func (p *Pipeline) Run(ctx context.Context, sess *session.Session, cfg models.Configuration) (*Output, error) {
	began := time.Now()
	cfg = cfg.Normalized()
	out := &Output{Config: cfg}

	err := p.run(ctx, sess, out)
	out.Elapsed = time.Since(began)
	p.record(ctx, sess, out, err)

	if err != nil {
		p.log.Warn("pipeline failed", "ticker", cfg.Ticker, "horizon_years", cfg.HorizonYears, "error", err)
		return nil, err
	}
	p.log.Info("pipeline complete",
		"ticker", cfg.Ticker,
		"horizon_years", cfg.HorizonYears,
		"observations", out.Raw.Len(),
		"elapsed", out.Elapsed.Round(time.Millisecond),
	)
	return out, nil
}

// LoadSeries returns the history of ticker without forecasting it.
func (p *Pipeline) LoadSeries(ctx context.Context, sess *session.Session, ticker string) (models.RawSeries, error) {
	cfg := models.Configuration{Ticker: ticker, HorizonYears: models.MinHorizonYears}.Normalized()
	if err := cfg.Validate(p.tickers); err != nil {
		return models.RawSeries{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return p.load(ctx, sess, cfg.Ticker)
}

func (p *Pipeline) load(ctx context.Context, sess *session.Session, ticker string) (models.RawSeries, error) {
	if sess != nil {
		return sess.Cache.GetOrLoad(ctx, ticker, p.loader.Load)
	}
	return p.loader.Load(ctx, ticker)
}

func (p *Pipeline) run(ctx context.Context, sess *session.Session, out *Output) error {
	cfg := out.Config
	if err := cfg.Validate(p.tickers); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	raw, err := p.load(ctx, sess, cfg.Ticker)
	if err != nil {
		return err
	}
	out.Raw = raw
	out.RawTail = raw.Tail(TailRows)
	out.Charts.Raw = charts.RawSeriesFigure(raw)

	res, err := p.engine.Forecast(ctx, models.NewTrainingSeries(raw), cfg.HorizonDays())
	if err != nil {
		return err
	}
	out.Forecast = res
	out.Future = res.Future()
	out.Charts.Forecast = charts.ForecastFigure(cfg.Ticker, res)
	out.Charts.Components = charts.ComponentFigures(res)
	return nil
}

func (p *Pipeline) record(ctx context.Context, sess *session.Session, out *Output, runErr error) {
	run := &models.ForecastRun{
		Ticker:         out.Config.Ticker,
		Provider:       p.loader.ProviderName(),
		HorizonYears:   out.Config.HorizonYears,
		HorizonDays:    out.Config.HorizonDays(),
		Observations:   out.Raw.Len(),
		FutureRows:     len(out.Future),
		LastClose:      out.LastClose(),
		Components:     pq.StringArray{},
		Status:         Status(runErr),
		DurationMillis: out.Elapsed.Milliseconds(),
	}
	if sess != nil {
		run.SessionID = sess.ID
	}
	if !out.Raw.Empty() {
		first, last := out.Raw.Bars[0].Date, out.Raw.Bars[len(out.Raw.Bars)-1].Date
		run.HistoryStart, run.HistoryEnd = &first, &last
	}
	if out.Forecast != nil {
		run.Model = out.Forecast.Model
		run.Components = pq.StringArray(out.Forecast.ComponentNames())
	}
	if row, ok := out.FinalRow(); ok {
		run.FinalForecast, run.FinalLower, run.FinalUpper = row.Predicted, row.Lower, row.Upper
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := p.recorder.Record(ctx, run); err != nil {
		p.log.Error("record run", "ticker", run.Ticker, "error", err)
	}
}

// Status classifies a pipeline error into a stored run status.
func Status(err error) string {
	switch {
	case err == nil:
		return models.RunStatusOK
	case errors.Is(err, ErrInvalidConfiguration):
		return models.RunStatusInvalid
	case errors.Is(err, service.ErrDataUnavailable):
		return models.RunStatusDataUnavailable
	case errors.Is(err, forecast.ErrInsufficientData):
		return models.RunStatusInsufficientData
	}
	return models.RunStatusError
}
