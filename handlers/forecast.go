package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stockforecast/charts"
	"stockforecast/export"
	"stockforecast/models"
	"stockforecast/pipeline"
)

// ForecastHandler serves the forecast, its history, charts and downloads
// as JSON, SVG/PNG and CSV/Parquet.
type ForecastHandler struct {
	pipeline *pipeline.Pipeline
	now      func() time.Time
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(p *pipeline.Pipeline) *ForecastHandler {
	return &ForecastHandler{pipeline: p, now: time.Now}
}

// ForecastResponse is the JSON body of GET /api/v1/forecast.
type ForecastResponse struct {
	Ticker         string               `json:"ticker"`
	HorizonYears   int                  `json:"horizon_years"`
	HorizonDays    int                  `json:"horizon_days"`
	Model          string               `json:"model"`
	Components     []string             `json:"components"`
	LastHistorical string               `json:"last_historical"`
	LastClose      float64              `json:"last_close"`
	RawTail        []models.Bar         `json:"raw_tail"`
	Forecast       []models.ForecastRow `json:"forecast"`
	ElapsedMillis  int64                `json:"elapsed_ms"`
}

func newForecastResponse(out *pipeline.Output) ForecastResponse {
	return ForecastResponse{
		Ticker:         out.Config.Ticker,
		HorizonYears:   out.Config.HorizonYears,
		HorizonDays:    out.Config.HorizonDays(),
		Model:          out.Forecast.Model,
		Components:     out.Forecast.ComponentNames(),
		LastHistorical: out.Forecast.LastHistorical.Format(models.DateLayout),
		LastClose:      out.LastClose(),
		RawTail:        out.RawTail,
		Forecast:       out.Future,
		ElapsedMillis:  out.Elapsed.Milliseconds(),
	}
}

// GetForecast runs the pipeline and returns the future rows.
// Query parameters:
//   - ticker: one of the configured tickers (default: last used, then the first)
//   - years: forecast horizon in years, 1-3 (default: last used, then 1)
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	cfg, err := configFromQuery(c, h.pipeline.Tickers())
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := runCached(c.Request.Context(), h.pipeline, sessionFrom(c), cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newForecastResponse(out))
}

// GetSeries returns the loaded daily history.
// Query parameters:
//   - ticker: one of the configured tickers (required)
//   - tail: only return the last N rows (optional)
func (h *ForecastHandler) GetSeries(c *gin.Context) {
	ticker := c.Query("ticker")
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}
	raw, err := h.pipeline.LoadSeries(c.Request.Context(), sessionFrom(c), ticker)
	if err != nil {
		writeError(c, err)
		return
	}
	bars := raw.Bars
	if tailStr := c.Query("tail"); tailStr != "" {
		n, err := strconv.Atoi(tailStr)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tail must be a positive integer"})
			return
		}
		bars = raw.Tail(n)
	}
	c.JSON(http.StatusOK, gin.H{
		"ticker": raw.Ticker,
		"rows":   raw.Len(),
		"bars":   bars,
	})
}

// GetChart renders one chart of the current configuration.
// Path parameters:
//   - kind: raw, forecast, trend, weekly or yearly
//
// Query parameters:
//   - ticker, years: as for GetForecast
//   - range: 1m, 6m, ytd, 1y, 5y or all (default: all)
//   - format: svg or png (default: svg)
//   - width, height: canvas size in pixels
func (h *ForecastHandler) GetChart(c *gin.Context) {
	kind := c.Param("kind")
	format := c.DefaultQuery("format", charts.FormatSVG)
	if format != charts.FormatSVG && format != charts.FormatPNG {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be svg or png"})
		return
	}

	cfg, err := configFromQuery(c, h.pipeline.Tickers())
	if err != nil {
		writeError(c, err)
		return
	}

	var fig charts.Figure
	if kind == charts.KindRaw {
		raw, err := h.pipeline.LoadSeries(c.Request.Context(), sessionFrom(c), cfg.Ticker)
		if err != nil {
			writeError(c, err)
			return
		}
		fig = charts.RawSeriesFigure(raw)
	} else {
		out, err := runCached(c.Request.Context(), h.pipeline, sessionFrom(c), cfg)
		if err != nil {
			writeError(c, err)
			return
		}
		var ok bool
		if fig, ok = out.Charts.Get(kind); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no %q chart for %s", kind, cfg.Ticker)})
			return
		}
	}

	if fig.RangeSelector {
		if fig, err = fig.Window(c.Query("range"), h.now()); err != nil {
			writeError(c, err)
			return
		}
	}

	width, _ := strconv.Atoi(c.Query("width"))
	height, _ := strconv.Atoi(c.Query("height"))
	var buf bytes.Buffer
	if err := charts.Render(&buf, format, fig, width, height); err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, charts.ContentType(format), buf.Bytes())
}

// ExportForecast downloads the future rows.
// Query parameters:
//   - ticker, years: as for GetForecast
//   - format: csv or parquet (default: csv)
func (h *ForecastHandler) ExportForecast(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := configFromQuery(c, h.pipeline.Tickers())
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := runCached(c.Request.Context(), h.pipeline, sessionFrom(c), cfg)
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, out.Config.Ticker, out.Future); err != nil {
		writeError(c, err)
		return
	}
	name := export.FileName(out.Config.Ticker, out.Config.HorizonYears, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}
