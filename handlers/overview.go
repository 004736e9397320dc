package handlers

import (
	"math"
	"net/http"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"

	"stockforecast/models"
	"stockforecast/pipeline"
)

// overviewConcurrency caps pipeline runs in flight per overview request.
const overviewConcurrency = 5

// flatBand is the relative change below which a forecast counts as FLAT.
const flatBand = 0.02

// OverviewHandler forecasts every configured ticker at once.
type OverviewHandler struct {
	pipeline *pipeline.Pipeline
}

// NewOverviewHandler creates a new overview handler
func NewOverviewHandler(p *pipeline.Pipeline) *OverviewHandler {
	return &OverviewHandler{pipeline: p}
}

// OverviewResponse represents the aggregated response
type OverviewResponse struct {
	HorizonYears int              `json:"horizon_years"`
	TotalTickers int              `json:"total_tickers"`
	Results      []OverviewResult `json:"results"`
	Summary      OverviewSummary  `json:"summary"`
}

// OverviewResult is one ticker's end-of-horizon forecast.
type OverviewResult struct {
	Ticker        string   `json:"ticker"`
	Direction     string   `json:"direction"` // "UP", "DOWN", "FLAT", "ERROR"
	LastClose     *float64 `json:"last_close,omitempty"`
	FinalForecast *float64 `json:"final_forecast,omitempty"`
	FinalLower    *float64 `json:"final_lower,omitempty"`
	FinalUpper    *float64 `json:"final_upper,omitempty"`
	ChangePct     *float64 `json:"change_pct,omitempty"`
	Error         *string  `json:"error,omitempty"`
}

// OverviewSummary counts results per direction.
type OverviewSummary struct {
	UpCount       int `json:"up_count"`
	DownCount     int `json:"down_count"`
	FlatCount     int `json:"flat_count"`
	ErrorCount    int `json:"error_count"`
	TotalAnalyzed int `json:"total_analyzed"`
}

// GetOverview forecasts all tickers concurrently and summarizes where each
// ends the horizon relative to its last close.
// Query parameters:
//   - years: forecast horizon in years, 1-3 (default: 1)
func (h *OverviewHandler) GetOverview(c *gin.Context) {
	cfg, err := configFromQuery(c, h.pipeline.Tickers())
	if err != nil {
		writeError(c, err)
		return
	}
	if c.Query("years") == "" && c.Query("horizon_years") == "" {
		cfg.HorizonYears = models.MinHorizonYears
	}

	sess := sessionFrom(c)
	tickers := h.pipeline.Tickers()

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]OverviewResult, 0, len(tickers))
	semaphore := make(chan struct{}, overviewConcurrency)

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			run := models.Configuration{Ticker: ticker, HorizonYears: cfg.HorizonYears}
			out, err := h.pipeline.Run(c.Request.Context(), sess, run)
			result := summarize(run.Normalized().Ticker, out, err)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Ticker < results[j].Ticker })

	summary := OverviewSummary{TotalAnalyzed: len(results)}
	for _, r := range results {
		switch r.Direction {
		case "UP":
			summary.UpCount++
		case "DOWN":
			summary.DownCount++
		case "FLAT":
			summary.FlatCount++
		default:
			summary.ErrorCount++
		}
	}

	c.JSON(http.StatusOK, OverviewResponse{
		HorizonYears: cfg.HorizonYears,
		TotalTickers: len(results),
		Results:      results,
		Summary:      summary,
	})
}

func summarize(ticker string, out *pipeline.Output, err error) OverviewResult {
	result := OverviewResult{Ticker: ticker}
	if err != nil {
		msg := err.Error()
		result.Direction = "ERROR"
		result.Error = &msg
		return result
	}
	final, ok := out.FinalRow()
	if !ok {
		msg := "no forecast rows"
		result.Direction = "ERROR"
		result.Error = &msg
		return result
	}

	last := out.LastClose()
	change := (final.Predicted - last) / last
	pct := math.Round(change*10000) / 100
	result.LastClose = &last
	result.FinalForecast = &final.Predicted
	result.FinalLower = &final.Lower
	result.FinalUpper = &final.Upper
	result.ChangePct = &pct

	switch {
	case change > flatBand:
		result.Direction = "UP"
	case change < -flatBand:
		result.Direction = "DOWN"
	default:
		result.Direction = "FLAT"
	}
	return result
}
