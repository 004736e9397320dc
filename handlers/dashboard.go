package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stockforecast/charts"
	"stockforecast/config"
	"stockforecast/models"
	"stockforecast/pipeline"
	"stockforecast/service"
)

//go:embed templates/*.html
var templateFS embed.FS

const dashboardTemplate = "dashboard.html"

// Templates parses the embedded dashboard templates for router.SetHTMLTemplate.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"price":  func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
		"day":    func(t time.Time) string { return t.Format(models.DateLayout) },
		"volume": func(v float64) string { return strconv.FormatFloat(v, 'f', 0, 64) },
	}).ParseFS(templateFS, "templates/*.html")
}

// DashboardHandler renders the HTML dashboard.
type DashboardHandler struct {
	pipeline *pipeline.Pipeline
	page     config.Page
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(p *pipeline.Pipeline, page config.Page) *DashboardHandler {
	return &DashboardHandler{pipeline: p, page: page}
}

type chartPanel struct {
	Title string
	Src   string
}

type dashboardView struct {
	Page           config.Page
	Tickers        []string
	Config         models.Configuration
	MinYears       int
	MaxYears       int
	Range          string
	RangeOptions   []charts.RangeOption
	Error          string
	RawTail        []models.Bar
	Forecast       []models.ForecastRow
	LastHistorical string
	RawChart       string
	Charts         []chartPanel
}

// GetDashboard renders the page for the selected configuration. Changing
// any input resubmits the form, which reruns the pipeline.
// Query parameters:
//   - ticker: one of the configured tickers
//   - years: forecast horizon in years, 1-3
//   - range: raw chart window, 1m, 6m, ytd, 1y, 5y or all
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	view := dashboardView{
		Page:         h.page,
		Tickers:      h.pipeline.Tickers(),
		MinYears:     models.MinHorizonYears,
		MaxYears:     models.MaxHorizonYears,
		Range:        c.DefaultQuery("range", "all"),
		RangeOptions: charts.RangeOptions,
	}

	cfg, err := configFromQuery(c, h.pipeline.Tickers())
	view.Config = cfg
	if err != nil {
		h.renderError(c, &view, err)
		return
	}

	sess := sessionFrom(c)
	out, err := runCached(c.Request.Context(), h.pipeline, sess, cfg)
	if err != nil {
		// The history table still shows when only the forecast failed. A
		// failed load is not retried.
		if !errors.Is(err, pipeline.ErrInvalidConfiguration) && !errors.Is(err, service.ErrDataUnavailable) {
			if raw, lerr := h.pipeline.LoadSeries(c.Request.Context(), sess, cfg.Ticker); lerr == nil {
				view.RawTail = raw.Tail(pipeline.TailRows)
				view.RawChart = chartURL(charts.KindRaw, cfg, view.Range)
			}
		}
		h.renderError(c, &view, err)
		return
	}

	view.RawTail = out.RawTail
	view.Forecast = out.Future
	view.LastHistorical = out.Forecast.LastHistorical.Format(models.DateLayout)
	view.RawChart = chartURL(charts.KindRaw, cfg, view.Range)
	view.Charts = append(view.Charts, chartPanel{Title: "Forecast", Src: chartURL(charts.KindForecast, cfg, "")})
	for _, name := range out.Forecast.ComponentNames() {
		view.Charts = append(view.Charts, chartPanel{Title: name, Src: chartURL(name, cfg, "")})
	}
	c.HTML(http.StatusOK, dashboardTemplate, view)
}

func (h *DashboardHandler) renderError(c *gin.Context, view *dashboardView, err error) {
	view.Error = err.Error()
	c.HTML(statusFor(err), dashboardTemplate, view)
}

func chartURL(kind string, cfg models.Configuration, window string) string {
	q := url.Values{}
	q.Set("ticker", cfg.Ticker)
	q.Set("years", strconv.Itoa(cfg.HorizonYears))
	if window != "" {
		q.Set("range", window)
	}
	return "/api/v1/charts/" + url.PathEscape(kind) + "?" + q.Encode()
}
