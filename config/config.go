package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stockforecast/models"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port         string   `yaml:"port"`
		GinMode      string   `yaml:"gin_mode"`
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"server"`
	Data struct {
		Provider  string   `yaml:"provider"`
		StartDate string   `yaml:"start_date"`
		Tickers   []string `yaml:"tickers"`
		Proxy     string   `yaml:"proxy"`
		YahooURL  string   `yaml:"yahoo_url"`
	} `yaml:"data"`
	Polygon struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"polygon"`
	Alpaca struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		DataURL   string `yaml:"data_url"`
	} `yaml:"alpaca"`
	Forecast struct {
		IntervalWidth float64 `yaml:"interval_width"`
		Changepoints  int     `yaml:"changepoints"`
	} `yaml:"forecast"`
	Session struct {
		IdleTTL   time.Duration `yaml:"idle_ttl"`
		SweepCron string        `yaml:"sweep_cron"`
	} `yaml:"session"`
	Database struct {
		URL     string `yaml:"url"`
		Verbose bool   `yaml:"verbose"`
	} `yaml:"database"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Page Page `yaml:"page"`
}

// Page is the static text shown on the dashboard.
type Page struct {
	Title        string    `yaml:"title"`
	Intro        string    `yaml:"intro"`
	SidebarTitle string    `yaml:"sidebar_title"`
	About        string    `yaml:"about"`
	Contacts     []Contact `yaml:"contacts"`
}

// Contact is one sidebar line; URL is optional.
type Contact struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
	URL   string `yaml:"url"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Zero is a valid changepoint count, so its default is set before parsing.
	cfg.Forecast.Changepoints = 25

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		cfg.Server.GinMode = v
	}
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		cfg.Server.AllowOrigins = splitList(v)
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.Data.Provider = v
	}
	if v := os.Getenv("DATA_START_DATE"); v != "" {
		cfg.Data.StartDate = v
	}
	if v := os.Getenv("TICKERS"); v != "" {
		cfg.Data.Tickers = splitList(v)
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Data.Proxy = v
	}
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Polygon.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SESSION_IDLE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.IdleTTL = d
		}
	}
	if v := os.Getenv("FORECAST_INTERVAL_WIDTH"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Forecast.IntervalWidth = w
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = "release"
	}
	if len(cfg.Server.AllowOrigins) == 0 {
		cfg.Server.AllowOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Data.Provider == "" {
		cfg.Data.Provider = "yahoo"
	}
	if cfg.Data.StartDate == "" {
		cfg.Data.StartDate = "2016-01-01"
	}
	if len(cfg.Data.Tickers) == 0 {
		cfg.Data.Tickers = append([]string(nil), models.DefaultTickers...)
	}
	for i, t := range cfg.Data.Tickers {
		cfg.Data.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if cfg.Forecast.IntervalWidth == 0 {
		cfg.Forecast.IntervalWidth = 0.8
	}
	if cfg.Session.IdleTTL == 0 {
		cfg.Session.IdleTTL = 2 * time.Hour
	}
	if cfg.Session.SweepCron == "" {
		cfg.Session.SweepCron = "@every 10m"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Page.Title == "" {
		cfg.Page.Title = "Stock Forecast App"
	}
	if cfg.Page.Intro == "" {
		cfg.Page.Intro = "This application uses historical stock data to forecast future prices with an additive trend and seasonality model. Pick a company and a horizon to see the projected prices and how the trend and seasonal cycles contribute to them."
	}
	if cfg.Page.SidebarTitle == "" {
		cfg.Page.SidebarTitle = "About"
	}
	if cfg.Page.About == "" {
		cfg.Page.About = "Forecasts are statistical projections of past prices, not investment advice."
	}
}

// StartTime parses the configured history start date.
func (c *Config) StartTime() (time.Time, error) {
	t, err := time.Parse(models.DateLayout, c.Data.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("data.start_date %q: use YYYY-MM-DD", c.Data.StartDate)
	}
	return t, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if _, err := c.StartTime(); err != nil {
		return err
	}
	if len(c.Data.Tickers) == 0 {
		return errors.New("data.tickers must not be empty")
	}
	switch c.Data.Provider {
	case "yahoo", "demo":
	case "polygon":
		if c.Polygon.APIKey == "" {
			return errors.New("polygon.api_key is required for the polygon provider")
		}
	case "alpaca":
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return errors.New("alpaca.api_key and alpaca.api_secret are required for the alpaca provider")
		}
	default:
		return fmt.Errorf("data.provider %q: must be one of yahoo, polygon, alpaca, demo", c.Data.Provider)
	}
	if c.Forecast.IntervalWidth <= 0 || c.Forecast.IntervalWidth >= 1 {
		return errors.New("forecast.interval_width must be between 0 and 1")
	}
	if c.Forecast.Changepoints < 0 {
		return errors.New("forecast.changepoints must not be negative")
	}
	if c.Session.IdleTTL < 0 {
		return errors.New("session.idle_ttl must not be negative")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
