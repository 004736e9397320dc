package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "GIN_MODE", "ALLOW_ORIGINS", "DATA_PROVIDER", "DATA_START_DATE", "TICKERS",
		"HTTPS_PROXY", "POLYGON_API_KEY", "ALPACA_API_KEY", "ALPACA_API_SECRET", "ALPACA_DATA_URL",
		"DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT", "SESSION_IDLE_TTL", "FORECAST_INTERVAL_WIDTH",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "yahoo", cfg.Data.Provider)
	assert.Equal(t, "2016-01-01", cfg.Data.StartDate)
	assert.Equal(t, []string{"GOOG", "AAPL", "MSFT", "NVDA", "TSLA", "AMZN", "META", "NFLX"}, cfg.Data.Tickers)
	assert.Equal(t, 0.8, cfg.Forecast.IntervalWidth)
	assert.Equal(t, 25, cfg.Forecast.Changepoints)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTTL)
	assert.Equal(t, "Stock Forecast App", cfg.Page.Title)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)

	yamlContent := []byte(`
server:
  port: "9000"
data:
  provider: polygon
  start_date: "2018-06-01"
  tickers: [aapl, " msft "]
polygon:
  api_key: from-file
forecast:
  interval_width: 0.95
session:
  idle_ttl: 30m
page:
  title: "Forecasts"
  contacts:
    - label: Email
      value: team@example.com
`)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, yamlContent, 0o600))

	t.Setenv("POLYGON_API_KEY", "from-env")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "polygon", cfg.Data.Provider)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Data.Tickers)
	assert.Equal(t, "from-env", cfg.Polygon.APIKey, "env overrides file")
	assert.Equal(t, 0.95, cfg.Forecast.IntervalWidth)
	assert.Equal(t, 25, cfg.Forecast.Changepoints, "absent key keeps the default")
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Page.Contacts, 1)
	assert.Equal(t, "team@example.com", cfg.Page.Contacts[0].Value)

	start, err := cfg.StartTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC), start)
	assert.NoError(t, cfg.Validate())
}

func TestLoadZeroChangepoints(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forecast:\n  changepoints: 0\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Forecast.Changepoints)
	assert.NoError(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad start date", mutate: func(c *Config) { c.Data.StartDate = "01/01/2016" }},
		{name: "unknown provider", mutate: func(c *Config) { c.Data.Provider = "bloomberg" }},
		{name: "polygon without key", mutate: func(c *Config) { c.Data.Provider = "polygon" }},
		{name: "alpaca without secret", mutate: func(c *Config) { c.Data.Provider = "alpaca"; c.Alpaca.APIKey = "k" }},
		{name: "interval width out of range", mutate: func(c *Config) { c.Forecast.IntervalWidth = 1.5 }},
		{name: "no tickers", mutate: func(c *Config) { c.Data.Tickers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
