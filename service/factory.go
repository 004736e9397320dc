package service

import (
	"fmt"

	"stockforecast/config"
)

// NewProviderFromConfig builds the provider named by data.provider.
func NewProviderFromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.Data.Provider {
	case "yahoo":
		return NewYahooProvider(cfg.Data.YahooURL, cfg.Data.Proxy), nil
	case "polygon":
		return NewPolygonProvider(cfg.Polygon.APIKey), nil
	case "alpaca":
		return NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL), nil
	case "demo":
		return NewDemoProvider(), nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.Data.Provider)
	}
}
