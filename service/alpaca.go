package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stockforecast/models"
)

// AlpacaProvider reads daily bars from the Alpaca market-data API.
type AlpacaProvider struct {
	client *marketdata.Client
}

// NewAlpacaProvider creates a provider with the given credentials. dataURL
// may be empty for the default endpoint.
func NewAlpacaProvider(apiKey, apiSecret, dataURL string) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaProvider{client: marketdata.NewClient(opts)}
}

func (p *AlpacaProvider) Name() string { return "alpaca" }

// FetchDaily requests fully adjusted one-day bars from the IEX feed.
func (p *AlpacaProvider) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alpacaBars, err := p.client.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Start:      start,
		End:        end.AddDate(0, 0, 1),
		Feed:       "iex",
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars: %w", err)
	}

	bars := make([]models.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, alpacaToBar(ab))
	}
	return bars, nil
}

func alpacaToBar(ab marketdata.Bar) models.Bar {
	return models.Bar{
		Date:   ab.Timestamp.UTC(),
		Open:   ab.Open,
		Close:  ab.Close,
		Volume: float64(ab.Volume),
	}
}
