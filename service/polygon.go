package service

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	polygonmodels "github.com/polygon-io/client-go/rest/models"

	"stockforecast/models"
)

// PolygonProvider reads adjusted daily aggregates from Polygon.io.
type PolygonProvider struct {
	client *polygon.Client
}

// NewPolygonProvider creates a provider authenticated with apiKey.
func NewPolygonProvider(apiKey string) *PolygonProvider {
	return &PolygonProvider{client: polygon.New(apiKey)}
}

func (p *PolygonProvider) Name() string { return "polygon" }

// FetchDaily pages through the day aggregates of ticker in ascending order.
func (p *PolygonProvider) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	params := polygonmodels.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   polygonmodels.Timespan("day"),
		From:       polygonmodels.Millis(start),
		To:         polygonmodels.Millis(end),
	}.
		WithAdjusted(true).
		WithOrder(polygonmodels.Order("asc")).
		WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	var bars []models.Bar
	for iter.Next() {
		bars = append(bars, aggToBar(iter.Item()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("polygon aggregates: %w", err)
	}
	return bars, nil
}

func aggToBar(agg polygonmodels.Agg) models.Bar {
	return models.Bar{
		Date:   time.Time(agg.Timestamp).UTC(),
		Open:   agg.Open,
		Close:  agg.Close,
		Volume: agg.Volume,
	}
}
