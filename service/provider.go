package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockforecast/models"
)

// ErrDataUnavailable matches every DataUnavailableError.
var ErrDataUnavailable = errors.New("data unavailable")

// DataUnavailableError means the upstream fetch failed or returned no usable
// rows for a ticker.
type DataUnavailableError struct {
	Ticker   string
	Provider string
	Err      error
}

func (e *DataUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no data for %s from %s", e.Ticker, e.Provider)
	}
	return fmt.Sprintf("no data for %s from %s: %v", e.Ticker, e.Provider, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDataUnavailable) match.
func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

// Provider fetches daily price history from a market-data source.
type Provider interface {
	Name() string
	FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error)
}
