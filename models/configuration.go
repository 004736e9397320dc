package models

import (
	"fmt"
	"strings"
)

// Horizon bounds accepted from the dashboard slider.
const (
	MinHorizonYears = 1
	MaxHorizonYears = 3
)

// DefaultTickers is the fixed set offered in the ticker dropdown.
var DefaultTickers = []string{"GOOG", "AAPL", "MSFT", "NVDA", "TSLA", "AMZN", "META", "NFLX"}

// Configuration is what a user picks on the dashboard.
type Configuration struct {
	Ticker       string `json:"ticker"`
	HorizonYears int    `json:"horizon_years"`
}

// HorizonDays is the number of future days to forecast.
func (c Configuration) HorizonDays() int {
	return c.HorizonYears * DaysPerYear
}

// Validate checks the ticker against the allowed set and the horizon bounds.
func (c Configuration) Validate(allowed []string) error {
	if c.Ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	found := false
	for _, t := range allowed {
		if strings.EqualFold(t, c.Ticker) {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("ticker %q is not one of %s", c.Ticker, strings.Join(allowed, ", "))
	}
	if c.HorizonYears < MinHorizonYears || c.HorizonYears > MaxHorizonYears {
		return fmt.Errorf("horizon_years must be between %d and %d, got %d",
			MinHorizonYears, MaxHorizonYears, c.HorizonYears)
	}
	return nil
}

// Normalized upper-cases the ticker.
func (c Configuration) Normalized() Configuration {
	c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
	return c
}
