package models

import (
	"time"

	"github.com/lib/pq"
)

// Run statuses stored on ForecastRun.
const (
	RunStatusOK               = "ok"
	RunStatusDataUnavailable  = "data_unavailable"
	RunStatusInsufficientData = "insufficient_data"
	RunStatusInvalid          = "invalid_configuration"
	RunStatusError            = "error"
)

// ForecastRun records one pass of the dashboard pipeline.
type ForecastRun struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	SessionID    string `gorm:"not null;index"`
	Ticker       string `gorm:"not null;index"`
	Provider     string `gorm:"not null;"`
	Model        string `gorm:"not null;"`
	HorizonYears int    `gorm:"not null;"`
	HorizonDays  int    `gorm:"not null;"`

	HistoryStart *time.Time
	HistoryEnd   *time.Time
	Observations int
	FutureRows   int

	LastClose     float64
	FinalForecast float64
	FinalLower    float64
	FinalUpper    float64

	Components     pq.StringArray `gorm:"type:text[];not null"`
	Status         string         `gorm:"not null;index"`
	Error          string         `gorm:"default:''"`
	DurationMillis int64
}
