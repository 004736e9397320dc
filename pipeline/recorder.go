package pipeline

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"stockforecast/models"
)

// ErrRecorderDisabled is returned by NoopRecorder.Recent.
var ErrRecorderDisabled = errors.New("run history is not configured")

// Recorder persists one row per pipeline pass.
type Recorder interface {
	Record(ctx context.Context, run *models.ForecastRun) error
	Recent(ctx context.Context, ticker string, limit int) ([]models.ForecastRun, error)
}

var (
	_ Recorder = (*GormRecorder)(nil)
	_ Recorder = NoopRecorder{}
)

// GormRecorder stores runs in Postgres.
type GormRecorder struct {
	db *gorm.DB
}

func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

func (r *GormRecorder) Record(ctx context.Context, run *models.ForecastRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Recent returns the latest runs, newest first, optionally for one ticker.
func (r *GormRecorder) Recent(ctx context.Context, ticker string, limit int) ([]models.ForecastRun, error) {
	var runs []models.ForecastRun
	q := r.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, *models.ForecastRun) error { return nil }

func (NoopRecorder) Recent(context.Context, string, int) ([]models.ForecastRun, error) {
	return nil, ErrRecorderDisabled
}
