// Package forecast fits an additive time-series model on a closing-price
// series and predicts it over an explicit future date index.
package forecast

import (
	"errors"
	"fmt"
	"time"

	"stockforecast/models"
)

// MinObservations is the fewest training rows a model can be fitted on.
const MinObservations = 2

// ErrInsufficientData matches every InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError is returned when the training series is shorter
// than the model requires.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d observations, need at least %d", e.Have, e.Need)
}

// Is lets errors.Is(err, ErrInsufficientData) match.
func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// Component names.
const (
	ComponentTrend  = "trend"
	ComponentWeekly = "weekly"
	ComponentYearly = "yearly"
)

// Component is one additive term of the prediction. Trend is evaluated on the
// prediction dates; seasonal terms on one reference cycle.
type Component struct {
	Name   string      `json:"name"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Prediction is a model's output over a date index.
type Prediction struct {
	Rows       []models.ForecastRow
	Components []Component
}

// Model is an additive forecasting model: fit once, then predict.
type Model interface {
	Name() string
	Fit(train models.TrainingSeries) error
	Predict(dates []time.Time) (*Prediction, error)
}

// ModelFactory returns a fresh, unfitted model.
type ModelFactory func() Model
