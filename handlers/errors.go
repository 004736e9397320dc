package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockforecast/charts"
	"stockforecast/forecast"
	"stockforecast/pipeline"
	"stockforecast/service"
)

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidConfiguration), errors.Is(err, charts.ErrUnknownRange):
		return http.StatusBadRequest
	case errors.Is(err, forecast.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrRecorderDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorKind is the short machine-readable error name sent to clients.
func errorKind(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "invalid_configuration"
	case http.StatusUnprocessableEntity:
		return "insufficient_data"
	case http.StatusBadGateway:
		return "data_unavailable"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	return "internal"
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error":   errorKind(err),
		"details": err.Error(),
	})
}

// invalidf builds an error matching pipeline.ErrInvalidConfiguration.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", pipeline.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
