// Package export writes forecast rows as CSV or Parquet downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"stockforecast/models"
)

// Formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Record is one forecast row in columnar form.
type Record struct {
	Ticker   string  `parquet:"ticker"`
	Date     int64   `parquet:"date,timestamp(millisecond)"` // Unix ms, UTC midnight
	Forecast float64 `parquet:"forecast"`
	Lower    float64 `parquet:"lower_bound"`
	Upper    float64 `parquet:"upper_bound"`
}

// Records converts forecast rows into Records.
func Records(ticker string, rows []models.ForecastRow) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = Record{
			Ticker:   ticker,
			Date:     r.Date.UnixMilli(),
			Forecast: r.Predicted,
			Lower:    r.Lower,
			Upper:    r.Upper,
		}
	}
	return out
}

// Rows converts Records back into forecast rows.
func Rows(records []Record) []models.ForecastRow {
	out := make([]models.ForecastRow, len(records))
	for i, r := range records {
		out[i] = models.ForecastRow{
			Date:      time.UnixMilli(r.Date).UTC(),
			Predicted: r.Forecast,
			Lower:     r.Lower,
			Upper:     r.Upper,
		}
	}
	return out
}

var csvHeader = []string{"date", "forecast", "lower_bound", "upper_bound"}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []models.ForecastRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format(models.DateLayout),
			strconv.FormatFloat(r.Predicted, 'f', 4, 64),
			strconv.FormatFloat(r.Lower, 'f', 4, 64),
			strconv.FormatFloat(r.Upper, 'f', 4, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteParquet writes rows as a single Parquet file.
func WriteParquet(w io.Writer, ticker string, rows []models.ForecastRow) error {
	if err := parquet.Write(w, Records(ticker, rows)); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}

// Write dispatches on format.
func Write(w io.Writer, format, ticker string, rows []models.ForecastRow) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatParquet:
		return WriteParquet(w, ticker, rows)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ParseFormat normalizes a format name; empty means CSV.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	if format == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv"
}

// FileName names the download, e.g. AAPL_forecast_1y.csv.
func FileName(ticker string, horizonYears int, format string) string {
	return fmt.Sprintf("%s_forecast_%dy.%s", ticker, horizonYears, format)
}
