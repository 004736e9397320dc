package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockforecast/models"
)

func rows() []models.ForecastRow {
	return []models.ForecastRow{
		{Date: time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC), Predicted: 190.5, Lower: 180.25, Upper: 200.75},
		{Date: time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC), Predicted: 191, Lower: 181, Upper: 201},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows()))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"date", "forecast", "lower_bound", "upper_bound"}, recs[0])
	assert.Equal(t, []string{"2025-01-17", "190.5000", "180.2500", "200.7500"}, recs[1])
}

func TestWriteParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteParquet(f, "AAPL", rows()))
	require.NoError(t, f.Close())

	got, err := parquet.ReadFile[Record](path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Ticker)
	assert.Equal(t, rows(), Rows(got))
}

func TestWriteDispatch(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, Write(&buf, FormatCSV, "AAPL", rows()))
	assert.Error(t, Write(&buf, "xlsx", "AAPL", rows()))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: FormatCSV},
		{in: "CSV", want: FormatCSV},
		{in: " parquet ", want: FormatParquet},
		{in: "json", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestFileNameAndContentType(t *testing.T) {
	assert.Equal(t, "NVDA_forecast_2y.parquet", FileName("NVDA", 2, FormatParquet))
	assert.Equal(t, "text/csv", ContentType(FormatCSV))
	assert.Equal(t, "application/vnd.apache.parquet", ContentType(FormatParquet))
}
