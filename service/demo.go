package service

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"stockforecast/models"
)

// DemoProvider generates deterministic synthetic history so the dashboard can
// run without network access. The same ticker always yields the same prices.
type DemoProvider struct{}

func NewDemoProvider() *DemoProvider { return &DemoProvider{} }

func (p *DemoProvider) Name() string { return "demo" }

// FetchDaily returns one bar per weekday in [start, end].
func (p *DemoProvider) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New64a()
	h.Write([]byte(ticker))
	seed := h.Sum64()
	rng := rand.New(rand.NewSource(int64(seed)))

	base := 50 + float64(seed%400)
	growth := 0.0002 + float64(seed%7)*0.00005

	var bars []models.Bar
	for d, i := models.TruncateToDate(start), 0; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		yearly := 0.04 * math.Sin(2*math.Pi*float64(d.YearDay())/365.25)
		weekly := 0.005 * math.Cos(2*math.Pi*float64(d.Weekday())/7)
		closePx := base * math.Exp(growth*float64(i)) * (1 + yearly + weekly + rng.NormFloat64()*0.01)
		openPx := closePx * (1 + rng.NormFloat64()*0.004)
		bars = append(bars, models.Bar{
			Date:   d,
			Open:   openPx,
			Close:  closePx,
			Volume: float64(1_000_000 + rng.Intn(500_000)),
		})
		i++
	}
	return bars, nil
}
