package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"stockforecast/models"
)

// Seasonal periods in days.
const (
	weekPeriod = 7.0
	yearPeriod = 365.25
)

// Options tunes the additive model.
type Options struct {
	// Changepoints is the number of candidate slope changes, spread over the
	// first ChangepointRange of the history.
	Changepoints     int
	ChangepointRange float64

	// Ridge weights on changepoint deltas and seasonal coefficients. Larger
	// values give a stiffer trend and flatter seasonality.
	ChangepointPenalty float64
	SeasonalityPenalty float64

	WeeklyOrder int
	YearlyOrder int

	// Minimum history span (days) before a seasonal term is fitted.
	WeeklyMinSpan float64
	YearlyMinSpan float64

	// IntervalWidth is the coverage of the [lower, upper] band.
	IntervalWidth float64
}

// DefaultOptions mirrors the usual additive-model defaults: 25 changepoints
// over 80% of history, weekly order 3, yearly order 10, 80% intervals.
func DefaultOptions() Options {
	return Options{
		Changepoints:       25,
		ChangepointRange:   0.8,
		ChangepointPenalty: 0.05,
		SeasonalityPenalty: 1e-3,
		WeeklyOrder:        3,
		YearlyOrder:        10,
		WeeklyMinSpan:      14,
		YearlyMinSpan:      730,
		IntervalWidth:      0.8,
	}
}

// referenceStart is the Sunday seasonal components are plotted from.
var referenceStart = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

// AdditiveModel is a piecewise-linear trend plus Fourier weekly and yearly
// seasonality, fitted by ridge-regularised least squares.
type AdditiveModel struct {
	opts Options

	fitted       bool
	t0           time.Time
	spanDays     float64
	yScale       float64
	changepoints []float64
	weekly       bool
	yearly       bool
	beta         []float64
	sigma        float64
	meanAbsDelta float64
}

// NewAdditiveModel creates an unfitted model.
func NewAdditiveModel(opts Options) *AdditiveModel {
	return &AdditiveModel{opts: opts}
}

// AdditiveFactory returns a ModelFactory producing models with opts.
func AdditiveFactory(opts Options) ModelFactory {
	return func() Model { return NewAdditiveModel(opts) }
}

func (m *AdditiveModel) Name() string { return "additive" }

// Fit estimates the model on train, which must be sorted by date.
func (m *AdditiveModel) Fit(train models.TrainingSeries) error {
	n := len(train)
	if n < MinObservations {
		return &InsufficientDataError{Have: n, Need: MinObservations}
	}

	m.t0 = train[0].DS
	m.spanDays = days(train[n-1].DS.Sub(m.t0))
	if m.spanDays <= 0 {
		return fmt.Errorf("training dates span no time")
	}

	m.yScale = 0
	for _, p := range train {
		m.yScale = math.Max(m.yScale, math.Abs(p.Y))
	}
	if m.yScale == 0 {
		m.yScale = 1
	}

	m.changepoints = m.placeChangepoints(train)
	m.weekly = m.opts.WeeklyOrder > 0 && m.spanDays >= m.opts.WeeklyMinSpan
	m.yearly = m.opts.YearlyOrder > 0 && m.spanDays >= m.opts.YearlyMinSpan

	p := m.numFeatures()
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	row := make([]float64, p)
	for i, pt := range train {
		m.features(pt.DS, row)
		x.SetRow(i, row)
		y.SetVec(i, pt.Y/m.yScale)
	}

	var lhs mat.Dense
	lhs.Mul(x.T(), x)
	for j, pen := range m.penalties() {
		lhs.Set(j, j, lhs.At(j, j)+pen)
	}
	var rhs mat.VecDense
	rhs.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&lhs, &rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("solve normal equations: %w", err)
		}
	}
	m.beta = make([]float64, p)
	for j := range m.beta {
		m.beta[j] = beta.AtVec(j)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	residuals := make([]float64, n)
	for i := range residuals {
		residuals[i] = y.AtVec(i) - fitted.AtVec(i)
	}
	m.sigma = math.Sqrt(stat.Mean(squares(residuals), nil))
	if math.IsNaN(m.sigma) {
		m.sigma = 0
	}

	m.meanAbsDelta = 0
	if k := len(m.changepoints); k > 0 {
		for _, d := range m.beta[2 : 2+k] {
			m.meanAbsDelta += math.Abs(d)
		}
		m.meanAbsDelta /= float64(k)
	}

	m.fitted = true
	return nil
}

// Predict evaluates the fitted model on dates.
func (m *AdditiveModel) Predict(dates []time.Time) (*Prediction, error) {
	if !m.fitted {
		return nil, errors.New("additive model: predict called before fit")
	}

	z := distuv.UnitNormal.Quantile(0.5 + m.opts.IntervalWidth/2)
	rate := float64(len(m.changepoints))

	row := make([]float64, m.numFeatures())
	rows := make([]models.ForecastRow, len(dates))
	trend := make([]float64, len(dates))
	for i, d := range dates {
		m.features(d, row)
		yhat := dot(row, m.beta) * m.yScale
		trend[i] = m.trendAt(row) * m.yScale

		variance := m.sigma * m.sigma
		if h := m.scale(d) - 1; h > 0 {
			// Future slope changes arrive at the historical rate with the
			// historical mean magnitude.
			variance += rate * 2 * m.meanAbsDelta * m.meanAbsDelta * h * h * h / 3
		}
		half := z * math.Sqrt(variance) * m.yScale
		rows[i] = models.ForecastRow{
			Date:      d,
			Predicted: yhat,
			Lower:     yhat - half,
			Upper:     yhat + half,
		}
	}

	comps := []Component{{Name: ComponentTrend, Dates: dates, Values: trend}}
	if m.weekly {
		comps = append(comps, m.seasonalComponent(ComponentWeekly, 7))
	}
	if m.yearly {
		comps = append(comps, m.seasonalComponent(ComponentYearly, 365))
	}
	return &Prediction{Rows: rows, Components: comps}, nil
}

// Changepoints returns the fitted changepoint positions as dates.
func (m *AdditiveModel) Changepoints() []time.Time {
	out := make([]time.Time, len(m.changepoints))
	for i, c := range m.changepoints {
		out[i] = m.t0.Add(time.Duration(c * m.spanDays * 24 * float64(time.Hour)))
	}
	return out
}

func (m *AdditiveModel) placeChangepoints(train models.TrainingSeries) []float64 {
	histSize := int(math.Floor(float64(len(train)) * m.opts.ChangepointRange))
	k := m.opts.Changepoints
	if k+1 > histSize {
		k = histSize - 1
	}
	if k <= 0 {
		return nil
	}
	cps := make([]float64, 0, k)
	for i := 1; i <= k; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(k)))
		cps = append(cps, m.scale(train[idx].DS))
	}
	return cps
}

func (m *AdditiveModel) numFeatures() int {
	p := 2 + len(m.changepoints)
	if m.weekly {
		p += 2 * m.opts.WeeklyOrder
	}
	if m.yearly {
		p += 2 * m.opts.YearlyOrder
	}
	return p
}

func (m *AdditiveModel) penalties() []float64 {
	pen := make([]float64, m.numFeatures())
	pen[0], pen[1] = 1e-9, 1e-9
	for j := 2; j < 2+len(m.changepoints); j++ {
		pen[j] = m.opts.ChangepointPenalty
	}
	for j := 2 + len(m.changepoints); j < len(pen); j++ {
		pen[j] = m.opts.SeasonalityPenalty
	}
	return pen
}

// features fills row with [1, t, (t-c)+..., weekly fourier..., yearly fourier...].
func (m *AdditiveModel) features(d time.Time, row []float64) {
	t := m.scale(d)
	row[0] = 1
	row[1] = t
	for j, c := range m.changepoints {
		row[2+j] = math.Max(0, t-c)
	}
	off := 2 + len(m.changepoints)
	ed := epochDays(d)
	if m.weekly {
		fourier(ed, weekPeriod, m.opts.WeeklyOrder, row[off:])
		off += 2 * m.opts.WeeklyOrder
	}
	if m.yearly {
		fourier(ed, yearPeriod, m.opts.YearlyOrder, row[off:])
	}
}

func (m *AdditiveModel) trendAt(row []float64) float64 {
	k := 2 + len(m.changepoints)
	return dot(row[:k], m.beta[:k])
}

func (m *AdditiveModel) seasonalComponent(name string, length int) Component {
	period, order, off := weekPeriod, m.opts.WeeklyOrder, 2+len(m.changepoints)
	if name == ComponentYearly {
		period, order = yearPeriod, m.opts.YearlyOrder
		if m.weekly {
			off += 2 * m.opts.WeeklyOrder
		}
	}

	coef := m.beta[off : off+2*order]
	feat := make([]float64, 2*order)
	c := Component{Name: name, Dates: make([]time.Time, length), Values: make([]float64, length)}
	for i := 0; i < length; i++ {
		d := referenceStart.AddDate(0, 0, i)
		fourier(epochDays(d), period, order, feat)
		c.Dates[i] = d
		c.Values[i] = dot(feat, coef) * m.yScale
	}
	return c
}

func (m *AdditiveModel) scale(d time.Time) float64 {
	return days(d.Sub(m.t0)) / m.spanDays
}

// fourier writes sin/cos pairs of orders 1..order for period into dst.
func fourier(t, period float64, order int, dst []float64) {
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * t / period
		dst[2*(k-1)] = math.Sin(arg)
		dst[2*(k-1)+1] = math.Cos(arg)
	}
}

func epochDays(d time.Time) float64 {
	return float64(d.Unix()) / 86400
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func squares(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * x
	}
	return out
}
