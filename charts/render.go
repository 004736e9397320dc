package charts

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Default canvas size in pixels.
const (
	DefaultWidth  = 1024
	DefaultHeight = 400
)

// MaxDimension caps either side of the canvas. PNG output allocates the full
// raster up front.
const MaxDimension = 4096

// Output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	if format == FormatPNG {
		return chart.ContentTypePNG
	}
	return chart.ContentTypeSVG
}

// RenderSVG writes fig as SVG. Figures with fewer than two distinct dates
// render as a titled placeholder.
func RenderSVG(w io.Writer, fig Figure, width, height int) error {
	return render(w, chart.SVG, fig, width, height)
}

// RenderPNG writes fig as PNG.
func RenderPNG(w io.Writer, fig Figure, width, height int) error {
	return render(w, chart.PNG, fig, width, height)
}

// Render writes fig in the named format.
func Render(w io.Writer, format string, fig Figure, width, height int) error {
	switch format {
	case FormatSVG, "":
		return RenderSVG(w, fig, width, height)
	case FormatPNG:
		return RenderPNG(w, fig, width, height)
	}
	return fmt.Errorf("unsupported chart format %q", format)
}

func render(w io.Writer, rp chart.RendererProvider, fig Figure, width, height int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	width, height = min(width, MaxDimension), min(height, MaxDimension)
	graph, ok := buildChart(fig, width, height)
	if !ok {
		graph = placeholder(fig.Title, width, height)
	}
	if err := graph.Render(rp, w); err != nil {
		return fmt.Errorf("render %q: %w", fig.Title, err)
	}
	return nil
}

// extent is the data bounding box of a figure.
type extent struct {
	xMin, xMax float64
	yMin, yMax float64
	points     int
}

func (e *extent) add(x, y float64) {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return
	}
	if e.points == 0 {
		e.xMin, e.xMax, e.yMin, e.yMax = x, x, y, y
	}
	e.xMin, e.xMax = math.Min(e.xMin, x), math.Max(e.xMax, x)
	e.yMin, e.yMax = math.Min(e.yMin, y), math.Max(e.yMax, y)
	e.points++
}

func figureExtent(fig Figure) extent {
	var e extent
	for _, t := range fig.Tracks {
		for i, d := range t.Dates {
			e.add(chart.TimeToFloat64(d), t.Values[i])
		}
	}
	if b := fig.Band; b != nil {
		for i, d := range b.Dates {
			x := chart.TimeToFloat64(d)
			e.add(x, b.Lower[i])
			e.add(x, b.Upper[i])
		}
	}
	return e
}

// paddedRange widens [lo, hi] by 5% each side, or by one unit when flat.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(lo)*0.05, 1)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func buildChart(fig Figure, width, height int) (chart.Chart, bool) {
	ext := figureExtent(fig)
	if ext.points < 2 || ext.xMin == ext.xMax {
		return chart.Chart{}, false
	}

	graph := chart.Chart{
		Title:  fig.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Name:           fig.XLabel,
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  fig.YLabel,
			Range: paddedRange(ext.yMin, ext.yMax),
		},
	}

	if len(fig.Ticks) > 0 {
		ticks := make([]chart.Tick, 0, len(fig.Ticks)+2)
		ticks = append(ticks, chart.Tick{Value: ext.xMin})
		for _, t := range fig.Ticks {
			ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(t.Date), Label: t.Label})
		}
		ticks = append(ticks, chart.Tick{Value: ext.xMax})
		graph.XAxis.Ticks = ticks
	}

	if b := fig.Band; b != nil && len(b.Dates) > 1 {
		color := drawing.ColorFromHex(b.Color)
		band := bandSeries{
			name: b.Name,
			style: chart.Style{
				StrokeColor: color.WithAlpha(64),
				StrokeWidth: 1,
				FillColor:   color.WithAlpha(48),
			},
			lower: b.Lower,
			upper: b.Upper,
		}
		for _, d := range b.Dates {
			band.x = append(band.x, chart.TimeToFloat64(d))
		}
		graph.Series = append(graph.Series, band)
	}

	for _, t := range fig.Tracks {
		if t.Len() == 0 {
			continue
		}
		color := drawing.ColorFromHex(t.Color)
		style := chart.Style{
			StrokeColor: color,
			StrokeWidth: 1.5,
		}
		switch {
		case t.Dotted:
			style = chart.Style{
				StrokeWidth: chart.Disabled,
				DotColor:    color,
				DotWidth:    1.5,
			}
		case t.Dashed:
			style.StrokeDashArray = []float64{5.0, 5.0}
		}
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    t.Name,
			XValues: t.Dates,
			YValues: t.Values,
			Style:   style,
		})
	}

	if fig.Band == nil && len(fig.Tracks) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}
	return graph, true
}

// placeholder is an axis-less chart carrying only the title.
func placeholder(title string, width, height int) chart.Chart {
	if title == "" {
		title = "No data"
	} else {
		title += " (no data)"
	}
	return chart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		XAxis:  chart.XAxis{Style: chart.Hidden()},
		YAxis: chart.YAxis{
			Style: chart.Hidden(),
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: []float64{0, 1},
				YValues: []float64{0, 0},
				Style:   chart.Style{StrokeWidth: chart.Disabled},
			},
		},
	}
}

// bandSeries fills the area between two curves.
type bandSeries struct {
	name  string
	style chart.Style
	x     []float64
	lower []float64
	upper []float64
}

func (b bandSeries) GetName() string           { return b.name }
func (b bandSeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }
func (b bandSeries) GetStyle() chart.Style     { return b.style }
func (b bandSeries) Len() int                  { return len(b.x) }

func (b bandSeries) GetBoundedValues(i int) (x, y1, y2 float64) {
	return b.x[i], b.upper[i], b.lower[i]
}

func (b bandSeries) Validate() error {
	if len(b.x) == 0 || len(b.lower) != len(b.x) || len(b.upper) != len(b.x) {
		return fmt.Errorf("band %q: mismatched lengths", b.name)
	}
	return nil
}

func (b bandSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, defaults chart.Style) {
	chart.Draw.BoundedSeries(r, canvasBox, xrange, yrange, b.style.InheritFrom(defaults), b)
}
