package chart

import (
	"fmt"
	"io"
	"math"
	"sort"

	gochart "github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/xdrscope-cli/internal/cluster"
)

// HistogramBins matches the bin count of the exploratory plots.
const HistogramBins = 30

// Elbow draws WCSS against the number of clusters.
func Elbow(w io.Writer, curve []cluster.ElbowPoint, opt Options) error {
	if len(curve) == 0 {
		return ErrNoData
	}
	opt = opt.withDefaults()
	xs := make([]float64, len(curve))
	ys := make([]float64, len(curve))
	ticks := make([]gochart.Tick, len(curve))
	for i, p := range curve {
		xs[i] = float64(p.K)
		ys[i] = p.Inertia
		ticks[i] = gochart.Tick{Value: float64(p.K), Label: fmt.Sprintf("%d", p.K)}
	}
	xlo, xhi, _ := bounds(xs)
	ylo, yhi, ok := bounds(ys)
	if !ok {
		return ErrNoData
	}
	xs, ys = padSeries(xs, ys)
	if len(ticks) < 2 {
		ticks = nil
	}
	ch := gochart.Chart{
		Title:      "Elbow Method for Optimal K",
		Width:      opt.Width,
		Height:     opt.Height,
		Background: background(),
		XAxis:      gochart.XAxis{Name: "Number of clusters", Range: padRange(xlo, xhi), Ticks: ticks},
		YAxis:      gochart.YAxis{Name: "WCSS", Range: padRange(ylo, yhi), ValueFormatter: valueFormatter},
		Series: []gochart.Series{
			gochart.ContinuousSeries{Name: "WCSS", XValues: xs, YValues: ys, Style: lineStyle(colorAt(0))},
		},
	}
	return render(ch, w)
}

// HistogramSeries is one distribution drawn in an overlaid histogram.
type HistogramSeries struct {
	Name   string
	Values []float64
}

// Histogram overlays the 30-bin histograms of each series. Bins are computed
// per series over its own range; missing values are ignored.
func Histogram(w io.Writer, title string, data []HistogramSeries, opt Options) error {
	opt = opt.withDefaults()
	var series []gochart.Series
	var allX, allY []float64
	for i, d := range data {
		edges, counts := bin(d.Values, HistogramBins)
		if len(counts) == 0 {
			continue
		}
		// outline each bin as a step so the bars read as a histogram
		xs := make([]float64, 0, 2*len(counts)+2)
		ys := make([]float64, 0, 2*len(counts)+2)
		xs = append(xs, edges[0])
		ys = append(ys, 0)
		for b, c := range counts {
			xs = append(xs, edges[b], edges[b+1])
			ys = append(ys, c, c)
		}
		xs = append(xs, edges[len(edges)-1])
		ys = append(ys, 0)
		col := colorAt(i)
		series = append(series, gochart.ContinuousSeries{
			Name:    d.Name,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeWidth: 1.5,
				StrokeColor: col,
				FillColor:   col.WithAlpha(128),
			},
		})
		allX = append(allX, xs...)
		allY = append(allY, ys...)
	}
	if len(series) == 0 {
		return ErrNoData
	}
	xlo, xhi, _ := bounds(allX)
	_, yhi, _ := bounds(allY)
	ch := gochart.Chart{
		Title:      title,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: background(),
		XAxis:      gochart.XAxis{Name: "Value", Range: padRange(xlo, xhi), ValueFormatter: valueFormatter},
		YAxis:      gochart.YAxis{Name: "Count", Range: &gochart.ContinuousRange{Min: 0, Max: math.Max(yhi, 1) * 1.05}},
		Series:     series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return render(ch, w)
}

// bin splits the finite values into n equal-width bins. A constant input
// gets a unit-wide range centred on the value.
func bin(vals []float64, n int) ([]float64, []float64) {
	lo, hi, ok := bounds(vals)
	if !ok || n < 1 {
		return nil, nil
	}
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	finite := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	sort.Float64s(finite)
	dividers := floats.Span(make([]float64, n+1), lo, hi)
	// the upper divider is exclusive in stat.Histogram
	dividers[n] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, finite, nil)
	dividers[n] = hi
	return dividers, counts
}
