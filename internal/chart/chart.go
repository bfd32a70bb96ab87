// Package chart renders analysis results to PNG with go-chart.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a chart has nothing to plot.
var ErrNoData = errors.New("chart: no data to plot")

// Options sizes the rendered image.
type Options struct {
	Width  int
	Height int
}

// DefaultOptions returns a 1024x640 canvas.
func DefaultOptions() Options {
	return Options{Width: 1024, Height: 640}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

// palette holds the series colours, cycled by index.
var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
	drawing.ColorFromHex("e377c2"),
	drawing.ColorFromHex("7f7f7f"),
	drawing.ColorFromHex("bcbd22"),
	drawing.ColorFromHex("17becf"),
}

func colorAt(i int) drawing.Color { return palette[i%len(palette)] }

// pointStyle returns a style that renders points only (no connecting line)
func pointStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeWidth: 0,
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeWidth: 2,
		StrokeColor: col,
		DotWidth:    4,
		DotColor:    col,
	}
}

func background() gochart.Style {
	return gochart.Style{Padding: gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 28}}
}

// bounds returns the finite min and max of vals.
func bounds(vals ...[]float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, vs := range vals {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			ok = true
		}
	}
	return lo, hi, ok
}

// padRange widens a degenerate or tight range so go-chart can scale it.
func padRange(lo, hi float64) *gochart.ContinuousRange {
	if hi <= lo {
		d := math.Abs(lo) * 0.1
		if d == 0 {
			d = 1
		}
		lo, hi = lo-d, hi+d
	} else {
		m := (hi - lo) * 0.05
		lo, hi = lo-m, hi+m
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi}
}

// padSeries duplicates a lone point so the series has a drawable extent.
func padSeries(xs, ys []float64) ([]float64, []float64) {
	if len(xs) == 1 {
		return []float64{xs[0], xs[0]}, []float64{ys[0], ys[0]}
	}
	return xs, ys
}

// finitePairs drops pairs where either coordinate is not a finite number.
func finitePairs(xs, ys []float64) ([]float64, []float64) {
	ox := make([]float64, 0, len(xs))
	oy := make([]float64, 0, len(ys))
	for i := range xs {
		if i >= len(ys) {
			break
		}
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || math.IsInf(xs[i], 0) || math.IsInf(ys[i], 0) {
			continue
		}
		ox = append(ox, xs[i])
		oy = append(oy, ys[i])
	}
	return ox, oy
}

func formatTick(v float64) string {
	if v == 0 {
		return "0"
	}
	av := math.Abs(v)
	switch {
	case av >= 1e9:
		return fmt.Sprintf("%.2fG", v/1e9)
	case av >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case av >= 1e4:
		return fmt.Sprintf("%.1fk", v/1e3)
	case av >= 100:
		return fmt.Sprintf("%.0f", v)
	case av >= 10:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func valueFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return formatTick(f)
	}
	return fmt.Sprintf("%v", v)
}

func render(ch gochart.Chart, w io.Writer) error {
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render %q: %w", ch.Title, err)
	}
	return nil
}
