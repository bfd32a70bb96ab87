package chart

import (
	"fmt"
	"io"
	"sort"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/xdrscope-cli/internal/analysis"
)

// MaxBars caps the number of groups drawn in a single bar chart.
const MaxBars = 25

// TopHandsetTraffic draws one stacked bar per handset type with download
// traffic at the bottom and upload stacked on top.
func TopHandsetTraffic(w io.Writer, rows []analysis.HandsetTraffic, opt Options) error {
	if len(rows) == 0 {
		return ErrNoData
	}
	opt = opt.withDefaults()
	dl, ul := colorAt(0), colorAt(1)
	bars := make([]gochart.StackedBar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, gochart.StackedBar{
			Name: r.Handset,
			Values: []gochart.Value{
				{Label: "DL " + formatTick(r.Download), Value: r.Download, Style: gochart.Style{FillColor: dl, StrokeColor: dl}},
				{Label: "UL " + formatTick(r.Upload), Value: r.Upload, Style: gochart.Style{FillColor: ul, StrokeColor: ul}},
			},
		})
	}
	ch := gochart.StackedBarChart{
		Title:      fmt.Sprintf("Top %d Handsets by Traffic (bytes, DL + UL)", len(rows)),
		Width:      opt.Width,
		Height:     opt.Height,
		Background: background(),
		XAxis:      gochart.Style{TextWrap: gochart.TextWrapWord},
		YAxis:      gochart.Style{},
		BarSpacing: 40,
		Bars:       bars,
	}
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render %q: %w", ch.Title, err)
	}
	return nil
}

// GroupMeans draws the mean of column per group as bars in ascending order.
// Only the MaxBars groups with the largest means are kept.
func GroupMeans(w io.Writer, column, groupCol string, means []analysis.GroupMean, opt Options) error {
	if len(means) == 0 {
		return ErrNoData
	}
	opt = opt.withDefaults()
	rows := append([]analysis.GroupMean(nil), means...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Mean < rows[j].Mean })
	if len(rows) > MaxBars {
		rows = rows[len(rows)-MaxBars:]
	}
	vals := make([]float64, len(rows))
	bars := make([]gochart.Value, len(rows))
	for i, r := range rows {
		vals[i] = r.Mean
		col := viridis(float64(i) / float64(max(len(rows)-1, 1)))
		bars[i] = gochart.Value{Label: r.Group, Value: r.Mean, Style: gochart.Style{FillColor: col, StrokeColor: col}}
	}
	lo, hi, _ := bounds(vals)
	if lo > 0 {
		lo = 0
	}
	if hi <= lo {
		hi = lo + 1
	}
	ch := gochart.BarChart{
		Title:      fmt.Sprintf("Average %s per %s", column, groupCol),
		Width:      opt.Width,
		Height:     opt.Height,
		Background: background(),
		BarWidth:   max(4, (opt.Width-120)/(2*len(bars))),
		XAxis:      gochart.Style{TextRotationDegrees: 45},
		YAxis: gochart.YAxis{
			Name:           "Average " + column,
			Range:          &gochart.ContinuousRange{Min: lo, Max: hi * 1.05},
			ValueFormatter: valueFormatter,
		},
		Bars: bars,
	}
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render %q: %w", ch.Title, err)
	}
	return nil
}

// viridis approximates the viridis colormap at t in [0,1].
func viridis(t float64) drawing.Color {
	stops := []drawing.Color{
		drawing.ColorFromHex("440154"),
		drawing.ColorFromHex("3b528b"),
		drawing.ColorFromHex("21918c"),
		drawing.ColorFromHex("5ec962"),
		drawing.ColorFromHex("fde725"),
	}
	return gradient(stops, t)
}

func gradient(stops []drawing.Color, t float64) drawing.Color {
	if t <= 0 {
		return stops[0]
	}
	if t >= 1 {
		return stops[len(stops)-1]
	}
	pos := t * float64(len(stops)-1)
	i := int(pos)
	f := pos - float64(i)
	a, b := stops[i], stops[i+1]
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*f + 0.5) }
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
