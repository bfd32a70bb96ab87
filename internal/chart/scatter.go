package chart

import (
	"fmt"
	"io"
	"sort"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// Scatter draws the rows of a two-column projection, e.g. a PCA result.
func Scatter(w io.Writer, title, xName, yName string, points [][]float64, opt Options) error {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		xs = append(xs, p[0])
		ys = append(ys, p[1])
	}
	xs, ys = finitePairs(xs, ys)
	if len(xs) == 0 {
		return ErrNoData
	}
	opt = opt.withDefaults()
	xlo, xhi, _ := bounds(xs)
	ylo, yhi, _ := bounds(ys)
	xs, ys = padSeries(xs, ys)
	ch := gochart.Chart{
		Title:      title,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: background(),
		XAxis:      gochart.XAxis{Name: xName, Range: padRange(xlo, xhi), ValueFormatter: valueFormatter},
		YAxis:      gochart.YAxis{Name: yName, Range: padRange(ylo, yhi), ValueFormatter: valueFormatter},
		Series: []gochart.Series{
			gochart.ContinuousSeries{Name: title, XValues: xs, YValues: ys, Style: pointStyle(colorAt(0))},
		},
	}
	return render(ch, w)
}

// Clusters draws x against y with one colour per cluster label.
func Clusters(w io.Writer, xName, yName string, xs, ys []float64, labels []int, opt Options) error {
	if len(xs) != len(ys) || len(xs) != len(labels) {
		return fmt.Errorf("clusters chart: %d x values, %d y values, %d labels", len(xs), len(ys), len(labels))
	}
	byLabel := make(map[int][2][]float64)
	for i, l := range labels {
		pts := byLabel[l]
		pts[0] = append(pts[0], xs[i])
		pts[1] = append(pts[1], ys[i])
		byLabel[l] = pts
	}
	keys := make([]int, 0, len(byLabel))
	for l := range byLabel {
		keys = append(keys, l)
	}
	sort.Ints(keys)

	var series []gochart.Series
	var allX, allY []float64
	for idx, l := range keys {
		cx, cy := finitePairs(byLabel[l][0], byLabel[l][1])
		if len(cx) == 0 {
			continue
		}
		allX = append(allX, cx...)
		allY = append(allY, cy...)
		cx, cy = padSeries(cx, cy)
		series = append(series, gochart.ContinuousSeries{
			Name:    fmt.Sprintf("Cluster %d", l),
			XValues: cx,
			YValues: cy,
			Style:   pointStyle(viridis(float64(idx) / float64(max(len(keys)-1, 1)))),
		})
	}
	if len(series) == 0 {
		return ErrNoData
	}
	opt = opt.withDefaults()
	xlo, xhi, _ := bounds(allX)
	ylo, yhi, _ := bounds(allY)
	ch := gochart.Chart{
		Title:      fmt.Sprintf("Clusters based on %s and %s", xName, yName),
		Width:      opt.Width,
		Height:     opt.Height,
		Background: background(),
		XAxis:      gochart.XAxis{Name: xName, Range: padRange(xlo, xhi), ValueFormatter: valueFormatter},
		YAxis:      gochart.YAxis{Name: yName, Range: padRange(ylo, yhi), ValueFormatter: valueFormatter},
		Series:     series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return render(ch, w)
}
