package chart

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/xdrscope-cli/internal/analysis"
	"github.com/KaramelBytes/xdrscope-cli/internal/cluster"
)

var small = Options{Width: 640, Height: 400}

func assertPNG(t *testing.T, buf *bytes.Buffer, width, height int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, width, cfg.Width)
	assert.Equal(t, height, cfg.Height)
}

func TestTopHandsetTraffic(t *testing.T) {
	var buf bytes.Buffer
	err := TopHandsetTraffic(&buf, []analysis.HandsetTraffic{
		{Handset: "Apple iPhone 6S", Download: 9e9, Upload: 1e9},
		{Handset: "Huawei B528S-23A", Download: 7e9, Upload: 2e9},
		{Handset: "Samsung Galaxy S8", Download: 3e9, Upload: 5e8},
	}, small)
	require.NoError(t, err)
	assertPNG(t, &buf, small.Width, small.Height)

	assert.ErrorIs(t, TopHandsetTraffic(&buf, nil, small), ErrNoData)
}

func TestGroupMeans(t *testing.T) {
	var buf bytes.Buffer
	means := []analysis.GroupMean{{Group: "Apple", Mean: 1050, Count: 3}, {Group: "Huawei", Mean: 400, Count: 2}}
	require.NoError(t, GroupMeans(&buf, "Dur. (ms)", "Handset Manufacturer", means, small))
	assertPNG(t, &buf, small.Width, small.Height)

	buf.Reset()
	flat := []analysis.GroupMean{{Group: "only", Mean: 0, Count: 1}}
	require.NoError(t, GroupMeans(&buf, "x", "g", flat, small), "a zero range is padded")
}

func TestElbowChart(t *testing.T) {
	curve := make([]cluster.ElbowPoint, 10)
	for i := range curve {
		curve[i] = cluster.ElbowPoint{K: i + 1, Inertia: 1000 / float64(i+1)}
	}
	var buf bytes.Buffer
	require.NoError(t, Elbow(&buf, curve, Options{}))
	assertPNG(t, &buf, 1024, 640)

	buf.Reset()
	require.NoError(t, Elbow(&buf, curve[:1], small), "a single point renders")
}

func TestHistogram(t *testing.T) {
	var buf bytes.Buffer
	err := Histogram(&buf, "Distributions", []HistogramSeries{
		{Name: "xDR_sessions", Values: []float64{1, 1, 2, 3, 5, 8, math.NaN()}},
		{Name: "total_data_volume", Values: []float64{4, 4, 4}},
	}, small)
	require.NoError(t, err)
	assertPNG(t, &buf, small.Width, small.Height)

	assert.ErrorIs(t, Histogram(&buf, "empty", []HistogramSeries{{Name: "x"}}, small), ErrNoData)
}

func TestBin(t *testing.T) {
	edges, counts := bin([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5)
	require.Len(t, edges, 6)
	assert.Equal(t, 0.0, edges[0])
	assert.Equal(t, 10.0, edges[5])
	assert.Equal(t, []float64{2, 2, 2, 2, 3}, counts, "the maximum falls in the last bin")

	edges, counts = bin([]float64{10, 0, math.NaN(), 5, math.Inf(1)}, 2)
	assert.Equal(t, []float64{0, 5, 10}, edges)
	assert.Equal(t, []float64{1, 2}, counts, "unsorted input, non-finite values ignored")

	edges, counts = bin([]float64{3, 3, 3}, 4)
	assert.Equal(t, []float64{2.5, 2.75, 3, 3.25, 3.5}, edges)
	assert.Equal(t, []float64{0, 0, 3, 0}, counts)

	edges, counts = bin([]float64{math.NaN()}, 4)
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}

func TestScatterAndClusters(t *testing.T) {
	var buf bytes.Buffer
	pts := [][]float64{{0, 1}, {1, 0}, {2, 3}, {math.NaN(), 1}}
	require.NoError(t, Scatter(&buf, "PCA Result (2 Components)", "Principal Component 1", "Principal Component 2", pts, small))
	assertPNG(t, &buf, small.Width, small.Height)

	buf.Reset()
	require.NoError(t, Scatter(&buf, "one", "x", "y", [][]float64{{5, 5}}, small), "a single point renders")

	buf.Reset()
	xs := []float64{1, 2, 10, 11, 20}
	ys := []float64{1, 2, 10, 11, 20}
	require.NoError(t, Clusters(&buf, "session_frequency", "total_traffic", xs, ys, []int{0, 0, 1, 1, 2}, small))
	assertPNG(t, &buf, small.Width, small.Height)

	assert.Error(t, Clusters(&buf, "x", "y", xs, ys[:2], []int{0}, small))
}

func TestHeatmap(t *testing.T) {
	m := &analysis.CorrMatrix{
		Columns: []string{"xDR_sessions", "total_duration", "constant"},
		Values: [][]float64{
			{1, 0.8, math.NaN()},
			{0.8, 1, math.NaN()},
			{math.NaN(), math.NaN(), 1},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Heatmap(&buf, m))
	w, h := HeatmapSize(m.Columns)
	assertPNG(t, &buf, w, h)

	assert.ErrorIs(t, Heatmap(&buf, &analysis.CorrMatrix{}), ErrNoData)
}

func TestGradientEnds(t *testing.T) {
	assert.Equal(t, coolwarm[0], gradient(coolwarm, 0))
	assert.Equal(t, coolwarm[2], gradient(coolwarm, 1))
	assert.Equal(t, coolwarm[1], gradient(coolwarm, 0.5))
}
