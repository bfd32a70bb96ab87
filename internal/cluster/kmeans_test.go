package cluster

import (
	"fmt"
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// blobs returns three well separated groups of four points each.
func blobs() [][]float64 {
	var pts [][]float64
	for _, c := range [][]float64{{0, 0, 0}, {100, 100, 100}, {-100, 50, 0}} {
		for _, d := range [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
			pts = append(pts, []float64{c[0] + d[0], c[1] + d[1], c[2] + d[2]})
		}
	}
	return pts
}

func engagementFrame(t *testing.T, pts [][]float64) dataframe.DataFrame {
	t.Helper()
	records := [][]string{{dataset.ColIMSI, dataset.ColSessionFrequency, dataset.ColSessionDuration, dataset.ColTotalTraffic}}
	for i, p := range pts {
		records = append(records, []string{
			fmt.Sprint(1000 + i),
			fmt.Sprint(p[0]), fmt.Sprint(p[1]), fmt.Sprint(p[2]),
		})
	}
	df, err := dataset.LoadRecords(records, dataset.DefaultOptions())
	require.NoError(t, err)
	return df
}

func TestFitSeparatesBlobs(t *testing.T) {
	pts := blobs()
	m, err := Fit(pts, 3, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, m.Centers, 3)
	assert.Equal(t, []int{4, 4, 4}, m.Sizes())

	for g := 0; g < 3; g++ {
		base := m.Labels[g*4]
		for i := 1; i < 4; i++ {
			assert.Equal(t, base, m.Labels[g*4+i], "points of one blob share a label")
		}
	}
	// each blob contributes 0.1875 + 3*0.6875 around its centroid
	assert.InDelta(t, 6.75, m.Inertia, 1e-9)
	assert.Positive(t, m.Iterations)
}

func TestFitIsDeterministic(t *testing.T) {
	pts := blobs()
	a, err := Fit(pts, 4, DefaultOptions())
	require.NoError(t, err)
	b, err := Fit(pts, 4, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a.Labels, b.Labels)
	assert.Equal(t, a.Centers, b.Centers)
	assert.Equal(t, a.Inertia, b.Inertia)
}

func TestFitErrors(t *testing.T) {
	_, err := Fit([][]float64{{1}, {2}}, 3, DefaultOptions())
	assert.ErrorIs(t, err, ErrTooFewSamples)
	_, err = Fit([][]float64{{1}}, 0, DefaultOptions())
	assert.Error(t, err)
}

func TestApplyKMeansZeroOptionsUseDefaults(t *testing.T) {
	out, m, err := ApplyKMeans(engagementFrame(t, blobs()), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions().K, m.K())
	assert.Equal(t, dataset.EngagementFeatures, m.Features)
	assert.Equal(t, []int{4, 4, 4}, m.Sizes())
	assert.Contains(t, out.Names(), dataset.ColCluster)
}

func TestFitIdenticalPoints(t *testing.T) {
	pts := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	m, err := Fit(pts, 2, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Inertia)
	assert.Len(t, m.Labels, 4)
}

func TestApplyKMeansAddsClusterColumn(t *testing.T) {
	df := engagementFrame(t, blobs())
	out, m, err := ApplyKMeans(df, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, dataset.EngagementFeatures, m.Features)

	require.True(t, dataset.HasColumn(out, dataset.ColCluster))
	labels, err := dataset.Floats(out, dataset.ColCluster)
	require.NoError(t, err)
	for i, l := range labels {
		assert.Equal(t, float64(m.Labels[i]), l)
	}

	again, _, err := ApplyKMeans(df, DefaultOptions())
	require.NoError(t, err)
	second, err := dataset.Floats(again, dataset.ColCluster)
	require.NoError(t, err)
	assert.Equal(t, labels, second)
}

func TestApplyKMeansRejectsMissing(t *testing.T) {
	df, err := dataset.LoadRecords([][]string{
		{dataset.ColSessionFrequency, dataset.ColSessionDuration, dataset.ColTotalTraffic},
		{"1", "2", "3"},
		{"1", "", "3"},
		{"4", "5", "6"},
	}, dataset.DefaultOptions())
	require.NoError(t, err)
	_, _, err = ApplyKMeans(df, Options{K: 2})
	assert.ErrorIs(t, err, dataset.ErrMissingValues)
}

func TestPredictNearestCentre(t *testing.T) {
	m := &Model{Centers: [][]float64{{0, 0}, {10, 10}}}
	assert.Equal(t, 0, m.Predict([]float64{1, 2}))
	assert.Equal(t, 1, m.Predict([]float64{9, 7}))
	assert.Equal(t, 0, m.Predict([]float64{5, 5}), "ties go to the lower label")
}

func TestElbowIsNonIncreasing(t *testing.T) {
	pts := blobs()
	for i := 0; i < 8; i++ {
		pts = append(pts, []float64{float64(i * 7 % 13), float64(i * 3 % 5), float64(i)})
	}
	curve, err := ElbowPoints(pts, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, curve, MaxElbowK)
	for i, p := range curve {
		assert.Equal(t, i+1, p.K)
		assert.False(t, math.IsNaN(p.Inertia))
		if i > 0 {
			assert.LessOrEqual(t, p.Inertia, curve[i-1].Inertia)
		}
	}

	df := engagementFrame(t, pts)
	fromFrame, err := Elbow(df, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, curve, fromFrame)
}

func TestElbowNeedsTenPoints(t *testing.T) {
	_, err := ElbowPoints(blobs()[:9], DefaultOptions())
	assert.ErrorIs(t, err, ErrTooFewSamples)
}
