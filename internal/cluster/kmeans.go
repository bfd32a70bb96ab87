// Package cluster implements seeded k-means over engagement features.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// ErrTooFewSamples is returned when there are fewer points than clusters.
var ErrTooFewSamples = errors.New("too few samples")

// Options controls a k-means fit.
type Options struct {
	K        int
	Seed     uint64
	NInit    int
	MaxIter  int
	Features []string
}

// DefaultOptions returns k=3 on the engagement features with seed 42.
func DefaultOptions() Options {
	return Options{
		K:        3,
		Seed:     42,
		NInit:    10,
		MaxIter:  300,
		Features: append([]string(nil), dataset.EngagementFeatures...),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.K <= 0 {
		o.K = d.K
	}
	if o.NInit <= 0 {
		o.NInit = d.NInit
	}
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	if len(o.Features) == 0 {
		o.Features = d.Features
	}
	return o
}

// Model is a fitted k-means solution.
type Model struct {
	Features   []string
	Centers    [][]float64
	Labels     []int
	Inertia    float64 // sum of squared distances to the assigned centre
	Iterations int
}

// K returns the number of clusters.
func (m *Model) K() int { return len(m.Centers) }

// Predict returns the label of the nearest centre; ties go to the lower label.
func (m *Model) Predict(point []float64) int {
	label, _ := nearest(point, m.Centers)
	return label
}

// Sizes counts the points assigned to each cluster.
func (m *Model) Sizes() []int {
	sizes := make([]int, len(m.Centers))
	for _, l := range m.Labels {
		sizes[l]++
	}
	return sizes
}

// ApplyKMeans fits k-means on the configured feature columns and returns df
// with an integer cluster column added.
func ApplyKMeans(df dataframe.DataFrame, opt Options) (dataframe.DataFrame, *Model, error) {
	opt = opt.withDefaults()
	points, err := Features(df, opt.Features)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	m, err := Fit(points, opt.K, opt)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	m.Features = append([]string(nil), opt.Features...)
	out, err := dataset.WithColumn(df, dataset.IntSeries(dataset.ColCluster, m.Labels))
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	return out, m, nil
}

// Features extracts the named columns as row vectors. Missing cells are an error.
func Features(df dataframe.DataFrame, columns []string) ([][]float64, error) {
	n := df.Nrow()
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, len(columns))
	}
	for j, name := range columns {
		vals, err := dataset.Floats(df, name)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("%w: column %q row %d", dataset.ErrMissingValues, name, i)
			}
			points[i][j] = v
		}
	}
	return points, nil
}

// Fit runs NInit k-means++ initialisations from a PCG source seeded with
// opt.Seed and keeps the run with the lowest inertia.
func Fit(points [][]float64, k int, opt Options) (*Model, error) {
	opt = opt.withDefaults()
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(points) < k {
		return nil, fmt.Errorf("%w: %d points for %d clusters", ErrTooFewSamples, len(points), k)
	}
	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed))
	var best *Model
	for run := 0; run < opt.NInit; run++ {
		m := lloyd(points, seedCenters(points, k, rng), opt.MaxIter)
		if best == nil || m.Inertia < best.Inertia {
			best = m
		}
	}
	return best, nil
}

// seedCenters picks k starting centres with k-means++ weighting.
func seedCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(points[rng.IntN(n)]))
	d2 := make([]float64, n)
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			_, d := nearest(p, centers)
			d2[i] = d
			total += d
		}
		if total == 0 {
			centers = append(centers, clone(points[rng.IntN(n)]))
			continue
		}
		r := rng.Float64() * total
		pick := n - 1
		acc := 0.0
		for i, d := range d2 {
			acc += d
			if r < acc {
				pick = i
				break
			}
		}
		centers = append(centers, clone(points[pick]))
	}
	return centers
}

// lloyd alternates assignment and mean updates until no label changes or
// maxIter is reached. Empty clusters move to the point farthest from its
// assigned centre.
func lloyd(points [][]float64, centers [][]float64, maxIter int) *Model {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}
	iter := 0
	converged := false
	for iter < maxIter {
		iter++
		if !assign(points, centers, labels) {
			converged = true
			break
		}
		update(points, centers, labels)
	}
	if !converged {
		assign(points, centers, labels)
	}
	return &Model{
		Centers:    centers,
		Labels:     labels,
		Inertia:    inertia(points, centers, labels),
		Iterations: iter,
	}
}

func assign(points, centers [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		l, _ := nearest(p, centers)
		if labels[i] != l {
			labels[i] = l
			changed = true
		}
	}
	return changed
}

func update(points, centers [][]float64, labels []int) {
	dim := len(points[0])
	sums := make([][]float64, len(centers))
	counts := make([]int, len(centers))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range points {
		floats.Add(sums[labels[i]], p)
		counts[labels[i]]++
	}
	for c := range centers {
		if counts[c] == 0 {
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
		centers[c] = sums[c]
	}
	for c := range centers {
		if counts[c] > 0 {
			continue
		}
		far, farD := 0, -1.0
		for i, p := range points {
			if d := sqDist(p, centers[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		centers[c] = clone(points[far])
		counts[labels[far]]--
		labels[far] = c
		counts[c]++
	}
}

func inertia(points, centers [][]float64, labels []int) float64 {
	total := 0.0
	for i, p := range points {
		total += sqDist(p, centers[labels[i]])
	}
	return total
}

func nearest(p []float64, centers [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(p, center); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}
