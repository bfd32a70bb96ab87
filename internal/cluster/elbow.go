package cluster

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
)

// MaxElbowK is the largest cluster count the elbow sweep tries.
const MaxElbowK = 10

// ElbowPoint is the within-cluster sum of squares for one K.
type ElbowPoint struct {
	K       int
	Inertia float64
}

// Elbow fits K = 1..10 on the feature columns of df.
func Elbow(df dataframe.DataFrame, opt Options) ([]ElbowPoint, error) {
	opt = opt.withDefaults()
	points, err := Features(df, opt.Features)
	if err != nil {
		return nil, err
	}
	return ElbowPoints(points, opt)
}

// ElbowPoints fits K = 1..10 with the same seed. Each K > 1 is also fitted
// from the K-1 centres plus the point farthest from them, and the lower
// inertia wins, so the returned sequence never increases.
func ElbowPoints(points [][]float64, opt Options) ([]ElbowPoint, error) {
	opt = opt.withDefaults()
	if len(points) < MaxElbowK {
		return nil, fmt.Errorf("%w: elbow needs %d points, got %d", ErrTooFewSamples, MaxElbowK, len(points))
	}
	out := make([]ElbowPoint, 0, MaxElbowK)
	var prev *Model
	for k := 1; k <= MaxElbowK; k++ {
		m, err := Fit(points, k, opt)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			if warm := lloyd(points, grow(points, prev.Centers), opt.MaxIter); warm.Inertia < m.Inertia {
				m = warm
			}
		}
		out = append(out, ElbowPoint{K: k, Inertia: m.Inertia})
		prev = m
	}
	return out, nil
}

// grow copies centers and appends the point farthest from all of them.
func grow(points, centers [][]float64) [][]float64 {
	next := make([][]float64, 0, len(centers)+1)
	for _, c := range centers {
		next = append(next, clone(c))
	}
	far, farD := 0, -1.0
	for i, p := range points {
		if _, d := nearest(p, centers); d > farD {
			far, farD = i, d
		}
	}
	return append(next, clone(points[far]))
}
