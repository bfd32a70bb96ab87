package analysis

import (
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// Deciles is the number of duration segments.
const Deciles = 10

// DecileBucket summarises the users of one duration decile.
type DecileBucket struct {
	Decile          int
	Users           int
	TotalDataVolume float64
	AvgDuration     float64
}

// SegmentByDecile splits users at the 10th-percentile boundaries of
// total_duration. Edges are linear-interpolated quantiles and bins are
// right-inclusive, the lowest value falling in decile 0. Tied durations can
// make neighbouring edges coincide; those users all land in the lowest decile
// sharing the edge and the decile above stays empty. Users with no duration
// get a missing decile and are left out of the buckets, which are returned
// for non-empty deciles only, in ascending order.
func SegmentByDecile(userAgg dataframe.DataFrame) (dataframe.DataFrame, []DecileBucket, error) {
	if err := dataset.RequireColumns(userAgg, dataset.ColTotalDuration, dataset.ColTotalDataVolume); err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	dur, err := dataset.Floats(userAgg, dataset.ColTotalDuration)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	vol, err := dataset.Floats(userAgg, dataset.ColTotalDataVolume)
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}

	edges := decileEdges(sortedPresent(dur))
	labels := make([]string, len(dur))
	var acc [Deciles]DecileBucket
	for row, v := range dur {
		if math.IsNaN(v) {
			labels[row] = "NaN"
			continue
		}
		d := decileOf(edges, v)
		labels[row] = strconv.Itoa(d)
		acc[d].Decile = d
		acc[d].Users++
		acc[d].TotalDataVolume += skipNaN(vol[row])
		acc[d].AvgDuration += v
	}
	var buckets []DecileBucket
	for _, b := range acc {
		if b.Users == 0 {
			continue
		}
		b.AvgDuration /= float64(b.Users)
		buckets = append(buckets, b)
	}

	out, err := dataset.WithColumn(userAgg, series.New(labels, series.Int, dataset.ColDecile))
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	return out, buckets, nil
}

// decileEdges returns the Deciles+1 boundaries of sorted.
func decileEdges(sorted []float64) []float64 {
	if len(sorted) == 0 {
		return nil
	}
	edges := make([]float64, Deciles+1)
	for i := range edges {
		edges[i] = quantile(sorted, float64(i)/Deciles)
	}
	return edges
}

// decileOf returns the first bin whose upper edge is at least v.
func decileOf(edges []float64, v float64) int {
	d := sort.SearchFloat64s(edges[1:], v)
	if d >= Deciles {
		d = Deciles - 1
	}
	return d
}
