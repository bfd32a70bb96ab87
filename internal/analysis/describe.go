package analysis

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// ColumnStats is the descriptive summary of one numeric column.
type ColumnStats struct {
	Name    string
	Count   int
	Missing int
	Mean    float64
	Std     float64 // sample standard deviation
	Min     float64
	Q25     float64
	Median  float64
	Q75     float64
	Max     float64
}

// Describe summarises every numeric column in table order. Statistics of a
// column without values are NaN; Std needs at least two values.
func Describe(df dataframe.DataFrame) ([]ColumnStats, error) {
	var out []ColumnStats
	for _, name := range dataset.NumericColumns(df) {
		vals, err := dataset.Floats(df, name)
		if err != nil {
			return nil, err
		}
		sorted := sortedPresent(vals)
		cs := ColumnStats{
			Name:    name,
			Count:   len(sorted),
			Missing: len(vals) - len(sorted),
			Mean:    math.NaN(),
			Std:     math.NaN(),
			Min:     math.NaN(),
			Q25:     math.NaN(),
			Median:  math.NaN(),
			Q75:     math.NaN(),
			Max:     math.NaN(),
		}
		if len(sorted) > 0 {
			cs.Mean = stat.Mean(sorted, nil)
			if len(sorted) > 1 {
				cs.Std = stat.StdDev(sorted, nil)
			}
			cs.Min = sorted[0]
			cs.Q25 = quantile(sorted, 0.25)
			cs.Median = quantile(sorted, 0.5)
			cs.Q75 = quantile(sorted, 0.75)
			cs.Max = sorted[len(sorted)-1]
		}
		out = append(out, cs)
	}
	return out, nil
}
