package analysis

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// IQRFactor scales the interquartile range when computing clipping fences.
const IQRFactor = 1.5

// FillMissingWithMean replaces missing numeric cells with the column mean
// over the present values. Text columns and entirely missing columns are
// left as they are.
func FillMissingWithMean(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	out := df
	for _, name := range dataset.NumericColumns(df) {
		vals, err := dataset.Floats(df, name)
		if err != nil {
			return df, err
		}
		have := present(vals)
		if len(have) == 0 || len(have) == len(vals) {
			continue
		}
		mean := stat.Mean(have, nil)
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = mean
			}
		}
		if out, err = dataset.WithColumn(out, dataset.FloatSeries(name, vals)); err != nil {
			return df, err
		}
	}
	return out, nil
}

// DropMissing removes rows holding a missing value in any of columns, or in
// any column at all when none are given.
func DropMissing(df dataframe.DataFrame, columns ...string) (dataframe.DataFrame, error) {
	if len(columns) == 0 {
		columns = df.Names()
	}
	if err := dataset.RequireColumns(df, columns...); err != nil {
		return df, err
	}
	drop := make([]bool, df.Nrow())
	for _, name := range columns {
		mask, err := dataset.Missing(df, name)
		if err != nil {
			return df, err
		}
		for i, m := range mask {
			if m {
				drop[i] = true
			}
		}
	}
	keep := make([]int, 0, len(drop))
	for i, d := range drop {
		if !d {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(drop) {
		return df, nil
	}
	return dataset.SelectRows(df, keep)
}

// Fences are the clipping bounds derived from one column's quartiles.
type Fences struct {
	Column string
	Q1, Q3 float64
	Lower  float64
	Upper  float64
}

// OutlierFences computes the IQR fences of a numeric column.
func OutlierFences(df dataframe.DataFrame, column string) (Fences, error) {
	vals, err := dataset.Floats(df, column)
	if err != nil {
		return Fences{}, err
	}
	sorted := sortedPresent(vals)
	if len(sorted) == 0 {
		return Fences{}, fmt.Errorf("%w: %q has no values", dataset.ErrMissingValues, column)
	}
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	return Fences{
		Column: column,
		Q1:     q1,
		Q3:     q3,
		Lower:  q1 - IQRFactor*iqr,
		Upper:  q3 + IQRFactor*iqr,
	}, nil
}

// ClipOutliers clamps each listed column into its IQR fences. The row count
// never changes and missing cells stay missing.
func ClipOutliers(df dataframe.DataFrame, columns ...string) (dataframe.DataFrame, error) {
	out := df
	for _, name := range columns {
		vals, err := dataset.Floats(out, name)
		if err != nil {
			return df, err
		}
		if len(present(vals)) == 0 {
			continue
		}
		f, err := OutlierFences(out, name)
		if err != nil {
			return df, err
		}
		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			vals[i] = math.Min(math.Max(v, f.Lower), f.Upper)
		}
		if out, err = dataset.WithColumn(out, dataset.FloatSeries(name, vals)); err != nil {
			return df, err
		}
	}
	return out, nil
}
