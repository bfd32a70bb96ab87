package dataset

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	// ErrUnknownColumn is returned when a requested column is not in the table.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNotNumeric is returned when a numeric operation targets a text column.
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrEmpty is returned when an input holds no data rows.
	ErrEmpty = errors.New("no data rows")
	// ErrMissingValues is returned when a computation cannot accept missing cells.
	ErrMissingValues = errors.New("missing values")
)

// HasColumn reports whether df carries a column called name.
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// RequireColumns returns ErrUnknownColumn for the first name df lacks.
func RequireColumns(df dataframe.DataFrame, names ...string) error {
	for _, name := range names {
		if !HasColumn(df, name) {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
	}
	return nil
}

// IsNumeric reports whether s holds numbers.
func IsNumeric(s series.Series) bool {
	t := s.Type()
	return t == series.Float || t == series.Int
}

// Floats returns a copy of a numeric column with NaN marking missing cells.
func Floats(df dataframe.DataFrame, name string) ([]float64, error) {
	if err := RequireColumns(df, name); err != nil {
		return nil, err
	}
	s := df.Col(name)
	if !IsNumeric(s) {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, name)
	}
	return s.Float(), nil
}

// Strings returns the cells of a column as text and a parallel missing mask.
// Numeric cells are formatted with the shortest round-trip representation.
func Strings(df dataframe.DataFrame, name string) ([]string, []bool, error) {
	if err := RequireColumns(df, name); err != nil {
		return nil, nil, err
	}
	s := df.Col(name)
	n := s.Len()
	vals := make([]string, n)
	missing := make([]bool, n)
	numeric := IsNumeric(s)
	var fv []float64
	if numeric {
		fv = s.Float()
	}
	for i := 0; i < n; i++ {
		e := s.Elem(i)
		if e.IsNA() {
			missing[i] = true
			continue
		}
		if numeric {
			vals[i] = FormatFloat(fv[i])
			continue
		}
		vals[i] = e.String()
	}
	return vals, missing, nil
}

// Missing returns the per-row missing mask of a column.
func Missing(df dataframe.DataFrame, name string) ([]bool, error) {
	if err := RequireColumns(df, name); err != nil {
		return nil, err
	}
	return df.Col(name).IsNaN(), nil
}

// NumericColumns returns the names of all numeric columns in table order.
func NumericColumns(df dataframe.DataFrame) []string {
	var out []string
	for _, name := range df.Names() {
		if IsNumeric(df.Col(name)) {
			out = append(out, name)
		}
	}
	return out
}

// FloatSeries builds a float column; NaN values become missing cells.
func FloatSeries(name string, vals []float64) series.Series {
	return series.New(vals, series.Float, name)
}

// IntSeries builds an integer label column.
func IntSeries(name string, vals []int) series.Series {
	return series.New(vals, series.Int, name)
}

// TextSeries builds a text column; cells flagged in missing become NA.
func TextSeries(name string, vals []string, missing []bool) series.Series {
	cells := make([]string, len(vals))
	for i, v := range vals {
		if missing != nil && missing[i] {
			cells[i] = naToken
			continue
		}
		cells[i] = v
	}
	return series.New(cells, series.String, name)
}

// WithColumn adds or replaces a column, surfacing gota's deferred error.
func WithColumn(df dataframe.DataFrame, s series.Series) (dataframe.DataFrame, error) {
	out := df.Mutate(s)
	if out.Err != nil {
		return df, fmt.Errorf("set column %q: %w", s.Name, out.Err)
	}
	return out, nil
}

// SelectRows returns a new table holding rows at the given indexes, in order.
func SelectRows(df dataframe.DataFrame, rows []int) (dataframe.DataFrame, error) {
	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		s := df.Col(name)
		switch s.Type() {
		case series.Float:
			src := s.Float()
			vals := make([]float64, len(rows))
			for i, r := range rows {
				vals[i] = src[r]
			}
			cols = append(cols, FloatSeries(name, vals))
		default:
			recs := make([]string, len(rows))
			for i, r := range rows {
				e := s.Elem(r)
				if e.IsNA() {
					recs[i] = naToken
					continue
				}
				recs[i] = e.String()
			}
			cols = append(cols, series.New(recs, s.Type(), name))
		}
	}
	out := dataframe.New(cols...)
	if out.Err != nil {
		return df, fmt.Errorf("select rows: %w", out.Err)
	}
	return out, nil
}

// FormatFloat renders v the way CSV exports and group keys expect.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%v", v)
}
