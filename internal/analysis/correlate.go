package analysis

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// CorrMatrix holds a symmetric Pearson correlation matrix.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// CorrelationMatrix computes Pearson coefficients over pairwise-complete
// observations. With no columns given every numeric column is used. A
// coefficient is NaN when fewer than two paired values exist or either side
// has zero variance; the diagonal is always 1.
func CorrelationMatrix(df dataframe.DataFrame, columns []string) (*CorrMatrix, error) {
	if len(columns) == 0 {
		columns = dataset.NumericColumns(df)
	}
	data := make([][]float64, len(columns))
	for i, name := range columns {
		vals, err := dataset.Floats(df, name)
		if err != nil {
			return nil, err
		}
		data[i] = vals
	}
	k := len(columns)
	m := &CorrMatrix{Columns: append([]string(nil), columns...), Values: make([][]float64, k)}
	for i := range m.Values {
		m.Values[i] = make([]float64, k)
		m.Values[i][i] = 1
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			r := pairwisePearson(data[i], data[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func pairwisePearson(a, b []float64) float64 {
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(a))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	if len(x) < 2 {
		return math.NaN()
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// At returns the coefficient for a pair of column names.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return math.NaN(), false
	}
	return m.Values[ia][ib], true
}

// TopPairs returns up to n off-diagonal pairs ordered by |r| descending,
// skipping undefined coefficients.
func (m *CorrMatrix) TopPairs(n int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return math.Abs(pairs[i].R) > math.Abs(pairs[j].R) })
	if n > 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}
