package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// Components is the number of principal axes kept.
const Components = 2

// PCAOptions controls preprocessing before the decomposition.
type PCAOptions struct {
	// Standardize scales each column to unit variance after centring.
	Standardize bool
}

// PCAResult holds the projection of every row onto the first two axes.
type PCAResult struct {
	Columns    []string
	Projection [][]float64 // n rows of [pc1, pc2]
	// ExplainedVarianceRatio is the share of total variance per axis.
	ExplainedVarianceRatio []float64
}

// PCA projects the selected numeric columns onto their first two principal
// components. Missing values are rejected.
func PCA(df dataframe.DataFrame, columns []string, opt PCAOptions) (*PCAResult, error) {
	if len(columns) < Components {
		return nil, fmt.Errorf("pca needs at least %d columns, got %d", Components, len(columns))
	}
	n := df.Nrow()
	if n < Components {
		return nil, fmt.Errorf("pca needs at least %d rows, got %d", Components, n)
	}
	p := len(columns)
	x := mat.NewDense(n, p, nil)
	for j, name := range columns {
		vals, err := dataset.Floats(df, name)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("%w: column %q row %d", dataset.ErrMissingValues, name, i)
			}
		}
		mean, std := stat.MeanStdDev(vals, nil)
		scale := 1.0
		if opt.Standardize && std > 0 {
			scale = std
		}
		for i, v := range vals {
			x.Set(i, j, (v-mean)/scale)
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, errors.New("pca: decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	_, k := vecs.Dims()
	if k > Components {
		k = Components
	}
	var proj mat.Dense
	proj.Mul(x, vecs.Slice(0, p, 0, k))

	res := &PCAResult{
		Columns:                append([]string(nil), columns...),
		Projection:             make([][]float64, n),
		ExplainedVarianceRatio: make([]float64, Components),
	}
	for i := 0; i < n; i++ {
		row := make([]float64, Components)
		for c := 0; c < k; c++ {
			row[c] = proj.At(i, c)
		}
		res.Projection[i] = row
	}
	total := 0.0
	for _, v := range vars {
		total += v
	}
	if total > 0 {
		for c := 0; c < k && c < len(vars); c++ {
			res.ExplainedVarianceRatio[c] = vars[c] / total
		}
	}
	return res, nil
}
