package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// FetchAll reads every row of the declared columns. An empty table yields an
// empty frame and a nil error.
func (s *Store) FetchAll(ctx context.Context, sc Schema) (dataframe.DataFrame, error) {
	quoted := make([]string, len(sc.Columns))
	for i, c := range sc.Columns {
		quoted[i] = quoteIdent(c.Name)
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quoteIdent(sc.Table))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return dataframe.DataFrame{}, classify(err, "select", sc.Table, -1)
	}
	defer rows.Close()

	nums := make([][]float64, len(sc.Columns))
	texts := make([][]string, len(sc.Columns))
	nulls := make([][]bool, len(sc.Columns))
	dest := make([]any, len(sc.Columns))
	for rows.Next() {
		numCells := make([]sql.NullFloat64, len(sc.Columns))
		textCells := make([]sql.NullString, len(sc.Columns))
		for i, c := range sc.Columns {
			if c.Kind == Numeric {
				dest[i] = &numCells[i]
			} else {
				dest[i] = &textCells[i]
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return dataframe.DataFrame{}, classify(err, "scan", sc.Table, -1)
		}
		for i, c := range sc.Columns {
			if c.Kind == Numeric {
				v := math.NaN()
				if numCells[i].Valid {
					v = numCells[i].Float64
				}
				nums[i] = append(nums[i], v)
				continue
			}
			texts[i] = append(texts[i], textCells[i].String)
			nulls[i] = append(nulls[i], !textCells[i].Valid)
		}
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, classify(err, "select", sc.Table, -1)
	}

	cols := make([]series.Series, len(sc.Columns))
	for i, c := range sc.Columns {
		if c.Kind == Numeric {
			vals := nums[i]
			if vals == nil {
				vals = []float64{}
			}
			cols[i] = dataset.FloatSeries(c.Name, vals)
			continue
		}
		vals := texts[i]
		if vals == nil {
			vals = []string{}
		}
		cols[i] = dataset.TextSeries(c.Name, vals, nulls[i])
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build frame: %w", df.Err)
	}
	s.log.Debug().Str("table", sc.Table).Int("rows", df.Nrow()).Msg("table fetched")
	return df, nil
}
