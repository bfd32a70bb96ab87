package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// maxParams bounds bind parameters per statement, under SQLite's default
// limit of 999 and far under Postgres' 65535.
const maxParams = 900

// rowsFor converts df into driver values in frame column order. A column
// unknown to sc, a missing required column or an unparsable number is a
// *SchemaError.
func rowsFor(sc Schema, df dataframe.DataFrame) ([]string, [][]any, error) {
	names := df.Names()
	for _, c := range sc.Columns {
		if c.Required && !dataset.HasColumn(df, c.Name) {
			return nil, nil, &SchemaError{Table: sc.Table, Reason: fmt.Sprintf("frame lacks required column %q", c.Name)}
		}
	}
	n := df.Nrow()
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = make([]any, len(names))
	}
	for j, name := range names {
		col, ok := sc.Column(name)
		if !ok {
			return nil, nil, &SchemaError{Table: sc.Table, Reason: fmt.Sprintf("column %q is not declared", name)}
		}
		s := df.Col(name)
		numeric := dataset.IsNumeric(s)
		switch {
		case col.Kind == Numeric && numeric:
			for i, v := range s.Float() {
				if s.Elem(i).IsNA() {
					continue
				}
				rows[i][j] = v
			}
		case col.Kind == Numeric:
			vals, missing, err := dataset.Strings(df, name)
			if err != nil {
				return nil, nil, err
			}
			for i, v := range vals {
				if missing[i] {
					continue
				}
				f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
				if err != nil {
					return nil, nil, &SchemaError{
						Table:  sc.Table,
						Reason: fmt.Sprintf("column %q row %d: %q is not a number", name, i, v),
					}
				}
				rows[i][j] = f
			}
		default:
			vals, missing, err := dataset.Strings(df, name)
			if err != nil {
				return nil, nil, err
			}
			for i, v := range vals {
				if missing[i] {
					continue
				}
				rows[i][j] = v
			}
		}
	}
	return names, rows, nil
}

func (s *Store) insertSQL(table string, cols []string, nrows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (", quoteIdent(table))
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(c))
	}
	b.WriteString(") VALUES ")
	p := 1
	for r := 0; r < nrows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for i := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.placeholder(p))
			p++
		}
		b.WriteString(")")
	}
	return b.String()
}

// InsertRows writes df one row per statement in autocommit mode. It stops at
// the first failure and returns how many rows were written before it.
func (s *Store) InsertRows(ctx context.Context, sc Schema, df dataframe.DataFrame) (int, error) {
	cols, rows, err := rowsFor(sc, df)
	if err != nil {
		return 0, err
	}
	stmt := s.insertSQL(sc.Table, cols, 1)
	for i, row := range rows {
		if _, err := s.db.ExecContext(ctx, stmt, row...); err != nil {
			return i, classify(err, "insert row", sc.Table, i)
		}
	}
	s.log.Debug().Str("table", sc.Table).Int("rows", len(rows)).Msg("rows inserted")
	return len(rows), nil
}

// BulkInsert writes df in a single transaction using multi-row statements.
// Either every row is stored or none is.
func (s *Store) BulkInsert(ctx context.Context, sc Schema, df dataframe.DataFrame) error {
	cols, rows, err := rowsFor(sc, df)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	batch := maxParams / len(cols)
	if batch < 1 {
		batch = 1
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin", sc.Table, -1)
	}
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		args := make([]any, 0, (end-start)*len(cols))
		for _, row := range rows[start:end] {
			args = append(args, row...)
		}
		if _, err := tx.ExecContext(ctx, s.insertSQL(sc.Table, cols, end-start), args...); err != nil {
			tx.Rollback() // nolint:errcheck
			row := -1
			if end-start == 1 {
				row = start
			}
			return classify(err, "bulk insert", sc.Table, row)
		}
	}
	if err := tx.Commit(); err != nil {
		return classify(err, "commit", sc.Table, -1)
	}
	s.log.Debug().Str("table", sc.Table).Int("rows", len(rows)).Int("batch", batch).Msg("bulk insert committed")
	return nil
}
