package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// versionTable records the schema version applied to each managed table.
const versionTable = "xdrscope_schema_versions"

// Kind is the storage class of a column.
type Kind int

const (
	Numeric Kind = iota
	Text
)

func (k Kind) sqlType() string {
	if k == Numeric {
		return "DOUBLE PRECISION"
	}
	return "TEXT"
}

// Column declares one stored column.
type Column struct {
	Name     string
	Kind     Kind
	Required bool
}

// Schema is an explicit, versioned table declaration.
type Schema struct {
	Table      string
	Version    int
	Columns    []Column
	PrimaryKey string
}

// XDRSchema stores raw session records.
var XDRSchema = Schema{
	Table:   "xdr_data",
	Version: 1,
	Columns: []Column{
		{Name: dataset.ColBearerID, Kind: Numeric, Required: true},
		{Name: dataset.ColIMSI, Kind: Numeric, Required: true},
		{Name: dataset.ColHandsetManufacturer, Kind: Text, Required: true},
		{Name: dataset.ColHandsetType, Kind: Text, Required: true},
		{Name: dataset.ColDuration, Kind: Numeric, Required: true},
		{Name: dataset.ColTotalDL, Kind: Numeric, Required: true},
		{Name: dataset.ColTotalUL, Kind: Numeric, Required: true},
	},
}

// UserAggregateSchema stores per-user aggregates keyed by IMSI.
var UserAggregateSchema = Schema{
	Table:   "user_aggregates",
	Version: 1,
	Columns: []Column{
		{Name: dataset.ColIMSI, Kind: Numeric, Required: true},
		{Name: dataset.ColSessions, Kind: Numeric, Required: true},
		{Name: dataset.ColTotalDuration, Kind: Numeric, Required: true},
		{Name: dataset.ColTotalDownload, Kind: Numeric, Required: true},
		{Name: dataset.ColTotalUpload, Kind: Numeric, Required: true},
		{Name: dataset.ColTotalDataVolume, Kind: Numeric, Required: true},
	},
	PrimaryKey: dataset.ColIMSI,
}

// WithTable returns a copy of the schema stored under another table name.
func (sc Schema) WithTable(name string) Schema {
	if name != "" {
		sc.Table = name
	}
	return sc
}

// Column looks up a declared column by name.
func (sc Schema) Column(name string) (Column, bool) {
	for _, c := range sc.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the declared column names in order.
func (sc Schema) Names() []string {
	out := make([]string, len(sc.Columns))
	for i, c := range sc.Columns {
		out[i] = c.Name
	}
	return out
}

// Project keeps only the declared columns df carries, in declaration order.
func (sc Schema) Project(df dataframe.DataFrame) dataframe.DataFrame {
	var keep []string
	for _, c := range sc.Columns {
		if dataset.HasColumn(df, c.Name) {
			keep = append(keep, c.Name)
		}
	}
	return df.Select(keep)
}

// DDL returns the CREATE TABLE statement for the schema.
func (sc Schema) DDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", quoteIdent(sc.Table))
	for i, c := range sc.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", quoteIdent(c.Name), c.Kind.sqlType())
	}
	if sc.PrimaryKey != "" {
		fmt.Fprintf(&b, ", PRIMARY KEY (%s)", quoteIdent(sc.PrimaryKey))
	}
	b.WriteString(")")
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// EnsureSchema creates the table when missing and records its version.
func (s *Store) EnsureSchema(ctx context.Context, sc Schema) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (table_name TEXT PRIMARY KEY, version INTEGER NOT NULL)",
		quoteIdent(versionTable))); err != nil {
		return classify(err, "create version table", versionTable, -1)
	}
	if _, err := s.db.ExecContext(ctx, sc.DDL()); err != nil {
		return classify(err, "create table", sc.Table, -1)
	}
	upsert := fmt.Sprintf(
		"INSERT INTO %s (table_name, version) VALUES (%s, %s) ON CONFLICT (table_name) DO UPDATE SET version = excluded.version",
		quoteIdent(versionTable), s.placeholder(1), s.placeholder(2))
	if _, err := s.db.ExecContext(ctx, upsert, sc.Table, sc.Version); err != nil {
		return classify(err, "record version", sc.Table, -1)
	}
	s.log.Debug().Str("table", sc.Table).Int("version", sc.Version).Msg("schema ensured")
	return nil
}

// Verify checks the recorded version and the live column set against sc.
func (s *Store) Verify(ctx context.Context, sc Schema) error {
	var version int
	q := fmt.Sprintf("SELECT version FROM %s WHERE table_name = %s", quoteIdent(versionTable), s.placeholder(1))
	err := s.db.QueryRowContext(ctx, q, sc.Table).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return &SchemaError{Table: sc.Table, Reason: "no recorded schema version"}
	}
	if err != nil {
		return classify(err, "read schema version", sc.Table, -1)
	}
	if version != sc.Version {
		return &SchemaError{Table: sc.Table, Reason: fmt.Sprintf("version %d recorded, %d declared", version, sc.Version)}
	}
	live, err := s.liveColumns(ctx, sc.Table)
	if err != nil {
		return err
	}
	var missing, extra []string
	liveSet := make(map[string]bool, len(live))
	for _, c := range live {
		liveSet[c] = true
	}
	for _, c := range sc.Columns {
		if !liveSet[c.Name] {
			missing = append(missing, c.Name)
		}
		delete(liveSet, c.Name)
	}
	for c := range liveSet {
		extra = append(extra, c)
	}
	sort.Strings(extra)
	if len(missing) > 0 || len(extra) > 0 {
		return &SchemaError{Table: sc.Table, Reason: fmt.Sprintf("missing columns %v, unexpected columns %v", missing, extra)}
	}
	return nil
}

func (s *Store) liveColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1=0", quoteIdent(table)))
	if err != nil {
		return nil, classify(err, "inspect table", table, -1)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, classify(err, "inspect table", table, -1)
	}
	return cols, nil
}

// Status summarises a managed table.
type Status struct {
	Table   string
	Version int
	Rows    int64
}

// Status verifies sc and counts its rows.
func (s *Store) Status(ctx context.Context, sc Schema) (Status, error) {
	if err := s.Verify(ctx, sc); err != nil {
		return Status{}, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(sc.Table))).Scan(&n); err != nil {
		return Status{}, classify(err, "count rows", sc.Table, -1)
	}
	return Status{Table: sc.Table, Version: sc.Version, Rows: n}, nil
}
