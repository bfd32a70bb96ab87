package store

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ConnectionError indicates the database could not be reached or the
// connection broke mid-operation.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "database unreachable"
	}
	return fmt.Sprintf("database unreachable during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError indicates a table, column or version mismatch between a frame,
// the declared schema and the live database.
type SchemaError struct {
	Table  string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema mismatch on %s: %s", e.Table, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ConstraintError indicates the database rejected a row. Row is the 0-based
// frame row when known, -1 otherwise.
type ConstraintError struct {
	Table string
	Row   int
	Err   error
}

func (e *ConstraintError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("constraint violation on %s at row %d: %v", e.Table, e.Row, e.Err)
	}
	return fmt.Sprintf("constraint violation on %s: %v", e.Table, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// classify maps a driver error onto the typed errors above.
func classify(err error, op, table string, row int) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23":
			return &ConstraintError{Table: table, Row: row, Err: err}
		case "42":
			return &SchemaError{Table: table, Reason: op, Err: err}
		case "08":
			return &ConnectionError{Op: op, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return &ConstraintError{Table: table, Row: row, Err: err}
		}
		msg := liteErr.Error()
		if strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column") ||
			strings.Contains(msg, "has no column named") {
			return &SchemaError{Table: table, Reason: op, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, driver.ErrBadConn) {
		return &ConnectionError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ConnectionError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
