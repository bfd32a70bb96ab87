// Package store persists xDR tables to Postgres or SQLite through database/sql.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects the driver and connection string.
type Config struct {
	Driver      string
	DSN         string
	PingTimeout time.Duration
}

// Store owns one database handle for the lifetime of a run.
type Store struct {
	db     *sql.DB
	driver string
	log    zerolog.Logger
}

// Open connects and pings the database. Any failure is a *ConnectionError.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q (use %s or %s)", cfg.Driver, DriverPostgres, DriverSQLite)
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}
	if cfg.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, &ConnectionError{Op: "ping", Err: err}
	}
	logger.Debug().Str("driver", cfg.Driver).Msg("database connected")
	return &Store{db: db, driver: cfg.Driver, log: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string { return s.driver }

// placeholder returns the n-th (1-based) bind parameter for the driver.
func (s *Store) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
