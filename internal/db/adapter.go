// Package db holds the concrete storage adapters: a database/sql adapter for
// mysql, postgres and sqlite, and an in-process document store.
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"schemabridge/internal/adapter"
	"schemabridge/internal/dialect"
)

// Options describes one connection to open.
type Options struct {
	Provider        string
	DSN             string
	MaxOpenConns    int
	ConnMaxIdleTime time.Duration
}

// Open builds an adapter for the given provider.
func Open(opts Options) (adapter.Adapter, error) {
	provider := strings.ToLower(opts.Provider)
	switch provider {
	case "postgres", "postgresql", "sql":
		db, err := sql.Open("pgx", opts.DSN)
		if err != nil {
			return nil, err
		}
		configurePool(db, opts, 5)
		return NewSQLAdapter(db, dialect.Postgres), nil
	case "mysql":
		// Validate DSN early to provide actionable errors.
		cfg, err := mysql.ParseDSN(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		db, err := sql.Open("mysql", cfg.FormatDSN())
		if err != nil {
			return nil, err
		}
		configurePool(db, opts, 5)
		return NewSQLAdapter(db, dialect.MySQL), nil
	case "sqlite", "sqlite3":
		db, err := sql.Open("sqlite", opts.DSN)
		if err != nil {
			return nil, err
		}
		// One connection keeps ":memory:" databases shared across calls.
		configurePool(db, opts, 1)
		return NewSQLAdapter(db, dialect.SQLite), nil
	case "memory":
		return NewMemoryAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported provider %s", opts.Provider)
	}
}

func configurePool(db *sql.DB, opts Options, defaultMaxOpen int) {
	idle := opts.ConnMaxIdleTime
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpen
	}
	db.SetConnMaxIdleTime(idle)
	db.SetMaxOpenConns(maxOpen)
}
