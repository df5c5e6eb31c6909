package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"schemabridge/internal/dialect"
)

// ErrDuplicateKey matches inserts and updates rejected by a unique or
// primary key constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// DuplicateKeyError wraps the driver error behind ErrDuplicateKey.
type DuplicateKeyError struct {
	Err error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: %v", e.Err)
}

func (e *DuplicateKeyError) Unwrap() []error { return []error{ErrDuplicateKey, e.Err} }

// classify translates driver constraint errors; everything else passes
// through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if mysqlDuplicate(err) || postgresDuplicate(err) || sqliteDuplicate(err) {
		return &DuplicateKeyError{Err: err}
	}
	return err
}

// emptyInsert is the column/value clause for a row with no explicit values.
func emptyInsert(d dialect.Name) string {
	if d == dialect.MySQL {
		return " () VALUES ()"
	}
	return " DEFAULT VALUES"
}

// unboundedLimit is the LIMIT clause needed before a bare OFFSET.
func unboundedLimit(d dialect.Name) string {
	switch d {
	case dialect.MySQL:
		return " LIMIT 18446744073709551615"
	case dialect.SQLite:
		return " LIMIT -1"
	default:
		return ""
	}
}

// Tables lists the base tables visible on the adapter's connection.
func (a *SQLAdapter) Tables(ctx context.Context) ([]string, error) {
	switch a.dialect {
	case dialect.MySQL:
		return mysqlTables(ctx, a.db)
	case dialect.Postgres:
		return postgresTables(ctx, a.db)
	default:
		return sqliteTables(ctx, a.db)
	}
}

func queryNames(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
