package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

func postgresDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func postgresTables(ctx context.Context, db *sql.DB) ([]string, error) {
	return queryNames(ctx, db, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema=current_schema() AND table_type='BASE TABLE'
ORDER BY table_name`)
}
