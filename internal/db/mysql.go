package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func mysqlDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func mysqlTables(ctx context.Context, db *sql.DB) ([]string, error) {
	var schemaName string
	if err := db.QueryRowContext(ctx, `SELECT DATABASE()`).Scan(&schemaName); err != nil {
		return nil, err
	}
	return queryNames(ctx, db, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema=? AND table_type='BASE TABLE'
ORDER BY table_name`, schemaName)
}
