package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"schemabridge/internal/adapter"
	"schemabridge/internal/dialect"
)

// idColumn is the primary key column every SQL collection is expected to have.
const idColumn = "id"

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLAdapter implements adapter.Adapter on top of database/sql. When
// QueryOptions.RawWhere is set it is used as the WHERE clause and Filters are
// ignored.
type SQLAdapter struct {
	db      *sql.DB
	dialect dialect.Name
}

func NewSQLAdapter(db *sql.DB, d dialect.Name) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: d}
}

func (a *SQLAdapter) Dialect() string { return string(a.dialect) }

func (a *SQLAdapter) Close() error { return a.db.Close() }

// Ping checks connectivity.
func (a *SQLAdapter) Ping(ctx context.Context) error { return a.db.PingContext(ctx) }

func (a *SQLAdapter) Get(ctx context.Context, opts adapter.QueryOptions) ([]adapter.Document, error) {
	stmt, params, err := compileSelect(a.dialect, opts)
	if err != nil {
		return nil, err
	}
	rows, err := a.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (a *SQLAdapter) GetOne(ctx context.Context, opts adapter.QueryOptions) (adapter.Document, error) {
	one := 1
	opts.Limit = &one
	docs, err := a.Get(ctx, opts)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// AddDocument inserts data and returns the id: the one supplied in data, the
// one returned by postgres, or the driver's last insert id.
func (a *SQLAdapter) AddDocument(ctx context.Context, collection string, data adapter.Document) (string, error) {
	stmt, params := compileInsert(a.dialect, collection, data)
	if a.dialect == dialect.Postgres {
		var id any
		if err := a.db.QueryRowContext(ctx, stmt, params...).Scan(&id); err != nil {
			return "", classify(err)
		}
		return formatID(id), nil
	}
	res, err := a.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return "", classify(err)
	}
	if id, ok := data[idColumn]; ok && id != nil {
		return formatID(id), nil
	}
	last, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("read insert id: %w", err)
	}
	return strconv.FormatInt(last, 10), nil
}

func (a *SQLAdapter) UpdateDocument(ctx context.Context, collection, id string, data adapter.Document) error {
	if len(withoutID(data)) == 0 {
		return nil
	}
	stmt, params := compileUpdate(a.dialect, collection, id, data)
	if _, err := a.db.ExecContext(ctx, stmt, params...); err != nil {
		return classify(err)
	}
	return nil
}

func (a *SQLAdapter) DeleteDocument(ctx context.Context, collection, id string) error {
	stmt, params := compileDelete(a.dialect, collection, id)
	_, err := a.db.ExecContext(ctx, stmt, params...)
	return err
}

// Raw runs statement on the connection, or on opts.Transaction when set.
// Row-returning statements yield []adapter.Document; others yield the number
// of affected rows. A parameterless script with several statements is split
// and run statement by statement.
func (a *SQLAdapter) Raw(ctx context.Context, statement string, params []any, opts adapter.RawOptions) (any, error) {
	var q queryer = a.db
	if opts.Transaction != nil {
		tx, ok := opts.Transaction.(*sql.Tx)
		if !ok {
			return nil, fmt.Errorf("transaction handle has type %T, want *sql.Tx", opts.Transaction)
		}
		q = tx
	}

	if returnsRows(statement) {
		rows, err := q.QueryContext(ctx, statement, params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanDocuments(rows)
	}

	statements := []string{statement}
	if len(params) == 0 {
		statements = splitStatements(statement)
	}
	var affected int64
	for _, stmt := range statements {
		res, err := q.ExecContext(ctx, stmt, params...)
		if err != nil {
			return affected, err
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	return affected, nil
}

func (a *SQLAdapter) BeginTransaction(ctx context.Context) (any, error) {
	return a.db.BeginTx(ctx, nil)
}

func (a *SQLAdapter) CommitTransaction(ctx context.Context, tx any) error {
	t, ok := tx.(*sql.Tx)
	if !ok {
		return fmt.Errorf("transaction handle has type %T, want *sql.Tx", tx)
	}
	return t.Commit()
}

func (a *SQLAdapter) RollbackTransaction(ctx context.Context, tx any) error {
	t, ok := tx.(*sql.Tx)
	if !ok {
		return fmt.Errorf("transaction handle has type %T, want *sql.Tx", tx)
	}
	if err := t.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func returnsRows(statement string) bool {
	head := strings.ToUpper(strings.TrimSpace(statement))
	for _, prefix := range []string{"SELECT", "WITH", "PRAGMA", "SHOW", "EXPLAIN", "DESCRIBE"} {
		if strings.HasPrefix(head, prefix) {
			return true
		}
	}
	return strings.Contains(head, " RETURNING ")
}

// scanDocuments reads every row into a Document keyed by column name.
func scanDocuments(rows *sql.Rows) ([]adapter.Document, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []adapter.Document{}
	for rows.Next() {
		values := make([]any, len(cols))
		pointers := make([]any, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		doc := make(adapter.Document, len(cols))
		for i, name := range cols {
			if b, ok := values[i].([]byte); ok {
				doc[name] = string(b)
				continue
			}
			doc[name] = values[i]
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// toParam converts values drivers do not accept natively. Maps and slices
// are stored as JSON text.
func toParam(v any) any {
	switch val := v.(type) {
	case nil, string, []byte, bool, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case json.Number:
		return val.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

func formatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case []byte:
		return string(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return fmt.Sprint(id)
	}
}

func withoutID(data adapter.Document) adapter.Document {
	out := make(adapter.Document, len(data))
	for k, v := range data {
		if k != idColumn {
			out[k] = v
		}
	}
	return out
}

// splitStatements is a small helper used by Raw to avoid driver differences
// around multi-statements.
func splitStatements(sqlText string) []string {
	var (
		out      []string
		current  strings.Builder
		inSingle bool
		inDouble bool
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			out = append(out, stmt)
		}
		current.Reset()
	}

	for _, r := range sqlText {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case ';':
			if !inSingle && !inDouble {
				flush()
				continue
			}
		}
		current.WriteRune(r)
	}
	flush()
	return out
}
