// Package dialect names the SQL dialects and their identifier and
// placeholder conventions.
package dialect

import (
	"strconv"
	"strings"
)

type Name string

const (
	MySQL    Name = "mysql"
	Postgres Name = "postgres"
	SQLite   Name = "sqlite"
)

// Normalize maps provider names to a dialect. "sql" is an alias of postgres;
// anything unknown falls back to sqlite.
func Normalize(provider string) Name {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "mysql", "mariadb":
		return MySQL
	case "postgres", "postgresql", "pgx", "sql":
		return Postgres
	default:
		return SQLite
	}
}

// Quote quotes an identifier: backticks for mysql and sqlite, double quotes
// for postgres.
func (n Name) Quote(ident string) string {
	if n == Postgres {
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// Placeholder returns the bind marker for the i-th parameter (1-based).
func (n Name) Placeholder(i int) string {
	if n == Postgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// QuoteString renders s as a single-quoted SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
