package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	testCases := map[string]Name{
		"mysql":      MySQL,
		"MySQL":      MySQL,
		"postgres":   Postgres,
		"postgresql": Postgres,
		"sql":        Postgres,
		"sqlite":     SQLite,
		"sqlite3":    SQLite,
		"":           SQLite,
		"memory":     SQLite,
	}
	for in, want := range testCases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "`users`", MySQL.Quote("users"))
	assert.Equal(t, "`we``ird`", SQLite.Quote("we`ird"))
	assert.Equal(t, `"users"`, Postgres.Quote("users"))
	assert.Equal(t, `"we""ird"`, Postgres.Quote(`we"ird`))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "?", MySQL.Placeholder(3))
	assert.Equal(t, "?", SQLite.Placeholder(1))
	assert.Equal(t, "$3", Postgres.Placeholder(3))
}

func TestQuoteString(t *testing.T) {
	assert.Equal(t, "'it''s'", QuoteString("it's"))
}
