package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemabridge/internal/adapter"
)

func newSQLiteAdapter(t *testing.T) *SQLAdapter {
	t.Helper()
	a, err := Open(Options{Provider: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.(*SQLAdapter).Close() })

	sqlAdapter := a.(*SQLAdapter)
	_, err = sqlAdapter.Raw(context.Background(), `
CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, age INTEGER, deletedOn TEXT);
INSERT INTO users (name, age) VALUES ('ann', 31);
INSERT INTO users (name, age) VALUES ('bob', 17);
INSERT INTO users (name, age) VALUES ('cid', 45);
`, nil, adapter.RawOptions{})
	require.NoError(t, err)
	return sqlAdapter
}

func names(docs []adapter.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d["name"].(string))
	}
	return out
}

func TestSQLAdapterGet(t *testing.T) {
	ctx := context.Background()
	a := newSQLiteAdapter(t)
	assert.Equal(t, "sqlite", a.Dialect())

	docs, err := a.Get(ctx, adapter.QueryOptions{
		CollectionName: "users",
		Filters:        []adapter.Filter{{Field: "age", Operator: ">", Value: 18}},
		SortBy:         &adapter.Sort{Field: "age", Direction: adapter.SortDesc},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cid", "ann"}, names(docs))

	docs, err = a.Get(ctx, adapter.QueryOptions{
		CollectionName: "users",
		Filters:        []adapter.Filter{{Field: "age", Operator: ">", Value: 100}},
		RawWhere:       "name LIKE 'b%'",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, names(docs))

	docs, err = a.Get(ctx, adapter.QueryOptions{
		CollectionName: "users",
		Fields:         []string{"name"},
		SortBy:         &adapter.Sort{Field: "name", Direction: adapter.SortAsc},
		Limit:          intPtr(1),
		Offset:         intPtr(1),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, adapter.Document{"name": "bob"}, docs[0])
}

func TestSQLAdapterGetOne(t *testing.T) {
	a := newSQLiteAdapter(t)
	doc, err := a.GetOne(context.Background(), adapter.QueryOptions{
		CollectionName: "users",
		Filters:        []adapter.Filter{{Field: "name", Operator: "=", Value: "ann"}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 31, doc["age"])

	doc, err = a.GetOne(context.Background(), adapter.QueryOptions{
		CollectionName: "users",
		Filters:        []adapter.Filter{{Field: "name", Operator: "=", Value: "nobody"}},
	})
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSQLAdapterWrites(t *testing.T) {
	ctx := context.Background()
	a := newSQLiteAdapter(t)

	id, err := a.AddDocument(ctx, "users", adapter.Document{"name": "dee", "age": 20})
	require.NoError(t, err)
	assert.Equal(t, "4", id)

	_, err = a.AddDocument(ctx, "users", adapter.Document{"name": "dee"})
	assert.True(t, errors.Is(err, ErrDuplicateKey))

	require.NoError(t, a.UpdateDocument(ctx, "users", id, adapter.Document{"age": 21}))
	require.NoError(t, a.UpdateDocument(ctx, "users", id, adapter.Document{}))
	doc, err := a.GetOne(ctx, adapter.QueryOptions{
		CollectionName: "users",
		Filters:        []adapter.Filter{{Field: "id", Operator: "=", Value: id}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 21, doc["age"])

	require.NoError(t, a.DeleteDocument(ctx, "users", id))
	docs, err := a.Get(ctx, adapter.QueryOptions{CollectionName: "users"})
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestSQLAdapterRawAndTransactions(t *testing.T) {
	ctx := context.Background()
	a := newSQLiteAdapter(t)

	out, err := a.Raw(ctx, "SELECT name FROM users WHERE age < ?", []any{20}, adapter.RawOptions{})
	require.NoError(t, err)
	assert.Equal(t, []adapter.Document{{"name": "bob"}}, out)

	binding := adapter.Resolve(a)
	require.True(t, binding.HasTransactions())

	boom := errors.New("boom")
	err = binding.Transact(ctx, func(tx any) error {
		n, err := a.Raw(ctx, "UPDATE users SET age = 0", nil, adapter.RawOptions{Transaction: tx})
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	docs, err := a.Get(ctx, adapter.QueryOptions{
		CollectionName: "users",
		Filters:        []adapter.Filter{{Field: "age", Operator: "=", Value: 0}},
	})
	require.NoError(t, err)
	assert.Empty(t, docs)

	tables, err := a.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)
}

func TestOpenRejectsUnknownProvider(t *testing.T) {
	_, err := Open(Options{Provider: "oracle"})
	require.Error(t, err)

	_, err = Open(Options{Provider: "mysql", DSN: "not a dsn"})
	require.Error(t, err)

	a, err := Open(Options{Provider: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryAdapter{}, a)
}
