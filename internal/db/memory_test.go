package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemabridge/internal/adapter"
	"schemabridge/internal/apperr"
)

func seededMemory(t *testing.T) *MemoryAdapter {
	t.Helper()
	m := NewMemoryAdapter()
	for _, doc := range []adapter.Document{
		{"id": "1", "name": "Alice", "age": 31, "role": "admin"},
		{"id": "2", "name": "bob", "age": 17.0, "role": "user"},
		{"id": "3", "name": "Carol", "age": int64(45), "role": nil},
	} {
		_, err := m.AddDocument(context.Background(), "users", doc)
		require.NoError(t, err)
	}
	return m
}

func ids(docs []adapter.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d["id"].(string))
	}
	return out
}

func TestMemoryAdapterFilters(t *testing.T) {
	ctx := context.Background()
	m := seededMemory(t)

	testCases := []struct {
		name    string
		filters []adapter.Filter
		want    []string
	}{
		{"equal across numeric types", []adapter.Filter{{Field: "age", Operator: "=", Value: 17}}, []string{"2"}},
		{"greater than", []adapter.Filter{{Field: "age", Operator: ">", Value: 20}}, []string{"1", "3"}},
		{"not equal", []adapter.Filter{{Field: "role", Operator: "!=", Value: "admin"}}, []string{"2", "3"}},
		{"null equality", []adapter.Filter{{Field: "role", Operator: "=", Value: nil}}, []string{"3"}},
		{"like is case-insensitive", []adapter.Filter{{Field: "name", Operator: "LIKE", Value: "B%"}}, []string{"2"}},
		{"like percent wildcard", []adapter.Filter{{Field: "name", Operator: "like", Value: "a%e"}}, []string{"1"}},
		{"like percent on both sides", []adapter.Filter{{Field: "name", Operator: "LIKE", Value: "%o%"}}, []string{"2", "3"}},
		{"like matches the whole value", []adapter.Filter{{Field: "name", Operator: "LIKE", Value: "l%"}}, []string{}},
		{"like underscore is one character", []adapter.Filter{{Field: "name", Operator: "LIKE", Value: "_ob"}}, []string{"2"}},
		{"like dot is literal", []adapter.Filter{{Field: "name", Operator: "LIKE", Value: "b.b"}}, []string{}},
		{"in", []adapter.Filter{{Field: "id", Operator: "IN", Value: []string{"1", "3"}}}, []string{"1", "3"}},
		{"anded", []adapter.Filter{
			{Field: "age", Operator: ">=", Value: 17},
			{Field: "age", Operator: "<=", Value: 31},
		}, []string{"1", "2"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			docs, err := m.Get(ctx, adapter.QueryOptions{CollectionName: "users", Filters: tc.filters})
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(docs))
		})
	}
}

func TestMemoryAdapterSortPageProject(t *testing.T) {
	m := seededMemory(t)
	docs, err := m.Get(context.Background(), adapter.QueryOptions{
		CollectionName: "users",
		SortBy:         &adapter.Sort{Field: "age", Direction: "DESC"},
		Offset:         intPtr(1),
		Limit:          intPtr(5),
		Fields:         []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, []adapter.Document{{"id": "1"}, {"id": "2"}}, docs)

	docs, err = m.Get(context.Background(), adapter.QueryOptions{CollectionName: "users", Offset: intPtr(10)})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryAdapterWrites(t *testing.T) {
	ctx := context.Background()
	m := seededMemory(t)

	id, err := m.AddDocument(ctx, "users", adapter.Document{"name": "dan"})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	_, err = m.AddDocument(ctx, "users", adapter.Document{"id": "1"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	require.NoError(t, m.UpdateDocument(ctx, "users", "2", adapter.Document{"age": 18, "id": "zzz"}))
	docs, err := m.Get(ctx, adapter.QueryOptions{
		CollectionName: "users",
		Filters:        []adapter.Filter{{Field: "id", Operator: "=", Value: "2"}},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 18, docs[0]["age"])

	require.NoError(t, m.DeleteDocument(ctx, "users", "2"))
	err = m.DeleteDocument(ctx, "users", "2")
	assert.True(t, errors.Is(err, ErrDocumentNotFound))
	assert.ErrorIs(t, m.UpdateDocument(ctx, "users", "2", adapter.Document{"a": 1}), ErrDocumentNotFound)

	tables, err := m.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)
}

func TestMemoryAdapterReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := seededMemory(t)
	docs, err := m.Get(ctx, adapter.QueryOptions{CollectionName: "users", Limit: intPtr(1)})
	require.NoError(t, err)
	docs[0]["name"] = "mutated"

	docs, err = m.Get(ctx, adapter.QueryOptions{CollectionName: "users", Limit: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, "Alice", docs[0]["name"])
}

func TestMemoryAdapterRawUnsupported(t *testing.T) {
	ctx := context.Background()
	m := seededMemory(t)

	_, err := m.Raw(ctx, "SELECT 1", nil, adapter.RawOptions{})
	assert.ErrorIs(t, err, apperr.ErrRawUnsupported)

	_, err = m.Get(ctx, adapter.QueryOptions{CollectionName: "users", RawWhere: "age > 1"})
	assert.ErrorIs(t, err, apperr.ErrRawUnsupported)

	binding := adapter.Resolve(m)
	assert.False(t, binding.HasGetOne())
	assert.False(t, binding.HasTransactions())
	assert.Empty(t, binding.Dialect())
}
