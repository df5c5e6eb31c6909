package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainAdapter struct {
	docs     []Document
	getCalls int
}

func (p *plainAdapter) Get(ctx context.Context, opts QueryOptions) ([]Document, error) {
	p.getCalls++
	return p.docs, nil
}
func (p *plainAdapter) AddDocument(ctx context.Context, collection string, data Document) (string, error) {
	return "", nil
}
func (p *plainAdapter) UpdateDocument(ctx context.Context, collection, id string, data Document) error {
	return nil
}
func (p *plainAdapter) DeleteDocument(ctx context.Context, collection, id string) error { return nil }
func (p *plainAdapter) Raw(ctx context.Context, statement string, params []any, opts RawOptions) (any, error) {
	return nil, nil
}

type richAdapter struct {
	plainAdapter
	oneCalls  int
	committed bool
	rolled    bool
}

func (r *richAdapter) GetOne(ctx context.Context, opts QueryOptions) (Document, error) {
	r.oneCalls++
	return Document{"id": "one"}, nil
}
func (r *richAdapter) BeginTransaction(ctx context.Context) (any, error) { return "tx", nil }
func (r *richAdapter) CommitTransaction(ctx context.Context, tx any) error {
	r.committed = true
	return nil
}
func (r *richAdapter) RollbackTransaction(ctx context.Context, tx any) error {
	r.rolled = true
	return nil
}
func (r *richAdapter) Dialect() string { return "mysql" }

func TestResolve_DetectsCapabilities(t *testing.T) {
	plain := Resolve(&plainAdapter{})
	assert.False(t, plain.HasGetOne())
	assert.False(t, plain.HasTransactions())
	assert.Equal(t, "", plain.Dialect())

	rich := Resolve(&richAdapter{})
	assert.True(t, rich.HasGetOne())
	assert.True(t, rich.HasTransactions())
	assert.Equal(t, "mysql", rich.Dialect())
}

func TestBinding_GetOneFallsBackToGet(t *testing.T) {
	a := &plainAdapter{docs: []Document{{"id": "1"}, {"id": "2"}}}
	b := Resolve(a)

	doc, err := b.GetOne(context.Background(), QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, Document{"id": "1"}, doc)
	assert.Equal(t, 1, a.getCalls)

	a.docs = nil
	doc, err = b.GetOne(context.Background(), QueryOptions{})
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestBinding_GetOnePrefersDedicatedMethod(t *testing.T) {
	a := &richAdapter{}
	doc, err := Resolve(a).GetOne(context.Background(), QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "one", doc["id"])
	assert.Equal(t, 1, a.oneCalls)
	assert.Equal(t, 0, a.getCalls)
}

func TestBinding_Transact(t *testing.T) {
	a := &richAdapter{}
	err := Resolve(a).Transact(context.Background(), func(tx any) error {
		assert.Equal(t, "tx", tx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, a.committed)
	assert.False(t, a.rolled)

	a = &richAdapter{}
	boom := errors.New("boom")
	err = Resolve(a).Transact(context.Background(), func(tx any) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, a.rolled)
	assert.False(t, a.committed)

	err = Resolve(&plainAdapter{}).Transact(context.Background(), func(tx any) error { return nil })
	assert.ErrorIs(t, err, ErrNoTransactions)
}

func TestValidOperator(t *testing.T) {
	for _, op := range Operators {
		assert.True(t, ValidOperator(op), op)
	}
	assert.False(t, ValidOperator("<>"))
	assert.False(t, ValidOperator("like"))
}
