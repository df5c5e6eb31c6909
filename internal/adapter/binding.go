package adapter

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTransactions is returned by Binding.Transact when the adapter does not
// implement Transactor.
var ErrNoTransactions = errors.New("adapter does not support transactions")

// Binding is an Adapter whose optional capabilities were detected once, when
// it was attached to a connection.
type Binding struct {
	Adapter

	one     OneGetter
	tx      Transactor
	dialect string
}

// Resolve inspects a once and records its optional capabilities.
func Resolve(a Adapter) *Binding {
	b := &Binding{Adapter: a}
	if one, ok := a.(OneGetter); ok {
		b.one = one
	}
	if tx, ok := a.(Transactor); ok {
		b.tx = tx
	}
	if d, ok := a.(Dialecter); ok {
		b.dialect = d.Dialect()
	}
	return b
}

// HasGetOne reports whether the adapter has a dedicated GetOne.
func (b *Binding) HasGetOne() bool { return b.one != nil }

// HasTransactions reports whether the adapter implements Transactor.
func (b *Binding) HasTransactions() bool { return b.tx != nil }

// Dialect returns the adapter's dialect, or "" if it does not declare one.
func (b *Binding) Dialect() string { return b.dialect }

// GetOne uses the adapter's GetOne when present and otherwise falls back to
// Get, returning the first element or nil.
func (b *Binding) GetOne(ctx context.Context, opts QueryOptions) (Document, error) {
	if b.one != nil {
		return b.one.GetOne(ctx, opts)
	}
	docs, err := b.Adapter.Get(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Transact runs fn inside a transaction. The transaction is rolled back if fn
// returns an error and committed otherwise.
func (b *Binding) Transact(ctx context.Context, fn func(tx any) error) error {
	if b.tx == nil {
		return ErrNoTransactions
	}
	handle, err := b.tx.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(handle); err != nil {
		if rbErr := b.tx.RollbackTransaction(ctx, handle); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := b.tx.CommitTransaction(ctx, handle); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
