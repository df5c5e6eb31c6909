// Package adapter defines the contract every storage backend implements.
//
// The core never depends on a concrete backend. Query builders and the
// migration queue only see an Adapter, wrapped in a Binding that records which
// optional capabilities the backend has.
//
// Filter precedence: when QueryOptions.RawWhere is non-empty an adapter MUST
// evaluate it and ignore Filters. Builders forward both so that the adapter
// makes this choice in one place.
package adapter

import "context"

// Document is one record as exchanged with a backend.
type Document map[string]any

// Operators understood in Filter.Operator. Adapters translate them into their
// own query language (LIKE is a regex match in a document store).
const (
	OpEq   = "="
	OpGt   = ">"
	OpLt   = "<"
	OpGte  = ">="
	OpLte  = "<="
	OpNeq  = "!="
	OpLike = "LIKE"
	OpIn   = "IN"
)

// Operators lists every supported operator.
var Operators = []string{OpEq, OpGt, OpLt, OpGte, OpLte, OpNeq, OpLike, OpIn}

// ValidOperator reports whether op is one of Operators.
func ValidOperator(op string) bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Filter is one predicate. Filters in QueryOptions are ANDed.
type Filter struct {
	Field    string
	Operator string
	Value    any
}

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Sort orders results by one field.
type Sort struct {
	Field     string
	Direction string
}

// QueryOptions is the request handed to Adapter.Get. It is built fresh for
// every terminal builder operation. Nil Limit/Offset/SortBy mean unset and an
// empty Fields slice means all fields.
type QueryOptions struct {
	CollectionName string
	Filters        []Filter
	RawWhere       string
	Limit          *int
	Offset         *int
	SortBy         *Sort
	Fields         []string
}

// LimitValue returns the limit and whether it is set.
func (o QueryOptions) LimitValue() (int, bool) {
	if o.Limit == nil {
		return 0, false
	}
	return *o.Limit, true
}

// OffsetValue returns the offset and whether it is set.
func (o QueryOptions) OffsetValue() (int, bool) {
	if o.Offset == nil {
		return 0, false
	}
	return *o.Offset, true
}

// RawOptions carries per-statement options for Adapter.Raw.
type RawOptions struct {
	// Transaction is a handle returned by Transactor.BeginTransaction.
	Transaction any
}

// Adapter is the required part of the backend contract.
//
// Identifiers returned by AddDocument must be usable verbatim as the id passed
// to UpdateDocument and DeleteDocument. An adapter that cannot run raw
// statements returns an apperr.ErrRawUnsupported error from Raw.
type Adapter interface {
	Get(ctx context.Context, opts QueryOptions) ([]Document, error)
	AddDocument(ctx context.Context, collection string, data Document) (string, error)
	UpdateDocument(ctx context.Context, collection, id string, data Document) error
	DeleteDocument(ctx context.Context, collection, id string) error
	Raw(ctx context.Context, statement string, params []any, opts RawOptions) (any, error)
}

// OneGetter is implemented by adapters with a dedicated single-record read.
// A nil Document with a nil error means no match.
type OneGetter interface {
	GetOne(ctx context.Context, opts QueryOptions) (Document, error)
}

// Transactor is implemented by adapters that support transactions.
type Transactor interface {
	BeginTransaction(ctx context.Context) (any, error)
	CommitTransaction(ctx context.Context, tx any) error
	RollbackTransaction(ctx context.Context, tx any) error
}

// Dialecter is implemented by adapters that know their SQL dialect.
type Dialecter interface {
	Dialect() string
}
