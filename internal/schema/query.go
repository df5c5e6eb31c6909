package schema

import (
	"context"
	"strings"

	"schemabridge/internal/adapter"
	"schemabridge/internal/apperr"
)

// Query accumulates filters, projection, pagination and a pending update for
// one schema, then runs a terminal operation (Get, GetOne, Add, Update,
// UpdateOne, Delete, DeleteOne).
//
// A Query is single-use and not safe for concurrent use. Calling a terminal
// operation twice re-sends whatever state has accumulated; nothing is reset.
// Separate Queries share no state.
type Query struct {
	reg     *Registry
	def     *SchemaDef
	binding *adapter.Binding

	filters  []adapter.Filter
	rawWhere string
	limit    *int
	offset   *int
	sortBy   *adapter.Sort
	fields   []string
	payload  adapter.Document
}

// Schema returns the definition the query is bound to.
func (q *Query) Schema() *SchemaDef { return q.def }

// Where appends a filter. The operator defaults to "=". Filters are ANDed and
// never replace each other.
func (q *Query) Where(field string, value any, operator ...string) *Query {
	op := adapter.OpEq
	if len(operator) > 0 && operator[0] != "" {
		op = strings.ToUpper(strings.TrimSpace(operator[0]))
	}
	q.filters = append(q.filters, adapter.Filter{Field: field, Operator: op, Value: value})
	return q
}

// WhereComplex sets a backend-specific raw predicate. Structured filters are
// kept and forwarded too; adapters give the raw predicate precedence.
func (q *Query) WhereComplex(raw string) *Query {
	q.rawWhere = raw
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = &n
	return q
}

func (q *Query) Offset(n int) *Query {
	q.offset = &n
	return q
}

// SelectFields replaces the projection. No fields means all fields.
func (q *Query) SelectFields(names ...string) *Query {
	q.fields = append([]string(nil), names...)
	return q
}

// OrderBy sorts by field; direction is "asc" (default) or "desc".
func (q *Query) OrderBy(field, direction string) *Query {
	dir := adapter.SortAsc
	if strings.EqualFold(direction, adapter.SortDesc) {
		dir = adapter.SortDesc
	}
	q.sortBy = &adapter.Sort{Field: field, Direction: dir}
	return q
}

// To stores the pending update payload, replacing any earlier one.
func (q *Query) To(data adapter.Document) *Query {
	q.payload = data
	return q
}

// Set is an alias of To.
func (q *Query) Set(data adapter.Document) *Query {
	return q.To(data)
}

// QueryOptions builds the request the adapter would receive for Get.
func (q *Query) QueryOptions() adapter.QueryOptions {
	opts := adapter.QueryOptions{
		CollectionName: q.def.CollectionName,
		Filters:        append([]adapter.Filter(nil), q.filters...),
		RawWhere:       q.rawWhere,
		Fields:         append([]string(nil), q.fields...),
	}
	if q.limit != nil {
		n := *q.limit
		opts.Limit = &n
	}
	if q.offset != nil {
		n := *q.offset
		opts.Offset = &n
	}
	if q.sortBy != nil {
		s := *q.sortBy
		opts.SortBy = &s
	}
	return opts
}

// resolve looks the adapter up once and caches it for the life of the query.
func (q *Query) resolve() (*adapter.Binding, error) {
	if q.binding != nil {
		return q.binding, nil
	}
	b := q.reg.Adapter(q.def.ConnectionName)
	if b == nil {
		return nil, apperr.AdapterMissing(q.reg.conns.ResolveName(q.def.ConnectionName))
	}
	q.binding = b
	return b, nil
}

// Get returns the matching documents as the adapter produced them.
func (q *Query) Get(ctx context.Context) ([]adapter.Document, error) {
	b, err := q.resolve()
	if err != nil {
		return nil, err
	}
	return b.Get(ctx, q.QueryOptions())
}

// GetOne returns the first match or nil. The request always carries limit 1,
// whatever Limit was set to.
func (q *Query) GetOne(ctx context.Context) (adapter.Document, error) {
	b, err := q.resolve()
	if err != nil {
		return nil, err
	}
	opts := q.QueryOptions()
	one := 1
	opts.Limit = &one
	return b.GetOne(ctx, opts)
}

// scoped reports whether the query narrows its target set.
func (q *Query) scoped() bool {
	return len(q.filters) > 0 || q.rawWhere != "" || q.limit != nil
}

// guard forces limit 1 on an unscoped query when mass operations are not
// allowed.
func (q *Query) guard(allowed bool, op string) {
	if allowed || q.scoped() {
		return
	}
	one := 1
	q.limit = &one
	q.reg.logger.Info("mass operation guard applied",
		"schema", q.def.Name,
		"operation", op,
	)
}
