package schema

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"schemabridge/internal/adapter"
	"schemabridge/internal/connection"
)

type updateCall struct {
	Collection string
	ID         string
	Data       adapter.Document
}

// recordingAdapter records every call. Func fields override the default
// behaviour of returning the configured documents.
type recordingAdapter struct {
	docs []adapter.Document

	getFunc    func(opts adapter.QueryOptions) ([]adapter.Document, error)
	updateFunc func(id string, data adapter.Document) error

	gets    []adapter.QueryOptions
	adds    []adapter.Document
	updates []updateCall
	deletes []string
}

func (m *recordingAdapter) Get(ctx context.Context, opts adapter.QueryOptions) ([]adapter.Document, error) {
	m.gets = append(m.gets, opts)
	if m.getFunc != nil {
		return m.getFunc(opts)
	}
	docs := m.docs
	if n, ok := opts.LimitValue(); ok && n < len(docs) {
		docs = docs[:n]
	}
	return docs, nil
}

func (m *recordingAdapter) AddDocument(ctx context.Context, collection string, data adapter.Document) (string, error) {
	m.adds = append(m.adds, data)
	return "new-id", nil
}

func (m *recordingAdapter) UpdateDocument(ctx context.Context, collection, id string, data adapter.Document) error {
	m.updates = append(m.updates, updateCall{Collection: collection, ID: id, Data: data})
	if m.updateFunc != nil {
		return m.updateFunc(id, data)
	}
	return nil
}

func (m *recordingAdapter) DeleteDocument(ctx context.Context, collection, id string) error {
	m.deletes = append(m.deletes, id)
	return nil
}

func (m *recordingAdapter) Raw(ctx context.Context, statement string, params []any, opts adapter.RawOptions) (any, error) {
	return nil, nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newTestRegistry returns a registry whose "main" connection (also the
// default) is backed by a.
func newTestRegistry(t *testing.T, a adapter.Adapter, opts ...Option) *Registry {
	t.Helper()
	conns := connection.NewTable()
	require.NoError(t, conns.Add("main", "mysql", a))
	conns.SetDefault("main")
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewRegistry(conns, opts...)
}

func registerUsers(t *testing.T, reg *Registry, opts Options, d Descriptor) {
	t.Helper()
	b, err := reg.Create("users")
	require.NoError(t, err)
	_, err = b.Use(Target{Connection: "main", Collection: "tbl_users"}).
		SetOptions(opts).
		SetStructure(d)
	require.NoError(t, err)
}

var userDescriptor = Descriptor{
	Def("id", "int auto-increment"),
	Def("name", "string"),
	Def("role", "string default.value member"),
	Def("createdOn", "date default_current_datetime"),
}
