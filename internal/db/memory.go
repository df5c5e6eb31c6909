package db

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"schemabridge/internal/adapter"
	"schemabridge/internal/apperr"
)

var ErrDocumentNotFound = errors.New("document not found")

// MemoryAdapter is an in-process document store. Collections are created on
// first insert. LIKE filters match the whole value case-insensitively, with
// "%" matching any run of characters and "_" exactly one. Raw statements and
// RawWhere are not supported.
type MemoryAdapter struct {
	mu          sync.RWMutex
	collections map[string][]adapter.Document
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{collections: map[string][]adapter.Document{}}
}

func (m *MemoryAdapter) Get(ctx context.Context, opts adapter.QueryOptions) ([]adapter.Document, error) {
	if strings.TrimSpace(opts.RawWhere) != "" {
		return nil, apperr.RawUnsupported("memory")
	}
	matchers, err := compileMatchers(opts.Filters)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	var matched []adapter.Document
	for _, doc := range m.collections[opts.CollectionName] {
		if matchAll(doc, matchers) {
			matched = append(matched, doc)
		}
	}
	m.mu.RUnlock()

	if opts.SortBy != nil && opts.SortBy.Field != "" {
		field := opts.SortBy.Field
		desc := strings.EqualFold(opts.SortBy.Direction, adapter.SortDesc)
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareValues(matched[i][field], matched[j][field])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	if offset, ok := opts.OffsetValue(); ok {
		if offset >= len(matched) {
			matched = nil
		} else if offset > 0 {
			matched = matched[offset:]
		}
	}
	if limit, ok := opts.LimitValue(); ok && limit >= 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	out := make([]adapter.Document, 0, len(matched))
	for _, doc := range matched {
		out = append(out, project(doc, opts.Fields))
	}
	return out, nil
}

// AddDocument stores a copy of data. A missing id is generated.
func (m *MemoryAdapter) AddDocument(ctx context.Context, collection string, data adapter.Document) (string, error) {
	doc := maps.Clone(data)
	if doc == nil {
		doc = adapter.Document{}
	}
	id := uuid.NewString()
	if v, ok := doc[idColumn]; ok && v != nil {
		id = formatID(v)
	}
	doc[idColumn] = id

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(collection, id) >= 0 {
		return "", &DuplicateKeyError{Err: fmt.Errorf("%s already has a document with id %s", collection, id)}
	}
	m.collections[collection] = append(m.collections[collection], doc)
	return id, nil
}

// UpdateDocument merges data into the stored document. The id is immutable.
func (m *MemoryAdapter) UpdateDocument(ctx context.Context, collection, id string, data adapter.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(collection, id)
	if i < 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
	}
	doc := maps.Clone(m.collections[collection][i])
	for k, v := range data {
		if k == idColumn {
			continue
		}
		doc[k] = v
	}
	m.collections[collection][i] = doc
	return nil
}

func (m *MemoryAdapter) DeleteDocument(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(collection, id)
	if i < 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
	}
	docs := m.collections[collection]
	m.collections[collection] = append(docs[:i:i], docs[i+1:]...)
	return nil
}

func (m *MemoryAdapter) Raw(ctx context.Context, statement string, params []any, opts adapter.RawOptions) (any, error) {
	return nil, apperr.RawUnsupported("memory")
}

// Tables lists the collections holding at least one document.
func (m *MemoryAdapter) Tables(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name, docs := range m.collections {
		if len(docs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryAdapter) indexOf(collection, id string) int {
	for i, doc := range m.collections[collection] {
		if formatID(doc[idColumn]) == id {
			return i
		}
	}
	return -1
}

func project(doc adapter.Document, fields []string) adapter.Document {
	if len(fields) == 0 {
		return maps.Clone(doc)
	}
	out := make(adapter.Document, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

type matcher struct {
	adapter.Filter
	op      string
	pattern *regexp.Regexp
}

func compileMatchers(filters []adapter.Filter) ([]matcher, error) {
	out := make([]matcher, 0, len(filters))
	for _, f := range filters {
		op := strings.ToUpper(f.Operator)
		if op == "" {
			op = adapter.OpEq
		}
		if !adapter.ValidOperator(op) {
			return nil, fmt.Errorf("unsupported operator %q on field %s", f.Operator, f.Field)
		}
		m := matcher{Filter: f, op: op}
		if op == adapter.OpLike {
			re, err := likePattern(fmt.Sprint(f.Value))
			if err != nil {
				return nil, fmt.Errorf("like pattern on %s: %w", f.Field, err)
			}
			m.pattern = re
		}
		out = append(out, m)
	}
	return out, nil
}

// likePattern translates a LIKE pattern into an anchored, case-insensitive
// expression: "%" matches any run, "_" one character, the rest is literal.
func likePattern(like string) (*regexp.Regexp, error) {
	var expr strings.Builder
	expr.WriteString("(?is)^")
	for _, r := range like {
		switch r {
		case '%':
			expr.WriteString(".*")
		case '_':
			expr.WriteString(".")
		default:
			expr.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	expr.WriteString("$")
	return regexp.Compile(expr.String())
}

func matchAll(doc adapter.Document, matchers []matcher) bool {
	for _, m := range matchers {
		if !m.match(doc[m.Field]) {
			return false
		}
	}
	return true
}

func (m matcher) match(v any) bool {
	switch m.op {
	case adapter.OpEq:
		return equalValues(v, m.Value)
	case adapter.OpNeq:
		return !equalValues(v, m.Value)
	case adapter.OpGt:
		return v != nil && compareValues(v, m.Value) > 0
	case adapter.OpLt:
		return v != nil && compareValues(v, m.Value) < 0
	case adapter.OpGte:
		return v != nil && compareValues(v, m.Value) >= 0
	case adapter.OpLte:
		return v != nil && compareValues(v, m.Value) <= 0
	case adapter.OpLike:
		return v != nil && m.pattern.MatchString(fmt.Sprint(v))
	case adapter.OpIn:
		for _, candidate := range listValues(m.Value) {
			if equalValues(v, candidate) {
				return true
			}
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return compareValues(a, b) == 0
}

// compareValues orders numbers numerically, times chronologically and
// everything else by its string form. nil sorts first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	if x, ok := a.(time.Time); ok {
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
