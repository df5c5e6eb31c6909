package db

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"schemabridge/internal/adapter"
	"schemabridge/internal/dialect"
)

// statement collects SQL text and its bound parameters. Values are never
// interpolated.
type statement struct {
	d      dialect.Name
	sql    strings.Builder
	params []any
}

func (s *statement) write(parts ...string) {
	for _, p := range parts {
		s.sql.WriteString(p)
	}
}

func (s *statement) bind(v any) string {
	s.params = append(s.params, toParam(v))
	return s.d.Placeholder(len(s.params))
}

func (s *statement) String() string { return s.sql.String() }

// compileSelect turns QueryOptions into a SELECT. A non-empty RawWhere wins
// over Filters.
func compileSelect(d dialect.Name, opts adapter.QueryOptions) (string, []any, error) {
	st := &statement{d: d}
	st.write("SELECT ", selectList(d, opts.Fields), " FROM ", d.Quote(opts.CollectionName))

	switch {
	case strings.TrimSpace(opts.RawWhere) != "":
		st.write(" WHERE (", opts.RawWhere, ")")
	case len(opts.Filters) > 0:
		st.write(" WHERE ")
		if err := compileFilters(st, opts.Filters); err != nil {
			return "", nil, err
		}
	}

	if opts.SortBy != nil && opts.SortBy.Field != "" {
		dir := "ASC"
		if strings.EqualFold(opts.SortBy.Direction, adapter.SortDesc) {
			dir = "DESC"
		}
		st.write(" ORDER BY ", d.Quote(opts.SortBy.Field), " ", dir)
	}

	limit, hasLimit := opts.LimitValue()
	offset, hasOffset := opts.OffsetValue()
	switch {
	case hasLimit:
		st.write(fmt.Sprintf(" LIMIT %d", limit))
	case hasOffset:
		if clause := unboundedLimit(d); clause != "" {
			st.write(clause)
		}
	}
	if hasOffset {
		st.write(fmt.Sprintf(" OFFSET %d", offset))
	}
	return st.String(), st.params, nil
}

func selectList(d dialect.Name, fields []string) string {
	if len(fields) == 0 {
		return "*"
	}
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, d.Quote(f))
	}
	return strings.Join(quoted, ", ")
}

func compileFilters(st *statement, filters []adapter.Filter) error {
	for i, f := range filters {
		if i > 0 {
			st.write(" AND ")
		}
		if err := compileFilter(st, f); err != nil {
			return err
		}
	}
	return nil
}

func compileFilter(st *statement, f adapter.Filter) error {
	op := strings.ToUpper(f.Operator)
	if op == "" {
		op = adapter.OpEq
	}
	if !adapter.ValidOperator(op) {
		return fmt.Errorf("unsupported operator %q on field %s", f.Operator, f.Field)
	}
	col := st.d.Quote(f.Field)

	if f.Value == nil {
		switch op {
		case adapter.OpEq:
			st.write(col, " IS NULL")
			return nil
		case adapter.OpNeq:
			st.write(col, " IS NOT NULL")
			return nil
		}
	}

	if op == adapter.OpIn {
		values := listValues(f.Value)
		if len(values) == 0 {
			st.write("1 = 0")
			return nil
		}
		marks := make([]string, 0, len(values))
		for _, v := range values {
			marks = append(marks, st.bind(v))
		}
		st.write(col, " IN (", strings.Join(marks, ", "), ")")
		return nil
	}

	if op == adapter.OpNeq {
		op = "<>"
	}
	st.write(col, " ", op, " ", st.bind(f.Value))
	return nil
}

// listValues expands a slice or array value; a scalar becomes a one element
// list.
func listValues(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	if b, ok := v.([]byte); ok {
		return []any{string(b)}
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out
}

// compileInsert builds an INSERT for data with columns in sorted order.
func compileInsert(d dialect.Name, table string, data adapter.Document) (string, []any) {
	st := &statement{d: d}
	keys := sortedKeys(data)
	st.write("INSERT INTO ", d.Quote(table))
	if len(keys) == 0 {
		st.write(emptyInsert(d))
	} else {
		cols := make([]string, 0, len(keys))
		marks := make([]string, 0, len(keys))
		for _, k := range keys {
			cols = append(cols, d.Quote(k))
			marks = append(marks, st.bind(data[k]))
		}
		st.write(" (", strings.Join(cols, ", "), ") VALUES (", strings.Join(marks, ", "), ")")
	}
	if d == dialect.Postgres {
		st.write(" RETURNING ", d.Quote(idColumn))
	}
	return st.String(), st.params
}

func compileUpdate(d dialect.Name, table, id string, data adapter.Document) (string, []any) {
	st := &statement{d: d}
	keys := sortedKeys(data)
	sets := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == idColumn {
			continue
		}
		sets = append(sets, d.Quote(k)+" = "+st.bind(data[k]))
	}
	st.write("UPDATE ", d.Quote(table), " SET ", strings.Join(sets, ", "))
	st.write(" WHERE ", d.Quote(idColumn), " = ", st.bind(id))
	return st.String(), st.params
}

func compileDelete(d dialect.Name, table, id string) (string, []any) {
	st := &statement{d: d}
	st.write("DELETE FROM ", d.Quote(table), " WHERE ", d.Quote(idColumn), " = ", st.bind(id))
	return st.String(), st.params
}

func sortedKeys(data adapter.Document) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == idColumn && data[k] == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
