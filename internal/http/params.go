package httpserver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"schemabridge/internal/adapter"
	"schemabridge/internal/schema"
)

// operatorAliases lets URLs spell operators without escaping.
var operatorAliases = map[string]string{
	"eq":   adapter.OpEq,
	"ne":   adapter.OpNeq,
	"neq":  adapter.OpNeq,
	"gt":   adapter.OpGt,
	"lt":   adapter.OpLt,
	"gte":  adapter.OpGte,
	"lte":  adapter.OpLte,
	"like": adapter.OpLike,
	"in":   adapter.OpIn,
}

type filterParam struct {
	Field    string
	Operator string
	Value    string
}

// listParams is the parsed query string of a collection request:
//
//	?filter=age:gte:18&filter=role:in:admin,member&sort=name:desc
//	&limit=10&offset=20&fields=id,name&where=...
type listParams struct {
	Filters []filterParam
	Where   string
	Limit   *int
	Offset  *int
	Fields  []string
	Sort    *adapter.Sort
}

func parseListParams(values url.Values) (listParams, error) {
	var p listParams
	for _, raw := range values["filter"] {
		f, err := parseFilter(raw)
		if err != nil {
			return listParams{}, err
		}
		p.Filters = append(p.Filters, f)
	}
	p.Where = strings.TrimSpace(values.Get("where"))

	var err error
	if p.Limit, err = intParam(values, "limit"); err != nil {
		return listParams{}, err
	}
	if p.Offset, err = intParam(values, "offset"); err != nil {
		return listParams{}, err
	}
	if fields := values.Get("fields"); fields != "" {
		p.Fields = splitList(fields)
	}
	if s := values.Get("sort"); s != "" {
		field, dir, _ := strings.Cut(s, ":")
		if field == "" {
			return listParams{}, fmt.Errorf("sort needs a field")
		}
		if dir != "" && !strings.EqualFold(dir, adapter.SortAsc) && !strings.EqualFold(dir, adapter.SortDesc) {
			return listParams{}, fmt.Errorf("sort direction %q is not asc or desc", dir)
		}
		p.Sort = &adapter.Sort{Field: field, Direction: strings.ToLower(dir)}
	}
	return p, nil
}

// parseFilter reads "field:value" or "field:op:value".
func parseFilter(raw string) (filterParam, error) {
	parts := strings.SplitN(raw, ":", 3)
	switch len(parts) {
	case 2:
		if parts[0] == "" {
			return filterParam{}, fmt.Errorf("filter %q has no field", raw)
		}
		return filterParam{Field: parts[0], Operator: adapter.OpEq, Value: parts[1]}, nil
	case 3:
		if parts[0] == "" {
			return filterParam{}, fmt.Errorf("filter %q has no field", raw)
		}
		op := strings.ToUpper(parts[1])
		if alias, ok := operatorAliases[strings.ToLower(parts[1])]; ok {
			op = alias
		}
		if !adapter.ValidOperator(op) {
			return filterParam{}, fmt.Errorf("filter %q: unsupported operator %q", raw, parts[1])
		}
		return filterParam{Field: parts[0], Operator: op, Value: parts[2]}, nil
	default:
		return filterParam{}, fmt.Errorf("filter %q must be field:value or field:op:value", raw)
	}
}

func intParam(values url.Values, key string) (*int, error) {
	raw := values.Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return &n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// apply copies the parameters onto q. Filter values are converted to the
// declared type of their field.
func (p listParams) apply(q *schema.Query) {
	def := q.Schema()
	for _, f := range p.Filters {
		var value any
		if f.Operator == adapter.OpIn {
			items := splitList(f.Value)
			values := make([]any, 0, len(items))
			for _, item := range items {
				values = append(values, typedValue(def, f.Field, item))
			}
			value = values
		} else {
			value = typedValue(def, f.Field, f.Value)
		}
		q.Where(f.Field, value, f.Operator)
	}
	if p.Where != "" {
		q.WhereComplex(p.Where)
	}
	if p.Limit != nil {
		q.Limit(*p.Limit)
	}
	if p.Offset != nil {
		q.Offset(*p.Offset)
	}
	if len(p.Fields) > 0 {
		q.SelectFields(p.Fields...)
	}
	if p.Sort != nil {
		q.OrderBy(p.Sort.Field, p.Sort.Direction)
	}
}

// typedValue parses raw according to the field's type. Values that do not
// parse, and undeclared fields, stay strings. "null" is nil.
func typedValue(def *schema.SchemaDef, field, raw string) any {
	if raw == "null" {
		return nil
	}
	f, ok := def.Field(field)
	if !ok {
		return raw
	}
	switch f.Type {
	case schema.TypeInt:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case schema.TypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	case schema.TypeBoolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

// typedDocument converts JSON numbers of int fields to int64.
func typedDocument(def *schema.SchemaDef, doc adapter.Document) adapter.Document {
	for key, v := range doc {
		n, ok := v.(float64)
		if !ok {
			continue
		}
		if f, declared := def.Field(key); declared && f.Type == schema.TypeInt && n == float64(int64(n)) {
			doc[key] = int64(n)
		}
	}
	return doc
}
