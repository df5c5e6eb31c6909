package schema

import (
	"context"
	"fmt"
	"maps"

	"schemabridge/internal/adapter"
	"schemabridge/internal/apperr"
)

// Add inserts data and returns the new document's id.
//
// Keys are filtered first: InsertableFields when set, otherwise the declared
// fields unless the schema allows undefined fields. Declared fields that are
// still absent then receive their defaults, with NOW() resolved to the
// registry clock. An explicit nil is kept.
func (q *Query) Add(ctx context.Context, data adapter.Document) (string, error) {
	b, err := q.resolve()
	if err != nil {
		return "", err
	}
	doc := q.allow(data, q.def.InsertableFields)
	q.fillDefaults(doc)
	return b.AddDocument(ctx, q.def.CollectionName, doc)
}

// Update applies the pending payload to every matching document and returns
// how many were updated. A payload passed here replaces one set with To/Set.
//
// Matches are updated one at a time; a failure stops the loop and leaves the
// documents already updated as they are.
func (q *Query) Update(ctx context.Context, data ...adapter.Document) (int, error) {
	if len(data) > 0 && data[0] != nil {
		q.payload = data[0]
	}
	if q.payload == nil {
		return 0, apperr.UpdatePayloadMissing(q.def.Name)
	}
	doc := q.allow(q.payload, q.def.UpdatableFields)
	q.guard(q.def.MassEditAllowed, "update")
	return q.apply(ctx, doc)
}

// UpdateOne limits the update to one document.
func (q *Query) UpdateOne(ctx context.Context, data ...adapter.Document) (int, error) {
	q.Limit(1)
	return q.Update(ctx, data...)
}

// Delete removes every matching document and returns how many were removed.
//
// Soft-delete schemas never issue a physical delete: the call becomes an
// update writing DeletedOnField. That update bypasses the update allowlist
// but is subject to both the delete and the edit guard.
func (q *Query) Delete(ctx context.Context) (int, error) {
	q.guard(q.def.MassDeleteAllowed, "delete")
	if q.def.DeleteType == SoftDelete {
		q.guard(q.def.MassEditAllowed, "update")
		q.Set(adapter.Document{DeletedOnField: q.reg.now()})
		return q.apply(ctx, q.payload)
	}

	b, err := q.resolve()
	if err != nil {
		return 0, err
	}
	docs, err := b.Get(ctx, q.QueryOptions())
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, d := range docs {
		id, ok := documentID(d)
		if !ok {
			return deleted, apperr.DocumentMissingID(q.def.CollectionName)
		}
		if err := b.DeleteDocument(ctx, q.def.CollectionName, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// DeleteOne limits the delete to one document.
func (q *Query) DeleteOne(ctx context.Context) (int, error) {
	q.Limit(1)
	return q.Delete(ctx)
}

func (q *Query) apply(ctx context.Context, doc adapter.Document) (int, error) {
	b, err := q.resolve()
	if err != nil {
		return 0, err
	}
	docs, err := b.Get(ctx, q.QueryOptions())
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, d := range docs {
		id, ok := documentID(d)
		if !ok {
			return updated, apperr.DocumentMissingID(q.def.CollectionName)
		}
		if err := b.UpdateDocument(ctx, q.def.CollectionName, id, maps.Clone(doc)); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// allow filters data down to the keys the schema accepts for a write.
func (q *Query) allow(data adapter.Document, allowlist []string) adapter.Document {
	out := make(adapter.Document, len(data))
	switch {
	case allowlist != nil:
		for _, key := range allowlist {
			if v, ok := data[key]; ok {
				out[key] = v
			}
		}
	case !q.def.AllowUndefinedFields:
		for key, v := range data {
			if _, ok := q.def.FieldsMap[key]; ok {
				out[key] = v
			}
		}
	default:
		for key, v := range data {
			out[key] = v
		}
	}
	return out
}

func (q *Query) fillDefaults(doc adapter.Document) {
	for _, f := range q.def.Fields {
		if !f.HasDefault() {
			continue
		}
		if _, ok := doc[f.Name]; ok {
			continue
		}
		if s, ok := f.DefaultValue.(string); ok && s == DefaultNow {
			doc[f.Name] = q.reg.now()
			continue
		}
		doc[f.Name] = f.DefaultValue
	}
}

// documentID returns the document's "id" rendered as a string.
func documentID(d adapter.Document) (string, bool) {
	v, ok := d["id"]
	if !ok || v == nil {
		return "", false
	}
	switch id := v.(type) {
	case string:
		return id, id != ""
	case []byte:
		return string(id), len(id) > 0
	default:
		return fmt.Sprint(id), true
	}
}
