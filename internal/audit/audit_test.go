package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemabridge/internal/apperr"
	"schemabridge/internal/connection"
	"schemabridge/internal/db"
	"schemabridge/internal/logging"
	"schemabridge/internal/schema"
)

func newRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	conns := connection.NewTable()
	require.NoError(t, conns.Add("main", "memory", db.NewMemoryAdapter()))
	conns.SetDefault("main")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return schema.NewRegistry(conns, schema.WithClock(func() time.Time { return now }))
}

func TestLogEventStoresDocument(t *testing.T) {
	reg := newRegistry(t)
	b, err := reg.Create("audit_events")
	require.NoError(t, err)
	_, err = b.SetStructure(Descriptor())
	require.NoError(t, err)

	rec := NewRecorder(reg, "audit_events", logging.New(&bytes.Buffer{}, "info"))
	require.True(t, rec.Enabled())
	require.NoError(t, rec.LogEvent(context.Background(), Event{
		Action:     "document_added",
		Schema:     "users",
		DocumentID: "7",
		Payload:    map[string]any{"name": "ada"},
	}))

	q, err := reg.Use("audit_events")
	require.NoError(t, err)
	docs, err := q.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "document_added", docs[0]["action"])
	assert.Equal(t, "7", docs[0]["documentId"])
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), docs[0]["createdOn"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(docs[0]["payload"].(string)), &payload))
	assert.Equal(t, "ada", payload["name"])
}

func TestLogEventDisabled(t *testing.T) {
	var rec *Recorder
	assert.False(t, rec.Enabled())
	assert.NoError(t, rec.LogEvent(context.Background(), Event{Action: "ignored"}))

	rec = NewRecorder(newRegistry(t), "", nil)
	assert.NoError(t, rec.LogEvent(context.Background(), Event{Action: "ignored"}))
}

func TestLogEventMissingSchema(t *testing.T) {
	var logs bytes.Buffer
	rec := NewRecorder(newRegistry(t), "audit_events", logging.New(&logs, "info"))

	err := rec.LogEvent(context.Background(), Event{Action: "document_added"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrSchemaMissing)
	assert.Contains(t, logs.String(), "audit log failed")
}

func TestLogEventUnencodablePayload(t *testing.T) {
	var logs bytes.Buffer
	rec := NewRecorder(newRegistry(t), "audit_events", logging.New(&logs, "info"))

	err := rec.LogEvent(context.Background(), Event{
		Action:  "document_added",
		Payload: map[string]any{"ch": make(chan int)},
	})
	require.Error(t, err)
	assert.Contains(t, logs.String(), "audit log failed")
	assert.Contains(t, logs.String(), "document_added")
}
