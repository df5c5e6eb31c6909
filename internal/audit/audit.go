// Package audit records write operations made through the HTTP API as
// documents of a dedicated schema.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schemabridge/internal/adapter"
	"schemabridge/internal/schema"
)

type Logger interface {
	Error(msg string, args ...any)
}

type Event struct {
	Action     string
	Schema     string
	DocumentID string
	Payload    map[string]any
}

// Recorder writes events into Schema. A Recorder with no schema, or a nil
// Recorder, drops every event.
type Recorder struct {
	reg    *schema.Registry
	schema string
	logger Logger
	now    func() time.Time
}

func NewRecorder(reg *schema.Registry, schemaName string, logger Logger) *Recorder {
	return &Recorder{reg: reg, schema: schemaName, logger: logger, now: reg.Now}
}

// Enabled reports whether events are stored.
func (r *Recorder) Enabled() bool {
	return r != nil && r.schema != ""
}

// Descriptor is the structure expected of the audit schema.
func Descriptor() schema.Descriptor {
	return schema.Descriptor{
		schema.Def("id", "string"),
		schema.Def("action", "string"),
		schema.Def("schema", "string"),
		schema.Def("documentId", "string"),
		schema.Def("payload", "text"),
		schema.Def("createdOn", "date default_current_datetime"),
	}
}

// LogEvent stores event. Failures are logged and returned; callers usually
// ignore them so the audited write still succeeds.
func (r *Recorder) LogEvent(ctx context.Context, event Event) error {
	if !r.Enabled() {
		return nil
	}
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("audit log failed", "error", err, "action", event.Action)
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	q, err := r.reg.Use(r.schema)
	if err != nil {
		r.logger.Error("audit log failed", "error", err)
		return fmt.Errorf("audit schema: %w", err)
	}
	if _, err := q.Add(ctx, adapter.Document{
		"id":         uuid.NewString(),
		"action":     event.Action,
		"schema":     event.Schema,
		"documentId": event.DocumentID,
		"payload":    string(body),
		"createdOn":  r.now(),
	}); err != nil {
		r.logger.Error("audit log failed", "error", err, "action", event.Action)
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
