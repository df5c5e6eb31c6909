package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schemabridge/internal/adapter"
	"schemabridge/internal/audit"
	"schemabridge/internal/schema"
)

// CollectionHandler exposes the query builder of one schema per request.
type CollectionHandler struct {
	registry      *schema.Registry
	logger        requestLogger
	audit         *audit.Recorder
	allowRawWhere bool
}

// query builds a Query for the {schema} URL parameter scoped by the query
// string. It writes the error response itself and returns nil on failure.
func (h *CollectionHandler) query(w http.ResponseWriter, r *http.Request) *schema.Query {
	q, err := h.registry.Use(chi.URLParam(r, "schema"))
	if err != nil {
		writeFailure(w, h.logger, err, "lookup_failed", "failed to load schema")
		return nil
	}
	params, err := parseListParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return nil
	}
	if params.Where != "" && !h.allowRawWhere {
		writeError(w, http.StatusForbidden, "raw_where_disabled", "raw where clauses are disabled on this server")
		return nil
	}
	params.apply(q)
	return q
}

func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.query(w, r)
	if q == nil {
		return
	}
	docs, err := q.Get(r.Context())
	if err != nil {
		writeFailure(w, h.logger, err, "query_failed", "failed to query collection")
		return
	}
	if docs == nil {
		docs = []adapter.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *CollectionHandler) GetOne(w http.ResponseWriter, r *http.Request) {
	q := h.query(w, r)
	if q == nil {
		return
	}
	doc, err := q.GetOne(r.Context())
	if err != nil {
		writeFailure(w, h.logger, err, "query_failed", "failed to query collection")
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "not_found", "no document matches")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": doc})
}

func decodeDocument(w http.ResponseWriter, r *http.Request) (adapter.Document, bool) {
	var doc adapter.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid json body")
		return nil, false
	}
	return doc, true
}

func (h *CollectionHandler) Add(w http.ResponseWriter, r *http.Request) {
	q, err := h.registry.Use(chi.URLParam(r, "schema"))
	if err != nil {
		writeFailure(w, h.logger, err, "lookup_failed", "failed to load schema")
		return
	}
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	id, err := q.Add(r.Context(), typedDocument(q.Schema(), doc))
	if err != nil {
		writeFailure(w, h.logger, err, "add_failed", "failed to add document")
		return
	}

	_ = h.audit.LogEvent(r.Context(), audit.Event{
		Action:     "document_added",
		Schema:     q.Schema().Name,
		DocumentID: id,
		Payload:    doc,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// Update applies the JSON body to every document matched by the query
// string. The schema's mass-edit policy decides what an unscoped request
// touches.
func (h *CollectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	q := h.query(w, r)
	if q == nil {
		return
	}
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	n, err := q.Update(r.Context(), typedDocument(q.Schema(), doc))
	if err != nil {
		writeFailure(w, h.logger, err, "update_failed", "failed to update documents")
		return
	}

	_ = h.audit.LogEvent(r.Context(), audit.Event{
		Action:  "documents_updated",
		Schema:  q.Schema().Name,
		Payload: map[string]any{"count": n, "data": doc, "query": r.URL.RawQuery},
	})
	writeJSON(w, http.StatusOK, map[string]any{"updated": n})
}

func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q := h.query(w, r)
	if q == nil {
		return
	}
	n, err := q.Delete(r.Context())
	if err != nil {
		writeFailure(w, h.logger, err, "delete_failed", "failed to delete documents")
		return
	}

	_ = h.audit.LogEvent(r.Context(), audit.Event{
		Action:  "documents_deleted",
		Schema:  q.Schema().Name,
		Payload: map[string]any{"count": n, "query": r.URL.RawQuery, "delete_type": string(q.Schema().DeleteType)},
	})
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}
