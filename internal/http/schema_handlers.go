package httpserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schemabridge/internal/apperr"
	"schemabridge/internal/schema"
)

type SchemaHandler struct {
	registry *schema.Registry
	logger   requestLogger
}

type schemaSummary struct {
	Name       string `json:"name"`
	Connection string `json:"connection"`
	Collection string `json:"collection"`
}

type fieldView struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	AutoIncrement bool     `json:"auto_increment,omitempty"`
	Nullable      bool     `json:"nullable,omitempty"`
	Unique        bool     `json:"unique,omitempty"`
	Default       any      `json:"default,omitempty"`
	Enum          []string `json:"enum,omitempty"`
	References    string   `json:"references,omitempty"`
}

type schemaView struct {
	schemaSummary
	Fields               []fieldView `json:"fields"`
	AllowUndefinedFields bool        `json:"allow_undefined_fields"`
	InsertableFields     []string    `json:"insertable_fields,omitempty"`
	UpdatableFields      []string    `json:"updatable_fields,omitempty"`
	DeleteType           string      `json:"delete_type"`
	MassDeleteAllowed    bool        `json:"mass_delete_allowed"`
	MassEditAllowed      bool        `json:"mass_edit_allowed"`
}

func (h *SchemaHandler) summary(def *schema.SchemaDef) schemaSummary {
	return schemaSummary{
		Name:       def.Name,
		Connection: h.registry.Connections().ResolveName(def.ConnectionName),
		Collection: def.CollectionName,
	}
}

func (h *SchemaHandler) List(w http.ResponseWriter, r *http.Request) {
	out := []schemaSummary{}
	for _, name := range h.registry.Names() {
		if def, ok := h.registry.Get(name); ok {
			out = append(out, h.summary(def))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": out})
}

func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	def, ok := h.registry.Get(name)
	if !ok {
		writeFailure(w, h.logger, apperr.SchemaMissing(name), "lookup_failed", "failed to load schema")
		return
	}

	view := schemaView{
		schemaSummary:        h.summary(def),
		Fields:               make([]fieldView, 0, len(def.Fields)),
		AllowUndefinedFields: def.AllowUndefinedFields,
		InsertableFields:     def.InsertableFields,
		UpdatableFields:      def.UpdatableFields,
		DeleteType:           string(def.DeleteType),
		MassDeleteAllowed:    def.MassDeleteAllowed,
		MassEditAllowed:      def.MassEditAllowed,
	}
	for _, f := range def.Fields {
		fv := fieldView{
			Name:          f.Name,
			Type:          string(f.Type),
			AutoIncrement: f.AutoIncrement,
			Nullable:      f.Nullable,
			Unique:        f.IsUnique,
			Default:       f.DefaultValue,
			Enum:          f.EnumValues,
		}
		if f.IsForeignKey {
			fv.References = f.ForeignTable() + "." + f.ForeignColumn()
		}
		view.Fields = append(view.Fields, fv)
	}
	writeJSON(w, http.StatusOK, view)
}

type tableLister interface {
	Tables(ctx context.Context) ([]string, error)
}

// Tables lists the physical tables or collections behind a connection.
func (h *SchemaHandler) Tables(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	conn, err := h.registry.Connections().Lookup(name)
	if err != nil {
		writeFailure(w, h.logger, err, "lookup_failed", "failed to resolve connection")
		return
	}
	if conn.Binding == nil {
		writeFailure(w, h.logger, apperr.AdapterMissing(conn.Name), "lookup_failed", "failed to resolve connection")
		return
	}
	lister, ok := conn.Binding.Adapter.(tableLister)
	if !ok {
		writeError(w, http.StatusNotImplemented, "not_supported", "connection cannot list tables")
		return
	}
	tables, err := lister.Tables(r.Context())
	if err != nil {
		h.logger.Error("list tables failed", "connection", conn.Name, "error", err)
		writeError(w, http.StatusBadGateway, "introspection_failed", "failed to list tables")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connection": conn.Name, "tables": tables})
}
