// Package schema owns schema definitions and the query/mutation builder bound
// to them.
//
// A schema is declared once through a builder chain:
//
//	reg.Create("users")
//		.Use(schema.Target{Connection: "main", Collection: "users"})
//		.SetOptions(schema.Options{InsertableFields: []string{"name"}})
//		.SetStructure(descriptor)
//
// and then queried through reg.Use("users"), which returns a fresh *Query.
package schema

import (
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"schemabridge/internal/adapter"
	"schemabridge/internal/apperr"
	"schemabridge/internal/connection"
)

// DeleteType selects how Delete removes documents.
type DeleteType string

const (
	HardDelete DeleteType = "hardDelete"
	SoftDelete DeleteType = "softDelete"
)

// DeletedOnField is the key written by soft deletes.
const DeletedOnField = "deletedOn"

// Logger is the logging surface the registry needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// SchemaDef is one registered collection.
type SchemaDef struct {
	Name           string
	ConnectionName string
	CollectionName string
	Fields         []Field
	FieldsMap      map[string]Field
	// AllowUndefinedFields keeps undeclared keys on write when true.
	AllowUndefinedFields bool
	// InsertableFields and UpdatableFields are allowlists; nil means no list.
	InsertableFields  []string
	UpdatableFields   []string
	DeleteType        DeleteType
	MassDeleteAllowed bool
	MassEditAllowed   bool
}

// Field returns the named field.
func (s *SchemaDef) Field(name string) (Field, bool) {
	f, ok := s.FieldsMap[name]
	return f, ok
}

func (s *SchemaDef) setFields(fields []Field) {
	s.Fields = append([]Field(nil), fields...)
	s.FieldsMap = make(map[string]Field, len(fields))
	for _, f := range s.Fields {
		s.FieldsMap[f.Name] = f
	}
}

func (s *SchemaDef) clone() *SchemaDef {
	c := *s
	c.setFields(s.Fields)
	c.InsertableFields = cloneStrings(s.InsertableFields)
	c.UpdatableFields = cloneStrings(s.UpdatableFields)
	return &c
}

// Options are the mutation policies of a schema. Zero values (nil slices,
// empty DeleteType, nil pointers) mean "leave unchanged".
type Options struct {
	InsertableFields  []string   `yaml:"insertable_fields" json:"insertable_fields,omitempty"`
	UpdatableFields   []string   `yaml:"updatable_fields" json:"updatable_fields,omitempty"`
	DeleteType        DeleteType `yaml:"delete_type" json:"delete_type,omitempty"`
	MassDeleteAllowed *bool      `yaml:"mass_delete_allowed" json:"mass_delete_allowed,omitempty"`
	MassEditAllowed   *bool      `yaml:"mass_edit_allowed" json:"mass_edit_allowed,omitempty"`
}

// Bool returns a pointer to b, for Options literals.
func Bool(b bool) *bool { return &b }

func (o Options) applyTo(s *SchemaDef) {
	if o.InsertableFields != nil {
		s.InsertableFields = cloneStrings(o.InsertableFields)
	}
	if o.UpdatableFields != nil {
		s.UpdatableFields = cloneStrings(o.UpdatableFields)
	}
	if o.DeleteType != "" {
		s.DeleteType = o.DeleteType
	}
	if o.MassDeleteAllowed != nil {
		s.MassDeleteAllowed = *o.MassDeleteAllowed
	}
	if o.MassEditAllowed != nil {
		s.MassEditAllowed = *o.MassEditAllowed
	}
}

// Registry maps schema names to definitions. It is safe for concurrent use;
// registering the same name twice fails for every writer but the first.
//
// Definitions are copy-on-write: setters swap in a modified copy, so a Query
// created earlier keeps the definition it was created with.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*SchemaDef
	conns   *connection.Table
	now     func() time.Time
	logger  Logger
	strict  bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the clock used for NOW() defaults and soft deletes.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the registry logger.
func WithLogger(l Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithStrictBindings rejects SetStructure calls made before Use.
func WithStrictBindings() Option {
	return func(r *Registry) { r.strict = true }
}

func NewRegistry(conns *connection.Table, opts ...Option) *Registry {
	if conns == nil {
		conns = connection.NewTable()
	}
	r := &Registry{
		schemas: make(map[string]*SchemaDef),
		conns:   conns,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connections returns the connection table the registry resolves against.
func (r *Registry) Connections() *connection.Table { return r.conns }

// Now returns the registry clock's current time.
func (r *Registry) Now() time.Time { return r.now() }

// Create starts the definition of a new schema.
func (r *Registry) Create(name string) (*SchemaBuilder, error) {
	r.mu.RLock()
	_, exists := r.schemas[name]
	r.mu.RUnlock()
	if exists {
		return nil, apperr.SchemaExisting(name)
	}
	return &SchemaBuilder{
		reg: r,
		def: SchemaDef{
			Name:              name,
			CollectionName:    name,
			DeleteType:        HardDelete,
			MassDeleteAllowed: true,
			MassEditAllowed:   true,
		},
	}, nil
}

func (r *Registry) register(def *SchemaDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[def.Name]; exists {
		return apperr.SchemaExisting(def.Name)
	}
	r.schemas[def.Name] = def
	r.logger.Info("schema registered",
		"schema", def.Name,
		"connection", def.ConnectionName,
		"collection", def.CollectionName,
		"fields", len(def.Fields),
	)
	return nil
}

// Use returns a new query builder bound to the named schema.
func (r *Registry) Use(name string) (*Query, error) {
	def, ok := r.Get(name)
	if !ok {
		return nil, apperr.SchemaMissing(name)
	}
	return &Query{reg: r, def: def}, nil
}

// Get returns the current definition of name.
func (r *Registry) Get(name string) (*SchemaDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.schemas[name]
	return def, ok
}

// Names returns the registered schema names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Drop removes a schema so that its name can be registered again.
func (r *Registry) Drop(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemas[name]; !ok {
		return false
	}
	delete(r.schemas, name)
	return true
}

// SetFields replaces the field list of a registered schema.
func (r *Registry) SetFields(name string, fields []Field) error {
	return r.modify(name, func(def *SchemaDef) { def.setFields(fields) })
}

// SetOptions merges opts into a registered schema's policies.
func (r *Registry) SetOptions(name string, opts Options) error {
	return r.modify(name, opts.applyTo)
}

func (r *Registry) modify(name string, fn func(*SchemaDef)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.schemas[name]
	if !ok {
		return apperr.SchemaMissing(name)
	}
	next := def.clone()
	fn(next)
	r.schemas[name] = next
	return nil
}

// Adapter returns the adapter attached to connectionName, or nil. It never
// fails; callers report AdapterMissing at the point of use.
func (r *Registry) Adapter(connectionName string) *adapter.Binding {
	return r.conns.Adapter(connectionName)
}

// Target binds a schema to a connection and a physical collection.
type Target struct {
	Connection string
	Collection string
}

// SchemaBuilder accumulates a definition until SetStructure or SetFields
// registers it.
type SchemaBuilder struct {
	reg   *Registry
	def   SchemaDef
	bound bool
}

// Use records the connection and collection of the schema.
func (b *SchemaBuilder) Use(t Target) *SchemaBuilder {
	b.def.ConnectionName = t.Connection
	if t.Collection != "" {
		b.def.CollectionName = t.Collection
	}
	b.bound = true
	return b
}

// SetOptions merges the provided options; absent keys keep their values.
func (b *SchemaBuilder) SetOptions(o Options) *SchemaBuilder {
	o.applyTo(&b.def)
	return b
}

// SetStructure parses d and registers the schema.
func (b *SchemaBuilder) SetStructure(d Descriptor) (*Registry, error) {
	fields, allowUndefined := Parse(d)
	return b.finalize(fields, allowUndefined)
}

// SetFields registers the schema with fields used verbatim. Undeclared keys
// are stripped on write.
func (b *SchemaBuilder) SetFields(fields []Field) (*Registry, error) {
	return b.finalize(fields, false)
}

func (b *SchemaBuilder) finalize(fields []Field, allowUndefined bool) (*Registry, error) {
	if b.reg.strict && !b.bound {
		return nil, apperr.SchemaConfiguration(b.def.Name, "structure defined before connection and collection")
	}
	def := b.def.clone()
	def.setFields(fields)
	def.AllowUndefinedFields = allowUndefined
	if err := b.reg.register(def); err != nil {
		return nil, err
	}
	return b.reg, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
