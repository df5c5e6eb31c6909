// Package connection keeps the name -> adapter table shared by the schema
// registry and the migration queue.
package connection

import (
	"io"
	"sort"
	"sync"

	"schemabridge/internal/adapter"
	"schemabridge/internal/apperr"
)

// DefaultName is the connection name used when none is given.
const DefaultName = "default"

// Connection is one named backend. Binding is nil until an adapter is attached.
type Connection struct {
	Name     string
	Provider string
	Binding  *adapter.Binding
}

// Dialect returns the adapter's declared dialect, falling back to the
// configured provider.
func (c *Connection) Dialect() string {
	if c.Binding != nil && c.Binding.Dialect() != "" {
		return c.Binding.Dialect()
	}
	return c.Provider
}

// Table is safe for concurrent use. Registration is first-writer-wins.
type Table struct {
	mu          sync.RWMutex
	conns       map[string]*Connection
	defaultName string
}

func NewTable() *Table {
	return &Table{conns: make(map[string]*Connection)}
}

// Define declares a connection without an adapter.
func (t *Table) Define(name, provider string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conns[name]; ok {
		return apperr.ConnectionExisting(name)
	}
	t.conns[name] = &Connection{Name: name, Provider: provider}
	return nil
}

// Add declares a connection and attaches a in one step.
func (t *Table) Add(name, provider string, a adapter.Adapter) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conns[name]; ok {
		return apperr.ConnectionExisting(name)
	}
	t.conns[name] = &Connection{Name: name, Provider: provider, Binding: adapter.Resolve(a)}
	return nil
}

// Attach binds a to a previously defined connection. Attaching twice fails.
func (t *Table) Attach(name string, a adapter.Adapter) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[name]
	if !ok {
		return apperr.ConnectionUnknown(name)
	}
	if c.Binding != nil {
		return apperr.ConnectionExisting(name)
	}
	t.conns[name] = &Connection{Name: c.Name, Provider: c.Provider, Binding: adapter.Resolve(a)}
	return nil
}

// Detach removes a connection and returns its binding, if any.
func (t *Table) Detach(name string) *adapter.Binding {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[name]
	if !ok {
		return nil
	}
	delete(t.conns, name)
	if t.defaultName == name {
		t.defaultName = ""
	}
	return c.Binding
}

// SetDefault makes name the target of the "default" connection.
func (t *Table) SetDefault(name string) {
	t.mu.Lock()
	t.defaultName = name
	t.mu.Unlock()
}

// Default returns the configured default connection name.
func (t *Table) Default() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.defaultName == "" {
		return DefaultName
	}
	return t.defaultName
}

// ResolveName maps the literal "default" (or "") to the configured default.
func (t *Table) ResolveName(name string) string {
	if name == "" || name == DefaultName {
		return t.Default()
	}
	return name
}

// Lookup returns the connection or a ConnectionUnknown error.
func (t *Table) Lookup(name string) (*Connection, error) {
	name = t.ResolveName(name)
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.conns[name]
	if !ok {
		return nil, apperr.ConnectionUnknown(name)
	}
	return c, nil
}

// Adapter returns the binding for name, or nil if the connection is unknown
// or has no adapter. It never fails.
func (t *Table) Adapter(name string) *adapter.Binding {
	c, err := t.Lookup(name)
	if err != nil {
		return nil
	}
	return c.Binding
}

// Names returns all connection names, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.conns))
	for name := range t.conns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Close closes every attached adapter that implements io.Closer.
func (t *Table) Close() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var firstErr error
	for _, c := range t.conns {
		if c.Binding == nil {
			continue
		}
		if closer, ok := c.Binding.Adapter.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
