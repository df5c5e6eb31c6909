// Package diff compares the collections declared in the registry with the
// tables that exist on each connection.
package diff

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"schemabridge/internal/apperr"
	"schemabridge/internal/migrate"
	"schemabridge/internal/schema"
)

// ConnectionDiff describes one connection.
type ConnectionDiff struct {
	Connection string `json:"connection"`
	// Missing are declared collections with no table.
	Missing []string `json:"missing,omitempty"`
	// Undeclared are tables no schema is bound to.
	Undeclared []string `json:"undeclared,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type Report struct {
	Connections []ConnectionDiff `json:"connections"`
}

type tableLister interface {
	Tables(ctx context.Context) ([]string, error)
}

// Compare builds the diff of one connection. Tables named in ignore are
// never reported as undeclared.
func Compare(connection string, declared, live []string, ignore ...string) ConnectionDiff {
	declared = unique(declared)
	live = unique(live)
	return ConnectionDiff{
		Connection: connection,
		Missing:    difference(declared, live),
		Undeclared: difference(difference(live, declared), ignore),
	}
}

// Check groups the registered schemas by connection and compares each group
// with the connection's tables. Memory connections have no fixed tables and
// are skipped. A connection that cannot be inspected is reported with Error
// set; Check itself does not fail.
func Check(ctx context.Context, reg *schema.Registry) Report {
	conns := reg.Connections()
	declared := map[string][]string{}
	for _, name := range reg.Names() {
		def, ok := reg.Get(name)
		if !ok {
			continue
		}
		conn := conns.ResolveName(def.ConnectionName)
		declared[conn] = append(declared[conn], def.CollectionName)
	}
	for _, name := range conns.Names() {
		if _, ok := declared[name]; !ok {
			declared[name] = nil
		}
	}

	var report Report
	for _, name := range sortedKeys(declared) {
		conn, err := conns.Lookup(name)
		if err != nil {
			report.Connections = append(report.Connections, ConnectionDiff{Connection: name, Error: err.Error()})
			continue
		}
		if strings.EqualFold(conn.Dialect(), "memory") {
			continue
		}
		if conn.Binding == nil {
			report.Connections = append(report.Connections, ConnectionDiff{Connection: name, Error: apperr.AdapterMissing(name).Error()})
			continue
		}
		lister, ok := conn.Binding.Adapter.(tableLister)
		if !ok {
			report.Connections = append(report.Connections, ConnectionDiff{Connection: name, Error: "adapter cannot list tables"})
			continue
		}
		live, err := lister.Tables(ctx)
		if err != nil {
			report.Connections = append(report.Connections, ConnectionDiff{Connection: name, Error: err.Error()})
			continue
		}
		report.Connections = append(report.Connections, Compare(name, declared[name], live, migrate.HistoryTable))
	}
	return report
}

// HasChanges reports whether any connection drifted or could not be read.
func (r Report) HasChanges() bool {
	for _, c := range r.Connections {
		if c.Error != "" || len(c.Missing) > 0 || len(c.Undeclared) > 0 {
			return true
		}
	}
	return false
}

// Describe returns a human-readable summary of differences.
func Describe(r Report) string {
	if !r.HasChanges() {
		return "schemas match"
	}
	var lines []string
	for _, c := range r.Connections {
		if c.Error != "" {
			lines = append(lines, fmt.Sprintf("Connection %s: %s", c.Connection, c.Error))
			continue
		}
		if len(c.Missing) > 0 {
			lines = append(lines, fmt.Sprintf("Connection %s: missing tables: %s", c.Connection, strings.Join(c.Missing, ", ")))
		}
		if len(c.Undeclared) > 0 {
			lines = append(lines, fmt.Sprintf("Connection %s: undeclared tables: %s", c.Connection, strings.Join(c.Undeclared, ", ")))
		}
	}
	return strings.Join(lines, "\n")
}

func sortedKeys[K comparable, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, fmt.Sprintf("%v", k))
	}
	sort.Strings(keys)
	return keys
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func difference(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
