package migrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"schemabridge/internal/adapter"
	"schemabridge/internal/dialect"
)

// Plan is a named list of create and alter steps read from YAML:
//
//	name: 0001_users
//	connection: main
//	steps:
//	  - create: users
//	    columns:
//	      - {name: id, type: int, primary: true, auto_increment: true}
//	      - {name: email, type: string, length: 120, unique: true}
//	  - alter: users
//	    add: [{name: age, type: int}]
//	    drop_columns: [legacy]
type Plan struct {
	Name       string `yaml:"name"`
	Connection string `yaml:"connection"`
	Steps      []Step `yaml:"steps"`

	checksum string
}

// Step is either a create step (Create set) or an alter step (Alter set).
// Alter actions run in field order: add, modify, drop_columns, drop_unique,
// drop_primary_key, drop_table.
type Step struct {
	Create  string             `yaml:"create"`
	Columns []ColumnDefinition `yaml:"columns"`

	Alter          string             `yaml:"alter"`
	Add            []ColumnDefinition `yaml:"add"`
	Modify         []ColumnDefinition `yaml:"modify"`
	DropColumns    []string           `yaml:"drop_columns"`
	DropUnique     []string           `yaml:"drop_unique"`
	DropPrimaryKey *string            `yaml:"drop_primary_key"`
	DropTable      bool               `yaml:"drop_table"`
}

// LoadPlan reads and validates a plan file. A plan without a name is named
// after the file.
func LoadPlan(path string) (*Plan, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	plan, err := ParsePlan(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if plan.Name == "" {
		plan.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return plan, nil
}

// LoadPlans loads each path in order. A directory contributes its .yaml and
// .yml files sorted by name, so numbered plans apply in sequence.
func LoadPlans(paths ...string) ([]*Plan, error) {
	var plans []*Plan
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("read plan: %w", err)
		}
		files := []string{path}
		if info.IsDir() {
			if files, err = planFiles(path); err != nil {
				return nil, err
			}
		}
		for _, f := range files {
			plan, err := LoadPlan(f)
			if err != nil {
				return nil, err
			}
			plans = append(plans, plan)
		}
	}
	return plans, nil
}

func planFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read plan directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ParsePlan decodes and validates a plan.
func ParsePlan(body []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(body, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	plan.checksum = checksum(string(body))
	return &plan, nil
}

func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan %q has no steps", p.Name)
	}
	for i, s := range p.Steps {
		switch {
		case s.Create != "" && s.Alter != "":
			return fmt.Errorf("step %d sets both create and alter", i+1)
		case s.Create != "":
			if len(s.Columns) == 0 {
				return fmt.Errorf("step %d creates %s without columns", i+1, s.Create)
			}
		case s.Alter == "":
			return fmt.Errorf("step %d names no table", i+1)
		}
	}
	return nil
}

// Checksum identifies the plan's content.
func (p *Plan) Checksum() string { return p.checksum }

// queued is one step turned into a queue.
type queued interface {
	Statements(d dialect.Name) ([]string, error)
	Exec(ctx context.Context) (Report, error)
}

func (p *Plan) queues(m *Migrator) []queued {
	out := make([]queued, 0, len(p.Steps))
	for _, s := range p.Steps {
		if s.Create != "" {
			q := m.Create(s.Create)
			for _, def := range s.Columns {
				q.columns = append(q.columns, Column(def))
			}
			if p.Connection != "" {
				q.UseConnection(p.Connection)
			}
			out = append(out, q)
			continue
		}
		q := m.Alter(s.Alter)
		for _, def := range s.Add {
			q.Queue(AddColumn{Column: Column(def)})
		}
		for _, def := range s.Modify {
			q.Queue(ModifyColumn{Column: Column(def)})
		}
		for _, name := range s.DropColumns {
			q.DropColumn(name)
		}
		for _, name := range s.DropUnique {
			q.DropUnique(name)
		}
		if s.DropPrimaryKey != nil {
			q.DropPrimaryKey(*s.DropPrimaryKey)
		}
		if s.DropTable {
			q.DropTable()
		}
		if p.Connection != "" {
			q.UseConnection(p.Connection)
		}
		out = append(out, q)
	}
	return out
}

// Statements compiles the whole plan for d without running it.
func (p *Plan) Statements(d dialect.Name) ([]string, error) {
	var out []string
	for i, q := range p.queues(New(nil, nil)) {
		stmts, err := q.Statements(d)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		out = append(out, stmts...)
	}
	return out, nil
}

// Apply runs every step in order and records the plan in the history table
// when all statements applied. A plan already recorded with the same
// checksum is skipped; one recorded with a different checksum is refused.
func (p *Plan) Apply(ctx context.Context, m *Migrator) ([]Report, error) {
	h, err := m.history(p.Connection)
	if err != nil {
		return nil, err
	}
	if err := h.ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure migration history: %w", err)
	}
	recorded, ok, err := h.lookup(ctx, p.Name, adapter.RawOptions{})
	if err != nil {
		return nil, fmt.Errorf("read migration history: %w", err)
	}
	if ok {
		if recorded != p.checksum {
			return nil, fmt.Errorf("plan %s was applied with checksum %s, file now has %s", p.Name, recorded, p.checksum)
		}
		m.logger.Info("migration plan already applied", "plan", p.Name)
		return nil, nil
	}

	var reports []Report
	for i, q := range p.queues(m) {
		report, err := q.Exec(ctx)
		reports = append(reports, report)
		if err != nil {
			return reports, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	for _, r := range reports {
		if err := r.Err(); err != nil {
			return reports, fmt.Errorf("plan %s: %w", p.Name, err)
		}
	}
	if err := h.record(ctx, p.Name, p.checksum); err != nil {
		return reports, fmt.Errorf("record migration: %w", err)
	}
	m.logger.Info("migration plan applied", "plan", p.Name, "steps", len(reports))
	return reports, nil
}

func checksum(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
