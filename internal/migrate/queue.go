// Package migrate queues column operations against a table and compiles them
// into dialect-specific DDL.
//
// A CreateTable queue emits one CREATE TABLE IF NOT EXISTS statement listing
// every column. An AlterTable queue emits one statement per action in the
// order they were queued. Statements run one by one through the connection's
// adapter; they are not wrapped in a transaction. A failing statement is
// logged and recorded in the Report and the next one still runs.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"schemabridge/internal/adapter"
	"schemabridge/internal/apperr"
	"schemabridge/internal/connection"
	"schemabridge/internal/dialect"
)

type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Migrator builds queues against a connection table.
type Migrator struct {
	conns  *connection.Table
	logger Logger
}

func New(conns *connection.Table, logger Logger) *Migrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Migrator{conns: conns, logger: logger}
}

// Create starts a CREATE TABLE queue for table.
func (m *Migrator) Create(table string) *CreateTable {
	return &CreateTable{queue: m.queue(table)}
}

// Alter starts an ALTER TABLE queue for table.
func (m *Migrator) Alter(table string) *AlterTable {
	return &AlterTable{queue: m.queue(table)}
}

func (m *Migrator) queue(table string) queue {
	return queue{m: m, table: table, connection: connection.DefaultName}
}

// Create is a shorthand for New(conns, nil).Create(table).
func Create(conns *connection.Table, table string) *CreateTable {
	return New(conns, nil).Create(table)
}

// Alter is a shorthand for New(conns, nil).Alter(table).
func Alter(conns *connection.Table, table string) *AlterTable {
	return New(conns, nil).Alter(table)
}

// Result is the outcome of one statement.
type Result struct {
	Action    string
	Statement string
	Err       error
}

// Report lists what Exec ran, in order.
type Report struct {
	Table      string       `json:"table"`
	Connection string       `json:"connection"`
	Dialect    dialect.Name `json:"dialect"`
	Results    []Result     `json:"results"`
}

// MarshalJSON renders Err as its message.
func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Action    string `json:"action"`
		Statement string `json:"statement"`
		Error     string `json:"error,omitempty"`
	}{Action: r.Action, Statement: r.Statement}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Failed returns the results that did not apply.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins the errors of every failed statement, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Action, res.Err))
	}
	return errors.Join(errs...)
}

type queue struct {
	m          *Migrator
	table      string
	connection string
}

// target resolves the connection and its adapter at execution time.
func (q *queue) target() (*adapter.Binding, *connection.Connection, error) {
	conn, err := q.m.conns.Lookup(q.connection)
	if err != nil {
		return nil, nil, err
	}
	if conn.Binding == nil {
		return nil, nil, apperr.AdapterMissing(conn.Name)
	}
	return conn.Binding, conn, nil
}

// run executes compiled statements in order, logging each outcome.
func (q *queue) run(ctx context.Context, b *adapter.Binding, report *Report, steps []compiled) {
	for _, step := range steps {
		res := Result{Action: step.action, Statement: step.sql, Err: step.err}
		if res.Err == nil {
			_, res.Err = b.Raw(ctx, step.sql, nil, adapter.RawOptions{})
		}
		if res.Err != nil {
			q.m.logger.Error("migration action failed",
				"table", q.table,
				"connection", report.Connection,
				"action", step.action,
				"statement", step.sql,
				"error", res.Err,
			)
		} else {
			q.m.logger.Info("migration action applied",
				"table", q.table,
				"connection", report.Connection,
				"action", step.action,
			)
		}
		report.Results = append(report.Results, res)
	}
}

type compiled struct {
	action string
	sql    string
	err    error
}

// CreateTable only accepts new columns.
type CreateTable struct {
	queue
	columns []*ColumnBuilder
}

// AddColumn queues a column and returns its builder.
func (c *CreateTable) AddColumn(name string) *ColumnBuilder {
	col := newColumn(name)
	c.columns = append(c.columns, col)
	return col
}

// UseConnection selects the connection; the default is "default".
func (c *CreateTable) UseConnection(name string) *CreateTable {
	c.connection = name
	return c
}

// Statements compiles the queue without running it. An empty queue compiles
// to nothing.
func (c *CreateTable) Statements(d dialect.Name) ([]string, error) {
	if len(c.columns) == 0 {
		return nil, nil
	}
	stmt, err := compileCreate(d, c.table, c.definitions())
	if err != nil {
		return nil, err
	}
	return []string{stmt}, nil
}

func (c *CreateTable) definitions() []ColumnDefinition {
	defs := make([]ColumnDefinition, 0, len(c.columns))
	for _, col := range c.columns {
		defs = append(defs, col.Definition())
	}
	return defs
}

// Exec runs the CREATE statement. The returned error only reports a
// connection that cannot be resolved; statement failures are in the Report.
// The queue is empty afterwards whatever happened.
func (c *CreateTable) Exec(ctx context.Context) (Report, error) {
	defer func() { c.columns = nil }()
	b, conn, err := c.target()
	if err != nil {
		return Report{Table: c.table, Connection: c.connection}, err
	}
	d := dialect.Normalize(conn.Dialect())
	report := Report{Table: c.table, Connection: conn.Name, Dialect: d}
	if len(c.columns) == 0 {
		return report, nil
	}
	stmt, cerr := compileCreate(d, c.table, c.definitions())
	c.run(ctx, b, &report, []compiled{{action: "createTable", sql: stmt, err: cerr}})
	return report, nil
}

// AlterTable queues any action; each becomes its own statement.
type AlterTable struct {
	queue
	actions []Action
}

func (a *AlterTable) AddColumn(name string) *ColumnBuilder {
	col := newColumn(name)
	a.actions = append(a.actions, AddColumn{Column: col})
	return col
}

// SelectColumn queues a modification of an existing column and returns the
// builder describing its new definition.
func (a *AlterTable) SelectColumn(name string) *ColumnBuilder {
	col := newColumn(name)
	a.actions = append(a.actions, ModifyColumn{Column: col})
	return col
}

func (a *AlterTable) DropColumn(name string) *AlterTable {
	a.actions = append(a.actions, DropColumn{Name: name})
	return a
}

// DropTable queues DROP TABLE IF EXISTS for the queue's table.
func (a *AlterTable) DropTable() *AlterTable {
	a.actions = append(a.actions, DropTable{Name: a.table})
	return a
}

func (a *AlterTable) DropUnique(column string) *AlterTable {
	a.actions = append(a.actions, DropUnique{Name: column})
	return a
}

// DropPrimaryKey queues dropping the primary key. The optional name is the
// constraint name.
func (a *AlterTable) DropPrimaryKey(name ...string) *AlterTable {
	action := DropPrimaryKey{}
	if len(name) > 0 {
		action.Name = name[0]
	}
	a.actions = append(a.actions, action)
	return a
}

// Queue appends an already built action.
func (a *AlterTable) Queue(action Action) *AlterTable {
	a.actions = append(a.actions, action)
	return a
}

func (a *AlterTable) UseConnection(name string) *AlterTable {
	a.connection = name
	return a
}

// Statements compiles every queued action without running anything.
func (a *AlterTable) Statements(d dialect.Name) ([]string, error) {
	out := make([]string, 0, len(a.actions))
	for _, action := range a.actions {
		stmt, err := action.Statement(d, a.table)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", action.Kind(), err)
		}
		out = append(out, stmt)
	}
	return out, nil
}

// Exec runs one statement per queued action, first in first out. The
// returned error only reports a connection that cannot be resolved;
// statement failures, including ones that do not compile for the dialect,
// are in the Report. The queue is empty afterwards whatever happened.
func (a *AlterTable) Exec(ctx context.Context) (Report, error) {
	defer func() { a.actions = nil }()
	b, conn, err := a.target()
	if err != nil {
		return Report{Table: a.table, Connection: a.connection}, err
	}
	d := dialect.Normalize(conn.Dialect())
	report := Report{Table: a.table, Connection: conn.Name, Dialect: d}

	steps := make([]compiled, 0, len(a.actions))
	for _, action := range a.actions {
		stmt, err := action.Statement(d, a.table)
		steps = append(steps, compiled{action: action.Kind(), sql: stmt, err: err})
	}
	a.run(ctx, b, &report, steps)
	return report, nil
}
