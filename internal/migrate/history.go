package migrate

import (
	"context"
	"fmt"
	"time"

	"schemabridge/internal/adapter"
	"schemabridge/internal/apperr"
	"schemabridge/internal/connection"
	"schemabridge/internal/dialect"
)

// HistoryTable records applied plans, one row per plan name.
const HistoryTable = "schemabridge_migrations"

type history struct {
	m          *Migrator
	connection string
	binding    *adapter.Binding
	dialect    dialect.Name
}

func (m *Migrator) history(name string) (*history, error) {
	if name == "" {
		name = connection.DefaultName
	}
	conn, err := m.conns.Lookup(name)
	if err != nil {
		return nil, err
	}
	if conn.Binding == nil {
		return nil, apperr.AdapterMissing(conn.Name)
	}
	return &history{
		m:          m,
		connection: conn.Name,
		binding:    conn.Binding,
		dialect:    dialect.Normalize(conn.Dialect()),
	}, nil
}

func (h *history) ensure(ctx context.Context) error {
	q := h.m.Create(HistoryTable).UseConnection(h.connection)
	q.AddColumn("name").Length(191).Primary()
	q.AddColumn("checksum").Length(64).NotNull()
	q.AddColumn("applied_at").Length(40).NotNull()
	report, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	return report.Err()
}

// lookup returns the checksum recorded for plan.
func (h *history) lookup(ctx context.Context, plan string, opts adapter.RawOptions) (string, bool, error) {
	d := h.dialect
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		d.Quote("checksum"), d.Quote(HistoryTable), d.Quote("name"), d.Placeholder(1))
	res, err := h.binding.Raw(ctx, stmt, []any{plan}, opts)
	if err != nil {
		return "", false, err
	}
	rows, ok := res.([]adapter.Document)
	if !ok || len(rows) == 0 {
		return "", false, nil
	}
	return fmt.Sprint(rows[0]["checksum"]), true, nil
}

// record inserts the history row for plan. On adapters with transactions the
// row is checked and inserted in one, so a plan recorded meanwhile by another
// run is reported instead of hitting the primary key.
func (h *history) record(ctx context.Context, plan, sum string) error {
	if !h.binding.HasTransactions() {
		return h.insert(ctx, plan, sum, adapter.RawOptions{})
	}
	return h.binding.Transact(ctx, func(tx any) error {
		opts := adapter.RawOptions{Transaction: tx}
		recorded, ok, err := h.lookup(ctx, plan, opts)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("plan %s was recorded by another run with checksum %s", plan, recorded)
		}
		return h.insert(ctx, plan, sum, opts)
	})
}

func (h *history) insert(ctx context.Context, plan, sum string, opts adapter.RawOptions) error {
	d := h.dialect
	stmt := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (%s, %s, %s)",
		d.Quote(HistoryTable), d.Quote("name"), d.Quote("checksum"), d.Quote("applied_at"),
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))
	_, err := h.binding.Raw(ctx, stmt, []any{plan, sum, time.Now().UTC().Format(time.RFC3339)}, opts)
	return err
}

// AppliedPlan is one row of the history table.
type AppliedPlan struct {
	Name      string `json:"name"`
	Checksum  string `json:"checksum"`
	AppliedAt string `json:"applied_at"`
}

// Applied lists the plans recorded on connectionName, oldest first. A
// connection that has never applied a plan has no history table yet and
// yields an empty list.
func (m *Migrator) Applied(ctx context.Context, connectionName string) ([]AppliedPlan, error) {
	h, err := m.history(connectionName)
	if err != nil {
		return nil, err
	}
	if err := h.ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure migration history: %w", err)
	}
	d := h.dialect
	stmt := fmt.Sprintf("SELECT %s, %s, %s FROM %s ORDER BY %s, %s",
		d.Quote("name"), d.Quote("checksum"), d.Quote("applied_at"), d.Quote(HistoryTable),
		d.Quote("applied_at"), d.Quote("name"))
	res, err := h.binding.Raw(ctx, stmt, nil, adapter.RawOptions{})
	if err != nil {
		return nil, err
	}
	rows, _ := res.([]adapter.Document)
	out := make([]AppliedPlan, 0, len(rows))
	for _, row := range rows {
		out = append(out, AppliedPlan{
			Name:      fmt.Sprint(row["name"]),
			Checksum:  fmt.Sprint(row["checksum"]),
			AppliedAt: fmt.Sprint(row["applied_at"]),
		})
	}
	return out, nil
}
