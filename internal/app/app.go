// Package app wires a loaded configuration into a running registry: it opens
// every connection, registers the configured schemas and exposes the
// migrator bound to the same connection table.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"schemabridge/internal/audit"
	"schemabridge/internal/config"
	"schemabridge/internal/connection"
	"schemabridge/internal/db"
	"schemabridge/internal/dialect"
	"schemabridge/internal/migrate"
	"schemabridge/internal/schema"
)

type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Conns    *connection.Table
	Registry *schema.Registry
	Migrator *migrate.Migrator
	Audit    *audit.Recorder
}

// Bootstrap opens connections and registers schemas in configuration order.
// Connections opened before a failure are closed again.
func Bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	conns := connection.NewTable()
	for _, c := range cfg.Connections {
		a, err := db.Open(db.Options{
			Provider:        c.Provider,
			DSN:             c.DSN,
			MaxOpenConns:    c.MaxOpenConns,
			ConnMaxIdleTime: c.ConnMaxIdleTime,
		})
		if err != nil {
			_ = conns.Close()
			return nil, fmt.Errorf("open connection %s: %w", c.Name, err)
		}
		if err := conns.Add(c.Name, c.Provider, a); err != nil {
			_ = conns.Close()
			return nil, err
		}
		logger.Info("connection ready", "connection", c.Name, "provider", c.Provider)
	}
	conns.SetDefault(cfg.DefaultConnection)

	opts := []schema.Option{schema.WithLogger(logger)}
	if cfg.StrictBindings {
		opts = append(opts, schema.WithStrictBindings())
	}
	reg := schema.NewRegistry(conns, opts...)

	for _, s := range cfg.Schemas {
		builder, err := reg.Create(s.Name)
		if err != nil {
			_ = conns.Close()
			return nil, err
		}
		if _, err := builder.
			Use(schema.Target{Connection: s.Connection, Collection: s.Collection}).
			SetOptions(s.Options).
			SetStructure(s.Structure); err != nil {
			_ = conns.Close()
			return nil, err
		}
	}
	logger.Info("schemas registered", "count", len(cfg.Schemas))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Conns:    conns,
		Registry: reg,
		Migrator: migrate.New(conns, logger),
		Audit:    audit.NewRecorder(reg, cfg.AuditSchema, logger),
	}, nil
}

func (a *App) Close() error {
	return a.Conns.Close()
}

// SyncResult is the outcome of creating one schema's table.
type SyncResult struct {
	Schema     string         `json:"schema"`
	Statements []string       `json:"statements"`
	Report     migrate.Report `json:"report"`
}

// Sync issues CREATE TABLE IF NOT EXISTS for every registered schema. With
// dryRun set the statements are compiled for each connection's dialect and
// nothing runs. Schemas on connections without DDL (the memory store) are
// skipped.
func (a *App) Sync(ctx context.Context, dryRun bool) ([]SyncResult, error) {
	var (
		out  []SyncResult
		errs []error
	)
	for _, name := range a.Registry.Names() {
		def, ok := a.Registry.Get(name)
		if !ok {
			continue
		}
		conn, err := a.Conns.Lookup(def.ConnectionName)
		if err != nil {
			errs = append(errs, fmt.Errorf("schema %s: %w", name, err))
			continue
		}
		if strings.EqualFold(conn.Dialect(), "memory") {
			a.Logger.Info("sync skipped", "schema", name, "connection", conn.Name, "dialect", conn.Dialect())
			continue
		}

		create := a.Migrator.FromSchema(def)
		stmts, err := create.Statements(dialect.Normalize(conn.Dialect()))
		if err != nil {
			errs = append(errs, fmt.Errorf("schema %s: %w", name, err))
			continue
		}
		res := SyncResult{Schema: name, Statements: stmts}
		if !dryRun {
			report, err := create.Exec(ctx)
			if err != nil {
				errs = append(errs, fmt.Errorf("schema %s: %w", name, err))
				continue
			}
			res.Report = report
			if rerr := report.Err(); rerr != nil {
				errs = append(errs, fmt.Errorf("schema %s: %w", name, rerr))
			}
		}
		out = append(out, res)
	}
	return out, errors.Join(errs...)
}
