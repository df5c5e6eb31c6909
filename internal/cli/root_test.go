package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := `
connections:
  - name: main
    provider: sqlite
    dsn: ` + filepath.Join(dir, "bridge.db") + `
  - name: cache
    provider: memory
schemas:
  - name: users
    structure:
      id: int auto-increment
      name: string unique
  - name: sessions
    connection: cache
    options:
      delete_type: softDelete
    structure:
      id: string
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func writePlan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "0001_orders.yaml")
	body := `
steps:
  - create: orders
    columns:
      - {name: id, type: int, primary: true, auto_increment: true}
      - {name: total, type: number, default: 0}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRootRejectsUnknownFormat(t *testing.T) {
	_, err := run(t, "schemas", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSchemasCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "schemas", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "softDelete")

	out, err = run(t, "schemas", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	var body struct {
		Schemas []schemaRow `json:"schemas"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Len(t, body.Schemas, 2)
	assert.Equal(t, schemaRow{Name: "sessions", Connection: "cache", Collection: "sessions", Fields: 1, DeleteType: "softDelete"}, body.Schemas[0])
	assert.Equal(t, "main", body.Schemas[1].Connection)
}

func TestSyncCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "sync", "--config", cfg, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "-- users\nCREATE TABLE IF NOT EXISTS `users` (`id` INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT, `name` VARCHAR(255) NOT NULL UNIQUE);")
	assert.NotContains(t, out, "sessions")

	_, err = run(t, "sync", "--config", cfg)
	require.NoError(t, err)

	out, err = run(t, "sync", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	assert.NotContains(t, out, `"error"`)
}

func TestMigrateDryRun(t *testing.T) {
	plan := writePlan(t)

	out, err := run(t, "migrate", plan, "--dry-run", "--dialect", "postgres")
	require.NoError(t, err)
	assert.Equal(t, "-- 0001_orders (postgres)\n"+
		`CREATE TABLE IF NOT EXISTS "orders" ("id" SERIAL NOT NULL PRIMARY KEY, "total" DECIMAL(10,2) DEFAULT 0);`+"\n", out)
}

func TestMigrateAndStatus(t *testing.T) {
	cfg := writeConfig(t)
	plan := writePlan(t)

	out, err := run(t, "status", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "no plans applied\n", out)

	out, err = run(t, "migrate", plan, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "0001_orders: 1 statement(s) applied, 0 failed\n", out)

	out, err = run(t, "migrate", plan, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "0001_orders: already applied\n", out)

	out, err = run(t, "status", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	var body struct {
		Connection string `json:"connection"`
		Applied    []struct {
			Name string `json:"name"`
		} `json:"applied"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "main", body.Connection)
	require.Len(t, body.Applied, 1)
	assert.Equal(t, "0001_orders", body.Applied[0].Name)
}

func TestMigrateOnMemoryConnectionFails(t *testing.T) {
	cfg := writeConfig(t)
	plan := writePlan(t)

	_, err := run(t, "status", "--config", cfg, "--connection", "cache")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw_unsupported")

	_, err = run(t, "migrate", plan, "--config", cfg, "--dry-run", "--dialect", "sqlite")
	require.NoError(t, err)
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, "init-config", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "connections:")

	_, err = run(t, "init-config", "--path", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestDiffCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "diff", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "Connection main: missing tables: users\n", out)

	_, err = run(t, "diff", "--config", cfg, "--fail")
	assert.ErrorContains(t, err, "drift")

	_, err = run(t, "sync", "--config", cfg)
	require.NoError(t, err)
	out, err = run(t, "diff", "--config", cfg, "--fail")
	require.NoError(t, err)
	assert.Equal(t, "schemas match\n", out)
}
