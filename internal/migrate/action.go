package migrate

import (
	"fmt"

	"schemabridge/internal/dialect"
)

// Action is one queued schema change. The concrete types are AddColumn,
// DropColumn, ModifyColumn, DropTable, DropUnique and DropPrimaryKey.
type Action interface {
	// Kind names the action in logs and reports.
	Kind() string
	// Statement compiles the action into a single ALTER or DROP statement.
	Statement(d dialect.Name, table string) (string, error)
}

type AddColumn struct{ Column *ColumnBuilder }

type DropColumn struct{ Name string }

type ModifyColumn struct{ Column *ColumnBuilder }

type DropTable struct{ Name string }

// DropUnique drops the unique constraint of a column. MySQL drops the index
// named after the column; other dialects drop the constraint "{column}_unique",
// the name CREATE gives it on postgres. Constraints created elsewhere may not
// follow that convention.
type DropUnique struct{ Name string }

// DropPrimaryKey drops a table's primary key. Name is the constraint name on
// dialects that need one and defaults to "{table}_pkey"; MySQL ignores it.
type DropPrimaryKey struct{ Name string }

func (AddColumn) Kind() string      { return "addColumn" }
func (DropColumn) Kind() string     { return "dropColumn" }
func (ModifyColumn) Kind() string   { return "modifyColumn" }
func (DropTable) Kind() string      { return "dropTable" }
func (DropUnique) Kind() string     { return "dropUnique" }
func (DropPrimaryKey) Kind() string { return "dropPrimaryKey" }

func (a AddColumn) Statement(d dialect.Name, table string) (string, error) {
	col, err := compileColumn(d, a.Column.Definition())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.Quote(table), col), nil
}

func (a DropColumn) Statement(d dialect.Name, table string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.Quote(table), d.Quote(a.Name)), nil
}

func (a ModifyColumn) Statement(d dialect.Name, table string) (string, error) {
	return compileModify(d, table, a.Column.Definition())
}

func (a DropTable) Statement(d dialect.Name, table string) (string, error) {
	name := a.Name
	if name == "" {
		name = table
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.Quote(name)), nil
}

func (a DropUnique) Statement(d dialect.Name, table string) (string, error) {
	if d == dialect.MySQL {
		return fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", d.Quote(table), d.Quote(a.Name)), nil
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.Quote(table), d.Quote(uniqueName(a.Name))), nil
}

func (a DropPrimaryKey) Statement(d dialect.Name, table string) (string, error) {
	if d == dialect.MySQL {
		return fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", d.Quote(table)), nil
	}
	name := a.Name
	if name == "" {
		name = table + "_pkey"
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.Quote(table), d.Quote(name)), nil
}

func uniqueName(column string) string { return column + "_unique" }
