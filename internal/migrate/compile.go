package migrate

import (
	"fmt"
	"strconv"
	"strings"

	"schemabridge/internal/dialect"
)

const defaultVarcharLength = 255

// nowDefault is the default value that compiles to CURRENT_TIMESTAMP.
const nowDefault = "NOW()"

// columnType maps a field type to its SQL column type.
func columnType(def ColumnDefinition) string {
	switch def.Type {
	case "int", "integer":
		return "INTEGER"
	case "number":
		return "DECIMAL(10,2)"
	case "boolean":
		return "TINYINT(1)"
	case "date", "datetime":
		return "DATETIME"
	case "text":
		return "TEXT"
	default:
		length := def.Length
		if length <= 0 {
			length = defaultVarcharLength
		}
		return fmt.Sprintf("VARCHAR(%d)", length)
	}
}

// compileColumn renders a column definition as used by CREATE TABLE and
// ADD COLUMN.
func compileColumn(d dialect.Name, def ColumnDefinition) (string, error) {
	if strings.TrimSpace(def.Name) == "" {
		return "", fmt.Errorf("column has no name")
	}
	parts := []string{d.Quote(def.Name)}

	typ := columnType(def)
	if d == dialect.Postgres && def.AutoIncrement {
		typ = "SERIAL"
	}
	parts = append(parts, typ)

	if def.NotNull || def.IsPrimary {
		parts = append(parts, "NOT NULL")
	}

	switch d {
	case dialect.MySQL:
		if def.AutoIncrement {
			parts = append(parts, "AUTO_INCREMENT")
		}
		if def.IsPrimary {
			parts = append(parts, "PRIMARY KEY")
		}
	case dialect.Postgres:
		if def.IsPrimary {
			parts = append(parts, "PRIMARY KEY")
		}
	default:
		switch {
		case def.IsPrimary && def.AutoIncrement:
			parts = append(parts, "PRIMARY KEY AUTOINCREMENT")
		case def.IsPrimary:
			parts = append(parts, "PRIMARY KEY")
		case def.AutoIncrement:
			parts = append(parts, "AUTOINCREMENT")
		}
	}

	if def.DefaultValue != nil {
		parts = append(parts, "DEFAULT "+defaultLiteral(def.DefaultValue))
	}

	if def.IsUnique && !def.IsPrimary {
		if d == dialect.Postgres {
			parts = append(parts, "CONSTRAINT "+d.Quote(uniqueName(def.Name))+" UNIQUE")
		} else {
			parts = append(parts, "UNIQUE")
		}
	}

	if len(def.EnumValues) > 0 {
		values := make([]string, 0, len(def.EnumValues))
		for _, v := range def.EnumValues {
			values = append(values, dialect.QuoteString(v))
		}
		parts = append(parts, fmt.Sprintf("CHECK (%s IN (%s))", d.Quote(def.Name), strings.Join(values, ", ")))
	}

	if fk := def.ForeignKey; fk != nil && fk.Table != "" {
		column := fk.Column
		if column == "" {
			column = "id"
		}
		parts = append(parts, fmt.Sprintf("REFERENCES %s (%s)", d.Quote(fk.Table), d.Quote(column)))
	}
	return strings.Join(parts, " "), nil
}

// defaultLiteral quotes strings and leaves other literals bare.
func defaultLiteral(v any) string {
	switch val := v.(type) {
	case string:
		if strings.EqualFold(val, nowDefault) {
			return "CURRENT_TIMESTAMP"
		}
		return dialect.QuoteString(val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func compileCreate(d dialect.Name, table string, columns []ColumnDefinition) (string, error) {
	cols := make([]string, 0, len(columns))
	for _, def := range columns {
		col, err := compileColumn(d, def)
		if err != nil {
			return "", fmt.Errorf("table %s: %w", table, err)
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.Quote(table), strings.Join(cols, ", ")), nil
}

func compileModify(d dialect.Name, table string, def ColumnDefinition) (string, error) {
	switch d {
	case dialect.MySQL:
		col, err := compileColumn(d, def)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", d.Quote(table), col), nil
	case dialect.Postgres:
		col := d.Quote(def.Name)
		typ := columnType(def)
		clauses := []string{fmt.Sprintf("ALTER COLUMN %s TYPE %s", col, typ)}
		if def.NotNull || def.IsPrimary {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", col))
		} else {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", col))
		}
		if def.DefaultValue != nil {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", col, defaultLiteral(def.DefaultValue)))
		} else {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", col))
		}
		return fmt.Sprintf("ALTER TABLE %s %s", d.Quote(table), strings.Join(clauses, ", ")), nil
	default:
		return "", fmt.Errorf("%s cannot modify column %s of %s in place", d, def.Name, table)
	}
}
