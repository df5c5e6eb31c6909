package migrate

import "strings"

// ForeignKey is the target of a REFERENCES clause.
type ForeignKey struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

// ColumnDefinition describes one column. Type uses the field type names
// (int, number, boolean, date, text, string); anything else is a string.
type ColumnDefinition struct {
	Name          string      `yaml:"name"`
	Type          string      `yaml:"type"`
	Length        int         `yaml:"length"`
	IsPrimary     bool        `yaml:"primary"`
	IsUnique      bool        `yaml:"unique"`
	NotNull       bool        `yaml:"not_null"`
	AutoIncrement bool        `yaml:"auto_increment"`
	DefaultValue  any         `yaml:"default"`
	EnumValues    []string    `yaml:"enum"`
	ForeignKey    *ForeignKey `yaml:"foreign_key"`
}

// ColumnBuilder is returned by AddColumn and SelectColumn. Setters may be
// chained at any point before Exec; the definition is read when statements
// are compiled.
type ColumnBuilder struct {
	def ColumnDefinition
}

func newColumn(name string) *ColumnBuilder {
	return &ColumnBuilder{def: ColumnDefinition{Name: name, Type: "string"}}
}

// Column wraps an existing definition in a builder.
func Column(def ColumnDefinition) *ColumnBuilder {
	c := &ColumnBuilder{def: def}
	c.def.EnumValues = append([]string(nil), def.EnumValues...)
	if def.ForeignKey != nil {
		fk := *def.ForeignKey
		c.def.ForeignKey = &fk
	}
	return c
}

func (c *ColumnBuilder) Type(t string) *ColumnBuilder {
	c.def.Type = strings.ToLower(strings.TrimSpace(t))
	return c
}

func (c *ColumnBuilder) Length(n int) *ColumnBuilder {
	c.def.Length = n
	return c
}

func (c *ColumnBuilder) Primary() *ColumnBuilder {
	c.def.IsPrimary = true
	return c
}

func (c *ColumnBuilder) Unique() *ColumnBuilder {
	c.def.IsUnique = true
	return c
}

func (c *ColumnBuilder) NotNull() *ColumnBuilder {
	c.def.NotNull = true
	return c
}

// Nullable clears NotNull.
func (c *ColumnBuilder) Nullable() *ColumnBuilder {
	c.def.NotNull = false
	return c
}

func (c *ColumnBuilder) AutoIncrement() *ColumnBuilder {
	c.def.AutoIncrement = true
	return c
}

// Default sets the default value. Strings are quoted when compiled; the
// string "NOW()" becomes CURRENT_TIMESTAMP.
func (c *ColumnBuilder) Default(v any) *ColumnBuilder {
	c.def.DefaultValue = v
	return c
}

func (c *ColumnBuilder) Enum(values ...string) *ColumnBuilder {
	c.def.EnumValues = append([]string(nil), values...)
	return c
}

func (c *ColumnBuilder) References(table, column string) *ColumnBuilder {
	c.def.ForeignKey = &ForeignKey{Table: table, Column: column}
	return c
}

// Definition returns a snapshot of the column.
func (c *ColumnBuilder) Definition() ColumnDefinition {
	def := c.def
	def.EnumValues = append([]string(nil), c.def.EnumValues...)
	if c.def.ForeignKey != nil {
		fk := *c.def.ForeignKey
		def.ForeignKey = &fk
	}
	return def
}
