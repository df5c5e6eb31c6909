package schema

import "strings"

// FieldType is the logical type of a field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeInt     FieldType = "int"
	TypeText    FieldType = "text"
)

// DefaultNow is the default-value sentinel resolved to the current time when
// a document is written, never at parse time.
const DefaultNow = "NOW()"

// Field is one column or property of a schema.
type Field struct {
	Name          string
	Type          FieldType
	AutoIncrement bool
	Nullable      bool
	DefaultValue  any
	IsUnique      bool
	IsForeignKey  bool
	ForeignRef    string
	EnumValues    []string
	// Config holds the descriptor tokens the field was parsed from.
	Config []Token
}

// HasDefault reports whether the field carries a default value.
func (f Field) HasDefault() bool { return f.DefaultValue != nil }

// ForeignTable splits ForeignRef ("table.column") and returns the table.
func (f Field) ForeignTable() string {
	table, _, _ := strings.Cut(f.ForeignRef, ".")
	return table
}

// ForeignColumn returns the column part of ForeignRef, defaulting to "id".
func (f Field) ForeignColumn() string {
	_, column, ok := strings.Cut(f.ForeignRef, ".")
	if !ok || column == "" {
		return "id"
	}
	return column
}

var typeNames = map[string]FieldType{
	"string":   TypeString,
	"number":   TypeNumber,
	"boolean":  TypeBoolean,
	"date":     TypeDate,
	"int":      TypeInt,
	"text":     TypeText,
	"integer":  TypeInt,
	"datetime": TypeDate,
}

// LookupType maps a descriptor type name to a FieldType.
func LookupType(name string) (FieldType, bool) {
	t, ok := typeNames[name]
	return t, ok
}
