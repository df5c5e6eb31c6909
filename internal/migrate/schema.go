package migrate

import (
	"schemabridge/internal/schema"
)

// FromSchema queues a CREATE TABLE for a registered schema on its own
// connection and collection.
//
// The first auto-increment field is the primary key; without one, a field
// named "id" is. Fields that are not nullable and have no default are NOT
// NULL.
func (m *Migrator) FromSchema(def *schema.SchemaDef) *CreateTable {
	table := m.Create(def.CollectionName)
	if def.ConnectionName != "" {
		table.UseConnection(def.ConnectionName)
	}
	primary := primaryField(def.Fields)
	for _, f := range def.Fields {
		col := table.AddColumn(f.Name).Type(string(f.Type))
		if f.Name == primary {
			col.Primary()
		}
		if f.AutoIncrement {
			col.AutoIncrement()
		}
		if !f.Nullable && !f.HasDefault() {
			col.NotNull()
		}
		if f.IsUnique {
			col.Unique()
		}
		if f.HasDefault() {
			col.Default(f.DefaultValue)
		}
		if len(f.EnumValues) > 0 {
			col.Enum(f.EnumValues...)
		}
		if f.IsForeignKey {
			col.References(f.ForeignTable(), f.ForeignColumn())
		}
	}
	return table
}

func primaryField(fields []schema.Field) string {
	for _, f := range fields {
		if f.AutoIncrement {
			return f.Name
		}
	}
	for _, f := range fields {
		if f.Name == "id" {
			return f.Name
		}
	}
	return ""
}
