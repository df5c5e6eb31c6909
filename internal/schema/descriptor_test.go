package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	fields, allowUndefined := Parse(Descriptor{
		Def("id", "int auto-increment unique"),
		Def("email", "string unique"),
		Def("age", "integer default.value 18"),
		Def("ratio", "number default.value 0.5"),
		Def("active", "boolean default.value true"),
		Def("createdOn", "datetime default_current_datetime"),
		Def("updatedOn", "date default.currentDatetime nullable"),
		Def("ownerId", "int foreignKey.users.id"),
		DefTokens("status", "string", []string{"draft", "live"}, "default.value", "draft"),
		Def(AllowUndefinedKey, ""),
	})

	require.True(t, allowUndefined)
	require.Len(t, fields, 9)

	assert.Equal(t, Field{
		Name:          "id",
		Type:          TypeInt,
		AutoIncrement: true,
		IsUnique:      true,
		Config:        Tokenize("int auto-increment unique"),
	}, fields[0])

	assert.Equal(t, TypeString, fields[1].Type)
	assert.True(t, fields[1].IsUnique)

	assert.Equal(t, TypeInt, fields[2].Type)
	assert.Equal(t, int64(18), fields[2].DefaultValue)
	assert.Equal(t, 0.5, fields[3].DefaultValue)
	assert.Equal(t, true, fields[4].DefaultValue)

	assert.Equal(t, TypeDate, fields[5].Type)
	assert.Equal(t, DefaultNow, fields[5].DefaultValue)
	assert.Equal(t, DefaultNow, fields[6].DefaultValue)
	assert.True(t, fields[6].Nullable)

	assert.True(t, fields[7].IsForeignKey)
	assert.Equal(t, "users.id", fields[7].ForeignRef)
	assert.Equal(t, "users", fields[7].ForeignTable())
	assert.Equal(t, "id", fields[7].ForeignColumn())

	assert.Equal(t, []string{"draft", "live"}, fields[8].EnumValues)
	assert.Equal(t, TypeString, fields[8].Type)
	assert.Equal(t, "draft", fields[8].DefaultValue)
}

func TestParseIsIdempotent(t *testing.T) {
	d := Descriptor{
		Def("id", "int auto-increment"),
		DefTokens("kind", []string{"a", "b"}),
	}
	first, _ := Parse(d)
	second, _ := Parse(d)
	assert.Equal(t, first, second)

	first[1].EnumValues[0] = "changed"
	first[1].Config[0].Enum[0] = "changed"
	third, _ := Parse(d)
	assert.Equal(t, []string{"a", "b"}, third[1].EnumValues)
	assert.Equal(t, []string{"a", "b"}, d[1].Tokens[0].Enum)
}

func TestParseLeniency(t *testing.T) {
	fields, allowUndefined := Parse(Descriptor{
		Def("name", "string sparkly indexed unique"),
		Def("loose", "primary unique"),
		Def("empty", ""),
		Def("trailing", "int default.value"),
	})
	assert.False(t, allowUndefined)
	require.Len(t, fields, 4)

	assert.Equal(t, TypeString, fields[0].Type)
	assert.True(t, fields[0].IsUnique)

	// an unknown first token is read as a rule, so the type stays string
	assert.Equal(t, TypeString, fields[1].Type)
	assert.True(t, fields[1].IsUnique)

	assert.Equal(t, TypeString, fields[2].Type)
	assert.False(t, fields[2].HasDefault())

	assert.Equal(t, TypeInt, fields[3].Type)
	assert.False(t, fields[3].HasDefault())
}

func TestDescriptorFromMap(t *testing.T) {
	d := DescriptorFromMap(map[string]any{
		"name":   "string",
		"age":    "int",
		"role":   []any{"string", []any{"admin", "user"}},
		"?field": "",
	})
	require.Len(t, d, 4)
	assert.Equal(t, []string{"?field", "age", "name", "role"}, []string{d[0].Name, d[1].Name, d[2].Name, d[3].Name})

	fields, allowUndefined := Parse(d)
	assert.True(t, allowUndefined)
	require.Len(t, fields, 3)
	assert.Equal(t, []string{"admin", "user"}, fields[2].EnumValues)
}

func TestDescriptorYAMLKeepsOrder(t *testing.T) {
	var d Descriptor
	err := yaml.Unmarshal([]byte(`
zeta: int auto-increment
alpha: string unique
kind: [string, [a, b]]
mid: date default_current_datetime
`), &d)
	require.NoError(t, err)

	fields, _ := Parse(d)
	require.Len(t, fields, 4)
	assert.Equal(t, "zeta", fields[0].Name)
	assert.Equal(t, "alpha", fields[1].Name)
	assert.Equal(t, []string{"a", "b"}, fields[2].EnumValues)
	assert.Equal(t, DefaultNow, fields[3].DefaultValue)

	err = yaml.Unmarshal([]byte(`[a, b]`), &d)
	assert.ErrorContains(t, err, "mapping")
}
