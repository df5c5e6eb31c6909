package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllowUndefinedKey is the descriptor key that, instead of declaring a field,
// lets documents of the schema carry keys that are not declared.
const AllowUndefinedKey = "?field"

// Rule tokens understood by Parse.
const (
	RuleAutoIncrement    = "auto-increment"
	RuleUnique           = "unique"
	RuleNullable         = "nullable"
	RuleDefaultNow       = "default_current_datetime"
	RuleDefaultNowAlt    = "default.currentDatetime"
	RuleDefaultValue     = "default.value"
	RuleForeignKeyPrefix = "foreignKey."
)

// Token is one descriptor token: a word, or a literal list of enum values.
type Token struct {
	Word string
	Enum []string
}

// IsEnum reports whether the token is an enum list.
func (t Token) IsEnum() bool { return t.Enum != nil }

func (t Token) String() string {
	if t.IsEnum() {
		return "[" + strings.Join(t.Enum, ",") + "]"
	}
	return t.Word
}

func (t Token) value() any {
	if t.IsEnum() {
		return append([]string(nil), t.Enum...)
	}
	return t.Word
}

// Entry is one descriptor key and its tokens.
type Entry struct {
	Name   string
	Tokens []Token
}

// Descriptor is the ordered shorthand description of a schema's fields.
type Descriptor []Entry

// Def builds an entry from a space separated shorthand such as
// "int auto-increment unique".
func Def(name, shorthand string) Entry {
	return Entry{Name: name, Tokens: Tokenize(shorthand)}
}

// DefTokens builds an entry from literal tokens. A string is one token, a
// []string is an enum list.
func DefTokens(name string, tokens ...any) Entry {
	return Entry{Name: name, Tokens: tokensFrom(tokens)}
}

// Tokenize splits a shorthand string on whitespace.
func Tokenize(shorthand string) []Token {
	words := strings.Fields(shorthand)
	out := make([]Token, 0, len(words))
	for _, w := range words {
		out = append(out, Token{Word: w})
	}
	return out
}

// TokensOf converts a descriptor value (a shorthand string or a literal list)
// into tokens. Scalars of any other type become a single word.
func TokensOf(value any) []Token {
	switch v := value.(type) {
	case string:
		return Tokenize(v)
	case []string:
		out := make([]Token, 0, len(v))
		for _, w := range v {
			out = append(out, Token{Word: w})
		}
		return out
	case []any:
		return tokensFrom(v)
	case nil:
		return nil
	default:
		return []Token{{Word: fmt.Sprint(v)}}
	}
}

func tokensFrom(items []any) []Token {
	out := make([]Token, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, Token{Word: v})
		case []string:
			out = append(out, Token{Enum: append([]string{}, v...)})
		case []any:
			enum := make([]string, 0, len(v))
			for _, e := range v {
				enum = append(enum, fmt.Sprint(e))
			}
			out = append(out, Token{Enum: enum})
		case nil:
		default:
			out = append(out, Token{Word: fmt.Sprint(v)})
		}
	}
	return out
}

// DescriptorFromMap builds a descriptor from a map. Go maps are unordered, so
// entries are sorted by key.
func DescriptorFromMap(m map[string]any) Descriptor {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := make(Descriptor, 0, len(keys))
	for _, k := range keys {
		d = append(d, Entry{Name: k, Tokens: TokensOf(m[k])})
	}
	return d
}

// UnmarshalYAML decodes a mapping node, keeping document order.
func (d *Descriptor) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("structure must be a mapping, got %s", kindName(node.Kind))
	}
	out := make(Descriptor, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		out = append(out, Entry{Name: key, Tokens: TokensOf(value)})
	}
	*d = out
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.DocumentNode:
		return "document"
	case yaml.AliasNode:
		return "alias"
	default:
		return "mapping"
	}
}

// Parse turns a descriptor into fields.
//
// The first token of an entry is its type when it names one (integer and
// datetime are aliases of int and date); otherwise the type stays string and
// the token is read as a rule. Rule tokens apply in order. Unknown tokens are
// ignored: descriptors are lenient on purpose and that is part of the
// contract. Parse is pure.
func Parse(d Descriptor) ([]Field, bool) {
	fields := make([]Field, 0, len(d))
	allowUndefined := false
	for _, e := range d {
		if e.Name == AllowUndefinedKey {
			allowUndefined = true
			continue
		}
		fields = append(fields, parseEntry(e))
	}
	return fields, allowUndefined
}

func parseEntry(e Entry) Field {
	f := Field{
		Name:   e.Name,
		Type:   TypeString,
		Config: cloneTokens(e.Tokens),
	}
	tokens := e.Tokens
	i := 0
	if len(tokens) > 0 && !tokens[0].IsEnum() {
		if t, ok := LookupType(tokens[0].Word); ok {
			f.Type = t
			i = 1
		}
	}
	for i < len(tokens) {
		tok := tokens[i]
		if tok.IsEnum() {
			f.EnumValues = append([]string{}, tok.Enum...)
			f.Type = TypeString
			i++
			continue
		}
		switch {
		case tok.Word == RuleAutoIncrement:
			f.AutoIncrement = true
		case tok.Word == RuleUnique:
			f.IsUnique = true
		case tok.Word == RuleNullable:
			f.Nullable = true
		case tok.Word == RuleDefaultNow, tok.Word == RuleDefaultNowAlt:
			f.DefaultValue = DefaultNow
		case tok.Word == RuleDefaultValue:
			if i+1 < len(tokens) {
				f.DefaultValue = literal(tokens[i+1].value(), f.Type)
			}
			i += 2
			continue
		case strings.HasPrefix(tok.Word, RuleForeignKeyPrefix):
			f.IsForeignKey = true
			f.ForeignRef = strings.TrimPrefix(tok.Word, RuleForeignKeyPrefix)
		}
		i++
	}
	return f
}

// literal converts a default.value literal to the field's type when it parses
// cleanly, and keeps the raw string otherwise.
func literal(v any, t FieldType) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch t {
	case TypeInt:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case TypeNumber:
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
	case TypeBoolean:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}

func cloneTokens(tokens []Token) []Token {
	if tokens == nil {
		return nil
	}
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		out[i] = Token{Word: t.Word}
		if t.Enum != nil {
			out[i].Enum = append([]string{}, t.Enum...)
		}
	}
	return out
}
