package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldType is the closed set of column value types.
type FieldType string

const (
	FieldTypeText   FieldType = "TEXT"
	FieldTypeNumber FieldType = "NUMBER"
	FieldTypeSelect FieldType = "SELECT"
)

// Column describes one target field of the caller-supplied table schema.
// Immutable for the duration of a parse request.
type Column struct {
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	AIKey     string    `json:"ai_key,omitempty"`
	FieldType FieldType `json:"field_type"`
	Options   []string  `json:"options,omitempty"`    // SELECT only
	MaxSelect int       `json:"max_select,omitempty"` // SELECT only, 1..3
}

// IsMultiSelect reports whether the column holds a list value.
func (c Column) IsMultiSelect() bool {
	return c.FieldType == FieldTypeSelect && c.MaxSelect > 1
}

// Identifiers returns the column's non-empty identifiers in resolution
// priority order: key, label, aiKey.
func (c Column) Identifiers() []string {
	ids := make([]string, 0, 3)
	for _, s := range []string{c.Key, c.Label, c.AIKey} {
		if strings.TrimSpace(s) != "" {
			ids = append(ids, s)
		}
	}
	return ids
}

// ValidateColumns checks a schema once at the boundary so the extractors
// never have to re-validate. MaxSelect is clamped to 1..3 for SELECT columns.
func ValidateColumns(cols []Column) ([]Column, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("column schema is empty")
	}
	seen := make(map[string]struct{}, len(cols))
	out := make([]Column, 0, len(cols))
	for i, c := range cols {
		c.Key = strings.TrimSpace(c.Key)
		if c.Key == "" {
			return nil, fmt.Errorf("column %d: key is required", i)
		}
		if _, dup := seen[c.Key]; dup {
			return nil, fmt.Errorf("column %d: duplicate key %q", i, c.Key)
		}
		seen[c.Key] = struct{}{}

		switch c.FieldType {
		case FieldTypeText, FieldTypeNumber:
			c.Options = nil
			c.MaxSelect = 0
		case FieldTypeSelect:
			if c.MaxSelect < 1 {
				c.MaxSelect = 1
			}
			if c.MaxSelect > 3 {
				c.MaxSelect = 3
			}
		case "":
			c.FieldType = FieldTypeText
		default:
			return nil, fmt.Errorf("column %q: unknown field type %q", c.Key, c.FieldType)
		}
		out = append(out, c)
	}
	return out, nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeToken lowercases s and collapses every non-alphanumeric run to a
// single underscore. This is the one normalization used for column matching
// everywhere: the heuristic parsers, the normalizer, and the spreadsheet
// header matcher.
func NormalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlnum.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
