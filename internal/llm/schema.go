package llm

import (
	"encoding/json"

	"github.com/vapl/orderdocs/internal/schema"
)

// BuildRowsJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It is passed to the AI service as a structured output
// constraint and also used locally to validate the response. Every target
// column key is required, typed as string, or string-or-array-of-string for
// multi-select columns.
func BuildRowsJSONSchema(cols []schema.Column) map[string]any {
	props := make(map[string]any, len(cols))
	required := make([]string, 0, len(cols))
	for _, c := range cols {
		if c.IsMultiSelect() {
			props[c.Key] = map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			}
		} else {
			props[c.Key] = map[string]any{"type": "string"}
		}
		required = append(required, c.Key)
	}

	rowSchema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"rows": map[string]any{"type": "array", "items": rowSchema},
		},
		"required": []string{"rows"},
	}
}

// DecodeRows parses a schema-constrained completion body. Any malformed or
// schema-violating body yields nil rows, so the cascade simply advances.
func DecodeRows(content []byte, schemaMap map[string]any) []map[string]any {
	if len(content) == 0 {
		return nil
	}
	if schemaMap != nil {
		if err := ValidateJSONAgainstSchema(schemaMap, content); err != nil {
			return nil
		}
	}
	var payload struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(content, &payload); err != nil {
		return nil
	}
	return payload.Rows
}
