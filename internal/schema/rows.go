package schema

// RawRow is an untyped row as produced by any extraction tier: spreadsheet
// cells, regex extraction, or the AI service's JSON. Fields maps arbitrary
// raw keys to values; Sources optionally records, per raw key, the textual
// cue or header cell that supplied the value. Raw rows are never persisted
// and are consumed only by the normalizer.
type RawRow struct {
	Fields  map[string]any
	Sources map[string]string
}

// ParsedRow maps column keys to normalized values: a string for Text, Number
// and single-select columns, an ordered []string for multi-select. Sources
// records per column key the raw source key that supplied the value, "" if
// none.
type ParsedRow struct {
	Values  map[string]any    `json:"values"`
	Sources map[string]string `json:"sources"`
}

// ColumnMapping is the per-column diagnostic summary: the most frequent
// provenance seen across all rows (majority vote) and its frequency. Purely
// informational; it never feeds back into parsing.
type ColumnMapping struct {
	ColumnKey   string `json:"column_key"`
	ColumnLabel string `json:"column_label"`
	SourceKey   string `json:"source_key"`
	MatchedRows int    `json:"matched_rows"`
}
