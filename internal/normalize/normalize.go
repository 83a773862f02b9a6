package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vapl/orderdocs/internal/schema"
)

// Rows maps raw rows from any tier onto the target column schema, coerces
// values by field type, records provenance per column, and computes the
// per-column majority-vote mapping summary. Rows where every resolved value
// is empty are discarded.
func Rows(raw []schema.RawRow, cols []schema.Column) ([]schema.ParsedRow, []schema.ColumnMapping) {
	parsed := make([]schema.ParsedRow, 0, len(raw))
	// provenance frequency per column key
	freq := make(map[string]map[string]int, len(cols))
	for _, c := range cols {
		freq[c.Key] = make(map[string]int)
	}

	for _, rr := range raw {
		row := schema.ParsedRow{
			Values:  make(map[string]any, len(cols)),
			Sources: make(map[string]string, len(cols)),
		}
		hasValue := false
		for _, c := range cols {
			rawKey, val := resolve(rr, c)
			coerced := coerce(val, c)
			row.Values[c.Key] = coerced
			src := ""
			if !isEmpty(coerced) {
				hasValue = true
				src = rawKey
				if cue, ok := rr.Sources[rawKey]; ok && cue != "" {
					src = cue
				}
				freq[c.Key][src]++
			}
			row.Sources[c.Key] = src
		}
		if hasValue {
			parsed = append(parsed, row)
		}
	}

	mapping := make([]schema.ColumnMapping, 0, len(cols))
	for _, c := range cols {
		best, bestN := "", 0
		for src, n := range freq[c.Key] {
			if n > bestN || (n == bestN && best != "" && src < best) {
				best, bestN = src, n
			}
		}
		mapping = append(mapping, schema.ColumnMapping{
			ColumnKey:   c.Key,
			ColumnLabel: c.Label,
			SourceKey:   best,
			MatchedRows: bestN,
		})
	}
	return parsed, mapping
}

// resolve finds the raw value feeding a column, by priority: exact match on
// key, then label, then aiKey, then a scan of all normalized raw keys against
// the column's normalized identifiers.
func resolve(rr schema.RawRow, c schema.Column) (string, any) {
	for _, id := range c.Identifiers() {
		if v, ok := rr.Fields[id]; ok {
			return id, v
		}
	}
	normIDs := make(map[string]struct{}, 3)
	for _, id := range c.Identifiers() {
		if n := schema.NormalizeToken(id); n != "" {
			normIDs[n] = struct{}{}
		}
	}
	// Scan in sorted key order: when two raw keys normalize to the same
	// identifier the winner, and hence the provenance, must not depend on
	// map iteration order.
	rawKeys := make([]string, 0, len(rr.Fields))
	for rawKey := range rr.Fields {
		rawKeys = append(rawKeys, rawKey)
	}
	sort.Strings(rawKeys)
	for _, rawKey := range rawKeys {
		if _, ok := normIDs[schema.NormalizeToken(rawKey)]; ok {
			return rawKey, rr.Fields[rawKey]
		}
	}
	return "", nil
}

func coerce(v any, c schema.Column) any {
	switch c.FieldType {
	case schema.FieldTypeNumber:
		return coerceNumber(v)
	case schema.FieldTypeSelect:
		return coerceSelect(v, c)
	default:
		return strings.TrimSpace(asString(v))
	}
}

// coerceNumber replaces a decimal comma with a dot and keeps the value only
// if it parses; an unparseable value passes through trimmed rather than being
// dropped.
func coerceNumber(v any) string {
	s := strings.TrimSpace(asString(v))
	if s == "" {
		return ""
	}
	dotted := strings.ReplaceAll(s, ",", ".")
	if _, err := strconv.ParseFloat(dotted, 64); err == nil {
		return dotted
	}
	return s
}

var selectSplitter = strings.NewReplacer("/", "\n", ";", "\n", ",", "\n")

func coerceSelect(v any, c schema.Column) any {
	var pieces []string
	switch t := v.(type) {
	case []string:
		pieces = t
	case []any:
		for _, e := range t {
			pieces = append(pieces, asString(e))
		}
	default:
		for _, p := range strings.Split(selectSplitter.Replace(asString(v)), "\n") {
			if p = strings.TrimSpace(p); p != "" {
				pieces = append(pieces, p)
			}
		}
	}

	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, mapOption(p, c.Options))
		if len(out) == c.MaxSelect {
			break
		}
	}

	if c.MaxSelect <= 1 {
		if len(out) == 0 {
			return ""
		}
		return out[0]
	}
	return out
}

// mapOption matches a piece to a declared option via normalized-token
// equality, falling back to the raw piece when nothing matches.
func mapOption(piece string, options []string) string {
	norm := schema.NormalizeToken(piece)
	for _, opt := range options {
		if schema.NormalizeToken(opt) == norm {
			return opt
		}
	}
	return piece
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	default:
		return false
	}
}
