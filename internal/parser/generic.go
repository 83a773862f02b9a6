package parser

import (
	"regexp"
	"strings"

	"github.com/vapl/orderdocs/internal/schema"
)

// extractor is one step of a per-category chain: first pattern that matches
// a block wins, and the source label is recorded as provenance.
type extractor struct {
	source string
	re     *regexp.Regexp
}

func (e extractor) apply(block string) (string, bool) {
	m := e.re.FindStringSubmatch(block)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Extractor chains per category, ordered by precision. OCR output tends to
// glue labels to values, so the patterns stay tolerant about separators.
var (
	positionChain = []extractor{
		{"Pos.", regexp.MustCompile(`(?i)pos\.?\s*:?\s*([A-Za-z0-9][\w./-]*)`)},
		{"token", regexp.MustCompile(`(?m)^\s*([A-Z]{1,3}[-.]?\d{1,4})\b`)},
	}
	quantityChain = []extractor{
		{"Quantity", regexp.MustCompile(`(?i)\b(?:quantity|skaits|qty|on)\b\s*[:–-]?\s*(\d+(?:[.,]\d+)?)`)},
		{"pcs", regexp.MustCompile(`(?i)\b(\d+)\s*(?:pcs|pc|gab)\b`)},
	}
	systemChain = []extractor{
		{"System", regexp.MustCompile(`(?i)\b(?:system|construction|konstrukcija)\b\s*[:–-]?\s*([^\n,;(]+)`)},
		{"material", regexp.MustCompile(`(?i)\b(alumini[u]?m[^\n,;(]*|pvc[^\n,;(]*)`)},
	}
	colorChain = []extractor{
		{"colour", regexp.MustCompile(`(?i)(?:profiles?\s+)?colou?rs?\s*[:\-]\s*([^\n;]+)`)},
		{"color-code", regexp.MustCompile(`(?i)\b(RAL\s?\d{4})\b`)},
	}

	loosePos = regexp.MustCompile(`(?i)pos`)
)

// SplitBlocks splits text into candidate item blocks using a loose "Pos"
// occurrence search. OCR output may glue the marker to adjacent text, so the
// search is neither case-sensitive nor anchored to line starts. Zero
// occurrences means the whole text is one block.
func SplitBlocks(text string) []string {
	locs := loosePos.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, text[loc[0]:end])
	}
	return blocks
}

// ParseGeneric is the fallback tier: per block and per column it runs the
// category-specific extractor chain, or option substring matching for
// Select-typed Generic columns. Rows where every column came up empty are
// dropped.
func ParseGeneric(text string, cols []schema.Column) []schema.RawRow {
	blocks := SplitBlocks(text)
	rows := make([]schema.RawRow, 0, len(blocks))

	for _, block := range blocks {
		row := schema.RawRow{
			Fields:  make(map[string]any, len(cols)),
			Sources: make(map[string]string, len(cols)),
		}
		filled := false
		for _, c := range cols {
			val, src := extractColumn(block, c)
			row.Fields[c.Key] = val
			if !isEmptyValue(val) {
				row.Sources[c.Key] = src
				filled = true
			}
		}
		if filled {
			rows = append(rows, row)
		}
	}
	return rows
}

func extractColumn(block string, c schema.Column) (any, string) {
	var chain []extractor
	switch schema.Classify(c) {
	case schema.CategoryPosition:
		chain = positionChain
	case schema.CategoryQuantity:
		chain = quantityChain
	case schema.CategorySystem:
		chain = systemChain
	case schema.CategoryColor:
		chain = colorChain
	default:
		if c.FieldType == schema.FieldTypeSelect {
			return matchOptions(block, c)
		}
		return "", ""
	}

	for _, e := range chain {
		if v, ok := e.apply(block); ok && v != "" {
			return v, e.source
		}
	}
	return "", ""
}

// matchOptions resolves a Select column by case-insensitive substring search
// of its declared options within the block. Single-select returns the first
// matching option as a scalar; multi-select returns the matches clamped to
// MaxSelect.
func matchOptions(block string, c schema.Column) (any, string) {
	lower := strings.ToLower(block)
	var matched []string
	for _, opt := range c.Options {
		if opt == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(opt)) {
			matched = append(matched, opt)
			if len(matched) == c.MaxSelect {
				break
			}
		}
	}
	if c.MaxSelect <= 1 {
		if len(matched) == 0 {
			return "", ""
		}
		return matched[0], "options"
	}
	if len(matched) == 0 {
		return []string{}, ""
	}
	return matched, "options"
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	default:
		return false
	}
}
