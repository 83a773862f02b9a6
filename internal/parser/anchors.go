package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vapl/orderdocs/internal/schema"
)

var (
	// Position-like tokens, with an optional "Pos." prefix OCR may or may not
	// have preserved.
	anchorPattern = regexp.MustCompile(`(?i)(?:pos\.?\s*:?\s*)?\b([A-Za-z]{1,3}-?\d{1,4})\b`)
	// AI models tend to invent placeholder labels of this shape when the real
	// position is not legible to them.
	placeholderPattern = regexp.MustCompile(`(?i)^gl-\d+$`)
)

// ScanAnchors finds all distinct position-like tokens in the source text, in
// document order. RAL color codes share the letters-then-digits shape and are
// skipped.
func ScanAnchors(text string) []string {
	seen := make(map[string]struct{})
	var anchors []string
	for _, m := range anchorPattern.FindAllStringSubmatch(text, -1) {
		tok := m[1]
		upper := strings.ToUpper(tok)
		if strings.HasPrefix(upper, "RAL") || placeholderPattern.MatchString(tok) {
			continue
		}
		if _, ok := seen[upper]; ok {
			continue
		}
		seen[upper] = struct{}{}
		anchors = append(anchors, tok)
	}
	return anchors
}

// SanitizePositions corrects AI-produced position values against anchors
// found directly in the source text: a value that is empty, unknown to the
// document, or a known placeholder is overwritten with the first anchor.
// With no anchors the pass is a no-op. Only rows from the AI tier go through
// here; spreadsheet and heuristic rows are already text-grounded.
func SanitizePositions(text string, cols []schema.Column, rows []schema.RawRow) {
	anchors := ScanAnchors(text)
	if len(anchors) == 0 {
		return
	}
	known := make(map[string]struct{}, len(anchors))
	for _, a := range anchors {
		known[strings.ToUpper(a)] = struct{}{}
	}

	for _, c := range cols {
		if schema.Classify(c) != schema.CategoryPosition {
			continue
		}
		for i := range rows {
			cur := strings.TrimSpace(stringValue(rows[i].Fields[c.Key]))
			_, ok := known[strings.ToUpper(cur)]
			if cur == "" || !ok || placeholderPattern.MatchString(cur) {
				rows[i].Fields[c.Key] = anchors[0]
				if rows[i].Sources == nil {
					rows[i].Sources = make(map[string]string)
				}
				rows[i].Sources[c.Key] = "anchor"
			}
		}
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
