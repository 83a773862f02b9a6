package llm

import (
	"strconv"
	"strings"

	"github.com/vapl/orderdocs/internal/schema"
)

// textSnippetLimit clips already-extracted text in the user prompt; drawings
// rarely carry more useful text than this and oversized prompts slow the
// cascade down.
const textSnippetLimit = 50000

// BuildExtractionSystemPrompt composes the system message for the
// schema-constrained rows extraction.
func BuildExtractionSystemPrompt(cols []schema.Column) string {
	parts := []string{
		"You are a manufacturing order parser. The attached document is a technical drawing or an order specification.",
		"Extract every order line item (window, door, frame or similar construction) as one row.",
		"Return ONLY JSON that matches the provided JSON Schema: an object with a 'rows' array.",
		"Every row must contain every column key; use an empty string when the document does not state a value.",
		"Copy values literally from the document. Never invent position labels, quantities or colors.",
	}
	for _, c := range cols {
		parts = append(parts, columnHint(c))
	}
	return strings.Join(parts, " ")
}

func columnHint(c schema.Column) string {
	var b strings.Builder
	b.WriteString("Column '")
	b.WriteString(c.Key)
	b.WriteString("'")
	if c.Label != "" {
		b.WriteString(" (label: ")
		b.WriteString(c.Label)
		b.WriteString(")")
	}
	if c.AIKey != "" {
		b.WriteString(" also appears in documents as '")
		b.WriteString(c.AIKey)
		b.WriteString("'")
	}
	switch c.FieldType {
	case schema.FieldTypeNumber:
		b.WriteString(" holds a numeric value.")
	case schema.FieldTypeSelect:
		b.WriteString(" must use one of: ")
		b.WriteString(strings.Join(c.Options, ", "))
		if c.MaxSelect > 1 {
			b.WriteString(" (as an array of at most ")
			b.WriteString(strconv.Itoa(c.MaxSelect))
			b.WriteString(" values)")
		}
		b.WriteString(".")
	default:
		b.WriteString(" holds free text.")
	}
	return b.String()
}

// BuildExtractionUserPrompt packages the clipped text snippet alongside the
// uploaded-file reference the request already carries.
func BuildExtractionUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract the order line items from the attached document.")
	text = strings.TrimSpace(text)
	if text != "" {
		b.WriteString("\n\nText already extracted from the document (may be partial):\n")
		if len(text) > textSnippetLimit {
			b.WriteString(text[:textSnippetLimit])
		} else {
			b.WriteString(text)
		}
	}
	return b.String()
}

// BuildOCRPrompt is the lighter fallback prompt asking for a plain text
// rendition of the document, re-parsed by the heuristic tiers afterwards.
func BuildOCRPrompt() string {
	return "Read the attached document and return its complete plain text content, " +
		"line by line, in reading order. Do not summarize, do not add commentary."
}
