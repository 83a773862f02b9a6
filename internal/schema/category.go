package schema

import "strings"

// Category is the semantic class of a column, used by both heuristic parsing
// tiers to decide which extracted field feeds which column.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryPosition
	CategoryQuantity
	CategorySystem
	CategoryColor
)

func (c Category) String() string {
	switch c {
	case CategoryPosition:
		return "position"
	case CategoryQuantity:
		return "quantity"
	case CategorySystem:
		return "system"
	case CategoryColor:
		return "color"
	default:
		return "generic"
	}
}

// Keyword lists are the superset of every matching rule the parsing tiers
// need, so classification cannot diverge between tiers. "skaits" and "krasa"
// cover Latvian-labelled drawings.
var categoryKeywords = []struct {
	cat   Category
	words []string
}{
	{CategoryPosition, []string{"position", "pos", "pozicija"}},
	{CategoryQuantity, []string{"quantity", "qty", "skaits", "count"}},
	{CategorySystem, []string{"system", "construction", "konstrukcija"}},
	{CategoryColor, []string{"color", "colour", "krasa"}},
}

// Classify determines the semantic category of a column from its key, label
// and aiKey. The first identifier containing a category keyword (as a
// normalized token) wins; no match means Generic.
func Classify(c Column) Category {
	for _, id := range []string{c.Key, c.Label, c.AIKey} {
		norm := NormalizeToken(id)
		if norm == "" {
			continue
		}
		tokens := strings.Split(norm, "_")
		for _, kw := range categoryKeywords {
			for _, w := range kw.words {
				for _, tok := range tokens {
					if tok == w {
						return kw.cat
					}
				}
			}
		}
	}
	return CategoryGeneric
}
