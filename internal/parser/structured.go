package parser

import (
	"regexp"
	"strings"

	"github.com/vapl/orderdocs/internal/schema"
)

// Block is one logical order line item recognized in a structured technical
// drawing, where every item starts with a "Pos." marker line.
type Block struct {
	Position string
	System   string
	Quantity string
	Color    string
}

func (b Block) empty() bool {
	return b.Position == "" && b.System == "" && b.Quantity == "" && b.Color == ""
}

var (
	posLine       = regexp.MustCompile(`(?i)^pos\.?\s*`)
	quantityLabel = regexp.MustCompile(`(?i)\b(?:quantity|skaits|qty|on)\b`)
	colorLabel    = regexp.MustCompile(`(?i)(?:profiles?\s+)?colou?rs?\s*[:\-]?\s*(.*)`)
	firstNumber   = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)
	systemCut     = regexp.MustCompile(`[-(,]`)
)

// ParseStructured recognizes the recurring drawing layout where each item
// begins with a line matching "Pos." and extracts the fixed fields per block.
// It returns nil when no marker exists at all, which signals the document
// does not match this layout and the caller should fall through to the next
// tier.
func ParseStructured(text string) []Block {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return nil
	}

	var markers []int
	for i, ln := range lines {
		if posLine.MatchString(ln) {
			markers = append(markers, i)
		}
	}
	if len(markers) == 0 {
		return nil
	}

	blocks := make([]Block, 0, len(markers))
	for mi, start := range markers {
		end := len(lines)
		if mi+1 < len(markers) {
			end = markers[mi+1]
		}
		b := parseBlock(lines[start:end])
		if !b.empty() {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func parseBlock(lines []string) Block {
	var b Block

	// First line: "Pos. <position> <system...>"
	rest := strings.TrimSpace(posLine.ReplaceAllString(lines[0], ""))
	if rest != "" {
		fields := strings.Fields(rest)
		b.Position = fields[0]
		system := strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
		// System ends at the first dash, paren or comma.
		if loc := systemCut.FindStringIndex(system); loc != nil {
			system = system[:loc[0]]
		}
		b.System = strings.TrimSpace(system)
	}

	for i, ln := range lines {
		if b.Quantity == "" {
			if loc := quantityLabel.FindStringIndex(ln); loc != nil {
				after := ln[loc[1]:]
				if m := firstNumber.FindStringSubmatch(after); m != nil {
					b.Quantity = m[1]
				} else if i+1 < len(lines) {
					// Label on its own line; the number sits on the next one.
					if m := firstNumber.FindStringSubmatch(lines[i+1]); m != nil {
						b.Quantity = m[1]
					}
				}
			}
		}
		if b.Color == "" {
			if m := colorLabel.FindStringSubmatch(ln); m != nil {
				color := strings.TrimSpace(m[1])
				if i+1 < len(lines) && isContinuationLine(lines[i+1]) {
					color = strings.TrimSpace(color + " " + strings.TrimSpace(lines[i+1]))
				}
				b.Color = color
			}
		}
	}
	return b
}

// isContinuationLine reports whether a line looks like the continuation of a
// wrapped color value: starts alphanumeric and is not itself a label or a new
// block marker.
func isContinuationLine(ln string) bool {
	ln = strings.TrimSpace(ln)
	if ln == "" {
		return false
	}
	r := rune(ln[0])
	if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
		return false
	}
	if posLine.MatchString(ln) || quantityLabel.MatchString(ln) || colorLabel.MatchString(ln) {
		return false
	}
	return true
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, ln := range raw {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

// Source cue labels recorded as provenance for structured-tier values.
const (
	sourcePos      = "Pos."
	sourceQuantity = "Quantity"
	sourceSystem   = "System"
	sourceColour   = "Profiles colour"
)

// RowsFromBlocks maps extracted blocks onto the caller's columns via the
// category classifier: every column receives the block field matching its
// category, Generic columns stay empty.
func RowsFromBlocks(blocks []Block, cols []schema.Column) []schema.RawRow {
	rows := make([]schema.RawRow, 0, len(blocks))
	for _, b := range blocks {
		row := schema.RawRow{
			Fields:  make(map[string]any, len(cols)),
			Sources: make(map[string]string, len(cols)),
		}
		filled := false
		for _, c := range cols {
			var val, src string
			switch schema.Classify(c) {
			case schema.CategoryPosition:
				val, src = b.Position, sourcePos
			case schema.CategoryQuantity:
				val, src = b.Quantity, sourceQuantity
			case schema.CategorySystem:
				val, src = b.System, sourceSystem
			case schema.CategoryColor:
				val, src = b.Color, sourceColour
			}
			row.Fields[c.Key] = val
			if val != "" {
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
