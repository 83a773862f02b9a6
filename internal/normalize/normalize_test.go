package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vapl/orderdocs/internal/schema"
)

func TestNumberCoercion(t *testing.T) {
	cols := []schema.Column{{Key: "qty", FieldType: schema.FieldTypeNumber}}
	rows, _ := Rows([]schema.RawRow{
		{Fields: map[string]any{"qty": "12,5"}},
		{Fields: map[string]any{"qty": "N/A"}},
		{Fields: map[string]any{"qty": 3}},
	}, cols)
	require.Len(t, rows, 3)
	assert.Equal(t, "12.5", rows[0].Values["qty"])
	assert.Equal(t, "N/A", rows[1].Values["qty"], "unparseable values pass through")
	assert.Equal(t, "3", rows[2].Values["qty"])
}

func TestResolutionPriority(t *testing.T) {
	cols := []schema.Column{{Key: "position", Label: "Pos", AIKey: "item_no"}}

	// exact key beats label and aiKey
	rows, _ := Rows([]schema.RawRow{
		{Fields: map[string]any{"position": "A1", "Pos": "X9", "item_no": "Y8"}},
	}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, "A1", rows[0].Values["position"])
	assert.Equal(t, "position", rows[0].Sources["position"])

	// aiKey exact match
	rows, _ = Rows([]schema.RawRow{
		{Fields: map[string]any{"item_no": "Y8"}},
	}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, "Y8", rows[0].Values["position"])
	assert.Equal(t, "item_no", rows[0].Sources["position"])

	// normalized scan: "Item No." normalizes to item_no
	rows, _ = Rows([]schema.RawRow{
		{Fields: map[string]any{"Item No.": "Z7"}},
	}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, "Z7", rows[0].Values["position"])
	assert.Equal(t, "Item No.", rows[0].Sources["position"])
}

func TestSelectShapes(t *testing.T) {
	single := []schema.Column{{Key: "finish", FieldType: schema.FieldTypeSelect, Options: []string{"Matte", "Gloss"}, MaxSelect: 1}}
	rows, _ := Rows([]schema.RawRow{
		{Fields: map[string]any{"finish": "matte"}},
	}, single)
	require.Len(t, rows, 1)
	assert.Equal(t, "Matte", rows[0].Values["finish"], "single-select is a scalar mapped onto a declared option")

	multi := []schema.Column{{Key: "features", FieldType: schema.FieldTypeSelect, Options: []string{"Tilt", "Turn", "Fixed"}, MaxSelect: 2}}
	rows, _ = Rows([]schema.RawRow{
		{Fields: map[string]any{"features": "tilt / turn / fixed"}},
	}, multi)
	require.Len(t, rows, 1)
	val, ok := rows[0].Values["features"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"Tilt", "Turn"}, val, "split, mapped and clamped to MaxSelect")
}

func TestSelectListInputAndFallbackPiece(t *testing.T) {
	multi := []schema.Column{{Key: "features", FieldType: schema.FieldTypeSelect, Options: []string{"Tilt"}, MaxSelect: 3}}
	rows, _ := Rows([]schema.RawRow{
		{Fields: map[string]any{"features": []any{"tilt", "Sliding"}}},
	}, multi)
	require.Len(t, rows, 1)
	val := rows[0].Values["features"].([]string)
	assert.Equal(t, []string{"Tilt", "Sliding"}, val, "unknown pieces fall back to the raw value")
}

func TestEmptyRowsDiscarded(t *testing.T) {
	cols := []schema.Column{{Key: "position"}, {Key: "qty", FieldType: schema.FieldTypeNumber}}
	rows, _ := Rows([]schema.RawRow{
		{Fields: map[string]any{"position": "A1"}},
		{Fields: map[string]any{"irrelevant": "x"}},
		{Fields: map[string]any{"position": "", "qty": ""}},
	}, cols)
	assert.Len(t, rows, 1)
}

func TestColumnMappingMajorityVote(t *testing.T) {
	cols := []schema.Column{{Key: "position", Label: "Position"}}
	rows, mapping := Rows([]schema.RawRow{
		{Fields: map[string]any{"position": "A1"}},
		{Fields: map[string]any{"position": "B2"}},
		{Fields: map[string]any{"Pos nr": "C3"}},
	}, cols)
	require.Len(t, rows, 2, "the unmatched raw key produces no value and the row is dropped")
	require.Len(t, mapping, 1)
	assert.Equal(t, "position", mapping[0].SourceKey)
	assert.Equal(t, 2, mapping[0].MatchedRows)
	assert.Equal(t, "Position", mapping[0].ColumnLabel)
}

func TestProvenancePrefersSourceCue(t *testing.T) {
	cols := []schema.Column{{Key: "position"}}
	_, mapping := Rows([]schema.RawRow{
		{
			Fields:  map[string]any{"position": "A1"},
			Sources: map[string]string{"position": "Pos."},
		},
	}, cols)
	require.Len(t, mapping, 1)
	assert.Equal(t, "Pos.", mapping[0].SourceKey)
	assert.Equal(t, 1, mapping[0].MatchedRows)
}

func TestDeterminism(t *testing.T) {
	cols := []schema.Column{
		{Key: "position"},
		{Key: "qty", FieldType: schema.FieldTypeNumber},
	}
	raw := []schema.RawRow{
		{Fields: map[string]any{"position": "A1", "qty": "2,5"}},
		{Fields: map[string]any{"Position": "B2", "Qty": "3"}},
	}
	firstRows, firstMapping := Rows(raw, cols)
	for i := 0; i < 10; i++ {
		rows, mapping := Rows(raw, cols)
		assert.Equal(t, firstRows, rows)
		assert.Equal(t, firstMapping, mapping)
	}
}

func TestNormalizedScanPicksDeterministicKey(t *testing.T) {
	cols := []schema.Column{{Key: "item_no", Label: "Item No"}}
	raw := []schema.RawRow{
		// both raw keys normalize to item_no; neither matches an identifier
		// exactly, so the scan decides
		{Fields: map[string]any{"Item No.": "A1", "ITEM-NO": "B2"}},
	}
	first, firstMapping := Rows(raw, cols)
	require.Len(t, first, 1)
	assert.Equal(t, "B2", first[0].Values["item_no"], "lexicographically smallest raw key wins")
	assert.Equal(t, "ITEM-NO", firstMapping[0].SourceKey)
	for i := 0; i < 20; i++ {
		rows, mapping := Rows(raw, cols)
		assert.Equal(t, first, rows)
		assert.Equal(t, firstMapping, mapping)
	}
}
