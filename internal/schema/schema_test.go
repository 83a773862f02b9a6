package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "profiles_colour", NormalizeToken("Profiles colour"))
	assert.Equal(t, "qty", NormalizeToken("  Qty. "))
	assert.Equal(t, "pos_nr", NormalizeToken("Pos./Nr."))
	assert.Equal(t, "", NormalizeToken("---"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, CategoryPosition, Classify(Column{Key: "position"}))
	assert.Equal(t, CategoryPosition, Classify(Column{Key: "item", Label: "Pos."}))
	assert.Equal(t, CategoryQuantity, Classify(Column{Key: "qty"}))
	assert.Equal(t, CategoryQuantity, Classify(Column{Key: "count", Label: "Skaits"}))
	assert.Equal(t, CategorySystem, Classify(Column{Key: "profile_system"}))
	assert.Equal(t, CategorySystem, Classify(Column{Key: "c1", AIKey: "construction"}))
	assert.Equal(t, CategoryColor, Classify(Column{Key: "colour"}))
	assert.Equal(t, CategoryGeneric, Classify(Column{Key: "notes", Label: "Comments"}))
}

func TestClassifyKeyBeatsLabel(t *testing.T) {
	// key is checked before label, so a quantity key wins over a color label
	c := Column{Key: "quantity", Label: "Colour"}
	assert.Equal(t, CategoryQuantity, Classify(c))
}

func TestValidateColumns(t *testing.T) {
	cols, err := ValidateColumns([]Column{
		{Key: "position"},
		{Key: "qty", FieldType: FieldTypeNumber},
		{Key: "finish", FieldType: FieldTypeSelect, Options: []string{"Matte", "Gloss"}, MaxSelect: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, FieldTypeText, cols[0].FieldType)
	assert.Equal(t, 3, cols[2].MaxSelect, "MaxSelect is clamped to 3")

	_, err = ValidateColumns([]Column{{Key: "a"}, {Key: "a"}})
	assert.Error(t, err, "duplicate keys are rejected")

	_, err = ValidateColumns(nil)
	assert.Error(t, err)

	_, err = ValidateColumns([]Column{{Key: "a", FieldType: "BLOB"}})
	assert.Error(t, err)
}
