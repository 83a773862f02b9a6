package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vapl/orderdocs/internal/schema"
)

func TestWorkbookRoundTrip(t *testing.T) {
	cols := []schema.Column{
		{Key: "position", Label: "Position"},
		{Key: "quantity", Label: "Quantity"},
		{Key: "features"},
	}
	rows := []schema.ParsedRow{
		{Values: map[string]any{"position": "A1", "quantity": "4", "features": []string{"Tilt", "Turn"}}},
		{Values: map[string]any{"position": "B2", "quantity": "2.5"}},
	}

	data, err := Workbook(cols, rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Position", "Quantity", "features"}, got[0], "key stands in for a missing label")
	assert.Equal(t, []string{"A1", "4", "Tilt, Turn"}, got[1])
	assert.Equal(t, "B2", got[2][0])
}

func TestWorkbookNoRows(t *testing.T) {
	data, err := Workbook([]schema.Column{{Key: "position", Label: "Position"}}, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 1, "header only")
}
