package workbook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellforge/gscalc/workbook"
)

func TestCloneIsIndependentOfSource(t *testing.T) {
	wb := workbook.New("original")
	sheet, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 1})
	wb.DefineName("Total", -1, "A1")

	clone := wb.Clone()
	require.NotEqual(t, wb.ID, clone.ID)

	cloneSheet := clone.Sheet(0)
	require.NotNil(t, cloneSheet)
	cloneSheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 99})
	_, addErr := clone.AddSheet("Sheet2")
	require.NoError(t, addErr)

	assert.Equal(t, 1.0, sheet.Get(1, 1).Number, "mutating the clone must not affect the source")
	assert.Len(t, wb.Sheets(), 1, "adding a sheet to the clone must not affect the source")

	name, ok := clone.LookupName("Total", 0)
	require.True(t, ok)
	assert.Equal(t, "A1", name.Text)
}

func TestCloneCopiesSharedStringsIndependently(t *testing.T) {
	wb := workbook.New("original")
	id := wb.InternString("hello")

	clone := wb.Clone()
	clone.InternString("world")

	_, ok := wb.String(clone.InternString("hello"))
	require.True(t, ok)
	_, foundInOriginal := wb.SharedStrings.Get(id)
	assert.True(t, foundInOriginal)

	str, ok := clone.String(id)
	require.True(t, ok)
	assert.Equal(t, "hello", str)
}
