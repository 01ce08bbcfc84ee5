package mutate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellforge/gscalc/ast"
	_ "github.com/cellforge/gscalc/functions"
	"github.com/cellforge/gscalc/gscalcerr"
	"github.com/cellforge/gscalc/mutate"
	"github.com/cellforge/gscalc/parser"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

func setFormula(t *testing.T, wb *workbook.Workbook, sheet *workbook.Worksheet, row, col int32, text string) {
	t.Helper()
	ref := reference.Index{Sheet: sheet.Index, Row: row, Column: col}
	node := parser.NewA1(text, ref, wb, workbook.DefaultLocale).Parse()
	r1c1 := ast.StringifyR1C1(node, ref, wb)
	idx := sheet.InternSharedFormula(r1c1)
	sheet.Set(row, col, workbook.Cell{Kind: workbook.CellFormulaPending, FormulaIndex: idx})
}

func formulaText(t *testing.T, sheet *workbook.Worksheet, row, col int32) string {
	t.Helper()
	cell := sheet.Get(row, col)
	require.True(t, cell.IsFormula())
	text, ok := sheet.SharedFormulaText(cell.FormulaIndex)
	require.True(t, ok)
	return text
}

func newFixture(t *testing.T) (*workbook.Workbook, *workbook.Worksheet) {
	t.Helper()
	wb := workbook.New("fixture")
	sheet, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	return wb, sheet
}

func TestInsertRowsShiftsReferencesDown(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 10})
	setFormula(t, wb, sheet, 2, 1, "=A1*2")

	require.NoError(t, mutate.InsertRows(wb, sheet.Index, 1, 2))

	// the formula, originally at A2, is now at A4; its reference to
	// A1 has shifted down to A3 along with the data cell.
	moved := sheet.Get(4, 1)
	require.True(t, moved.IsFormula())
	text := formulaText(t, sheet, 4, 1)
	assert.Contains(t, text, "R[-1]C")

	data := sheet.Get(3, 1)
	assert.Equal(t, workbook.CellNumber, data.Kind)
	assert.Equal(t, 10.0, data.Number)

	assert.True(t, sheet.Get(1, 1).IsEmpty())
	assert.True(t, sheet.Get(2, 1).IsEmpty())
}

func TestDeleteRowsProducesRefError(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(2, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 99})
	setFormula(t, wb, sheet, 3, 1, "=A2+1")

	require.NoError(t, mutate.DeleteRows(wb, sheet.Index, 2, 1))

	moved := sheet.Get(2, 1)
	require.True(t, moved.IsFormula())
	text := formulaText(t, sheet, 2, 1)
	assert.Contains(t, text, "#REF!")
}

func TestInsertRowsRejectsNonPositiveCount(t *testing.T) {
	wb, sheet := newFixture(t)
	err := mutate.InsertRows(wb, sheet.Index, 1, 0)
	assert.Error(t, err)
}

func TestInsertRowsRejectsUnknownSheet(t *testing.T) {
	wb, _ := newFixture(t)
	err := mutate.InsertRows(wb, 7, 1, 1)
	assert.Error(t, err)
}

func TestShiftCellsRightAndLeft(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, 2, workbook.Cell{Kind: workbook.CellNumber, Number: 5})

	require.NoError(t, mutate.ShiftCellsRight(wb, sheet.Index, 1, 2, 3))
	assert.True(t, sheet.Get(1, 2).IsEmpty())
	moved := sheet.Get(1, 5)
	assert.Equal(t, 5.0, moved.Number)

	require.NoError(t, mutate.ShiftCellsLeft(wb, sheet.Index, 1, 2, 3))
	back := sheet.Get(1, 2)
	assert.Equal(t, 5.0, back.Number)
}

func TestSwapCellsInRowExchangesDataAndRewritesReferences(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 1})
	sheet.Set(1, 2, workbook.Cell{Kind: workbook.CellNumber, Number: 2})
	setFormula(t, wb, sheet, 1, 3, "=A1+B1")

	require.NoError(t, mutate.SwapCellsInRow(wb, sheet.Index, 1, 1, 2))

	assert.Equal(t, 2.0, sheet.Get(1, 1).Number)
	assert.Equal(t, 1.0, sheet.Get(1, 2).Number)

	text := formulaText(t, sheet, 1, 3)
	node := parser.NewR1C1(text, reference.Index{Sheet: sheet.Index, Row: 1, Column: 3}, wb, workbook.DefaultLocale).Parse()
	_, ok := node.(*ast.ParseErrorNode)
	require.False(t, ok)
}

func TestMoveColumnRewritesReferencesWithoutRelocatingData(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 42})
	setFormula(t, wb, sheet, 1, 2, "=A1")

	require.NoError(t, mutate.MoveColumn(wb, sheet.Index, 1, 2))

	// data itself never moves: A1 still holds 42, even though the
	// formula that referenced column 1 now targets column 3.
	assert.Equal(t, 42.0, sheet.Get(1, 1).Number)
	text := formulaText(t, sheet, 1, 2)
	assert.Equal(t, "RC[1]", text)
}

func TestMoveCellValueToAreaTranslatesInAreaReferencesOnly(t *testing.T) {
	wb, sheet := newFixture(t)
	origin := reference.Index{Sheet: sheet.Index, Row: 5, Column: 5}
	area := reference.Range{
		Left:  reference.Index{Sheet: sheet.Index, Row: 1, Column: 1},
		Right: reference.Index{Sheet: sheet.Index, Row: 10, Column: 10},
	}
	target := reference.Index{Sheet: sheet.Index, Row: 15, Column: 15}

	// formula text is always already-interned R1C1 text, never A1 —
	// R1C1 absolute refs into and out of area.
	moved := mutate.MoveCellValueToArea(wb, "R1C1+R99C26", origin, area, target)

	node := parser.NewR1C1(moved, origin, wb, workbook.DefaultLocale).Parse()
	_, ok := node.(*ast.ParseErrorNode)
	require.False(t, ok)
	assert.Equal(t, "R15C15+R99C26", moved)
}

func TestExtendFormulaToReanchorsRelativeReferences(t *testing.T) {
	wb, sheet := newFixture(t)
	origin := reference.Index{Sheet: sheet.Index, Row: 2, Column: 2}
	newOrigin := reference.Index{Sheet: sheet.Index, Row: 3, Column: 2}

	extended := mutate.ExtendFormulaTo(wb, "R[-1]C[-1]", origin, newOrigin)

	node := parser.NewR1C1(extended, newOrigin, wb, workbook.DefaultLocale).Parse()
	ref, ok := node.(*ast.ReferenceNode)
	require.True(t, ok)
	assert.EqualValues(t, 1, ref.Row)
	assert.EqualValues(t, 1, ref.Column)
}

func TestInsertColumnsRejectsOutOfBounds(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, reference.LastColumn, workbook.Cell{Kind: workbook.CellNumber, Number: 1})

	err := mutate.InsertColumns(wb, sheet.Index, 1, 1)
	require.Error(t, err)
	var structErr *gscalcerr.StructuralError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, gscalcerr.CodeCellOutOfBounds, structErr.Code)
}
