package depanalysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/depanalysis"
	_ "github.com/cellforge/gscalc/functions"
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

func newFixture(t *testing.T) (*workbook.Workbook, *workbook.Worksheet) {
	t.Helper()
	wb := workbook.New("fixture")
	sheet, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	return wb, sheet
}

func TestStaticDependenciesCollectsDirectAndTransitiveCells(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 1})
	setFormula(t, wb, sheet, 1, 2, "=A1")
	setFormula(t, wb, sheet, 1, 3, "=B1")

	root := reference.Index{Sheet: sheet.Index, Row: 1, Column: 3}
	var deps depanalysis.StaticDependencies
	depanalysis.AddStaticDependencies(wb, root, &deps, make(map[reference.Index]bool))

	assert.False(t, deps.NonStrict)
	assert.Contains(t, deps.Cells, reference.Index{Sheet: sheet.Index, Row: 1, Column: 2})
	assert.Contains(t, deps.Cells, reference.Index{Sheet: sheet.Index, Row: 1, Column: 1})
}

func TestStaticDependenciesExpandsRangeMembers(t *testing.T) {
	wb, sheet := newFixture(t)
	for r := int32(1); r <= 3; r++ {
		sheet.Set(r, 1, workbook.Cell{Kind: workbook.CellNumber, Number: float64(r)})
	}
	setFormula(t, wb, sheet, 4, 1, "=SUM(A1:A3)")

	root := reference.Index{Sheet: sheet.Index, Row: 4, Column: 1}
	var deps depanalysis.StaticDependencies
	depanalysis.AddStaticDependencies(wb, root, &deps, make(map[reference.Index]bool))

	require.Len(t, deps.Ranges, 1)
	assert.Equal(t, reference.Index{Sheet: sheet.Index, Row: 1, Column: 1}, deps.Ranges[0].Left)
	assert.Equal(t, reference.Index{Sheet: sheet.Index, Row: 3, Column: 1}, deps.Ranges[0].Right)
}

func TestStaticDependenciesNonStrictOnIndirectAndOffset(t *testing.T) {
	wb, sheet := newFixture(t)
	setFormula(t, wb, sheet, 1, 1, `=INDIRECT("B1")`)
	setFormula(t, wb, sheet, 2, 1, "=OFFSET(A1,1,1)")
	setFormula(t, wb, sheet, 3, 1, "=A1:INDEX(A1:A3,1)")

	for _, ref := range []reference.Index{
		{Sheet: sheet.Index, Row: 1, Column: 1},
		{Sheet: sheet.Index, Row: 2, Column: 1},
		{Sheet: sheet.Index, Row: 3, Column: 1},
	} {
		var deps depanalysis.StaticDependencies
		depanalysis.AddStaticDependencies(wb, ref, &deps, make(map[reference.Index]bool))
		assert.True(t, deps.NonStrict, "expected non-strict dependencies for %v", ref)
	}
}

func TestCellIndependentOfSheetsAndCellsTrueWhenDisjoint(t *testing.T) {
	wb, sheet1 := newFixture(t)
	sheet2, err := wb.AddSheet("Sheet2")
	require.NoError(t, err)

	sheet1.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 10})
	setFormula(t, wb, sheet1, 1, 2, "=A1")

	independent, err := depanalysis.CellIndependentOfSheetsAndCells(
		wb,
		reference.Index{Sheet: sheet1.Index, Row: 1, Column: 2},
		[]int{sheet2.Index},
		[]reference.Index{{Sheet: sheet1.Index, Row: 5, Column: 5}},
	)
	require.NoError(t, err)
	assert.True(t, independent)
}

func TestCellIndependentOfSheetsAndCellsFalseWhenCellForbidden(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 10})
	setFormula(t, wb, sheet, 1, 2, "=A1")

	independent, err := depanalysis.CellIndependentOfSheetsAndCells(
		wb,
		reference.Index{Sheet: sheet.Index, Row: 1, Column: 2},
		nil,
		[]reference.Index{{Sheet: sheet.Index, Row: 1, Column: 1}},
	)
	require.NoError(t, err)
	assert.False(t, independent)
}

func TestCellIndependentOfSheetsAndCellsFalseWhenSheetForbidden(t *testing.T) {
	wb, sheet1 := newFixture(t)
	sheet2, err := wb.AddSheet("Sheet2")
	require.NoError(t, err)
	sheet2.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 3})
	setFormula(t, wb, sheet1, 1, 1, "=Sheet2!A1")

	independent, err := depanalysis.CellIndependentOfSheetsAndCells(
		wb,
		reference.Index{Sheet: sheet1.Index, Row: 1, Column: 1},
		[]int{sheet2.Index},
		nil,
	)
	require.NoError(t, err)
	assert.False(t, independent)
}

func TestCellIndependentOfSheetsAndCellsFalseWhenNonStrict(t *testing.T) {
	wb, sheet := newFixture(t)
	setFormula(t, wb, sheet, 1, 1, `=INDIRECT("B1")`)

	independent, err := depanalysis.CellIndependentOfSheetsAndCells(
		wb,
		reference.Index{Sheet: sheet.Index, Row: 1, Column: 1},
		nil,
		nil,
	)
	require.NoError(t, err)
	assert.False(t, independent)
}

func TestCellIndependentOfSheetsAndCellsRejectsUnknownSheet(t *testing.T) {
	wb, sheet := newFixture(t)
	_, err := depanalysis.CellIndependentOfSheetsAndCells(
		wb,
		reference.Index{Sheet: sheet.Index, Row: 1, Column: 1},
		[]int{99},
		nil,
	)
	assert.Error(t, err)
}
