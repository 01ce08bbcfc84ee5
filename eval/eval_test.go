package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/eval"
	_ "github.com/cellforge/gscalc/functions"
	"github.com/cellforge/gscalc/parser"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

func setFormula(t *testing.T, wb *workbook.Workbook, sheet *workbook.Worksheet, row, col int32, text string) reference.Index {
	t.Helper()
	ref := reference.Index{Sheet: sheet.Index, Row: row, Column: col}
	node := parser.NewA1(text, ref, wb, workbook.DefaultLocale).Parse()
	r1c1 := ast.StringifyR1C1(node, ref, wb)
	idx := sheet.InternSharedFormula(r1c1)
	sheet.Set(row, col, workbook.Cell{Kind: workbook.CellFormulaPending, FormulaIndex: idx})
	return ref
}

func newFixture(t *testing.T) (*workbook.Workbook, *workbook.Worksheet) {
	t.Helper()
	wb := workbook.New("fixture")
	sheet, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	return wb, sheet
}

func TestEvaluateArithmetic(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 2})
	sheet.Set(1, 2, workbook.Cell{Kind: workbook.CellNumber, Number: 3})
	ref := setFormula(t, wb, sheet, 1, 3, "=A1+B1*2")

	ev := eval.New(wb)
	result := ev.EvaluateCell(ref)
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 8.0, result.Number, 1e-9)
}

func TestEvaluateSumOverRange(t *testing.T) {
	wb, sheet := newFixture(t)
	for r := int32(1); r <= 3; r++ {
		sheet.Set(r, 1, workbook.Cell{Kind: workbook.CellNumber, Number: float64(r)})
	}
	ref := setFormula(t, wb, sheet, 4, 1, "=SUM(A1:A3)")

	ev := eval.New(wb)
	result := ev.EvaluateCell(ref)
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 6.0, result.Number, 1e-9)
}

func TestIfShortCircuits(t *testing.T) {
	wb, sheet := newFixture(t)
	ref := setFormula(t, wb, sheet, 1, 1, "=IF(TRUE,1,1/0)")

	ev := eval.New(wb)
	result := ev.EvaluateCell(ref)
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 1.0, result.Number, 1e-9)
}

func TestDivisionByZeroProducesError(t *testing.T) {
	wb, sheet := newFixture(t)
	ref := setFormula(t, wb, sheet, 1, 1, "=1/0")

	ev := eval.New(wb)
	result := ev.EvaluateCell(ref)
	require.True(t, result.IsError())
	assert.Equal(t, calcresult.ErrDiv0, result.ErrKind)
}

func TestCircularReferenceDetected(t *testing.T) {
	wb, sheet := newFixture(t)
	a1 := setFormula(t, wb, sheet, 1, 1, "=B1")
	setFormula(t, wb, sheet, 1, 2, "=A1")

	ev := eval.New(wb)
	result := ev.EvaluateCell(a1)
	require.True(t, result.IsError())
	assert.Equal(t, calcresult.ErrCirc, result.ErrKind)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 1})
	ref := setFormula(t, wb, sheet, 1, 2, "=A1*10")

	ev := eval.New(wb)
	first := ev.EvaluateCell(ref)
	assert.InDelta(t, 10.0, first.Number, 1e-9)

	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 5})
	ev.InvalidateAll()
	second := ev.EvaluateCell(ref)
	assert.InDelta(t, 50.0, second.Number, 1e-9)
}
