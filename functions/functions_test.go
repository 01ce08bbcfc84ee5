package functions_test

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/clock"
	"github.com/cellforge/gscalc/eval"
	_ "github.com/cellforge/gscalc/functions"
	"github.com/cellforge/gscalc/parser"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

func evalFormula(t *testing.T, wb *workbook.Workbook, sheet *workbook.Worksheet, row, col int32, text string) calcresult.CalcResult {
	t.Helper()
	ref := reference.Index{Sheet: sheet.Index, Row: row, Column: col}
	node := parser.NewA1(text, ref, wb, workbook.DefaultLocale).Parse()
	r1c1 := ast.StringifyR1C1(node, ref, wb)
	idx := sheet.InternSharedFormula(r1c1)
	sheet.Set(row, col, workbook.Cell{Kind: workbook.CellFormulaPending, FormulaIndex: idx})
	return eval.New(wb).EvaluateCell(ref)
}

func newFixture(t *testing.T) (*workbook.Workbook, *workbook.Worksheet) {
	t.Helper()
	wb := workbook.New("fixture")
	sheet, err := wb.AddSheet("Sheet1")
	require.NoError(t, err)
	return wb, sheet
}

func TestPmtMatchesClosedForm(t *testing.T) {
	wb, sheet := newFixture(t)
	result := evalFormula(t, wb, sheet, 1, 1, "=PMT(0.01,12,-1000)")
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 88.8487712, result.Number, 1e-6)
}

func TestIpmtFirstPeriodEqualsOpeningBalanceTimesRate(t *testing.T) {
	wb, sheet := newFixture(t)
	result := evalFormula(t, wb, sheet, 1, 1, "=IPMT(0.01,1,12,-1000)")
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 10.0, result.Number, 1e-9)
}

func TestIpmtPlusPpmtEqualsPmt(t *testing.T) {
	wb, sheet := newFixture(t)
	pmt := evalFormula(t, wb, sheet, 1, 1, "=PMT(0.01,12,-1000)")
	for per := 1; per <= 12; per++ {
		wb2, sheet2 := newFixture(t)
		formula := "=IPMT(0.01," + strconv.Itoa(per) + ",12,-1000)"
		ipmt := evalFormula(t, wb2, sheet2, 1, 1, formula)
		wb3, sheet3 := newFixture(t)
		ppmt := evalFormula(t, wb3, sheet3, 1, 1, "=PPMT(0.01,"+strconv.Itoa(per)+",12,-1000)")
		require.Equal(t, calcresult.KindNumber, ipmt.Kind)
		require.Equal(t, calcresult.KindNumber, ppmt.Kind)
		assert.InDelta(t, pmt.Number, ipmt.Number+ppmt.Number, 1e-6)
	}
}

func TestIpmtRejectsPeriodOutOfRange(t *testing.T) {
	wb, sheet := newFixture(t)
	result := evalFormula(t, wb, sheet, 1, 1, "=IPMT(0.01,13,12,-1000)")
	require.True(t, result.IsError())
	assert.Equal(t, calcresult.ErrNum, result.ErrKind)
}

func TestVlookupApproximateUsesBinarySearch(t *testing.T) {
	wb, sheet := newFixture(t)
	rows := []float64{10, 20, 30, 40, 50}
	for i, v := range rows {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellNumber, Number: v})
		sheet.Set(int32(i+1), 2, workbook.Cell{Kind: workbook.CellNumber, Number: v * 10})
	}
	result := evalFormula(t, wb, sheet, 1, 3, "=VLOOKUP(35,A1:B5,2)")
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 300.0, result.Number, 1e-9)
}

func TestVlookupApproximateBelowAllReturnsNA(t *testing.T) {
	wb, sheet := newFixture(t)
	rows := []float64{10, 20, 30}
	for i, v := range rows {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellNumber, Number: v})
	}
	result := evalFormula(t, wb, sheet, 1, 2, "=VLOOKUP(5,A1:A3,1)")
	require.True(t, result.IsError())
	assert.Equal(t, calcresult.ErrNA, result.ErrKind)
}

func TestMatchAscendingFindsLeftmostOfLessOrEqual(t *testing.T) {
	wb, sheet := newFixture(t)
	rows := []float64{1, 3, 5, 7, 9}
	for i, v := range rows {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellNumber, Number: v})
	}
	result := evalFormula(t, wb, sheet, 1, 2, "=MATCH(6,A1:A5,1)")
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 3.0, result.Number, 1e-9)
}

func TestMatchExactMode(t *testing.T) {
	wb, sheet := newFixture(t)
	rows := []float64{9, 1, 5, 3}
	for i, v := range rows {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellNumber, Number: v})
	}
	result := evalFormula(t, wb, sheet, 1, 2, "=MATCH(5,A1:A4,0)")
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 3.0, result.Number, 1e-9)
}

func TestMinIfsMaxIfsMaskCriteriaAcrossMultiplePairs(t *testing.T) {
	wb, sheet := newFixture(t)
	values := []float64{10, 20, 30, 40}
	categories := []string{"a", "b", "a", "b"}
	regions := []string{"east", "east", "west", "east"}
	for i := range values {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellNumber, Number: values[i]})
		sheet.Set(int32(i+1), 2, workbook.Cell{Kind: workbook.CellSharedString, StringID: wb.InternString(categories[i])})
		sheet.Set(int32(i+1), 3, workbook.Cell{Kind: workbook.CellSharedString, StringID: wb.InternString(regions[i])})
	}

	minResult := evalFormula(t, wb, sheet, 1, 5, `=MINIFS(A1:A4,B1:B4,"b",C1:C4,"east")`)
	require.Equal(t, calcresult.KindNumber, minResult.Kind)
	assert.InDelta(t, 20.0, minResult.Number, 1e-9)

	maxResult := evalFormula(t, wb, sheet, 1, 6, `=MAXIFS(A1:A4,B1:B4,"a",C1:C4,"east")`)
	require.Equal(t, calcresult.KindNumber, maxResult.Kind)
	assert.InDelta(t, 10.0, maxResult.Number, 1e-9)
}

func TestRandBetweenStaysWithinBounds(t *testing.T) {
	wb, sheet := newFixture(t)
	ev := eval.New(wb)
	ev.SetRand(clock.FixedRand{Value: 0.999})

	ref := reference.Index{Sheet: sheet.Index, Row: 1, Column: 1}
	node := parser.NewA1("=RANDBETWEEN(5,10)", ref, wb, workbook.DefaultLocale).Parse()
	r1c1 := ast.StringifyR1C1(node, ref, wb)
	idx := sheet.InternSharedFormula(r1c1)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellFormulaPending, FormulaIndex: idx})

	result := ev.EvaluateCell(ref)
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.Equal(t, 10.0, result.Number, "a Rand pinned at 0.999 must land on the top of an inclusive [5,10] range")
}

func TestRandIsWithinUnitInterval(t *testing.T) {
	wb, sheet := newFixture(t)
	result := evalFormula(t, wb, sheet, 1, 1, "=RAND()")
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.GreaterOrEqual(t, result.Number, 0.0)
	assert.Less(t, result.Number, 1.0)
}

func TestLookupVectorFormFindsRightmostLessOrEqual(t *testing.T) {
	wb, sheet := newFixture(t)
	keys := []float64{10, 20, 30, 40}
	values := []string{"ten", "twenty", "thirty", "forty"}
	for i := range keys {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellNumber, Number: keys[i]})
		sheet.Set(int32(i+1), 2, workbook.Cell{Kind: workbook.CellSharedString, StringID: wb.InternString(values[i])})
	}
	result := evalFormula(t, wb, sheet, 1, 3, "=LOOKUP(25,A1:A4,B1:B4)")
	require.Equal(t, calcresult.KindString, result.Kind)
	assert.Equal(t, "twenty", result.Str)
}

func TestLookupArrayFormSplitsTallerArrayIntoFirstAndLastColumn(t *testing.T) {
	wb, sheet := newFixture(t)
	keys := []float64{1, 2, 3}
	values := []string{"a", "b", "c"}
	for i := range keys {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellNumber, Number: keys[i]})
		sheet.Set(int32(i+1), 2, workbook.Cell{Kind: workbook.CellSharedString, StringID: wb.InternString(values[i])})
	}
	result := evalFormula(t, wb, sheet, 1, 3, "=LOOKUP(2,A1:B3)")
	require.Equal(t, calcresult.KindString, result.Kind)
	assert.Equal(t, "b", result.Str)
}

func TestXlookupExactMatch(t *testing.T) {
	wb, sheet := newFixture(t)
	keys := []string{"red", "green", "blue"}
	values := []float64{1, 2, 3}
	for i := range keys {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellSharedString, StringID: wb.InternString(keys[i])})
		sheet.Set(int32(i+1), 2, workbook.Cell{Kind: workbook.CellNumber, Number: values[i]})
	}
	result := evalFormula(t, wb, sheet, 1, 3, `=XLOOKUP("green",A1:A3,B1:B3)`)
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 2.0, result.Number, 1e-9)
}

func TestXlookupMissReturnsIfNotFoundArgument(t *testing.T) {
	wb, sheet := newFixture(t)
	keys := []string{"red", "green", "blue"}
	for i := range keys {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellSharedString, StringID: wb.InternString(keys[i])})
		sheet.Set(int32(i+1), 2, workbook.Cell{Kind: workbook.CellNumber, Number: float64(i + 1)})
	}
	result := evalFormula(t, wb, sheet, 1, 3, `=XLOOKUP("purple",A1:A3,B1:B3,"missing")`)
	require.Equal(t, calcresult.KindString, result.Kind)
	assert.Equal(t, "missing", result.Str)
}

func TestXlookupNextSmallerMatchMode(t *testing.T) {
	wb, sheet := newFixture(t)
	keys := []float64{10, 20, 30, 40}
	for i := range keys {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellNumber, Number: keys[i]})
		sheet.Set(int32(i+1), 2, workbook.Cell{Kind: workbook.CellNumber, Number: keys[i] * 10})
	}
	result := evalFormula(t, wb, sheet, 1, 3, "=XLOOKUP(25,A1:A4,B1:B4,,-1)")
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 200.0, result.Number, 1e-9)
}

func TestIfsReturnsFirstMatchingCondition(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 75})
	result := evalFormula(t, wb, sheet, 1, 2, `=IFS(A1>=90,"A",A1>=70,"B",TRUE,"C")`)
	require.Equal(t, calcresult.KindString, result.Kind)
	assert.Equal(t, "B", result.Str)
}

func TestIfsNoMatchReturnsNA(t *testing.T) {
	wb, sheet := newFixture(t)
	result := evalFormula(t, wb, sheet, 1, 1, "=IFS(FALSE,1,FALSE,2)")
	require.True(t, result.IsError())
	assert.Equal(t, calcresult.ErrNA, result.ErrKind)
}

func TestTrigFunctionsMatchKnownValues(t *testing.T) {
	wb, sheet := newFixture(t)

	sin := evalFormula(t, wb, sheet, 1, 1, "=SIN(0)")
	require.Equal(t, calcresult.KindNumber, sin.Kind)
	assert.InDelta(t, 0.0, sin.Number, 1e-9)

	cos := evalFormula(t, wb, sheet, 1, 2, "=COS(0)")
	require.Equal(t, calcresult.KindNumber, cos.Kind)
	assert.InDelta(t, 1.0, cos.Number, 1e-9)

	tan := evalFormula(t, wb, sheet, 1, 3, "=TAN(0)")
	require.Equal(t, calcresult.KindNumber, tan.Kind)
	assert.InDelta(t, 0.0, tan.Number, 1e-9)

	asin := evalFormula(t, wb, sheet, 1, 4, "=ASIN(1)")
	require.Equal(t, calcresult.KindNumber, asin.Kind)
	assert.InDelta(t, math.Pi/2, asin.Number, 1e-9)

	acos := evalFormula(t, wb, sheet, 1, 5, "=ACOS(1)")
	require.Equal(t, calcresult.KindNumber, acos.Kind)
	assert.InDelta(t, 0.0, acos.Number, 1e-9)

	atan := evalFormula(t, wb, sheet, 1, 6, "=ATAN(1)")
	require.Equal(t, calcresult.KindNumber, atan.Kind)
	assert.InDelta(t, math.Pi/4, atan.Number, 1e-9)

	sinh := evalFormula(t, wb, sheet, 1, 7, "=SINH(0)")
	require.Equal(t, calcresult.KindNumber, sinh.Kind)
	assert.InDelta(t, 0.0, sinh.Number, 1e-9)

	cosh := evalFormula(t, wb, sheet, 1, 8, "=COSH(0)")
	require.Equal(t, calcresult.KindNumber, cosh.Kind)
	assert.InDelta(t, 1.0, cosh.Number, 1e-9)

	tanh := evalFormula(t, wb, sheet, 1, 9, "=TANH(0)")
	require.Equal(t, calcresult.KindNumber, tanh.Kind)
	assert.InDelta(t, 0.0, tanh.Number, 1e-9)
}

func TestAsinRejectsOutOfDomainArgument(t *testing.T) {
	wb, sheet := newFixture(t)
	result := evalFormula(t, wb, sheet, 1, 1, "=ASIN(2)")
	require.True(t, result.IsError())
	assert.Equal(t, calcresult.ErrNum, result.ErrKind)
}

func TestAverageIfsAveragesAcrossMultipleCriteriaPairs(t *testing.T) {
	wb, sheet := newFixture(t)
	values := []float64{10, 20, 30, 40}
	categories := []string{"a", "b", "a", "a"}
	regions := []string{"east", "east", "west", "east"}
	for i := range values {
		sheet.Set(int32(i+1), 1, workbook.Cell{Kind: workbook.CellNumber, Number: values[i]})
		sheet.Set(int32(i+1), 2, workbook.Cell{Kind: workbook.CellSharedString, StringID: wb.InternString(categories[i])})
		sheet.Set(int32(i+1), 3, workbook.Cell{Kind: workbook.CellSharedString, StringID: wb.InternString(regions[i])})
	}
	result := evalFormula(t, wb, sheet, 1, 5, `=AVERAGEIFS(A1:A4,B1:B4,"a",C1:C4,"east")`)
	require.Equal(t, calcresult.KindNumber, result.Kind)
	assert.InDelta(t, 25.0, result.Number, 1e-9)
}

func TestAverageIfsNoMatchReturnsDiv0(t *testing.T) {
	wb, sheet := newFixture(t)
	sheet.Set(1, 1, workbook.Cell{Kind: workbook.CellNumber, Number: 10})
	sheet.Set(1, 2, workbook.Cell{Kind: workbook.CellSharedString, StringID: wb.InternString("a")})
	result := evalFormula(t, wb, sheet, 1, 3, `=AVERAGEIFS(A1:A1,B1:B1,"z")`)
	require.True(t, result.IsError())
	assert.Equal(t, calcresult.ErrDiv0, result.ErrKind)
}

