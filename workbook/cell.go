package workbook

import "github.com/cellforge/gscalc/calcresult"

// CellKind discriminates the tagged Cell variant of spec.md §3.1:
// plain values, and formulas split by their last-known result shape
// so a reader (and the evaluator's fast path) never needs to parse a
// formula string to know whether a cached result is numeric.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellBoolean
	CellNumber
	CellError
	CellSharedString
	CellFormulaPending // formula cell never evaluated since load/change
	CellFormulaBoolean
	CellFormulaNumber
	CellFormulaString
	CellFormulaError
)

// Cell is one worksheet cell. Grounded on the teacher's flat Cell
// struct in cell.go (Type/Value/StringID/FormulaID/FormulaResultType),
// regrouped into spec.md's explicit tagged variant so a formula cell's
// cached result type is part of the Kind itself rather than a second
// field a caller can forget to check.
type Cell struct {
	Kind CellKind

	Boolean bool
	Number  float64
	// StringID indexes the workbook's shared-string InternTable for
	// CellSharedString / CellFormulaString; the other kinds leave it
	// unused.
	StringID uint32
	ErrKind  calcresult.ErrorKind

	// FormulaIndex indexes Worksheet.SharedFormulas, the per-sheet
	// R1C1-keyed formula text pool (invariant 3.2.2/3.2.3). Valid only
	// when Kind is one of the Formula* variants.
	FormulaIndex int32
	// StyleID indexes the workbook Styles table; 0 means the default
	// style.
	StyleID uint32
}

// IsFormula reports whether c is one of the Formula* variants.
func (c Cell) IsFormula() bool {
	switch c.Kind {
	case CellFormulaPending, CellFormulaBoolean, CellFormulaNumber, CellFormulaString, CellFormulaError:
		return true
	default:
		return false
	}
}

// IsEmpty reports whether c carries no value and no formula.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }
