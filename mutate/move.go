package mutate

import (
	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/gscalcerr"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

// MoveColumn updates every workbook formula's references so that a
// reference to column now points to column+delta, and references to
// the columns column crossed over shift by one cell to close the gap
// — it does NOT relocate any cell data or column style, matching
// actions.rs's documented NOTE on move_column_action.
func MoveColumn(wb *workbook.Workbook, sheet int, column, delta int32) error {
	target := column + delta
	if !reference.ValidColumn(target) {
		return gscalcerr.New(gscalcerr.CodeCellOutOfBounds, "target column %d out of range", target)
	}
	if !reference.ValidColumn(column) {
		return gscalcerr.New(gscalcerr.CodeCellOutOfBounds, "initial column %d out of range", column)
	}
	d := func(sh int, r, c int32) (int, int32, int32, bool) {
		if sh != sheet {
			return sh, r, c, true
		}
		if c == column {
			return sh, r, target, true
		}
		switch {
		case delta > 0 && c > column && c <= target:
			return sh, r, c - 1, true
		case delta < 0 && c >= target && c < column:
			return sh, r, c + 1, true
		default:
			return sh, r, c, true
		}
	}
	rewriteReferencesOnly(wb, d)
	return nil
}

// MoveCellValueToArea rewrites the single formula text (already parsed
// at origin) so that any reference lying inside area moves by the same
// delta as origin -> target, leaving references outside area untouched.
// This is a pure AST transform — it does not read or write any
// worksheet, matching spec.md §4.6's description of the operator as
// something a caller applies to a formula it already has in hand (a
// copy/paste or fill-handle host operation). Ground: original_source's
// forward_references, adapted from relative-delta tracking to this
// module's resolved-coordinate representation.
func MoveCellValueToArea(wb *workbook.Workbook, formulaText string, origin reference.Index, area reference.Range, target reference.Index) string {
	node := parseAt(wb, origin, formulaText)
	rowDelta := target.Row - area.Left.Row
	colDelta := target.Column - area.Left.Column
	d := func(sh int, r, c int32) (int, int32, int32, bool) {
		if sh != area.Left.Sheet || r < area.Left.Row || r > area.Right.Row || c < area.Left.Column || c > area.Right.Column {
			return sh, r, c, true
		}
		return target.Sheet, r + rowDelta, c + colDelta, true
	}
	rewritten := rewriteNode(node, d, wb)
	return ast.StringifyR1C1(rewritten, origin, wb)
}

// ExtendFormulaTo re-stringifies formulaText (parsed at origin) as if
// it were anchored at newOrigin instead — relative references shift
// naturally since R1C1 deltas are recomputed from the new origin,
// absolute references are unaffected. Ground: spec.md §4.6's
// extend_formula_to, the same re-anchoring step applyDisplacer performs
// per formula cell, exposed standalone for a host's fill-handle /
// autofill feature.
func ExtendFormulaTo(wb *workbook.Workbook, formulaText string, origin, newOrigin reference.Index) string {
	node := parseAt(wb, origin, formulaText)
	return ast.StringifyR1C1(node, newOrigin, wb)
}
