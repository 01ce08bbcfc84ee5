package mutate

import (
	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/gscalcerr"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

// SwapCellsInRow exchanges the contents (value or formula, plus style)
// of two cells in the same row, then rewrites every formula in the
// workbook so a reference to either cell now points at the other.
// Ground: actions.rs's swap_cells_in_row.
func SwapCellsInRow(wb *workbook.Workbook, sheet int, row, col1, col2 int32) error {
	s := wb.Sheet(sheet)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", sheet)
	}
	if col1 == col2 {
		return nil
	}
	c1 := s.Get(row, col1)
	c2 := s.Get(row, col2)
	s.Set(row, col1, c2)
	s.Set(row, col2, c1)

	d := func(sh int, r, c int32) (int, int32, int32, bool) {
		if sh != sheet || r != row {
			return sh, r, c, true
		}
		switch c {
		case col1:
			return sh, r, col2, true
		case col2:
			return sh, r, col1, true
		default:
			return sh, r, c, true
		}
	}
	rewriteReferencesOnly(wb, d)
	return nil
}

// rewriteReferencesOnly applies d to every formula's embedded
// references without moving any cell's own data — used by operators
// (swap, move-column) that change what a coordinate means without
// relocating the cells that sit at unaffected coordinates.
func rewriteReferencesOnly(wb *workbook.Workbook, d displacer) {
	for _, sheet := range wb.Sheets() {
		used, ok := sheet.UsedRange()
		if !ok {
			continue
		}
		for row := used.Left.Row; row <= used.Right.Row; row++ {
			for col := used.Left.Column; col <= used.Right.Column; col++ {
				cell := sheet.Get(row, col)
				if !cell.IsFormula() {
					continue
				}
				text, ok := sheet.SharedFormulaText(cell.FormulaIndex)
				if !ok {
					continue
				}
				origin := reference.Index{Sheet: sheet.Index, Row: row, Column: col}
				node := parseAt(wb, origin, text)
				rewritten := rewriteNode(node, d, wb)
				newText := ast.StringifyR1C1(rewritten, origin, wb)
				if newText == text {
					continue
				}
				cell.FormulaIndex = sheet.InternSharedFormula(newText)
				sheet.Set(row, col, cell)
			}
		}
	}
}
