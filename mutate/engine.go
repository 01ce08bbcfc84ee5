package mutate

import (
	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/parser"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

func parseAt(wb *workbook.Workbook, origin reference.Index, text string) ast.Node {
	return parser.NewR1C1(text, origin, wb, workbook.DefaultLocale).Parse()
}

type relocatedCell struct {
	newSheet      int
	newRow, newCol int32
	cell          workbook.Cell
}

// applyDisplacer walks every non-empty cell in wb, recomputes its own
// coordinate through d, and — for formula cells — rewrites every
// embedded Reference/Range through d and re-stringifies at the cell's
// new coordinate. Working in already-resolved absolute coordinates
// (rather than Rust's origin-relative deltas) lets one pass handle
// both "this cell's data moved" and "this formula's target moved out
// from under it, though the formula itself didn't" uniformly: ground,
// actions.rs's displace_cells + move_cell, generalized into a single
// snapshot-rewrite-rewrite pass since this module resolves references
// to absolute coordinates at parse time instead of storing deltas.
//
// Mutation happens in three phases — snapshot, clear, write — so that
// a cell's own relocation never overwrites another cell still waiting
// to be read.
func applyDisplacer(wb *workbook.Workbook, d displacer) {
	var relocations []relocatedCell
	var cleared []reference.Index

	for _, sheet := range wb.Sheets() {
		used, ok := sheet.UsedRange()
		if !ok {
			continue
		}
		for row := used.Left.Row; row <= used.Right.Row; row++ {
			for col := used.Left.Column; col <= used.Right.Column; col++ {
				cell := sheet.Get(row, col)
				if cell.IsEmpty() {
					continue
				}
				newSheet, newRow, newCol, keep := d(sheet.Index, row, col)
				if cell.IsFormula() {
					if text, ok := sheet.SharedFormulaText(cell.FormulaIndex); ok {
						oldOrigin := reference.Index{Sheet: sheet.Index, Row: row, Column: col}
						node := parseAt(wb, oldOrigin, text)
						rewritten := rewriteNode(node, d, wb)
						if keep {
							newOrigin := reference.Index{Sheet: newSheet, Row: newRow, Column: newCol}
							newText := ast.StringifyR1C1(rewritten, newOrigin, wb)
							if target := wb.Sheet(newSheet); target != nil {
								cell.FormulaIndex = target.InternSharedFormula(newText)
							}
						}
					}
				}
				if !keep {
					cleared = append(cleared, reference.Index{Sheet: sheet.Index, Row: row, Column: col})
					continue
				}
				if newSheet == sheet.Index && newRow == row && newCol == col {
					// Still touch the cell so a rewritten formula index
					// (target shifted, origin did not) gets persisted.
					relocations = append(relocations, relocatedCell{newSheet, newRow, newCol, cell})
					cleared = append(cleared, reference.Index{Sheet: sheet.Index, Row: row, Column: col})
					continue
				}
				relocations = append(relocations, relocatedCell{newSheet, newRow, newCol, cell})
				cleared = append(cleared, reference.Index{Sheet: sheet.Index, Row: row, Column: col})
			}
		}
	}

	for _, idx := range cleared {
		if s := wb.Sheet(idx.Sheet); s != nil {
			s.Clear(idx.Row, idx.Column)
		}
	}
	for _, r := range relocations {
		if s := wb.Sheet(r.newSheet); s != nil {
			s.Set(r.newRow, r.newCol, r.cell)
		}
	}
}
