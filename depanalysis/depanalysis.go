// Package depanalysis implements spec.md §4.7's static dependency
// analyser: without evaluating anything, it walks a formula's AST to
// collect the cells and ranges it could possibly read, and answers
// whether a cell's value is provably independent of a set of sheets
// and cells. Grounded directly on original_source's graph_static.rs,
// the teacher has no equivalent (its formulas are evaluated, never
// statically inspected).
package depanalysis

import (
	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/gscalcerr"
	"github.com/cellforge/gscalc/parser"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

func parseR1C1(wb *workbook.Workbook, origin reference.Index, text string) ast.Node {
	return parser.NewR1C1(text, origin, wb, workbook.DefaultLocale).Parse()
}

// StaticDependencies is the set of cells and ranges a formula could
// read, plus whether that set is known to be incomplete. NonStrict is
// set by OFFSET, INDIRECT, and the ':' range-construction operator —
// each can produce a reference the AST doesn't pin down in advance.
type StaticDependencies struct {
	NonStrict bool
	Cells     []reference.Index
	Ranges    []reference.Range
}

func (d *StaticDependencies) add(other StaticDependencies) {
	d.NonStrict = d.NonStrict || other.NonStrict
	d.Cells = append(d.Cells, other.Cells...)
	d.Ranges = append(d.Ranges, other.Ranges...)
}

// nonStrictFunctions are the functions whose result is not determined
// solely by their AST arguments.
var nonStrictFunctions = map[string]bool{
	"OFFSET":   true,
	"INDIRECT": true,
}

// directDependencies collects the cells/ranges node references
// directly, without recursing into what those cells themselves
// contain. Unlike graph_static.rs's get_node_static_direct_dependencies,
// no column_ref/row_ref accumulator is threaded through the recursion:
// this module's Reference/Range nodes already carry resolved absolute
// coordinates, so there is nothing left to relativize.
func directDependencies(n ast.Node) StaticDependencies {
	var deps StaticDependencies
	switch v := n.(type) {
	case *ast.ReferenceNode:
		deps.Cells = []reference.Index{{Sheet: v.SheetIndex, Row: v.Row, Column: v.Column}}
	case *ast.RangeNode:
		deps.Ranges = []reference.Range{reference.NormalizeIndexRange(
			reference.Index{Sheet: v.SheetIndex, Row: v.Left.Row, Column: v.Left.Column},
			reference.Index{Sheet: v.SheetIndex, Row: v.Right.Row, Column: v.Right.Column},
		)}
	case *ast.WrongReferenceNode, *ast.WrongRangeNode:
		// Unresolved sheet name: nothing to depend on.
	case *ast.OpRangeNode:
		deps.add(directDependencies(v.Left))
		deps.add(directDependencies(v.Right))
		deps.NonStrict = true
	case *ast.OpConcatNode:
		deps.add(directDependencies(v.Left))
		deps.add(directDependencies(v.Right))
	case *ast.OpSumNode:
		deps.add(directDependencies(v.Left))
		deps.add(directDependencies(v.Right))
	case *ast.OpProductNode:
		deps.add(directDependencies(v.Left))
		deps.add(directDependencies(v.Right))
	case *ast.OpPowerNode:
		deps.add(directDependencies(v.Left))
		deps.add(directDependencies(v.Right))
	case *ast.CompareNode:
		deps.add(directDependencies(v.Left))
		deps.add(directDependencies(v.Right))
	case *ast.UnaryNode:
		deps.add(directDependencies(v.Operand))
	case *ast.FunctionNode:
		for _, arg := range v.Args {
			deps.add(directDependencies(arg))
		}
		if nonStrictFunctions[v.Name] {
			deps.NonStrict = true
		}
	case *ast.ArrayNode:
		for _, row := range v.Rows {
			for _, item := range row {
				deps.add(directDependencies(item))
			}
		}
	}
	return deps
}

// cellIsInRange reports whether cell falls within r's sheet and
// inclusive bounds.
func cellIsInRange(cell reference.Index, r reference.Range) bool {
	return cell.Sheet == r.Left.Sheet &&
		cell.Row >= r.Left.Row && cell.Row <= r.Right.Row &&
		cell.Column >= r.Left.Column && cell.Column <= r.Right.Column
}

func formulaNode(wb *workbook.Workbook, cell reference.Index) (ast.Node, bool) {
	s := wb.Sheet(cell.Sheet)
	if s == nil {
		return nil, false
	}
	c := s.Get(cell.Row, cell.Column)
	if !c.IsFormula() {
		return nil, false
	}
	text, ok := s.SharedFormulaText(c.FormulaIndex)
	if !ok {
		return nil, false
	}
	origin := reference.Index{Sheet: cell.Sheet, Row: cell.Row, Column: cell.Column}
	return parseR1C1(wb, origin, text), true
}

// sheetDimensions returns the furthest row/column a sheet's used range
// reaches, for clipping a range dependency before expanding it into
// member cells. A sheet with no data returns 0, 0, so no member cells
// are expanded; an unknown sheet index returns LastRow/LastColumn, so
// the range is not clipped.
func sheetDimensions(wb *workbook.Workbook, sheet int) (maxRow, maxCol int32) {
	s := wb.Sheet(sheet)
	if s == nil {
		return reference.LastRow, reference.LastColumn
	}
	used, ok := s.UsedRange()
	if !ok {
		return 0, 0
	}
	return used.Right.Row, used.Right.Column
}

// AddStaticDependencies recursively accumulates cell's static
// dependencies into deps, following every formula cell reached in
// turn. visited guards against revisiting a cell already expanded —
// static cycles are not themselves an error (ground: add_static_dependencies).
func AddStaticDependencies(wb *workbook.Workbook, cell reference.Index, deps *StaticDependencies, visited map[reference.Index]bool) {
	node, ok := formulaNode(wb, cell)
	if !ok {
		return
	}
	if visited[cell] {
		return
	}
	visited[cell] = true

	direct := directDependencies(node)
	deps.NonStrict = deps.NonStrict || direct.NonStrict

	seenCell := make(map[reference.Index]bool, len(deps.Cells))
	for _, c := range deps.Cells {
		seenCell[c] = true
	}
	for _, c := range direct.Cells {
		if seenCell[c] {
			continue
		}
		seenCell[c] = true
		deps.Cells = append(deps.Cells, c)
		AddStaticDependencies(wb, c, deps, visited)
	}

	for _, r := range direct.Ranges {
		maxRow, maxCol := sheetDimensions(wb, r.Left.Sheet)
		lastRow, lastCol := r.Right.Row, r.Right.Column
		if lastRow > maxRow {
			lastRow = maxRow
		}
		if lastCol > maxCol {
			lastCol = maxCol
		}
		for row := r.Left.Row; row <= lastRow; row++ {
			for col := r.Left.Column; col <= lastCol; col++ {
				member := reference.Index{Sheet: r.Left.Sheet, Row: row, Column: col}
				if seenCell[member] {
					continue
				}
				AddStaticDependencies(wb, member, deps, visited)
			}
		}
		// Kept even though deps.Cells may now cover its members too —
		// graph_static.rs does not dedup ranges against each other either.
		deps.Ranges = append(deps.Ranges, r)
	}
}

// CellIndependentOfSheetsAndCells reports whether cell's value is
// guaranteed independent of every sheet in sheets and every cell in
// cells: true iff the formula's static dependencies are strict (no
// OFFSET/INDIRECT/':' in the chain) and none of them touches a
// forbidden sheet or cell. A false result is conservative — it does
// not prove a dependency exists, only that independence can't be
// shown by inspection alone. Ground: cell_independent_of_sheets_and_cells.
func CellIndependentOfSheetsAndCells(wb *workbook.Workbook, cell reference.Index, sheets []int, cells []reference.Index) (bool, error) {
	if wb.Sheet(cell.Sheet) == nil {
		return false, gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", cell.Sheet)
	}
	for _, sh := range sheets {
		if wb.Sheet(sh) == nil {
			return false, gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", sh)
		}
	}

	forbiddenSheet := make(map[int]bool, len(sheets))
	for _, sh := range sheets {
		forbiddenSheet[sh] = true
	}
	forbiddenCell := make(map[reference.Index]bool, len(cells))
	for _, c := range cells {
		forbiddenCell[c] = true
	}

	var deps StaticDependencies
	AddStaticDependencies(wb, cell, &deps, make(map[reference.Index]bool))

	if deps.NonStrict {
		return false, nil
	}
	for _, c := range deps.Cells {
		if forbiddenSheet[c.Sheet] || forbiddenCell[c] {
			return false, nil
		}
	}
	for _, r := range deps.Ranges {
		if forbiddenSheet[r.Left.Sheet] || forbiddenSheet[r.Right.Sheet] {
			return false, nil
		}
		for _, c := range cells {
			if cellIsInRange(c, r) {
				return false, nil
			}
		}
	}
	return true, nil
}
