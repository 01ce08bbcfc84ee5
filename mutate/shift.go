package mutate

import (
	"github.com/cellforge/gscalc/gscalcerr"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

// ShiftCellsRight inserts count empty cells at (row, col) on sheet,
// pushing existing cells in that single row right — a local version of
// InsertColumns confined to one row. Ground: actions.rs's
// shift_cells_right.
func ShiftCellsRight(wb *workbook.Workbook, sheet int, row, col, count int32) error {
	if count <= 0 {
		return gscalcerr.New(gscalcerr.CodeInvalidArgument, "cell count must be positive")
	}
	s := wb.Sheet(sheet)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", sheet)
	}
	if used, ok := s.UsedRange(); ok && used.Right.Column+count > reference.LastColumn {
		return gscalcerr.New(gscalcerr.CodeCellOutOfBounds, "shift would push cells past column %d", reference.LastColumn)
	}
	d := func(sh int, r, c int32) (int, int32, int32, bool) {
		if sh != sheet || r != row || c < col {
			return sh, r, c, true
		}
		return sh, r, c + count, true
	}
	applyDisplacer(wb, d)
	return nil
}

// ShiftCellsLeft removes count cells at (row, col) on sheet, pulling
// cells further right in that row left. Ground: actions.rs's
// shift_cells_left.
func ShiftCellsLeft(wb *workbook.Workbook, sheet int, row, col, count int32) error {
	if count <= 0 {
		return gscalcerr.New(gscalcerr.CodeInvalidArgument, "cell count must be positive")
	}
	s := wb.Sheet(sheet)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", sheet)
	}
	d := func(sh int, r, c int32) (int, int32, int32, bool) {
		if sh != sheet || r != row || c < col {
			return sh, r, c, true
		}
		if c < col+count {
			return sh, r, c, false
		}
		return sh, r, c - count, true
	}
	applyDisplacer(wb, d)
	return nil
}

// ShiftCellsDown inserts count empty cells at (row, col) on sheet,
// pushing existing cells in that single column down. Ground: actions.rs's
// shift_cells_down.
func ShiftCellsDown(wb *workbook.Workbook, sheet int, row, col, count int32) error {
	if count <= 0 {
		return gscalcerr.New(gscalcerr.CodeInvalidArgument, "cell count must be positive")
	}
	s := wb.Sheet(sheet)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", sheet)
	}
	if used, ok := s.UsedRange(); ok && used.Right.Row+count > reference.LastRow {
		return gscalcerr.New(gscalcerr.CodeCellOutOfBounds, "shift would push cells past row %d", reference.LastRow)
	}
	d := func(sh int, r, c int32) (int, int32, int32, bool) {
		if sh != sheet || c != col || r < row {
			return sh, r, c, true
		}
		return sh, r + count, c, true
	}
	applyDisplacer(wb, d)
	return nil
}

// ShiftCellsUp removes count cells at (row, col) on sheet, pulling
// cells further down in that column up. Ground: actions.rs's
// shift_cells_up.
func ShiftCellsUp(wb *workbook.Workbook, sheet int, row, col, count int32) error {
	if count <= 0 {
		return gscalcerr.New(gscalcerr.CodeInvalidArgument, "cell count must be positive")
	}
	s := wb.Sheet(sheet)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", sheet)
	}
	d := func(sh int, r, c int32) (int, int32, int32, bool) {
		if sh != sheet || c != col || r < row {
			return sh, r, c, true
		}
		if r < row+count {
			return sh, r, c, false
		}
		return sh, r - count, c, true
	}
	applyDisplacer(wb, d)
	return nil
}
