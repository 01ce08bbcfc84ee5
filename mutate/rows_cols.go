package mutate

import (
	"github.com/cellforge/gscalc/gscalcerr"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

// InsertColumns inserts count empty columns before column pivot on
// sheet, shifting existing data and every workbook formula's
// references to columns >= pivot right by count. Ground: actions.rs's
// insert_columns.
func InsertColumns(wb *workbook.Workbook, sheet int, pivot, count int32) error {
	if count <= 0 {
		return gscalcerr.New(gscalcerr.CodeInvalidArgument, "column count must be positive")
	}
	s := wb.Sheet(sheet)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", sheet)
	}
	if used, ok := s.UsedRange(); ok && used.Right.Column+count > reference.LastColumn {
		return gscalcerr.New(gscalcerr.CodeCellOutOfBounds, "insert would shift data past column %d", reference.LastColumn)
	}
	d := func(sh int, row, col int32) (int, int32, int32, bool) {
		if sh != sheet || col < pivot {
			return sh, row, col, true
		}
		return sh, row, col + count, true
	}
	applyDisplacer(wb, d)
	reindexColStyles(s, pivot, count)
	return nil
}

// DeleteColumns removes the count columns starting at pivot on sheet.
// Any reference into the removed band becomes #REF!; columns after it
// shift left by count. Ground: actions.rs's delete_columns.
func DeleteColumns(wb *workbook.Workbook, sheet int, pivot, count int32) error {
	if count <= 0 {
		return gscalcerr.New(gscalcerr.CodeInvalidArgument, "column count must be positive")
	}
	s := wb.Sheet(sheet)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", sheet)
	}
	d := func(sh int, row, col int32) (int, int32, int32, bool) {
		if sh != sheet || col < pivot {
			return sh, row, col, true
		}
		if col < pivot+count {
			return sh, row, col, false
		}
		return sh, row, col - count, true
	}
	applyDisplacer(wb, d)
	reindexColStyles(s, pivot, -count)
	return nil
}

// InsertRows inserts count empty rows before row pivot on sheet. Ground:
// actions.rs's insert_rows.
func InsertRows(wb *workbook.Workbook, sheet int, pivot, count int32) error {
	if count <= 0 {
		return gscalcerr.New(gscalcerr.CodeInvalidArgument, "row count must be positive")
	}
	s := wb.Sheet(sheet)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", sheet)
	}
	if used, ok := s.UsedRange(); ok && used.Right.Row+count > reference.LastRow {
		return gscalcerr.New(gscalcerr.CodeCellOutOfBounds, "insert would shift data past row %d", reference.LastRow)
	}
	d := func(sh int, row, col int32) (int, int32, int32, bool) {
		if sh != sheet || row < pivot {
			return sh, row, col, true
		}
		return sh, row + count, col, true
	}
	applyDisplacer(wb, d)
	reindexRowStyles(s, pivot, count)
	return nil
}

// DeleteRows removes the count rows starting at pivot on sheet. Ground:
// actions.rs's delete_rows.
func DeleteRows(wb *workbook.Workbook, sheet int, pivot, count int32) error {
	if count <= 0 {
		return gscalcerr.New(gscalcerr.CodeInvalidArgument, "row count must be positive")
	}
	s := wb.Sheet(sheet)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", sheet)
	}
	d := func(sh int, row, col int32) (int, int32, int32, bool) {
		if sh != sheet || row < pivot {
			return sh, row, col, true
		}
		if row < pivot+count {
			return sh, row, col, false
		}
		return sh, row - count, col, true
	}
	applyDisplacer(wb, d)
	reindexRowStyles(s, pivot, -count)
	return nil
}

// reindexRowStyles re-keys per-row style overrides the same way
// applyDisplacer re-keys cell data: rows before pivot untouched, rows
// inside a deleted band (delta<0) dropped, rows at/after the pivot
// shifted by delta.
func reindexRowStyles(s *workbook.Worksheet, pivot, delta int32) {
	next := make(map[int32]uint32, len(s.RowStyles))
	for row, style := range s.RowStyles {
		switch {
		case row < pivot:
			next[row] = style
		case delta < 0 && row < pivot-delta:
			// inside the deleted band, dropped
		default:
			next[row+delta] = style
		}
	}
	s.RowStyles = next
}

func reindexColStyles(s *workbook.Worksheet, pivot, delta int32) {
	next := make(map[int32]uint32, len(s.ColStyles))
	for col, style := range s.ColStyles {
		switch {
		case col < pivot:
			next[col] = style
		case delta < 0 && col < pivot-delta:
		default:
			next[col+delta] = style
		}
	}
	s.ColStyles = next
}
