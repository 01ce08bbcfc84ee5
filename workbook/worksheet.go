package workbook

import "github.com/cellforge/gscalc/reference"

// chunkRows and chunkCols partition a worksheet into fixed-size tiles
// so sparse data only allocates storage for the regions actually
// written, and repeated accesses to a nearby region stay cache-local.
// Grounded on the teacher's Chunk/ChunkKey/getChunk scheme in
// worksheet.go, generalized from its structure-of-arrays layout
// (separate Numbers/StringIDs/FormulaIDs slices) to a single array of
// the tagged Cell struct — the teacher split arrays to avoid storing
// unused fields per cell type; Cell here is small and fixed-size, so
// a single slice keeps the same lazy-allocation property more simply.
const (
	chunkRows = 256
	chunkCols = 256
	chunkSize = chunkRows * chunkCols
)

type chunkKey struct {
	row, col uint32
}

type chunk struct {
	cells        []Cell
	nonEmptyCount int
}

// Worksheet is one sheet's cell storage plus the per-sheet shared
// formula pool shared-formula interning is narrowed to (invariant
// 3.2.2/3.2.3: a shared formula's R1C1 text is only meaningful
// relative to one sheet's column/row numbering, so the pool lives on
// Worksheet rather than Workbook as in the teacher's workbook-wide
// FormulaTable).
type Worksheet struct {
	Name  string
	Index int

	chunks map[chunkKey]*chunk

	// SharedFormulas is the R1C1-canonicalised formula text pool for
	// this sheet, deduplicated: two cells whose formulas are identical
	// once relativized to R1C1 share one entry.
	SharedFormulas []string
	sharedIndex    map[string]int32

	// RowStyles and ColStyles hold the per-row/per-column style
	// overrides (as opposed to a per-cell StyleID): a row or column
	// with no entry uses the sheet default. Re-indexed by mutate's
	// insert/delete row/column operators the same way cell data is.
	RowStyles map[int32]uint32
	ColStyles map[int32]uint32

	totalCells int
}

// NewWorksheet creates an empty worksheet.
func NewWorksheet(name string, index int) *Worksheet {
	return &Worksheet{
		Name:        name,
		Index:       index,
		chunks:      make(map[chunkKey]*chunk),
		sharedIndex: make(map[string]int32),
		RowStyles:   make(map[int32]uint32),
		ColStyles:   make(map[int32]uint32),
	}
}

func (w *Worksheet) getChunk(cr, cc uint32, create bool) *chunk {
	key := chunkKey{cr, cc}
	c, ok := w.chunks[key]
	if !ok && create {
		c = &chunk{cells: make([]Cell, chunkSize)}
		w.chunks[key] = c
	}
	return c
}

func chunkCoords(row, col int32) (cr, cc, idx uint32) {
	r, c := uint32(row), uint32(col)
	cr, cc = r/chunkRows, c/chunkCols
	localRow, localCol := r%chunkRows, c%chunkCols
	idx = localCol*chunkRows + localRow
	return
}

// Get returns the cell at (row, col), 1-based. Returns the zero Cell
// (CellEmpty) if the cell was never written.
func (w *Worksheet) Get(row, col int32) Cell {
	cr, cc, idx := chunkCoords(row, col)
	c := w.getChunk(cr, cc, false)
	if c == nil {
		return Cell{Kind: CellEmpty}
	}
	return c.cells[idx]
}

// Set writes a cell at (row, col), 1-based.
func (w *Worksheet) Set(row, col int32, cell Cell) {
	cr, cc, idx := chunkCoords(row, col)
	c := w.getChunk(cr, cc, true)
	wasEmpty := c.cells[idx].IsEmpty()
	isEmpty := cell.IsEmpty()
	if wasEmpty && !isEmpty {
		c.nonEmptyCount++
		w.totalCells++
	} else if !wasEmpty && isEmpty {
		c.nonEmptyCount--
		w.totalCells--
	}
	c.cells[idx] = cell
	if c.nonEmptyCount == 0 {
		delete(w.chunks, chunkKey{cr, cc})
	}
}

// Clear removes the cell at (row, col).
func (w *Worksheet) Clear(row, col int32) {
	w.Set(row, col, Cell{Kind: CellEmpty})
}

// TotalCells returns the number of non-empty cells on the sheet.
func (w *Worksheet) TotalCells() int { return w.totalCells }

// InternSharedFormula interns r1c1Text into this sheet's shared
// formula pool, returning its stable index.
func (w *Worksheet) InternSharedFormula(r1c1Text string) int32 {
	if idx, ok := w.sharedIndex[r1c1Text]; ok {
		return idx
	}
	idx := int32(len(w.SharedFormulas))
	w.SharedFormulas = append(w.SharedFormulas, r1c1Text)
	w.sharedIndex[r1c1Text] = idx
	return idx
}

// SharedFormulaText returns the R1C1 formula text at idx.
func (w *Worksheet) SharedFormulaText(idx int32) (string, bool) {
	if idx < 0 || int(idx) >= len(w.SharedFormulas) {
		return "", false
	}
	return w.SharedFormulas[idx], true
}

// UsedRange reports the smallest range containing every non-empty
// cell, and false if the sheet is entirely empty.
func (w *Worksheet) UsedRange() (reference.Range, bool) {
	if w.totalCells == 0 {
		return reference.Range{}, false
	}
	minRow, minCol := int32(reference.LastRow), int32(reference.LastColumn)
	maxRow, maxCol := int32(1), int32(1)
	for key, c := range w.chunks {
		for i, cell := range c.cells {
			if cell.IsEmpty() {
				continue
			}
			localCol := uint32(i) / chunkRows
			localRow := uint32(i) % chunkRows
			row := int32(key.row*chunkRows + localRow)
			col := int32(key.col*chunkCols + localCol)
			if row < minRow {
				minRow = row
			}
			if row > maxRow {
				maxRow = row
			}
			if col < minCol {
				minCol = col
			}
			if col > maxCol {
				maxCol = col
			}
		}
	}
	return reference.Range{
		Left:  reference.Index{Sheet: w.Index, Row: minRow, Column: minCol},
		Right: reference.Index{Sheet: w.Index, Row: maxRow, Column: maxCol},
	}, true
}
