// Package workbook is the in-memory document model: worksheets,
// shared strings, styles, and defined names, addressed through the
// reference package's Index/Range types. Grounded on the teacher's
// Storage/WorksheetTable pair in storage.go and worksheet.go,
// generalized to the tagged Cell variant of spec.md §3.1 and to
// per-sheet rather than workbook-wide shared-formula interning.
package workbook

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mohae/deepcopy"

	"github.com/cellforge/gscalc/gscalcerr"
	"github.com/cellforge/gscalc/locale"
	"github.com/cellforge/gscalc/reference"
)

// Workbook owns every worksheet plus the shared interning tables a
// well-formed spreadsheet document needs: shared strings, styles, and
// defined names. ID is a stable identifier useful for correlating a
// workbook across log lines or MCP tool calls (ground: the teacher
// has no such field; mcpxcel's session/document IDs are the model).
type Workbook struct {
	ID   uuid.UUID
	Name string

	sheets       []*Worksheet
	sheetByName  map[string]int // case-folded name -> index
	SharedStrings *InternTable
	Styles       *StylesTable
	DefinedNames map[string]*DefinedName
}

// New creates an empty workbook.
func New(name string) *Workbook {
	return &Workbook{
		ID:            uuid.New(),
		Name:          name,
		sheetByName:   make(map[string]int),
		SharedStrings: NewInternTable(),
		Styles:        NewStylesTable(),
		DefinedNames:  make(map[string]*DefinedName),
	}
}

// AddSheet appends a new, empty worksheet named name. Fails if a
// sheet with that name (case-insensitively) already exists.
func (wb *Workbook) AddSheet(name string) (*Worksheet, error) {
	fold := strings.ToUpper(name)
	if _, exists := wb.sheetByName[fold]; exists {
		return nil, gscalcerr.New(gscalcerr.CodeInvalidArgument, "sheet %q already exists", name)
	}
	idx := len(wb.sheets)
	sheet := NewWorksheet(name, idx)
	wb.sheets = append(wb.sheets, sheet)
	wb.sheetByName[fold] = idx
	return sheet, nil
}

// Sheet returns the worksheet at index, or nil if out of range.
func (wb *Workbook) Sheet(index int) *Worksheet {
	if index < 0 || index >= len(wb.sheets) {
		return nil
	}
	return wb.sheets[index]
}

// Sheets returns every worksheet, in declaration order.
func (wb *Workbook) Sheets() []*Worksheet { return wb.sheets }

// SheetIndex implements reference.SheetResolver: case-insensitive
// lookup of a sheet index by name (invariant 3.2.1: sheet names are
// unique under ASCII case-folding). The index itself is keyed by
// strings.ToUpper rather than locale.EqualFold since sheet names are
// an internal addressing concern, not locale-formatted text.
func (wb *Workbook) SheetIndex(name string) (int, bool) {
	idx, ok := wb.sheetByName[strings.ToUpper(name)]
	return idx, ok
}

// SheetName implements ast.SheetNamer: returns the declared display
// name for a sheet index.
func (wb *Workbook) SheetName(index int) (string, bool) {
	s := wb.Sheet(index)
	if s == nil {
		return "", false
	}
	return s.Name, true
}

// RenameSheet updates a sheet's display name, keeping the name index
// consistent.
func (wb *Workbook) RenameSheet(index int, newName string) error {
	s := wb.Sheet(index)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", index)
	}
	fold := strings.ToUpper(newName)
	if existing, exists := wb.sheetByName[fold]; exists && existing != index {
		return gscalcerr.New(gscalcerr.CodeInvalidArgument, "sheet %q already exists", newName)
	}
	delete(wb.sheetByName, strings.ToUpper(s.Name))
	s.Name = newName
	wb.sheetByName[fold] = index
	return nil
}

// DefineName registers a workbook- or sheet-scoped name. scope is -1
// for workbook scope, else a sheet index.
func (wb *Workbook) DefineName(name string, scope int, formulaText string) {
	wb.DefinedNames[defineKey(name, scope)] = &DefinedName{Name: name, Scope: scope, Text: formulaText}
}

// LookupName resolves a name, preferring sheet scope over workbook
// scope (invariant: a sheet-local name shadows a workbook-global one
// of the same spelling).
func (wb *Workbook) LookupName(name string, sheet int) (*DefinedName, bool) {
	if d, ok := wb.DefinedNames[defineKey(name, sheet)]; ok {
		return d, true
	}
	d, ok := wb.DefinedNames[defineKey(name, -1)]
	return d, ok
}

func defineKey(name string, scope int) string {
	return strings.ToUpper(name) + "\x00" + strconv.Itoa(scope)
}

// CellAt returns the cell at ref, or the zero Cell for an
// out-of-range sheet.
func (wb *Workbook) CellAt(ref reference.Index) Cell {
	s := wb.Sheet(ref.Sheet)
	if s == nil {
		return Cell{Kind: CellEmpty}
	}
	return s.Get(ref.Row, ref.Column)
}

// SetCellAt writes a cell at ref.
func (wb *Workbook) SetCellAt(ref reference.Index, cell Cell) error {
	s := wb.Sheet(ref.Sheet)
	if s == nil {
		return gscalcerr.New(gscalcerr.CodeSheetNotFound, "no sheet at index %d", ref.Sheet)
	}
	s.Set(ref.Row, ref.Column, cell)
	return nil
}

// InternString interns a string into the workbook's shared-string
// pool and returns its ID.
func (wb *Workbook) InternString(s string) uint32 { return wb.SharedStrings.Intern(s) }

// String resolves a shared-string ID back to its text.
func (wb *Workbook) String(id uint32) (string, bool) { return wb.SharedStrings.Get(id) }

// Clone deep-copies wb — every sheet's chunks, shared-formula pool,
// and the workbook's shared-string/style/defined-name tables — so the
// result shares no mutable state with wb. Ground: artukn-excelize and
// jenbonzhang-excelize both reach for deepcopy.Copy to fork a
// worksheet's cell/style data rather than hand-write a field-by-field
// clone; this does the same at workbook granularity, which is the
// natural boundary here since a session always owns one *Workbook.
// The clone gets a fresh ID: it is a new document, not an alias.
func (wb *Workbook) Clone() *Workbook {
	cp := deepcopy.Copy(wb).(*Workbook)
	cp.ID = uuid.New()
	return cp
}

// DefaultLocale is the locale new workbooks format numbers and parse
// formulas under absent an explicit override.
var DefaultLocale = &locale.US
