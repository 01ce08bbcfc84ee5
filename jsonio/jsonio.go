// Package jsonio implements spec.md §6's canonical Workbook JSON
// shape: decode into a validated Document, then lift into a
// workbook.Workbook. The XLSX/OOXML reader-writer itself stays an
// external collaborator per §1/§6 — this package only has to speak
// the one JSON shape the core promises as its boundary.
//
// Grounded on mcpxcel's pattern of validating an inbound request
// struct with go-playground/validator before touching excelize: the
// teacher has no JSON document of its own (its sheets are built
// programmatically), so the validation posture is carried over from
// mcpxcel rather than from the teacher.
package jsonio

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/gscalcerr"
	"github.com/cellforge/gscalc/language"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

var validate = validator.New()

// Document mirrors spec.md §6's canonical JSON shape:
// { shared_strings, defined_names, worksheets, styles, name, settings }.
type Document struct {
	Name          string            `json:"name" validate:"required"`
	SharedStrings []string          `json:"shared_strings"`
	DefinedNames  []DefinedNameDoc  `json:"defined_names" validate:"dive"`
	Worksheets    []WorksheetDoc    `json:"worksheets" validate:"required,min=1,dive"`
	Styles        []StyleDoc        `json:"styles" validate:"dive"`
	Settings      SettingsDoc       `json:"settings"`
}

// SettingsDoc carries the locale/timezone ids spec.md §3.1 attaches to
// a Workbook. Lift reads Locale only to resolve localized error tags in
// error cells; Timezone is not read, and neither value is copied onto
// the lifted workbook.
type SettingsDoc struct {
	Timezone string `json:"tz"`
	Locale   string `json:"locale"`
}

// DefinedNameDoc is one workbook- or sheet-scoped named range/cell,
// stored as raw formula text (parsed lazily, same as
// workbook.DefinedName).
type DefinedNameDoc struct {
	Name    string `json:"name" validate:"required"`
	Formula string `json:"formula" validate:"required"`
	// SheetID is nil for workbook scope, else a 0-based worksheet index.
	SheetID *int `json:"sheet_id,omitempty"`
}

// StyleDoc mirrors workbook.Style, interned on load the same way a
// cell's own inline style would be.
type StyleDoc struct {
	NumberFormat string `json:"num_fmt"`
	FontName     string `json:"font_name"`
	FontBold     bool   `json:"font_bold"`
	FontItalic   bool   `json:"font_italic"`
	FillColor    string `json:"fill_color"`
	BorderStyle  string `json:"border_style"`
}

// WorksheetDoc is one sheet: its SheetData is a sparse row->column->Cell
// map, keyed by string since JSON object keys are always strings (the
// 1-based i32 row/column invariant of spec.md §3.1 is enforced during
// lift, not by the JSON shape itself).
type WorksheetDoc struct {
	Name           string                    `json:"name" validate:"required"`
	SheetData      map[string]map[string]CellDoc `json:"sheet_data" validate:"dive,dive"`
	SharedFormulas []string                  `json:"shared_formulas"`
	RowStyles      map[string]uint32         `json:"row_styles"`
	ColStyles      map[string]uint32         `json:"col_styles"`
}

// CellDoc is the tagged Cell variant of spec.md §3.1, flattened into
// one JSON object per variant with a discriminating Type field. Only
// the fields a given Type uses are populated; the rest are left zero.
type CellDoc struct {
	Type string `json:"type" validate:"required,oneof=empty boolean number error shared_string formula_pending formula_boolean formula_number formula_string formula_error"`

	Style uint32 `json:"style,omitempty"`

	Boolean      bool    `json:"boolean,omitempty"`
	Number       float64 `json:"number,omitempty"`
	ErrorKind    string  `json:"error_kind,omitempty"`
	StringIndex  uint32  `json:"string_index,omitempty"`
	FormulaIndex int32   `json:"formula_index,omitempty"`
}

// errorKindByTag maps spec.md §3.1's printable error tags back to
// calcresult.ErrorKind, the inverse of ErrorKind.Tag.
var errorKindByTag = map[string]calcresult.ErrorKind{
	"#DIV/0!":  calcresult.ErrDiv0,
	"#N/A":     calcresult.ErrNA,
	"#NAME?":   calcresult.ErrName,
	"#NULL!":   calcresult.ErrNull,
	"#NUM!":    calcresult.ErrNum,
	"#REF!":    calcresult.ErrRef,
	"#VALUE!":  calcresult.ErrValue,
	"#ERROR!":  calcresult.ErrParse,
	"#CIRC!":   calcresult.ErrCirc,
	"#N/IMPL!": calcresult.ErrNImpl,
}

func errorKindForTag(tag string) (calcresult.ErrorKind, bool) {
	kind, ok := errorKindByTag[tag]
	return kind, ok
}

// errorKindForLocalizedTag resolves an error_kind cell value against
// the internal English tags first and then against the document's
// declared locale, so a document authored under a German host ("#WERT!")
// lifts to the same ErrorKind as one authored under English
// ("#VALUE!"). Ground: language.Names.ResolveTag, spec.md §6's
// Language collaborator.
func errorKindForLocalizedTag(tag, localeID string) (calcresult.ErrorKind, bool) {
	if kind, ok := errorKindByTag[tag]; ok {
		return kind, true
	}
	if internalTag, ok := language.For(localeID).ResolveTag(tag); ok {
		return errorKindForTag(internalTag)
	}
	return 0, false
}

// Decode parses raw JSON into a Document and validates its struct
// tags, failing fast before any lifting into a workbook.Workbook is
// attempted.
func Decode(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, gscalcerr.New(gscalcerr.CodeInvalidArgument, "jsonio: malformed document: %v", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, gscalcerr.New(gscalcerr.CodeInvalidArgument, "jsonio: invalid document: %v", err)
	}
	return &doc, nil
}

// Load decodes and lifts raw JSON in one step — the common path for a
// host that only cares about the resulting workbook.
func Load(raw []byte) (*workbook.Workbook, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return Lift(doc)
}

// Lift builds a workbook.Workbook from a validated Document.
func Lift(doc *Document) (*workbook.Workbook, error) {
	wb := workbook.New(doc.Name)

	for _, s := range doc.SharedStrings {
		wb.InternString(s)
	}

	for _, sd := range doc.Styles {
		wb.Styles.Intern(workbook.Style{
			NumberFormat: sd.NumberFormat,
			FontName:     sd.FontName,
			FontBold:     sd.FontBold,
			FontItalic:   sd.FontItalic,
			FillColor:    sd.FillColor,
			BorderStyle:  sd.BorderStyle,
		})
	}

	for _, wsDoc := range doc.Worksheets {
		sheet, err := wb.AddSheet(wsDoc.Name)
		if err != nil {
			return nil, err
		}
		for _, text := range wsDoc.SharedFormulas {
			sheet.InternSharedFormula(text)
		}
		for rowKey, cols := range wsDoc.SheetData {
			row, err := parseIndex(rowKey, "row")
			if err != nil {
				return nil, err
			}
			for colKey, cellDoc := range cols {
				col, err := parseIndex(colKey, "column")
				if err != nil {
					return nil, err
				}
				cell, err := liftCell(cellDoc, doc.Settings.Locale)
				if err != nil {
					return nil, err
				}
				sheet.Set(row, col, cell)
			}
		}
		for rowKey, styleID := range wsDoc.RowStyles {
			row, err := parseIndex(rowKey, "row")
			if err != nil {
				return nil, err
			}
			sheet.RowStyles[row] = styleID
		}
		for colKey, styleID := range wsDoc.ColStyles {
			col, err := parseIndex(colKey, "column")
			if err != nil {
				return nil, err
			}
			sheet.ColStyles[col] = styleID
		}
	}

	for _, dn := range doc.DefinedNames {
		scope := -1
		if dn.SheetID != nil {
			scope = *dn.SheetID
		}
		wb.DefineName(dn.Name, scope, dn.Formula)
	}

	return wb, nil
}

func parseIndex(key, what string) (int32, error) {
	var n int32
	if _, err := fmt.Sscanf(key, "%d", &n); err != nil {
		return 0, gscalcerr.New(gscalcerr.CodeInvalidArgument, "jsonio: non-numeric %s key %q", what, key)
	}
	limit := int32(reference.LastRow)
	if what == "column" {
		limit = reference.LastColumn
	}
	if n < 1 || n > limit {
		return 0, gscalcerr.New(gscalcerr.CodeInvalidArgument, "jsonio: %s key %q out of range", what, key)
	}
	return n, nil
}

func liftCell(c CellDoc, localeID string) (workbook.Cell, error) {
	switch c.Type {
	case "empty":
		return workbook.Cell{Kind: workbook.CellEmpty, StyleID: c.Style}, nil
	case "boolean":
		return workbook.Cell{Kind: workbook.CellBoolean, Boolean: c.Boolean, StyleID: c.Style}, nil
	case "number":
		return workbook.Cell{Kind: workbook.CellNumber, Number: c.Number, StyleID: c.Style}, nil
	case "error":
		kind, ok := errorKindForLocalizedTag(c.ErrorKind, localeID)
		if !ok {
			return workbook.Cell{}, gscalcerr.New(gscalcerr.CodeInvalidArgument, "jsonio: unknown error kind %q", c.ErrorKind)
		}
		return workbook.Cell{Kind: workbook.CellError, ErrKind: kind, StyleID: c.Style}, nil
	case "shared_string":
		return workbook.Cell{Kind: workbook.CellSharedString, StringID: c.StringIndex, StyleID: c.Style}, nil
	case "formula_pending":
		return workbook.Cell{Kind: workbook.CellFormulaPending, FormulaIndex: c.FormulaIndex, StyleID: c.Style}, nil
	case "formula_boolean":
		return workbook.Cell{Kind: workbook.CellFormulaBoolean, FormulaIndex: c.FormulaIndex, Boolean: c.Boolean, StyleID: c.Style}, nil
	case "formula_number":
		return workbook.Cell{Kind: workbook.CellFormulaNumber, FormulaIndex: c.FormulaIndex, Number: c.Number, StyleID: c.Style}, nil
	case "formula_string":
		return workbook.Cell{Kind: workbook.CellFormulaString, FormulaIndex: c.FormulaIndex, StringID: c.StringIndex, StyleID: c.Style}, nil
	case "formula_error":
		kind, ok := errorKindForLocalizedTag(c.ErrorKind, localeID)
		if !ok {
			return workbook.Cell{}, gscalcerr.New(gscalcerr.CodeInvalidArgument, "jsonio: unknown error kind %q", c.ErrorKind)
		}
		return workbook.Cell{Kind: workbook.CellFormulaError, FormulaIndex: c.FormulaIndex, ErrKind: kind, StyleID: c.Style}, nil
	default:
		return workbook.Cell{}, gscalcerr.New(gscalcerr.CodeInvalidArgument, "jsonio: unknown cell type %q", c.Type)
	}
}
