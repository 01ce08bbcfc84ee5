package workbook

import "github.com/cellforge/gscalc/reference"

// DefinedNameKind discriminates a parsed defined name. Parsing is
// lazy: a name is stored as raw formula text at load time and only
// classified into one of these three shapes the first time it is
// resolved, since most workbooks define far more names than they
// actually evaluate in a given session.
type DefinedNameKind uint8

const (
	DefinedNameCellReference DefinedNameKind = iota
	DefinedNameRangeReference
	DefinedNameInvalidFormula
)

// DefinedName is one workbook- or sheet-scoped named range/cell.
type DefinedName struct {
	Name  string
	Scope int // sheet index, or -1 for workbook scope
	Text  string

	parsed bool
	kind   DefinedNameKind
	cell   reference.Index
	rng    reference.Range
}

// Resolve lazily parses Text (on first call) and reports the parsed
// shape.
func (d *DefinedName) Resolve(resolver reference.SheetResolver, defaultSheet int) (DefinedNameKind, reference.Index, reference.Range) {
	if d.parsed {
		return d.kind, d.cell, d.rng
	}
	d.parsed = true

	if idx, err := reference.ParseTextual(d.Text, defaultSheet, resolver); err == nil {
		d.kind = DefinedNameCellReference
		d.cell = idx
		return d.kind, d.cell, d.rng
	}

	// try range form "A1:B2" or "Sheet!A1:B2"
	if left, right, ok := splitRangeText(d.Text); ok {
		l, errL := reference.ParseTextual(left, defaultSheet, resolver)
		r, errR := reference.ParseTextual(right, defaultSheet, resolver)
		if errL == nil && errR == nil {
			d.kind = DefinedNameRangeReference
			d.rng = reference.NormalizeIndexRange(l, r)
			return d.kind, d.cell, d.rng
		}
	}

	d.kind = DefinedNameInvalidFormula
	return d.kind, d.cell, d.rng
}

func splitRangeText(text string) (left, right string, ok bool) {
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == ':' {
			return text[:i], text[i+1:], true
		}
	}
	return "", "", false
}
