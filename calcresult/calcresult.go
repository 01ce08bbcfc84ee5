// Package calcresult defines the evaluator's runtime currency:
// CalcResult, the tagged variant every AST node evaluates to, and the
// error-kind taxonomy spreadsheet formulas propagate. Grounded on the
// teacher's ErrorCode/SpreadsheetError pair in cell.go, generalized
// from a single scalar-or-error shape into the full spec.md §3.1
// CalcResult variant (Number/String/Boolean/Range/Error/EmptyCell/
// EmptyArg).
package calcresult

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cellforge/gscalc/reference"
)

// ErrorKind enumerates the spreadsheet error taxonomy of spec.md §3.1.
type ErrorKind uint8

const (
	ErrDiv0 ErrorKind = iota + 1
	ErrNA
	ErrName
	ErrNull
	ErrNum
	ErrRef
	ErrValue
	ErrParse  // #ERROR! — syntactic parse failure
	ErrCirc   // #CIRC! — cycle detected during evaluation
	ErrNImpl  // #N/IMPL! — recognized but unimplemented
)

var tags = map[ErrorKind]string{
	ErrDiv0:  "#DIV/0!",
	ErrNA:    "#N/A",
	ErrName:  "#NAME?",
	ErrNull:  "#NULL!",
	ErrNum:   "#NUM!",
	ErrRef:   "#REF!",
	ErrValue: "#VALUE!",
	ErrParse: "#ERROR!",
	ErrCirc:  "#CIRC!",
	ErrNImpl: "#N/IMPL!",
}

// Tag returns the internal (English) printable tag for an ErrorKind.
func (k ErrorKind) Tag() string {
	if t, ok := tags[k]; ok {
		return t
	}
	return "#ERROR!"
}

func (k ErrorKind) String() string { return k.Tag() }

// Kind is the discriminant of a CalcResult.
type Kind uint8

const (
	KindNumber Kind = iota
	KindString
	KindBoolean
	KindRange
	KindError
	KindEmptyCell
	KindEmptyArg
)

// CalcResult is the evaluator's universal currency: every AST node,
// cast, and function call produces one of these.
type CalcResult struct {
	Kind Kind

	Number  float64
	Str     string
	Boolean bool
	Range   reference.Range

	ErrKind ErrorKind
	Origin  reference.Index
	Message string
}

// Num wraps a float64 as a Number CalcResult.
func Num(v float64) CalcResult { return CalcResult{Kind: KindNumber, Number: v} }

// Text wraps a string as a String CalcResult.
func Text(v string) CalcResult { return CalcResult{Kind: KindString, Str: v} }

// Bool wraps a bool as a Boolean CalcResult.
func Bool(v bool) CalcResult { return CalcResult{Kind: KindBoolean, Boolean: v} }

// Rng wraps a reference.Range as a Range CalcResult.
func Rng(r reference.Range) CalcResult { return CalcResult{Kind: KindRange, Range: r} }

// Empty is the canonical EmptyCell CalcResult.
var Empty = CalcResult{Kind: KindEmptyCell}

// EmptyArgument is the canonical EmptyArg CalcResult, produced by an
// elided argument between two commas.
var EmptyArgument = CalcResult{Kind: KindEmptyArg}

// Err constructs an Error CalcResult with an origin and message.
func Err(kind ErrorKind, origin reference.Index, message string) CalcResult {
	if message == "" {
		message = kind.Tag()
	}
	return CalcResult{Kind: KindError, ErrKind: kind, Origin: origin, Message: message}
}

// IsError reports whether the result is an Error variant.
func (c CalcResult) IsError() bool { return c.Kind == KindError }

// FirstError returns the first Error CalcResult among results in
// row-major order, per spec.md §7 ("a range that contains only errors
// propagates the first in row-major order"); ok is false if none of
// results is an error.
func FirstError(results ...CalcResult) (CalcResult, bool) {
	for _, r := range results {
		if r.IsError() {
			return r, true
		}
	}
	return CalcResult{}, false
}

// ---- cast ladder (spec.md §4.4) ----

// ToNumber casts a CalcResult to a number per the cast ladder:
// Number as-is, String parsed as f64 (or #VALUE!), Boolean 1.0/0.0,
// Empty 0.0, Range propagates to the caller for intersect-then-cast
// (Range itself is not directly castable here — callers must apply
// implicit intersection first), Error propagates.
func ToNumber(c CalcResult) CalcResult {
	switch c.Kind {
	case KindNumber:
		return c
	case KindString:
		trimmed := strings.TrimSpace(c.Str)
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return Err(ErrValue, c.Origin, fmt.Sprintf("cannot parse %q as number", c.Str))
		}
		return Num(v)
	case KindBoolean:
		if c.Boolean {
			return Num(1)
		}
		return Num(0)
	case KindEmptyCell, KindEmptyArg:
		return Num(0)
	case KindError:
		return c
	default:
		return Err(ErrValue, c.Origin, "cannot coerce range to number without intersection")
	}
}

// ToText casts a CalcResult to its general-format string.
func ToText(c CalcResult) CalcResult {
	switch c.Kind {
	case KindString:
		return c
	case KindNumber:
		return Text(FormatGeneralNumber(c.Number))
	case KindBoolean:
		if c.Boolean {
			return Text("TRUE")
		}
		return Text("FALSE")
	case KindEmptyCell, KindEmptyArg:
		return Text("")
	case KindError:
		return c
	default:
		return Err(ErrValue, c.Origin, "cannot coerce range to string without intersection")
	}
}

// ToBool casts a CalcResult to a boolean.
func ToBool(c CalcResult) CalcResult {
	switch c.Kind {
	case KindBoolean:
		return c
	case KindNumber:
		return Bool(c.Number != 0)
	case KindString:
		switch strings.ToUpper(strings.TrimSpace(c.Str)) {
		case "TRUE":
			return Bool(true)
		case "FALSE":
			return Bool(false)
		default:
			return Err(ErrValue, c.Origin, fmt.Sprintf("cannot parse %q as boolean", c.Str))
		}
	case KindEmptyCell, KindEmptyArg:
		return Bool(false)
	case KindError:
		return c
	default:
		return Err(ErrValue, c.Origin, "cannot coerce range to boolean without intersection")
	}
}

// FormatGeneralNumber renders a float64 the way a "General" formatted
// cell would display it: integers with no trailing fractional part,
// otherwise the shortest round-tripping decimal form.
func FormatGeneralNumber(v float64) string {
	if v == float64(int64(v)) && v < 1e15 && v > -1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Compare implements the cross-type ordering of spec.md §4.4:
// numeric < string < boolean, natural order within a type (strings
// case-insensitive). Returns -1, 0, or 1.
func Compare(a, b CalcResult) int {
	rank := func(c CalcResult) int {
		switch c.Kind {
		case KindNumber, KindEmptyCell, KindEmptyArg:
			return 0
		case KindString:
			return 1
		case KindBoolean:
			return 2
		default:
			return 3
		}
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		av, bv := numericValue(a), numericValue(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case 1:
		as, bs := strings.ToUpper(a.Str), strings.ToUpper(b.Str)
		return strings.Compare(as, bs)
	case 2:
		if a.Boolean == b.Boolean {
			return 0
		}
		if !a.Boolean {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func numericValue(c CalcResult) float64 {
	if c.Kind == KindNumber {
		return c.Number
	}
	return 0
}
