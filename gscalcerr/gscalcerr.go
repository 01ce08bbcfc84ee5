// Package gscalcerr distinguishes structural failures (bad mutation
// requests, malformed workbook state, unresolvable sheet names passed
// to a Go API call) from spreadsheet-value errors (calcresult.CalcResult
// with Kind==Error, which live inside cells and propagate through
// formulas). Grounded on the teacher's AppError/AppErrorCode pair in
// sheet.go, which drew the same line between "the engine call itself
// was invalid" and "the formula evaluated to an error value".
package gscalcerr

import "fmt"

// Code classifies a StructuralError.
type Code int

const (
	CodeUnknown Code = iota
	CodeInvalidArgument
	CodeSheetNotFound
	CodeCellOutOfBounds
	CodeCircularReference
	CodeNotImplemented
)

func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeSheetNotFound:
		return "sheet_not_found"
	case CodeCellOutOfBounds:
		return "cell_out_of_bounds"
	case CodeCircularReference:
		return "circular_reference"
	case CodeNotImplemented:
		return "not_implemented"
	default:
		return "unknown"
	}
}

// StructuralError is returned by Go-level API calls (mutate,
// workbook construction, jsonio decoding) when the request itself
// cannot be carried out — as opposed to a formula evaluating to a
// spreadsheet error value, which is a calcresult.CalcResult and never
// a Go error.
type StructuralError struct {
	Code    Code
	Message string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New constructs a StructuralError.
func New(code Code, format string, args ...any) *StructuralError {
	return &StructuralError{Code: code, Message: fmt.Sprintf(format, args...)}
}
