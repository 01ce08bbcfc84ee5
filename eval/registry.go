package eval

import (
	"strings"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/clock"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

// Context is what a builtin function gets instead of pre-evaluated
// arguments: the unevaluated AST of each argument plus a way to
// evaluate one on demand. This is what lets IF, IFERROR, AND, and OR
// short-circuit instead of eagerly evaluating every branch.
type Context struct {
	ev     *Evaluator
	origin reference.Index
}

// Eval evaluates n as if it appeared at the calling formula's origin
// cell, without implicit intersection — a Range argument comes back
// as a Range CalcResult so range-aware functions (SUM, VLOOKUP, ...)
// can walk it directly.
func (c *Context) Eval(n ast.Node) calcresult.CalcResult {
	return c.ev.evalNode(n, c.origin)
}

// Scalar evaluates n and, if the result is a Range, narrows it by
// implicit intersection (spec.md §4.4) the same way a bare operand of
// +, -, & etc. would. Functions that expect a single value per
// argument (ABS, LEN, ROUND's second argument) should call this
// instead of Eval.
func (c *Context) Scalar(n ast.Node) calcresult.CalcResult {
	return c.ev.intersect(c.ev.evalNode(n, c.origin), c.origin)
}

// Origin is the cell the calling formula is anchored at.
func (c *Context) Origin() reference.Index { return c.origin }

// Workbook is the workbook being evaluated against.
func (c *Context) Workbook() *workbook.Workbook { return c.ev.wb }

// Clock is the time source NOW/TODAY read from.
func (c *Context) Clock() clock.Clock { return c.ev.clock }

// Rand is the random source RAND/RANDBETWEEN read from.
func (c *Context) Rand() clock.Rand { return c.ev.rand }

// RangeValues flattens a Range CalcResult (or, failing that, a single
// scalar) into row-major CalcResult cells, for functions that operate
// over whole ranges (SUM, COUNT, VLOOKUP, ...).
func (c *Context) RangeValues(r calcresult.CalcResult) []calcresult.CalcResult {
	if r.Kind != calcresult.KindRange {
		return []calcresult.CalcResult{r}
	}
	var out []calcresult.CalcResult
	rng := r.Range
	for row := rng.Left.Row; row <= rng.Right.Row; row++ {
		for col := rng.Left.Column; col <= rng.Right.Column; col++ {
			idx := reference.Index{Sheet: rng.Left.Sheet, Row: row, Column: col}
			out = append(out, c.ev.evalCellValue(idx))
		}
	}
	return out
}

// Func is a builtin formula function: it receives the unevaluated
// argument ASTs so it can choose which (if any) to evaluate.
type Func func(ctx *Context, args []ast.Node) calcresult.CalcResult

var registry = make(map[string]Func)

// Register installs fn under name (case-insensitively). Called from
// the functions package's init() for each builtin, the same
// plugin-registration shape database/sql drivers use, so eval never
// imports functions and functions never needs eval's internals beyond
// this file.
func Register(name string, fn Func) {
	registry[strings.ToUpper(name)] = fn
}

// Lookup finds a registered function by name.
func Lookup(name string) (Func, bool) {
	fn, ok := registry[strings.ToUpper(name)]
	return fn, ok
}
