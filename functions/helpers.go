// Package functions implements the builtin formula function library
// of spec.md §5, registered into the eval package's dispatch table via
// each file's init(). Grounded on the teacher's BuiltInFunctions in
// builtin.go — the same function set and Excel-compatible semantics,
// generalized from eagerly-evaluated-argument calls into the
// AST-argument calling convention eval.Func requires, so IF, IFERROR,
// AND, and OR can short-circuit instead of evaluating every branch
// up front.
package functions

import (
	"strconv"
	"strings"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/eval"
)

// errAt is a shorthand constructor used throughout this package: the
// error's Origin is taken from ctx and its Message from the caller.
func errAt(ctx *eval.Context, kind calcresult.ErrorKind, message string) calcresult.CalcResult {
	return calcresult.Err(kind, ctx.Origin(), message)
}

// numbers flattens args (evaluating and range-expanding each) into a
// float64 slice, skipping non-numeric and empty values the way SUM,
// AVERAGE, MAX, MIN etc. do — but propagating the first error found.
func numbers(ctx *eval.Context, args []ast.Node) ([]float64, calcresult.CalcResult) {
	var out []float64
	for _, arg := range args {
		if _, isEmpty := arg.(*ast.EmptyArgNode); isEmpty {
			continue
		}
		result := ctx.Eval(arg)
		if result.IsError() {
			return nil, result
		}
		for _, v := range ctx.RangeValues(result) {
			if v.IsError() {
				return nil, v
			}
			if v.Kind == calcresult.KindNumber {
				out = append(out, v.Number)
			}
		}
	}
	return out, calcresult.CalcResult{}
}

// allValues flattens args the way numbers does, but keeps every
// scalar regardless of type (for COUNTA-style "is this cell
// non-empty" functions).
func allValues(ctx *eval.Context, args []ast.Node) ([]calcresult.CalcResult, calcresult.CalcResult) {
	var out []calcresult.CalcResult
	for _, arg := range args {
		if _, isEmpty := arg.(*ast.EmptyArgNode); isEmpty {
			out = append(out, calcresult.EmptyArgument)
			continue
		}
		result := ctx.Eval(arg)
		if result.IsError() {
			return nil, result
		}
		out = append(out, ctx.RangeValues(result)...)
	}
	return out, calcresult.CalcResult{}
}

func scalarNumber(ctx *eval.Context, n ast.Node) (float64, calcresult.CalcResult) {
	v := calcresult.ToNumber(ctx.Scalar(n))
	if v.IsError() {
		return 0, v
	}
	return v.Number, calcresult.CalcResult{}
}

func scalarText(ctx *eval.Context, n ast.Node) (string, calcresult.CalcResult) {
	v := calcresult.ToText(ctx.Scalar(n))
	if v.IsError() {
		return "", v
	}
	return v.Str, calcresult.CalcResult{}
}

func scalarBool(ctx *eval.Context, n ast.Node) (bool, calcresult.CalcResult) {
	v := calcresult.ToBool(ctx.Scalar(n))
	if v.IsError() {
		return false, v
	}
	return v.Boolean, calcresult.CalcResult{}
}

func isBad(c calcresult.CalcResult) bool { return c.IsError() }

func formatNumberArg(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f, err == nil
}
