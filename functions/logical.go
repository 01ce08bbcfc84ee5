package functions

import (
	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/eval"
)

func init() {
	eval.Register("IF", ifFn)
	eval.Register("IFERROR", ifErrorFn)
	eval.Register("IFNA", ifNAFn)
	eval.Register("AND", andFn)
	eval.Register("OR", orFn)
	eval.Register("XOR", xorFn)
	eval.Register("NOT", notFn)
	eval.Register("TRUE", trueFn)
	eval.Register("FALSE", falseFn)
	eval.Register("SWITCH", switchFn)
	eval.Register("IFS", ifsFn)
}

// ifFn only evaluates the branch the condition selects — the reason
// eval.Func receives unevaluated argument ASTs instead of
// pre-computed values.
func ifFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 2 || len(args) > 3 {
		return errAt(ctx, calcresult.ErrNA, "IF requires 2 or 3 arguments")
	}
	cond, bad := scalarBool(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	if cond {
		return ctx.Eval(args[1])
	}
	if len(args) == 3 {
		return ctx.Eval(args[2])
	}
	return calcresult.Bool(false)
}

func ifErrorFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "IFERROR requires exactly 2 arguments")
	}
	v := ctx.Eval(args[0])
	if v.IsError() {
		return ctx.Eval(args[1])
	}
	return v
}

func ifNAFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "IFNA requires exactly 2 arguments")
	}
	v := ctx.Eval(args[0])
	if v.IsError() && v.ErrKind == calcresult.ErrNA {
		return ctx.Eval(args[1])
	}
	return v
}

func andFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) == 0 {
		return errAt(ctx, calcresult.ErrValue, "AND requires at least 1 argument")
	}
	for _, arg := range args {
		v, bad := scalarBool(ctx, arg)
		if isBad(bad) {
			return bad
		}
		if !v {
			return calcresult.Bool(false)
		}
	}
	return calcresult.Bool(true)
}

func orFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) == 0 {
		return errAt(ctx, calcresult.ErrValue, "OR requires at least 1 argument")
	}
	for _, arg := range args {
		v, bad := scalarBool(ctx, arg)
		if isBad(bad) {
			return bad
		}
		if v {
			return calcresult.Bool(true)
		}
	}
	return calcresult.Bool(false)
}

func xorFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) == 0 {
		return errAt(ctx, calcresult.ErrValue, "XOR requires at least 1 argument")
	}
	trues := 0
	for _, arg := range args {
		v, bad := scalarBool(ctx, arg)
		if isBad(bad) {
			return bad
		}
		if v {
			trues++
		}
	}
	return calcresult.Bool(trues%2 == 1)
}

func notFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "NOT requires exactly 1 argument")
	}
	v, bad := scalarBool(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Bool(!v)
}

func trueFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 0 {
		return errAt(ctx, calcresult.ErrNA, "TRUE takes no arguments")
	}
	return calcresult.Bool(true)
}

func falseFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 0 {
		return errAt(ctx, calcresult.ErrNA, "FALSE takes no arguments")
	}
	return calcresult.Bool(false)
}

// switchFn evaluates expression once, then each candidate/result pair
// in order, short-circuiting at the first match — and, like IF, never
// evaluates the result branches it doesn't take.
func switchFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 {
		return errAt(ctx, calcresult.ErrNA, "SWITCH requires an expression and at least one candidate/result pair")
	}
	expr := ctx.Scalar(args[0])
	if expr.IsError() {
		return expr
	}
	rest := args[1:]
	for i := 0; i+1 < len(rest); i += 2 {
		candidate := ctx.Scalar(rest[i])
		if candidate.IsError() {
			return candidate
		}
		if calcresult.Compare(expr, candidate) == 0 {
			return ctx.Eval(rest[i+1])
		}
	}
	if len(rest)%2 == 1 {
		return ctx.Eval(rest[len(rest)-1])
	}
	return errAt(ctx, calcresult.ErrNA, "SWITCH found no matching case")
}

// ifsFn evaluates condition/result pairs in order, returning the
// first result whose condition is true — like SWITCH, it never
// evaluates a result it doesn't take, and never evaluates a condition
// past the first one that's true.
func ifsFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 2 || len(args)%2 != 0 {
		return errAt(ctx, calcresult.ErrNA, "IFS requires condition/result pairs")
	}
	for i := 0; i+1 < len(args); i += 2 {
		cond, bad := scalarBool(ctx, args[i])
		if isBad(bad) {
			return bad
		}
		if cond {
			return ctx.Eval(args[i+1])
		}
	}
	return errAt(ctx, calcresult.ErrNA, "IFS found no matching condition")
}
