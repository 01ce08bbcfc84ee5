package functions

import (
	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/eval"
)

func init() {
	eval.Register("ISERROR", isErrorFn)
	eval.Register("ISERR", isErrFn)
	eval.Register("ISNA", isNAFn)
	eval.Register("ISBLANK", isBlankFn)
	eval.Register("ISNUMBER", isNumberFn)
	eval.Register("ISTEXT", isTextFn)
	eval.Register("ISNONTEXT", isNonTextFn)
	eval.Register("ISLOGICAL", isLogicalFn)
	eval.Register("ISEVEN", isEvenFn)
	eval.Register("ISODD", isOddFn)
	eval.Register("TYPE", typeFn)
	eval.Register("N", nFn)
	eval.Register("NA", naFn)
}

// isErrorFn and friends evaluate their argument with Scalar rather than
// Eval so a range argument collapses to the single cell the calling
// formula means, same as any other IS* predicate applied at a cell.

func isErrorFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ISERROR requires exactly 1 argument")
	}
	return calcresult.Bool(ctx.Scalar(args[0]).IsError())
}

func isErrFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ISERR requires exactly 1 argument")
	}
	v := ctx.Scalar(args[0])
	return calcresult.Bool(v.IsError() && v.ErrKind != calcresult.ErrNA)
}

func isNAFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ISNA requires exactly 1 argument")
	}
	v := ctx.Scalar(args[0])
	return calcresult.Bool(v.IsError() && v.ErrKind == calcresult.ErrNA)
}

func isBlankFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ISBLANK requires exactly 1 argument")
	}
	v := ctx.Scalar(args[0])
	return calcresult.Bool(v.Kind == calcresult.KindEmptyCell || v.Kind == calcresult.KindEmptyArg)
}

func isNumberFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ISNUMBER requires exactly 1 argument")
	}
	return calcresult.Bool(ctx.Scalar(args[0]).Kind == calcresult.KindNumber)
}

func isTextFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ISTEXT requires exactly 1 argument")
	}
	return calcresult.Bool(ctx.Scalar(args[0]).Kind == calcresult.KindString)
}

func isNonTextFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ISNONTEXT requires exactly 1 argument")
	}
	return calcresult.Bool(ctx.Scalar(args[0]).Kind != calcresult.KindString)
}

func isLogicalFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ISLOGICAL requires exactly 1 argument")
	}
	return calcresult.Bool(ctx.Scalar(args[0]).Kind == calcresult.KindBoolean)
}

func isEvenFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ISEVEN requires exactly 1 argument")
	}
	n, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Bool(int64(n)%2 == 0)
}

func isOddFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ISODD requires exactly 1 argument")
	}
	n, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Bool(int64(n)%2 != 0)
}

// typeFn mirrors Excel's TYPE codes: 1 number, 2 text, 4 logical, 16
// error, 64 array. Array literals are unreachable here since ArrayNode
// evaluates to #N/IMPL! before TYPE ever sees it.
func typeFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "TYPE requires exactly 1 argument")
	}
	v := ctx.Scalar(args[0])
	switch v.Kind {
	case calcresult.KindNumber:
		return calcresult.Num(1)
	case calcresult.KindString:
		return calcresult.Num(2)
	case calcresult.KindBoolean:
		return calcresult.Num(4)
	case calcresult.KindError:
		return calcresult.Num(16)
	default:
		return calcresult.Num(1)
	}
}

func nFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "N requires exactly 1 argument")
	}
	v := ctx.Scalar(args[0])
	switch v.Kind {
	case calcresult.KindNumber:
		return v
	case calcresult.KindBoolean:
		if v.Boolean {
			return calcresult.Num(1)
		}
		return calcresult.Num(0)
	case calcresult.KindError:
		return v
	default:
		return calcresult.Num(0)
	}
}

func naFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 0 {
		return errAt(ctx, calcresult.ErrNA, "NA takes no arguments")
	}
	return errAt(ctx, calcresult.ErrNA, "#N/A")
}
