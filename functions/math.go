package functions

import (
	"math"
	"sort"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/eval"
)

func init() {
	eval.Register("SUM", sumFn)
	eval.Register("AVERAGE", averageFn)
	eval.Register("AVERAGEA", averageAFn)
	eval.Register("COUNT", countFn)
	eval.Register("COUNTA", countAFn)
	eval.Register("COUNTBLANK", countBlankFn)
	eval.Register("MAX", maxFn)
	eval.Register("MIN", minFn)
	eval.Register("MEDIAN", medianFn)
	eval.Register("MODE", modeFn)
	eval.Register("ABS", abs1Fn)
	eval.Register("ROUND", roundFn)
	eval.Register("ROUNDUP", roundUpFn)
	eval.Register("ROUNDDOWN", roundDownFn)
	eval.Register("FLOOR", floorFn)
	eval.Register("CEILING", ceilingFn)
	eval.Register("SQRT", sqrtFn)
	eval.Register("POWER", powerFn)
	eval.Register("MOD", modFn)
	eval.Register("PI", piFn)
	eval.Register("INT", intFn)
	eval.Register("TRUNC", truncFn)
	eval.Register("SIGN", signFn)
	eval.Register("EXP", expFn)
	eval.Register("LN", lnFn)
	eval.Register("LOG10", log10Fn)
	eval.Register("LOG", logFn)
	eval.Register("SUMPRODUCT", sumProductFn)
	eval.Register("RAND", randFn)
	eval.Register("RANDBETWEEN", randBetweenFn)
	eval.Register("SIN", sinFn)
	eval.Register("COS", cosFn)
	eval.Register("TAN", tanFn)
	eval.Register("ASIN", asinFn)
	eval.Register("ACOS", acosFn)
	eval.Register("ATAN", atanFn)
	eval.Register("SINH", sinhFn)
	eval.Register("COSH", coshFn)
	eval.Register("TANH", tanhFn)
}

func sumFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	nums, bad := numbers(ctx, args)
	if isBad(bad) {
		return bad
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return calcresult.Num(total)
}

func averageFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	nums, bad := numbers(ctx, args)
	if isBad(bad) {
		return bad
	}
	if len(nums) == 0 {
		return errAt(ctx, calcresult.ErrDiv0, "AVERAGE has no numeric values")
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return calcresult.Num(total / float64(len(nums)))
}

func averageAFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	values, bad := allValues(ctx, args)
	if isBad(bad) {
		return bad
	}
	sum, count := 0.0, 0
	for _, v := range values {
		switch v.Kind {
		case calcresult.KindNumber:
			sum += v.Number
			count++
		case calcresult.KindBoolean:
			if v.Boolean {
				sum += 1
			}
			count++
		case calcresult.KindString:
			count++
		}
	}
	if count == 0 {
		return errAt(ctx, calcresult.ErrRef, "AVERAGEA has no values")
	}
	return calcresult.Num(sum / float64(count))
}

func countFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	values, bad := allValues(ctx, args)
	if isBad(bad) {
		return bad
	}
	n := 0
	for _, v := range values {
		if v.Kind == calcresult.KindNumber {
			n++
		}
	}
	return calcresult.Num(float64(n))
}

func countAFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	values, bad := allValues(ctx, args)
	if isBad(bad) {
		return bad
	}
	n := 0
	for _, v := range values {
		if v.Kind != calcresult.KindEmptyCell && v.Kind != calcresult.KindEmptyArg {
			n++
		}
	}
	return calcresult.Num(float64(n))
}

func countBlankFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	values, bad := allValues(ctx, args)
	if isBad(bad) {
		return bad
	}
	n := 0
	for _, v := range values {
		if v.Kind == calcresult.KindEmptyCell || v.Kind == calcresult.KindEmptyArg ||
			(v.Kind == calcresult.KindString && v.Str == "") {
			n++
		}
	}
	return calcresult.Num(float64(n))
}

func maxFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	nums, bad := numbers(ctx, args)
	if isBad(bad) {
		return bad
	}
	if len(nums) == 0 {
		return calcresult.Num(0)
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return calcresult.Num(m)
}

func minFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	nums, bad := numbers(ctx, args)
	if isBad(bad) {
		return bad
	}
	if len(nums) == 0 {
		return calcresult.Num(0)
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return calcresult.Num(m)
}

func medianFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	nums, bad := numbers(ctx, args)
	if isBad(bad) {
		return bad
	}
	if len(nums) == 0 {
		return errAt(ctx, calcresult.ErrNum, "MEDIAN has no numeric values")
	}
	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 0 {
		return calcresult.Num((nums[mid-1] + nums[mid]) / 2)
	}
	return calcresult.Num(nums[mid])
}

func modeFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	nums, bad := numbers(ctx, args)
	if isBad(bad) {
		return bad
	}
	freq := make(map[float64]int)
	for _, n := range nums {
		freq[n]++
	}
	if len(freq) == 0 {
		return errAt(ctx, calcresult.ErrNum, "MODE has no numeric values")
	}
	maxFreq := 0
	for _, f := range freq {
		if f > maxFreq {
			maxFreq = f
		}
	}
	if maxFreq == 1 {
		return errAt(ctx, calcresult.ErrNA, "MODE: no value appears more than once")
	}
	var modes []float64
	for v, f := range freq {
		if f == maxFreq {
			modes = append(modes, v)
		}
	}
	sort.Float64s(modes)
	return calcresult.Num(modes[0])
}

func unary(ctx *eval.Context, args []ast.Node, name string, fn func(float64) calcresult.CalcResult) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, name+" requires exactly 1 argument")
	}
	v, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return fn(v)
}

func abs1Fn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "ABS", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Abs(v)) })
}

func roundFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return roundLike(ctx, args, "ROUND", math.Round)
}

func roundUpFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return roundLike(ctx, args, "ROUNDUP", func(v float64) float64 {
		if v < 0 {
			return math.Floor(v)
		}
		return math.Ceil(v)
	})
}

func roundDownFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return roundLike(ctx, args, "ROUNDDOWN", math.Trunc)
}

func roundLike(ctx *eval.Context, args []ast.Node, name string, op func(float64) float64) calcresult.CalcResult {
	if len(args) < 1 || len(args) > 2 {
		return errAt(ctx, calcresult.ErrNA, name+" requires 1 or 2 arguments")
	}
	v, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	places := 0.0
	if len(args) == 2 {
		places, bad = scalarNumber(ctx, args[1])
		if isBad(bad) {
			return bad
		}
	}
	mult := math.Pow(10, places)
	return calcresult.Num(op(v*mult) / mult)
}

func floorFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "FLOOR", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Floor(v)) })
}

func ceilingFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "CEILING", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Ceil(v)) })
}

func sqrtFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "SQRT", func(v float64) calcresult.CalcResult {
		if v < 0 {
			return errAt(ctx, calcresult.ErrNum, "SQRT requires a non-negative argument")
		}
		return calcresult.Num(math.Sqrt(v))
	})
}

func powerFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "POWER requires exactly 2 arguments")
	}
	base, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	exp, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	return calcresult.Num(math.Pow(base, exp))
}

func modFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "MOD requires exactly 2 arguments")
	}
	a, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	b, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	if b == 0 {
		return errAt(ctx, calcresult.ErrDiv0, "division by zero")
	}
	return calcresult.Num(math.Mod(a, b))
}

func piFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 0 {
		return errAt(ctx, calcresult.ErrNA, "PI takes no arguments")
	}
	return calcresult.Num(math.Pi)
}

func intFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "INT", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Floor(v)) })
}

// randFn and randBetweenFn draw from the evaluator's injected
// clock.Rand rather than calling math/rand directly, the same
// collaborator-seam discipline TODAY/NOW use for clock.Clock: a
// reproducible evaluation pass pins both via Evaluator.SetRand.
func randFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 0 {
		return errAt(ctx, calcresult.ErrNA, "RAND takes no arguments")
	}
	return calcresult.Num(ctx.Rand().Float64())
}

func randBetweenFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "RANDBETWEEN requires exactly 2 arguments")
	}
	a, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	b, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	lo, hi := math.Ceil(a), math.Floor(b)
	if hi < lo {
		return errAt(ctx, calcresult.ErrNum, "RANDBETWEEN requires bottom <= top")
	}
	span := hi - lo + 1
	return calcresult.Num(lo + math.Floor(ctx.Rand().Float64()*span))
}

func truncFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return roundLike(ctx, args, "TRUNC", math.Trunc)
}

func signFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "SIGN", func(v float64) calcresult.CalcResult {
		switch {
		case v > 0:
			return calcresult.Num(1)
		case v < 0:
			return calcresult.Num(-1)
		default:
			return calcresult.Num(0)
		}
	})
}

func expFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "EXP", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Exp(v)) })
}

func lnFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "LN", func(v float64) calcresult.CalcResult {
		if v <= 0 {
			return errAt(ctx, calcresult.ErrNum, "LN requires a positive argument")
		}
		return calcresult.Num(math.Log(v))
	})
}

func log10Fn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "LOG10", func(v float64) calcresult.CalcResult {
		if v <= 0 {
			return errAt(ctx, calcresult.ErrNum, "LOG10 requires a positive argument")
		}
		return calcresult.Num(math.Log10(v))
	})
}

func logFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 1 || len(args) > 2 {
		return errAt(ctx, calcresult.ErrNA, "LOG requires 1 or 2 arguments")
	}
	v, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	base := 10.0
	if len(args) == 2 {
		base, bad = scalarNumber(ctx, args[1])
		if isBad(bad) {
			return bad
		}
	}
	if v <= 0 || base <= 0 || base == 1 {
		return errAt(ctx, calcresult.ErrNum, "LOG requires a positive value and base")
	}
	return calcresult.Num(math.Log(v) / math.Log(base))
}

func sumProductFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) == 0 {
		return errAt(ctx, calcresult.ErrValue, "SUMPRODUCT requires at least 1 argument")
	}
	var columns [][]float64
	length := -1
	for _, arg := range args {
		result := ctx.Eval(arg)
		if result.IsError() {
			return result
		}
		vals := ctx.RangeValues(result)
		col := make([]float64, len(vals))
		for i, v := range vals {
			if v.IsError() {
				return v
			}
			n := calcresult.ToNumber(v)
			if n.IsError() {
				return n
			}
			col[i] = n.Number
		}
		if length == -1 {
			length = len(col)
		} else if len(col) != length {
			return errAt(ctx, calcresult.ErrValue, "SUMPRODUCT arguments must have matching dimensions")
		}
		columns = append(columns, col)
	}
	total := 0.0
	for i := 0; i < length; i++ {
		product := 1.0
		for _, col := range columns {
			product *= col[i]
		}
		total += product
	}
	return calcresult.Num(total)
}

func sinFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "SIN", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Sin(v)) })
}

func cosFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "COS", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Cos(v)) })
}

func tanFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "TAN", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Tan(v)) })
}

// inverseTrig wraps a unary inverse-trig fn with the shared [-1,1]
// domain check ASIN/ACOS require: outside it, Excel returns #NUM!
// rather than Go's math.NaN().
func inverseTrig(ctx *eval.Context, args []ast.Node, name string, fn func(float64) float64) calcresult.CalcResult {
	return unary(ctx, args, name, func(v float64) calcresult.CalcResult {
		if v < -1 || v > 1 {
			return errAt(ctx, calcresult.ErrNum, name+" requires an argument between -1 and 1")
		}
		return calcresult.Num(fn(v))
	})
}

func asinFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return inverseTrig(ctx, args, "ASIN", math.Asin)
}

func acosFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return inverseTrig(ctx, args, "ACOS", math.Acos)
}

func atanFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "ATAN", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Atan(v)) })
}

func sinhFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "SINH", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Sinh(v)) })
}

func coshFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "COSH", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Cosh(v)) })
}

func tanhFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return unary(ctx, args, "TANH", func(v float64) calcresult.CalcResult { return calcresult.Num(math.Tanh(v)) })
}
