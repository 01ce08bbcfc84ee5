package functions

import (
	"math"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/eval"
)

func init() {
	eval.Register("PMT", pmtFn)
	eval.Register("FV", fvFn)
	eval.Register("PV", pvFn)
	eval.Register("NPER", nperFn)
	eval.Register("RATE", rateFn)
	eval.Register("NPV", npvFn)
	eval.Register("IRR", irrFn)
	eval.Register("IPMT", ipmtFn)
	eval.Register("PPMT", ppmtFn)
}

func pmtFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 || len(args) > 5 {
		return errAt(ctx, calcresult.ErrNA, "PMT requires 3 to 5 arguments")
	}
	rate, pv, nper, fv, dueAtStart, bad := annuityArgs(ctx, args)
	if isBad(bad) {
		return bad
	}
	return calcresult.Num(pmtAmount(rate, pv, nper, fv, dueAtStart))
}

func fvFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 || len(args) > 5 {
		return errAt(ctx, calcresult.ErrNA, "FV requires 3 to 5 arguments")
	}
	rate, pmt, nper, pv, dueAtStart, bad := loanArgs(ctx, args)
	if isBad(bad) {
		return bad
	}
	return calcresult.Num(fvAmount(rate, pmt, nper, pv, dueAtStart))
}

func pvFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 || len(args) > 5 {
		return errAt(ctx, calcresult.ErrNA, "PV requires 3 to 5 arguments")
	}
	rate, pmt, nper, fv, dueAtStart, bad := loanArgsFV(ctx, args)
	if isBad(bad) {
		return bad
	}
	if rate == 0 {
		return calcresult.Num(-(fv + pmt*nper))
	}
	factor := math.Pow(1+rate, nper)
	due := 0.0
	if dueAtStart {
		due = 1
	}
	pv := -(fv + pmt*(1+rate*due)*(factor-1)/rate) / factor
	return calcresult.Num(pv)
}

func nperFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 || len(args) > 5 {
		return errAt(ctx, calcresult.ErrNA, "NPER requires 3 to 5 arguments")
	}
	rate, pmt, pv, fv, dueAtStart, bad := annuityArgsForNper(ctx, args)
	if isBad(bad) {
		return bad
	}
	if rate == 0 {
		if pmt == 0 {
			return errAt(ctx, calcresult.ErrDiv0, "NPER requires a nonzero payment when rate is 0")
		}
		return calcresult.Num(-(pv + fv) / pmt)
	}
	due := 0.0
	if dueAtStart {
		due = 1
	}
	adjPmt := pmt * (1 + rate*due)
	num := adjPmt - fv*rate
	den := pv*rate + adjPmt
	if num <= 0 || den <= 0 {
		return errAt(ctx, calcresult.ErrNum, "NPER arguments produce no valid term")
	}
	return calcresult.Num(math.Log(num/den) / math.Log(1+rate))
}

func rateFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 || len(args) > 6 {
		return errAt(ctx, calcresult.ErrNA, "RATE requires 3 to 6 arguments")
	}
	nper, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	pmt, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	pv, bad := scalarNumber(ctx, args[2])
	if isBad(bad) {
		return bad
	}
	fv := 0.0
	if len(args) >= 4 {
		fv, bad = scalarNumber(ctx, args[3])
		if isBad(bad) {
			return bad
		}
	}
	dueAtStart := false
	if len(args) >= 5 {
		dueAtStart, bad = scalarBool(ctx, args[4])
		if isBad(bad) {
			return bad
		}
	}
	guess := 0.1
	if len(args) == 6 {
		guess, bad = scalarNumber(ctx, args[5])
		if isBad(bad) {
			return bad
		}
	}
	due := 0.0
	if dueAtStart {
		due = 1
	}
	f := func(rate float64) float64 {
		if rate == 0 {
			return pv + pmt*nper + fv
		}
		factor := math.Pow(1+rate, nper)
		return pv*factor + pmt*(1+rate*due)*(factor-1)/rate + fv
	}
	rate, ok := newtonSolve(f, guess, 1e-7, 50)
	if !ok {
		return errAt(ctx, calcresult.ErrNum, "RATE did not converge")
	}
	return calcresult.Num(rate)
}

func npvFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 2 {
		return errAt(ctx, calcresult.ErrNA, "NPV requires a rate and at least one cash flow")
	}
	rate, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	flows, bad := numbers(ctx, args[1:])
	if isBad(bad) {
		return bad
	}
	total := 0.0
	for i, flow := range flows {
		total += flow / math.Pow(1+rate, float64(i+1))
	}
	return calcresult.Num(total)
}

func irrFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 1 || len(args) > 2 {
		return errAt(ctx, calcresult.ErrNA, "IRR requires 1 or 2 arguments")
	}
	flows, bad := numbers(ctx, args[:1])
	if isBad(bad) {
		return bad
	}
	guess := 0.1
	if len(args) == 2 {
		guess, bad = scalarNumber(ctx, args[1])
		if isBad(bad) {
			return bad
		}
	}
	f := func(rate float64) float64 {
		total := 0.0
		for i, flow := range flows {
			total += flow / math.Pow(1+rate, float64(i))
		}
		return total
	}
	rate, ok := newtonSolve(f, guess, 1e-10, 100)
	if !ok {
		return errAt(ctx, calcresult.ErrNum, "IRR did not converge")
	}
	return calcresult.Num(rate)
}

// pmtAmount is pmtFn's arithmetic, factored out so ipmtFn/ppmtFn can
// derive the constant periodic payment without round-tripping through
// a CalcResult.
func pmtAmount(rate, pv, nper, fv float64, dueAtStart bool) float64 {
	if rate == 0 {
		return -(pv + fv) / nper
	}
	factor := math.Pow(1+rate, nper)
	pmt := -(pv*factor + fv) * rate / (factor - 1)
	if dueAtStart {
		pmt /= (1 + rate)
	}
	return pmt
}

// fvAmount is fvFn's arithmetic, factored out for the same reason.
func fvAmount(rate, pmt, nper, pv float64, dueAtStart bool) float64 {
	if rate == 0 {
		return -(pv + pmt*nper)
	}
	factor := math.Pow(1+rate, nper)
	due := 0.0
	if dueAtStart {
		due = 1
	}
	return -(pv*factor + pmt*(1+rate*due)*(factor-1)/rate)
}

// ipmtFn splits period per's payment into its interest component.
// Ground: original source's functions/financial.rs ipmt, following the
// same closed-form (balance-before-per, times rate) every spreadsheet
// engine uses rather than simulating the amortization schedule.
func ipmtFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 4 || len(args) > 6 {
		return errAt(ctx, calcresult.ErrNA, "IPMT requires 4 to 6 arguments")
	}
	rate, per, nper, pv, fv, dueAtStart, bad := periodArgs(ctx, args)
	if isBad(bad) {
		return bad
	}
	if per < 1 || per > nper {
		return errAt(ctx, calcresult.ErrNum, "IPMT period out of range")
	}
	pmt := pmtAmount(rate, pv, nper, fv, dueAtStart)
	var interest float64
	switch {
	case !dueAtStart:
		balanceBefore := fvAmount(rate, pmt, per-1, pv, false)
		interest = balanceBefore * rate
	case per == 1:
		interest = 0
	default:
		balanceBefore := fvAmount(rate, pmt, per-2, pv, true)
		interest = (balanceBefore - pmt) * rate
	}
	return calcresult.Num(interest)
}

// ppmtFn splits period per's payment into its principal component:
// the constant payment minus whatever ipmtFn attributes to interest.
func ppmtFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 4 || len(args) > 6 {
		return errAt(ctx, calcresult.ErrNA, "PPMT requires 4 to 6 arguments")
	}
	rate, per, nper, pv, fv, dueAtStart, bad := periodArgs(ctx, args)
	if isBad(bad) {
		return bad
	}
	if per < 1 || per > nper {
		return errAt(ctx, calcresult.ErrNum, "PPMT period out of range")
	}
	pmt := pmtAmount(rate, pv, nper, fv, dueAtStart)
	interest := ipmtFn(ctx, args)
	if interest.IsError() {
		return interest
	}
	return calcresult.Num(pmt - interest.Number)
}

// periodArgs parses the shared (rate, per, nper, pv, [fv], [type])
// signature IPMT and PPMT both take.
func periodArgs(ctx *eval.Context, args []ast.Node) (rate, per, nper, pv, fv float64, dueAtStart bool, bad calcresult.CalcResult) {
	rate, bad = scalarNumber(ctx, args[0])
	if isBad(bad) {
		return
	}
	per, bad = scalarNumber(ctx, args[1])
	if isBad(bad) {
		return
	}
	nper, bad = scalarNumber(ctx, args[2])
	if isBad(bad) {
		return
	}
	pv, bad = scalarNumber(ctx, args[3])
	if isBad(bad) {
		return
	}
	if len(args) >= 5 {
		fv, bad = scalarNumber(ctx, args[4])
		if isBad(bad) {
			return
		}
	}
	if len(args) == 6 {
		dueAtStart, bad = scalarBool(ctx, args[5])
	}
	return
}

// newtonSolve finds a root of f near guess via Newton-Raphson with a
// numerically estimated derivative, grounded on the same iterative
// shape the original implementation uses for RATE/IRR (a closed-form
// solution doesn't exist for either).
func newtonSolve(f func(float64) float64, guess, tolerance float64, maxIter int) (float64, bool) {
	x := guess
	const h = 1e-6
	for i := 0; i < maxIter; i++ {
		fx := f(x)
		if math.Abs(fx) < tolerance {
			return x, true
		}
		derivative := (f(x+h) - f(x-h)) / (2 * h)
		if derivative == 0 {
			return 0, false
		}
		next := x - fx/derivative
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return 0, false
		}
		x = next
	}
	return 0, false
}

func annuityArgs(ctx *eval.Context, args []ast.Node) (rate, pv, nper, fv float64, dueAtStart bool, bad calcresult.CalcResult) {
	rate, bad = scalarNumber(ctx, args[0])
	if isBad(bad) {
		return
	}
	nper, bad = scalarNumber(ctx, args[1])
	if isBad(bad) {
		return
	}
	pv, bad = scalarNumber(ctx, args[2])
	if isBad(bad) {
		return
	}
	if len(args) >= 4 {
		fv, bad = scalarNumber(ctx, args[3])
		if isBad(bad) {
			return
		}
	}
	if len(args) == 5 {
		dueAtStart, bad = scalarBool(ctx, args[4])
	}
	return
}

func annuityArgsForNper(ctx *eval.Context, args []ast.Node) (rate, pmt, pv, fv float64, dueAtStart bool, bad calcresult.CalcResult) {
	rate, bad = scalarNumber(ctx, args[0])
	if isBad(bad) {
		return
	}
	pmt, bad = scalarNumber(ctx, args[1])
	if isBad(bad) {
		return
	}
	pv, bad = scalarNumber(ctx, args[2])
	if isBad(bad) {
		return
	}
	if len(args) >= 4 {
		fv, bad = scalarNumber(ctx, args[3])
		if isBad(bad) {
			return
		}
	}
	if len(args) == 5 {
		dueAtStart, bad = scalarBool(ctx, args[4])
	}
	return
}

func loanArgs(ctx *eval.Context, args []ast.Node) (rate, pmt, nper, pv float64, dueAtStart bool, bad calcresult.CalcResult) {
	rate, bad = scalarNumber(ctx, args[0])
	if isBad(bad) {
		return
	}
	nper, bad = scalarNumber(ctx, args[1])
	if isBad(bad) {
		return
	}
	pmt, bad = scalarNumber(ctx, args[2])
	if isBad(bad) {
		return
	}
	if len(args) >= 4 {
		pv, bad = scalarNumber(ctx, args[3])
		if isBad(bad) {
			return
		}
	}
	if len(args) == 5 {
		dueAtStart, bad = scalarBool(ctx, args[4])
	}
	return
}

func loanArgsFV(ctx *eval.Context, args []ast.Node) (rate, pmt, nper, fv float64, dueAtStart bool, bad calcresult.CalcResult) {
	rate, bad = scalarNumber(ctx, args[0])
	if isBad(bad) {
		return
	}
	nper, bad = scalarNumber(ctx, args[1])
	if isBad(bad) {
		return
	}
	pmt, bad = scalarNumber(ctx, args[2])
	if isBad(bad) {
		return
	}
	if len(args) >= 4 {
		fv, bad = scalarNumber(ctx, args[3])
		if isBad(bad) {
			return
		}
	}
	if len(args) == 5 {
		dueAtStart, bad = scalarBool(ctx, args[4])
	}
	return
}
