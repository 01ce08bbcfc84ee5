package functions

import (
	"math"
	"time"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/eval"
)

func init() {
	eval.Register("NOW", nowFn)
	eval.Register("TODAY", todayFn)
	eval.Register("DATE", dateFn)
	eval.Register("YEAR", yearFn)
	eval.Register("MONTH", monthFn)
	eval.Register("DAY", dayFn)
	eval.Register("WEEKDAY", weekdayFn)
	eval.Register("HOUR", hourFn)
	eval.Register("MINUTE", minuteFn)
	eval.Register("SECOND", secondFn)
	eval.Register("TIME", timeFn)
	eval.Register("DAYS", daysFn)
	eval.Register("EDATE", edateFn)
	eval.Register("EOMONTH", eomonthFn)
}

// excelEpochMillis is December 30, 1899 00:00:00 UTC in Unix
// milliseconds: Excel's date serial 0, chosen (rather than the
// nominal January 1, 1900) to absorb Excel's famous 1900-leap-year
// bug without special-casing every date before March 1900.
const excelEpochMillis = -2209161600000
const msPerDay = 86400000

func serialFromTime(t time.Time) float64 {
	return float64(t.UnixMilli()-excelEpochMillis) / msPerDay
}

func timeFromSerial(serial float64) time.Time {
	millis := excelEpochMillis + int64(serial*msPerDay)
	return time.UnixMilli(millis).UTC()
}

func nowFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 0 {
		return errAt(ctx, calcresult.ErrNA, "NOW takes no arguments")
	}
	now := time.UnixMilli(ctx.Clock().NowMillis()).UTC()
	return calcresult.Num(serialFromTime(now))
}

func todayFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 0 {
		return errAt(ctx, calcresult.ErrNA, "TODAY takes no arguments")
	}
	now := time.UnixMilli(ctx.Clock().NowMillis()).UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return calcresult.Num(math.Floor(serialFromTime(midnight)))
}

func dateFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 3 {
		return errAt(ctx, calcresult.ErrNA, "DATE requires exactly 3 arguments")
	}
	y, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	m, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	d, bad := scalarNumber(ctx, args[2])
	if isBad(bad) {
		return bad
	}
	t := time.Date(int(y), time.Month(1), 1, 0, 0, 0, 0, time.UTC)
	t = t.AddDate(0, int(m)-1, int(d)-1)
	return calcresult.Num(math.Floor(serialFromTime(t)))
}

func yearFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return dateComponent(ctx, args, "YEAR", func(t time.Time) float64 { return float64(t.Year()) })
}

func monthFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return dateComponent(ctx, args, "MONTH", func(t time.Time) float64 { return float64(t.Month()) })
}

func dayFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return dateComponent(ctx, args, "DAY", func(t time.Time) float64 { return float64(t.Day()) })
}

func hourFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return dateComponent(ctx, args, "HOUR", func(t time.Time) float64 { return float64(t.Hour()) })
}

func minuteFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return dateComponent(ctx, args, "MINUTE", func(t time.Time) float64 { return float64(t.Minute()) })
}

func secondFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return dateComponent(ctx, args, "SECOND", func(t time.Time) float64 { return float64(t.Second()) })
}

func dateComponent(ctx *eval.Context, args []ast.Node, name string, extract func(time.Time) float64) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, name+" requires exactly 1 argument")
	}
	serial, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Num(extract(timeFromSerial(serial)))
}

func weekdayFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 1 || len(args) > 2 {
		return errAt(ctx, calcresult.ErrNA, "WEEKDAY requires 1 or 2 arguments")
	}
	serial, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	returnType := 1.0
	if len(args) == 2 {
		returnType, bad = scalarNumber(ctx, args[1])
		if isBad(bad) {
			return bad
		}
	}
	weekday := int(timeFromSerial(serial).Weekday()) // Sunday=0
	switch returnType {
	case 2:
		return calcresult.Num(float64((weekday+6)%7 + 1))
	case 3:
		return calcresult.Num(float64((weekday + 6) % 7))
	default:
		return calcresult.Num(float64(weekday + 1))
	}
}

func timeFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 3 {
		return errAt(ctx, calcresult.ErrNA, "TIME requires exactly 3 arguments")
	}
	h, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	m, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	s, bad := scalarNumber(ctx, args[2])
	if isBad(bad) {
		return bad
	}
	total := h*3600 + m*60 + s
	return calcresult.Num(total / 86400)
}

func daysFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "DAYS requires exactly 2 arguments")
	}
	end, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	start, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	return calcresult.Num(end - start)
}

// lastDayOfMonthOffset returns the last calendar day of the month that
// is months away from t's month — the clamp target EDATE's day-of-month
// needs and the value EOMONTH returns directly.
func lastDayOfMonthOffset(t time.Time, months int) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months+1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

func edateFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "EDATE requires exactly 2 arguments")
	}
	serial, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	months, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	t := timeFromSerial(serial)
	lastDay := lastDayOfMonthOffset(t, int(months))
	day := t.Day()
	if day > lastDay.Day() {
		day = lastDay.Day()
	}
	result := time.Date(lastDay.Year(), lastDay.Month(), day, 0, 0, 0, 0, time.UTC)
	return calcresult.Num(math.Floor(serialFromTime(result)))
}

func eomonthFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "EOMONTH requires exactly 2 arguments")
	}
	serial, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	months, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	lastDay := lastDayOfMonthOffset(timeFromSerial(serial), int(months))
	return calcresult.Num(math.Floor(serialFromTime(lastDay)))
}
