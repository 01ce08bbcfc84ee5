package functions

import (
	"strconv"
	"strings"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/eval"
)

func init() {
	eval.Register("SUMIF", sumIfFn)
	eval.Register("COUNTIF", countIfFn)
	eval.Register("AVERAGEIF", averageIfFn)
	eval.Register("SUMIFS", sumIfsFn)
	eval.Register("COUNTIFS", countIfsFn)
	eval.Register("MINIFS", minIfsFn)
	eval.Register("MAXIFS", maxIfsFn)
	eval.Register("AVERAGEIFS", averageIfsFn)
}

// criterion is a compiled SUMIF/COUNTIF-style test, built once per
// call from the criteria argument's evaluated value. Excel's criteria
// syntax overloads one string argument into either a comparison
// (">10", "<=5", "<>0") or a plain equality/wildcard match ("apples",
// "*a*"); this mirrors that split rather than requiring a separate
// operator argument the way a Go API naturally would.
type criterion struct {
	op      string // "", "=", "<>", "<", "<=", ">", ">="
	numeric float64
	hasNum  bool
	text    string
}

func compileCriterion(c calcresult.CalcResult) criterion {
	if c.Kind == calcresult.KindNumber {
		return criterion{op: "=", numeric: c.Number, hasNum: true}
	}
	if c.Kind == calcresult.KindBoolean {
		v := 0.0
		if c.Boolean {
			v = 1
		}
		return criterion{op: "=", numeric: v, hasNum: true}
	}
	text := c.Str
	for _, op := range []string{"<=", ">=", "<>", "<", ">", "="} {
		if strings.HasPrefix(text, op) {
			rest := strings.TrimSpace(text[len(op):])
			if n, err := strconv.ParseFloat(rest, 64); err == nil {
				return criterion{op: op, numeric: n, hasNum: true}
			}
			return criterion{op: op, text: rest}
		}
	}
	return criterion{op: "=", text: text}
}

func (c criterion) matches(v calcresult.CalcResult) bool {
	if c.hasNum && v.Kind == calcresult.KindNumber {
		return compareNum(v.Number, c.op, c.numeric)
	}
	if v.Kind == calcresult.KindString {
		return compareText(v.Str, c.op, c.text)
	}
	if c.hasNum {
		return false
	}
	return compareText(calcresult.ToText(v).Str, c.op, c.text)
}

func compareNum(v float64, op string, target float64) bool {
	switch op {
	case "<":
		return v < target
	case "<=":
		return v <= target
	case ">":
		return v > target
	case ">=":
		return v >= target
	case "<>":
		return v != target
	default:
		return v == target
	}
}

func compareText(v, op, target string) bool {
	v, target = strings.ToUpper(v), strings.ToUpper(target)
	switch op {
	case "<>":
		return v != target
	case "<":
		return v < target
	case "<=":
		return v <= target
	case ">":
		return v > target
	case ">=":
		return v >= target
	default:
		return matchWildcard(v, target)
	}
}

// matchWildcard supports '*' (any run) and '?' (single char), the two
// Excel criteria wildcards, plus '~' as an escape that makes a
// following '*', '?' or '~' match literally.
func matchWildcard(text, pattern string) bool {
	if !strings.ContainsAny(pattern, "*?~") {
		return text == pattern
	}
	return wildcardMatch(text, pattern)
}

func wildcardMatch(text, pattern string) bool {
	if pattern == "" {
		return text == ""
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(text); i++ {
			if wildcardMatch(text[i:], pattern[1:]) {
				return true
			}
		}
		return false
	case '?':
		if text == "" {
			return false
		}
		return wildcardMatch(text[1:], pattern[1:])
	case '~':
		if len(pattern) > 1 && strings.IndexByte("*?~", pattern[1]) >= 0 {
			if text == "" || text[0] != pattern[1] {
				return false
			}
			return wildcardMatch(text[1:], pattern[2:])
		}
		if text == "" || text[0] != '~' {
			return false
		}
		return wildcardMatch(text[1:], pattern[1:])
	default:
		if text == "" || text[0] != pattern[0] {
			return false
		}
		return wildcardMatch(text[1:], pattern[1:])
	}
}

func rangeOperand(ctx *eval.Context, n ast.Node) ([]calcresult.CalcResult, calcresult.CalcResult) {
	result := ctx.Eval(n)
	if result.IsError() {
		return nil, result
	}
	return ctx.RangeValues(result), calcresult.CalcResult{}
}

func sumIfFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 2 || len(args) > 3 {
		return errAt(ctx, calcresult.ErrNA, "SUMIF requires 2 or 3 arguments")
	}
	testRange, bad := rangeOperand(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	crit := compileCriterion(ctx.Scalar(args[1]))
	sumRange := testRange
	if len(args) == 3 {
		sumRange, bad = rangeOperand(ctx, args[2])
		if isBad(bad) {
			return bad
		}
	}
	if len(sumRange) != len(testRange) {
		return errAt(ctx, calcresult.ErrValue, "SUMIF ranges must have matching dimensions")
	}
	total := 0.0
	for i, v := range testRange {
		if crit.matches(v) {
			n := calcresult.ToNumber(sumRange[i])
			if n.Kind == calcresult.KindNumber {
				total += n.Number
			}
		}
	}
	return calcresult.Num(total)
}

func countIfFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "COUNTIF requires exactly 2 arguments")
	}
	testRange, bad := rangeOperand(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	crit := compileCriterion(ctx.Scalar(args[1]))
	n := 0
	for _, v := range testRange {
		if crit.matches(v) {
			n++
		}
	}
	return calcresult.Num(float64(n))
}

func averageIfFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 2 || len(args) > 3 {
		return errAt(ctx, calcresult.ErrNA, "AVERAGEIF requires 2 or 3 arguments")
	}
	testRange, bad := rangeOperand(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	crit := compileCriterion(ctx.Scalar(args[1]))
	avgRange := testRange
	if len(args) == 3 {
		avgRange, bad = rangeOperand(ctx, args[2])
		if isBad(bad) {
			return bad
		}
	}
	total, count := 0.0, 0
	for i, v := range testRange {
		if crit.matches(v) {
			n := calcresult.ToNumber(avgRange[i])
			if n.Kind == calcresult.KindNumber {
				total += n.Number
				count++
			}
		}
	}
	if count == 0 {
		return errAt(ctx, calcresult.ErrDiv0, "AVERAGEIF has no matching values")
	}
	return calcresult.Num(total / float64(count))
}

// multiCriteria evaluates any number of (range, criteria) pairs that
// follow the lead argument and returns the boolean mask of rows
// satisfying every pair — the shared engine behind SUMIFS/COUNTIFS.
func multiCriteria(ctx *eval.Context, pairs []ast.Node, want int) ([]bool, calcresult.CalcResult) {
	if len(pairs)%2 != 0 {
		return nil, errAt(ctx, calcresult.ErrNA, "criteria arguments must come in range/criterion pairs")
	}
	var mask []bool
	for i := 0; i < len(pairs); i += 2 {
		rng, bad := rangeOperand(ctx, pairs[i])
		if isBad(bad) {
			return nil, bad
		}
		if want >= 0 && len(rng) != want {
			return nil, errAt(ctx, calcresult.ErrValue, "criteria ranges must have matching dimensions")
		}
		crit := compileCriterion(ctx.Scalar(pairs[i+1]))
		if mask == nil {
			mask = make([]bool, len(rng))
			for j := range mask {
				mask[j] = true
			}
		}
		for j, v := range rng {
			if j < len(mask) && !crit.matches(v) {
				mask[j] = false
			}
		}
	}
	return mask, calcresult.CalcResult{}
}

func sumIfsFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 {
		return errAt(ctx, calcresult.ErrNA, "SUMIFS requires a sum range and at least one criteria pair")
	}
	sumRange, bad := rangeOperand(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	mask, bad := multiCriteria(ctx, args[1:], len(sumRange))
	if isBad(bad) {
		return bad
	}
	total := 0.0
	for i, keep := range mask {
		if keep && i < len(sumRange) {
			n := calcresult.ToNumber(sumRange[i])
			if n.Kind == calcresult.KindNumber {
				total += n.Number
			}
		}
	}
	return calcresult.Num(total)
}

func countIfsFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 2 {
		return errAt(ctx, calcresult.ErrNA, "COUNTIFS requires at least one criteria pair")
	}
	mask, bad := multiCriteria(ctx, args, -1)
	if isBad(bad) {
		return bad
	}
	n := 0
	for _, keep := range mask {
		if keep {
			n++
		}
	}
	return calcresult.Num(float64(n))
}

// averageIfsFn averages the numeric values of its first range whose
// positions pass every criteria pair, or returns #DIV/0! when none do.
func averageIfsFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 {
		return errAt(ctx, calcresult.ErrNA, "AVERAGEIFS requires an average range and at least one criteria pair")
	}
	avgRange, bad := rangeOperand(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	mask, bad := multiCriteria(ctx, args[1:], len(avgRange))
	if isBad(bad) {
		return bad
	}
	total, count := 0.0, 0
	for i, keep := range mask {
		if !keep || i >= len(avgRange) {
			continue
		}
		n := calcresult.ToNumber(avgRange[i])
		if n.Kind == calcresult.KindNumber {
			total += n.Number
			count++
		}
	}
	if count == 0 {
		return errAt(ctx, calcresult.ErrDiv0, "AVERAGEIFS has no matching values")
	}
	return calcresult.Num(total / float64(count))
}

// minMaxIfs is the shared engine behind MINIFS/MAXIFS: both take a
// value range followed by criteria pairs, and fold the masked values
// through cmp, which reports whether candidate should replace best.
func minMaxIfs(ctx *eval.Context, args []ast.Node, name string, cmp func(best, candidate float64) bool) calcresult.CalcResult {
	if len(args) < 3 {
		return errAt(ctx, calcresult.ErrNA, name+" requires a value range and at least one criteria pair")
	}
	valueRange, bad := rangeOperand(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	mask, bad := multiCriteria(ctx, args[1:], len(valueRange))
	if isBad(bad) {
		return bad
	}
	var best float64
	found := false
	for i, keep := range mask {
		if !keep || i >= len(valueRange) {
			continue
		}
		n := calcresult.ToNumber(valueRange[i])
		if n.Kind != calcresult.KindNumber {
			continue
		}
		if !found || cmp(best, n.Number) {
			best = n.Number
			found = true
		}
	}
	if !found {
		return calcresult.Num(0)
	}
	return calcresult.Num(best)
}

func minIfsFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return minMaxIfs(ctx, args, "MINIFS", func(best, candidate float64) bool { return candidate < best })
}

func maxIfsFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return minMaxIfs(ctx, args, "MAXIFS", func(best, candidate float64) bool { return candidate > best })
}
