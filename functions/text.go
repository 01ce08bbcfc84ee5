package functions

import (
	"strconv"
	"strings"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/eval"
)

func init() {
	eval.Register("CONCATENATE", concatenateFn)
	eval.Register("CONCAT", concatenateFn)
	eval.Register("LEN", lenFn)
	eval.Register("UPPER", upperFn)
	eval.Register("LOWER", lowerFn)
	eval.Register("TRIM", trimFn)
	eval.Register("LEFT", leftFn)
	eval.Register("RIGHT", rightFn)
	eval.Register("MID", midFn)
	eval.Register("FIND", findFn)
	eval.Register("SEARCH", searchFn)
	eval.Register("SUBSTITUTE", substituteFn)
	eval.Register("REPLACE", replaceFn)
	eval.Register("REPT", reptFn)
	eval.Register("EXACT", exactFn)
	eval.Register("VALUE", valueFn)
	eval.Register("TEXT", textFn)
}

func concatenateFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	var b strings.Builder
	for _, arg := range args {
		s, bad := scalarText(ctx, arg)
		if isBad(bad) {
			return bad
		}
		b.WriteString(s)
	}
	return calcresult.Text(b.String())
}

func lenFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "LEN requires exactly 1 argument")
	}
	s, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Num(float64(len([]rune(s))))
}

func upperFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "UPPER requires exactly 1 argument")
	}
	s, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Text(strings.ToUpper(s))
}

func lowerFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "LOWER requires exactly 1 argument")
	}
	s, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Text(strings.ToLower(s))
}

func trimFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "TRIM requires exactly 1 argument")
	}
	s, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	fields := strings.Fields(s)
	return calcresult.Text(strings.Join(fields, " "))
}

func leftFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 1 || len(args) > 2 {
		return errAt(ctx, calcresult.ErrNA, "LEFT requires 1 or 2 arguments")
	}
	s, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	n := 1.0
	if len(args) == 2 {
		n, bad = scalarNumber(ctx, args[1])
		if isBad(bad) {
			return bad
		}
	}
	runes := []rune(s)
	count := clampCount(n, len(runes))
	return calcresult.Text(string(runes[:count]))
}

func rightFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 1 || len(args) > 2 {
		return errAt(ctx, calcresult.ErrNA, "RIGHT requires 1 or 2 arguments")
	}
	s, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	n := 1.0
	if len(args) == 2 {
		n, bad = scalarNumber(ctx, args[1])
		if isBad(bad) {
			return bad
		}
	}
	runes := []rune(s)
	count := clampCount(n, len(runes))
	return calcresult.Text(string(runes[len(runes)-count:]))
}

func clampCount(n float64, max int) int {
	c := int(n)
	if c < 0 {
		c = 0
	}
	if c > max {
		c = max
	}
	return c
}

func midFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 3 {
		return errAt(ctx, calcresult.ErrNA, "MID requires exactly 3 arguments")
	}
	s, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	start, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	length, bad := scalarNumber(ctx, args[2])
	if isBad(bad) {
		return bad
	}
	if start < 1 || length < 0 {
		return errAt(ctx, calcresult.ErrValue, "MID requires a 1-based start and non-negative length")
	}
	runes := []rune(s)
	from := int(start) - 1
	if from >= len(runes) {
		return calcresult.Text("")
	}
	to := from + int(length)
	if to > len(runes) {
		to = len(runes)
	}
	return calcresult.Text(string(runes[from:to]))
}

func findFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return locate(ctx, args, "FIND", true)
}

func searchFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	return locate(ctx, args, "SEARCH", false)
}

func locate(ctx *eval.Context, args []ast.Node, name string, caseSensitive bool) calcresult.CalcResult {
	if len(args) < 2 || len(args) > 3 {
		return errAt(ctx, calcresult.ErrNA, name+" requires 2 or 3 arguments")
	}
	needle, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	haystack, bad := scalarText(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	start := 1.0
	if len(args) == 3 {
		start, bad = scalarNumber(ctx, args[2])
		if isBad(bad) {
			return bad
		}
	}
	if start < 1 || int(start) > len([]rune(haystack))+1 {
		return errAt(ctx, calcresult.ErrValue, name+" start position out of range")
	}
	runes := []rune(haystack)
	from := int(start) - 1
	h, n := string(runes[from:]), needle
	if !caseSensitive {
		h, n = strings.ToLower(h), strings.ToLower(n)
	}
	idx := strings.Index(h, n)
	if idx < 0 {
		return errAt(ctx, calcresult.ErrValue, name+" did not match")
	}
	return calcresult.Num(float64(len([]rune(h[:idx]))) + start)
}

func substituteFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 || len(args) > 4 {
		return errAt(ctx, calcresult.ErrNA, "SUBSTITUTE requires 3 or 4 arguments")
	}
	text, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	oldText, bad := scalarText(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	newText, bad := scalarText(ctx, args[2])
	if isBad(bad) {
		return bad
	}
	if len(args) == 3 {
		return calcresult.Text(strings.ReplaceAll(text, oldText, newText))
	}
	occurrence, bad := scalarNumber(ctx, args[3])
	if isBad(bad) {
		return bad
	}
	if occurrence < 1 {
		return errAt(ctx, calcresult.ErrValue, "SUBSTITUTE occurrence must be >= 1")
	}
	target := int(occurrence)
	count := 0
	var b strings.Builder
	for {
		idx := strings.Index(text, oldText)
		if idx < 0 || oldText == "" {
			b.WriteString(text)
			break
		}
		count++
		b.WriteString(text[:idx])
		if count == target {
			b.WriteString(newText)
		} else {
			b.WriteString(oldText)
		}
		text = text[idx+len(oldText):]
	}
	return calcresult.Text(b.String())
}

func replaceFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 4 {
		return errAt(ctx, calcresult.ErrNA, "REPLACE requires exactly 4 arguments")
	}
	text, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	start, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	length, bad := scalarNumber(ctx, args[2])
	if isBad(bad) {
		return bad
	}
	newText, bad := scalarText(ctx, args[3])
	if isBad(bad) {
		return bad
	}
	runes := []rune(text)
	if start < 1 {
		return errAt(ctx, calcresult.ErrValue, "REPLACE requires a 1-based start")
	}
	from := int(start) - 1
	if from > len(runes) {
		from = len(runes)
	}
	to := from + int(length)
	if to > len(runes) {
		to = len(runes)
	}
	if to < from {
		to = from
	}
	return calcresult.Text(string(runes[:from]) + newText + string(runes[to:]))
}

func reptFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "REPT requires exactly 2 arguments")
	}
	s, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	n, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	if n < 0 {
		return errAt(ctx, calcresult.ErrValue, "REPT count must be non-negative")
	}
	return calcresult.Text(strings.Repeat(s, int(n)))
}

func exactFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "EXACT requires exactly 2 arguments")
	}
	a, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	b, bad := scalarText(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	return calcresult.Bool(a == b)
}

func valueFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "VALUE requires exactly 1 argument")
	}
	s, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	n, ok := formatNumberArg(s)
	if !ok {
		return errAt(ctx, calcresult.ErrValue, "VALUE could not parse "+s+" as a number")
	}
	return calcresult.Num(n)
}

// textFn supports a small, practical subset of Excel's TEXT format
// codes rather than the full format-code grammar (a Non-goal-adjacent
// simplification — full format codes are a presentation concern, not
// a calculation one).
func textFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 2 {
		return errAt(ctx, calcresult.ErrNA, "TEXT requires exactly 2 arguments")
	}
	v, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	format, bad := scalarText(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	switch {
	case strings.Count(format, "0") > 0 && strings.Contains(format, "."):
		decimals := strings.Count(format[strings.Index(format, ".")+1:], "0")
		return calcresult.Text(strconv.FormatFloat(v, 'f', decimals, 64))
	case format == "0%":
		return calcresult.Text(strconv.FormatFloat(v*100, 'f', 0, 64) + "%")
	default:
		return calcresult.Text(calcresult.FormatGeneralNumber(v))
	}
}
