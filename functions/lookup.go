package functions

import (
	"strings"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/eval"
	"github.com/cellforge/gscalc/reference"
)

func init() {
	eval.Register("VLOOKUP", vlookupFn)
	eval.Register("HLOOKUP", hlookupFn)
	eval.Register("LOOKUP", lookupFn)
	eval.Register("XLOOKUP", xlookupFn)
	eval.Register("MATCH", matchFn)
	eval.Register("INDEX", indexFn)
	eval.Register("CHOOSE", chooseFn)
	eval.Register("ROW", rowFn)
	eval.Register("COLUMN", columnFn)
	eval.Register("ROWS", rowsFn)
	eval.Register("COLUMNS", columnsFn)
	eval.Register("OFFSET", offsetFn)
	eval.Register("INDIRECT", indirectFn)
}

func asRange(ctx *eval.Context, n ast.Node) (reference.Range, calcresult.CalcResult) {
	v := ctx.Eval(n)
	if v.IsError() {
		return reference.Range{}, v
	}
	if v.Kind != calcresult.KindRange {
		return reference.Range{Left: reference.Index{Sheet: ctx.Origin().Sheet}, Right: reference.Index{Sheet: ctx.Origin().Sheet}}, errAt(ctx, calcresult.ErrValue, "expected a range argument")
	}
	return v.Range, calcresult.CalcResult{}
}

func vlookupFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 || len(args) > 4 {
		return errAt(ctx, calcresult.ErrNA, "VLOOKUP requires 3 or 4 arguments")
	}
	key := ctx.Scalar(args[0])
	if key.IsError() {
		return key
	}
	table, bad := asRange(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	colIndex, bad := scalarNumber(ctx, args[2])
	if isBad(bad) {
		return bad
	}
	exact := false
	if len(args) == 4 {
		approx, bad := scalarBool(ctx, args[3])
		if isBad(bad) {
			return bad
		}
		exact = !approx
	}
	col := int32(colIndex)
	if col < 1 || table.Left.Column+col-1 > table.Right.Column {
		return errAt(ctx, calcresult.ErrRef, "VLOOKUP column index out of range")
	}
	row, bad := lookupRow(ctx, table, key, exact)
	if isBad(bad) {
		return bad
	}
	return ctx.Eval(&ast.ReferenceNode{SheetIndex: table.Left.Sheet, Row: row, Column: table.Left.Column + col - 1})
}

func hlookupFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 || len(args) > 4 {
		return errAt(ctx, calcresult.ErrNA, "HLOOKUP requires 3 or 4 arguments")
	}
	key := ctx.Scalar(args[0])
	if key.IsError() {
		return key
	}
	table, bad := asRange(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	rowIndex, bad := scalarNumber(ctx, args[2])
	if isBad(bad) {
		return bad
	}
	exact := false
	if len(args) == 4 {
		approx, bad := scalarBool(ctx, args[3])
		if isBad(bad) {
			return bad
		}
		exact = !approx
	}
	row := int32(rowIndex)
	if row < 1 || table.Left.Row+row-1 > table.Right.Row {
		return errAt(ctx, calcresult.ErrRef, "HLOOKUP row index out of range")
	}
	col, bad := lookupCol(ctx, table, key, exact)
	if isBad(bad) {
		return bad
	}
	return ctx.Eval(&ast.ReferenceNode{SheetIndex: table.Left.Sheet, Row: table.Left.Row + row - 1, Column: col})
}

// vectorLength reports a one-dimensional range's length along its
// long axis — LOOKUP's vector/array forms and XLOOKUP's lookup/return
// arrays are always a single row or a single column.
func vectorLength(r reference.Range) int32 {
	rows := r.Right.Row - r.Left.Row + 1
	cols := r.Right.Column - r.Left.Column + 1
	if rows >= cols {
		return rows
	}
	return cols
}

func vectorAt(ctx *eval.Context, r reference.Range, i int32) calcresult.CalcResult {
	if r.Right.Row-r.Left.Row+1 > 1 {
		return ctx.Eval(&ast.ReferenceNode{SheetIndex: r.Left.Sheet, Row: r.Left.Row + i, Column: r.Left.Column})
	}
	return ctx.Eval(&ast.ReferenceNode{SheetIndex: r.Left.Sheet, Row: r.Left.Row, Column: r.Left.Column + i})
}

// lookupFn implements both LOOKUP forms. The 3-argument vector form
// searches lookup_vector and returns the matching position from
// result_vector; the 2-argument array form instead splits a single
// rectangular array into a search edge and a result edge — the first
// column/last column when array is taller than wide, the first
// row/last row when it's wider than tall. Both forms assume the
// search vector is sorted ascending and, like VLOOKUP's approximate
// mode, return the rightmost value <= the lookup value.
func lookupFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 2 || len(args) > 3 {
		return errAt(ctx, calcresult.ErrNA, "LOOKUP requires 2 or 3 arguments")
	}
	key := ctx.Scalar(args[0])
	if key.IsError() {
		return key
	}
	lookupVec, bad := asRange(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	resultVec := lookupVec
	if len(args) == 3 {
		resultVec, bad = asRange(ctx, args[2])
		if isBad(bad) {
			return bad
		}
	} else {
		rows := lookupVec.Right.Row - lookupVec.Left.Row + 1
		cols := lookupVec.Right.Column - lookupVec.Left.Column + 1
		if rows > 1 && cols > 1 {
			if rows >= cols {
				resultVec = reference.Range{
					Left:  reference.Index{Sheet: lookupVec.Left.Sheet, Row: lookupVec.Left.Row, Column: lookupVec.Right.Column},
					Right: lookupVec.Right,
				}
				lookupVec = reference.Range{
					Left:  lookupVec.Left,
					Right: reference.Index{Sheet: lookupVec.Left.Sheet, Row: lookupVec.Right.Row, Column: lookupVec.Left.Column},
				}
			} else {
				resultVec = reference.Range{
					Left:  reference.Index{Sheet: lookupVec.Left.Sheet, Row: lookupVec.Right.Row, Column: lookupVec.Left.Column},
					Right: lookupVec.Right,
				}
				lookupVec = reference.Range{
					Left:  lookupVec.Left,
					Right: reference.Index{Sheet: lookupVec.Left.Sheet, Row: lookupVec.Left.Row, Column: lookupVec.Right.Column},
				}
			}
		}
	}
	length := vectorLength(lookupVec)
	best, bad := binarySearchRightmostTrue(length, func(i int32) (bool, calcresult.CalcResult) {
		v := vectorAt(ctx, lookupVec, i)
		if v.IsError() {
			return false, v
		}
		return calcresult.Compare(v, key) <= 0, calcresult.CalcResult{}
	})
	if isBad(bad) {
		return bad
	}
	if best == -2 {
		return errAt(ctx, calcresult.ErrNA, "LOOKUP found no value <= lookup value")
	}
	return vectorAt(ctx, resultVec, best)
}

// xlookupFn is the modern successor to LOOKUP/VLOOKUP/HLOOKUP: lookup
// and return arrays are independent, match_mode controls exact vs.
// next-smaller/next-larger vs. wildcard matching, and an optional
// if_not_found argument replaces the #N/A a miss would otherwise
// produce.
func xlookupFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 || len(args) > 6 {
		return errAt(ctx, calcresult.ErrNA, "XLOOKUP requires 3 to 6 arguments")
	}
	key := ctx.Scalar(args[0])
	if key.IsError() {
		return key
	}
	lookupArr, bad := asRange(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	returnArr, bad := asRange(ctx, args[2])
	if isBad(bad) {
		return bad
	}
	matchMode := 0.0
	if len(args) >= 5 {
		matchMode, bad = scalarNumber(ctx, args[4])
		if isBad(bad) {
			return bad
		}
	}
	searchMode := 1.0
	if len(args) == 6 {
		searchMode, bad = scalarNumber(ctx, args[5])
		if isBad(bad) {
			return bad
		}
	}
	idx, bad := xlookupFind(ctx, lookupArr, key, int(matchMode), int(searchMode))
	if isBad(bad) {
		return bad
	}
	if idx < 0 {
		if len(args) >= 4 {
			return ctx.Eval(args[3])
		}
		return errAt(ctx, calcresult.ErrNA, "XLOOKUP found no match")
	}
	return vectorAt(ctx, returnArr, idx)
}

// xlookupFind walks lookupArr applying matchMode (0 exact, -1 exact or
// next smaller, 1 exact or next larger, 2 wildcard) and returns the
// matched position, or -1. search_mode -1 reverses the scan to
// last-to-first, which only matters when more than one position
// qualifies; the binary-search search modes (2, -2) fall back to a
// linear scan here, since XLOOKUP itself never guarantees the array is
// actually sorted the way VLOOKUP's approximate mode requires.
func xlookupFind(ctx *eval.Context, lookupArr reference.Range, key calcresult.CalcResult, matchMode, searchMode int) (int32, calcresult.CalcResult) {
	length := vectorLength(lookupArr)
	order := make([]int32, length)
	for i := range order {
		order[i] = int32(i)
	}
	if searchMode == -1 || searchMode == -2 {
		for l, r := 0, len(order)-1; l < r; l, r = l+1, r-1 {
			order[l], order[r] = order[r], order[l]
		}
	}
	var best int32 = -1
	var bestVal calcresult.CalcResult
	haveBest := false
	for _, i := range order {
		v := vectorAt(ctx, lookupArr, i)
		if v.IsError() {
			return 0, v
		}
		switch matchMode {
		case 2:
			if v.Kind == calcresult.KindString && key.Kind == calcresult.KindString &&
				matchWildcard(strings.ToUpper(v.Str), strings.ToUpper(key.Str)) {
				return i, calcresult.CalcResult{}
			}
		case -1:
			cmp := calcresult.Compare(v, key)
			if cmp == 0 {
				return i, calcresult.CalcResult{}
			}
			if cmp < 0 && (!haveBest || calcresult.Compare(v, bestVal) > 0) {
				best, bestVal, haveBest = i, v, true
			}
		case 1:
			cmp := calcresult.Compare(v, key)
			if cmp == 0 {
				return i, calcresult.CalcResult{}
			}
			if cmp > 0 && (!haveBest || calcresult.Compare(v, bestVal) < 0) {
				best, bestVal, haveBest = i, v, true
			}
		default:
			if calcresult.Compare(v, key) == 0 {
				return i, calcresult.CalcResult{}
			}
		}
	}
	if haveBest {
		return best, calcresult.CalcResult{}
	}
	return -1, calcresult.CalcResult{}
}

// binarySearchRightmostTrue returns the rightmost index in [0,length)
// for which pred holds, on the assumption that pred is true for some
// prefix and false afterward (the caller's sortedness contract), or
// -2 if pred never holds — the sentinel of spec.md §4.5's binary
// search, ground: original source's binary_search/-2 convention.
func binarySearchRightmostTrue(length int32, pred func(i int32) (bool, calcresult.CalcResult)) (int32, calcresult.CalcResult) {
	lo, hi := int32(0), length-1
	best := int32(-2)
	for lo <= hi {
		mid := lo + (hi-lo)/2
		ok, bad := pred(mid)
		if bad.IsError() {
			return 0, bad
		}
		if ok {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, calcresult.CalcResult{}
}

// lookupRow finds key in table's first column. In exact mode the
// column may be unsorted and is scanned top to bottom; in approximate
// mode the column must be sorted ascending and a binary search
// returns the last row whose value is <= key, matching VLOOKUP's
// documented approximate-match contract.
func lookupRow(ctx *eval.Context, table reference.Range, key calcresult.CalcResult, exact bool) (int32, calcresult.CalcResult) {
	get := func(i int32) calcresult.CalcResult {
		return ctx.Eval(&ast.ReferenceNode{SheetIndex: table.Left.Sheet, Row: table.Left.Row + i, Column: table.Left.Column})
	}
	if exact {
		for row := table.Left.Row; row <= table.Right.Row; row++ {
			cell := ctx.Eval(&ast.ReferenceNode{SheetIndex: table.Left.Sheet, Row: row, Column: table.Left.Column})
			if cell.IsError() {
				return 0, cell
			}
			if calcresult.Compare(cell, key) == 0 {
				return row, calcresult.CalcResult{}
			}
		}
		return 0, errAt(ctx, calcresult.ErrNA, "lookup value not found")
	}
	length := table.Right.Row - table.Left.Row + 1
	best, bad := binarySearchRightmostTrue(length, func(i int32) (bool, calcresult.CalcResult) {
		v := get(i)
		if v.IsError() {
			return false, v
		}
		return calcresult.Compare(v, key) <= 0, calcresult.CalcResult{}
	})
	if isBad(bad) {
		return 0, bad
	}
	if best == -2 {
		return 0, errAt(ctx, calcresult.ErrNA, "lookup value not found")
	}
	return table.Left.Row + best, calcresult.CalcResult{}
}

func lookupCol(ctx *eval.Context, table reference.Range, key calcresult.CalcResult, exact bool) (int32, calcresult.CalcResult) {
	get := func(i int32) calcresult.CalcResult {
		return ctx.Eval(&ast.ReferenceNode{SheetIndex: table.Left.Sheet, Row: table.Left.Row, Column: table.Left.Column + i})
	}
	if exact {
		for col := table.Left.Column; col <= table.Right.Column; col++ {
			cell := ctx.Eval(&ast.ReferenceNode{SheetIndex: table.Left.Sheet, Row: table.Left.Row, Column: col})
			if cell.IsError() {
				return 0, cell
			}
			if calcresult.Compare(cell, key) == 0 {
				return col, calcresult.CalcResult{}
			}
		}
		return 0, errAt(ctx, calcresult.ErrNA, "lookup value not found")
	}
	length := table.Right.Column - table.Left.Column + 1
	best, bad := binarySearchRightmostTrue(length, func(i int32) (bool, calcresult.CalcResult) {
		v := get(i)
		if v.IsError() {
			return false, v
		}
		return calcresult.Compare(v, key) <= 0, calcresult.CalcResult{}
	})
	if isBad(bad) {
		return 0, bad
	}
	if best == -2 {
		return 0, errAt(ctx, calcresult.ErrNA, "lookup value not found")
	}
	return table.Left.Column + best, calcresult.CalcResult{}
}

func matchFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 2 || len(args) > 3 {
		return errAt(ctx, calcresult.ErrNA, "MATCH requires 2 or 3 arguments")
	}
	key := ctx.Scalar(args[0])
	if key.IsError() {
		return key
	}
	table, bad := asRange(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	matchType := 1.0
	if len(args) == 3 {
		matchType, bad = scalarNumber(ctx, args[2])
		if isBad(bad) {
			return bad
		}
	}
	isRow := table.Left.Row == table.Right.Row
	var length int32
	if isRow {
		length = table.Right.Column - table.Left.Column + 1
	} else {
		length = table.Right.Row - table.Left.Row + 1
	}
	get := func(i int32) calcresult.CalcResult {
		if isRow {
			return ctx.Eval(&ast.ReferenceNode{SheetIndex: table.Left.Sheet, Row: table.Left.Row, Column: table.Left.Column + i})
		}
		return ctx.Eval(&ast.ReferenceNode{SheetIndex: table.Left.Sheet, Row: table.Left.Row + i, Column: table.Left.Column})
	}

	switch {
	case matchType == 0:
		for i := int32(0); i < length; i++ {
			v := get(i)
			if v.IsError() {
				return v
			}
			if calcresult.Compare(v, key) == 0 {
				return calcresult.Num(float64(i + 1))
			}
		}
		return errAt(ctx, calcresult.ErrNA, "MATCH found no exact match")
	case matchType > 0:
		best, bad := binarySearchRightmostTrue(length, func(i int32) (bool, calcresult.CalcResult) {
			v := get(i)
			if v.IsError() {
				return false, v
			}
			return calcresult.Compare(v, key) <= 0, calcresult.CalcResult{}
		})
		if isBad(bad) {
			return bad
		}
		if best == -2 {
			return errAt(ctx, calcresult.ErrNA, "MATCH found no value <= lookup value")
		}
		return calcresult.Num(float64(best + 1))
	default:
		best, bad := binarySearchRightmostTrue(length, func(i int32) (bool, calcresult.CalcResult) {
			v := get(i)
			if v.IsError() {
				return false, v
			}
			return calcresult.Compare(v, key) >= 0, calcresult.CalcResult{}
		})
		if isBad(bad) {
			return bad
		}
		if best == -2 {
			return errAt(ctx, calcresult.ErrNA, "MATCH found no value >= lookup value")
		}
		return calcresult.Num(float64(best + 1))
	}
}

func indexFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 2 || len(args) > 3 {
		return errAt(ctx, calcresult.ErrNA, "INDEX requires 2 or 3 arguments")
	}
	table, bad := asRange(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return indexImpl(ctx, args[1:], table)
}

func indexImpl(ctx *eval.Context, args []ast.Node, table reference.Range) calcresult.CalcResult {
	rowNum, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	colNum := 0.0
	if len(args) == 2 {
		colNum, bad = scalarNumber(ctx, args[1])
		if isBad(bad) {
			return bad
		}
	}
	isRow := table.Left.Row == table.Right.Row
	isCol := table.Left.Column == table.Right.Column
	var row, col int32
	switch {
	case isRow && !isCol && len(args) == 1:
		row, col = table.Left.Row, table.Left.Column+int32(rowNum)-1
	case isCol && !isRow && len(args) == 1:
		row, col = table.Left.Row+int32(rowNum)-1, table.Left.Column
	default:
		if rowNum < 0 || colNum < 0 {
			return errAt(ctx, calcresult.ErrValue, "INDEX requires non-negative row/column numbers")
		}
		row = table.Left.Row + int32(rowNum) - 1
		col = table.Left.Column + int32(colNum) - 1
		if rowNum == 0 {
			row = table.Left.Row
		}
		if colNum == 0 {
			col = table.Left.Column
		}
	}
	if row < table.Left.Row || row > table.Right.Row || col < table.Left.Column || col > table.Right.Column {
		return errAt(ctx, calcresult.ErrRef, "INDEX offset out of range")
	}
	return ctx.Eval(&ast.ReferenceNode{SheetIndex: table.Left.Sheet, Row: row, Column: col})
}

func chooseFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 2 {
		return errAt(ctx, calcresult.ErrNA, "CHOOSE requires an index and at least one value")
	}
	idx, bad := scalarNumber(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	i := int(idx)
	if i < 1 || i >= len(args) {
		return errAt(ctx, calcresult.ErrValue, "CHOOSE index out of range")
	}
	return ctx.Eval(args[i])
}

func rowFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) == 0 {
		return calcresult.Num(float64(ctx.Origin().Row))
	}
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ROW takes 0 or 1 arguments")
	}
	rng, bad := asRange(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Num(float64(rng.Left.Row))
}

func columnFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) == 0 {
		return calcresult.Num(float64(ctx.Origin().Column))
	}
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "COLUMN takes 0 or 1 arguments")
	}
	rng, bad := asRange(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Num(float64(rng.Left.Column))
}

func rowsFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "ROWS requires exactly 1 argument")
	}
	rng, bad := asRange(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Num(float64(rng.Right.Row - rng.Left.Row + 1))
}

func columnsFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) != 1 {
		return errAt(ctx, calcresult.ErrNA, "COLUMNS requires exactly 1 argument")
	}
	rng, bad := asRange(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	return calcresult.Num(float64(rng.Right.Column - rng.Left.Column + 1))
}

func offsetFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 3 || len(args) > 5 {
		return errAt(ctx, calcresult.ErrNA, "OFFSET requires 3 to 5 arguments")
	}
	anchor, bad := asRange(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	rowOff, bad := scalarNumber(ctx, args[1])
	if isBad(bad) {
		return bad
	}
	colOff, bad := scalarNumber(ctx, args[2])
	if isBad(bad) {
		return bad
	}
	height := int32(anchor.Right.Row - anchor.Left.Row + 1)
	width := int32(anchor.Right.Column - anchor.Left.Column + 1)
	if len(args) >= 4 {
		h, bad := scalarNumber(ctx, args[3])
		if isBad(bad) {
			return bad
		}
		height = int32(h)
	}
	if len(args) == 5 {
		w, bad := scalarNumber(ctx, args[4])
		if isBad(bad) {
			return bad
		}
		width = int32(w)
	}
	if height < 1 || width < 1 {
		return errAt(ctx, calcresult.ErrRef, "OFFSET requires a positive height and width")
	}
	newLeft := reference.Index{Sheet: anchor.Left.Sheet, Row: anchor.Left.Row + int32(rowOff), Column: anchor.Left.Column + int32(colOff)}
	if !reference.ValidRow(newLeft.Row) || !reference.ValidColumn(newLeft.Column) {
		return errAt(ctx, calcresult.ErrRef, "OFFSET moved outside the addressable sheet")
	}
	newRight := reference.Index{Sheet: newLeft.Sheet, Row: newLeft.Row + height - 1, Column: newLeft.Column + width - 1}
	if height == 1 && width == 1 {
		return ctx.Eval(&ast.ReferenceNode{SheetIndex: newLeft.Sheet, Row: newLeft.Row, Column: newLeft.Column})
	}
	return calcresult.Rng(reference.Range{Left: newLeft, Right: newRight})
}

// indirectFn supports the common "A1-text-as-reference" case but, per
// its static-dependency-analysis counterpart in depanalysis, a second
// argument selecting R1C1-vs-A1 parsing is #N/IMPL! — that mode needs
// a second locale-aware parse path this function doesn't have access
// to without threading a Locale through every call.
func indirectFn(ctx *eval.Context, args []ast.Node) calcresult.CalcResult {
	if len(args) < 1 || len(args) > 2 {
		return errAt(ctx, calcresult.ErrNA, "INDIRECT requires 1 or 2 arguments")
	}
	if len(args) == 2 {
		return errAt(ctx, calcresult.ErrNImpl, "INDIRECT's R1C1-selector argument is not implemented")
	}
	text, bad := scalarText(ctx, args[0])
	if isBad(bad) {
		return bad
	}
	idx, err := reference.ParseTextual(text, ctx.Origin().Sheet, ctx.Workbook())
	if err != nil {
		return errAt(ctx, calcresult.ErrRef, "INDIRECT could not resolve "+text)
	}
	return ctx.Eval(&ast.ReferenceNode{SheetIndex: idx.Sheet, Row: idx.Row, Column: idx.Column})
}
