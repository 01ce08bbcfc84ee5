package eval

import (
	"math"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/reference"
)

// intersect applies implicit intersection (spec.md §4.4): a Range
// operand to a scalar operator narrows to the single cell that shares
// origin's row (within a column range) or column (within a row range).
// A range that intersects to no cell, or that isn't aligned with
// origin on either axis, is #VALUE!.
func (e *Evaluator) intersect(c calcresult.CalcResult, origin reference.Index) calcresult.CalcResult {
	if c.Kind != calcresult.KindRange {
		return c
	}
	r := c.Range
	sameSheet := origin.Sheet == r.Left.Sheet
	rowSpan := r.Right.Row - r.Left.Row
	colSpan := r.Right.Column - r.Left.Column

	switch {
	case sameSheet && colSpan == 0 && origin.Row >= r.Left.Row && origin.Row <= r.Right.Row:
		return e.evalCellValue(reference.Index{Sheet: r.Left.Sheet, Row: origin.Row, Column: r.Left.Column})
	case sameSheet && rowSpan == 0 && origin.Column >= r.Left.Column && origin.Column <= r.Right.Column:
		return e.evalCellValue(reference.Index{Sheet: r.Left.Sheet, Row: r.Left.Row, Column: origin.Column})
	default:
		return calcresult.Err(calcresult.ErrValue, origin, "range operand could not be intersected to a single cell")
	}
}

func (e *Evaluator) scalarOperand(n ast.Node, origin reference.Index) calcresult.CalcResult {
	return e.intersect(e.evalNode(n, origin), origin)
}

func (e *Evaluator) evalConcat(node *ast.OpConcatNode, origin reference.Index) calcresult.CalcResult {
	left := e.scalarOperand(node.Left, origin)
	if left.IsError() {
		return left
	}
	right := e.scalarOperand(node.Right, origin)
	if right.IsError() {
		return right
	}
	lt := calcresult.ToText(left)
	if lt.IsError() {
		return lt
	}
	rt := calcresult.ToText(right)
	if rt.IsError() {
		return rt
	}
	return calcresult.Text(lt.Str + rt.Str)
}

func (e *Evaluator) evalSum(node *ast.OpSumNode, origin reference.Index) calcresult.CalcResult {
	left := calcresult.ToNumber(e.scalarOperand(node.Left, origin))
	if left.IsError() {
		return left
	}
	right := calcresult.ToNumber(e.scalarOperand(node.Right, origin))
	if right.IsError() {
		return right
	}
	if node.Op == ast.SumSubtract {
		return calcresult.Num(left.Number - right.Number)
	}
	return calcresult.Num(left.Number + right.Number)
}

func (e *Evaluator) evalProduct(node *ast.OpProductNode, origin reference.Index) calcresult.CalcResult {
	left := calcresult.ToNumber(e.scalarOperand(node.Left, origin))
	if left.IsError() {
		return left
	}
	right := calcresult.ToNumber(e.scalarOperand(node.Right, origin))
	if right.IsError() {
		return right
	}
	if node.Op == ast.ProductDivide {
		if right.Number == 0 {
			return calcresult.Err(calcresult.ErrDiv0, origin, "division by zero")
		}
		return calcresult.Num(left.Number / right.Number)
	}
	return calcresult.Num(left.Number * right.Number)
}

func (e *Evaluator) evalPower(node *ast.OpPowerNode, origin reference.Index) calcresult.CalcResult {
	left := calcresult.ToNumber(e.scalarOperand(node.Left, origin))
	if left.IsError() {
		return left
	}
	right := calcresult.ToNumber(e.scalarOperand(node.Right, origin))
	if right.IsError() {
		return right
	}
	v := math.Pow(left.Number, right.Number)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return calcresult.Err(calcresult.ErrNum, origin, "power result out of range")
	}
	return calcresult.Num(v)
}

func (e *Evaluator) evalUnary(node *ast.UnaryNode, origin reference.Index) calcresult.CalcResult {
	operand := calcresult.ToNumber(e.scalarOperand(node.Operand, origin))
	if operand.IsError() {
		return operand
	}
	switch node.Op {
	case ast.UnaryNegate:
		return calcresult.Num(-operand.Number)
	case ast.UnaryPercent:
		return calcresult.Num(operand.Number / 100)
	default:
		return calcresult.Err(calcresult.ErrValue, origin, "unrecognized unary operator")
	}
}

func (e *Evaluator) evalCompare(node *ast.CompareNode, origin reference.Index) calcresult.CalcResult {
	left := e.scalarOperand(node.Left, origin)
	if left.IsError() {
		return left
	}
	right := e.scalarOperand(node.Right, origin)
	if right.IsError() {
		return right
	}
	cmp := calcresult.Compare(left, right)
	switch node.Op {
	case ast.CompareEqual:
		return calcresult.Bool(cmp == 0)
	case ast.CompareNotEqual:
		return calcresult.Bool(cmp != 0)
	case ast.CompareLess:
		return calcresult.Bool(cmp < 0)
	case ast.CompareLessEqual:
		return calcresult.Bool(cmp <= 0)
	case ast.CompareGreater:
		return calcresult.Bool(cmp > 0)
	case ast.CompareGreaterEqual:
		return calcresult.Bool(cmp >= 0)
	default:
		return calcresult.Err(calcresult.ErrValue, origin, "unrecognized comparison operator")
	}
}

func (e *Evaluator) evalFunction(node *ast.FunctionNode, origin reference.Index) calcresult.CalcResult {
	fn, ok := Lookup(node.Name)
	if !ok {
		return calcresult.Err(calcresult.ErrParse, origin, "unknown function "+node.Name)
	}
	ctx := &Context{ev: e, origin: origin}
	return fn(ctx, node.Args)
}
