// Package eval implements spec.md §4.4's evaluation model: a simple
// recursive, memoized, on-demand evaluator keyed by cell reference,
// deliberately generalized away from the teacher's eager dirty-set /
// DependencyGraph recalculation scheme (graph.go) — this engine never
// maintains a standing dependency graph; it walks the formula AST and
// lets memoization plus a visiting-set cycle check do the rest.
package eval

import (
	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/clock"
	"github.com/cellforge/gscalc/parser"
	"github.com/cellforge/gscalc/reference"
	"github.com/cellforge/gscalc/workbook"
)

type visitState uint8

const (
	notVisited visitState = iota
	visiting
	visited
)

// Evaluator evaluates cells of one workbook, caching results across
// EvaluateCell calls until explicitly invalidated; EvaluateAll and
// EvaluateAllStrict clear the cache before each pass. It is not safe for concurrent
// use — callers that need concurrency should give each goroutine its
// own Evaluator or serialize access.
type Evaluator struct {
	wb    *workbook.Workbook
	cache map[reference.Index]calcresult.CalcResult
	state map[reference.Index]visitState
	clock clock.Clock
	rand  clock.Rand
}

// New creates an Evaluator over wb with an empty result cache, using
// the system wall clock and random source for volatile functions.
func New(wb *workbook.Workbook) *Evaluator {
	return &Evaluator{
		wb:    wb,
		cache: make(map[reference.Index]calcresult.CalcResult),
		state: make(map[reference.Index]visitState),
		clock: clock.System{},
		rand:  clock.SystemRand{},
	}
}

// SetClock overrides the time source NOW/TODAY read from — tests and
// reproducible snapshot evaluation pass a clock.Fixed here.
func (e *Evaluator) SetClock(c clock.Clock) { e.clock = c }

// SetRand overrides the random source RAND/RANDBETWEEN read from —
// tests pass a clock.FixedRand here for a deterministic result.
func (e *Evaluator) SetRand(r clock.Rand) { e.rand = r }

// Invalidate drops the cached result for ref (and its visit state),
// so the next EvaluateCell call recomputes it. Callers that mutate a
// cell's contents must invalidate that cell and, separately, track
// and invalidate its dependents (depanalysis.StaticDependencies is
// how a caller discovers which cells those are).
func (e *Evaluator) Invalidate(ref reference.Index) {
	delete(e.cache, ref)
	delete(e.state, ref)
}

// InvalidateAll clears the whole cache, forcing a full recompute on
// next access.
func (e *Evaluator) InvalidateAll() {
	e.cache = make(map[reference.Index]calcresult.CalcResult)
	e.state = make(map[reference.Index]visitState)
}

// EvaluateCell returns the memoized CalcResult for ref, computing and
// caching it first if necessary.
func (e *Evaluator) EvaluateCell(ref reference.Index) calcresult.CalcResult {
	return e.evalCellValue(ref)
}

// EvaluateAll clears the cache and visit states, then forces
// evaluation of every cell in each sheet's used range and returns
// nothing; it is a convenience for "recalculate the whole workbook"
// callers that only care about populating the cache.
func (e *Evaluator) EvaluateAll() {
	e.InvalidateAll()
	for _, sheet := range e.wb.Sheets() {
		used, ok := sheet.UsedRange()
		if !ok {
			continue
		}
		for row := used.Left.Row; row <= used.Right.Row; row++ {
			for col := used.Left.Column; col <= used.Right.Column; col++ {
				e.evalCellValue(reference.Index{Sheet: sheet.Index, Row: row, Column: col})
			}
		}
	}
}

// Diagnostic reports one cell's evaluation outcome, used by
// EvaluateAllStrict to surface every error in a single pass instead
// of making the caller poll cell-by-cell.
type Diagnostic struct {
	Cell   reference.Index
	Result calcresult.CalcResult
}

// EvaluateAllStrict clears the cache the same way EvaluateAll does,
// evaluates every cell in each sheet's used range and returns one
// Diagnostic per cell whose result is an error.
func (e *Evaluator) EvaluateAllStrict() []Diagnostic {
	e.InvalidateAll()
	var diags []Diagnostic
	for _, sheet := range e.wb.Sheets() {
		used, ok := sheet.UsedRange()
		if !ok {
			continue
		}
		for row := used.Left.Row; row <= used.Right.Row; row++ {
			for col := used.Left.Column; col <= used.Right.Column; col++ {
				ref := reference.Index{Sheet: sheet.Index, Row: row, Column: col}
				result := e.evalCellValue(ref)
				if result.IsError() {
					diags = append(diags, Diagnostic{Cell: ref, Result: result})
				}
			}
		}
	}
	return diags
}

// evalCellValue is the memoized, cycle-checked entry point every
// reference resolution funnels through.
func (e *Evaluator) evalCellValue(ref reference.Index) calcresult.CalcResult {
	if r, ok := e.cache[ref]; ok {
		return r
	}
	switch e.state[ref] {
	case visiting:
		return calcresult.Err(calcresult.ErrCirc, ref, "circular reference")
	}
	e.state[ref] = visiting
	result := e.computeCell(ref)
	e.state[ref] = visited
	e.cache[ref] = result
	return result
}

func (e *Evaluator) computeCell(ref reference.Index) calcresult.CalcResult {
	sheet := e.wb.Sheet(ref.Sheet)
	if sheet == nil {
		return calcresult.Err(calcresult.ErrRef, ref, "sheet out of range")
	}
	cell := sheet.Get(ref.Row, ref.Column)

	if !cell.IsFormula() {
		return cellValue(e.wb, ref, cell)
	}

	text, ok := sheet.SharedFormulaText(cell.FormulaIndex)
	if !ok {
		return calcresult.Err(calcresult.ErrRef, ref, "dangling shared formula index")
	}
	p := parser.NewR1C1(text, ref, e.wb, workbook.DefaultLocale)
	node := p.Parse()
	return e.intersect(e.evalNode(node, ref), ref)
}

func cellValue(wb *workbook.Workbook, ref reference.Index, cell workbook.Cell) calcresult.CalcResult {
	switch cell.Kind {
	case workbook.CellEmpty:
		return calcresult.Empty
	case workbook.CellBoolean:
		return calcresult.Bool(cell.Boolean)
	case workbook.CellNumber:
		return calcresult.Num(cell.Number)
	case workbook.CellError:
		return calcresult.Err(cell.ErrKind, ref, cell.ErrKind.Tag())
	case workbook.CellSharedString:
		s, _ := wb.String(cell.StringID)
		return calcresult.Text(s)
	default:
		return calcresult.Empty
	}
}

// evalNode evaluates an AST node anchored at origin — the cell whose
// formula this node belongs to, needed to resolve implicit
// intersection and to recurse into EvaluateCell for references.
func (e *Evaluator) evalNode(n ast.Node, origin reference.Index) calcresult.CalcResult {
	switch node := n.(type) {
	case *ast.NumberNode:
		return calcresult.Num(node.Value)
	case *ast.StringNode:
		return calcresult.Text(node.Value)
	case *ast.BooleanNode:
		return calcresult.Bool(node.Value)
	case *ast.ErrorNode:
		return calcresult.Err(node.Kind, origin, node.Kind.Tag())
	case *ast.ParseErrorNode:
		return calcresult.Err(calcresult.ErrParse, origin, node.Message)
	case *ast.EmptyArgNode:
		return calcresult.EmptyArgument

	case *ast.ReferenceNode:
		return e.evalCellValue(reference.Index{Sheet: node.SheetIndex, Row: node.Row, Column: node.Column})

	case *ast.WrongReferenceNode:
		return calcresult.Err(calcresult.ErrRef, origin, "unresolved sheet "+node.SheetName)

	case *ast.RangeNode:
		return calcresult.Rng(reference.Range{
			Left:  reference.Index{Sheet: node.SheetIndex, Row: node.Left.Row, Column: node.Left.Column},
			Right: reference.Index{Sheet: node.SheetIndex, Row: node.Right.Row, Column: node.Right.Column},
		})

	case *ast.WrongRangeNode:
		return calcresult.Err(calcresult.ErrRef, origin, "unresolved sheet "+node.SheetName)

	case *ast.OpRangeNode:
		return e.evalOpRange(node, origin)

	case *ast.OpConcatNode:
		return e.evalConcat(node, origin)

	case *ast.OpSumNode:
		return e.evalSum(node, origin)

	case *ast.OpProductNode:
		return e.evalProduct(node, origin)

	case *ast.OpPowerNode:
		return e.evalPower(node, origin)

	case *ast.CompareNode:
		return e.evalCompare(node, origin)

	case *ast.UnaryNode:
		return e.evalUnary(node, origin)

	case *ast.FunctionNode:
		return e.evalFunction(node, origin)

	case *ast.VariableNode:
		return e.evalVariable(node, origin)

	case *ast.ArrayNode:
		return calcresult.Err(calcresult.ErrNImpl, origin, "array literals are not evaluated")

	default:
		return calcresult.Err(calcresult.ErrValue, origin, "unrecognized node")
	}
}

func (e *Evaluator) evalOpRange(node *ast.OpRangeNode, origin reference.Index) calcresult.CalcResult {
	left := e.evalNode(node.Left, origin)
	if left.IsError() {
		return left
	}
	right := e.evalNode(node.Right, origin)
	if right.IsError() {
		return right
	}
	leftIdx, bad := endpointOf(left)
	if bad.IsError() {
		return bad
	}
	rightIdx, bad := endpointOf(right)
	if bad.IsError() {
		return bad
	}
	return calcresult.Rng(reference.NormalizeIndexRange(leftIdx, rightIdx))
}

func endpointOf(c calcresult.CalcResult) (reference.Index, calcresult.CalcResult) {
	if c.Kind == calcresult.KindRange {
		return c.Range.Left, calcresult.CalcResult{}
	}
	return reference.Index{}, calcresult.Err(calcresult.ErrValue, c.Origin, "range operator requires reference operands")
}

func (e *Evaluator) evalVariable(node *ast.VariableNode, origin reference.Index) calcresult.CalcResult {
	dn, ok := e.wb.LookupName(node.Name, origin.Sheet)
	if !ok {
		return calcresult.Err(calcresult.ErrName, origin, "undefined name "+node.Name)
	}
	kind, cell, rng := dn.Resolve(e.wb, origin.Sheet)
	switch kind {
	case workbook.DefinedNameCellReference:
		return e.evalCellValue(cell)
	case workbook.DefinedNameRangeReference:
		return calcresult.Rng(rng)
	default:
		return calcresult.Err(calcresult.ErrName, origin, "name "+node.Name+" does not resolve")
	}
}
