// Package ast defines the formula AST node variants of spec.md §3.1,
// a stringifier (A1 and R1C1 forms), and shared tree-walking helpers.
// Grounded on the teacher's ASTNode interface (parser.go) generalized
// from the teacher's flat shape into the full tagged variant spec.md
// calls for (WrongReference/WrongRange, OpRange, Variable, Array,
// ParseError, EmptyArg all have no teacher equivalent and are ported
// from original_source's expressions::parser::Node instead).
package ast

import "github.com/cellforge/gscalc/calcresult"

// Position is the byte-offset span of a node within its source formula.
type Position struct {
	Start int
	End   int
}

// Node is the common interface every AST variant implements. A tagged
// variant (interface + concrete structs) is used instead of
// inheritance, per spec.md §9 "Dynamic dispatch".
type Node interface {
	Pos() Position
}

// SumOp is the operator kind of an OpSum node.
type SumOp uint8

const (
	SumAdd SumOp = iota
	SumSubtract
)

// ProductOp is the operator kind of an OpProduct node.
type ProductOp uint8

const (
	ProductMultiply ProductOp = iota
	ProductDivide
)

// CompareOp is the operator kind of a Compare node.
type CompareOp uint8

const (
	CompareEqual CompareOp = iota
	CompareNotEqual
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
)

// UnaryOp is the operator kind of a Unary node.
type UnaryOp uint8

const (
	UnaryNegate UnaryOp = iota
	UnaryPercent
)

// BooleanNode is a literal TRUE/FALSE.
type BooleanNode struct {
	Value    bool
	Position Position
}

func (n *BooleanNode) Pos() Position { return n.Position }

// NumberNode is a literal number.
type NumberNode struct {
	Value    float64
	Position Position
}

func (n *NumberNode) Pos() Position { return n.Position }

// StringNode is a literal double-quoted string.
type StringNode struct {
	Value    string
	Position Position
}

func (n *StringNode) Pos() Position { return n.Position }

// ReferenceNode is a single-cell reference, textual or index form
// depending on which fields are populated: a freshly parsed A1/R1C1
// formula carries SheetName (when explicit); after sheet-name
// resolution SheetIndex is authoritative.
type ReferenceNode struct {
	SheetName      string
	HasSheetName   bool
	SheetIndex     int
	Row            int32
	Column         int32
	AbsoluteRow    bool
	AbsoluteColumn bool
	Position       Position
}

func (n *ReferenceNode) Pos() Position { return n.Position }

// RangeEndpoint is one corner of a Range/WrongRange node.
type RangeEndpoint struct {
	Row            int32
	Column         int32
	AbsoluteRow    bool
	AbsoluteColumn bool
}

// RangeNode is a literal two-endpoint range (A1:B2). Endpoints are
// normalised at parse time so Left.Row<=Right.Row, Left.Column<=
// Right.Column (invariant 3.2.4).
type RangeNode struct {
	SheetName    string
	HasSheetName bool
	SheetIndex   int
	Left         RangeEndpoint
	Right        RangeEndpoint
	Position     Position
}

func (n *RangeNode) Pos() Position { return n.Position }

// WrongReferenceNode is a single-cell reference whose sheet name did
// not resolve against the workbook's sheet list. Evaluates to #REF!.
type WrongReferenceNode struct {
	SheetName      string
	Row            int32
	Column         int32
	AbsoluteRow    bool
	AbsoluteColumn bool
	Position       Position
}

func (n *WrongReferenceNode) Pos() Position { return n.Position }

// WrongRangeNode is a range reference whose sheet name did not resolve.
type WrongRangeNode struct {
	SheetName string
	Left      RangeEndpoint
	Right     RangeEndpoint
	Position  Position
}

func (n *WrongRangeNode) Pos() Position { return n.Position }

// OpRangeNode is the ':' range-construction operator applied to two
// arbitrary subexpressions (as opposed to a literal A1:B2 pair, which
// parses directly to RangeNode). Always non-strict for static
// dependency purposes (spec.md §4.7).
type OpRangeNode struct {
	Left, Right Node
	Position    Position
}

func (n *OpRangeNode) Pos() Position { return n.Position }

// OpConcatNode is the '&' string concatenation operator.
type OpConcatNode struct {
	Left, Right Node
	Position    Position
}

func (n *OpConcatNode) Pos() Position { return n.Position }

// OpSumNode is binary +/-.
type OpSumNode struct {
	Op          SumOp
	Left, Right Node
	Position    Position
}

func (n *OpSumNode) Pos() Position { return n.Position }

// OpProductNode is binary * or /.
type OpProductNode struct {
	Op          ProductOp
	Left, Right Node
	Position    Position
}

func (n *OpProductNode) Pos() Position { return n.Position }

// OpPowerNode is binary ^ (right-associative).
type OpPowerNode struct {
	Left, Right Node
	Position    Position
}

func (n *OpPowerNode) Pos() Position { return n.Position }

// FunctionNode is a function call, dispatched by upper-cased Name.
type FunctionNode struct {
	Name     string
	Args     []Node
	Position Position
}

func (n *FunctionNode) Pos() Position { return n.Position }

// ArrayNode is an array-literal {1,2;3,4}. Array formulas are a
// spec.md Non-goal; this node exists so such a formula still parses
// and round-trips, but evaluates to #N/IMPL!.
type ArrayNode struct {
	Rows     [][]Node
	Position Position
}

func (n *ArrayNode) Pos() Position { return n.Position }

// VariableNode is a bare identifier resolved at evaluation time
// against the defined-name map (sheet-scoped, then workbook-scoped).
type VariableNode struct {
	Name     string
	Position Position
}

func (n *VariableNode) Pos() Position { return n.Position }

// CompareNode is one of =,<,>,<=,>=,<>.
type CompareNode struct {
	Op          CompareOp
	Left, Right Node
	Position    Position
}

func (n *CompareNode) Pos() Position { return n.Position }

// UnaryNode is prefix '-' or postfix '%'.
type UnaryNode struct {
	Op       UnaryOp
	Operand  Node
	Position Position
}

func (n *UnaryNode) Pos() Position { return n.Position }

// ErrorNode is a literal error value (#VALUE!, #N/A, ...) appearing
// directly in formula text.
type ErrorNode struct {
	Kind     calcresult.ErrorKind
	Position Position
}

func (n *ErrorNode) Pos() Position { return n.Position }

// ParseErrorNode replaces the whole AST when a formula fails to parse.
// Parsing never raises (spec.md §7); this node carries enough to
// reconstruct the original text and evaluates to #ERROR!.
type ParseErrorNode struct {
	Formula  string
	AtOffset int
	Message  string
	Position Position
}

func (n *ParseErrorNode) Pos() Position { return n.Position }

// EmptyArgNode is an elided argument between two commas, e.g. the
// middle argument of SUM(1,,3).
type EmptyArgNode struct {
	Position Position
}

func (n *EmptyArgNode) Pos() Position { return n.Position }
