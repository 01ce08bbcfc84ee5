package ast

import (
	"strconv"
	"strings"

	"github.com/cellforge/gscalc/reference"
)

// SheetNamer resolves a sheet index back to its display name, used
// when stringifying a cross-sheet reference.
type SheetNamer interface {
	SheetName(index int) (string, bool)
}

func quoteSheetName(name string) string {
	needsQuote := false
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func sheetPrefix(hasSheet bool, sheetIndex int, namer SheetNamer) string {
	if !hasSheet || namer == nil {
		return ""
	}
	name, ok := namer.SheetName(sheetIndex)
	if !ok {
		return ""
	}
	return quoteSheetName(name) + "!"
}

// StringifyA1 renders the AST rooted at n as A1-style formula text, as
// it would be displayed to a user editing the cell at origin on
// currentSheet.
func StringifyA1(n Node, origin reference.Index, namer SheetNamer) string {
	var b strings.Builder
	writeA1(&b, n, origin, namer)
	return b.String()
}

func writeA1(b *strings.Builder, n Node, origin reference.Index, namer SheetNamer) {
	switch v := n.(type) {
	case nil:
		return
	case *BooleanNode:
		if v.Value {
			b.WriteString("TRUE")
		} else {
			b.WriteString("FALSE")
		}
	case *NumberNode:
		b.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))
	case *StringNode:
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(v.Value, `"`, `""`))
		b.WriteByte('"')
	case *ReferenceNode:
		b.WriteString(sheetPrefix(v.HasSheetName, v.SheetIndex, namer))
		b.WriteString(reference.FormatA1(v.Row, v.Column, v.AbsoluteRow, v.AbsoluteColumn))
	case *WrongReferenceNode:
		b.WriteString(quoteSheetName(v.SheetName))
		b.WriteString("!#REF!")
	case *RangeNode:
		b.WriteString(sheetPrefix(v.HasSheetName, v.SheetIndex, namer))
		b.WriteString(reference.FormatA1(v.Left.Row, v.Left.Column, v.Left.AbsoluteRow, v.Left.AbsoluteColumn))
		b.WriteByte(':')
		b.WriteString(reference.FormatA1(v.Right.Row, v.Right.Column, v.Right.AbsoluteRow, v.Right.AbsoluteColumn))
	case *WrongRangeNode:
		b.WriteString(quoteSheetName(v.SheetName))
		b.WriteString("!#REF!:#REF!")
	case *OpRangeNode:
		writeA1(b, v.Left, origin, namer)
		b.WriteByte(':')
		writeA1(b, v.Right, origin, namer)
	case *OpConcatNode:
		writeA1(b, v.Left, origin, namer)
		b.WriteByte('&')
		writeA1(b, v.Right, origin, namer)
	case *OpSumNode:
		writeA1(b, v.Left, origin, namer)
		if v.Op == SumAdd {
			b.WriteByte('+')
		} else {
			b.WriteByte('-')
		}
		writeA1(b, v.Right, origin, namer)
	case *OpProductNode:
		writeA1(b, v.Left, origin, namer)
		if v.Op == ProductMultiply {
			b.WriteByte('*')
		} else {
			b.WriteByte('/')
		}
		writeA1(b, v.Right, origin, namer)
	case *OpPowerNode:
		writeA1(b, v.Left, origin, namer)
		b.WriteByte('^')
		writeA1(b, v.Right, origin, namer)
	case *FunctionNode:
		b.WriteString(v.Name)
		b.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			writeA1(b, a, origin, namer)
		}
		b.WriteByte(')')
	case *ArrayNode:
		b.WriteByte('{')
		for i, row := range v.Rows {
			if i > 0 {
				b.WriteByte(';')
			}
			for j, item := range row {
				if j > 0 {
					b.WriteByte(',')
				}
				writeA1(b, item, origin, namer)
			}
		}
		b.WriteByte('}')
	case *VariableNode:
		b.WriteString(v.Name)
	case *CompareNode:
		writeA1(b, v.Left, origin, namer)
		b.WriteString(compareOpText(v.Op))
		writeA1(b, v.Right, origin, namer)
	case *UnaryNode:
		if v.Op == UnaryNegate {
			b.WriteByte('-')
			writeA1(b, v.Operand, origin, namer)
		} else {
			writeA1(b, v.Operand, origin, namer)
			b.WriteByte('%')
		}
	case *ErrorNode:
		b.WriteString(v.Kind.Tag())
	case *ParseErrorNode:
		b.WriteString(v.Formula)
	case *EmptyArgNode:
	}
}

func compareOpText(op CompareOp) string {
	switch op {
	case CompareEqual:
		return "="
	case CompareNotEqual:
		return "<>"
	case CompareLess:
		return "<"
	case CompareLessEqual:
		return "<="
	case CompareGreater:
		return ">"
	case CompareGreaterEqual:
		return ">="
	default:
		return "="
	}
}

// StringifyR1C1 renders the AST rooted at n in origin-independent
// R1C1 notation (R[delta]C[delta]), the canonical form shared-formula
// interning keys on (invariant 3.2.2/3.2.3).
func StringifyR1C1(n Node, origin reference.Index, namer SheetNamer) string {
	var b strings.Builder
	writeR1C1(&b, n, origin, namer)
	return b.String()
}

func formatR1C1Component(letter byte, value, originValue int32, absolute bool) string {
	var b strings.Builder
	b.WriteByte(letter)
	if absolute {
		b.WriteString(strconv.FormatInt(int64(value), 10))
		return b.String()
	}
	delta := value - originValue
	if delta == 0 {
		return b.String()
	}
	b.WriteByte('[')
	b.WriteString(strconv.FormatInt(int64(delta), 10))
	b.WriteByte(']')
	return b.String()
}

func writeR1C1Endpoint(b *strings.Builder, row, col int32, absRow, absCol bool, origin reference.Index) {
	b.WriteString(formatR1C1Component('R', row, origin.Row, absRow))
	b.WriteString(formatR1C1Component('C', col, origin.Column, absCol))
}

func writeR1C1(b *strings.Builder, n Node, origin reference.Index, namer SheetNamer) {
	switch v := n.(type) {
	case nil:
		return
	case *BooleanNode:
		if v.Value {
			b.WriteString("TRUE")
		} else {
			b.WriteString("FALSE")
		}
	case *NumberNode:
		b.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))
	case *StringNode:
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(v.Value, `"`, `""`))
		b.WriteByte('"')
	case *ReferenceNode:
		b.WriteString(sheetPrefix(v.HasSheetName, v.SheetIndex, namer))
		writeR1C1Endpoint(b, v.Row, v.Column, v.AbsoluteRow, v.AbsoluteColumn, origin)
	case *WrongReferenceNode:
		b.WriteString(quoteSheetName(v.SheetName))
		b.WriteString("!#REF!")
	case *RangeNode:
		b.WriteString(sheetPrefix(v.HasSheetName, v.SheetIndex, namer))
		writeR1C1Endpoint(b, v.Left.Row, v.Left.Column, v.Left.AbsoluteRow, v.Left.AbsoluteColumn, origin)
		b.WriteByte(':')
		writeR1C1Endpoint(b, v.Right.Row, v.Right.Column, v.Right.AbsoluteRow, v.Right.AbsoluteColumn, origin)
	case *WrongRangeNode:
		b.WriteString(quoteSheetName(v.SheetName))
		b.WriteString("!#REF!:#REF!")
	case *OpRangeNode:
		writeR1C1(b, v.Left, origin, namer)
		b.WriteByte(':')
		writeR1C1(b, v.Right, origin, namer)
	case *OpConcatNode:
		writeR1C1(b, v.Left, origin, namer)
		b.WriteByte('&')
		writeR1C1(b, v.Right, origin, namer)
	case *OpSumNode:
		writeR1C1(b, v.Left, origin, namer)
		if v.Op == SumAdd {
			b.WriteByte('+')
		} else {
			b.WriteByte('-')
		}
		writeR1C1(b, v.Right, origin, namer)
	case *OpProductNode:
		writeR1C1(b, v.Left, origin, namer)
		if v.Op == ProductMultiply {
			b.WriteByte('*')
		} else {
			b.WriteByte('/')
		}
		writeR1C1(b, v.Right, origin, namer)
	case *OpPowerNode:
		writeR1C1(b, v.Left, origin, namer)
		b.WriteByte('^')
		writeR1C1(b, v.Right, origin, namer)
	case *FunctionNode:
		b.WriteString(v.Name)
		b.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			writeR1C1(b, a, origin, namer)
		}
		b.WriteByte(')')
	case *ArrayNode:
		b.WriteByte('{')
		for i, row := range v.Rows {
			if i > 0 {
				b.WriteByte(';')
			}
			for j, item := range row {
				if j > 0 {
					b.WriteByte(',')
				}
				writeR1C1(b, item, origin, namer)
			}
		}
		b.WriteByte('}')
	case *VariableNode:
		b.WriteString(v.Name)
	case *CompareNode:
		writeR1C1(b, v.Left, origin, namer)
		b.WriteString(compareOpText(v.Op))
		writeR1C1(b, v.Right, origin, namer)
	case *UnaryNode:
		if v.Op == UnaryNegate {
			b.WriteByte('-')
			writeR1C1(b, v.Operand, origin, namer)
		} else {
			writeR1C1(b, v.Operand, origin, namer)
			b.WriteByte('%')
		}
	case *ErrorNode:
		b.WriteString(v.Kind.Tag())
	case *ParseErrorNode:
		b.WriteString(v.Formula)
	case *EmptyArgNode:
	}
}
