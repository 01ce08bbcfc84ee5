// Package parser implements the precedence-climbing recursive-descent
// formula parser of spec.md §4.3, over either A1 or R1C1 token
// streams from the lexer package. Grounded on the teacher's
// parseComparison/.../parsePrimary descent chain in parser.go,
// generalized to produce ast.Node values, to support EmptyArg and
// array literals, and to never fail: a malformed formula always
// parses to a *ast.ParseErrorNode rather than returning a Go error,
// per spec.md §7 ("parsing never raises").
package parser

import (
	"strconv"
	"strings"

	"github.com/cellforge/gscalc/ast"
	"github.com/cellforge/gscalc/calcresult"
	"github.com/cellforge/gscalc/lexer"
	"github.com/cellforge/gscalc/locale"
	"github.com/cellforge/gscalc/reference"
)

// Parser parses one formula's token stream into an AST, relative to
// an origin cell (needed to relativize R1C1-grammar references, which
// arrive as already-relative deltas, into absolute coordinates the
// rest of the engine works in).
type Parser struct {
	lex      *lexer.Lexer
	grammar  lexer.Grammar
	formula  string
	origin   reference.Index
	resolver reference.SheetResolver
	loc      *locale.Locale
	failed   bool
	failMsg  string
	failAt   int
}

// NewA1 creates a parser for A1-grammar formula text.
func NewA1(formula string, origin reference.Index, resolver reference.SheetResolver, loc *locale.Locale) *Parser {
	return &Parser{
		lex:      lexer.NewA1(formula, loc),
		grammar:  lexer.GrammarA1,
		formula:  formula,
		origin:   origin,
		resolver: resolver,
		loc:      loc,
	}
}

// NewR1C1 creates a parser for R1C1-grammar formula text.
func NewR1C1(formula string, origin reference.Index, resolver reference.SheetResolver, loc *locale.Locale) *Parser {
	return &Parser{
		lex:      lexer.NewR1C1(formula, loc),
		grammar:  lexer.GrammarR1C1,
		formula:  formula,
		origin:   origin,
		resolver: resolver,
		loc:      loc,
	}
}

// Parse consumes the leading '=' (if present) and parses the
// remainder as an expression. Never returns an error: a malformed
// formula yields a *ast.ParseErrorNode root.
func (p *Parser) Parse() ast.Node {
	first := p.lex.PeekToken()
	if first.Type == lexer.TokenEquals {
		p.lex.Next()
	}
	if p.atEOF() {
		return p.parseError("empty formula", 0)
	}
	node := p.parseComparison()
	if p.failed {
		return p.parseError(p.failMsg, p.failAt)
	}
	tok := p.lex.PeekToken()
	if tok.Type != lexer.TokenEOF {
		return p.parseError("unexpected trailing input: "+tok.Value, tok.Pos)
	}
	return node
}

func (p *Parser) parseError(message string, at int) ast.Node {
	return &ast.ParseErrorNode{Formula: p.formula, AtOffset: at, Message: message, Position: ast.Position{Start: 0, End: len(p.formula)}}
}

func (p *Parser) fail(message string, at int) {
	if !p.failed {
		p.failed = true
		p.failMsg = message
		p.failAt = at
	}
}

func (p *Parser) atEOF() bool {
	return p.lex.PeekToken().Type == lexer.TokenEOF
}

// ---- precedence chain: comparison -> concat -> sum -> product -> power -> unary -> postfix -> primary ----

func (p *Parser) parseComparison() ast.Node {
	left := p.parseConcat()
	for !p.failed {
		tok := p.lex.PeekToken()
		if tok.Type != lexer.TokenBinaryOp {
			break
		}
		op, ok := compareOp(tok.Value)
		if !ok {
			break
		}
		p.lex.Next()
		right := p.parseConcat()
		left = &ast.CompareNode{Op: op, Left: left, Right: right, Position: span(left, right)}
	}
	return left
}

func compareOp(v string) (ast.CompareOp, bool) {
	switch v {
	case "=":
		return ast.CompareEqual, true
	case "<>", "!=":
		return ast.CompareNotEqual, true
	case "<":
		return ast.CompareLess, true
	case "<=":
		return ast.CompareLessEqual, true
	case ">":
		return ast.CompareGreater, true
	case ">=":
		return ast.CompareGreaterEqual, true
	default:
		return 0, false
	}
}

func (p *Parser) parseConcat() ast.Node {
	left := p.parseSum()
	for !p.failed {
		tok := p.lex.PeekToken()
		if tok.Type != lexer.TokenBinaryOp || tok.Value != "&" {
			break
		}
		p.lex.Next()
		right := p.parseSum()
		left = &ast.OpConcatNode{Left: left, Right: right, Position: span(left, right)}
	}
	return left
}

func (p *Parser) parseSum() ast.Node {
	left := p.parseProduct()
	for !p.failed {
		tok := p.lex.PeekToken()
		if tok.Type != lexer.TokenBinaryOp {
			break
		}
		var op ast.SumOp
		switch tok.Value {
		case "+":
			op = ast.SumAdd
		case "-":
			op = ast.SumSubtract
		default:
			return left
		}
		p.lex.Next()
		right := p.parseProduct()
		left = &ast.OpSumNode{Op: op, Left: left, Right: right, Position: span(left, right)}
	}
	return left
}

func (p *Parser) parseProduct() ast.Node {
	left := p.parsePower()
	for !p.failed {
		tok := p.lex.PeekToken()
		if tok.Type != lexer.TokenBinaryOp {
			break
		}
		var op ast.ProductOp
		switch tok.Value {
		case "*":
			op = ast.ProductMultiply
		case "/":
			op = ast.ProductDivide
		default:
			return left
		}
		p.lex.Next()
		right := p.parsePower()
		left = &ast.OpProductNode{Op: op, Left: left, Right: right, Position: span(left, right)}
	}
	return left
}

func (p *Parser) parsePower() ast.Node {
	left := p.parseUnary()
	if p.failed {
		return left
	}
	tok := p.lex.PeekToken()
	if tok.Type == lexer.TokenBinaryOp && tok.Value == "^" {
		p.lex.Next()
		right := p.parsePower() // right-associative
		return &ast.OpPowerNode{Left: left, Right: right, Position: span(left, right)}
	}
	return left
}

func (p *Parser) parseUnary() ast.Node {
	tok := p.lex.PeekToken()
	if tok.Type == lexer.TokenUnaryPrefixOp && tok.Value == "-" {
		p.lex.Next()
		operand := p.parseUnary()
		return &ast.UnaryNode{Op: ast.UnaryNegate, Operand: operand, Position: ast.Position{Start: tok.Pos, End: operand.Pos().End}}
	}
	if tok.Type == lexer.TokenUnaryPrefixOp && tok.Value == "+" {
		p.lex.Next()
		return p.parseUnary()
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Node {
	node := p.parseRangeOp()
	if p.failed {
		return node
	}
	tok := p.lex.PeekToken()
	if tok.Type == lexer.TokenUnaryPostfixOp && tok.Value == "%" {
		p.lex.Next()
		return &ast.UnaryNode{Op: ast.UnaryPercent, Operand: node, Position: ast.Position{Start: node.Pos().Start, End: tok.Pos + 1}}
	}
	return node
}

// parseRangeOp implements the grammar's "range := primary (COLON
// primary)?" level: a bare REFERENCE/RANGE token already folds into a
// single RangeNode inside parsePrimary (mirroring the teacher's
// TokenRange), so this level only has work to do when a colon
// connects two otherwise-independent subexpressions, e.g. parenthesized
// expressions or function results — that case produces an OpRangeNode.
func (p *Parser) parseRangeOp() ast.Node {
	left := p.parsePrimary()
	if p.failed {
		return left
	}
	if _, isRef := left.(*ast.ReferenceNode); isRef {
		return left
	}
	tok := p.lex.PeekToken()
	if tok.Type != lexer.TokenColon {
		return left
	}
	p.lex.Next()
	right := p.parsePrimary()
	return &ast.OpRangeNode{Left: left, Right: right, Position: span(left, right)}
}

func (p *Parser) parsePrimary() ast.Node {
	tok := p.lex.PeekToken()
	switch tok.Type {
	case lexer.TokenNumber:
		p.lex.Next()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.fail("invalid number: "+tok.Value, tok.Pos)
			return &ast.NumberNode{Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)}}
		}
		return &ast.NumberNode{Value: v, Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)}}

	case lexer.TokenString:
		p.lex.Next()
		return &ast.StringNode{Value: tok.Value, Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value) + 2}}

	case lexer.TokenBoolean:
		p.lex.Next()
		return &ast.BooleanNode{Value: tok.Value == "TRUE", Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)}}

	case lexer.TokenErrorLiteral:
		p.lex.Next()
		return &ast.ErrorNode{Kind: errorKindFromTag(tok.Value), Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)}}

	case lexer.TokenCell:
		p.lex.Next()
		return p.parseCellToken(tok)

	case lexer.TokenRange:
		p.lex.Next()
		return p.parseRangeToken(tok)

	case lexer.TokenIdentifier:
		p.lex.Next()
		return &ast.VariableNode{Name: tok.Value, Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)}}

	case lexer.TokenFunction:
		return p.parseFunctionCall()

	case lexer.TokenLeftParen:
		p.lex.Next()
		node := p.parseComparison()
		closing := p.lex.PeekToken()
		if closing.Type != lexer.TokenRightParen {
			p.fail("expected closing parenthesis", closing.Pos)
			return node
		}
		p.lex.Next()
		return node

	case lexer.TokenLeftBrace:
		return p.parseArrayLiteral()

	default:
		p.fail("unexpected token: "+tok.Value, tok.Pos)
		return &ast.EmptyArgNode{Position: ast.Position{Start: tok.Pos, End: tok.Pos}}
	}
}

func errorKindFromTag(tag string) calcresult.ErrorKind {
	switch tag {
	case "#DIV/0!":
		return calcresult.ErrDiv0
	case "#N/A":
		return calcresult.ErrNA
	case "#NAME?":
		return calcresult.ErrName
	case "#NULL!":
		return calcresult.ErrNull
	case "#NUM!":
		return calcresult.ErrNum
	case "#REF!":
		return calcresult.ErrRef
	case "#VALUE!":
		return calcresult.ErrValue
	case "#CIRC!":
		return calcresult.ErrCirc
	case "#N/IMPL!":
		return calcresult.ErrNImpl
	default:
		return calcresult.ErrParse
	}
}

func (p *Parser) parseFunctionCall() ast.Node {
	funcTok := p.lex.Next()
	lp := p.lex.PeekToken()
	if lp.Type != lexer.TokenLeftParen {
		p.fail("expected '(' after function name", lp.Pos)
		return &ast.FunctionNode{Name: funcTok.Value, Position: ast.Position{Start: funcTok.Pos, End: funcTok.Pos + len(funcTok.Value)}}
	}
	p.lex.Next()

	var args []ast.Node
	if p.lex.PeekToken().Type == lexer.TokenRightParen {
		rp := p.lex.Next()
		return &ast.FunctionNode{Name: funcTok.Value, Args: args, Position: ast.Position{Start: funcTok.Pos, End: rp.Pos + 1}}
	}

	for {
		if p.lex.PeekToken().Type == lexer.TokenComma {
			tok := p.lex.PeekToken()
			args = append(args, &ast.EmptyArgNode{Position: ast.Position{Start: tok.Pos, End: tok.Pos}})
		} else {
			args = append(args, p.parseComparison())
			if p.failed {
				return &ast.FunctionNode{Name: funcTok.Value, Args: args, Position: ast.Position{Start: funcTok.Pos, End: p.lex.PeekToken().Pos}}
			}
		}

		tok := p.lex.PeekToken()
		if tok.Type == lexer.TokenRightParen {
			p.lex.Next()
			return &ast.FunctionNode{Name: funcTok.Value, Args: args, Position: ast.Position{Start: funcTok.Pos, End: tok.Pos + 1}}
		}
		if tok.Type != lexer.TokenComma {
			p.fail("expected ',' or ')' in function arguments", tok.Pos)
			return &ast.FunctionNode{Name: funcTok.Value, Args: args, Position: ast.Position{Start: funcTok.Pos, End: tok.Pos}}
		}
		p.lex.Next()
	}
}

func (p *Parser) parseArrayLiteral() ast.Node {
	start := p.lex.Next() // consume '{'
	var rows [][]ast.Node
	row := []ast.Node{}
	for {
		tok := p.lex.PeekToken()
		if tok.Type == lexer.TokenRightBrace {
			p.lex.Next()
			rows = append(rows, row)
			return &ast.ArrayNode{Rows: rows, Position: ast.Position{Start: start.Pos, End: tok.Pos + 1}}
		}
		item := p.parseComparison()
		if p.failed {
			rows = append(rows, row)
			return &ast.ArrayNode{Rows: rows, Position: ast.Position{Start: start.Pos, End: p.lex.PeekToken().Pos}}
		}
		row = append(row, item)
		next := p.lex.PeekToken()
		switch next.Type {
		case lexer.TokenComma:
			p.lex.Next()
		case lexer.TokenSemicolonRow:
			p.lex.Next()
			rows = append(rows, row)
			row = []ast.Node{}
		case lexer.TokenRightBrace:
			// loop head handles this
		default:
			p.fail("expected ',', ';', or '}' in array literal", next.Pos)
			rows = append(rows, row)
			return &ast.ArrayNode{Rows: rows, Position: ast.Position{Start: start.Pos, End: next.Pos}}
		}
	}
}

func span(left, right ast.Node) ast.Position {
	return ast.Position{Start: left.Pos().Start, End: right.Pos().End}
}

// ---- cell/range token decoding ----

func splitSheetPrefix(text string) (sheetName string, hasSheet bool, rest string) {
	bang := strings.LastIndex(text, "!")
	if bang < 0 {
		return "", false, text
	}
	name := text[:bang]
	name = strings.TrimPrefix(name, "'")
	name = strings.TrimSuffix(name, "'")
	name = strings.ReplaceAll(name, "''", "'")
	return name, true, text[bang+1:]
}

func (p *Parser) resolveSheet(name string) (int, bool) {
	if p.resolver == nil {
		return 0, false
	}
	return p.resolver.SheetIndex(name)
}

func (p *Parser) parseCellToken(tok lexer.Token) ast.Node {
	sheetName, hasSheet, rest := splitSheetPrefix(tok.Value)
	sheetIndex := p.origin.Sheet
	if hasSheet {
		idx, ok := p.resolveSheet(sheetName)
		if !ok {
			return &ast.WrongReferenceNode{SheetName: sheetName, Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)}}
		}
		sheetIndex = idx
	}

	row, col, absRow, absCol, err := p.decodeCellAddress(rest)
	if err != nil {
		p.fail(err.Error(), tok.Pos)
		return &ast.WrongReferenceNode{SheetName: sheetName, Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)}}
	}
	return &ast.ReferenceNode{
		SheetName: sheetName, HasSheetName: hasSheet, SheetIndex: sheetIndex,
		Row: row, Column: col, AbsoluteRow: absRow, AbsoluteColumn: absCol,
		Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
	}
}

func (p *Parser) parseRangeToken(tok lexer.Token) ast.Node {
	sheetName, hasSheet, rest := splitSheetPrefix(tok.Value)
	sheetIndex := p.origin.Sheet
	if hasSheet {
		idx, ok := p.resolveSheet(sheetName)
		if !ok {
			return &ast.WrongRangeNode{SheetName: sheetName, Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)}}
		}
		sheetIndex = idx
	}

	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		p.fail("invalid range: "+rest, tok.Pos)
		return &ast.WrongRangeNode{SheetName: sheetName, Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)}}
	}
	r1, c1, ar1, ac1, err1 := p.decodeCellAddress(parts[0])
	r2, c2, ar2, ac2, err2 := p.decodeCellAddress(parts[1])
	if err1 != nil || err2 != nil {
		p.fail("invalid range endpoint in "+rest, tok.Pos)
		return &ast.WrongRangeNode{SheetName: sheetName, Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)}}
	}
	left := ast.RangeEndpoint{Row: r1, Column: c1, AbsoluteRow: ar1, AbsoluteColumn: ac1}
	right := ast.RangeEndpoint{Row: r2, Column: c2, AbsoluteRow: ar2, AbsoluteColumn: ac2}
	if left.Row > right.Row {
		left.Row, right.Row = right.Row, left.Row
		left.AbsoluteRow, right.AbsoluteRow = right.AbsoluteRow, left.AbsoluteRow
	}
	if left.Column > right.Column {
		left.Column, right.Column = right.Column, left.Column
		left.AbsoluteColumn, right.AbsoluteColumn = right.AbsoluteColumn, left.AbsoluteColumn
	}
	return &ast.RangeNode{
		SheetName: sheetName, HasSheetName: hasSheet, SheetIndex: sheetIndex,
		Left: left, Right: right,
		Position: ast.Position{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
	}
}

func (p *Parser) decodeCellAddress(text string) (row, col int32, absRow, absCol bool, err error) {
	if p.grammar == lexer.GrammarR1C1 {
		return decodeR1C1Address(text, p.origin)
	}
	letters, r, ac, ar, splitErr := reference.SplitCellLabel(text)
	if splitErr != nil {
		return 0, 0, false, false, splitErr
	}
	c, colErr := reference.ColumnLettersToNumber(letters)
	if colErr != nil {
		return 0, 0, false, false, colErr
	}
	return r, c, ar, ac, nil
}

// decodeR1C1Address parses an R[n]C[n]-style address into absolute
// row/column, relative to origin when the component is unmarked
// (relative) rather than an absolute R<n>/C<n> form.
func decodeR1C1Address(text string, origin reference.Index) (row, col int32, absRow, absCol bool, err error) {
	upper := strings.ToUpper(text)
	i := 0
	row, absRow = origin.Row, false
	col, absCol = origin.Column, false

	if i < len(upper) && upper[i] == 'R' {
		i++
		val, abs, next, perr := readR1C1Component(upper, i)
		if perr != nil {
			return 0, 0, false, false, perr
		}
		if abs {
			row, absRow = val, true
		} else {
			row, absRow = origin.Row+val, false
		}
		i = next
	}
	if i < len(upper) && upper[i] == 'C' {
		i++
		val, abs, next, perr := readR1C1Component(upper, i)
		if perr != nil {
			return 0, 0, false, false, perr
		}
		if abs {
			col, absCol = val, true
		} else {
			col, absCol = origin.Column+val, false
		}
		i = next
	}
	return row, col, absRow, absCol, nil
}

// readR1C1Component reads the optional numeric payload following an R
// or C marker: "" means same row/column relative (delta 0), "[n]"
// means relative delta n, and a bare digit run means an absolute
// 1-based coordinate.
func readR1C1Component(s string, i int) (value int32, absolute bool, next int, err error) {
	if i >= len(s) || (s[i] != '[' && !(s[i] >= '0' && s[i] <= '9')) {
		return 0, false, i, nil
	}
	if s[i] == '[' {
		j := i + 1
		sign := int32(1)
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			if s[j] == '-' {
				sign = -1
			}
			j++
		}
		start := j
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		n, convErr := strconv.Atoi(s[start:j])
		if convErr != nil || j >= len(s) || s[j] != ']' {
			return 0, false, i, errInvalidR1C1
		}
		return sign * int32(n), false, j + 1, nil
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	n, convErr := strconv.Atoi(s[i:j])
	if convErr != nil {
		return 0, false, i, errInvalidR1C1
	}
	return int32(n), true, j, nil
}

var errInvalidR1C1 = parseErr("invalid R1C1 address component")

type parseErr string

func (e parseErr) Error() string { return string(e) }
