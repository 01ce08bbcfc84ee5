package lexer

import (
	"strings"

	"github.com/cellforge/gscalc/locale"
)

// unaryState tracks just enough context to disambiguate a leading +/-
// as unary-prefix versus binary, mirroring the teacher's
// isUnaryContext without importing its full token-transition table —
// that validation is the parser's job here, not the lexer's.
type unaryState int

const (
	stateStart unaryState = iota
	stateAfterValue
	stateAfterOperator
)

// Lexer tokenizes one formula's source text.
type Lexer struct {
	runes   []rune
	pos     int
	grammar Grammar
	loc     *locale.Locale
	state   unaryState
	peeked  *Token
}

// NewA1 creates a lexer for A1-grammar formula text (e.g. as typed by
// a user), sensitive to loc's decimal point and argument separator.
func NewA1(input string, loc *locale.Locale) *Lexer {
	return newLexer(input, GrammarA1, loc)
}

// NewR1C1 creates a lexer for R1C1-grammar formula text (the form
// shared formulas are interned under).
func NewR1C1(input string, loc *locale.Locale) *Lexer {
	return newLexer(input, GrammarR1C1, loc)
}

func newLexer(input string, grammar Grammar, loc *locale.Locale) *Lexer {
	if loc == nil {
		loc = &locale.US
	}
	return &Lexer{runes: []rune(input), grammar: grammar, loc: loc, state: stateStart}
}

// Next consumes and returns the next token.
func (l *Lexer) Next() Token {
	if l.peeked != nil {
		t := *l.peeked
		l.peeked = nil
		l.advanceState(t.Type)
		return t
	}
	t := l.scan()
	l.advanceState(t.Type)
	return t
}

// PeekToken returns the next token without consuming it. A second call
// to Next or PeekToken returns the same token until one of the
// consuming calls advances past it.
func (l *Lexer) PeekToken() Token {
	if l.peeked == nil {
		t := l.scan()
		l.peeked = &t
	}
	return *l.peeked
}

func (l *Lexer) advanceState(t TokenType) {
	switch t {
	case TokenNumber, TokenString, TokenBoolean, TokenCell, TokenRange, TokenRightParen, TokenIdentifier, TokenErrorLiteral:
		l.state = stateAfterValue
	case TokenUnaryPrefixOp, TokenBinaryOp, TokenLeftParen, TokenComma, TokenEquals:
		l.state = stateAfterOperator
	}
}

func (l *Lexer) current() rune {
	if l.pos >= len(l.runes) {
		return 0
	}
	return l.runes[l.pos]
}

func (l *Lexer) peekRune(offset int) rune {
	p := l.pos + offset
	if p < 0 || p >= len(l.runes) {
		return 0
	}
	return l.runes[p]
}

func (l *Lexer) substr(start, end int) string {
	if start < 0 || end > len(l.runes) || start > end {
		return ""
	}
	return string(l.runes[start:end])
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }
func isAlpha(ch rune) bool { return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') }
func isAlnum(ch rune) bool { return isAlpha(ch) || isDigit(ch) }

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			l.pos++
		} else {
			break
		}
	}
}

func (l *Lexer) scan() Token {
	l.skipWhitespace()
	if l.pos >= len(l.runes) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	start := l.pos
	ch := l.current()

	if ch == '"' {
		return l.scanString()
	}
	if ch == '#' {
		if tok, ok := l.scanErrorLiteral(); ok {
			return tok
		}
	}
	if ch == '\'' {
		return l.scanQuotedSheetPrefix()
	}
	if isDigit(ch) || (rune(l.loc.DecimalSeparator) == ch && isDigit(l.peekRune(1))) {
		return l.scanNumber()
	}

	switch ch {
	case '(':
		l.pos++
		return Token{Type: TokenLeftParen, Value: "(", Pos: start}
	case ')':
		l.pos++
		return Token{Type: TokenRightParen, Value: ")", Pos: start}
	case '{':
		l.pos++
		return Token{Type: TokenLeftBrace, Value: "{", Pos: start}
	case '}':
		l.pos++
		return Token{Type: TokenRightBrace, Value: "}", Pos: start}
	case ';':
		l.pos++
		if rune(l.loc.ArgumentSeparator) == ';' {
			return Token{Type: TokenComma, Value: ";", Pos: start}
		}
		return Token{Type: TokenSemicolonRow, Value: ";", Pos: start}
	case ':':
		l.pos++
		return Token{Type: TokenColon, Value: ":", Pos: start}
	case '+', '-':
		l.pos++
		if l.state == stateStart || l.state == stateAfterOperator {
			return Token{Type: TokenUnaryPrefixOp, Value: string(ch), Pos: start}
		}
		return Token{Type: TokenBinaryOp, Value: string(ch), Pos: start}
	case '*', '/', '^', '&':
		l.pos++
		return Token{Type: TokenBinaryOp, Value: string(ch), Pos: start}
	case '%':
		l.pos++
		return Token{Type: TokenUnaryPostfixOp, Value: "%", Pos: start}
	case '=':
		l.pos++
		if start == 0 {
			return Token{Type: TokenEquals, Value: "=", Pos: start}
		}
		return Token{Type: TokenBinaryOp, Value: "=", Pos: start}
	case '<':
		l.pos++
		if l.current() == '=' {
			l.pos++
			return Token{Type: TokenBinaryOp, Value: "<=", Pos: start}
		}
		if l.current() == '>' {
			l.pos++
			return Token{Type: TokenBinaryOp, Value: "<>", Pos: start}
		}
		return Token{Type: TokenBinaryOp, Value: "<", Pos: start}
	case '>':
		l.pos++
		if l.current() == '=' {
			l.pos++
			return Token{Type: TokenBinaryOp, Value: ">=", Pos: start}
		}
		return Token{Type: TokenBinaryOp, Value: ">", Pos: start}
	}

	if rune(l.loc.ArgumentSeparator) == ch {
		l.pos++
		return Token{Type: TokenComma, Value: string(ch), Pos: start}
	}

	if isAlpha(ch) || ch == '_' {
		return l.scanIdentifierOrCell()
	}

	l.pos++
	return Token{Type: TokenIllegal, Value: "unexpected character: " + string(ch), Pos: start}
}

func (l *Lexer) scanString() Token {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == '"' {
			if l.peekRune(1) == '"' {
				sb.WriteRune('"')
				l.pos += 2
				continue
			}
			l.pos++
			return Token{Type: TokenString, Value: sb.String(), Pos: start}
		}
		sb.WriteRune(ch)
		l.pos++
	}
	return Token{Type: TokenIllegal, Value: "unclosed string literal", Pos: start}
}

var errorLiteralTags = []string{
	"#DIV/0!", "#N/A", "#NAME?", "#NULL!", "#NUM!", "#REF!", "#VALUE!", "#ERROR!", "#CIRC!", "#N/IMPL!",
}

func (l *Lexer) scanErrorLiteral() (Token, bool) {
	start := l.pos
	rest := string(l.runes[l.pos:])
	for _, tag := range errorLiteralTags {
		if strings.HasPrefix(strings.ToUpper(rest), tag) {
			l.pos += len([]rune(tag))
			return Token{Type: TokenErrorLiteral, Value: tag, Pos: start}, true
		}
	}
	return Token{}, false
}

func (l *Lexer) scanQuotedSheetPrefix() Token {
	start := l.pos
	l.pos++ // consume opening quote
	for l.pos < len(l.runes) && l.current() != '\'' {
		l.pos++
	}
	if l.pos >= len(l.runes) {
		return Token{Type: TokenIllegal, Value: "unclosed sheet name", Pos: start}
	}
	l.pos++ // consume closing quote
	if l.current() != '!' {
		l.pos = start
		return Token{Type: TokenIllegal, Value: "expected '!' after quoted sheet name", Pos: start}
	}
	l.pos++ // consume '!'
	return l.scanReferenceAfterSheetPrefix(start)
}

func (l *Lexer) scanReferenceAfterSheetPrefix(start int) Token {
	refStart := l.pos
	for l.pos < len(l.runes) && isRefChar(l.current()) {
		l.pos++
	}
	ref := l.substr(refStart, l.pos)
	if !l.isReference(ref) {
		return Token{Type: TokenIllegal, Value: "invalid cell reference after sheet prefix", Pos: start}
	}
	if l.current() == ':' {
		saved := l.pos
		l.pos++
		secondStart := l.pos
		for l.pos < len(l.runes) && isRefChar(l.current()) {
			l.pos++
		}
		second := l.substr(secondStart, l.pos)
		if l.isReference(second) {
			return Token{Type: TokenRange, Value: l.substr(start, l.pos), Pos: start}
		}
		l.pos = saved
	}
	return Token{Type: TokenCell, Value: l.substr(start, l.pos), Pos: start}
}

func isRefChar(ch rune) bool {
	return isAlnum(ch) || ch == '[' || ch == ']' || ch == '-'
}

func (l *Lexer) scanNumber() Token {
	start := l.pos
	for l.pos < len(l.runes) && isDigit(l.current()) {
		l.pos++
	}
	if l.current() == rune(l.loc.DecimalSeparator) && isDigit(l.peekRune(1)) {
		l.pos++
		for l.pos < len(l.runes) && isDigit(l.current()) {
			l.pos++
		}
	}
	if l.current() == 'e' || l.current() == 'E' {
		saved := l.pos
		l.pos++
		if l.current() == '+' || l.current() == '-' {
			l.pos++
		}
		if !isDigit(l.current()) {
			l.pos = saved
		} else {
			for l.pos < len(l.runes) && isDigit(l.current()) {
				l.pos++
			}
		}
	}
	value := l.substr(start, l.pos)
	if rune(l.loc.DecimalSeparator) != '.' {
		value = strings.Replace(value, string(l.loc.DecimalSeparator), ".", 1)
	}
	return Token{Type: TokenNumber, Value: value, Pos: start}
}

func (l *Lexer) scanIdentifierOrCell() Token {
	start := l.pos
	for l.pos < len(l.runes) && (isAlnum(l.current()) || l.current() == '_') {
		l.pos++
	}
	value := l.substr(start, l.pos)
	upper := strings.ToUpper(value)

	if upper == "TRUE" || upper == "FALSE" {
		return Token{Type: TokenBoolean, Value: upper, Pos: start}
	}

	if l.current() == '!' {
		l.pos++
		return l.scanReferenceAfterSheetPrefix(start)
	}

	if l.grammar == GrammarR1C1 && l.isR1C1Ref(value) {
		return l.scanPossibleRangeFrom(start, value)
	}
	if l.grammar == GrammarA1 && l.isA1Cell(value) {
		return l.scanPossibleRangeFrom(start, value)
	}

	if l.current() == '(' {
		return Token{Type: TokenFunction, Value: upper, Pos: start}
	}
	return Token{Type: TokenIdentifier, Value: value, Pos: start}
}

func (l *Lexer) scanPossibleRangeFrom(start int, firstValue string) Token {
	if l.current() == ':' {
		saved := l.pos
		l.pos++
		secondStart := l.pos
		for l.pos < len(l.runes) && isRefChar(l.current()) {
			l.pos++
		}
		second := l.substr(secondStart, l.pos)
		if l.isReference(second) {
			return Token{Type: TokenRange, Value: l.substr(start, l.pos), Pos: start}
		}
		l.pos = saved
	}
	return Token{Type: TokenCell, Value: firstValue, Pos: start}
}

func (l *Lexer) isReference(s string) bool {
	if l.grammar == GrammarR1C1 {
		return l.isR1C1Ref(s)
	}
	return l.isA1Cell(s)
}

// isA1Cell reports whether s is a bare A1-style cell label (letters
// then digits, e.g. "A1", "AB12"), the unmarked form produced by
// scanIdentifierOrCell. The lexer does not scan '$' markers: a '$' is
// an illegal character, so an absolute label such as "$C$4" is not
// lexed as a cell reference.
func (l *Lexer) isA1Cell(s string) bool {
	if len(s) < 2 {
		return false
	}
	i := 0
	for i < len(s) && isAlpha(rune(s[i])) {
		i++
	}
	if i == 0 || i == len(s) {
		return false
	}
	for j := i; j < len(s); j++ {
		if !isDigit(rune(s[j])) {
			return false
		}
	}
	return true
}

// isR1C1Ref reports whether s matches R1C1 grammar: R, C, R<n>, C<n>,
// R[<n>], C[<n>], or any concatenation of an R-part and a C-part.
func (l *Lexer) isR1C1Ref(s string) bool {
	if s == "" {
		return false
	}
	upper := strings.ToUpper(s)
	i := 0
	sawR, sawC := false, false
	if i < len(upper) && upper[i] == 'R' {
		sawR = true
		i++
		i = consumeR1C1Number(upper, i)
	}
	if i < len(upper) && upper[i] == 'C' {
		sawC = true
		i++
		i = consumeR1C1Number(upper, i)
	}
	return (sawR || sawC) && i == len(upper)
}

func consumeR1C1Number(s string, i int) int {
	if i >= len(s) {
		return i
	}
	if s[i] == '[' {
		j := i + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		start := j
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > start && j < len(s) && s[j] == ']' {
			return j + 1
		}
		return i
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	return j
}
