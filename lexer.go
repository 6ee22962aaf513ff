package sharding

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokQuotedIdent
	tokString
	tokNumber
	tokParam
	tokSymbol
)

// token is one lexeme of the statement. Start and End are byte offsets into
// the original SQL, so every span not rewritten is copied verbatim.
type token struct {
	kind  tokenKind
	text  string      // raw text
	value interface{} // unquoted identifier, string content, int64 or decimal.Decimal
	start int
	end   int
	// paramIndex is the zero-based bind ordinal of a tokParam.
	paramIndex int
}

// name returns the identifier without quotes.
func (t token) name() string {
	if s, ok := t.value.(string); ok && (t.kind == tokIdent || t.kind == tokQuotedIdent) {
		return s
	}
	return t.text
}

func (t token) isKeyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (t token) isSymbol(s string) bool {
	return t.kind == tokSymbol && t.text == s
}

type lexOptions struct {
	doubleQuoteString bool // "..." is a string literal rather than an identifier
	bracketIdent      bool // [name]
	hashComment       bool // # comment
	backslashEscape   bool // '\'' inside strings
	dollarParam       bool // $1
	colonParam        bool // :name and :1
	atParam           bool // @p1
}

type lexer struct {
	dialect Dialect
	opts    lexOptions
	sql     string
	pos     int

	nextOrdinal int
	named       map[string]int
}

// tokenize splits sql into tokens. Comments and whitespace are dropped; the
// builder recovers them from the original text by offset.
func tokenize(dialect Dialect, opts lexOptions, sql string) ([]token, error) {
	l := &lexer{dialect: dialect, opts: opts, sql: sql, named: map[string]int{}}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) errorf(pos int, msg string) error {
	near := l.sql[pos:]
	if len(near) > 20 {
		near = near[:20]
	}
	return &SyntaxError{Dialect: l.dialect, Pos: pos, Near: near, Msg: msg}
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.sql) {
		c := l.sql[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			l.pos++
		case c == '-' && strings.HasPrefix(l.sql[l.pos:], "--"):
			l.skipLine()
		case c == '#' && l.opts.hashComment:
			l.skipLine()
		case c == '/' && strings.HasPrefix(l.sql[l.pos:], "/*"):
			end := strings.Index(l.sql[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf(l.pos, "unterminated comment")
			}
			l.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) skipLine() {
	for l.pos < len(l.sql) && l.sql[l.pos] != '\n' {
		l.pos++
	}
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	start := l.pos
	if l.pos >= len(l.sql) {
		return token{kind: tokEOF, start: start, end: start}, nil
	}

	c := l.sql[l.pos]
	switch {
	case c == '\'':
		return l.lexString(start, start)
	case (c == 'N' || c == 'n' || c == 'E' || c == 'e') && l.peekByte(1) == '\'':
		return l.lexString(start, start+1)
	case c == '"' && l.opts.doubleQuoteString:
		return l.lexString(start, start)
	case c == '"':
		return l.lexQuotedIdent(start, '"')
	case c == '`':
		return l.lexQuotedIdent(start, '`')
	case c == '[' && l.opts.bracketIdent:
		return l.lexQuotedIdent(start, ']')
	case isDigit(c) || (c == '.' && isDigit(l.peekByte(1))):
		return l.lexNumber(start)
	case c == '?':
		l.pos++
		return l.param(start, l.ordinal()), nil
	case c == '$' && l.opts.dollarParam && isDigit(l.peekByte(1)):
		l.pos++
		for l.pos < len(l.sql) && isDigit(l.sql[l.pos]) {
			l.pos++
		}
		n, err := strconv.Atoi(l.sql[start+1 : l.pos])
		if err != nil || n < 1 {
			return token{}, l.errorf(start, "invalid parameter marker")
		}
		return l.param(start, n-1), nil
	case c == ':' && l.opts.colonParam && isIdentPart(l.peekByte(1)):
		l.pos++
		for l.pos < len(l.sql) && isIdentPart(l.sql[l.pos]) {
			l.pos++
		}
		name := l.sql[start+1 : l.pos]
		if n, err := strconv.Atoi(name); err == nil && n >= 1 {
			return l.param(start, n-1), nil
		}
		idx, ok := l.named[name]
		if !ok {
			idx = l.ordinal()
			l.named[name] = idx
		}
		return l.param(start, idx), nil
	case c == '@' && l.atParamEnd() > 0:
		l.pos = l.atParamEnd()
		n, err := strconv.Atoi(l.sql[start+2 : l.pos])
		if err != nil || n < 1 {
			return token{}, l.errorf(start, "invalid parameter marker")
		}
		return l.param(start, n-1), nil
	case isIdentStart(c):
		for l.pos < len(l.sql) && isIdentPart(l.sql[l.pos]) {
			l.pos++
		}
		text := l.sql[start:l.pos]
		return token{kind: tokIdent, text: text, value: text, start: start, end: l.pos}, nil
	}

	for _, op := range []string{"<=>", "<>", "<=", ">=", "!=", "::", "||", ":=", "->>", "->"} {
		if strings.HasPrefix(l.sql[l.pos:], op) {
			l.pos += len(op)
			return token{kind: tokSymbol, text: op, start: start, end: l.pos}, nil
		}
	}
	l.pos++
	return token{kind: tokSymbol, text: l.sql[start:l.pos], start: start, end: l.pos}, nil
}

func (l *lexer) peekByte(offset int) byte {
	if l.pos+offset < len(l.sql) {
		return l.sql[l.pos+offset]
	}
	return 0
}

// atParamEnd returns the end offset of an @pN marker at the current
// position, or 0 when there is none. @pending and @p1x stay identifiers.
func (l *lexer) atParamEnd() int {
	if !l.opts.atParam || l.peekByte(0) != '@' || (l.peekByte(1) != 'p' && l.peekByte(1) != 'P') {
		return 0
	}
	i := l.pos + 2
	for i < len(l.sql) && isDigit(l.sql[i]) {
		i++
	}
	if i == l.pos+2 || (i < len(l.sql) && isIdentPart(l.sql[i])) {
		return 0
	}
	return i
}

func (l *lexer) ordinal() int {
	n := l.nextOrdinal
	l.nextOrdinal++
	return n
}

func (l *lexer) param(start, index int) token {
	return token{kind: tokParam, text: l.sql[start:l.pos], start: start, end: l.pos, paramIndex: index}
}

// lexString reads a quoted string whose quote character is at quotePos.
func (l *lexer) lexString(start, quotePos int) (token, error) {
	quote := l.sql[quotePos]
	l.pos = quotePos + 1
	var sb strings.Builder
	for l.pos < len(l.sql) {
		c := l.sql[l.pos]
		switch {
		case c == '\\' && l.opts.backslashEscape && l.pos+1 < len(l.sql):
			sb.WriteByte(unescape(l.sql[l.pos+1]))
			l.pos += 2
		case c == quote && l.peekByte(1) == quote:
			sb.WriteByte(quote)
			l.pos += 2
		case c == quote:
			l.pos++
			return token{kind: tokString, text: l.sql[start:l.pos], value: sb.String(), start: start, end: l.pos}, nil
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, l.errorf(start, "unterminated string literal")
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return c
	}
}

func (l *lexer) lexQuotedIdent(start int, closing byte) (token, error) {
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.sql) {
		c := l.sql[l.pos]
		if c == closing {
			if l.peekByte(1) == closing {
				sb.WriteByte(closing)
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokQuotedIdent, text: l.sql[start:l.pos], value: sb.String(), start: start, end: l.pos}, nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, l.errorf(start, "unterminated quoted identifier")
}

func (l *lexer) lexNumber(start int) (token, error) {
	isInt := true
	for l.pos < len(l.sql) && isDigit(l.sql[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.sql) && l.sql[l.pos] == '.' {
		isInt = false
		l.pos++
		for l.pos < len(l.sql) && isDigit(l.sql[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.sql) && (l.sql[l.pos] == 'e' || l.sql[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.sql) && (l.sql[l.pos] == '+' || l.sql[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.sql) && isDigit(l.sql[l.pos]) {
			isInt = false
			for l.pos < len(l.sql) && isDigit(l.sql[l.pos]) {
				l.pos++
			}
		} else {
			l.pos = save
		}
	}
	text := l.sql[start:l.pos]
	tok := token{kind: tokNumber, text: text, start: start, end: l.pos}
	if isInt {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			tok.value = i
			return tok, nil
		}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return token{}, l.errorf(start, "invalid numeric literal")
	}
	tok.value = d
	return tok, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '@' || c >= 0x80 || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$' || c == '#'
}
