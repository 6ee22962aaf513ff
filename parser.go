package sharding

import (
	"fmt"
	"strings"
)

// grammar is the dialect-specific part of INSERT parsing. Column list and
// value tuple extraction are shared; each dialect only recognizes its own
// modifiers and trailing clauses, which stay unparsed in the rewritten SQL.
type grammar interface {
	lexOptions() lexOptions

	// parseInsertModifiers consumes everything between INSERT and the table
	// name, INTO included.
	parseInsertModifiers(p *parser) error

	// parseTableSuffix consumes aliases, partitions and table hints that
	// follow the table name.
	parseTableSuffix(p *parser, table *Table) error

	// parseBeforeValues consumes clauses between the column list and VALUES.
	parseBeforeValues(p *parser) error

	// parseExtraClauses consumes the clauses following the values tuple.
	parseExtraClauses(p *parser) error

	// allowSetAssignments reports whether INSERT ... SET col = value is valid.
	allowSetAssignments() bool
}

var grammars = map[Dialect]grammar{
	DialectGeneric:    genericGrammar{},
	DialectMySQL:      mysqlGrammar{},
	DialectOracle:     oracleGrammar{},
	DialectSQLServer:  sqlServerGrammar{},
	DialectPostgreSQL: postgresGrammar{},
}

type parser struct {
	dialect Dialect
	grammar grammar
	rule    *ShardingRule
	sql     string
	tokens  []token
	pos     int
	params  []interface{}
}

// Parse parses one SQL statement with its bound parameters and returns the
// statement context used for routing. rule may be nil, in which case every
// table is treated as unsharded. Auto-increment columns omitted by an insert
// are filled from the table rule's key generator before conditions are
// extracted.
func Parse(rule *ShardingRule, dialect Dialect, params []interface{}, sql string) (*StatementContext, error) {
	g, ok := grammars[dialect]
	if !ok {
		return nil, fmt.Errorf("unknown dialect: %s", dialect)
	}
	if strings.TrimSpace(sql) == "" {
		return nil, &SyntaxError{Dialect: dialect, Msg: "empty statement"}
	}

	tokens, err := tokenize(dialect, g.lexOptions(), sql)
	if err != nil {
		return nil, err
	}
	p := &parser{
		dialect: dialect,
		grammar: g,
		rule:    rule,
		sql:     sql,
		tokens:  tokens,
		params:  params,
	}
	if err := p.checkSingleStatement(); err != nil {
		return nil, err
	}

	lead := p.leadingKeyword()
	switch {
	case lead.isKeyword("INSERT"), dialect == DialectMySQL && lead.isKeyword("REPLACE"):
		return p.parseInsert()
	case lead.isKeyword("SELECT"), lead.isKeyword("WITH"):
		return p.parseDML(StatementSelect)
	case lead.isKeyword("UPDATE"):
		return p.parseDML(StatementUpdate)
	case lead.isKeyword("DELETE"):
		return p.parseDML(StatementDelete)
	default:
		return &StatementContext{
			Type:       StatementOther,
			Dialect:    dialect,
			Parameters: copyParams(params),
			Builder:    newSQLBuilder(sql, nil, nil),
		}, nil
	}
}

func copyParams(params []interface{}) []interface{} {
	if params == nil {
		return nil
	}
	out := make([]interface{}, len(params))
	copy(out, params)
	return out
}

func (p *parser) leadingKeyword() token {
	for _, t := range p.tokens {
		if !t.isSymbol("(") {
			return t
		}
	}
	return token{kind: tokEOF}
}

func (p *parser) checkSingleStatement() error {
	depth := 0
	for i, t := range p.tokens {
		switch {
		case t.isSymbol("("):
			depth++
		case t.isSymbol(")"):
			depth--
			if depth < 0 {
				return p.errorAt(t, "unbalanced parenthesis")
			}
		case t.isSymbol(";") && depth == 0:
			if p.tokens[i+1].kind != tokEOF {
				return unsupported("multiple statements in one call")
			}
		}
	}
	if depth != 0 {
		return p.errorAt(p.tokens[len(p.tokens)-1], "unbalanced parenthesis")
	}
	return nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset < len(p.tokens) {
		return p.tokens[p.pos+offset]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) peekKeyword(keywords ...string) bool {
	t := p.peek()
	for _, kw := range keywords {
		if t.isKeyword(kw) {
			return true
		}
	}
	return false
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.peek().isKeyword(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.errorAt(p.peek(), "expected "+kw)
	}
	return nil
}

func (p *parser) acceptSymbol(s string) bool {
	if p.peek().isSymbol(s) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectSymbol(s string) (token, error) {
	t := p.peek()
	if !t.isSymbol(s) {
		return t, p.errorAt(t, "expected '"+s+"'")
	}
	p.pos++
	return t, nil
}

// atEnd reports whether only an optional ";" remains.
func (p *parser) atEnd() bool {
	t := p.peek()
	return t.kind == tokEOF || (t.isSymbol(";") && p.peekAt(1).kind == tokEOF)
}

func (p *parser) expectEnd() error {
	if !p.atEnd() {
		return p.errorAt(p.peek(), "unexpected token")
	}
	return nil
}

// skipParenGroup consumes a balanced "( ... )" group starting at the current token.
func (p *parser) skipParenGroup() error {
	if _, err := p.expectSymbol("("); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		t := p.next()
		switch {
		case t.kind == tokEOF:
			return p.errorAt(t, "unterminated parenthesis")
		case t.isSymbol("("):
			depth++
		case t.isSymbol(")"):
			depth--
		}
	}
	return nil
}

// skipToEnd consumes every remaining token of the statement.
func (p *parser) skipToEnd() {
	for !p.atEnd() {
		p.next()
	}
}

// skipUntilKeyword consumes tokens until one of keywords appears outside
// parentheses, or the statement ends.
func (p *parser) skipUntilKeyword(keywords ...string) error {
	for !p.atEnd() && !p.peekKeyword(keywords...) {
		if p.peek().isSymbol("(") {
			if err := p.skipParenGroup(); err != nil {
				return err
			}
			continue
		}
		p.next()
	}
	return nil
}

func (p *parser) errorAt(t token, msg string) error {
	near := t.text
	if t.kind == tokEOF {
		near = ""
	}
	return &SyntaxError{Dialect: p.dialect, Pos: t.start, Near: near, Msg: msg}
}

func isName(t token) bool {
	return t.kind == tokIdent || t.kind == tokQuotedIdent
}

// parseTableName reads [schema.]table and returns the name tokens.
func (p *parser) parseTableName() ([]token, error) {
	t := p.peek()
	if !isName(t) {
		return nil, p.errorAt(t, "expected table name")
	}
	parts := []token{p.next()}
	for p.peek().isSymbol(".") && isName(p.peekAt(1)) {
		p.next()
		parts = append(parts, p.next())
	}
	return parts, nil
}

func (p *parser) findTableRule(logicTable string) (*TableRule, bool) {
	if p.rule == nil {
		return nil, false
	}
	return p.rule.findTableRule(logicTable)
}

// tableSpans returns every identifier token naming logicTable, except
// function calls. Unquoted identifiers match case-insensitively. Quoted
// identifiers match exactly, or the same way findTableRule does when
// logicTable is sharded.
func (p *parser) tableSpans(logicTable string) []tableSpan {
	_, sharded := p.findTableRule(logicTable)
	var spans []tableSpan
	for i, t := range p.tokens {
		matched := (t.kind == tokIdent && strings.EqualFold(t.text, logicTable)) ||
			(t.kind == tokQuotedIdent && (t.name() == logicTable || sharded && strings.EqualFold(t.name(), logicTable)))
		if !matched {
			continue
		}
		if i+1 < len(p.tokens) && p.tokens[i+1].isSymbol("(") {
			continue
		}
		spans = append(spans, tableSpan{start: t.start, end: t.end, logicTable: logicTable})
	}
	return spans
}

// valueTokens reads one value expression, stopping before a "," or ")" at
// depth zero, or before any of the stop keywords.
func (p *parser) valueTokens(stopKeywords ...string) ([]token, error) {
	var toks []token
	depth := 0
	for {
		t := p.peek()
		if t.kind == tokEOF || (depth == 0 && t.isSymbol(";")) {
			break
		}
		if depth == 0 && (t.isSymbol(",") || t.isSymbol(")") || p.peekKeyword(stopKeywords...)) {
			break
		}
		switch {
		case t.isSymbol("("):
			depth++
		case t.isSymbol(")"):
			depth--
		}
		toks = append(toks, p.next())
	}
	if len(toks) == 0 {
		return nil, p.errorAt(p.peek(), "expected value")
	}
	return toks, nil
}

// classifyValue turns the tokens of one value expression into a Value.
func (p *parser) classifyValue(toks []token) Value {
	text := p.sql[toks[0].start:toks[len(toks)-1].end]
	if lit, ok := literalOf(toks); ok {
		return Value{Kind: ValueLiteral, Text: text, Literal: lit}
	}
	if len(toks) == 1 && toks[0].kind == tokParam {
		return Value{Kind: ValueParameter, Text: text, ParamIndex: toks[0].paramIndex}
	}
	return Value{Kind: ValueExpression, Text: text}
}

// literalOf evaluates a literal written as a single token, or as a signed
// number.
func literalOf(toks []token) (interface{}, bool) {
	if len(toks) == 2 && toks[1].kind == tokNumber && (toks[0].isSymbol("-") || toks[0].isSymbol("+")) {
		v := toks[1].value
		if toks[0].isSymbol("+") {
			return v, true
		}
		return negate(v), true
	}
	if len(toks) != 1 {
		return nil, false
	}
	t := toks[0]
	switch {
	case t.kind == tokNumber, t.kind == tokString:
		return t.value, true
	case t.isKeyword("NULL"):
		return nil, true
	case t.isKeyword("TRUE"):
		return true, true
	case t.isKeyword("FALSE"):
		return false, true
	}
	return nil, false
}

// resolveValue returns the routing value of v, looking parameters up by
// ordinal in params.
func resolveValue(v Value, params []interface{}) (interface{}, error) {
	switch v.Kind {
	case ValueLiteral:
		return v.Literal, nil
	case ValueParameter:
		if v.ParamIndex < 0 || v.ParamIndex >= len(params) {
			return nil, fmt.Errorf("%w: marker %s wants #%d, %d bound", ErrParameterIndex, v.Text, v.ParamIndex+1, len(params))
		}
		return params[v.ParamIndex], nil
	}
	return nil, fmt.Errorf("%w: %s is not a literal", ErrInternalConsistency, v.Text)
}
