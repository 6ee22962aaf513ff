package sharding

import (
	"fmt"
	"strconv"
	"strings"
)

type insertStatement struct {
	table     *Table
	tableRule *TableRule
	columns   []token
	values    []Value
	setForm   bool
	anchors   []anchorPos
}

func (p *parser) parseInsert() (*StatementContext, error) {
	p.next() // INSERT or REPLACE

	if err := p.grammar.parseInsertModifiers(p); err != nil {
		return nil, err
	}

	nameTokens, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	if p.peek().isSymbol(",") {
		return nil, unsupported("insert into more than one table")
	}
	ins := &insertStatement{table: &Table{Name: nameTokens[len(nameTokens)-1].name()}}
	if tr, ok := p.findTableRule(ins.table.Name); ok {
		ins.tableRule = tr
		ins.table.Name = tr.logicTable
	}

	if err := p.grammar.parseTableSuffix(p, ins.table); err != nil {
		return nil, err
	}

	if p.grammar.allowSetAssignments() && p.acceptKeyword("SET") {
		if err := p.parseSetAssignments(ins); err != nil {
			return nil, err
		}
	} else if err := p.parseColumnsAndValues(ins); err != nil {
		return nil, err
	}

	if err := p.grammar.parseExtraClauses(p); err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}

	if ins.tableRule != nil && len(ins.columns) == 0 && len(ins.values) > 0 {
		return nil, unsupported("insert into sharded table %s without a column list", ins.table.Name)
	}
	return p.buildInsertContext(ins)
}

func (p *parser) parseColumnsAndValues(ins *insertStatement) error {
	if p.peek().isSymbol("(") {
		if p.peekAt(1).isKeyword("SELECT") || p.peekAt(1).isKeyword("WITH") {
			return unsupported("INSERT ... SELECT")
		}
		p.next()
		for {
			t := p.peek()
			if !isName(t) {
				return p.errorAt(t, "expected column name")
			}
			p.next()
			// qualified column: keep the last part
			for p.peek().isSymbol(".") && isName(p.peekAt(1)) {
				p.next()
				t = p.next()
			}
			ins.columns = append(ins.columns, t)
			if p.acceptSymbol(",") {
				continue
			}
			closing, err := p.expectSymbol(")")
			if err != nil {
				return err
			}
			ins.anchors = append(ins.anchors, anchorPos{pos: closing.start, anchor: anchorColumns})
			break
		}
	}

	if err := p.grammar.parseBeforeValues(p); err != nil {
		return err
	}

	switch {
	case p.peekKeyword("SELECT", "WITH"), p.peek().isSymbol("("):
		return unsupported("INSERT ... SELECT")
	case p.peekKeyword("DEFAULT"):
		p.next()
		return p.expectKeyword("VALUES")
	case p.peekKeyword("VALUES"), p.dialect == DialectMySQL && p.peekKeyword("VALUE"):
		p.next()
	default:
		return p.errorAt(p.peek(), "expected VALUES")
	}

	if _, err := p.expectSymbol("("); err != nil {
		return err
	}
	for {
		toks, err := p.valueTokens()
		if err != nil {
			return err
		}
		if toks[0].isKeyword("SELECT") {
			return unsupported("INSERT ... SELECT")
		}
		ins.values = append(ins.values, p.classifyValue(toks))
		if p.acceptSymbol(",") {
			continue
		}
		closing, err := p.expectSymbol(")")
		if err != nil {
			return err
		}
		ins.anchors = append(ins.anchors, anchorPos{pos: closing.start, anchor: anchorValues})
		break
	}
	if p.peek().isSymbol(",") && p.peekAt(1).isSymbol("(") {
		return unsupported("multi-row insert into %s", ins.table.Name)
	}

	if len(ins.columns) > 0 && len(ins.columns) != len(ins.values) {
		return &SyntaxError{
			Dialect: p.dialect,
			Pos:     ins.anchors[len(ins.anchors)-1].pos,
			Msg:     fmt.Sprintf("column count %d doesn't match value count %d", len(ins.columns), len(ins.values)),
		}
	}
	return nil
}

// parseSetAssignments reads the "col = value, ..." list of INSERT ... SET.
func (p *parser) parseSetAssignments(ins *insertStatement) error {
	ins.setForm = true
	for {
		t := p.peek()
		if !isName(t) {
			return p.errorAt(t, "expected column name")
		}
		p.next()
		if _, err := p.expectSymbol("="); err != nil {
			return err
		}
		toks, err := p.valueTokens("ON")
		if err != nil {
			return err
		}
		ins.columns = append(ins.columns, t)
		ins.values = append(ins.values, p.classifyValue(toks))
		if !p.acceptSymbol(",") {
			ins.anchors = append(ins.anchors, anchorPos{pos: toks[len(toks)-1].end, anchor: anchorAssignments})
			return nil
		}
	}
}

func (p *parser) buildInsertContext(ins *insertStatement) (*StatementContext, error) {
	ctx := &StatementContext{
		Type:       StatementInsert,
		Dialect:    p.dialect,
		Table:      ins.table,
		Parameters: copyParams(p.params),
	}
	for _, c := range ins.columns {
		ctx.Columns = append(ctx.Columns, c.name())
	}
	ctx.Values = append(ctx.Values, ins.values...)

	builder := newSQLBuilder(p.sql, p.tableSpans(ins.table.Name), ins.anchors)
	if ins.tableRule != nil && len(ins.columns) > 0 {
		var err error
		if builder, err = p.injectGeneratedKeys(ins, ctx, builder); err != nil {
			return nil, err
		}
	}
	ctx.Builder = builder

	cc, err := p.extractInsertConditions(ins.table.Name, ctx.Columns, ctx.Values, ctx.Parameters)
	if err != nil {
		return nil, err
	}
	ctx.ConditionContexts = []*ConditionContext{cc}
	return ctx, nil
}

// injectGeneratedKeys appends every auto-increment column the insert omits,
// in the order the table rule declares them, with a freshly generated value.
func (p *parser) injectGeneratedKeys(ins *insertStatement, ctx *StatementContext, builder *SQLBuilder) (*SQLBuilder, error) {
	tr := ins.tableRule
	template := ins.columns[len(ins.columns)-1]
	markers := p.paramMarkers()
	if markers.prefix != "" && len(ctx.Parameters) != markers.count {
		return nil, fmt.Errorf("%w: statement has %d markers, %d bound", ErrParameterIndex, markers.count, len(ctx.Parameters))
	}

	for _, column := range tr.autoIncrementColumns {
		if containsFold(ctx.Columns, column) {
			continue
		}
		key, err := tr.generateKey(column)
		if err != nil {
			return nil, err
		}
		if ctx.GeneratedKeys == nil {
			ctx.GeneratedKeys = make(map[string]interface{})
		}
		ctx.GeneratedKeys[column] = key

		value := Value{Kind: ValueLiteral, Literal: key, Text: renderLiteral(key)}
		if markers.prefix != "" {
			value = Value{Kind: ValueParameter, ParamIndex: len(ctx.Parameters)}
			value.Text = markers.render(value.ParamIndex)
			ctx.Parameters = append(ctx.Parameters, key)
		}
		quoted := quoteLike(p.dialect, template, column)

		if ins.setForm {
			builder = builder.withInsertion(anchorAssignments, ", "+quoted+" = "+value.Text)
		} else {
			builder = builder.withInsertion(anchorColumns, ", "+quoted)
			builder = builder.withInsertion(anchorValues, ", "+value.Text)
		}
		ctx.Columns = append(ctx.Columns, column)
		ctx.Values = append(ctx.Values, value)
	}
	return builder, nil
}

// paramMarkers describes the bind markers a statement already uses.
type paramMarkers struct {
	// prefix is "?", "$", ":" or "@p"; empty when the statement has no
	// parameters.
	prefix string
	count  int
	// names holds the bind names in use when a statement binds by :name.
	names map[string]bool
}

func (p *parser) paramMarkers() paramMarkers {
	var m paramMarkers
	for _, t := range p.tokens {
		if t.kind != tokParam {
			continue
		}
		switch {
		case strings.HasPrefix(t.text, "@"):
			m.prefix = "@p"
		case strings.HasPrefix(t.text, ":"):
			m.prefix = ":"
			if _, err := strconv.Atoi(t.text[1:]); err != nil {
				if m.names == nil {
					m.names = make(map[string]bool)
				}
				m.names[t.text[1:]] = true
			}
		default:
			m.prefix = t.text[:1]
		}
		if t.paramIndex+1 > m.count {
			m.count = t.paramIndex + 1
		}
	}
	return m
}

// render returns the marker for the bind at index. Named binds take their
// ordinal from first appearance, so a fresh name lands on the next ordinal.
func (m paramMarkers) render(index int) string {
	switch {
	case m.prefix == "?":
		return "?"
	case m.names != nil:
		name := "gen_key" + strconv.Itoa(index+1)
		for m.names[name] {
			name += "_"
		}
		m.names[name] = true
		return ":" + name
	default:
		return m.prefix + strconv.Itoa(index+1)
	}
}

// quoteLike quotes name the way template was written.
func quoteLike(dialect Dialect, template token, name string) string {
	if template.kind != tokQuotedIdent || len(template.text) < 2 {
		return quoteIdent(dialect, name)
	}
	open, closing := template.text[:1], template.text[len(template.text)-1:]
	return open + strings.ReplaceAll(name, closing, closing+closing) + closing
}
