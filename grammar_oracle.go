package sharding

// oracleGrammar handles single-table Oracle inserts.
//
//	INSERT INTO tbl [alias] (cols) VALUES (row)
//	    [RETURNING expr, ... INTO :var, ...]
//	    [LOG ERRORS [INTO err_tbl] [(tag)] [REJECT LIMIT n]]
//
// INSERT ALL and INSERT FIRST write several tables and are rejected.
type oracleGrammar struct{}

func (oracleGrammar) lexOptions() lexOptions {
	return lexOptions{colonParam: true}
}

func (oracleGrammar) parseInsertModifiers(p *parser) error {
	if p.peekKeyword("ALL", "FIRST") {
		return unsupported("multi-table INSERT %s", p.peek().text)
	}
	return p.expectKeyword("INTO")
}

func (oracleGrammar) parseTableSuffix(p *parser, table *Table) error {
	t := p.peek()
	if t.kind == tokQuotedIdent || (t.kind == tokIdent && !p.peekKeyword("VALUES", "SELECT", "WITH")) {
		table.Alias = p.next().name()
	}
	return nil
}

func (oracleGrammar) parseBeforeValues(*parser) error {
	return nil
}

func (oracleGrammar) parseExtraClauses(p *parser) error {
	if p.acceptKeyword("RETURNING") || p.acceptKeyword("RETURN") {
		if err := p.skipUntilKeyword("LOG"); err != nil {
			return err
		}
	}
	if p.acceptKeyword("LOG") {
		if err := p.expectKeyword("ERRORS"); err != nil {
			return err
		}
		p.skipToEnd()
	}
	return nil
}

func (oracleGrammar) allowSetAssignments() bool {
	return false
}
