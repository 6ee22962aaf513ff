package sharding

// sqlServerGrammar handles T-SQL inserts.
//
//	INSERT [TOP (n) [PERCENT]] [INTO] tbl [WITH (hints)] [(cols)]
//	    [OUTPUT ...] VALUES (row) [OPTION (...)]
type sqlServerGrammar struct{}

func (sqlServerGrammar) lexOptions() lexOptions {
	return lexOptions{bracketIdent: true, atParam: true}
}

func (sqlServerGrammar) parseInsertModifiers(p *parser) error {
	if p.acceptKeyword("TOP") {
		if p.peek().isSymbol("(") {
			if err := p.skipParenGroup(); err != nil {
				return err
			}
		} else if t := p.next(); t.kind != tokNumber {
			return p.errorAt(t, "expected TOP expression")
		}
		p.acceptKeyword("PERCENT")
	}
	p.acceptKeyword("INTO")
	// a misplaced OUTPUT keyword before the table name is tolerated
	if p.peekKeyword("OUTPUT") && isName(p.peekAt(1)) {
		p.next()
	}
	return nil
}

func (sqlServerGrammar) parseTableSuffix(p *parser, _ *Table) error {
	if p.peekKeyword("WITH") && p.peekAt(1).isSymbol("(") {
		p.next()
		return p.skipParenGroup()
	}
	return nil
}

func (sqlServerGrammar) parseBeforeValues(p *parser) error {
	if p.acceptKeyword("OUTPUT") {
		return p.skipUntilKeyword("VALUES", "SELECT", "DEFAULT", "EXEC", "EXECUTE")
	}
	return nil
}

func (sqlServerGrammar) parseExtraClauses(p *parser) error {
	if p.acceptKeyword("OPTION") {
		return p.skipParenGroup()
	}
	return nil
}

func (sqlServerGrammar) allowSetAssignments() bool {
	return false
}
