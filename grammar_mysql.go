package sharding

// mysqlGrammar covers MySQL, MariaDB and H2 in MySQL mode.
//
//	INSERT [LOW_PRIORITY | DELAYED | HIGH_PRIORITY] [IGNORE] [INTO] tbl
//	    [PARTITION (p1, ...)]
//	    {(cols) VALUE[S] (row) | SET col = value, ...}
//	    [AS alias [(cols)]] [ON DUPLICATE KEY UPDATE ...]
type mysqlGrammar struct{}

func (mysqlGrammar) lexOptions() lexOptions {
	return lexOptions{doubleQuoteString: true, hashComment: true, backslashEscape: true}
}

func (mysqlGrammar) parseInsertModifiers(p *parser) error {
	for p.peekKeyword("LOW_PRIORITY", "DELAYED", "HIGH_PRIORITY") {
		p.next()
	}
	p.acceptKeyword("IGNORE")
	p.acceptKeyword("INTO")
	return nil
}

func (mysqlGrammar) parseTableSuffix(p *parser, _ *Table) error {
	if p.acceptKeyword("PARTITION") {
		return p.skipParenGroup()
	}
	return nil
}

func (mysqlGrammar) parseBeforeValues(*parser) error {
	return nil
}

func (mysqlGrammar) parseExtraClauses(p *parser) error {
	if p.acceptKeyword("AS") {
		if t := p.next(); !isName(t) {
			return p.errorAt(t, "expected row alias")
		}
		if p.peek().isSymbol("(") {
			if err := p.skipParenGroup(); err != nil {
				return err
			}
		}
	}
	if p.acceptKeyword("ON") {
		for _, kw := range []string{"DUPLICATE", "KEY", "UPDATE"} {
			if err := p.expectKeyword(kw); err != nil {
				return err
			}
		}
		p.skipToEnd()
	}
	return nil
}

func (mysqlGrammar) allowSetAssignments() bool {
	return true
}
