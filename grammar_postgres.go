package sharding

// postgresGrammar handles PostgreSQL inserts.
//
//	INSERT INTO tbl [AS alias] [(cols)] [OVERRIDING {SYSTEM | USER} VALUE]
//	    VALUES (row) [ON CONFLICT ...] [RETURNING ...]
type postgresGrammar struct{}

func (postgresGrammar) lexOptions() lexOptions {
	return lexOptions{dollarParam: true}
}

func (postgresGrammar) parseInsertModifiers(p *parser) error {
	return p.expectKeyword("INTO")
}

func (postgresGrammar) parseTableSuffix(p *parser, table *Table) error {
	if p.acceptKeyword("AS") {
		t := p.next()
		if !isName(t) {
			return p.errorAt(t, "expected alias")
		}
		table.Alias = t.name()
	}
	return nil
}

func (postgresGrammar) parseBeforeValues(p *parser) error {
	if p.acceptKeyword("OVERRIDING") {
		if !p.acceptKeyword("SYSTEM") && !p.acceptKeyword("USER") {
			return p.errorAt(p.peek(), "expected SYSTEM or USER")
		}
		return p.expectKeyword("VALUE")
	}
	return nil
}

func (postgresGrammar) parseExtraClauses(p *parser) error {
	if p.acceptKeyword("ON") {
		if err := p.expectKeyword("CONFLICT"); err != nil {
			return err
		}
		if err := p.skipUntilKeyword("RETURNING"); err != nil {
			return err
		}
	}
	if p.acceptKeyword("RETURNING") {
		p.skipToEnd()
	}
	return nil
}

func (postgresGrammar) allowSetAssignments() bool {
	return false
}
