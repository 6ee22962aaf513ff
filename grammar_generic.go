package sharding

// genericGrammar accepts the plain SQL-92 form:
//
//	INSERT INTO tbl [(cols)] VALUES (row)
type genericGrammar struct{}

func (genericGrammar) lexOptions() lexOptions {
	return lexOptions{}
}

func (genericGrammar) parseInsertModifiers(p *parser) error {
	return p.expectKeyword("INTO")
}

func (genericGrammar) parseTableSuffix(*parser, *Table) error {
	return nil
}

func (genericGrammar) parseBeforeValues(*parser) error {
	return nil
}

func (genericGrammar) parseExtraClauses(*parser) error {
	return nil
}

func (genericGrammar) allowSetAssignments() bool {
	return false
}
