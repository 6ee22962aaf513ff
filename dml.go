package sharding

type tableRef struct {
	name  string
	alias string
	index int // token index of the table name
}

// tableRefKeywords are the keywords a table reference follows.
var tableRefKeywords = []string{"FROM", "JOIN", "UPDATE", "INTO", "STRAIGHT_JOIN"}

// aliasStopKeywords can follow a table reference and are never aliases.
var aliasStopKeywords = []string{
	"WHERE", "SET", "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "NATURAL",
	"STRAIGHT_JOIN", "ON", "USING", "GROUP", "ORDER", "LIMIT", "HAVING", "UNION",
	"EXCEPT", "INTERSECT", "MINUS", "FOR", "WINDOW", "OFFSET", "FETCH", "RETURNING",
	"VALUES", "PARTITION", "WITH", "LOCK", "FORCE", "USE", "IGNORE", "OUTPUT",
	"OPTION", "CONNECT", "START", "LATERAL", "TABLESAMPLE", "WHEN", "AND", "OR",
	"NOT", "AS", "SELECT", "OUTER",
}

// parseDML handles SELECT, UPDATE and DELETE. The statement may reference at
// most one sharded logical table; its occurrences become table tokens and its
// WHERE predicates become conditions.
func (p *parser) parseDML(typ StatementType) (*StatementContext, error) {
	refs := p.scanTableReferences()

	var (
		main      *tableRef
		mainRule  *TableRule
		unsharded *tableRef
	)
	for i := range refs {
		ref := &refs[i]
		tr, ok := p.findTableRule(ref.name)
		if !ok {
			if unsharded == nil {
				unsharded = ref
			}
			continue
		}
		if mainRule != nil && mainRule != tr {
			return nil, unsupported("statement references sharded tables %s and %s", mainRule.logicTable, tr.logicTable)
		}
		if mainRule == nil {
			main, mainRule = ref, tr
		}
	}

	ctx := &StatementContext{
		Type:       typ,
		Dialect:    p.dialect,
		Parameters: copyParams(p.params),
	}
	switch {
	case mainRule != nil:
		ctx.Table = &Table{Name: mainRule.logicTable, Alias: main.alias}
		cc, err := p.extractWhereConditions(ctx.Table, 0)
		if err != nil {
			return nil, err
		}
		ctx.ConditionContexts = []*ConditionContext{cc}
	case unsharded != nil:
		ctx.Table = &Table{Name: unsharded.name, Alias: unsharded.alias}
		ctx.ConditionContexts = []*ConditionContext{NewConditionContext()}
	}

	var spans []tableSpan
	if ctx.Table != nil {
		spans = p.tableSpans(ctx.Table.Name)
	}
	ctx.Builder = newSQLBuilder(p.sql, spans, nil)
	return ctx, nil
}

// scanTableReferences finds the tables named after FROM, JOIN, UPDATE and
// INTO, including comma-separated FROM lists. Subqueries are scanned as part
// of the same token stream.
func (p *parser) scanTableReferences() []tableRef {
	var refs []tableRef
	for i := 0; i < len(p.tokens); i++ {
		t := p.tokens[i]
		if t.kind != tokIdent || !isOneOf(t, tableRefKeywords) {
			continue
		}
		commaList := t.isKeyword("FROM")
		j := i + 1
		for {
			ref, next, ok := p.tableRefAt(j)
			if !ok {
				break
			}
			refs = append(refs, ref)
			j = next
			if !commaList || !p.tokens[j].isSymbol(",") {
				break
			}
			j++
		}
		i = j - 1
	}
	return refs
}

// tableRefAt reads "[schema.]name [[AS] alias]" at token index i.
func (p *parser) tableRefAt(i int) (tableRef, int, bool) {
	t := p.tokens[i]
	if !isName(t) || (t.kind == tokIdent && isOneOf(t, aliasStopKeywords)) {
		return tableRef{}, i, false
	}
	nameIdx := i
	i++
	for p.tokens[i].isSymbol(".") && isName(p.tokens[i+1]) {
		nameIdx = i + 1
		i += 2
	}
	if p.tokens[i].isSymbol("(") {
		// function call, e.g. EXTRACT(YEAR FROM ts) or a table function
		return tableRef{}, i, false
	}
	ref := tableRef{name: p.tokens[nameIdx].name(), index: nameIdx}

	if p.tokens[i].isKeyword("AS") && isName(p.tokens[i+1]) {
		ref.alias = p.tokens[i+1].name()
		return ref, i + 2, true
	}
	next := p.tokens[i]
	if next.kind == tokQuotedIdent || (next.kind == tokIdent && !isOneOf(next, aliasStopKeywords)) {
		ref.alias = next.name()
		i++
	}
	return ref, i, true
}
