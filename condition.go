package sharding

import (
	"fmt"
	"strings"
)

// extractInsertConditions builds the single condition context of an insert:
// one EQUAL condition per column, in column order. Values that are not a
// literal or a parameter marker produce no condition.
func (p *parser) extractInsertConditions(logicTable string, columns []string, values []Value, params []interface{}) (*ConditionContext, error) {
	cc := NewConditionContext()
	if len(columns) == 0 {
		return cc, nil
	}
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%w: %d columns but %d values for %s", ErrInternalConsistency, len(columns), len(values), logicTable)
	}
	for i, column := range columns {
		if values[i].Kind == ValueExpression {
			continue
		}
		v, err := resolveValue(values[i], params)
		if err != nil {
			return nil, err
		}
		cc.Add(Condition{
			Column:   Column{TableName: logicTable, ColumnName: column},
			Operator: OperatorEqual,
			Values:   []interface{}{v},
		})
	}
	return cc, nil
}

// whereEndKeywords close a WHERE clause at depth zero.
var whereEndKeywords = []string{
	"GROUP", "ORDER", "LIMIT", "HAVING", "UNION", "EXCEPT", "INTERSECT", "MINUS",
	"FOR", "RETURNING", "OFFSET", "FETCH", "WINDOW", "OPTION", "LOCK",
}

// extractWhereConditions reads the top-level WHERE clause starting at
// tokens[from] and returns the conditions it places on table. Only
// AND-connected "col = v", "col IN (...)" and "col BETWEEN a AND b" are
// used; a top-level OR yields an empty context, meaning a full route.
func (p *parser) extractWhereConditions(table *Table, from int) (*ConditionContext, error) {
	cc := NewConditionContext()
	where := -1
	depth := 0
	for i := from; i < len(p.tokens); i++ {
		t := p.tokens[i]
		switch {
		case t.isSymbol("("):
			depth++
		case t.isSymbol(")"):
			depth--
		case depth == 0 && t.isKeyword("WHERE"):
			where = i
		}
		if where >= 0 {
			break
		}
	}
	if where < 0 {
		return cc, nil
	}

	var (
		predicates [][]token
		current    []token
		between    bool
	)
	depth = 0
scan:
	for i := where + 1; i < len(p.tokens); i++ {
		t := p.tokens[i]
		switch {
		case t.kind == tokEOF, depth == 0 && t.isSymbol(";"):
			break scan
		case t.isSymbol("("):
			depth++
		case t.isSymbol(")"):
			depth--
			if depth < 0 {
				break scan
			}
		case depth == 0 && t.kind == tokIdent && isOneOf(t, whereEndKeywords):
			break scan
		case depth == 0 && t.isKeyword("OR"):
			return NewConditionContext(), nil
		case depth == 0 && t.isKeyword("BETWEEN"):
			between = true
		case depth == 0 && t.isKeyword("AND"):
			if between {
				between = false
				break
			}
			predicates = append(predicates, current)
			current = nil
			continue
		}
		current = append(current, t)
	}
	predicates = append(predicates, current)

	for _, pred := range predicates {
		c, ok, err := p.parsePredicate(table, pred)
		if err != nil {
			return nil, err
		}
		if ok {
			cc.Add(c)
		}
	}
	return cc, nil
}

func isOneOf(t token, keywords []string) bool {
	for _, kw := range keywords {
		if t.isKeyword(kw) {
			return true
		}
	}
	return false
}

// parsePredicate recognizes a routable predicate on table. ok is false for
// anything else, which is simply not used for routing.
func (p *parser) parsePredicate(table *Table, toks []token) (Condition, bool, error) {
	if len(toks) < 3 || !isName(toks[0]) {
		return Condition{}, false, nil
	}
	column, rest := toks[0], toks[1:]
	if rest[0].isSymbol(".") {
		if len(rest) < 3 || !isName(rest[1]) {
			return Condition{}, false, nil
		}
		qualifier := column.name()
		if !strings.EqualFold(qualifier, table.Name) && !strings.EqualFold(qualifier, table.Alias) {
			return Condition{}, false, nil
		}
		column, rest = rest[1], rest[2:]
	}
	c := Condition{Column: Column{TableName: table.Name, ColumnName: column.name()}}

	switch {
	case rest[0].isSymbol("="):
		v, ok, err := p.routingValue(rest[1:])
		if !ok || err != nil {
			return Condition{}, false, err
		}
		c.Operator, c.Values = OperatorEqual, []interface{}{v}

	case rest[0].isKeyword("IN"):
		if len(rest) < 3 || !rest[1].isSymbol("(") || !rest[len(rest)-1].isSymbol(")") {
			return Condition{}, false, nil
		}
		items := splitTopLevel(rest[2 : len(rest)-1])
		c.Operator = OperatorIn
		for _, item := range items {
			v, ok, err := p.routingValue(item)
			if !ok || err != nil {
				return Condition{}, false, err
			}
			c.Values = append(c.Values, v)
		}

	case rest[0].isKeyword("BETWEEN"):
		and := -1
		for i, t := range rest {
			if t.isKeyword("AND") {
				and = i
				break
			}
		}
		if and < 0 {
			return Condition{}, false, nil
		}
		lower, ok, err := p.routingValue(rest[1:and])
		if !ok || err != nil {
			return Condition{}, false, err
		}
		upper, ok, err := p.routingValue(rest[and+1:])
		if !ok || err != nil {
			return Condition{}, false, err
		}
		c.Operator, c.Values = OperatorBetween, []interface{}{lower, upper}

	default:
		return Condition{}, false, nil
	}
	return c, true, nil
}

// routingValue resolves toks when they form a single literal or parameter.
func (p *parser) routingValue(toks []token) (interface{}, bool, error) {
	if len(toks) == 0 {
		return nil, false, nil
	}
	v := p.classifyValue(toks)
	if v.Kind == ValueExpression {
		return nil, false, nil
	}
	resolved, err := resolveValue(v, p.params)
	if err != nil {
		return nil, false, err
	}
	return resolved, true, nil
}

// splitTopLevel splits toks at commas outside parentheses.
func splitTopLevel(toks []token) [][]token {
	var (
		items   [][]token
		current []token
		depth   int
	)
	for _, t := range toks {
		switch {
		case t.isSymbol("("):
			depth++
		case t.isSymbol(")"):
			depth--
		case depth == 0 && t.isSymbol(","):
			items = append(items, current)
			current = nil
			continue
		}
		current = append(current, t)
	}
	return append(items, current)
}
