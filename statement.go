package sharding

import (
	"fmt"
	"strings"
)

// StatementType classifies a parsed statement.
type StatementType int

const (
	StatementOther StatementType = iota
	StatementInsert
	StatementSelect
	StatementUpdate
	StatementDelete
)

func (t StatementType) String() string {
	switch t {
	case StatementInsert:
		return "INSERT"
	case StatementSelect:
		return "SELECT"
	case StatementUpdate:
		return "UPDATE"
	case StatementDelete:
		return "DELETE"
	default:
		return "OTHER"
	}
}

// Table is the logical table a statement targets.
type Table struct {
	Name  string
	Alias string
}

// Column references a column of a logical table.
type Column struct {
	TableName  string
	ColumnName string
}

func (c Column) String() string {
	return c.TableName + "." + c.ColumnName
}

// ConditionOperator is the comparison of a Condition.
type ConditionOperator int

const (
	OperatorEqual ConditionOperator = iota
	OperatorIn
	OperatorBetween
)

func (o ConditionOperator) String() string {
	switch o {
	case OperatorIn:
		return "IN"
	case OperatorBetween:
		return "BETWEEN"
	default:
		return "="
	}
}

// Condition is one routing constraint extracted from a statement. EQUAL
// carries one value, IN one or more, BETWEEN exactly two (lower, upper).
type Condition struct {
	Column   Column
	Operator ConditionOperator
	Values   []interface{}
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Column, c.Operator, c.Values)
}

func (c Condition) shardingValue() ShardingValue {
	v := ShardingValue{LogicTable: c.Column.TableName, Column: c.Column.ColumnName}
	if c.Operator == OperatorBetween && len(c.Values) == 2 {
		v.Range = &ValueRange{Lower: c.Values[0], Upper: c.Values[1]}
		return v
	}
	v.Values = append([]interface{}(nil), c.Values...)
	return v
}

// ConditionContext is the ordered set of conditions for one logical row.
type ConditionContext struct {
	conditions []Condition
}

func NewConditionContext() *ConditionContext {
	return &ConditionContext{}
}

// Add appends c. A later condition on the same column takes precedence in Find.
func (cc *ConditionContext) Add(c Condition) {
	cc.conditions = append(cc.conditions, c)
}

// Find returns the condition on logicTable.column. Column names compare
// case-insensitively.
func (cc *ConditionContext) Find(logicTable, column string) (Condition, bool) {
	for i := len(cc.conditions) - 1; i >= 0; i-- {
		c := cc.conditions[i]
		if c.Column.TableName == logicTable && strings.EqualFold(c.Column.ColumnName, column) {
			return c, true
		}
	}
	return Condition{}, false
}

// AllConditions returns the conditions in extraction order.
func (cc *ConditionContext) AllConditions() []Condition {
	out := make([]Condition, len(cc.conditions))
	copy(out, cc.conditions)
	return out
}

func (cc *ConditionContext) Len() int {
	return len(cc.conditions)
}

// ValueKind tells how an insert value was written.
type ValueKind int

const (
	ValueLiteral ValueKind = iota
	ValueParameter
	ValueExpression
)

// Value is one item of an insert's value list.
type Value struct {
	Kind ValueKind
	// Text is the value as written (or generated) in the SQL.
	Text string
	// Literal holds the evaluated literal for ValueLiteral.
	Literal interface{}
	// ParamIndex is the zero-based parameter ordinal for ValueParameter.
	ParamIndex int
}

// StatementContext is the parser output consumed by Route.
type StatementContext struct {
	Type    StatementType
	Dialect Dialect

	// Table is nil for statements that reference no table.
	Table *Table

	// Columns and Values are populated for inserts, after auto-increment
	// injection.
	Columns []string
	Values  []Value

	// ConditionContexts holds one entry per routed row. Inserts carry exactly
	// one; other statements carry one (possibly empty) context from WHERE.
	ConditionContexts []*ConditionContext

	// Parameters is the bound parameter list, extended with generated keys
	// when injection used parameter markers.
	Parameters []interface{}

	// GeneratedKeys maps injected auto-increment columns to their values.
	GeneratedKeys map[string]interface{}

	Builder *SQLBuilder
}

// SQL renders the statement with table references shown as tokens.
func (s *StatementContext) SQL() string {
	if s.Builder == nil {
		return ""
	}
	return s.Builder.String()
}

// LogicTable returns the statement's logical table name, or "".
func (s *StatementContext) LogicTable() string {
	if s.Table == nil {
		return ""
	}
	return s.Table.Name
}
