package sharding

import (
	"fmt"
	"strings"
)

// RouteUnit is one physical target of a routed statement.
type RouteUnit struct {
	DataSource  string
	LogicTable  string
	ActualTable string
}

func (u RouteUnit) String() string {
	if u.ActualTable == "" {
		return u.DataSource
	}
	return u.DataSource + "." + u.ActualTable
}

// RoutingResult is handed to the execution layer: the ordered targets, the
// rewritten SQL with table tokens, and the final parameter list.
type RoutingResult struct {
	Statement  *StatementContext
	Targets    []RouteUnit
	SQL        string
	Parameters []interface{}
}

// SQLFor renders the statement for one target, replacing the table token
// with the target's physical table.
func (r *RoutingResult) SQLFor(unit RouteUnit) string {
	return r.Statement.Builder.Materialize(map[string]string{unit.LogicTable: unit.ActualTable})
}

// Route computes the physical targets of stmt under rule. Statements on
// tables without a rule go to the default data source under their literal
// name. Inserts must resolve to exactly one target.
func Route(rule *ShardingRule, stmt *StatementContext) (*RoutingResult, error) {
	if rule == nil {
		return nil, fmt.Errorf("%w: sharding rule is required", ErrInvalidRule)
	}
	if stmt == nil || stmt.Builder == nil {
		return nil, fmt.Errorf("%w: statement was not parsed", ErrInternalConsistency)
	}

	result := &RoutingResult{
		Statement:  stmt,
		SQL:        stmt.SQL(),
		Parameters: stmt.Parameters,
	}

	var (
		tr *TableRule
		ok bool
	)
	if stmt.Table != nil {
		tr, ok = rule.findTableRule(stmt.Table.Name)
	}
	if !ok {
		units, err := routeUnsharded(rule, stmt)
		if err != nil {
			return nil, err
		}
		result.Targets = units
		return result, nil
	}

	insert := stmt.Type == StatementInsert
	contexts := stmt.ConditionContexts
	if len(contexts) == 0 {
		contexts = []*ConditionContext{nil}
	}
	for _, cc := range contexts {
		dataSources, err := routeDataSources(rule, tr, cc, insert)
		if err != nil {
			return nil, err
		}
		for _, ds := range dataSources {
			tables, err := routeTables(tr, ds, cc, insert)
			if err != nil {
				return nil, err
			}
			for _, table := range tables {
				unit := RouteUnit{DataSource: ds, LogicTable: tr.logicTable, ActualTable: table}
				if !containsUnit(result.Targets, unit) {
					result.Targets = append(result.Targets, unit)
				}
			}
		}
	}

	if len(result.Targets) == 0 {
		return nil, fmt.Errorf("%w: %s has no data node on the selected data sources", ErrInvalidTarget, tr.logicTable)
	}
	if insert && len(result.Targets) > 1 {
		return nil, unsupported("insert into %s routes to %d targets", tr.logicTable, len(result.Targets))
	}
	return result, nil
}

func routeUnsharded(rule *ShardingRule, stmt *StatementContext) ([]RouteUnit, error) {
	ds := rule.dataSourceRule.DefaultDataSourceName()
	if stmt.Table == nil {
		if ds != "" {
			return []RouteUnit{{DataSource: ds}}, nil
		}
		// broadcast table-less statements (DDL, SET, ...) when there is no default
		var units []RouteUnit
		for _, name := range rule.dataSourceRule.DataSourceNames() {
			units = append(units, RouteUnit{DataSource: name})
		}
		return units, nil
	}

	if ds == "" {
		return nil, fmt.Errorf("%w: %s has no table rule and no default data source is configured", ErrUnknownTable, stmt.Table.Name)
	}
	GetLogger().Info("table %s has no sharding rule, routing to default data source %s", stmt.Table.Name, ds)
	return []RouteUnit{{DataSource: ds, LogicTable: stmt.Table.Name, ActualTable: stmt.Table.Name}}, nil
}

func routeDataSources(rule *ShardingRule, tr *TableRule, cc *ConditionContext, insert bool) ([]string, error) {
	available := tr.DataSourceNames()
	if tr.databaseStrategy != nil {
		return applyStrategy(tr.databaseStrategy, tr.logicTable, available, cc, insert)
	}
	if len(available) == 1 {
		return available, nil
	}
	if def := rule.dataSourceRule.DefaultDataSourceName(); containsString(available, def) {
		return []string{def}, nil
	}
	return nil, unsupported("%s spans data sources [%s] without a database sharding strategy or default", tr.logicTable, strings.Join(available, ", "))
}

func routeTables(tr *TableRule, ds string, cc *ConditionContext, insert bool) ([]string, error) {
	available := tr.ActualTables(ds)
	if len(available) == 0 {
		return nil, nil
	}
	if tr.tableStrategy == nil || tr.tableStrategy.Algorithm.IsNone() {
		if len(available) > 1 {
			GetLogger().Debug("table %s has %d actual tables on %s but no table strategy, using %s",
				tr.logicTable, len(available), ds, available[0])
		}
		return available[:1], nil
	}
	return applyStrategy(tr.tableStrategy, tr.logicTable, available, cc, insert)
}

func applyStrategy(s *ShardingStrategy, logicTable string, available []string, cc *ConditionContext, insert bool) ([]string, error) {
	if s.Algorithm.IsNone() {
		return available[:1], nil
	}
	values := s.shardingValues(logicTable, cc)
	if insert && len(values) < len(s.Columns) {
		return nil, fmt.Errorf("%w: insert into %s must set %s", ErrMissingShardingKey, logicTable, strings.Join(s.Columns, ", "))
	}
	targets, err := s.Algorithm.computeTargets(available, values)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", logicTable, err)
	}
	return targets, nil
}

func containsUnit(units []RouteUnit, u RouteUnit) bool {
	for _, x := range units {
		if x == u {
			return true
		}
	}
	return false
}

// Router bundles a sharding rule with the dialect and parser options used
// for every statement.
type Router struct {
	rule    *ShardingRule
	dialect Dialect
	strict  bool
}

// NewRouter creates a Router. An empty cfg.Dialect derives the dialect from
// the rule's data sources.
func NewRouter(rule *ShardingRule, cfg ParserConfig) (*Router, error) {
	if rule == nil {
		return nil, fmt.Errorf("%w: sharding rule is required", ErrInvalidRule)
	}
	r := &Router{rule: rule, strict: cfg.StrictGrammar}
	var err error
	if cfg.Dialect != "" {
		r.dialect, err = ParseDialect(cfg.Dialect)
	} else {
		r.dialect, err = rule.DatabaseType()
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Router) Dialect() Dialect {
	return r.dialect
}

func (r *Router) Rule() *ShardingRule {
	return r.rule
}

// Parse parses sql, checking it against the full dialect grammar first when
// strict grammar is enabled.
func (r *Router) Parse(sql string, params ...interface{}) (*StatementContext, error) {
	if r.strict {
		if err := ValidateGrammar(r.dialect, sql); err != nil {
			return nil, err
		}
	}
	stmt, err := Parse(r.rule, r.dialect, params, sql)
	if err != nil {
		return nil, err
	}
	GetLogger().Debug("parsed %s on %q (%s)", stmt.Type, stmt.LogicTable(), r.dialect)
	GetLogger().Trace("rewritten: %s", stmt.SQL())
	return stmt, nil
}

// Route parses and routes sql.
func (r *Router) Route(sql string, params ...interface{}) (*RoutingResult, error) {
	stmt, err := r.Parse(sql, params...)
	if err != nil {
		return nil, err
	}
	result, err := Route(r.rule, stmt)
	if err != nil {
		return nil, err
	}
	GetLogger().Debug("routed %s on %q to %v", stmt.Type, stmt.LogicTable(), result.Targets)
	return result, nil
}
