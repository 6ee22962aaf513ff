package sharding

import (
	"fmt"
	"strings"
)

// DataNode is one physical table on one data source.
type DataNode struct {
	DataSource string
	Table      string
}

func (n DataNode) String() string {
	return n.DataSource + "." + n.Table
}

// TableRuleConfig describes how one logical table is partitioned.
type TableRuleConfig struct {
	// LogicTable is the table name as written in application SQL.
	LogicTable string

	// ActualTables lists the physical table names. Each name is placed on every
	// data source of the rule, unless it is written as "ds.table", in which
	// case it only lives on that data source.
	ActualTables []string

	// DataSources restricts the rule to a subset of the DataSourceRule.
	// Empty means all data sources.
	DataSources []string

	// Columns optionally declares the logical schema. When set, sharding and
	// auto-increment columns must be members.
	Columns []string

	DatabaseStrategy *ShardingStrategy
	TableStrategy    *ShardingStrategy

	// AutoIncrementColumns are filled by the key generator when an insert
	// omits them, in the order declared here.
	AutoIncrementColumns []string

	// KeyGenerator overrides the ShardingRule's generator for this table.
	KeyGenerator KeyGenerator
}

// TableRule is the compiled, read-only form of a TableRuleConfig.
type TableRule struct {
	logicTable           string
	dataNodes            []DataNode
	dataSourceNames      []string
	columns              []string
	databaseStrategy     *ShardingStrategy
	tableStrategy        *ShardingStrategy
	autoIncrementColumns []string
	keyGenerator         KeyGenerator
}

func (t *TableRule) LogicTable() string {
	return t.logicTable
}

// DataNodes returns every physical table of the rule.
func (t *TableRule) DataNodes() []DataNode {
	out := make([]DataNode, len(t.dataNodes))
	copy(out, t.dataNodes)
	return out
}

// DataSourceNames returns the data sources holding at least one actual table,
// in declaration order.
func (t *TableRule) DataSourceNames() []string {
	out := make([]string, len(t.dataSourceNames))
	copy(out, t.dataSourceNames)
	return out
}

// ActualTables returns the physical tables of the rule on dataSource.
func (t *TableRule) ActualTables(dataSource string) []string {
	var tables []string
	for _, n := range t.dataNodes {
		if n.DataSource == dataSource {
			tables = append(tables, n.Table)
		}
	}
	return tables
}

func (t *TableRule) AutoIncrementColumns() []string {
	out := make([]string, len(t.autoIncrementColumns))
	copy(out, t.autoIncrementColumns)
	return out
}

func (t *TableRule) TableStrategy() *ShardingStrategy {
	return t.tableStrategy
}

func (t *TableRule) DatabaseStrategy() *ShardingStrategy {
	return t.databaseStrategy
}

func (t *TableRule) isAutoIncrement(column string) bool {
	for _, c := range t.autoIncrementColumns {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

func (t *TableRule) generateKey(column string) (interface{}, error) {
	v, err := t.keyGenerator.GenerateKey(t.logicTable, column)
	if err != nil {
		return nil, fmt.Errorf("generate key for %s.%s: %w", t.logicTable, column, err)
	}
	return v, nil
}

// ShardingRuleConfig aggregates everything NewShardingRule compiles.
type ShardingRuleConfig struct {
	DataSourceRule *DataSourceRule
	TableRules     []TableRuleConfig

	// KeyGenerator is the default id-generation policy. Defaults to the
	// generator described by the active ShardingConfig.
	KeyGenerator KeyGenerator
}

// ShardingRule is built once at configuration time and is read-only
// afterwards, so it can be shared by concurrent parses without locking.
type ShardingRule struct {
	dataSourceRule *DataSourceRule
	tableRules     map[string]*TableRule
	keyGenerator   KeyGenerator
}

// NewShardingRule validates cfg and compiles it into a ShardingRule.
func NewShardingRule(cfg ShardingRuleConfig) (*ShardingRule, error) {
	if cfg.DataSourceRule == nil {
		return nil, fmt.Errorf("%w: data source rule is required", ErrInvalidRule)
	}

	r := &ShardingRule{
		dataSourceRule: cfg.DataSourceRule,
		tableRules:     make(map[string]*TableRule, len(cfg.TableRules)),
		keyGenerator:   cfg.KeyGenerator,
	}
	if r.keyGenerator == nil {
		kg, err := NewKeyGenerator(GetConfig().KeyGenerator)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		r.keyGenerator = kg
	}

	for _, tc := range cfg.TableRules {
		tr, err := r.compileTableRule(tc)
		if err != nil {
			return nil, err
		}
		for name := range r.tableRules {
			if strings.EqualFold(name, tr.logicTable) {
				return nil, fmt.Errorf("%w: duplicate logic table %s", ErrInvalidRule, tr.logicTable)
			}
		}
		r.tableRules[tr.logicTable] = tr
	}
	return r, nil
}

func (r *ShardingRule) compileTableRule(tc TableRuleConfig) (*TableRule, error) {
	if tc.LogicTable == "" {
		return nil, fmt.Errorf("%w: logic table name is required", ErrInvalidRule)
	}
	if len(tc.ActualTables) == 0 {
		return nil, fmt.Errorf("%w: table %s has no actual tables", ErrInvalidRule, tc.LogicTable)
	}

	dataSources := tc.DataSources
	if len(dataSources) == 0 {
		dataSources = r.dataSourceRule.DataSourceNames()
	}
	for _, ds := range dataSources {
		if _, ok := r.dataSourceRule.DataSource(ds); !ok {
			return nil, fmt.Errorf("%w: table %s references unknown data source %s", ErrInvalidRule, tc.LogicTable, ds)
		}
	}

	tr := &TableRule{
		logicTable:           tc.LogicTable,
		columns:              append([]string(nil), tc.Columns...),
		databaseStrategy:     tc.DatabaseStrategy,
		tableStrategy:        tc.TableStrategy,
		autoIncrementColumns: append([]string(nil), tc.AutoIncrementColumns...),
		keyGenerator:         tc.KeyGenerator,
	}
	if tr.keyGenerator == nil {
		tr.keyGenerator = r.keyGenerator
	}

	seen := make(map[DataNode]struct{})
	addNode := func(n DataNode) error {
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: table %s declares %s twice", ErrInvalidRule, tc.LogicTable, n)
		}
		seen[n] = struct{}{}
		tr.dataNodes = append(tr.dataNodes, n)
		return nil
	}
	for _, actual := range tc.ActualTables {
		if idx := strings.Index(actual, "."); idx > 0 {
			if _, ok := r.dataSourceRule.DataSource(actual[:idx]); ok {
				if err := addNode(DataNode{DataSource: actual[:idx], Table: actual[idx+1:]}); err != nil {
					return nil, err
				}
				continue
			}
		}
		for _, ds := range dataSources {
			if err := addNode(DataNode{DataSource: ds, Table: actual}); err != nil {
				return nil, err
			}
		}
	}
	for _, n := range tr.dataNodes {
		if !containsFold(tr.dataSourceNames, n.DataSource) {
			tr.dataSourceNames = append(tr.dataSourceNames, n.DataSource)
		}
	}

	for _, strategy := range []*ShardingStrategy{tr.databaseStrategy, tr.tableStrategy} {
		if strategy == nil {
			continue
		}
		if err := strategy.validate(); err != nil {
			return nil, fmt.Errorf("table %s: %w", tc.LogicTable, err)
		}
		if len(tr.columns) == 0 {
			continue
		}
		for _, c := range strategy.Columns {
			if !containsFold(tr.columns, c) {
				return nil, fmt.Errorf("%w: table %s sharding column %s is not a declared column", ErrInvalidRule, tc.LogicTable, c)
			}
		}
	}

	for i, c := range tr.autoIncrementColumns {
		if c == "" {
			return nil, fmt.Errorf("%w: table %s has an empty auto-increment column", ErrInvalidRule, tc.LogicTable)
		}
		if containsFold(tr.autoIncrementColumns[:i], c) {
			return nil, fmt.Errorf("%w: table %s declares auto-increment column %s twice", ErrInvalidRule, tc.LogicTable, c)
		}
		if len(tr.columns) > 0 && !containsFold(tr.columns, c) {
			return nil, fmt.Errorf("%w: table %s auto-increment column %s is not a declared column", ErrInvalidRule, tc.LogicTable, c)
		}
	}
	return tr, nil
}

// TableRule looks up the rule for logicTable by exact name.
func (r *ShardingRule) TableRule(logicTable string) (*TableRule, error) {
	tr, ok := r.tableRules[logicTable]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, logicTable)
	}
	return tr, nil
}

// findTableRule matches exactly first, then case-insensitively. Logic table
// names are unique ignoring case, so the fallback has at most one match.
func (r *ShardingRule) findTableRule(logicTable string) (*TableRule, bool) {
	if tr, ok := r.tableRules[logicTable]; ok {
		return tr, true
	}
	for name, tr := range r.tableRules {
		if strings.EqualFold(name, logicTable) {
			return tr, true
		}
	}
	return nil, false
}

func (r *ShardingRule) DataSourceRule() *DataSourceRule {
	return r.dataSourceRule
}

// DatabaseType derives the SQL dialect from the configured data sources.
func (r *ShardingRule) DatabaseType() (Dialect, error) {
	return r.dataSourceRule.DatabaseType()
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
