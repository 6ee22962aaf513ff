package sharding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShardingRule(t *testing.T) {
	rule := orderRule(t, NewIncrementKeyGenerator())

	tr, err := rule.TableRule("t_order")
	require.NoError(t, err)
	assert.Equal(t, "t_order", tr.LogicTable())
	assert.Equal(t, []string{"ds_0", "ds_1"}, tr.DataSourceNames())
	assert.Equal(t, []DataNode{
		{"ds_0", "t_order_0"}, {"ds_1", "t_order_0"},
		{"ds_0", "t_order_1"}, {"ds_1", "t_order_1"},
	}, tr.DataNodes())
	assert.Equal(t, []string{"t_order_0", "t_order_1"}, tr.ActualTables("ds_1"))
	assert.Empty(t, tr.ActualTables("ds_9"))
	assert.Equal(t, []string{"order_id"}, tr.AutoIncrementColumns())
	assert.True(t, tr.isAutoIncrement("ORDER_ID"))
	assert.Equal(t, []string{"order_id"}, tr.TableStrategy().Columns)
	assert.Equal(t, []string{"user_id"}, tr.DatabaseStrategy().Columns)

	cfg, err := rule.TableRule("t_config")
	require.NoError(t, err)
	assert.Equal(t, []DataNode{{"ds_0", "t_config"}}, cfg.DataNodes())
	assert.Nil(t, cfg.TableStrategy())

	_, err = rule.TableRule("T_ORDER")
	assert.ErrorIs(t, err, ErrUnknownTable)
	found, ok := rule.findTableRule("T_ORDER")
	assert.True(t, ok)
	assert.Same(t, tr, found)

	dialect, err := rule.DatabaseType()
	require.NoError(t, err)
	assert.Equal(t, DialectMySQL, dialect)
}

func TestExplicitDataNodes(t *testing.T) {
	rule, err := NewShardingRule(ShardingRuleConfig{
		DataSourceRule: newTestDataSourceRule(t, "oracle", "ds_0", "ds_0", "ds_1"),
		TableRules: []TableRuleConfig{{
			LogicTable:   "t_order",
			ActualTables: []string{"ds_0.t_order_a", "ds_1.t_order_b", "ds_1.t_order_c"},
		}},
	})
	require.NoError(t, err)

	tr, err := rule.TableRule("t_order")
	require.NoError(t, err)
	assert.Equal(t, []string{"t_order_a"}, tr.ActualTables("ds_0"))
	assert.Equal(t, []string{"t_order_b", "t_order_c"}, tr.ActualTables("ds_1"))
	assert.Equal(t, "ds_1.t_order_c", tr.DataNodes()[2].String())
}

func TestShardingRuleValidation(t *testing.T) {
	dsRule := newTestDataSourceRule(t, "mysql", "ds_0", "ds_0", "ds_1")

	tests := []struct {
		name   string
		tables []TableRuleConfig
	}{
		{"missing logic table", []TableRuleConfig{{ActualTables: []string{"t"}}}},
		{"no actual tables", []TableRuleConfig{{LogicTable: "t"}}},
		{"unknown data source", []TableRuleConfig{{LogicTable: "t", ActualTables: []string{"t"}, DataSources: []string{"ds_9"}}}},
		{"duplicate node", []TableRuleConfig{{LogicTable: "t", ActualTables: []string{"t_0", "ds_0.t_0"}}}},
		{"strategy without columns", []TableRuleConfig{{
			LogicTable: "t", ActualTables: []string{"t_0", "t_1"},
			TableStrategy: NewShardingStrategy(nil, ModAlgorithm()),
		}}},
		{"undeclared sharding column", []TableRuleConfig{{
			LogicTable: "t", ActualTables: []string{"t_0", "t_1"}, Columns: []string{"id"},
			TableStrategy: NewShardingStrategy([]string{"user_id"}, ModAlgorithm()),
		}}},
		{"undeclared auto-increment column", []TableRuleConfig{{
			LogicTable: "t", ActualTables: []string{"t"}, Columns: []string{"id"},
			AutoIncrementColumns: []string{"seq"},
		}}},
		{"duplicate auto-increment column", []TableRuleConfig{{
			LogicTable: "t", ActualTables: []string{"t"}, AutoIncrementColumns: []string{"id", "ID"},
		}}},
		{"empty auto-increment column", []TableRuleConfig{{
			LogicTable: "t", ActualTables: []string{"t"}, AutoIncrementColumns: []string{""},
		}}},
		{"duplicate logic table", []TableRuleConfig{
			{LogicTable: "t", ActualTables: []string{"t"}},
			{LogicTable: "t", ActualTables: []string{"t_other"}},
		}},
		{"logic tables differing in case", []TableRuleConfig{
			{LogicTable: "t_order", ActualTables: []string{"t_order"}},
			{LogicTable: "T_ORDER", ActualTables: []string{"T_ORDER_0"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShardingRule(ShardingRuleConfig{
				DataSourceRule: dsRule,
				TableRules:     tt.tables,
				KeyGenerator:   NewIncrementKeyGenerator(),
			})
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}

	_, err := NewShardingRule(ShardingRuleConfig{})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestShardingRuleDefaultKeyGenerator(t *testing.T) {
	previous := GetConfig()
	defer SetConfig(previous)

	cfg := DefaultConfig()
	cfg.KeyGenerator = KeyGeneratorConfig{Type: KeyGeneratorUUID}
	SetConfig(cfg)

	rule, err := NewShardingRule(ShardingRuleConfig{
		DataSourceRule: newTestDataSourceRule(t, "mysql", "", "ds"),
		TableRules: []TableRuleConfig{{
			LogicTable:           "t_doc",
			ActualTables:         []string{"t_doc"},
			AutoIncrementColumns: []string{"id"},
		}},
	})
	require.NoError(t, err)

	ctx, err := Parse(rule, DialectMySQL, nil, "INSERT INTO t_doc (title) VALUES ('a')")
	require.NoError(t, err)
	assert.IsType(t, "", ctx.GeneratedKeys["id"])
	assert.Len(t, ctx.GeneratedKeys["id"], 36)
}
