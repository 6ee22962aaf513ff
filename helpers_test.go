package sharding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDataSource struct {
	product string
	err     error
}

func (f fakeDataSource) DatabaseProductName() (string, error) {
	return f.product, f.err
}

func newTestDataSourceRule(t *testing.T, product, defaultName string, names ...string) *DataSourceRule {
	t.Helper()

	dataSources := make(map[string]DataSource, len(names))
	for _, name := range names {
		dataSources[name] = fakeDataSource{product: product}
	}
	rule, err := NewDataSourceRule(dataSources, defaultName)
	require.NoError(t, err)
	return rule
}

// xxxRule is the single-table rule used by the parser scenarios: TABLE_XXX
// lives on one data source with field1 and field2 generated when omitted.
func xxxRule(t *testing.T, autoIncrement ...string) *ShardingRule {
	t.Helper()

	rule, err := NewShardingRule(ShardingRuleConfig{
		DataSourceRule: newTestDataSourceRule(t, "mysql", "", "ds"),
		TableRules: []TableRuleConfig{{
			LogicTable:           "TABLE_XXX",
			ActualTables:         []string{"TABLE_XXX"},
			AutoIncrementColumns: autoIncrement,
		}},
		KeyGenerator: NewIncrementKeyGenerator(),
	})
	require.NoError(t, err)
	return rule
}

// orderRule shards t_order over ds_0 and ds_1 by user_id and over
// t_order_0 and t_order_1 by order_id. order_id is generated when omitted.
func orderRule(t *testing.T, kg KeyGenerator) *ShardingRule {
	t.Helper()

	rule, err := NewShardingRule(ShardingRuleConfig{
		DataSourceRule: newTestDataSourceRule(t, "mysql", "ds_0", "ds_0", "ds_1"),
		TableRules: []TableRuleConfig{{
			LogicTable:           "t_order",
			ActualTables:         []string{"t_order_0", "t_order_1"},
			Columns:              []string{"order_id", "user_id", "status"},
			DatabaseStrategy:     NewShardingStrategy([]string{"user_id"}, ModAlgorithm()),
			TableStrategy:        NewShardingStrategy([]string{"order_id"}, ModRangeAlgorithm()),
			AutoIncrementColumns: []string{"order_id"},
		}, {
			LogicTable:   "t_config",
			ActualTables: []string{"t_config"},
			DataSources:  []string{"ds_0"},
		}},
		KeyGenerator: kg,
	})
	require.NoError(t, err)
	return rule
}
