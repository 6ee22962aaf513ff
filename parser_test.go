package sharding

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conditionValues(cc *ConditionContext) map[string][]interface{} {
	out := map[string][]interface{}{}
	for _, c := range cc.AllConditions() {
		out[c.Column.ColumnName] = c.Values
	}
	return out
}

func TestParseInsertWithLiterals(t *testing.T) {
	ctx, err := Parse(xxxRule(t), DialectMySQL, nil, "INSERT INTO TABLE_XXX (field1, field2) VALUES (10, 1)")
	require.NoError(t, err)

	assert.Equal(t, StatementInsert, ctx.Type)
	assert.Equal(t, "TABLE_XXX", ctx.Table.Name)
	assert.Empty(t, ctx.Table.Alias)
	assert.Equal(t, []string{"field1", "field2"}, ctx.Columns)
	require.Len(t, ctx.ConditionContexts, 1)

	conditions := ctx.ConditionContexts[0].AllConditions()
	require.Len(t, conditions, 2)
	assert.Equal(t, Condition{Column: Column{"TABLE_XXX", "field1"}, Operator: OperatorEqual, Values: []interface{}{int64(10)}}, conditions[0])
	assert.Equal(t, Condition{Column: Column{"TABLE_XXX", "field2"}, Operator: OperatorEqual, Values: []interface{}{int64(1)}}, conditions[1])
	assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] (field1, field2) VALUES (10, 1)", ctx.SQL())
}

func TestParseInsertWithParameters(t *testing.T) {
	ctx, err := Parse(xxxRule(t), DialectMySQL, []interface{}{10, 1}, "INSERT INTO TABLE_XXX (field1, field2) VALUES (?, ?)")
	require.NoError(t, err)

	conditions := ctx.ConditionContexts[0].AllConditions()
	require.Len(t, conditions, 2)
	assert.Equal(t, []interface{}{10}, conditions[0].Values)
	assert.Equal(t, []interface{}{1}, conditions[1].Values)
	assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] (field1, field2) VALUES (?, ?)", ctx.SQL())
	assert.Equal(t, []interface{}{10, 1}, ctx.Parameters)
}

func TestParseInsertGeneratesAutoIncrementColumns(t *testing.T) {
	t.Run("literal", func(t *testing.T) {
		ctx, err := Parse(xxxRule(t, "field1", "field2"), DialectMySQL, nil, "INSERT INTO TABLE_XXX (field1) VALUES (10)")
		require.NoError(t, err)

		assert.Equal(t, []string{"field1", "field2"}, ctx.Columns)
		assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] (field1, field2) VALUES (10, 1)", ctx.SQL())
		assert.Equal(t, map[string]interface{}{"field2": int64(1)}, ctx.GeneratedKeys)

		conditions := ctx.ConditionContexts[0].AllConditions()
		require.Len(t, conditions, 2)
		assert.Equal(t, "field2", conditions[1].Column.ColumnName)
		assert.Equal(t, []interface{}{ctx.GeneratedKeys["field2"]}, conditions[1].Values)
	})

	t.Run("parameter", func(t *testing.T) {
		ctx, err := Parse(xxxRule(t, "field1", "field2"), DialectMySQL, []interface{}{10}, "INSERT INTO TABLE_XXX (`field1`) VALUES (?)")
		require.NoError(t, err)

		assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] (`field1`, `field2`) VALUES (?, ?)", ctx.SQL())
		assert.Equal(t, []interface{}{10, int64(1)}, ctx.Parameters)
		assert.Equal(t, ValueParameter, ctx.Values[1].Kind)
		assert.Equal(t, 1, ctx.Values[1].ParamIndex)
	})

	t.Run("declaration order", func(t *testing.T) {
		ctx, err := Parse(xxxRule(t, "field2", "field1"), DialectGeneric, nil, "INSERT INTO TABLE_XXX (field3) VALUES ('x')")
		require.NoError(t, err)

		assert.Equal(t, []string{"field3", "field2", "field1"}, ctx.Columns)
		assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] (field3, field2, field1) VALUES ('x', 1, 2)", ctx.SQL())
	})

	t.Run("explicit value kept", func(t *testing.T) {
		ctx, err := Parse(xxxRule(t, "field1"), DialectGeneric, nil, "INSERT INTO TABLE_XXX (FIELD1) VALUES (7)")
		require.NoError(t, err)

		assert.Nil(t, ctx.GeneratedKeys)
		assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] (FIELD1) VALUES (7)", ctx.SQL())
	})

	t.Run("set form", func(t *testing.T) {
		ctx, err := Parse(xxxRule(t, "field2"), DialectMySQL, nil, "INSERT INTO TABLE_XXX SET field1 = 10")
		require.NoError(t, err)

		assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] SET field1 = 10, field2 = 1", ctx.SQL())
		assert.Equal(t, map[string][]interface{}{"field1": {int64(10)}, "field2": {int64(1)}}, conditionValues(ctx.ConditionContexts[0]))
	})

	t.Run("postgresql markers", func(t *testing.T) {
		ctx, err := Parse(xxxRule(t, "field2"), DialectPostgreSQL, []interface{}{10}, "INSERT INTO TABLE_XXX (field1) VALUES ($1)")
		require.NoError(t, err)

		assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] (field1, field2) VALUES ($1, $2)", ctx.SQL())
	})

	t.Run("sqlserver markers", func(t *testing.T) {
		ctx, err := Parse(xxxRule(t, "field2"), DialectSQLServer, []interface{}{10}, "INSERT INTO TABLE_XXX ([field1]) VALUES (@p1)")
		require.NoError(t, err)

		assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] ([field1], [field2]) VALUES (@p1, @p2)", ctx.SQL())
		assert.Equal(t, []interface{}{10, int64(1)}, ctx.Parameters)
		assert.Equal(t, map[string][]interface{}{"field1": {10}, "field2": {int64(1)}}, conditionValues(ctx.ConditionContexts[0]))
	})

	t.Run("oracle numbered binds", func(t *testing.T) {
		ctx, err := Parse(xxxRule(t, "field2"), DialectOracle, []interface{}{10}, "INSERT INTO TABLE_XXX (field1) VALUES (:1)")
		require.NoError(t, err)

		assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] (field1, field2) VALUES (:1, :2)", ctx.SQL())
	})

	t.Run("oracle named binds", func(t *testing.T) {
		ctx, err := Parse(xxxRule(t, "field2", "field3"), DialectOracle, []interface{}{10},
			"INSERT INTO TABLE_XXX (field1) VALUES (:gen_key2)")
		require.NoError(t, err)

		assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] (field1, field2, field3) VALUES (:gen_key2, :gen_key2_, :gen_key3)", ctx.SQL())
		assert.Equal(t, []interface{}{10, int64(1), int64(2)}, ctx.Parameters)
		assert.Equal(t, []int{0, 1, 2}, []int{ctx.Values[0].ParamIndex, ctx.Values[1].ParamIndex, ctx.Values[2].ParamIndex})
	})

	t.Run("unbound markers", func(t *testing.T) {
		_, err := Parse(xxxRule(t, "field2"), DialectMySQL, nil, "INSERT INTO TABLE_XXX (field1) VALUES (?)")
		assert.ErrorIs(t, err, ErrParameterIndex)
	})
}

func TestParseInsertWithSQLServerMarkers(t *testing.T) {
	ctx, err := Parse(xxxRule(t), DialectSQLServer, []interface{}{10, 1}, "INSERT INTO TABLE_XXX (field1, field2) VALUES (@p1, @p2)")
	require.NoError(t, err)

	assert.Equal(t, ValueParameter, ctx.Values[0].Kind)
	assert.Equal(t, map[string][]interface{}{"field1": {10}, "field2": {1}}, conditionValues(ctx.ConditionContexts[0]))
	assert.Equal(t, "INSERT INTO [Token(TABLE_XXX)] (field1, field2) VALUES (@p1, @p2)", ctx.SQL())
}

func TestParseInsertRejectsUnsupportedShapes(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		sql     string
	}{
		{"multi-row mysql", DialectMySQL, "INSERT INTO TABLE_XXX (field1, field2) VALUES (1,'a'), (2,'b')"},
		{"multi-row postgresql", DialectPostgreSQL, "INSERT INTO TABLE_XXX (field1, field2) VALUES (1,'a'), (2,'b')"},
		{"multi-row oracle", DialectOracle, "INSERT INTO TABLE_XXX (field1, field2) VALUES (1,'a'), (2,'b')"},
		{"multi-row sqlserver", DialectSQLServer, "INSERT INTO TABLE_XXX (field1, field2) VALUES (1,'a'), (2,'b')"},
		{"multi-row generic", DialectGeneric, "INSERT INTO TABLE_XXX (field1, field2) VALUES (1,'a'), (2,'b')"},
		{"insert all", DialectOracle, "INSERT ALL INTO TABLE_XXX (field1) VALUES (1) INTO TABLE_YYY (field1) VALUES (1) SELECT * FROM dual"},
		{"insert first", DialectOracle, "INSERT FIRST WHEN field1 > 1 THEN INTO TABLE_XXX (field1) VALUES (1) SELECT * FROM dual"},
		{"insert select", DialectMySQL, "INSERT INTO TABLE_XXX (field1) SELECT field1 FROM t_other"},
		{"insert parenthesized select", DialectPostgreSQL, "INSERT INTO TABLE_XXX (SELECT * FROM t_other)"},
		{"missing column list", DialectMySQL, "INSERT INTO TABLE_XXX VALUES (1, 2)"},
		{"multiple statements", DialectMySQL, "INSERT INTO TABLE_XXX (field1) VALUES (1); DELETE FROM TABLE_XXX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := Parse(xxxRule(t), tt.dialect, nil, tt.sql)
			assert.ErrorIs(t, err, ErrUnsupportedStatement)
			assert.Nil(t, ctx)
		})
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"empty", "   "},
		{"count mismatch", "INSERT INTO TABLE_XXX (field1, field2) VALUES (1)"},
		{"unterminated tuple", "INSERT INTO TABLE_XXX (field1) VALUES (1"},
		{"unterminated string", "INSERT INTO TABLE_XXX (field1) VALUES ('abc)"},
		{"missing values", "INSERT INTO TABLE_XXX (field1)"},
		{"trailing garbage", "INSERT INTO TABLE_XXX (field1) VALUES (1) garbage"},
		{"missing table", "INSERT INTO (field1) VALUES (1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(xxxRule(t), DialectGeneric, nil, tt.sql)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSyntax)

			var syntaxErr *SyntaxError
			assert.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, DialectGeneric, syntaxErr.Dialect)
		})
	}
}

func TestParseInsertValueKinds(t *testing.T) {
	ctx, err := Parse(xxxRule(t), DialectMySQL, nil,
		"INSERT INTO TABLE_XXX (a, b, c, d, e, f) VALUES (-5, 'it''s', 1.50, NOW(), NULL, \"dq\")")
	require.NoError(t, err)

	kinds := make([]ValueKind, 0, len(ctx.Values))
	for _, v := range ctx.Values {
		kinds = append(kinds, v.Kind)
	}
	assert.Equal(t, []ValueKind{ValueLiteral, ValueLiteral, ValueLiteral, ValueExpression, ValueLiteral, ValueLiteral}, kinds)
	assert.Equal(t, "NOW()", ctx.Values[3].Text)

	values := conditionValues(ctx.ConditionContexts[0])
	assert.Len(t, values, 5)
	assert.Equal(t, []interface{}{int64(-5)}, values["a"])
	assert.Equal(t, []interface{}{"it's"}, values["b"])
	assert.True(t, decimal.RequireFromString("1.5").Equal(values["c"][0].(decimal.Decimal)))
	assert.NotContains(t, values, "d")
	assert.Equal(t, []interface{}{nil}, values["e"])
	assert.Equal(t, []interface{}{"dq"}, values["f"])
}

func TestParseUnshardedInsert(t *testing.T) {
	ctx, err := Parse(xxxRule(t, "field1"), DialectGeneric, nil, "INSERT INTO t_log VALUES (1, 'x')")
	require.NoError(t, err)

	assert.Equal(t, "t_log", ctx.Table.Name)
	assert.Empty(t, ctx.Columns)
	assert.Zero(t, ctx.ConditionContexts[0].Len())
	assert.Equal(t, "INSERT INTO [Token(t_log)] VALUES (1, 'x')", ctx.SQL())
}

func TestParseKeepsCommentsAndQuotes(t *testing.T) {
	sql := "INSERT /* hint */ INTO \"TABLE_XXX\" (\"field1\") VALUES (1) -- trailing"
	ctx, err := Parse(xxxRule(t, "field2"), DialectPostgreSQL, nil, sql)
	require.NoError(t, err)

	assert.Equal(t, "INSERT /* hint */ INTO [Token(TABLE_XXX)] (\"field1\", \"field2\") VALUES (1, 1) -- trailing", ctx.SQL())
}

func TestParseSelectConditions(t *testing.T) {
	rule := orderRule(t, NewIncrementKeyGenerator())

	t.Run("and chain", func(t *testing.T) {
		ctx, err := Parse(rule, DialectMySQL, nil,
			"SELECT * FROM t_order WHERE user_id = 10 AND order_id BETWEEN 1 AND 3 AND status = 'OK' ORDER BY order_id")
		require.NoError(t, err)

		assert.Equal(t, StatementSelect, ctx.Type)
		conditions := ctx.ConditionContexts[0].AllConditions()
		require.Len(t, conditions, 3)
		assert.Equal(t, OperatorEqual, conditions[0].Operator)
		assert.Equal(t, []interface{}{int64(10)}, conditions[0].Values)
		assert.Equal(t, OperatorBetween, conditions[1].Operator)
		assert.Equal(t, []interface{}{int64(1), int64(3)}, conditions[1].Values)
		assert.Equal(t, []interface{}{"OK"}, conditions[2].Values)
		assert.Equal(t, "SELECT * FROM [Token(t_order)] WHERE user_id = 10 AND order_id BETWEEN 1 AND 3 AND status = 'OK' ORDER BY order_id", ctx.SQL())
	})

	t.Run("or means full route", func(t *testing.T) {
		ctx, err := Parse(rule, DialectMySQL, nil, "SELECT * FROM t_order WHERE user_id = 10 OR order_id = 1")
		require.NoError(t, err)
		assert.Zero(t, ctx.ConditionContexts[0].Len())
	})

	t.Run("alias and join with unsharded table", func(t *testing.T) {
		ctx, err := Parse(rule, DialectMySQL, []interface{}{7},
			"SELECT o.order_id FROM t_order o JOIN t_user u ON o.user_id = u.id WHERE o.user_id = ? AND u.name = 'x'")
		require.NoError(t, err)

		assert.Equal(t, &Table{Name: "t_order", Alias: "o"}, ctx.Table)
		assert.Equal(t, map[string][]interface{}{"user_id": {7}}, conditionValues(ctx.ConditionContexts[0]))
		assert.Equal(t, "SELECT o.order_id FROM [Token(t_order)] o JOIN t_user u ON o.user_id = u.id WHERE o.user_id = ? AND u.name = 'x'", ctx.SQL())
	})

	t.Run("qualified by table name", func(t *testing.T) {
		ctx, err := Parse(rule, DialectPostgreSQL, nil, "SELECT t_order.status FROM t_order WHERE t_order.order_id IN (1, 2)")
		require.NoError(t, err)

		assert.Equal(t, map[string][]interface{}{"order_id": {int64(1), int64(2)}}, conditionValues(ctx.ConditionContexts[0]))
		assert.Equal(t, "SELECT [Token(t_order)].status FROM [Token(t_order)] WHERE [Token(t_order)].order_id IN (1, 2)", ctx.SQL())
	})

	t.Run("two sharded tables", func(t *testing.T) {
		_, err := Parse(rule, DialectMySQL, nil, "SELECT * FROM t_order o JOIN t_config c ON o.status = c.name")
		assert.ErrorIs(t, err, ErrUnsupportedStatement)
	})

	t.Run("unsharded table", func(t *testing.T) {
		ctx, err := Parse(rule, DialectMySQL, nil, "SELECT * FROM t_user WHERE id = 1")
		require.NoError(t, err)
		assert.Equal(t, "t_user", ctx.Table.Name)
		assert.Zero(t, ctx.ConditionContexts[0].Len())
	})
}

func TestParseUpdateAndDelete(t *testing.T) {
	rule := orderRule(t, NewIncrementKeyGenerator())

	ctx, err := Parse(rule, DialectMySQL, []interface{}{"PAID", 7}, "UPDATE t_order SET status = ? WHERE order_id = ?")
	require.NoError(t, err)
	assert.Equal(t, StatementUpdate, ctx.Type)
	assert.Equal(t, map[string][]interface{}{"order_id": {7}}, conditionValues(ctx.ConditionContexts[0]))
	assert.Equal(t, "UPDATE [Token(t_order)] SET status = ? WHERE order_id = ?", ctx.SQL())

	ctx, err = Parse(rule, DialectOracle, []interface{}{1, 2}, "DELETE FROM t_order WHERE order_id IN (:a, :b) AND user_id = :a")
	require.NoError(t, err)
	assert.Equal(t, StatementDelete, ctx.Type)
	assert.Equal(t, map[string][]interface{}{"order_id": {1, 2}, "user_id": {1}}, conditionValues(ctx.ConditionContexts[0]))

	_, err = Parse(rule, DialectMySQL, []interface{}{"PAID"}, "UPDATE t_order SET status = ? WHERE order_id = ?")
	assert.ErrorIs(t, err, ErrParameterIndex)
}

func TestParseOtherStatements(t *testing.T) {
	ctx, err := Parse(nil, DialectMySQL, nil, "SET NAMES utf8mb4")
	require.NoError(t, err)

	assert.Equal(t, StatementOther, ctx.Type)
	assert.Nil(t, ctx.Table)
	assert.Empty(t, ctx.ConditionContexts)
	assert.Equal(t, "SET NAMES utf8mb4", ctx.SQL())
}

func TestParseUnknownDialect(t *testing.T) {
	_, err := Parse(nil, Dialect(42), nil, "SELECT 1")
	assert.Error(t, err)
}
