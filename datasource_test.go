package sharding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataSourceRule(t *testing.T) {
	rule := newTestDataSourceRule(t, "mysql", "", "ds_b", "ds_a")
	assert.Equal(t, []string{"ds_a", "ds_b"}, rule.DataSourceNames())
	assert.Empty(t, rule.DefaultDataSourceName())

	single := newTestDataSourceRule(t, "mysql", "", "only")
	assert.Equal(t, "only", single.DefaultDataSourceName())

	_, ok := rule.DataSource("ds_a")
	assert.True(t, ok)
	_, ok = rule.DataSource("ds_c")
	assert.False(t, ok)

	_, err := NewDataSourceRule(nil, "")
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = NewDataSourceRule(map[string]DataSource{"ds": fakeDataSource{product: "mysql"}}, "other")
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = NewDataSourceRule(map[string]DataSource{"ds": nil}, "")
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestDataSourceRuleDatabaseType(t *testing.T) {
	tests := []struct {
		product string
		want    Dialect
	}{
		{"mysql", DialectMySQL},
		{"H2", DialectMySQL},
		{"postgres", DialectPostgreSQL},
		{"Microsoft SQL Server", DialectSQLServer},
		{"Oracle", DialectOracle},
		{"sqlite", DialectGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.product, func(t *testing.T) {
			got, err := newTestDataSourceRule(t, tt.product, "", "a", "b").DatabaseType()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	mixed, err := NewDataSourceRule(map[string]DataSource{
		"a": fakeDataSource{product: "mysql"},
		"b": fakeDataSource{product: "postgres"},
	}, "a")
	require.NoError(t, err)
	_, err = mixed.DatabaseType()
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = newTestDataSourceRule(t, "db2", "", "a").DatabaseType()
	assert.Error(t, err)

	broken, err := NewDataSourceRule(map[string]DataSource{"a": fakeDataSource{err: errors.New("closed")}}, "")
	require.NoError(t, err)
	_, err = broken.DatabaseType()
	assert.ErrorContains(t, err, "closed")
}

func TestParseDialect(t *testing.T) {
	for name, want := range map[string]Dialect{
		"":           DialectGeneric,
		"MySQL":      DialectMySQL,
		"oracle":     DialectOracle,
		"mssql":      DialectSQLServer,
		"postgresql": DialectPostgreSQL,
	} {
		got, err := ParseDialect(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseDialect("informix")
	assert.Error(t, err)
	assert.Equal(t, "sqlserver", DialectSQLServer.String())
}

func TestOpenDataSource(t *testing.T) {
	tests := []struct {
		dialect Dialect
		dsn     string
		product string
	}{
		{DialectMySQL, "user:pass@tcp(127.0.0.1:3306)/orders?parseTime=true", "mysql"},
		{DialectPostgreSQL, "host=127.0.0.1 user=gorm password=gorm dbname=orders port=5432 sslmode=disable", "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			ds, err := OpenDataSource(tt.dialect, tt.dsn)
			require.NoError(t, err)
			defer ds.Close()

			product, err := ds.DatabaseProductName()
			require.NoError(t, err)
			assert.Equal(t, tt.product, product)
			assert.NotNil(t, ds.ConnPool)

			rule, err := NewDataSourceRule(map[string]DataSource{"ds": ds}, "")
			require.NoError(t, err)
			dialect, err := rule.DatabaseType()
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, dialect)
		})
	}

	_, err := OpenDataSource(DialectOracle, "oracle://localhost")
	assert.Error(t, err)

	_, err = (&DialectorDataSource{}).DatabaseProductName()
	assert.Error(t, err)
	assert.NoError(t, (&DialectorDataSource{}).Close())
}
