package sharding

import (
	"fmt"
	"strings"
)

// Dialect selects the statement grammar used by the parser.
type Dialect int

const (
	DialectGeneric Dialect = iota
	DialectMySQL
	DialectOracle
	DialectSQLServer
	DialectPostgreSQL
)

func (d Dialect) String() string {
	switch d {
	case DialectGeneric:
		return "generic"
	case DialectMySQL:
		return "mysql"
	case DialectOracle:
		return "oracle"
	case DialectSQLServer:
		return "sqlserver"
	case DialectPostgreSQL:
		return "postgresql"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// ParseDialect maps a dialect name (as used in configuration) to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "generic", "sql92":
		return DialectGeneric, nil
	case "mysql", "mariadb", "h2":
		return DialectMySQL, nil
	case "oracle":
		return DialectOracle, nil
	case "sqlserver", "sql_server", "mssql":
		return DialectSQLServer, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgreSQL, nil
	default:
		return DialectGeneric, fmt.Errorf("unknown dialect: %s", name)
	}
}

// dialectFromProductName maps the product name reported by a data source to
// a Dialect. Gorm dialector names ("mysql", "postgres", "sqlserver") and
// JDBC-style product names ("H2", "Microsoft SQL Server") are both accepted.
func dialectFromProductName(product string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(product)) {
	case "mysql", "mariadb", "h2", "tidb":
		return DialectMySQL, nil
	case "oracle":
		return DialectOracle, nil
	case "sqlserver", "microsoft sql server", "mssql":
		return DialectSQLServer, nil
	case "postgres", "postgresql":
		return DialectPostgreSQL, nil
	case "sqlite", "sqlite3":
		return DialectGeneric, nil
	default:
		return DialectGeneric, fmt.Errorf("unsupported database product: %s", product)
	}
}
