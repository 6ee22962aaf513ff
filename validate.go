package sharding

import (
	"strconv"
	"strings"

	generic "github.com/longbridgeapp/sqlparser"
	pg_query "github.com/pganalyze/pg_query_go/v5"
	mysqlparser "github.com/xwb1989/sqlparser"
)

// ValidateGrammar checks sql against a full grammar for dialect. The routing
// parser only understands the parts of a statement it needs, so this is the
// place to reject statements that are malformed elsewhere. Oracle and SQL
// Server have no full grammar available and always pass.
func ValidateGrammar(dialect Dialect, sql string) error {
	var err error
	switch dialect {
	case DialectPostgreSQL:
		_, err = pg_query.Parse(positionalMarkers(sql))
	case DialectMySQL:
		_, err = mysqlparser.Parse(sql)
	case DialectGeneric:
		_, err = generic.NewParser(strings.NewReader(sql)).ParseStatement()
	default:
		return nil
	}
	if err != nil {
		return &SyntaxError{Dialect: dialect, Msg: err.Error()}
	}
	return nil
}

// positionalMarkers rewrites "?" markers to "$n", which is the only form the
// PostgreSQL grammar accepts.
func positionalMarkers(sql string) string {
	tokens, err := tokenize(DialectPostgreSQL, postgresGrammar{}.lexOptions(), sql)
	if err != nil {
		return sql
	}
	var (
		sb   strings.Builder
		last int
	)
	for _, t := range tokens {
		if t.kind != tokParam || t.text != "?" {
			continue
		}
		sb.WriteString(sql[last:t.start])
		sb.WriteString("$" + strconv.Itoa(t.paramIndex+1))
		last = t.end
	}
	sb.WriteString(sql[last:])
	return sb.String()
}
