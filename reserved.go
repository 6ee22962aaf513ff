package sharding

import (
	"regexp"
	"strings"
)

var validPostgresIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// quoteIdent quotes an injected column name when the dialect would not read
// it back unchanged.
func quoteIdent(dialect Dialect, ident string) string {
	if IsReservedKeyword(ident) {
		return quote(dialect, ident)
	}
	// SQL identifiers and key words must begin with a letter (a-z, but also
	// letters with diacritical marks and non-Latin letters) or an underscore
	// (_). Subsequent characters in an identifier or key word can be letters,
	// underscores, digits (0-9), or dollar signs ($).
	//
	// https://www.postgresql.org/docs/current/sql-syntax-lexical.html#SQL-SYNTAX-IDENTIFIERS
	if dialect == DialectPostgreSQL {
		// camelCase means the column is also camelCase
		if strings.ToLower(ident) != ident {
			return quote(dialect, ident)
		}
		if !validPostgresIdent.MatchString(ident) {
			return quote(dialect, ident)
		}
	}
	return ident
}

func quote(dialect Dialect, x string) string {
	switch dialect {
	case DialectMySQL:
		return "`" + strings.ReplaceAll(x, "`", "``") + "`"
	case DialectSQLServer:
		return "[" + strings.ReplaceAll(x, "]", "]]") + "]"
	default:
		return "\"" + strings.ReplaceAll(x, "\"", "\"\"") + "\""
	}
}

// IsReservedKeyword reports whether str must be quoted to be used as an
// identifier in at least one supported dialect.
//
// https://www.postgresql.org/docs/current/sql-keywords-appendix.html
func IsReservedKeyword(str string) bool {
	switch strings.ToLower(str) {
	case "all":
	case "analyse":
	case "analyze":
	case "and":
	case "any":
	case "array":
	case "as":
	case "asc":
	case "asymmetric":
	case "authorization":
	case "binary":
	case "both":
	case "case":
	case "cast":
	case "check":
	case "collate":
	case "collation":
	case "column":
	case "concurrently":
	case "constraint":
	case "create":
	case "cross":
	case "current_catalog":
	case "current_date":
	case "current_role":
	case "current_schema":
	case "current_time":
	case "current_timestamp":
	case "current_user":
	case "default":
	case "deferrable":
	case "desc":
	case "distinct":
	case "do":
	case "else":
	case "end":
	case "except":
	case "false":
	case "fetch":
	case "for":
	case "foreign":
	case "freeze":
	case "from":
	case "full":
	case "grant":
	case "group":
	case "having":
	case "ilike":
	case "in":
	case "initially":
	case "inner":
	case "intersect":
	case "into":
	case "is":
	case "isnull":
	case "join":
	case "lateral":
	case "leading":
	case "left":
	case "like":
	case "limit":
	case "localtime":
	case "localtimestamp":
	case "natural":
	case "not":
	case "notnull":
	case "null":
	case "offset":
	case "on":
	case "only":
	case "or":
	case "order":
	case "outer":
	case "overlaps":
	case "placing":
	case "primary":
	case "references":
	case "returning":
	case "right":
	case "select":
	case "session_user":
	case "similar":
	case "some":
	case "symmetric":
	case "table":
	case "tablesample":
	case "then":
	case "to":
	case "trailing":
	case "true":
	case "union":
	case "unique":
	case "user":
	case "using":
	case "variadic":
	case "verbose":
	case "when":
	case "where":
	case "window":
	case "with":
	// MySQL, Oracle and SQL Server words absent from the PostgreSQL list
	case "delete", "insert", "update", "values", "set", "index", "key", "range",
		"rows", "level", "rownum", "sysdate", "identity", "top", "percent", "replace":
	default:
		return false
	}
	return true
}
