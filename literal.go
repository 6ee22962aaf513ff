package sharding

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func negate(v interface{}) interface{} {
	switch x := v.(type) {
	case int64:
		return -x
	case decimal.Decimal:
		return x.Neg()
	}
	return v
}

// renderLiteral writes a generated value as a SQL literal.
func renderLiteral(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(x)
	case []byte:
		return quoteString(string(x))
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case decimal.Decimal:
		return x.String()
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return quoteString(x.Format("2006-01-02 15:04:05.999999"))
	case fmt.Stringer:
		return quoteString(x.String())
	}
	if i, err := toInt64(v); err == nil {
		return strconv.FormatInt(i, 10)
	}
	return quoteString(fmt.Sprint(v))
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
