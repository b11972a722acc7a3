package diff

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// nullLiteral is the marker emitted for absent and unrepresentable
// values. Upstream geometry occasionally yields NaN or infinite bbox
// bounds; those normalize to NULL instead of producing a literal the
// target cannot parse.
const nullLiteral = "NULL"

// quoteString renders s as a SQL string literal, doubling embedded
// single quotes.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// formatValue renders a Go value as a SQL literal. Formatting never
// fails: non-finite floats and nil optionals become NULL by design.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return nullLiteral
	case string:
		return quoteString(val)
	case *string:
		if val == nil {
			return nullLiteral
		}
		return quoteString(*val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nullLiteral
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case *int64:
		if val == nil {
			return nullLiteral
		}
		return strconv.FormatInt(*val, 10)
	default:
		return quoteString(fmt.Sprint(val))
	}
}
