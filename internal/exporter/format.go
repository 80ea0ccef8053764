package exporter

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// formatCell renders a table cell for CSV output. Money and percent values
// keep exactly 2 decimal places.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		return x.StringFixed(2)
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// cellValue converts a table cell into a value excelize stores natively.
func cellValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return v
}

// isNegative reports whether a numeric cell is below zero.
func isNegative(v any) bool {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.IsNegative()
	case float64:
		return x < 0
	case int:
		return x < 0
	case int64:
		return x < 0
	}
	return false
}
