package invoice

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumber normalizes a report cell into an optional decimal: thousands
// separators are stripped before parsing, and anything that still fails to
// parse is missing, never zero.
func ParseNumber(cell string) decimal.NullDecimal {
	s := strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// ParseLocationID reads a location cell as an integer. Workbook cells that
// went through a float round-trip ("1042.0") still resolve.
func ParseLocationID(cell string) (int, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	if s == "" {
		return 0, false
	}
	if id, err := strconv.Atoi(s); err == nil {
		return id, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}
