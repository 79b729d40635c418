package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var reNonNum = regexp.MustCompile(`[^0-9.\-]`)

// ParseAmount cleans a currency cell such as "$1,234.56" and parses it as a
// decimal. ok is false when nothing numeric is left.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := numericText(raw)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseCount parses a count cell. Only surrounding space and thousands
// separators are dropped, so "12 units" is rejected. Fractional values
// ("12.0") are truncated toward zero.
func ParseCount(raw string) (int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if d.Abs().GreaterThan(decimal.NewFromInt(maxInt64)) {
		return 0, false
	}
	return d.IntPart(), true
}

const maxInt64 = int64(^uint64(0) >> 1)

func numericText(raw string) string {
	s := strings.ReplaceAll(raw, ",", "")
	return reNonNum.ReplaceAllString(s, "")
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
