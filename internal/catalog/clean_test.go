package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"$1,234.56", "1234.56", true},
		{"1234", "1234", true},
		{" 12.50 USD", "12.5", true},
		{"¥3,000", "3000", true},
		{"-4.20", "-4.2", true},
		{"n/a", "0", false},
		{"", "0", false},
		{"1.2.3", "0", false},
		{"-", "0", false},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := ParseAmount(tc.raw)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{"1,200", 1200, true},
		{"12.0", 12, true},
		{"7.9", 7, true},
		{"-3", -3, true},
		{" 8 ", 8, true},
		{"abc", 0, false},
		{"12 units", 0, false},
		{"#5", 0, false},
		{"", 0, false},
		{"99999999999999999999999", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := ParseCount(tc.raw)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
