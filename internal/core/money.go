// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal end to end so that sums over a
// ledger are exact regardless of the order the records arrive in.
package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-typed amount to a decimal rounded to two places.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Thousands separators are not
// accepted. Returns ErrInvalidAmount for invalid formats, negative values or zero.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("150000") -> 150000
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.Replace(s, ",", ".", 1)
	seenDot := false
	for _, r := range s {
		switch {
		case r == '.':
			if seenDot {
				return decimal.Zero, ErrInvalidAmount
			}
			seenDot = true
		case !unicode.IsDigit(r):
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParsePercent parses a percentage in (0, 100].
func ParsePercent(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil || !validPercent(d) {
		return decimal.Zero, ErrInvalidPercent
	}
	return d, nil
}

// lenientAmount decodes a ledger amount. Numbers and numeric strings parse
// as usual, a comma decimal separator included. Anything else, null and the
// empty string among them, reads as zero.
func lenientAmount(raw json.RawMessage) decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero
		}
		s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
