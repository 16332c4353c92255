// Package core holds the period model and the pure aggregation rules.
//
// This file contains helpers for parsing and formatting monetary amounts.
// Amounts are decimal.Decimal so that stored values round-trip exactly.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// maxExponent bounds the scale of an accepted amount.
const maxExponent = 20

// ParseAmount converts a user-entered amount to a decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// exponent notation (1e3).
// Zero is allowed (an unused category), negative values are not.
//
// Examples:
//
//	ParseAmount("1000")   -> 1000, nil
//	ParseAmount("12,5")   -> 12.5, nil
//	ParseAmount("1e3")    -> 1000, nil
//	ParseAmount("-3")     -> 0, ErrNegativeAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrNegativeAmount
	}
	if !unicode.IsDigit(rune(s[0])) && s[0] != '.' {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	// exponents come from JSON numbers such as 1e3; an absurd one would
	// expand into an enormous value
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Sum adds up all values of an amount map. An empty map sums to zero.
func Sum(amounts map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range amounts {
		total = total.Add(v)
	}
	return total
}
