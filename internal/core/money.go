// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed by users or
// scraped from statements, in either Brazilian ("1.234,56") or plain
// ("1234.56") notation.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a positive decimal amount.
//
// When the string contains a comma it is read as Brazilian notation: dots are
// thousands separators and the comma is the decimal mark. Otherwise a dot is
// the decimal mark. An optional "R$" prefix is ignored. Zero, negative and
// malformed values return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34
//	ParseAmount("12,34")    -> 12.34
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("R$ 99")    -> 99
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := ParseSignedAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseSignedAmount is ParseAmount without the sign check, for statement
// lines where credits appear as negative values.
func ParseSignedAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	body := strings.TrimPrefix(s, "-")
	if body == "" || strings.Count(body, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range body {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals for transport.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
