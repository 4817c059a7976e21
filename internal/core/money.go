// Package core provides the ledger data model and the input checks a caller
// runs before handing values to the ledger.
//
// This file contains the amount parsing and formatting helpers.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts user input into a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The value
// is kept exactly as entered; rounding only happens when it is displayed.
// Returns ErrInvalidAmount for empty input, non-numbers, negative values,
// NaN and infinities.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-3")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	// Normalize decimal comma to dot
	normalized := strings.ReplaceAll(s, ",", ".")
	if strings.Count(normalized, ".") > 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %q must not be negative", ErrInvalidAmount, s)
	}
	if v == 0 {
		// "-0" parses as negative zero
		v = 0
	}
	return v, nil
}

// ValidateDescription rejects blank descriptions.
func ValidateDescription(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// FormatAmount renders an amount with exactly two decimals, the format used
// by listings and exports.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
