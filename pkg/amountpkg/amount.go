// Package amountpkg converts user supplied amounts into smallest currency units.
package amountpkg

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotInteger indicates an amount that is not written as a whole number.
var ErrNotInteger = errors.New("amount must be a whole number")

// ErrOutOfRange indicates an amount that does not fit into int64.
var ErrOutOfRange = errors.New("amount out of range")

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// Parse converts s into an integer amount. Only an optional sign followed by
// decimal digits is accepted, surrounding spaces aside. Zero and negative
// values are returned as is; callers decide whether they are acceptable.
func Parse(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if !isInteger(s) {
		return 0, ErrNotInteger
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrNotInteger
	}

	if d.GreaterThan(maxAmount) || d.LessThan(minAmount) {
		return 0, ErrOutOfRange
	}

	return d.IntPart(), nil
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
