package parser

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyPrice is returned when there is no price text at all.
	ErrEmptyPrice = errors.New("parser: empty price")
	// ErrInvalidPrice is returned when the text is not a decimal number.
	ErrInvalidPrice = errors.New("parser: invalid price")
	// ErrNegativePrice is returned for amounts below zero.
	ErrNegativePrice = errors.New("parser: negative price")
)

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.NewFromInt(math.MaxInt64)
)

// ParseAmount converts a decimal price string to minor units (cents),
// rounding half-up. The conversion is exact: "0.005" is 1 and "19.995" is 2000.
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrEmptyPrice
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	if d.IsNegative() {
		return 0, ErrNegativePrice
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxAmount) {
		return 0, ErrInvalidPrice
	}
	return cents.IntPart(), nil
}

// ParseLenientAmount is ParseAmount for prices written with a decimal
// comma and embedded spaces, such as "1 500,50".
func ParseLenientAmount(raw string) (int64, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0', '\u202f':
			return -1
		case ',':
			return '.'
		}
		return r
	}, raw)
	return ParseAmount(s)
}
