// Package pricing holds the money arithmetic used by cost and price replies.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"aromabot/internal/domain"
)

// DefaultDivisor is the selling-price divisor used when none is configured.
const DefaultDivisor = "0.7442"

// ParseAmount parses a decimal written with either a dot or a comma as the
// decimal separator. When both appear, the last one is the decimal separator
// and the other is treated as a thousands separator ("1.234,56").
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, fmt.Errorf("ambiguous amount %q", s)
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ParseCost converts a raw catalog cost into a usable value. Missing,
// malformed and non-positive costs all yield nil.
func ParseCost(raw string) *decimal.Decimal {
	d, err := ParseAmount(raw)
	if err != nil || !d.IsPositive() {
		return nil
	}
	return &d
}

// ParseMarkup parses the markup a user typed. It fails closed with
// domain.ErrInvalidMarkup for anything that is not a positive number.
func ParseMarkup(raw string) (decimal.Decimal, error) {
	d, err := ParseAmount(raw)
	if err != nil {
		return decimal.Zero, &domain.ParseError{Input: raw, Err: domain.ErrInvalidMarkup}
	}
	if !d.IsPositive() {
		return decimal.Zero, &domain.ParseError{Input: raw, Err: domain.ErrInvalidMarkup}
	}
	return d, nil
}

// SellingPrice computes (markup * cost) / divisor rounded to cents.
func SellingPrice(cost, markup, divisor decimal.Decimal) (decimal.Decimal, error) {
	if !cost.IsPositive() {
		return decimal.Zero, domain.ErrInvalidCost
	}
	if divisor.IsZero() {
		return decimal.Zero, fmt.Errorf("pricing divisor is zero")
	}
	return markup.Mul(cost).DivRound(divisor, 2), nil
}

// FormatBRL renders an amount the way customers read it: "1.234,56".
func FormatBRL(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}
