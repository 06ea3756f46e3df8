package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// minScale is the number of fractional digits every currency supports,
// regardless of its ISO 4217 minor unit.
const minScale = 2

// MaxIntegerDigits bounds the integer part of any amount or balance so it
// fits the NUMERIC(24,4) balance column.
const MaxIntegerDigits = 20

// Currency is an ISO 4217 alphabetic code.
type Currency string

func ParseCurrency(code string) (Currency, error) {
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q must be a 3-letter ISO 4217 code", ErrInvalidCurrency, code)
	}
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return "", fmt.Errorf("%w: %q must be 3 uppercase letters", ErrInvalidCurrency, code)
		}
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a recognised ISO 4217 code", ErrInvalidCurrency, code)
	}

	return Currency(unit.String()), nil
}

func (c Currency) String() string {
	return string(c)
}

// Scale is the maximum number of fractional digits an amount in c may carry.
func (c Currency) Scale() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return minScale
	}
	scale, _ := currency.Standard.Rounding(unit)
	if scale < minScale {
		return minScale
	}
	return int32(scale)
}

// Money is an exact, currency-tagged amount. The zero value represents a
// missing amount and is rejected by every account operation.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney builds a non-negative amount in the given currency.
func NewMoney(amount decimal.Decimal, ccy Currency) (Money, error) {
	if _, err := ParseCurrency(string(ccy)); err != nil {
		return Money{}, err
	}
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount.String())
	}
	if amount.IsZero() {
		return Money{amount: decimal.Zero, currency: ccy}, nil
	}
	scale := ccy.Scale()
	if err := checkMagnitude(amount, scale); err != nil {
		return Money{}, err
	}
	if !amount.Equal(amount.Truncate(scale)) {
		return Money{}, fmt.Errorf("%w: %s has more than %d fractional digits", ErrInvalidAmount, amount.String(), scale)
	}

	return Money{amount: amount, currency: ccy}, nil
}

// checkMagnitude bounds amount using only its coefficient length and
// exponent, so oversized inputs are rejected before any rescaling.
func checkMagnitude(amount decimal.Decimal, scale int32) error {
	digits := int64(amount.NumDigits())
	exp := int64(amount.Exponent())
	if digits+exp > MaxIntegerDigits {
		return fmt.Errorf("%w: amount exceeds %d integer digits", ErrInvalidAmount, MaxIntegerDigits)
	}
	if digits+exp <= -int64(scale) {
		return fmt.Errorf("%w: amount has more than %d fractional digits", ErrInvalidAmount, scale)
	}
	return nil
}

func ParseMoney(raw string, ccy Currency) (Money, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Money{}, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}

	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, raw)
	}

	return NewMoney(amount, ccy)
}

// MustParseMoney is ParseMoney for literals known to be valid.
func MustParseMoney(raw string, ccy Currency) Money {
	m, err := ParseMoney(raw, ccy)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero(ccy Currency) Money {
	return Money{amount: decimal.Zero, currency: ccy}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }

// IsMissing reports whether m is the zero Money value, i.e. no amount was supplied.
func (m Money) IsMissing() bool { return m.currency == "" }

func (m Money) IsPositive() bool { return m.amount.IsPositive() }
func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Add returns m + other, rejecting sums whose integer part no longer fits
// MaxIntegerDigits.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	sum := m.amount.Add(other.amount)
	if !sum.IsZero() && int64(sum.NumDigits())+int64(sum.Exponent()) > MaxIntegerDigits {
		return Money{}, fmt.Errorf("%w: %s + %s exceeds %d integer digits", ErrInvalidAmount, m, other, MaxIntegerDigits)
	}
	return Money{amount: sum, currency: m.currency}, nil
}

// Sub returns m - other. The result may be negative; callers that store it
// as a balance must check the sign first.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Cmp returns -1, 0 or +1 comparing magnitudes of two amounts in the same currency.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	c, err := m.Cmp(other)
	if err != nil {
		return false, err
	}
	return c >= 0, nil
}

// Equal compares by value, so 100.5 EUR equals 100.50 EUR.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	if m.IsMissing() {
		return "<none>"
	}
	return m.StringFixed() + " " + string(m.currency)
}

// StringFixed renders the magnitude with at least two fractional digits.
func (m Money) StringFixed() string {
	places := int32(minScale)
	if exp := -m.amount.Exponent(); exp > places {
		places = min(exp, m.currency.Scale())
	}
	return m.amount.StringFixed(places)
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}
