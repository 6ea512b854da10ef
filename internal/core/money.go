package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative currency value. It encodes to JSON as a bare
// number and decodes from either a number or numeric text.
type Amount struct {
	value decimal.Decimal
}

var ErrInvalidAmount = errors.New("invalid amount")

var plainDecimal = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// Amount bounds: magnitude below 1e15, at most 15 fractional digits.
const (
	maxExponent = 15
	minExponent = -15
)

var maxAmount = decimal.New(1, maxExponent)

// maxAmountText caps the text handed to the decimal parser.
const maxAmountText = 64

// parseBounded parses s and reports false for unparseable or out-of-range
// values.
func parseBounded(s string) (decimal.Decimal, bool) {
	if len(s) > maxAmountText {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !inRange(d) {
		return decimal.Decimal{}, false
	}
	return d, true
}

// inRange checks the exponent before comparing, so a value such as 1e30000000
// is never rescaled into its full digit string. Zero with a huge exponent is
// out of range too.
func inRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > maxExponent || exp < minExponent {
		return false
	}
	return d.Abs().LessThan(maxAmount)
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d}
}

// ParseAmount parses user-entered text into a strictly positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents and thousands separators are rejected, as are values of 1e15
// or more and more than 15 fractional digits.
func ParseAmount(s string) (Amount, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if !plainDecimal.MatchString(s) {
		return Amount{}, ErrInvalidAmount
	}
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, ok := parseBounded(s)
	if !ok || !d.IsPositive() {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{value: d}, nil
}

// CoerceAmount converts loosely typed text to an amount. Anything that does
// not parse as a decimal becomes zero, negative and out-of-range values
// included.
func CoerceAmount(s string) Amount {
	d, ok := parseBounded(strings.TrimSpace(s))
	if !ok || d.IsNegative() {
		return Amount{}
	}
	return Amount{value: d}
}

func (a Amount) Decimal() decimal.Decimal { return a.value }

func (a Amount) String() string { return a.value.String() }

// Fixed formats the amount with exactly two decimal places.
func (a Amount) Fixed() string { return a.value.StringFixed(2) }

func (a Amount) IsZero() bool { return a.value.IsZero() }

func (a Amount) IsNegative() bool { return a.value.IsNegative() }

func (a Amount) Equal(b Amount) bool { return a.value.Equal(b.value) }

// NonNegative clamps negative values to zero.
func (a Amount) NonNegative() Amount {
	if a.value.IsNegative() {
		return Amount{}
	}
	return a
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = CoerceAmount(s)
		return nil
	}
	d, ok := parseBounded(string(data))
	if !ok {
		*a = Amount{}
		return nil
	}
	*a = Amount{value: d}
	return nil
}
