// Package currencyutils parses and formats the European-style amounts found
// on bank statements.
package currencyutils

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency used when a statement does not state one.
const DefaultCurrency = "EUR"

// ParseAmount parses a statement amount such as "-2.400,00" or "1,73".
// All "." are removed as thousands separators and the last "," becomes the
// decimal point. A leading "-" is preserved. ok is false when the result is
// not a number; callers skip such candidates.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, false
	}

	s = strings.ReplaceAll(s, ".", "")
	if i := strings.LastIndex(s, ","); i >= 0 {
		s = s[:i] + "." + s[i+1:]
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// MustParseAmount is ParseAmount for trusted literals; it panics on bad input.
func MustParseAmount(s string) decimal.Decimal {
	d, ok := ParseAmount(s)
	if !ok {
		panic("currencyutils: invalid amount " + s)
	}
	return d
}

// InRange reports whether lo < |amount| < hi.
func InRange(amount, lo, hi decimal.Decimal) bool {
	abs := amount.Abs()
	return abs.GreaterThan(lo) && abs.LessThan(hi)
}

// FormatAmount renders an amount for humans, e.g. "€1,234.56", using the
// currency's symbol and separators.
func FormatAmount(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	cents := amount.Shift(2).Round(0).IntPart()
	return money.New(cents, strings.ToUpper(currency)).Display()
}

// FormatPlain renders an amount with two decimals and no grouping, as used
// in CSV output.
func FormatPlain(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
