// Package currency provides pure conversion and formatting between currency
// codes using a snapshot rate table keyed to the base currency. Conversion
// never fails: unknown codes resolve through a built-in fallback table and
// finally to an identity rate. Conversion carries full precision; amounts
// are quantized to 2 decimal places only where they are stored or shown.
package currency

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Table maps a currency code to its rate relative to the base currency.
// The base currency itself maps to 1.
type Table map[string]decimal.Decimal

// fallbackRates is the built-in snapshot used when a live table is missing a
// code. Rates are relative to KES, the default base currency of the original
// deployment.
var fallbackRates = Table{
	"KES": decimal.NewFromInt(1),
	"USD": decimal.NewFromFloat(0.0077),
	"EUR": decimal.NewFromFloat(0.0071),
	"GBP": decimal.NewFromFloat(0.0061),
	"TZS": decimal.NewFromFloat(19.62),
	"UGX": decimal.NewFromFloat(28.34),
	"ZAR": decimal.NewFromFloat(0.14),
	"INR": decimal.NewFromFloat(0.64),
	"JPY": decimal.NewFromFloat(1.14),
	"CNY": decimal.NewFromFloat(0.055),
}

var one = decimal.NewFromInt(1)

// Fallback returns a copy of the built-in rate table.
func Fallback() Table {
	t := make(Table, len(fallbackRates))
	for code, rate := range fallbackRates {
		t[code] = rate
	}
	return t
}

// lookup resolves a code through table, then the fallback table, then
// identity. It never fails.
func lookup(code string, table Table) decimal.Decimal {
	code = strings.ToUpper(code)
	if r, ok := table[code]; ok && r.IsPositive() {
		return r
	}
	if r, ok := fallbackRates[code]; ok {
		return r
	}
	return one
}

// Convert converts amount from one currency to another using the given rate
// table. Converting a currency to itself returns the amount unchanged. The
// result keeps full precision so that converting back recovers the original
// amount; callers quantize with Quantize when the value is stored or shown.
func Convert(amount decimal.Decimal, from, to string, table Table) decimal.Decimal {
	if strings.EqualFold(from, to) {
		return amount
	}
	return amount.Mul(Rate(from, to, table))
}

// Quantize rounds a monetary amount to 2 decimal places half-up. This is the
// storage and display granularity; intermediate conversion math stays at full
// precision.
func Quantize(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Rate returns the exchange rate from one currency to another, resolved with
// the same fallback chain as Convert. Not rounded; use DisplayRate when the
// value is shown to a user.
func Rate(from, to string, table Table) decimal.Decimal {
	if strings.EqualFold(from, to) {
		return one
	}
	return lookup(to, table).Div(lookup(from, table))
}

// DisplayRate returns the rate rounded to 4 decimal places. Only for
// display; monetary conversion goes through Convert with the full-precision
// rate.
func DisplayRate(from, to string, table Table) decimal.Decimal {
	return Rate(from, to, table).Round(4)
}

// Format renders an amount with the currency's symbol and fraction rules.
// An unrecognized code falls back to "<CODE> <amount>" with two decimals
// instead of failing.
func Format(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	cur := money.GetCurrency(code)
	if cur == nil {
		return code + " " + amount.StringFixed(2)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), code).Display()
}
