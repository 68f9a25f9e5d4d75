package invoicing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnitExponent is the decimal exponent of a minor unit (1/1000)
const MinorUnitExponent = -3

// DisplayDecimals is the number of decimals shown on the invoice
const DisplayDecimals = 2

// MinorToDecimal converts an integer amount of minor units to an exact decimal
func MinorToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, MinorUnitExponent)
}

// FormatMinor renders minor units with two decimals followed by the currency symbol,
// e.g. 6000 -> "6.00 €". The symbol is omitted when empty.
func FormatMinor(minor int64, symbol string) string {
	amount := MinorToDecimal(minor).StringFixed(DisplayDecimals)
	if strings.TrimSpace(symbol) == "" {
		return amount
	}
	return amount + " " + symbol
}
