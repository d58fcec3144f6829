package models

import "github.com/shopspring/decimal"

// MaxAmount is the largest whole amount the numeric(12,2) price columns hold.
var MaxAmount = decimal.New(9_999_999_999, 0)

// WholeAmount reports whether d is a non-negative whole number of currency
// units that fits the price columns. Fractional cents are not modelled.
func WholeAmount(d decimal.Decimal) bool {
	return d.IsInteger() && !d.IsNegative() && d.LessThanOrEqual(MaxAmount)
}
