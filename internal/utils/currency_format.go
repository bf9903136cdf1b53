package utils

import "github.com/shopspring/decimal"

// creditUnitUSD is the dollar value of a single credit.
var creditUnitUSD = decimal.New(1, -2)

// CreditsToUSD converts a credit amount to dollars.
func CreditsToUSD(credits int64) decimal.Decimal {
	return decimal.NewFromInt(credits).Mul(creditUnitUSD)
}

// FormatUSD formats a dollar amount as "$12.34".
// Example: 150 credits -> CreditsToUSD -> "$1.50"
func FormatUSD(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
