// internal/utils/money.go
package utils

import "github.com/shopspring/decimal"

// StablecoinDecimals is the stablecoin's minor-unit precision: 1,000,000
// minor units equal one whole coin.
const StablecoinDecimals = 6

// FormatMinorUnits renders an integer minor-unit amount as a display string
// ("1000000" -> "1"). Arithmetic never touches this path; it is formatting
// only, at the API edge.
func FormatMinorUnits(amount int64) string {
	return decimal.New(amount, -StablecoinDecimals).String()
}
