// Package display formats monetary amounts with their currency symbol for
// the UI. Purely presentational, the ledger never sees these strings
package display

import (
	"fmt"
	"math"

	"github.com/Rhymond/go-money"
)

// Format renders an amount in the given currency, e.g. "$1,000,000.00".
// Unknown currency codes fall back to a plain two-decimal rendering
func Format(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%s %.2f", currency, amount)
	}
	minor := int64(math.Round(amount * math.Pow10(cur.Fraction)))
	return money.New(minor, currency).Display()
}
