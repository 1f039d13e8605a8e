package utils

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
)

// MinorUnitScale is the number of decimal digits between major and minor units.
func MinorUnitScale(unit currency.Unit) int {
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// FromMinorUnits converts an amount in minor units (pence, cents) to major units.
func FromMinorUnits(amount int64, unit currency.Unit) float64 {
	return float64(amount) / math.Pow10(MinorUnitScale(unit))
}

// FormatMinorUnits renders a minor-unit amount with its currency symbol, e.g. "£ 25.90".
func FormatMinorUnits(amount int64, unit currency.Unit) string {
	return fmt.Sprint(currency.Symbol(unit.Amount(FromMinorUnits(amount, unit))))
}
