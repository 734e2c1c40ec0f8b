package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency returns a euro string with thousands separators (e.g., "-1,234.56 €").
func Currency(amount decimal.Decimal) string {
	return NumericCurrency(amount) + " €"
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	formatted := formatPositiveCurrency(amount.Abs())
	return sign + formatted
}

// OptionalPerSquareMeter formats a per square meter value that may be absent as "-".
func OptionalPerSquareMeter(amount *decimal.Decimal) string {
	if amount == nil {
		return "-"
	}
	return PerSquareMeter(*amount)
}

// PerSquareMeter returns a euro per square meter string (e.g., "4,869.00 €/m²").
func PerSquareMeter(amount decimal.Decimal) string {
	return NumericCurrency(amount) + " €/m²"
}

func formatPositiveCurrency(value decimal.Decimal) string {
	formatted := value.StringFixed(2)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
