// Package mathutil provides common decimal helpers for currency and index math.
package mathutil

import (
	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/shopspring/decimal"
)

// Round rounds a value half-up (away from zero) to two decimals, i.e. to
// represent real currency.
func Round(val decimal.Decimal) decimal.Decimal {
	return val.Round(constants.CentPlaces)
}

// Max returns the larger of two values.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// FloorZero returns val, or zero when val is negative.
func FloorZero(val decimal.Decimal) decimal.Decimal {
	if val.IsNegative() {
		return decimal.Zero
	}
	return val
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Ratio returns numerator / denominator. A zero denominator yields zero.
func Ratio(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.Div(denominator)
}

// Share returns the part of total that belongs to a unit of size part out of
// whole, e.g. an apartment's share of a housing company amount by surface area.
func Share(total, part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return total.Mul(part).Div(whole)
}

// IndexAdjust scales a value by the ratio of two index values.
func IndexAdjust(val, calculationIndex, completionIndex decimal.Decimal) decimal.Decimal {
	return val.Mul(calculationIndex).Div(completionIndex)
}

// ApplyPercentage applies a percentage to a value.
func ApplyPercentage(val, percentage decimal.Decimal) decimal.Decimal {
	return val.Mul(percentage).Div(decimal.NewFromInt(100))
}
