package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DepreciationPercentage is the yearly depreciation applied to an apartment
// construction price improvement in the pre-2011 rules.
type DepreciationPercentage string

const (
	DepreciationZero       DepreciationPercentage = "0.0"
	DepreciationTwoAndHalf DepreciationPercentage = "2.5"
	DepreciationTen        DepreciationPercentage = "10.0"
)

// Percentage returns the yearly percentage as a decimal, e.g. 2.5.
func (p DepreciationPercentage) Percentage() decimal.Decimal {
	switch p {
	case DepreciationZero:
		return decimal.Zero
	case DepreciationTwoAndHalf:
		return decimal.RequireFromString("2.5")
	case DepreciationTen:
		return decimal.NewFromInt(10)
	}
	panic(fmt.Sprintf("unknown depreciation percentage %q", string(p)))
}

// UnmarshalText accepts "0", "0.0", "2.5", "10" and "10.0".
func (p *DepreciationPercentage) UnmarshalText(text []byte) error {
	v, err := decimal.NewFromString(string(text))
	if err != nil {
		return fmt.Errorf("invalid depreciation percentage %q: %w", string(text), err)
	}
	for _, candidate := range []DepreciationPercentage{DepreciationZero, DepreciationTwoAndHalf, DepreciationTen} {
		if candidate.Percentage().Equal(v) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("invalid depreciation percentage %q: expected 0, 2.5 or 10", string(text))
}
