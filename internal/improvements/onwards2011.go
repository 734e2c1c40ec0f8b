package improvements

import (
	"context"
	"fmt"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// HousingCompany2011Onwards values housing company improvements for the
// 2011-onwards rules. Each improvement loses the flat excess times the
// company's total surface area (never below zero); what remains is the value
// for the housing company as is, and the apartment's part of it follows its
// share of the total surface area.
//
// The completion month index is looked up so a missing value fails the
// calculation, but the value is not re-indexed.
func HousingCompany2011Onwards(ctx context.Context, v Valuation, t Thresholds, imps []domain.Improvement, apartmentArea, totalArea decimal.Decimal) (Result, error) {
	excess := t.Rules2011PerM2.Mul(totalArea)

	items := make([]Item, 0, len(imps))
	for _, imp := range imps {
		completionIndex, err := v.completionIndex(ctx, imp)
		if err != nil {
			return Result{}, fmt.Errorf("improvement %q: %w", imp.Name, err)
		}

		valueAdded := mathutil.FloorZero(imp.Value.Sub(excess))
		items = append(items, Item{
			Name:                   imp.Name,
			Value:                  imp.Value,
			CompletionDate:         imp.CompletionDate,
			CompletionIndex:        completionIndex,
			Excess:                 imp.Value.Sub(valueAdded),
			ValueAdded:             valueAdded,
			IndexAdjusted:          valueAdded,
			ValueForHousingCompany: valueAdded,
			ValueForApartment:      mathutil.Share(valueAdded, apartmentArea, totalArea),
		})
	}
	return finalize(items), nil
}
