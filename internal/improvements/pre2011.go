package improvements

import (
	"context"
	"fmt"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// ApartmentConstructionPre2011 values apartment improvements for the pre-2011
// construction price index calculation. Each improvement is index adjusted
// from its completion month and then depreciated by its yearly percentage for
// every whole month elapsed; the result never goes below zero.
func ApartmentConstructionPre2011(ctx context.Context, v Valuation, imps []domain.Improvement) (Result, error) {
	items := make([]Item, 0, len(imps))
	for _, imp := range imps {
		completionIndex, err := v.completionIndex(ctx, imp)
		if err != nil {
			return Result{}, fmt.Errorf("improvement %q: %w", imp.Name, err)
		}

		indexAdjusted := mathutil.IndexAdjust(imp.Value, v.TargetIndex, completionIndex)

		percentage := decimal.Zero
		if imp.Depreciation != nil {
			percentage = imp.Depreciation.Percentage()
		}
		elapsedTime := elapsed(imp.CompletionDate.MonthsUntil(v.CalculationMonth))
		amount := mathutil.ApplyPercentage(indexAdjusted, percentage).
			Mul(decimal.NewFromInt(int64(elapsedTime.TotalMonths()))).
			Div(decimal.NewFromInt(constants.MonthsPerYear))

		valueForApartment := mathutil.FloorZero(indexAdjusted.Sub(amount))
		// the deduction reported is what was actually taken
		if amount.GreaterThan(indexAdjusted) {
			amount = indexAdjusted
		}

		items = append(items, Item{
			Name:              imp.Name,
			Value:             imp.Value,
			CompletionDate:    imp.CompletionDate,
			CompletionIndex:   completionIndex,
			ValueAdded:        imp.Value,
			IndexAdjusted:     indexAdjusted,
			Depreciation:      &Depreciation{Percentage: percentage, Time: elapsedTime, Amount: amount},
			ValueForApartment: valueForApartment,
		})
	}
	return finalize(items), nil
}

// ApartmentMarketPre2011 values apartment improvements for the pre-2011 market
// price index calculation. The excess threshold times the apartment surface
// area is deducted from the improvements first; only the value above it is
// index adjusted and counted.
func ApartmentMarketPre2011(ctx context.Context, v Valuation, t Thresholds, imps []domain.Improvement, surfaceArea decimal.Decimal) (Result, error) {
	items, before, after, err := excessItems(ctx, v, t, imps, surfaceArea)
	if err != nil {
		return Result{}, err
	}
	for i := range items {
		items[i].ValueForApartment = items[i].IndexAdjusted
	}
	result := finalize(items)
	result.Summary.ExcessBefore2010 = before
	result.Summary.ExcessAfter2010 = after
	return result, nil
}

// HousingCompanyPre2011 values housing company improvements for the pre-2011
// rules. The excess is computed against the company's total surface area and
// the resulting value is apportioned to the apartment by its surface area.
//
// For market price improvements v.TargetIndex is the calculation month index.
// For construction price improvements the caller passes the apartment's
// completion month index, so the value joins the company assets at the same
// index level as the acquisition price.
func HousingCompanyPre2011(ctx context.Context, v Valuation, t Thresholds, imps []domain.Improvement, apartmentArea, totalArea decimal.Decimal) (Result, error) {
	items, before, after, err := excessItems(ctx, v, t, imps, totalArea)
	if err != nil {
		return Result{}, err
	}
	for i := range items {
		items[i].ValueForHousingCompany = items[i].IndexAdjusted
		items[i].ValueForApartment = mathutil.Share(items[i].IndexAdjusted, apartmentArea, totalArea)
	}
	result := finalize(items)
	result.Summary.ExcessBefore2010 = before
	result.Summary.ExcessAfter2010 = after
	return result, nil
}

// excessItems deducts the pre-2011 excess from imps. Improvements completed
// before the cutoff share one threshold and those completed after it share
// another; within a bucket the threshold is used up in completion order.
func excessItems(ctx context.Context, v Valuation, t Thresholds, imps []domain.Improvement, surfaceArea decimal.Decimal) ([]Item, *ExcessBucket, *ExcessBucket, error) {
	var before, after *ExcessBucket
	remainingBefore := t.BeforeCutoffPerM2.Mul(surfaceArea)
	remainingAfter := t.AfterCutoffPerM2.Mul(surfaceArea)

	items := make([]Item, 0, len(imps))
	for _, imp := range byCompletion(imps) {
		completionIndex, err := v.completionIndex(ctx, imp)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("improvement %q: %w", imp.Name, err)
		}

		remaining := &remainingAfter
		bucket := &after
		perM2 := t.AfterCutoffPerM2
		if imp.CompletionDate.Before(t.Cutoff) {
			remaining = &remainingBefore
			bucket = &before
			perM2 = t.BeforeCutoffPerM2
		}
		if *bucket == nil {
			*bucket = &ExcessBucket{
				SurfaceArea: surfaceArea,
				ValuePerM2:  perM2,
				Total:       mathutil.Round(perM2.Mul(surfaceArea)),
			}
		}

		excess := decimal.Min(imp.Value, *remaining)
		*remaining = remaining.Sub(excess)
		valueAdded := imp.Value.Sub(excess)

		items = append(items, Item{
			Name:            imp.Name,
			Value:           imp.Value,
			CompletionDate:  imp.CompletionDate,
			CompletionIndex: completionIndex,
			Excess:          excess,
			ValueAdded:      valueAdded,
			IndexAdjusted:   mathutil.IndexAdjust(valueAdded, v.TargetIndex, completionIndex),
		})
	}
	return items, before, after, nil
}
