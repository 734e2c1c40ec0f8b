// Package improvements values apartment and housing company improvements for
// maximum price calculations under the pre-2011 and 2011-onwards rules.
package improvements

import (
	"context"
	"fmt"
	"sort"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/iwvelando/hitas-engine/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Thresholds are the per square meter excess deductions.
type Thresholds struct {
	// Cutoff separates the two pre-2011 thresholds by improvement completion month.
	Cutoff            datetime.Month
	BeforeCutoffPerM2 decimal.Decimal
	AfterCutoffPerM2  decimal.Decimal
	Rules2011PerM2    decimal.Decimal
}

// DefaultThresholds returns the statutory thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Cutoff:            datetime.MonthOf(datetime.MustParseDate(constants.ImprovementCutoffDate)),
		BeforeCutoffPerM2: decimal.NewFromInt(constants.ExcessBefore2010PerM2),
		AfterCutoffPerM2:  decimal.NewFromInt(constants.ExcessAfter2010PerM2),
		Rules2011PerM2:    decimal.NewFromInt(constants.Excess2011PerM2),
	}
}

// Valuation is the index context one improvement list is valued in.
type Valuation struct {
	Repo   indices.Repository
	Series indices.Series
	// CalculationMonth is the month depreciation time is measured to.
	CalculationMonth datetime.Month
	// TargetIndex is the index value improvements are adjusted to, normally
	// the calculation month value.
	TargetIndex decimal.Decimal
}

func (v Valuation) completionIndex(ctx context.Context, imp domain.Improvement) (decimal.Decimal, error) {
	value, err := v.Repo.Get(ctx, v.Series, imp.CompletionDate)
	if err != nil {
		return decimal.Zero, err
	}
	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s for %s is not positive: %s", v.Series, imp.CompletionDate, value)
	}
	return value, nil
}

// ElapsedTime is a whole-month duration split into years and months.
type ElapsedTime struct {
	Years  int `json:"years"`
	Months int `json:"months"`
}

func elapsed(months int) ElapsedTime {
	if months < 0 {
		months = 0
	}
	return ElapsedTime{Years: months / constants.MonthsPerYear, Months: months % constants.MonthsPerYear}
}

// TotalMonths returns the duration in months.
func (e ElapsedTime) TotalMonths() int {
	return e.Years*constants.MonthsPerYear + e.Months
}

// Depreciation is the depreciation taken from one improvement.
type Depreciation struct {
	Percentage decimal.Decimal `json:"percentage"`
	Time       ElapsedTime     `json:"time"`
	Amount     decimal.Decimal `json:"amount"`
}

// Item is the valuation of one improvement.
type Item struct {
	Name            string          `json:"name"`
	Value           decimal.Decimal `json:"value"`
	CompletionDate  datetime.Month  `json:"completion_date"`
	CompletionIndex decimal.Decimal `json:"completion_date_index"`
	Excess          decimal.Decimal `json:"excess"`
	ValueAdded      decimal.Decimal `json:"value_added"`
	IndexAdjusted   decimal.Decimal `json:"index_adjusted"`
	Depreciation    *Depreciation   `json:"depreciation,omitempty"`

	ValueForHousingCompany decimal.Decimal `json:"value_for_housing_company"`
	ValueForApartment      decimal.Decimal `json:"value_for_apartment"`
}

// ExcessBucket summarizes the improvements sharing one excess threshold.
type ExcessBucket struct {
	SurfaceArea decimal.Decimal `json:"surface_area"`
	ValuePerM2  decimal.Decimal `json:"value_per_square_meter"`
	Total       decimal.Decimal `json:"total"`
}

// Summary totals an improvement list.
type Summary struct {
	Value                  decimal.Decimal `json:"value"`
	Excess                 decimal.Decimal `json:"excess"`
	ValueAdded             decimal.Decimal `json:"value_added"`
	IndexAdjusted          decimal.Decimal `json:"index_adjusted"`
	Depreciation           decimal.Decimal `json:"depreciation"`
	ValueForHousingCompany decimal.Decimal `json:"value_for_housing_company"`
	ValueForApartment      decimal.Decimal `json:"value_for_apartment"`

	// ExcessBefore2010 and ExcessAfter2010 are only set by the pre-2011
	// excess rules, and stay nil when no improvement falls in the bucket.
	ExcessBefore2010 *ExcessBucket `json:"excess_before_2010,omitempty"`
	ExcessAfter2010  *ExcessBucket `json:"excess_after_2010,omitempty"`
}

// Result is the valuation of an improvement list.
type Result struct {
	Items   []Item  `json:"items"`
	Summary Summary `json:"summary"`
}

// finalize sums the items and rounds every reported figure to cents.
func finalize(items []Item) Result {
	var s Summary
	for _, it := range items {
		s.Value = s.Value.Add(it.Value)
		s.Excess = s.Excess.Add(it.Excess)
		s.ValueAdded = s.ValueAdded.Add(it.ValueAdded)
		s.IndexAdjusted = s.IndexAdjusted.Add(it.IndexAdjusted)
		if it.Depreciation != nil {
			s.Depreciation = s.Depreciation.Add(it.Depreciation.Amount)
		}
		s.ValueForHousingCompany = s.ValueForHousingCompany.Add(it.ValueForHousingCompany)
		s.ValueForApartment = s.ValueForApartment.Add(it.ValueForApartment)
	}

	rounded := make([]Item, len(items))
	for i, it := range items {
		it.Excess = mathutil.Round(it.Excess)
		it.ValueAdded = mathutil.Round(it.ValueAdded)
		it.IndexAdjusted = mathutil.Round(it.IndexAdjusted)
		if it.Depreciation != nil {
			dep := *it.Depreciation
			dep.Amount = mathutil.Round(dep.Amount)
			it.Depreciation = &dep
		}
		it.ValueForHousingCompany = mathutil.Round(it.ValueForHousingCompany)
		it.ValueForApartment = mathutil.Round(it.ValueForApartment)
		rounded[i] = it
	}

	s.Excess = mathutil.Round(s.Excess)
	s.ValueAdded = mathutil.Round(s.ValueAdded)
	s.IndexAdjusted = mathutil.Round(s.IndexAdjusted)
	s.Depreciation = mathutil.Round(s.Depreciation)
	s.ValueForHousingCompany = mathutil.Round(s.ValueForHousingCompany)
	s.ValueForApartment = mathutil.Round(s.ValueForApartment)
	return Result{Items: rounded, Summary: s}
}

// byCompletion returns a copy of imps ordered by completion month, keeping the
// input order for improvements completed in the same month.
func byCompletion(imps []domain.Improvement) []domain.Improvement {
	sorted := make([]domain.Improvement, len(imps))
	copy(sorted, imps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletionDate.Before(sorted[j].CompletionDate)
	})
	return sorted
}
