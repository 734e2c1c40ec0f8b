package maxprice

import (
	"context"
	"fmt"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/improvements"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Onwards2011Calculator implements the rules for apartments completed in 2011
// or later. Both figures use the 2005=100 index series and only housing
// company improvements count.
type Onwards2011Calculator struct {
	surfaceAreaCeiling
}

func (Onwards2011Calculator) Name() string {
	return Rules2011Onwards
}

func (Onwards2011Calculator) RequiredIndices(req Request) []indices.Request {
	return indexRequests(req,
		indices.ConstructionPriceIndex2005Equal100,
		indices.MarketPriceIndex2005Equal100,
		req.HousingCompany.Improvements.ConstructionPrice,
		req.HousingCompany.Improvements.MarketPrice,
	)
}

func (Onwards2011Calculator) ConstructionPriceIndex(ctx context.Context, in Inputs) (IndexResult, error) {
	return calculate2011Onwards(ctx, in, indices.ConstructionPriceIndex2005Equal100, in.HousingCompany.Improvements.ConstructionPrice)
}

func (Onwards2011Calculator) MarketPriceIndex(ctx context.Context, in Inputs) (IndexResult, error) {
	return calculate2011Onwards(ctx, in, indices.MarketPriceIndex2005Equal100, in.HousingCompany.Improvements.MarketPrice)
}

func calculate2011Onwards(ctx context.Context, in Inputs, series indices.Series, imps []domain.Improvement) (IndexResult, error) {
	dates, err := indexDates(ctx, in, series)
	if err != nil {
		return IndexResult{}, err
	}

	acquisition, err := in.Apartment.AcquisitionPrice()
	if err != nil {
		return IndexResult{}, err
	}

	hcImprovements, err := improvements.HousingCompany2011Onwards(ctx, improvements.Valuation{
		Repo:             in.Indices,
		Series:           series,
		CalculationMonth: in.CalculationMonth,
		TargetIndex:      dates.CalculationDateIndex,
	}, in.Rules.Thresholds, imps, in.Apartment.SurfaceArea, in.HousingCompany.TotalSurfaceArea)
	if err != nil {
		return IndexResult{}, fmt.Errorf("housing company improvements: %w", err)
	}

	basic := acquisition.Add(in.Apartment.AdditionalWorkDuringConstruction)
	adjustment := indexAdjustment(basic, dates)
	debtFree := mathutil.Sum(basic, adjustment, hcImprovements.Summary.ValueForApartment)
	maximum := debtFree.Sub(in.LoanAmount)

	return IndexResult{
		MaximumPrice: maximum,
		ValidUntil:   in.indexValidUntil(),
		CalculationVariables: Rules2011OnwardsVariables{
			FirstSaleAcquisitionPrice:        acquisition,
			AdditionalWorkDuringConstruction: in.Apartment.AdditionalWorkDuringConstruction,
			BasicPrice:                       basic,
			IndexDates:                       dates,
			IndexAdjustment:                  adjustment,
			HousingCompanyImprovements:       hcImprovements,
			DebtFreePrice:                    debtFree,
			DebtFreePriceM2:                  mathutil.Round(mathutil.Ratio(debtFree, in.Apartment.SurfaceArea)),
			Loans:                            in.loans(),
			MaximumPrice:                     maximum,
		},
	}, nil
}

// indexAdjustment is the change in basic when moved from the completion month
// index to the calculation month index, rounded to cents.
func indexAdjustment(basic decimal.Decimal, dates IndexDates) decimal.Decimal {
	return mathutil.Round(mathutil.IndexAdjust(basic, dates.CalculationDateIndex, dates.CompletionDateIndex).Sub(basic))
}
