package maxprice

import (
	"context"
	"fmt"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/improvements"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/pkg/mathutil"
)

// Pre2011Calculator implements the rules for apartments completed before 2011
// or in a housing company using the old ruleset. Both index figures use the
// original index series.
type Pre2011Calculator struct {
	surfaceAreaCeiling
}

func (Pre2011Calculator) Name() string {
	return RulesPre2011
}

func (Pre2011Calculator) RequiredIndices(req Request) []indices.Request {
	construction := append(
		append([]domain.Improvement{}, req.Apartment.Improvements.ConstructionPrice...),
		req.HousingCompany.Improvements.ConstructionPrice...,
	)
	market := append(
		append([]domain.Improvement{}, req.Apartment.Improvements.MarketPrice...),
		req.HousingCompany.Improvements.MarketPrice...,
	)
	return indexRequests(req, indices.ConstructionPriceIndex, indices.MarketPriceIndex, construction, market)
}

// ConstructionPriceIndex apportions the housing company assets to the
// apartment by surface area and index adjusts the apartment's share plus the
// interest during construction. Housing company improvements join the assets
// at the completion month index level. Apartment improvements are index
// adjusted and depreciated on their own and added after the adjustment.
func (Pre2011Calculator) ConstructionPriceIndex(ctx context.Context, in Inputs) (IndexResult, error) {
	dates, err := indexDates(ctx, in, indices.ConstructionPriceIndex)
	if err != nil {
		return IndexResult{}, err
	}

	apartmentArea := in.Apartment.SurfaceArea
	totalArea := in.HousingCompany.TotalSurfaceArea

	hcImprovements, err := improvements.HousingCompanyPre2011(ctx, improvements.Valuation{
		Repo:             in.Indices,
		Series:           indices.ConstructionPriceIndex,
		CalculationMonth: in.CalculationMonth,
		TargetIndex:      dates.CompletionDateIndex,
	}, in.Rules.Thresholds, in.HousingCompany.Improvements.ConstructionPrice, apartmentArea, totalArea)
	if err != nil {
		return IndexResult{}, fmt.Errorf("housing company construction price improvements: %w", err)
	}

	apartmentImprovements, err := improvements.ApartmentConstructionPre2011(ctx, improvements.Valuation{
		Repo:             in.Indices,
		Series:           indices.ConstructionPriceIndex,
		CalculationMonth: in.CalculationMonth,
		TargetIndex:      dates.CalculationDateIndex,
	}, in.Apartment.Improvements.ConstructionPrice)
	if err != nil {
		return IndexResult{}, fmt.Errorf("apartment construction price improvements: %w", err)
	}

	assets := in.HousingCompany.AcquisitionPrice.Add(hcImprovements.Summary.ValueForHousingCompany)
	share := mathutil.Round(mathutil.Share(assets, apartmentArea, totalArea))
	interest, percentage := in.Apartment.InterestDuringConstruction(in.HousingCompany.OldHitasRuleset)

	basic := share.Add(interest)
	adjustment := indexAdjustment(basic, dates)
	debtFree := mathutil.Sum(basic, adjustment, apartmentImprovements.Summary.ValueForApartment)
	maximum := debtFree.Sub(in.LoanAmount)

	return IndexResult{
		MaximumPrice: maximum,
		ValidUntil:   in.indexValidUntil(),
		CalculationVariables: ConstructionPriceIndexPre2011Variables{
			HousingCompanyAcquisitionPrice:       in.HousingCompany.AcquisitionPrice,
			HousingCompanyImprovements:           hcImprovements,
			HousingCompanyAssets:                 mathutil.Round(assets),
			ApartmentSurfaceArea:                 apartmentArea,
			HousingCompanySurfaceArea:            totalArea,
			ApartmentShareOfHousingCompanyAssets: share,
			InterestDuringConstruction:           interest,
			InterestDuringConstructionPercentage: percentage,
			BasicPrice:                           basic,
			IndexDates:                           dates,
			IndexAdjustment:                      adjustment,
			ApartmentImprovements:                apartmentImprovements,
			DebtFreePrice:                        debtFree,
			DebtFreePriceM2:                      mathutil.Round(mathutil.Ratio(debtFree, apartmentArea)),
			Loans:                                in.loans(),
			MaximumPrice:                         maximum,
		},
	}, nil
}

// MarketPriceIndex index adjusts the apartment's own acquisition price plus
// the interest during construction and adds the apartment's and its share of
// the housing company's market price improvements above the excess.
func (Pre2011Calculator) MarketPriceIndex(ctx context.Context, in Inputs) (IndexResult, error) {
	dates, err := indexDates(ctx, in, indices.MarketPriceIndex)
	if err != nil {
		return IndexResult{}, err
	}

	acquisition, err := in.Apartment.AcquisitionPrice()
	if err != nil {
		return IndexResult{}, err
	}

	valuation := improvements.Valuation{
		Repo:             in.Indices,
		Series:           indices.MarketPriceIndex,
		CalculationMonth: in.CalculationMonth,
		TargetIndex:      dates.CalculationDateIndex,
	}
	apartmentImprovements, err := improvements.ApartmentMarketPre2011(ctx, valuation, in.Rules.Thresholds,
		in.Apartment.Improvements.MarketPrice, in.Apartment.SurfaceArea)
	if err != nil {
		return IndexResult{}, fmt.Errorf("apartment market price improvements: %w", err)
	}
	hcImprovements, err := improvements.HousingCompanyPre2011(ctx, valuation, in.Rules.Thresholds,
		in.HousingCompany.Improvements.MarketPrice, in.Apartment.SurfaceArea, in.HousingCompany.TotalSurfaceArea)
	if err != nil {
		return IndexResult{}, fmt.Errorf("housing company market price improvements: %w", err)
	}

	interest, percentage := in.Apartment.InterestDuringConstruction(in.HousingCompany.OldHitasRuleset)
	basic := acquisition.Add(interest)
	adjustment := indexAdjustment(basic, dates)
	debtFree := mathutil.Sum(
		basic,
		adjustment,
		apartmentImprovements.Summary.ValueForApartment,
		hcImprovements.Summary.ValueForApartment,
	)
	maximum := debtFree.Sub(in.LoanAmount)

	return IndexResult{
		MaximumPrice: maximum,
		ValidUntil:   in.indexValidUntil(),
		CalculationVariables: MarketPriceIndexPre2011Variables{
			AcquisitionPrice:                     acquisition,
			InterestDuringConstruction:           interest,
			InterestDuringConstructionPercentage: percentage,
			BasicPrice:                           basic,
			IndexDates:                           dates,
			IndexAdjustment:                      adjustment,
			ApartmentImprovements:                apartmentImprovements,
			HousingCompanyImprovements:           hcImprovements,
			DebtFreePrice:                        debtFree,
			DebtFreePriceM2:                      mathutil.Round(mathutil.Ratio(debtFree, in.Apartment.SurfaceArea)),
			Loans:                                in.loans(),
			MaximumPrice:                         maximum,
		},
	}, nil
}
