package regulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/iwvelando/hitas-engine/pkg/mathutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Input is everything one regulation run compares against.
type Input struct {
	CalculationMonth datetime.Month
	// Candidates are the companies to decide, see SelectCandidates.
	Candidates []CompanyFacts
	Sales      []Sale
	External   *ExternalSalesData
	Ownerships []domain.Ownership
	// Statuses holds the regulation status of every housing company
	// referenced by Ownerships.
	Statuses map[string]domain.RegulationStatus
}

// Comparator compares housing companies' index adjusted acquisition prices
// against their area's sale prices.
type Comparator struct {
	logger                 *zap.Logger
	repo                   indices.Repository
	replacementPostalCodes map[string][]string
}

// NewComparator creates a Comparator. replacementPostalCodes maps a postal
// code to the codes whose statistics stand in for it when it has none.
func NewComparator(logger *zap.Logger, repo indices.Repository, replacementPostalCodes map[string][]string) *Comparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{logger: logger, repo: repo, replacementPostalCodes: replacementPostalCodes}
}

// Compare decides every candidate. Index values and the external sales data
// are read once before any company is evaluated. Missing apartment data and
// zero average prices are collected over the whole batch and fail it as a
// whole.
func (c *Comparator) Compare(ctx context.Context, in Input) (*Outcome, error) {
	quarter := in.CalculationMonth.Quarter()
	if in.External == nil || in.External.CalculationQuarter != quarter {
		return nil, ErrMissingExternalSalesData
	}

	for _, company := range in.Candidates {
		if company.CompletionDate() == nil {
			return nil, fmt.Errorf("housing company %s is not completed", company.HousingCompany.ID)
		}
	}

	snapshot, err := indices.Prefetch(ctx, c.repo, requiredIndices(in))
	if err != nil {
		return nil, err
	}
	sapc := snapshot.Must(indices.SurfaceAreaPriceCeiling, in.CalculationMonth)
	calculationIndex := snapshot.Must(indices.MarketPriceIndex, in.CalculationMonth)
	statistics := NewAreaStatistics(quarter, in.Sales, in.External)

	outcome := &Outcome{CalculationMonth: in.CalculationMonth, Quarter: quarter}
	var apartmentErrs []error
	var zeroPrice []string

	for _, company := range in.Candidates {
		hc := company.HousingCompany
		row := Row{
			HousingCompanyID: hc.ID,
			DisplayName:      hc.DisplayName,
			PostalCode:       hc.PostalCode,
			CompletionDate:   *company.CompletionDate(),
		}

		if !hc.OldHitasRuleset {
			row.Decision = AutomaticallyReleased
			outcome.Rows = append(outcome.Rows, row)
			continue
		}

		price, area, errs := realizedAcquisitionPrice(company.Apartments)
		if len(errs) > 0 {
			apartmentErrs = append(apartmentErrs, errs...)
			continue
		}
		if area.IsZero() {
			return nil, &ZeroSurfaceAreaError{HousingCompany: hc.ID}
		}

		row.SurfaceArea = area
		row.RealizedAcquisitionPrice = price
		row.UnadjustedAveragePricePerM2 = mathutil.Round(price.Div(area))
		if row.UnadjustedAveragePricePerM2.IsZero() {
			zeroPrice = append(zeroPrice, hc.ID)
			continue
		}

		row.CompletionMonthIndex = snapshot.Must(indices.MarketPriceIndex, datetime.MonthOf(row.CompletionDate))
		if !row.CompletionMonthIndex.IsPositive() {
			return nil, fmt.Errorf("%s for %s is not positive", indices.MarketPriceIndex, datetime.MonthOf(row.CompletionDate))
		}
		row.CalculationMonthIndex = calculationIndex
		row.AdjustedAveragePricePerM2 = mathutil.Round(
			mathutil.IndexAdjust(row.UnadjustedAveragePricePerM2, calculationIndex, row.CompletionMonthIndex),
		)
		row.SurfaceAreaPriceCeiling = sapc
		row.ComparedPrice = mathutil.Max(row.AdjustedAveragePricePerM2, sapc)

		areaPrice, ok := statistics.AveragePrice(hc.PostalCode)
		if !ok {
			if replacements := c.replacementPostalCodes[hc.PostalCode]; len(replacements) > 0 {
				row.ReplacementPostalCodes = replacements
				areaPrice, ok = statistics.AveragePrice(replacements...)
			}
		}

		switch {
		case !ok:
			row.Decision = Skipped
		case row.ComparedPrice.LessThan(areaPrice):
			row.AreaAveragePrice = &areaPrice
			row.Decision = StaysRegulated
		default:
			row.AreaAveragePrice = &areaPrice
			row.Decision = ReleasedFromRegulation
		}
		outcome.Rows = append(outcome.Rows, row)
	}

	if len(apartmentErrs) > 0 {
		return nil, errors.Join(apartmentErrs...)
	}
	if len(zeroPrice) > 0 {
		return nil, &ZeroAveragePriceError{HousingCompanies: zeroPrice}
	}

	released := make(map[string]bool)
	for _, row := range outcome.Rows {
		if row.Decision.Released() {
			released[row.HousingCompanyID] = true
		}
	}
	outcome.ObfuscatedOwners = ownersToObfuscate(released, in.Ownerships, in.Statuses)

	c.logger.Debug(fmt.Sprintf("compared %d housing companies for %s", len(outcome.Rows), quarter),
		zap.String("op", "regulation.Compare"),
	)
	return outcome, nil
}

// requiredIndices lists the market price index at every compared company's
// completion month and at the calculation month, and the surface area price
// ceiling at the calculation month.
func requiredIndices(in Input) []indices.Request {
	requests := []indices.Request{
		{Series: indices.MarketPriceIndex, Month: in.CalculationMonth},
		{Series: indices.SurfaceAreaPriceCeiling, Month: in.CalculationMonth},
	}
	for _, company := range in.Candidates {
		if !company.HousingCompany.OldHitasRuleset {
			continue
		}
		requests = append(requests, indices.Request{
			Series: indices.MarketPriceIndex,
			Month:  datetime.MonthOf(*company.CompletionDate()),
		})
	}
	return requests
}

// realizedAcquisitionPrice sums the apartments' first sale or catalog prices
// and their surface areas, reporting every apartment missing either.
func realizedAcquisitionPrice(apartments []domain.ApartmentFacts) (decimal.Decimal, decimal.Decimal, []error) {
	var price, area decimal.Decimal
	var errs []error
	for _, a := range apartments {
		p, priceErr := a.AcquisitionPrice()
		noArea := !a.SurfaceArea.IsPositive()
		switch {
		case priceErr != nil && noArea:
			errs = append(errs, &domain.MissingApartmentDataError{Apartment: a.ID, Reason: domain.ReasonNoPricesNorSurfaceArea})
		case priceErr != nil:
			errs = append(errs, priceErr)
		case noArea:
			errs = append(errs, &domain.MissingApartmentDataError{Apartment: a.ID, Reason: domain.ReasonNoSurfaceArea})
		default:
			price = price.Add(p)
			area = area.Add(a.SurfaceArea)
		}
	}
	return price, area, errs
}
