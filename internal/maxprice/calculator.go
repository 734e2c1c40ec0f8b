// Package maxprice computes the regulated maximum resale price of an apartment
// as three parallel figures and selects the governing one.
package maxprice

import (
	"context"
	"fmt"
	"time"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/improvements"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
)

const (
	RulesPre2011     = "pre_2011"
	Rules2011Onwards = "2011_onwards"
)

// Rules are the statutory constants a calculation runs with.
type Rules struct {
	Thresholds improvements.Thresholds
	// IndexValidityMonths is added to the calculation date for the index
	// based results.
	IndexValidityMonths int
	// SurfaceAreaPriceCeilingValidityMonths is added to the end of the
	// calculation month for the surface area price ceiling result.
	SurfaceAreaPriceCeilingValidityMonths int
}

// DefaultRules returns the statutory rules.
func DefaultRules() Rules {
	return Rules{
		Thresholds:                            improvements.DefaultThresholds(),
		IndexValidityMonths:                   constants.IndexValidityMonths,
		SurfaceAreaPriceCeilingValidityMonths: constants.SurfaceAreaPriceCeilingValidityMonths,
	}
}

// Request is one maximum price calculation to perform.
type Request struct {
	Apartment       domain.ApartmentFacts
	HousingCompany  domain.HousingCompanyFacts
	CalculationDate time.Time
	// LoanAmount is the apartment's current share of the housing company loans.
	LoanAmount decimal.Decimal
	// LoanDate is the date LoanAmount was valued at. It defaults to the
	// calculation date.
	LoanDate       *time.Time
	AdditionalInfo string
}

// Inputs is a validated request together with the prefetched indices it is
// calculated against.
type Inputs struct {
	Request
	Indices          indices.Repository
	Rules            Rules
	CompletionMonth  datetime.Month
	CalculationMonth datetime.Month
	LoanDate         time.Time
}

func (in Inputs) index(ctx context.Context, series indices.Series, month datetime.Month) (decimal.Decimal, error) {
	return in.Indices.Get(ctx, series, month)
}

func (in Inputs) loans() Loans {
	return Loans{
		ApartmentShareOfHousingCompanyLoans:     in.LoanAmount,
		ApartmentShareOfHousingCompanyLoansDate: in.LoanDate,
	}
}

func (in Inputs) indexValidUntil() time.Time {
	return datetime.AddMonthsClamped(in.CalculationDate, in.Rules.IndexValidityMonths)
}

// Calculator is one rule set. Implementations are stateless.
type Calculator interface {
	// Name is the rules version recorded on the result.
	Name() string
	// RequiredIndices lists every index value the calculation reads.
	RequiredIndices(req Request) []indices.Request
	ConstructionPriceIndex(ctx context.Context, in Inputs) (IndexResult, error)
	MarketPriceIndex(ctx context.Context, in Inputs) (IndexResult, error)
	SurfaceAreaPriceCeiling(ctx context.Context, in Inputs) (IndexResult, error)
}

// SelectCalculator returns the 2011-onwards rules for apartments completed in
// 2011 or later in companies not using the old ruleset, the pre-2011 rules
// otherwise.
func SelectCalculator(apartment domain.ApartmentFacts, company domain.HousingCompanyFacts) Calculator {
	if domain.UsesRules2011Onwards(apartment, company) {
		return Onwards2011Calculator{}
	}
	return Pre2011Calculator{}
}

// indexRequests lists the completion and calculation month values of each
// series, the surface area price ceiling and every improvement's completion
// month value.
func indexRequests(req Request, construction, market indices.Series, constructionImps, marketImps []domain.Improvement) []indices.Request {
	completion := datetime.MonthOf(*req.Apartment.CompletionDate)
	calculation := datetime.MonthOf(req.CalculationDate)

	out := []indices.Request{
		{Series: construction, Month: completion},
		{Series: construction, Month: calculation},
		{Series: market, Month: completion},
		{Series: market, Month: calculation},
		{Series: indices.SurfaceAreaPriceCeiling, Month: calculation},
	}
	for _, imp := range constructionImps {
		out = append(out, indices.Request{Series: construction, Month: imp.CompletionDate})
	}
	for _, imp := range marketImps {
		out = append(out, indices.Request{Series: market, Month: imp.CompletionDate})
	}
	return out
}

// indexDates reads the completion and calculation month values of series.
func indexDates(ctx context.Context, in Inputs, series indices.Series) (IndexDates, error) {
	completionIndex, err := in.index(ctx, series, in.CompletionMonth)
	if err != nil {
		return IndexDates{}, err
	}
	if !completionIndex.IsPositive() {
		return IndexDates{}, fmt.Errorf("%s for %s is not positive: %s", series, in.CompletionMonth, completionIndex)
	}
	calculationIndex, err := in.index(ctx, series, in.CalculationMonth)
	if err != nil {
		return IndexDates{}, err
	}
	return IndexDates{
		CompletionDate:       *in.Apartment.CompletionDate,
		CompletionDateIndex:  completionIndex,
		CalculationDate:      in.CalculationDate,
		CalculationDateIndex: calculationIndex,
	}, nil
}
