package maxprice

import (
	"context"
	"fmt"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Recorder persists finished calculations. Implementations assign the
// result's ID and CreatedAt.
type Recorder interface {
	SaveCalculation(ctx context.Context, result *Result) error
}

// governingPriority is the order the governing index is picked in when
// several figures share the maximum.
var governingPriority = []IndexName{MarketPriceIndex, ConstructionPriceIndex, SurfaceAreaPriceCeiling}

// Engine runs maximum price calculations against an index repository.
type Engine struct {
	logger   *zap.Logger
	repo     indices.Repository
	rules    Rules
	recorder Recorder
}

// NewEngine creates an Engine. A nil logger disables logging.
func NewEngine(logger *zap.Logger, repo indices.Repository, rules Rules) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger, repo: repo, rules: rules}
}

// WithRecorder makes the engine persist every successful calculation.
func (e *Engine) WithRecorder(recorder Recorder) *Engine {
	e.recorder = recorder
	return e
}

// Calculate computes the three maximum price figures for one apartment and
// selects the governing one. Every index value the calculation needs is read
// before anything is computed; a missing value fails the calculation with an
// *indices.MissingIndexError.
func (e *Engine) Calculate(ctx context.Context, req Request) (*Result, error) {
	result, err := e.calculate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := e.record(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) calculate(ctx context.Context, req Request) (*Result, error) {
	calculator, in, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug(fmt.Sprintf("calculating apartment %s with %s rules", req.Apartment.ID, calculator.Name()),
		zap.String("op", "maxprice.Calculate"),
		zap.String("apartment", req.Apartment.ID),
		zap.String("housing_company", req.HousingCompany.ID),
	)

	result := &Result{
		ApartmentID:      req.Apartment.ID,
		HousingCompanyID: req.HousingCompany.ID,
		RulesVersion:     calculator.Name(),
		CalculationDate:  req.CalculationDate,
		AdditionalInfo:   req.AdditionalInfo,
	}

	if result.Indices.ConstructionPriceIndex, err = calculator.ConstructionPriceIndex(ctx, in); err != nil {
		return nil, fmt.Errorf("apartment %s construction price index: %w", req.Apartment.ID, err)
	}
	if result.Indices.MarketPriceIndex, err = calculator.MarketPriceIndex(ctx, in); err != nil {
		return nil, fmt.Errorf("apartment %s market price index: %w", req.Apartment.ID, err)
	}
	if result.Indices.SurfaceAreaPriceCeiling, err = calculator.SurfaceAreaPriceCeiling(ctx, in); err != nil {
		return nil, fmt.Errorf("apartment %s surface area price ceiling: %w", req.Apartment.ID, err)
	}

	selectMaximum(result)

	e.logger.Debug(fmt.Sprintf("apartment %s maximum price %s from %s", req.Apartment.ID, result.MaximumPrice.StringFixed(2), result.MaximumPriceIndex),
		zap.String("op", "maxprice.Calculate"),
		zap.String("apartment", req.Apartment.ID),
	)
	return result, nil
}

func (e *Engine) record(ctx context.Context, result *Result) error {
	if e.recorder == nil {
		return nil
	}
	if err := e.recorder.SaveCalculation(ctx, result); err != nil {
		return fmt.Errorf("failed to record calculation for apartment %s: %w", result.ApartmentID, err)
	}
	return nil
}

// prepare validates the request, picks the rules and prefetches the indices.
func (e *Engine) prepare(ctx context.Context, req Request) (Calculator, Inputs, error) {
	if err := validateRequest(req); err != nil {
		return nil, Inputs{}, err
	}

	loanDate := req.CalculationDate
	if req.LoanDate != nil {
		loanDate = *req.LoanDate
	}
	if sale := req.Apartment.FirstSale; sale != nil && datetime.DateBeforeDate(loanDate, sale.PurchaseDate) {
		return nil, Inputs{}, &InvalidLoanDateError{LoanDate: loanDate, FirstSaleDate: sale.PurchaseDate}
	}

	calculator := SelectCalculator(req.Apartment, req.HousingCompany)
	snapshot, err := indices.Prefetch(ctx, e.repo, calculator.RequiredIndices(req))
	if err != nil {
		return nil, Inputs{}, err
	}

	return calculator, Inputs{
		Request:          req,
		Indices:          snapshot,
		Rules:            e.rules,
		CompletionMonth:  datetime.MonthOf(*req.Apartment.CompletionDate),
		CalculationMonth: datetime.MonthOf(req.CalculationDate),
		LoanDate:         loanDate,
	}, nil
}

func validateRequest(req Request) error {
	a := req.Apartment
	if a.CompletionDate == nil {
		return fmt.Errorf("apartment %s is not completed", a.ID)
	}
	if req.CalculationDate.IsZero() {
		return fmt.Errorf("apartment %s: calculation date is required", a.ID)
	}

	_, priceErr := a.AcquisitionPrice()
	noArea := !a.SurfaceArea.IsPositive()
	switch {
	case priceErr != nil && noArea:
		return &domain.MissingApartmentDataError{Apartment: a.ID, Reason: domain.ReasonNoPricesNorSurfaceArea}
	case priceErr != nil:
		return priceErr
	case noArea:
		return &domain.MissingApartmentDataError{Apartment: a.ID, Reason: domain.ReasonNoSurfaceArea}
	}

	if !req.HousingCompany.TotalSurfaceArea.IsPositive() {
		return fmt.Errorf("housing company %s has no surface area", req.HousingCompany.ID)
	}
	return nil
}

// selectMaximum sets the overall maximum, flags every figure equal to it and
// picks the governing index by priority.
func selectMaximum(result *Result) {
	maximum := decimal.Max(
		result.Indices.ConstructionPriceIndex.MaximumPrice,
		result.Indices.MarketPriceIndex.MaximumPrice,
		result.Indices.SurfaceAreaPriceCeiling.MaximumPrice,
	)
	result.MaximumPrice = maximum

	for _, name := range governingPriority {
		figure := result.Indices.Get(name)
		figure.Maximum = figure.MaximumPrice.Equal(maximum)
		if figure.Maximum && result.MaximumPriceIndex == "" {
			result.MaximumPriceIndex = name
			result.ValidUntil = figure.ValidUntil
		}
	}
}
