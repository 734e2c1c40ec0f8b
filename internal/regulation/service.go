package regulation

import (
	"context"
	"fmt"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"go.uber.org/zap"
)

// Store is the persistence a regulation run reads from and writes to.
type Store interface {
	indices.Repository
	// HousingCompanies returns every housing company with its apartments.
	HousingCompanies(ctx context.Context) ([]CompanyFacts, error)
	// DecidedHousingCompanies returns the companies already decided in quarter.
	DecidedHousingCompanies(ctx context.Context, quarter datetime.Quarter) (map[string]bool, error)
	// Sales returns the resales made between the two months, inclusive.
	Sales(ctx context.Context, from, to datetime.Month) ([]Sale, error)
	// ExternalSalesData returns the dataset of a calculation quarter, or nil
	// when none has been stored.
	ExternalSalesData(ctx context.Context, quarter datetime.Quarter) (*ExternalSalesData, error)
	Ownerships(ctx context.Context) ([]domain.Ownership, error)
	// SaveOutcome stores the rows, marks the released companies and
	// obfuscates the listed owners atomically. A row already stored for the
	// same quarter and company fails with *DuplicateRegulationError.
	SaveOutcome(ctx context.Context, outcome *Outcome) error
}

// Service runs the thirty year regulation for a calculation month.
type Service struct {
	logger     *zap.Logger
	store      Store
	comparator *Comparator
}

// NewService creates a Service.
func NewService(logger *zap.Logger, store Store, replacementPostalCodes map[string][]string) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:     logger,
		store:      store,
		comparator: NewComparator(logger, store, replacementPostalCodes),
	}
}

// Run selects the candidates of month's quarter, decides them and, unless
// dryRun is set, stores the outcome. A quarter with stored results cannot be
// run again, whichever month of it is asked for.
func (s *Service) Run(ctx context.Context, month datetime.Month, dryRun bool) (*Outcome, error) {
	quarter := month.Quarter()

	companies, err := s.store.HousingCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load housing companies: %w", err)
	}
	decided, err := s.store.DecidedHousingCompanies(ctx, quarter)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous regulation results: %w", err)
	}

	if len(decided) > 0 {
		return nil, &DuplicateRegulationError{Quarter: quarter}
	}
	candidates := SelectCandidates(companies, month, decided)

	external, err := s.store.ExternalSalesData(ctx, quarter)
	if err != nil {
		return nil, fmt.Errorf("failed to load external sales data: %w", err)
	}

	quarters := quarter.PrecedingQuarters(constants.QuartersInStatistics)
	sales, err := s.store.Sales(ctx, quarters[0].FirstMonth(), quarters[len(quarters)-1].LastMonth())
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	ownerships, err := s.store.Ownerships(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ownerships: %w", err)
	}

	statuses := make(map[string]domain.RegulationStatus, len(companies))
	for _, c := range companies {
		statuses[c.HousingCompany.ID] = c.HousingCompany.RegulationStatus
	}

	outcome, err := s.comparator.Compare(ctx, Input{
		CalculationMonth: month,
		Candidates:       candidates,
		Sales:            sales,
		External:         external,
		Ownerships:       ownerships,
		Statuses:         statuses,
	})
	if err != nil {
		return nil, err
	}

	for _, row := range outcome.Rows {
		s.logger.Info(fmt.Sprintf("housing company %s: %s", row.HousingCompanyID, row.Decision),
			zap.String("op", "regulation.Run"),
			zap.String("housing_company", row.HousingCompanyID),
			zap.String("quarter", quarter.String()),
			zap.String("price", row.ComparedPrice.StringFixed(2)),
		)
	}

	if dryRun {
		return outcome, nil
	}
	if err := s.store.SaveOutcome(ctx, outcome); err != nil {
		return nil, fmt.Errorf("failed to save regulation results: %w", err)
	}
	return outcome, nil
}
