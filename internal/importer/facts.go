package importer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/internal/regulation"
	"github.com/iwvelando/hitas-engine/internal/store"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FactFile is the YAML document describing housing companies, their
// apartments and owners, and any index values.
type FactFile struct {
	Indices          []IndexEntry   `yaml:"indices" validate:"dive"`
	HousingCompanies []CompanyEntry `yaml:"housingCompanies" validate:"dive"`
	Owners           []OwnerEntry   `yaml:"owners" validate:"dive"`
}

// IndexEntry is one index value in a fact file.
type IndexEntry struct {
	Series string          `yaml:"series" validate:"required"`
	Month  datetime.Month  `yaml:"month"`
	Value  decimal.Decimal `yaml:"value"`
}

// CompanyEntry is a housing company with its apartments.
type CompanyEntry struct {
	domain.HousingCompanyFacts `yaml:",inline"`
	Apartments                 []ApartmentEntry `yaml:"apartments" validate:"dive"`
}

// ApartmentEntry is an apartment with its resales.
type ApartmentEntry struct {
	domain.ApartmentFacts `yaml:",inline"`
	Resales               []domain.Sale `yaml:"resales"`
}

// OwnerEntry is an owner and the apartments it owns.
type OwnerEntry struct {
	ID             string   `yaml:"id" validate:"required"`
	Name           string   `yaml:"name"`
	IdentifierCode string   `yaml:"identifierCode"`
	Email          string   `yaml:"email" validate:"omitempty,email"`
	Apartments     []string `yaml:"apartments" validate:"dive,required"`
}

// LoadFacts reads and validates a fact file.
func LoadFacts(path string) (*FactFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fact file %s: %w", path, err)
	}
	return ParseFacts(raw)
}

// ParseFacts decodes and validates a fact file document.
func ParseFacts(raw []byte) (*FactFile, error) {
	var facts FactFile
	if err := yaml.Unmarshal(raw, &facts); err != nil {
		return nil, fmt.Errorf("failed to decode fact file: %w", err)
	}
	if err := validator.New().Struct(&facts); err != nil {
		return nil, fmt.Errorf("invalid fact file: %w", err)
	}

	apartments := make(map[string]bool)
	for _, c := range facts.HousingCompanies {
		for _, a := range c.Apartments {
			if apartments[a.ID] {
				return nil, fmt.Errorf("invalid fact file: apartment %s appears twice", a.ID)
			}
			apartments[a.ID] = true
		}
	}
	for _, o := range facts.Owners {
		for _, id := range o.Apartments {
			if !apartments[id] {
				return nil, fmt.Errorf("invalid fact file: owner %s owns unknown apartment %s", o.ID, id)
			}
		}
	}
	for _, c := range facts.HousingCompanies {
		if _, err := c.Company(); err != nil {
			return nil, fmt.Errorf("invalid fact file: housing company %s: %w", c.ID, err)
		}
	}
	return &facts, nil
}

// Company returns the company facts with the aggregates filled in: the total
// surface area and acquisition price default to the sums over the apartments.
// Defaulting the acquisition price fails with a *domain.MissingApartmentDataError
// when an apartment has neither a first sale nor catalog prices.
func (c CompanyEntry) Company() (regulation.CompanyFacts, error) {
	company := regulation.CompanyFacts{HousingCompany: c.HousingCompanyFacts}
	defaultPrice := company.HousingCompany.AcquisitionPrice.IsZero()
	var area, price decimal.Decimal
	for _, a := range c.Apartments {
		facts := a.ApartmentFacts
		facts.HousingCompanyID = c.ID
		company.Apartments = append(company.Apartments, facts)

		area = area.Add(facts.SurfaceArea)
		if defaultPrice {
			p, err := facts.AcquisitionPrice()
			if err != nil {
				return regulation.CompanyFacts{}, err
			}
			price = price.Add(p)
		}
	}
	if company.HousingCompany.TotalSurfaceArea.IsZero() {
		company.HousingCompany.TotalSurfaceArea = area
	}
	if defaultPrice {
		company.HousingCompany.AcquisitionPrice = price
	}
	if company.HousingCompany.RegulationStatus == "" {
		company.HousingCompany.RegulationStatus = domain.Regulated
	}
	if company.HousingCompany.CompletionDate == nil {
		company.HousingCompany.CompletionDate = company.CompletionDate()
	}
	return company, nil
}

// Target is where imported data is written.
type Target interface {
	SaveIndices(ctx context.Context, values []indices.Value) error
	SaveHousingCompany(ctx context.Context, company regulation.CompanyFacts) error
	SaveResales(ctx context.Context, apartmentID string, sales []domain.Sale) error
	SaveOwnership(ctx context.Context, owner store.Owner, ownership domain.Ownership) error
	SaveExternalSalesData(ctx context.Context, data *regulation.ExternalSalesData) error
}

// Importer writes parsed input into a Target.
type Importer struct {
	logger *zap.Logger
	target Target
}

// New creates an Importer.
func New(logger *zap.Logger, target Target) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{logger: logger, target: target}
}

// ImportFacts stores everything in a fact file.
func (im *Importer) ImportFacts(ctx context.Context, facts *FactFile) error {
	start := time.Now()

	values := make([]indices.Value, 0, len(facts.Indices))
	for _, e := range facts.Indices {
		series, err := indices.ParseSeries(e.Series)
		if err != nil {
			return err
		}
		values = append(values, indices.Value{Series: series, Month: e.Month, Value: e.Value})
	}
	if err := im.target.SaveIndices(ctx, values); err != nil {
		return err
	}

	companyOf := make(map[string]string)
	for _, entry := range facts.HousingCompanies {
		company, err := entry.Company()
		if err != nil {
			return fmt.Errorf("failed to import housing company %s: %w", entry.ID, err)
		}
		if err := im.target.SaveHousingCompany(ctx, company); err != nil {
			return err
		}
		for _, a := range entry.Apartments {
			companyOf[a.ID] = entry.ID
			if err := im.target.SaveResales(ctx, a.ID, a.Resales); err != nil {
				return err
			}
		}
	}

	for _, o := range facts.Owners {
		owner := store.Owner{ID: o.ID, Name: o.Name, IdentifierCode: o.IdentifierCode, Email: o.Email}
		for _, apartmentID := range o.Apartments {
			ownership := domain.Ownership{OwnerID: o.ID, ApartmentID: apartmentID, HousingCompanyID: companyOf[apartmentID]}
			if err := im.target.SaveOwnership(ctx, owner, ownership); err != nil {
				return err
			}
		}
	}

	im.logger.Info(fmt.Sprintf("imported %d housing companies, %d owners and %d index values",
		len(facts.HousingCompanies), len(facts.Owners), len(values)),
		zap.String("op", "importer.ImportFacts"),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// ImportIndices stores index values read with LoadIndexCSV.
func (im *Importer) ImportIndices(ctx context.Context, values []indices.Value) error {
	if err := im.target.SaveIndices(ctx, values); err != nil {
		return err
	}
	im.logger.Info(fmt.Sprintf("imported %d index values", len(values)),
		zap.String("op", "importer.ImportIndices"),
	)
	return nil
}

// ImportExternalSales stores a dataset read with LoadExternalSalesCSV.
func (im *Importer) ImportExternalSales(ctx context.Context, data *regulation.ExternalSalesData) error {
	if err := im.target.SaveExternalSalesData(ctx, data); err != nil {
		return err
	}
	im.logger.Info(fmt.Sprintf("imported external sales data for %s", data.CalculationQuarter),
		zap.String("op", "importer.ImportExternalSales"),
	)
	return nil
}
