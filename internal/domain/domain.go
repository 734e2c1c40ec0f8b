// Package domain holds the read-only facts the calculations consume: housing
// companies, apartments, sales, improvements and ownerships.
package domain

import (
	"time"

	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
)

// RegulationStatus is the regulation state of a housing company.
type RegulationStatus string

const (
	Regulated                RegulationStatus = "regulated"
	ReleasedByHitas          RegulationStatus = "released_by_hitas"
	ReleasedByPlotDepartment RegulationStatus = "released_by_plot_department"
)

var (
	rulesetCutoff      = datetime.MustParseDate(constants.RulesetCutoffDate)
	highInterestCutoff = datetime.MustParseDate(constants.HighInterestCutoffDate)
)

// Sale is a recorded apartment sale.
type Sale struct {
	PurchaseDate                        time.Time       `yaml:"purchaseDate" json:"purchase_date"`
	PurchasePrice                       decimal.Decimal `yaml:"purchasePrice" json:"purchase_price"`
	ApartmentShareOfHousingCompanyLoans decimal.Decimal `yaml:"apartmentShareOfHousingCompanyLoans" json:"apartment_share_of_housing_company_loans"`
	ExcludeFromStatistics               bool            `yaml:"excludeFromStatistics" json:"exclude_from_statistics"`
}

// TotalPrice is the debt free price of the sale.
func (s Sale) TotalPrice() decimal.Decimal {
	return s.PurchasePrice.Add(s.ApartmentShareOfHousingCompanyLoans)
}

// Improvement is one apartment or housing company improvement.
type Improvement struct {
	Name           string                  `yaml:"name" json:"name"`
	Value          decimal.Decimal         `yaml:"value" json:"value"`
	CompletionDate datetime.Month          `yaml:"completionDate" json:"completion_date"`
	Depreciation   *DepreciationPercentage `yaml:"depreciationPercentage,omitempty" json:"depreciation_percentage,omitempty"`
}

// ImprovementSet groups improvements by the index they are valued with.
type ImprovementSet struct {
	ConstructionPrice []Improvement `yaml:"constructionPrice" json:"construction_price"`
	MarketPrice       []Improvement `yaml:"marketPrice" json:"market_price"`
}

// ApartmentFacts are the apartment attributes a maximum price calculation needs.
type ApartmentFacts struct {
	ID               string          `yaml:"id" json:"id" validate:"required"`
	HousingCompanyID string          `yaml:"housingCompanyId" json:"housing_company_id"`
	CompletionDate   *time.Time      `yaml:"completionDate" json:"completion_date" validate:"required"`
	SurfaceArea      decimal.Decimal `yaml:"surfaceArea" json:"surface_area"`
	ShareNumberStart int             `yaml:"shareNumberStart" json:"share_number_start"`
	ShareNumberEnd   int             `yaml:"shareNumberEnd" json:"share_number_end" validate:"gtefield=ShareNumberStart"`

	FirstSale                *Sale            `yaml:"firstSale,omitempty" json:"first_sale,omitempty"`
	CatalogPurchasePrice     *decimal.Decimal `yaml:"catalogPurchasePrice,omitempty" json:"catalog_purchase_price,omitempty"`
	CatalogPrimaryLoanAmount *decimal.Decimal `yaml:"catalogPrimaryLoanAmount,omitempty" json:"catalog_primary_loan_amount,omitempty"`

	AdditionalWorkDuringConstruction decimal.Decimal `yaml:"additionalWorkDuringConstruction" json:"additional_work_during_construction"`
	InterestDuringConstruction6      decimal.Decimal `yaml:"interestDuringConstruction6" json:"interest_during_construction_6"`
	InterestDuringConstruction14     decimal.Decimal `yaml:"interestDuringConstruction14" json:"interest_during_construction_14"`

	Improvements ImprovementSet `yaml:"improvements" json:"improvements"`
}

// CompletionMonth is the month the apartment was completed in.
func (a ApartmentFacts) CompletionMonth() datetime.Month {
	return datetime.MonthOf(*a.CompletionDate)
}

// HasCatalogPrices reports whether both catalog figures are present.
func (a ApartmentFacts) HasCatalogPrices() bool {
	return a.CatalogPurchasePrice != nil && a.CatalogPrimaryLoanAmount != nil
}

// AcquisitionPrice is the first sale debt free price, or the catalog price
// when the apartment has not been sold yet.
func (a ApartmentFacts) AcquisitionPrice() (decimal.Decimal, error) {
	if a.FirstSale != nil {
		return a.FirstSale.TotalPrice(), nil
	}
	if a.HasCatalogPrices() {
		return a.CatalogPurchasePrice.Add(*a.CatalogPrimaryLoanAmount), nil
	}
	return decimal.Zero, &MissingApartmentDataError{Apartment: a.ID, Reason: ReasonNoPrices}
}

// InterestDuringConstruction selects the 14% figure for old ruleset apartments
// completed before 2005, the 6% figure otherwise.
func (a ApartmentFacts) InterestDuringConstruction(oldRuleset bool) (decimal.Decimal, string) {
	if oldRuleset && a.CompletionDate.Before(highInterestCutoff) {
		return a.InterestDuringConstruction14, "14"
	}
	return a.InterestDuringConstruction6, "6"
}

// HousingCompanyFacts are the housing company attributes shared by all of its
// apartments' calculations. AcquisitionPrice and TotalSurfaceArea are
// aggregates over every apartment, computed once by the provider.
type HousingCompanyFacts struct {
	ID               string           `yaml:"id" json:"id" validate:"required"`
	DisplayName      string           `yaml:"displayName" json:"display_name"`
	PostalCode       string           `yaml:"postalCode" json:"postal_code"`
	CompletionDate   *time.Time       `yaml:"completionDate" json:"completion_date"`
	OldHitasRuleset  bool             `yaml:"oldHitasRuleset" json:"old_hitas_ruleset"`
	RegulationStatus RegulationStatus `yaml:"regulationStatus" json:"regulation_status"`
	TotalSurfaceArea decimal.Decimal  `yaml:"totalSurfaceArea" json:"total_surface_area"`
	AcquisitionPrice decimal.Decimal  `yaml:"acquisitionPrice" json:"acquisition_price"`
	Improvements     ImprovementSet   `yaml:"improvements" json:"improvements"`
}

// UsesRules2011Onwards reports whether an apartment is calculated with the
// 2011-onwards rules: completed in 2011 or later in a company that does not
// use the old ruleset.
func UsesRules2011Onwards(apartment ApartmentFacts, company HousingCompanyFacts) bool {
	return !apartment.CompletionDate.Before(rulesetCutoff) && !company.OldHitasRuleset
}

// Ownership links an owner to an apartment.
type Ownership struct {
	OwnerID          string `json:"owner_id"`
	ApartmentID      string `json:"apartment_id"`
	HousingCompanyID string `json:"housing_company_id"`
}
