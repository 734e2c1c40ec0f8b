package maxprice

import (
	"time"

	"github.com/iwvelando/hitas-engine/internal/improvements"
	"github.com/shopspring/decimal"
)

// IndexName names one of the three parallel maximum price figures.
type IndexName string

const (
	ConstructionPriceIndex  IndexName = "construction_price_index"
	MarketPriceIndex        IndexName = "market_price_index"
	SurfaceAreaPriceCeiling IndexName = "surface_area_price_ceiling"
)

// IndexResult is one of the three maximum price figures together with every
// intermediate value used to compute it.
type IndexResult struct {
	MaximumPrice decimal.Decimal `json:"maximum_price"`
	ValidUntil   time.Time       `json:"valid_until"`
	Maximum      bool            `json:"maximum"`
	// CalculationVariables holds one of the *Variables types of this package.
	CalculationVariables interface{} `json:"calculation_variables"`
}

// Indices holds the three figures.
type Indices struct {
	ConstructionPriceIndex  IndexResult `json:"construction_price_index"`
	MarketPriceIndex        IndexResult `json:"market_price_index"`
	SurfaceAreaPriceCeiling IndexResult `json:"surface_area_price_ceiling"`
}

// Get returns the figure for name.
func (i *Indices) Get(name IndexName) *IndexResult {
	switch name {
	case ConstructionPriceIndex:
		return &i.ConstructionPriceIndex
	case MarketPriceIndex:
		return &i.MarketPriceIndex
	case SurfaceAreaPriceCeiling:
		return &i.SurfaceAreaPriceCeiling
	}
	return nil
}

// Result is a complete maximum price calculation.
type Result struct {
	// ID and CreatedAt are assigned when the result is recorded.
	ID        string    `json:"id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	ApartmentID       string          `json:"apartment_id"`
	HousingCompanyID  string          `json:"housing_company_id"`
	RulesVersion      string          `json:"rules_version"`
	CalculationDate   time.Time       `json:"calculation_date"`
	ValidUntil        time.Time       `json:"valid_until"`
	MaximumPrice      decimal.Decimal `json:"maximum_price"`
	MaximumPriceIndex IndexName       `json:"maximum_price_index"`
	Indices           Indices         `json:"indices"`
	AdditionalInfo    string          `json:"additional_info,omitempty"`
}

// IndexDates are the index values an index adjustment was made with.
type IndexDates struct {
	CompletionDate       time.Time       `json:"completion_date"`
	CompletionDateIndex  decimal.Decimal `json:"completion_date_index"`
	CalculationDate      time.Time       `json:"calculation_date"`
	CalculationDateIndex decimal.Decimal `json:"calculation_date_index"`
}

// Loans is the apartment's share of the housing company loans deducted from
// the debt free price.
type Loans struct {
	ApartmentShareOfHousingCompanyLoans     decimal.Decimal `json:"apartment_share_of_housing_company_loans"`
	ApartmentShareOfHousingCompanyLoansDate time.Time       `json:"apartment_share_of_housing_company_loans_date"`
}

// ConstructionPriceIndexPre2011Variables are the audit trail of the pre-2011
// construction price index calculation.
type ConstructionPriceIndexPre2011Variables struct {
	HousingCompanyAcquisitionPrice       decimal.Decimal     `json:"housing_company_acquisition_price"`
	HousingCompanyImprovements           improvements.Result `json:"housing_company_improvements"`
	HousingCompanyAssets                 decimal.Decimal     `json:"housing_company_assets"`
	ApartmentSurfaceArea                 decimal.Decimal     `json:"apartment_surface_area"`
	HousingCompanySurfaceArea            decimal.Decimal     `json:"housing_company_surface_area"`
	ApartmentShareOfHousingCompanyAssets decimal.Decimal     `json:"apartment_share_of_housing_company_assets"`
	InterestDuringConstruction           decimal.Decimal     `json:"interest_during_construction"`
	InterestDuringConstructionPercentage string              `json:"interest_during_construction_percentage"`
	BasicPrice                           decimal.Decimal     `json:"basic_price"`
	IndexDates
	IndexAdjustment       decimal.Decimal     `json:"index_adjustment"`
	ApartmentImprovements improvements.Result `json:"apartment_improvements"`
	DebtFreePrice         decimal.Decimal     `json:"debt_free_price"`
	DebtFreePriceM2       decimal.Decimal     `json:"debt_free_price_m2"`
	Loans
	MaximumPrice decimal.Decimal `json:"maximum_price"`
}

// MarketPriceIndexPre2011Variables are the audit trail of the pre-2011 market
// price index calculation.
type MarketPriceIndexPre2011Variables struct {
	AcquisitionPrice                     decimal.Decimal `json:"acquisition_price"`
	InterestDuringConstruction           decimal.Decimal `json:"interest_during_construction"`
	InterestDuringConstructionPercentage string          `json:"interest_during_construction_percentage"`
	BasicPrice                           decimal.Decimal `json:"basic_price"`
	IndexDates
	IndexAdjustment            decimal.Decimal     `json:"index_adjustment"`
	ApartmentImprovements      improvements.Result `json:"apartment_improvements"`
	HousingCompanyImprovements improvements.Result `json:"housing_company_improvements"`
	DebtFreePrice              decimal.Decimal     `json:"debt_free_price"`
	DebtFreePriceM2            decimal.Decimal     `json:"debt_free_price_m2"`
	Loans
	MaximumPrice decimal.Decimal `json:"maximum_price"`
}

// Rules2011OnwardsVariables are the audit trail of either index calculation
// in the 2011-onwards rules.
type Rules2011OnwardsVariables struct {
	FirstSaleAcquisitionPrice        decimal.Decimal `json:"first_sale_acquisition_price"`
	AdditionalWorkDuringConstruction decimal.Decimal `json:"additional_work_during_construction"`
	BasicPrice                       decimal.Decimal `json:"basic_price"`
	IndexDates
	IndexAdjustment            decimal.Decimal     `json:"index_adjustment"`
	HousingCompanyImprovements improvements.Result `json:"housing_company_improvements"`
	DebtFreePrice              decimal.Decimal     `json:"debt_free_price"`
	DebtFreePriceM2            decimal.Decimal     `json:"debt_free_price_m2"`
	Loans
	MaximumPrice decimal.Decimal `json:"maximum_price"`
}

// SurfaceAreaPriceCeilingVariables are the audit trail of the surface area
// price ceiling calculation.
type SurfaceAreaPriceCeilingVariables struct {
	CalculationMonth             string          `json:"calculation_month"`
	SurfaceAreaPriceCeilingValue decimal.Decimal `json:"surface_area_price_ceiling"`
	SurfaceArea                  decimal.Decimal `json:"surface_area"`
	DebtFreePrice                decimal.Decimal `json:"debt_free_price"`
	Loans
	MaximumPrice decimal.Decimal `json:"maximum_price"`
}
