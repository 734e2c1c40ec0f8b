package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IndexValue is one month of one index series.
type IndexValue struct {
	Series string          `gorm:"column:series;primaryKey"`
	Month  string          `gorm:"column:month;primaryKey;size:7"`
	Value  decimal.Decimal `gorm:"column:value;type:text;not null"`
}

// HousingCompany holds the company level facts. Improvements are kept as a
// JSON document.
type HousingCompany struct {
	ID               string          `gorm:"column:id;primaryKey"`
	DisplayName      string          `gorm:"column:display_name"`
	PostalCode       string          `gorm:"column:postal_code;index"`
	CompletionDate   *time.Time      `gorm:"column:completion_date"`
	OldHitasRuleset  bool            `gorm:"column:old_hitas_ruleset;not null"`
	RegulationStatus string          `gorm:"column:regulation_status;not null;index"`
	TotalSurfaceArea decimal.Decimal `gorm:"column:total_surface_area;type:text;not null"`
	AcquisitionPrice decimal.Decimal `gorm:"column:acquisition_price;type:text;not null"`
	Improvements     datatypes.JSON  `gorm:"column:improvements"`
	Apartments       []Apartment     `gorm:"foreignKey:HousingCompanyID"`
	UpdatedAt        time.Time
}

// Apartment stores the full apartment facts as a JSON document.
type Apartment struct {
	ID               string         `gorm:"column:id;primaryKey"`
	HousingCompanyID string         `gorm:"column:housing_company_id;not null;index"`
	Facts            datatypes.JSON `gorm:"column:facts;not null"`
}

// Sale is an apartment sale. First sales are stored with FirstSale set.
type Sale struct {
	ID                                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ApartmentID                         string          `gorm:"column:apartment_id;not null;index"`
	PurchaseDate                        time.Time       `gorm:"column:purchase_date;not null"`
	PurchaseMonth                       string          `gorm:"column:purchase_month;size:7;not null;index"`
	PurchasePrice                       decimal.Decimal `gorm:"column:purchase_price;type:text;not null"`
	ApartmentShareOfHousingCompanyLoans decimal.Decimal `gorm:"column:apartment_share_of_housing_company_loans;type:text;not null"`
	ExcludeFromStatistics               bool            `gorm:"column:exclude_from_statistics;not null"`
	FirstSale                           bool            `gorm:"column:first_sale;not null"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Owner is a person or organization owning apartments.
type Owner struct {
	ID             string `gorm:"column:id;primaryKey"`
	Name           string `gorm:"column:name"`
	IdentifierCode string `gorm:"column:identifier_code"`
	Email          string `gorm:"column:email"`
	Obfuscated     bool   `gorm:"column:obfuscated;not null"`
}

// Ownership links an owner to an apartment.
type Ownership struct {
	OwnerID          string `gorm:"column:owner_id;primaryKey"`
	ApartmentID      string `gorm:"column:apartment_id;primaryKey"`
	HousingCompanyID string `gorm:"column:housing_company_id;not null;index"`
}

// ExternalSalesData is the market sales dataset of one calculation quarter.
type ExternalSalesData struct {
	CalculationQuarter string         `gorm:"column:calculation_quarter;primaryKey"`
	Quarters           datatypes.JSON `gorm:"column:quarters;not null"`
	CreatedAt          time.Time
}

// MaxPriceCalculation is an immutable record of one maximum price calculation.
type MaxPriceCalculation struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ApartmentID       string          `gorm:"column:apartment_id;not null;index"`
	CalculationDate   time.Time       `gorm:"column:calculation_date;not null"`
	ValidUntil        time.Time       `gorm:"column:valid_until;not null"`
	MaximumPrice      decimal.Decimal `gorm:"column:maximum_price;type:text;not null"`
	MaximumPriceIndex string          `gorm:"column:maximum_price_index;not null"`
	RulesVersion      string          `gorm:"column:rules_version;not null"`
	Result            datatypes.JSON  `gorm:"column:result;not null"`
	CreatedAt         time.Time
}

// RegulationResult is the decision for one housing company in one quarter.
type RegulationResult struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Quarter          string          `gorm:"column:quarter;not null;uniqueIndex:idx_regulation_quarter_company"`
	HousingCompanyID string          `gorm:"column:housing_company_id;not null;uniqueIndex:idx_regulation_quarter_company"`
	CalculationMonth string          `gorm:"column:calculation_month;size:7;not null"`
	Decision         string          `gorm:"column:decision;not null"`
	Price            decimal.Decimal `gorm:"column:price;type:text;not null"`
	Row              datatypes.JSON  `gorm:"column:row;not null"`
	CreatedAt        time.Time
}

func (r *RegulationResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
