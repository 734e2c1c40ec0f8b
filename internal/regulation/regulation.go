// Package regulation decides whether housing companies reaching thirty years
// since completion stay under price regulation.
package regulation

import (
	"time"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
)

// Decision is the outcome for one housing company.
type Decision string

const (
	StaysRegulated         Decision = "stays_regulated"
	ReleasedFromRegulation Decision = "released_from_regulation"
	AutomaticallyReleased  Decision = "automatically_released"
	Skipped                Decision = "skipped"
)

// Released reports whether the decision ends regulation.
func (d Decision) Released() bool {
	return d == ReleasedFromRegulation || d == AutomaticallyReleased
}

// CompanyFacts is a housing company with all of its apartments.
type CompanyFacts struct {
	HousingCompany domain.HousingCompanyFacts
	Apartments     []domain.ApartmentFacts
}

// CompletionDate is the completion date of the company's oldest apartment,
// or the company's own completion date when no apartment has one.
func (c CompanyFacts) CompletionDate() *time.Time {
	var oldest *time.Time
	for _, a := range c.Apartments {
		if a.CompletionDate != nil && (oldest == nil || a.CompletionDate.Before(*oldest)) {
			oldest = a.CompletionDate
		}
	}
	if oldest == nil {
		return c.HousingCompany.CompletionDate
	}
	return oldest
}

// Sale is an apartment resale used in the area statistics.
type Sale struct {
	domain.Sale
	ApartmentID string
	PostalCode  string
	SurfaceArea decimal.Decimal
	// FirstSale marks the apartment's first sale, which never counts.
	FirstSale bool
}

// PricePerM2 is the debt free price divided by the surface area.
func (s Sale) PricePerM2() decimal.Decimal {
	return s.TotalPrice().Div(s.SurfaceArea)
}

// AreaSales is the market statistic of one postal code for one quarter.
type AreaSales struct {
	SaleCount int             `csv:"sale_count" json:"sale_count"`
	Price     decimal.Decimal `csv:"price" json:"price"`
}

// QuarterSales holds the statistics of one quarter by postal code.
type QuarterSales struct {
	Quarter datetime.Quarter     `json:"quarter"`
	Areas   map[string]AreaSales `json:"areas"`
}

// ExternalSalesData is the market sales dataset delivered for a calculation
// quarter, covering the quarters preceding it.
type ExternalSalesData struct {
	CalculationQuarter datetime.Quarter `json:"calculation_quarter"`
	Quarters           []QuarterSales   `json:"quarters"`
}

// Row is the comparison result of one housing company.
type Row struct {
	HousingCompanyID string    `json:"housing_company_id" csv:"housing_company_id"`
	DisplayName      string    `json:"display_name" csv:"display_name"`
	PostalCode       string    `json:"postal_code" csv:"postal_code"`
	CompletionDate   time.Time `json:"completion_date" csv:"-"`

	SurfaceArea                 decimal.Decimal `json:"surface_area" csv:"surface_area"`
	RealizedAcquisitionPrice    decimal.Decimal `json:"realized_acquisition_price" csv:"realized_acquisition_price"`
	UnadjustedAveragePricePerM2 decimal.Decimal `json:"unadjusted_average_price_per_m2" csv:"unadjusted_average_price_per_m2"`
	CompletionMonthIndex        decimal.Decimal `json:"completion_month_index" csv:"completion_month_index"`
	CalculationMonthIndex       decimal.Decimal `json:"calculation_month_index" csv:"calculation_month_index"`
	AdjustedAveragePricePerM2   decimal.Decimal `json:"adjusted_average_price_per_m2" csv:"adjusted_average_price_per_m2"`
	SurfaceAreaPriceCeiling     decimal.Decimal `json:"surface_area_price_ceiling" csv:"surface_area_price_ceiling"`

	// ComparedPrice is the higher of the adjusted average price and the
	// surface area price ceiling, zero for automatically released companies.
	ComparedPrice decimal.Decimal `json:"price" csv:"price"`
	// AreaAveragePrice is nil when no statistic exists for the area.
	AreaAveragePrice       *decimal.Decimal `json:"area_average_price" csv:"-"`
	ReplacementPostalCodes []string         `json:"replacement_postal_codes,omitempty" csv:"-"`
	Decision               Decision         `json:"decision" csv:"decision"`
}

// Outcome is the result of one regulation run.
type Outcome struct {
	CalculationMonth datetime.Month   `json:"calculation_month"`
	Quarter          datetime.Quarter `json:"quarter"`
	Rows             []Row            `json:"rows"`
	// ObfuscatedOwners are the owners left without any regulated apartment.
	ObfuscatedOwners []string `json:"obfuscated_owners"`
}

func (o *Outcome) filter(match func(Decision) bool) []Row {
	var rows []Row
	for _, r := range o.Rows {
		if match(r.Decision) {
			rows = append(rows, r)
		}
	}
	return rows
}

// Released returns the rows released from regulation, automatically or not.
func (o *Outcome) Released() []Row {
	return o.filter(Decision.Released)
}

// StaysRegulated returns the rows that stay regulated.
func (o *Outcome) StaysRegulated() []Row {
	return o.filter(func(d Decision) bool { return d == StaysRegulated })
}

// Skipped returns the rows that could not be compared.
func (o *Outcome) Skipped() []Row {
	return o.filter(func(d Decision) bool { return d == Skipped })
}
