// Package testutil provides fixtures shared by the calculation tests.
package testutil

import (
	"time"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
)

// Decimal parses a decimal literal, panicking on malformed input.
func Decimal(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// DecimalPtr is Decimal returning a pointer.
func DecimalPtr(value string) *decimal.Decimal {
	d := Decimal(value)
	return &d
}

// Date parses a YYYY-MM-DD date, panicking on malformed input.
func Date(value string) time.Time {
	return datetime.MustParseDate(value)
}

// DatePtr is Date returning a pointer.
func DatePtr(value string) *time.Time {
	t := Date(value)
	return &t
}

// IndexTable builds an in-memory repository from series -> month -> value.
func IndexTable(table map[indices.Series]map[string]string) *indices.MemoryRepository {
	repo := indices.NewMemoryRepository()
	for series, values := range table {
		for month, value := range values {
			repo.Set(series, datetime.MustParseMonth(month), Decimal(value))
		}
	}
	return repo
}

// Apartment2011 is a 30 m² apartment completed in November 2019 in a new
// ruleset housing company of 4256.3 m² with one 150000 € construction price
// improvement completed in May 2020.
func Apartment2011() (domain.ApartmentFacts, domain.HousingCompanyFacts) {
	apartment := domain.ApartmentFacts{
		ID:               "A1",
		HousingCompanyID: "HC1",
		CompletionDate:   DatePtr("2019-11-27"),
		SurfaceArea:      Decimal("30"),
		ShareNumberStart: 1,
		ShareNumberEnd:   142,
		FirstSale: &domain.Sale{
			PurchaseDate:                        Date("2019-11-27"),
			PurchasePrice:                       Decimal("80350"),
			ApartmentShareOfHousingCompanyLoans: Decimal("119150"),
		},
	}
	company := domain.HousingCompanyFacts{
		ID:               "HC1",
		DisplayName:      "Asunto Oy Testikatu",
		PostalCode:       "00100",
		CompletionDate:   DatePtr("2019-11-27"),
		RegulationStatus: domain.Regulated,
		TotalSurfaceArea: Decimal("4256.3"),
		AcquisitionPrice: Decimal("28303800"),
		Improvements: domain.ImprovementSet{
			ConstructionPrice: []domain.Improvement{
				{Name: "Hissi", Value: Decimal("150000"), CompletionDate: datetime.MustParseMonth("2020-05")},
			},
		},
	}
	return apartment, company
}

// Indices2011 holds every index value Apartment2011 needs for a July 2022
// calculation.
func Indices2011() *indices.MemoryRepository {
	return IndexTable(map[indices.Series]map[string]string{
		indices.ConstructionPriceIndex2005Equal100: {"2019-11": "129.29", "2020-05": "131.5", "2022-07": "146.4"},
		indices.MarketPriceIndex2005Equal100:       {"2019-11": "137.6", "2022-07": "155.08"},
		indices.SurfaceAreaPriceCeiling:            {"2022-07": "4869"},
	})
}
