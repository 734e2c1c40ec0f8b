package regulation

import (
	"context"
	"errors"
	"testing"

	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/iwvelando/hitas-engine/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	d           = testutil.Decimal
	calculation = datetime.MustParseMonth("2023-02")
)

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, d(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func regulationIndices(sapc string) *indices.MemoryRepository {
	return testutil.IndexTable(map[indices.Series]map[string]string{
		indices.MarketPriceIndex:        {"1993-02": "100", "2023-02": "200"},
		indices.SurfaceAreaPriceCeiling: {"2023-02": sapc},
	})
}

func apartment(id, price, area string) domain.ApartmentFacts {
	return domain.ApartmentFacts{
		ID:             id,
		CompletionDate: testutil.DatePtr("1993-02-10"),
		SurfaceArea:    d(area),
		FirstSale: &domain.Sale{
			PurchaseDate:  testutil.Date("1993-02-10"),
			PurchasePrice: d(price),
		},
	}
}

// company is an old ruleset company whose index adjusted price is 12000 €/m².
func company(id, postalCode string) CompanyFacts {
	return CompanyFacts{
		HousingCompany: domain.HousingCompanyFacts{
			ID:               id,
			DisplayName:      "Asunto Oy " + id,
			PostalCode:       postalCode,
			OldHitasRuleset:  true,
			RegulationStatus: domain.Regulated,
		},
		Apartments: []domain.ApartmentFacts{
			apartment(id+"-1", "100000", "20"),
			apartment(id+"-2", "200000", "30"),
		},
	}
}

func external(prices map[string]string) *ExternalSalesData {
	areas := make(map[string]AreaSales, len(prices))
	for code, price := range prices {
		areas[code] = AreaSales{SaleCount: 2, Price: d(price)}
	}
	return &ExternalSalesData{
		CalculationQuarter: calculation.Quarter(),
		Quarters: []QuarterSales{
			{Quarter: datetime.Quarter{Year: 2022, Number: 3}, Areas: areas},
		},
	}
}

func TestCompareDecision(t *testing.T) {
	tests := []struct {
		name      string
		areaPrice string
		expected  Decision
	}{
		{"Area price above compared price", "49000", StaysRegulated},
		{"Area price below compared price", "4900", ReleasedFromRegulation},
		{"Equal prices release", "12000", ReleasedFromRegulation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comparator := NewComparator(nil, regulationIndices("4000"), nil)
			outcome, err := comparator.Compare(context.Background(), Input{
				CalculationMonth: calculation,
				Candidates:       []CompanyFacts{company("HC1", "00100")},
				External:         external(map[string]string{"00100": tt.areaPrice}),
			})
			require.NoError(t, err)
			require.Len(t, outcome.Rows, 1)

			row := outcome.Rows[0]
			assertDecimal(t, "300000", row.RealizedAcquisitionPrice)
			assertDecimal(t, "50", row.SurfaceArea)
			assertDecimal(t, "6000", row.UnadjustedAveragePricePerM2)
			assertDecimal(t, "12000", row.AdjustedAveragePricePerM2)
			assertDecimal(t, "12000", row.ComparedPrice)
			require.NotNil(t, row.AreaAveragePrice)
			assertDecimal(t, tt.areaPrice, *row.AreaAveragePrice)
			assert.Equal(t, tt.expected, row.Decision)
			assert.Equal(t, "2023Q1", outcome.Quarter.String())
		})
	}
}

func TestCompareSurfaceAreaPriceCeilingFloorsPrice(t *testing.T) {
	comparator := NewComparator(nil, regulationIndices("15000"), nil)
	outcome, err := comparator.Compare(context.Background(), Input{
		CalculationMonth: calculation,
		Candidates:       []CompanyFacts{company("HC1", "00100")},
		External:         external(map[string]string{"00100": "13000"}),
	})
	require.NoError(t, err)

	row := outcome.Rows[0]
	assertDecimal(t, "12000", row.AdjustedAveragePricePerM2)
	assertDecimal(t, "15000", row.ComparedPrice)
	assert.Equal(t, ReleasedFromRegulation, row.Decision)
}

func TestCompareAutomaticRelease(t *testing.T) {
	c := company("HC2", "00100")
	c.HousingCompany.OldHitasRuleset = false
	c.Apartments = append(c.Apartments, domain.ApartmentFacts{ID: "no-data", CompletionDate: testutil.DatePtr("1993-02-10")})

	comparator := NewComparator(nil, regulationIndices("4000"), nil)
	outcome, err := comparator.Compare(context.Background(), Input{
		CalculationMonth: calculation,
		Candidates:       []CompanyFacts{c},
		External:         external(map[string]string{"00100": "49000"}),
		Ownerships: []domain.Ownership{
			{OwnerID: "O1", ApartmentID: "HC2-1", HousingCompanyID: "HC2"},
		},
		Statuses: map[string]domain.RegulationStatus{"HC2": domain.Regulated},
	})
	require.NoError(t, err)

	row := outcome.Rows[0]
	assert.Equal(t, AutomaticallyReleased, row.Decision)
	assert.True(t, row.ComparedPrice.IsZero())
	assert.Nil(t, row.AreaAveragePrice)
	assert.Equal(t, []string{"O1"}, outcome.ObfuscatedOwners)
	assert.Len(t, outcome.Released(), 1)
}

func TestCompareSkipsAreaWithoutStatistics(t *testing.T) {
	comparator := NewComparator(nil, regulationIndices("4000"), nil)
	outcome, err := comparator.Compare(context.Background(), Input{
		CalculationMonth: calculation,
		Candidates:       []CompanyFacts{company("HC1", "00990")},
		External:         external(map[string]string{"00100": "4900"}),
	})
	require.NoError(t, err)

	row := outcome.Rows[0]
	assert.Equal(t, Skipped, row.Decision)
	assertDecimal(t, "12000", row.ComparedPrice)
	assert.Nil(t, row.AreaAveragePrice)
	assert.Len(t, outcome.Skipped(), 1)
	assert.Empty(t, outcome.ObfuscatedOwners)
}

func TestCompareReplacementPostalCodes(t *testing.T) {
	comparator := NewComparator(nil, regulationIndices("4000"), map[string][]string{
		"00990": {"00100", "00200"},
	})
	outcome, err := comparator.Compare(context.Background(), Input{
		CalculationMonth: calculation,
		Candidates:       []CompanyFacts{company("HC1", "00990")},
		External:         external(map[string]string{"00100": "4000", "00200": "6000"}),
	})
	require.NoError(t, err)

	row := outcome.Rows[0]
	assert.Equal(t, ReleasedFromRegulation, row.Decision)
	assert.Equal(t, []string{"00100", "00200"}, row.ReplacementPostalCodes)
	assertDecimal(t, "5000", *row.AreaAveragePrice)
}

func TestCompareFailures(t *testing.T) {
	t.Run("Missing external sales data", func(t *testing.T) {
		comparator := NewComparator(nil, regulationIndices("4000"), nil)
		_, err := comparator.Compare(context.Background(), Input{
			CalculationMonth: calculation,
			Candidates:       []CompanyFacts{company("HC1", "00100")},
		})
		assert.ErrorIs(t, err, ErrMissingExternalSalesData)

		data := external(map[string]string{"00100": "4900"})
		data.CalculationQuarter = datetime.Quarter{Year: 2022, Number: 4}
		_, err = comparator.Compare(context.Background(), Input{
			CalculationMonth: calculation,
			Candidates:       []CompanyFacts{company("HC1", "00100")},
			External:         data,
		})
		assert.ErrorIs(t, err, ErrMissingExternalSalesData)
	})

	t.Run("Missing completion month index", func(t *testing.T) {
		repo := testutil.IndexTable(map[indices.Series]map[string]string{
			indices.MarketPriceIndex:        {"2023-02": "200"},
			indices.SurfaceAreaPriceCeiling: {"2023-02": "4000"},
		})
		comparator := NewComparator(nil, repo, nil)
		_, err := comparator.Compare(context.Background(), Input{
			CalculationMonth: calculation,
			Candidates:       []CompanyFacts{company("HC1", "00100")},
			External:         external(map[string]string{"00100": "4900"}),
		})
		var missing *indices.MissingIndexError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, indices.MarketPriceIndex, missing.Series)
		assert.Equal(t, "1993-02", missing.Month.String())
	})

	t.Run("Missing apartment data fails the batch", func(t *testing.T) {
		noPrices := company("HC1", "00100")
		noPrices.Apartments[0].FirstSale = nil
		noArea := company("HC3", "00100")
		noArea.Apartments[1].SurfaceArea = decimal.Zero
		neither := company("HC4", "00100")
		neither.Apartments[0].FirstSale = nil
		neither.Apartments[0].SurfaceArea = decimal.Zero

		comparator := NewComparator(nil, regulationIndices("4000"), nil)
		outcome, err := comparator.Compare(context.Background(), Input{
			CalculationMonth: calculation,
			Candidates:       []CompanyFacts{noPrices, company("HC2", "00100"), noArea, neither},
			External:         external(map[string]string{"00100": "4900"}),
		})
		require.Error(t, err)
		assert.Nil(t, outcome)

		var missing *domain.MissingApartmentDataError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "HC1-1", missing.Apartment)
		assert.Contains(t, err.Error(), "apartment HC1-1 has no sales or catalog prices")
		assert.Contains(t, err.Error(), "apartment HC3-2 has no surface area")
		assert.Contains(t, err.Error(), "apartment HC4-1 has no sales, catalog prices, or surface area")
	})

	t.Run("Zero average price", func(t *testing.T) {
		free := company("HC5", "00100")
		free.Apartments = []domain.ApartmentFacts{apartment("HC5-1", "0", "40")}

		comparator := NewComparator(nil, regulationIndices("4000"), nil)
		_, err := comparator.Compare(context.Background(), Input{
			CalculationMonth: calculation,
			Candidates:       []CompanyFacts{company("HC1", "00100"), free},
			External:         external(map[string]string{"00100": "4900"}),
		})
		var zero *ZeroAveragePriceError
		require.True(t, errors.As(err, &zero))
		assert.Equal(t, []string{"HC5"}, zero.HousingCompanies)
	})

	t.Run("Zero surface area", func(t *testing.T) {
		empty := company("HC6", "00100")
		empty.Apartments = nil
		empty.HousingCompany.CompletionDate = testutil.DatePtr("1993-02-01")

		comparator := NewComparator(nil, regulationIndices("4000"), nil)
		_, err := comparator.Compare(context.Background(), Input{
			CalculationMonth: calculation,
			Candidates:       []CompanyFacts{empty},
			External:         external(map[string]string{"00100": "4900"}),
		})
		var zero *ZeroSurfaceAreaError
		require.True(t, errors.As(err, &zero))
		assert.Equal(t, "HC6", zero.HousingCompany)
	})
}

func TestAreaStatistics(t *testing.T) {
	sale := func(date, total, area string) Sale {
		return Sale{
			Sale:        domain.Sale{PurchaseDate: testutil.Date(date), PurchasePrice: d(total)},
			PostalCode:  "00100",
			SurfaceArea: d(area),
		}
	}
	excluded := sale("2022-06-01", "900000", "50")
	excluded.ExcludeFromStatistics = true
	first := sale("2022-06-01", "900000", "50")
	first.FirstSale = true

	sales := []Sale{
		sale("2022-05-01", "100000", "50"),
		sale("2022-11-30", "150000", "50"),
		sale("2021-12-31", "900000", "50"),
		sale("2023-01-15", "900000", "50"),
		excluded,
		first,
	}

	stats := NewAreaStatistics(calculation.Quarter(), sales, external(map[string]string{"00100": "4000"}))
	require.Len(t, stats.Quarters, 4)
	assert.Equal(t, "2022Q1", stats.Quarters[0].String())
	assert.Equal(t, "2022Q4", stats.Quarters[3].String())

	price, ok := stats.AveragePrice("00100")
	require.True(t, ok)
	assertDecimal(t, "3250", price)

	_, ok = stats.AveragePrice("00200")
	assert.False(t, ok)
}

func TestSelectCandidates(t *testing.T) {
	due := company("DUE", "00100")
	late := company("LATE", "00100")
	late.Apartments[0].CompletionDate = testutil.DatePtr("1993-03-01")
	late.Apartments[1].CompletionDate = testutil.DatePtr("1993-03-01")
	oldestDecides := company("OLDEST", "00100")
	oldestDecides.Apartments[1].CompletionDate = testutil.DatePtr("1993-06-01")
	released := company("RELEASED", "00100")
	released.HousingCompany.RegulationStatus = domain.ReleasedByHitas
	decided := company("DECIDED", "00100")

	candidates := SelectCandidates(
		[]CompanyFacts{due, late, oldestDecides, released, decided},
		calculation,
		map[string]bool{"DECIDED": true},
	)

	var ids []string
	for _, c := range candidates {
		ids = append(ids, c.HousingCompany.ID)
	}
	assert.Equal(t, []string{"DUE", "OLDEST"}, ids)
}

func TestOwnersToObfuscate(t *testing.T) {
	ownerships := []domain.Ownership{
		{OwnerID: "O1", ApartmentID: "A1", HousingCompanyID: "HC1"},
		{OwnerID: "O2", ApartmentID: "A2", HousingCompanyID: "HC1"},
		{OwnerID: "O2", ApartmentID: "B1", HousingCompanyID: "HC2"},
		{OwnerID: "O3", ApartmentID: "A3", HousingCompanyID: "HC1"},
		{OwnerID: "O3", ApartmentID: "C1", HousingCompanyID: "HC3"},
		{OwnerID: "O4", ApartmentID: "B2", HousingCompanyID: "HC2"},
	}
	statuses := map[string]domain.RegulationStatus{
		"HC1": domain.Regulated,
		"HC2": domain.Regulated,
		"HC3": domain.ReleasedByPlotDepartment,
	}

	owners := ownersToObfuscate(map[string]bool{"HC1": true}, ownerships, statuses)
	assert.Equal(t, []string{"O1", "O3"}, owners)
}
