// Package importer reads index tables, external sales statistics and fact
// files into the store.
package importer

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/internal/regulation"
	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
)

// IndexRow is one line of an index CSV file.
type IndexRow struct {
	Series string          `csv:"series"`
	Month  datetime.Month  `csv:"month"`
	Value  decimal.Decimal `csv:"value"`
}

// LoadIndexCSV reads "series,month,value" rows. Every value must be positive
// and belong to a known series.
func LoadIndexCSV(r io.Reader) ([]indices.Value, error) {
	var rows []IndexRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse index CSV: %w", err)
	}

	values := make([]indices.Value, 0, len(rows))
	for i, row := range rows {
		series, err := indices.ParseSeries(row.Series)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if !row.Value.IsPositive() {
			return nil, fmt.Errorf("row %d: %s for %s must be positive, got %s", i+1, series, row.Month, row.Value)
		}
		values = append(values, indices.Value{Series: series, Month: row.Month, Value: row.Value})
	}
	return values, nil
}

// ExternalSalesRow is one line of an external sales CSV file.
type ExternalSalesRow struct {
	Quarter    datetime.Quarter `csv:"quarter"`
	PostalCode string           `csv:"postal_code"`
	SaleCount  int              `csv:"sale_count"`
	Price      decimal.Decimal  `csv:"price"`
}

// LoadExternalSalesCSV reads "quarter,postal_code,sale_count,price" rows
// delivered for calculation. Only the quarters preceding calculation are
// accepted and each postal code may appear once per quarter.
func LoadExternalSalesCSV(r io.Reader, calculation datetime.Quarter) (*regulation.ExternalSalesData, error) {
	var rows []ExternalSalesRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse external sales CSV: %w", err)
	}

	data := &regulation.ExternalSalesData{CalculationQuarter: calculation}
	byQuarter := make(map[datetime.Quarter]*regulation.QuarterSales)
	for _, q := range calculation.PrecedingQuarters(constants.QuartersInStatistics) {
		data.Quarters = append(data.Quarters, regulation.QuarterSales{Quarter: q, Areas: map[string]regulation.AreaSales{}})
	}
	for i := range data.Quarters {
		byQuarter[data.Quarters[i].Quarter] = &data.Quarters[i]
	}

	for i, row := range rows {
		quarter, ok := byQuarter[row.Quarter]
		if !ok {
			return nil, fmt.Errorf("row %d: quarter %s is not one of the quarters preceding %s", i+1, row.Quarter, calculation)
		}
		if row.SaleCount < 0 || row.Price.IsNegative() {
			return nil, fmt.Errorf("row %d: sale count and price must not be negative", i+1)
		}
		if _, dup := quarter.Areas[row.PostalCode]; dup {
			return nil, fmt.Errorf("row %d: postal code %s appears twice for %s", i+1, row.PostalCode, row.Quarter)
		}
		quarter.Areas[row.PostalCode] = regulation.AreaSales{SaleCount: row.SaleCount, Price: row.Price}
	}
	return data, nil
}
