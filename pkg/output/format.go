// Package output renders maximum price results and regulation outcomes as
// pretty tables, CSV or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/iwvelando/hitas-engine/internal/maxprice"
	"github.com/iwvelando/hitas-engine/internal/regulation"
	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/iwvelando/hitas-engine/pkg/format"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var indexOrder = []maxprice.IndexName{
	maxprice.ConstructionPriceIndex,
	maxprice.MarketPriceIndex,
	maxprice.SurfaceAreaPriceCeiling,
}

// MaxPrice writes results in the requested output format.
func MaxPrice(w io.Writer, outputFormat string, results []*maxprice.Result) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return MaxPricePretty(w, results)
	case constants.OutputFormatCSV:
		return MaxPriceCSV(w, results)
	case constants.OutputFormatJSON:
		return writeJSON(w, results)
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

// Regulation writes an outcome in the requested output format.
func Regulation(w io.Writer, outputFormat string, outcome *regulation.Outcome) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return RegulationPretty(w, outcome)
	case constants.OutputFormatCSV:
		return RegulationCSV(w, outcome)
	case constants.OutputFormatJSON:
		return writeJSON(w, outcome)
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// MaxPricePretty outputs a human-readable table per result.
func MaxPricePretty(w io.Writer, results []*maxprice.Result) error {
	for i, result := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "--- Maximum price for apartment %s (%s) ---\n", result.ApartmentID, result.HousingCompanyID)
		fmt.Fprintf(w, "Calculation date: %s\n", result.CalculationDate.Format(datetime.DateLayout))
		fmt.Fprintf(w, "Rules:            %s\n", result.RulesVersion)
		fmt.Fprintf(w, "%-26s | %16s | %-11s | %s\n", "Index", "Maximum price", "Valid until", "Governing")
		fmt.Fprintf(w, "%-26s | %16s | %-11s | %s\n", strings.Repeat("_", 5), strings.Repeat("_", 13), strings.Repeat("_", 11), strings.Repeat("_", 9))
		for _, name := range indexOrder {
			index := result.Indices.Get(name)
			governing := ""
			if index.Maximum {
				governing = "*"
			}
			fmt.Fprintf(w, "%-26s | %16s | %-11s | %s\n", name, format.Currency(index.MaximumPrice),
				index.ValidUntil.Format(datetime.DateLayout), governing)
		}
		fmt.Fprintf(w, "Maximum price %s (%s), valid until %s\n", format.Currency(result.MaximumPrice),
			result.MaximumPriceIndex, result.ValidUntil.Format(datetime.DateLayout))
		if result.AdditionalInfo != "" {
			fmt.Fprintf(w, "Note: %s\n", result.AdditionalInfo)
		}
	}
	return nil
}

// MaxPriceRow is the CSV form of a maximum price result.
type MaxPriceRow struct {
	ApartmentID             string          `csv:"apartment_id"`
	HousingCompanyID        string          `csv:"housing_company_id"`
	RulesVersion            string          `csv:"rules_version"`
	CalculationDate         string          `csv:"calculation_date"`
	ConstructionPriceIndex  decimal.Decimal `csv:"construction_price_index"`
	MarketPriceIndex        decimal.Decimal `csv:"market_price_index"`
	SurfaceAreaPriceCeiling decimal.Decimal `csv:"surface_area_price_ceiling"`
	MaximumPrice            decimal.Decimal `csv:"maximum_price"`
	MaximumPriceIndex       string          `csv:"maximum_price_index"`
	ValidUntil              string          `csv:"valid_until"`
}

// MaxPriceCSV outputs one comma-separated line per result.
func MaxPriceCSV(w io.Writer, results []*maxprice.Result) error {
	rows := make([]MaxPriceRow, len(results))
	for i, r := range results {
		rows[i] = MaxPriceRow{
			ApartmentID:             r.ApartmentID,
			HousingCompanyID:        r.HousingCompanyID,
			RulesVersion:            r.RulesVersion,
			CalculationDate:         r.CalculationDate.Format(datetime.DateLayout),
			ConstructionPriceIndex:  r.Indices.ConstructionPriceIndex.MaximumPrice,
			MarketPriceIndex:        r.Indices.MarketPriceIndex.MaximumPrice,
			SurfaceAreaPriceCeiling: r.Indices.SurfaceAreaPriceCeiling.MaximumPrice,
			MaximumPrice:            r.MaximumPrice,
			MaximumPriceIndex:       string(r.MaximumPriceIndex),
			ValidUntil:              r.ValidUntil.Format(datetime.DateLayout),
		}
	}
	return gocsv.Marshal(&rows, w)
}

// RegulationPretty outputs the outcome grouped by decision.
func RegulationPretty(w io.Writer, outcome *regulation.Outcome) error {
	p := message.NewPrinter(language.English)
	fmt.Fprintf(w, "--- Regulation results for %s (%s) ---\n", outcome.CalculationMonth, outcome.Quarter)

	sections := []struct {
		title string
		rows  []regulation.Row
	}{
		{"Released from regulation", outcome.Released()},
		{"Stays regulated", outcome.StaysRegulated()},
		{"Skipped, no sales statistics", outcome.Skipped()},
	}
	for _, section := range sections {
		fmt.Fprintf(w, "\n%s (%d)\n", section.title, len(section.rows))
		if len(section.rows) == 0 {
			continue
		}
		fmt.Fprintf(w, "%-10s | %-30s | %-11s | %11s | %18s | %18s | %s\n",
			"Company", "Name", "Postal code", "Area", "Price", "Area average", "Decision")
		for _, row := range section.rows {
			_, _ = p.Fprintf(w, "%-10s | %-30s | %-11s | %11.1f | %18s | %18s | %s\n",
				row.HousingCompanyID, row.DisplayName, row.PostalCode, row.SurfaceArea.InexactFloat64(),
				format.PerSquareMeter(row.ComparedPrice), format.OptionalPerSquareMeter(row.AreaAveragePrice), row.Decision)
		}
	}

	if len(outcome.ObfuscatedOwners) > 0 {
		_, _ = p.Fprintf(w, "\nObfuscated owners: %d\n", len(outcome.ObfuscatedOwners))
	}
	return nil
}

// RegulationCSV outputs one comma-separated line per housing company.
func RegulationCSV(w io.Writer, outcome *regulation.Outcome) error {
	rows := make([]RegulationRow, len(outcome.Rows))
	for i, r := range outcome.Rows {
		rows[i] = RegulationRow{
			Row:              r,
			CompletionDate:   r.CompletionDate.Format(datetime.DateLayout),
			AreaAveragePrice: r.AreaAveragePrice,
		}
	}
	return gocsv.Marshal(&rows, w)
}

// RegulationRow is the CSV form of a regulation row.
type RegulationRow struct {
	regulation.Row
	CompletionDate   string           `csv:"completion_date"`
	AreaAveragePrice *decimal.Decimal `csv:"area_average_price"`
}
