package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/hitas-engine/internal/maxprice"
	"github.com/iwvelando/hitas-engine/internal/regulation"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
)

func sampleResult() *maxprice.Result {
	validUntil := datetime.MustParseDate("2022-10-05")
	return &maxprice.Result{
		ApartmentID:       "A1",
		HousingCompanyID:  "HC1",
		RulesVersion:      maxprice.Rules2011Onwards,
		CalculationDate:   datetime.MustParseDate("2022-07-05"),
		ValidUntil:        validUntil,
		MaximumPrice:      decimal.RequireFromString("223558.72"),
		MaximumPriceIndex: maxprice.ConstructionPriceIndex,
		Indices: maxprice.Indices{
			ConstructionPriceIndex: maxprice.IndexResult{
				MaximumPrice: decimal.RequireFromString("223558.72"),
				ValidUntil:   validUntil,
				Maximum:      true,
			},
			MarketPriceIndex: maxprice.IndexResult{
				MaximumPrice: decimal.RequireFromString("222343.46"),
				ValidUntil:   validUntil,
			},
			SurfaceAreaPriceCeiling: maxprice.IndexResult{
				MaximumPrice: decimal.NewFromInt(143570),
				ValidUntil:   datetime.MustParseDate("2022-09-30"),
			},
		},
	}
}

func sampleOutcome() *regulation.Outcome {
	average := decimal.NewFromInt(12000)
	return &regulation.Outcome{
		CalculationMonth: datetime.MustParseMonth("2023-01"),
		Quarter:          datetime.Quarter{Year: 2023, Number: 1},
		Rows: []regulation.Row{
			{
				HousingCompanyID: "HC1",
				DisplayName:      "Released Oy",
				PostalCode:       "00100",
				CompletionDate:   datetime.MustParseDate("1993-01-15"),
				SurfaceArea:      decimal.NewFromInt(1000),
				ComparedPrice:    decimal.NewFromInt(4900),
				AreaAveragePrice: &average,
				Decision:         regulation.ReleasedFromRegulation,
			},
			{
				HousingCompanyID: "HC2",
				DisplayName:      "Skipped Oy",
				PostalCode:       "99999",
				CompletionDate:   datetime.MustParseDate("1993-01-20"),
				SurfaceArea:      decimal.NewFromInt(500),
				ComparedPrice:    decimal.NewFromInt(4900),
				Decision:         regulation.Skipped,
			},
		},
		ObfuscatedOwners: []string{"O1"},
	}
}

func TestMaxPricePretty(t *testing.T) {
	var buf bytes.Buffer
	if err := MaxPrice(&buf, "pretty", []*maxprice.Result{sampleResult()}); err != nil {
		t.Fatalf("MaxPrice() error = %v", err)
	}
	output := buf.String()

	expected := []string{
		"--- Maximum price for apartment A1 (HC1) ---",
		"Calculation date: 2022-07-05",
		"223,558.72 €",
		"143,570.00 €",
		"2022-09-30",
		"Maximum price 223,558.72 € (construction_price_index), valid until 2022-10-05",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("pretty output missing %q:\n%s", want, output)
		}
	}
}

func TestMaxPriceCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := MaxPrice(&buf, "csv", []*maxprice.Result{sampleResult()}); err != nil {
		t.Fatalf("MaxPrice() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected a header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "apartment_id,housing_company_id,rules_version") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "A1,HC1,2011_onwards,2022-07-05,223558.72,222343.46,143570,223558.72,construction_price_index,2022-10-05" {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestMaxPriceJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := MaxPrice(&buf, "json", []*maxprice.Result{sampleResult()}); err != nil {
		t.Fatalf("MaxPrice() error = %v", err)
	}
	var decoded []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["maximum_price"] != "223558.72" {
		t.Errorf("unexpected JSON %s", buf.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := MaxPrice(&buf, "xml", nil); err == nil {
		t.Error("expected an error for xml")
	}
	if err := Regulation(&buf, "xml", sampleOutcome()); err == nil {
		t.Error("expected an error for xml")
	}
}

func TestRegulationPretty(t *testing.T) {
	var buf bytes.Buffer
	if err := Regulation(&buf, "pretty", sampleOutcome()); err != nil {
		t.Fatalf("Regulation() error = %v", err)
	}
	output := buf.String()

	expected := []string{
		"--- Regulation results for 2023-01 (2023Q1) ---",
		"Released from regulation (1)",
		"Stays regulated (0)",
		"Skipped, no sales statistics (1)",
		"4,900.00 €/m²",
		"12,000.00 €/m²",
		"1,000.0",
		"Obfuscated owners: 1",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("pretty output missing %q:\n%s", want, output)
		}
	}
}

func TestRegulationCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Regulation(&buf, "csv", sampleOutcome()); err != nil {
		t.Fatalf("Regulation() error = %v", err)
	}
	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected a header and two rows, got %d lines:\n%s", len(lines), output)
	}
	for _, column := range []string{"housing_company_id", "decision", "completion_date", "area_average_price"} {
		if !strings.Contains(lines[0], column) {
			t.Errorf("header %q missing %s", lines[0], column)
		}
	}
	if !strings.Contains(lines[1], "released_from_regulation") || !strings.Contains(lines[1], "1993-01-15") {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], ",") {
		t.Errorf("skipped row should end with an empty area average, got %q", lines[2])
	}
}

func TestRegulationJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Regulation(&buf, "json", sampleOutcome()); err != nil {
		t.Fatalf("Regulation() error = %v", err)
	}
	var decoded regulation.Outcome
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded.Rows) != 2 || decoded.Rows[1].AreaAveragePrice != nil {
		t.Errorf("unexpected outcome %+v", decoded)
	}
	if decoded.Rows[0].CompletionDate.Equal(time.Time{}) {
		t.Error("completion date was not encoded")
	}
}
