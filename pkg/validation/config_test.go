package validation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateLogLevel(t *testing.T) {
	tests := []struct {
		level     string
		expectErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"trace", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := ValidateLogLevel(tt.level)
			if (err != nil) != tt.expectErr {
				t.Errorf("ValidateLogLevel(%q) error = %v, expectErr %v", tt.level, err, tt.expectErr)
			}
		})
	}
}

func TestValidateLogFormat(t *testing.T) {
	if err := ValidateLogFormat("json"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateLogFormat("console"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateLogFormat("xml"); err == nil {
		t.Error("expected an error for xml")
	}
}

func TestValidatePostalCode(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		expectErr bool
	}{
		{"Helsinki center", "00100", false},
		{"Too short", "0010", true},
		{"Letters", "00A00", true},
		{"Too long", "001000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostalCode(tt.code)
			if (err != nil) != tt.expectErr {
				t.Errorf("ValidatePostalCode(%q) error = %v, expectErr %v", tt.code, err, tt.expectErr)
			}
		})
	}
}

func TestRulesConfigValidateAll(t *testing.T) {
	tests := []struct {
		name     string
		rules    RulesConfig
		expected int
	}{
		{
			name: "Statutory values",
			rules: RulesConfig{
				ExcessPerM2:    map[string]decimal.Decimal{"excess2011PerM2": decimal.NewFromInt(30), "excessBefore2010PerM2": decimal.NewFromInt(150)},
				CutoffDate:     "2010-01-01",
				ValidityMonths: map[string]int{"indexValidityMonths": 3},
			},
			expected: 0,
		},
		{
			name: "Negative excess and validity",
			rules: RulesConfig{
				ExcessPerM2:    map[string]decimal.Decimal{"excess2011PerM2": decimal.RequireFromString("-0.5")},
				CutoffDate:     "2010-01-01",
				ValidityMonths: map[string]int{"indexValidityMonths": -3},
			},
			expected: 2,
		},
		{
			name: "Bad cutoff date",
			rules: RulesConfig{
				CutoffDate: "2010-01",
			},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.rules.ValidateAll()
			if len(errs) != tt.expected {
				t.Errorf("ValidateAll() returned %d errors, expected %d: %v", len(errs), tt.expected, errs)
			}
		})
	}
}
