package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/hitas-engine/internal/maxprice"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "No config file",
			configPath: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationDefaults(t *testing.T) {
	config, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}

	rules, err := config.Rules.ToMaxPriceRules()
	if err != nil {
		t.Fatalf("ToMaxPriceRules() error = %v", err)
	}
	defaults := maxprice.DefaultRules()
	if rules.IndexValidityMonths != defaults.IndexValidityMonths ||
		rules.SurfaceAreaPriceCeilingValidityMonths != defaults.SurfaceAreaPriceCeilingValidityMonths {
		t.Errorf("validity months = %+v, expected %+v", rules, defaults)
	}
	if rules.Thresholds.Cutoff != defaults.Thresholds.Cutoff {
		t.Errorf("cutoff = %s, expected %s", rules.Thresholds.Cutoff, defaults.Thresholds.Cutoff)
	}
	if !rules.Thresholds.BeforeCutoffPerM2.Equal(defaults.Thresholds.BeforeCutoffPerM2) ||
		!rules.Thresholds.AfterCutoffPerM2.Equal(defaults.Thresholds.AfterCutoffPerM2) ||
		!rules.Thresholds.Rules2011PerM2.Equal(defaults.Thresholds.Rules2011PerM2) {
		t.Errorf("thresholds = %+v, expected %+v", rules.Thresholds, defaults.Thresholds)
	}
}

func TestLoadConfigurationFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
output:
  format: csv
database:
  dsn: /var/lib/hitas/hitas.db
rules:
  excess2011PerM2: 35.5
  improvementCutoffDate: "2009-07-01"
regulation:
  replacementPostalCodes:
    "00100": ["00120", "00130"]
workers: 8
`)

	config, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if config.Logging.Level != "debug" || config.Logging.Format != "json" {
		t.Errorf("logging = %+v", config.Logging)
	}
	if config.Output.Format != "csv" {
		t.Errorf("output format = %s", config.Output.Format)
	}
	if config.Database.DSN != "/var/lib/hitas/hitas.db" {
		t.Errorf("dsn = %s", config.Database.DSN)
	}
	if config.Workers != 8 {
		t.Errorf("workers = %d", config.Workers)
	}
	if got := config.Regulation.ReplacementPostalCodes["00100"]; len(got) != 2 || got[1] != "00130" {
		t.Errorf("replacement postal codes = %v", config.Regulation.ReplacementPostalCodes)
	}

	thresholds, err := config.Rules.Thresholds()
	if err != nil {
		t.Fatalf("Thresholds() error = %v", err)
	}
	if !thresholds.Rules2011PerM2.Equal(decimal.RequireFromString("35.5")) {
		t.Errorf("2011 excess = %s", thresholds.Rules2011PerM2)
	}
	if !thresholds.BeforeCutoffPerM2.Equal(decimal.NewFromInt(150)) {
		t.Errorf("unset values should keep their defaults, got %s", thresholds.BeforeCutoffPerM2)
	}
	if thresholds.Cutoff != datetime.MustParseMonth("2009-07") {
		t.Errorf("cutoff = %s", thresholds.Cutoff)
	}
}

func TestLoadConfigurationEnvironment(t *testing.T) {
	t.Setenv("HITAS_DATABASE_DSN", "file:env.db")
	t.Setenv("HITAS_OUTPUT_FORMAT", "json")

	config, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if config.Database.DSN != "file:env.db" {
		t.Errorf("dsn = %s, expected the environment value", config.Database.DSN)
	}
	if config.Output.Format != "json" {
		t.Errorf("output format = %s, expected the environment value", config.Output.Format)
	}
}

func TestLoadConfigurationDecimalThresholds(t *testing.T) {
	t.Setenv("HITAS_RULES_EXCESSBEFORE2010PERM2", "149.95")
	path := writeConfig(t, `
rules:
  excessAfter2010PerM2: 100.1
  excess2011PerM2: "30.05"
`)

	config, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	tests := []struct {
		name     string
		got      decimal.Decimal
		expected string
	}{
		{"Environment string", config.Rules.ExcessBefore2010PerM2, "149.95"},
		{"YAML number", config.Rules.ExcessAfter2010PerM2, "100.1"},
		{"YAML string", config.Rules.Excess2011PerM2, "30.05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.String() != tt.expected {
				t.Errorf("threshold = %s, expected %s", tt.got, tt.expected)
			}
		})
	}
}

func TestLoadConfigurationBadDecimal(t *testing.T) {
	path := writeConfig(t, `
rules:
  excess2011PerM2: thirty
`)
	if _, err := LoadConfiguration(path); err == nil {
		t.Error("expected an error for a non-numeric excess")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Configuration {
		config, err := LoadConfiguration("")
		if err != nil {
			t.Fatalf("LoadConfiguration() error = %v", err)
		}
		return *config
	}

	tests := []struct {
		name     string
		modify   func(*Configuration)
		contains []string
	}{
		{
			name:     "Bad output format",
			modify:   func(c *Configuration) { c.Output.Format = "xml" },
			contains: []string{"output format"},
		},
		{
			name: "Several problems at once",
			modify: func(c *Configuration) {
				c.Logging.Level = "loud"
				c.Workers = 0
				c.Database.DSN = ""
			},
			contains: []string{"log level", "workers", "database.dsn"},
		},
		{
			name:     "Negative excess",
			modify:   func(c *Configuration) { c.Rules.ExcessAfter2010PerM2 = decimal.NewFromInt(-100) },
			contains: []string{"rules.excessAfter2010PerM2"},
		},
		{
			name: "Bad replacement postal code",
			modify: func(c *Configuration) {
				c.Regulation.ReplacementPostalCodes = map[string][]string{"00100": {"100"}}
			},
			contains: []string{"replacement for 00100"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.modify(&config)
			err := config.Validate()
			if err == nil {
				t.Fatal("Validate() expected an error")
			}
			for _, want := range tt.contains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestToMaxPriceRulesBadCutoff(t *testing.T) {
	rules := RulesConfig{ImprovementCutoffDate: "January 2010"}
	if _, err := rules.ToMaxPriceRules(); err == nil {
		t.Error("expected an error for an unparseable cutoff date")
	}
}
