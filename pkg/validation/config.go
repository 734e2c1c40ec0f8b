// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
)

var postalCodePattern = regexp.MustCompile(`^[0-9]{5}$`)

// ValidateLogLevel checks the logging level name.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("expected log level of debug, info, warn or error, got %q", level)
}

// ValidateLogFormat checks the log encoder name.
func ValidateLogFormat(format string) error {
	switch format {
	case "json", "console":
		return nil
	}
	return fmt.Errorf("expected log format of json or console, got %q", format)
}

// ValidatePostalCode checks a Finnish five digit postal code.
func ValidatePostalCode(code string) error {
	if !postalCodePattern.MatchString(code) {
		return fmt.Errorf("invalid postal code %q", code)
	}
	return nil
}

// RulesConfig is the flattened rules section to validate.
type RulesConfig struct {
	ExcessPerM2    map[string]decimal.Decimal
	CutoffDate     string
	ValidityMonths map[string]int
}

// ValidateAll validates the rules and returns every problem found, ordered
// by setting name.
func (rc *RulesConfig) ValidateAll() []error {
	var errs []error

	for _, name := range sortedKeys(rc.ExcessPerM2) {
		if rc.ExcessPerM2[name].IsNegative() {
			errs = append(errs, fmt.Errorf("rules.%s must not be negative, got %s", name, rc.ExcessPerM2[name]))
		}
	}

	if _, err := datetime.ParseDate(rc.CutoffDate); err != nil {
		errs = append(errs, fmt.Errorf("rules.improvementCutoffDate: %w", err))
	}

	for _, name := range sortedKeys(rc.ValidityMonths) {
		if rc.ValidityMonths[name] < 0 {
			errs = append(errs, fmt.Errorf("rules.%s must not be negative, got %d", name, rc.ValidityMonths[name]))
		}
	}

	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
