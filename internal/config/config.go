// Package config defines the configuration structures and loads them from a
// YAML file and HITAS_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/validation"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for hitas-engine.
type Configuration struct {
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging,omitempty"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output,omitempty"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database,omitempty"`
	Rules      RulesConfig      `mapstructure:"rules" yaml:"rules,omitempty"`
	Regulation RegulationConfig `mapstructure:"regulation" yaml:"regulation,omitempty"`
	Workers    int              `mapstructure:"workers" yaml:"workers,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty"` // pretty, csv, json
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// RulesConfig holds the legal constants of the maximum price rules.
type RulesConfig struct {
	ExcessBefore2010PerM2                 decimal.Decimal `mapstructure:"excessBefore2010PerM2" yaml:"excessBefore2010PerM2"`
	ExcessAfter2010PerM2                  decimal.Decimal `mapstructure:"excessAfter2010PerM2" yaml:"excessAfter2010PerM2"`
	Excess2011PerM2                       decimal.Decimal `mapstructure:"excess2011PerM2" yaml:"excess2011PerM2"`
	ImprovementCutoffDate                 string          `mapstructure:"improvementCutoffDate" yaml:"improvementCutoffDate"`
	IndexValidityMonths                   int             `mapstructure:"indexValidityMonths" yaml:"indexValidityMonths"`
	SurfaceAreaPriceCeilingValidityMonths int             `mapstructure:"surfaceAreaPriceCeilingValidityMonths" yaml:"surfaceAreaPriceCeilingValidityMonths"`
}

// RegulationConfig holds the thirty year comparison settings.
type RegulationConfig struct {
	// ReplacementPostalCodes lists substitute postal codes to average over
	// when a company's own postal code has no sales.
	ReplacementPostalCodes map[string][]string `mapstructure:"replacementPostalCodes" yaml:"replacementPostalCodes,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("database.dsn", constants.DefaultDatabaseDSN)
	v.SetDefault("rules.excessBefore2010PerM2", strconv.Itoa(constants.ExcessBefore2010PerM2))
	v.SetDefault("rules.excessAfter2010PerM2", strconv.Itoa(constants.ExcessAfter2010PerM2))
	v.SetDefault("rules.excess2011PerM2", strconv.Itoa(constants.Excess2011PerM2))
	v.SetDefault("rules.improvementCutoffDate", constants.ImprovementCutoffDate)
	v.SetDefault("rules.indexValidityMonths", constants.IndexValidityMonths)
	v.SetDefault("rules.surfaceAreaPriceCeilingValidityMonths", constants.SurfaceAreaPriceCeilingValidityMonths)
	v.SetDefault("workers", constants.DefaultWorkers)
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. An empty path yields the defaults, still overridable
// through the environment (e.g. HITAS_DATABASE_DSN).
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	var configuration Configuration
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&configuration, hooks); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	return &configuration, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHookFunc decodes amounts into decimal.Decimal from their text form.
// YAML numbers arrive as float64 and are read back through their shortest
// representation, so 35.1 stays 35.1.
func decimalHookFunc() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case decimal.Decimal:
			return v, nil
		case string:
			return decimal.NewFromString(strings.TrimSpace(v))
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case uint64:
			return decimal.NewFromString(strconv.FormatUint(v, 10))
		case float64:
			return decimal.NewFromString(strconv.FormatFloat(v, 'f', -1, 64))
		}
		return nil, fmt.Errorf("cannot decode %T into a decimal amount", data)
	}
}

// Validate checks every section and reports all problems at once.
func (c *Configuration) Validate() error {
	var errs []error
	if err := validation.ValidateLogLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateLogFormat(c.Logging.Format); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn must be set"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}

	rules := validation.RulesConfig{
		ExcessPerM2: map[string]decimal.Decimal{
			"excessBefore2010PerM2": c.Rules.ExcessBefore2010PerM2,
			"excessAfter2010PerM2":  c.Rules.ExcessAfter2010PerM2,
			"excess2011PerM2":       c.Rules.Excess2011PerM2,
		},
		CutoffDate: c.Rules.ImprovementCutoffDate,
		ValidityMonths: map[string]int{
			"indexValidityMonths":                   c.Rules.IndexValidityMonths,
			"surfaceAreaPriceCeilingValidityMonths": c.Rules.SurfaceAreaPriceCeilingValidityMonths,
		},
	}
	errs = append(errs, rules.ValidateAll()...)

	for code, replacements := range c.Regulation.ReplacementPostalCodes {
		if err := validation.ValidatePostalCode(code); err != nil {
			errs = append(errs, err)
		}
		for _, r := range replacements {
			if err := validation.ValidatePostalCode(r); err != nil {
				errs = append(errs, fmt.Errorf("replacement for %s: %w", code, err))
			}
		}
	}
	return errors.Join(errs...)
}
