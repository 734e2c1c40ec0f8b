// Package constants provides shared constants for the hitas-engine application.
package constants

// DateTimeLayout is the month format used for index months and in output.
const DateTimeLayout = "2006-01"

// DateLayout is the day format used for calculation and completion dates.
const DateLayout = "2006-01-02"

// Calendar constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// MonthsPerQuarter is the number of months in a calendar quarter
	MonthsPerQuarter = 3

	// QuartersInStatistics is how many trailing quarters the area sale
	// statistics cover
	QuartersInStatistics = 4

	// RegulationYears is the age at which a housing company is compared
	// against area prices
	RegulationYears = 30
)

// Rule constants
const (
	// CentPlaces is the number of decimal places kept in reported amounts
	CentPlaces = 2

	// IndexValidityMonths is how long an index-based maximum price is valid
	IndexValidityMonths = 3

	// SurfaceAreaPriceCeilingValidityMonths is how many months past the end of
	// the calculation month a surface area price ceiling result is valid
	SurfaceAreaPriceCeilingValidityMonths = 2

	// Excess2011PerM2 is the housing company improvement excess in the
	// 2011-onwards rules, euros per square meter
	Excess2011PerM2 = 30

	// ExcessBefore2010PerM2 is the pre-2011 excess for improvements completed
	// before the improvement cutoff date, euros per square meter
	ExcessBefore2010PerM2 = 150

	// ExcessAfter2010PerM2 is the pre-2011 excess for improvements completed on
	// or after the improvement cutoff date, euros per square meter
	ExcessAfter2010PerM2 = 100

	// ImprovementCutoffDate separates the two pre-2011 excess thresholds
	ImprovementCutoffDate = "2010-01-01"

	// RulesetCutoffDate is the first completion date handled by the
	// 2011-onwards rules
	RulesetCutoffDate = "2011-01-01"

	// HighInterestCutoffDate is the first completion date that uses the 6%
	// interest during construction instead of 14%
	HighInterestCutoffDate = "2005-01-01"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix is the environment variable prefix read by viper
	EnvPrefix = "HITAS"

	// DefaultDatabaseDSN is the default SQLite database location
	DefaultDatabaseDSN = "hitas.db"
)

// Worker defaults
const (
	// DefaultWorkers is the default parallelism for batch maximum price runs
	DefaultWorkers = 4
)
