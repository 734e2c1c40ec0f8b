package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iwvelando/hitas-engine/internal/config"
	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/internal/importer"
	"github.com/iwvelando/hitas-engine/internal/maxprice"
	"github.com/iwvelando/hitas-engine/internal/regulation"
	"github.com/iwvelando/hitas-engine/internal/store"
	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/iwvelando/hitas-engine/pkg/output"
	"github.com/iwvelando/hitas-engine/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "json":
		config = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	// stdout carries the results
	config.OutputPaths = []string{"stderr"}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Test if we can create/write to the file
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

// environment is what every command runs with, set up in the app's Before hook.
type environment struct {
	conf         *config.Configuration
	logger       *zap.Logger
	store        *store.Store
	outputFormat string
}

var env environment

func setup(c *cli.Context) error {
	// A missing default config file means running on defaults; an explicit
	// path has to exist.
	configLocation := c.String("config")
	if !c.IsSet("config") {
		if _, err := os.Stat(configLocation); os.IsNotExist(err) {
			configLocation = ""
		}
	}

	conf, err := config.LoadConfiguration(configLocation)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to load configuration at %s: %v", configLocation, err), 1)
	}

	if override := c.String("output-format"); override != "" {
		conf.Output.Format = override
	}
	if override := c.String("log-level"); override != "" {
		if err := validation.ValidateLogLevel(override); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		conf.Logging.Level = override
	}
	if err := conf.Validate(); err != nil {
		return cli.NewExitError(fmt.Sprintf("invalid configuration: %v", err), 1)
	}

	logger, err := initializeLogger(conf.Logging, "")
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to initialize logger: %v", err), 1)
	}

	s, err := store.Open(logger, conf.Database.DSN)
	if err != nil {
		logger.Error("failed to open database",
			zap.String("op", "main.setup"),
			zap.Error(err),
		)
		return cli.NewExitError(err.Error(), 1)
	}

	env = environment{conf: conf, logger: logger, store: s, outputFormat: conf.Output.Format}
	return nil
}

func teardown(_ *cli.Context) error {
	if env.store != nil {
		_ = env.store.Close()
	}
	if env.logger != nil {
		_ = env.logger.Sync()
	}
	return nil
}

// fail logs err and turns it into a non-zero exit.
func fail(op string, err error) error {
	env.logger.Error(err.Error(), zap.String("op", op))
	return cli.NewExitError(err.Error(), 1)
}

func maxPriceCommand(c *cli.Context) error {
	ctx := context.Background()
	if len(c.Args()) == 0 {
		return cli.NewExitError("at least one apartment id is required", 1)
	}

	options, err := parseRequestOptions(c.String("date"), c.String("loan-amount"), c.String("loan-date"), time.Now())
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	reqs := make([]maxprice.Request, 0, len(c.Args()))
	for _, id := range c.Args() {
		apartment, company, err := env.store.Apartment(ctx, id)
		if err != nil {
			return fail("main.maxPriceCommand", err)
		}
		reqs = append(reqs, options.request(*apartment, *company, c.String("info")))
	}

	rules, err := env.conf.Rules.ToMaxPriceRules()
	if err != nil {
		return fail("main.maxPriceCommand", err)
	}
	engine := maxprice.NewEngine(env.logger, env.store, rules)
	if c.Bool("save") {
		engine = engine.WithRecorder(env.store)
	}

	results, err := engine.CalculateAll(ctx, reqs, env.conf.Workers)
	if err != nil {
		return fail("main.maxPriceCommand", err)
	}
	return output.MaxPrice(os.Stdout, env.outputFormat, results)
}

func historyCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.NewExitError("an apartment id is required", 1)
	}
	recorded, err := env.store.Calculations(context.Background(), id)
	if err != nil {
		return fail("main.historyCommand", err)
	}
	results := make([]*maxprice.Result, len(recorded))
	for i := range recorded {
		results[i] = &recorded[i]
	}
	return output.MaxPrice(os.Stdout, env.outputFormat, results)
}

func regulationCommand(c *cli.Context) error {
	month := datetime.MonthOf(time.Now())
	if value := c.String("month"); value != "" {
		parsed, err := datetime.ParseMonth(value)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		month = parsed
	}

	service := regulation.NewService(env.logger, env.store, env.conf.Regulation.ReplacementPostalCodes)
	outcome, err := service.Run(context.Background(), month, c.Bool("dry-run"))
	if err != nil {
		return fail("main.regulationCommand", err)
	}
	return output.Regulation(os.Stdout, env.outputFormat, outcome)
}

func importFactsCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("a fact file is required", 1)
	}
	facts, err := importer.LoadFacts(path)
	if err != nil {
		return fail("main.importFactsCommand", err)
	}
	if err := importer.New(env.logger, env.store).ImportFacts(context.Background(), facts); err != nil {
		return fail("main.importFactsCommand", err)
	}
	return nil
}

func importIndicesCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("an index CSV file is required", 1)
	}
	file, err := os.Open(path)
	if err != nil {
		return fail("main.importIndicesCommand", err)
	}
	defer file.Close()

	values, err := importer.LoadIndexCSV(file)
	if err != nil {
		return fail("main.importIndicesCommand", err)
	}
	if err := importer.New(env.logger, env.store).ImportIndices(context.Background(), values); err != nil {
		return fail("main.importIndicesCommand", err)
	}
	return nil
}

func importSalesCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("an external sales CSV file is required", 1)
	}
	quarter, err := datetime.ParseQuarter(c.String("quarter"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	file, err := os.Open(path)
	if err != nil {
		return fail("main.importSalesCommand", err)
	}
	defer file.Close()

	data, err := importer.LoadExternalSalesCSV(file, quarter)
	if err != nil {
		return fail("main.importSalesCommand", err)
	}
	if err := importer.New(env.logger, env.store).ImportExternalSales(context.Background(), data); err != nil {
		return fail("main.importSalesCommand", err)
	}
	return nil
}

// requestOptions are the command line parts of a maximum price request.
type requestOptions struct {
	calculationDate time.Time
	loanAmount      decimal.Decimal
	loanDate        *time.Time
}

func parseRequestOptions(date, loanAmount, loanDate string, now time.Time) (requestOptions, error) {
	options := requestOptions{calculationDate: datetime.Truncate(now)}
	if date != "" {
		parsed, err := datetime.ParseDate(date)
		if err != nil {
			return options, err
		}
		options.calculationDate = parsed
	}

	if loanAmount != "" {
		amount, err := decimal.NewFromString(loanAmount)
		if err != nil {
			return options, fmt.Errorf("invalid loan amount %q: %w", loanAmount, err)
		}
		if amount.IsNegative() {
			return options, fmt.Errorf("loan amount must not be negative, got %s", amount)
		}
		options.loanAmount = amount
	}

	if loanDate != "" {
		parsed, err := datetime.ParseDate(loanDate)
		if err != nil {
			return options, err
		}
		options.loanDate = &parsed
	}
	return options, nil
}

func (o requestOptions) request(apartment domain.ApartmentFacts, company domain.HousingCompanyFacts, info string) maxprice.Request {
	return maxprice.Request{
		Apartment:       apartment,
		HousingCompany:  company,
		CalculationDate: o.calculationDate,
		LoanAmount:      o.loanAmount,
		LoanDate:        o.loanDate,
		AdditionalInfo:  info,
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "hitas"
	app.Usage = "Calculate HITAS maximum prices and run the thirty year regulation comparison"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Value: constants.DefaultConfigFile, Usage: "path to configuration file"},
		cli.StringFlag{Name: "output-format, o", Usage: "type of output override: pretty, csv, json"},
		cli.StringFlag{Name: "log-level", Usage: "log level override (debug, info, warn, error)"},
	}
	app.Before = setup
	app.After = teardown
	app.Commands = []cli.Command{
		{
			Name:      "max-price",
			Usage:     "calculate the maximum price of one or more apartments",
			ArgsUsage: "<apartment id>...",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "date, d", Usage: "calculation date, YYYY-MM-DD (default today)"},
				cli.StringFlag{Name: "loan-amount, l", Usage: "apartment share of housing company loans"},
				cli.StringFlag{Name: "loan-date", Usage: "date the loan amount was valued at (default calculation date)"},
				cli.StringFlag{Name: "info", Usage: "additional info stored with the calculation"},
				cli.BoolFlag{Name: "save", Usage: "record the calculation"},
			},
			Action: maxPriceCommand,
		},
		{
			Name:      "history",
			Usage:     "list the recorded calculations of an apartment",
			ArgsUsage: "<apartment id>",
			Action:    historyCommand,
		},
		{
			Name:  "regulation",
			Usage: "compare thirty year old housing companies against area prices",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "month, m", Usage: "calculation month, YYYY-MM (default this month)"},
				cli.BoolFlag{Name: "dry-run", Usage: "compute without saving results"},
			},
			Action: regulationCommand,
		},
		{
			Name:      "import-facts",
			Usage:     "import housing companies, apartments, owners and indices from a YAML file",
			ArgsUsage: "<fact file>",
			Action:    importFactsCommand,
		},
		{
			Name:      "import-indices",
			Usage:     "import index values from a series,month,value CSV file",
			ArgsUsage: "<csv file>",
			Action:    importIndicesCommand,
		},
		{
			Name:      "import-sales",
			Usage:     "import external area sales statistics for a calculation quarter",
			ArgsUsage: "<csv file>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "quarter, q", Usage: "calculation quarter, e.g. 2023Q1"},
			},
			Action: importSalesCommand,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}
