package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang-overdue-service/cmd/overdue/config"
	"golang-overdue-service/internal/models"
	"golang-overdue-service/internal/overdue"
	"golang-overdue-service/internal/parsers"
	"golang-overdue-service/internal/quality"
	"golang-overdue-service/internal/reporter"
	"golang-overdue-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the analyze command
var (
	ordersFile   string
	paymentsFile string
	planFile     string
	asOfFlag     string
	outputDir    string
	outputFormat string
	outputFile   string
	workers      int
	showProgress bool

	asOf time.Time
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute monthly overdue statistics from loan data",
	Long: `Analyze loads the orders, payments and plan CSV tables, truncates them at
the as-of date, computes per-installment and per-month-end overdue records,
and writes two monthly summary tables plus a short console summary.

The snapshot calendar runs through the month-end of the as-of month even when
the as-of date falls mid-month, so the last monthly data point covers the
full calendar month.

Examples:
  # Basic run
  overdue analyze --orders-file orders.csv --payments-file payments.csv \
    --plan-file plan.csv --as-of 2022-12-08

  # JSON report to a file, parallel snapshot stage
  overdue analyze -O orders.csv -P payments.csv -S plan.csv \
    --as-of 2022-12-08 --output-format json --output-file report.json --workers 4`,

	PreRunE: validateAnalyzeFlags,
	RunE:    runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Required flags
	analyzeCmd.Flags().StringVarP(&ordersFile, "orders-file", "O", "", "path to orders CSV file (required)")
	analyzeCmd.Flags().StringVarP(&paymentsFile, "payments-file", "P", "", "path to payments CSV file (required)")
	analyzeCmd.Flags().StringVarP(&planFile, "plan-file", "S", "", "path to repayment plan CSV file (required)")
	analyzeCmd.Flags().StringVar(&asOfFlag, "as-of", "", "cutoff date, data after it is ignored (YYYY-MM-DD, required)")

	// Output flags
	analyzeCmd.Flags().StringVar(&outputDir, "output-dir", "output", "directory for the two monthly CSV tables")
	analyzeCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "report format: console, json, csv")
	analyzeCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "report file path (default: stdout)")

	// Processing flags
	analyzeCmd.Flags().IntVarP(&workers, "workers", "w", 1, "goroutines for the per-loan snapshot stage")
	analyzeCmd.Flags().BoolVar(&showProgress, "progress", false, "log snapshot progress frequently")

	analyzeCmd.MarkFlagRequired("orders-file")
	analyzeCmd.MarkFlagRequired("payments-file")
	analyzeCmd.MarkFlagRequired("plan-file")
	analyzeCmd.MarkFlagRequired("as-of")

	// Bind flags to viper
	viper.BindPFlag("orders-file", analyzeCmd.Flags().Lookup("orders-file"))
	viper.BindPFlag("payments-file", analyzeCmd.Flags().Lookup("payments-file"))
	viper.BindPFlag("plan-file", analyzeCmd.Flags().Lookup("plan-file"))
	viper.BindPFlag("as-of", analyzeCmd.Flags().Lookup("as-of"))
	viper.BindPFlag("output-dir", analyzeCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("output-format", analyzeCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", analyzeCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("workers", analyzeCmd.Flags().Lookup("workers"))
	viper.BindPFlag("progress", analyzeCmd.Flags().Lookup("progress"))
}

func validateAnalyzeFlags(cmd *cobra.Command, args []string) error {
	// Values come from viper so a config file or environment can override
	ordersFile = viper.GetString("orders-file")
	paymentsFile = viper.GetString("payments-file")
	planFile = viper.GetString("plan-file")
	asOfFlag = viper.GetString("as-of")
	outputDir = viper.GetString("output-dir")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	workers = viper.GetInt("workers")
	showProgress = viper.GetBool("progress")

	if err := validateFileExists(ordersFile, "orders file"); err != nil {
		return err
	}
	if err := validateFileExists(paymentsFile, "payments file"); err != nil {
		return err
	}
	if err := validateFileExists(planFile, "plan file"); err != nil {
		return err
	}

	if asOfFlag == "" {
		return fmt.Errorf("as-of date is required")
	}
	var err error
	asOf, err = time.Parse(models.DateOnly, asOfFlag)
	if err != nil {
		return fmt.Errorf("invalid as-of date format, use YYYY-MM-DD: %w", err)
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logger.GetGlobalLogger().WithComponent("analyze")

	// Step 1: load the three tables, applying the cleaning contract
	dataset, err := loadDataset()
	if err != nil {
		return err
	}

	// Step 2: quality checks (informational)
	quality.Check(dataset).Log(log)

	// Step 3+4: the computation core
	progressInterval := time.Duration(0)
	if showProgress {
		progressInterval = time.Second
	}
	engine, err := overdue.NewEngine(config.CreateEngineConfig(asOf, workers, progressInterval))
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx, dataset)
	if err != nil {
		return err
	}

	// Step 5: persist the two monthly tables
	reportGenerator, err := reporter.NewReportGenerator(config.CreateReportConfig(outputFormat, outputDir, asOf))
	if err != nil {
		return err
	}

	installmentPath, clientPath, err := reportGenerator.SaveTables(result)
	if err != nil {
		return err
	}
	log.WithFields(logger.Fields{
		"instalment_table": installmentPath,
		"clients_table":    clientPath,
	}).Info("Tables written")

	// Step 6: render the report
	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	return reportGenerator.WriteReport(result, output)
}

func loadDataset() (*models.Dataset, error) {
	orders, _, err := parsers.NewOrdersParser(config.CreateOrdersParserConfig()).ParseOrders(ordersFile)
	if err != nil {
		return nil, err
	}

	payments, _, err := parsers.NewPaymentsParser(config.CreatePaymentsParserConfig()).ParsePayments(paymentsFile, asOf)
	if err != nil {
		return nil, err
	}

	plan, _, err := parsers.NewPlanParser(config.CreatePlanParserConfig()).ParsePlan(planFile, asOf)
	if err != nil {
		return nil, err
	}

	return &models.Dataset{
		Orders:   orders,
		Payments: payments,
		Plan:     plan,
	}, nil
}
