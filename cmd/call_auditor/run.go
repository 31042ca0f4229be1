package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/jonathan/call-auditor/internal/analysis"
	"github.com/jonathan/call-auditor/internal/colmap"
	"github.com/jonathan/call-auditor/internal/config"
	"github.com/jonathan/call-auditor/internal/db"
	"github.com/jonathan/call-auditor/internal/drive"
	"github.com/jonathan/call-auditor/internal/logger"
	"github.com/jonathan/call-auditor/internal/pipeline"
	"github.com/jonathan/call-auditor/internal/scoring"
	"github.com/jonathan/call-auditor/internal/sheets"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full call audit pipeline end-to-end",
	Long: `Orchestrates the entire audit process: locate folder -> download audio -> analyze -> score -> publish to sheet with verdict coloring -> archive transcripts.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runAuditCmd,
}

var (
	runConfigPath    string
	runFolder        string
	runSpreadsheetID string
	runSheetName     string
	runColumnMap     string
	runCriteria      string
	runCredentials   string
	runArchiveDir    string
	runAPIKey        string
	runModel         string
	runDatabaseURL   string
	runUseMock       bool
	runVerbose       bool
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runFolder, "folder", "f", "", "Drive folder name holding call recordings")
	runCommand.Flags().StringVarP(&runSpreadsheetID, "spreadsheet-id", "s", "", "Target spreadsheet ID")
	runCommand.Flags().StringVar(&runSheetName, "sheet", "", "Target sheet tab name")
	runCommand.Flags().StringVarP(&runColumnMap, "mapping", "m", "", "Path to field-to-column mapping JSON")
	runCommand.Flags().StringVar(&runCriteria, "criteria", "", "Path to audit criteria JSON")
	runCommand.Flags().StringVar(&runCredentials, "credentials", "", "Path to service account credentials JSON (optional, uses application default credentials otherwise)")
	runCommand.Flags().StringVar(&runArchiveDir, "archive-dir", "", "Local directory for transcript archives")
	runCommand.Flags().StringVar(&runModel, "model", "", "Gemini model name")
	runCommand.Flags().BoolVar(&runUseMock, "mock", false, "Use the mock analysis backend instead of Gemini")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for run history persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runAuditCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("folder") {
		cfg.FolderName = runFolder
	}
	if cmd.Flags().Changed("spreadsheet-id") {
		cfg.SpreadsheetID = runSpreadsheetID
	}
	if cmd.Flags().Changed("sheet") {
		cfg.SheetName = runSheetName
	}
	if cmd.Flags().Changed("mapping") {
		cfg.ColumnMapPath = runColumnMap
	}
	if cmd.Flags().Changed("criteria") {
		cfg.CriteriaPath = runCriteria
	}
	if cmd.Flags().Changed("credentials") {
		cfg.CredentialsFile = runCredentials
	}
	if cmd.Flags().Changed("archive-dir") {
		cfg.ArchiveDir = runArchiveDir
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("model") {
		cfg.GeminiModel = runModel
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if cmd.Flags().Changed("mock") {
		cfg.UseMock = runUseMock
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	// Step 3: Apply defaults for unset values
	defaults := config.Config{
		SheetName:     "Calls",
		ColumnMapPath: "config/column_mapping.json",
		CriteriaPath:  "config/criteria.json",
		ArchiveDir:    "app_data/transcripts",
		GeminiModel:   analysis.DefaultModel,
	}
	cfg = cfg.MergeWithDefaults(defaults)

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 4: Validate required fields
	if cfg.FolderName == "" {
		return fmt.Errorf("--folder is required (via flag or config)")
	}
	if cfg.SpreadsheetID == "" {
		return fmt.Errorf("--spreadsheet-id is required (via flag or config)")
	}

	// Step 5: API Key handling (not needed for mock runs)
	if !cfg.UseMock {
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		if cfg.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
		}
	}

	// Step 6: Database URL handling (optional)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	log := logger.New()
	if cfg.Verbose {
		log.Logger.SetLevel(logrus.DebugLevel)
	}

	columns, err := colmap.Load(cfg.ColumnMapPath)
	if err != nil {
		return fmt.Errorf("failed to load column mapping: %w", err)
	}

	var googleOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		googleOpts = append(googleOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	store, err := drive.NewClient(ctx, log, googleOpts...)
	if err != nil {
		return err
	}

	sink, err := sheets.NewClient(ctx, cfg.SpreadsheetID, cfg.SheetName, log, googleOpts...)
	if err != nil {
		return err
	}

	analyzer, err := buildAnalyzer(ctx, &cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = analyzer.Close() }()

	// History is best effort: a missing or broken database never blocks a run
	var history *db.Store
	if cfg.DatabaseURL != "" {
		history, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Warn("failed to connect to database, continuing without run history")
			history = nil
		} else {
			defer history.Close()
		}
	}

	runner := &pipeline.Runner{
		Store:         store,
		Analyzer:      analyzer,
		Sink:          sink,
		Columns:       columns,
		Evaluator:     scoring.NewEvaluator(),
		History:       history,
		Log:           log,
		ArchiveDir:    cfg.ArchiveDir,
		SpreadsheetID: cfg.SpreadsheetID,
	}

	return runner.Run(ctx, cfg.FolderName)
}

// buildAnalyzer picks the analysis backend. The Gemini backend needs the
// criteria file to assemble its prompt; the mock does not.
func buildAnalyzer(ctx context.Context, cfg *config.Config, log *logrus.Entry) (analysis.Analyzer, error) {
	if cfg.UseMock {
		return analysis.NewMockAnalyzer(log), nil
	}

	prompt, err := analysis.BuildPrompt(cfg.CriteriaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis prompt: %w", err)
	}

	return analysis.NewGeminiAnalyzer(ctx, cfg.APIKey, cfg.GeminiModel, prompt, log)
}
