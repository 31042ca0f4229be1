package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/call-auditor/internal/analysis"
	"github.com/jonathan/call-auditor/internal/logger"
	"github.com/jonathan/call-auditor/internal/scoring"
)

var analyzeCommand = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single local audio file and print the scored report",
	Long: `Runs the analysis and scoring stages on one local audio file without touching Drive or Sheets. Useful for prompt tuning and debugging.

The scored report is printed as indented JSON.`,
	RunE: analyzeFileCmd,
}

var (
	analyzeFile     string
	analyzeCriteria string
	analyzeAPIKey   string
	analyzeModel    string
	analyzeUseMock  bool
	analyzeVerbose  bool
)

func init() {
	analyzeCommand.Flags().StringVarP(&analyzeFile, "file", "f", "", "Path to local audio file (required)")
	analyzeCommand.Flags().StringVar(&analyzeCriteria, "criteria", "config/criteria.json", "Path to audit criteria JSON")
	analyzeCommand.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	analyzeCommand.Flags().StringVar(&analyzeModel, "model", "", "Gemini model name")
	analyzeCommand.Flags().BoolVar(&analyzeUseMock, "mock", false, "Use the mock analysis backend instead of Gemini")
	analyzeCommand.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print detailed debug information")

	_ = analyzeCommand.MarkFlagRequired("file")

	rootCmd.AddCommand(analyzeCommand)
}

func analyzeFileCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	log := logger.New()
	if analyzeVerbose {
		log.Logger.SetLevel(logrus.DebugLevel)
	}

	audio, err := os.ReadFile(analyzeFile)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	var analyzer analysis.Analyzer
	if analyzeUseMock {
		analyzer = analysis.NewMockAnalyzer(log)
	} else {
		apiKey := analyzeAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
		}

		prompt, err := analysis.BuildPrompt(analyzeCriteria)
		if err != nil {
			return fmt.Errorf("failed to build analysis prompt: %w", err)
		}

		analyzer, err = analysis.NewGeminiAnalyzer(ctx, apiKey, analyzeModel, prompt, log)
		if err != nil {
			return err
		}
	}
	defer func() { _ = analyzer.Close() }()

	result, err := analyzer.AnalyzeCall(ctx, audio)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report := result.ReportMap()
	scoring.NewEvaluator().Evaluate(report)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
