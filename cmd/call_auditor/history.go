package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/call-auditor/internal/db"
)

var historyCommand = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show audit runs recorded in the history database",
	Long: `Without arguments, lists the most recent audit runs. With a run ID, shows that run's per-file outcomes and its stored artifacts.

Requires the same history database the run command writes to.`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCmd,
}

var (
	historyDatabaseURL string
	historyLimit       int
)

func init() {
	historyCommand.Flags().StringVar(&historyDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	historyCommand.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")

	rootCmd.AddCommand(historyCommand)
}

func historyCmd(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	// Parse the run ID before dialing so a typo fails fast.
	var runID uuid.UUID
	if len(args) == 1 {
		var err error
		runID, err = uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
	}

	databaseURL := historyDatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	history, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer history.Close()

	if len(args) == 1 {
		return showRun(ctx, history, runID)
	}
	return listRuns(ctx, history)
}

func listRuns(ctx context.Context, history *db.Store) error {
	runs, err := history.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No audit runs recorded.")
		return nil
	}

	for _, run := range runs {
		completed := "-"
		if run.CompletedAt != nil {
			completed = run.CompletedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %-9s  folder=%s  started=%s  completed=%s\n",
			run.ID, run.Status, run.FolderName,
			run.CreatedAt.Format(time.RFC3339), completed)
	}
	return nil
}

func showRun(ctx context.Context, history *db.Store, runID uuid.UUID) error {
	run, err := history.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	fmt.Printf("Run:          %s\n", run.ID)
	fmt.Printf("Status:       %s\n", run.Status)
	fmt.Printf("Folder:       %s\n", run.FolderName)
	fmt.Printf("Spreadsheet:  %s\n", run.SpreadsheetID)
	fmt.Printf("Started:      %s\n", run.CreatedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Printf("Completed:    %s\n", run.CompletedAt.Format(time.RFC3339))
	}

	calls, err := history.ListCalls(ctx, runID)
	if err != nil {
		return err
	}
	if len(calls) > 0 {
		fmt.Println("\nCalls:")
		for _, call := range calls {
			if call.ErrorMessage != nil {
				fmt.Printf("  %-9s  %s  (%s)\n", call.Status, call.FileName, *call.ErrorMessage)
			} else {
				fmt.Printf("  %-9s  %s\n", call.Status, call.FileName)
			}
		}
	}

	for _, step := range []string{db.StepScoredReports, db.StepPublishedRange} {
		content, err := history.GetArtifact(ctx, runID, step)
		if err != nil {
			return err
		}
		if content == nil {
			continue
		}

		var pretty json.RawMessage = content
		indented, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			indented = content
		}
		fmt.Printf("\nArtifact %s:\n%s\n", step, indented)
	}

	return nil
}
