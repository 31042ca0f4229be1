// Package main provides the entry point for the call audit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "call_auditor",
	Short: "Call center audit pipeline",
	Long:  "Call Auditor downloads recorded phone calls from Google Drive, analyzes them with Gemini, scores each call against the audit rubric and publishes the results to a Google Sheet with transcripts archived back to Drive.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
