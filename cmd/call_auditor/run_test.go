package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Flag values and Changed markers persist across Execute calls on the
	// shared command tree; reset them so tests stay independent.
	for _, cmd := range []interface{ Flags() *pflag.FlagSet }{runCommand, analyzeCommand, historyCommand} {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCommand_MissingFolder(t *testing.T) {
	_, err := executeRoot(t, "run", "--spreadsheet-id", "1abcDEF", "--mock")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--folder is required")
}

func TestRunCommand_MissingSpreadsheet(t *testing.T) {
	_, err := executeRoot(t, "run", "--folder", "october_calls", "--mock")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--spreadsheet-id is required")
}

func TestRunCommand_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := executeRoot(t, "run",
		"--folder", "october_calls",
		"--spreadsheet-id", "1abcDEF")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY environment variable or --api-key flag is required")
}

func TestRunCommand_BadConfigPath(t *testing.T) {
	_, err := executeRoot(t, "run", "--config", filepath.Join(t.TempDir(), "absent.json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunCommand_ConfigSuppliesRequiredFields(t *testing.T) {
	// A config file can carry the required fields; validation then fails
	// later, on the missing column mapping file rather than on the flags.
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	cfgJSON := `{
		"folder_name": "october_calls",
		"spreadsheet_id": "1abcDEF",
		"column_map": "` + filepath.ToSlash(filepath.Join(dir, "absent_mapping.json")) + `",
		"use_mock": true
	}`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgJSON), 0644))

	_, err := executeRoot(t, "run", "--config", cfgPath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "column map file not found")
}

func TestAnalyzeCommand_RequiresFile(t *testing.T) {
	_, err := executeRoot(t, "analyze")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestHistoryCommand_InvalidRunID(t *testing.T) {
	// The ID is parsed before any database connection is attempted.
	_, err := executeRoot(t, "history", "not-a-uuid", "--db-url", "postgres://localhost/audit")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run id")
}

func TestHistoryCommand_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := executeRoot(t, "history")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL environment variable or --db-url flag is required")
}
