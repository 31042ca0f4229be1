// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Google APIs
	CredentialsFile string `json:"credentials_file,omitempty"` // Path to service account credentials JSON
	FolderName      string `json:"folder_name,omitempty"`      // Drive folder holding call recordings
	SpreadsheetID   string `json:"spreadsheet_id,omitempty"`   // Target spreadsheet ID
	SheetName       string `json:"sheet_name,omitempty"`       // Target sheet tab name

	// Pipeline inputs
	ColumnMapPath string `json:"column_map,omitempty"`  // Path to field-to-column mapping JSON
	CriteriaPath  string `json:"criteria,omitempty"`    // Path to audit criteria JSON
	ArchiveDir    string `json:"archive_dir,omitempty"` // Local directory for transcript archives

	// Analysis backend
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	GeminiModel string `json:"gemini_model,omitempty"` // Gemini model name

	// Behavior
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL for run history
	UseMock     bool   `json:"use_mock,omitempty"`     // Use the mock analysis backend
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	// Validate file paths exist (if specified)
	if c.CredentialsFile != "" {
		if _, err := os.Stat(c.CredentialsFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: credentials file not found: %s", c.CredentialsFile)
		}
	}

	if c.ColumnMapPath != "" {
		if _, err := os.Stat(c.ColumnMapPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: column map file not found: %s", c.ColumnMapPath)
		}
	}

	if c.CriteriaPath != "" {
		if _, err := os.Stat(c.CriteriaPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: criteria file not found: %s", c.CriteriaPath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty string fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.CredentialsFile == "" {
		result.CredentialsFile = defaults.CredentialsFile
	}
	if result.FolderName == "" {
		result.FolderName = defaults.FolderName
	}
	if result.SpreadsheetID == "" {
		result.SpreadsheetID = defaults.SpreadsheetID
	}
	if result.SheetName == "" {
		result.SheetName = defaults.SheetName
	}
	if result.ColumnMapPath == "" {
		result.ColumnMapPath = defaults.ColumnMapPath
	}
	if result.CriteriaPath == "" {
		result.CriteriaPath = defaults.CriteriaPath
	}
	if result.ArchiveDir == "" {
		result.ArchiveDir = defaults.ArchiveDir
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.GeminiModel == "" {
		result.GeminiModel = defaults.GeminiModel
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
