// Package colmap loads the external field-name to spreadsheet-column mapping
// and provides column letter arithmetic.
//
// The mapping is loaded once per run and read-only afterward. Duplicate
// column assignments are rejected at load time: with a last-write-wins map
// they would silently overwrite cells.
package colmap

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// mappingSchema validates the raw mapping file: a non-empty object whose
// values are spreadsheet column letters.
const mappingSchema = `{
	"type": "object",
	"minProperties": 1,
	"additionalProperties": {
		"type": "string",
		"pattern": "^[A-Z]{1,3}$"
	}
}`

// ColumnMap maps report field names to spreadsheet column letters.
type ColumnMap struct {
	columns map[string]string
	width   int
}

// Load reads and validates a column mapping JSON file.
func Load(path string) (*ColumnMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{
			Message: fmt.Sprintf("failed to read mapping file %s", path),
			Cause:   err,
		}
	}
	return Parse(data)
}

// Parse builds a ColumnMap from raw mapping JSON.
func Parse(data []byte) (*ColumnMap, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(mappingSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, &ConfigurationError{Message: "failed to validate mapping", Cause: err}
	}
	if !result.Valid() {
		desc := result.Errors()[0]
		return nil, &ConfigurationError{
			Message: fmt.Sprintf("invalid mapping: %s: %s", desc.Field(), desc.Description()),
		}
	}

	var columns map[string]string
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, &ConfigurationError{Message: "failed to parse mapping JSON", Cause: err}
	}

	seen := make(map[string]string, len(columns))
	width := 0
	for field, letter := range columns {
		if other, dup := seen[letter]; dup {
			// Deterministic message regardless of map iteration order.
			first, second := other, field
			if second < first {
				first, second = second, first
			}
			return nil, &ConfigurationError{
				Message: fmt.Sprintf("fields %q and %q both map to column %s", first, second, letter),
			}
		}
		seen[letter] = field

		if idx := ColumnIndex(letter); idx > width {
			width = idx
		}
	}

	return &ColumnMap{columns: columns, width: width}, nil
}

// Column returns the column letter mapped to field.
func (m *ColumnMap) Column(field string) (string, bool) {
	letter, ok := m.columns[field]
	return letter, ok
}

// Width is the 1-indexed position of the rightmost mapped column; rows
// project to exactly this many cells.
func (m *ColumnMap) Width() int {
	return m.width
}

// Len returns the number of mapped fields.
func (m *ColumnMap) Len() int {
	return len(m.columns)
}

// Fields returns the mapped field names in stable order.
func (m *ColumnMap) Fields() []string {
	fields := make([]string, 0, len(m.columns))
	for field := range m.columns {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// ColumnIndex converts a column letter to its 1-indexed position
// (A=1, Z=26, AA=27). Returns 0 for an invalid letter.
func ColumnIndex(letter string) int {
	idx := 0
	for _, r := range letter {
		if r < 'A' || r > 'Z' {
			return 0
		}
		idx = idx*26 + int(r-'A') + 1
	}
	return idx
}
