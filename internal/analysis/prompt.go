package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/call-auditor/internal/prompts"
)

// criteriaSchema is the shape contract for criteria files. All four lists
// must be present; an empty list is legal and renders as an empty block.
const criteriaSchema = `{
	"type": "object",
	"required": ["top_works", "call_types", "call_results", "parts_discussed"],
	"properties": {
		"top_works": {"type": "array", "items": {"type": "string"}},
		"call_types": {"type": "array", "items": {"type": "string"}},
		"call_results": {"type": "array", "items": {"type": "string"}},
		"parts_discussed": {"type": "array", "items": {"type": "string"}}
	}
}`

// Criteria holds the audit vocabulary injected into the analysis prompt.
// The lists constrain what the model may put into the matching result
// fields.
type Criteria struct {
	TopWorks       []string `json:"top_works"`
	CallTypes      []string `json:"call_types"`
	CallResults    []string `json:"call_results"`
	PartsDiscussed []string `json:"parts_discussed"`
}

// LoadCriteria reads, schema-checks and decodes a criteria file.
func LoadCriteria(path string) (*Criteria, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read criteria file: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(criteriaSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse criteria file %s: %w", path, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("invalid criteria file %s: %s", path, strings.Join(details, "; "))
	}

	var criteria Criteria
	if err := json.Unmarshal(data, &criteria); err != nil {
		return nil, fmt.Errorf("failed to parse criteria file %s: %w", path, err)
	}
	return &criteria, nil
}

// BuildPrompt loads the criteria file and injects its lists into the
// embedded analysis prompt template.
func BuildPrompt(criteriaPath string) (string, error) {
	criteria, err := LoadCriteria(criteriaPath)
	if err != nil {
		return "", err
	}

	template, err := prompts.Get("analysis.json", "analyze-call")
	if err != nil {
		return "", err
	}

	return prompts.Format(template, map[string]string{
		"TopWorks":       formatList(criteria.TopWorks),
		"CallTypes":      formatList(criteria.CallTypes),
		"CallResults":    formatList(criteria.CallResults),
		"PartsDiscussed": formatList(criteria.PartsDiscussed),
	}), nil
}

// formatList renders items as a bulleted block for prompt interpolation.
func formatList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
