package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/call-auditor/internal/schema"
)

func testLog() *logrus.Entry {
	base := logrus.New()
	base.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(base)
}

func TestMockAnalyzer_ResultPassesValidation(t *testing.T) {
	analyzer := NewMockAnalyzer(testLog())
	defer func() { _ = analyzer.Close() }()

	result, err := analyzer.AnalyzeCall(context.Background(), []byte("irrelevant"))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NoError(t, schema.Validate(result))
	assert.Len(t, result.Transcript, 2)
	assert.Equal(t, schema.SpeakerClient, result.Transcript[0].Speaker)
	assert.True(t, result.IsCommentNegative)
	assert.Nil(t, result.PartsDiscussed)
	require.NotNil(t, result.ServiceBookingDate)
	assert.Equal(t, "2025-10-16", *result.ServiceBookingDate)
}

func TestNewGeminiAnalyzer_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiAnalyzer(context.Background(), "", "", "prompt", testLog())
	require.Error(t, err)

	var apiErr *APICallError
	assert.ErrorAs(t, err, &apiErr)
}

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSONBlock(tt.input))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "criteria.json")
	criteria := `{
		"top_works": ["Oil change", "Brake service"],
		"call_types": ["Consultation", "Booking"],
		"call_results": ["Booked", "Declined"],
		"parts_discussed": ["Original", "Aftermarket"]
	}`
	require.NoError(t, os.WriteFile(path, []byte(criteria), 0o644))

	prompt, err := BuildPrompt(path)
	require.NoError(t, err)

	assert.Contains(t, prompt, "- Oil change\n- Brake service")
	assert.Contains(t, prompt, "- Consultation\n- Booking")
	assert.Contains(t, prompt, "- Booked\n- Declined")
	assert.Contains(t, prompt, "- Original\n- Aftermarket")
	assert.NotContains(t, prompt, "{{.")
}

func TestBuildPrompt_MissingFile(t *testing.T) {
	_, err := BuildPrompt(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read criteria file")
}

func TestLoadCriteria_MissingList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "criteria.json")
	criteria := `{"top_works": [], "call_types": [], "call_results": []}`
	require.NoError(t, os.WriteFile(path, []byte(criteria), 0o644))

	_, err := LoadCriteria(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid criteria file")
	assert.Contains(t, err.Error(), "parts_discussed")
}

func TestLoadCriteria_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "criteria.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadCriteria(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse criteria file")
}
