package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/jonathan/call-auditor/internal/schema"
)

// DefaultModel is the Gemini model used when config does not override it.
const DefaultModel = "gemini-2.5-flash"

const audioMIMEType = "audio/mp3"

// GeminiAnalyzer analyzes call audio with the Gemini API.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	prompt string
	log    *logrus.Entry
}

// NewGeminiAnalyzer creates a Gemini-backed analyzer. The prompt carries the
// audit criteria and is reused for every call in the batch.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model, prompt string, log *logrus.Entry) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, &APICallError{Message: "API key is required"}
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &APICallError{Message: "failed to create Gemini client", Cause: err}
	}

	return &GeminiAnalyzer{
		client: client,
		model:  model,
		prompt: prompt,
		log:    log,
	}, nil
}

// AnalyzeCall sends the audio with the audit prompt and parses the JSON
// reply into a validated AnalysisResult.
func (a *GeminiAnalyzer) AnalyzeCall(ctx context.Context, audio []byte) (*schema.AnalysisResult, error) {
	model := a.client.GenerativeModel(a.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx,
		genai.Text(a.prompt),
		genai.Blob{MIMEType: audioMIMEType, Data: audio},
	)
	if err != nil {
		return nil, &APICallError{Message: "failed to generate content", Cause: err}
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}

	result, err := schema.ParseAnalysisResult([]byte(cleanJSONBlock(text)))
	if err != nil {
		a.log.WithError(err).WithField("response_head", head(text, 200)).
			Error("analysis response failed validation")
		return nil, err
	}
	return result, nil
}

// Close releases the underlying API client.
func (a *GeminiAnalyzer) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// extractTextFromResponse pulls the text parts out of a Gemini response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &APICallError{Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &APICallError{Message: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", &APICallError{Message: "no text parts in response"}
	}

	return strings.Join(parts, ""), nil
}

// cleanJSONBlock removes markdown code fences the model sometimes adds even
// when asked for bare JSON.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
