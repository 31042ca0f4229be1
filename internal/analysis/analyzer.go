// Package analysis turns raw call audio into validated analysis results.
//
// The Analyzer interface is the seam between the pipeline and the concrete
// speech backend: production runs use the Gemini implementation, tests and
// offline runs use the mock. The orchestrator treats transport errors and
// invalid payloads identically, so both surface as plain errors here.
package analysis

import (
	"context"

	"github.com/jonathan/call-auditor/internal/schema"
)

// Analyzer produces a validated AnalysisResult from raw audio bytes.
type Analyzer interface {
	AnalyzeCall(ctx context.Context, audio []byte) (*schema.AnalysisResult, error)
	Close() error
}
