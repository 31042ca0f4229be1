package analysis

import "fmt"

// APICallError represents a transport-level failure talking to the analysis
// service.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("analysis API call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("analysis API call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}
