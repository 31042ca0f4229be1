package colmap

import "fmt"

// ConfigurationError represents an unusable column map: missing file, empty
// mapping, invalid column letters or duplicate column assignments. These are
// fatal for a run.
type ConfigurationError struct {
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("column map configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("column map configuration error: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}
