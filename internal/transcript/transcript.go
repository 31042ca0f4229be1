// Package transcript formats call transcripts for report cells and archives
// them as JSON files for upload back to the file store.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/call-auditor/internal/schema"
)

// Missing is the cell text used when a call produced no transcript.
const Missing = "Transcription is missing."

// FormattedField is the report key holding the flattened transcript string.
const FormattedField = "transcription"

// RawField is the report key holding the raw dialogue lines.
const RawField = "transcript"

// Format renders dialogue lines as one "SPEAKER: text" line per turn,
// preserving transcript order exactly. Empty input yields Missing.
func Format(lines []schema.DialogLine) string {
	if len(lines) == 0 {
		return Missing
	}

	formatted := make([]string, len(lines))
	for i, line := range lines {
		formatted[i] = fmt.Sprintf("%s: %s", line.Speaker, line.Text)
	}
	return strings.Join(formatted, "\n")
}

// Flatten replaces the raw transcript in a report mapping with its formatted
// string form. Must run before row projection: the projector's generic list
// join would drop speaker attribution.
func Flatten(report map[string]any) {
	lines, _ := report[RawField].([]schema.DialogLine)
	delete(report, RawField)
	report[FormattedField] = Format(lines)
}

// ArchivePath returns the local archive path for a source audio file name,
// e.g. "call_0667131186.mp3" -> dir/call_0667131186_transcript.json.
func ArchivePath(dir, sourceFileName string) string {
	base := strings.TrimSuffix(sourceFileName, filepath.Ext(sourceFileName))
	return filepath.Join(dir, base+"_transcript.json")
}

// WriteArchive writes the transcript as an indented UTF-8 JSON array of
// {speaker, text} objects. The file is uploaded verbatim to the file store;
// its shape is a stable contract for downstream consumers, so a call without
// a transcript archives as an empty array, never as null.
func WriteArchive(lines []schema.DialogLine, path string) error {
	if lines == nil {
		lines = []schema.DialogLine{}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write transcript file %s: %w", path, err)
	}
	return nil
}
