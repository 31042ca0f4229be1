package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/call-auditor/internal/schema"
)

func TestFormat(t *testing.T) {
	lines := []schema.DialogLine{
		{Speaker: schema.SpeakerClient, Text: "hi"},
		{Speaker: schema.SpeakerManager, Text: "hello"},
	}
	assert.Equal(t, "CLIENT: hi\nMANAGER: hello", Format(lines))
}

func TestFormatEmptyTranscript(t *testing.T) {
	assert.Equal(t, Missing, Format(nil))
	assert.Equal(t, Missing, Format([]schema.DialogLine{}))
}

func TestFormatPreservesOrder(t *testing.T) {
	lines := []schema.DialogLine{
		{Speaker: schema.SpeakerManager, Text: "second call today"},
		{Speaker: schema.SpeakerManager, Text: "second call today"},
		{Speaker: schema.SpeakerClient, Text: "yes"},
	}
	// Repeated turns are kept; order is semantically meaningful.
	assert.Equal(t,
		"MANAGER: second call today\nMANAGER: second call today\nCLIENT: yes",
		Format(lines))
}

func TestFlatten(t *testing.T) {
	report := map[string]any{
		RawField: []schema.DialogLine{
			{Speaker: schema.SpeakerClient, Text: "hi"},
		},
		"call_type": "Consultation",
	}

	Flatten(report)

	_, hasRaw := report[RawField]
	assert.False(t, hasRaw)
	assert.Equal(t, "CLIENT: hi", report[FormattedField])
	assert.Equal(t, "Consultation", report["call_type"])
}

func TestFlattenWithoutTranscript(t *testing.T) {
	report := map[string]any{"call_type": "Other"}
	Flatten(report)
	assert.Equal(t, Missing, report[FormattedField])
}

func TestArchivePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("out", "2024-11-13_12-57_0667131186_outgoing_transcript.json"),
		ArchivePath("out", "2024-11-13_12-57_0667131186_outgoing.mp3"))

	assert.Equal(t,
		filepath.Join("out", "recording_transcript.json"),
		ArchivePath("out", "recording"))
}

func TestWriteArchive(t *testing.T) {
	dir := t.TempDir()
	path := ArchivePath(dir, "call.mp3")

	lines := []schema.DialogLine{
		{Speaker: schema.SpeakerClient, Text: "привіт"},
		{Speaker: schema.SpeakerManager, Text: "добрий день"},
	}
	require.NoError(t, WriteArchive(lines, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Human-readable indentation is part of the archive contract.
	assert.Contains(t, string(data), "\n  {")

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "CLIENT", decoded[0]["speaker"])
	assert.Equal(t, "привіт", decoded[0]["text"])
	assert.Equal(t, "MANAGER", decoded[1]["speaker"])
}

func TestWriteArchiveWithoutTranscript(t *testing.T) {
	dir := t.TempDir()

	// A payload may legally omit the transcript, leaving a nil slice. The
	// archive must still be a JSON array, never the literal null.
	for name, lines := range map[string][]schema.DialogLine{
		"nil":   nil,
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			path := ArchivePath(dir, name+".mp3")
			require.NoError(t, WriteArchive(lines, path))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(data))

			var decoded []map[string]string
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Empty(t, decoded)
		})
	}
}
