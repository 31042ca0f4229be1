package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/call-auditor/internal/analysis"
	"github.com/jonathan/call-auditor/internal/colmap"
	"github.com/jonathan/call-auditor/internal/drive"
	"github.com/jonathan/call-auditor/internal/schema"
	"github.com/jonathan/call-auditor/internal/scoring"
	"github.com/jonathan/call-auditor/internal/sheets"
)

type stubStore struct {
	mu            sync.Mutex
	files         []drive.File
	failDownloads map[string]bool
	uploads       []string
	uploadFolders []string
}

func (s *stubStore) FindFolder(_ context.Context, _ string) (string, error) {
	return "folder-1", nil
}

func (s *stubStore) ListFolder(_ context.Context, _ string) ([]drive.File, error) {
	return s.files, nil
}

func (s *stubStore) Download(_ context.Context, fileID string) ([]byte, error) {
	if s.failDownloads[fileID] {
		return nil, errors.New("download refused")
	}
	return []byte("audio:" + fileID), nil
}

func (s *stubStore) Upload(_ context.Context, localPath, folderID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, localPath)
	s.uploadFolders = append(s.uploadFolders, folderID)
	return "uploaded-" + fmt.Sprint(len(s.uploads)), nil
}

type stubAnalyzer struct {
	failAll  bool
	negative map[string]bool
	calls    int
}

func (a *stubAnalyzer) AnalyzeCall(_ context.Context, audio []byte) (*schema.AnalysisResult, error) {
	a.calls++
	if a.failAll {
		return nil, errors.New("analysis refused")
	}
	key := string(audio)
	return &schema.AnalysisResult{
		Transcript: []schema.DialogLine{
			{Speaker: schema.SpeakerClient, Text: "Hello"},
			{Speaker: schema.SpeakerManager, Text: "Hi"},
		},
		CallType:          "Consultation",
		CallResult:        "Booked",
		Comment:           "comment for " + key,
		ScriptGreeting:    true,
		IsCommentNegative: a.negative[key],
	}, nil
}

func (a *stubAnalyzer) Close() error { return nil }

type stubSink struct {
	mu         sync.Mutex
	appended   [][]string
	rangeValue string
	appendErr  error
	colored    map[int]sheets.RGBColor
	coloredCol string
}

func (s *stubSink) AppendRows(_ context.Context, rowsToAdd [][]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return "", s.appendErr
	}
	s.appended = rowsToAdd
	return s.rangeValue, nil
}

func (s *stubSink) ColorCell(_ context.Context, row int, colLetter string, color sheets.RGBColor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.colored == nil {
		s.colored = make(map[int]sheets.RGBColor)
	}
	s.colored[row] = color
	s.coloredCol = colLetter
	return nil
}

func testColumns(t *testing.T) *colmap.ColumnMap {
	t.Helper()
	m, err := colmap.Parse([]byte(`{
		"call_type": "A",
		"comment": "B",
		"total_score": "C",
		"transcription": "D"
	}`))
	require.NoError(t, err)
	return m
}

func testRunner(store *stubStore, analyzer analysis.Analyzer, sink *stubSink, columns *colmap.ColumnMap, archiveDir string) (*Runner, *logtest.Hook) {
	base, hook := logtest.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	return &Runner{
		Store:      store,
		Analyzer:   analyzer,
		Sink:       sink,
		Columns:    columns,
		Evaluator:  scoring.NewEvaluator(),
		Log:        logrus.NewEntry(base),
		ArchiveDir: archiveDir,
	}, hook
}

func TestRun_SkipsFailedDownloadsAndPublishesRest(t *testing.T) {
	store := &stubStore{
		files: []drive.File{
			{ID: "f1", Name: "call_one.mp3"},
			{ID: "f2", Name: "call_two.mp3"},
			{ID: "f3", Name: "call_three.mp3"},
		},
		failDownloads: map[string]bool{"f2": true},
	}
	analyzer := &stubAnalyzer{negative: map[string]bool{"audio:f3": true}}
	sink := &stubSink{rangeValue: "'Calls'!A5:D6"}

	runner, hook := testRunner(store, analyzer, sink, testColumns(t), t.TempDir())
	err := runner.Run(context.Background(), "october_calls")
	require.NoError(t, err)

	// Two of three files survive the download failure.
	require.Len(t, sink.appended, 2)
	assert.Equal(t, "Consultation", sink.appended[0][0])
	assert.Equal(t, "1", sink.appended[0][2])
	assert.Equal(t, "CLIENT: Hello\nMANAGER: Hi", sink.appended[0][3])

	// Colors line up with the appended rows, not the raw listing.
	require.Len(t, sink.colored, 2)
	assert.Equal(t, "B", sink.coloredCol)
	assert.Equal(t, sheets.ColorGreen, sink.colored[5])
	assert.Equal(t, sheets.ColorRed, sink.colored[6])

	// Both surviving transcripts are archived into the source folder.
	require.Len(t, store.uploads, 2)
	assert.Contains(t, store.uploads[0], "call_one_transcript.json")
	assert.Contains(t, store.uploads[1], "call_three_transcript.json")
	assert.Equal(t, []string{"folder-1", "folder-1"}, store.uploadFolders)

	skipWarnings := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "skipping file") {
			skipWarnings++
		}
	}
	assert.Equal(t, 1, skipWarnings, "exactly one skip warning for the one failed download")
}

func TestRun_MisalignedRangeSkipsColoring(t *testing.T) {
	store := &stubStore{files: []drive.File{{ID: "f1", Name: "one.mp3"}, {ID: "f2", Name: "two.mp3"}}}
	sink := &stubSink{rangeValue: "'Calls'!A5:D9"}

	runner, _ := testRunner(store, &stubAnalyzer{}, sink, testColumns(t), t.TempDir())
	err := runner.Run(context.Background(), "october_calls")
	require.NoError(t, err)

	require.Len(t, sink.appended, 2)
	assert.Empty(t, sink.colored, "coloring must be skipped when the range does not match the batch")
}

func TestRun_UnparsableRangeSkipsColoring(t *testing.T) {
	store := &stubStore{files: []drive.File{{ID: "f1", Name: "one.mp3"}}}
	sink := &stubSink{rangeValue: "not a range"}

	runner, _ := testRunner(store, &stubAnalyzer{}, sink, testColumns(t), t.TempDir())
	err := runner.Run(context.Background(), "october_calls")
	require.NoError(t, err)

	require.Len(t, sink.appended, 1)
	assert.Empty(t, sink.colored)
}

func TestRun_EmptyFolder(t *testing.T) {
	store := &stubStore{}
	sink := &stubSink{rangeValue: "'Calls'!A1:D1"}

	runner, _ := testRunner(store, &stubAnalyzer{}, sink, testColumns(t), t.TempDir())
	err := runner.Run(context.Background(), "october_calls")
	require.NoError(t, err)

	assert.Empty(t, sink.appended)
	assert.Empty(t, store.uploads)
}

func TestRun_AllAnalysesFail(t *testing.T) {
	store := &stubStore{files: []drive.File{{ID: "f1", Name: "one.mp3"}, {ID: "f2", Name: "two.mp3"}}}
	analyzer := &stubAnalyzer{failAll: true}
	sink := &stubSink{rangeValue: "'Calls'!A1:D2"}

	runner, _ := testRunner(store, analyzer, sink, testColumns(t), t.TempDir())
	err := runner.Run(context.Background(), "october_calls")
	require.NoError(t, err)

	assert.Equal(t, 2, analyzer.calls)
	assert.Empty(t, sink.appended)
	assert.Empty(t, store.uploads)
}

func TestRun_AppendFailureIsAnError(t *testing.T) {
	store := &stubStore{files: []drive.File{{ID: "f1", Name: "one.mp3"}}}
	sink := &stubSink{appendErr: errors.New("quota exceeded")}

	runner, _ := testRunner(store, &stubAnalyzer{}, sink, testColumns(t), t.TempDir())
	err := runner.Run(context.Background(), "october_calls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet publishing failed")
}
