// Package pipeline provides the high-level orchestration for the call audit process.
package pipeline

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/call-auditor/internal/analysis"
	"github.com/jonathan/call-auditor/internal/colmap"
	"github.com/jonathan/call-auditor/internal/db"
	"github.com/jonathan/call-auditor/internal/drive"
	"github.com/jonathan/call-auditor/internal/rows"
	"github.com/jonathan/call-auditor/internal/schema"
	"github.com/jonathan/call-auditor/internal/scoring"
	"github.com/jonathan/call-auditor/internal/sheets"
	"github.com/jonathan/call-auditor/internal/transcript"
)

// SourceFileField is the report key carrying the original audio file name.
const SourceFileField = "source_file_name"

// DefaultColorField is the report field whose mapped column gets the
// per-row verdict color.
const DefaultColorField = "comment"

// FileStore is the remote storage the pipeline reads audio from and writes
// transcript archives back to.
type FileStore interface {
	FindFolder(ctx context.Context, name string) (string, error)
	ListFolder(ctx context.Context, folderID string) ([]drive.File, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	Upload(ctx context.Context, localPath, folderID string) (string, error)
}

// ReportSink receives projected report rows and per-cell formatting.
type ReportSink interface {
	AppendRows(ctx context.Context, rowsToAdd [][]string) (string, error)
	ColorCell(ctx context.Context, row int, colLetter string, color sheets.RGBColor) error
}

// ProcessedCall pairs the source audio file name with its analysis result.
type ProcessedCall struct {
	SourceFileName string
	Analysis       *schema.AnalysisResult
}

// PublishedBatch binds the appended row span to the reports it holds. Row
// order and report order are the same by construction.
type PublishedBatch struct {
	StartRow int
	EndRow   int
	Reports  []map[string]any
}

// Runner wires the pipeline's collaborators together for one audit run.
type Runner struct {
	Store         FileStore
	Analyzer      analysis.Analyzer
	Sink          ReportSink
	Columns       *colmap.ColumnMap
	Evaluator     *scoring.Evaluator
	History       *db.Store
	Log           *logrus.Entry
	ArchiveDir    string
	ColorField    string
	SpreadsheetID string
}

// Run executes the full audit: locate the folder, analyze every audio file,
// score the reports, publish them to the sheet with verdict coloring, and
// archive the transcripts back to the store.
func (r *Runner) Run(ctx context.Context, folderName string) error {
	colorField := r.ColorField
	if colorField == "" {
		colorField = DefaultColorField
	}

	var runID uuid.UUID
	if r.History != nil {
		var err error
		runID, err = r.History.CreateRun(ctx, folderName, r.SpreadsheetID)
		if err != nil {
			r.Log.WithError(err).Warn("failed to create run history record, continuing without history")
			r.History = nil
		}
	}

	folderID, err := r.Store.FindFolder(ctx, folderName)
	if err != nil {
		r.failRun(ctx, runID)
		return fmt.Errorf("cannot locate folder %q: %w", folderName, err)
	}

	files, err := r.Store.ListFolder(ctx, folderID)
	if err != nil {
		r.failRun(ctx, runID)
		return fmt.Errorf("cannot list folder %q: %w", folderName, err)
	}
	if len(files) == 0 {
		r.Log.WithField("folder", folderName).Info("no files to process")
		r.completeRun(ctx, runID)
		return nil
	}

	calls := r.analyzeFiles(ctx, runID, files)
	if len(calls) == 0 {
		r.Log.Warn("no call was analyzed successfully")
		r.completeRun(ctx, runID)
		return nil
	}

	reports := make([]map[string]any, 0, len(calls))
	for _, call := range calls {
		report := call.Analysis.ReportMap()
		report[SourceFileField] = call.SourceFileName
		reports = append(reports, report)
	}
	scored := r.Evaluator.EvaluateAll(reports)

	if r.History != nil {
		if err := r.History.SaveArtifact(ctx, runID, db.StepScoredReports, scored); err != nil {
			r.Log.WithError(err).Warn("failed to save scored reports artifact")
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		batch, err := r.publishReports(gCtx, scored)
		if err != nil {
			return fmt.Errorf("sheet publishing failed: %w", err)
		}
		if batch != nil {
			r.colorVerdicts(gCtx, batch, colorField)
			if r.History != nil {
				rangeInfo := map[string]int{"start_row": batch.StartRow, "end_row": batch.EndRow}
				if err := r.History.SaveArtifact(gCtx, runID, db.StepPublishedRange, rangeInfo); err != nil {
					r.Log.WithError(err).Warn("failed to save published range artifact")
				}
			}
		}
		return nil
	})

	g.Go(func() error {
		r.archiveTranscripts(gCtx, calls, folderID)
		return nil
	})

	if err := g.Wait(); err != nil {
		r.failRun(ctx, runID)
		return err
	}

	r.completeRun(ctx, runID)
	r.Log.WithField("calls", len(calls)).Info("audit run finished")
	return nil
}

// analyzeFiles downloads and analyzes each file in order. A failing file is
// logged and skipped so the rest of the batch still goes through.
func (r *Runner) analyzeFiles(ctx context.Context, runID uuid.UUID, files []drive.File) []ProcessedCall {
	var calls []ProcessedCall
	for _, file := range files {
		log := r.Log.WithFields(logrus.Fields{
			"file":    file.Name,
			"file_id": file.ID,
		})
		log.Info("processing file")

		audio, err := r.Store.Download(ctx, file.ID)
		if err != nil {
			log.WithError(err).Warn("download failed, skipping file")
			r.recordCall(ctx, runID, file.Name, db.CallStatusSkipped, err)
			continue
		}

		result, err := r.Analyzer.AnalyzeCall(ctx, audio)
		if err != nil {
			log.WithError(err).Warn("analysis failed, skipping file")
			r.recordCall(ctx, runID, file.Name, db.CallStatusSkipped, err)
			continue
		}

		calls = append(calls, ProcessedCall{SourceFileName: file.Name, Analysis: result})
		r.recordCall(ctx, runID, file.Name, db.CallStatusAnalyzed, nil)
		log.Info("file analyzed")
	}
	return calls
}

// publishReports projects the scored reports onto sheet rows and appends
// them in one batch. The reports themselves are not modified; the transcript
// flattening happens on copies because the archive branch still needs the
// raw dialogue lines.
func (r *Runner) publishReports(ctx context.Context, scored []map[string]any) (*PublishedBatch, error) {
	forSheet := make([]map[string]any, 0, len(scored))
	for _, report := range scored {
		view := maps.Clone(report)
		transcript.Flatten(view)
		forSheet = append(forSheet, view)
	}

	projector := rows.NewProjector(r.Columns, r.Log)
	sheetRows, err := projector.ProjectAll(forSheet)
	if err != nil {
		return nil, err
	}

	updatedRange, err := r.Sink.AppendRows(ctx, sheetRows)
	if err != nil {
		return nil, err
	}
	r.Log.WithFields(logrus.Fields{
		"rows":  len(sheetRows),
		"range": updatedRange,
	}).Info("reports written to sheet")

	startRow, endRow, err := sheets.ResolveRowRange(updatedRange)
	if err != nil {
		r.Log.WithError(err).Warn("cannot resolve written row range, skipping cell coloring")
		return nil, nil
	}
	if endRow-startRow+1 != len(scored) {
		r.Log.WithFields(logrus.Fields{
			"start_row": startRow,
			"end_row":   endRow,
			"reports":   len(scored),
		}).Warn("written range does not match report count, skipping cell coloring")
		return nil, nil
	}

	return &PublishedBatch{StartRow: startRow, EndRow: endRow, Reports: scored}, nil
}

// colorVerdicts colors the mapped verdict cell of every published row. A
// single failed cell does not stop the rest.
func (r *Runner) colorVerdicts(ctx context.Context, batch *PublishedBatch, colorField string) {
	colLetter, ok := r.Columns.Column(colorField)
	if !ok {
		r.Log.WithField("field", colorField).Warn("verdict field not in column mapping, skipping cell coloring")
		return
	}

	colors := sheets.DeriveColors(batch.Reports, r.Evaluator.NegativeCommentField)
	for i, color := range colors {
		row := batch.StartRow + i
		if err := r.Sink.ColorCell(ctx, row, colLetter, color); err != nil {
			r.Log.WithError(err).WithField("row", row).Warn("failed to color cell")
		}
	}
}

// archiveTranscripts writes each call's transcript to the local archive and
// uploads it next to the source audio. Failures are logged per file.
func (r *Runner) archiveTranscripts(ctx context.Context, calls []ProcessedCall, folderID string) {
	for _, call := range calls {
		log := r.Log.WithField("file", call.SourceFileName)

		path := transcript.ArchivePath(r.ArchiveDir, call.SourceFileName)
		if err := transcript.WriteArchive(call.Analysis.Transcript, path); err != nil {
			log.WithError(err).Warn("failed to write transcript archive")
			continue
		}

		if _, err := r.Store.Upload(ctx, path, folderID); err != nil {
			log.WithError(err).Warn("failed to upload transcript archive")
		}
	}
}

func (r *Runner) recordCall(ctx context.Context, runID uuid.UUID, fileName, status string, cause error) {
	if r.History == nil {
		return
	}
	var errMsg *string
	if cause != nil {
		msg := cause.Error()
		errMsg = &msg
	}
	if err := r.History.RecordCall(ctx, runID, fileName, status, errMsg); err != nil {
		r.Log.WithError(err).Warn("failed to record call history")
	}
}

func (r *Runner) completeRun(ctx context.Context, runID uuid.UUID) {
	if r.History == nil {
		return
	}
	if err := r.History.CompleteRun(ctx, runID, db.RunStatusCompleted); err != nil {
		r.Log.WithError(err).Warn("failed to complete run history record")
	}
}

func (r *Runner) failRun(ctx context.Context, runID uuid.UUID) {
	if r.History == nil {
		return
	}
	if err := r.History.CompleteRun(ctx, runID, db.RunStatusFailed); err != nil {
		r.Log.WithError(err).Warn("failed to mark run history record failed")
	}
}
