// Package db provides PostgreSQL storage for audit run history.
// History is optional; the pipeline runs fine without a database.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Per-call outcomes within a run.
const (
	CallStatusAnalyzed = "analyzed"
	CallStatusSkipped  = "skipped"
)

// Artifact step names.
const (
	StepScoredReports  = "scored_reports"
	StepPublishedRange = "published_range"
)

// Run is one audit run record.
type Run struct {
	ID            uuid.UUID
	FolderName    string
	SpreadsheetID string
	Status        string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// CallRecord is the outcome of processing one audio file within a run.
type CallRecord struct {
	ID           uuid.UUID
	RunID        uuid.UUID
	FileName     string
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
}

// Store wraps a PostgreSQL connection pool
type Store struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateRun creates a new audit run record and returns its ID
func (s *Store) CreateRun(ctx context.Context, folderName, spreadsheetID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO audit_runs (folder_name, spreadsheet_id, status)
		 VALUES ($1, $2, 'running')
		 RETURNING id`,
		folderName, spreadsheetID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks an audit run as finished with the given status
func (s *Store) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE audit_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// RecordCall stores the per-file outcome for a run
func (s *Store) RecordCall(ctx context.Context, runID uuid.UUID, fileName, status string, errorMessage *string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_calls (run_id, file_name, status, error_message)
		 VALUES ($1, $2, $3, $4)`,
		runID, fileName, status, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record call %s: %w", fileName, err)
	}
	return nil
}

// SaveArtifact stores a JSON artifact for an audit run
func (s *Store) SaveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_artifacts (run_id, step, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, step) DO UPDATE SET content = $3, created_at = NOW()`,
		runID, step, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", step, err)
	}
	return nil
}

// GetArtifact retrieves a JSON artifact by run ID and step
func (s *Store) GetArtifact(ctx context.Context, runID uuid.UUID, step string) ([]byte, error) {
	var content []byte
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM run_artifacts WHERE run_id = $1 AND step = $2`,
		runID, step,
	).Scan(&content)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", step, err)
	}
	return content, nil
}

// GetRun retrieves an audit run by ID
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, folder_name, spreadsheet_id, status, created_at, completed_at
		 FROM audit_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.FolderName, &run.SpreadsheetID, &run.Status, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves recent audit runs
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, folder_name, spreadsheet_id, status, created_at, completed_at
		 FROM audit_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.FolderName, &run.SpreadsheetID, &run.Status, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// ListCalls retrieves the per-file outcomes of a run in insertion order
func (s *Store) ListCalls(ctx context.Context, runID uuid.UUID) ([]CallRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, file_name, status, error_message, created_at
		 FROM run_calls WHERE run_id = $1 ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var calls []CallRecord
	for rows.Next() {
		var call CallRecord
		if err := rows.Scan(&call.ID, &call.RunID, &call.FileName, &call.Status, &call.ErrorMessage, &call.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, call)
	}
	return calls, nil
}
