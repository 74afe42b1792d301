package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/merge"
	"github.com/Veraticus/rofr-ledger/internal/parser"
)

// Run is the bookkeeping row for one ingestion run.
type Run struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	ID           string
	Inputs       []string
	Summary      parser.Summary
	SkippedPosts int
}

// SaveIngest persists the records of store changed after since together with the run that
// produced them. Either both are written or neither is.
func (s *SQLiteStorage) SaveIngest(ctx context.Context, store *merge.Store, since uint64, run Run, diagnostics []parser.Diagnostic) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if store == nil {
		return 0, fmt.Errorf("%w: store", ErrNilParameter)
	}
	if err := validateString(run.ID, "run ID"); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	saved, err := saveStoreTx(ctx, tx, store, since)
	if err != nil {
		return 0, err
	}
	if err := saveRunTx(ctx, tx, run, diagnostics); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit ingest: %w", err)
	}
	return saved, nil
}

func saveRunTx(ctx context.Context, tx *sql.Tx, run Run, diagnostics []parser.Diagnostic) error {
	inputs, err := json.Marshal(run.Inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal inputs: %w", err)
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, inputs, skipped_posts, summary)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), string(inputs), run.SkippedPosts, string(summary)); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if len(diagnostics) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO diagnostics (run_id, seq, source_url, page, line_no, status, reason, field, detail, text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, d := range diagnostics {
			if _, err := stmt.ExecContext(ctx,
				run.ID, int64(d.Seq), d.SourceURL, d.Page, d.LineNo,
				string(d.Status), string(d.Reason), d.Field, d.Detail, d.Text,
			); err != nil {
				return fmt.Errorf("failed to save diagnostic for seq %d: %w", d.Seq, err)
			}
		}
	}

	return nil
}

// GetRun returns a single run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "run ID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, inputs, skipped_posts, summary
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	return run, err
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, inputs, skipped_posts, summary
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run     Run
		inputs  string
		summary string
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &inputs, &run.SkippedPosts, &summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if err := json.Unmarshal([]byte(inputs), &run.Inputs); err != nil {
		return nil, fmt.Errorf("failed to decode inputs of run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary of run %s: %w", run.ID, err)
	}

	return &run, nil
}

// ListDiagnostics returns the diagnostics of a run in stream order, optionally narrowed to one reason.
func (s *SQLiteStorage) ListDiagnostics(ctx context.Context, runID string, reason parser.Reason) ([]parser.Diagnostic, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "run ID"); err != nil {
		return nil, err
	}

	query := `
		SELECT seq, source_url, page, line_no, status, reason, field, detail, text
		FROM diagnostics WHERE run_id = ?`
	args := []any{runID}
	if reason != "" {
		query += " AND reason = ?"
		args = append(args, string(reason))
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var diagnostics []parser.Diagnostic
	for rows.Next() {
		var (
			d      parser.Diagnostic
			seq    int64
			status string
			why    string
		)
		if err := rows.Scan(&seq, &d.SourceURL, &d.Page, &d.LineNo, &status, &why, &d.Field, &d.Detail, &d.Text); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		d.Seq = uint64(seq)
		d.Status = parser.Status(status)
		d.Reason = parser.Reason(why)
		diagnostics = append(diagnostics, d)
	}

	return diagnostics, rows.Err()
}
