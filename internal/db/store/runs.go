package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcpdirectory/catalog-sync/internal/catalog"
)

// StartRun inserts a running ledger row and returns its id.
func (s *Store) StartRun(ctx context.Context, triggeredBy string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_sync_runs (id, triggered_by, status, started_at)
		VALUES ($1, $2, $3, now())`,
		id, triggeredBy, string(catalog.RunStatusRunning))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun updates the ledger row with the run outcome.
func (s *Store) FinishRun(ctx context.Context, run *catalog.SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE catalog_sync_runs SET
			status = $2,
			finished_at = now(),
			fetched = $3,
			upserted = $4,
			failed = $5,
			stale_marked = $6,
			duration_ms = $7,
			error_summary = $8
		WHERE id = $1`,
		run.ID, string(run.Status), run.Fetched, run.Upserted, run.Failed,
		run.StaleMarked, run.DurationMs, run.ErrorSummary)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	return nil
}

// RecordFailures inserts the per-row failure entries for a run.
func (s *Store) RecordFailures(ctx context.Context, runID uuid.UUID, failures []catalog.SyncFailure) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin failure insert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_sync_failures (run_id, slug, reason) VALUES ($1, $2, $3)`)
	if err != nil {
		return fmt.Errorf("failed to prepare failure insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, f := range failures {
		if _, err := stmt.ExecContext(ctx, runID, f.Slug, f.Reason); err != nil {
			return fmt.Errorf("failed to record failure for %s: %w", f.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failure insert: %w", err)
	}
	return nil
}

// ListRuns returns the most recent ledger rows, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]catalog.SyncRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, triggered_by, status, started_at, finished_at,
			fetched, upserted, failed, stale_marked, duration_ms, error_summary
		FROM catalog_sync_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []catalog.SyncRun
	for rows.Next() {
		var (
			run        catalog.SyncRun
			finishedAt sql.NullTime
		)
		if err := rows.Scan(
			&run.ID, &run.TriggeredBy, &run.Status, &run.StartedAt, &finishedAt,
			&run.Fetched, &run.Upserted, &run.Failed, &run.StaleMarked,
			&run.DurationMs, &run.ErrorSummary,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
