package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/shared"
)

// RunRepository stores export run summaries and their per-track outcomes.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Record inserts run and its results in one transaction, assigning an ID when empty.
func (r *RunRepository) Record(ctx context.Context, run *models.ExportRun) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO export_runs (id, export_dir, total, downloaded, failed, skipped, cancelled, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query,
		run.ID,
		run.ExportDir,
		run.Total,
		run.Downloaded,
		run.Failed,
		run.Skipped,
		run.Cancelled,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO export_run_tracks (run_id, position, track_id, title, artist, status, output_path, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i, res := range run.Results {
		if _, err := stmt.ExecContext(ctx, run.ID, i, res.TrackID, res.Title, res.Artist, string(res.Status),
			nullString(res.OutputPath), nullString(res.ErrorMessage)); err != nil {
			return fmt.Errorf("failed to insert run track %s: %w", res.TrackID, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first, without per-track results.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]models.ExportRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, export_dir, total, downloaded, failed, skipped, cancelled, started_at, finished_at
		FROM export_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ExportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Get retrieves one run with its per-track results in queue order.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.ExportRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, export_dir, total, downloaded, failed, skipped, cancelled, started_at, finished_at
		FROM export_runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT track_id, title, artist, status, output_path, error_message
		FROM export_run_tracks
		WHERE run_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			res        models.TrackResult
			status     string
			outputPath sql.NullString
			errMsg     sql.NullString
		)
		if err := rows.Scan(&res.TrackID, &res.Title, &res.Artist, &status, &outputPath, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run track: %w", err)
		}
		res.Status = models.Status(status)
		res.OutputPath = outputPath.String
		res.ErrorMessage = errMsg.String
		run.Results = append(run.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.ExportRun, error) {
	var run models.ExportRun
	err := s.Scan(&run.ID, &run.ExportDir, &run.Total, &run.Downloaded, &run.Failed, &run.Skipped, &run.Cancelled,
		&run.StartedAt, &run.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
