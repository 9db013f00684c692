package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rdmlabs/rdm-engine/internal/domain/run"
)

// RunRepository stores completed run summaries.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a SQLite-backed run summary store.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save inserts one completed run summary. Summaries are immutable; every
// run produces a new row.
func (r *RunRepository) Save(ctx context.Context, summary *run.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	blocking := 0
	if summary.BlockingRemained {
		blocking = 1
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO run_summaries
			(project_id, goal, status, repair_attempts, blocking_remaining, summary_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ProjectID,
		summary.Goal,
		summary.Status,
		summary.RepairAttempts,
		blocking,
		string(payload),
		summary.StartedAt.Format(time.RFC3339),
		summary.CompletedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

// ListByProject returns the summaries of one project, most recent first.
func (r *RunRepository) ListByProject(ctx context.Context, projectID string) ([]*run.Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT summary_json FROM run_summaries
		WHERE project_id = ?
		ORDER BY completed_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query run summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*run.Summary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		var summary run.Summary
		if err := json.Unmarshal([]byte(payload), &summary); err != nil {
			return nil, fmt.Errorf("unmarshal run summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}
	return summaries, rows.Err()
}

// CountByStatus returns how many stored runs ended with the given status.
func (r *RunRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM run_summaries WHERE status = ?", status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count run summaries: %w", err)
	}
	return count, nil
}
