package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MemoryEntry is one project's row in the memory index.
type MemoryEntry struct {
	ProjectID         string
	Goal              string
	ProjectDir        string
	RunSummaryPath    string
	OverallAssessment string
	HasBlocking       bool
	FirstIssue        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MemoryRepository stores the cross-run project memory index.
type MemoryRepository struct {
	db *sql.DB
}

// NewMemoryRepository creates a SQLite-backed memory index.
func NewMemoryRepository(db *sql.DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// Upsert writes one project's entry, keeping created_at on updates.
func (r *MemoryRepository) Upsert(ctx context.Context, entry *MemoryEntry) error {
	now := time.Now().UTC()
	blocking := 0
	if entry.HasBlocking {
		blocking = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memory_index
			(project_id, goal, project_dir, run_summary_path, overall_assessment, has_blocking, first_issue, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			goal = excluded.goal,
			project_dir = excluded.project_dir,
			run_summary_path = excluded.run_summary_path,
			overall_assessment = excluded.overall_assessment,
			has_blocking = excluded.has_blocking,
			first_issue = excluded.first_issue,
			updated_at = excluded.updated_at`,
		entry.ProjectID,
		entry.Goal,
		entry.ProjectDir,
		entry.RunSummaryPath,
		entry.OverallAssessment,
		blocking,
		entry.FirstIssue,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert memory entry %s: %w", entry.ProjectID, err)
	}
	return nil
}

// List returns all entries, most recently updated first.
func (r *MemoryRepository) List(ctx context.Context) ([]*MemoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id, goal, project_dir, run_summary_path, overall_assessment, has_blocking, first_issue, created_at, updated_at
		FROM memory_index
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query memory index: %w", err)
	}
	defer rows.Close()

	var entries []*MemoryEntry
	for rows.Next() {
		var entry MemoryEntry
		var blocking int
		var createdAt, updatedAt string
		if err := rows.Scan(&entry.ProjectID, &entry.Goal, &entry.ProjectDir,
			&entry.RunSummaryPath, &entry.OverallAssessment, &blocking,
			&entry.FirstIssue, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		entry.HasBlocking = blocking != 0
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			entry.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			entry.UpdatedAt = t
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Find returns one project's entry, or nil when absent.
func (r *MemoryRepository) Find(ctx context.Context, projectID string) (*MemoryEntry, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.ProjectID == projectID {
			return entry, nil
		}
	}
	return nil, nil
}
