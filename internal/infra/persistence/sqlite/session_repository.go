package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SessionRecord mirrors one row of the sessions table.
type SessionRecord struct {
	SessionID   string
	ProjectID   string
	Goal        string
	Status      string
	Mode        string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// SessionRepository stores project sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a SQLite-backed session store.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save upserts a session row keyed by session ID.
func (r *SessionRepository) Save(ctx context.Context, rec *SessionRecord) error {
	var completedAt any
	if rec.CompletedAt != nil {
		completedAt = rec.CompletedAt.Format(time.RFC3339)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, project_id, goal, status, mode, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at`,
		rec.SessionID,
		rec.ProjectID,
		rec.Goal,
		rec.Status,
		rec.Mode,
		rec.StartedAt.Format(time.RFC3339),
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", rec.SessionID, err)
	}
	return nil
}

// Find returns one session by ID, or nil when absent.
func (r *SessionRepository) Find(ctx context.Context, sessionID string) (*SessionRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, project_id, goal, status, mode, started_at, completed_at
		FROM sessions WHERE session_id = ?`, sessionID)

	rec, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session %s: %w", sessionID, err)
	}
	return rec, nil
}

// ListByProject returns a project's sessions, most recent first.
func (r *SessionRepository) ListByProject(ctx context.Context, projectID string) ([]*SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, project_id, goal, status, mode, started_at, completed_at
		FROM sessions WHERE project_id = ?
		ORDER BY started_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []*SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	var rec SessionRecord
	var startedAt string
	var completedAt sql.NullString

	if err := row.Scan(&rec.SessionID, &rec.ProjectID, &rec.Goal, &rec.Status,
		&rec.Mode, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		rec.StartedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			rec.CompletedAt = &t
		}
	}
	return &rec, nil
}
