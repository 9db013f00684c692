package memory

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdmlabs/rdm-engine/internal/domain/review"
	"github.com/rdmlabs/rdm-engine/internal/domain/run"
	"github.com/rdmlabs/rdm-engine/internal/infra/persistence/sqlite"
)

func setupMemory(t *testing.T) (*Memory, *sqlite.MemoryRepository) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.NewMigrator(db).Migrate())

	repo := sqlite.NewMemoryRepository(db)
	return New(repo), repo
}

func TestRecordRun(t *testing.T) {
	m, repo := setupMemory(t)
	ctx := context.Background()

	summary := &run.Summary{
		Goal:       "build a fastapi service",
		ProjectID:  "demo",
		ProjectDir: "projects/demo",
		Status:     run.StatusNeedsReview,
		Review: review.Verdict{
			OverallAssessment: "mostly works",
			Issues: []review.Issue{
				{Type: "bug", Description: "healthcheck missing", Severity: "medium"},
			},
		},
	}
	require.NoError(t, m.RecordRun(ctx, summary, "projects/demo/runs/r.json"))

	entry, err := repo.Find(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.HasBlocking)
	assert.Equal(t, "healthcheck missing", entry.FirstIssue)
}

func TestContextRanksByGoalOverlap(t *testing.T) {
	m, repo := setupMemory(t)
	ctx := context.Background()

	entries := []*sqlite.MemoryEntry{
		{ProjectID: "notes", Goal: "build a note taking cli", ProjectDir: "p", RunSummaryPath: "s"},
		{ProjectID: "api", Goal: "build a fastapi rest service", ProjectDir: "p", RunSummaryPath: "s"},
		{ProjectID: "game", Goal: "write a snake game", ProjectDir: "p", RunSummaryPath: "s"},
		{ProjectID: "scraper", Goal: "scrape product pages", ProjectDir: "p", RunSummaryPath: "s"},
	}
	for _, e := range entries {
		require.NoError(t, repo.Upsert(ctx, e))
		time.Sleep(time.Millisecond)
	}

	out, err := m.Context(ctx, "extend the fastapi rest service")
	require.NoError(t, err)

	assert.Contains(t, out, "Recent/related project memory:")
	lines := strings.Split(out, "\n")
	assert.LessOrEqual(t, len(lines), 4) // header + at most 3 entries

	// The best-overlap project leads.
	assert.Contains(t, lines[1], "api")
}

func TestContextEmptyIndex(t *testing.T) {
	m, _ := setupMemory(t)

	out, err := m.Context(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, out)
}
