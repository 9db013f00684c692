// Package memory maintains the cross-run project index and turns it into
// compact planner context.
package memory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rdmlabs/rdm-engine/internal/domain/run"
	"github.com/rdmlabs/rdm-engine/internal/infra/persistence/sqlite"
)

const maxContextEntries = 3

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// Store is the persistence surface the memory layer needs.
// *sqlite.MemoryRepository satisfies it.
type Store interface {
	Upsert(ctx context.Context, entry *sqlite.MemoryEntry) error
	List(ctx context.Context) ([]*sqlite.MemoryEntry, error)
}

// Memory records run outcomes and surfaces related history to the planner.
type Memory struct {
	store Store
}

func New(store Store) *Memory {
	return &Memory{store: store}
}

// RecordRun upserts the project's memory entry from a completed run.
func (m *Memory) RecordRun(ctx context.Context, summary *run.Summary, runSummaryPath string) error {
	firstIssue := ""
	if len(summary.Review.Issues) > 0 {
		firstIssue = summary.Review.Issues[0].Description
	}

	return m.store.Upsert(ctx, &sqlite.MemoryEntry{
		ProjectID:         summary.ProjectID,
		Goal:              summary.Goal,
		ProjectDir:        summary.ProjectDir,
		RunSummaryPath:    runSummaryPath,
		OverallAssessment: summary.Review.OverallAssessment,
		HasBlocking:       summary.Review.IsBlocking(),
		FirstIssue:        firstIssue,
	})
}

// Context builds a compact text block about the projects most related to
// the goal. Entries are ranked by word overlap with the goal, then by
// recency, and capped so the planner prompt stays small. Empty when the
// index has nothing to say.
func (m *Memory) Context(ctx context.Context, goal string) (string, error) {
	entries, err := m.store.List(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	targetWords := map[string]bool{}
	for _, w := range wordRe.FindAllString(strings.ToLower(goal), -1) {
		targetWords[w] = true
	}

	scores := make(map[string]int, len(entries))
	for _, e := range entries {
		seen := map[string]bool{}
		for _, w := range wordRe.FindAllString(strings.ToLower(e.Goal), -1) {
			if targetWords[w] && !seen[w] {
				seen[w] = true
				scores[e.ProjectID]++
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := scores[entries[i].ProjectID], scores[entries[j].ProjectID]
		if si != sj {
			return si > sj
		}
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	if len(entries) > maxContextEntries {
		entries = entries[:maxContextEntries]
	}

	lines := []string{"Recent/related project memory:"}
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf(
			"- %s: goal='%s'; assessment='%s'; medium/high issues=%t; first_issue='%s'",
			e.ProjectID,
			truncate(e.Goal, 80),
			truncate(e.OverallAssessment, 140),
			e.HasBlocking,
			truncate(e.FirstIssue, 120),
		))
	}
	return strings.Join(lines, "\n"), nil
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit-3] + "..."
}
