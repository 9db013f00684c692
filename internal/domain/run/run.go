package run

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rdmlabs/rdm-engine/internal/domain/plan"
	"github.com/rdmlabs/rdm-engine/internal/domain/review"
)

// Synthetic command markers appended to a transcript in place of a real
// shell execution. The next model turn reads them as evidence.
const (
	MarkerConfirmSecret       = "CONFIRM_SECRET"
	MarkerConfirmSecretFailed = "CONFIRM_SECRET_FAILED"
	MarkerParseError          = "PARSE_ERROR"
	MarkerFictionDetected     = "FICTION_DETECTED"
	MarkerPauseForHuman       = "PAUSE_FOR_HUMAN"
)

// CommandResult records one executed action or synthetic marker.
// Safety rejections are recorded with ReturnCode -1 and the rejection
// text as stderr.
type CommandResult struct {
	Command    string `json:"command"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"returncode"`
}

// Succeeded reports whether the command exited cleanly.
func (r CommandResult) Succeeded() bool { return r.ReturnCode == 0 }

// Transcript is the append-only command history of one step.
type Transcript []CommandResult

// Append records one more result at the end of the transcript.
func (t *Transcript) Append(r CommandResult) {
	*t = append(*t, r)
}

// Render flattens the transcript into the COMMAND/RETURN CODE/STDOUT/STDERR
// text block the model reads as history.
func (t Transcript) Render() string {
	var b strings.Builder
	for _, step := range t {
		fmt.Fprintf(&b, "COMMAND: %s\n", step.Command)
		fmt.Fprintf(&b, "RETURN CODE: %d\n", step.ReturnCode)
		fmt.Fprintf(&b, "STDOUT:\n%s\n", step.Stdout)
		fmt.Fprintf(&b, "STDERR:\n%s\n\n", step.Stderr)
	}
	return b.String()
}

// RenderBounded returns the most recent budget bytes of the rendered
// transcript, respecting the upstream prompt-size budget. budget <= 0 means
// unbounded. The cut never splits a multi-byte rune.
func (t Transcript) RenderBounded(budget int) string {
	text := t.Render()
	if budget <= 0 || len(text) <= budget {
		return text
	}
	cut := len(text) - budget
	for cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut++
	}
	return text[cut:]
}

// AllSucceeded reports whether every entry exited zero. An empty transcript
// counts as success (a step may legitimately need no commands).
func (t Transcript) AllSucceeded() bool {
	for _, r := range t {
		if r.ReturnCode != 0 {
			return false
		}
	}
	return true
}

// AttemptInitial labels records from the first execution pass.
const AttemptInitial = "initial"

// RepairAttemptLabel builds the label for the n-th repair pass.
func RepairAttemptLabel(n int) string {
	return fmt.Sprintf("repair-%d", n)
}

// ExecutionRecord pairs one step of one attempt with its worker transcript.
type ExecutionRecord struct {
	Attempt       string     `json:"attempt"`
	StepID        int        `json:"step_id"`
	Description   string     `json:"description"`
	WorkerHistory Transcript `json:"worker_history"`
}

// RenderExecutionSummary flattens all execution records into the text blob
// submitted to the reviewer.
func RenderExecutionSummary(records []ExecutionRecord) string {
	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "\n--- Attempt: %s | Step %d ---\n", rec.Attempt, rec.StepID)
		fmt.Fprintf(&b, "Description: %s\n", rec.Description)
		b.WriteString(rec.WorkerHistory.Render())
	}
	return b.String()
}

// Run terminal statuses. Exhausting repair attempts is a defined terminal
// state, not a failure abort.
const (
	StatusSuccess     = "success"
	StatusNeedsReview = "needs_review"
)

// Summary aggregates everything a completed orchestrator run produced.
// Written exactly once, after the repair loop ends.
type Summary struct {
	Goal             string            `json:"goal"`
	ProjectID        string            `json:"project_id"`
	ProjectDir       string            `json:"project_dir"`
	Plan             plan.Plan         `json:"plan"`
	Plans            plan.Combined     `json:"plans"`
	FinalPlan        plan.Plan         `json:"final_plan"`
	ExecutionResults []ExecutionRecord `json:"execution_results"`
	Review           review.Verdict    `json:"review"`
	RepairAttempts   int               `json:"repair_attempts"`
	Status           string            `json:"status"`
	BlockingRemained bool              `json:"blocking_issues_remaining"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      time.Time         `json:"completed_at"`
	HowToTest        string            `json:"how_to_test,omitempty"`
}
