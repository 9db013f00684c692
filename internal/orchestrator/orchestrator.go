// Package orchestrator runs the outer plan/execute/review/repair cycle for
// one goal and records the outcome exactly once.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rdmlabs/rdm-engine/internal/agents"
	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/domain/plan"
	"github.com/rdmlabs/rdm-engine/internal/domain/review"
	"github.com/rdmlabs/rdm-engine/internal/domain/run"
	"github.com/rdmlabs/rdm-engine/internal/infra/fs"
	"github.com/rdmlabs/rdm-engine/internal/pkg/slug"
	"github.com/rdmlabs/rdm-engine/internal/worker"
)

// StepRunner executes one plan step in a workspace and returns its full
// transcript. *worker.Worker is the production implementation.
type StepRunner interface {
	Run(ctx context.Context, goal, workdir string) (*worker.Result, error)
}

// StepPublisher ships one successfully executed step. A publish failure or
// an ineligible merge decision never fails the run; it only stops
// auto-publication of that step.
type StepPublisher interface {
	PublishStep(ctx context.Context, projectID, projectDir string, step plan.Step, attempt string, transcript run.Transcript) error
}

// Orchestrator drives the repair cycle: plan, execute every step, review,
// and re-plan against reviewer findings until the verdict is clean or the
// attempt bound is hit.
type Orchestrator struct {
	planner    *agents.Planner
	reviewer   *agents.Reviewer
	runner     StepRunner
	publisher  StepPublisher
	maxRepairs int
}

// Options configures an Orchestrator. Publisher may be nil to disable
// publication entirely.
type Options struct {
	Publisher  StepPublisher
	MaxRepairs int
}

func New(planner *agents.Planner, reviewer *agents.Reviewer, runner StepRunner, opt Options) *Orchestrator {
	maxRepairs := opt.MaxRepairs
	if maxRepairs <= 0 {
		maxRepairs = 2
	}
	return &Orchestrator{
		planner:    planner,
		reviewer:   reviewer,
		runner:     runner,
		publisher:  opt.Publisher,
		maxRepairs: maxRepairs,
	}
}

// Request names one orchestrator run.
type Request struct {
	Goal          string
	ProjectID     string
	ProjectDir    string
	MemoryContext string
}

// Run executes the full cycle and writes PROJECT_INFO.json plus a dated run
// artifact under the project directory. The returned Summary is the same
// data the artifacts hold. A planner or reviewer failure is fatal and
// leaves no summary behind; a reviewer verdict that stays blocking after
// all repair attempts is a normal needs_review completion.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*run.Summary, error) {
	startedAt := time.Now().UTC()
	logger := app.GetLogger()
	logger.Info("orchestrator start: project=%s goal=%q", req.ProjectID, req.Goal)

	initial, err := o.planner.Plan(ctx, req.Goal, req.MemoryContext)
	if err != nil {
		return nil, err
	}
	// A step-free plan fails before any worker runs.
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("planner returned unusable plan: %w", err)
	}
	logger.Info("planner produced %d steps", len(initial.Steps))

	combined := plan.Combined{InitialPlan: initial}

	records, err := o.executeSteps(ctx, req, initial.Steps, run.AttemptInitial)
	if err != nil {
		return nil, err
	}

	verdict, err := o.review(ctx, req.Goal, combined, records)
	if err != nil {
		return nil, err
	}

	repairs := 0
	for verdict.IsBlocking() && repairs < o.maxRepairs {
		repairs++
		logger.Info("starting repair attempt %d", repairs)

		repairPlan, err := o.planner.Plan(ctx, buildFixRequest(req.Goal, req.ProjectDir, verdict), "")
		if err != nil {
			return nil, err
		}
		combined.RepairPlans = append(combined.RepairPlans, plan.RepairPlan{
			Attempt: repairs,
			Plan:    repairPlan,
		})

		if len(repairPlan.Steps) == 0 {
			logger.Info("repair plan contained no steps; stopping repair attempts")
			break
		}

		repairRecords, err := o.executeSteps(ctx, req, repairPlan.Steps, run.RepairAttemptLabel(repairs))
		if err != nil {
			return nil, err
		}
		records = append(records, repairRecords...)

		verdict, err = o.review(ctx, req.Goal, combined, records)
		if err != nil {
			return nil, err
		}
	}

	remaining := verdict.IsBlocking()
	if remaining && repairs >= o.maxRepairs {
		logger.Warn("max repair attempts reached; blocking issues may remain")
	}

	status := run.StatusSuccess
	if remaining {
		status = run.StatusNeedsReview
	}

	summary := &run.Summary{
		Goal:             req.Goal,
		ProjectID:        req.ProjectID,
		ProjectDir:       req.ProjectDir,
		Plan:             initial,
		Plans:            combined,
		FinalPlan:        combined.Final(),
		ExecutionResults: records,
		Review:           verdict,
		RepairAttempts:   repairs,
		Status:           status,
		BlockingRemained: remaining,
		StartedAt:        startedAt,
		CompletedAt:      time.Now().UTC(),
		HowToTest:        BuildHowToTest(req.Goal, req.ProjectDir),
	}

	if err := o.writeArtifacts(summary); err != nil {
		return nil, err
	}

	logger.Info("orchestration complete: %d steps executed, %d repair attempts, status=%s",
		len(records), repairs, status)
	return summary, nil
}

func (o *Orchestrator) executeSteps(ctx context.Context, req Request, steps []plan.Step, attempt string) ([]run.ExecutionRecord, error) {
	logger := app.GetLogger()
	records := make([]run.ExecutionRecord, 0, len(steps))

	for _, step := range steps {
		logger.Info("executing step %d (%s): %s", step.ID, attempt, step.Description)

		result, err := o.runner.Run(ctx, step.Description, req.ProjectDir)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", step.ID, attempt, err)
		}

		records = append(records, run.ExecutionRecord{
			Attempt:       attempt,
			StepID:        step.ID,
			Description:   step.Description,
			WorkerHistory: result.Transcript,
		})

		switch result.Outcome {
		case worker.OutcomePausedForHuman:
			// The pause is recorded in the transcript; remaining steps
			// still run so the reviewer sees the whole picture.
			logger.Warn("step %d paused for human: %s", step.ID, result.PauseReason)
			continue
		case worker.OutcomeTurnsExhausted:
			logger.Warn("step %d exhausted its turn bound", step.ID)
			continue
		}

		if o.publisher != nil && result.Transcript.AllSucceeded() {
			if err := o.publisher.PublishStep(ctx, req.ProjectID, req.ProjectDir, step, attempt, result.Transcript); err != nil {
				logger.Warn("publish of step %d skipped: %v", step.ID, err)
			}
		}
	}

	return records, nil
}

func (o *Orchestrator) review(ctx context.Context, goal string, combined plan.Combined, records []run.ExecutionRecord) (review.Verdict, error) {
	plansJSON, err := json.Marshal(combined)
	if err != nil {
		return review.Verdict{}, fmt.Errorf("encode plans for review: %w", err)
	}
	return o.reviewer.Review(ctx, goal, string(plansJSON), run.RenderExecutionSummary(records))
}

// buildFixRequest turns reviewer findings into the next planning goal.
func buildFixRequest(goal, projectDir string, verdict review.Verdict) string {
	issues, _ := json.MarshalIndent(verdict.Issues, "", "  ")
	suggestions, _ := json.MarshalIndent(verdict.Suggestions, "", "  ")
	return fmt.Sprintf(
		"Repair request for existing project.\n"+
			"Project directory: %s\n"+
			"Original goal: %s\n\n"+
			"Reviewer flagged issues (JSON): %s\n"+
			"Reviewer suggestions: %s\n"+
			"Return a revised plan JSON that will fix the issues in-place.",
		projectDir, goal, issues, suggestions)
}

// writeArtifacts persists the summary once: PROJECT_INFO.json for the
// current state plus a dated entry under runs/ for history.
func (o *Orchestrator) writeArtifacts(summary *run.Summary) error {
	infoPath := filepath.Join(summary.ProjectDir, "PROJECT_INFO.json")
	if err := fs.AtomicWriteJSON(infoPath, summary); err != nil {
		return fmt.Errorf("write project summary: %w", err)
	}

	runsDir := filepath.Join(summary.ProjectDir, "runs")
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return fmt.Errorf("create runs dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.json",
		slug.Make(summary.Goal, 50, "task"),
		summary.CompletedAt.Format("2006-01-02"))
	if err := fs.AtomicWriteJSON(filepath.Join(runsDir, name), summary); err != nil {
		return fmt.Errorf("write run artifact: %w", err)
	}

	app.GetLogger().Info("run artifacts written: %s, runs/%s", infoPath, name)
	return nil
}

// BuildHowToTest writes a concrete verification guide based on what the
// project directory actually contains.
func BuildHowToTest(goal, projectDir string) string {
	var lines []string
	lines = append(lines,
		"To test this project:",
		"1. Open a terminal and change into this directory:",
		fmt.Sprintf("   cd %s", projectDir),
	)

	hasReadme := fileExists(filepath.Join(projectDir, "README.md"))
	hasServerRun := fileExists(filepath.Join(projectDir, "SERVER_RUN.md"))
	hasStartScript := fileExists(filepath.Join(projectDir, "start_server.sh"))

	n := 2
	if hasReadme {
		lines = append(lines,
			fmt.Sprintf("%d. Read the README for project-specific setup and usage:", n),
			"   cat README.md")
		n++
	}
	if hasServerRun {
		lines = append(lines,
			fmt.Sprintf("%d. Follow the steps described in SERVER_RUN.md to start and test the server:", n),
			"   cat SERVER_RUN.md")
		n++
	}
	if hasStartScript {
		lines = append(lines,
			fmt.Sprintf("%d. Ensure the server script is executable and run it to start the service:", n),
			"   chmod +x start_server.sh",
			"   ./start_server.sh")
		n++
	}

	lines = append(lines,
		fmt.Sprintf("%d. If the project starts a web service, check the README or SERVER_RUN.md for the URL.", n),
		"   Common defaults include http://127.0.0.1:8000 or http://localhost:8000.")
	n++
	lines = append(lines,
		fmt.Sprintf("%d. If there is a tests/ directory or documented test command (e.g. pytest), run it to validate behavior.", n))

	if !hasReadme && !hasServerRun && !hasStartScript {
		lines = append(lines,
			"",
			"Note: This project does not include README.md, SERVER_RUN.md, or start_server.sh.",
			"You may need to inspect the files manually to see how to run and test it.")
	}

	return strings.Join(lines, "\n")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
