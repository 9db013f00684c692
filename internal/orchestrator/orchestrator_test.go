package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rdmlabs/rdm-engine/internal/agents"
	"github.com/rdmlabs/rdm-engine/internal/domain/plan"
	"github.com/rdmlabs/rdm-engine/internal/domain/run"
	"github.com/rdmlabs/rdm-engine/internal/llm"
	"github.com/rdmlabs/rdm-engine/internal/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubRunner replays canned worker results and records the goals it saw.
type stubRunner struct {
	results []*worker.Result
	goals   []string
}

func (s *stubRunner) Run(ctx context.Context, goal, workdir string) (*worker.Result, error) {
	s.goals = append(s.goals, goal)
	if len(s.results) == 0 {
		return &worker.Result{Outcome: worker.OutcomeDone}, nil
	}
	res := s.results[0]
	s.results = s.results[1:]
	return res, nil
}

type recordingPublisher struct {
	steps []plan.Step
}

func (p *recordingPublisher) PublishStep(ctx context.Context, projectID, projectDir string, step plan.Step, attempt string, transcript run.Transcript) error {
	p.steps = append(p.steps, step)
	return nil
}

const twoStepPlan = `{"goal": "build it", "steps": [
	{"id": 1, "description": "write the code"},
	{"id": 2, "description": "write the tests"}]}`

const cleanVerdict = `{"overall_assessment": "looks good", "issues": [], "suggestions": []}`

const blockingVerdict = `{"overall_assessment": "broken", "issues": [
	{"type": "bug", "description": "tests fail", "severity": "high"}],
	"suggestions": ["fix the failing test"]}`

func newOrchestrator(gw llm.Gateway, runner StepRunner, opt Options) *Orchestrator {
	return New(
		agents.NewPlanner(gw, "test-model"),
		agents.NewReviewer(gw, "test-model"),
		runner,
		opt,
	)
}

func TestRunCleanFirstPass(t *testing.T) {
	gw := llm.NewMockGateway(twoStepPlan, cleanVerdict)
	runner := &stubRunner{}
	o := newOrchestrator(gw, runner, Options{})
	dir := t.TempDir()

	summary, err := o.Run(context.Background(), Request{
		Goal:       "build it",
		ProjectID:  "demo",
		ProjectDir: dir,
	})
	require.NoError(t, err)

	assert.Equal(t, run.StatusSuccess, summary.Status)
	assert.Equal(t, 0, summary.RepairAttempts)
	assert.False(t, summary.BlockingRemained)
	assert.Len(t, summary.ExecutionResults, 2)
	assert.Equal(t, []string{"write the code", "write the tests"}, runner.goals)
	assert.Equal(t, summary.Plan, summary.FinalPlan)
}

func TestRunZeroStepPlanFailsBeforeAnyWorker(t *testing.T) {
	gw := llm.NewMockGateway(`{"goal": "noop", "steps": []}`)
	runner := &stubRunner{}
	o := newOrchestrator(gw, runner, Options{})

	_, err := o.Run(context.Background(), Request{
		Goal:       "noop",
		ProjectID:  "demo",
		ProjectDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrNoSteps)
	assert.Empty(t, runner.goals)
}

func TestRunRepairCycle(t *testing.T) {
	repairPlan := `{"goal": "fix it", "steps": [{"id": 1, "description": "fix the failing test"}]}`
	gw := llm.NewMockGateway(
		twoStepPlan,     // initial plan
		blockingVerdict, // first review
		repairPlan,      // repair attempt 1
		cleanVerdict,    // second review
	)
	runner := &stubRunner{}
	o := newOrchestrator(gw, runner, Options{})

	summary, err := o.Run(context.Background(), Request{
		Goal:       "build it",
		ProjectID:  "demo",
		ProjectDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, run.StatusSuccess, summary.Status)
	assert.Equal(t, 1, summary.RepairAttempts)
	require.Len(t, summary.ExecutionResults, 3)
	assert.Equal(t, "repair-1", summary.ExecutionResults[2].Attempt)
	assert.Equal(t, "fix the failing test", summary.ExecutionResults[2].Description)
	assert.Equal(t, "fix it", summary.FinalPlan.Goal)

	// The repair goal embeds the reviewer's findings.
	require.Len(t, gw.Requests, 4)
	assert.Contains(t, gw.Requests[2].Prompt, "Repair request for existing project")
	assert.Contains(t, gw.Requests[2].Prompt, "tests fail")
}

func TestRunRepairBoundEndsNeedsReview(t *testing.T) {
	repairPlan := `{"goal": "fix it", "steps": [{"id": 1, "description": "try again"}]}`
	gw := llm.NewMockGateway(
		twoStepPlan,
		blockingVerdict,
		repairPlan, blockingVerdict,
		repairPlan, blockingVerdict,
	)
	runner := &stubRunner{}
	o := newOrchestrator(gw, runner, Options{MaxRepairs: 2})

	summary, err := o.Run(context.Background(), Request{
		Goal:       "build it",
		ProjectID:  "demo",
		ProjectDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, run.StatusNeedsReview, summary.Status)
	assert.Equal(t, 2, summary.RepairAttempts)
	assert.True(t, summary.BlockingRemained)
	// 6 model calls total: no third repair plan is requested.
	assert.Equal(t, 6, gw.Calls())
}

func TestRunEmptyRepairPlanStopsRepairing(t *testing.T) {
	gw := llm.NewMockGateway(
		twoStepPlan,
		blockingVerdict,
		`{"goal": "fix it", "steps": []}`,
	)
	o := newOrchestrator(gw, &stubRunner{}, Options{})

	summary, err := o.Run(context.Background(), Request{
		Goal:       "build it",
		ProjectID:  "demo",
		ProjectDir: t.TempDir(),
	})
	require.NoError(t, err)

	// No second review happens, so the blocking verdict stands.
	assert.Equal(t, run.StatusNeedsReview, summary.Status)
	assert.Equal(t, 1, summary.RepairAttempts)
	assert.Equal(t, 3, gw.Calls())
}

func TestRunWritesArtifactsOnce(t *testing.T) {
	gw := llm.NewMockGateway(twoStepPlan, cleanVerdict)
	o := newOrchestrator(gw, &stubRunner{}, Options{})
	dir := t.TempDir()

	summary, err := o.Run(context.Background(), Request{
		Goal:       "Create FastAPI setup",
		ProjectID:  "demo",
		ProjectDir: dir,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "PROJECT_INFO.json"))
	require.NoError(t, err)
	var stored run.Summary
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, summary.Goal, stored.Goal)
	assert.Equal(t, summary.Status, stored.Status)

	entries, err := os.ReadDir(filepath.Join(dir, "runs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "create-fastapi-setup-")
}

func TestRunPublishesOnlySucceededSteps(t *testing.T) {
	gw := llm.NewMockGateway(twoStepPlan, cleanVerdict)
	runner := &stubRunner{results: []*worker.Result{
		{Outcome: worker.OutcomeDone, Transcript: run.Transcript{
			{Command: "echo ok", ReturnCode: 0},
		}},
		{Outcome: worker.OutcomeDone, Transcript: run.Transcript{
			{Command: "false", ReturnCode: 1},
		}},
	}}
	pub := &recordingPublisher{}
	o := newOrchestrator(gw, runner, Options{Publisher: pub})

	_, err := o.Run(context.Background(), Request{
		Goal:       "build it",
		ProjectID:  "demo",
		ProjectDir: t.TempDir(),
	})
	require.NoError(t, err)

	require.Len(t, pub.steps, 1)
	assert.Equal(t, 1, pub.steps[0].ID)
}

func TestRunPausedStepDoesNotAbortRemaining(t *testing.T) {
	gw := llm.NewMockGateway(twoStepPlan, cleanVerdict)
	runner := &stubRunner{results: []*worker.Result{
		{Outcome: worker.OutcomePausedForHuman, PauseReason: "needs credentials"},
		{Outcome: worker.OutcomeDone},
	}}
	o := newOrchestrator(gw, runner, Options{})

	summary, err := o.Run(context.Background(), Request{
		Goal:       "build it",
		ProjectID:  "demo",
		ProjectDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Len(t, summary.ExecutionResults, 2)
}

func TestBuildHowToTest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# demo"), 0o644))

	guide := BuildHowToTest("build it", dir)
	assert.Contains(t, guide, "cd "+dir)
	assert.Contains(t, guide, "cat README.md")
	assert.NotContains(t, guide, "SERVER_RUN.md to start")
}
