package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/rdmlabs/rdm-engine/internal/agents"
	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/domain/run"
	"github.com/rdmlabs/rdm-engine/internal/llm"
	"github.com/rdmlabs/rdm-engine/internal/safety"
	"github.com/rdmlabs/rdm-engine/internal/secret"
	"github.com/rdmlabs/rdm-engine/internal/shell"
)

const workerSystemPrompt = `You are an autonomous software engineer with access to a bash shell.
You respond ONLY with valid JSON. The JSON MUST have these keys:
  - command: string (the shell command to run, or "" if none)
  - done: boolean (true if the overall goal is achieved)
  - thoughts: string (your reasoning, for the human to read)
You MAY also include optional keys:
  - ask_human: object with keys {question: string, key_name: string, storage: string}
  - needs_human: object with key {reason: string}

Use ask_human ONLY when you cannot proceed without a human-provided secret such as an API key.
Use needs_human ONLY when you are blocked in a way no command can fix, such as a missing permission or an account-level restriction.

The controller will do the following when you use ask_human:
  1) It will ask the human your 'question'.
  2) It will store the secret under environment variable name 'key_name'.
  3) It will verify that environment variable actually exists.
  4) If verification succeeds, a step will appear in HISTORY like:
       COMMAND: CONFIRM_SECRET <KEY_NAME>
       STDOUT: Secret <KEY_NAME> is present in environment.
  5) If verification fails, a step will appear like:
       COMMAND: CONFIRM_SECRET_FAILED <KEY_NAME>
       STDERR: Secret <KEY_NAME> is NOT present in environment.

You MUST NOT print, log, or write the actual secret value anywhere.
Do not echo it, do not store it in files, and do not include it in your JSON.

When deciding what to do next, you may rely on CONFIRM_SECRET steps in HISTORY
as evidence that the corresponding environment variable exists and is usable.
Only claim an action succeeded when HISTORY shows it. If a command failed, say so
and propose a smaller, verifiable next step.`

// authSignatures are stderr/stdout fragments that mean the failure is an
// authorization problem the agent cannot talk its way past. Matching is
// case-insensitive substring.
var authSignatures = []string{
	"permission denied",
	"not authorized",
	"unauthorized",
	"access denied",
	"accessdenied",
	"403 forbidden",
	"status code: 403",
	"invalidaccesskeyid",
	"signaturedoesnotmatch",
	"expiredtoken",
	"authentication failed",
	"authenticationfailed",
	"invalid credentials",
	"login required",
	"insufficient_scope",
}

// Outcome says how a worker loop ended.
type Outcome int

const (
	// OutcomeDone means the agent declared the step complete.
	OutcomeDone Outcome = iota
	// OutcomePausedForHuman means the loop stopped for human attention.
	OutcomePausedForHuman
	// OutcomeTurnsExhausted means the turn bound was hit first.
	OutcomeTurnsExhausted
)

// Worker drives one step through the model/execute loop. Every command goes
// through the safety gate before it reaches a shell, and every result lands
// in the transcript the next model turn sees.
type Worker struct {
	gateway  llm.Gateway
	gate     *safety.Gate
	executor *shell.Executor
	broker   *secret.Broker
	model    string
	maxTurns int
	budget   int
}

// Options configures a Worker. Zero values fall back to the standard bounds.
type Options struct {
	Model    string
	MaxTurns int
	// Budget caps the rendered transcript length, in characters.
	Budget int
}

// Result is the full record of one worker loop.
type Result struct {
	Transcript  run.Transcript
	Outcome     Outcome
	PauseReason string
	Turns       int
}

func New(gateway llm.Gateway, gate *safety.Gate, executor *shell.Executor, broker *secret.Broker, opt Options) *Worker {
	maxTurns := opt.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 30
	}
	budget := opt.Budget
	if budget <= 0 {
		budget = 12000
	}
	return &Worker{
		gateway:  gateway,
		gate:     gate,
		executor: executor,
		broker:   broker,
		model:    opt.Model,
		maxTurns: maxTurns,
		budget:   budget,
	}
}

// Run executes the loop for one goal. Commands run in workdir. A gateway
// failure is returned as an error; everything else is absorbed into the
// transcript and the loop continues until done, paused, or out of turns.
func (w *Worker) Run(ctx context.Context, goal, workdir string) (*Result, error) {
	res := &Result{Outcome: OutcomeTurnsExhausted}

	for turn := 0; turn < w.maxTurns; turn++ {
		res.Turns = turn + 1

		reply, err := w.gateway.Execute(ctx, llm.Request{
			System:      workerSystemPrompt,
			Prompt:      w.buildPrompt(goal, res.Transcript),
			Model:       w.model,
			Temperature: 0.2,
		})
		if err != nil {
			return res, fmt.Errorf("worker model call failed: %w", err)
		}

		action, err := ParseAction(agents.ExtractJSON(reply.Output))
		if err != nil {
			// A malformed reply costs a turn but never kills the loop.
			app.GetLogger().Warn("worker reply was not valid action JSON: %v", err)
			res.Transcript.Append(run.CommandResult{
				Command:    run.MarkerParseError,
				Stderr:     fmt.Sprintf("Your previous reply was not valid action JSON: %v. Reply with ONLY the JSON object.", err),
				ReturnCode: 1,
			})
			continue
		}

		if action.Thoughts != "" {
			app.GetLogger().Info("worker: %s", action.Thoughts)
		}

		switch action.Kind {
		case ActionAskSecret:
			res.Transcript.Append(w.broker.Resolve(action.Secret))
			continue

		case ActionPauseHuman:
			res.Transcript.Append(pauseResult(action.Reason))
			res.Outcome = OutcomePausedForHuman
			res.PauseReason = action.Reason
			return res, nil

		case ActionFinish:
			res.Outcome = OutcomeDone
			return res, nil
		}

		if err := w.gate.Check(action.Command, workdir); err != nil {
			res.Transcript.Append(run.CommandResult{
				Command:    action.Command,
				Stderr:     fmt.Sprintf("command rejected: %v", err),
				ReturnCode: -1,
			})
			continue
		}

		result := w.executor.Run(ctx, action.Command, workdir)
		res.Transcript.Append(result)

		if !result.Succeeded() {
			if reason, ok := matchAuthSignature(result); ok {
				res.Transcript.Append(pauseResult(reason))
				res.Outcome = OutcomePausedForHuman
				res.PauseReason = reason
				return res, nil
			}
			res.Transcript.Append(run.CommandResult{
				Command: run.MarkerFictionDetected,
				Stdout: fmt.Sprintf(
					"The previous command exited with code %d. Do not claim it worked. Verify the actual state, then propose a smaller next step.",
					result.ReturnCode),
			})
			continue
		}

		if action.Done {
			res.Outcome = OutcomeDone
			return res, nil
		}
	}

	return res, nil
}

func (w *Worker) buildPrompt(goal string, transcript run.Transcript) string {
	return fmt.Sprintf(
		"GOAL:\n%s\n\nHISTORY:\n%s\nDecide what to do next. Either:\n"+
			"  - Provide the next shell command in 'command', or\n"+
			"  - If you cannot proceed without human-provided secrets, use 'ask_human'.\n"+
			"The controller will verify that requested secrets exist as environment\n"+
			"variables before proceeding.",
		goal, transcript.RenderBounded(w.budget))
}

func pauseResult(reason string) run.CommandResult {
	if reason == "" {
		reason = "human attention requested"
	}
	return run.CommandResult{
		Command: run.MarkerPauseForHuman,
		Stdout:  fmt.Sprintf("Paused for human: %s", reason),
	}
}

func matchAuthSignature(result run.CommandResult) (string, bool) {
	combined := strings.ToLower(result.Stderr + "\n" + result.Stdout)
	for _, sig := range authSignatures {
		if strings.Contains(combined, sig) {
			return fmt.Sprintf("authorization failure while running %q (matched %q)", result.Command, sig), true
		}
	}
	return "", false
}
