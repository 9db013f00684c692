// Package agents implements the planner, reviewer and classifier roles on
// top of the model gateway.
package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/domain/plan"
	"github.com/rdmlabs/rdm-engine/internal/llm"
)

const plannerSystemPrompt = `You are the CTO / Planner agent.

Your job is to take a high-level business or engineering goal and break it down
into an ordered set of technical steps that a Worker agent can execute.

You NEVER write code or shell commands. You only produce STRUCTURED JSON
describing the plan.

The output JSON MUST have this format:

{
  "goal": "<restated high-level goal>",
  "steps": [
    { "id": 1, "description": "<detailed step>" },
    { "id": 2, "description": "<detailed step>" }
  ]
}

Rules:
- Steps must be specific enough for an executor agent to run without ambiguity.
- You do NOT decide secrets or API keys. If a Worker needs a secret, note it in
  the description, but do NOT ask for one.
- You do NOT perform any actions yourself.
- You do NOT reason about tools. You only plan.
- You do NOT output code, bash commands, or file content.
- Always restate the goal clearly in the "goal" field.`

// Planner asks the model for a structured plan.
type Planner struct {
	gateway llm.Gateway
	model   string
}

// NewPlanner creates a planner over the given gateway. model may be empty
// to use the gateway default.
func NewPlanner(gateway llm.Gateway, model string) *Planner {
	return &Planner{gateway: gateway, model: model}
}

// Plan requests a plan for the goal, optionally prefixed with memory
// context from earlier projects. An unparsable reply or a zero-step plan
// is fatal to the run; the caller decides that.
func (p *Planner) Plan(ctx context.Context, goal, memoryContext string) (plan.Plan, error) {
	prompt := goal
	if memoryContext != "" {
		prompt = memoryContext + "\n\n" + goal
	}

	app.GetLogger().Debug("planner request:\n%s", prompt)

	resp, err := p.gateway.Execute(ctx, llm.Request{
		System:      plannerSystemPrompt,
		Prompt:      prompt,
		Model:       p.model,
		Temperature: 0.2,
	})
	if err != nil {
		return plan.Plan{}, fmt.Errorf("planner call failed: %w", err)
	}

	app.GetLogger().Debug("planner raw response:\n%s", resp.Output)

	var parsed plan.Plan
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Output)), &parsed); err != nil {
		return plan.Plan{}, fmt.Errorf("invalid planner JSON: %w", err)
	}
	return parsed, nil
}
