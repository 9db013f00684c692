package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/domain/review"
	"github.com/rdmlabs/rdm-engine/internal/llm"
)

const reviewerSystemPrompt = `You are the Reviewer agent.

Your job is to REVIEW the work performed by the Planner and Worker agents.

You are GIVEN:
- A high-level goal.
- The Planner's JSON plan (if available).
- A textual summary of what the Worker actually did (commands, outputs, errors).

You MUST output a JSON object with this exact shape:

{
  "overall_assessment": "<short summary sentence of how well the work matched the goal>",
  "issues": [
    {
      "type": "<category, e.g. 'correctness', 'completeness', 'safety', 'style'>",
      "description": "<what is wrong or risky>",
      "severity": "<one of: 'low', 'medium', 'high'>"
    }
  ],
  "suggestions": [
    "<concrete suggestion for what the Worker should do next or fix>"
  ]
}

Rules:
- Do NOT invent details that are not implied by the input.
- If the plan or execution summary is missing or empty, say so clearly.
- If the work looks good, still provide at least one suggestion for improvement or validation.
- Be concise but specific.
- You NEVER output anything except the JSON object described above.`

// reviewPayload is the user message given to the reviewer.
type reviewPayload struct {
	Goal             string `json:"goal"`
	PlannerJSON      string `json:"planner_json"`
	ExecutionSummary string `json:"execution_summary"`
}

// Reviewer asks the model to assess a run.
type Reviewer struct {
	gateway llm.Gateway
	model   string
}

// NewReviewer creates a reviewer over the given gateway.
func NewReviewer(gateway llm.Gateway, model string) *Reviewer {
	return &Reviewer{gateway: gateway, model: model}
}

// Review submits the goal, plans and execution summary and parses the
// verdict. An unparsable verdict is fatal to the run.
func (r *Reviewer) Review(ctx context.Context, goal, plannerJSON, executionSummary string) (review.Verdict, error) {
	payload, err := json.MarshalIndent(reviewPayload{
		Goal:             goal,
		PlannerJSON:      plannerJSON,
		ExecutionSummary: executionSummary,
	}, "", "  ")
	if err != nil {
		return review.Verdict{}, fmt.Errorf("marshal review payload: %w", err)
	}

	app.GetLogger().Debug("reviewer request payload:\n%s", payload)

	resp, err := r.gateway.Execute(ctx, llm.Request{
		System:      reviewerSystemPrompt,
		Prompt:      string(payload),
		Model:       r.model,
		Temperature: 0.2,
	})
	if err != nil {
		return review.Verdict{}, fmt.Errorf("reviewer call failed: %w", err)
	}

	app.GetLogger().Debug("reviewer raw response:\n%s", resp.Output)

	var verdict review.Verdict
	if err := json.Unmarshal([]byte(ExtractJSON(resp.Output)), &verdict); err != nil {
		return review.Verdict{}, fmt.Errorf("invalid reviewer JSON: %w", err)
	}
	return verdict, nil
}
