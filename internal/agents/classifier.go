package agents

import (
	"context"
	"strings"

	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/llm"
)

const classifierSystemPrompt = `Classify the requested software task into one of: simple, medium, complex.
Return exactly one word: simple, medium, or complex.
Guidance: simple = single file or small standalone deliverable; medium = multiple files, integrations, or tests; complex = multi-service, deployment, or CI/CD scale.`

// classifierPromptCap bounds the goal excerpt sent to the cheap model.
const classifierPromptCap = 500

var validComplexity = map[string]bool{
	"simple":  true,
	"medium":  true,
	"complex": true,
}

// Classifier buckets a task by complexity using a cheap model and a short
// context to avoid overhead before orchestration.
type Classifier struct {
	gateway llm.Gateway
	model   string
}

// NewClassifier creates a classifier; model should be the cheap model.
func NewClassifier(gateway llm.Gateway, model string) *Classifier {
	return &Classifier{gateway: gateway, model: model}
}

// Classify returns "simple", "medium" or "complex"; any failure or
// unexpected label falls back to "medium".
func (c *Classifier) Classify(ctx context.Context, goal string) string {
	truncated := goal
	if len(truncated) > classifierPromptCap {
		truncated = truncated[:classifierPromptCap]
	}

	resp, err := c.gateway.Execute(ctx, llm.Request{
		System:    classifierSystemPrompt,
		Prompt:    truncated,
		Model:     c.model,
		MaxTokens: 4,
	})
	if err != nil {
		app.GetLogger().Warn("task classification failed (%v); defaulting to 'medium'", err)
		return "medium"
	}

	label := strings.ToLower(strings.Trim(strings.TrimSpace(resp.Output), "\"'` "))
	if !validComplexity[label] {
		app.GetLogger().Warn("unexpected classification %q, defaulting to 'medium'", label)
		return "medium"
	}
	return label
}
