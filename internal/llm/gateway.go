// Package llm abstracts the model collaborator used by the planner,
// reviewer, classifier and worker roles.
package llm

import (
	"context"
	"time"
)

// Gateway is the interface for model execution. Different backends
// (Anthropic API, Claude CLI, scripted mock) implement it.
type Gateway interface {
	// Execute sends one request and returns the model's text reply.
	Execute(ctx context.Context, req Request) (*Response, error)

	// HealthCheck verifies if the backend is reachable.
	HealthCheck(ctx context.Context) error
}

// Request carries a fixed role instruction plus the user payload.
type Request struct {
	System      string  // Role instruction (planner/reviewer/worker contract)
	Prompt      string  // User payload: goal, transcript, memory context
	Model       string  // Model override; empty uses the gateway default
	MaxTokens   int     // Cap on generated tokens (0 = gateway default)
	Temperature float64 // Sampling temperature
}

// Response is the model's reply. The caller parses Output against the
// role's JSON contract; malformed output is the caller's parse error, not
// a gateway failure.
type Response struct {
	Output     string
	Duration   time.Duration
	TokensUsed int
	AgentType  string
}
