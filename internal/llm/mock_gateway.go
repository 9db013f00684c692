package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGateway is a scripted Gateway for tests: it replays a fixed sequence
// of responses and records every request it saw.
type MockGateway struct {
	mu        sync.Mutex
	responses []string
	index     int
	Requests  []Request
}

// NewMockGateway creates a mock replaying the given responses in order.
func NewMockGateway(responses ...string) *MockGateway {
	return &MockGateway{responses: responses}
}

// Execute returns the next scripted response.
func (g *MockGateway) Execute(ctx context.Context, req Request) (*Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Requests = append(g.Requests, req)
	if g.index >= len(g.responses) {
		return nil, fmt.Errorf("mock gateway exhausted after %d responses", len(g.responses))
	}

	out := g.responses[g.index]
	g.index++
	return &Response{
		Output:    out,
		Duration:  time.Millisecond,
		AgentType: "mock",
	}, nil
}

// HealthCheck always succeeds for the mock.
func (g *MockGateway) HealthCheck(ctx context.Context) error { return nil }

// Calls returns how many requests the mock served.
func (g *MockGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}
