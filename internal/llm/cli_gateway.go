package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLIGateway implements Gateway by shelling out to the Claude Code CLI:
// `claude -p --output-format json "<prompt>"`.
type CLIGateway struct {
	bin     string
	timeout time.Duration
}

// NewCLIGateway creates a CLI-backed gateway.
func NewCLIGateway(bin string, timeout time.Duration) *CLIGateway {
	if bin == "" {
		bin = "claude"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &CLIGateway{bin: bin, timeout: timeout}
}

// cliResponse represents the JSON envelope the CLI prints.
type cliResponse struct {
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	IsError    bool    `json:"is_error"`
	DurationMs int     `json:"duration_ms"`
	Result     string  `json:"result"`
	SessionID  string  `json:"session_id"`
	TotalCost  float64 `json:"total_cost_usd"`
}

// Execute runs the CLI once. The system instruction is prepended to the
// prompt; the CLI has no separate system channel.
func (g *CLIGateway) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, g.bin, "-p", "--output-format", "json", prompt)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("agent CLI execution failed: %w (output: %s)", err, string(out))
	}

	result := string(out)
	var envelope cliResponse
	if err := json.Unmarshal(out, &envelope); err == nil {
		if envelope.IsError {
			return nil, fmt.Errorf("agent CLI returned error: %s", envelope.Result)
		}
		result = envelope.Result
	}
	// Raw output passes through when the envelope doesn't parse, for older
	// CLI versions.

	return &Response{
		Output:    strings.TrimSpace(result),
		Duration:  time.Since(start),
		AgentType: "claude-cli",
	}, nil
}

// HealthCheck verifies the CLI binary is present.
func (g *CLIGateway) HealthCheck(ctx context.Context) error {
	if _, err := exec.LookPath(g.bin); err != nil {
		return fmt.Errorf("agent binary %q not found: %w", g.bin, err)
	}
	return nil
}
