package llm

import (
	"fmt"
	"os"

	"github.com/rdmlabs/rdm-engine/internal/app/config"
)

// NewGateway creates a model gateway based on the configured agent type.
// Supported types: claude-api, claude-cli, mock.
// The user is responsible for the backend being available (API key set,
// CLI installed).
func NewGateway(cfg config.Config) (Gateway, error) {
	switch cfg.AgentType() {
	case "claude-api":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set for claude-api")
		}
		return NewAnthropicGateway(apiKey, cfg.Model(), cfg.AgentTimeout()), nil

	case "claude-cli":
		return NewCLIGateway(cfg.AgentBin(), cfg.AgentTimeout()), nil

	case "mock":
		return NewMockGateway(), nil

	default:
		return nil, fmt.Errorf("unknown agent type: %s (supported: claude-api, claude-cli, mock)", cfg.AgentType())
	}
}
