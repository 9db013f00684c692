package llm

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdmlabs/rdm-engine/internal/app/config"
)

func TestMockGatewayReplaysInOrder(t *testing.T) {
	gw := NewMockGateway("first", "second")

	resp, err := gw.Execute(context.Background(), Request{Prompt: "a"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Output)

	resp, err = gw.Execute(context.Background(), Request{Prompt: "b"})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Output)

	_, err = gw.Execute(context.Background(), Request{Prompt: "c"})
	require.Error(t, err, "exhausted mock must fail")

	assert.Equal(t, 3, gw.Calls())
	assert.Equal(t, "a", gw.Requests[0].Prompt)
}

func TestNewGatewayMock(t *testing.T) {
	cfg := config.NewAppConfig(config.Values{AgentType: "mock"})
	gw, err := NewGateway(cfg)
	require.NoError(t, err)
	assert.IsType(t, &MockGateway{}, gw)
	assert.NoError(t, gw.HealthCheck(context.Background()))
}

func TestNewGatewayCLI(t *testing.T) {
	cfg := config.NewAppConfig(config.Values{AgentType: "claude-cli", AgentBin: "my-agent"})
	gw, err := NewGateway(cfg)
	require.NoError(t, err)
	assert.IsType(t, &CLIGateway{}, gw)
}

func TestNewGatewayAPIRequiresKey(t *testing.T) {
	old, had := os.LookupEnv("ANTHROPIC_API_KEY")
	os.Unsetenv("ANTHROPIC_API_KEY")
	defer func() {
		if had {
			os.Setenv("ANTHROPIC_API_KEY", old)
		}
	}()

	cfg := config.NewAppConfig(config.Values{AgentType: "claude-api"})
	_, err := NewGateway(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	os.Setenv("ANTHROPIC_API_KEY", "test-key")
	gw, err := NewGateway(cfg)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicGateway{}, gw)
}

func TestNewGatewayUnknownType(t *testing.T) {
	cfg := config.NewAppConfig(config.Values{AgentType: "gpt-telepathy"})
	_, err := NewGateway(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent type")
}

func TestCLIGatewayDefaults(t *testing.T) {
	gw := NewCLIGateway("", 0)
	assert.Equal(t, "claude", gw.bin)
	assert.Equal(t, 5*time.Minute, gw.timeout)
}

func TestCLIGatewayHealthCheckMissingBinary(t *testing.T) {
	gw := NewCLIGateway("definitely-not-a-real-binary-9f2c", time.Second)
	assert.Error(t, gw.HealthCheck(context.Background()))
}
