package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AnthropicGateway implements Gateway against the Anthropic messages API.
type AnthropicGateway struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	model      string
}

// NewAnthropicGateway creates a gateway using the given API key and default
// model.
func NewAnthropicGateway(apiKey, model string, timeout time.Duration) *AnthropicGateway {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &AnthropicGateway{
		apiKey:     apiKey,
		apiURL:     "https://api.anthropic.com/v1/messages",
		httpClient: &http.Client{Timeout: timeout},
		model:      model,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Execute runs one messages-API call.
func (g *AnthropicGateway) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = g.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	apiReq := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
	}

	resp, err := g.call(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	var outputText string
	if len(resp.Content) > 0 {
		outputText = resp.Content[0].Text
	}

	return &Response{
		Output:     outputText,
		Duration:   time.Since(start),
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		AgentType:  "claude-api",
	}, nil
}

// HealthCheck sends a minimal ping request.
func (g *AnthropicGateway) HealthCheck(ctx context.Context) error {
	_, err := g.call(ctx, anthropicRequest{
		Model:     g.model,
		MaxTokens: 10,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
	})
	return err
}

func (g *AnthropicGateway) call(ctx context.Context, req anthropicRequest) (*anthropicResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if apiResp.Error != nil {
			msg = apiResp.Error.Message
		}
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, msg)
	}

	return &apiResp, nil
}
