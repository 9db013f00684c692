package worker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rdmlabs/rdm-engine/internal/secret"
)

// ActionKind enumerates the worker's per-turn action variants. Exactly one
// case is active per turn.
type ActionKind int

const (
	// ActionExecute runs a shell command.
	ActionExecute ActionKind = iota
	// ActionAskSecret requests a human-supplied secret.
	ActionAskSecret
	// ActionPauseHuman escalates to a human and stops the loop.
	ActionPauseHuman
	// ActionFinish ends the loop without running anything.
	ActionFinish
)

// Action is the tagged variant resolved from the model's per-turn reply.
// Secret requests and human pauses take priority over command dispatch.
type Action struct {
	Kind     ActionKind
	Command  string
	Done     bool
	Thoughts string
	Secret   secret.Request
	Reason   string
}

// rawAction mirrors the loosely-typed JSON the model emits:
// {command, done, thoughts, ask_human?, needs_human?}.
type rawAction struct {
	Command    string          `json:"command"`
	Done       bool            `json:"done"`
	Thoughts   string          `json:"thoughts"`
	AskHuman   *rawAskHuman    `json:"ask_human"`
	NeedsHuman json.RawMessage `json:"needs_human"`
}

type rawAskHuman struct {
	Question string `json:"question"`
	KeyName  string `json:"key_name"`
	Storage  string `json:"storage"`
}

// ParseAction decodes one model reply into an Action. The priority order
// is fixed: secret request, then human pause, then finish/execute.
func ParseAction(raw string) (Action, error) {
	var ra rawAction
	if err := json.Unmarshal([]byte(raw), &ra); err != nil {
		return Action{}, fmt.Errorf("invalid action JSON: %w", err)
	}

	if ra.AskHuman != nil {
		question := ra.AskHuman.Question
		if question == "" {
			question = "The agent requests a secret value."
		}
		storage := ra.AskHuman.Storage
		if storage == "" {
			storage = "env"
		}
		return Action{
			Kind:     ActionAskSecret,
			Thoughts: ra.Thoughts,
			Secret: secret.Request{
				Question: question,
				KeyName:  ra.AskHuman.KeyName,
				Storage:  storage,
			},
		}, nil
	}

	if reason, ok := parseNeedsHuman(ra.NeedsHuman); ok {
		return Action{Kind: ActionPauseHuman, Thoughts: ra.Thoughts, Reason: reason}, nil
	}

	command := strings.TrimSpace(ra.Command)
	if command == "" {
		// No command and done=false still means the agent has nothing
		// left to do.
		return Action{Kind: ActionFinish, Thoughts: ra.Thoughts, Done: ra.Done}, nil
	}

	return Action{
		Kind:     ActionExecute,
		Command:  command,
		Done:     ra.Done,
		Thoughts: ra.Thoughts,
	}, nil
}

// parseNeedsHuman tolerates the three shapes models actually produce:
// true, "reason text", or {"reason": "..."}.
func parseNeedsHuman(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "agent requested human attention", true
		}
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return "", false
		}
		return s, true
	}

	var obj struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Reason != "" {
		return obj.Reason, true
	}

	return "", false
}
