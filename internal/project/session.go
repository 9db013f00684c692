package project

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
)

// SessionState is the state.json document tracking one project session.
type SessionState struct {
	SessionID            string   `json:"session_id"`
	ProjectID            string   `json:"project_id"`
	Goal                 string   `json:"goal"`
	Status               string   `json:"status"`
	StartedAt            string   `json:"started_at"`
	Mode                 string   `json:"mode"`
	DefaultExecutionMode string   `json:"default_execution_mode"`
	Steps                []any    `json:"steps"`
	CurrentStepIndex     *int     `json:"current_step_index"`
	Log                  []string `json:"log"`
	Repo                 struct {
		URL           string `json:"url"`
		DefaultBranch string `json:"default_branch"`
		SSHRemoteName string `json:"ssh_remote_name"`
	} `json:"repo"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// NewSessionID builds a sortable, human-scoped session identifier.
func NewSessionID(projectID string) string {
	ts := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
	return fmt.Sprintf("%s-%s-%s", projectID, ts, strings.ToLower(ulid.Make().String()[16:]))
}

// InitSessionState creates a fresh running session and writes it to
// state.json in the project directory.
func InitSessionState(fsys afero.Fs, projectID, goal, projectDir, mode string) (*SessionState, error) {
	state := &SessionState{
		SessionID:            NewSessionID(projectID),
		ProjectID:            projectID,
		Goal:                 goal,
		Status:               "running",
		StartedAt:            time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Mode:                 mode,
		DefaultExecutionMode: "pipeline",
		Steps:                []any{},
		Log:                  []string{},
	}
	if err := SaveSessionState(fsys, projectDir, state); err != nil {
		return nil, err
	}
	return state, nil
}

// LoadSessionState reads state.json from the project directory.
func LoadSessionState(fsys afero.Fs, projectDir string) (*SessionState, error) {
	path := filepath.Join(projectDir, "state.json")
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read session state %s: %w", path, err)
	}
	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse session state %s: %w", path, err)
	}
	return &state, nil
}

// SaveSessionState writes state.json back to the project directory.
func SaveSessionState(fsys afero.Fs, projectDir string, state *SessionState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	path := filepath.Join(projectDir, "state.json")
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("write session state %s: %w", path, err)
	}
	return nil
}
