package project

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// NextRunNumber increments and persists the project's run counter, stored
// in <projectDir>/.rdm/state.json. A missing or corrupt counter restarts
// at 1 rather than failing the run.
func NextRunNumber(fsys afero.Fs, projectDir string) (int, error) {
	stateDir := filepath.Join(projectDir, ".rdm")
	if err := fsys.MkdirAll(stateDir, 0o755); err != nil {
		return 0, fmt.Errorf("create run state dir: %w", err)
	}
	statePath := filepath.Join(stateDir, "state.json")

	state := map[string]any{}
	if data, err := afero.ReadFile(fsys, statePath); err == nil {
		if err := json.Unmarshal(data, &state); err != nil {
			state = map[string]any{}
		}
	}

	previous := 0
	if raw, ok := state["run_number"]; ok {
		// JSON numbers decode as float64.
		if f, ok := raw.(float64); ok && f > 0 {
			previous = int(f)
		}
	}

	runNumber := previous + 1
	state["run_number"] = runNumber

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode run state: %w", err)
	}
	if err := afero.WriteFile(fsys, statePath, data, 0o644); err != nil {
		return 0, fmt.Errorf("write run state: %w", err)
	}
	return runNumber, nil
}
