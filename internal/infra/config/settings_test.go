package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// every env var LoadSettings consults; cleared before each case
var rdmEnvVars = []string{
	"RDM_HOME", "RDM_PROJECTS_DIR", "RDM_AGENT", "RDM_AGENT_BIN",
	"RDM_MODEL", "RDM_CHEAP_MODEL",
	"RDM_AGENT_TIMEOUT_SEC", "RDM_COMMAND_TIMEOUT_SEC",
	"RDM_MAX_WORKER_TURNS", "RDM_MAX_REPAIR_ATTEMPTS", "RDM_TRANSCRIPT_BUDGET",
	"RDM_MERGE_ALLOWLIST_ENABLED", "RDM_MERGE_ALLOWLIST",
	"RDM_MERGE_HARD_STOP_PATHS", "RDM_MERGE_HARD_STOP_PATTERNS",
	"RDM_MERGE_MAX_FILES", "RDM_MERGE_MAX_ADD_LINES", "RDM_MERGE_MAX_DELETE_LINES",
	"RDM_GITHUB_OWNER", "RDM_GITHUB_TOKEN", "GITHUB_TOKEN", "GITHUB_OWNER",
	"RDM_AUTO_CREATE_REMOTE", "RDM_AUTO_MERGE",
	"RDM_ARCHIVE_BUCKET", "RDM_ARCHIVE_PREFIX", "RDM_ARCHIVE_REGION",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range rdmEnvVars {
		os.Unsetenv(env)
	}
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name       string
		setupFunc  func(t *testing.T, tmpDir string)
		envVars    map[string]string
		wantAgent  string
		wantTurns  int
		wantSource string
	}{
		{
			name:       "Default values only",
			setupFunc:  nil,
			envVars:    nil,
			wantAgent:  "claude",
			wantTurns:  30,
			wantSource: "default",
		},
		{
			name:      "Environment variables only",
			setupFunc: nil,
			envVars: map[string]string{
				"RDM_AGENT_BIN":        "custom-agent",
				"RDM_MAX_WORKER_TURNS": "12",
			},
			wantAgent:  "custom-agent",
			wantTurns:  12,
			wantSource: "env",
		},
		{
			name: "JSON file only",
			setupFunc: func(t *testing.T, tmpDir string) {
				settings := map[string]interface{}{
					"agent_bin":        "json-agent",
					"max_worker_turns": 8,
				}
				data, err := json.MarshalIndent(settings, "", "  ")
				if err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(filepath.Join(tmpDir, "setting.json"), data, 0644); err != nil {
					t.Fatal(err)
				}
			},
			envVars:    nil,
			wantAgent:  "json-agent",
			wantTurns:  8,
			wantSource: "json",
		},
		{
			name: "JSON wins over ENV",
			setupFunc: func(t *testing.T, tmpDir string) {
				settings := map[string]interface{}{
					"agent_bin": "json-agent",
				}
				data, err := json.MarshalIndent(settings, "", "  ")
				if err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(filepath.Join(tmpDir, "setting.json"), data, 0644); err != nil {
					t.Fatal(err)
				}
			},
			envVars: map[string]string{
				"RDM_AGENT_BIN":        "env-agent",
				"RDM_MAX_WORKER_TURNS": "12",
			},
			wantAgent:  "json-agent", // setting.json outranks ENV
			wantTurns:  12,           // ENV fills fields the file left unset
			wantSource: "json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			clearEnv(t)

			if tt.setupFunc != nil {
				tt.setupFunc(t, tmpDir)
			}
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			cfg, err := LoadSettings(tmpDir)
			if err != nil {
				t.Fatalf("LoadSettings() error = %v", err)
			}

			if got := cfg.AgentBin(); got != tt.wantAgent {
				t.Errorf("AgentBin() = %v, want %v", got, tt.wantAgent)
			}
			if got := cfg.MaxWorkerTurns(); got != tt.wantTurns {
				t.Errorf("MaxWorkerTurns() = %v, want %v", got, tt.wantTurns)
			}
			if got := cfg.ConfigSource(); got != tt.wantSource {
				t.Errorf("ConfigSource() = %v, want %v", got, tt.wantSource)
			}
		})
	}
}

func TestLoadSettingsTokenEnvOnly(t *testing.T) {
	tmpDir := t.TempDir()
	clearEnv(t)

	// the token is never read from setting.json
	settings := map[string]interface{}{
		"github_token": "file-token",
	}
	data, _ := json.Marshal(settings)
	if err := os.WriteFile(filepath.Join(tmpDir, "setting.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadSettings(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.GitHubToken(); got != "" {
		t.Errorf("GitHubToken() = %q, want empty when only the file carries it", got)
	}

	os.Setenv("RDM_GITHUB_TOKEN", "env-token")
	defer os.Unsetenv("RDM_GITHUB_TOKEN")

	cfg, err = LoadSettings(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.GitHubToken(); got != "env-token" {
		t.Errorf("GitHubToken() = %q, want env-token", got)
	}
}

func TestLoadSettingsMergeDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	clearEnv(t)

	cfg, err := LoadSettings(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	if got := cfg.MergeMaxFiles(); got != 25 {
		t.Errorf("MergeMaxFiles() = %d, want 25", got)
	}
	if got := cfg.MergeMaxAdditions(); got != 500 {
		t.Errorf("MergeMaxAdditions() = %d, want 500", got)
	}
	if got := cfg.MergeMaxDeletions(); got != 500 {
		t.Errorf("MergeMaxDeletions() = %d, want 500", got)
	}
	if !cfg.MergeAllowlistEnabled() {
		t.Error("MergeAllowlistEnabled() should default to true")
	}
}

func TestLoadSettingsEmptyEnvListIsSetNotNil(t *testing.T) {
	tmpDir := t.TempDir()
	clearEnv(t)

	// unset lists stay nil so the gate can apply its defaults
	cfg, err := LoadSettings(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MergeAllowlist() != nil {
		t.Errorf("MergeAllowlist() = %v, want nil when unset", cfg.MergeAllowlist())
	}
	if cfg.MergeHardStopPaths() != nil {
		t.Errorf("MergeHardStopPaths() = %v, want nil when unset", cfg.MergeHardStopPaths())
	}

	// an explicitly empty variable is a set-but-empty list
	os.Setenv("RDM_MERGE_ALLOWLIST", "")
	os.Setenv("RDM_MERGE_HARD_STOP_PATHS", "")
	defer os.Unsetenv("RDM_MERGE_ALLOWLIST")
	defer os.Unsetenv("RDM_MERGE_HARD_STOP_PATHS")

	cfg, err = LoadSettings(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.MergeAllowlist(); got == nil || len(got) != 0 {
		t.Errorf("MergeAllowlist() = %v, want empty non-nil list", got)
	}
	if got := cfg.MergeHardStopPaths(); got == nil || len(got) != 0 {
		t.Errorf("MergeHardStopPaths() = %v, want empty non-nil list", got)
	}
}

func TestLoadSettingsBadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	clearEnv(t)

	if err := os.WriteFile(filepath.Join(tmpDir, "setting.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(tmpDir); err == nil {
		t.Fatal("LoadSettings() should fail on malformed setting.json")
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"off", false},
		{"", false},
		{"invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseBool(tt.input); got != tt.want {
				t.Errorf("parseBool(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a , b ,,c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitList returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if out := splitList("  "); len(out) != 0 {
		t.Errorf("splitList on blank input = %v, want empty", out)
	}
}
