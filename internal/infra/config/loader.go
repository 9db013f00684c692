package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rdmlabs/rdm-engine/internal/app/config"
)

// RawSettings represents the structure of setting.json.
// Pointer fields distinguish "absent" from zero values so that environment
// variables and defaults can fill the gaps.
type RawSettings struct {
	Home        *string `json:"home"`
	ProjectsDir *string `json:"projects_dir"`
	AgentType   *string `json:"agent_type"`
	AgentBin    *string `json:"agent_bin"`
	Model       *string `json:"model"`
	CheapModel  *string `json:"cheap_model"`

	AgentTimeoutSec   *int `json:"agent_timeout_sec"`
	CommandTimeoutSec *int `json:"command_timeout_sec"`
	MaxWorkerTurns    *int `json:"max_worker_turns"`
	MaxRepairAttempts *int `json:"max_repair_attempts"`
	TranscriptBudget  *int `json:"transcript_budget"`

	MergeAllowlistEnabled *bool    `json:"merge_allowlist_enabled"`
	MergeAllowlist        []string `json:"merge_allowlist"`
	MergeHardStopPaths    []string `json:"merge_hard_stop_paths"`
	MergeHardStopPatterns []string `json:"merge_hard_stop_patterns"`
	MergeMaxFiles         *int     `json:"merge_max_files"`
	MergeMaxAdditions     *int     `json:"merge_max_add_lines"`
	MergeMaxDeletions     *int     `json:"merge_max_delete_lines"`

	GitHubOwner      *string `json:"github_owner"`
	AutoCreateRemote *bool   `json:"auto_create_remote"`
	AutoMerge        *bool   `json:"auto_merge"`

	ArchiveBucket *string `json:"archive_bucket"`
	ArchivePrefix *string `json:"archive_prefix"`
	ArchiveRegion *string `json:"archive_region"`
}

// LoadSettings loads configuration for the engine.
// Priority: setting.json > RDM_* environment variables > defaults.
// The GitHub token is intentionally env-only (RDM_GITHUB_TOKEN or
// GITHUB_TOKEN); it never lives in setting.json.
func LoadSettings(baseDir string) (*config.AppConfig, error) {
	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	jsonPath := filepath.Join(baseDir, "setting.json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
		}
		configSource = "json"
		settingPath = jsonPath
	}

	if applyEnvOverrides(settings) && configSource == "default" {
		configSource = "env"
	}

	v := buildValues(settings, baseDir)
	v.ConfigSource = configSource
	v.SettingPath = settingPath
	return config.NewAppConfig(v), nil
}

// applyEnvOverrides fills fields that setting.json left unset from RDM_*
// environment variables. Reports whether any variable was consulted.
func applyEnvOverrides(s *RawSettings) bool {
	touched := false

	setStr := func(dst **string, key string) {
		if *dst != nil {
			return
		}
		if v := os.Getenv(key); v != "" {
			*dst = &v
			touched = true
		}
	}
	setInt := func(dst **int, key string) {
		if *dst != nil {
			return
		}
		if raw := os.Getenv(key); raw != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				*dst = &n
				touched = true
			}
		}
	}
	setBool := func(dst **bool, key string) {
		if *dst != nil {
			return
		}
		if raw, ok := os.LookupEnv(key); ok {
			b := parseBool(raw)
			*dst = &b
			touched = true
		}
	}
	setList := func(dst *[]string, key string) {
		if *dst != nil {
			return
		}
		if raw, ok := os.LookupEnv(key); ok {
			*dst = splitList(raw)
			touched = true
		}
	}

	setStr(&s.Home, "RDM_HOME")
	setStr(&s.ProjectsDir, "RDM_PROJECTS_DIR")
	setStr(&s.AgentType, "RDM_AGENT")
	setStr(&s.AgentBin, "RDM_AGENT_BIN")
	setStr(&s.Model, "RDM_MODEL")
	setStr(&s.CheapModel, "RDM_CHEAP_MODEL")

	setInt(&s.AgentTimeoutSec, "RDM_AGENT_TIMEOUT_SEC")
	setInt(&s.CommandTimeoutSec, "RDM_COMMAND_TIMEOUT_SEC")
	setInt(&s.MaxWorkerTurns, "RDM_MAX_WORKER_TURNS")
	setInt(&s.MaxRepairAttempts, "RDM_MAX_REPAIR_ATTEMPTS")
	setInt(&s.TranscriptBudget, "RDM_TRANSCRIPT_BUDGET")

	setBool(&s.MergeAllowlistEnabled, "RDM_MERGE_ALLOWLIST_ENABLED")
	setList(&s.MergeAllowlist, "RDM_MERGE_ALLOWLIST")
	setList(&s.MergeHardStopPaths, "RDM_MERGE_HARD_STOP_PATHS")
	setList(&s.MergeHardStopPatterns, "RDM_MERGE_HARD_STOP_PATTERNS")
	setInt(&s.MergeMaxFiles, "RDM_MERGE_MAX_FILES")
	setInt(&s.MergeMaxAdditions, "RDM_MERGE_MAX_ADD_LINES")
	setInt(&s.MergeMaxDeletions, "RDM_MERGE_MAX_DELETE_LINES")

	setStr(&s.GitHubOwner, "RDM_GITHUB_OWNER")
	setBool(&s.AutoCreateRemote, "RDM_AUTO_CREATE_REMOTE")
	setBool(&s.AutoMerge, "RDM_AUTO_MERGE")

	setStr(&s.ArchiveBucket, "RDM_ARCHIVE_BUCKET")
	setStr(&s.ArchivePrefix, "RDM_ARCHIVE_PREFIX")
	setStr(&s.ArchiveRegion, "RDM_ARCHIVE_REGION")

	return touched
}

func buildValues(s *RawSettings, baseDir string) config.Values {
	v := config.Values{
		Home:              strOr(s.Home, baseDir),
		ProjectsDir:       strOr(s.ProjectsDir, "projects"),
		AgentType:         strOr(s.AgentType, "claude-cli"),
		AgentBin:          strOr(s.AgentBin, "claude"),
		Model:             strOr(s.Model, "claude-3-5-sonnet-20241022"),
		CheapModel:        strOr(s.CheapModel, "claude-3-5-haiku-20241022"),
		AgentTimeoutSec:   intOr(s.AgentTimeoutSec, 300),
		CommandTimeoutSec: intOr(s.CommandTimeoutSec, 120),
		MaxWorkerTurns:    intOr(s.MaxWorkerTurns, 30),
		MaxRepairAttempts: intOr(s.MaxRepairAttempts, 2),
		TranscriptBudget:  intOr(s.TranscriptBudget, 12000),

		MergeAllowlistEnabled: boolOr(s.MergeAllowlistEnabled, true),
		MergeMaxFiles:         intOr(s.MergeMaxFiles, 25),
		MergeMaxAdditions:     intOr(s.MergeMaxAdditions, 500),
		MergeMaxDeletions:     intOr(s.MergeMaxDeletions, 500),

		GitHubOwner:      strOr(s.GitHubOwner, os.Getenv("GITHUB_OWNER")),
		AutoCreateRemote: boolOr(s.AutoCreateRemote, false),
		AutoMerge:        boolOr(s.AutoMerge, false),

		ArchiveBucket: strOr(s.ArchiveBucket, ""),
		ArchivePrefix: strOr(s.ArchivePrefix, ""),
		ArchiveRegion: strOr(s.ArchiveRegion, ""),
	}

	v.MergeAllowlist = s.MergeAllowlist
	v.MergeHardStopPaths = s.MergeHardStopPaths
	v.MergeHardStopPatterns = s.MergeHardStopPatterns

	v.GitHubToken = os.Getenv("RDM_GITHUB_TOKEN")
	if v.GitHubToken == "" {
		v.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}

	return v
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func strOr(p *string, def string) string {
	if p != nil && *p != "" {
		return *p
	}
	return def
}

func intOr(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

func boolOr(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}
