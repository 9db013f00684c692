package config

import "time"

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (JSON, ENV, defaults)
// and ensures the app layer doesn't depend on infrastructure details.
type Config interface {
	// Core settings
	Home() string         // Base directory for engine state (RDM_HOME)
	ProjectsDir() string  // Directory holding project workspaces (RDM_PROJECTS_DIR)
	AgentType() string    // Agent gateway type: claude-api, claude-cli, mock (RDM_AGENT)
	AgentBin() string     // Agent binary path for CLI gateway (RDM_AGENT_BIN)
	Model() string        // Model identifier for API gateway (RDM_MODEL)
	CheapModel() string   // Cheap model for task classification (RDM_CHEAP_MODEL)
	AgentTimeout() time.Duration

	// Worker execution
	CommandTimeout() time.Duration // Shell command timeout (RDM_COMMAND_TIMEOUT_SEC)
	MaxWorkerTurns() int           // Iteration bound for the worker loop
	MaxRepairAttempts() int        // Repair bound for the orchestrator
	TranscriptBudget() int         // Max transcript characters sent to the model

	// Merge gate
	MergeAllowlistEnabled() bool
	MergeAllowlist() []string
	MergeHardStopPaths() []string
	MergeHardStopPatterns() []string
	MergeMaxFiles() int
	MergeMaxAdditions() int
	MergeMaxDeletions() int

	// GitHub publishing
	GitHubToken() string
	GitHubOwner() string
	AutoCreateRemote() bool // Create and push a remote repo at project init
	AutoMerge() bool        // Merge eligible step PRs automatically

	// Artifact archive (optional)
	ArchiveBucket() string
	ArchivePrefix() string
	ArchiveRegion() string

	// Metadata
	ConfigSource() string // Source of configuration: "json", "env", or "default"
	SettingPath() string  // Path to setting.json if loaded from file
}

// Values holds every configurable knob. The infrastructure loader fills it
// from setting.json, RDM_* environment variables and defaults.
type Values struct {
	Home        string
	ProjectsDir string
	AgentType   string
	AgentBin    string
	Model       string
	CheapModel  string

	AgentTimeoutSec   int
	CommandTimeoutSec int
	MaxWorkerTurns    int
	MaxRepairAttempts int
	TranscriptBudget  int

	MergeAllowlistEnabled bool
	MergeAllowlist        []string
	MergeHardStopPaths    []string
	MergeHardStopPatterns []string
	MergeMaxFiles         int
	MergeMaxAdditions     int
	MergeMaxDeletions     int

	GitHubToken      string
	GitHubOwner      string
	AutoCreateRemote bool
	AutoMerge        bool

	ArchiveBucket string
	ArchivePrefix string
	ArchiveRegion string

	ConfigSource string
	SettingPath  string
}

// AppConfig is the concrete implementation of Config interface.
type AppConfig struct {
	v Values
}

// NewAppConfig creates a new AppConfig with the given values.
func NewAppConfig(v Values) *AppConfig {
	return &AppConfig{v: v}
}

func (c *AppConfig) Home() string        { return c.v.Home }
func (c *AppConfig) ProjectsDir() string { return c.v.ProjectsDir }
func (c *AppConfig) AgentType() string   { return c.v.AgentType }
func (c *AppConfig) AgentBin() string    { return c.v.AgentBin }
func (c *AppConfig) Model() string       { return c.v.Model }
func (c *AppConfig) CheapModel() string  { return c.v.CheapModel }

func (c *AppConfig) AgentTimeout() time.Duration {
	return time.Duration(c.v.AgentTimeoutSec) * time.Second
}

func (c *AppConfig) CommandTimeout() time.Duration {
	return time.Duration(c.v.CommandTimeoutSec) * time.Second
}

func (c *AppConfig) MaxWorkerTurns() int    { return c.v.MaxWorkerTurns }
func (c *AppConfig) MaxRepairAttempts() int { return c.v.MaxRepairAttempts }
func (c *AppConfig) TranscriptBudget() int  { return c.v.TranscriptBudget }

func (c *AppConfig) MergeAllowlistEnabled() bool     { return c.v.MergeAllowlistEnabled }
func (c *AppConfig) MergeAllowlist() []string        { return c.v.MergeAllowlist }
func (c *AppConfig) MergeHardStopPaths() []string    { return c.v.MergeHardStopPaths }
func (c *AppConfig) MergeHardStopPatterns() []string { return c.v.MergeHardStopPatterns }
func (c *AppConfig) MergeMaxFiles() int              { return c.v.MergeMaxFiles }
func (c *AppConfig) MergeMaxAdditions() int          { return c.v.MergeMaxAdditions }
func (c *AppConfig) MergeMaxDeletions() int          { return c.v.MergeMaxDeletions }

func (c *AppConfig) GitHubToken() string    { return c.v.GitHubToken }
func (c *AppConfig) GitHubOwner() string    { return c.v.GitHubOwner }
func (c *AppConfig) AutoCreateRemote() bool { return c.v.AutoCreateRemote }
func (c *AppConfig) AutoMerge() bool        { return c.v.AutoMerge }

func (c *AppConfig) ArchiveBucket() string { return c.v.ArchiveBucket }
func (c *AppConfig) ArchivePrefix() string { return c.v.ArchivePrefix }
func (c *AppConfig) ArchiveRegion() string { return c.v.ArchiveRegion }

func (c *AppConfig) ConfigSource() string { return c.v.ConfigSource }
func (c *AppConfig) SettingPath() string  { return c.v.SettingPath }
