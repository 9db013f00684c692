// Package project manages the per-project workspace: the project.yaml
// spec, session state, run numbering, and first-time initialization.
package project

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/rdmlabs/rdm-engine/internal/app"
)

// RepoRef points a project at its remote repository.
type RepoRef struct {
	URL           string `yaml:"url"`
	DefaultBranch string `yaml:"default_branch"`
	SSHRemoteName string `yaml:"ssh_remote_name"`
}

// AgentRoles assigns optional per-role agent identifiers.
type AgentRoles struct {
	PlannerID string `yaml:"planner_id"`
	WorkerID  string `yaml:"worker_id"`
	QAID      string `yaml:"qa_id"`
	AnalystID string `yaml:"analyst_id"`
}

// Metadata carries bookkeeping fields of a spec.
type Metadata struct {
	CreatedAt string   `yaml:"created_at"`
	Tags      []string `yaml:"tags"`
}

// Spec is the project.yaml document.
type Spec struct {
	ProjectID            string         `yaml:"project_id"`
	Name                 string         `yaml:"name"`
	Goal                 string         `yaml:"goal"`
	Description          string         `yaml:"description"`
	Repo                 RepoRef        `yaml:"repo"`
	DefaultExecutionMode string         `yaml:"default_execution_mode"`
	Agents               AgentRoles     `yaml:"rdm_agents"`
	Steps                []any          `yaml:"steps"`
	Metadata             Metadata       `yaml:"metadata"`
	Extra                map[string]any `yaml:",inline"`
}

// LoadSpec reads a project.yaml. A missing or unreadable file yields an
// empty spec, not an error; the caller decides whether that matters.
func LoadSpec(fsys afero.Fs, path string) Spec {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		app.GetLogger().Warn("project spec not readable at %s: %v", path, err)
		return Spec{}
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		app.GetLogger().Warn("failed to parse project spec %s: %v", path, err)
		return Spec{}
	}
	return spec
}

// SaveSpec writes a project.yaml.
func SaveSpec(fsys afero.Fs, path string, spec Spec) error {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode project spec: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("write project spec %s: %w", path, err)
	}
	return nil
}

// Summarize renders a one-line description of a spec for logs and prompts.
func (s Spec) Summarize() string {
	name := s.Name
	if name == "" {
		name = "(no name)"
	}
	goal := s.Goal
	if goal == "" {
		goal = s.Description
	}
	if goal == "" {
		goal = "(no goal/description)"
	}

	extraKeys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	extras := "none"
	if len(extraKeys) > 0 {
		extras = strings.Join(extraKeys, ", ")
	}

	return fmt.Sprintf("project name/title: %s; goal/description: %s; extra fields: %s", name, goal, extras)
}

// EnsureSpec makes project.yaml exist and carry the full schema. An
// existing file is enriched non-destructively: present values win, missing
// keys get defaults.
func EnsureSpec(fsys afero.Fs, path, projectID, goal, mode string) (Spec, error) {
	if mode != "simple" {
		mode = "pipeline"
	}

	spec := Spec{
		ProjectID:            projectID,
		Name:                 projectID,
		Goal:                 goal,
		DefaultExecutionMode: mode,
		Steps:                []any{},
		Metadata: Metadata{
			CreatedAt: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
			Tags:      []string{},
		},
	}

	if exists, _ := afero.Exists(fsys, path); exists {
		existing := LoadSpec(fsys, path)
		if existing.ProjectID != "" {
			spec.ProjectID = existing.ProjectID
		}
		if existing.Name != "" {
			spec.Name = existing.Name
		}
		if existing.Goal != "" {
			spec.Goal = existing.Goal
		}
		spec.Description = existing.Description
		spec.Repo = existing.Repo
		spec.Agents = existing.Agents
		if existing.DefaultExecutionMode != "" {
			spec.DefaultExecutionMode = existing.DefaultExecutionMode
		}
		if existing.Steps != nil {
			spec.Steps = existing.Steps
		}
		if existing.Metadata.CreatedAt != "" {
			spec.Metadata = existing.Metadata
		}
		spec.Extra = existing.Extra
	}

	if err := SaveSpec(fsys, path, spec); err != nil {
		return Spec{}, err
	}
	return spec, nil
}
