package project

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/rdmlabs/rdm-engine/internal/app"
)

// Campaign is a multi-project goal document. Only the identifying fields
// are typed; the rest rides along for display.
type Campaign struct {
	Name        string         `yaml:"name"`
	Title       string         `yaml:"title"`
	Goal        string         `yaml:"goal"`
	Description string         `yaml:"description"`
	Extra       map[string]any `yaml:",inline"`
}

// LoadCampaign reads a campaign YAML file. Missing or invalid files yield
// an empty campaign.
func LoadCampaign(fsys afero.Fs, path string) Campaign {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		app.GetLogger().Warn("campaign file not readable at %s: %v", path, err)
		return Campaign{}
	}

	var c Campaign
	if err := yaml.Unmarshal(data, &c); err != nil {
		app.GetLogger().Warn("failed to parse campaign file %s: %v", path, err)
		return Campaign{}
	}
	return c
}

// CampaignContext returns a labeled campaign summary for a project, or the
// empty string when the project has no campaign.yaml. Unlike LoadCampaign it
// stays quiet about absent files, since most projects do not belong to one.
func CampaignContext(fsys afero.Fs, projectDir string) string {
	path := filepath.Join(projectDir, "campaign.yaml")
	if _, err := fsys.Stat(path); err != nil {
		return ""
	}
	return "Campaign: " + LoadCampaign(fsys, path).Summarize()
}

// Summarize renders a one-line description of a campaign.
func (c Campaign) Summarize() string {
	name := c.Name
	if name == "" {
		name = c.Title
	}
	if name == "" {
		name = "(no name)"
	}
	goal := c.Goal
	if goal == "" {
		goal = c.Description
	}
	if goal == "" {
		goal = "(no goal/description)"
	}

	extraKeys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	extras := "none"
	if len(extraKeys) > 0 {
		extras = strings.Join(extraKeys, ", ")
	}

	return fmt.Sprintf("campaign name/title: %s; goal/description: %s; extra fields: %s", name, goal, extras)
}
