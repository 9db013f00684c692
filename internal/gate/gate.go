// Package gate evaluates merge eligibility for a step's file changes.
// Evaluate is a pure function: the caller gathers the diff facts, the gate
// only classifies them. Callers perform the actual merge.
package gate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rdmlabs/rdm-engine/internal/app/config"
)

// Decision values, in order of severity.
const (
	DecisionAutoMergeOK    = "auto_merge_ok"
	DecisionManualRequired = "manual_required"
	DecisionBlock          = "block"
)

// Config holds one evaluation's policy. Build it fresh per call with
// ConfigFor; never cache it across runs.
type Config struct {
	AllowlistEnabled bool     `json:"allowlist_enabled"`
	Allowlist        []string `json:"allowlist"`
	HardStopPaths    []string `json:"hard_stop_paths"`
	HardStopPatterns []string `json:"hard_stop_patterns"`
	MaxFiles         int      `json:"max_files"`
	MaxAdditions     int      `json:"max_additions"`
	MaxDeletions     int      `json:"max_deletions"`
}

// DefaultHardStopPaths are the credential-shaped files blocked out of the
// box. An explicitly empty configured list (not nil) disables them.
var DefaultHardStopPaths = []string{
	"**/.env", "**/*.pem", "**/*.key", "**/*.p12", "**/*.pfx",
	"**/id_rsa", "**/id_ed25519",
}

// DefaultHardStopPatterns are matched against the diff body.
var DefaultHardStopPatterns = []string{
	`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`,
}

// ConfigFor derives the gate policy for one project from the app settings.
// The <project_id> placeholder in allowlist patterns is expanded here so the
// evaluation itself never needs to know about templating. Nil lists mean
// unset and take the defaults; a configured empty list stays empty.
func ConfigFor(cfg config.Config, projectID string) Config {
	allowlist := cfg.MergeAllowlist()
	if allowlist == nil {
		allowlist = []string{fmt.Sprintf("projects/%s/**", projectID)}
	}

	expanded := make([]string, 0, len(allowlist))
	for _, pat := range allowlist {
		pat = strings.ReplaceAll(pat, "<project_id>", projectID)
		expanded = append(expanded, normalizePath(pat))
	}

	hardStopPaths := cfg.MergeHardStopPaths()
	if hardStopPaths == nil {
		hardStopPaths = DefaultHardStopPaths
	}
	paths := make([]string, 0, len(hardStopPaths))
	for _, pat := range hardStopPaths {
		paths = append(paths, normalizePath(pat))
	}

	patterns := cfg.MergeHardStopPatterns()
	if patterns == nil {
		patterns = DefaultHardStopPatterns
	}

	return Config{
		AllowlistEnabled: cfg.MergeAllowlistEnabled(),
		Allowlist:        expanded,
		HardStopPaths:    paths,
		HardStopPatterns: patterns,
		MaxFiles:         cfg.MergeMaxFiles(),
		MaxAdditions:     cfg.MergeMaxAdditions(),
		MaxDeletions:     cfg.MergeMaxDeletions(),
	}
}

// Change is the candidate diff under evaluation.
type Change struct {
	Paths       []string
	DiffText    string
	Additions   int
	Deletions   int
	BinaryFiles []string
}

// Stats summarizes the evaluated change.
type Stats struct {
	FilesChanged int `json:"files_changed"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
}

// Violations buckets findings by severity. Any block entry outranks every
// manual entry.
type Violations struct {
	Block  []string `json:"block"`
	Manual []string `json:"manual"`
}

// Report is the full evaluation output, including the policy that produced
// it so a saved report is self-describing.
type Report struct {
	Decision   string     `json:"decision"`
	Eligible   bool       `json:"eligible"`
	Reasons    []string   `json:"reasons"`
	Violations Violations `json:"violations"`
	Stats      Stats      `json:"stats"`
	Config     Config     `json:"config"`
}

// Evaluate classifies one candidate change for the given project. It is
// deterministic and side-effect-free.
func Evaluate(cfg Config, projectID string, change Change) Report {
	var v Violations

	paths := make([]string, 0, len(change.Paths))
	for _, p := range change.Paths {
		paths = append(paths, normalizePath(p))
	}

	if cfg.AllowlistEnabled {
		for _, p := range paths {
			if !matchesAny(p, cfg.Allowlist) {
				v.Manual = append(v.Manual, fmt.Sprintf("Path not in allowlist: %s", p))
			}
		}
	}

	for _, p := range paths {
		// Paths may arrive relative to the project subtree, so the
		// hard-stop check also considers the project-scoped form.
		scoped := fmt.Sprintf("projects/%s/%s", projectID, p)
		if matchesAny(p, cfg.HardStopPaths) || matchesAny(scoped, cfg.HardStopPaths) {
			v.Block = append(v.Block, fmt.Sprintf("Hard-stop path matched: %s", p))
		}
	}

	if len(paths) > cfg.MaxFiles {
		v.Manual = append(v.Manual, fmt.Sprintf("File count %d exceeds max %d", len(paths), cfg.MaxFiles))
	}
	if change.Additions > cfg.MaxAdditions {
		v.Manual = append(v.Manual, fmt.Sprintf("Additions %d exceeds max %d", change.Additions, cfg.MaxAdditions))
	}
	if change.Deletions > cfg.MaxDeletions {
		v.Manual = append(v.Manual, fmt.Sprintf("Deletions %d exceeds max %d", change.Deletions, cfg.MaxDeletions))
	}
	for _, p := range change.BinaryFiles {
		v.Manual = append(v.Manual, fmt.Sprintf("Binary file change requires manual review: %s", p))
	}

	for _, pattern := range cfg.HardStopPatterns {
		re, err := regexp.Compile("(?m)" + pattern)
		if err != nil {
			v.Manual = append(v.Manual, fmt.Sprintf("Invalid hard-stop pattern: %s", pattern))
			continue
		}
		if re.MatchString(change.DiffText) {
			v.Block = append(v.Block, fmt.Sprintf("Hard-stop pattern matched: %s", pattern))
		}
	}

	report := Report{
		Violations: v,
		Stats: Stats{
			FilesChanged: len(paths),
			Additions:    change.Additions,
			Deletions:    change.Deletions,
		},
		Config: cfg,
	}

	switch {
	case len(v.Block) > 0:
		report.Decision = DecisionBlock
		report.Reasons = v.Block
	case len(v.Manual) > 0:
		report.Decision = DecisionManualRequired
		report.Reasons = v.Manual
	default:
		report.Decision = DecisionAutoMergeOK
		report.Eligible = true
	}

	return report
}

func normalizePath(path string) string {
	normalized := strings.ReplaceAll(path, "\\", "/")
	return strings.TrimPrefix(normalized, "./")
}

func matchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
