// Package safety screens proposed shell commands before execution.
//
// The screening is a first-pass advisory filter, not a sandbox: banned
// phrases and reserved paths are matched as case-insensitive substrings,
// which can over-block benign commands and under-block obfuscated ones.
package safety

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
)

// Default banned substrings. Matched case-insensitively against the whole
// command string.
var defaultBannedPatterns = []string{
	"rm -rf /",
	"rm -rf /*",
	"mkfs",
	":(){:|:&};:",
	"dd if=/dev/zero of=/dev/",
	"sudo rm",
	"shutdown",
	"reboot",
}

// Reserved engine-control markers. Commands referencing the orchestration
// tree or infra manifests are out of bounds for a worker.
var defaultReservedMarkers = []string{
	"internal/orchestrator",
	"internal/worker",
	"internal/safety",
	"cmd/rdm",
	"compose.yml",
	"dockerfile",
	"setting.json",
}

// Privilege escalation binaries rejected when they appear as a command token.
var escalationTokens = map[string]bool{
	"sudo": true,
	"doas": true,
	"su":   true,
}

// Gate validates commands and working directories against a workspace root.
type Gate struct {
	workspaceRoot   string
	bannedPatterns  []string
	reservedMarkers []string
}

// Option configures a Gate.
type Option func(*Gate)

// WithBannedPatterns replaces the default banned substring list.
func WithBannedPatterns(patterns []string) Option {
	return func(g *Gate) { g.bannedPatterns = patterns }
}

// WithReservedMarkers replaces the default reserved path marker list.
func WithReservedMarkers(markers []string) Option {
	return func(g *Gate) { g.reservedMarkers = markers }
}

// NewGate creates a gate bound to a workspace root. The root is resolved
// once; the gate and the worker loop must agree on it for a whole run.
func NewGate(workspaceRoot string, opts ...Option) (*Gate, error) {
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		abs = resolved
	}

	g := &Gate{
		workspaceRoot:   abs,
		bannedPatterns:  defaultBannedPatterns,
		reservedMarkers: defaultReservedMarkers,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// WorkspaceRoot returns the resolved root the gate enforces.
func (g *Gate) WorkspaceRoot() string { return g.workspaceRoot }

// RejectionError describes why a command was refused. The text becomes
// stderr of a synthetic CommandResult and feeds the next model turn.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

func reject(format string, args ...interface{}) error {
	return &RejectionError{Reason: fmt.Sprintf(format, args...)}
}

// Check validates a proposed command and workdir. Rules apply in order,
// first match wins:
//  1. workdir must be the workspace root or a descendant of it
//  2. no banned destructive substring
//  3. no reserved engine-control path marker
//  4. tokens of the first line: absolute paths must resolve inside the
//     workspace root; no privilege-escalation invocations
func (g *Gate) Check(command, workdir string) error {
	absWorkdir, err := filepath.Abs(workdir)
	if err != nil {
		return reject("workdir %q cannot be resolved: %v", workdir, err)
	}
	if resolved, err := filepath.EvalSymlinks(absWorkdir); err == nil {
		absWorkdir = resolved
	}
	if !g.within(absWorkdir) {
		return reject("workdir %q is outside the workspace root %q", workdir, g.workspaceRoot)
	}

	lowered := strings.ToLower(command)
	for _, pattern := range g.bannedPatterns {
		if strings.Contains(lowered, strings.ToLower(pattern)) {
			return reject("command contains banned pattern %q", pattern)
		}
	}

	for _, marker := range g.reservedMarkers {
		if strings.Contains(lowered, strings.ToLower(marker)) {
			return reject("command references reserved engine path %q", marker)
		}
	}

	return g.checkTokens(command)
}

// checkTokens shell-splits only the first line of the command; heredoc
// bodies are data, not paths.
func (g *Gate) checkTokens(command string) error {
	firstLine := command
	if idx := strings.IndexByte(command, '\n'); idx >= 0 {
		firstLine = command[:idx]
	}

	tokens, err := shlex.Split(firstLine)
	if err != nil {
		// Unbalanced quoting is the shell's problem, not a safety call.
		return nil
	}

	for _, token := range tokens {
		if escalationTokens[token] {
			return reject("privilege escalation via %q is not allowed", token)
		}
		if !strings.HasPrefix(token, "/") {
			continue
		}
		resolved := token
		if r, err := filepath.EvalSymlinks(token); err == nil {
			resolved = r
		} else {
			resolved = filepath.Clean(token)
		}
		if !g.within(resolved) {
			return reject("absolute path %q is outside the workspace root %q", token, g.workspaceRoot)
		}
	}
	return nil
}

func (g *Gate) within(path string) bool {
	if path == g.workspaceRoot {
		return true
	}
	return strings.HasPrefix(path, g.workspaceRoot+string(filepath.Separator))
}
