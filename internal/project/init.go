package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/github"
	"github.com/rdmlabs/rdm-engine/internal/gitx"
)

// gitignore entries every project workspace carries.
var projectIgnores = []string{"state.json", "logs/", "runs/", ".DS_Store"}

// RemoteCreator provisions a remote repository for a project.
// *github.Client satisfies this.
type RemoteCreator interface {
	EnsureRepo(ctx context.Context, name string) (*github.Repo, error)
}

// InitOptions configures project initialization.
type InitOptions struct {
	Mode string
	// Remote, when non-nil, gets a private repo created (or found) for
	// the project and the initial commit pushed to it.
	Remote RemoteCreator
}

// InitResult reports what initialization produced.
type InitResult struct {
	ProjectDir string
	Spec       Spec
	Session    *SessionState
	RemoteURL  string
}

// Initialize sets up a project workspace end to end: directory layout,
// project.yaml, state.json, a local git repo with an initial commit, and
// optionally a remote. Remote failures degrade to local-only; everything
// before the remote step is required.
func Initialize(ctx context.Context, fsys afero.Fs, projectsRoot, projectID, goal string, opt InitOptions) (*InitResult, error) {
	logger := app.GetLogger()

	projectDir := filepath.Join(projectsRoot, projectID)
	if err := fsys.MkdirAll(filepath.Join(projectDir, "output"), 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}

	specPath := filepath.Join(projectDir, "project.yaml")
	spec, err := EnsureSpec(fsys, specPath, projectID, goal, opt.Mode)
	if err != nil {
		return nil, err
	}

	session, err := ensureSession(fsys, projectDir, projectID, goal, opt.Mode)
	if err != nil {
		return nil, err
	}

	if err := ensureGitRepo(ctx, fsys, projectDir); err != nil {
		return nil, err
	}

	result := &InitResult{
		ProjectDir: projectDir,
		Spec:       spec,
		Session:    session,
	}

	if opt.Remote == nil {
		logger.Info("skipping remote creation for %s", projectID)
		return result, nil
	}

	remoteURL, err := setupRemote(ctx, opt.Remote, projectDir, projectID)
	if err != nil {
		// Local init already succeeded; report and continue.
		logger.Warn("remote creation for %s failed: %v", projectID, err)
		return result, nil
	}
	result.RemoteURL = remoteURL

	session.Repo.URL = remoteURL
	if err := SaveSessionState(fsys, projectDir, session); err != nil {
		logger.Warn("failed to record remote URL in session state: %v", err)
	}
	spec.Repo.URL = remoteURL
	if err := SaveSpec(fsys, specPath, spec); err != nil {
		logger.Warn("failed to record remote URL in project spec: %v", err)
	}

	logger.Info("remote repo ready and pushed: %s", remoteURL)
	return result, nil
}

// ensureSession loads an existing state.json, or creates one, and fills in
// fields older state files may lack.
func ensureSession(fsys afero.Fs, projectDir, projectID, goal, mode string) (*SessionState, error) {
	state, err := LoadSessionState(fsys, projectDir)
	if err != nil {
		return InitSessionState(fsys, projectID, goal, projectDir, mode)
	}

	if state.DefaultExecutionMode == "" {
		state.DefaultExecutionMode = "pipeline"
	}
	if state.Steps == nil {
		state.Steps = []any{}
	}
	if state.Log == nil {
		state.Log = []string{}
	}
	if err := SaveSessionState(fsys, projectDir, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ensureGitRepo initializes a git repo with main as the default branch and
// creates the initial commit when the history is empty.
func ensureGitRepo(ctx context.Context, fsys afero.Fs, projectDir string) error {
	git := gitx.NewRunner(projectDir)

	if exists, _ := afero.DirExists(fsys, filepath.Join(projectDir, ".git")); !exists {
		if res := git.Run(ctx, "init", "-b", "main"); !res.OK() {
			// Older git without -b support.
			if res := git.Run(ctx, "init"); !res.OK() {
				return fmt.Errorf("git init failed: %s", res.Stderr)
			}
			git.Run(ctx, "symbolic-ref", "HEAD", "refs/heads/main")
		}
		if email := os.Getenv("GIT_USER_EMAIL"); email != "" {
			git.Run(ctx, "config", "user.email", email)
		}
		if name := os.Getenv("GIT_USER_NAME"); name != "" {
			git.Run(ctx, "config", "user.name", name)
		}
	}

	if err := ensureGitignore(fsys, projectDir); err != nil {
		return err
	}
	gitkeep := filepath.Join(projectDir, "output", ".gitkeep")
	if exists, _ := afero.Exists(fsys, gitkeep); !exists {
		if err := afero.WriteFile(fsys, gitkeep, nil, 0o644); err != nil {
			return fmt.Errorf("create output/.gitkeep: %w", err)
		}
	}

	// Unborn HEAD means no commits yet.
	if git.Run(ctx, "rev-parse", "HEAD").OK() {
		return nil
	}

	if res := git.Run(ctx, "add", "project.yaml", ".gitignore", "output/.gitkeep"); !res.OK() {
		app.GetLogger().Warn("initial git add failed: %s", res.Stderr)
		return nil
	}
	if res := git.Run(ctx, "commit", "-m", "Initialize project workspace"); !res.OK() {
		app.GetLogger().Warn("initial commit failed: %s", res.Stderr)
	}
	return nil
}

// ensureGitignore appends the standard ignore entries, keeping whatever the
// file already lists.
func ensureGitignore(fsys afero.Fs, projectDir string) error {
	path := filepath.Join(projectDir, ".gitignore")

	var existing []string
	if data, err := afero.ReadFile(fsys, path); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				existing = append(existing, line)
			}
		}
	}

	combined := existing
	for _, entry := range projectIgnores {
		found := false
		for _, line := range existing {
			if line == entry {
				found = true
				break
			}
		}
		if !found {
			combined = append(combined, entry)
		}
	}

	content := strings.Join(combined, "\n") + "\n"
	if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write .gitignore: %w", err)
	}
	return nil
}

// setupRemote provisions the remote repo and pushes the current branch.
func setupRemote(ctx context.Context, remote RemoteCreator, projectDir, projectID string) (string, error) {
	repo, err := remote.EnsureRepo(ctx, projectID)
	if err != nil {
		return "", err
	}
	remoteURL := repo.CloneURL
	if remoteURL == "" {
		remoteURL = repo.SSHURL
	}
	if remoteURL == "" {
		return "", fmt.Errorf("no remote URL returned for %s", projectID)
	}

	git := gitx.NewRunner(projectDir)
	if !git.Run(ctx, "remote", "get-url", "origin").OK() {
		if res := git.Run(ctx, "remote", "add", "origin", remoteURL); !res.OK() {
			return "", fmt.Errorf("add remote failed: %s", res.Stderr)
		}
	}

	if !git.Run(ctx, "rev-parse", "HEAD").OK() {
		return "", fmt.Errorf("cannot push: branch has no commits")
	}

	branch := git.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD").Out()
	if branch == "" {
		branch = "main"
	}
	if res := git.Run(ctx, "push", "-u", "origin", branch); !res.OK() {
		return "", fmt.Errorf("push to remote failed: %s", res.Stderr)
	}
	return remoteURL, nil
}
