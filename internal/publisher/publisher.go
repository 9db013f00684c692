// Package publisher ships one succeeded step as a branch and pull request,
// consulting the merge gate before any auto-merge.
package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rdmlabs/rdm-engine/internal/app"
	"github.com/rdmlabs/rdm-engine/internal/app/config"
	"github.com/rdmlabs/rdm-engine/internal/domain/plan"
	"github.com/rdmlabs/rdm-engine/internal/domain/run"
	"github.com/rdmlabs/rdm-engine/internal/gate"
	"github.com/rdmlabs/rdm-engine/internal/github"
	"github.com/rdmlabs/rdm-engine/internal/gitx"
)

// RepoAPI is the remote surface the publisher needs. *github.Client
// satisfies it.
type RepoAPI interface {
	RepoInfo(ctx context.Context, owner, name string) (*github.Repo, error)
	CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*github.PullRequest, error)
	MergePullRequest(ctx context.Context, owner, repo string, number int, message string) error
}

// Publisher opens a PR per published step. It satisfies
// orchestrator.StepPublisher.
type Publisher struct {
	api       RepoAPI
	cfg       config.Config
	sessionID string
}

// New creates a publisher for one session.
func New(api RepoAPI, cfg config.Config, sessionID string) *Publisher {
	return &Publisher{api: api, cfg: cfg, sessionID: sessionID}
}

// PublishStep commits the step's changes, evaluates the merge gate over
// the staged diff, and pushes a branch plus PR unless the gate blocks. An
// eligible report plus the auto-merge setting merges the PR immediately.
// Returned errors describe why publication stopped; the local commit is
// never rolled back.
func (p *Publisher) PublishStep(ctx context.Context, projectID, projectDir string, step plan.Step, attempt string, transcript run.Transcript) error {
	logger := app.GetLogger()

	if !transcript.AllSucceeded() {
		return fmt.Errorf("step %d not successful; skipping publication", step.ID)
	}

	git := gitx.NewRunner(projectDir)

	status := git.Run(ctx, "status", "--porcelain")
	if !status.OK() {
		return fmt.Errorf("git status failed: %s", status.Stderr)
	}
	if status.Out() == "" {
		logger.Info("step %d: no changes, skipping publication", step.ID)
		return nil
	}

	if res := git.Run(ctx, "add", "-A"); !res.OK() {
		return fmt.Errorf("git add failed: %s", res.Stderr)
	}

	diffNames := git.Run(ctx, "diff", "--name-only", "--cached")
	if !diffNames.OK() {
		return fmt.Errorf("git diff failed: %s", diffNames.Stderr)
	}
	var files []string
	for _, line := range strings.Split(diffNames.Stdout, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			files = append(files, trimmed)
		}
	}
	if len(files) == 0 {
		logger.Info("step %d: no changes, skipping publication", step.ID)
		return nil
	}

	additions, deletions, binaries := parseNumstat(git.Run(ctx, "diff", "--cached", "--numstat").Stdout)
	diffText := git.Run(ctx, "diff", "--cached").Stdout

	report := gate.Evaluate(gate.ConfigFor(p.cfg, projectID), projectID, gate.Change{
		Paths:       files,
		DiffText:    diffText,
		Additions:   additions,
		Deletions:   deletions,
		BinaryFiles: binaries,
	})
	logger.Info("merge gate for step %d: %s (%d files, +%d/-%d)",
		step.ID, report.Decision, report.Stats.FilesChanged, additions, deletions)

	title := fmt.Sprintf("RDM Step %d: %s", step.ID, shortGoal(step.Description))
	if res := git.Run(ctx, "commit", "-m", title); !res.OK() {
		return fmt.Errorf("git commit failed: %s", res.Stderr)
	}

	if report.Decision == gate.DecisionBlock {
		return fmt.Errorf("merge gate blocked publication of step %d: %s",
			step.ID, strings.Join(report.Reasons, "; "))
	}

	remote := git.Run(ctx, "remote", "get-url", "origin")
	if !remote.OK() {
		return fmt.Errorf("no origin remote configured: %s", remote.Stderr)
	}
	remoteURL := remote.Out()

	owner, repoName, ok := parseGitHubRemote(remoteURL)
	if !ok {
		return fmt.Errorf("cannot parse GitHub remote %q", remoteURL)
	}

	branch := buildBranchName(step.ID, step.Description, attempt)
	pushTarget := buildAuthedURL(remoteURL, p.cfg.GitHubToken())
	if pushTarget == "" {
		pushTarget = "origin"
	}
	if res := git.Run(ctx, "push", pushTarget, "HEAD:refs/heads/"+branch); !res.OK() {
		return fmt.Errorf("git push failed: %s", res.Stderr)
	}

	repoInfo, err := p.api.RepoInfo(ctx, owner, repoName)
	if err != nil {
		return err
	}
	base := repoInfo.DefaultBranch
	if base == "" {
		base = "main"
	}

	body := buildPRBody(p.sessionID, step.ID, summarizeCommands(transcript), files)
	pr, err := p.api.CreatePullRequest(ctx, owner, repoName, title, body, branch, base)
	if err != nil {
		if github.IsAlreadyExists(err) {
			logger.Info("PR already exists for %s/%s (branch %s)", owner, repoName, branch)
			return nil
		}
		return err
	}
	logger.Info("opened PR: %s", pr.HTMLURL)

	if !report.Eligible {
		logger.Info("step %d requires manual review; leaving PR open", step.ID)
		return nil
	}
	if !p.cfg.AutoMerge() {
		return nil
	}

	if err := p.api.MergePullRequest(ctx, owner, repoName, pr.Number, title); err != nil {
		return err
	}
	logger.Info("auto-merged PR #%d for step %d", pr.Number, step.ID)
	return nil
}
