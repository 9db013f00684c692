// Package github wraps the remote-repo operations the engine needs:
// ensuring a project repo exists, opening step pull requests, and merging
// eligible ones.
package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gogithub "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Repo is the subset of remote repo metadata the engine uses.
type Repo struct {
	Owner         string
	Name          string
	CloneURL      string
	SSHURL        string
	HTMLURL       string
	DefaultBranch string
}

// PullRequest identifies an opened PR.
type PullRequest struct {
	Number  int
	HTMLURL string
}

// Client talks to the GitHub API for one owner (user or org).
type Client struct {
	gh    *gogithub.Client
	owner string
}

// NewClient builds an authenticated client. owner is the user or org the
// project repos live under.
func NewClient(ctx context.Context, token, owner string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("github token not set")
	}
	if owner == "" {
		return nil, fmt.Errorf("github owner not set")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return &Client{gh: gogithub.NewClient(tc), owner: owner}, nil
}

// Owner returns the configured owner login.
func (c *Client) Owner() string { return c.owner }

// EnsureRepo returns the named repo under the configured owner, creating it
// as a private repo when missing. Creation races resolve to the existing
// repo.
func (c *Client) EnsureRepo(ctx context.Context, name string) (*Repo, error) {
	repo, resp, err := c.gh.Repositories.Get(ctx, c.owner, name)
	if err == nil {
		return toRepo(repo), nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return nil, fmt.Errorf("check repo %s/%s: %w", c.owner, name, err)
	}

	// Creating under the authenticated user and under an org are different
	// endpoints; compare the owner against the token's login.
	org := c.owner
	if me, _, err := c.gh.Users.Get(ctx, ""); err == nil &&
		strings.EqualFold(me.GetLogin(), c.owner) {
		org = ""
	}

	created, resp, err := c.gh.Repositories.Create(ctx, org, &gogithub.Repository{
		Name:    gogithub.String(name),
		Private: gogithub.Bool(true),
	})
	if err != nil {
		// Name taken between the check and the create.
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			if existing, _, getErr := c.gh.Repositories.Get(ctx, c.owner, name); getErr == nil {
				return toRepo(existing), nil
			}
		}
		return nil, fmt.Errorf("create repo %s/%s: %w", c.owner, name, err)
	}
	return toRepo(created), nil
}

// RepoInfo fetches metadata for an existing repo.
func (c *Client) RepoInfo(ctx context.Context, owner, name string) (*Repo, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("fetch repo %s/%s: %w", owner, name, err)
	}
	return toRepo(repo), nil
}

// CreatePullRequest opens a PR from head to base.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &gogithub.NewPullRequest{
		Title: gogithub.String(title),
		Body:  gogithub.String(body),
		Head:  gogithub.String(head),
		Base:  gogithub.String(base),
	})
	if err != nil {
		return nil, fmt.Errorf("create pull request %s/%s (%s -> %s): %w", owner, repo, head, base, err)
	}
	return &PullRequest{Number: pr.GetNumber(), HTMLURL: pr.GetHTMLURL()}, nil
}

// MergePullRequest merges an open PR by number.
func (c *Client) MergePullRequest(ctx context.Context, owner, repo string, number int, message string) error {
	result, _, err := c.gh.PullRequests.Merge(ctx, owner, repo, number, message, &gogithub.PullRequestOptions{})
	if err != nil {
		return fmt.Errorf("merge pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	if !result.GetMerged() {
		return fmt.Errorf("merge pull request %s/%s#%d: %s", owner, repo, number, result.GetMessage())
	}
	return nil
}

// IsAlreadyExists reports whether err is the API's duplicate-PR rejection.
func IsAlreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func toRepo(r *gogithub.Repository) *Repo {
	return &Repo{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		CloneURL:      r.GetCloneURL(),
		SSHURL:        r.GetSSHURL(),
		HTMLURL:       r.GetHTMLURL(),
		DefaultBranch: r.GetDefaultBranch(),
	}
}
