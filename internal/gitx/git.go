// Package gitx runs git subcommands against a working copy. Callers check
// Result.OK instead of handling process errors; a git that cannot even
// spawn surfaces as a failed Result with the spawn error as stderr.
package gitx

import (
	"context"
	"os/exec"
	"strings"
)

// Result captures one git invocation.
type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// OK reports whether git exited zero.
func (r Result) OK() bool { return r.Code == 0 }

// Out returns stdout with surrounding whitespace trimmed.
func (r Result) Out() string { return strings.TrimSpace(r.Stdout) }

// Runner executes git commands in a fixed directory.
type Runner struct {
	Dir string
}

// NewRunner creates a runner rooted at dir.
func NewRunner(dir string) *Runner {
	return &Runner{Dir: dir}
}

// Run executes `git args...` in the runner's directory.
func (g *Runner) Run(ctx context.Context, args ...string) Result {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.Code = exitErr.ExitCode()
		} else {
			res.Code = -1
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
	}
	return res
}
