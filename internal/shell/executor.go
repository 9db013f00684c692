// Package shell runs validated worker commands as subprocesses.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/rdmlabs/rdm-engine/internal/domain/run"
)

// Executor runs one command at a time through `sh -c` with the calling
// process's environment. A violated timeout is reported as a failed
// CommandResult, never as a crash.
type Executor struct {
	Timeout time.Duration
}

// NewExecutor creates an executor with the given command timeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Executor{Timeout: timeout}
}

// Run executes command in workdir and captures stdout/stderr verbatim.
// Truncation, if any, happens later when a transcript is rendered for
// transmission.
func (e *Executor) Run(ctx context.Context, command, workdir string) run.CommandResult {
	cctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "sh", "-c", command)
	cmd.Dir = workdir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := run.CommandResult{
		Command: command,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	switch {
	case err == nil:
		result.ReturnCode = 0
	case cctx.Err() == context.DeadlineExceeded:
		result.ReturnCode = -1
		result.Stderr = appendLine(result.Stderr, "command timed out after "+e.Timeout.String())
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ReturnCode = exitErr.ExitCode()
		} else {
			// Spawn failures (missing shell, bad workdir) mirror the
			// rejection convention.
			result.ReturnCode = -1
			result.Stderr = appendLine(result.Stderr, err.Error())
		}
	}

	return result
}

func appendLine(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
