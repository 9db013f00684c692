package shell

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunCapturesOutput(t *testing.T) {
	e := NewExecutor(10 * time.Second)

	res := e.Run(context.Background(), "echo out; echo err 1>&2", t.TempDir())
	assert.Equal(t, 0, res.ReturnCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, "echo out; echo err 1>&2", res.Command)
}

func TestRunNonZeroExit(t *testing.T) {
	e := NewExecutor(10 * time.Second)

	res := e.Run(context.Background(), "exit 3", t.TempDir())
	assert.Equal(t, 3, res.ReturnCode)
}

func TestRunRespectsWorkdir(t *testing.T) {
	e := NewExecutor(10 * time.Second)
	dir := t.TempDir()

	res := e.Run(context.Background(), "pwd", dir)
	assert.Equal(t, 0, res.ReturnCode)
	assert.Contains(t, res.Stdout, dir)
}

func TestRunTimeout(t *testing.T) {
	e := NewExecutor(200 * time.Millisecond)

	res := e.Run(context.Background(), "sleep 5", t.TempDir())
	assert.Equal(t, -1, res.ReturnCode)
	assert.Contains(t, res.Stderr, "timed out")
}

func TestRunBadWorkdir(t *testing.T) {
	e := NewExecutor(10 * time.Second)

	res := e.Run(context.Background(), "echo ok", "/does/not/exist")
	assert.Equal(t, -1, res.ReturnCode)
	assert.NotEmpty(t, res.Stderr)
}

func TestNewExecutorDefaultTimeout(t *testing.T) {
	e := NewExecutor(0)
	assert.Equal(t, 120*time.Second, e.Timeout)
}
