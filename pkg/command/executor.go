package command

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ritzau/topobench/pkg/logging"
)

// Executor runs external programs (lift generator, weight matcher) and
// blocks until they exit and their output is drained.
type Executor interface {
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default implementation of Executor that runs actual commands
type DefaultExecutor struct {
	// Silent suppresses echoing of the program output to the debug log
	Silent bool
}

// NewExecutor creates a new default executor
func NewExecutor(silent bool) Executor {
	return &DefaultExecutor{Silent: silent}
}

// Run executes the program and returns its combined output.
// It respects the provided context for cancellation.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	logging.DebugContext(ctx, "running command", "cmd", name+" "+strings.Join(args, " "))
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w\nOutput: %s", name, err, string(output))
	}
	if !e.Silent && len(output) > 0 {
		logging.DebugContext(ctx, "command output", "cmd", name, "output", strings.TrimSpace(string(output)))
	}

	return output, nil
}
