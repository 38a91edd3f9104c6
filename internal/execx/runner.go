// Package execx runs external tools behind a Runner interface so workers and
// appliers can be exercised in tests without ffmpeg or LibreOffice installed.
package execx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandRunner executes commands with os/exec.
type CommandRunner struct {
	// Dir is the working directory; empty means the current directory.
	Dir string
}

// NewCommandRunner constructs a CommandRunner.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{}
}

var commandContext = exec.CommandContext

// Run executes name with args and returns combined stdout/stderr. A non-zero
// exit is reported as *ExitError carrying the tail of the output.
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := commandContext(ctx, name, args...) //nolint:gosec
	if r != nil && r.Dir != "" {
		cmd.Dir = r.Dir
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return output, fmt.Errorf("%s: %w", name, ctxErr)
		}
		return output, &ExitError{Command: name, Output: tail(string(output), maxErrorOutput), Err: err}
	}
	return output, nil
}

const maxErrorOutput = 512

// ExitError describes a failed external command.
type ExitError struct {
	Command string
	Output  string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Output)
}

func (e *ExitError) Unwrap() error { return e.Err }

// IsNotFound reports whether err stems from a missing executable.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

func tail(output string, limit int) string {
	trimmed := strings.TrimSpace(output)
	if len(trimmed) <= limit {
		return trimmed
	}
	return "..." + trimmed[len(trimmed)-limit:]
}

var _ Runner = (*CommandRunner)(nil)
