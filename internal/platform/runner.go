package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner executes the external disk-management commands the backends depend on.
type Runner interface {
	// Output runs the command and returns its standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Stream runs the command with its output streams attached to stdout and stderr.
	Stream(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error
}

// CommandError is returned when an external command exits unsuccessfully.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Name, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

type execRunner struct {
	logger *slog.Logger
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner(logger *slog.Logger) Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &execRunner{logger: logger}
}

func (r *execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.logger.DebugContext(ctx, "exec", "cmd", name, "args", args)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, newCommandError(name, args, err, stderr.String())
	}
	return out, nil
}

func (r *execRunner) Stream(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error {
	r.logger.DebugContext(ctx, "exec", "cmd", name, "args", args)

	// Keep a copy of stderr so the diagnostic survives even when it is also shown live.
	var captured bytes.Buffer
	errOut := io.Writer(&captured)
	if stderr != nil {
		errOut = io.MultiWriter(stderr, &captured)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = errOut
	if err := cmd.Run(); err != nil {
		return newCommandError(name, args, err, captured.String())
	}
	return nil
}

func newCommandError(name string, args []string, err error, stderr string) *CommandError {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &CommandError{
		Name:     name,
		Args:     args,
		ExitCode: code,
		Stderr:   strings.TrimSpace(stderr),
		Err:      err,
	}
}
