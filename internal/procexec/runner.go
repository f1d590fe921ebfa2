// Package procexec runs external tools and reports their exit status and
// captured output as a typed result, so callers can be tested with a fake
// Runner instead of spawning real processes.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Cmd is one external tool invocation.
type Cmd struct {
	Name string
	Args []string
	Dir  string
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is what a finished process left behind.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func (r Result) Success() bool { return r.ExitCode == 0 }

// Diagnostics returns the tail of stderr, which is where ffmpeg and yt-dlp
// report failures.
func (r Result) Diagnostics() string {
	const max = 2048
	s := strings.TrimSpace(string(r.Stderr))
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}

// Runner executes a command to completion. A non-nil error means the process
// could not be started or ctx ended; a non-zero exit is reported through
// Result.ExitCode only.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("run %s: %w", c.Name, err)
}

// ExitError describes a command that ran but exited non-zero.
type ExitError struct {
	Op     string
	Result Result
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d\n%s", e.Op, e.Result.ExitCode, e.Result.Diagnostics())
}

// Check folds a non-zero exit into an *ExitError so callers that treat any
// failure as fatal can use a single error path.
func Check(op string, res Result, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !res.Success() {
		return &ExitError{Op: op, Result: res}
	}
	return nil
}
