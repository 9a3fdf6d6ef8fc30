package bundling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/klothoplatform/kvstack/pkg/logging"
)

//go:generate mockgen -source=./exec.go --destination=./exec_mock_test.go --package=bundling

type (
	Cmd struct {
		Name string
		Args []string
		Dir  string
		// Env is appended to the current process environment.
		Env []string
	}

	Executor interface {
		Exec(ctx context.Context, cmd Cmd) error
	}

	// LoggingExecutor runs commands on the host and streams their output into the context's logger.
	LoggingExecutor struct{}

	// BuildError is returned when the build command exits unsuccessfully. No artifact is promoted
	// when this is returned.
	BuildError struct {
		Command  string
		ExitCode int
		// StderrTail holds the last lines of the command's error output.
		StderrTail []string
		Err        error
	}
)

func (LoggingExecutor) Exec(ctx context.Context, c Cmd) error {
	log := logging.GetLogger(ctx).Named("bundling")
	cmd := logging.Command(ctx, logging.DefaultCommandLogger(logging.WithLogger(ctx, log)), c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	log.Sugar().Debugf("running %s %s", c.Name, strings.Join(c.Args, " "))

	err := cmd.Run()
	if err == nil {
		return nil
	}
	berr := &BuildError{
		Command:    c.Name,
		ExitCode:   -1,
		StderrTail: cmd.StderrTail(),
		Err:        err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		berr.ExitCode = exitErr.ExitCode()
	}
	return berr
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build command %s failed", e.Command)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if len(e.StderrTail) > 0 {
		msg += ": " + e.StderrTail[len(e.StderrTail)-1]
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BuildError) ErrorCode() construct.ErrorCode {
	return construct.BuildFailedCode
}

func (e *BuildError) ToJSONMap() map[string]any {
	return map[string]any{
		"command":     e.Command,
		"exit_code":   e.ExitCode,
		"stderr_tail": e.StderrTail,
	}
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
