package executor

import (
	"context"
	"io"
	"os/exec"
)

// Cmd is the subset of exec.Cmd the executor needs
type Cmd interface {
	Run() error
	SetStdout(io.Writer)
	SetStderr(io.Writer)
}

// ExecCommandContext builds the process for one invocation. Overridable for
// testing purposes.
var ExecCommandContext = func(ctx context.Context, name string, arg ...string) Cmd {
	return (*execCmd)(exec.CommandContext(ctx, name, arg...))
}

// execCmd isolates callers from exec.Cmd struct fields
type execCmd exec.Cmd

var _ Cmd = &execCmd{}

func (r *execCmd) Run() error            { return (*exec.Cmd)(r).Run() }
func (r *execCmd) SetStdout(w io.Writer) { (*exec.Cmd)(r).Stdout = w }
func (r *execCmd) SetStderr(w io.Writer) { (*exec.Cmd)(r).Stderr = w }

// errToExitCode extracts the exit code without depending on exec.ExitError
func errToExitCode(err error) int {
	type exitCode interface{ ExitCode() int }

	if errWithExitCode, ok := err.(exitCode); ok {
		return errWithExitCode.ExitCode()
	}

	return -1
}
