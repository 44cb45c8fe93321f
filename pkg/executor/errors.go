package executor

import (
	"errors"
	"fmt"
	"strings"
)

// ExecutionError reports a gluster command that exited non-zero and was not
// absorbed as an idempotent success.
type ExecutionError struct {
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ExecutionError) Error() string {
	diag := strings.TrimSpace(e.Stderr)
	if diag == "" {
		diag = strings.TrimSpace(e.Stdout)
	}
	msg := fmt.Sprintf("%s: exit status %d", strings.Join(e.Command, " "), e.ExitCode)
	if diag != "" {
		msg += ": " + diag
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Output returns stdout and stderr combined, for pattern matching
func (e *ExecutionError) Output() string {
	return e.Stdout + e.Stderr
}

// IsExecutionError reports whether err is or wraps an ExecutionError
func IsExecutionError(err error) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr)
}
