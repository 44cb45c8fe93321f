package executor

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/metrics"
)

// Runner runs one gluster admin command and returns its stdout
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// absorbable lists, per subcommand, the failure messages that mean the
// cluster is already in the requested state.
var absorbable = map[string][]string{
	"peer probe": {
		"already in peer list",
		"Probe on localhost not needed",
	},
	"peer detach": {
		"is not part of cluster",
		"not a friend",
	},
	"volume create": {
		"already exists",
	},
	"volume start": {
		"already started",
	},
	"volume stop": {
		"is not in the started state",
		"already stopped",
	},
	"volume delete": {
		"does not exist",
	},
}

// Absorbable reports whether a failed command's output means the requested
// state already holds
func Absorbable(args []string, output string) bool {
	for _, pattern := range absorbable[Subcommand(args)] {
		if strings.Contains(output, pattern) {
			return true
		}
	}
	return false
}

// ReadOnly reports whether args only query the cluster
func ReadOnly(args []string) bool {
	switch Subcommand(args) {
	case "peer status", "volume info":
		return true
	}
	return false
}

// Executor runs the gluster CLI, one process per call. It never retries.
type Executor struct {
	binary string
	calls  atomic.Int64
	logger zerolog.Logger
}

var _ Runner = &Executor{}

// New creates an executor for the given binary; empty means DefaultCommand
func New(binary string) *Executor {
	if binary == "" {
		binary = DefaultCommand
	}
	return &Executor{
		binary: binary,
		logger: log.WithComponent("executor"),
	}
}

// Calls returns the number of processes spawned so far
func (e *Executor) Calls() int {
	return int(e.calls.Load())
}

// Run executes `<binary> --mode=script <args>`. A non-zero exit whose output
// matches an idempotency pattern is returned as success.
func (e *Executor) Run(ctx context.Context, args ...string) (string, error) {
	sub := Subcommand(args)
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.CommandDuration, sub)

	// A mutating command runs to completion once issued; only queries are
	// interrupted by cancellation.
	if !ReadOnly(args) {
		ctx = context.WithoutCancel(ctx)
	}

	full := append([]string{ScriptModeArg}, args...)
	cmd := ExecCommandContext(ctx, e.binary, full...)

	var stdout, stderr bytes.Buffer
	cmd.SetStdout(&stdout)
	cmd.SetStderr(&stderr)

	e.calls.Add(1)
	e.logger.Debug().Strs("args", args).Msg("Running gluster command")

	err := cmd.Run()
	if err == nil {
		metrics.CommandsTotal.WithLabelValues(sub, "ok").Inc()
		return stdout.String(), nil
	}

	combined := stdout.String() + stderr.String()
	if Absorbable(args, combined) {
		metrics.CommandsTotal.WithLabelValues(sub, "absorbed").Inc()
		e.logger.Debug().
			Strs("args", args).
			Str("output", strings.TrimSpace(combined)).
			Msg("Absorbed idempotent failure")
		return stdout.String(), nil
	}

	metrics.CommandsTotal.WithLabelValues(sub, "failed").Inc()
	return "", &ExecutionError{
		Command:  append([]string{e.binary}, full...),
		ExitCode: errToExitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Err:      err,
	}
}
