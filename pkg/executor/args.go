package executor

import (
	"strconv"

	"github.com/cuemby/gluster-reconciler/pkg/types"
)

// DefaultCommand is the gluster admin CLI
const DefaultCommand = "gluster"

// ScriptModeArg disables interactive confirmation prompts (stop, delete, detach)
const ScriptModeArg = "--mode=script"

var PeerStatusArgs = func() []string {
	return []string{"peer", "status"}
}

var PeerProbeArgs = func(host string) []string {
	return []string{"peer", "probe", host}
}

var PeerDetachArgs = func(host string) []string {
	return []string{"peer", "detach", host}
}

var VolumeInfoArgs = func(name ...string) []string {
	return append([]string{"volume", "info"}, name...)
}

var VolumeStartArgs = func(name string) []string {
	return []string{"volume", "start", name}
}

var VolumeStopArgs = func(name string, force bool) []string {
	args := []string{"volume", "stop", name}
	if force {
		args = append(args, "force")
	}
	return args
}

var VolumeDeleteArgs = func(name string) []string {
	return []string{"volume", "delete", name}
}

// VolumeCreateArgs encodes the declared layout. Bricks keep declaration order
// and gluster expects force after the brick list.
var VolumeCreateArgs = func(spec *types.VolumeSpec) []string {
	args := []string{"volume", "create", spec.Name}
	if spec.Replica > 0 {
		args = append(args, "replica", strconv.Itoa(spec.Replica))
	}
	if spec.Stripe > 0 {
		args = append(args, "stripe", strconv.Itoa(spec.Stripe))
	}
	if spec.Transport != "" {
		args = append(args, "transport", spec.Transport)
	}
	for _, b := range spec.Bricks {
		args = append(args, b.String())
	}
	if spec.Force {
		args = append(args, "force")
	}
	return args
}

// Subcommand returns the "<object> <verb>" pair used for metrics and
// idempotency lookups
func Subcommand(args []string) string {
	switch len(args) {
	case 0:
		return ""
	case 1:
		return args[0]
	default:
		return args[0] + " " + args[1]
	}
}
