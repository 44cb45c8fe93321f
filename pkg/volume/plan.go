package volume

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/gluster-reconciler/pkg/executor"
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

// State is the live volume state as seen by the state machine
type State string

const (
	StateAbsent  State = "absent"
	StateStopped State = "present-stopped"
	StateStarted State = "present-started"
)

// CurrentState maps a live record (nil when absent) to a state. A volume
// that was created but never started is stopped.
func CurrentState(live *types.VolumeRecord) State {
	switch {
	case live == nil:
		return StateAbsent
	case live.Started():
		return StateStarted
	default:
		return StateStopped
	}
}

// Plan is the ordered set of commands that moves one volume to its target
type Plan struct {
	Volume  string
	Current State
	Target  types.VolumeEnsure
	Actions []types.Action

	// PeersRequired lists brick hosts that must be confirmed in the cluster
	// before the create action is issued.
	PeersRequired []string

	// Drift is reported only; nothing in Actions repairs it.
	Drift []types.Drift
}

// InSync reports whether no command is needed
func (p *Plan) InSync() bool {
	return len(p.Actions) == 0
}

// Creates reports whether the plan creates the volume
func (p *Plan) Creates() bool {
	for _, a := range p.Actions {
		if a.Kind == types.ActionCreate {
			return true
		}
	}
	return false
}

// ComputePlan diffs a declared volume against its live record. Validation
// errors are returned before any action is planned.
func ComputePlan(spec *types.VolumeSpec, live *types.VolumeRecord) (*Plan, error) {
	if err := spec.Validate(); err != nil {
		return nil, withResource(err, spec.Name)
	}
	target, _ := types.ParseVolumeEnsure(string(spec.Ensure))
	resource := ResourceName(spec.Name)

	plan := &Plan{
		Volume:  spec.Name,
		Current: CurrentState(live),
		Target:  target,
	}

	create := types.Action{Kind: types.ActionCreate, Resource: resource, Args: executor.VolumeCreateArgs(spec)}
	start := types.Action{Kind: types.ActionStart, Resource: resource, Args: executor.VolumeStartArgs(spec.Name)}
	stop := types.Action{Kind: types.ActionStop, Resource: resource, Args: executor.VolumeStopArgs(spec.Name, false)}
	del := types.Action{Kind: types.ActionDelete, Resource: resource, Args: executor.VolumeDeleteArgs(spec.Name)}

	switch plan.Current {
	case StateAbsent:
		switch target {
		case types.VolumeStarted:
			plan.Actions = []types.Action{create, start}
		case types.VolumeStopped:
			plan.Actions = []types.Action{create}
		}
		if len(plan.Actions) > 0 {
			plan.PeersRequired = spec.BrickHosts()
		}
	case StateStopped:
		switch target {
		case types.VolumeStarted:
			plan.Actions = []types.Action{start}
		case types.VolumeAbsent:
			plan.Actions = []types.Action{del}
		}
	case StateStarted:
		switch target {
		case types.VolumeStopped:
			plan.Actions = []types.Action{stop}
		case types.VolumeAbsent:
			plan.Actions = []types.Action{stop, del}
		}
	}

	if live != nil && target != types.VolumeAbsent {
		plan.Drift = DetectDrift(spec, live)
	}
	return plan, nil
}

// DetectDrift compares layout fields of an existing volume. Brick order
// matters because it defines replica grouping.
func DetectDrift(spec *types.VolumeSpec, live *types.VolumeRecord) []types.Drift {
	var drift []types.Drift
	add := func(field, declared, actual string) {
		drift = append(drift, types.Drift{Volume: spec.Name, Field: field, Declared: declared, Live: actual})
	}

	if declared, actual := joinBricks(spec.Bricks), joinBricks(live.Bricks); declared != actual {
		add("bricks", declared, actual)
	}
	if spec.Replica != live.Replica {
		add("replica", countString(spec.Replica), countString(live.Replica))
	}
	if spec.Stripe != live.Stripe {
		add("stripe", countString(spec.Stripe), countString(live.Stripe))
	}
	if spec.Transport != "" && live.Transport != "" && spec.Transport != live.Transport {
		add("transport", spec.Transport, live.Transport)
	}
	return drift
}

// ResourceName formats a volume's catalog name
func ResourceName(name string) string {
	return types.ResourceRef{Kind: "Volume", Name: name}.String()
}

func joinBricks(bricks []types.Brick) string {
	parts := make([]string, len(bricks))
	for i, b := range bricks {
		parts[i] = b.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func countString(n int) string {
	if n == 0 {
		return "none"
	}
	return strconv.Itoa(n)
}

func withResource(err error, name string) error {
	var verr *types.ValidationError
	if errors.As(err, &verr) && verr.Resource == "" {
		verr.Resource = ResourceName(name)
	}
	return err
}

func (p *Plan) String() string {
	if p.InSync() {
		return fmt.Sprintf("%s: in sync (%s)", ResourceName(p.Volume), p.Current)
	}
	steps := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		steps[i] = string(a.Kind)
	}
	return fmt.Sprintf("%s: %s -> %s via %s", ResourceName(p.Volume), p.Current, p.Target, strings.Join(steps, ", "))
}
