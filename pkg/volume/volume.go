package volume

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cuemby/gluster-reconciler/pkg/executor"
	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/parser"
	"github.com/cuemby/gluster-reconciler/pkg/peer"
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

// Result describes what Apply did for one volume
type Result struct {
	Plan     *Plan
	Executed []types.Action // includes peer probes issued for brick hosts
}

// Reconciler drives one declared volume through create, start, stop and
// delete. Peer prerequisites are delegated to the peer reconciler.
type Reconciler struct {
	runner executor.Runner
	peers  *peer.Reconciler
}

// NewReconciler creates a volume reconciler
func NewReconciler(runner executor.Runner, peers *peer.Reconciler) *Reconciler {
	return &Reconciler{
		runner: runner,
		peers:  peers,
	}
}

// AllVolumes runs `volume info` and parses every volume
func (r *Reconciler) AllVolumes(ctx context.Context) ([]*types.VolumeRecord, error) {
	out, err := r.runner.Run(ctx, executor.VolumeInfoArgs()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list volumes: %w", err)
	}
	return parser.ParseVolumes(out)
}

// Info queries a single volume. A volume gluster reports as missing is
// returned as nil without error.
func (r *Reconciler) Info(ctx context.Context, name string) (*types.VolumeRecord, error) {
	out, err := r.runner.Run(ctx, executor.VolumeInfoArgs(name)...)
	if err != nil {
		var execErr *executor.ExecutionError
		if errors.As(err, &execErr) && strings.Contains(execErr.Output(), "does not exist") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query volume %s: %w", name, err)
	}
	records, err := parser.ParseVolumes(out)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Name == name {
			return rec, nil
		}
	}
	return nil, nil
}

// Apply computes the plan for spec against live and executes it. Before a
// create, every brick host is probed and confirmed; if any cannot be
// confirmed a ValidationError is returned and no volume command is issued.
// The first failing command aborts the remaining actions.
func (r *Reconciler) Apply(ctx context.Context, spec *types.VolumeSpec, live *types.VolumeRecord) (*Result, error) {
	logger := log.WithVolume(spec.Name)

	plan, err := ComputePlan(spec, live)
	if err != nil {
		return nil, err
	}
	result := &Result{Plan: plan}

	for _, d := range plan.Drift {
		logger.Warn().
			Str("field", d.Field).
			Str("declared", d.Declared).
			Str("live", d.Live).
			Msg("Volume drift detected, not repairing")
	}

	if plan.InSync() {
		logger.Debug().Str("state", string(plan.Current)).Msg("Volume in sync")
		return result, nil
	}

	if plan.Creates() {
		probes, err := r.ensurePeers(ctx, spec, plan.PeersRequired)
		result.Executed = append(result.Executed, probes...)
		if err != nil {
			return result, err
		}
	}

	for _, action := range plan.Actions {
		logger.Info().Str("action", string(action.Kind)).Msg("Reconciling volume")
		if _, err := r.runner.Run(ctx, action.Args...); err != nil {
			return result, fmt.Errorf("failed to %s volume %s: %w", action.Kind, spec.Name, err)
		}
		result.Executed = append(result.Executed, action)
	}
	return result, nil
}

// ensurePeers probes every brick host that is not yet a connected member and
// waits until all of them are.
func (r *Reconciler) ensurePeers(ctx context.Context, spec *types.VolumeSpec, hosts []string) ([]types.Action, error) {
	notConfirmed := func(err error) error {
		return &types.ValidationError{
			Resource: ResourceName(spec.Name),
			Field:    "bricks",
			Reason:   "brick peers cannot be confirmed in sync: " + err.Error(),
			Err:      err,
		}
	}

	live, err := r.peers.PeersPresent(ctx)
	if err != nil {
		return nil, notConfirmed(err)
	}

	var executed []types.Action
	for _, host := range hosts {
		action, err := r.peers.EnsurePresent(ctx, &types.PeerSpec{Peer: host}, live)
		if err != nil {
			return executed, notConfirmed(err)
		}
		if action != nil {
			executed = append(executed, *action)
		}
	}

	// Nothing probed and every host already connected: the roster we just
	// read is the confirmation.
	if len(executed) == 0 && allConnected(hosts, r.peers.Aliases(), live) {
		return nil, nil
	}
	if err := r.peers.Confirm(ctx, hosts); err != nil {
		return executed, notConfirmed(err)
	}
	return executed, nil
}

func allConnected(hosts []string, aliases types.LocalAliasSet, live []*types.PeerRecord) bool {
	for _, h := range hosts {
		if !peer.IsInSync(h, aliases, live, types.PeerPresent) {
			return false
		}
	}
	return true
}
