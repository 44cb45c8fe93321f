package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/gluster-reconciler/pkg/cache"
	"github.com/cuemby/gluster-reconciler/pkg/events"
	"github.com/cuemby/gluster-reconciler/pkg/executor"
	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/manifest"
	"github.com/cuemby/gluster-reconciler/pkg/metrics"
	"github.com/cuemby/gluster-reconciler/pkg/parser"
	"github.com/cuemby/gluster-reconciler/pkg/peer"
	"github.com/cuemby/gluster-reconciler/pkg/types"
	"github.com/cuemby/gluster-reconciler/pkg/volume"
)

// Config wires a batch to the cluster
type Config struct {
	Runner      executor.Runner
	Aliases     types.LocalAliasSet
	Broker      *events.Broker // optional
	PeerOptions []peer.Option
}

// Result is the outcome of one resource
type Result struct {
	Resource types.ResourceRef
	Requires []types.ResourceRef
	Actions  []types.Action
	Drift    []types.Drift
	Err      error
}

// InSync reports whether the resource needed nothing and did not fail
func (r *Result) InSync() bool {
	return r.Err == nil && len(r.Actions) == 0
}

// Report is the outcome of one batch
type Report struct {
	RunID      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []*Result
	Unmanaged  []string

	// Aborted is set when the live state could not be read and no
	// resource was attempted
	Aborted bool
	Err     error
}

// Failed returns the results that carry an error
func (r *Report) Failed() []*Result {
	var out []*Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Changed returns the number of resources that issued at least one command
func (r *Report) Changed() int {
	n := 0
	for _, res := range r.Results {
		if len(res.Actions) > 0 {
			n++
		}
	}
	return n
}

// Record converts the report for the run history
func (r *Report) Record(mode types.RunMode, source string) *types.RunRecord {
	rec := &types.RunRecord{
		ID:         r.RunID,
		Mode:       mode,
		Manifest:   source,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Unmanaged:  r.Unmanaged,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	for _, res := range r.Results {
		out := types.ResourceOutcome{Resource: res.Resource.String()}
		for _, a := range res.Actions {
			out.Actions = append(out.Actions, a.String())
		}
		for _, d := range res.Drift {
			out.Drift = append(out.Drift, d.String())
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		rec.Resources = append(rec.Resources, out)
	}
	return rec
}

// Batch reconciles one manifest against the cluster, once. Peers are handled
// first in declaration order, then volumes. A failing resource is recorded
// and the batch moves on to the next one.
type Batch struct {
	manifest  *manifest.Manifest
	peers     *peer.Reconciler
	volumes   *volume.Reconciler
	cache     *cache.Cache
	broker    *events.Broker
	resources []Resource
	runID     string
	logger    zerolog.Logger
}

// NewBatch creates a batch for m
func NewBatch(cfg Config, m *manifest.Manifest) *Batch {
	peers := peer.NewReconciler(cfg.Runner, cfg.Aliases, cfg.PeerOptions...)
	volumes := volume.NewReconciler(cfg.Runner, peers)
	runID := uuid.NewString()

	b := &Batch{
		manifest: m,
		peers:    peers,
		volumes:  volumes,
		cache:    cache.New(volumes, peers),
		broker:   cfg.Broker,
		runID:    runID,
		logger:   log.WithRunID(runID).With().Str("component", "reconciler").Logger(),
	}
	for _, spec := range m.Peers {
		b.resources = append(b.resources, NewPeerResource(spec, peers))
	}
	for _, spec := range m.Volumes {
		b.resources = append(b.resources, NewVolumeResource(spec, volumes))
	}
	return b
}

// RunID identifies the batch in logs, events and history
func (b *Batch) RunID() string {
	return b.runID
}

// Cache exposes the batch's live state snapshot
func (b *Batch) Cache() *cache.Cache {
	return b.cache
}

// Run applies every resource and returns the report. The returned error
// joins all per-resource errors.
func (b *Batch) Run(ctx context.Context) (*Report, error) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	report := b.start(false)
	if !b.prefetch(ctx, report) {
		return report, report.Err
	}

	for _, res := range b.resources {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, &Result{Resource: res.Ref(), Err: err})
			continue
		}
		report.Results = append(report.Results, b.apply(ctx, res))
	}

	b.finish(report)
	return report, report.Err
}

// Plan computes what Run would do without issuing any mutating command.
// Probes a volume create depends on are listed before it.
func (b *Batch) Plan(ctx context.Context) (*Report, error) {
	report := b.start(true)
	if !b.prefetch(ctx, report) {
		return report, report.Err
	}

	probed := make(map[string]bool)
	for _, res := range b.resources {
		result := &Result{Resource: res.Ref(), Requires: b.manifest.Requires(res.Ref())}
		actions, drift, err := res.ComputeActions()
		result.Drift = drift
		result.Err = err

		if vr, ok := res.(*VolumeResource); ok && err == nil {
			if plan, _ := vr.Plan(); plan != nil && plan.Creates() {
				result.Actions = append(result.Actions, b.plannedProbes(plan.PeersRequired, probed)...)
			}
		}
		for _, a := range actions {
			if a.Kind == types.ActionProbe {
				probed[strings.ToLower(a.Args[len(a.Args)-1])] = true
			}
		}
		result.Actions = append(result.Actions, actions...)
		report.Results = append(report.Results, result)
	}

	b.finish(report)
	return report, report.Err
}

func (b *Batch) plannedProbes(hosts []string, probed map[string]bool) []types.Action {
	var out []types.Action
	for _, host := range hosts {
		key := strings.ToLower(host)
		if probed[key] {
			continue
		}
		action, err := b.peers.Plan(&types.PeerSpec{Peer: host}, b.cache.Index().Peers())
		if err != nil || action == nil {
			continue
		}
		probed[key] = true
		out = append(out, *action)
	}
	return out
}

func (b *Batch) start(dryRun bool) *Report {
	b.logger.Info().
		Int("peers", len(b.manifest.Peers)).
		Int("volumes", len(b.manifest.Volumes)).
		Bool("dry_run", dryRun).
		Msg("Starting reconciliation batch")
	if !dryRun {
		b.broker.Publish(events.New(events.EventBatchStarted, "", "reconciliation started").With("run_id", b.runID))
	}
	return &Report{RunID: b.runID, DryRun: dryRun, StartedAt: time.Now()}
}

// prefetch reads the live state once. Failure aborts the batch.
func (b *Batch) prefetch(ctx context.Context, report *Report) bool {
	idx, err := b.cache.Prefetch(ctx, b.manifest.VolumeNames())
	if err != nil {
		report.Aborted = true
		report.Err = fmt.Errorf("failed to read live cluster state: %w", err)
		report.FinishedAt = time.Now()
		b.logger.Error().Err(err).Msg("Reconciliation batch aborted")
		return false
	}
	for _, res := range b.resources {
		res.FetchLiveState(idx)
	}
	for _, rec := range idx.Unmanaged() {
		report.Unmanaged = append(report.Unmanaged, rec.Name)
	}
	if len(report.Unmanaged) > 0 {
		b.logger.Info().Strs("volumes", report.Unmanaged).Msg("Live volumes not declared, leaving untouched")
	}
	return true
}

func (b *Batch) apply(ctx context.Context, res Resource) *Result {
	ref := res.Ref()
	result := &Result{Resource: ref, Requires: b.manifest.Requires(ref)}
	logger := b.logger.With().Str("resource", ref.String()).Logger()

	planned, drift, err := res.ComputeActions()
	result.Drift = drift
	for _, d := range drift {
		b.broker.Publish(events.New(events.EventDriftDetected, ref.String(), d.String()).With("field", d.Field))
	}
	if ref.Kind == manifest.KindVolume {
		metrics.DriftDetected.WithLabelValues(ref.Name).Set(float64(len(drift)))
	}

	if err == nil && len(planned) > 0 {
		result.Actions, err = res.Apply(ctx)
	} else {
		// Apply logs drift itself
		for _, d := range drift {
			logger.Warn().Str("field", d.Field).Str("declared", d.Declared).Str("live", d.Live).Msg("Volume drift detected, not repairing")
		}
	}
	for _, a := range result.Actions {
		metrics.ActionsTotal.WithLabelValues(string(a.Kind), "ok").Inc()
		b.broker.Publish(events.New(eventFor(a.Kind), a.Resource, a.String()).With("run_id", b.runID))
	}

	if err != nil {
		result.Err = err
		class := errorClass(err)
		metrics.ResourceFailuresTotal.WithLabelValues(ref.Kind, class).Inc()
		b.broker.Publish(events.New(events.EventResourceFailed, ref.String(), err.Error()).With("class", class))
		logger.Error().Err(err).Str("class", class).Msg("Resource failed, continuing with the next one")
		return result
	}

	if len(result.Actions) == 0 {
		logger.Debug().Msg("Resource in sync")
	} else {
		logger.Info().Int("actions", len(result.Actions)).Msg("Resource reconciled")
	}
	return result
}

func (b *Batch) finish(report *Report) {
	report.FinishedAt = time.Now()

	var errs []error
	for _, res := range report.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Resource, res.Err))
		}
	}
	report.Err = errors.Join(errs...)

	b.logger.Info().
		Int("resources", len(report.Results)).
		Int("changed", report.Changed()).
		Int("failed", len(errs)).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Bool("dry_run", report.DryRun).
		Msg("Reconciliation batch finished")

	if !report.DryRun {
		msg := fmt.Sprintf("%d changed, %d failed", report.Changed(), len(errs))
		b.broker.Publish(events.New(events.EventBatchCompleted, "", msg).With("run_id", b.runID))
	}
}

func eventFor(kind types.ActionKind) events.EventType {
	switch kind {
	case types.ActionProbe:
		return events.EventPeerProbed
	case types.ActionDetach:
		return events.EventPeerDetached
	case types.ActionCreate:
		return events.EventVolumeCreated
	case types.ActionStart:
		return events.EventVolumeStarted
	case types.ActionStop:
		return events.EventVolumeStopped
	default:
		return events.EventVolumeDeleted
	}
}

func errorClass(err error) string {
	var (
		verr     *types.ValidationError
		execErr  *executor.ExecutionError
		parseErr *parser.ParseError
	)
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &execErr):
		return "execution"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
