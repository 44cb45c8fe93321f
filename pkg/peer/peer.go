package peer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/cuemby/gluster-reconciler/pkg/executor"
	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/parser"
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

// ServiceName is the local storage service a peer is ordered after
const ServiceName = "glusterfs-server"

const (
	DefaultConfirmAttempts = 10
	DefaultConfirmDelay    = 2 * time.Second
)

// Find returns the live record naming identity, or nil
func Find(identity string, live []*types.PeerRecord) *types.PeerRecord {
	for _, p := range live {
		if p.Matches(identity) {
			return p
		}
	}
	return nil
}

// IsInSync reports whether the live roster satisfies ensure for identity.
// Identities in aliases always count as in sync: a node never peers with
// itself.
func IsInSync(identity string, aliases types.LocalAliasSet, live []*types.PeerRecord, ensure types.PeerEnsure) bool {
	if aliases.Contains(identity) {
		return true
	}
	rec := Find(identity, live)
	if ensure == types.PeerAbsent {
		return rec == nil
	}
	return rec != nil && rec.Connected()
}

// Catalog answers whether a resource is declared
type Catalog interface {
	Has(ref types.ResourceRef) bool
}

// AutoRequire returns the resources a peer must be ordered after: the local
// storage service, only when the catalog declares it
func AutoRequire(catalog Catalog) []types.ResourceRef {
	svc := types.ResourceRef{Kind: "Service", Name: ServiceName}
	if catalog != nil && catalog.Has(svc) {
		return []types.ResourceRef{svc}
	}
	return nil
}

// NotConfirmedError lists peers that never reached the connected state
type NotConfirmedError struct {
	Hosts []string
}

func (e *NotConfirmedError) Error() string {
	return "peers not confirmed in cluster: " + strings.Join(e.Hosts, ", ")
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithConfirm sets how often and how far apart Confirm re-reads peer status
func WithConfirm(attempts uint, delay time.Duration) Option {
	if attempts == 0 {
		attempts = 1
	}
	return func(r *Reconciler) {
		r.confirmAttempts = attempts
		r.confirmDelay = delay
	}
}

// Reconciler probes and detaches peers through the gluster CLI
type Reconciler struct {
	runner          executor.Runner
	aliases         types.LocalAliasSet
	confirmAttempts uint
	confirmDelay    time.Duration
	logger          zerolog.Logger
}

// NewReconciler creates a peer reconciler. aliases is the finalized
// LocalAliasSet for this host.
func NewReconciler(runner executor.Runner, aliases types.LocalAliasSet, opts ...Option) *Reconciler {
	r := &Reconciler{
		runner:          runner,
		aliases:         aliases,
		confirmAttempts: DefaultConfirmAttempts,
		confirmDelay:    DefaultConfirmDelay,
		logger:          log.WithComponent("peer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Aliases returns the host's alias set
func (r *Reconciler) Aliases() types.LocalAliasSet {
	return r.aliases
}

// AliasesFor returns the alias set for one declared peer: its overrides
// first, then the host's
func (r *Reconciler) AliasesFor(spec *types.PeerSpec) types.LocalAliasSet {
	return r.aliases.With(spec.LocalPeerAliases)
}

// PeersPresent runs `peer status` and parses the roster
func (r *Reconciler) PeersPresent(ctx context.Context) ([]*types.PeerRecord, error) {
	out, err := r.runner.Run(ctx, executor.PeerStatusArgs()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list peers: %w", err)
	}
	return parser.ParsePeers(out)
}

// Plan returns the action needed to bring spec in sync with live, or nil
func (r *Reconciler) Plan(spec *types.PeerSpec, live []*types.PeerRecord) (*types.Action, error) {
	if err := spec.Validate(); err != nil {
		return nil, withResource(err, spec)
	}
	ensure, _ := types.ParsePeerEnsure(string(spec.Ensure))
	if IsInSync(spec.Peer, r.AliasesFor(spec), live, ensure) {
		return nil, nil
	}
	action := &types.Action{Resource: resourceName(spec)}
	if ensure == types.PeerAbsent {
		action.Kind = types.ActionDetach
		action.Args = executor.PeerDetachArgs(spec.Peer)
	} else {
		action.Kind = types.ActionProbe
		action.Args = executor.PeerProbeArgs(spec.Peer)
	}
	return action, nil
}

// EnsurePresent probes the peer unless it is already in sync. Probing an
// existing member is absorbed as success by the executor.
func (r *Reconciler) EnsurePresent(ctx context.Context, spec *types.PeerSpec, live []*types.PeerRecord) (*types.Action, error) {
	s := *spec
	s.Ensure = types.PeerPresent
	return r.apply(ctx, &s, live)
}

// EnsureAbsent detaches the peer unless it is already gone or is this host
func (r *Reconciler) EnsureAbsent(ctx context.Context, spec *types.PeerSpec, live []*types.PeerRecord) (*types.Action, error) {
	s := *spec
	s.Ensure = types.PeerAbsent
	return r.apply(ctx, &s, live)
}

// Apply brings one declared peer in sync with the live roster
func (r *Reconciler) Apply(ctx context.Context, spec *types.PeerSpec, live []*types.PeerRecord) (*types.Action, error) {
	return r.apply(ctx, spec, live)
}

func (r *Reconciler) apply(ctx context.Context, spec *types.PeerSpec, live []*types.PeerRecord) (*types.Action, error) {
	action, err := r.Plan(spec, live)
	if err != nil || action == nil {
		return nil, err
	}

	logger := log.WithPeer(spec.Peer)
	logger.Info().Str("action", string(action.Kind)).Msg("Reconciling peer")
	if _, err := r.runner.Run(ctx, action.Args...); err != nil {
		return action, fmt.Errorf("failed to %s peer %s: %w", action.Kind, spec.Peer, err)
	}
	return action, nil
}

// Confirm re-reads peer status until every host is a connected member.
// Hosts in the local alias set are confirmed without looking. Only read-only
// commands are repeated.
func (r *Reconciler) Confirm(ctx context.Context, hosts []string) error {
	var pending []string
	for _, h := range hosts {
		if !r.aliases.Contains(h) {
			pending = append(pending, h)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	err := retry.Do(
		func() error {
			live, err := r.PeersPresent(ctx)
			if err != nil {
				return err
			}
			var missing []string
			for _, h := range pending {
				if !IsInSync(h, r.aliases, live, types.PeerPresent) {
					missing = append(missing, h)
				}
			}
			if len(missing) > 0 {
				return &NotConfirmedError{Hosts: missing}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.confirmAttempts),
		retry.Delay(r.confirmDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Debug().Uint("attempt", n+1).Err(err).Msg("Waiting for peers to join")
		}),
	)
	if err == nil {
		return nil
	}
	var notConfirmed *NotConfirmedError
	if errors.As(err, &notConfirmed) {
		return notConfirmed
	}
	return fmt.Errorf("failed to confirm peers %s: %w", strings.Join(pending, ", "), err)
}

func resourceName(spec *types.PeerSpec) string {
	return types.ResourceRef{Kind: "Peer", Name: spec.Peer}.String()
}

func withResource(err error, spec *types.PeerSpec) error {
	var verr *types.ValidationError
	if errors.As(err, &verr) && verr.Resource == "" {
		verr.Resource = resourceName(spec)
	}
	return err
}
