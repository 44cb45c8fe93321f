package reconciler

import (
	"context"

	"github.com/cuemby/gluster-reconciler/pkg/cache"
	"github.com/cuemby/gluster-reconciler/pkg/manifest"
	"github.com/cuemby/gluster-reconciler/pkg/peer"
	"github.com/cuemby/gluster-reconciler/pkg/types"
	"github.com/cuemby/gluster-reconciler/pkg/volume"
)

// Resource is one declared peer or volume inside a batch
type Resource interface {
	Ref() types.ResourceRef

	// FetchLiveState attaches the resource's live record from the index
	FetchLiveState(idx *cache.Index)

	// ComputeActions returns the commands Apply would issue, without
	// issuing any, plus detected drift
	ComputeActions() ([]types.Action, []types.Drift, error)

	// Apply issues the commands and returns the ones that ran
	Apply(ctx context.Context) ([]types.Action, error)
}

// PeerResource is a declared trusted-pool member
type PeerResource struct {
	spec  *types.PeerSpec
	peers *peer.Reconciler
	live  []*types.PeerRecord
}

func NewPeerResource(spec *types.PeerSpec, peers *peer.Reconciler) *PeerResource {
	return &PeerResource{spec: spec, peers: peers}
}

func (r *PeerResource) Ref() types.ResourceRef {
	return types.ResourceRef{Kind: manifest.KindPeer, Name: r.spec.Peer}
}

func (r *PeerResource) FetchLiveState(idx *cache.Index) {
	r.live = idx.Peers()
}

func (r *PeerResource) ComputeActions() ([]types.Action, []types.Drift, error) {
	action, err := r.peers.Plan(r.spec, r.live)
	if err != nil || action == nil {
		return nil, nil, err
	}
	return []types.Action{*action}, nil, nil
}

func (r *PeerResource) Apply(ctx context.Context) ([]types.Action, error) {
	action, err := r.peers.Apply(ctx, r.spec, r.live)
	if err != nil || action == nil {
		return nil, err
	}
	return []types.Action{*action}, nil
}

// VolumeResource is a declared volume
type VolumeResource struct {
	spec    *types.VolumeSpec
	volumes *volume.Reconciler
	live    *types.VolumeRecord
}

func NewVolumeResource(spec *types.VolumeSpec, volumes *volume.Reconciler) *VolumeResource {
	return &VolumeResource{spec: spec, volumes: volumes}
}

func (r *VolumeResource) Ref() types.ResourceRef {
	return types.ResourceRef{Kind: manifest.KindVolume, Name: r.spec.Name}
}

func (r *VolumeResource) FetchLiveState(idx *cache.Index) {
	r.live = idx.Volume(r.spec.Name)
}

// Plan returns the full volume plan, including the brick hosts a create
// depends on
func (r *VolumeResource) Plan() (*volume.Plan, error) {
	return volume.ComputePlan(r.spec, r.live)
}

func (r *VolumeResource) ComputeActions() ([]types.Action, []types.Drift, error) {
	plan, err := r.Plan()
	if err != nil {
		return nil, nil, err
	}
	return plan.Actions, plan.Drift, nil
}

func (r *VolumeResource) Apply(ctx context.Context) ([]types.Action, error) {
	result, err := r.volumes.Apply(ctx, r.spec, r.live)
	if result == nil {
		return nil, err
	}
	return result.Executed, err
}
