package volume

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/gluster-reconciler/pkg/executor"
	"github.com/cuemby/gluster-reconciler/pkg/executor/fake"
	"github.com/cuemby/gluster-reconciler/pkg/parser"
	"github.com/cuemby/gluster-reconciler/pkg/peer"
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

var self = []string{"gfs1.local", "gfs1", "10.0.0.1"}

func vol1(ensure types.VolumeEnsure) *types.VolumeSpec {
	return &types.VolumeSpec{
		Name:    "vol1",
		Replica: 2,
		Bricks: []types.Brick{
			{Host: "gfs1.local", Path: "/data/brick1/vol1"},
			{Host: "gfs2.local", Path: "/data/brick1/vol1"},
		},
		Ensure: ensure,
	}
}

func newReconciler(runner executor.Runner) *Reconciler {
	aliases := types.NewLocalAliasSet(nil, self...)
	peers := peer.NewReconciler(runner, aliases, peer.WithConfirm(3, time.Millisecond))
	return NewReconciler(runner, peers)
}

func kinds(actions []types.Action) []types.ActionKind {
	out := make([]types.ActionKind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}

func TestComputePlan_StateMachine(t *testing.T) {
	started := &types.VolumeRecord{Name: "vol1", Status: types.VolumeStatusStarted, Replica: 2, Bricks: vol1("").Bricks}
	stopped := &types.VolumeRecord{Name: "vol1", Status: types.VolumeStatusStopped, Replica: 2, Bricks: vol1("").Bricks}
	created := &types.VolumeRecord{Name: "vol1", Status: types.VolumeStatusCreated, Replica: 2, Bricks: vol1("").Bricks}

	tests := []struct {
		name        string
		live        *types.VolumeRecord
		ensure      types.VolumeEnsure
		wantCurrent State
		want        []types.ActionKind
	}{
		{"absent to present", nil, types.VolumePresent, StateAbsent, []types.ActionKind{types.ActionCreate, types.ActionStart}},
		{"absent to started", nil, types.VolumeStarted, StateAbsent, []types.ActionKind{types.ActionCreate, types.ActionStart}},
		{"absent to stopped", nil, types.VolumeStopped, StateAbsent, []types.ActionKind{types.ActionCreate}},
		{"absent to absent", nil, types.VolumeAbsent, StateAbsent, []types.ActionKind{}},
		{"stopped to started", stopped, types.VolumeStarted, StateStopped, []types.ActionKind{types.ActionStart}},
		{"created to started", created, types.VolumePresent, StateStopped, []types.ActionKind{types.ActionStart}},
		{"stopped to stopped", stopped, types.VolumeStopped, StateStopped, []types.ActionKind{}},
		{"stopped to absent", stopped, types.VolumeAbsent, StateStopped, []types.ActionKind{types.ActionDelete}},
		{"started to started", started, types.VolumeStarted, StateStarted, []types.ActionKind{}},
		{"started to stopped", started, types.VolumeStopped, StateStarted, []types.ActionKind{types.ActionStop}},
		{"started to absent", started, types.VolumeAbsent, StateStarted, []types.ActionKind{types.ActionStop, types.ActionDelete}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ComputePlan(vol1(tt.ensure), tt.live)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCurrent, plan.Current)
			assert.Equal(t, tt.want, kinds(plan.Actions))
			assert.Empty(t, plan.Drift)
			assert.Equal(t, len(tt.want) == 0, plan.InSync())
		})
	}
}

func TestComputePlan_CreateRequiresPeers(t *testing.T) {
	plan, err := ComputePlan(vol1(types.VolumePresent), nil)
	require.NoError(t, err)

	assert.True(t, plan.Creates())
	assert.Equal(t, []string{"gfs1.local", "gfs2.local"}, plan.PeersRequired)
	assert.Equal(t,
		[]string{"volume", "create", "vol1", "replica", "2", "gfs1.local:/data/brick1/vol1", "gfs2.local:/data/brick1/vol1"},
		plan.Actions[0].Args)
}

func TestComputePlan_Validation(t *testing.T) {
	tests := []struct {
		name string
		spec *types.VolumeSpec
	}{
		{"bad ensure", &types.VolumeSpec{Name: "vol1", Ensure: "running", Bricks: vol1("").Bricks}},
		{"replica of one", &types.VolumeSpec{Name: "vol1", Replica: 1, Bricks: vol1("").Bricks}},
		{"bricks not a multiple of replica", &types.VolumeSpec{Name: "vol1", Replica: 3, Bricks: vol1("").Bricks}},
		{"no bricks", &types.VolumeSpec{Name: "vol1"}},
		{"bad transport", &types.VolumeSpec{Name: "vol1", Transport: "udp", Bricks: vol1("").Bricks}},
		{"duplicate brick", &types.VolumeSpec{Name: "vol1", Bricks: []types.Brick{{Host: "a", Path: "/b"}, {Host: "a", Path: "/b"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputePlan(tt.spec, nil)
			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "Volume[vol1]", verr.Resource)
		})
	}

	// Bricks are not needed to remove a volume
	_, err := ComputePlan(&types.VolumeSpec{Name: "vol1", Ensure: types.VolumeAbsent}, nil)
	assert.NoError(t, err)
}

func TestDetectDrift(t *testing.T) {
	spec := vol1(types.VolumePresent)
	spec.Transport = "tcp"
	live := &types.VolumeRecord{
		Name:      "vol1",
		Status:    types.VolumeStatusStarted,
		Replica:   2,
		Transport: "rdma",
		Bricks: []types.Brick{
			{Host: "gfs2.local", Path: "/data/brick1/vol1"},
			{Host: "gfs1.local", Path: "/data/brick1/vol1"},
		},
	}

	plan, err := ComputePlan(spec, live)
	require.NoError(t, err)
	assert.True(t, plan.InSync(), "drift must not produce actions")
	require.Len(t, plan.Drift, 2)
	assert.Equal(t, "bricks", plan.Drift[0].Field)
	assert.Equal(t, "transport", plan.Drift[1].Field)

	live.Replica = 3
	live.Bricks = spec.Bricks
	live.Transport = ""
	drift := DetectDrift(spec, live)
	require.Len(t, drift, 1)
	assert.Equal(t, types.Drift{Volume: "vol1", Field: "replica", Declared: "2", Live: "3"}, drift[0])
}

func TestDetectDrift_ArbiterVolume(t *testing.T) {
	records, err := parser.ParseVolumes(`Volume Name: arb
Type: Replicate
Volume ID: 7f0e2c1a-2b64-4a3b-9d1e-5d8c2f0a9b11
Status: Started
Number of Bricks: 1 x (2 + 1) = 3
Transport-type: tcp
Bricks:
Brick1: gfs1.local:/data/arb
Brick2: gfs2.local:/data/arb
Brick3: gfs3.local:/data/arb (arbiter)
`)
	require.NoError(t, err)
	require.Len(t, records, 1)

	spec := &types.VolumeSpec{
		Name:    "arb",
		Replica: 3,
		Bricks: []types.Brick{
			{Host: "gfs1.local", Path: "/data/arb"},
			{Host: "gfs2.local", Path: "/data/arb"},
			{Host: "gfs3.local", Path: "/data/arb"},
		},
		Ensure: types.VolumeStarted,
	}
	assert.Empty(t, DetectDrift(spec, records[0]))
}

func TestApply_CreateAndStart(t *testing.T) {
	cluster := fake.NewCluster(self)
	cluster.AddPeer("gfs2.local", true)
	r := newReconciler(cluster)
	ctx := context.Background()

	assert.Empty(t, cluster.VolumeNames())

	result, err := r.Apply(ctx, vol1(types.VolumePresent), nil)
	require.NoError(t, err)
	assert.Equal(t, []types.ActionKind{types.ActionCreate, types.ActionStart}, kinds(result.Executed))

	assert.Equal(t, []string{"vol1"}, cluster.VolumeNames())
	live, err := r.Info(ctx, "vol1")
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, types.VolumeStatusStarted, live.Status)
	assert.Equal(t, 2, live.Replica)
}

func TestApply_CreateStopped(t *testing.T) {
	cluster := fake.NewCluster(self)
	cluster.AddPeer("gfs2.local", true)
	r := newReconciler(cluster)
	ctx := context.Background()

	_, err := r.Apply(ctx, vol1(types.VolumeStopped), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"vol1"}, cluster.VolumeNames())
	live, err := r.Info(ctx, "vol1")
	require.NoError(t, err)
	assert.Equal(t, StateStopped, CurrentState(live))
}

func TestApply_ProbesBrickPeersFirst(t *testing.T) {
	cluster := fake.NewCluster(self, "gfs2.local")
	cluster.JoinDelay = 1
	r := newReconciler(cluster)

	result, err := r.Apply(context.Background(), vol1(types.VolumePresent), nil)
	require.NoError(t, err)

	assert.Equal(t,
		[]types.ActionKind{types.ActionProbe, types.ActionCreate, types.ActionStart},
		kinds(result.Executed))

	var subcommands []string
	for _, args := range cluster.Calls() {
		subcommands = append(subcommands, executor.Subcommand(args))
	}
	assert.Equal(t, []string{
		"peer status", "peer probe", "peer status", "peer status", "volume create", "volume start",
	}, subcommands)
}

func TestApply_UnconfirmedPeerBlocksCreate(t *testing.T) {
	cluster := fake.NewCluster(self) // gfs2.local unreachable
	r := newReconciler(cluster)

	result, err := r.Apply(context.Background(), vol1(types.VolumePresent), nil)

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bricks", verr.Field)
	assert.True(t, executor.IsExecutionError(err), "cause is kept")
	assert.Empty(t, result.Executed)
	assert.Empty(t, cluster.VolumeNames())
	assert.Zero(t, cluster.CallCount("volume create"))
}

func TestApply_DisconnectedPeerBlocksCreate(t *testing.T) {
	cluster := fake.NewCluster(self)
	cluster.AddPeer("gfs2.local", false)
	r := newReconciler(cluster)

	_, err := r.Apply(context.Background(), vol1(types.VolumePresent), nil)

	var notConfirmed *peer.NotConfirmedError
	require.ErrorAs(t, err, &notConfirmed)
	assert.Equal(t, []string{"gfs2.local"}, notConfirmed.Hosts)
	assert.Zero(t, cluster.CallCount("volume create"))
}

func TestApply_Destroy(t *testing.T) {
	cluster := fake.NewCluster(self)
	cluster.AddPeer("gfs2.local", true)
	spec := vol1(types.VolumePresent)
	cluster.AddVolume(*spec, true)
	r := newReconciler(cluster)
	ctx := context.Background()

	live, err := r.Info(ctx, "vol1")
	require.NoError(t, err)
	assert.Equal(t, []string{"vol1"}, cluster.VolumeNames())

	result, err := r.Apply(ctx, vol1(types.VolumeAbsent), live)
	require.NoError(t, err)
	assert.Equal(t, []types.ActionKind{types.ActionStop, types.ActionDelete}, kinds(result.Executed))

	assert.Empty(t, cluster.VolumeNames())
	live, err = r.Info(ctx, "vol1")
	require.NoError(t, err)
	assert.Equal(t, StateAbsent, CurrentState(live))
}

func TestApply_DestroyToleratesStaleStartedState(t *testing.T) {
	// Cached record says started; someone stopped it since
	cluster := fake.NewCluster(self)
	cluster.AddVolume(*vol1(""), false)
	r := newReconciler(cluster)

	stale := &types.VolumeRecord{Name: "vol1", Status: types.VolumeStatusStarted, Replica: 2, Bricks: vol1("").Bricks}
	_, err := r.Apply(context.Background(), vol1(types.VolumeAbsent), stale)
	require.NoError(t, err)
	assert.Empty(t, cluster.VolumeNames())
}

func TestApply_CommandFailureAbortsRemainingActions(t *testing.T) {
	cluster := fake.NewCluster(self)
	cluster.AddPeer("gfs2.local", true)
	cluster.FailNext("volume create", "volume create: vol1: failed: Staging failed on gfs2.local. Error: /data/brick1/vol1 is already part of a volume")
	r := newReconciler(cluster)

	result, err := r.Apply(context.Background(), vol1(types.VolumePresent), nil)

	require.True(t, executor.IsExecutionError(err))
	assert.Contains(t, err.Error(), "is already part of a volume")
	assert.Empty(t, result.Executed)
	assert.Zero(t, cluster.CallCount("volume start"))
}

func TestApply_InSyncIssuesNothing(t *testing.T) {
	script := fake.NewScript(t)
	r := newReconciler(script)
	live := &types.VolumeRecord{Name: "vol1", Status: types.VolumeStatusStarted, Replica: 2, Bricks: vol1("").Bricks}

	result, err := r.Apply(context.Background(), vol1(types.VolumePresent), live)
	require.NoError(t, err)
	assert.True(t, result.Plan.InSync())
}

func TestInfo_Missing(t *testing.T) {
	cluster := fake.NewCluster(self)
	r := newReconciler(cluster)

	live, err := r.Info(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, live)
}
