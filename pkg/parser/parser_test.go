package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/gluster-reconciler/pkg/types"
)

func TestParsePeers(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    []*types.PeerRecord
		wantErr bool
	}{
		{
			name:   "no peers",
			output: "Number of Peers: 0\n",
			want:   []*types.PeerRecord{},
		},
		{
			name: "connected and disconnected peers",
			output: `Number of Peers: 2

Hostname: gfs2.local
Uuid: 6770f88c-9ec5-4cf8-a5b5-ff2d4a2a0b38
State: Peer in Cluster (Connected)

Hostname: 10.0.0.3
Uuid: 1c2a6a59-52b1-4d8e-b3a8-0d3b7b7e0a11
State: Peer in Cluster (Disconnected)
`,
			want: []*types.PeerRecord{
				{Hostname: "gfs2.local", UUID: "6770f88c-9ec5-4cf8-a5b5-ff2d4a2a0b38", State: types.PeerStateConnected},
				{Hostname: "10.0.0.3", UUID: "1c2a6a59-52b1-4d8e-b3a8-0d3b7b7e0a11", State: types.PeerStateDisconnected},
			},
		},
		{
			name: "other names",
			output: `Number of Peers: 1

Hostname: 10.0.0.2
Uuid: 6770f88c-9ec5-4cf8-a5b5-ff2d4a2a0b38
State: Peer in Cluster (Connected)
Other names:
gfs2.local
gfs2
`,
			want: []*types.PeerRecord{
				{
					Hostname:   "10.0.0.2",
					UUID:       "6770f88c-9ec5-4cf8-a5b5-ff2d4a2a0b38",
					State:      types.PeerStateConnected,
					OtherNames: []string{"gfs2.local", "gfs2"},
				},
			},
		},
		{
			name: "peer still joining is unknown",
			output: `Number of Peers: 1

Hostname: gfs3.local
Uuid: 00000000-0000-0000-0000-000000000003
State: Accepted peer request (Connected)
`,
			want: []*types.PeerRecord{
				{Hostname: "gfs3.local", UUID: "00000000-0000-0000-0000-000000000003", State: types.PeerStateUnknown},
			},
		},
		{
			name: "malformed block is skipped",
			output: `Number of Peers: 2

Hostname: gfs2.local
Uuid: 6770f88c-9ec5-4cf8-a5b5-ff2d4a2a0b38

Hostname: gfs3.local
Uuid: 00000000-0000-0000-0000-000000000003
State: Peer in Cluster (Connected)
`,
			want: []*types.PeerRecord{
				{Hostname: "gfs3.local", UUID: "00000000-0000-0000-0000-000000000003", State: types.PeerStateConnected},
			},
		},
		{
			name:    "empty output",
			output:  "  \n",
			wantErr: true,
		},
		{
			name:    "unrecognizable output",
			output:  "Connection failed. Please check if gluster daemon is operational.\n",
			wantErr: true,
		},
		{
			name:    "bad peer count",
			output:  "Number of Peers: many\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeers(tt.output)
			if tt.wantErr {
				var parseErr *ParseError
				require.Error(t, err)
				assert.True(t, errors.As(err, &parseErr))
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePeers() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

const twoVolumes = `
Volume Name: vol1
Type: Replicate
Volume ID: 8f2c6f0e-5a53-4c6a-9d0f-4a8c0e1b7f01
Status: Started
Snapshot Count: 0
Number of Bricks: 1 x 2 = 2
Transport-type: tcp
Bricks:
Brick1: gfs1.local:/data/brick1/vol1
Brick2: gfs2.local:/data/brick1/vol1
Options Reconfigured:
transport.address-family: inet
performance.client-io-threads: off

Volume Name: vol2
Type: Distribute
Volume ID: 1d7d8f3e-1111-4c6a-9d0f-4a8c0e1b7f02
Status: Stopped
Snapshot Count: 0
Number of Bricks: 2
Transport-type: tcp
Bricks:
Brick1: gfs1.local:/data/brick2/vol2
Brick2: gfs2.local:/data/brick2/vol2
`

func TestParseVolumes(t *testing.T) {
	got, err := ParseVolumes(twoVolumes)
	require.NoError(t, err)

	want := []*types.VolumeRecord{
		{
			Name:      "vol1",
			ID:        "8f2c6f0e-5a53-4c6a-9d0f-4a8c0e1b7f01",
			Type:      "Replicate",
			Status:    types.VolumeStatusStarted,
			Replica:   2,
			Transport: "tcp",
			Bricks: []types.Brick{
				{Host: "gfs1.local", Path: "/data/brick1/vol1"},
				{Host: "gfs2.local", Path: "/data/brick1/vol1"},
			},
			Options: map[string]string{
				"transport.address-family":      "inet",
				"performance.client-io-threads": "off",
			},
		},
		{
			Name:      "vol2",
			ID:        "1d7d8f3e-1111-4c6a-9d0f-4a8c0e1b7f02",
			Type:      "Distribute",
			Status:    types.VolumeStatusStopped,
			Transport: "tcp",
			Bricks: []types.Brick{
				{Host: "gfs1.local", Path: "/data/brick2/vol2"},
				{Host: "gfs2.local", Path: "/data/brick2/vol2"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseVolumes() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVolumes_EdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantNames []string
		wantErr   bool
	}{
		{
			name:      "no volumes present",
			output:    "No volumes present\n",
			wantNames: []string{},
		},
		{
			name: "volume without bricks is kept",
			output: `Volume Name: empty
Type: Distribute
Status: Created
Number of Bricks: 0
Transport-type: tcp
Bricks:
`,
			wantNames: []string{"empty"},
		},
		{
			name: "unknown status is skipped",
			output: `Volume Name: weird
Type: Distribute
Status: Rebalancing
Bricks:
Brick1: gfs1.local:/b

Volume Name: ok
Type: Distribute
Status: Started
Bricks:
Brick1: gfs1.local:/b2
`,
			wantNames: []string{"ok"},
		},
		{
			name:    "empty output",
			output:  "",
			wantErr: true,
		},
		{
			name:    "garbage",
			output:  "volume info: failed: Another transaction is in progress\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVolumes(tt.output)
			if tt.wantErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, "volume info", parseErr.Kind)
				return
			}
			require.NoError(t, err)
			names := make([]string, 0, len(got))
			for _, v := range got {
				names = append(names, v.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestParseVolumes_ArbiterAndLayout(t *testing.T) {
	output := `Volume Name: arb
Type: Distributed-Replicate
Status: Started
Number of Bricks: 2 x (2 + 1) = 6
Bricks:
Brick1: gfs1.local:/data/a
Brick2: gfs2.local:/data/a
Brick3: gfs3.local:/data/a (arbiter)
`
	got, err := ParseVolumes(output)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.Brick{Host: "gfs3.local", Path: "/data/a"}, got[0].Bricks[2])
	assert.Equal(t, types.VolumeStatusStarted, got[0].Status)
	assert.Equal(t, 3, got[0].Replica, "two data bricks plus an arbiter form a replica 3 set")
	assert.Equal(t, 0, got[0].Stripe)
}

func TestLayoutCounts(t *testing.T) {
	tests := []struct {
		volType     string
		brickCount  string
		wantReplica int
		wantStripe  int
	}{
		{"Distribute", "2", 0, 0},
		{"Replicate", "1 x 3 = 3", 3, 0},
		{"Distributed-Replicate", "2 x 2 = 4", 2, 0},
		{"Stripe", "1 x 2 = 2", 0, 2},
		{"Striped-Replicate", "1 x 2 x 2 = 4", 2, 2},
		{"Distributed-Striped-Replicate", "2 x 2 x 2 = 8", 2, 2},
		{"Replicate", "1 x (2 + 1) = 3", 3, 0},
		{"Distributed-Replicate", "2 x (2 + 1) = 6", 3, 0},
		{"Disperse", "1 x (2 + 1) = 3", 0, 0},
		{"Distributed-Disperse", "2 x (4 + 2) = 12", 0, 0},
		{"Replicate", "1 x (2 + x) = 3", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.volType+" "+tt.brickCount, func(t *testing.T) {
			replica, stripe := layoutCounts(tt.volType, tt.brickCount)
			assert.Equal(t, tt.wantReplica, replica)
			assert.Equal(t, tt.wantStripe, stripe)
		})
	}
}
