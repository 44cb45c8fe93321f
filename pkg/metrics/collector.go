package metrics

import (
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

// RecordPeers updates the peer gauges from a freshly parsed roster
func RecordPeers(peers []*types.PeerRecord) {
	counts := map[types.PeerState]int{
		types.PeerStateConnected:    0,
		types.PeerStateDisconnected: 0,
		types.PeerStateUnknown:      0,
	}
	for _, p := range peers {
		counts[p.State]++
	}
	for state, n := range counts {
		PeersTotal.WithLabelValues(string(state)).Set(float64(n))
	}
}

// RecordVolumes updates the volume gauges from a freshly parsed volume list
func RecordVolumes(volumes []*types.VolumeRecord) {
	counts := map[types.VolumeStatus]int{
		types.VolumeStatusCreated: 0,
		types.VolumeStatusStarted: 0,
		types.VolumeStatusStopped: 0,
	}
	for _, v := range volumes {
		counts[v.Status]++
	}
	for status, n := range counts {
		VolumesTotal.WithLabelValues(string(status)).Set(float64(n))
	}
}
