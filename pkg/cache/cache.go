package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/metrics"
	"github.com/cuemby/gluster-reconciler/pkg/parser"
	"github.com/cuemby/gluster-reconciler/pkg/peer"
	"github.com/cuemby/gluster-reconciler/pkg/types"
	"github.com/cuemby/gluster-reconciler/pkg/volume"
)

// ErrAlreadyPrefetched is returned when Prefetch runs twice on one cache
var ErrAlreadyPrefetched = errors.New("cache already prefetched")

// ErrNotPrefetched is returned by accessors used before Prefetch
var ErrNotPrefetched = errors.New("cache not prefetched")

// Instance is a live volume exposed as an ensure=present handle
type Instance struct {
	Name   string
	Ensure types.VolumeEnsure
	Record *types.VolumeRecord
}

// Index is the live state snapshot of one batch. It is built once and only
// read afterwards.
type Index struct {
	volumes  *gocache.Cache // name -> *types.VolumeRecord
	peers    []*types.PeerRecord
	declared map[string]bool
	degraded bool
}

func newIndex(declared []string) *Index {
	idx := &Index{
		volumes:  gocache.New(gocache.NoExpiration, 0),
		declared: make(map[string]bool, len(declared)),
	}
	for _, name := range declared {
		idx.declared[name] = true
	}
	return idx
}

func (idx *Index) add(rec *types.VolumeRecord) {
	idx.volumes.Set(rec.Name, rec, gocache.NoExpiration)
}

// Volume returns the live record for name, or nil when the volume is absent
func (idx *Index) Volume(name string) *types.VolumeRecord {
	v, ok := idx.volumes.Get(name)
	if !ok {
		return nil
	}
	return v.(*types.VolumeRecord)
}

// Peers returns the peer roster read during prefetch
func (idx *Index) Peers() []*types.PeerRecord {
	return idx.peers
}

// Degraded reports whether the bulk volume listing could not be parsed and
// the index was filled by per-volume queries instead. A degraded index only
// knows about declared volumes.
func (idx *Index) Degraded() bool {
	return idx.degraded
}

// Volumes returns every indexed volume sorted by name
func (idx *Index) Volumes() []*types.VolumeRecord {
	items := idx.volumes.Items()
	out := make([]*types.VolumeRecord, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*types.VolumeRecord))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Instances returns every live volume as a present handle, sorted by name.
// Undeclared volumes are included.
func (idx *Index) Instances() []Instance {
	return toInstances(idx.Volumes())
}

// Unmanaged returns the live volumes nobody declared, sorted by name
func (idx *Index) Unmanaged() []*types.VolumeRecord {
	var out []*types.VolumeRecord
	for _, rec := range idx.Volumes() {
		if !idx.declared[rec.Name] {
			out = append(out, rec)
		}
	}
	return out
}

// Cache performs the one bulk read a batch is allowed and holds the result
type Cache struct {
	mu      sync.Mutex
	volumes *volume.Reconciler
	peers   *peer.Reconciler
	index   *Index
	logger  zerolog.Logger
}

// New creates an empty cache
func New(volumes *volume.Reconciler, peers *peer.Reconciler) *Cache {
	return &Cache{
		volumes: volumes,
		peers:   peers,
		logger:  log.WithComponent("cache"),
	}
}

// Prefetch reads the live volume list and peer roster with exactly one
// `volume info` and one `peer status` call and indexes them. declared names
// the volumes of the batch; when the bulk listing cannot be parsed, each of
// them is queried individually instead.
func (c *Cache) Prefetch(ctx context.Context, declared []string) (*Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index != nil {
		return nil, ErrAlreadyPrefetched
	}

	idx := newIndex(declared)

	records, err := c.volumes.AllVolumes(ctx)
	var parseErr *parser.ParseError
	switch {
	case errors.As(err, &parseErr):
		c.logger.Warn().Err(err).Msg("Volume listing unparseable, querying declared volumes one by one")
		if err := c.fetchEach(ctx, idx, declared); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		for _, rec := range records {
			idx.add(rec)
		}
	}

	idx.peers, err = c.peers.PeersPresent(ctx)
	if err != nil {
		return nil, err
	}

	metrics.RecordPeers(idx.peers)
	if !idx.degraded {
		metrics.RecordVolumes(idx.Volumes())
		metrics.UnmanagedVolumes.Set(float64(len(idx.Unmanaged())))
	}

	c.logger.Debug().
		Int("volumes", idx.volumes.ItemCount()).
		Int("peers", len(idx.peers)).
		Bool("degraded", idx.degraded).
		Msg("Prefetched live state")

	c.index = idx
	return idx, nil
}

func (c *Cache) fetchEach(ctx context.Context, idx *Index, declared []string) error {
	idx.degraded = true
	for _, name := range declared {
		rec, err := c.volumes.Info(ctx, name)
		if err != nil {
			return fmt.Errorf("volume listing unparseable and per-volume query failed for %s: %w", name, err)
		}
		if rec != nil {
			idx.add(rec)
		}
	}
	return nil
}

// Index returns the prefetched index, or nil before Prefetch
func (c *Cache) Index() *Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// AllVolumes returns every live volume, from the index when prefetched and
// from a fresh `volume info` otherwise
func (c *Cache) AllVolumes(ctx context.Context) ([]*types.VolumeRecord, error) {
	if idx := c.Index(); idx != nil && !idx.degraded {
		return idx.Volumes(), nil
	}
	records, err := c.volumes.AllVolumes(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// Instances returns every live volume as a present handle, sorted by name
func (c *Cache) Instances(ctx context.Context) ([]Instance, error) {
	records, err := c.AllVolumes(ctx)
	if err != nil {
		return nil, err
	}
	return toInstances(records), nil
}

// Unmanaged returns the live volumes the batch did not declare
func (c *Cache) Unmanaged() ([]*types.VolumeRecord, error) {
	idx := c.Index()
	if idx == nil {
		return nil, ErrNotPrefetched
	}
	return idx.Unmanaged(), nil
}

func toInstances(records []*types.VolumeRecord) []Instance {
	out := make([]Instance, len(records))
	for i, rec := range records {
		out[i] = Instance{Name: rec.Name, Ensure: types.VolumePresent, Record: rec}
	}
	return out
}
