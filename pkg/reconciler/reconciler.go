package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/manifest"
	"github.com/cuemby/gluster-reconciler/pkg/metrics"
	"github.com/cuemby/gluster-reconciler/pkg/storage"
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

// DefaultInterval is the watch loop period
const DefaultInterval = 30 * time.Second

// ManifestLoader returns the declared state for the next batch. It is called
// once per batch so edits to the manifest are picked up.
type ManifestLoader func() (*manifest.Manifest, error)

// Reconciler runs a fresh batch per tick and keeps the run history
type Reconciler struct {
	cfg          Config
	load         ManifestLoader
	interval     time.Duration
	store        storage.Store
	historyLimit int
	health       *metrics.HealthChecker

	mu       sync.Mutex // one batch at a time
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	logger   zerolog.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(cfg Config, load ManifestLoader, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		cfg:      cfg,
		load:     load,
		interval: interval,
		done:     make(chan struct{}),
		logger:   log.WithComponent("reconciler"),
	}
}

// WithHistory records every batch in store, keeping the newest limit runs
func (r *Reconciler) WithHistory(store storage.Store, limit int) *Reconciler {
	r.store = store
	r.historyLimit = limit
	return r
}

// WithHealth reports batch outcomes to h
func (r *Reconciler) WithHealth(h *metrics.HealthChecker) *Reconciler {
	r.health = h
	return r
}

// Start begins the reconciliation loop. The first batch runs immediately.
func (r *Reconciler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.run(ctx)
}

// Stop stops the loop and waits for a running batch to finish its current
// command
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel == nil {
			close(r.done)
			return
		}
		r.cancel()
		<-r.done
	})
}

// run is the main reconciliation loop
func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	if _, err := r.Reconcile(ctx, types.RunModeWatch); err != nil {
		// Already logged per resource; keep watching
		r.logger.Debug().Err(err).Msg("Batch finished with errors")
	}
}

// Reconcile loads the manifest and runs one batch. The report is nil only
// when the manifest cannot be loaded.
func (r *Reconciler) Reconcile(ctx context.Context, mode types.RunMode) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to load manifest")
		r.updateHealth(nil, err)
		return nil, err
	}

	batch := NewBatch(r.cfg, m)
	report, err := batch.Run(ctx)
	r.updateHealth(report, err)
	r.record(report, mode, m.Source)
	return report, err
}

func (r *Reconciler) updateHealth(report *Report, err error) {
	if r.health == nil {
		return
	}
	if report != nil && report.Aborted {
		r.health.UpdateComponent(metrics.ComponentGluster, false, report.Err.Error())
	} else if report != nil {
		r.health.UpdateComponent(metrics.ComponentGluster, true, "")
	}
	if err != nil {
		r.health.UpdateComponent(metrics.ComponentReconciler, false, err.Error())
	} else {
		r.health.UpdateComponent(metrics.ComponentReconciler, true, "")
	}
}

func (r *Reconciler) record(report *Report, mode types.RunMode, source string) {
	if r.store == nil || r.historyLimit < 0 {
		return
	}
	if err := r.store.SaveRun(report.Record(mode, source)); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to save run history")
		return
	}
	if removed, err := r.store.PruneRuns(r.historyLimit); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to prune run history")
	} else if removed > 0 {
		r.logger.Debug().Int("removed", removed).Msg("Pruned run history")
	}
}
