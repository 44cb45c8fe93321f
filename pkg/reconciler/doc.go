/*
Package reconciler drives declared peers and volumes toward their desired
state, one batch at a time.

# Architecture

A Batch is built per invocation from a manifest. It owns a cache that reads
the live cluster state exactly once, then walks the declared resources in a
fixed order:

	┌────────────────────────────────────────────────────────────┐
	│                          Batch                             │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	        Prefetch (volume info + peer status)
	                 │
	    ┌────────────┴────────────┐
	    ▼                         ▼
	┌─────────────────┐   ┌──────────────────┐
	│  Peers          │   │  Volumes         │
	│  (declared      │──▶│  (declared       │
	│   order)        │   │   order)         │
	└─────┬───────────┘   └──────┬───────────┘
	      │                      │
	      ▼                      ▼
	  probe / detach        create / start / stop / delete
	                        (brick peers confirmed first)

Every command is issued sequentially. A resource that fails, either because
its declaration is invalid or because a gluster command exits non-zero, is
recorded in the Report and the batch moves on. The error returned by Run
joins all per-resource errors. When the live state cannot be read at all the
batch is aborted before any resource is attempted.

Plan runs the same walk without mutating anything, which is what the plan
command prints.

# Watch Mode

Reconciler runs a fresh batch on a ticker, reloading the manifest each
time. Only one batch runs at a time. Each batch is stored in the run history
and reported to the health checker:

	gluster      healthy when the live state could be read
	reconciler   healthy when no resource failed

# Usage

	cfg := reconciler.Config{Runner: executor.New(""), Aliases: aliases}

	report, err := reconciler.NewBatch(cfg, m).Run(ctx)
	for _, res := range report.Failed() {
		fmt.Println(res.Resource, res.Err)
	}

	r := reconciler.NewReconciler(cfg, load, 30*time.Second).
		WithHistory(store, 100).
		WithHealth(health)
	r.Start()
	defer r.Stop()
*/
package reconciler
