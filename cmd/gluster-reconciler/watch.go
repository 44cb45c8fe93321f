package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/gluster-reconciler/pkg/api"
	"github.com/cuemby/gluster-reconciler/pkg/events"
	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/manifest"
	"github.com/cuemby/gluster-reconciler/pkg/metrics"
	"github.com/cuemby/gluster-reconciler/pkg/reconciler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile a manifest continuously",
	Long: `Run a reconciliation batch on a fixed interval until interrupted. The
manifest is re-read before every batch. Health, readiness and Prometheus
metrics are served on --metrics-addr.

Examples:
  gluster-reconciler watch -f cluster.yaml --interval 1m`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringP("file", "f", "", "Manifest file (required)")
	watchCmd.Flags().Duration("interval", 0, "Time between batches (overrides settings)")
	watchCmd.Flags().String("metrics-addr", "", "Listen address for /health, /ready and /metrics (overrides settings)")
	_ = watchCmd.MarkFlagRequired("file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	interval := e.cfg.Watch.Interval
	if d, _ := cmd.Flags().GetDuration("interval"); d > 0 {
		interval = d
	}
	addr := e.cfg.Watch.MetricsAddr
	if a, _ := cmd.Flags().GetString("metrics-addr"); a != "" {
		addr = a
	}
	logger := log.WithComponent("watch")

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for ev := range sub {
			logger.Info().
				Str("event", string(ev.Type)).
				Str("resource", ev.Resource).
				Msg(ev.Message)
		}
	}()
	e.batch.Broker = broker

	health := metrics.NewHealthChecker(Version, metrics.ComponentGluster, metrics.ComponentReconciler)
	r := reconciler.NewReconciler(e.batch, func() (*manifest.Manifest, error) {
		return manifest.Load(filename)
	}, interval).WithHealth(health)

	store, err := e.openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		r.WithHistory(store, e.cfg.HistoryLimit)
	}

	server := api.NewHealthServer(health)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(addr)
	}()

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info().Str("manifest", filename).Dur("interval", interval).Msg("Watching")
	r.Start()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	case err = <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("Health server failed")
		}
	}

	r.Stop()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Warn().Err(serr).Msg("Health server shutdown")
	}
	return err
}
