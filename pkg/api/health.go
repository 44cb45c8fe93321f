package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/metrics"
)

// HealthServer serves /health, /ready and /metrics for watch mode
type HealthServer struct {
	checker *metrics.HealthChecker
	mux     *http.ServeMux
	logger  zerolog.Logger

	mu     sync.Mutex // guards server.Addr
	server *http.Server
}

// NewHealthServer creates a new health check HTTP server
func NewHealthServer(checker *metrics.HealthChecker) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		checker: checker,
		mux:     mux,
		logger:  log.WithComponent("api"),
		server: &http.Server{
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	mux.HandleFunc("/health", getOnly(checker.HealthHandler()))
	mux.HandleFunc("/ready", getOnly(checker.ReadyHandler()))
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// Start serves on addr until Shutdown. It returns nil after a clean
// shutdown, including one that happened before Start.
func (hs *HealthServer) Start(addr string) error {
	hs.mu.Lock()
	hs.server.Addr = addr
	hs.mu.Unlock()

	hs.logger.Info().Str("addr", addr).Msg("Serving health and metrics")
	if err := hs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server. A later Start returns immediately.
func (hs *HealthServer) Shutdown(ctx context.Context) error {
	return hs.server.Shutdown(ctx)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
