package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/gluster-reconciler/pkg/metrics"
)

func get(hs *HealthServer, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	hs.GetHandler().ServeHTTP(w, req)
	return w
}

func TestHealthServer_Routes(t *testing.T) {
	hs := NewHealthServer(metrics.NewHealthChecker("test"))

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{path: "/health", expectedStatus: http.StatusOK},
		{path: "/ready", expectedStatus: http.StatusServiceUnavailable}, // no batch yet
		{path: "/metrics", expectedStatus: http.StatusOK},
		{path: "/nonexistent", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(hs, http.MethodGet, tt.path)
			assert.Equal(t, tt.expectedStatus, w.Code, "Path: %s", tt.path)
		})
	}
}

func TestHealthServer_MethodValidation(t *testing.T) {
	hs := NewHealthServer(metrics.NewHealthChecker("test"))

	for _, path := range []string{"/health", "/ready"} {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			w := get(hs, method, path)
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code, "%s %s", method, path)
		}
	}
}

func TestHealthServer_ReadyAfterBatch(t *testing.T) {
	checker := metrics.NewHealthChecker("1.0.0")
	hs := NewHealthServer(checker)

	checker.UpdateComponent(metrics.ComponentGluster, true, "")
	checker.UpdateComponent(metrics.ComponentReconciler, false, "Volume[vol1]: exit status 1")

	w := get(hs, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var ready metrics.HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "1.0.0", ready.Version)

	// A failed resource makes the process unhealthy but still ready
	w = get(hs, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var health metrics.HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.Equal(t, "unhealthy", health.Status)
	assert.Contains(t, health.Components[metrics.ComponentReconciler], "exit status 1")
}

func TestHealthServer_ShutdownBeforeStart(t *testing.T) {
	hs := NewHealthServer(metrics.NewHealthChecker("test"))
	require.NoError(t, hs.Shutdown(context.Background()))

	done := make(chan error, 1)
	go func() { done <- hs.Start("127.0.0.1:0") }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
}

func TestHealthServer_ConcurrentStartShutdown(t *testing.T) {
	hs := NewHealthServer(metrics.NewHealthChecker("test"))

	done := make(chan error, 1)
	go func() { done <- hs.Start("127.0.0.1:0") }()
	require.NoError(t, hs.Shutdown(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
}

// freeAddr returns a loopback address nothing listens on
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestHealthServer_StartServesUntilShutdown(t *testing.T) {
	checker := metrics.NewHealthChecker("test")
	checker.UpdateComponent(metrics.ComponentGluster, true, "")
	hs := NewHealthServer(checker)
	addr := freeAddr(t)

	done := make(chan error, 1)
	go func() { done <- hs.Start(addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/ready")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, hs.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
