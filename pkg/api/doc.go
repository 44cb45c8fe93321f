/*
Package api serves the HTTP endpoints of watch mode.

Three routes are exposed on one listener:

	GET /health   200 while every component is healthy, 503 otherwise
	GET /ready    200 once the gluster CLI answered and the first batch ran
	GET /metrics  Prometheus exposition

Health and readiness bodies are the JSON form of metrics.HealthStatus. The
reconciler updates the checker after each batch: the gluster component
reflects whether the bulk state query succeeded, the reconciler component
whether every resource converged.

# Usage

	checker := metrics.NewHealthChecker(version, metrics.ComponentGluster, metrics.ComponentReconciler)
	server := api.NewHealthServer(checker)
	go server.Start(":9105")
	defer server.Shutdown(ctx)

GetHandler returns the mux for embedding in another server.
*/
package api
