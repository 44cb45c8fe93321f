package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Command executor metrics
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gluster_reconciler_commands_total",
			Help: "Total number of gluster commands by subcommand and result",
		},
		[]string{"subcommand", "result"},
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gluster_reconciler_command_duration_seconds",
			Help:    "gluster command duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subcommand"},
	)

	// Parser metrics
	MalformedBlocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gluster_reconciler_malformed_blocks_total",
			Help: "Total number of skipped malformed output blocks by kind",
		},
		[]string{"kind"},
	)

	// Cluster state metrics
	PeersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gluster_reconciler_peers_total",
			Help: "Number of live peers by connection state",
		},
		[]string{"state"},
	)

	VolumesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gluster_reconciler_volumes_total",
			Help: "Number of live volumes by status",
		},
		[]string{"status"},
	)

	UnmanagedVolumes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gluster_reconciler_unmanaged_volumes",
			Help: "Number of live volumes not declared in the manifest",
		},
	)

	// Reconciliation metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gluster_reconciler_batch_duration_seconds",
			Help:    "Time taken by one reconciliation batch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gluster_reconciler_batches_total",
			Help: "Total number of reconciliation batches",
		},
	)

	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gluster_reconciler_actions_total",
			Help: "Total number of corrective actions by kind and result",
		},
		[]string{"action", "result"},
	)

	ResourceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gluster_reconciler_resource_failures_total",
			Help: "Total number of failed resources by kind and error class",
		},
		[]string{"kind", "class"},
	)

	DriftDetected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gluster_reconciler_drift",
			Help: "Number of detected, unrepaired drifts per volume in the last batch",
		},
		[]string{"volume"},
	)
)

func init() {
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(MalformedBlocksTotal)
	prometheus.MustRegister(PeersTotal)
	prometheus.MustRegister(VolumesTotal)
	prometheus.MustRegister(UnmanagedVolumes)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(ResourceFailuresTotal)
	prometheus.MustRegister(DriftDetected)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in seconds on the histogram
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time on the histogram vec child for labels
func (t *Timer) ObserveDurationVec(vec *prometheus.HistogramVec, labels ...string) {
	vec.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
