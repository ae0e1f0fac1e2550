// Package metrics provides Prometheus metrics for docversions
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a mutation produced no version entry
const (
	SkipMasked    = "masked"
	SkipDuplicate = "duplicate"
)

// Metrics holds all Prometheus metrics for docversions. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// Store metrics
	DbOperationsTotal   *prometheus.CounterVec
	DbOperationDuration *prometheus.HistogramVec

	// Version metrics
	VersionsRecordedTotal  *prometheus.CounterVec
	VersionsSkippedTotal   *prometheus.CounterVec
	VersionsCoalescedTotal *prometheus.CounterVec
	VersionsTrimmedTotal   *prometheus.CounterVec
	HistoriesPrunedTotal   *prometheus.CounterVec
	VersionLookupsTotal    prometheus.Counter

	// Server metrics
	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.GrpcRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docversions_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	m.GrpcRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docversions_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "docversions_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	m.DbOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docversions_db_operations_total",
			Help: "Total number of version store operations",
		},
		[]string{"operation", "status"},
	)

	m.DbOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docversions_db_operation_duration_seconds",
			Help:    "Duration of version store operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	m.VersionsRecordedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docversions_versions_recorded_total",
			Help: "Total number of version entries written",
		},
		[]string{"service"},
	)

	m.VersionsSkippedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docversions_versions_skipped_total",
			Help: "Mutations that produced no version entry",
		},
		[]string{"service", "reason"},
	)

	m.VersionsCoalescedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docversions_versions_coalesced_total",
			Help: "Entries replaced because they fell inside the save interval",
		},
		[]string{"service"},
	)

	m.VersionsTrimmedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docversions_versions_trimmed_total",
			Help: "Oldest entries dropped to respect the history limit",
		},
		[]string{"service"},
	)

	m.HistoriesPrunedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docversions_histories_pruned_total",
			Help: "Version histories removed after their document was deleted",
		},
		[]string{"service"},
	)

	m.VersionLookupsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docversions_version_lookups_total",
			Help: "Total number of version history lookups",
		},
	)

	m.ServerUptimeSeconds = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "docversions_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
	)

	return m
}

// TrackUptime updates the uptime gauge every interval until stop is closed
func (m *Metrics) TrackUptime(interval time.Duration, stop <-chan struct{}) {
	if m == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
		}
	}
}

// RecordGrpcRequest records a gRPC request with its status
func (m *Metrics) RecordGrpcRequest(method string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordDbOperation records a version store operation
func (m *Metrics) RecordDbOperation(operation string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DbOperationsTotal.WithLabelValues(operation, status).Inc()
	m.DbOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordVersion counts a written entry and any coalesced or trimmed entries
func (m *Metrics) RecordVersion(service string, coalesced bool, trimmed int) {
	if m == nil {
		return
	}
	m.VersionsRecordedTotal.WithLabelValues(service).Inc()
	if coalesced {
		m.VersionsCoalescedTotal.WithLabelValues(service).Inc()
	}
	if trimmed > 0 {
		m.VersionsTrimmedTotal.WithLabelValues(service).Add(float64(trimmed))
	}
}

// RecordSkip counts a mutation that produced no entry
func (m *Metrics) RecordSkip(service, reason string) {
	if m == nil {
		return
	}
	m.VersionsSkippedTotal.WithLabelValues(service, reason).Inc()
}

// RecordPrune counts a removed history
func (m *Metrics) RecordPrune(service string) {
	if m == nil {
		return
	}
	m.HistoriesPrunedTotal.WithLabelValues(service).Inc()
}

// RecordLookup counts a history lookup
func (m *Metrics) RecordLookup() {
	if m == nil {
		return
	}
	m.VersionLookupsTotal.Inc()
}
