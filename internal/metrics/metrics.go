// Package metrics exposes mailcore's Prometheus instrumentation: sync hunk
// throughput, backend operation counts/latency, and PGP/MML activity.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fenilsonani/mailcore/internal/mailerr"
)

var (
	// Sync engine metrics
	SyncHunksApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailcore_sync_hunks_applied_total",
		Help: "Total sync hunks applied, by kind and target side",
	}, []string{"kind", "side"})

	SyncHunksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailcore_sync_hunks_failed_total",
		Help: "Total sync hunks that failed to apply, by kind",
	}, []string{"kind"})

	SyncConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailcore_sync_conflicts_total",
		Help: "Total sync hunks dropped due to permission conflicts",
	})

	SyncRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mailcore_sync_run_duration_seconds",
		Help:    "Time taken to complete one account sync run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~256s
	})

	SyncWorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mailcore_sync_workers_active",
		Help: "Number of sync worker goroutines currently applying hunks",
	})

	// Backend capability layer metrics
	BackendOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailcore_backend_operations_total",
		Help: "Total backend feature invocations, by backend kind and feature",
	}, []string{"backend", "feature"})

	BackendOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mailcore_backend_operation_duration_seconds",
		Help:    "Backend feature invocation latency, by backend kind and feature",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "feature"})

	BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailcore_backend_errors_total",
		Help: "Total backend errors, by backend kind and error taxonomy kind",
	}, []string{"backend", "error_kind"})

	BackendConnectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mailcore_backend_connections_active",
		Help: "Active backend connections (imap/smtp sessions, notmuch db handles)",
	}, []string{"backend"})

	// PGP provider metrics
	PGPOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailcore_pgp_operations_total",
		Help: "Total PGP operations, by operation and result",
	}, []string{"operation", "result"})

	// MML compiler metrics
	MMLCompiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailcore_mml_compiled_total",
		Help: "Total MML documents compiled to MIME",
	})

	MMLInterpreted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailcore_mml_interpreted_total",
		Help: "Total MIME messages interpreted into MML",
	})

	// Search query grammar metrics
	SearchQueriesParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailcore_search_queries_parsed_total",
		Help: "Total search queries parsed, by parse result",
	}, []string{"result"})
)

// RecordSyncHunk records one applied (or failed) sync hunk.
func RecordSyncHunk(kind, side string, err error) {
	if err != nil {
		SyncHunksFailed.WithLabelValues(kind).Inc()
		return
	}
	SyncHunksApplied.WithLabelValues(kind, side).Inc()
}

// RecordSyncConflict records one hunk dropped by the permission gate.
func RecordSyncConflict() {
	SyncConflicts.Inc()
}

// RecordBackendOperation records one backend feature invocation and its
// latency in seconds.
func RecordBackendOperation(backend, feature string, durationSeconds float64, err error) {
	BackendOperations.WithLabelValues(backend, feature).Inc()
	BackendOperationDuration.WithLabelValues(backend, feature).Observe(durationSeconds)
	if err != nil {
		kind := mailerr.KindUnknown
		var e *mailerr.Error
		if errors.As(err, &e) {
			kind = e.Kind
		}
		BackendErrors.WithLabelValues(backend, kind.String()).Inc()
	}
}

// RecordPGPOperation records one PGP provider call (sign, encrypt, decrypt,
// verify) with a coarse result label.
func RecordPGPOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	PGPOperations.WithLabelValues(operation, result).Inc()
}

// RecordSearchQueryParsed records one search-query-grammar parse attempt.
func RecordSearchQueryParsed(err error) {
	if err != nil {
		SearchQueriesParsed.WithLabelValues("error").Inc()
		return
	}
	SearchQueriesParsed.WithLabelValues("ok").Inc()
}
