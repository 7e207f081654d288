package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fenilsonani/mailcore/internal/mailerr"
)

func TestRecordSyncHunk(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		initial := testutil.ToFloat64(SyncHunksApplied.WithLabelValues("create_envelope", "remote"))

		RecordSyncHunk("create_envelope", "remote", nil)

		if got := testutil.ToFloat64(SyncHunksApplied.WithLabelValues("create_envelope", "remote")); got != initial+1 {
			t.Errorf("SyncHunksApplied = %v, want %v", got, initial+1)
		}
	})

	t.Run("failure", func(t *testing.T) {
		initial := testutil.ToFloat64(SyncHunksFailed.WithLabelValues("delete_envelope"))

		RecordSyncHunk("delete_envelope", "local", mailerr.New(mailerr.KindIO, "boom"))

		if got := testutil.ToFloat64(SyncHunksFailed.WithLabelValues("delete_envelope")); got != initial+1 {
			t.Errorf("SyncHunksFailed = %v, want %v", got, initial+1)
		}
	})
}

func TestRecordSyncConflict(t *testing.T) {
	initial := testutil.ToFloat64(SyncConflicts)
	RecordSyncConflict()
	if got := testutil.ToFloat64(SyncConflicts); got != initial+1 {
		t.Errorf("SyncConflicts = %v, want %v", got, initial+1)
	}
}

func TestRecordBackendOperation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		initial := testutil.ToFloat64(BackendOperations.WithLabelValues("imap", "list_folders"))

		RecordBackendOperation("imap", "list_folders", 0.2, nil)

		if got := testutil.ToFloat64(BackendOperations.WithLabelValues("imap", "list_folders")); got != initial+1 {
			t.Errorf("BackendOperations = %v, want %v", got, initial+1)
		}
	})

	t.Run("taxonomy error increments BackendErrors with its kind", func(t *testing.T) {
		initial := testutil.ToFloat64(BackendErrors.WithLabelValues("notmuch", "transport"))

		RecordBackendOperation("notmuch", "search", 0.1, mailerr.New(mailerr.KindTransport, "dial failed"))

		if got := testutil.ToFloat64(BackendErrors.WithLabelValues("notmuch", "transport")); got != initial+1 {
			t.Errorf("BackendErrors = %v, want %v", got, initial+1)
		}
	})

	t.Run("non-taxonomy error falls back to unknown", func(t *testing.T) {
		initial := testutil.ToFloat64(BackendErrors.WithLabelValues("maildir", "unknown"))

		RecordBackendOperation("maildir", "move", 0.1, strings.NewReader("").UnreadByte())

		if got := testutil.ToFloat64(BackendErrors.WithLabelValues("maildir", "unknown")); got != initial+1 {
			t.Errorf("BackendErrors = %v, want %v", got, initial+1)
		}
	})
}

func TestRecordPGPOperation(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		initial := testutil.ToFloat64(PGPOperations.WithLabelValues("encrypt", "ok"))
		RecordPGPOperation("encrypt", nil)
		if got := testutil.ToFloat64(PGPOperations.WithLabelValues("encrypt", "ok")); got != initial+1 {
			t.Errorf("PGPOperations = %v, want %v", got, initial+1)
		}
	})

	t.Run("error", func(t *testing.T) {
		initial := testutil.ToFloat64(PGPOperations.WithLabelValues("decrypt", "error"))
		RecordPGPOperation("decrypt", mailerr.ErrPGPDisabled)
		if got := testutil.ToFloat64(PGPOperations.WithLabelValues("decrypt", "error")); got != initial+1 {
			t.Errorf("PGPOperations = %v, want %v", got, initial+1)
		}
	})
}

func TestRecordSearchQueryParsed(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		initial := testutil.ToFloat64(SearchQueriesParsed.WithLabelValues("ok"))
		RecordSearchQueryParsed(nil)
		if got := testutil.ToFloat64(SearchQueriesParsed.WithLabelValues("ok")); got != initial+1 {
			t.Errorf("SearchQueriesParsed = %v, want %v", got, initial+1)
		}
	})

	t.Run("error", func(t *testing.T) {
		initial := testutil.ToFloat64(SearchQueriesParsed.WithLabelValues("error"))
		RecordSearchQueryParsed(mailerr.New(mailerr.KindParse, "unexpected token"))
		if got := testutil.ToFloat64(SearchQueriesParsed.WithLabelValues("error")); got != initial+1 {
			t.Errorf("SearchQueriesParsed = %v, want %v", got, initial+1)
		}
	})
}

func TestMetricsCollectWithoutPanic(t *testing.T) {
	collectors := []prometheus.Collector{SyncWorkersActive, SyncConflicts}
	for _, c := range collectors {
		_ = testutil.ToFloat64(c)
	}

	_ = testutil.ToFloat64(BackendConnectionsActive.WithLabelValues("imap"))
	SyncRunDuration.Observe(1.2)
	BackendOperationDuration.WithLabelValues("imap", "fetch").Observe(0.05)
	MMLCompiled.Inc()
	MMLInterpreted.Inc()
}

func TestMetricNamePrefix(t *testing.T) {
	expected := "mailcore_"

	metricsToCheck := []struct {
		name   string
		metric prometheus.Collector
	}{
		{"SyncConflicts", SyncConflicts},
		{"SyncRunDuration", SyncRunDuration},
		{"MMLCompiled", MMLCompiled},
		{"MMLInterpreted", MMLInterpreted},
	}

	for _, m := range metricsToCheck {
		t.Run(m.name, func(t *testing.T) {
			ch := make(chan prometheus.Metric, 1)
			m.metric.Collect(ch)
			metric := <-ch
			desc := metric.Desc().String()
			if !strings.Contains(desc, expected) {
				t.Errorf("Metric %s description doesn't contain prefix %s: %s", m.name, expected, desc)
			}
		})
	}
}
