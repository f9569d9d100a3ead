package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordEvents(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.EventsProcessed.WithLabelValues("inserted"))

	RecordEvents(3, 2, 0)

	after := testutil.ToFloat64(DefaultMetrics.EventsProcessed.WithLabelValues("inserted"))
	if after-before != 3 {
		t.Errorf("expected inserted to grow by 3, got %v", after-before)
	}
}

func TestRecordPruned(t *testing.T) {
	rowsBefore := testutil.ToFloat64(DefaultMetrics.RowsPruned.WithLabelValues("wallet_events"))
	errsBefore := testutil.ToFloat64(DefaultMetrics.PruneErrors.WithLabelValues("wallet_events"))

	RecordPruned("wallet_events", 7, nil)
	RecordPruned("wallet_events", 0, errors.New("boom"))

	if got := testutil.ToFloat64(DefaultMetrics.RowsPruned.WithLabelValues("wallet_events")) - rowsBefore; got != 7 {
		t.Errorf("expected 7 rows pruned, got %v", got)
	}
	if got := testutil.ToFloat64(DefaultMetrics.PruneErrors.WithLabelValues("wallet_events")) - errsBefore; got != 1 {
		t.Errorf("expected 1 prune error, got %v", got)
	}
}

func TestRecordSyncCycle_SkippedDoesNotTouchHealth(t *testing.T) {
	DefaultMetrics.LastSuccessfulSync.Set(0)

	RecordSyncCycle("skipped", 0)
	if got := testutil.ToFloat64(DefaultMetrics.LastSuccessfulSync); got != 0 {
		t.Errorf("expected health gauge untouched, got %v", got)
	}

	RecordSyncCycle("completed", 1.5)
	if got := testutil.ToFloat64(DefaultMetrics.LastSuccessfulSync); got == 0 {
		t.Error("expected health gauge to be set")
	}
}

func TestHandler(t *testing.T) {
	RecordSnapshotWritten()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "wallet_sync_sync_snapshots_written_total") {
		t.Error("expected snapshots counter in exposition")
	}
}
