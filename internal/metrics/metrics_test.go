package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.LedgerOp("create_expense", nil)
	m.NotifierResult("settlement_received", "sent")
	m.NotifierQueueDepth(3)
	m.ObserveRequest("GET", "/healthz", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.LedgerOp("create_expense", nil)
	m.LedgerOp("create_expense", errors.New("boom"))
	m.NotifierResult("settlement_received", "failed")
	m.ObserveRequest("POST", "/groups/{id}/expenses", 201, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`billbuddy_ledger_operations_total{operation="create_expense",outcome="ok"} 1`,
		`billbuddy_ledger_operations_total{operation="create_expense",outcome="error"} 1`,
		`billbuddy_notifier_deliveries_total{kind="settlement_received",result="failed"} 1`,
		`billbuddy_http_requests_total{method="POST",route="/groups/{id}/expenses",status="201"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
