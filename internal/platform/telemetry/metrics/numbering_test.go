package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNumberingRecordCountsByLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewNumbering(reg)
	if err != nil {
		t.Fatalf("new numbering metrics: %v", err)
	}

	m.Record("allocate", "job", "ok", 2*time.Millisecond)
	m.Record("allocate", "job", "ok", time.Millisecond)
	m.Record("release", "job", "malformed", 0)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("allocate", "job", "ok")); got != 2 {
		t.Fatalf("allocate ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("release", "job", "malformed")); got != 1 {
		t.Fatalf("release malformed count = %v, want 1", got)
	}
}

func TestNewNumberingRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewNumbering(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewNumbering(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if _, err := NewNumbering(nil); err == nil {
		t.Fatal("expected nil registerer error")
	}
}

func TestNilNumberingRecordIsNoop(t *testing.T) {
	var m *Numbering
	m.Record("allocate", "job", "ok", time.Millisecond)
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewNumbering(reg)
	if err != nil {
		t.Fatalf("new numbering metrics: %v", err)
	}
	m.Record("allocate", "certificate", "ok", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `lims_numbering_operations_total{category="certificate",operation="allocate",outcome="ok"} 1`) {
		t.Fatalf("metrics body missing counter:\n%s", body)
	}
}
