package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveConversion(t *testing.T) {
	m := New()
	m.ObserveConversion("csv", ResultOK)
	m.ObserveConversion("csv", ResultOK)
	m.ObserveConversion("xlsx", "conversion_failed")

	if got := testutil.ToFloat64(m.conversions.WithLabelValues("csv", ResultOK)); got != 2 {
		t.Errorf("csv ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.conversions.WithLabelValues("xlsx", "conversion_failed")); got != 1 {
		t.Errorf("xlsx failed = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveConversion("csv", ResultOK)
	m.ObserveDuration("csv", time.Millisecond)
	m.ObserveInputSize(10)
	m.ObserveHTTP("/health", 200)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveConversion("json", ResultOK)
	m.ObserveDuration("json", 2*time.Millisecond)
	m.ObserveInputSize(512)
	m.ObserveHTTP("/file-to-text", http.StatusOK)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{
		"doctext_conversions_total",
		"doctext_conversion_duration_seconds",
		"doctext_input_bytes",
		"doctext_http_requests_total",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}
