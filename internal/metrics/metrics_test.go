package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorExposesRecordedMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordGeneration("anonymous", "ok")
	c.RecordGeneration("anonymous", "ok")
	c.RecordGeneration("authenticated", "error")
	c.RecordUpstreamStatus(200, 120*time.Millisecond)
	c.RecordPaymentResult("COMPLETED")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`contentgen_generations_total{caller="anonymous",outcome="ok"} 2`,
		`contentgen_generations_total{caller="authenticated",outcome="error"} 1`,
		`contentgen_upstream_status_total{status_code="200"} 1`,
		`contentgen_payment_sessions_total{result="COMPLETED"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordGeneration("anonymous", "ok")
	c.RecordUpstreamStatus(500, time.Second)
	c.RecordPaymentResult("FAILED")
}
