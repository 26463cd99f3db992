package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition(t *testing.T) {
	m := New(false)
	m.RecordTransition("approve", "ok")
	m.RecordTransition("approve", "ok")
	m.RecordTransition("approve", "invalid_transition")
	m.RecordRetry("approve")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("approve", "invalid_transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries.WithLabelValues("approve")))
}

func TestHandler(t *testing.T) {
	m := New(false)
	m.ObserveHTTP(http.MethodPost, "/api/solicitudes", http.StatusCreated, 15*time.Millisecond)
	m.RecordDuplicate()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `spm_http_requests_total{method="POST",route="/api/solicitudes",status="201"} 1`)
	assert.Contains(t, string(body), "spm_idempotency_duplicates_total 1")
	assert.Contains(t, string(body), "spm_http_request_duration_seconds_bucket")
}
