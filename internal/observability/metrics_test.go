package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/auth/login", "POST", 200, time.Millisecond)
		m.RecordError("/auth/login", "POST", "UNAUTHORIZED")
		m.RecordAuth("login", OutcomeSuccess)
	})
	assert.NotNil(t, m.Handler())
}

func TestMetrics_RecordAuth(t *testing.T) {
	m := NewMetrics("fungi")
	m.RecordAuth("login", OutcomeSuccess)
	m.RecordAuth("login", OutcomeSuccess)
	m.RecordAuth("login", OutcomeFailure)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.auth.WithLabelValues("login", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.auth.WithLabelValues("login", OutcomeFailure)))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("fungi")
	m.RecordRequest("/auth/login", "POST", 401, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fungi_http_requests_total{method="POST",route="/auth/login",status="401"} 1`)
}
