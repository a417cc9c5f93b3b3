// ABOUTME: Tests for Prometheus instrumentation
// ABOUTME: Scrapes the handler and checks the exported series

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_ObserveCall(t *testing.T) {
	m := New()
	m.ObserveCall("counter", "increment", 200, 5*time.Millisecond)
	m.ObserveCall("counter", "increment", 200, 5*time.Millisecond)
	m.ObserveCall("counter", "reset", 403, time.Millisecond)
	m.ObserveLockWait(time.Millisecond)

	out := scrape(t, m)
	assert.Contains(t, out, `viewgate_rpc_calls_total{method="increment",status="200",view="counter"} 2`)
	assert.Contains(t, out, `viewgate_rpc_calls_total{method="reset",status="403",view="counter"} 1`)
	assert.Contains(t, out, `viewgate_rpc_call_duration_seconds_count{view="counter"} 3`)
	assert.Contains(t, out, `viewgate_view_lock_wait_seconds_count 1`)
	assert.Contains(t, out, "go_goroutines")
}

func TestMetrics_LockGauge(t *testing.T) {
	m := New()
	m.RegisterLockGauge(func() int { return 4 })
	assert.Contains(t, scrape(t, m), "viewgate_view_locks_active 4")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("v", "m", 200, time.Second)
		m.ObserveLockWait(time.Second)
		m.RegisterLockGauge(func() int { return 1 })
	})
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveCall("counter", "get", 200, time.Millisecond)
	assert.NotContains(t, scrape(t, b), `view="counter"`)
}
