package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func getHealth(t *testing.T, h http.Handler) (int, healthReport) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var report healthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return rec.Code, report
}

func TestHealthHandler_AllBackendsUp(t *testing.T) {
	pm := NewPerformanceMonitor()
	pm.UpdateWSLatency(80 * time.Millisecond)
	ok := pingFunc(func(context.Context) error { return nil })

	code, report := getHealth(t, healthHandler(map[string]pinger{"postgres": ok, "redis": ok}, pm))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, report.Checks)
	assert.Equal(t, int64(80), report.WSLatencyMs)
	assert.Positive(t, report.Goroutines)
}

func TestHealthHandler_FailingBackend(t *testing.T) {
	checks := map[string]pinger{
		"postgres": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		"redis":    pingFunc(func(context.Context) error { return nil }),
	}

	code, report := getHealth(t, healthHandler(checks, NewPerformanceMonitor()))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, "connection refused", report.Checks["postgres"])
	assert.Equal(t, "ok", report.Checks["redis"])
}

func TestHealthHandler_NoBackends(t *testing.T) {
	code, report := getHealth(t, healthHandler(nil, NewPerformanceMonitor()))

	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, report.Checks)
}
