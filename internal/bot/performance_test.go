package bot

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerfTransport_TracksCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pm := NewPerformanceMonitor()
	client := &http.Client{Transport: &PerfTransport{Base: http.DefaultTransport, Monitor: pm}}

	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}

	stats := pm.GetStats()
	assert.Equal(t, uint64(3), stats.RESTCalls)
	assert.Greater(t, stats.RESTLatency, time.Duration(0))
}

func TestPerformanceMonitor_WSLatency(t *testing.T) {
	pm := NewPerformanceMonitor()
	pm.UpdateWSLatency(42 * time.Millisecond)
	assert.Equal(t, 42*time.Millisecond, pm.GetStats().WSLatency)
}
