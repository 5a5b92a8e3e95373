package bot

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// pinger is a backing service the bot cannot moderate without
type pinger interface {
	Ping(ctx context.Context) error
}

type healthReport struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	UptimeSec     int64             `json:"uptime_sec"`
	RESTCalls     uint64            `json:"rest_calls"`
	RESTLatencyMs int64             `json:"rest_latency_ms"`
	WSLatencyMs   int64             `json:"ws_latency_ms"`
	Goroutines    int               `json:"goroutines"`
	MemoryAllocMB uint64            `json:"memory_alloc_mb"`
}

// healthHandler pings every backend and reports 503 when any of them fails
func healthHandler(checks map[string]pinger, pm *PerformanceMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		stats := pm.GetStats()
		report := healthReport{
			Status:        "ok",
			Checks:        make(map[string]string, len(checks)),
			UptimeSec:     int64(stats.Uptime / time.Second),
			RESTCalls:     stats.RESTCalls,
			RESTLatencyMs: stats.RESTLatency.Milliseconds(),
			WSLatencyMs:   stats.WSLatency.Milliseconds(),
			Goroutines:    stats.Goroutines,
			MemoryAllocMB: stats.MemoryAllocMB,
		}

		code := http.StatusOK
		for name, c := range checks {
			if err := c.Ping(ctx); err != nil {
				report.Checks[name] = err.Error()
				report.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			report.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(report)
	}
}
