package bot

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"discord-antispam-bot/internal/metrics"
)

// PerformanceMonitor tracks REST and gateway latency
type PerformanceMonitor struct {
	restCallCount atomic.Uint64
	restLatency   atomic.Int64 // nanoseconds, last call

	wsLatency atomic.Int64 // milliseconds

	startTime time.Time
}

func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{
		startTime: time.Now(),
	}
}

// TrackREST records REST API call time
func (pm *PerformanceMonitor) TrackREST(duration time.Duration) {
	pm.restCallCount.Add(1)
	pm.restLatency.Store(duration.Nanoseconds())
	metrics.RESTLatency.Observe(duration.Seconds())
}

// UpdateWSLatency updates WebSocket latency
func (pm *PerformanceMonitor) UpdateWSLatency(latency time.Duration) {
	pm.wsLatency.Store(latency.Milliseconds())
}

// Stats is a snapshot of the monitor
type Stats struct {
	Uptime        time.Duration
	RESTCalls     uint64
	RESTLatency   time.Duration
	WSLatency     time.Duration
	Goroutines    int
	MemoryAllocMB uint64
}

func (pm *PerformanceMonitor) GetStats() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Stats{
		Uptime:        time.Since(pm.startTime),
		RESTCalls:     pm.restCallCount.Load(),
		RESTLatency:   time.Duration(pm.restLatency.Load()),
		WSLatency:     time.Duration(pm.wsLatency.Load()) * time.Millisecond,
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: m.Alloc / 1024 / 1024,
	}
}

// PerfTransport wraps http.RoundTripper to track REST latency
type PerfTransport struct {
	Base    http.RoundTripper
	Monitor *PerformanceMonitor
}

func (t *PerfTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.Base.RoundTrip(req)
	t.Monitor.TrackREST(time.Since(start))
	return resp, err
}
