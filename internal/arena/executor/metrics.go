package executor

import (
	"sync/atomic"
	"time"
)

// Metrics tracks provider call counters
type Metrics struct {
	calls     int64
	errors    int64
	latencyNs int64
}

// MetricsSnapshot is a point-in-time copy of Metrics
type MetricsSnapshot struct {
	Calls            int64   `json:"calls"`
	Errors           int64   `json:"errors"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
	ErrorRate        float64 `json:"error_rate_percent"`
}

func (m *Metrics) record(duration time.Duration, err error) {
	atomic.AddInt64(&m.calls, 1)
	atomic.AddInt64(&m.latencyNs, duration.Nanoseconds())
	if err != nil {
		atomic.AddInt64(&m.errors, 1)
	}
}

// Snapshot returns the current counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	calls := atomic.LoadInt64(&m.calls)
	errs := atomic.LoadInt64(&m.errors)
	latency := atomic.LoadInt64(&m.latencyNs)

	s := MetricsSnapshot{Calls: calls, Errors: errs}
	if calls > 0 {
		s.AverageLatencyMs = float64(latency) / float64(calls) / 1e6
		s.ErrorRate = float64(errs) / float64(calls) * 100
	}
	return s
}

// Reset zeroes all counters
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.calls, 0)
	atomic.StoreInt64(&m.errors, 0)
	atomic.StoreInt64(&m.latencyNs, 0)
}
