package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety: the feed and the dashboard update it from different goroutines.
type Metrics struct {
	// Counters
	ticksReceived     atomic.Uint64
	ticksRendered     atomic.Uint64
	parseErrors       atomic.Uint64
	framesSkipped     atomic.Uint64
	backpressureWaits atomic.Uint64
	reconnects        atomic.Uint64

	// Latency tracking (frame arrival -> queued)
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// RecordTick records a tick accepted from the feed with its hand-off latency.
func (m *Metrics) RecordTick(latencyNs int64) {
	m.ticksReceived.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordRendered records a tick drained into the history ring.
func (m *Metrics) RecordRendered() {
	m.ticksRendered.Add(1)
}

// RecordParseError records a frame that could not be decoded.
func (m *Metrics) RecordParseError() {
	m.parseErrors.Add(1)
}

// RecordSkipped records a well-formed frame with an action the dashboard ignores.
func (m *Metrics) RecordSkipped() {
	m.framesSkipped.Add(1)
}

// RecordBackpressure records a send that found the inbox full.
func (m *Metrics) RecordBackpressure() {
	m.backpressureWaits.Add(1)
}

// RecordReconnect records a reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksReceived     uint64
	TicksRendered     uint64
	ParseErrors       uint64
	FramesSkipped     uint64
	BackpressureWaits uint64
	Reconnects        uint64
	AvgLatencyNs      int64
	ActiveConnections int32
	Timestamp         time.Time
}

// Connected reports whether the feed had a live connection at snapshot time.
func (s MetricsSnapshot) Connected() bool {
	return s.ActiveConnections > 0
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TicksReceived:     m.ticksReceived.Load(),
		TicksRendered:     m.ticksRendered.Load(),
		ParseErrors:       m.parseErrors.Load(),
		FramesSkipped:     m.framesSkipped.Load(),
		BackpressureWaits: m.backpressureWaits.Load(),
		Reconnects:        m.reconnects.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksReceived.Store(0)
	m.ticksRendered.Store(0)
	m.parseErrors.Store(0)
	m.framesSkipped.Store(0)
	m.backpressureWaits.Store(0)
	m.reconnects.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
}
