// Package metrics holds in-process counters for the guidance core: no
// HTTP exposure, since the core has no API surface — values are read
// back through Snapshot and, for the system fields, by the health checker.
package metrics

import (
	"runtime"
	"sync"
	"time"
)

// Metrics is a mutex-guarded counter set, incremented by the mission
// supervisor and by the alarm callbacks in cmd/sailcore. Nothing in the
// core samples or logs it on a schedule.
type Metrics struct {
	mu sync.RWMutex

	startTime time.Time

	AlarmsRaised     int64
	WaypointsReached int64
	TacksExecuted    int64
	OttoResyncs      int64
	OttoFramesDropped int64
	GPSFixesValid    int64
	GPSFixesInvalid  int64
	NavigatorCycles  int64
	NavErrors        int64

	Uptime         int64
	MemoryUsed     uint64
	MemoryTotal    uint64
	GoroutineCount int
}

// New constructs a Metrics with its uptime clock started.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) IncrementAlarmsRaised() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AlarmsRaised++
}

func (m *Metrics) IncrementWaypointsReached() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WaypointsReached++
}

func (m *Metrics) IncrementTacksExecuted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TacksExecuted++
}

func (m *Metrics) IncrementOttoResyncs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OttoResyncs++
}

func (m *Metrics) IncrementOttoFramesDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OttoFramesDropped++
}

func (m *Metrics) IncrementGPSFixes(valid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if valid {
		m.GPSFixesValid++
	} else {
		m.GPSFixesInvalid++
	}
}

func (m *Metrics) IncrementNavigatorCycles() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NavigatorCycles++
}

func (m *Metrics) IncrementNavErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NavErrors++
}

// UpdateSystemMetrics refreshes uptime, memory, and goroutine counters
// from the Go runtime.
func (m *Metrics) UpdateSystemMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Uptime = int64(time.Since(m.startTime).Seconds())

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.MemoryUsed = memStats.Alloc
	m.MemoryTotal = memStats.Sys

	m.GoroutineCount = runtime.NumGoroutine()
}

// Snapshot returns a point-in-time copy safe to log or compare in tests.
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int64{
		"alarms_raised":       m.AlarmsRaised,
		"waypoints_reached":   m.WaypointsReached,
		"tacks_executed":      m.TacksExecuted,
		"otto_resyncs":        m.OttoResyncs,
		"otto_frames_dropped": m.OttoFramesDropped,
		"gps_fixes_valid":     m.GPSFixesValid,
		"gps_fixes_invalid":   m.GPSFixesInvalid,
		"navigator_cycles":    m.NavigatorCycles,
		"nav_errors":          m.NavErrors,
		"uptime_seconds":      m.Uptime,
		"goroutines":          int64(m.GoroutineCount),
	}
}
