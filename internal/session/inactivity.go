package session

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultInactivityTimeout is how long the active room may sit idle
// before it is auto-closed.
const DefaultInactivityTimeout = 10 * time.Minute

// Monitor auto-closes the watched room after a fixed idle period.
//
// Watch arms the timer, Touch restarts it, and the timeout callback
// fires at most once per armed room no matter how the timer races with
// Stop or a new Watch.
type Monitor struct {
	mu        sync.Mutex
	clock     Clock
	timeout   time.Duration
	timer     Timer
	roomID    string
	seq       uint64
	onTimeout func(roomID, reason string)
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorClock replaces the wall clock, for tests.
func WithMonitorClock(c Clock) MonitorOption {
	return func(m *Monitor) { m.clock = c }
}

// WithInactivityTimeout overrides the idle period, for tests.
func WithInactivityTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.timeout = d }
}

// NewMonitor creates an inactivity monitor. onTimeout is called with
// the room id and ReasonInactivityTimeout when the idle period elapses.
func NewMonitor(onTimeout func(roomID, reason string), opts ...MonitorOption) *Monitor {
	m := &Monitor{
		clock:     SystemClock(),
		timeout:   DefaultInactivityTimeout,
		onTimeout: onTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Watch arms the monitor for a room, replacing any previous watch.
func (m *Monitor) Watch(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	seq := m.seq
	m.roomID = roomID
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = m.clock.AfterFunc(m.timeout, func() { m.fire(seq) })
}

// Touch restarts the idle timer. A no-op when nothing is watched.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roomID == "" || m.timer == nil {
		return
	}
	m.seq++
	seq := m.seq
	m.timer.Stop()
	m.timer = m.clock.AfterFunc(m.timeout, func() { m.fire(seq) })
}

// Stop disarms the monitor.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.roomID = ""
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Monitor) fire(seq uint64) {
	m.mu.Lock()
	if seq != m.seq || m.roomID == "" {
		m.mu.Unlock()
		return
	}
	roomID := m.roomID
	m.roomID = ""
	m.timer = nil
	m.mu.Unlock()

	slog.Debug("room idle timeout", "room", roomID, "timeout", m.timeout)
	if m.onTimeout != nil {
		m.onTimeout(roomID, ReasonInactivityTimeout)
	}
}
