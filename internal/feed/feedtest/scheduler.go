// Package feedtest provides a simulated clock for driving feed timers in tests.
package feedtest

import (
	"sync"
	"time"
)

type timer struct {
	interval time.Duration
	due      time.Duration
	fn       func()
}

// ManualScheduler fires timers only when Advance is called. Callbacks run
// synchronously on the caller's goroutine.
type ManualScheduler struct {
	mu      sync.Mutex
	elapsed time.Duration
	timers  map[int]*timer
	nextID  int
}

// NewManualScheduler returns a scheduler at elapsed time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{timers: make(map[int]*timer)}
}

// StartTimer implements feed.Scheduler.
func (m *ManualScheduler) StartTimer(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.timers[id] = &timer{interval: interval, due: m.elapsed + interval, fn: fn}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.timers, id)
	}
}

// Advance moves the clock forward by d, firing every timer that comes due in
// order. A timer cancelled by an earlier callback does not fire.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.elapsed + d
	for {
		_, t := m.earliest(target)
		if t == nil {
			break
		}
		m.elapsed = t.due
		t.due += t.interval
		fn := t.fn
		m.mu.Unlock()
		fn()
		m.mu.Lock()
	}
	m.elapsed = target
	m.mu.Unlock()
}

// Active returns the number of live timers.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *ManualScheduler) earliest(limit time.Duration) (int, *timer) {
	bestID, best := -1, (*timer)(nil)
	for id, t := range m.timers {
		if t.due > limit {
			continue
		}
		if best == nil || t.due < best.due || (t.due == best.due && id < bestID) {
			bestID, best = id, t
		}
	}
	return bestID, best
}
