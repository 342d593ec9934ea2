package clock

import (
	"sync"
	"time"
)

// Clock is the time source used for all expiry arithmetic
type Clock interface {
	Now() time.Time
}

// System reads the wall clock
type System struct{}

// Now returns time.Now()
func (System) Now() time.Time {
	return time.Now()
}

// Manual is a Clock that only moves when told to. Safe for concurrent use
type Manual struct {
	now time.Time
	mu  sync.Mutex
}

// NewManual creates a Manual clock frozen at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current frozen time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new time
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Set jumps the clock to t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
