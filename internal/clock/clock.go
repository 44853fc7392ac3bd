package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. Services take a Clock instead of calling
// time.Now directly so expiry can be driven from tests.
type Clock interface {
	Now() time.Time
}

// Real reads the wall clock.
type Real struct{}

// Now returns the current UTC time truncated to the store's precision.
func (Real) Now() time.Time {
	return Normalize(time.Now())
}

// Normalize converts t to UTC at microsecond precision, which is what
// PostgreSQL timestamptz columns round-trip.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Fake is a manually advanced clock.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a Fake clock frozen at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: Normalize(start)}
}

// Now returns the frozen time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = Normalize(f.now.Add(d))
	f.mu.Unlock()
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = Normalize(t)
	f.mu.Unlock()
}
