// Package domaintest provides test doubles for the domain package.
package domaintest

import (
	"sync"
	"time"

	"github.com/aelexs/fuzzyclock/internal/domain"
)

// FakeClock is a deterministic, advanceable clock for tests.
// Use Advance/Set to walk a scheduler across minute and hour boundaries
// instead of creating new clock instances.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the fake clock's current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the fake clock forward by the given duration.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set changes the fake clock to a specific time.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Ensure FakeClock implements domain.Clock at compile time.
var _ domain.Clock = (*FakeClock)(nil)

// SetWall moves the clock to hour:minute:second on its current calendar day,
// keeping the location.
func (c *FakeClock) SetWall(hour, minute, second int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	y, mo, d := c.current.Date()
	c.current = time.Date(y, mo, d, hour, minute, second, 0, c.current.Location())
}

// Wall returns a fixed calendar day at hour:minute:second in UTC. Tests use it
// when only the time of day matters.
func Wall(hour, minute, second int) time.Time {
	return time.Date(2026, time.March, 14, hour, minute, second, 0, time.UTC)
}
