package domain

import (
	"fmt"
	"time"
)

// Clock provides the current wall time. Schedulers never call time.Now
// directly; production wires RealClock and tests wire domaintest.FakeClock.
type Clock interface {
	// Now returns the current time. The returned time includes both wall clock
	// and monotonic readings when using RealClock.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time {
	return time.Now()
}

// NowMillis returns the current wall clock as milliseconds since epoch.
// This is the reading handed to the engine by the clock source collaborator.
func NowMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}

// FromMillis converts epoch milliseconds to a time in loc. A nil loc means
// the process local zone.
func FromMillis(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc)
}

// LoadLocation resolves a timezone override. The empty name means "no
// override" and yields time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, ErrInvalidInput)
	}
	return loc, nil
}

// Ensure RealClock implements Clock at compile time.
var _ Clock = RealClock{}
