package domain

import (
	"fmt"
	"time"
)

// Compiled defaults; most can be overridden via configuration.
const (
	// Graceful shutdown
	GracefulShutdownTimeout = 30 * time.Second // Max time to drain the HTTP host on shutdown
	ShutdownDrainDelay      = 500 * time.Millisecond
	ShutdownHTTPTimeout     = 10 * time.Second
	ShutdownOTELTimeout     = 5 * time.Second

	// Preference store
	RedisTimeout = 2 * time.Second // Max time for Redis operations

	// Event loop
	EventQueueSize = 64 // Buffered inbound events before producers block

	// DefaultInstanceID names the display registered when none is configured.
	DefaultInstanceID = "live"
)

// Orientation is the host's screen orientation. Preferences are stored per
// orientation, so a configuration change may switch an instance's policy.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// IsValidOrientation checks if an orientation is known.
func IsValidOrientation(o Orientation) bool {
	return o == OrientationPortrait || o == OrientationLandscape
}

// ParseOrientation converts a raw string into an Orientation.
func ParseOrientation(raw string) (Orientation, error) {
	o := Orientation(raw)
	if !IsValidOrientation(o) {
		return "", fmt.Errorf("orientation %q: %w", raw, ErrInvalidOrientation)
	}
	return o, nil
}
