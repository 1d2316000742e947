// Package domain contains pure types shared by the clock engine and its hosts.
// No infrastructure dependencies allowed.
package domain

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// maxInstanceIDLength bounds host-provided identifiers; they end up in
// preference keys and log lines.
const maxInstanceIDLength = 128

// InstanceID is a value object identifying one independent display (a widget,
// the live view, the screensaver). Hosts choose the value; it is opaque here.
type InstanceID struct {
	value string
}

// NewInstanceID creates an InstanceID from a raw string. The value must be
// non-empty, at most 128 bytes and free of whitespace and ':' (the
// preference key separator).
func NewInstanceID(raw string) (InstanceID, error) {
	if raw == "" {
		return InstanceID{}, ErrEmptyID
	}
	if len(raw) > maxInstanceIDLength {
		return InstanceID{}, fmt.Errorf("instance ID too long (%d bytes): %w", len(raw), ErrInvalidID)
	}
	if strings.ContainsFunc(raw, func(r rune) bool { return unicode.IsSpace(r) || r == ':' }) {
		return InstanceID{}, fmt.Errorf("invalid instance ID %q: %w", raw, ErrInvalidID)
	}
	return InstanceID{value: raw}, nil
}

// MustInstanceID creates an InstanceID, panicking on invalid input. Use only in tests.
func MustInstanceID(raw string) InstanceID {
	id, err := NewInstanceID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateInstanceID creates a new random InstanceID for displays that have
// no host-assigned identity.
func GenerateInstanceID() InstanceID {
	return InstanceID{value: uuid.NewString()}
}

func (id InstanceID) String() string { return id.value }
func (id InstanceID) IsZero() bool   { return id.value == "" }
