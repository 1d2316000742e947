// Package scheduler drives fuzzy-clock displays: one Scheduler per display,
// and a Registry that owns many of them and consumes lifecycle events
// serially.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
)

// AlarmService arms exact wake-ups. Arming replaces any pending wake for
// the same instance.
type AlarmService interface {
	Arm(ctx context.Context, id domain.InstanceID, at time.Time) error
	Cancel(ctx context.Context, id domain.InstanceID) error
	CancelAll(ctx context.Context) error
}

// DisplaySink shows a phrase. Rendering an unchanged phrase has no visible
// effect.
type DisplaySink interface {
	Render(ctx context.Context, id domain.InstanceID, p fuzzy.Phrase) error
}

// forgetter is implemented by sinks that keep per-instance state.
type forgetter interface {
	Forget(id domain.InstanceID)
}

// FormatProvider reports the host's current 12/24-hour preference.
type FormatProvider interface {
	HourFormat() fuzzy.HourFormat
}

// StaticFormat is a FormatProvider that never changes.
type StaticFormat fuzzy.HourFormat

func (f StaticFormat) HourFormat() fuzzy.HourFormat { return fuzzy.HourFormat(f) }

// PreferenceStore persists per-instance display preferences. Get returns
// the zero Preferences for an instance that has none stored.
type PreferenceStore interface {
	Get(ctx context.Context, id domain.InstanceID) (Preferences, error)
	Put(ctx context.Context, id domain.InstanceID, p Preferences) error
	Delete(ctx context.Context, id domain.InstanceID) error
}

// FormatPreference is an instance's hour format choice. FormatAuto defers
// to the FormatProvider.
type FormatPreference uint8

const (
	FormatAuto FormatPreference = iota
	Format12
	Format24
)

var formatPreferenceNames = [...]string{
	FormatAuto: "auto",
	Format12:   "12",
	Format24:   "24",
}

func (f FormatPreference) String() string {
	if int(f) < len(formatPreferenceNames) {
		return formatPreferenceNames[f]
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// ParseFormatPreference accepts "auto", or anything fuzzy.ParseHourFormat
// accepts.
func ParseFormatPreference(raw string) (FormatPreference, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "auto") {
		return FormatAuto, nil
	}
	f, err := fuzzy.ParseHourFormat(raw)
	if err != nil {
		return FormatAuto, err
	}
	if f == fuzzy.Format24 {
		return Format24, nil
	}
	return Format12, nil
}

// Resolve picks the concrete hour format, asking fp when f is FormatAuto.
// A nil fp means 12-hour.
func (f FormatPreference) Resolve(fp FormatProvider) fuzzy.HourFormat {
	switch f {
	case Format12:
		return fuzzy.Format12
	case Format24:
		return fuzzy.Format24
	}
	if fp == nil {
		return fuzzy.Format12
	}
	return fp.HourFormat()
}

// Preferences are the stored settings of one display instance. The zero
// value is the default: Warped in both orientations, automatic hour format.
type Preferences struct {
	Portrait   fuzzy.Kind
	Landscape  fuzzy.Kind
	HourFormat FormatPreference
}

// PolicyFor returns the policy kind chosen for orientation o.
func (p Preferences) PolicyFor(o domain.Orientation) fuzzy.Kind {
	if o == domain.OrientationLandscape {
		return p.Landscape
	}
	return p.Portrait
}
