package scheduler

import (
	"fmt"
	"strings"

	"github.com/aelexs/fuzzyclock/internal/domain"
)

// EventKind enumerates the inbound triggers of the registry.
type EventKind uint8

const (
	// Tick is a clock wake-up, for one instance or (zero Instance) all.
	Tick EventKind = iota + 1
	// TimezoneChanged carries the new IANA zone; empty means system local.
	TimezoneChanged
	// FormatChanged signals the 12/24-hour preference may have changed.
	FormatChanged
	InstanceAdded
	InstanceRemoved
	// ConfigurationChanged carries the new orientation.
	ConfigurationChanged
)

var eventKindNames = map[EventKind]string{
	Tick:                 "tick",
	TimezoneChanged:      "timezone_changed",
	FormatChanged:        "format_changed",
	InstanceAdded:        "instance_added",
	InstanceRemoved:      "instance_removed",
	ConfigurationChanged: "configuration_changed",
}

func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(raw string) (EventKind, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for k, n := range eventKindNames {
		if n == raw {
			return k, nil
		}
	}
	return 0, fmt.Errorf("event kind %q: %w", raw, domain.ErrInvalidInput)
}

// Event is one inbound trigger. Only the fields relevant to Kind are set.
type Event struct {
	Kind        EventKind
	Instance    domain.InstanceID
	Timezone    string
	Orientation domain.Orientation
}

// TickAll wakes every registered instance.
func TickAll() Event {
	return Event{Kind: Tick}
}

// TickFor wakes one instance, creating it on first sight.
func TickFor(id domain.InstanceID) Event {
	return Event{Kind: Tick, Instance: id}
}

func Added(id domain.InstanceID) Event {
	return Event{Kind: InstanceAdded, Instance: id}
}

func Removed(id domain.InstanceID) Event {
	return Event{Kind: InstanceRemoved, Instance: id}
}

func FormatChange() Event {
	return Event{Kind: FormatChanged}
}

func TimezoneChange(zone string) Event {
	return Event{Kind: TimezoneChanged, Timezone: zone}
}

func Reconfigure(o domain.Orientation) Event {
	return Event{Kind: ConfigurationChanged, Orientation: o}
}
