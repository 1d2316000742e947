package fuzzy

import (
	"fmt"
	"time"

	"github.com/aelexs/fuzzyclock/internal/domain"
)

// Meridiem is the half of the day a sample falls in.
type Meridiem uint8

const (
	AM Meridiem = iota
	PM
)

func (m Meridiem) String() string {
	if m == PM {
		return "PM"
	}
	return "AM"
}

// HourFormat selects 12- or 24-hour speech. The zero value is Format12.
type HourFormat uint8

const (
	Format12 HourFormat = iota
	Format24
)

func (f HourFormat) String() string {
	if f == Format24 {
		return "24"
	}
	return "12"
}

// ParseHourFormat accepts "12"/"24" and the "h12"/"h24" spellings.
func ParseHourFormat(raw string) (HourFormat, error) {
	switch raw {
	case "12", "h12", "H12":
		return Format12, nil
	case "24", "h24", "H24":
		return Format24, nil
	default:
		return Format12, fmt.Errorf("hour format %q: %w", raw, domain.ErrInvalidHourFormat)
	}
}

// TimeSample is an immutable clock reading. Construct it with NewTimeSample
// or SampleAt; the zero value is midnight in 12-hour format.
type TimeSample struct {
	hour   uint8
	minute uint8
	second uint8
	format HourFormat
}

// NewTimeSample validates the fields and builds a sample. Out of range
// values are rejected, never clamped.
func NewTimeSample(hour, minute, second int, format HourFormat) (TimeSample, error) {
	if hour < 0 || hour > 23 {
		return TimeSample{}, fmt.Errorf("hour %d: %w", hour, domain.ErrInvalidSample)
	}
	if minute < 0 || minute > 59 {
		return TimeSample{}, fmt.Errorf("minute %d: %w", minute, domain.ErrInvalidSample)
	}
	if second < 0 || second > 59 {
		return TimeSample{}, fmt.Errorf("second %d: %w", second, domain.ErrInvalidSample)
	}
	if format != Format12 && format != Format24 {
		return TimeSample{}, fmt.Errorf("format %d: %w", format, domain.ErrInvalidHourFormat)
	}
	return TimeSample{hour: uint8(hour), minute: uint8(minute), second: uint8(second), format: format}, nil
}

// MustSample is NewTimeSample that panics on invalid input. Use only in tests
// and for literal constants.
func MustSample(hour, minute, second int, format HourFormat) TimeSample {
	s, err := NewTimeSample(hour, minute, second, format)
	if err != nil {
		panic(err)
	}
	return s
}

// SampleAt extracts a sample from t in t's own location. A leap second
// reading of 60 cannot occur with time.Time, so this never fails.
func SampleAt(t time.Time, format HourFormat) TimeSample {
	if format != Format24 {
		format = Format12
	}
	return TimeSample{
		hour:   uint8(t.Hour()),
		minute: uint8(t.Minute()),
		second: uint8(t.Second()),
		format: format,
	}
}

func (s TimeSample) Hour() int          { return int(s.hour) }
func (s TimeSample) Minute() int        { return int(s.minute) }
func (s TimeSample) Second() int        { return int(s.second) }
func (s TimeSample) Format() HourFormat { return s.format }

// Meridiem reports AM for hours 0-11 and PM for 12-23.
func (s TimeSample) Meridiem() Meridiem {
	if s.hour >= 12 {
		return PM
	}
	return AM
}

// Until returns the duration from s forward to next, wrapping past midnight.
// Equal readings are a full day apart.
func (s TimeSample) Until(next TimeSample) time.Duration {
	const day = 24 * 60 * 60
	d := (next.secondOfDay() - s.secondOfDay() + day) % day
	if d == 0 {
		d = day
	}
	return time.Duration(d) * time.Second
}

func (s TimeSample) secondOfDay() int {
	return (int(s.hour)*60+int(s.minute))*60 + int(s.second)
}

func (s TimeSample) String() string {
	return fmt.Sprintf("%02d:%02d:%02d %s H%s", s.hour, s.minute, s.second, s.Meridiem(), s.format)
}
