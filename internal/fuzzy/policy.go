package fuzzy

import (
	"fmt"
	"strings"
	"time"

	"github.com/aelexs/fuzzyclock/internal/domain"
)

// Kind selects one of the four bucketing policies. The zero value is Warped,
// the default.
type Kind uint8

const (
	// Warped lags in the first half of the hour and races in the second.
	Warped Kind = iota
	// Fast rounds up to the next five minutes.
	Fast
	// Precise speaks the exact minute.
	Precise
	// Slow rounds down to the previous five minutes.
	Slow
)

// DefaultKind is used when no preference is stored.
const DefaultKind = Warped

var kindNames = [...]string{
	Warped:  "warped",
	Fast:    "fast",
	Precise: "precise",
	Slow:    "slow",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts a policy name (case-insensitive) into a Kind.
func ParseKind(raw string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return DefaultKind, fmt.Errorf("policy %q: %w", raw, domain.ErrInvalidPolicy)
}

// Kinds lists every policy kind.
func Kinds() []Kind {
	return []Kind{Warped, Fast, Precise, Slow}
}

// BucketID identifies the minute range a sample falls in. Values are only
// comparable within one policy.
type BucketID int

// NoBucket is returned for minutes outside 0..59.
const NoBucket BucketID = -1

// nearHourBucket is shared by the segments on either side of the hour.
const nearHourBucket BucketID = 0

// segment is a contiguous minute range [start, next segment's start).
type segment struct {
	start    int
	id       BucketID
	word     Token
	nearHour bool
}

// Policy is an immutable bucket table plus carry threshold.
type Policy struct {
	kind     Kind
	carry    int
	segments []segment
	index    [60]uint8 // minute -> segment position
}

type row struct {
	start int
	word  Token // Absent marks a near-hour row
}

func newPolicy(kind Kind, carry int, rows ...row) *Policy {
	p := &Policy{kind: kind, carry: carry}
	next := nearHourBucket + 1
	for _, r := range rows {
		seg := segment{start: r.start, word: r.word}
		if r.word == Absent {
			seg.nearHour = true
			seg.id = nearHourBucket
		} else {
			seg.id = next
			next++
		}
		p.segments = append(p.segments, seg)
	}
	pos := 0
	for m := 0; m < 60; m++ {
		if pos+1 < len(p.segments) && p.segments[pos+1].start <= m {
			pos++
		}
		p.index[m] = uint8(pos)
	}
	return p
}

func preciseRows() []row {
	rows := make([]row, 0, 60)
	rows = append(rows, row{start: 0})
	for m := 1; m < 60; m++ {
		n := m
		if m > 30 {
			n = 60 - m
		}
		w := Number(n)
		switch n {
		case 15:
			w = Quarter
		case 30:
			w = Half
		}
		rows = append(rows, row{start: m, word: w})
	}
	return rows
}

var policies = [...]*Policy{
	Warped: newPolicy(Warped, 35,
		row{0, Absent},
		row{5, Five},
		row{10, Ten},
		row{15, Quarter},
		row{20, Twenty},
		row{30, Half},
		row{35, TwentyFive},
		row{36, Twenty},
		row{41, Quarter},
		row{46, Ten},
		row{51, Five},
		row{56, Absent},
	),
	Fast: newPolicy(Fast, 31,
		row{0, Absent},
		row{1, Five},
		row{6, Ten},
		row{11, Quarter},
		row{16, Twenty},
		row{21, TwentyFive},
		row{26, Half},
		row{31, TwentyFive},
		row{36, Twenty},
		row{41, Quarter},
		row{46, Ten},
		row{51, Five},
		row{56, Absent},
	),
	Precise: newPolicy(Precise, 31, preciseRows()...),
	Slow: newPolicy(Slow, 35,
		row{0, Absent},
		row{5, Five},
		row{10, Ten},
		row{15, Quarter},
		row{20, Twenty},
		row{25, TwentyFive},
		row{30, Half},
		row{35, TwentyFive},
		row{40, Twenty},
		row{45, Quarter},
		row{50, Ten},
		row{55, Five},
	),
}

// PolicyFor returns the policy table for k.
func PolicyFor(k Kind) (Policy, error) {
	if int(k) >= len(policies) {
		return Policy{}, fmt.Errorf("policy kind %d: %w", uint8(k), domain.ErrInvalidPolicy)
	}
	return *policies[k], nil
}

// MustPolicy is PolicyFor that panics on an unknown kind.
func MustPolicy(k Kind) Policy {
	p, err := PolicyFor(k)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Policy) Kind() Kind { return p.kind }

// CarryThreshold is the minute from which the next hour is spoken.
func (p Policy) CarryThreshold() int { return p.carry }

// Bucket returns the bucket for minute, or NoBucket outside 0..59.
func (p Policy) Bucket(minute int) BucketID {
	if minute < 0 || minute > 59 || len(p.segments) == 0 {
		return NoBucket
	}
	return p.segments[p.index[minute]].id
}

// Changed reports whether a display showing (prev, prevHour) must redraw for
// (cur, curHour). The hour is compared too: a bucket can span the top of the
// hour while the hour itself moves on.
func (p Policy) Changed(prev BucketID, prevHour int, cur BucketID, curHour int) bool {
	return prev != cur || prevHour != curHour
}

// Phrase renders s.
func (p Policy) Phrase(s TimeSample) Phrase {
	seg := p.segments[p.index[s.minute]]

	h, modulus := int(s.hour), 24
	if s.format == Format12 {
		h, modulus = h%12, 12
	}
	carried := int(s.minute) >= p.carry
	if carried {
		h = (h + 1) % modulus
	}

	hour := hourWord(h)
	special := noonOrMidnight(s, h, carried)

	if seg.nearHour {
		if special != Absent {
			return Phrase{Separator: special}
		}
		sep := OClock
		if h > 12 {
			sep = Hundred
		}
		return Phrase{Minute: hour, Separator: sep}
	}

	// A 12-hour clock never pairs noon or midnight with a numeric minute:
	// "quarter to midnight" but "twenty past twelve".
	if special != Absent && (s.format == Format24 || !seg.word.IsNumber()) {
		hour = special
	}
	sep := Past
	if carried {
		sep = To
	}
	return Phrase{Minute: seg.word, Separator: sep, Hour: hour}
}

// noonOrMidnight resolves hour h (already advanced) to Noon or Midnight, or
// Absent when h is an ordinary hour. In 12-hour format h == 0 is ambiguous:
// without a carry the sample's own meridiem decides; with a carry the clock
// is about to cross into the other half of the day.
func noonOrMidnight(s TimeSample, h int, carried bool) Token {
	if s.format == Format24 {
		switch h {
		case 12:
			return Noon
		case 0:
			return Midnight
		}
		return Absent
	}
	if h != 0 {
		return Absent
	}
	pm := s.Meridiem() == PM
	if carried {
		pm = !pm
	}
	if pm {
		return Noon
	}
	return Midnight
}

// NextBoundary returns the first reading after s (at second zero) whose bucket
// differs from s's bucket. The two near-hour segments share a bucket, so a
// display showing "five o'clock" at 4:58 is not woken at 5:00.
func (p Policy) NextBoundary(s TimeSample) TimeSample {
	ahead := p.minutesToBoundary(int(s.minute))
	total := int(s.hour)*60 + int(s.minute) + ahead
	return TimeSample{
		hour:   uint8((total / 60) % 24),
		minute: uint8(total % 60),
		format: s.format,
	}
}

// WakeOffset is the delay from s until NextBoundary(s). It lands exactly on
// the boundary regardless of the seconds within the current minute.
func (p Policy) WakeOffset(s TimeSample) time.Duration {
	return time.Duration(p.minutesToBoundary(int(s.minute)))*time.Minute -
		time.Duration(s.second)*time.Second
}

func (p Policy) minutesToBoundary(minute int) int {
	n := len(p.segments)
	i := int(p.index[minute])
	cur := p.segments[i].id
	for j := i + 1; j <= i+n; j++ {
		seg := p.segments[j%n]
		if seg.id != cur {
			return seg.start + 60*(j/n) - minute
		}
	}
	// Unreachable with the built-in tables, which all have several buckets.
	return 60 - minute
}
