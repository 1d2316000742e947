package fuzzy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
)

const (
	h12 = fuzzy.Format12
	h24 = fuzzy.Format24
)

// spoken builds the expected phrase in display order.
func spoken(minute, separator, hour fuzzy.Token) fuzzy.Phrase {
	return fuzzy.Phrase{Minute: minute, Separator: separator, Hour: hour}
}

type phraseCase struct {
	name   string
	hour   int
	minute int
	format fuzzy.HourFormat
	want   fuzzy.Phrase
}

func runPhraseCases(t *testing.T, kind fuzzy.Kind, cases []phraseCase) {
	t.Helper()
	p := fuzzy.MustPolicy(kind)
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Phrase(fuzzy.MustSample(tt.hour, tt.minute, 0, tt.format))

			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

func TestWarped_Phrase(t *testing.T) {
	x := fuzzy.Absent
	runPhraseCases(t, fuzzy.Warped, []phraseCase{
		{"twenty past four", 4, 26, h24, spoken(fuzzy.Twenty, fuzzy.Past, fuzzy.Four)},
		{"twenty to one after midnight", 0, 40, h24, spoken(fuzzy.Twenty, fuzzy.To, fuzzy.One)},
		{"midnight around the hour", 0, 2, h12, spoken(x, fuzzy.Midnight, x)},
		{"four o'clock", 4, 2, h24, spoken(fuzzy.Four, fuzzy.OClock, x)},
		{"o'clock uses next hour", 4, 58, h24, spoken(fuzzy.Five, fuzzy.OClock, x)},
		{"afternoon hundred", 13, 58, h24, spoken(fuzzy.Fourteen, fuzzy.Hundred, x)},
		{"noon around the hour 24h", 12, 3, h24, spoken(x, fuzzy.Noon, x)},
		{"noon approaching 24h", 11, 57, h24, spoken(x, fuzzy.Noon, x)},
		{"midnight approaching 24h", 23, 57, h24, spoken(x, fuzzy.Midnight, x)},
		{"noon approaching 12h", 11, 57, h12, spoken(x, fuzzy.Noon, x)},
		{"noon just past 12h", 12, 3, h12, spoken(x, fuzzy.Noon, x)},
		{"midnight approaching 12h", 23, 57, h12, spoken(x, fuzzy.Midnight, x)},
		{"twenty past noon 24h", 12, 20, h24, spoken(fuzzy.Twenty, fuzzy.Past, fuzzy.Noon)},
		{"twenty past twelve 12h", 12, 20, h12, spoken(fuzzy.Twenty, fuzzy.Past, fuzzy.Twelve)},
		{"twenty to midnight 24h", 23, 40, h24, spoken(fuzzy.Twenty, fuzzy.To, fuzzy.Midnight)},
		{"twenty to twelve 12h", 23, 40, h12, spoken(fuzzy.Twenty, fuzzy.To, fuzzy.Twelve)},
		{"quarter to midnight 12h", 23, 45, h12, spoken(fuzzy.Quarter, fuzzy.To, fuzzy.Midnight)},
		{"quarter past noon 12h", 12, 15, h12, spoken(fuzzy.Quarter, fuzzy.Past, fuzzy.Noon)},
		{"half past midnight 12h", 0, 30, h12, spoken(fuzzy.Half, fuzzy.Past, fuzzy.Midnight)},
		{"quarter to noon 12h", 11, 45, h12, spoken(fuzzy.Quarter, fuzzy.To, fuzzy.Noon)},
		{"five past", 4, 5, h24, spoken(fuzzy.Five, fuzzy.Past, fuzzy.Four)},
		{"quarter past", 4, 19, h24, spoken(fuzzy.Quarter, fuzzy.Past, fuzzy.Four)},
		{"long twenty", 4, 29, h24, spoken(fuzzy.Twenty, fuzzy.Past, fuzzy.Four)},
		{"half past", 4, 30, h24, spoken(fuzzy.Half, fuzzy.Past, fuzzy.Four)},
		{"half past until 34", 4, 34, h24, spoken(fuzzy.Half, fuzzy.Past, fuzzy.Four)},
		{"twenty-five to at 35 only", 4, 35, h24, spoken(fuzzy.TwentyFive, fuzzy.To, fuzzy.Five)},
		{"twenty to from 36", 4, 36, h24, spoken(fuzzy.Twenty, fuzzy.To, fuzzy.Five)},
		{"quarter to", 4, 45, h24, spoken(fuzzy.Quarter, fuzzy.To, fuzzy.Five)},
		{"quarter to 12h afternoon", 16, 45, h12, spoken(fuzzy.Quarter, fuzzy.To, fuzzy.Five)},
		{"quarter to 24h afternoon", 16, 45, h24, spoken(fuzzy.Quarter, fuzzy.To, fuzzy.Seventeen)},
		{"five to", 4, 55, h24, spoken(fuzzy.Five, fuzzy.To, fuzzy.Five)},
	})
}

func TestFast_Phrase(t *testing.T) {
	x := fuzzy.Absent
	runPhraseCases(t, fuzzy.Fast, []phraseCase{
		{"exactly on the hour", 4, 0, h24, spoken(fuzzy.Four, fuzzy.OClock, x)},
		{"rounds up to five past", 4, 1, h24, spoken(fuzzy.Five, fuzzy.Past, fuzzy.Four)},
		{"twenty-five past", 4, 21, h24, spoken(fuzzy.TwentyFive, fuzzy.Past, fuzzy.Four)},
		{"half past", 4, 30, h24, spoken(fuzzy.Half, fuzzy.Past, fuzzy.Four)},
		{"carries from 31", 4, 31, h24, spoken(fuzzy.TwentyFive, fuzzy.To, fuzzy.Five)},
		{"five to", 4, 55, h24, spoken(fuzzy.Five, fuzzy.To, fuzzy.Five)},
		{"next o'clock from 56", 4, 56, h24, spoken(fuzzy.Five, fuzzy.OClock, x)},
		{"midnight on the hour 12h", 0, 0, h12, spoken(x, fuzzy.Midnight, x)},
		{"noon approaching 12h", 11, 58, h12, spoken(x, fuzzy.Noon, x)},
	})
}

func TestSlow_Phrase(t *testing.T) {
	x := fuzzy.Absent
	runPhraseCases(t, fuzzy.Slow, []phraseCase{
		{"o'clock until 4", 4, 4, h24, spoken(fuzzy.Four, fuzzy.OClock, x)},
		{"five past from 5", 4, 5, h24, spoken(fuzzy.Five, fuzzy.Past, fuzzy.Four)},
		{"twenty-five past", 4, 29, h24, spoken(fuzzy.TwentyFive, fuzzy.Past, fuzzy.Four)},
		{"half past until 34", 4, 34, h24, spoken(fuzzy.Half, fuzzy.Past, fuzzy.Four)},
		{"carries from 35", 4, 35, h24, spoken(fuzzy.TwentyFive, fuzzy.To, fuzzy.Five)},
		{"five to until 59", 4, 59, h24, spoken(fuzzy.Five, fuzzy.To, fuzzy.Five)},
		{"five to midnight 12h", 23, 59, h12, spoken(fuzzy.Five, fuzzy.To, fuzzy.Twelve)},
		{"quarter to noon 12h", 11, 45, h12, spoken(fuzzy.Quarter, fuzzy.To, fuzzy.Noon)},
		{"quarter to midnight 12h", 23, 45, h12, spoken(fuzzy.Quarter, fuzzy.To, fuzzy.Midnight)},
		{"half past noon 12h", 12, 30, h12, spoken(fuzzy.Half, fuzzy.Past, fuzzy.Noon)},
		{"twenty past twelve 12h", 12, 20, h12, spoken(fuzzy.Twenty, fuzzy.Past, fuzzy.Twelve)},
		{"noon on the hour 24h", 12, 0, h24, spoken(x, fuzzy.Noon, x)},
	})
}

func TestPrecise_Phrase(t *testing.T) {
	x := fuzzy.Absent
	runPhraseCases(t, fuzzy.Precise, []phraseCase{
		{"exact minute word", 11, 20, h12, spoken(fuzzy.Twenty, fuzzy.Past, fuzzy.Eleven)},
		{"o'clock", 11, 0, h12, spoken(fuzzy.Eleven, fuzzy.OClock, x)},
		{"one past", 11, 1, h12, spoken(fuzzy.One, fuzzy.Past, fuzzy.Eleven)},
		{"quarter past", 11, 15, h12, spoken(fuzzy.Quarter, fuzzy.Past, fuzzy.Eleven)},
		{"twenty-nine past", 11, 29, h12, spoken(fuzzy.TwentyNine, fuzzy.Past, fuzzy.Eleven)},
		{"half past", 11, 30, h12, spoken(fuzzy.Half, fuzzy.Past, fuzzy.Eleven)},
		{"carries from 31 12h", 11, 31, h12, spoken(fuzzy.TwentyNine, fuzzy.To, fuzzy.Twelve)},
		{"carries from 31 24h", 11, 31, h24, spoken(fuzzy.TwentyNine, fuzzy.To, fuzzy.Noon)},
		{"quarter to", 11, 45, h24, spoken(fuzzy.Quarter, fuzzy.To, fuzzy.Noon)},
		{"one to", 11, 59, h24, spoken(fuzzy.One, fuzzy.To, fuzzy.Noon)},
		{"midnight on the hour", 0, 0, h12, spoken(x, fuzzy.Midnight, x)},
		{"hundred on the hour", 18, 0, h24, spoken(fuzzy.Eighteen, fuzzy.Hundred, x)},
	})
}

func TestPolicy_Bucket(t *testing.T) {
	t.Run("near-hour minutes share a bucket", func(t *testing.T) {
		p := fuzzy.MustPolicy(fuzzy.Warped)

		assert.Equal(t, p.Bucket(0), p.Bucket(4))
		assert.Equal(t, p.Bucket(0), p.Bucket(56))
		assert.Equal(t, p.Bucket(0), p.Bucket(59))
	})

	t.Run("warped thirty-five is a singleton", func(t *testing.T) {
		p := fuzzy.MustPolicy(fuzzy.Warped)

		assert.NotEqual(t, p.Bucket(34), p.Bucket(35))
		assert.NotEqual(t, p.Bucket(35), p.Bucket(36))
		assert.Equal(t, p.Bucket(20), p.Bucket(29))
	})

	t.Run("precise has sixty buckets", func(t *testing.T) {
		p := fuzzy.MustPolicy(fuzzy.Precise)
		seen := map[fuzzy.BucketID]bool{}
		for m := 0; m < 60; m++ {
			seen[p.Bucket(m)] = true
		}

		assert.Len(t, seen, 60)
	})

	t.Run("buckets are ordered within the hour", func(t *testing.T) {
		for _, k := range fuzzy.Kinds() {
			p := fuzzy.MustPolicy(k)
			for m := 1; m < 60; m++ {
				prev, cur := p.Bucket(m-1), p.Bucket(m)
				if cur != prev && cur != p.Bucket(0) {
					assert.Greater(t, cur, prev, "%s minute %d", k, m)
				}
			}
		}
	})

	t.Run("out of range minutes have no bucket", func(t *testing.T) {
		p := fuzzy.MustPolicy(fuzzy.Slow)

		assert.Equal(t, fuzzy.NoBucket, p.Bucket(-1))
		assert.Equal(t, fuzzy.NoBucket, p.Bucket(60))
	})
}

func TestPolicy_CarryThreshold(t *testing.T) {
	tests := []struct {
		kind fuzzy.Kind
		want int
	}{
		{fuzzy.Warped, 35},
		{fuzzy.Fast, 31},
		{fuzzy.Precise, 31},
		{fuzzy.Slow, 35},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, fuzzy.MustPolicy(tt.kind).CarryThreshold())
		})
	}
}

func TestPolicy_Changed(t *testing.T) {
	p := fuzzy.MustPolicy(fuzzy.Warped)

	assert.False(t, p.Changed(3, 4, 3, 4))
	assert.True(t, p.Changed(3, 4, 4, 4), "bucket moved")
	assert.True(t, p.Changed(0, 4, 0, 5), "hour moved inside the near-hour bucket")
}

func TestPolicy_NextBoundary(t *testing.T) {
	tests := []struct {
		name       string
		kind       fuzzy.Kind
		sample     fuzzy.TimeSample
		wantHour   int
		wantMinute int
		wantOffset time.Duration
	}{
		{"warped mid bucket", fuzzy.Warped, fuzzy.MustSample(4, 26, 30, h24), 4, 30, 3*time.Minute + 30*time.Second},
		{"warped singleton", fuzzy.Warped, fuzzy.MustSample(4, 35, 10, h24), 4, 36, 50 * time.Second},
		{"warped skips the hour", fuzzy.Warped, fuzzy.MustSample(4, 57, 0, h24), 5, 5, 8 * time.Minute},
		{"warped wraps the day", fuzzy.Warped, fuzzy.MustSample(23, 58, 0, h24), 0, 5, 7 * time.Minute},
		{"warped before the hour from the top", fuzzy.Warped, fuzzy.MustSample(5, 0, 0, h12), 5, 5, 5 * time.Minute},
		{"fast near hour", fuzzy.Fast, fuzzy.MustSample(4, 56, 0, h24), 5, 1, 5 * time.Minute},
		{"fast on the hour", fuzzy.Fast, fuzzy.MustSample(4, 0, 20, h24), 4, 1, 40 * time.Second},
		{"slow last bucket", fuzzy.Slow, fuzzy.MustSample(23, 55, 0, h24), 0, 0, 5 * time.Minute},
		{"slow first bucket", fuzzy.Slow, fuzzy.MustSample(7, 3, 15, h12), 7, 5, time.Minute + 45*time.Second},
		{"precise last second", fuzzy.Precise, fuzzy.MustSample(4, 59, 59, h24), 5, 0, time.Second},
		{"precise end of day", fuzzy.Precise, fuzzy.MustSample(23, 59, 0, h24), 0, 0, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fuzzy.MustPolicy(tt.kind)

			next := p.NextBoundary(tt.sample)

			assert.Equal(t, tt.wantHour, next.Hour())
			assert.Equal(t, tt.wantMinute, next.Minute())
			assert.Equal(t, 0, next.Second())
			assert.Equal(t, tt.sample.Format(), next.Format())
			assert.Equal(t, tt.wantOffset, p.WakeOffset(tt.sample))
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		raw     string
		want    fuzzy.Kind
		wantErr bool
	}{
		{raw: "warped", want: fuzzy.Warped},
		{raw: "Fast", want: fuzzy.Fast},
		{raw: " precise ", want: fuzzy.Precise},
		{raw: "SLOW", want: fuzzy.Slow},
		{raw: "lazy", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := fuzzy.ParseKind(tt.raw)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, fuzzy.MustPolicy(got).Kind())
		})
	}
}

func TestPolicyFor_UnknownKind(t *testing.T) {
	_, err := fuzzy.PolicyFor(fuzzy.Kind(42))

	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
	assert.Equal(t, "kind(42)", fuzzy.Kind(42).String())
}

func TestDefaultKindIsWarped(t *testing.T) {
	var zero fuzzy.Kind

	assert.Equal(t, fuzzy.Warped, fuzzy.DefaultKind)
	assert.Equal(t, fuzzy.DefaultKind, zero)
}
