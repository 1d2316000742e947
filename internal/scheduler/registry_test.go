package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/domain/domaintest"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
	"github.com/aelexs/fuzzyclock/internal/scheduler"
)

type registryHarness struct {
	reg    *scheduler.Registry
	clock  *domaintest.FakeClock
	alarms *stubAlarms
	sink   *stubSink
	prefs  *stubPrefs
}

func newRegistryHarness(t *testing.T) *registryHarness {
	t.Helper()
	h := &registryHarness{
		clock:  domaintest.NewFakeClock(domaintest.Wall(4, 26, 30)),
		alarms: newStubAlarms(),
		sink:   &stubSink{},
		prefs:  newStubPrefs(),
	}
	h.reg = scheduler.NewRegistry(scheduler.RegistryConfig{
		Clock:    h.clock,
		Location: time.UTC,
		Formats:  scheduler.StaticFormat(fuzzy.Format24),
		Alarms:   h.alarms,
		Sink:     h.sink,
		Prefs:    h.prefs,
	})
	return h
}

func (h *registryHarness) add(t *testing.T, raw string, p scheduler.Preferences) domain.InstanceID {
	t.Helper()
	id := domain.MustInstanceID(raw)
	require.NoError(t, h.prefs.Put(context.Background(), id, p))
	require.NoError(t, h.reg.Handle(context.Background(), scheduler.Added(id)))
	return id
}

func TestRegistry_InstanceIsolation(t *testing.T) {
	h := newRegistryHarness(t)
	a := h.add(t, "a", scheduler.Preferences{Portrait: fuzzy.Precise})
	b := h.add(t, "b", scheduler.Preferences{Portrait: fuzzy.Warped})

	snapA, err := h.reg.Snapshot(a)
	require.NoError(t, err)
	snapB, err := h.reg.Snapshot(b)
	require.NoError(t, err)

	assert.Equal(t, fuzzy.TwentySix, snapA.Phrase.Minute)
	assert.Equal(t, fuzzy.Twenty, snapB.Phrase.Minute)
	assert.Equal(t, domaintest.Wall(4, 27, 0), snapA.WakeAt)
	assert.Equal(t, domaintest.Wall(4, 30, 0), snapB.WakeAt)

	h.clock.SetWall(4, 27, 0)
	require.NoError(t, h.reg.Handle(context.Background(), scheduler.TickAll()))

	snapA, _ = h.reg.Snapshot(a)
	snapB, _ = h.reg.Snapshot(b)
	assert.True(t, snapA.Changed)
	assert.False(t, snapB.Changed)
	atB, _ := h.alarms.at(b)
	assert.Equal(t, domaintest.Wall(4, 30, 0), atB)
}

func TestRegistry_Tick(t *testing.T) {
	t.Run("unknown instance is created lazily", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := domain.MustInstanceID("w9")
		require.NoError(t, h.prefs.Put(context.Background(), id, scheduler.Preferences{Portrait: fuzzy.Slow}))

		require.NoError(t, h.reg.Handle(context.Background(), scheduler.TickFor(id)))

		snap, err := h.reg.Snapshot(id)
		require.NoError(t, err)
		assert.Equal(t, fuzzy.Slow, snap.Policy)
		assert.Equal(t, []domain.InstanceID{id}, h.reg.Instances())
	})

	t.Run("preference failure is reported", func(t *testing.T) {
		h := newRegistryHarness(t)
		h.prefs.getFn = func(context.Context, domain.InstanceID) (scheduler.Preferences, error) {
			return scheduler.Preferences{}, domain.ErrUnavailable
		}

		err := h.reg.Handle(context.Background(), scheduler.TickFor(domain.MustInstanceID("w1")))

		assert.ErrorIs(t, err, domain.ErrUnavailable)
		assert.Empty(t, h.reg.Instances())
	})

	t.Run("tick for removed instance is dropped", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := h.add(t, "w1", scheduler.Preferences{})
		require.NoError(t, h.reg.Handle(context.Background(), scheduler.Removed(id)))
		renders := h.sink.count()

		require.NoError(t, h.reg.Handle(context.Background(), scheduler.TickFor(id)))

		assert.Equal(t, renders, h.sink.count(), "a torn-down instance is never observed again")
		assert.Empty(t, h.reg.Instances())
	})
}

func TestRegistry_Remove(t *testing.T) {
	t.Run("cancels alarm and deletes preferences", func(t *testing.T) {
		h := newRegistryHarness(t)
		a := h.add(t, "a", scheduler.Preferences{})
		b := h.add(t, "b", scheduler.Preferences{})

		require.NoError(t, h.reg.Handle(context.Background(), scheduler.Removed(a)))

		_, armed := h.alarms.at(a)
		assert.False(t, armed)
		_, armedB := h.alarms.at(b)
		assert.True(t, armedB)
		assert.Contains(t, h.prefs.deleted, a)
		assert.Contains(t, h.sink.forgotten, a)
		assert.Equal(t, 0, h.alarms.cancelAll)
		_, err := h.reg.Snapshot(a)
		assert.ErrorIs(t, err, domain.ErrInstanceRemoved)
	})

	t.Run("last instance cancels every wake-up", func(t *testing.T) {
		h := newRegistryHarness(t)
		a := h.add(t, "a", scheduler.Preferences{})

		require.NoError(t, h.reg.Handle(context.Background(), scheduler.Removed(a)))

		assert.Equal(t, 1, h.alarms.cancelAll)
	})

	t.Run("unknown instance", func(t *testing.T) {
		h := newRegistryHarness(t)

		err := h.reg.Handle(context.Background(), scheduler.Removed(domain.MustInstanceID("ghost")))

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("re-adding clears the tombstone", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := h.add(t, "w1", scheduler.Preferences{})
		require.NoError(t, h.reg.Handle(context.Background(), scheduler.Removed(id)))

		require.NoError(t, h.reg.Handle(context.Background(), scheduler.Added(id)))
		require.NoError(t, h.reg.Handle(context.Background(), scheduler.TickFor(id)))

		_, err := h.reg.Snapshot(id)
		assert.NoError(t, err)
	})
}

func TestRegistry_Add(t *testing.T) {
	h := newRegistryHarness(t)

	err := h.reg.Handle(context.Background(), scheduler.Added(domain.InstanceID{}))

	assert.ErrorIs(t, err, domain.ErrEmptyID)
}

func TestRegistry_Create(t *testing.T) {
	precise := func(p scheduler.Preferences) (scheduler.Preferences, error) {
		p.Portrait = fuzzy.Precise
		return p, nil
	}

	t.Run("stores preferences and triggers", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := domain.MustInstanceID("w1")

		require.NoError(t, h.reg.Create(context.Background(), id, precise))

		p, err := h.prefs.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, fuzzy.Precise, p.Portrait)
		snap, err := h.reg.Snapshot(id)
		require.NoError(t, err)
		assert.Equal(t, fuzzy.TwentySix, snap.Phrase.Minute)
		assert.Equal(t, 1, h.sink.count())
	})

	t.Run("registered id conflicts", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := h.add(t, "w1", scheduler.Preferences{Portrait: fuzzy.Slow})

		err := h.reg.Create(context.Background(), id, precise)

		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
		p, _ := h.prefs.Get(context.Background(), id)
		assert.Equal(t, fuzzy.Slow, p.Portrait, "stored preferences are untouched")
		assert.Equal(t, 1, h.sink.count())
	})

	t.Run("removed id can be created again", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := h.add(t, "w1", scheduler.Preferences{})
		require.NoError(t, h.reg.Handle(context.Background(), scheduler.Removed(id)))

		require.NoError(t, h.reg.Create(context.Background(), id, nil))

		_, err := h.reg.Snapshot(id)
		assert.NoError(t, err)
	})

	t.Run("update failure registers nothing", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := domain.MustInstanceID("w1")

		err := h.reg.Create(context.Background(), id, func(p scheduler.Preferences) (scheduler.Preferences, error) {
			return p, domain.ErrInvalidPolicy
		})

		assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
		assert.Empty(t, h.reg.Instances())
		_, stored := h.prefs.stored[id]
		assert.False(t, stored)
	})

	t.Run("render failure still registers", func(t *testing.T) {
		h := newRegistryHarness(t)
		h.sink.renderFn = func(context.Context, domain.InstanceID, fuzzy.Phrase) error {
			return errors.New("screen off")
		}
		id := domain.MustInstanceID("w1")

		require.NoError(t, h.reg.Create(context.Background(), id, nil))

		assert.Equal(t, []domain.InstanceID{id}, h.reg.Instances())
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		h := newRegistryHarness(t)

		err := h.reg.Create(context.Background(), domain.InstanceID{}, nil)

		assert.ErrorIs(t, err, domain.ErrEmptyID)
	})
}

func TestRegistry_TimezoneChanged(t *testing.T) {
	t.Run("re-observes in the new zone", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := h.add(t, "w1", scheduler.Preferences{})

		require.NoError(t, h.reg.Handle(context.Background(), scheduler.TimezoneChange("Etc/GMT-2")))

		snap, err := h.reg.Snapshot(id)
		require.NoError(t, err)
		assert.True(t, snap.Changed)
		assert.Equal(t, 6, snap.Sample.Hour())
		assert.Equal(t, fuzzy.Six, snap.Phrase.Hour)
	})

	t.Run("invalid zone", func(t *testing.T) {
		h := newRegistryHarness(t)

		err := h.reg.Handle(context.Background(), scheduler.TimezoneChange("Mars/Olympus"))

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRegistry_FormatChanged(t *testing.T) {
	h := newRegistryHarness(t)
	h.add(t, "a", scheduler.Preferences{})
	h.add(t, "b", scheduler.Preferences{})
	before := h.sink.count()

	require.NoError(t, h.reg.Handle(context.Background(), scheduler.FormatChange()))

	assert.Equal(t, before+2, h.sink.count(), "every instance redraws")
}

func TestRegistry_ConfigurationChanged(t *testing.T) {
	t.Run("switches to the landscape policy", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := h.add(t, "w1", scheduler.Preferences{Portrait: fuzzy.Warped, Landscape: fuzzy.Precise})

		require.NoError(t, h.reg.Handle(context.Background(), scheduler.Reconfigure(domain.OrientationLandscape)))

		snap, err := h.reg.Snapshot(id)
		require.NoError(t, err)
		assert.Equal(t, fuzzy.Precise, snap.Policy)
		assert.True(t, snap.Changed)
		assert.Equal(t, domain.OrientationLandscape, h.reg.Orientation())
	})

	t.Run("picks up changed preferences", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := h.add(t, "w1", scheduler.Preferences{})
		require.NoError(t, h.prefs.Put(context.Background(), id, scheduler.Preferences{Portrait: fuzzy.Fast, HourFormat: scheduler.Format12}))

		require.NoError(t, h.reg.Handle(context.Background(), scheduler.Reconfigure("")))

		snap, err := h.reg.Snapshot(id)
		require.NoError(t, err)
		assert.Equal(t, fuzzy.Fast, snap.Policy)
		assert.Equal(t, fuzzy.Format12, snap.Sample.Format())
	})

	t.Run("store failure keeps the policy and still redraws", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := h.add(t, "w1", scheduler.Preferences{Portrait: fuzzy.Slow})
		h.prefs.getFn = func(context.Context, domain.InstanceID) (scheduler.Preferences, error) {
			return scheduler.Preferences{}, errors.New("store down")
		}
		before := h.sink.count()

		err := h.reg.Handle(context.Background(), scheduler.Reconfigure(domain.OrientationLandscape))

		assert.Error(t, err)
		snap, _ := h.reg.Snapshot(id)
		assert.Equal(t, fuzzy.Slow, snap.Policy)
		assert.Equal(t, before+1, h.sink.count())
	})

	t.Run("invalid orientation", func(t *testing.T) {
		h := newRegistryHarness(t)

		err := h.reg.Handle(context.Background(), scheduler.Reconfigure("sideways"))

		assert.ErrorIs(t, err, domain.ErrInvalidOrientation)
	})
}

func TestRegistry_UnknownEvent(t *testing.T) {
	h := newRegistryHarness(t)

	err := h.reg.Handle(context.Background(), scheduler.Event{Kind: scheduler.EventKind(99)})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_Run(t *testing.T) {
	t.Run("consumes events in order until closed", func(t *testing.T) {
		h := newRegistryHarness(t)
		id := domain.MustInstanceID("w1")
		events := make(chan scheduler.Event, 4)
		events <- scheduler.Added(id)
		events <- scheduler.Removed(domain.MustInstanceID("ghost"))
		events <- scheduler.TickFor(id)
		close(events)

		err := h.reg.Run(context.Background(), events)

		require.NoError(t, err)
		assert.Equal(t, []domain.InstanceID{id}, h.reg.Instances(), "a failing event does not stop the loop")
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		h := newRegistryHarness(t)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() { done <- h.reg.Run(ctx, make(chan scheduler.Event)) }()
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})
}

func TestParseEventKind(t *testing.T) {
	for _, k := range []scheduler.EventKind{
		scheduler.Tick,
		scheduler.TimezoneChanged,
		scheduler.FormatChanged,
		scheduler.InstanceAdded,
		scheduler.InstanceRemoved,
		scheduler.ConfigurationChanged,
	} {
		got, err := scheduler.ParseEventKind(k.String())

		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := scheduler.ParseEventKind("explode")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
