package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/fuzzyclock/internal/domain"
)

// RegistryConfig holds the dependencies shared by every display in a
// Registry.
type RegistryConfig struct {
	Clock       domain.Clock
	Location    *time.Location
	Orientation domain.Orientation
	Formats     FormatProvider
	Alarms      AlarmService
	Sink        DisplaySink
	Prefs       PreferenceStore
	Logger      *slog.Logger
}

// Registry owns one Scheduler per display instance. Handle calls are
// serialized, so events take effect in the order they are handled.
type Registry struct {
	clock   domain.Clock
	formats FormatProvider
	alarms  AlarmService
	sink    DisplaySink
	prefs   PreferenceStore
	logger  *slog.Logger

	mu          sync.Mutex
	loc         *time.Location
	orientation domain.Orientation
	entries     map[domain.InstanceID]*Scheduler
	removed     map[domain.InstanceID]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	orientation := cfg.Orientation
	if orientation == "" {
		orientation = domain.OrientationPortrait
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		clock:       cfg.Clock,
		formats:     cfg.Formats,
		alarms:      cfg.Alarms,
		sink:        cfg.Sink,
		prefs:       cfg.Prefs,
		logger:      logger,
		loc:         loc,
		orientation: orientation,
		entries:     make(map[domain.InstanceID]*Scheduler),
		removed:     make(map[domain.InstanceID]struct{}),
	}
}

// Run handles events until ctx is cancelled or events is closed. Handler
// errors are logged and never stop the loop.
func (r *Registry) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.Handle(ctx, ev); err != nil {
				r.logger.WarnContext(ctx, "event failed",
					slog.String("event", ev.Kind.String()),
					slog.String("instance", ev.Instance.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Handle applies one event.
func (r *Registry) Handle(ctx context.Context, ev Event) error {
	ctx, span := tracer.Start(ctx, "scheduler.handle")
	defer span.End()
	span.SetAttributes(attribute.String("event", ev.Kind.String()))
	eventsTotal.Add(ctx, 1)

	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	switch ev.Kind {
	case Tick:
		err = r.tick(ctx, ev.Instance)
	case TimezoneChanged:
		err = r.changeTimezone(ctx, ev.Timezone)
	case FormatChanged:
		err = r.resetAll(ctx)
	case InstanceAdded:
		err = r.add(ctx, ev.Instance)
	case InstanceRemoved:
		err = r.remove(ctx, ev.Instance)
	case ConfigurationChanged:
		err = r.reconfigure(ctx, ev.Orientation)
	default:
		err = fmt.Errorf("event kind %d: %w", uint8(ev.Kind), domain.ErrInvalidInput)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Registry) tick(ctx context.Context, id domain.InstanceID) error {
	if id.IsZero() {
		return r.triggerAll(ctx)
	}
	if _, gone := r.removed[id]; gone {
		r.logger.DebugContext(ctx, "tick for removed instance dropped",
			slog.String("instance", id.String()))
		return nil
	}
	s, ok := r.entries[id]
	if !ok {
		var err error
		if s, err = r.create(ctx, id); err != nil {
			return err
		}
	}
	_, err := s.Trigger(ctx)
	return err
}

func (r *Registry) add(ctx context.Context, id domain.InstanceID) error {
	if id.IsZero() {
		return fmt.Errorf("add instance: %w", domain.ErrEmptyID)
	}
	delete(r.removed, id)
	s, ok := r.entries[id]
	if !ok {
		var err error
		if s, err = r.create(ctx, id); err != nil {
			return err
		}
		r.logger.InfoContext(ctx, "instance added",
			slog.String("instance", id.String()),
			slog.String("policy", s.engine.Policy().Kind().String()),
		)
	}
	_, err := s.Trigger(ctx)
	return err
}

// Create registers a new instance with the preferences update derives from
// the stored ones, then triggers it. It fails with ErrAlreadyExists when id is
// already registered. A failed first trigger is logged; the instance stays
// registered.
func (r *Registry) Create(ctx context.Context, id domain.InstanceID, update func(Preferences) (Preferences, error)) error {
	ctx, span := tracer.Start(ctx, "scheduler.create")
	defer span.End()
	span.SetAttributes(attribute.String("instance", id.String()))

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.createExclusive(ctx, id, update)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Registry) createExclusive(ctx context.Context, id domain.InstanceID, update func(Preferences) (Preferences, error)) error {
	if id.IsZero() {
		return fmt.Errorf("create instance: %w", domain.ErrEmptyID)
	}
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("instance %s: %w", id, domain.ErrAlreadyExists)
	}

	p, err := r.prefs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load preferences for %s: %w", id, err)
	}
	if update != nil {
		if p, err = update(p); err != nil {
			return err
		}
	}
	if err := r.prefs.Put(ctx, id, p); err != nil {
		return fmt.Errorf("store preferences for %s: %w", id, err)
	}

	if err := r.add(ctx, id); err != nil {
		if _, ok := r.entries[id]; !ok {
			return err
		}
		r.logger.WarnContext(ctx, "first trigger failed",
			slog.String("instance", id.String()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// create must be called with r.mu held.
func (r *Registry) create(ctx context.Context, id domain.InstanceID) (*Scheduler, error) {
	p, err := r.prefs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load preferences for %s: %w", id, err)
	}
	s := New(Config{
		ID:       id,
		Policy:   p.PolicyFor(r.orientation),
		Format:   p.HourFormat,
		Clock:    r.clock,
		Location: r.loc,
		Formats:  r.formats,
		Alarms:   r.alarms,
		Sink:     r.sink,
		Logger:   r.logger,
	})
	r.entries[id] = s
	return s, nil
}

func (r *Registry) remove(ctx context.Context, id domain.InstanceID) error {
	s, ok := r.entries[id]
	r.removed[id] = struct{}{}

	var errs []error
	if ok {
		delete(r.entries, id)
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	} else {
		errs = append(errs, fmt.Errorf("remove %s: %w", id, domain.ErrNotFound))
	}
	if err := r.prefs.Delete(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("delete preferences for %s: %w", id, err))
	}
	if f, ok := r.sink.(forgetter); ok {
		f.Forget(id)
	}
	if ok {
		r.logger.InfoContext(ctx, "instance removed", slog.String("instance", id.String()))
	}

	if len(r.entries) == 0 {
		if err := r.alarms.CancelAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cancel all wake-ups: %w", err))
		}
		r.logger.InfoContext(ctx, "no instances left")
	}
	return errors.Join(errs...)
}

func (r *Registry) changeTimezone(ctx context.Context, zone string) error {
	loc, err := domain.LoadLocation(zone)
	if err != nil {
		return err
	}
	r.loc = loc
	for _, s := range r.entries {
		s.SetLocation(loc)
	}
	r.logger.InfoContext(ctx, "timezone changed", slog.String("timezone", loc.String()))
	return r.triggerAll(ctx)
}

func (r *Registry) resetAll(ctx context.Context) error {
	for _, s := range r.entries {
		s.Reset()
	}
	return r.triggerAll(ctx)
}

func (r *Registry) reconfigure(ctx context.Context, o domain.Orientation) error {
	if o != "" {
		if !domain.IsValidOrientation(o) {
			return fmt.Errorf("reconfigure: orientation %q: %w", o, domain.ErrInvalidOrientation)
		}
		r.orientation = o
	}

	var errs []error
	for _, id := range r.sortedIDs() {
		s := r.entries[id]
		p, err := r.prefs.Get(ctx, id)
		if err != nil {
			// Keep the current policy; the display must still be redrawn.
			errs = append(errs, fmt.Errorf("load preferences for %s: %w", id, err))
			s.Reset()
			continue
		}
		if err := s.Apply(p.PolicyFor(r.orientation), p.HourFormat); err != nil {
			errs = append(errs, fmt.Errorf("apply preferences for %s: %w", id, err))
			s.Reset()
		}
	}
	r.logger.InfoContext(ctx, "configuration changed",
		slog.String("orientation", string(r.orientation)),
		slog.Int("instances", len(r.entries)),
	)
	errs = append(errs, r.triggerAll(ctx))
	return errors.Join(errs...)
}

func (r *Registry) triggerAll(ctx context.Context) error {
	var errs []error
	for _, id := range r.sortedIDs() {
		if _, err := r.entries[id].Trigger(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) sortedIDs() []domain.InstanceID {
	ids := make([]domain.InstanceID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Snapshot returns the latest trigger result of id.
func (r *Registry) Snapshot(id domain.InstanceID) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.entries[id]
	if !ok {
		if _, gone := r.removed[id]; gone {
			return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, domain.ErrInstanceRemoved)
		}
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, domain.ErrNotFound)
	}
	snap, triggered := s.Snapshot()
	if !triggered {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, domain.ErrNotFound)
	}
	return snap, nil
}

// Instances lists the registered ids in order.
func (r *Registry) Instances() []domain.InstanceID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedIDs()
}

// Orientation is the orientation policies are currently derived for.
func (r *Registry) Orientation() domain.Orientation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orientation
}
