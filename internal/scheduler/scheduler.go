package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
)

var tracer = otel.Tracer("scheduler")

var (
	observationsTotal metric.Int64Counter
	redrawsTotal      metric.Int64Counter
	eventsTotal       metric.Int64Counter
	failuresTotal     metric.Int64Counter
)

func init() {
	m := otel.Meter("scheduler")

	observationsTotal, _ = m.Int64Counter("scheduler_observations_total",
		metric.WithDescription("Total clock observations"))
	redrawsTotal, _ = m.Int64Counter("scheduler_redraws_total",
		metric.WithDescription("Total observations that changed the phrase"))
	eventsTotal, _ = m.Int64Counter("scheduler_events_total",
		metric.WithDescription("Total inbound events handled"))
	failuresTotal, _ = m.Int64Counter("scheduler_failures_total",
		metric.WithDescription("Total sink or alarm failures"))
}

// Snapshot is the outcome of the latest trigger of one display.
type Snapshot struct {
	ID      domain.InstanceID
	Policy  fuzzy.Kind
	Sample  fuzzy.TimeSample
	Phrase  fuzzy.Phrase
	Changed bool
	WakeAt  time.Time
}

// Config holds the dependencies for a Scheduler.
type Config struct {
	ID       domain.InstanceID
	Policy   fuzzy.Kind
	Format   FormatPreference
	Clock    domain.Clock
	Location *time.Location
	Formats  FormatProvider
	Alarms   AlarmService
	Sink     DisplaySink
	Logger   *slog.Logger
}

// Scheduler drives one display: it observes the clock, renders on change
// and arms the next wake-up.
type Scheduler struct {
	id      domain.InstanceID
	engine  *fuzzy.Engine
	format  FormatPreference
	clock   domain.Clock
	loc     *time.Location
	formats FormatProvider
	alarms  AlarmService
	sink    DisplaySink
	logger  *slog.Logger

	lastFormat fuzzy.HourFormat
	last       Snapshot
	triggered  bool
}

// New creates a Scheduler. An unknown policy kind falls back to the default.
func New(cfg Config) *Scheduler {
	p, err := fuzzy.PolicyFor(cfg.Policy)
	if err != nil {
		p = fuzzy.MustPolicy(fuzzy.DefaultKind)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		id:      cfg.ID,
		engine:  fuzzy.NewEngine(p),
		format:  cfg.Format,
		clock:   cfg.Clock,
		loc:     loc,
		formats: cfg.Formats,
		alarms:  cfg.Alarms,
		sink:    cfg.Sink,
		logger:  logger,
	}
}

func (s *Scheduler) ID() domain.InstanceID { return s.id }

// Trigger runs one observation: read the clock in the configured zone, build
// a sample, render when the phrase changed and re-arm the wake-up. Sink and
// alarm failures are returned joined; the observation itself always
// completes.
func (s *Scheduler) Trigger(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "scheduler.trigger")
	defer span.End()

	now := domain.FromMillis(domain.NowMillis(s.clock), s.loc)
	format := s.format.Resolve(s.formats)
	if s.triggered && format != s.lastFormat {
		s.engine.Reset()
	}
	s.lastFormat = format

	sample := fuzzy.SampleAt(now, format)
	changed, phrase := s.engine.Observe(sample)
	offset := s.engine.NextWakeOffset(sample)
	wakeAt := now.Truncate(time.Second).Add(offset)

	kind := s.engine.Policy().Kind()
	span.SetAttributes(
		attribute.String("instance", s.id.String()),
		attribute.String("policy", kind.String()),
		attribute.Bool("changed", changed),
	)
	observationsTotal.Add(ctx, 1)

	var errs []error
	if changed {
		redrawsTotal.Add(ctx, 1)
		if err := s.sink.Render(ctx, s.id, phrase); err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", s.id, err))
		}
	}
	if err := s.alarms.Arm(ctx, s.id, wakeAt); err != nil {
		errs = append(errs, fmt.Errorf("arm %s: %w", s.id, err))
	}

	s.logger.DebugContext(ctx, "clock observed",
		slog.String("instance", s.id.String()),
		slog.String("policy", kind.String()),
		slog.String("sample", sample.String()),
		slog.Bool("changed", changed),
		slog.Duration("wake_offset", offset),
	)

	s.last = Snapshot{
		ID:      s.id,
		Policy:  kind,
		Sample:  sample,
		Phrase:  phrase,
		Changed: changed,
		WakeAt:  wakeAt,
	}
	s.triggered = true

	if err := errors.Join(errs...); err != nil {
		failuresTotal.Add(ctx, int64(len(errs)))
		span.RecordError(err)
		return s.last, err
	}
	return s.last, nil
}

// Snapshot returns the result of the latest trigger.
func (s *Scheduler) Snapshot() (Snapshot, bool) {
	return s.last, s.triggered
}

// Reset forgets the change baseline so the next trigger redraws.
func (s *Scheduler) Reset() {
	s.engine.Reset()
}

// Apply switches policy and format. The baseline is reset.
func (s *Scheduler) Apply(kind fuzzy.Kind, format FormatPreference) error {
	p, err := fuzzy.PolicyFor(kind)
	if err != nil {
		return err
	}
	s.engine.SetPolicy(p)
	s.format = format
	return nil
}

// SetLocation changes the timezone override and resets the baseline.
func (s *Scheduler) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	s.loc = loc
	s.engine.Reset()
}

// Stop cancels the pending wake-up.
func (s *Scheduler) Stop(ctx context.Context) error {
	if err := s.alarms.Cancel(ctx, s.id); err != nil {
		return fmt.Errorf("cancel %s: %w", s.id, err)
	}
	return nil
}
