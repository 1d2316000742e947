// Package alarm arms exact, per-instance wake-ups backed by timers.
package alarm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/fuzzyclock/internal/domain"
)

var (
	armedTotal      metric.Int64Counter
	firedTotal      metric.Int64Counter
	supersededTotal metric.Int64Counter
)

func init() {
	m := otel.Meter("alarm")

	armedTotal, _ = m.Int64Counter("alarm_armed_total",
		metric.WithDescription("Total wake-ups armed"))
	firedTotal, _ = m.Int64Counter("alarm_fired_total",
		metric.WithDescription("Total wake-ups delivered"))
	supersededTotal, _ = m.Int64Counter("alarm_superseded_total",
		metric.WithDescription("Total pending wake-ups replaced before firing"))
}

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Timers creates callback timers. RealTimers is the production value.
type Timers interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealTimers delegates to time.AfterFunc.
type RealTimers struct{}

func (RealTimers) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Config holds the dependencies for Service.
type Config struct {
	Clock  domain.Clock
	Timers Timers
	// Fire is invoked on a timer goroutine when a wake-up is due.
	Fire   func(id domain.InstanceID)
	Logger *slog.Logger
}

type pending struct {
	at    time.Time
	gen   uint64
	timer Timer
}

// Service keeps at most one pending wake-up per instance. Arming replaces
// whatever was pending for that instance.
type Service struct {
	clock  domain.Clock
	timers Timers
	fire   func(id domain.InstanceID)
	logger *slog.Logger

	mu      sync.Mutex
	pending map[domain.InstanceID]*pending
	gen     uint64
	stopped bool
	wg      sync.WaitGroup // in-flight Fire callbacks
}

// NewService creates a Service. A nil Timers uses RealTimers.
func NewService(cfg Config) *Service {
	timers := cfg.Timers
	if timers == nil {
		timers = RealTimers{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		clock:   cfg.Clock,
		timers:  timers,
		fire:    cfg.Fire,
		logger:  logger,
		pending: make(map[domain.InstanceID]*pending),
	}
}

// Arm schedules a wake-up for id at the absolute time at. A past at fires
// immediately.
func (s *Service) Arm(ctx context.Context, id domain.InstanceID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("arm %s: %w", id, domain.ErrUnavailable)
	}
	if p, ok := s.pending[id]; ok {
		p.timer.Stop()
		supersededTotal.Add(ctx, 1)
	}
	s.schedule(id, at)
	armedTotal.Add(ctx, 1)
	return nil
}

// schedule must be called with s.mu held.
func (s *Service) schedule(id domain.InstanceID, at time.Time) {
	s.gen++
	gen := s.gen
	d := at.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	s.pending[id] = &pending{
		at:    at,
		gen:   gen,
		timer: s.timers.AfterFunc(d, func() { s.deliver(id, gen) }),
	}
}

// deliver runs on the timer goroutine.
func (s *Service) deliver(id domain.InstanceID, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[id]
	if !ok || p.gen != gen || s.stopped {
		s.mu.Unlock()
		return
	}
	// Timers run on the monotonic clock; if the wall clock says the wake is
	// early, wait out the rest instead of rendering the old phrase.
	if early := p.at.Sub(s.clock.Now()); early > 0 {
		s.schedule(id, p.at)
		s.mu.Unlock()
		s.logger.Debug("wake-up fired early, re-armed",
			slog.String("instance", id.String()),
			slog.Duration("remaining", early),
		)
		return
	}
	delete(s.pending, id)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	firedTotal.Add(context.Background(), 1)
	if s.fire != nil {
		s.fire(id)
	}
}

// Cancel drops the pending wake-up for id, if any.
func (s *Service) Cancel(_ context.Context, id domain.InstanceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[id]; ok {
		p.timer.Stop()
		delete(s.pending, id)
	}
	return nil
}

// CancelAll drops every pending wake-up.
func (s *Service) CancelAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAllLocked()
	return nil
}

func (s *Service) cancelAllLocked() {
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
}

// Pending reports when id is due to wake.
func (s *Service) Pending(id domain.InstanceID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[id]
	if !ok {
		return time.Time{}, false
	}
	return p.at, true
}

// Len is the number of pending wake-ups.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels everything, rejects further Arm calls and waits for
// in-flight Fire callbacks to return.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cancelAllLocked()
	s.mu.Unlock()

	s.wg.Wait()
}
