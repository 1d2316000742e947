// Package display contains the sinks that show rendered phrases.
package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
	"github.com/aelexs/fuzzyclock/internal/text"
)

// WriterSink prints one caption per render, e.g. for a terminal live view.
type WriterSink struct {
	mu       sync.Mutex
	w        io.Writer
	tag      language.Tag
	resolver text.Resolver
	prefixID bool
}

// NewWriterSink writes captions resolved by r to w. When prefixID is set each
// line starts with the instance id.
func NewWriterSink(w io.Writer, tag language.Tag, r text.Resolver, prefixID bool) *WriterSink {
	return &WriterSink{w: w, tag: tag, resolver: r, prefixID: prefixID}
}

func (s *WriterSink) Render(_ context.Context, id domain.InstanceID, p fuzzy.Phrase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := text.Caption(s.tag, s.resolver, p)
	if s.prefixID {
		line = id.String() + ": " + line
	}
	if _, err := fmt.Fprintln(s.w, line); err != nil {
		return fmt.Errorf("write phrase for %s: %w", id, err)
	}
	return nil
}

// LogSink records every render as a structured log line.
type LogSink struct {
	logger   *slog.Logger
	resolver text.Resolver
}

func NewLogSink(logger *slog.Logger, r text.Resolver) *LogSink {
	return &LogSink{logger: logger, resolver: r}
}

func (s *LogSink) Render(ctx context.Context, id domain.InstanceID, p fuzzy.Phrase) error {
	s.logger.InfoContext(ctx, "phrase rendered",
		slog.String("instance", id.String()),
		slog.String("minute", p.Minute.String()),
		slog.String("separator", p.Separator.String()),
		slog.String("hour", p.Hour.String()),
		slog.String("text", text.Sentence(s.resolver, p)),
	)
	return nil
}

// Rendered is the last phrase shown on one instance.
type Rendered struct {
	ID         domain.InstanceID
	Phrase     fuzzy.Phrase
	Text       string
	RenderedAt time.Time
}

// MemorySink keeps the latest render per instance for hosts that serve
// state on request.
type MemorySink struct {
	clock    domain.Clock
	resolver text.Resolver

	mu   sync.RWMutex
	last map[domain.InstanceID]Rendered
}

func NewMemorySink(clock domain.Clock, r text.Resolver) *MemorySink {
	return &MemorySink{clock: clock, resolver: r, last: make(map[domain.InstanceID]Rendered)}
}

func (s *MemorySink) Render(_ context.Context, id domain.InstanceID, p fuzzy.Phrase) error {
	r := Rendered{
		ID:         id,
		Phrase:     p,
		Text:       text.Sentence(s.resolver, p),
		RenderedAt: s.clock.Now(),
	}

	s.mu.Lock()
	s.last[id] = r
	s.mu.Unlock()
	return nil
}

// Get returns the last render for id.
func (s *MemorySink) Get(id domain.InstanceID) (Rendered, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.last[id]
	if !ok {
		return Rendered{}, fmt.Errorf("render for %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

// All returns every render ordered by instance id.
func (s *MemorySink) All() []Rendered {
	s.mu.RLock()
	out := make([]Rendered, 0, len(s.last))
	for _, r := range s.last {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Forget drops the render of a removed instance.
func (s *MemorySink) Forget(id domain.InstanceID) {
	s.mu.Lock()
	delete(s.last, id)
	s.mu.Unlock()
}

// Sink is the render contract shared by every sink in this package.
type Sink interface {
	Render(ctx context.Context, id domain.InstanceID, p fuzzy.Phrase) error
}

// Tee renders to every sink and joins their errors. A failing sink does not
// prevent the others from rendering.
type Tee []Sink

func (t Tee) Render(ctx context.Context, id domain.InstanceID, p fuzzy.Phrase) error {
	var errs []error
	for _, s := range t {
		if err := s.Render(ctx, id, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forget passes through to sinks that keep per-instance state.
func (t Tee) Forget(id domain.InstanceID) {
	for _, s := range t {
		if f, ok := s.(interface{ Forget(domain.InstanceID) }); ok {
			f.Forget(id)
		}
	}
}
