// Package prefs stores per-instance display preferences. Implementations
// satisfy scheduler.PreferenceStore.
package prefs

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/scheduler"
)

var tracer = otel.Tracer("prefs")

// ScreensaverID is the instance used by the screensaver host. Its
// preferences live under instance-less keys.
var ScreensaverID = domain.MustInstanceID("dream")

// Compile-time check: MemoryStore satisfies scheduler.PreferenceStore.
var _ scheduler.PreferenceStore = (*MemoryStore)(nil)

// MemoryStore keeps preferences in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[domain.InstanceID]scheduler.Preferences
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[domain.InstanceID]scheduler.Preferences)}
}

func (s *MemoryStore) Get(_ context.Context, id domain.InstanceID) (scheduler.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs[id], nil
}

func (s *MemoryStore) Put(_ context.Context, id domain.InstanceID, p scheduler.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[id] = p
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id domain.InstanceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prefs, id)
	return nil
}
