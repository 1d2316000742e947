package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aelexs/fuzzyclock/internal/display"
	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/errmap"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
	"github.com/aelexs/fuzzyclock/internal/observability"
	"github.com/aelexs/fuzzyclock/internal/scheduler"
	"github.com/aelexs/fuzzyclock/internal/text"
	"github.com/aelexs/fuzzyclock/pkg/protocol"
)

// maxBodyBytes bounds request frames.
const maxBodyBytes = 64 << 10

// registry is the narrow view of *scheduler.Registry the handler needs.
type registry interface {
	Create(ctx context.Context, id domain.InstanceID, update func(scheduler.Preferences) (scheduler.Preferences, error)) error
	Handle(ctx context.Context, ev scheduler.Event) error
	Snapshot(id domain.InstanceID) (scheduler.Snapshot, error)
}

var _ registry = (*scheduler.Registry)(nil)

// renderLog is the view of the rendered displays the handler lists from.
type renderLog interface {
	Get(id domain.InstanceID) (display.Rendered, error)
	All() []display.Rendered
}

var _ renderLog = (*display.MemorySink)(nil)

// Handler exposes the display registry over HTTP. Responses are protocol
// frames; phrase text is resolved for the request's Accept-Language.
type Handler struct {
	reg     registry
	renders renderLog
}

// NewHandler creates a Handler over reg. renders must be one of the
// registry's sinks.
func NewHandler(reg *scheduler.Registry, renders *display.MemorySink) *Handler {
	return &Handler{reg: reg, renders: renders}
}

// Register adds the widget routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/instances", h.listInstances)
	mux.HandleFunc("GET /v1/instances/{id}", h.getInstance)
	mux.HandleFunc("POST /v1/instances", h.createInstance)
	mux.HandleFunc("DELETE /v1/instances/{id}", h.deleteInstance)
	mux.HandleFunc("POST /v1/events", h.postEvent)
}

// listInstances reports every display that has rendered at least once.
func (h *Handler) listInstances(w http.ResponseWriter, r *http.Request) {
	resolver := text.Lookup(r.Header.Get("Accept-Language"))

	out := protocol.Instances{Instances: []protocol.Snapshot{}}
	for _, rendered := range h.renders.All() {
		snap, err := h.reg.Snapshot(rendered.ID)
		if err != nil {
			// Removed since listing.
			continue
		}
		ws := toWire(snap, resolver)
		ws.RenderedAt = rendered.RenderedAt.UnixMilli()
		out.Instances = append(out.Instances, ws)
	}
	writeFrame(w, http.StatusOK, protocol.FrameTypeInstances, out)
}

func (h *Handler) getInstance(w http.ResponseWriter, r *http.Request) {
	id, err := domain.NewInstanceID(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeSnapshot(w, r, http.StatusOK, id)
}

func (h *Handler) createInstance(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateInstance
	if err := readFrame(r, protocol.FrameTypeCreateInstance, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id := domain.GenerateInstanceID()
	if req.InstanceID != "" {
		var err error
		if id, err = domain.NewInstanceID(req.InstanceID); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	err := h.reg.Create(r.Context(), id, func(p scheduler.Preferences) (scheduler.Preferences, error) {
		return applyCreate(p, req)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeSnapshot(w, r, http.StatusCreated, id)
}

// writeSnapshot responds with the latest snapshot of id.
func (h *Handler) writeSnapshot(w http.ResponseWriter, r *http.Request, status int, id domain.InstanceID) {
	snap, err := h.reg.Snapshot(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ws := toWire(snap, text.Lookup(r.Header.Get("Accept-Language")))
	if rendered, err := h.renders.Get(id); err == nil {
		ws.RenderedAt = rendered.RenderedAt.UnixMilli()
	}
	writeFrame(w, status, protocol.FrameTypeSnapshot, ws)
}

// fail logs err by its class and writes the mapped error response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	errmap.LogError(ctx, observability.LoggerFromContext(ctx), "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	errmap.WriteError(w, err)
}

// applyCreate overrides the stored preferences with the non-empty request
// fields.
func applyCreate(p scheduler.Preferences, req protocol.CreateInstance) (scheduler.Preferences, error) {
	if req.Portrait != "" {
		k, err := fuzzy.ParseKind(req.Portrait)
		if err != nil {
			return p, err
		}
		p.Portrait = k
	}
	if req.Landscape != "" {
		k, err := fuzzy.ParseKind(req.Landscape)
		if err != nil {
			return p, err
		}
		p.Landscape = k
	}
	if req.HourFormat != "" {
		f, err := scheduler.ParseFormatPreference(req.HourFormat)
		if err != nil {
			return p, err
		}
		p.HourFormat = f
	}
	return p, nil
}

func (h *Handler) deleteInstance(w http.ResponseWriter, r *http.Request) {
	id, err := domain.NewInstanceID(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.reg.Handle(r.Context(), scheduler.Removed(id)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) postEvent(w http.ResponseWriter, r *http.Request) {
	var req protocol.Event
	if err := readFrame(r, protocol.FrameTypeEvent, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	ev, err := eventFromWire(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.reg.Handle(r.Context(), ev); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// eventFromWire validates a wire event. Only the field relevant to the kind
// is parsed.
func eventFromWire(req protocol.Event) (scheduler.Event, error) {
	kind, err := scheduler.ParseEventKind(req.Kind)
	if err != nil {
		return scheduler.Event{}, err
	}
	ev := scheduler.Event{Kind: kind}

	switch kind {
	case scheduler.Tick, scheduler.InstanceAdded, scheduler.InstanceRemoved:
		if req.InstanceID != "" {
			if ev.Instance, err = domain.NewInstanceID(req.InstanceID); err != nil {
				return scheduler.Event{}, err
			}
		}
	case scheduler.TimezoneChanged:
		ev.Timezone = req.Timezone
	case scheduler.ConfigurationChanged:
		if req.Orientation != "" {
			if ev.Orientation, err = domain.ParseOrientation(strings.ToLower(req.Orientation)); err != nil {
				return scheduler.Event{}, err
			}
		}
	}
	return ev, nil
}

// readFrame decodes a request frame of the expected type into v.
func readFrame(r *http.Request, want protocol.FrameType, v any) error {
	var f protocol.Frame
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("decode frame: %w: %w", domain.ErrInvalidInput, err)
	}
	if f.Type != want {
		return fmt.Errorf("frame type %q, want %q: %w", f.Type, want, domain.ErrInvalidInput)
	}
	if err := f.ParsePayload(v); err != nil {
		return fmt.Errorf("decode %s payload: %w: %w", want, domain.ErrInvalidInput, err)
	}
	return nil
}

func writeFrame(w http.ResponseWriter, status int, ft protocol.FrameType, payload any) {
	f, err := protocol.NewFrame(ft, payload)
	if err != nil {
		errmap.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(f)
}

// toWire converts a snapshot, resolving its phrase with r.
func toWire(s scheduler.Snapshot, r text.Resolver) protocol.Snapshot {
	return protocol.Snapshot{
		InstanceID: s.ID.String(),
		Policy:     s.Policy.String(),
		HourFormat: s.Sample.Format().String(),
		Sample:     fmt.Sprintf("%02d:%02d:%02d", s.Sample.Hour(), s.Sample.Minute(), s.Sample.Second()),
		Phrase:     display.WirePhrase(s.Phrase),
		Text:       text.Sentence(r, s.Phrase),
		Changed:    s.Changed,
		WakeAt:     s.WakeAt.UnixMilli(),
	}
}
