package display

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
	"github.com/aelexs/fuzzyclock/internal/text"
	"github.com/aelexs/fuzzyclock/pkg/protocol"
)

// FrameSink writes one JSON snapshot frame per render, one frame per line.
type FrameSink struct {
	mu       sync.Mutex
	enc      *json.Encoder
	resolver text.Resolver
}

func NewFrameSink(w io.Writer, r text.Resolver) *FrameSink {
	return &FrameSink{enc: json.NewEncoder(w), resolver: r}
}

func (s *FrameSink) Render(_ context.Context, id domain.InstanceID, p fuzzy.Phrase) error {
	f, err := protocol.NewFrame(protocol.FrameTypeSnapshot, protocol.Snapshot{
		InstanceID: id.String(),
		Phrase:     WirePhrase(p),
		Text:       text.Sentence(s.resolver, p),
		Changed:    true,
	})
	if err != nil {
		return fmt.Errorf("encode frame for %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(f); err != nil {
		return fmt.Errorf("write frame for %s: %w", id, err)
	}
	return nil
}

// WirePhrase names the slots of p. Absent slots stay empty.
func WirePhrase(p fuzzy.Phrase) protocol.Phrase {
	return protocol.Phrase{
		Minute:    slotName(p.Minute),
		Separator: slotName(p.Separator),
		Hour:      slotName(p.Hour),
	}
}

func slotName(tok fuzzy.Token) string {
	if tok == fuzzy.Absent {
		return ""
	}
	return tok.String()
}
