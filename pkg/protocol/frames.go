// Package protocol defines the JSON frames exchanged with fuzzy-clock hosts:
// phrase snapshots pushed to displays and the requests that drive them.
package protocol

import "encoding/json"

// FrameType identifies the type of frame.
type FrameType string

const (
	// Display state
	FrameTypeSnapshot  FrameType = "snapshot"
	FrameTypeInstances FrameType = "instances"

	// Requests
	FrameTypeCreateInstance FrameType = "create_instance"
	FrameTypeEvent          FrameType = "event"

	// Errors
	FrameTypeError FrameType = "error"
)

// Frame is the envelope for every payload.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Phrase carries the three token slots by symbolic name. Absent slots are
// empty strings.
type Phrase struct {
	Minute    string `json:"minute,omitempty"`
	Separator string `json:"separator,omitempty"`
	Hour      string `json:"hour,omitempty"`
}

// Snapshot is the latest rendering of one display instance.
type Snapshot struct {
	InstanceID string `json:"instance_id"`
	Policy     string `json:"policy"`
	HourFormat string `json:"hour_format"`
	Sample     string `json:"sample"` // HH:MM:SS on the instance's clock
	Phrase     Phrase `json:"phrase"`
	Text       string `json:"text"`
	Changed    bool   `json:"changed"`
	WakeAt     int64  `json:"wake_at"` // Unix milliseconds
	// RenderedAt is when the display last redrew, in Unix milliseconds. Zero
	// when the host does not track renders.
	RenderedAt int64 `json:"rendered_at,omitempty"`
}

// Instances lists every registered display.
type Instances struct {
	Instances []Snapshot `json:"instances"`
}

// CreateInstance registers a display. An empty InstanceID asks the host to
// generate one; empty preference fields keep the defaults.
type CreateInstance struct {
	InstanceID string `json:"instance_id,omitempty"`
	Portrait   string `json:"portrait,omitempty"`
	Landscape  string `json:"landscape,omitempty"`
	HourFormat string `json:"hour_format,omitempty"`
}

// Event asks the host to apply a lifecycle or clock event. Only the field
// relevant to the event kind is read.
type Event struct {
	Kind        string `json:"kind"`
	InstanceID  string `json:"instance_id,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Orientation string `json:"orientation,omitempty"`
}

// Error is sent by the host to report an error.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewFrame creates a Frame with the given type and payload.
func NewFrame(frameType FrameType, payload any) (*Frame, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &Frame{
		Type:    frameType,
		Payload: payloadBytes,
	}, nil
}

// ParsePayload unmarshals the frame payload into the given struct.
func (f *Frame) ParsePayload(v any) error {
	if f.Payload == nil {
		return nil
	}
	return json.Unmarshal(f.Payload, v)
}
