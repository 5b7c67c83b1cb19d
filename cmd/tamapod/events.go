package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Events
// ============================================================================
// Events are the inputs to the reducer: sampled button edges (physical or
// injected over IPC), the fixed-cadence Tick, and observations emitted by the
// effects layer after it has executed a command.
// ============================================================================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// Tick is emitted by the daemon loop at a fixed cadence.
type Tick struct {
	Now time.Time
	Dt  float64 // wall-clock delta in seconds between ticks
}

func (Tick) eventMarker() {}

// TimedEvent wraps a payload event with the time the daemon received it.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// ButtonEdge reports a press or release on one channel. Physical buttons and
// IPC-injected edges produce the exact same event.
type ButtonEdge struct {
	Button  Button `json:"button"`
	Pressed bool   `json:"pressed"`
}

func (ButtonEdge) eventMarker() {}

// PortalToggle requests a portal session toggle (IPC/debug path; the gesture
// interpreter emits the same intent from a right-button double tap).
type PortalToggle struct{}

func (PortalToggle) eventMarker() {}

// CleanRequested clears the inbound message unconditionally. Produced when
// the pet core's clean icon goes active, or injected over IPC.
type CleanRequested struct{}

func (CleanRequested) eventMarker() {}

// MessageReceived is emitted by the captive-portal HTTP handler after a
// visitor submission has been stored. Text is already sanitized and capped.
type MessageReceived struct {
	Text string
	At   time.Time
}

func (MessageReceived) eventMarker() {}

// PortalSessionObserved is emitted by the effects layer after the portal
// controller has been toggled.
type PortalSessionObserved struct {
	Active bool
	At     time.Time
}

func (PortalSessionObserved) eventMarker() {}

// RequestStateSnapshot asks the reducer for a coherent snapshot of device
// state, delivered on Reply via the effects layer.
type RequestStateSnapshot struct {
	Reply chan DeviceSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ============================================================================
// JSON envelopes (IPC wire format)
// ============================================================================
// Line-delimited JSON with a type discriminator:
//   {"type": "button_edge", "data": {"button": "middle", "pressed": true}}
// Only payload events are serializable; the daemon stamps receipt times.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "button_edge":
		var e ButtonEdge
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal ButtonEdge: %w", err)
		}
		return e, nil

	case "portal_toggle":
		return PortalToggle{}, nil

	case "clean":
		return CleanRequested{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator.
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case ButtonEdge:
		env.Type = "button_edge"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal ButtonEdge: %w", err)
		}
		env.Data = data

	case PortalToggle:
		env.Type = "portal_toggle"

	case CleanRequested:
		env.Type = "clean"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
