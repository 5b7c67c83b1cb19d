package main

import "time"

// DeviceState is the reducer-owned state container.
//
// All gesture timers, display-mode flags, and bootstrap progress live here so
// the reducer stays pure: Reduce returns a new state without mutating anything
// external, and the daemon loop is the single owner.
type DeviceState struct {
	// Buttons is the current sampled level of the three channels; Prev is the
	// level at the previous tick. Gesture evaluation compares the two, so
	// multiple raw edges landing between ticks collapse to the latest level,
	// matching a once-per-tick sampler.
	Buttons ButtonSnapshot
	Prev    ButtonSnapshot

	// Forwarded is the last level actually sent to the pet core per channel.
	// While a gesture consumes a channel, its forwarded level is frozen.
	Forwarded ButtonSnapshot

	Gesture   GestureState
	Bootstrap BootstrapState

	// Display-mode flags toggled by gestures.
	SoundOn   bool
	EffectsOn bool
	MenuPage  int

	Portal  PortalReducerState
	Message MessageReducerState

	LastSaveAt time.Time
}

// PortalReducerState mirrors the portal session so the reducer can schedule
// periodic ticks and publish snapshots. The controller itself (radio, hotspot,
// HTTP) lives behind the effects layer.
type PortalReducerState struct {
	Active bool
	At     time.Time // when the session last changed
}

// MessageReducerState mirrors the inbound message store for broadcasting.
// The store remains the authoritative copy read by the renderer.
type MessageReducerState struct {
	Text       string
	ReceivedAt time.Time
	Known      bool
}

// NewDeviceState returns boot state. Sound and effects start enabled; the
// bootstrap sequencer is armed only on a fresh device (no restored savestate).
func NewDeviceState(restored bool) *DeviceState {
	return &DeviceState{
		SoundOn:   true,
		EffectsOn: true,
		Bootstrap: BootstrapState{Done: restored},
	}
}

// DeviceSnapshot is a coherent copy of the externally interesting state,
// published to IPC/websocket clients on request.
type DeviceSnapshot struct {
	SoundOn       bool      `json:"sound_on"`
	EffectsOn     bool      `json:"effects_on"`
	MenuPage      int       `json:"menu_page"`
	PortalActive  bool      `json:"portal_active"`
	BootstrapDone bool      `json:"bootstrap_done"`
	MessageText   string    `json:"message_text,omitempty"`
	MessageAt     time.Time `json:"message_at,omitzero"`
}

func snapshotOf(s *DeviceState) DeviceSnapshot {
	snap := DeviceSnapshot{
		SoundOn:       s.SoundOn,
		EffectsOn:     s.EffectsOn,
		MenuPage:      s.MenuPage,
		PortalActive:  s.Portal.Active,
		BootstrapDone: s.Bootstrap.Done,
	}
	if s.Message.Known {
		snap.MessageText = s.Message.Text
		snap.MessageAt = s.Message.ReceivedAt
	}
	return snap
}

// ============================================================================
// State broadcasts
// ============================================================================
// Broadcasts are reducer-emitted notifications fanned out to websocket
// clients. They carry the new value, never a reference into DeviceState.
// ============================================================================

// StateBroadcast is a marker for reducer-emitted state change notifications.
type StateBroadcast interface {
	broadcastMarker()
}

type BroadcastSoundChanged struct {
	On bool
	At time.Time
}

func (BroadcastSoundChanged) broadcastMarker() {}

type BroadcastEffectsChanged struct {
	On bool
	At time.Time
}

func (BroadcastEffectsChanged) broadcastMarker() {}

type BroadcastMenuPageChanged struct {
	Page int
	At   time.Time
}

func (BroadcastMenuPageChanged) broadcastMarker() {}

type BroadcastPortalChanged struct {
	Active bool
	At     time.Time
}

func (BroadcastPortalChanged) broadcastMarker() {}

type BroadcastArtBurst struct {
	At time.Time
}

func (BroadcastArtBurst) broadcastMarker() {}

type BroadcastMessageReceived struct {
	Text string
	At   time.Time
}

func (BroadcastMessageReceived) broadcastMarker() {}

type BroadcastMessageCleared struct {
	At time.Time
}

func (BroadcastMessageCleared) broadcastMarker() {}
