package main

import "time"

// ============================================================================
// Reducer
// ============================================================================
// Reduce is the pure core of the daemon:
//
//   - Must not perform I/O
//   - Must not block
//   - Must not mutate anything outside the returned state
//
// The daemon loop executes the returned Commands, translates their results
// into Events, and feeds those back into Reduce(). Broadcasts fan out to
// websocket clients via RunBroadcaster.
//
// Tick drives everything time-based: bootstrap scripting, gesture windows,
// forwarded-level reconciliation, portal scan cadence, message TTL, and the
// savestate interval. Payload events (button edges, IPC requests, effect
// observations) only update levels and mirrors; their consequences land on
// the next Tick.
// ============================================================================

// ReduceConfig carries the timing knobs the reducer needs.
type ReduceConfig struct {
	Gestures     GestureConfig
	MessageTTL   time.Duration
	SaveInterval time.Duration
}

func defaultReduceConfig() ReduceConfig {
	return ReduceConfig{
		Gestures:     defaultGestureConfig(),
		MessageTTL:   defaultMessageTTLMS * time.Millisecond,
		SaveInterval: defaultSaveMinutes * time.Minute,
	}
}

// ReduceResult is the output of Reduce(): next state, side effects to
// execute, and state-change notifications to broadcast.
type ReduceResult struct {
	State      *DeviceState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce computes the next state for one event.
func Reduce(s *DeviceState, e Event, cfg ReduceConfig) ReduceResult {
	if s == nil {
		s = NewDeviceState(false)
	}

	var cmds []Command
	var bcasts []StateBroadcast

	switch ev := e.(type) {
	case Tick:
		now := ev.Now

		if !s.Bootstrap.Done {
			// The sequencer owns the forwarded levels until it finishes;
			// physical edges keep updating s.Buttons but are not forwarded.
			next, level := bootstrapStep(s.Bootstrap, now)
			s.Bootstrap = next
			cmds = append(cmds, reconcileForwarded(s, level, nil)...)
		} else {
			gs, res := gestureStep(s.Gesture, s.Prev, s.Buttons, now, cfg.Gestures)
			s.Gesture = gs

			switch res.Mode {
			case ModeScrollMenu:
				s.MenuPage = (s.MenuPage + 1) % cfg.Gestures.MenuPages
				bcasts = append(bcasts, BroadcastMenuPageChanged{Page: s.MenuPage, At: now})
			case ModeToggleEffects:
				s.EffectsOn = !s.EffectsOn
				bcasts = append(bcasts, BroadcastEffectsChanged{On: s.EffectsOn, At: now})
			case ModeToggleSound:
				s.SoundOn = !s.SoundOn
				bcasts = append(bcasts, BroadcastSoundChanged{On: s.SoundOn, At: now})
			case ModeTogglePortal:
				cmds = append(cmds, CmdPortalToggle{})
			case ModeArtBurst:
				bcasts = append(bcasts, BroadcastArtBurst{At: now})
			}

			cmds = append(cmds, reconcileForwarded(s, s.Buttons, &res.Consumed)...)
		}
		s.Prev = s.Buttons

		if s.Portal.Active {
			cmds = append(cmds, CmdPortalTick{})
		}

		// Message TTL, half-open: gone at exactly receivedAt+ttl.
		if s.Message.Known && now.Sub(s.Message.ReceivedAt) >= cfg.MessageTTL {
			s.Message = MessageReducerState{}
			bcasts = append(bcasts, BroadcastMessageCleared{At: now})
		}

		// Savestate cadence. The first tick anchors the interval so a fresh
		// boot doesn't save immediately.
		if s.LastSaveAt.IsZero() {
			s.LastSaveAt = now
		} else if now.Sub(s.LastSaveAt) >= cfg.SaveInterval {
			s.LastSaveAt = now
			cmds = append(cmds, CmdSaveState{})
		}

	case TimedEvent:
		return reducePayload(s, ev.Event, ev.At, cfg)

	default:
		// Untimed payload (tests, direct injection): stamp with zero time.
		return reducePayload(s, e, time.Time{}, cfg)
	}

	return ReduceResult{State: s, Commands: cmds, Broadcasts: bcasts}
}

// reducePayload handles non-Tick events at their receipt time.
func reducePayload(s *DeviceState, e Event, at time.Time, cfg ReduceConfig) ReduceResult {
	var cmds []Command
	var bcasts []StateBroadcast

	switch ev := e.(type) {
	case ButtonEdge:
		// Levels only; gesture evaluation happens on the next Tick, so edge
		// bursts between ticks collapse to the latest level per channel.
		s.Buttons.Set(ev.Button, ev.Pressed)

	case PortalToggle:
		cmds = append(cmds, CmdPortalToggle{})

	case CleanRequested:
		cmds = append(cmds, CmdClearMessage{})
		if s.Message.Known {
			s.Message = MessageReducerState{}
			bcasts = append(bcasts, BroadcastMessageCleared{At: at})
		}

	case MessageReceived:
		s.Message = MessageReducerState{Text: ev.Text, ReceivedAt: ev.At, Known: true}
		bcasts = append(bcasts, BroadcastMessageReceived{Text: ev.Text, At: ev.At})

	case PortalSessionObserved:
		if s.Portal.Active != ev.Active {
			s.Portal = PortalReducerState{Active: ev.Active, At: ev.At}
			bcasts = append(bcasts, BroadcastPortalChanged{Active: ev.Active, At: ev.At})
		}

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishSnapshot{Snapshot: snapshotOf(s), Reply: ev.Reply})

	default:
		// Unknown event type: no-op.
	}

	return ReduceResult{State: s, Commands: cmds, Broadcasts: bcasts}
}

// reconcileForwarded diffs target levels against the last forwarded levels
// and emits forward commands for the changes. Channels marked in frozen keep
// their current forwarded level regardless of target.
func reconcileForwarded(s *DeviceState, target ButtonSnapshot, frozen *[numButtons]bool) []Command {
	var cmds []Command
	for b := Button(0); b < numButtons; b++ {
		if frozen != nil && frozen[b] {
			continue
		}
		if target[b] != s.Forwarded[b] {
			s.Forwarded[b] = target[b]
			cmds = append(cmds, CmdForwardButton{Button: b, Pressed: target[b]})
		}
	}
	return cmds
}
