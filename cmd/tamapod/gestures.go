package main

import "time"

// ============================================================================
// Gesture interpreter
// ============================================================================
// Three physical buttons carry several overlapping gesture types: single
// press, double tap, long hold, and multi-button chords. gestureStep
// disambiguates them once per tick from the sampled levels, emitting at most
// one mode intent and marking which channels the gesture consumed.
//
// Design rules:
//   - Pure: no I/O, no clock reads; `now` comes from the Tick event, so all
//     windows are wall-clock based and independent of the polling rate.
//   - At most one mode intent per tick; rules short-circuit in precedence
//     order.
//   - A consumed channel's forwarded level is frozen for the tick, so the pet
//     core never sees the raw edges of a chord or tap burst. The reducer
//     diffs frozen/unfrozen levels against the last forwarded state and
//     emits late edges once a gesture window closes (e.g. a middle press held
//     past the double-tap window is forwarded then, not dropped).
// ============================================================================

// GestureConfig holds the timing windows. Zero values are invalid; callers go
// through Config.ToReduceConfig or defaultGestureConfig.
type GestureConfig struct {
	DoubleTapWindow time.Duration // second tap must land strictly inside
	HoldThreshold   time.Duration // continuous middle hold for effects toggle
	HoldLockout     time.Duration // deferred re-arm after an effects toggle
	MenuDebounce    time.Duration // minimum gap between menu scrolls
	MenuPages       int
}

func defaultGestureConfig() GestureConfig {
	return GestureConfig{
		DoubleTapWindow: defaultDoubleTapMS * time.Millisecond,
		HoldThreshold:   defaultHoldMS * time.Millisecond,
		HoldLockout:     defaultHoldLockoutMS * time.Millisecond,
		MenuDebounce:    defaultMenuBounceMS * time.Millisecond,
		MenuPages:       defaultMenuPages,
	}
}

// GestureState is the per-gesture timer state. Process-wide, reset only by
// explicit timeouts, never persisted.
type GestureState struct {
	// Sound double tap (middle channel).
	LastTapAt         time.Time
	AwaitingSecondTap bool

	// Portal double tap (right channel).
	LastPortalTapAt   time.Time
	AwaitingPortalTap bool

	// Effects hold (middle channel). Zero means no hold in progress. After a
	// toggle fires this is pushed HoldLockout into the future, so a continued
	// hold cannot retrigger until the lockout elapses; a fresh press resets it.
	HoldStartAt time.Time

	// Menu scroll debounce.
	LastMenuScrollAt time.Time
}

// ModeIntent is the non-forward action recognized in a tick, if any.
type ModeIntent int

const (
	ModeNone ModeIntent = iota
	ModeArtBurst
	ModeScrollMenu
	ModeToggleEffects
	ModeToggleSound
	ModeTogglePortal
)

func (m ModeIntent) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeArtBurst:
		return "art_burst"
	case ModeScrollMenu:
		return "scroll_menu"
	case ModeToggleEffects:
		return "toggle_effects"
	case ModeToggleSound:
		return "toggle_sound"
	case ModeTogglePortal:
		return "toggle_portal"
	default:
		return "unknown"
	}
}

// GestureResult is the outcome of one tick of gesture evaluation.
type GestureResult struct {
	Mode ModeIntent

	// Consumed marks channels whose forwarded level must stay frozen this
	// tick because a gesture (fired or still being detected) owns them.
	Consumed [numButtons]bool
}

// gestureStep evaluates one tick. prev and cur are the sampled levels at the
// previous and current tick.
func gestureStep(gs GestureState, prev, cur ButtonSnapshot, now time.Time, cfg GestureConfig) (GestureState, GestureResult) {
	var res GestureResult

	leftEdge := cur[ButtonLeft] && !prev[ButtonLeft]
	midEdge := cur[ButtonMiddle] && !prev[ButtonMiddle]
	rightEdge := cur[ButtonRight] && !prev[ButtonRight]
	allEdge := leftEdge && midEdge && rightEdge

	// Expire tap windows first: a second tap at exactly the window length is
	// not a double tap (strict less-than), so it must see a fresh window.
	if gs.AwaitingSecondTap && now.Sub(gs.LastTapAt) >= cfg.DoubleTapWindow {
		gs.AwaitingSecondTap = false
	}
	if gs.AwaitingPortalTap && now.Sub(gs.LastPortalTapAt) >= cfg.DoubleTapWindow {
		gs.AwaitingPortalTap = false
	}

	// Hold timer bookkeeping. A fresh press restarts the timer (this is what
	// re-arms after a lockout); release disarms it.
	if midEdge {
		gs.HoldStartAt = now
	}
	if !cur[ButtonMiddle] {
		gs.HoldStartAt = time.Time{}
	}

	holdRipe := cur[ButtonMiddle] && !gs.HoldStartAt.IsZero() &&
		now.Sub(gs.HoldStartAt) >= cfg.HoldThreshold

	mode := ModeNone

	// Art burst: all three channels transition to held on the same tick.
	// Checked ahead of the chord rules; a three-way edge always satisfies the
	// menu chord condition too, and the burst owns the whole chord.
	if allEdge {
		mode = ModeArtBurst
		res.Consumed[ButtonLeft] = true
		res.Consumed[ButtonMiddle] = true
		res.Consumed[ButtonRight] = true
	}

	// Menu scroll: left+right transition from not-co-held to co-held.
	// Edge-triggered; breaking the chord re-arms it.
	chordNow := cur.chord()
	if chordNow {
		res.Consumed[ButtonLeft] = true
		res.Consumed[ButtonRight] = true
	}
	if mode == ModeNone && chordNow && !prev.chord() &&
		now.Sub(gs.LastMenuScrollAt) >= cfg.MenuDebounce {
		gs.LastMenuScrollAt = now
		mode = ModeScrollMenu
	}

	// Effects hold: middle held continuously past the threshold fires once,
	// then the deferred re-arm locks out retrigger.
	if holdRipe {
		res.Consumed[ButtonMiddle] = true
		if mode == ModeNone {
			mode = ModeToggleEffects
			gs.HoldStartAt = now.Add(cfg.HoldLockout)
		}
	}

	// Sound double tap: second middle press strictly inside the window.
	// Firing cancels the in-progress hold so one two-press burst cannot also
	// toggle effects.
	if mode == ModeNone && midEdge {
		if gs.AwaitingSecondTap && now.Sub(gs.LastTapAt) < cfg.DoubleTapWindow {
			mode = ModeToggleSound
			gs.AwaitingSecondTap = false
			gs.HoldStartAt = time.Time{}
		} else {
			gs.LastTapAt = now
			gs.AwaitingSecondTap = true
		}
	}
	if gs.AwaitingSecondTap || mode == ModeToggleSound {
		res.Consumed[ButtonMiddle] = true
	}

	// Portal double tap on the right channel. Left must be up so it cannot
	// collide with a menu chord in progress.
	if mode == ModeNone && rightEdge && !cur[ButtonLeft] {
		if gs.AwaitingPortalTap && now.Sub(gs.LastPortalTapAt) < cfg.DoubleTapWindow {
			mode = ModeTogglePortal
			gs.AwaitingPortalTap = false
		} else {
			gs.LastPortalTapAt = now
			gs.AwaitingPortalTap = true
		}
	}
	if gs.AwaitingPortalTap || mode == ModeTogglePortal {
		res.Consumed[ButtonRight] = true
	}

	res.Mode = mode
	return gs, res
}
