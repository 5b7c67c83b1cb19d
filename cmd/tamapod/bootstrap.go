package main

import "time"

// ============================================================================
// Bootstrap sequencer
// ============================================================================
// A fresh pet core boots into its time-setup screen. The sequencer drives the
// three channels through a scripted pattern that walks the core past that
// screen, then hands raw input back to the gesture interpreter. While running
// it owns the forwarded levels outright: physical edges are ignored.
//
// Schedule, relative to the first tick after boot:
//   [0.0s, 1.0s)  left pulsed  (200ms period, 100ms on)
//   [1.0s, 2.0s)  middle pulsed (same duty)
//   [2.0s, 3.0s)  right held
//   [3.0s, 3.5s)  all released (settle)
//   >= 3.5s       done
// ============================================================================

const (
	bootstrapPulsePeriod = 200 * time.Millisecond
	bootstrapPulseOn     = 100 * time.Millisecond

	bootstrapLeftUntil   = 1 * time.Second
	bootstrapMiddleUntil = 2 * time.Second
	bootstrapRightUntil  = 3 * time.Second
	bootstrapSettleUntil = 3500 * time.Millisecond
)

// BootstrapState tracks sequencer progress. Done is set at construction when a
// savestate was restored, skipping the sequence entirely.
type BootstrapState struct {
	StartedAt time.Time
	Done      bool

	// Level is the scripted output of the previous step, diffed by the
	// reducer into forward commands.
	Level ButtonSnapshot
}

// bootstrapStep advances the sequencer one tick and returns the scripted
// levels. The first call anchors StartedAt. Callers must not invoke it once
// Done is set.
func bootstrapStep(bs BootstrapState, now time.Time) (BootstrapState, ButtonSnapshot) {
	if bs.StartedAt.IsZero() {
		bs.StartedAt = now
	}
	elapsed := now.Sub(bs.StartedAt)

	var level ButtonSnapshot
	pulseOn := elapsed%bootstrapPulsePeriod < bootstrapPulseOn

	switch {
	case elapsed < bootstrapLeftUntil:
		level.Set(ButtonLeft, pulseOn)
	case elapsed < bootstrapMiddleUntil:
		level.Set(ButtonMiddle, pulseOn)
	case elapsed < bootstrapRightUntil:
		level.Set(ButtonRight, true)
	case elapsed < bootstrapSettleUntil:
		// all released
	default:
		bs.Done = true
	}

	bs.Level = level
	return bs, level
}
