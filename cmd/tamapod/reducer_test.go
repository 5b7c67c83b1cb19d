package main

import (
	"testing"
	"time"
)

// reduceSim drives Reduce through edges and ticks, collecting commands and
// broadcasts per step.
type reduceSim struct {
	t   *testing.T
	s   *DeviceState
	cfg ReduceConfig
}

func newReduceSim(t *testing.T, restored bool) *reduceSim {
	return &reduceSim{t: t, s: NewDeviceState(restored), cfg: defaultReduceConfig()}
}

func (r *reduceSim) event(e Event, at time.Time) ReduceResult {
	rr := Reduce(r.s, TimedEvent{Event: e, At: at}, r.cfg)
	r.s = rr.State
	return rr
}

func (r *reduceSim) edge(b Button, pressed bool, at time.Time) {
	r.event(ButtonEdge{Button: b, Pressed: pressed}, at)
}

func (r *reduceSim) tick(at time.Time) ReduceResult {
	rr := Reduce(r.s, Tick{Now: at, Dt: 1.0 / float64(defaultUpdateHz)}, r.cfg)
	r.s = rr.State
	return rr
}

func forwards(cmds []Command) []CmdForwardButton {
	var out []CmdForwardButton
	for _, c := range cmds {
		if f, ok := c.(CmdForwardButton); ok {
			out = append(out, f)
		}
	}
	return out
}

func hasCmd[T Command](cmds []Command) bool {
	for _, c := range cmds {
		if _, ok := c.(T); ok {
			return true
		}
	}
	return false
}

func TestReduce_DoubleTapNeverForwardsMiddle(t *testing.T) {
	sim := newReduceSim(t, true)
	t0 := time.Unix(1000, 0)

	steps := []struct {
		at      time.Duration
		pressed bool
	}{
		{0, true},
		{50 * time.Millisecond, false},
		{300 * time.Millisecond, true},
		{350 * time.Millisecond, false},
	}

	var soundToggled bool
	for _, st := range steps {
		at := t0.Add(st.at)
		sim.edge(ButtonMiddle, st.pressed, at)
		rr := sim.tick(at)

		if fw := forwards(rr.Commands); len(fw) != 0 {
			t.Fatalf("at +%v: expected no forwards during double tap, got %v", st.at, fw)
		}
		for _, b := range rr.Broadcasts {
			if bc, ok := b.(BroadcastSoundChanged); ok {
				soundToggled = true
				if bc.On {
					t.Fatalf("expected sound toggled off, got on")
				}
			}
		}
	}

	if !soundToggled {
		t.Fatalf("expected a sound_changed broadcast")
	}
	if sim.s.SoundOn {
		t.Fatalf("expected SoundOn=false after double tap")
	}
}

func TestReduce_LongMiddlePressForwardsLate(t *testing.T) {
	sim := newReduceSim(t, true)
	t0 := time.Unix(1000, 0)

	sim.edge(ButtonMiddle, true, t0)
	rr := sim.tick(t0)
	if fw := forwards(rr.Commands); len(fw) != 0 {
		t.Fatalf("press tick: expected suppression, got %v", fw)
	}

	// Window expired at +500ms, press still held: the edge forwards now.
	rr = sim.tick(t0.Add(600 * time.Millisecond))
	fw := forwards(rr.Commands)
	if len(fw) != 1 || fw[0].Button != ButtonMiddle || !fw[0].Pressed {
		t.Fatalf("post-window tick: expected late middle press forward, got %v", fw)
	}

	sim.edge(ButtonMiddle, false, t0.Add(800*time.Millisecond))
	rr = sim.tick(t0.Add(800 * time.Millisecond))
	fw = forwards(rr.Commands)
	if len(fw) != 1 || fw[0].Button != ButtonMiddle || fw[0].Pressed {
		t.Fatalf("release tick: expected middle release forward, got %v", fw)
	}
}

func TestReduce_HoldTogglesEffects(t *testing.T) {
	sim := newReduceSim(t, true)
	t0 := time.Unix(1000, 0)

	sim.edge(ButtonMiddle, true, t0)
	sim.tick(t0)
	sim.tick(t0.Add(time.Second))

	rr := sim.tick(t0.Add(2 * time.Second))
	var toggled bool
	for _, b := range rr.Broadcasts {
		if bc, ok := b.(BroadcastEffectsChanged); ok {
			toggled = true
			if bc.On {
				t.Fatalf("expected effects toggled off")
			}
		}
	}
	if !toggled {
		t.Fatalf("expected effects_changed broadcast at the hold threshold")
	}
	if sim.s.EffectsOn {
		t.Fatalf("expected EffectsOn=false after hold")
	}
}

func TestReduce_MenuChordScrollsAndWraps(t *testing.T) {
	sim := newReduceSim(t, true)
	t0 := time.Unix(1000, 0)

	scroll := func(at time.Time) ReduceResult {
		sim.edge(ButtonLeft, true, at)
		sim.edge(ButtonRight, true, at)
		rr := sim.tick(at)
		rel := at.Add(50 * time.Millisecond)
		sim.edge(ButtonLeft, false, rel)
		sim.edge(ButtonRight, false, rel)
		sim.tick(rel)
		return rr
	}

	rr := scroll(t0)
	if sim.s.MenuPage != 1 {
		t.Fatalf("expected menu page 1, got %d", sim.s.MenuPage)
	}
	for _, f := range forwards(rr.Commands) {
		if f.Button == ButtonRight {
			t.Fatalf("chord must not forward right, got %v", f)
		}
	}

	// Default page count is 2, so the next scroll wraps to 0.
	scroll(t0.Add(time.Second))
	if sim.s.MenuPage != 0 {
		t.Fatalf("expected menu page wrap to 0, got %d", sim.s.MenuPage)
	}
}

func TestReduce_ArtBurstSuppressesAllThree(t *testing.T) {
	sim := newReduceSim(t, true)
	t0 := time.Unix(1000, 0)

	sim.edge(ButtonLeft, true, t0)
	sim.edge(ButtonMiddle, true, t0)
	sim.edge(ButtonRight, true, t0)
	rr := sim.tick(t0)

	var burst bool
	for _, b := range rr.Broadcasts {
		if _, ok := b.(BroadcastArtBurst); ok {
			burst = true
		}
	}
	if !burst {
		t.Fatalf("expected art_burst broadcast")
	}
	if fw := forwards(rr.Commands); len(fw) != 0 {
		t.Fatalf("expected no forwards on the burst tick, got %v", fw)
	}
}

func TestReduce_BootstrapOwnsForwarding(t *testing.T) {
	sim := newReduceSim(t, false)
	t0 := time.Unix(1000, 0)

	// First tick: scripted left pulse goes out.
	rr := sim.tick(t0)
	fw := forwards(rr.Commands)
	if len(fw) != 1 || fw[0].Button != ButtonLeft || !fw[0].Pressed {
		t.Fatalf("first bootstrap tick: expected left press, got %v", fw)
	}

	// A physical press during the sequence is recorded but not forwarded.
	sim.edge(ButtonMiddle, true, t0.Add(10*time.Millisecond))
	rr = sim.tick(t0.Add(150 * time.Millisecond))
	for _, f := range forwards(rr.Commands) {
		if f.Button == ButtonMiddle {
			t.Fatalf("bootstrap must own forwarding, got middle forward %v", f)
		}
	}

	// Walk the clock past the sequence end.
	for _, at := range []time.Duration{1100, 2100, 3200, 3500} {
		sim.tick(t0.Add(at * time.Millisecond))
	}
	if !sim.s.Bootstrap.Done {
		t.Fatalf("expected bootstrap done after 3.5s")
	}

	// The still-held middle button now reconciles out to the core.
	rr = sim.tick(t0.Add(3600 * time.Millisecond))
	fw = forwards(rr.Commands)
	if len(fw) != 1 || fw[0].Button != ButtonMiddle || !fw[0].Pressed {
		t.Fatalf("post-bootstrap tick: expected held middle forwarded, got %v", fw)
	}
}

func TestReduce_PortalFlow(t *testing.T) {
	sim := newReduceSim(t, true)
	t0 := time.Unix(1000, 0)

	rr := sim.event(PortalToggle{}, t0)
	if !hasCmd[CmdPortalToggle](rr.Commands) {
		t.Fatalf("expected CmdPortalToggle from IPC toggle")
	}

	rr = sim.event(PortalSessionObserved{Active: true, At: t0}, t0)
	if len(rr.Broadcasts) != 1 {
		t.Fatalf("expected portal_changed broadcast, got %d", len(rr.Broadcasts))
	}
	if !sim.s.Portal.Active {
		t.Fatalf("expected portal active in state")
	}

	// Duplicate observation: no duplicate broadcast.
	rr = sim.event(PortalSessionObserved{Active: true, At: t0.Add(time.Second)}, t0.Add(time.Second))
	if len(rr.Broadcasts) != 0 {
		t.Fatalf("expected no broadcast on duplicate observation, got %d", len(rr.Broadcasts))
	}

	// Active sessions get a portal tick every loop tick.
	rr = sim.tick(t0.Add(2 * time.Second))
	if !hasCmd[CmdPortalTick](rr.Commands) {
		t.Fatalf("expected CmdPortalTick while active")
	}

	sim.event(PortalSessionObserved{Active: false, At: t0.Add(3 * time.Second)}, t0.Add(3*time.Second))
	rr = sim.tick(t0.Add(4 * time.Second))
	if hasCmd[CmdPortalTick](rr.Commands) {
		t.Fatalf("expected no CmdPortalTick while inactive")
	}
}

func TestReduce_MessageTTLAndClean(t *testing.T) {
	sim := newReduceSim(t, true)
	t0 := time.Unix(1000, 0)

	rr := sim.event(MessageReceived{Text: "hello pet", At: t0}, t0)
	if len(rr.Broadcasts) != 1 {
		t.Fatalf("expected message_received broadcast")
	}

	// Just inside the TTL: nothing happens.
	rr = sim.tick(t0.Add(4999 * time.Millisecond))
	for _, b := range rr.Broadcasts {
		if _, ok := b.(BroadcastMessageCleared); ok {
			t.Fatalf("message cleared before TTL")
		}
	}

	// At exactly the TTL the message expires.
	rr = sim.tick(t0.Add(5 * time.Second))
	var cleared bool
	for _, b := range rr.Broadcasts {
		if _, ok := b.(BroadcastMessageCleared); ok {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected message_cleared broadcast at TTL")
	}
	if sim.s.Message.Known {
		t.Fatalf("expected message forgotten after TTL")
	}

	// Clean with a live message clears store and state.
	sim.event(MessageReceived{Text: "again", At: t0.Add(6 * time.Second)}, t0.Add(6*time.Second))
	rr = sim.event(CleanRequested{}, t0.Add(7*time.Second))
	if !hasCmd[CmdClearMessage](rr.Commands) {
		t.Fatalf("expected CmdClearMessage from clean")
	}
	if len(rr.Broadcasts) != 1 {
		t.Fatalf("expected message_cleared broadcast from clean")
	}

	// Clean with nothing stored still clears the store, silently.
	rr = sim.event(CleanRequested{}, t0.Add(8*time.Second))
	if !hasCmd[CmdClearMessage](rr.Commands) {
		t.Fatalf("expected CmdClearMessage even when no message known")
	}
	if len(rr.Broadcasts) != 0 {
		t.Fatalf("expected no broadcast for redundant clean")
	}
}

func TestReduce_SaveCadence(t *testing.T) {
	sim := newReduceSim(t, true)
	t0 := time.Unix(1000, 0)

	// First tick anchors the interval without saving.
	rr := sim.tick(t0)
	if hasCmd[CmdSaveState](rr.Commands) {
		t.Fatalf("expected no save on the anchoring tick")
	}

	rr = sim.tick(t0.Add(defaultSaveMinutes*time.Minute - time.Second))
	if hasCmd[CmdSaveState](rr.Commands) {
		t.Fatalf("expected no save before the interval")
	}

	rr = sim.tick(t0.Add(defaultSaveMinutes * time.Minute))
	if !hasCmd[CmdSaveState](rr.Commands) {
		t.Fatalf("expected save at the interval")
	}

	rr = sim.tick(t0.Add(defaultSaveMinutes*time.Minute + time.Second))
	if hasCmd[CmdSaveState](rr.Commands) {
		t.Fatalf("expected no immediate re-save")
	}
}

func TestReduce_SnapshotRequest(t *testing.T) {
	sim := newReduceSim(t, true)
	t0 := time.Unix(1000, 0)

	sim.event(MessageReceived{Text: "hi", At: t0}, t0)
	sim.event(PortalSessionObserved{Active: true, At: t0}, t0)

	reply := make(chan DeviceSnapshot, 1)
	rr := sim.event(RequestStateSnapshot{Reply: reply}, t0)

	var pub *CmdPublishSnapshot
	for _, c := range rr.Commands {
		if p, ok := c.(CmdPublishSnapshot); ok {
			pub = &p
		}
	}
	if pub == nil {
		t.Fatalf("expected CmdPublishSnapshot")
	}
	if pub.Reply != reply {
		t.Fatalf("expected snapshot routed to the requester's channel")
	}

	snap := pub.Snapshot
	if !snap.SoundOn || !snap.EffectsOn {
		t.Fatalf("expected boot defaults in snapshot, got %+v", snap)
	}
	if !snap.PortalActive {
		t.Fatalf("expected portal active in snapshot")
	}
	if snap.MessageText != "hi" || !snap.MessageAt.Equal(t0) {
		t.Fatalf("expected message mirrored in snapshot, got %+v", snap)
	}
	if !snap.BootstrapDone {
		t.Fatalf("expected bootstrap done on restored device")
	}
}
