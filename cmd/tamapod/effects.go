package main

import (
	"context"
	"log/slog"
	"time"
)

// runEffect executes a single reducer-emitted Command against external
// systems (pet core, portal worker, message store, savestate) and emits
// observation Events via onEvent.
//
// Design rules:
//   - This function is allowed to perform I/O, but must return quickly; the
//     daemon loop runs it inline. Slow portal work is handed to portalWorker.
//   - It must never call Reduce() directly; it only emits Events to be
//     reduced by the daemon loop.
func runEffect(deps *effectDeps, cmd Command, logger *slog.Logger, onEvent func(Event)) {
	switch c := cmd.(type) {
	case CmdForwardButton:
		deps.core.SetButton(c.Button, c.Pressed)

	case CmdPortalToggle:
		deps.portal.enqueueToggle()

	case CmdPortalTick:
		deps.portal.enqueueTick()

	case CmdSaveState:
		if err := deps.saver.Save(); err != nil {
			logger.Error("savestate write failed", "error", err)
		}

	case CmdClearMessage:
		deps.store.Clear()

	case CmdPublishSnapshot:
		if c.Reply == nil {
			logger.Warn("snapshot requested with nil reply channel")
			return
		}
		// Never block the daemon loop on a slow requester.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
	}
}

// effectDeps bundles what runEffect needs.
type effectDeps struct {
	core   PetCore
	portal *portalWorker
	store  *MessageStore
	saver  *StateSaver
}

// ============================================================================
// Portal worker
// ============================================================================
// Portal toggles and scan cycles block for seconds (association timeouts,
// endpoint pacing), so they run on a dedicated goroutine. The worker owns the
// PortalController outright; the daemon only ever pokes it through the op
// channel and hears back via PortalSessionObserved events.
// ============================================================================

type portalOp int

const (
	opToggle portalOp = iota
	opTick
)

type portalWorker struct {
	ctrl   *PortalController
	ops    chan portalOp
	events chan<- Event
	logger *slog.Logger
}

func newPortalWorker(ctrl *PortalController, events chan<- Event, logger *slog.Logger) *portalWorker {
	return &portalWorker{
		ctrl:   ctrl,
		ops:    make(chan portalOp, 8),
		events: events,
		logger: logger,
	}
}

// enqueueToggle queues a session toggle. Toggles must not be lost; if the
// queue is full the user mashed the gesture faster than cycles complete, and
// dropping is the honest behavior.
func (w *portalWorker) enqueueToggle() {
	select {
	case w.ops <- opToggle:
	default:
		w.logger.Warn("portal op queue full, dropping toggle")
	}
}

// enqueueTick queues a periodic scan check. Ticks are redundant by nature;
// dropping one while a cycle runs is fine.
func (w *portalWorker) enqueueTick() {
	select {
	case w.ops <- opTick:
	default:
	}
}

// Run processes ops until ctx is cancelled. On exit it tears down any active
// session so the radio is not left hosting an orphaned hotspot.
func (w *portalWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if w.ctrl.Active() {
				// Fresh context: the loop's is already cancelled.
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				w.ctrl.Toggle(shutdownCtx, time.Now())
				cancel()
			}
			return

		case op := <-w.ops:
			switch op {
			case opToggle:
				active := w.ctrl.Toggle(ctx, time.Now())
				w.emit(PortalSessionObserved{Active: active, At: time.Now()})
			case opTick:
				w.ctrl.Tick(ctx, time.Now())
			}
		}
	}
}

func (w *portalWorker) emit(e Event) {
	select {
	case w.events <- e:
	default:
		w.logger.Warn("event queue full, dropping portal observation")
	}
}
