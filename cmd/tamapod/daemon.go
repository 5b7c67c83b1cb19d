package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
// runDaemon is the single owner of DeviceState:
//   - Receives Events from input readers, IPC, and the portal worker
//   - Emits Tick events on a fixed cadence
//   - Reduces events into (state, commands, broadcasts)
//   - Executes commands via runEffect and feeds observations back in
//   - Fans broadcasts out to the websocket hub
//
// Explicit event/command queues keep execution non-reentrant: observations
// produced while draining commands are reduced before the next command runs.
//
// Shutdown semantics:
//   - Exits when ctx is cancelled
//   - Exits cleanly when the events channel is closed
// ============================================================================

func runDaemon(
	ctx context.Context,
	events <-chan Event,
	deps *effectDeps,
	cfg ReduceConfig,
	state *DeviceState,
	updateHz int,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}

	updateInterval := time.Second / time.Duration(updateHz)
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	lastTick := time.Now()

	// Rising-edge tracker for the core's clean icon: when the pet finishes a
	// clean animation the icon lights, which clears the visitor message.
	lastCleanIcon := deps.core.Icon(iconClean)

	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}
	enqueueCommands := func(cmds []Command) {
		if len(cmds) == 0 {
			return
		}
		cmdQueue = append(cmdQueue, cmds...)
	}
	publish := func(bcasts []StateBroadcast) {
		for _, b := range bcasts {
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast channel full, dropping", "broadcast", b)
			}
		}
	}

	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			enqueueCommands(rr.Commands)
			publish(rr.Broadcasts)
		}
	}

	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			runEffect(deps, cmd, logger, enqueueEvent)

			// Observations reduce promptly so follow-up commands stay ordered.
			flushEvents()
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			switch ev.(type) {
			case Tick, TimedEvent:
				enqueueEvent(ev)
			default:
				enqueueEvent(TimedEvent{Event: ev, At: time.Now()})
			}
			flushEvents()
			flushCommands()

		case now := <-ticker.C:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now

			if icon := deps.core.Icon(iconClean); icon != lastCleanIcon {
				if icon {
					enqueueEvent(TimedEvent{Event: CleanRequested{}, At: now})
				}
				lastCleanIcon = icon
			}

			enqueueEvent(Tick{Now: now, Dt: dt})
			flushEvents()
			flushCommands()
		}
	}
}
