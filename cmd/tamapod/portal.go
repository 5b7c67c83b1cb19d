package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Portal controller
// ============================================================================
// Two-state machine toggled by gesture or IPC. While Active it runs a scan
// cycle every scanInterval: find open networks, attempt delivery to each in
// turn, and fall back to hosting the hotspot when nothing takes the message.
// Deactivating tears the hotspot down and puts the radio in standby.
//
// The controller runs entirely on the effects layer; cycles can block for
// seconds, which is why the reducer only ever pokes it with Toggle/Tick
// commands instead of calling into it.
// ============================================================================

// deliverer is the delivery boundary, satisfied by DeliveryAttempter.
type deliverer interface {
	Attempt(ctx context.Context, rec NetworkRecord) DeliveryOutcome
}

type PortalController struct {
	radio     Radio
	attempter deliverer
	hotspot   *HotspotHost
	logger    *slog.Logger

	scanInterval time.Duration
	recordPace   time.Duration
	sleep        func(ctx context.Context, d time.Duration)

	active     bool
	lastScanAt time.Time
}

func NewPortalController(radio Radio, attempter deliverer, hotspot *HotspotHost, logger *slog.Logger) *PortalController {
	return &PortalController{
		radio:        radio,
		attempter:    attempter,
		hotspot:      hotspot,
		logger:       logger,
		scanInterval: defaultScanIntervalMS * time.Millisecond,
		recordPace:   defaultRecordPaceMS * time.Millisecond,
		sleep:        sleepCtx,
	}
}

// Active reports the session state.
func (p *PortalController) Active() bool { return p.active }

// Toggle flips the session. Activation runs the first scan cycle immediately;
// deactivation tears down whatever the session left running. Toggling twice
// returns to the starting state.
func (p *PortalController) Toggle(ctx context.Context, now time.Time) bool {
	if p.active {
		p.deactivate(ctx)
		return false
	}
	p.active = true
	p.logger.Info("portal session started")
	p.lastScanAt = now
	p.runCycle(ctx)
	return true
}

func (p *PortalController) deactivate(ctx context.Context) {
	p.active = false
	if err := p.hotspot.Shutdown(ctx); err != nil {
		p.logger.Warn("hotspot shutdown failed", "error", err)
	}
	if err := p.radio.Standby(ctx); err != nil {
		p.logger.Warn("radio standby failed", "error", err)
	}
	p.logger.Info("portal session ended")
}

// Tick runs a scan cycle when the interval has elapsed. The cycle keeps
// running while the hotspot is up: an open network appearing later still gets
// the message, and the idempotent Create means the fallback stays a no-op.
func (p *PortalController) Tick(ctx context.Context, now time.Time) {
	if !p.active {
		return
	}
	if now.Sub(p.lastScanAt) < p.scanInterval {
		return
	}
	p.lastScanAt = now
	p.runCycle(ctx)
}

// runCycle is one scan → deliver → fallback pass.
func (p *PortalController) runCycle(ctx context.Context) {
	records, err := p.radio.Scan(ctx)
	if err != nil {
		// Treat a failed scan like an empty one; the fallback hotspot is the
		// useful behavior either way.
		p.logger.Warn("wifi scan failed", "error", err)
		records = nil
	}

	var open []NetworkRecord
	for _, rec := range records {
		if rec.Security == SecurityOpen {
			open = append(open, rec)
		}
	}
	p.logger.Debug("scan cycle", "visible", len(records), "open", len(open))

	if len(open) == 0 {
		p.fallback(ctx)
		return
	}

	delivered := false
	for i, rec := range open {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			p.sleep(ctx, p.recordPace)
		}
		outcome := p.attempter.Attempt(ctx, rec)
		p.logger.Debug("delivery attempt", "ssid", rec.SSID, "outcome", outcome.String())
		if outcome != OutcomeConnectTimeout {
			delivered = true
		}
	}

	// Networks that never let us associate don't count; if nothing did, host
	// the portal ourselves.
	if !delivered {
		p.fallback(ctx)
	}
}

func (p *PortalController) fallback(ctx context.Context) {
	if err := p.hotspot.Create(ctx); err != nil {
		p.logger.Error("hotspot create failed", "error", err)
	}
}
