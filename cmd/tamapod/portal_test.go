package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubDeliverer fakes the delivery boundary with canned outcomes per SSID.
type stubDeliverer struct {
	outcomes map[string]DeliveryOutcome
	attempts []string
}

func (d *stubDeliverer) Attempt(ctx context.Context, rec NetworkRecord) DeliveryOutcome {
	d.attempts = append(d.attempts, rec.SSID)
	return d.outcomes[rec.SSID]
}

func newTestPortal(radio *fakeRadio, del *stubDeliverer) (*PortalController, *[]time.Duration) {
	store := NewMessageStore(5*time.Second, 100)
	hotspot := newTestHotspot(radio, store, nil)
	ctrl := NewPortalController(radio, del, hotspot, testLogger())
	sleeps := &[]time.Duration{}
	ctrl.sleep = func(ctx context.Context, d time.Duration) {
		*sleeps = append(*sleeps, d)
	}
	return ctrl, sleeps
}

func TestPortal_ToggleIsInvolution(t *testing.T) {
	radio := &fakeRadio{scanResults: []NetworkRecord{{SSID: "HomeNet", Security: SecuritySecured}}}
	ctrl, _ := newTestPortal(radio, &stubDeliverer{})

	ctx := context.Background()
	t0 := time.Unix(6000, 0)

	// Activate: no open networks visible, so the fallback hotspot comes up.
	if active := ctrl.Toggle(ctx, t0); !active {
		t.Fatalf("expected active after first toggle")
	}
	if radio.scanCalls != 1 {
		t.Fatalf("expected immediate scan on activation, got %d", radio.scanCalls)
	}
	if !ctrl.hotspot.Active() {
		t.Fatalf("expected fallback hotspot up")
	}

	// Deactivate: hotspot torn down, radio parked.
	if active := ctrl.Toggle(ctx, t0.Add(time.Minute)); active {
		t.Fatalf("expected inactive after second toggle")
	}
	if ctrl.hotspot.Active() {
		t.Fatalf("expected hotspot down after deactivation")
	}
	if radio.apStops != 1 {
		t.Fatalf("expected access point stopped once, got %d", radio.apStops)
	}
	if radio.standbys != 1 {
		t.Fatalf("expected radio standby once, got %d", radio.standbys)
	}
}

func TestPortal_DeliveryAvoidsFallback(t *testing.T) {
	radio := &fakeRadio{scanResults: []NetworkRecord{
		{SSID: "CoffeeShop", Security: SecurityOpen},
		{SSID: "HomeNet", Security: SecuritySecured},
	}}
	del := &stubDeliverer{outcomes: map[string]DeliveryOutcome{"CoffeeShop": OutcomeDelivered}}
	ctrl, _ := newTestPortal(radio, del)

	ctrl.Toggle(context.Background(), time.Unix(6000, 0))

	if len(del.attempts) != 1 || del.attempts[0] != "CoffeeShop" {
		t.Fatalf("expected one attempt on the open network, got %v", del.attempts)
	}
	if ctrl.hotspot.Active() {
		t.Fatalf("expected no fallback hotspot after a delivery")
	}
}

func TestPortal_NoResponseStillCountsAsReachable(t *testing.T) {
	// Associated-but-silent gateways count: the message was posted into the
	// void, which is as delivered as this protocol gets.
	radio := &fakeRadio{scanResults: []NetworkRecord{
		{SSID: "Ghost", Security: SecurityOpen},
	}}
	del := &stubDeliverer{outcomes: map[string]DeliveryOutcome{"Ghost": OutcomeNoResponse}}
	ctrl, _ := newTestPortal(radio, del)

	ctrl.Toggle(context.Background(), time.Unix(6000, 0))

	if ctrl.hotspot.Active() {
		t.Fatalf("expected no fallback when association succeeded")
	}
}

func TestPortal_AllConnectTimeoutsFallBack(t *testing.T) {
	radio := &fakeRadio{scanResults: []NetworkRecord{
		{SSID: "Flaky1", Security: SecurityOpen},
		{SSID: "Flaky2", Security: SecurityOpen},
	}}
	del := &stubDeliverer{outcomes: map[string]DeliveryOutcome{
		"Flaky1": OutcomeConnectTimeout,
		"Flaky2": OutcomeConnectTimeout,
	}}
	ctrl, sleeps := newTestPortal(radio, del)

	ctrl.Toggle(context.Background(), time.Unix(6000, 0))

	if len(del.attempts) != 2 {
		t.Fatalf("expected both networks attempted, got %v", del.attempts)
	}
	if !ctrl.hotspot.Active() {
		t.Fatalf("expected fallback hotspot when nothing associated")
	}

	// Pacing between network records, not before the first.
	if len(*sleeps) != 1 || (*sleeps)[0] != ctrl.recordPace {
		t.Fatalf("expected one record pace sleep of %v, got %v", ctrl.recordPace, *sleeps)
	}
}

func TestPortal_ScanErrorFallsBack(t *testing.T) {
	radio := &fakeRadio{scanErr: errors.New("rfkill")}
	ctrl, _ := newTestPortal(radio, &stubDeliverer{})

	ctrl.Toggle(context.Background(), time.Unix(6000, 0))

	if !ctrl.hotspot.Active() {
		t.Fatalf("expected fallback hotspot on scan failure")
	}
}

func TestPortal_TickHonorsScanInterval(t *testing.T) {
	radio := &fakeRadio{scanResults: []NetworkRecord{
		{SSID: "CoffeeShop", Security: SecurityOpen},
	}}
	del := &stubDeliverer{outcomes: map[string]DeliveryOutcome{"CoffeeShop": OutcomeDelivered}}
	ctrl, _ := newTestPortal(radio, del)

	ctx := context.Background()
	t0 := time.Unix(6000, 0)

	ctrl.Toggle(ctx, t0)
	if radio.scanCalls != 1 {
		t.Fatalf("expected 1 scan after activation, got %d", radio.scanCalls)
	}

	ctrl.Tick(ctx, t0.Add(29*time.Second))
	if radio.scanCalls != 1 {
		t.Fatalf("expected no rescan before the interval, got %d", radio.scanCalls)
	}

	ctrl.Tick(ctx, t0.Add(30*time.Second))
	if radio.scanCalls != 2 {
		t.Fatalf("expected rescan at the interval, got %d", radio.scanCalls)
	}
}

func TestPortal_TickIsNoOpWhileInactive(t *testing.T) {
	radio := &fakeRadio{}
	ctrl, _ := newTestPortal(radio, &stubDeliverer{})

	ctrl.Tick(context.Background(), time.Unix(6000, 0).Add(time.Hour))
	if radio.scanCalls != 0 {
		t.Fatalf("expected no scan while inactive, got %d", radio.scanCalls)
	}
}

func TestPortal_RescansWhileHosting(t *testing.T) {
	radio := &fakeRadio{}
	ctrl, _ := newTestPortal(radio, &stubDeliverer{})

	ctx := context.Background()
	t0 := time.Unix(6000, 0)

	// Empty scan on activation brings the fallback hotspot up.
	ctrl.Toggle(ctx, t0)
	if !ctrl.hotspot.Active() {
		t.Fatalf("expected hotspot up (empty scan)")
	}
	if radio.scanCalls != 1 || len(radio.apSSIDs) != 1 {
		t.Fatalf("expected 1 scan and 1 AP start, got %d/%d", radio.scanCalls, len(radio.apSSIDs))
	}

	// The interval cycle keeps running while hosting; the fallback is a
	// no-op because the hotspot already exists.
	ctrl.Tick(ctx, t0.Add(30*time.Second))
	if radio.scanCalls != 2 {
		t.Fatalf("expected rescan while hosting, got %d scans", radio.scanCalls)
	}
	if len(radio.apSSIDs) != 1 {
		t.Fatalf("expected no second AP start, got %d", len(radio.apSSIDs))
	}
	if !ctrl.hotspot.Active() {
		t.Fatalf("expected hotspot still up after rescan")
	}
}
