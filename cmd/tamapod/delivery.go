package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ============================================================================
// Outbound delivery
// ============================================================================
// When the portal finds an open network it joins it and posts a short
// friendly message to the gateway on a handful of likely paths. Delivery is
// best effort: most gateways ignore the POST, and that is fine. The point is
// the occasional hit on a captive portal or router login page.
// ============================================================================

// DeliveryOutcome classifies one network attempt.
type DeliveryOutcome int

const (
	// OutcomeDelivered means at least one endpoint returned an HTTP response.
	OutcomeDelivered DeliveryOutcome = iota
	// OutcomeConnectTimeout means association never completed.
	OutcomeConnectTimeout
	// OutcomeNoResponse means we associated but no endpoint answered.
	OutcomeNoResponse
)

func (o DeliveryOutcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeConnectTimeout:
		return "connect_timeout"
	case OutcomeNoResponse:
		return "no_response"
	default:
		return "unknown"
	}
}

// messagePair is one greeting, split across the fields routers commonly echo
// into their logs or captive pages.
type messagePair struct {
	Email    string
	Username string
}

var friendlyMessages = []messagePair{
	{"hello@tamapod.example", "a tiny pet says hi"},
	{"greetings@tamapod.example", "your wifi is lovely"},
	{"wave@tamapod.example", "just passing through"},
	{"pet@tamapod.example", "beep boop, have a nice day"},
}

var deliveryEndpoints = []string{"/post", "/", "/login", "/auth"}

// DeliveryAttempter posts friendly messages to an associated gateway.
type DeliveryAttempter struct {
	radio  Radio
	client *http.Client
	logger *slog.Logger

	endpoints []string
	messages  []messagePair

	associateTimeout time.Duration
	endpointPace     time.Duration

	sleep   func(ctx context.Context, d time.Duration)
	randInt func(n int) int
}

func NewDeliveryAttempter(radio Radio, logger *slog.Logger) *DeliveryAttempter {
	return &DeliveryAttempter{
		radio:            radio,
		client:           &http.Client{Timeout: defaultHTTPTimeoutMS * time.Millisecond},
		logger:           logger,
		endpoints:        deliveryEndpoints,
		messages:         friendlyMessages,
		associateTimeout: defaultAssociateMS * time.Millisecond,
		endpointPace:     defaultEndpointPaceMS * time.Millisecond,
		sleep:            sleepCtx,
		randInt:          rand.Intn,
	}
}

// sleepCtx pauses for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Attempt associates with one open network, posts to each endpoint in order
// with pacing between them, and disassociates before returning. A cancelled
// ctx stops the endpoint walk between posts; the in-flight request still runs
// to its own timeout.
func (d *DeliveryAttempter) Attempt(ctx context.Context, rec NetworkRecord) DeliveryOutcome {
	assocCtx, cancel := context.WithTimeout(ctx, d.associateTimeout)
	gateway, err := d.radio.Associate(assocCtx, rec.SSID)
	cancel()
	if err != nil {
		d.logger.Debug("association failed", "ssid", rec.SSID, "error", err)
		return OutcomeConnectTimeout
	}
	defer func() {
		if err := d.radio.Disassociate(ctx); err != nil {
			d.logger.Warn("disassociate failed", "ssid", rec.SSID, "error", err)
		}
	}()

	msg := d.messages[d.randInt(len(d.messages))]
	answered := false
	for i, ep := range d.endpoints {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			d.sleep(ctx, d.endpointPace)
		}
		if d.postTo(gateway, ep, msg) {
			answered = true
		}
	}

	if !answered {
		d.logger.Debug("no endpoint answered", "ssid", rec.SSID, "gateway", gateway)
		return OutcomeNoResponse
	}
	d.logger.Info("message delivered", "ssid", rec.SSID, "gateway", gateway)
	return OutcomeDelivered
}

// postTo sends one form POST. Any HTTP response at all counts as answered;
// the status code is irrelevant since the payload is the message itself.
func (d *DeliveryAttempter) postTo(gateway, endpoint string, msg messagePair) bool {
	form := url.Values{
		"email":    {msg.Email},
		"password": {msg.Username},
		"username": {msg.Username},
	}
	target := fmt.Sprintf("http://%s%s", gateway, endpoint)
	resp, err := d.client.Post(target, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	resp.Body.Close()
	d.logger.Debug("endpoint answered", "target", target, "status", resp.StatusCode)
	return true
}
