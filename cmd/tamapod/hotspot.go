package main

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// ============================================================================
// Captive-portal hotspot
// ============================================================================
// Fallback when no open network yields a delivery: the device becomes an open
// AP and plays captive portal itself. A wildcard DNS responder answers every
// A query with the portal address, and the HTTP server serves a message form
// at / while redirecting everything else there, which is enough to trip the
// connectivity probes of stock phones.
// ============================================================================

// HotspotHost runs the AP, DNS responder, and form server as one unit.
// Create and Shutdown are idempotent.
type HotspotHost struct {
	radio  Radio
	store  *MessageStore
	logger *slog.Logger

	// onMessage receives each stored submission; the daemon wires it to the
	// event queue.
	onMessage func(MessageReceived)

	ssidPrefix string
	portalIP   string
	httpAddr   string // listen address, separate from portalIP for tests
	dnsAddr    string

	randInt func(n int) int
	now     func() time.Time

	mu      sync.Mutex
	active  bool
	ssid    string
	httpSrv *http.Server
	dnsSrv  *dns.Server
}

func NewHotspotHost(radio Radio, store *MessageStore, onMessage func(MessageReceived), logger *slog.Logger) *HotspotHost {
	return &HotspotHost{
		radio:      radio,
		store:      store,
		logger:     logger,
		onMessage:  onMessage,
		ssidPrefix: defaultSSIDPrefix,
		portalIP:   defaultHotspotIP,
		httpAddr:   defaultHotspotIP + ":80",
		dnsAddr:    defaultHotspotIP + ":53",
		randInt:    rand.Intn,
		now:        time.Now,
	}
}

// SSID returns the current hotspot SSID, empty when down.
func (h *HotspotHost) SSID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ssid
}

// Active reports whether the hotspot is up.
func (h *HotspotHost) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Create brings the hotspot up: AP first, then DNS, then HTTP. Calling it
// while already up is a no-op that keeps the existing SSID.
func (h *HotspotHost) Create(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active {
		return nil
	}

	// Random 4-digit suffix so neighboring devices don't collide.
	ssid := fmt.Sprintf("%s%d", h.ssidPrefix, 1000+h.randInt(9000))
	if err := h.radio.StartAccessPoint(ctx, ssid, h.portalIP); err != nil {
		return fmt.Errorf("hotspot create: %w", err)
	}

	if err := h.startDNS(); err != nil {
		h.radio.StopAccessPoint(ctx)
		return fmt.Errorf("hotspot create: %w", err)
	}
	if err := h.startHTTP(); err != nil {
		h.dnsSrv.Shutdown()
		h.dnsSrv = nil
		h.radio.StopAccessPoint(ctx)
		return fmt.Errorf("hotspot create: %w", err)
	}

	h.active = true
	h.ssid = ssid
	h.logger.Info("hotspot up", "ssid", ssid, "ip", h.portalIP)
	return nil
}

// Shutdown tears everything down in reverse order. Safe when already down.
func (h *HotspotHost) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return nil
	}

	var firstErr error
	if err := h.httpSrv.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("http shutdown: %w", err)
	}
	if err := h.dnsSrv.Shutdown(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("dns shutdown: %w", err)
	}
	if err := h.radio.StopAccessPoint(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("stop access point: %w", err)
	}

	h.httpSrv = nil
	h.dnsSrv = nil
	h.active = false
	h.ssid = ""
	h.logger.Info("hotspot down")
	return firstErr
}

// startDNS runs the wildcard responder: every A query gets the portal IP.
func (h *HotspotHost) startDNS() error {
	ip := net.ParseIP(h.portalIP).To4()
	if ip == nil {
		return fmt.Errorf("bad portal ip: %q", h.portalIP)
	}

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		m.Authoritative = true
		for _, q := range req.Question {
			if q.Qtype != dns.TypeA && q.Qtype != dns.TypeANY {
				continue
			}
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{
					Name:   q.Name,
					Rrtype: dns.TypeA,
					Class:  dns.ClassINET,
					Ttl:    10,
				},
				A: ip,
			})
		}
		w.WriteMsg(m)
	})

	srv := &dns.Server{Addr: h.dnsAddr, Net: "udp", Handler: mux}
	h.dnsSrv = srv
	errCh := make(chan error, 1)
	srv.NotifyStartedFunc = func() { errCh <- nil }
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			select {
			case errCh <- err:
			default:
				h.logger.Error("dns server stopped", "error", err)
			}
		}
	}()
	return <-errCh
}

func (h *HotspotHost) startHTTP() error {
	ln, err := net.Listen("tcp", h.httpAddr)
	if err != nil {
		return fmt.Errorf("portal listen: %w", err)
	}

	srv := &http.Server{
		Handler:      h.portalMux(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	h.httpSrv = srv
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Error("portal http server stopped", "error", err)
		}
	}()
	return nil
}

// portalMux builds the captive-portal routes: form at /, submission at
// /message, 302 to / for everything else.
func (h *HotspotHost) portalMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /message", h.handleMessage)
	mux.HandleFunc("/", h.handleCatchAll)
	return mux
}

func (h *HotspotHost) handleForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, portalFormPage)
}

func (h *HotspotHost) handleMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	text := h.store.Sanitize(r.PostFormValue("msg"))
	if text == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	at := h.now()
	h.store.Set(text, at)
	h.logger.Info("portal message received", "len", len(text), "remote", r.RemoteAddr)
	if h.onMessage != nil {
		h.onMessage(MessageReceived{Text: text, At: at})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, portalThanksPage, html.EscapeString(text))
}

func (h *HotspotHost) handleCatchAll(w http.ResponseWriter, r *http.Request) {
	// Connectivity probes (generate_204 and friends) land here; the redirect
	// is what makes the phone pop its sign-in sheet. Relative Location works
	// because the wildcard DNS already resolves every host to the portal.
	http.Redirect(w, r, "/", http.StatusFound)
}

const portalFormPage = `<!DOCTYPE html>
<html>
<head><meta name="viewport" content="width=device-width, initial-scale=1"><title>TamaPortal</title></head>
<body style="font-family:sans-serif;text-align:center;margin-top:3em">
<h1>&#128123; TamaPortal</h1>
<p>A tiny pet lives here. Leave it a message!</p>
<form method="POST" action="/message">
<input type="text" name="msg" maxlength="100" autofocus>
<button type="submit">Send</button>
</form>
</body>
</html>
`

const portalThanksPage = `<!DOCTYPE html>
<html>
<head><meta name="viewport" content="width=device-width, initial-scale=1"><title>TamaPortal</title></head>
<body style="font-family:sans-serif;text-align:center;margin-top:3em">
<h1>&#10024; Delivered!</h1>
<p>The pet will see: %s</p>
</body>
</html>
`
