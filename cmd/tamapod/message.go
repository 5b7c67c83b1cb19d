package main

import (
	"strings"
	"sync"
	"time"
)

// MessageStore holds the single inbound visitor message. One slot: a new
// submission overwrites the previous one. The captive-portal HTTP handler
// writes it; the renderer and reducer read it.
//
// Expiry is lazy: Visible applies the TTL at read time, so the store needs no
// timer goroutine of its own.
type MessageStore struct {
	mu         sync.Mutex
	text       string
	receivedAt time.Time
	present    bool

	ttl    time.Duration
	maxLen int
}

func NewMessageStore(ttl time.Duration, maxLen int) *MessageStore {
	return &MessageStore{ttl: ttl, maxLen: maxLen}
}

// Set stores a sanitized message, replacing any previous one and restarting
// the TTL.
func (m *MessageStore) Set(text string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.receivedAt = at
	m.present = true
}

// Visible returns the message if one is stored and its TTL has not elapsed.
// The boundary is half-open: at exactly receivedAt+ttl the message is gone.
func (m *MessageStore) Visible(now time.Time) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present || now.Sub(m.receivedAt) >= m.ttl {
		return "", false
	}
	return m.text, true
}

// Current returns the stored message regardless of TTL, for snapshots.
func (m *MessageStore) Current() (string, time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, m.receivedAt, m.present
}

// Clear drops the message unconditionally.
func (m *MessageStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = ""
	m.receivedAt = time.Time{}
	m.present = false
}

// Sanitize neutralizes markup and caps length. Angle brackets are escaped to
// entities before the cap applies, so escapes spend display budget and a raw
// bracket can never reach the renderer; the cap counts runes so multibyte
// input is not split.
func (m *MessageStore) Sanitize(text string) string {
	return sanitizeMessage(text, m.maxLen)
}

func sanitizeMessage(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	runes := []rune(text)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return string(runes)
}
