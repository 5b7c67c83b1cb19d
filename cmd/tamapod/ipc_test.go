package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func startIPCServer(t *testing.T, events chan Event) (string, context.CancelFunc, chan error) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "tamapod.sock")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- runIPCServer(ctx, socketPath, events, testLogger())
	}()

	// Wait for the socket to come up.
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("IPC socket never came up: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	return socketPath, cancel, done
}

func TestIPC_EventRoundTrip(t *testing.T) {
	events := make(chan Event, 4)
	socketPath, cancel, done := startIPCServer(t, events)
	defer cancel()

	if err := SendIPCEvent(socketPath, ButtonEdge{Button: ButtonLeft, Pressed: true}); err != nil {
		t.Fatalf("send button edge: %v", err)
	}
	if err := SendIPCEvent(socketPath, PortalToggle{}); err != nil {
		t.Fatalf("send portal toggle: %v", err)
	}

	want := []Event{
		ButtonEdge{Button: ButtonLeft, Pressed: true},
		PortalToggle{},
	}
	for i, w := range want {
		select {
		case got := <-events:
			if got != w {
				t.Fatalf("event %d = %#v, want %#v", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server returned error on shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop after cancel")
	}
}

func TestIPC_MalformedLineGetsErrorReply(t *testing.T) {
	events := make(chan Event, 4)
	socketPath, cancel, _ := startIPCServer(t, events)
	defer cancel()

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "{not json}\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "error" || resp.Error == "" {
		t.Fatalf("expected error response, got %+v", resp)
	}
	if len(events) != 0 {
		t.Fatalf("expected no event queued for malformed line")
	}
}

func TestIPC_FullQueueRejectsEvent(t *testing.T) {
	// Unbuffered channel with no reader: every enqueue fails fast.
	events := make(chan Event)
	socketPath, cancel, _ := startIPCServer(t, events)
	defer cancel()

	err := SendIPCEvent(socketPath, CleanRequested{})
	if err == nil {
		t.Fatalf("expected error when the event queue is full")
	}
	if !strings.Contains(err.Error(), "queue full") {
		t.Fatalf("expected queue full error, got %v", err)
	}
}
