package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

// ============================================================================
// tamactl - Command-line IPC Client
// ============================================================================
// Sends events to the tamapod daemon via its Unix socket. Handy on a dev
// machine without the physical buttons, and for scripting device tests.
//
// Usage:
//   tamactl press middle
//   tamactl release middle
//   tamactl tap left
//   tamactl portal
//   tamactl clean
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/tamapod.sock)
// ============================================================================

// Event wire types (duplicated from the daemon package for a standalone binary)

type ButtonEdge struct {
	Button  string `json:"button"`
	Pressed bool   `json:"pressed"`
}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func validButton(s string) bool {
	return s == "left" || s == "middle" || s == "right"
}

func main() {
	socketPath := "/tmp/tamapod.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Each command maps to one or more envelopes sent in order.
	var envs []EventEnvelope

	switch args[0] {
	case "press", "release":
		if len(args) < 2 || !validButton(args[1]) {
			fmt.Fprintf(os.Stderr, "error: %s requires a button: left, middle, right\n", args[0])
			os.Exit(1)
		}
		env, err := edgeEnvelope(args[1], args[0] == "press")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		envs = append(envs, env)

	case "tap":
		// press + release as one command
		if len(args) < 2 || !validButton(args[1]) {
			fmt.Fprintf(os.Stderr, "error: tap requires a button: left, middle, right\n")
			os.Exit(1)
		}
		down, err := edgeEnvelope(args[1], true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		up, err := edgeEnvelope(args[1], false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		envs = append(envs, down, up)

	case "portal":
		envs = append(envs, EventEnvelope{Type: "portal_toggle"})

	case "clean":
		envs = append(envs, EventEnvelope{Type: "clean"})

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err := sendEvents(socketPath, envs); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

func edgeEnvelope(button string, pressed bool) (EventEnvelope, error) {
	data, err := json.Marshal(ButtonEdge{Button: button, Pressed: pressed})
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal ButtonEdge: %w", err)
	}
	return EventEnvelope{Type: "button_edge", Data: data}, nil
}

func sendEvents(socketPath string, envs []EventEnvelope) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	decoder := json.NewDecoder(conn)

	for _, env := range envs {
		data, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}

		// Line-delimited JSON
		if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
			return fmt.Errorf("send event: %w", err)
		}

		var response IPCResponse
		if err := decoder.Decode(&response); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if response.Status == "error" {
			return fmt.Errorf("daemon error: %s", response.Error)
		}
	}

	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `tamactl - Control the tamapod daemon via IPC

Usage:
  tamactl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/tamapod.sock)

Commands:
  press <button>      Press a button (left, middle, right)
  release <button>    Release a button
  tap <button>        Press then release in one shot
  portal              Toggle the wifi portal session
  clean               Clear the inbound visitor message
  help, -h, --help    Show this help message

Examples:
  tamactl tap middle
  tamactl press left
  tamactl -socket /var/run/tamapod.sock portal
`)
}
