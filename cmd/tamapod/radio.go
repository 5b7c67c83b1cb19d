package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ============================================================================
// Radio
// ============================================================================
// Radio abstracts the wifi hardware so the portal controller can be driven by
// a fake in tests. The production implementation shells out to nmcli, which
// already handles supplicant, DHCP, and AP-mode plumbing on the target image.
// ============================================================================

// Security classifies what a scan reported for a network.
type Security int

const (
	SecurityOpen Security = iota
	SecuritySecured
)

// NetworkRecord is one scan result.
type NetworkRecord struct {
	SSID     string
	Security Security
}

// Radio is the wifi hardware boundary used by the portal controller.
type Radio interface {
	// Scan returns currently visible networks. An empty slice is a valid
	// result, not an error.
	Scan(ctx context.Context) ([]NetworkRecord, error)

	// Associate joins an open network and returns the gateway address once
	// connected. ctx carries the association deadline.
	Associate(ctx context.Context, ssid string) (gateway string, err error)

	// Disassociate leaves the current network. Safe when not associated.
	Disassociate(ctx context.Context) error

	// StartAccessPoint brings up an open AP with the given SSID on addr.
	StartAccessPoint(ctx context.Context, ssid, addr string) error

	// StopAccessPoint tears the AP down. Safe when no AP is up.
	StopAccessPoint(ctx context.Context) error

	// Standby powers the radio down between portal sessions.
	Standby(ctx context.Context) error
}

// runFunc executes a command and returns combined output. Swappable in tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// nmcliRadio drives the wifi interface through nmcli.
type nmcliRadio struct {
	iface  string
	run    runFunc
	logger *slog.Logger
}

func NewNmcliRadio(iface string, logger *slog.Logger) Radio {
	return &nmcliRadio{iface: iface, run: execRun, logger: logger}
}

func (r *nmcliRadio) Scan(ctx context.Context) ([]NetworkRecord, error) {
	// The radio may be in standby from a previous session.
	if out, err := r.run(ctx, "nmcli", "radio", "wifi", "on"); err != nil {
		return nil, fmt.Errorf("radio wake: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	out, err := r.run(ctx, "nmcli", "-t", "-f", "SSID,SECURITY",
		"device", "wifi", "list", "ifname", r.iface, "--rescan", "yes")
	if err != nil {
		return nil, fmt.Errorf("wifi scan: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	records := parseScanOutput(string(out))
	r.logger.Debug("wifi scan complete", "networks", len(records))
	return records, nil
}

// parseScanOutput parses `nmcli -t -f SSID,SECURITY` lines. Terse mode is
// colon-separated; SECURITY is the last field so SSIDs containing escaped
// colons split cleanly from the right.
func parseScanOutput(out string) []NetworkRecord {
	var records []NetworkRecord
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			continue
		}
		ssid := strings.ReplaceAll(line[:idx], `\:`, ":")
		if ssid == "" {
			// hidden network
			continue
		}
		sec := SecuritySecured
		if sf := strings.TrimSpace(line[idx+1:]); sf == "" || sf == "--" {
			sec = SecurityOpen
		}
		records = append(records, NetworkRecord{SSID: ssid, Security: sec})
	}
	return records
}

func (r *nmcliRadio) Associate(ctx context.Context, ssid string) (string, error) {
	out, err := r.run(ctx, "nmcli", "device", "wifi", "connect", ssid, "ifname", r.iface)
	if err != nil {
		return "", fmt.Errorf("associate %q: %w (%s)", ssid, err, strings.TrimSpace(string(out)))
	}
	gwOut, err := r.run(ctx, "nmcli", "-t", "-f", "IP4.GATEWAY", "device", "show", r.iface)
	if err != nil {
		return "", fmt.Errorf("gateway lookup: %w", err)
	}
	gw := parseGateway(string(gwOut))
	if gw == "" {
		return "", fmt.Errorf("associate %q: no gateway reported", ssid)
	}
	r.logger.Debug("associated", "ssid", ssid, "gateway", gw)
	return gw, nil
}

// parseGateway extracts the address from an `IP4.GATEWAY:x.x.x.x` line.
func parseGateway(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "IP4.GATEWAY:"); ok {
			v = strings.TrimSpace(v)
			if v != "" && v != "--" {
				return v
			}
		}
	}
	return ""
}

func (r *nmcliRadio) Disassociate(ctx context.Context) error {
	out, err := r.run(ctx, "nmcli", "device", "disconnect", r.iface)
	if err != nil {
		return fmt.Errorf("disassociate: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (r *nmcliRadio) StartAccessPoint(ctx context.Context, ssid, addr string) error {
	out, err := r.run(ctx, "nmcli", "device", "wifi", "hotspot",
		"ifname", r.iface, "ssid", ssid, "con-name", "tamapod-hotspot")
	if err != nil {
		return fmt.Errorf("start access point %q: %w (%s)", ssid, err, strings.TrimSpace(string(out)))
	}
	out, err = r.run(ctx, "nmcli", "connection", "modify", "tamapod-hotspot",
		"ipv4.method", "shared", "ipv4.addresses", addr+"/24")
	if err != nil {
		return fmt.Errorf("set access point address: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	r.logger.Info("access point up", "ssid", ssid, "addr", addr)
	return nil
}

func (r *nmcliRadio) StopAccessPoint(ctx context.Context) error {
	out, err := r.run(ctx, "nmcli", "connection", "down", "tamapod-hotspot")
	if err != nil && !strings.Contains(string(out), "not an active connection") {
		return fmt.Errorf("stop access point: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (r *nmcliRadio) Standby(ctx context.Context) error {
	out, err := r.run(ctx, "nmcli", "radio", "wifi", "off")
	if err != nil {
		return fmt.Errorf("radio standby: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}
