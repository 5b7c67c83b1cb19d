package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the tamapod daemon.
//
// The config file is the primary configuration surface; flags exist for small
// overrides and for environments where a file is awkward. Defaults and
// validation stay centralized here so the rest of the code can assume a
// well-formed config.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Gestures GesturesConfig `yaml:"gestures"`
	Portal   PortalConfig   `yaml:"portal"`
	Message  MessageConfig  `yaml:"message"`
	Save     SaveConfig     `yaml:"save"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	IPC      IPCConfig      `yaml:"ipc"`
	StateWS  StateWSConfig  `yaml:"state_ws"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type InputConfig struct {
	// Devices lists the evdev nodes to monitor. Empty means no physical
	// buttons (IPC-injected edges only), which is the dev-machine setup.
	Devices []string `yaml:"devices,omitempty"`

	// Key codes for the three buttons, from the gpio-keys device tree.
	LeftKeyCode   int `yaml:"left_key_code"`
	MiddleKeyCode int `yaml:"middle_key_code"`
	RightKeyCode  int `yaml:"right_key_code"`
}

type GesturesConfig struct {
	DoubleTapMS   int `yaml:"double_tap_ms"`
	HoldMS        int `yaml:"hold_ms"`
	HoldLockoutMS int `yaml:"hold_lockout_ms"`
	MenuBounceMS  int `yaml:"menu_bounce_ms"`
	MenuPages     int `yaml:"menu_pages"`
}

type PortalConfig struct {
	Interface      string `yaml:"interface"`
	ScanIntervalMS int    `yaml:"scan_interval_ms"`
	AssociateMS    int    `yaml:"associate_ms"`
	EndpointPaceMS int    `yaml:"endpoint_pace_ms"`
	RecordPaceMS   int    `yaml:"record_pace_ms"`
	HTTPTimeoutMS  int    `yaml:"http_timeout_ms"`
	SSIDPrefix     string `yaml:"ssid_prefix"`
	HotspotIP      string `yaml:"hotspot_ip"`

	// Listen addresses for the captive-portal servers. Usually derived from
	// hotspot_ip; override for unprivileged test runs.
	HTTPAddr string `yaml:"http_addr,omitempty"`
	DNSAddr  string `yaml:"dns_addr,omitempty"`
}

type MessageConfig struct {
	MaxLen int `yaml:"max_len"`
	TTLMS  int `yaml:"ttl_ms"`
}

type SaveConfig struct {
	Path        string `yaml:"path"`
	IntervalMin int    `yaml:"interval_min"`
}

type DaemonConfig struct {
	UpdateHz int `yaml:"update_hz"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StateWSConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Devices:       []string{"/dev/input/event0"},
			LeftKeyCode:   KEY_LEFT,
			MiddleKeyCode: KEY_ENTER,
			RightKeyCode:  KEY_RIGHT,
		},
		Gestures: GesturesConfig{
			DoubleTapMS:   defaultDoubleTapMS,
			HoldMS:        defaultHoldMS,
			HoldLockoutMS: defaultHoldLockoutMS,
			MenuBounceMS:  defaultMenuBounceMS,
			MenuPages:     defaultMenuPages,
		},
		Portal: PortalConfig{
			Interface:      "wlan0",
			ScanIntervalMS: defaultScanIntervalMS,
			AssociateMS:    defaultAssociateMS,
			EndpointPaceMS: defaultEndpointPaceMS,
			RecordPaceMS:   defaultRecordPaceMS,
			HTTPTimeoutMS:  defaultHTTPTimeoutMS,
			SSIDPrefix:     defaultSSIDPrefix,
			HotspotIP:      defaultHotspotIP,
		},
		Message: MessageConfig{
			MaxLen: defaultMessageMaxLen,
			TTLMS:  defaultMessageTTLMS,
		},
		Save: SaveConfig{
			Path:        "/var/lib/tamapod/savestate.bin",
			IntervalMin: defaultSaveMinutes,
		},
		Daemon: DaemonConfig{
			UpdateHz: defaultUpdateHz,
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/tamapod.sock",
		},
		StateWS: StateWSConfig{
			Addr: ":3001",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies flag values on top of a loaded config. Flags pass
// pointers; each override is only applied when the pointer is non-nil.
type FlagOverrides struct {
	InputDevice *string

	PortalInterface *string

	SavePath      *string
	UpdateHz      *int
	IPCSocketPath *string
	StateWSAddr   *string

	LogLevel *string
}

// Apply merges the overrides into cfg. Nil pointers are ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevice != nil {
		if *o.InputDevice == "" {
			cfg.Input.Devices = nil
		} else {
			cfg.Input.Devices = []string{*o.InputDevice}
		}
	}
	if o.PortalInterface != nil {
		cfg.Portal.Interface = *o.PortalInterface
	}
	if o.SavePath != nil {
		cfg.Save.Path = *o.SavePath
	}
	if o.UpdateHz != nil {
		cfg.Daemon.UpdateHz = *o.UpdateHz
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.StateWSAddr != nil {
		cfg.StateWS.Addr = *o.StateWSAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.LeftKeyCode <= 0 || c.Input.MiddleKeyCode <= 0 || c.Input.RightKeyCode <= 0 {
		return errors.New("input key codes must be > 0")
	}
	if c.Input.LeftKeyCode == c.Input.MiddleKeyCode ||
		c.Input.LeftKeyCode == c.Input.RightKeyCode ||
		c.Input.MiddleKeyCode == c.Input.RightKeyCode {
		return errors.New("input key codes must be distinct")
	}

	if c.Gestures.DoubleTapMS <= 0 {
		return errors.New("gestures.double_tap_ms must be > 0")
	}
	if c.Gestures.HoldMS <= 0 {
		return errors.New("gestures.hold_ms must be > 0")
	}
	if c.Gestures.HoldLockoutMS < 0 {
		return errors.New("gestures.hold_lockout_ms must be >= 0")
	}
	if c.Gestures.MenuBounceMS < 0 {
		return errors.New("gestures.menu_bounce_ms must be >= 0")
	}
	if c.Gestures.MenuPages <= 0 {
		return errors.New("gestures.menu_pages must be > 0")
	}

	if c.Portal.Interface == "" {
		return errors.New("portal.interface must not be empty")
	}
	if c.Portal.ScanIntervalMS <= 0 {
		return errors.New("portal.scan_interval_ms must be > 0")
	}
	if c.Portal.AssociateMS <= 0 {
		return errors.New("portal.associate_ms must be > 0")
	}
	if c.Portal.HTTPTimeoutMS <= 0 {
		return errors.New("portal.http_timeout_ms must be > 0")
	}
	if c.Portal.SSIDPrefix == "" {
		return errors.New("portal.ssid_prefix must not be empty")
	}
	if c.Portal.HotspotIP == "" {
		return errors.New("portal.hotspot_ip must not be empty")
	}

	if c.Message.MaxLen <= 0 {
		return errors.New("message.max_len must be > 0")
	}
	if c.Message.TTLMS <= 0 {
		return errors.New("message.ttl_ms must be > 0")
	}

	if c.Save.Path == "" {
		return errors.New("save.path must not be empty")
	}
	if c.Save.IntervalMin <= 0 {
		return errors.New("save.interval_min must be > 0")
	}

	if c.Daemon.UpdateHz <= 0 || c.Daemon.UpdateHz > 1000 {
		return errors.New("daemon.update_hz must be between 1 and 1000")
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	if c.StateWS.Addr == "" {
		return errors.New("state_ws.addr must not be empty")
	}
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// ToReduceConfig converts the file config into the reducer's timing config.
func (c *Config) ToReduceConfig() ReduceConfig {
	return ReduceConfig{
		Gestures: GestureConfig{
			DoubleTapWindow: time.Duration(c.Gestures.DoubleTapMS) * time.Millisecond,
			HoldThreshold:   time.Duration(c.Gestures.HoldMS) * time.Millisecond,
			HoldLockout:     time.Duration(c.Gestures.HoldLockoutMS) * time.Millisecond,
			MenuDebounce:    time.Duration(c.Gestures.MenuBounceMS) * time.Millisecond,
			MenuPages:       c.Gestures.MenuPages,
		},
		MessageTTL:   time.Duration(c.Message.TTLMS) * time.Millisecond,
		SaveInterval: time.Duration(c.Save.IntervalMin) * time.Minute,
	}
}

// Keymap builds the evdev code to button mapping.
func (c *Config) Keymap() map[uint16]Button {
	return map[uint16]Button{
		uint16(c.Input.LeftKeyCode):   ButtonLeft,
		uint16(c.Input.MiddleKeyCode): ButtonMiddle,
		uint16(c.Input.RightKeyCode):  ButtonRight,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
