package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFile_MergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
portal:
  interface: wlan1
  scan_interval_ms: 60000
gestures:
  double_tap_ms: 400
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Portal.Interface != "wlan1" {
		t.Fatalf("interface = %q, want wlan1", cfg.Portal.Interface)
	}
	if cfg.Portal.ScanIntervalMS != 60000 {
		t.Fatalf("scan interval = %d, want 60000", cfg.Portal.ScanIntervalMS)
	}
	if cfg.Gestures.DoubleTapMS != 400 {
		t.Fatalf("double tap = %d, want 400", cfg.Gestures.DoubleTapMS)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q, want debug", cfg.Logging.Level)
	}

	// Untouched sections keep their defaults.
	if cfg.Gestures.HoldMS != defaultHoldMS {
		t.Fatalf("hold = %d, want default %d", cfg.Gestures.HoldMS, defaultHoldMS)
	}
	if cfg.Portal.SSIDPrefix != defaultSSIDPrefix {
		t.Fatalf("ssid prefix = %q, want default", cfg.Portal.SSIDPrefix)
	}
	if cfg.Daemon.UpdateHz != defaultUpdateHz {
		t.Fatalf("update hz = %d, want default %d", cfg.Daemon.UpdateHz, defaultUpdateHz)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadConfigFile_RejectsUnknownField(t *testing.T) {
	path := writeConfigFile(t, `
portal:
  interace: wlan1
`)

	if _, err := LoadConfigFile(path); err == nil {
		t.Fatalf("expected error for misspelled field")
	}
}

func TestLoadConfigFile_RejectsTrailingDocument(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
---
logging:
  level: warn
`)

	if _, err := LoadConfigFile(path); err == nil {
		t.Fatalf("expected error for trailing document")
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()

	dev := "/dev/input/event3"
	iface := "wlp2s0"
	hz := 60
	o := FlagOverrides{
		InputDevice:     &dev,
		PortalInterface: &iface,
		UpdateHz:        &hz,
	}
	o.Apply(&cfg)

	if len(cfg.Input.Devices) != 1 || cfg.Input.Devices[0] != dev {
		t.Fatalf("devices = %v, want [%s]", cfg.Input.Devices, dev)
	}
	if cfg.Portal.Interface != iface {
		t.Fatalf("interface = %q, want %q", cfg.Portal.Interface, iface)
	}
	if cfg.Daemon.UpdateHz != hz {
		t.Fatalf("update hz = %d, want %d", cfg.Daemon.UpdateHz, hz)
	}

	// An explicit empty device disables the evdev reader entirely.
	empty := ""
	FlagOverrides{InputDevice: &empty}.Apply(&cfg)
	if cfg.Input.Devices != nil {
		t.Fatalf("devices = %v, want nil", cfg.Input.Devices)
	}
}

func TestConfigValidate_CatchesBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"duplicate key codes", func(c *Config) { c.Input.MiddleKeyCode = c.Input.LeftKeyCode }},
		{"zero key code", func(c *Config) { c.Input.RightKeyCode = 0 }},
		{"zero double tap", func(c *Config) { c.Gestures.DoubleTapMS = 0 }},
		{"zero menu pages", func(c *Config) { c.Gestures.MenuPages = 0 }},
		{"empty interface", func(c *Config) { c.Portal.Interface = "" }},
		{"zero message ttl", func(c *Config) { c.Message.TTLMS = 0 }},
		{"update hz too high", func(c *Config) { c.Daemon.UpdateHz = 2000 }},
		{"empty socket path", func(c *Config) { c.IPC.SocketPath = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestConfig_ToReduceConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gestures.DoubleTapMS = 400
	cfg.Message.TTLMS = 8000
	cfg.Save.IntervalMin = 10

	rc := cfg.ToReduceConfig()
	if rc.Gestures.DoubleTapWindow != 400*time.Millisecond {
		t.Fatalf("double tap window = %v", rc.Gestures.DoubleTapWindow)
	}
	if rc.MessageTTL != 8*time.Second {
		t.Fatalf("message ttl = %v", rc.MessageTTL)
	}
	if rc.SaveInterval != 10*time.Minute {
		t.Fatalf("save interval = %v", rc.SaveInterval)
	}
}

func TestConfig_Keymap(t *testing.T) {
	cfg := DefaultConfig()
	km := cfg.Keymap()

	want := map[uint16]Button{
		KEY_LEFT:  ButtonLeft,
		KEY_ENTER: ButtonMiddle,
		KEY_RIGHT: ButtonRight,
	}
	if len(km) != len(want) {
		t.Fatalf("keymap size = %d, want %d", len(km), len(want))
	}
	for code, b := range want {
		if km[code] != b {
			t.Fatalf("keymap[%d] = %v, want %v", code, km[code], b)
		}
	}
}
