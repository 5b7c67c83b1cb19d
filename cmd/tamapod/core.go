package main

import "log/slog"

// ============================================================================
// Pet core boundary
// ============================================================================
// The emulated pet itself is an opaque engine behind this interface: it takes
// button levels, exposes icon state, and can dump/restore its full state as a
// blob. Everything above (gestures, portal, savestate cadence) treats it as a
// black box.
// ============================================================================

// PetCore is the emulation engine boundary.
type PetCore interface {
	// SetButton sets the level of one logical channel.
	SetButton(b Button, pressed bool)

	// Icon reports whether the icon at idx is currently highlighted.
	Icon(idx int) bool

	// SaveState dumps the engine's full state.
	SaveState() ([]byte, error)

	// LoadState restores a previous dump.
	LoadState(data []byte) error
}

// stubCore stands in for the engine on builds without the emulator linked.
// It records levels and keeps icons dark, which is enough to run the input
// and portal stack on a dev machine.
// TODO: replace with the cgo tamalib binding once its ROM loading settles.
type stubCore struct {
	logger *slog.Logger
	levels ButtonSnapshot
	state  []byte
}

func NewStubCore(logger *slog.Logger) PetCore {
	return &stubCore{logger: logger}
}

func (c *stubCore) SetButton(b Button, pressed bool) {
	c.levels.Set(b, pressed)
	c.logger.Debug("core button", "button", b.String(), "pressed", pressed)
}

func (c *stubCore) Icon(idx int) bool { return false }

func (c *stubCore) SaveState() ([]byte, error) {
	if c.state == nil {
		return []byte{}, nil
	}
	return c.state, nil
}

func (c *stubCore) LoadState(data []byte) error {
	c.state = data
	return nil
}
