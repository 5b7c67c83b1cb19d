package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// inputEvent mirrors the Linux input event structure:
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// defaultKeymap maps evdev key codes to the three face buttons. The target
// image exposes the GPIO buttons through gpio-keys, so the codes come from
// its device tree.
func defaultKeymap() map[uint16]Button {
	return map[uint16]Button{
		KEY_LEFT:  ButtonLeft,
		KEY_ENTER: ButtonMiddle,
		KEY_RIGHT: ButtonRight,
	}
}

// runInputReader opens the configured devices and feeds ButtonEdge events to
// the daemon until ctx is cancelled or a device fails. Autorepeat events are
// dropped: the gesture layer works on levels, repeats carry no information.
func runInputReader(ctx context.Context, devicePaths []string, keymap map[uint16]Button, events chan<- Event, logger *slog.Logger) error {
	var files []*os.File
	for _, path := range devicePaths {
		f, err := os.Open(path)
		if err != nil {
			for _, open := range files {
				open.Close()
			}
			return fmt.Errorf("open input device %s: %w", path, err)
		}
		files = append(files, f)
		logger.Info("input device opened", "path", path)
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	raw := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	go readInputEventsEpoll(files, raw, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			return fmt.Errorf("input reader: %w", err)

		case ev := <-raw:
			edge, ok := translateInputEvent(ev, keymap)
			if !ok {
				continue
			}
			select {
			case events <- edge:
			default:
				logger.Warn("event queue full, dropping button edge",
					"button", edge.Button.String(), "pressed", edge.Pressed)
			}
		}
	}
}

// translateInputEvent converts one evdev event into a ButtonEdge. Non-key
// events, unmapped codes, and autorepeats return ok=false.
func translateInputEvent(ev inputEvent, keymap map[uint16]Button) (ButtonEdge, bool) {
	if ev.Type != EV_KEY {
		return ButtonEdge{}, false
	}
	b, ok := keymap[ev.Code]
	if !ok {
		return ButtonEdge{}, false
	}
	switch ev.Value {
	case evValuePress:
		return ButtonEdge{Button: b, Pressed: true}, true
	case evValueRelease:
		return ButtonEdge{Button: b, Pressed: false}, true
	default:
		// autorepeat
		return ButtonEdge{}, false
	}
}
