package main

import (
	"encoding/json"
	"fmt"
)

// Button identifies one of the three physical face buttons. The pet core
// consumes the same three logical channels.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight

	numButtons = 3
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// parseButton converts the wire name back into a Button.
func parseButton(s string) (Button, error) {
	switch s {
	case "left":
		return ButtonLeft, nil
	case "middle":
		return ButtonMiddle, nil
	case "right":
		return ButtonRight, nil
	default:
		return 0, fmt.Errorf("unknown button: %q", s)
	}
}

// MarshalJSON encodes the button as its wire name so IPC payloads stay
// readable ({"button":"middle",...}).
func (b Button) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Button) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := parseButton(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ButtonSnapshot is the per-tick sampled level of all three channels:
// true means currently pressed.
type ButtonSnapshot [numButtons]bool

func (s *ButtonSnapshot) Set(b Button, pressed bool) { s[b] = pressed }

// chord reports whether Left and Right are both down.
func (s ButtonSnapshot) chord() bool { return s[ButtonLeft] && s[ButtonRight] }
