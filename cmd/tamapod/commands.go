package main

import "fmt"

// ============================================================================
// Commands (side effects)
// ============================================================================
// Commands are requested by the reducer and executed by the effects layer.
// The reducer never performs I/O itself; forwarding a button edge to the pet
// core, driving the portal controller, and writing the savestate all happen
// here.
// ============================================================================

// Command represents an external side effect to be executed by the daemon loop.
type Command interface {
	commandMarker()
	String() string
}

// CmdForwardButton forwards one raw edge to the pet core.
type CmdForwardButton struct {
	Button  Button
	Pressed bool
}

func (CmdForwardButton) commandMarker() {}
func (c CmdForwardButton) String() string {
	return fmt.Sprintf("CmdForwardButton(%s pressed=%v)", c.Button, c.Pressed)
}

// CmdPortalToggle flips the portal session between Inactive and Active.
type CmdPortalToggle struct{}

func (CmdPortalToggle) commandMarker() {}
func (CmdPortalToggle) String() string { return "CmdPortalToggle()" }

// CmdPortalTick lets an Active portal session run its periodic re-scan check.
type CmdPortalTick struct{}

func (CmdPortalTick) commandMarker() {}
func (CmdPortalTick) String() string { return "CmdPortalTick()" }

// CmdSaveState persists the pet core's opaque state blob.
type CmdSaveState struct{}

func (CmdSaveState) commandMarker() {}
func (CmdSaveState) String() string { return "CmdSaveState()" }

// CmdClearMessage clears the inbound message store unconditionally.
type CmdClearMessage struct{}

func (CmdClearMessage) commandMarker() {}
func (CmdClearMessage) String() string { return "CmdClearMessage()" }

// CmdPublishSnapshot delivers a reducer-produced snapshot to a requester.
// Keeping the channel send in the effects layer keeps the reducer pure.
type CmdPublishSnapshot struct {
	Snapshot DeviceSnapshot
	Reply    chan DeviceSnapshot
}

func (CmdPublishSnapshot) commandMarker() {}
func (CmdPublishSnapshot) String() string { return "CmdPublishSnapshot()" }
