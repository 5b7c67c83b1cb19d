package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01

	// Default key codes for the three face buttons (gpio-keys overlay).
	KEY_ENTER = 28
	KEY_LEFT  = 105
	KEY_RIGHT = 106
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Gesture timing defaults (milliseconds). All windows are wall-clock based so
// behavior does not depend on the polling rate.
const (
	defaultDoubleTapMS   = 500  // second tap must land strictly inside this window
	defaultHoldMS        = 2000 // continuous middle hold to toggle effects
	defaultHoldLockoutMS = 5000 // retrigger lockout after an effects toggle
	defaultMenuBounceMS  = 200  // menu-scroll debounce
	defaultMenuPages     = 2
)

// Portal defaults
const (
	defaultScanIntervalMS = 30000 // re-scan cadence while the portal is active
	defaultAssociateMS    = 5000  // bounded wait for association
	defaultEndpointPaceMS = 500   // gap between successive endpoint posts
	defaultRecordPaceMS   = 1000  // gap between open networks in one cycle
	defaultHTTPTimeoutMS  = 2000  // per-endpoint request timeout

	defaultSSIDPrefix = "TamaPortal-"
	defaultHotspotIP  = "192.168.4.1"
)

// Inbound message defaults
const (
	defaultMessageMaxLen = 100  // characters, counted after markup escaping
	defaultMessageTTLMS  = 5000 // display time-to-live
)

// Daemon defaults
const (
	defaultUpdateHz    = 30 // tick loop frequency (Hz)
	defaultSaveMinutes = 5  // savestate cadence
)

// iconClean is the pet core icon slot for the "clean" function. A rising edge
// on it clears the inbound message, mirroring the device UI.
const iconClean = 4
