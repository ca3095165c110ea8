package roster

import (
	"fmt"

	"go2tv.app/castgrid/devices"
)

// StateKind enumerates the connection states of a Picker.
type StateKind int

const (
	Idle StateKind = iota
	Connecting
	Connected
	EndingThenReconnecting
)

func (k StateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case EndingThenReconnecting:
		return "endingThenReconnecting"
	}
	return fmt.Sprintf("StateKind(%d)", int(k))
}

// ConnectionState is the current connection state. Device is the
// connect target, the connected device, or the pending device depending
// on Kind, and is zero when Idle.
type ConnectionState struct {
	Kind   StateKind
	Device devices.Device
}

func (s ConnectionState) String() string {
	if s.Kind == Idle {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.Device.ID)
}

func idleState() ConnectionState {
	return ConnectionState{Kind: Idle}
}

func connectingState(d devices.Device) ConnectionState {
	return ConnectionState{Kind: Connecting, Device: d}
}

func connectedState(d devices.Device) ConnectionState {
	return ConnectionState{Kind: Connected, Device: d}
}

func endingState(pending devices.Device) ConnectionState {
	return ConnectionState{Kind: EndingThenReconnecting, Device: pending}
}
