package roster

import (
	"fmt"

	"go2tv.app/castgrid/devices"
)

// State returns the current connection state.
func (p *Picker) State() ConnectionState {
	return p.state
}

// Pending returns the device queued to connect once the current session
// has ended.
func (p *Picker) Pending() (devices.Device, bool) {
	if p.pending == nil {
		return devices.Device{}, false
	}
	return *p.pending, true
}

// Select connects to d. With a session already active the session is
// ended first and d is queued, OnSessionEnded then connects to it. Two
// sessions are never open at the same time.
func (p *Picker) Select(d devices.Device) error {
	if p.sessions == nil {
		return ErrNoSessionManager
	}

	if p.sessions.HasActiveSession() {
		prevState, prevPending := p.state, p.pending
		pending := d
		p.pending = &pending
		p.setState(endingState(d))

		// No OnSessionEnded follows a failed EndSession.
		if err := p.sessions.EndSession(); err != nil {
			p.Log().Error().Str("Method", "Select").Str("DeviceID", d.ID).Err(err).Msg("end session failed")
			p.pending = prevPending
			p.setState(prevState)
			return fmt.Errorf("select: end session: %w", err)
		}
		return nil
	}

	p.pending = nil
	p.setState(connectingState(d))

	if err := p.sessions.StartSession(d); err != nil {
		p.reportFailure(d, err)
		return fmt.Errorf("select: start session: %w", err)
	}

	return nil
}

// SelectRow handles a tap on row i. Tapping the device of the current
// session disconnects from it, any other row selects that device.
func (p *Picker) SelectRow(i int) error {
	if i < 0 || i >= len(p.devices) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, i)
	}

	d := p.devices[i]
	if p.isCurrent(d) {
		p.Log().Debug().Str("Method", "SelectRow").Str("DeviceID", d.ID).Msg("disconnecting current device")
		if err := p.sessions.EndSession(); err != nil {
			return fmt.Errorf("select row: end session: %w", err)
		}
		return nil
	}

	return p.Select(d)
}

// OnSessionEnded connects to the queued device, if any, and refreshes
// the whole list whatever the error.
func (p *Picker) OnSessionEnded(err error) {
	if err != nil {
		p.Log().Debug().Str("Method", "OnSessionEnded").Err(err).Msg("session ended with error")
	}

	if p.pending != nil {
		next := *p.pending
		if selErr := p.Select(next); selErr != nil {
			p.Log().Error().Str("Method", "OnSessionEnded").Str("DeviceID", next.ID).Err(selErr).Msg("reconnect failed")
		}
	} else {
		p.setState(idleState())
	}

	p.sink.FullRefresh()
}

// OnSessionStarted clears the queued device when it is the one that just
// connected, then tells the delegate and refreshes the list.
func (p *Picker) OnSessionStarted(s Session) {
	if p.pending != nil && p.pending.ID == s.Device.ID {
		p.pending = nil
	}

	if p.pending == nil {
		p.setState(connectedState(s.Device))
	}

	p.delegate.DidConnectToDevice(s.Device)
	p.sink.FullRefresh()
}

// OnSessionFailedToStart is only reported. The state is left as is and
// nothing is retried, a later Select starts over.
func (p *Picker) OnSessionFailedToStart(err error) {
	target := devices.Device{}
	if p.state.Kind == Connecting {
		target = p.state.Device
	}
	p.reportFailure(target, err)
}

func (p *Picker) reportFailure(d devices.Device, err error) {
	p.Log().Error().Str("Method", "OnSessionFailedToStart").Str("DeviceID", d.ID).Err(err).Msg("session failed to start")
	p.delegate.DidFailToConnect(&SessionStartError{Device: d, Err: err})
}

func (p *Picker) setState(s ConnectionState) {
	if s == p.state {
		return
	}
	p.Log().Debug().Str("Method", "setState").Str("From", p.state.String()).Str("To", s.String()).Msg("state change")
	p.state = s
}
