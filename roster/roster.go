// Package roster keeps the ordered list of cast devices shown in the
// device picker and drives device selection on top of a session manager.
//
// A Picker is not safe for concurrent use. Discovery and session
// callbacks must be delivered on one goroutine, see internal/dispatch.
package roster

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"go2tv.app/castgrid/devices"
)

const (
	sectionTitle = "Google Cast"
	emptyMessage = "No devices available"
)

var (
	ErrRowOutOfRange    = errors.New("roster: row out of range")
	ErrNoSessionManager = errors.New("roster: no session manager")
)

// Session is a cast session as reported by the session manager.
type Session struct {
	ID     string
	Device devices.Device
	// Receiver is the application running on the device, empty when
	// unknown.
	Receiver string
}

// SessionManager is the external capability that owns cast sessions.
// StartSession and EndSession report their outcome later through
// OnSessionStarted, OnSessionFailedToStart and OnSessionEnded.
type SessionManager interface {
	HasActiveSession() bool
	CurrentSession() (Session, bool)
	StartSession(d devices.Device) error
	EndSession() error
}

// ViewSink consumes incremental list updates.
type ViewSink interface {
	RowsInserted(rows []int)
	RowsReloaded(rows []int)
	RowsDeleted(rows []int)
	FullRefresh()
}

// Delegate is told about connection outcomes.
type Delegate interface {
	DidConnectToDevice(d devices.Device)
	DidFailToConnect(err error)
}

// SessionStartError is reported when a session could not be started.
type SessionStartError struct {
	Device devices.Device
	Err    error
}

func (e *SessionStartError) Error() string {
	if e.Device.ID == "" {
		return fmt.Sprintf("session failed to start: %v", e.Err)
	}
	return fmt.Sprintf("session to %q failed to start: %v", e.Device.Name, e.Err)
}

func (e *SessionStartError) Unwrap() error {
	return e.Err
}

// RowView is what a list cell needs to render a device.
type RowView struct {
	Device  devices.Device
	Name    string
	Checked bool
}

// Picker reconciles the roster with discovery events and switches the
// cast session between devices.
type Picker struct {
	sessions SessionManager
	sink     ViewSink
	delegate Delegate

	devices []devices.Device
	state   ConnectionState
	pending *devices.Device

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

type nopSink struct{}

func (nopSink) RowsInserted([]int) {}
func (nopSink) RowsReloaded([]int) {}
func (nopSink) RowsDeleted([]int)  {}
func (nopSink) FullRefresh()       {}

type nopDelegate struct{}

func (nopDelegate) DidConnectToDevice(devices.Device) {}
func (nopDelegate) DidFailToConnect(error)            {}

// NewPicker returns an empty, idle Picker. sink and delegate may be nil.
func NewPicker(sessions SessionManager, sink ViewSink, delegate Delegate) *Picker {
	if sink == nil {
		sink = nopSink{}
	}
	if delegate == nil {
		delegate = nopDelegate{}
	}

	return &Picker{
		sessions: sessions,
		sink:     sink,
		delegate: delegate,
		state:    idleState(),
		Logger:   zerolog.Nop(),
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (p *Picker) Log() *zerolog.Logger {
	if p.LogOutput != nil {
		p.initLogOnce.Do(func() {
			p.Logger = zerolog.New(p.LogOutput).With().Timestamp().Str("Component", "roster").Logger()
		})
	}
	return &p.Logger
}

// SetSink replaces the view sink, for views created after the Picker.
func (p *Picker) SetSink(sink ViewSink) {
	if sink == nil {
		sink = nopSink{}
	}
	p.sink = sink
}

// SetDelegate replaces the delegate.
func (p *Picker) SetDelegate(delegate Delegate) {
	if delegate == nil {
		delegate = nopDelegate{}
	}
	p.delegate = delegate
}

func (p *Picker) indexOf(id string) int {
	for i, d := range p.devices {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Seed fills the roster with the devices discovery already knows about
// when the picker is shown. Devices already present are skipped.
func (p *Picker) Seed(devs []devices.Device) {
	added := 0
	for _, d := range devs {
		if p.indexOf(d.ID) >= 0 {
			continue
		}
		p.devices = append(p.devices, d)
		added++
	}

	p.Log().Debug().Str("Method", "Seed").Int("Added", added).Msg("roster seeded")
	p.sink.FullRefresh()
}

// OnInserted appends d. A device whose ID is already listed is treated
// as an update so ids stay unique.
func (p *Picker) OnInserted(d devices.Device) {
	if p.indexOf(d.ID) >= 0 {
		p.Log().Debug().Str("Method", "OnInserted").Str("DeviceID", d.ID).Msg("already listed, updating instead")
		p.OnUpdated(d)
		return
	}

	p.devices = append(p.devices, d)
	idx := len(p.devices) - 1
	p.Log().Debug().Str("Method", "OnInserted").Str("DeviceID", d.ID).Int("Index", idx).Msg("inserted")
	p.sink.RowsInserted([]int{idx})
}

// OnUpdated replaces the entry with the same ID in place. Unknown
// devices are ignored.
func (p *Picker) OnUpdated(d devices.Device) {
	idx := p.indexOf(d.ID)
	if idx < 0 {
		p.Log().Debug().Str("Method", "OnUpdated").Str("DeviceID", d.ID).Msg("stale update ignored")
		return
	}

	p.devices[idx] = d
	p.Log().Debug().Str("Method", "OnUpdated").Str("DeviceID", d.ID).Int("Index", idx).Msg("updated")
	p.sink.RowsReloaded([]int{idx})
}

// OnRemoved drops every entry with the ID of d. One RowsDeleted is
// emitted per removed row, last row first, so each index is valid when
// the deletions are applied in order. Unknown devices are ignored.
func (p *Picker) OnRemoved(d devices.Device) {
	removed := 0
	for i := len(p.devices) - 1; i >= 0; i-- {
		if p.devices[i].ID != d.ID {
			continue
		}

		p.devices = append(p.devices[:i], p.devices[i+1:]...)
		removed++
		p.Log().Debug().Str("Method", "OnRemoved").Str("DeviceID", d.ID).Int("Index", i).Msg("removed")
		p.sink.RowsDeleted([]int{i})
	}

	if removed == 0 {
		p.Log().Debug().Str("Method", "OnRemoved").Str("DeviceID", d.ID).Msg("stale removal ignored")
	}
}

// Len returns the number of rows.
func (p *Picker) Len() int {
	return len(p.devices)
}

// Devices returns a copy of the roster in display order.
func (p *Picker) Devices() []devices.Device {
	return append([]devices.Device(nil), p.devices...)
}

// Row returns the view model of row i. A row is checked when its device
// is the device of the current session.
func (p *Picker) Row(i int) (RowView, error) {
	if i < 0 || i >= len(p.devices) {
		return RowView{}, fmt.Errorf("%w: %d", ErrRowOutOfRange, i)
	}

	d := p.devices[i]
	return RowView{
		Device:  d,
		Name:    d.Name,
		Checked: p.isCurrent(d),
	}, nil
}

// SectionTitle is the list header, empty while there is nothing to show.
func (p *Picker) SectionTitle() string {
	if len(p.devices) == 0 {
		return ""
	}
	return sectionTitle
}

// EmptyMessage is the placeholder shown instead of the list.
func (p *Picker) EmptyMessage() string {
	if len(p.devices) == 0 {
		return emptyMessage
	}
	return ""
}

// ConnectedText is the status line for a connection to d. It names the
// receiver application when the current session reports one.
func (p *Picker) ConnectedText(d devices.Device) string {
	text := "Connected to " + d.Name
	if p.sessions == nil {
		return text
	}

	if s, ok := p.sessions.CurrentSession(); ok && s.Device.ID == d.ID && s.Receiver != "" {
		text += " (" + s.Receiver + ")"
	}
	return text
}

func (p *Picker) isCurrent(d devices.Device) bool {
	if p.sessions == nil {
		return false
	}
	s, ok := p.sessions.CurrentSession()
	return ok && s.Device.ID == d.ID
}
