// Package castsession owns the cast session the device picker connects
// and disconnects. Outcomes are reported asynchronously through a
// Listener on the dispatcher goroutine.
package castsession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go2tv.app/castgrid/castprotocol"
	"go2tv.app/castgrid/devices"
	"go2tv.app/castgrid/roster"
)

var (
	ErrUnknownDevice = errors.New("castsession: unsupported device type")
	ErrNoSession     = errors.New("castsession: no active session")
	ErrUnreachable   = errors.New("castsession: device unreachable")
)

// Client is a connection to one receiver.
type Client interface {
	Connect() error
	Close(stopMedia bool) error
}

// ClientFactory creates Client instances for a device.
type ClientFactory interface {
	NewClient(d devices.Device) (Client, error)
}

// Listener is told about session lifecycle events.
type Listener interface {
	OnSessionStarted(s roster.Session)
	OnSessionEnded(err error)
	OnSessionFailedToStart(err error)
}

// Poster delivers callbacks on the listener's goroutine.
type Poster interface {
	Post(f func())
}

// statusClient is a Client that can describe what the receiver is
// running, like castprotocol.CastClient.
type statusClient interface {
	GetStatus() (*castprotocol.CastStatus, error)
}

type attempt struct {
	session roster.Session
	client  Client
}

// Manager implements roster.SessionManager. At most one session is
// connected, a newer StartSession supersedes a connect still in flight.
type Manager struct {
	factory  ClientFactory
	poster   Poster
	listener Listener

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once

	mu         sync.Mutex
	connecting *attempt
	current    *attempt
	ending     bool
}

var _ roster.SessionManager = (*Manager)(nil)

func NewManager(factory ClientFactory, poster Poster) *Manager {
	return &Manager{
		factory: factory,
		poster:  poster,
		Logger:  zerolog.Nop(),
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (m *Manager) Log() *zerolog.Logger {
	if m.LogOutput != nil {
		m.initLogOnce.Do(func() {
			m.Logger = zerolog.New(m.LogOutput).With().Timestamp().Str("Component", "castsession").Logger()
		})
	}
	return &m.Logger
}

// SetListener must be called before the first StartSession.
func (m *Manager) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// HasActiveSession reports a connected session, including one that is
// being closed.
func (m *Manager) HasActiveSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// CurrentSession returns the connected session.
func (m *Manager) CurrentSession() (roster.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return roster.Session{}, false
	}
	return m.current.session, true
}

// StartSession connects to d in the background.
func (m *Manager) StartSession(d devices.Device) error {
	client, err := m.factory.NewClient(d)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	m.mu.Lock()
	a := &attempt{
		session: roster.Session{ID: uuid.NewString(), Device: d},
		client:  client,
	}
	m.connecting = a
	m.mu.Unlock()

	m.Log().Debug().Str("Method", "StartSession").Str("DeviceID", d.ID).Str("SessionID", a.session.ID).Msg("connecting")

	go m.connect(a)
	return nil
}

func (m *Manager) connect(a *attempt) {
	err := a.client.Connect()

	var receiver string
	if err == nil {
		receiver = m.receiverName(a.client)
	}

	m.mu.Lock()
	if m.connecting != a {
		m.mu.Unlock()
		m.Log().Debug().Str("Method", "connect").Str("SessionID", a.session.ID).Msg("superseded, dropping connection")
		if err == nil {
			_ = a.client.Close(false)
		}
		return
	}
	m.connecting = nil
	if err == nil {
		a.session.Receiver = receiver
		m.current = a
	}
	listener := m.listener
	m.mu.Unlock()

	if err != nil {
		m.Log().Error().Str("Method", "connect").Str("DeviceID", a.session.Device.ID).Err(err).Msg("session failed to start")
		m.post(func() { listener.OnSessionFailedToStart(err) })
		return
	}

	m.Log().Debug().Str("Method", "connect").Str("SessionID", a.session.ID).Msg("session started")
	m.post(func() { listener.OnSessionStarted(a.session) })
}

func (m *Manager) receiverName(c Client) string {
	sc, ok := c.(statusClient)
	if !ok {
		return ""
	}

	st, err := sc.GetStatus()
	if err != nil {
		m.Log().Debug().Str("Method", "receiverName").Err(err).Msg("receiver status unavailable")
		return ""
	}
	return st.AppName
}

// EndSession closes the connected session in the background, or
// abandons a connect still in flight. A second call while the session is
// already closing is a no-op.
func (m *Manager) EndSession() error {
	m.mu.Lock()
	if m.current == nil {
		abandoned := m.connecting
		m.connecting = nil
		listener := m.listener
		m.mu.Unlock()

		if abandoned == nil {
			return ErrNoSession
		}

		m.Log().Debug().Str("Method", "EndSession").Str("SessionID", abandoned.session.ID).Msg("abandoning connect")
		m.post(func() { listener.OnSessionEnded(nil) })
		return nil
	}

	if m.ending {
		m.mu.Unlock()
		return nil
	}
	m.ending = true
	a := m.current
	m.mu.Unlock()

	go func() {
		err := a.client.Close(true)

		m.mu.Lock()
		if m.current == a {
			m.current = nil
		}
		m.ending = false
		listener := m.listener
		m.mu.Unlock()

		m.Log().Debug().Str("Method", "EndSession").Str("SessionID", a.session.ID).AnErr("CloseErr", err).Msg("session ended")
		m.post(func() { listener.OnSessionEnded(err) })
	}()

	return nil
}

// Shutdown closes the connected session and waits for it, without
// notifying the listener. Connects still in flight are dropped.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	a := m.current
	m.current = nil
	m.connecting = nil
	m.mu.Unlock()

	if a == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- a.client.Close(true)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}

func (m *Manager) post(f func()) {
	if m.poster == nil {
		f()
		return
	}
	m.poster.Post(f)
}

// DefaultFactory connects Chromecast devices over the cast protocol and
// treats DLNA renderers, which have no session concept, as connected once
// their description host answers.
type DefaultFactory struct {
	LogOutput io.Writer
}

func (f DefaultFactory) NewClient(d devices.Device) (Client, error) {
	switch d.Type {
	case devices.DeviceTypeChromecast:
		c, err := castprotocol.NewCastClient(d.Addr)
		if err != nil {
			return nil, err
		}
		c.LogOutput = f.LogOutput
		return c, nil
	case devices.DeviceTypeDLNA:
		u, err := url.Parse(d.Addr)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: bad address %q", ErrUnknownDevice, d.Addr)
		}
		return &dlnaClient{hostPort: hostPort(u)}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, d.Type)
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return u.Host + ":443"
	}
	return u.Host + ":80"
}

type dlnaClient struct {
	hostPort string
}

func (c *dlnaClient) Connect() error {
	if !devices.HostPortIsAlive(c.hostPort) {
		return fmt.Errorf("%w: %s", ErrUnreachable, c.hostPort)
	}
	return nil
}

func (c *dlnaClient) Close(bool) error {
	return nil
}
