package castprotocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/vishen/go-chromecast/application"
	"github.com/vishen/go-chromecast/cast"
)

const (
	defaultCastPort   = 8009
	connectionRetries = 5
)

var ErrDeviceAsleep = errors.New("chromecast connect: device did not answer in time, it may be waking up")

// castApp is the subset of go-chromecast's Application we drive.
type castApp interface {
	Start(addr string, port int) error
	Close(stopMedia bool) error
	Update() error
	Status() (*cast.Application, *cast.Media, *cast.Volume)
}

// CastClient wraps go-chromecast Application for session handling.
type CastClient struct {
	app         castApp
	mu          sync.RWMutex
	host        string
	port        int
	connected   bool
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *CastClient) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
		})
	}
	return &c.Logger
}

// ParseAddr splits a device address such as "http://10.0.0.4:8009" into
// host and port, defaulting to the Chromecast port.
func ParseAddr(deviceAddr string) (string, int, error) {
	u, err := url.Parse(deviceAddr)
	if err != nil {
		return "", 0, fmt.Errorf("parse device addr: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		return "", 0, fmt.Errorf("parse device addr: no host in %q", deviceAddr)
	}

	port := defaultCastPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("parse device addr: bad port %q: %w", p, err)
		}
	}

	return host, port, nil
}

func NewCastClient(deviceAddr string) (*CastClient, error) {
	host, port, err := ParseAddr(deviceAddr)
	if err != nil {
		return nil, err
	}

	app := application.NewApplication(
		application.WithConnection(cast.NewConnection()),
		application.WithConnectionRetries(connectionRetries), // slow TVs need time to wake
	)

	return &CastClient{
		app:  app,
		host: host,
		port: port,
	}, nil
}

// Connect establishes connection to the Chromecast device.
func (c *CastClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.app == nil {
		return fmt.Errorf("chromecast connect: app is nil")
	}

	c.Log().Debug().Str("Method", "Connect").Str("Host", c.host).Int("Port", c.port).Msg("connecting")
	if err := c.app.Start(c.host, c.port); err != nil {
		c.Log().Error().Str("Method", "Connect").Err(err).Msg("connection failed")
		if isTimeoutError(err) {
			return fmt.Errorf("%w: %w", ErrDeviceAsleep, err)
		}
		return fmt.Errorf("chromecast connect: %w", err)
	}
	c.connected = true
	c.Log().Debug().Str("Method", "Connect").Msg("connected successfully")
	return nil
}

// isTimeoutError checks if an error is a timeout/deadline exceeded error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// GetStatus returns current receiver status.
func (c *CastClient) GetStatus() (*CastStatus, error) {
	if !c.IsConnected() {
		return nil, fmt.Errorf("chromecast status: not connected")
	}

	if err := c.app.Update(); err != nil {
		c.Log().Error().Str("Method", "GetStatus").Err(err).Msg("app.Update failed")
		return nil, err
	}

	app, media, vol := c.app.Status()
	status := &CastStatus{PlayerState: "IDLE"}
	if app != nil {
		status.AppName = app.DisplayName
	}
	if vol != nil {
		status.Volume = float32(vol.Level)
		status.Muted = vol.Muted
	}
	if media != nil {
		status.PlayerState = media.PlayerState
		status.MediaTitle = media.Media.Metadata.Title
	}
	return status, nil
}

// Close disconnects from the Chromecast device.
func (c *CastClient) Close(stopMedia bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Log().Debug().Str("Method", "Close").Bool("StopMedia", stopMedia).Msg("closing connection")
	c.connected = false
	err := c.app.Close(stopMedia)
	if err != nil {
		c.Log().Error().Str("Method", "Close").Err(err).Msg("failed")
	}
	return err
}

// IsConnected returns whether client is connected.
func (c *CastClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
