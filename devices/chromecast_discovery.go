package devices

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	// CapabilityVideoOut is the bitmask for video output capability (bit 0)
	CapabilityVideoOut = 1
	// mDNS query timeout per request
	chromecastQueryTimeout = 750 * time.Millisecond
	googlecastService      = "_googlecast._tcp"
)

// mdnsQuery is swapped in tests.
var mdnsQuery = mdns.Query

// ChromecastSource browses the local network for Google Cast receivers.
type ChromecastSource struct {
	Timeout time.Duration
}

// Snapshot queries every active IPv4 multicast interface in parallel.
// Windows hosts often carry VPN or Hyper-V adapters, so relying on the
// OS default interface misses devices.
func (s *ChromecastSource) Snapshot(ctx context.Context) ([]Device, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = chromecastQueryTimeout
	}

	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("chromecast snapshot: %w", err)
	}

	entriesCh := make(chan *mdns.ServiceEntry, 256)
	found := make(map[string]Device)
	order := make([]string, 0)
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		for entry := range entriesCh {
			d, ok := chromecastFromEntry(entry)
			if !ok {
				continue
			}
			if _, seen := found[d.ID]; !seen {
				order = append(order, d.ID)
			}
			found[d.ID] = d
		}
	}()

	queryIface := func(iface *net.Interface) error {
		params := mdns.DefaultParams(googlecastService)
		params.Entries = entriesCh
		params.Timeout = timeout
		params.DisableIPv6 = true
		params.WantUnicastResponse = true
		params.Logger = log.New(io.Discard, "", 0)
		params.Interface = iface
		return mdnsQuery(params)
	}

	var (
		errMu   sync.Mutex
		lastErr error
		okCount int
	)

	record := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if err != nil {
			lastErr = err
			return
		}
		okCount++
	}

	interfaces := activeNetworkInterfaces()
	if len(interfaces) > 0 {
		var wg sync.WaitGroup
		for _, iface := range interfaces {
			wg.Add(1)
			go func(iface net.Interface) {
				defer wg.Done()
				record(queryIface(&iface))
			}(iface)
		}
		wg.Wait()
	} else {
		record(queryIface(nil))
	}

	close(entriesCh)
	<-doneCh

	if okCount == 0 && lastErr != nil {
		return nil, fmt.Errorf("chromecast snapshot: %w", lastErr)
	}

	out := make([]Device, 0, len(order))
	for _, id := range order {
		out = append(out, found[id])
	}

	return out, nil
}

// chromecastFromEntry reads name, identity and capabilities from the TXT
// records of a _googlecast answer.
func chromecastFromEntry(entry *mdns.ServiceEntry) (Device, bool) {
	if entry == nil || entry.AddrV4 == nil {
		return Device{}, false
	}
	if !strings.Contains(entry.Name, "_googlecast") {
		return Device{}, false
	}

	address := fmt.Sprintf("%s:%d", entry.AddrV4, entry.Port)
	friendlyName := entry.Name
	id := ""
	isAudioOnly := false

	for _, txt := range entry.InfoFields {
		if after, ok := strings.CutPrefix(txt, "fn="); ok && after != "" {
			friendlyName = after
		}
		if after, ok := strings.CutPrefix(txt, "id="); ok {
			id = after
		}
		if after, ok := strings.CutPrefix(txt, "ca="); ok {
			isAudioOnly = isChromecastAudioOnly(after)
		}
	}

	if idx := strings.Index(friendlyName, "._googlecast"); idx > 0 {
		friendlyName = friendlyName[:idx]
	}

	if id == "" {
		id = address
	}

	return Device{
		ID:          id,
		Name:        friendlyName,
		Addr:        "http://" + address,
		Type:        DeviceTypeChromecast,
		IsAudioOnly: isAudioOnly,
	}, true
}

// activeNetworkInterfaces returns all network interfaces that are up,
// multicast-capable, not loopback, and have an IPv4 address.
func activeNetworkInterfaces() []net.Interface {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var active []net.Interface
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 ||
			iface.Flags&net.FlagLoopback != 0 ||
			iface.Flags&net.FlagMulticast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
				active = append(active, iface)
				break
			}
		}
	}

	return active
}

// isChromecastAudioOnly checks the "ca" capability bitmask. Devices
// without bit 0 (video out) are speakers. Unparsable values are treated
// as video capable.
func isChromecastAudioOnly(caField string) bool {
	ca, err := strconv.Atoi(caField)
	if err != nil {
		return false
	}
	return (ca & CapabilityVideoOut) == 0
}
