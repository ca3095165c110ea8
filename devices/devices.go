package devices

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"
)

const (
	DeviceTypeChromecast = "Chromecast"
	DeviceTypeDLNA       = "DMR"
)

var (
	ErrNoDeviceAvailable  = errors.New("loadAllDevices: No available cast devices")
	ErrDeviceNotAvailable = errors.New("devicePicker: Requested device not available")
)

// Device is a cast-capable endpoint reported by discovery. ID stays
// stable while the device is reachable, Name and Addr may change.
type Device struct {
	ID          string
	Name        string
	Addr        string
	Type        string
	IsAudioOnly bool
}

// Source produces the devices it can currently see.
type Source interface {
	Snapshot(ctx context.Context) ([]Device, error)
}

// Listener receives roster events produced by a Watcher.
type Listener interface {
	OnInserted(d Device)
	OnUpdated(d Device)
	OnRemoved(d Device)
}

// Diff compares two snapshots by ID. Inserted devices keep the order of
// next, removed devices keep the order of prev.
func Diff(prev, next []Device) (inserted, updated, removed []Device) {
	prevByID := make(map[string]Device, len(prev))
	for _, d := range prev {
		prevByID[d.ID] = d
	}

	nextIDs := make(map[string]struct{}, len(next))
	for _, d := range next {
		nextIDs[d.ID] = struct{}{}

		old, ok := prevByID[d.ID]
		switch {
		case !ok:
			inserted = append(inserted, d)
		case old != d:
			updated = append(updated, d)
		}
	}

	for _, d := range prev {
		if _, ok := nextIDs[d.ID]; !ok {
			removed = append(removed, d)
		}
	}

	return inserted, updated, removed
}

// LoadAllDevices queries every source once and returns the merged list
// sorted by name. A failing source is skipped as long as another one
// answers.
func LoadAllDevices(ctx context.Context, sources ...Source) ([]Device, error) {
	var (
		all     []Device
		lastErr error
	)

	seen := make(map[string]struct{})
	for _, src := range sources {
		devs, err := src.Snapshot(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		for _, d := range devs {
			if _, ok := seen[d.ID]; ok {
				continue
			}
			seen[d.ID] = struct{}{}
			all = append(all, d)
		}
	}

	if len(all) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoDeviceAvailable, lastErr)
		}
		return nil, ErrNoDeviceAvailable
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})

	return all, nil
}

// DevicePicker will pick the nth device (1-based) from a name sorted list.
func DevicePicker(devs []Device, n int) (Device, error) {
	if n > len(devs) || len(devs) == 0 || n <= 0 {
		return Device{}, ErrDeviceNotAvailable
	}

	return devs[n-1], nil
}

// FindByAddr returns the device with the given address.
func FindByAddr(devs []Device, addr string) (Device, bool) {
	for _, d := range devs {
		if d.Addr == addr {
			return d, true
		}
	}

	return Device{}, false
}

// HostPortIsAlive checks if a device at the given address is reachable via TCP connection.
// Returns true if the connection succeeds within 2 seconds.
func HostPortIsAlive(address string) bool {
	conn, err := net.DialTimeout("tcp", address, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
