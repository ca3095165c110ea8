package devices

import (
	"context"
	"fmt"

	"github.com/alexballas/go-ssdp"
)

// Both swapped in tests.
var (
	ssdpSearch              = ssdp.Search
	loadDevicesFromLocation = fetchDescription
)

// DLNASource finds UPnP media renderers over SSDP.
type DLNASource struct {
	// Delay is the SSDP MX wait in seconds.
	Delay int
}

// Snapshot runs one SSDP search. Renderers are kept when their
// description exposes AVTransport, regardless of the ST they answered
// with, since some speakers only answer root device searches.
func (s *DLNASource) Snapshot(ctx context.Context) ([]Device, error) {
	delay := s.Delay
	if delay <= 0 {
		delay = 1
	}

	list, err := ssdpSearch(ssdp.All, delay, "")
	if err != nil {
		return nil, fmt.Errorf("dlna snapshot search error: %w", err)
	}

	var out []Device
	seenLocation := make(map[string]struct{})
	seenID := make(map[string]struct{})
	for _, srv := range list {
		if srv.Location == "" {
			continue
		}
		if _, ok := seenLocation[srv.Location]; ok {
			continue
		}
		seenLocation[srv.Location] = struct{}{}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dlna snapshot: %w", err)
		}

		renderers, err := loadDevicesFromLocation(ctx, srv.Location)
		if err != nil {
			continue
		}

		for _, r := range renderers {
			id := r.UDN
			if id == "" {
				id = srv.Location + "#" + r.FriendlyName
			}
			if _, ok := seenID[id]; ok {
				continue
			}
			seenID[id] = struct{}{}

			name := r.FriendlyName
			if name == "" {
				name = srv.Location
			}

			out = append(out, Device{
				ID:   id,
				Name: name,
				Addr: srv.Location,
				Type: DeviceTypeDLNA,
			})
		}
	}

	return out, nil
}
