package devices

import (
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	descHTTPClientTimeout         = 10 * time.Second
	descHTTPDialTimeout           = 3 * time.Second
	descHTTPResponseHeaderTimeout = 5 * time.Second
	descHTTPIdleConnTimeout       = 30 * time.Second
	descRetryMax                  = 2

	avTransportServiceType = "urn:schemas-upnp-org:service:AVTransport:1"
)

var descHTTPTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout: descHTTPDialTimeout,
	}).DialContext,
	ResponseHeaderTimeout: descHTTPResponseHeaderTimeout,
	IdleConnTimeout:       descHTTPIdleConnTimeout,
}

// descriptionRoot mirrors the parts of a UPnP device description we read.
type descriptionRoot struct {
	XMLName xml.Name          `xml:"root"`
	Device  descriptionDevice `xml:"device"`
}

type descriptionDevice struct {
	FriendlyName string               `xml:"friendlyName"`
	UDN          string               `xml:"UDN"`
	Services     []descriptionService `xml:"serviceList>service"`
	Embedded     []descriptionDevice  `xml:"deviceList>device"`
}

type descriptionService struct {
	Type       string `xml:"serviceType"`
	ControlURL string `xml:"controlURL"`
}

// renderer is what we keep from a description: the device that exposes
// AVTransport, which may be nested under the root device.
type renderer struct {
	FriendlyName string
	UDN          string
}

func newRetryableHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil
	retryClient.HTTPClient = &http.Client{
		Timeout:   descHTTPClientTimeout,
		Transport: descHTTPTransport,
	}

	return retryClient.StandardClient()
}

// fetchDescription loads the device description at location and returns
// the media renderers it describes.
func fetchDescription(ctx context.Context, location string) ([]renderer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("fetchDescription: failed to create request: %w", err)
	}
	req.Header.Set("Connection", "close")

	resp, err := newRetryableHTTPClient(descRetryMax).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchDescription: failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetchDescription: unexpected status %d", resp.StatusCode)
	}

	var root descriptionRoot
	if err := xml.NewDecoder(resp.Body).Decode(&root); err != nil {
		return nil, fmt.Errorf("fetchDescription: failed to decode: %w", err)
	}

	return collectRenderers(root.Device, nil), nil
}

func collectRenderers(d descriptionDevice, out []renderer) []renderer {
	for _, s := range d.Services {
		if strings.TrimSpace(s.Type) == avTransportServiceType {
			out = append(out, renderer{
				FriendlyName: strings.TrimSpace(d.FriendlyName),
				UDN:          strings.TrimSpace(d.UDN),
			})
			break
		}
	}

	for _, e := range d.Embedded {
		out = collectRenderers(e, out)
	}

	return out
}
