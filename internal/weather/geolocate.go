package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/logging"
)

// Addresses that never leave the host or LAN. Matched as literal prefixes.
var privatePrefixes = []string{"127.0.0.1", "localhost", "192.168.", "10.", "172.16."}

// Locator turns a client IP address into a place name.
type Locator struct {
	baseURL         string
	defaultLocation string
	httpClient      *http.Client
}

// LocatorConfig for the IP geolocation client
type LocatorConfig struct {
	BaseURL         string        // ip-api.com compatible endpoint
	DefaultLocation string        // Answer for loopback and private addresses
	Timeout         time.Duration // Request timeout
}

// NewLocator creates a new locator
func NewLocator(cfg LocatorConfig) *Locator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://ip-api.com/json"
	}
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = "New York, NY"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Locator{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		defaultLocation: cfg.DefaultLocation,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Region      string `json:"region"`
	City        string `json:"city"`
}

// IsPrivate reports whether ip is a loopback or private-network address.
func IsPrivate(ip string) bool {
	for _, p := range privatePrefixes {
		if strings.HasPrefix(ip, p) {
			return true
		}
	}
	return false
}

// Resolve returns "City, Region" for US addresses and "City" elsewhere.
// Private addresses resolve to the configured default without a lookup.
// Every failure wraps core.ErrNoLocation.
func (l *Locator) Resolve(ctx context.Context, ip string) (string, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return "", fmt.Errorf("%w: no client address", core.ErrNoLocation)
	}
	if IsPrivate(ip) {
		logging.Debug("private address %s, using default location %q", ip, l.defaultLocation)
		return l.defaultLocation, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", l.baseURL+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrNoLocation, err)
	}

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", core.ErrNoLocation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: geolocation status %d", core.ErrNoLocation, resp.StatusCode)
	}

	var geo ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return "", fmt.Errorf("%w: decode: %v", core.ErrNoLocation, err)
	}
	if geo.City == "" {
		return "", fmt.Errorf("%w: no city for %s (%s)", core.ErrNoLocation, ip, geo.Message)
	}

	isUS := geo.CountryCode == "US" || geo.Country == "United States"
	if isUS && geo.Region != "" {
		return geo.City + ", " + geo.Region, nil
	}
	return geo.City, nil
}
