package mockservers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// GeoMockServer provides a mock ip-api.com JSON endpoint.
type GeoMockServer struct {
	Server *httptest.Server
	// Addresses maps an IP to the ip-api response body.
	Addresses map[string]map[string]string

	mu      sync.Mutex
	lookups []string
	t       *testing.T
}

// NewGeoMockServer creates a new mock geolocation server.
func NewGeoMockServer(t *testing.T) *GeoMockServer {
	t.Helper()

	mock := &GeoMockServer{
		Addresses: map[string]map[string]string{
			"8.8.8.8": {
				"status": "success", "country": "United States", "countryCode": "US",
				"region": "CA", "regionName": "California", "city": "Mountain View",
			},
			"81.2.69.142": {
				"status": "success", "country": "United Kingdom", "countryCode": "GB",
				"region": "ENG", "city": "London",
			},
		},
		t: t,
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := strings.TrimPrefix(r.URL.Path, "/")

		mock.mu.Lock()
		mock.lookups = append(mock.lookups, ip)
		mock.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if body, ok := mock.Addresses[ip]; ok {
			json.NewEncoder(w).Encode(body)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "fail",
			"message": "reserved range",
			"query":   ip,
		})
	}))

	t.Cleanup(func() {
		mock.Server.Close()
	})

	return mock
}

// URL returns the lookup root.
func (m *GeoMockServer) URL() string {
	return m.Server.URL
}

// Lookups returns the IPs that were looked up.
func (m *GeoMockServer) Lookups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lookups))
	copy(out, m.lookups)
	return out
}
