package mockservers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// WeatherMockServer provides a mock Visual Crossing timeline API. Known
// locations answer with fixed data; anything else is a bad request, like the
// real service.
type WeatherMockServer struct {
	Server    *httptest.Server
	Locations map[string]map[string]any

	mu   sync.Mutex
	hits int
	t    *testing.T
}

// NewWeatherMockServer creates a new mock weather server with Boston data.
func NewWeatherMockServer(t *testing.T) *WeatherMockServer {
	t.Helper()

	mock := &WeatherMockServer{
		Locations: map[string]map[string]any{
			"Boston": {
				"resolvedAddress": "Boston, MA, United States",
				"timezone":        "America/New_York",
				"currentConditions": map[string]any{
					"datetime": "14:00:00", "temp": 20.0, "feelslike": 19.0,
					"humidity": 55.0, "windspeed": 10.0, "winddir": 270.0,
					"conditions": "Partially cloudy", "icon": "partly-cloudy-day",
				},
				"days": []map[string]any{
					{"datetime": "2024-05-01", "temp": 18.0, "tempmax": 22.0, "tempmin": 12.0, "humidity": 60.0, "windspeed": 12.0, "conditions": "Rain", "precipprob": 80.0},
					{"datetime": "2024-05-02", "temp": 15.0, "tempmax": 18.0, "tempmin": 10.0, "conditions": "Clear", "precipprob": 5.0},
					{"datetime": "2024-05-03", "temp": 16.0, "tempmax": 19.0, "tempmin": 11.0, "conditions": "Clear"},
				},
			},
		},
		t: t,
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.hits++
		mock.mu.Unlock()

		if r.URL.Query().Get("key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("No API key or session found"))
			return
		}

		// Path is /<location>/<period>
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		data, ok := mock.Locations[parts[0]]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Bad API Request:Invalid location parameter value."))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(data)
	}))

	t.Cleanup(func() {
		mock.Server.Close()
	})

	return mock
}

// URL returns the timeline root.
func (m *WeatherMockServer) URL() string {
	return m.Server.URL
}

// Hits returns how many requests the server received.
func (m *WeatherMockServer) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}
