package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qcatchat/catchat/internal/core"
)

func f(v float64) *float64 { return &v }

// =============================================================================
// Units
// =============================================================================

func TestReading_US(t *testing.T) {
	r := &Reading{Temperature: f(20.0), FeelsLike: f(18.5), WindSpeed: f(10.0)}
	view := r.US()

	if *view.TemperatureF != 68.0 {
		t.Errorf("TemperatureF = %v, want 68.0", *view.TemperatureF)
	}
	if *view.FeelsLikeF != 65.3 {
		t.Errorf("FeelsLikeF = %v, want 65.3", *view.FeelsLikeF)
	}
	if *view.WindSpeedMPH != 6.2 {
		t.Errorf("WindSpeedMPH = %v, want 6.2", *view.WindSpeedMPH)
	}
	if *view.Temperature != 20.0 {
		t.Error("US view should keep metric values")
	}
}

func TestReading_US_MissingValues(t *testing.T) {
	view := (&Reading{Location: "Nowhere"}).US()
	if view.TemperatureF != nil || view.FeelsLikeF != nil || view.WindSpeedMPH != nil {
		t.Errorf("US() of empty reading = %+v, want nil conversions", view)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name       string
		conditions string
		temp       *float64
		humidity   *float64
		wind       *float64
		want       string
	}{
		{"all fields", "Clear", f(21.3), f(40), f(12), "Clear, temperature 21.3°C, humidity 40%, wind speed 12 km/h"},
		{"conditions only", "Rain", nil, nil, nil, "Rain"},
		{"no conditions", "", f(5), nil, nil, "No conditions available, temperature 5°C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.conditions, tt.temp, tt.humidity, tt.wind); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Locator
// =============================================================================

func TestLocator_PrivateAddressSkipsLookup(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	l := NewLocator(LocatorConfig{BaseURL: server.URL, DefaultLocation: "Austin, TX"})

	for _, ip := range []string{"127.0.0.1", "localhost", "192.168.1.20", "10.0.0.7", "172.16.4.4"} {
		loc, err := l.Resolve(context.Background(), ip)
		if err != nil {
			t.Errorf("Resolve(%s) error = %v", ip, err)
		}
		if loc != "Austin, TX" {
			t.Errorf("Resolve(%s) = %q, want default", ip, loc)
		}
	}
	if hits != 0 {
		t.Errorf("geolocation service called %d times for private addresses", hits)
	}
}

func TestLocator_Resolve(t *testing.T) {
	responses := map[string]ipAPIResponse{
		"8.8.8.8":   {Status: "success", Country: "United States", CountryCode: "US", Region: "CA", City: "Mountain View"},
		"81.2.69.1": {Status: "success", Country: "United Kingdom", CountryCode: "GB", Region: "ENG", City: "London"},
		"1.1.1.1":   {Status: "fail", Message: "reserved range"},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := strings.TrimPrefix(r.URL.Path, "/json/")
		if ip == "9.9.9.9" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(responses[ip])
	}))
	defer server.Close()

	l := NewLocator(LocatorConfig{BaseURL: server.URL + "/json"})

	tests := []struct {
		ip      string
		want    string
		wantErr bool
	}{
		{"8.8.8.8", "Mountain View, CA", false},
		{"81.2.69.1", "London", false},
		{"1.1.1.1", "", true},
		{"9.9.9.9", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			got, err := l.Resolve(context.Background(), tt.ip)
			if tt.wantErr {
				if !errors.Is(err, core.ErrNoLocation) {
					t.Errorf("Resolve() error = %v, want ErrNoLocation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocator_Unreachable(t *testing.T) {
	l := NewLocator(LocatorConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := l.Resolve(context.Background(), "8.8.4.4")
	if !errors.Is(err, core.ErrNoLocation) {
		t.Errorf("Resolve() error = %v, want ErrNoLocation", err)
	}
}

// =============================================================================
// Visual Crossing
// =============================================================================

func newTimelineServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Query().Get("unitGroup") != "metric" || r.URL.Query().Get("key") != "vc-key" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}

		switch {
		case r.URL.Path == "/Boston/today":
			json.NewEncoder(w).Encode(map[string]any{
				"resolvedAddress": "Boston, MA, United States",
				"timezone":        "America/New_York",
				"currentConditions": map[string]any{
					"datetime": "14:00:00", "temp": 20.0, "feelslike": 19.0,
					"humidity": 55.0, "windspeed": 10.0, "winddir": 270.0,
					"conditions": "Partially cloudy", "icon": "partly-cloudy-day",
				},
			})
		case r.URL.Path == "/Oslo/today":
			json.NewEncoder(w).Encode(map[string]any{
				"resolvedAddress": "Oslo, Norway",
				"days": []map[string]any{
					{"datetime": "2024-05-01", "temp": 9.0, "conditions": "Overcast"},
				},
			})
		case r.URL.Path == "/Nowhere/today":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Bad API Request:Invalid location parameter value."))
		case r.URL.Path == "/Boston/next2days":
			json.NewEncoder(w).Encode(map[string]any{
				"resolvedAddress": "Boston, MA, United States",
				"days": []map[string]any{
					{"datetime": "2024-05-01", "tempmax": 22.0, "tempmin": 12.0, "conditions": "Rain", "precipprob": 80.0},
					{"datetime": "2024-05-02", "tempmax": 18.0, "tempmin": 10.0, "conditions": "Clear", "precipprob": 5.0},
					{"datetime": "2024-05-03", "tempmax": 19.0, "tempmin": 11.0, "conditions": "Clear"},
				},
			})
		case r.URL.Path == "/Boston/2024-01-15":
			json.NewEncoder(w).Encode(map[string]any{
				"resolvedAddress": "Boston, MA, United States",
				"days": []map[string]any{
					{"datetime": "2024-01-15", "tempmax": 2.0, "tempmin": -6.0, "temp": -2.0, "precip": 0.4, "conditions": "Snow"},
				},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{})
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestVisualCrossing_Current(t *testing.T) {
	var hits int32
	server := newTimelineServer(t, &hits)
	c := NewVisualCrossing(VisualCrossingConfig{APIKey: "vc-key", BaseURL: server.URL})

	r, err := c.Current(context.Background(), "Boston")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if r.Location != "Boston, MA, United States" {
		t.Errorf("Location = %q", r.Location)
	}
	if *r.Temperature != 20.0 || *r.WindDirection != 270.0 {
		t.Errorf("reading = %+v", r)
	}
	if r.Description != "Partially cloudy, temperature 20°C, humidity 55%, wind speed 10 km/h" {
		t.Errorf("Description = %q", r.Description)
	}
	if r.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q", r.Timezone)
	}
}

func TestVisualCrossing_Current_FallsBackToFirstDay(t *testing.T) {
	var hits int32
	server := newTimelineServer(t, &hits)
	c := NewVisualCrossing(VisualCrossingConfig{APIKey: "vc-key", BaseURL: server.URL})

	r, err := c.Current(context.Background(), "Oslo")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if r.Conditions != "Overcast" || *r.Temperature != 9.0 {
		t.Errorf("reading = %+v, want first day values", r)
	}
}

func TestVisualCrossing_NoData(t *testing.T) {
	var hits int32
	server := newTimelineServer(t, &hits)
	c := NewVisualCrossing(VisualCrossingConfig{APIKey: "vc-key", BaseURL: server.URL})
	ctx := context.Background()

	if _, err := c.Current(ctx, "Nowhere"); !errors.Is(err, core.ErrNoWeatherData) {
		t.Errorf("Current(Nowhere) error = %v, want ErrNoWeatherData", err)
	}
	if _, err := c.Current(ctx, "Empty"); !errors.Is(err, core.ErrNoWeatherData) {
		t.Errorf("Current(Empty) error = %v, want ErrNoWeatherData", err)
	}
}

func TestVisualCrossing_Forecast(t *testing.T) {
	var hits int32
	server := newTimelineServer(t, &hits)
	c := NewVisualCrossing(VisualCrossingConfig{APIKey: "vc-key", BaseURL: server.URL})

	fc, err := c.Forecast(context.Background(), "Boston", 2)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if len(fc.Forecasts) != 2 {
		t.Fatalf("len(Forecasts) = %d, want 2 (truncated to requested days)", len(fc.Forecasts))
	}
	if *fc.Forecasts[0].PrecipitationProbability != 80.0 {
		t.Errorf("PrecipitationProbability = %v", *fc.Forecasts[0].PrecipitationProbability)
	}
}

func TestVisualCrossing_HistoricalMemoized(t *testing.T) {
	var hits int32
	server := newTimelineServer(t, &hits)
	c := NewVisualCrossing(VisualCrossingConfig{APIKey: "vc-key", BaseURL: server.URL})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h, err := c.Historical(ctx, "Boston", "2024-01-15")
		if err != nil {
			t.Fatalf("Historical() error = %v", err)
		}
		if *h.TempAvg != -2.0 || h.Conditions != "Snow" {
			t.Errorf("historical = %+v", h)
		}
	}
	if hits != 1 {
		t.Errorf("upstream called %d times, want 1", hits)
	}
}

// =============================================================================
// Search parsing
// =============================================================================

func TestParseSearch(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		query    string
		typ      string
		location string
		date     string
		wantErr  bool
	}{
		{"current default", "Boston", "", "Boston", "", false},
		{"forecast", "Boston", "forecast", "Boston", "", false},
		{"historical with date", "Paris on 2024-03-01", "historical", "Paris", "2024-03-01", false},
		{"historical bad date", "Paris on last tuesday", "historical", "Paris", "2024-06-08", false},
		{"historical no date", "Paris", "historical", "Paris", "2024-06-08", false},
		{"bad type", "Paris", "hourly", "", "", true},
		{"empty query", " ", "current", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseSearch(tt.query, tt.typ, now)
			if tt.wantErr {
				if err == nil {
					t.Error("ParseSearch() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSearch() error = %v", err)
			}
			if s.Location != tt.location || s.Date != tt.date {
				t.Errorf("ParseSearch() = %+v, want location %q date %q", s, tt.location, tt.date)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	for _, days := range []int{0, 16, -1} {
		if !errors.Is(ValidateDays(days), core.ErrInvalidInput) {
			t.Errorf("ValidateDays(%d) should fail", days)
		}
	}
	for _, days := range []int{1, 3, 15} {
		if err := ValidateDays(days); err != nil {
			t.Errorf("ValidateDays(%d) error = %v", days, err)
		}
	}

	if err := ValidateDate("2024-02-29"); err != nil {
		t.Errorf("ValidateDate(leap day) error = %v", err)
	}
	for _, d := range []string{"2024-13-01", "01/02/2024", "yesterday"} {
		if !errors.Is(ValidateDate(d), core.ErrInvalidInput) {
			t.Errorf("ValidateDate(%q) should fail", d)
		}
	}
}

// =============================================================================
// Remote weather service
// =============================================================================

func TestServiceClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/weather/current/Boston":
			json.NewEncoder(w).Encode(Reading{Location: "Boston", Temperature: f(20)})
		case "/api/weather/forecast/Boston":
			if r.URL.Query().Get("days") != "5" {
				t.Errorf("days = %q, want 5", r.URL.Query().Get("days"))
			}
			json.NewEncoder(w).Encode(Forecast{Location: "Boston", Forecasts: []DayForecast{{Date: "2024-05-01"}}})
		case "/api/weather/historical/Boston/2024-01-15":
			json.NewEncoder(w).Encode(Historical{Location: "Boston", Date: "2024-01-15"})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "not found"})
		}
	}))
	defer server.Close()

	c := NewServiceClient(server.URL+"/api/weather/", 0)
	ctx := context.Background()

	r, err := c.Current(ctx, "Boston")
	if err != nil || *r.Temperature != 20 {
		t.Errorf("Current() = %+v, %v", r, err)
	}
	fc, err := c.Forecast(ctx, "Boston", 5)
	if err != nil || len(fc.Forecasts) != 1 {
		t.Errorf("Forecast() = %+v, %v", fc, err)
	}
	h, err := c.Historical(ctx, "Boston", "2024-01-15")
	if err != nil || h.Date != "2024-01-15" {
		t.Errorf("Historical() = %+v, %v", h, err)
	}
	if _, err := c.Current(ctx, "Atlantis"); !errors.Is(err, core.ErrNoWeatherData) {
		t.Errorf("Current(Atlantis) error = %v, want ErrNoWeatherData", err)
	}
}
