package testutil

import (
	"context"
	"sync"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/llm"
	"github.com/qcatchat/catchat/internal/weather"
)

// MockCompleter implements llm.Completer for testing. Requests are recorded
// so tests can inspect the prompts that were sent.
type MockCompleter struct {
	RouteFunc func(ctx context.Context, req llm.RouteRequest) (*llm.RouteResponse, error)

	mu       sync.Mutex
	requests []llm.RouteRequest
}

// NewStaticCompleter returns a completer that always answers with content.
func NewStaticCompleter(content string) *MockCompleter {
	return &MockCompleter{
		RouteFunc: func(ctx context.Context, req llm.RouteRequest) (*llm.RouteResponse, error) {
			return &llm.RouteResponse{Content: content, Provider: llm.ProviderOpenAI}, nil
		},
	}
}

// NewFailingCompleter returns a completer that always fails with err.
func NewFailingCompleter(err error) *MockCompleter {
	return &MockCompleter{
		RouteFunc: func(ctx context.Context, req llm.RouteRequest) (*llm.RouteResponse, error) {
			return nil, err
		},
	}
}

// Route calls the mock function if set.
func (m *MockCompleter) Route(ctx context.Context, req llm.RouteRequest) (*llm.RouteResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.RouteFunc != nil {
		return m.RouteFunc(ctx, req)
	}
	return &llm.RouteResponse{Content: "Summary: ok\nDetails: ok", Provider: llm.ProviderOpenAI}, nil
}

// Requests returns every request seen so far.
func (m *MockCompleter) Requests() []llm.RouteRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.RouteRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of Route calls.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// MockWeatherProvider implements weather.Provider for testing.
type MockWeatherProvider struct {
	CurrentFunc    func(ctx context.Context, location string) (*weather.Reading, error)
	ForecastFunc   func(ctx context.Context, location string, days int) (*weather.Forecast, error)
	HistoricalFunc func(ctx context.Context, location, date string) (*weather.Historical, error)

	mu        sync.Mutex
	locations []string
}

// Current calls the mock function if set, else returns ReadingFixture.
func (m *MockWeatherProvider) Current(ctx context.Context, location string) (*weather.Reading, error) {
	m.mu.Lock()
	m.locations = append(m.locations, location)
	m.mu.Unlock()

	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx, location)
	}
	r := ReadingFixture(location)
	return &r, nil
}

// Forecast calls the mock function if set.
func (m *MockWeatherProvider) Forecast(ctx context.Context, location string, days int) (*weather.Forecast, error) {
	if m.ForecastFunc != nil {
		return m.ForecastFunc(ctx, location, days)
	}
	return nil, core.ErrNoWeatherData
}

// Historical calls the mock function if set.
func (m *MockWeatherProvider) Historical(ctx context.Context, location, date string) (*weather.Historical, error) {
	if m.HistoricalFunc != nil {
		return m.HistoricalFunc(ctx, location, date)
	}
	return nil, core.ErrNoWeatherData
}

// Locations returns the locations Current was asked for.
func (m *MockWeatherProvider) Locations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.locations))
	copy(out, m.locations)
	return out
}

// MockIntentCatalog implements intent.Catalog for testing.
type MockIntentCatalog struct {
	ListFunc func(ctx context.Context) ([]core.IntentPattern, error)

	mu    sync.Mutex
	calls int
}

// List calls the mock function if set.
func (m *MockIntentCatalog) List(ctx context.Context) ([]core.IntentPattern, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// Calls returns the number of List calls.
func (m *MockIntentCatalog) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
