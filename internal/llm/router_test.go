package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qcatchat/catchat/internal/core"
)

func openAIServer(t *testing.T, status int, content string, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func claudeServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": content}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

// =============================================================================
// Router Tests
// =============================================================================

func TestRouter_selectProvider(t *testing.T) {
	openai := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
	claude := NewClient(Config{APIKey: "k"})
	unconfiguredClaude := NewClient(Config{})

	tests := []struct {
		name      string
		cfg       RouterConfig
		preferred Provider
		want      Provider
	}{
		{"primary configured", RouterConfig{OpenAI: openai, Claude: claude, Primary: ProviderClaude}, "", ProviderClaude},
		{"preferred wins", RouterConfig{OpenAI: openai, Claude: claude}, ProviderClaude, ProviderClaude},
		{"preferred unconfigured", RouterConfig{OpenAI: openai, Claude: unconfiguredClaude}, ProviderClaude, ProviderOpenAI},
		{"primary unconfigured", RouterConfig{OpenAI: openai, Claude: unconfiguredClaude, Primary: ProviderClaude}, "", ProviderOpenAI},
		{"default primary", RouterConfig{OpenAI: openai}, "", ProviderOpenAI},
		{"nothing configured", RouterConfig{Primary: ProviderOllama}, "", ProviderOllama},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(tt.cfg)
			if got := r.selectProvider(RouteRequest{PreferredProvider: tt.preferred}); got != tt.want {
				t.Errorf("selectProvider() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRouter_Route(t *testing.T) {
	server := openAIServer(t, http.StatusOK, "hello from gpt", nil)
	r := NewRouter(RouterConfig{
		OpenAI:      NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL}),
		Temperature: 0.7,
		MaxTokens:   1000,
	})

	resp, err := r.Route(context.Background(), RouteRequest{System: "s", Prompt: "p"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if resp.Content != "hello from gpt" || resp.Provider != ProviderOpenAI || resp.WasFallback {
		t.Errorf("Route() = %+v", resp)
	}
	if stats := r.GetStats(); stats.OpenAIRequests != 1 {
		t.Errorf("OpenAIRequests = %d, want 1", stats.OpenAIRequests)
	}
}

func TestRouter_Route_Fallback(t *testing.T) {
	broken := openAIServer(t, http.StatusInternalServerError, "", nil)
	healthy := claudeServer(t, http.StatusOK, "claude saves the day")

	r := NewRouter(RouterConfig{
		OpenAI:         NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: broken.URL}),
		Claude:         NewClient(Config{APIKey: "k", BaseURL: healthy.URL}),
		EnableFallback: true,
	})

	resp, err := r.Route(context.Background(), RouteRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if resp.Provider != ProviderClaude || !resp.WasFallback {
		t.Errorf("Route() = %+v, want claude fallback", resp)
	}
	if stats := r.GetStats(); stats.FallbackCount != 1 || stats.ClaudeRequests != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRouter_Route_NoFallback(t *testing.T) {
	var hits int32
	broken := openAIServer(t, http.StatusInternalServerError, "", &hits)
	healthy := claudeServer(t, http.StatusOK, "unused")

	r := NewRouter(RouterConfig{
		OpenAI: NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: broken.URL}),
		Claude: NewClient(Config{APIKey: "k", BaseURL: healthy.URL}),
	})

	if _, err := r.Route(context.Background(), RouteRequest{Prompt: "p"}); err == nil {
		t.Error("Route() should fail without fallback")
	}
	if hits != 1 {
		t.Errorf("primary called %d times, want 1", hits)
	}
	if r.GetStats().FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", r.GetStats().FailureCount)
	}
}

func TestRouter_Route_AllFail(t *testing.T) {
	broken := openAIServer(t, http.StatusBadGateway, "", nil)
	brokenClaude := claudeServer(t, http.StatusBadGateway, "")

	r := NewRouter(RouterConfig{
		OpenAI:         NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: broken.URL}),
		Claude:         NewClient(Config{APIKey: "k", BaseURL: brokenClaude.URL}),
		EnableFallback: true,
	})

	_, err := r.Route(context.Background(), RouteRequest{Prompt: "p"})
	if !errors.Is(err, core.ErrLLMUnavailable) {
		t.Errorf("Route() error = %v, want ErrLLMUnavailable", err)
	}
}

func TestRouter_Route_NotConfigured(t *testing.T) {
	r := NewRouter(RouterConfig{})

	_, err := r.Route(context.Background(), RouteRequest{Prompt: "p"})
	if !errors.Is(err, core.ErrLLMNotConfigured) {
		t.Errorf("Route() error = %v, want ErrLLMNotConfigured", err)
	}
	if r.IsConfigured() {
		t.Error("IsConfigured() should be false with no providers")
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	r := NewRouter(RouterConfig{
		OpenAI: NewOpenAIClient(OpenAIConfig{APIKey: "k"}),
		Claude: NewClient(Config{}),
	})

	health := r.HealthCheck()
	if !health[ProviderOpenAI] || health[ProviderClaude] {
		t.Errorf("HealthCheck() = %v", health)
	}
	if _, ok := health[ProviderOllama]; ok {
		t.Error("absent provider should not be reported")
	}
}

func TestParseProvider(t *testing.T) {
	tests := map[string]Provider{
		"openai": ProviderOpenAI,
		"claude": ProviderClaude,
		"ollama": ProviderOllama,
		"":       ProviderOpenAI,
		"azure":  ProviderOpenAI,
	}
	for in, want := range tests {
		if got := ParseProvider(in); got != want {
			t.Errorf("ParseProvider(%q) = %s, want %s", in, got, want)
		}
	}
}

// =============================================================================
// Guard Tests
// =============================================================================

type completerFunc func(ctx context.Context, req RouteRequest) (*RouteResponse, error)

func (f completerFunc) Route(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	return f(ctx, req)
}

func TestGuard_Success(t *testing.T) {
	g := NewGuard(completerFunc(func(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
		return &RouteResponse{Content: "answer", Provider: ProviderOpenAI}, nil
	}), 0)

	res := g.Complete(context.Background(), RouteRequest{}, Fallback{Text: "fallback"})
	if res.FellBack || res.Text != "answer" || res.Err != nil {
		t.Errorf("Complete() = %+v", res)
	}
	if g.Timeout() != DefaultCompletionTimeout {
		t.Errorf("Timeout() = %v, want %v", g.Timeout(), DefaultCompletionTimeout)
	}
}

func TestGuard_ProviderError(t *testing.T) {
	cause := errors.New("boom")
	g := NewGuard(completerFunc(func(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
		return nil, cause
	}), time.Second)

	res := g.Complete(context.Background(), RouteRequest{}, Fallback{Kind: "quantum_systems", Text: "catalog text"})
	if !res.FellBack || res.Text != "catalog text" {
		t.Errorf("Complete() = %+v, want catalog fallback", res)
	}
	if !errors.Is(res.Err, cause) {
		t.Errorf("Err = %v, want cause", res.Err)
	}
}

func TestGuard_Timeout(t *testing.T) {
	g := NewGuard(completerFunc(func(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), 20*time.Millisecond)

	start := time.Now()
	res := g.Complete(context.Background(), RouteRequest{}, Fallback{})
	if time.Since(start) > time.Second {
		t.Error("Complete() should give up at the timeout")
	}
	if !res.FellBack || res.Text != UnavailableText {
		t.Errorf("Complete() = %+v, want static fallback", res)
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", res.Err)
	}
}

func TestGuard_EmptyCompletion(t *testing.T) {
	g := NewGuard(completerFunc(func(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
		return &RouteResponse{}, nil
	}), time.Second)

	res := g.Complete(context.Background(), RouteRequest{}, Fallback{})
	if !res.FellBack || !errors.Is(res.Err, core.ErrEmptyCompletion) {
		t.Errorf("Complete() = %+v, want empty-completion fallback", res)
	}
}

func TestGuard_NilCompleter(t *testing.T) {
	res := NewGuard(nil, 0).Complete(context.Background(), RouteRequest{}, Fallback{})
	if !res.FellBack || !errors.Is(res.Err, core.ErrLLMNotConfigured) {
		t.Errorf("Complete() = %+v", res)
	}
}
