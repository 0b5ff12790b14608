package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/logging"
	"github.com/qcatchat/catchat/internal/metrics"
)

// fallbackOrder is the order providers are tried after the primary fails.
var fallbackOrder = []Provider{ProviderOpenAI, ProviderClaude, ProviderOllama}

// RouterConfig configures the provider router
type RouterConfig struct {
	// Clients, any of which may be nil
	OpenAI *OpenAIClient
	Claude *Client
	Ollama *OllamaClient

	Primary Provider // Provider tried first

	// Fallback behavior
	EnableFallback bool // Try other configured providers on failure

	// Defaults applied when a request leaves them zero
	Temperature float64
	MaxTokens   int
}

// Router sends completions to the primary provider and fails over to the
// others when enabled.
type Router struct {
	providers map[Provider]chatProvider
	primary   Provider

	enableFallback bool
	temperature    float64
	maxTokens      int

	// Stats
	mu    sync.RWMutex
	stats RouterStats
}

// RouterStats tracks router usage
type RouterStats struct {
	OpenAIRequests   int64
	ClaudeRequests   int64
	OllamaRequests   int64
	FallbackCount    int64
	FailureCount     int64
	AverageLatencyMs int64
}

// NewRouter creates a new provider router
func NewRouter(cfg RouterConfig) *Router {
	providers := make(map[Provider]chatProvider)
	if cfg.OpenAI != nil {
		providers[ProviderOpenAI] = cfg.OpenAI
	}
	if cfg.Claude != nil {
		providers[ProviderClaude] = cfg.Claude
	}
	if cfg.Ollama != nil {
		providers[ProviderOllama] = cfg.Ollama
	}

	primary := cfg.Primary
	if primary == "" {
		primary = ProviderOpenAI
	}

	return &Router{
		providers:      providers,
		primary:        primary,
		enableFallback: cfg.EnableFallback,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
	}
}

// RouteRequest represents a request to be routed
type RouteRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64

	PreferredProvider Provider // If set, try this provider first
}

// RouteResponse contains the response and metadata
type RouteResponse struct {
	Content     string
	Provider    Provider
	LatencyMs   int64
	WasFallback bool
}

// Route sends a request to the appropriate provider
func (r *Router) Route(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	start := time.Now()

	if req.Temperature == 0 {
		req.Temperature = r.temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = r.maxTokens
	}

	provider := r.selectProvider(req)

	response, err := r.executeRequest(ctx, req, provider)
	usedProvider := provider
	if err != nil {
		logging.Warn("%s completion failed: %v", provider, err)
		if !r.enableFallback || ctx.Err() != nil {
			r.recordFailure()
			return nil, err
		}

		response, usedProvider, err = r.executeFallback(ctx, req, provider)
		if err != nil {
			r.recordFailure()
			return nil, fmt.Errorf("all providers failed: %w", err)
		}
		r.mu.Lock()
		r.stats.FallbackCount++
		r.mu.Unlock()
	}

	latency := time.Since(start)
	r.updateStats(usedProvider, latency.Milliseconds())
	metrics.CompletionLatency.WithLabelValues(string(usedProvider)).Observe(latency.Seconds())

	return &RouteResponse{
		Content:     response,
		Provider:    usedProvider,
		LatencyMs:   latency.Milliseconds(),
		WasFallback: usedProvider != provider,
	}, nil
}

// selectProvider chooses the first configured provider among the request's
// preference, the primary, and the fallback order.
func (r *Router) selectProvider(req RouteRequest) Provider {
	candidates := append([]Provider{req.PreferredProvider, r.primary}, fallbackOrder...)
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if c, ok := r.providers[p]; ok && c.IsConfigured() {
			return p
		}
	}
	return r.primary
}

// executeRequest executes the request with the specified provider
func (r *Router) executeRequest(ctx context.Context, req RouteRequest, provider Provider) (string, error) {
	c, ok := r.providers[provider]
	if !ok || !c.IsConfigured() {
		return "", fmt.Errorf("%w: %s", core.ErrLLMNotConfigured, provider)
	}
	return c.Chat(ctx, req.System, req.Prompt, Options{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
}

// executeFallback tries other providers when the primary fails
func (r *Router) executeFallback(ctx context.Context, req RouteRequest, failedProvider Provider) (string, Provider, error) {
	var errs []error
	for _, p := range fallbackOrder {
		if p == failedProvider {
			continue
		}
		if c, ok := r.providers[p]; !ok || !c.IsConfigured() {
			continue
		}

		resp, err := r.executeRequest(ctx, req, p)
		if err == nil {
			logging.Info("completion served by fallback provider %s", p)
			return resp, p, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p, err))
		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		return "", "", fmt.Errorf("%w: no fallback provider configured", core.ErrLLMUnavailable)
	}
	return "", "", fmt.Errorf("%w: %w", core.ErrLLMUnavailable, errors.Join(errs...))
}

func (r *Router) recordFailure() {
	r.mu.Lock()
	r.stats.FailureCount++
	r.mu.Unlock()
}

// updateStats updates router statistics
func (r *Router) updateStats(provider Provider, latencyMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch provider {
	case ProviderOpenAI:
		r.stats.OpenAIRequests++
	case ProviderClaude:
		r.stats.ClaudeRequests++
	case ProviderOllama:
		r.stats.OllamaRequests++
	}

	// Update average latency (simple moving average)
	total := r.stats.OpenAIRequests + r.stats.ClaudeRequests + r.stats.OllamaRequests
	r.stats.AverageLatencyMs = (r.stats.AverageLatencyMs*(total-1) + latencyMs) / total
}

// GetStats returns router statistics
func (r *Router) GetStats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// HealthCheck reports which providers are configured
func (r *Router) HealthCheck() map[Provider]bool {
	health := make(map[Provider]bool, len(r.providers))
	for p, c := range r.providers {
		health[p] = c.IsConfigured()
	}
	return health
}

// IsConfigured reports whether any provider can serve requests.
func (r *Router) IsConfigured() bool {
	for _, c := range r.providers {
		if c.IsConfigured() {
			return true
		}
	}
	return false
}
