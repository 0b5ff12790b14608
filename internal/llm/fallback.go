package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/logging"
	"github.com/qcatchat/catchat/internal/metrics"
)

// DefaultCompletionTimeout bounds every guarded completion.
const DefaultCompletionTimeout = 15 * time.Second

// UnavailableText is served when no better fallback exists.
const UnavailableText = "I'm sorry, I'm temporarily unavailable and couldn't generate a full answer. Please try again in a moment."

// Completer is anything that can route a completion request.
type Completer interface {
	Route(ctx context.Context, req RouteRequest) (*RouteResponse, error)
}

// Fallback is the deterministic reply used when completion fails.
type Fallback struct {
	Kind string // metrics label, e.g. "quantum_systems"
	Text string // empty means UnavailableText
}

// Result of a guarded completion. Err carries the cause when FellBack is set.
type Result struct {
	Text     string
	Provider Provider
	FellBack bool
	Err      error
}

// Guard applies a timeout to completions and substitutes fallback text on
// any failure, so callers always get something to show.
type Guard struct {
	completer Completer
	timeout   time.Duration
}

// NewGuard creates a guard around completer. A zero timeout uses
// DefaultCompletionTimeout.
func NewGuard(completer Completer, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = DefaultCompletionTimeout
	}
	return &Guard{completer: completer, timeout: timeout}
}

// Timeout returns the per-call deadline.
func (g *Guard) Timeout() time.Duration {
	return g.timeout
}

// Complete runs req under the guard's timeout. It never returns an error;
// failures produce the fallback text with FellBack set.
func (g *Guard) Complete(ctx context.Context, req RouteRequest, fb Fallback) Result {
	if g.completer == nil {
		return g.fallback(fb, core.ErrLLMNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.completer.Route(ctx, req)
	if err == nil && (resp == nil || resp.Content == "") {
		err = core.ErrEmptyCompletion
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("completion timed out after %s: %w", g.timeout, err)
		}
		return g.fallback(fb, err)
	}

	return Result{Text: resp.Content, Provider: resp.Provider}
}

func (g *Guard) fallback(fb Fallback, cause error) Result {
	kind := fb.Kind
	if kind == "" {
		kind = "generic"
	}
	text := fb.Text
	if text == "" {
		text = UnavailableText
	}

	logging.Warn("completion failed (%s), serving fallback: %v", kind, cause)
	metrics.CompletionFallbacks.WithLabelValues(kind).Inc()

	return Result{Text: text, FellBack: true, Err: cause}
}
