// Package agent implements the Catchat request router: every message is
// tried against weather, then quantum intents, then answered by generic chat.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/intent"
	"github.com/qcatchat/catchat/internal/llm"
	"github.com/qcatchat/catchat/internal/logging"
	"github.com/qcatchat/catchat/internal/metrics"
	"github.com/qcatchat/catchat/internal/prompts"
	"github.com/qcatchat/catchat/internal/quantum"
	"github.com/qcatchat/catchat/internal/recorder"
	"github.com/qcatchat/catchat/internal/weather"
)

// Path names the routing stage that answered a message.
type Path string

const (
	PathWeather Path = "weather"
	PathQuantum Path = "quantum"
	PathGeneric Path = "generic"
)

// IntentMatcher finds the quantum application a message asks for.
type IntentMatcher interface {
	Match(ctx context.Context, message string) (*intent.Match, error)
}

// LocationResolver turns a client address into a location name.
type LocationResolver interface {
	Resolve(ctx context.Context, ip string) (string, error)
}

// ExchangeRecorder persists answered exchanges.
type ExchangeRecorder interface {
	Record(ctx context.Context, ex recorder.Exchange) bool
}

// Config wires the agent's collaborators. Any of Weather, Locator, Matcher
// and Quantum may be nil, which disables that stage.
type Config struct {
	Weather  weather.Provider
	Locator  LocationResolver
	Matcher  IntentMatcher
	Quantum  *quantum.Handler
	Guard    *llm.Guard
	Recorder ExchangeRecorder
}

// Request is one inbound chat message.
type Request struct {
	Message         string
	UserID          string
	Mode            core.Mode
	ClientIP        string
	QuantumComputer string
	Qubits          int
}

// Reply is the routed answer.
type Reply struct {
	Response core.StructuredReply
	Path     Path
	Mode     core.Mode
	Recorded bool
}

// Agent routes chat messages.
type Agent struct {
	weather  weather.Provider
	locator  LocationResolver
	matcher  IntentMatcher
	quantum  *quantum.Handler
	guard    *llm.Guard
	recorder ExchangeRecorder

	stats struct {
		weather, quantum, generic, unrecorded atomic.Int64
	}
}

// New creates a new agent
func New(cfg Config) *Agent {
	guard := cfg.Guard
	if guard == nil {
		guard = llm.NewGuard(nil, 0)
	}
	return &Agent{
		weather:  cfg.Weather,
		locator:  cfg.Locator,
		matcher:  cfg.Matcher,
		quantum:  cfg.Quantum,
		guard:    guard,
		recorder: cfg.Recorder,
	}
}

// recordTimeout bounds saving an exchange once the reply is ready.
const recordTimeout = 10 * time.Second

// Handle answers one message. The only error is a missing message; every
// downstream failure degrades to a later stage or to fallback text.
func (a *Agent) Handle(ctx context.Context, req Request) (*Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message", core.ErrMissingRequired)
	}
	req.Message = message

	reply, ok := a.tryWeather(ctx, req)
	if !ok {
		reply, ok = a.tryQuantum(ctx, req)
	}
	if !ok {
		reply = a.generic(ctx, req)
	}

	metrics.RouteDecisions.WithLabelValues(string(reply.Path)).Inc()
	a.count(reply.Path)

	if a.recorder != nil {
		// The request deadline may already be spent by the stages above.
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		reply.Recorded = a.recorder.Record(recCtx, recorder.Exchange{
			UserID:   req.UserID,
			Message:  req.Message,
			Mode:     reply.Mode,
			Response: responseText(reply.Response),
		})
		if !reply.Recorded {
			a.stats.unrecorded.Add(1)
		}
	}

	return reply, nil
}

// tryWeather answers when the message is about the weather and a location,
// a reading and a completion are all available.
func (a *Agent) tryWeather(ctx context.Context, req Request) (*Reply, bool) {
	if a.weather == nil {
		return nil, false
	}

	c := weather.Classify(req.Message)
	if !c.IsWeather {
		if c.KeywordHit {
			logging.Debug("weather keyword without weather intent: %q", req.Message)
		}
		return nil, false
	}

	location := c.Location
	if location == "" {
		if a.locator == nil {
			return nil, false
		}
		var err error
		location, err = a.locator.Resolve(ctx, req.ClientIP)
		if err != nil {
			logging.Info("skipping weather, %v", err)
			return nil, false
		}
	}

	reading, err := a.weather.Current(ctx, location)
	if err != nil {
		logging.Warn("weather lookup for %q failed: %v", location, err)
		return nil, false
	}
	view := reading.US()

	res := a.guard.Complete(ctx, llm.RouteRequest{
		System: prompts.WeatherPrompt(view, req.Message),
		Prompt: req.Message,
	}, llm.Fallback{Kind: "weather"})
	if res.FellBack {
		return nil, false
	}

	resp := prompts.FormatResponse(res.Text)
	resp.WeatherData = view
	return &Reply{Response: resp, Path: PathWeather, Mode: core.ModeWeather}, true
}

func (a *Agent) tryQuantum(ctx context.Context, req Request) (*Reply, bool) {
	if a.matcher == nil || a.quantum == nil {
		return nil, false
	}

	match, err := a.matcher.Match(ctx, req.Message)
	if err != nil {
		if !errors.Is(err, core.ErrNoIntent) {
			logging.Warn("intent matching failed, treating as no intent: %v", err)
		}
		return nil, false
	}

	logging.WithFields(map[string]interface{}{
		"application_id": match.ApplicationID,
		"confidence":     match.Confidence,
	}).Debug("quantum intent matched %q", match.Pattern)

	resp := a.quantum.Answer(ctx, quantum.Request{
		Query:    req.Message,
		Match:    match,
		Computer: req.QuantumComputer,
		Qubits:   req.Qubits,
	})
	return &Reply{Response: resp, Path: PathQuantum, Mode: core.ModeQuantum}, true
}

func (a *Agent) generic(ctx context.Context, req Request) *Reply {
	res := a.guard.Complete(ctx, llm.RouteRequest{
		System: prompts.GenericSystemPrompt(),
		Prompt: req.Message,
	}, llm.Fallback{Kind: "generic"})

	mode := req.Mode
	if mode == "" {
		mode = core.ModeStandard
	}
	return &Reply{Response: prompts.FormatResponse(res.Text), Path: PathGeneric, Mode: mode}
}

// responseText is the stored form of a reply.
func responseText(r core.StructuredReply) string {
	if r.Summary == "" {
		return r.Details
	}
	return "Summary: " + r.Summary + "\nDetails: " + r.Details
}

func (a *Agent) count(p Path) {
	switch p {
	case PathWeather:
		a.stats.weather.Add(1)
	case PathQuantum:
		a.stats.quantum.Add(1)
	case PathGeneric:
		a.stats.generic.Add(1)
	}
}

// Stats represents agent statistics
type Stats struct {
	Weather    int64 `json:"weather"`
	Quantum    int64 `json:"quantum"`
	Generic    int64 `json:"generic"`
	Unrecorded int64 `json:"unrecorded"`
}

// GetStats returns how many messages each path answered since start.
func (a *Agent) GetStats() Stats {
	return Stats{
		Weather:    a.stats.weather.Load(),
		Quantum:    a.stats.quantum.Load(),
		Generic:    a.stats.generic.Load(),
		Unrecorded: a.stats.unrecorded.Load(),
	}
}
