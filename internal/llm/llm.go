// Package llm provides text completion for chat replies.
package llm

import "context"

// Provider represents an LLM provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
	ProviderOllama Provider = "ollama"
)

// ParseProvider maps a configured name to a Provider, defaulting to OpenAI.
func ParseProvider(s string) Provider {
	switch Provider(s) {
	case ProviderClaude, ProviderOllama:
		return Provider(s)
	default:
		return ProviderOpenAI
	}
}

// Options tune a single completion. Zero values use client defaults.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// chatProvider is the surface every client offers the router.
type chatProvider interface {
	Chat(ctx context.Context, system, userMessage string, opts Options) (string, error)
	IsConfigured() bool
}
