// Package provider defines the LLM provider interface and implementations
// used for code summarization.
package provider

import (
	"context"
	"errors"
)

// ErrProviderNotFound is returned when a requested provider doesn't exist.
var ErrProviderNotFound = errors.New("provider not found")

// Message represents a chat message.
type Message struct {
	Role    string
	Content string
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Name returns the provider's identifier.
	Name() string

	// Chat sends messages and returns the complete response text.
	Chat(ctx context.Context, messages []Message) (string, error)

	// Close closes idle HTTP connections and cleans up resources.
	Close() error
}

// Factory builds a configured Provider.
type Factory interface {
	Name() string
	Create(endpoint, model string, temperature float64) Provider
}

// Registry holds available provider factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry preloaded with the built-in providers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.RegisterFactory("openai", openAIFactory{})
	r.RegisterFactory("mock", NewMockFactory("mock", "{}"))
	return r
}

func (r *Registry) RegisterFactory(name string, f Factory) {
	r.factories[name] = f
}

func (r *Registry) Create(name, endpoint, model string, temperature float64) (Provider, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return f.Create(endpoint, model, temperature), nil
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
