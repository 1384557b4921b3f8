// Package router maps a model identifier to one of the configured upstream
// providers and hides their incompatible request/response shapes behind a
// single Complete call.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/wanderkit/wanderkit/internal/domain"
)

// Kind identifies an upstream completion service. The provider is resolved
// once at the boundary from the model id; nothing downstream re-derives it
// from the string.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindGemini    Kind = "gemini"
	KindAnthropic Kind = "anthropic"
)

// modelPrefixes is the single source of truth for model-id dispatch.
var modelPrefixes = []struct {
	prefix string
	kind   Kind
}{
	{"gpt-", KindOpenAI},
	{"dall-e", KindOpenAI},
	{"gemini-", KindGemini},
	{"claude-", KindAnthropic},
}

// Resolve returns the provider kind for a model id, or ErrUnsupportedModel
// for an unrecognized prefix. No network call is ever made for those.
func Resolve(model string) (Kind, error) {
	for _, mp := range modelPrefixes {
		if strings.HasPrefix(model, mp.prefix) {
			return mp.kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedModel, model)
}

type Provider interface {
	Kind() Kind
	Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error)
}

type Router struct {
	providers map[Kind]Provider
}

func New() *Router {
	return &Router{providers: make(map[Kind]Provider)}
}

func (r *Router) Register(p Provider) {
	r.providers[p.Kind()] = p
}

// Complete validates the request, picks the provider for the model and
// returns its normalized completion. Credential problems surface before any
// upstream call.
func (r *Router) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", domain.ErrInvalidInput)
	}
	if req.Model == "" {
		return nil, fmt.Errorf("%w: model is required", domain.ErrInvalidInput)
	}

	kind, err := Resolve(req.Model)
	if err != nil {
		return nil, err
	}

	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", kind, domain.ErrMissingCredential)
	}

	return p.Complete(ctx, req)
}

func (r *Router) Provider(kind Kind) (Provider, bool) {
	p, ok := r.providers[kind]
	return p, ok
}

func (r *Router) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	return kinds
}
