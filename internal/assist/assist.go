// Package assist holds the completion-backed features: chat, code revision,
// research and the travel-guide AI enrichments. Each builds a prompt, runs
// it through the provider router and post-processes the model output.
package assist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wanderkit/wanderkit/internal/domain"
	"github.com/wanderkit/wanderkit/internal/extract"
	"github.com/wanderkit/wanderkit/internal/router"
)

const (
	ActionRevise  = "revise"
	ActionExplain = "explain"

	// The travel enrichments always run on the cheap OpenAI model; they
	// are background flavor text, not user-selected completions.
	travelModel = "gpt-3.5-turbo"

	chatTemperature = 0.7
	codeTemperature = 0.3
)

type Service struct {
	router *router.Router
	log    *slog.Logger
}

func NewService(r *router.Router, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{router: r, log: log}
}

func f64(v float64) *float64 { return &v }

// Chat runs a conversation turn on the selected model.
func (s *Service) Chat(ctx context.Context, messages []domain.ChatMessage, model string) (*domain.Completion, error) {
	return s.router.Complete(ctx, domain.CompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: f64(chatTemperature),
	})
}

type CodeRequest struct {
	Code     string
	Language string
	Action   string
	Model    string
}

// Code revises or explains a snippet. Revision output is reduced to the
// first fenced code block, since models narrate around the code even when
// told not to. Temperature stays low to favor deterministic output.
func (s *Service) Code(ctx context.Context, req CodeRequest) (string, error) {
	if strings.TrimSpace(req.Code) == "" {
		return "", fmt.Errorf("%w: code is required", domain.ErrInvalidInput)
	}
	if req.Action != ActionRevise && req.Action != ActionExplain {
		return "", fmt.Errorf("%w: action must be %q or %q", domain.ErrInvalidInput, ActionRevise, ActionExplain)
	}

	completion, err := s.router.Complete(ctx, domain.CompletionRequest{
		Model: req.Model,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: codeSystemPrompt(req.Language, req.Action)},
			{Role: domain.RoleUser, Content: codeUserPrompt(req.Code, req.Language, req.Action)},
		},
		Temperature: f64(codeTemperature),
		MaxTokens:   1500,
	})
	if err != nil {
		return "", err
	}

	result := completion.Content
	if req.Action == ActionRevise {
		result = extract.CodeBlock(result)
	}
	return result, nil
}

// Research asks the model for a topic summary with sources and recovers the
// JSON from its free-text reply.
func (s *Service) Research(ctx context.Context, query, model string) (*domain.ResearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	completion, err := s.router.Complete(ctx, domain.CompletionRequest{
		Model: model,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: researchSystemPrompt},
			{Role: domain.RoleUser, Content: "Research this topic: " + query},
		},
		Temperature: f64(chatTemperature),
		MaxTokens:   1500,
	})
	if err != nil {
		return nil, err
	}

	var result domain.ResearchResult
	if err := extract.Unmarshal(completion.Content, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type SuggestionsRequest struct {
	Query     string
	Location  string
	Interests []string
}

// PlaceSuggestions asks for five places to visit and tolerates every JSON
// wrapping the model is known to produce.
func (s *Service) PlaceSuggestions(ctx context.Context, req SuggestionsRequest) ([]domain.Suggestion, error) {
	if strings.TrimSpace(req.Location) == "" {
		return nil, fmt.Errorf("%w: location is required", domain.ErrInvalidInput)
	}

	completion, err := s.router.Complete(ctx, domain.CompletionRequest{
		Model: travelModel,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: suggestionsSystemPrompt},
			{Role: domain.RoleUser, Content: suggestionsPrompt(req.Location, req.Query, req.Interests)},
		},
		Temperature: f64(chatTemperature),
		MaxTokens:   500,
	})
	if err != nil {
		return nil, err
	}

	return extract.Suggestions(completion.Content)
}

type NarrativeRequest struct {
	Name     string
	Type     string
	Location string
	Rating   float64
	Types    []string
}

type Narrative struct {
	Description     string `json:"description"`
	Recommendations string `json:"recommendations"`
}

// PlaceNarrative generates a description and visitor tips for a place. The
// tips call is optional enrichment: when it fails the narrative ships with
// the description alone.
func (s *Service) PlaceNarrative(ctx context.Context, req NarrativeRequest) (*Narrative, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: place name is required", domain.ErrInvalidInput)
	}

	description, err := s.router.Complete(ctx, domain.CompletionRequest{
		Model: travelModel,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: narrativeSystemPrompt},
			{Role: domain.RoleUser, Content: narrativePrompt(req.Name, req.Type, req.Location, req.Rating, req.Types)},
		},
		Temperature: f64(chatTemperature),
		MaxTokens:   150,
	})
	if err != nil {
		return nil, err
	}

	narrative := &Narrative{Description: strings.TrimSpace(description.Content)}

	tips, err := s.router.Complete(ctx, domain.CompletionRequest{
		Model: travelModel,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: tipsSystemPrompt},
			{Role: domain.RoleUser, Content: tipsPrompt(req.Name, req.Type, req.Location)},
		},
		Temperature: f64(chatTemperature),
		MaxTokens:   100,
	})
	if err != nil {
		s.log.Warn("tips generation failed, returning description only", "place", req.Name, "error", err)
		return narrative, nil
	}

	narrative.Recommendations = strings.TrimSpace(tips.Content)
	return narrative, nil
}
