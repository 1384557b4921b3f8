package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wanderkit/wanderkit/internal/domain"
	"github.com/wanderkit/wanderkit/internal/httputil"
	"github.com/wanderkit/wanderkit/internal/router"
	"github.com/wanderkit/wanderkit/internal/telemetry"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func New(apiKey, baseURL string, client *http.Client) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = httputil.NewClientWithTimeout(120 * time.Second)
	}
	return &Provider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
	}
}

func (p *Provider) Kind() router.Kind {
	return router.KindGemini
}

func (p *Provider) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return nil, fmt.Errorf("gemini: %w", domain.ErrMissingCredential)
	}

	ctx, span := telemetry.StartSpan(ctx, "gemini.complete")
	defer span.End()

	geminiReq := toGeminiRequest(req)

	payload, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		p.baseURL, url.PathEscape(req.Model), url.QueryEscape(p.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)

		var errBody struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(bodyBytes, &errBody)

		return nil, &domain.UpstreamError{
			Provider:   "gemini",
			StatusCode: resp.StatusCode,
			Message:    errBody.Error.Message,
			RawBody:    string(bodyBytes),
		}
	}

	var geminiResp generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: response contains no candidates")
	}

	var sb strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	return &domain.Completion{
		Content: sb.String(),
		Role:    domain.RoleAssistant,
	}, nil
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Role  string `json:"role"`
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// toGeminiRequest translates the provider-agnostic message list into
// Gemini's contents block. Gemini's vocabulary names the assistant role
// "model", and the v1beta API has no system field, so system turns are
// folded into the first user turn.
func toGeminiRequest(req domain.CompletionRequest) generateContentRequest {
	var system strings.Builder
	contents := make([]content, 0, len(req.Messages))

	for _, m := range req.Messages {
		if m.Role == domain.RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
			continue
		}

		role := m.Role
		if role == domain.RoleAssistant {
			role = "model"
		}

		text := m.Content
		if system.Len() > 0 && role == domain.RoleUser {
			text = system.String() + "\n\n" + text
			system.Reset()
		}

		contents = append(contents, content{
			Role:  role,
			Parts: []part{{Text: text}},
		})
	}

	// System prompt with no user turn to attach to becomes its own turn.
	if system.Len() > 0 {
		contents = append(contents, content{
			Role:  domain.RoleUser,
			Parts: []part{{Text: system.String()}},
		})
	}

	out := generateContentRequest{Contents: contents}
	if req.Temperature != nil || req.MaxTokens > 0 {
		out.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}
	return out
}
