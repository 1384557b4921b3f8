package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wanderkit/wanderkit/internal/domain"
	"github.com/wanderkit/wanderkit/internal/httputil"
	"github.com/wanderkit/wanderkit/internal/router"
	"github.com/wanderkit/wanderkit/internal/telemetry"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	// Claude requires an explicit output cap, unlike the other providers.
	defaultMaxTokens = 1024
)

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
	return router.KindAnthropic
}

func (p *Provider) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return nil, fmt.Errorf("anthropic: %w", domain.ErrMissingCredential)
	}

	ctx, span := telemetry.StartSpan(ctx, "anthropic.complete")
	defer span.End()

	payload, err := json.Marshal(toAnthropicRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

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
			Provider:   "anthropic",
			StatusCode: resp.StatusCode,
			Message:    errBody.Error.Message,
			RawBody:    string(bodyBytes),
		}
	}

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var sb strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &domain.Completion{
		Content: sb.String(),
		Role:    domain.RoleAssistant,
	}, nil
}

type messagesRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	System      string               `json:"system,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
}

type messagesResponse struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// toAnthropicRequest hoists the system message out of the turn list into the
// dedicated system field. The remaining turns keep their original order.
func toAnthropicRequest(req domain.CompletionRequest) messagesRequest {
	var system string
	messages := make([]domain.ChatMessage, 0, len(req.Messages))

	for _, m := range req.Messages {
		if m.Role == domain.RoleSystem {
			system = m.Content
			continue
		}
		messages = append(messages, m)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return messagesRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: req.Temperature,
	}
}
