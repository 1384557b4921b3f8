package openai

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

const DefaultBaseURL = "https://api.openai.com/v1"

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
	return router.KindOpenAI
}

// checkKey rejects blank or malformed credentials before any network call.
// OpenAI keys always start with "sk-".
func (p *Provider) checkKey() error {
	if strings.TrimSpace(p.apiKey) == "" {
		return fmt.Errorf("openai: %w", domain.ErrMissingCredential)
	}
	if !strings.HasPrefix(p.apiKey, "sk-") {
		return fmt.Errorf("openai: malformed key: %w", domain.ErrMissingCredential)
	}
	return nil
}

func (p *Provider) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	if err := p.checkKey(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "openai.complete")
	defer span.End()

	body := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}

	var chatResp chatResponse
	if err := p.postJSON(ctx, "/chat/completions", body, &chatResp); err != nil {
		return nil, err
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response contains no choices")
	}

	choice := chatResp.Choices[0].Message
	return &domain.Completion{
		Content: choice.Content,
		Role:    choice.Role,
	}, nil
}

// ImageRequest is one call to the images endpoint. DALL-E 3 only accepts
// N=1; the caller fans out extra requests.
type ImageRequest struct {
	Prompt  string
	N       int
	Size    string
	Model   string
	Quality string
}

func (p *Provider) GenerateImages(ctx context.Context, req ImageRequest) ([]string, error) {
	if err := p.checkKey(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "openai.images")
	defer span.End()

	quality := req.Quality
	if quality == "" {
		quality = "standard"
	}
	n := req.N
	if n < 1 {
		n = 1
	}

	body := imageRequest{
		Prompt:         req.Prompt,
		N:              n,
		Size:           req.Size,
		Model:          req.Model,
		Quality:        quality,
		ResponseFormat: "url",
	}

	var imgResp imageResponse
	if err := p.postJSON(ctx, "/images/generations", body, &imgResp); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(imgResp.Data))
	for _, item := range imgResp.Data {
		urls = append(urls, item.URL)
	}
	return urls, nil
}

func (p *Provider) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// StreamChat issues a streaming chat completion with the given key and
// returns the raw SSE body for passthrough. The caller owns closing it.
// Used by the /chat route where the client supplies its own key.
func StreamChat(ctx context.Context, client *http.Client, baseURL, apiKey string, req domain.CompletionRequest) (io.ReadCloser, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	body := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		Stream:      true,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, upstreamError(resp)
	}

	return resp.Body, nil
}

func upstreamError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var errBody struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(bodyBytes, &errBody)

	return &domain.UpstreamError{
		Provider:   "openai",
		StatusCode: resp.StatusCode,
		Message:    errBody.Error.Message,
		RawBody:    string(bodyBytes),
	}
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int                `json:"index"`
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

type imageRequest struct {
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Model          string `json:"model"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}
