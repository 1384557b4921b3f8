package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wanderkit/wanderkit/internal/assist"
	"github.com/wanderkit/wanderkit/internal/domain"
	"github.com/wanderkit/wanderkit/internal/provider/openai"
)

type chatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
	APIKey   string               `json:"apiKey"`
	Model    string               `json:"model"`
}

// handleChat streams the upstream SSE body straight through to the browser.
// The client supplies its own OpenAI key on this route.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "apiKey is required", nil)
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required", nil)
		return
	}

	model := req.Model
	if model == "" {
		model = "gpt-3.5-turbo"
	}

	temp := 0.7
	body, err := openai.StreamChat(r.Context(), h.streamClient, h.openAIBaseURL, req.APIKey, domain.CompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: &temp,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, canFlush := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				slog.Warn("chat stream interrupted", "error", readErr)
			}
			return
		}
	}
}

type chatDirectRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
	Model    string               `json:"model"`
}

func (h *Handler) handleChatDirect(w http.ResponseWriter, r *http.Request) {
	var req chatDirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required", nil)
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required", nil)
		return
	}

	completion, err := h.assist.Chat(r.Context(), req.Messages, req.Model)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, completion)
}

type codeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Action   string `json:"action"`
	Model    string `json:"model"`
}

func (h *Handler) handleCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if req.Language == "" {
		req.Language = "javascript"
	}
	if req.Action == "" {
		req.Action = assist.ActionRevise
	}
	if req.Model == "" {
		req.Model = "gpt-4"
	}

	result, err := h.assist.Code(r.Context(), assist.CodeRequest{
		Code:     req.Code,
		Language: req.Language,
		Action:   req.Action,
		Model:    req.Model,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"result": result,
		"action": req.Action,
	})
}

type researchRequest struct {
	Query string `json:"query"`
	Model string `json:"model"`
}

func (h *Handler) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if req.Model == "" {
		req.Model = "gpt-4"
	}

	result, err := h.assist.Research(r.Context(), req.Query, req.Model)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
	Size   string `json:"size"`
	Style  string `json:"style"`
	Model  string `json:"model"`
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if h.images == nil {
		writeError(w, http.StatusInternalServerError, "API key is not configured on the server", nil)
		return
	}

	urls, err := h.images.Generate(r.Context(), assist.ImageRequest{
		Prompt: req.Prompt,
		Count:  req.Count,
		Size:   req.Size,
		Style:  req.Style,
		Model:  req.Model,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"images": urls})
}

type aiSuggestionsRequest struct {
	Query     string   `json:"query"`
	Location  string   `json:"location"`
	Interests []string `json:"interests"`
}

func (h *Handler) handleAISuggestions(w http.ResponseWriter, r *http.Request) {
	var req aiSuggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	suggestions, err := h.assist.PlaceSuggestions(r.Context(), assist.SuggestionsRequest{
		Query:     req.Query,
		Location:  req.Location,
		Interests: req.Interests,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

type aiDescriptionsRequest struct {
	Place struct {
		Name   string   `json:"name"`
		Rating float64  `json:"rating"`
		Types  []string `json:"types"`
	} `json:"place"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

func (h *Handler) handleAIDescriptions(w http.ResponseWriter, r *http.Request) {
	var req aiDescriptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	narrative, err := h.assist.PlaceNarrative(r.Context(), assist.NarrativeRequest{
		Name:     req.Place.Name,
		Type:     req.Type,
		Location: req.Location,
		Rating:   req.Place.Rating,
		Types:    req.Place.Types,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, narrative)
}
