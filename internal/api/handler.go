package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wanderkit/wanderkit/internal/assist"
	"github.com/wanderkit/wanderkit/internal/cache"
	"github.com/wanderkit/wanderkit/internal/domain"
	"github.com/wanderkit/wanderkit/internal/maps"
	"github.com/wanderkit/wanderkit/internal/metrics"
	"github.com/wanderkit/wanderkit/internal/places"
	"github.com/wanderkit/wanderkit/internal/ratelimit"
	"github.com/wanderkit/wanderkit/internal/router"
)

type HandlerConfig struct {
	Router       *router.Router
	Assist       *assist.Service
	Images       *assist.ImageService
	Places       *places.Engine
	Maps         *maps.Client
	Cache        cache.Cache
	CacheTTL     time.Duration
	RateLimiter  ratelimit.RateLimiter
	RateLimitRPM int

	// StreamClient issues the raw SSE passthrough for /chat, where the
	// browser supplies its own OpenAI key.
	StreamClient  *http.Client
	OpenAIBaseURL string
}

type Handler struct {
	router       *router.Router
	assist       *assist.Service
	images       *assist.ImageService
	places       *places.Engine
	maps         *maps.Client
	cache        cache.Cache
	cacheTTL     time.Duration
	rateLimiter  ratelimit.RateLimiter
	rateLimitRPM int

	streamClient  *http.Client
	openAIBaseURL string

	mux *http.ServeMux
}

func NewHandler(cfg HandlerConfig) *Handler {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 2 * time.Minute
	}

	h := &Handler{
		router:        cfg.Router,
		assist:        cfg.Assist,
		images:        cfg.Images,
		places:        cfg.Places,
		maps:          cfg.Maps,
		cache:         cfg.Cache,
		cacheTTL:      cacheTTL,
		rateLimiter:   cfg.RateLimiter,
		rateLimitRPM:  cfg.RateLimitRPM,
		streamClient:  cfg.StreamClient,
		openAIBaseURL: cfg.OpenAIBaseURL,
		mux:           http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /chat", h.limited(h.handleChat))
	h.mux.HandleFunc("POST /chat-direct", h.limited(h.handleChatDirect))
	h.mux.HandleFunc("POST /code", h.limited(h.handleCode))
	h.mux.HandleFunc("POST /research", h.limited(h.handleResearch))
	h.mux.HandleFunc("POST /image", h.limited(h.handleImage))

	h.mux.HandleFunc("GET /geocode", h.handleGeocode)
	h.mux.HandleFunc("GET /geocode/reverse", h.handleReverseGeocode)
	h.mux.HandleFunc("GET /places", h.handlePlacesSearch)
	h.mux.HandleFunc("GET /places/search", h.handlePlacesSearch)
	h.mux.HandleFunc("GET /places/details", h.handlePlaceDetails)
	h.mux.HandleFunc("GET /places/trending", h.handleTrending)
	h.mux.HandleFunc("GET /places/category-counts", h.handleCategoryCounts)
	h.mux.HandleFunc("GET /places/location-suggestions", h.handleLocationSuggestions)
	h.mux.HandleFunc("GET /places/photo", h.handlePhoto)
	h.mux.HandleFunc("POST /places/ai-suggestions", h.limited(h.handleAISuggestions))
	h.mux.HandleFunc("POST /places/ai-descriptions", h.limited(h.handleAIDescriptions))

	h.mux.HandleFunc("GET /providers", h.handleProviders)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /health/live", h.handleHealth)
	h.mux.HandleFunc("GET /health/ready", h.handleHealth)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set("X-Request-ID", requestID)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)

	route := r.Method + " " + r.URL.Path
	metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

	if rec.status >= 500 {
		slog.Error("request failed", "route", route, "status", rec.status, "request_id", requestID)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// limited wraps LLM-backed routes in the per-client rate limiter. Every one
// of these costs upstream money.
func (h *Handler) limited(next http.HandlerFunc) http.HandlerFunc {
	if h.rateLimiter == nil || h.rateLimitRPM <= 0 {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)

		allowed, remaining, resetAt, err := h.rateLimiter.Allow(r.Context(), client, h.rateLimitRPM)
		if err != nil {
			slog.Error("rate limiter error", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error", nil)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.rateLimitRPM))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		if !allowed {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}

		next(w, r)
	}
}

// clientIP extracts the caller address for rate limiting. Only the first
// X-Forwarded-For element is the client; the rest are intermediate proxies.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requireMaps and requirePlaces report whether the travel-guide backends are
// configured, writing the standard missing-credential response when not.
func (h *Handler) requireMaps(w http.ResponseWriter) bool {
	if h.maps == nil {
		writeError(w, http.StatusInternalServerError, "API key is not configured on the server", nil)
		return false
	}
	return true
}

func (h *Handler) requirePlaces(w http.ResponseWriter) bool {
	if h.places == nil {
		writeError(w, http.StatusInternalServerError, "API key is not configured on the server", nil)
		return false
	}
	return true
}

func (h *Handler) handleProviders(w http.ResponseWriter, r *http.Request) {
	configured := make(map[string]bool)
	for _, kind := range []router.Kind{router.KindOpenAI, router.KindGemini, router.KindAnthropic} {
		_, ok := h.router.Provider(kind)
		configured[string(kind)] = ok
	}

	writeJSON(w, http.StatusOK, map[string]any{"providers": configured})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError emits the error envelope every failure wears: {error, details?}.
func writeError(w http.ResponseWriter, status int, message string, details any) {
	body := map[string]any{"error": message}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

// writeDomainError maps an error to the taxonomy's HTTP status and envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	var upErr *domain.UpstreamError
	var malformed *domain.MalformedOutputError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, domain.ErrUnsupportedModel):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, domain.ErrMissingCredential):
		// Never include the credential value or the wrapped detail.
		writeError(w, http.StatusInternalServerError, "API key is not configured on the server", nil)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.As(err, &malformed):
		writeError(w, http.StatusInternalServerError, "failed to parse model response as JSON", malformed.Raw)
	case errors.As(err, &upErr):
		status := upErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		message := upErr.Message
		if message == "" {
			message = "upstream request failed"
		}
		writeError(w, status, message, upErr.RawBody)
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		writeError(w, http.StatusGatewayTimeout, "upstream request timed out", nil)
	default:
		writeError(w, http.StatusInternalServerError, "An error occurred during your request.", err.Error())
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// serveCached wraps an idempotent GET route with the short-lived response
// cache. `fresh=true` busts the cache; only successful responses enter it.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, route string, compute func(ctx context.Context) (any, error)) {
	params := r.URL.Query()
	skip := params.Get("fresh") == "true"
	params.Del("fresh")

	var key string
	if h.cache != nil && !skip {
		key = cache.Key(route, params)
		if cached, ok := h.cache.Get(r.Context(), key); ok {
			metrics.CacheHits.WithLabelValues(route).Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
		metrics.CacheMisses.WithLabelValues(route).Inc()
	}

	v, err := compute(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payload, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "An error occurred during your request.", err.Error())
		return
	}

	if h.cache != nil && key != "" {
		if err := h.cache.Set(r.Context(), key, payload, h.cacheTTL); err != nil {
			slog.Warn("failed to cache response", "route", route, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// parseCoordinates parses a "lat,lng" query parameter. Empty input is not
// an error; the caller decides whether coordinates are required.
func parseCoordinates(value string) (*domain.Coordinates, error) {
	if value == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return nil, errors.New("location must be in 'latitude,longitude' format")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, errors.New("location must be in 'latitude,longitude' format")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, errors.New("location must be in 'latitude,longitude' format")
	}

	return &domain.Coordinates{Lat: lat, Lng: lng}, nil
}
