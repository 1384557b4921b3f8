package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wanderkit/wanderkit/internal/assist"
	"github.com/wanderkit/wanderkit/internal/cache"
	"github.com/wanderkit/wanderkit/internal/domain"
	"github.com/wanderkit/wanderkit/internal/maps"
	"github.com/wanderkit/wanderkit/internal/places"
	"github.com/wanderkit/wanderkit/internal/router"
)

type mockProvider struct {
	kind     router.Kind
	response *domain.Completion
}

func (m *mockProvider) Kind() router.Kind { return m.kind }
func (m *mockProvider) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	if m.response != nil {
		return m.response, nil
	}
	return &domain.Completion{Content: "ok", Role: domain.RoleAssistant}, nil
}

type mockRateLimiter struct {
	allowFunc func(ctx context.Context, clientID string, limit int) (bool, int, time.Time, error)
}

func (m *mockRateLimiter) Allow(ctx context.Context, clientID string, limit int) (bool, int, time.Time, error) {
	if m.allowFunc != nil {
		return m.allowFunc(ctx, clientID, limit)
	}
	return true, limit - 1, time.Now().Add(time.Minute), nil
}

// newTestHandler wires a handler against an httptest Maps upstream and a
// single mock OpenAI provider.
func newTestHandler(t *testing.T, mapsHandler http.HandlerFunc) *Handler {
	t.Helper()

	r := router.New()
	r.Register(&mockProvider{kind: router.KindOpenAI})

	var mapsClient *maps.Client
	var engine *places.Engine
	if mapsHandler != nil {
		srv := httptest.NewServer(mapsHandler)
		t.Cleanup(srv.Close)
		mapsClient = maps.NewClient("maps-key", srv.URL, srv.Client())
		engine = places.NewEngine(mapsClient, nil)
	}

	return NewHandler(HandlerConfig{
		Router:   r,
		Assist:   assist.NewService(r, nil),
		Places:   engine,
		Maps:     mapsClient,
		Cache:    cache.NewInMemoryCache(),
		CacheTTL: time.Minute,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestProviders(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/providers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Providers map[string]bool `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Providers["openai"] || body.Providers["gemini"] || body.Providers["anthropic"] {
		t.Errorf("unexpected provider map: %v", body.Providers)
	}
}

func TestChatDirect(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/chat-direct",
		`{"model": "gpt-4", "messages": [{"role": "user", "content": "hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var completion domain.Completion
	if err := json.Unmarshal(rec.Body.Bytes(), &completion); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if completion.Content != "ok" || completion.Role != domain.RoleAssistant {
		t.Errorf("unexpected completion: %+v", completion)
	}
}

func TestChatDirect_UnsupportedModel(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/chat-direct",
		`{"model": "llama-3", "messages": [{"role": "user", "content": "hi"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChatDirect_MissingProviderDoesNotLeak(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/chat-direct",
		`{"model": "claude-3-opus-20240229", "messages": [{"role": "user", "content": "hi"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	msg, _ := body["error"].(string)
	if msg != "API key is not configured on the server" {
		t.Errorf("error message = %q", msg)
	}
}

func TestChatDirect_Validation(t *testing.T) {
	h := newTestHandler(t, nil)

	for _, body := range []string{
		`not json`,
		`{"model": "gpt-4"}`,
		`{"messages": [{"role": "user", "content": "hi"}]}`,
	} {
		rec := doJSON(t, h, http.MethodPost, "/chat-direct", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestChat_RequiresClientKey(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/chat",
		`{"messages": [{"role": "user", "content": "hi"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRateLimiting(t *testing.T) {
	r := router.New()
	r.Register(&mockProvider{kind: router.KindOpenAI})

	denied := &mockRateLimiter{
		allowFunc: func(ctx context.Context, clientID string, limit int) (bool, int, time.Time, error) {
			return false, 0, time.Now().Add(time.Minute), nil
		},
	}

	h := NewHandler(HandlerConfig{
		Router:       r,
		Assist:       assist.NewService(r, nil),
		RateLimiter:  denied,
		RateLimitRPM: 5,
	})

	rec := doJSON(t, h, http.MethodPost, "/chat-direct",
		`{"model": "gpt-4", "messages": [{"role": "user", "content": "hi"}]}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "5" {
		t.Errorf("X-RateLimit-Limit = %q", rec.Header().Get("X-RateLimit-Limit"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimiting_GETRoutesExempt(t *testing.T) {
	r := router.New()
	r.Register(&mockProvider{kind: router.KindOpenAI})

	denied := &mockRateLimiter{
		allowFunc: func(ctx context.Context, clientID string, limit int) (bool, int, time.Time, error) {
			return false, 0, time.Now().Add(time.Minute), nil
		},
	}

	h := NewHandler(HandlerConfig{
		Router:       r,
		RateLimiter:  denied,
		RateLimitRPM: 5,
	})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("read routes should not be rate limited: %d", rec.Code)
	}
}

func TestGeocode(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{
					"formatted_address": "Paris, France",
					"geometry":          map[string]any{"location": map[string]float64{"lat": 48.85, "lng": 2.35}},
				},
			},
		})
	})

	rec := doJSON(t, h, http.MethodGet, "/geocode?address=Paris", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var body struct {
		Location struct {
			Lat              float64 `json:"lat"`
			Lng              float64 `json:"lng"`
			FormattedAddress string  `json:"formatted_address"`
		} `json:"location"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Location.FormattedAddress != "Paris, France" || body.Location.Lat != 48.85 {
		t.Errorf("unexpected body: %s", rec.Body)
	}
}

func TestGeocode_NotFound(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS", "results": []any{}})
	})

	rec := doJSON(t, h, http.MethodGet, "/geocode?address=nowhere", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGeocode_MissingAddress(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/geocode", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServeCached(t *testing.T) {
	upstreamCalls := 0
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{"formatted_address": "Paris, France", "geometry": map[string]any{"location": map[string]float64{"lat": 48.85, "lng": 2.35}}},
			},
		})
	})

	first := doJSON(t, h, http.MethodGet, "/geocode?address=Paris", "")
	if first.Header().Get("X-Cache") != "MISS" {
		t.Errorf("first request X-Cache = %q", first.Header().Get("X-Cache"))
	}

	second := doJSON(t, h, http.MethodGet, "/geocode?address=Paris", "")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second request X-Cache = %q", second.Header().Get("X-Cache"))
	}
	if upstreamCalls != 1 {
		t.Errorf("upstream called %d times, want 1", upstreamCalls)
	}
	if first.Body.String() != second.Body.String() {
		t.Error("cached body differs from computed body")
	}

	fresh := doJSON(t, h, http.MethodGet, "/geocode?address=Paris&fresh=true", "")
	if fresh.Header().Get("X-Cache") == "HIT" {
		t.Error("fresh=true should bypass the cache")
	}
	if upstreamCalls != 2 {
		t.Errorf("fresh request should reach upstream, calls = %d", upstreamCalls)
	}
}

func TestServeCached_ErrorsNotCached(t *testing.T) {
	upstreamCalls := 0
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS", "results": []any{}})
	})

	doJSON(t, h, http.MethodGet, "/geocode?address=nowhere", "")
	doJSON(t, h, http.MethodGet, "/geocode?address=nowhere", "")

	if upstreamCalls != 2 {
		t.Errorf("not-found responses must not be cached, upstream calls = %d", upstreamCalls)
	}
}

func TestPlacesSearch_InvalidLocation(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/places/search?query=pizza&location=garbage", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPlacesSearch(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{"place_id": "p1", "name": "Pizza Place", "rating": 4.2},
			},
		})
	})

	rec := doJSON(t, h, http.MethodGet, "/places/search?query=pizza+in+brooklyn", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var body struct {
		Results []domain.Place `json:"results"`
		Status  string         `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Results) != 1 || body.Results[0].Name != "Pizza Place" {
		t.Errorf("unexpected body: %s", rec.Body)
	}
}

func TestPlaceDetails_WrapsPlace(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"place_id": "p1",
				"name":     "Blue Door Cafe",
				"rating":   4.6,
			},
		})
	})

	rec := doJSON(t, h, http.MethodGet, "/places/details?place_id=p1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var body struct {
		Place *domain.Place `json:"place"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Place == nil {
		t.Fatalf("response must wrap the record in a place key: %s", rec.Body)
	}
	if body.Place.ID != "p1" || body.Place.Name != "Blue Door Cafe" {
		t.Errorf("unexpected place: %+v", body.Place)
	}
}

func TestTrending_CountOnly(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{"place_id": "p1"}, {"place_id": "p2"},
			},
		})
	})

	rec := doJSON(t, h, http.MethodGet, "/places/trending?location=40.7,-74.0&type=cafe&countOnly=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var body struct {
		Category   string `json:"category"`
		TotalFound int    `json:"totalFound"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Category != "cafe" || body.TotalFound != 2 {
		t.Errorf("unexpected body: %s", rec.Body)
	}
}

func TestPhoto_PlaceholderRedirectOnFailure(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	rec := doJSON(t, h, http.MethodGet, "/places/photo?reference=ref1&maxwidth=400", "")
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.Contains(location, "via.placeholder.com/400x300") {
		t.Errorf("placeholder location = %q", location)
	}
}

func TestPhoto_ClampsMaxWidth(t *testing.T) {
	var upstreamWidth string
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		upstreamWidth = r.URL.Query().Get("maxwidth")
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	})

	rec := doJSON(t, h, http.MethodGet, "/places/photo?reference=ref1&maxwidth=99999", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if upstreamWidth != "1600" {
		t.Errorf("oversized maxwidth should clamp to 1600, upstream got %q", upstreamWidth)
	}
}

func TestPhoto_StreamsUpstreamBytes(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	})

	rec := doJSON(t, h, http.MethodGet, "/places/photo?reference=ref1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != photoCacheControl {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
	if rec.Body.String() != "jpeg-bytes" {
		t.Errorf("body = %q", rec.Body)
	}
}

func TestClientIP_FirstForwardedAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1, 10.0.0.2")
	if got := clientIP(req); got != "1.2.3.4" {
		t.Errorf("clientIP = %q, want the first forwarded address", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "5.6.7.8:1234"
	if got := clientIP(req); got != "5.6.7.8" {
		t.Errorf("clientIP = %q, want the remote host", got)
	}
}

func TestParseCoordinates(t *testing.T) {
	coords, err := parseCoordinates("40.7128, -74.0060")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coords.Lat != 40.7128 || coords.Lng != -74.0060 {
		t.Errorf("unexpected coords: %+v", coords)
	}

	if coords, err := parseCoordinates(""); err != nil || coords != nil {
		t.Errorf("empty input should be nil, nil: %v, %v", coords, err)
	}

	for _, bad := range []string{"garbage", "1,2,3", "a,b"} {
		if _, err := parseCoordinates(bad); err == nil {
			t.Errorf("parseCoordinates(%q) should fail", bad)
		}
	}
}

func TestImage_RequiresPrompt(t *testing.T) {
	r := router.New()
	h := NewHandler(HandlerConfig{
		Router: r,
		Images: assist.NewImageService(nil),
	})

	rec := doJSON(t, h, http.MethodPost, "/image", `{"count": 2}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
