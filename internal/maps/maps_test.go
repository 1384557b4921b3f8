package maps

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wanderkit/wanderkit/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("maps-key", srv.URL, srv.Client())
}

func TestGeocode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/api/geocode/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "maps-key" {
			t.Error("api key missing from request")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{
					"formatted_address": "Paris, France",
					"geometry":          map[string]any{"location": map[string]float64{"lat": 48.85, "lng": 2.35}},
					"types":             []string{"locality"},
				},
			},
		})
	})

	got, err := c.Geocode(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.FormattedAddress != "Paris, France" {
		t.Errorf("address = %q", got.FormattedAddress)
	}
	if got.Location.Lat != 48.85 || got.Location.Lng != 2.35 {
		t.Errorf("location = %+v", got.Location)
	}
}

func TestGeocode_ZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS", "results": []any{}})
	})

	_, err := c.Geocode(context.Background(), "xyzzy nowhere")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGeocode_UpstreamStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":        "REQUEST_DENIED",
			"error_message": "The provided API key is invalid.",
		})
	})

	_, err := c.Geocode(context.Background(), "Paris")

	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", upErr.StatusCode)
	}
	if !strings.Contains(upErr.Message, "REQUEST_DENIED") {
		t.Errorf("message should carry the upstream status: %q", upErr.Message)
	}
}

func TestReverseGeocode_PrefersLocality(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{
					"formatted_address": "12 Rue de Rivoli, 75001 Paris, France",
					"geometry":          map[string]any{"location": map[string]float64{"lat": 48.85, "lng": 2.35}},
					"types":             []string{"street_address"},
				},
				{
					"formatted_address": "Paris, France",
					"geometry":          map[string]any{"location": map[string]float64{"lat": 48.85, "lng": 2.35}},
					"types":             []string{"locality", "political"},
				},
			},
		})
	})

	got, err := c.ReverseGeocode(context.Background(), 48.85, 2.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Address != "Paris, France" {
		t.Errorf("expected locality-level address, got %q", got.Address)
	}
	if len(got.Results) != 2 {
		t.Errorf("full candidate list should be preserved, got %d", len(got.Results))
	}
}

func TestTextSearch_NormalizesPlaces(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{
					"place_id":           "p1",
					"name":               "Chez Test",
					"formatted_address":  "1 Main St",
					"rating":             4.5,
					"user_ratings_total": 321,
					"price_level":        3,
					"types":              []string{"restaurant"},
					"opening_hours":      map[string]any{"open_now": true},
					"photos": []map[string]any{
						{"photo_reference": "ref1", "width": 1600, "height": 1200},
					},
				},
			},
		})
	})

	page, err := c.TextSearch(context.Background(), TextSearchParams{Query: "chez test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(page.Places) != 1 {
		t.Fatalf("expected 1 place, got %d", len(page.Places))
	}
	p := page.Places[0]
	if p.PriceLevel != "$$$" {
		t.Errorf("price level = %q, want $$$", p.PriceLevel)
	}
	if !p.OpenNow {
		t.Error("open_now not mapped")
	}
	if p.Description != "A place to enjoy delicious meals" {
		t.Errorf("type description = %q", p.Description)
	}
	if !strings.Contains(p.Image, PhotoProxyPath) || !strings.Contains(p.Image, "maxwidth=400") {
		t.Errorf("photo should be rewritten to the proxy at list width: %q", p.Image)
	}
}

func TestFindPlace_EmptyCandidatesIsNormal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("inputtype"); got != "textquery" {
			t.Errorf("inputtype = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "OK", "candidates": []any{}})
	})

	page, err := c.FindPlace(context.Background(), FindPlaceParams{Input: "nowhere"})
	if err != nil {
		t.Fatalf("empty candidates should not be an error: %v", err)
	}
	if len(page.Places) != 0 {
		t.Errorf("expected no places, got %d", len(page.Places))
	}
}

func TestFindPlace_LocationBias(t *testing.T) {
	var bias string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		bias = r.URL.Query().Get("locationbias")
		json.NewEncoder(w).Encode(map[string]any{"status": "OK", "candidates": []any{}})
	})

	_, err := c.FindPlace(context.Background(), FindPlaceParams{
		Input:      "Wendys",
		Bias:       &domain.Coordinates{Lat: 40.7, Lng: -74.0},
		BiasRadius: 15000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(bias, "circle:15000@") {
		t.Errorf("locationbias = %q", bias)
	}
}

func TestDetails_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "NOT_FOUND"})
	})

	_, err := c.Details(context.Background(), "missing-id")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDetails_FullRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"place_id":               "p1",
				"name":                   "Chez Test",
				"formatted_phone_number": "+33 1 23 45 67 89",
				"website":                "https://chez.test",
				"opening_hours": map[string]any{
					"open_now":     true,
					"weekday_text": []string{"Monday: 9-5"},
				},
				"reviews": []map[string]any{
					{"author_name": "A", "rating": 5, "text": "great", "relative_time_description": "a week ago"},
				},
				"photos": []map[string]any{{"photo_reference": "ref1"}},
			},
		})
	})

	place, err := c.Details(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if place.Phone == "" || place.Website == "" {
		t.Errorf("contact fields not mapped: %+v", place)
	}
	if len(place.OpeningHours) != 1 || len(place.Reviews) != 1 {
		t.Errorf("detail fields not mapped: hours=%d reviews=%d", len(place.OpeningHours), len(place.Reviews))
	}
	if !strings.Contains(place.Image, "maxwidth=800") {
		t.Errorf("detail photos should use the detail width: %q", place.Image)
	}
}

func TestAutocomplete(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"predictions": []map[string]any{
				{
					"place_id":    "p1",
					"description": "Paris, France",
					"structured_formatting": map[string]string{
						"main_text":      "Paris",
						"secondary_text": "France",
					},
				},
			},
		})
	})

	got, err := c.Autocomplete(context.Background(), "par", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 || got[0].MainText != "Paris" {
		t.Errorf("unexpected suggestions: %+v", got)
	}
	if !strings.Contains(query, "components=country%3Afr") {
		t.Errorf("country restriction missing: %s", query)
	}
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "OK", "results": []any{}})
	})

	_, err := c.TextSearch(context.Background(), TextSearchParams{Query: "anything"})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestGetJSON_DoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.TextSearch(context.Background(), TextSearchParams{Query: "anything"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts != 1 {
		t.Errorf("4xx should not be retried, got %d attempts", attempts)
	}
}

func TestFormatPriceLevel(t *testing.T) {
	three := 3
	zero := 0
	seven := 7

	tests := []struct {
		level *int
		want  string
	}{
		{nil, "N/A"},
		{&zero, "N/A"},
		{&three, "$$$"},
		{&seven, "$$$$"},
	}

	for _, tt := range tests {
		if got := FormatPriceLevel(tt.level); got != tt.want {
			t.Errorf("FormatPriceLevel(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestDescribeTypes(t *testing.T) {
	if got := describeTypes([]string{"unknown_type", "cafe"}); got != "A cozy place for coffee and snacks" {
		t.Errorf("first known type should win: %q", got)
	}
	if got := describeTypes([]string{"unknown_type"}); got != "A point of interest worth visiting" {
		t.Errorf("fallback description: %q", got)
	}
}
