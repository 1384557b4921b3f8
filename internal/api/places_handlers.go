package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wanderkit/wanderkit/internal/assist"
	"github.com/wanderkit/wanderkit/internal/domain"
	"github.com/wanderkit/wanderkit/internal/places"
)

func (h *Handler) handleGeocode(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address parameter is required", nil)
		return
	}
	if !h.requireMaps(w) {
		return
	}

	h.serveCached(w, r, "/geocode", func(ctx context.Context) (any, error) {
		result, err := h.maps.Geocode(ctx, address)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"location": map[string]any{
				"lat":               result.Location.Lat,
				"lng":               result.Location.Lng,
				"formatted_address": result.FormattedAddress,
			},
		}, nil
	})
}

func (h *Handler) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(query.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lng parameters are required", nil)
		return
	}
	if !h.requireMaps(w) {
		return
	}

	h.serveCached(w, r, "/geocode/reverse", func(ctx context.Context) (any, error) {
		result, err := h.maps.ReverseGeocode(ctx, lat, lng)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"address":  result.Address,
			"location": domain.Coordinates{Lat: lat, Lng: lng},
			"results":  result.Results,
		}, nil
	})
}

func (h *Handler) handlePlacesSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	coords, err := parseCoordinates(query.Get("location"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	q := domain.PlaceQuery{
		Text:        query.Get("query"),
		Coordinates: coords,
		Category:    query.Get("type"),
		ExactMatch:  query.Get("exactMatch") == "true",
	}
	if q.Text == "" && q.Coordinates == nil {
		writeError(w, http.StatusBadRequest, "either query or location parameter is required", nil)
		return
	}
	if !h.requirePlaces(w) {
		return
	}

	h.serveCached(w, r, "/places/search", func(ctx context.Context) (any, error) {
		return h.places.Search(ctx, q)
	})
}

func (h *Handler) handlePlaceDetails(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	placeID := query.Get("place_id")
	if placeID == "" {
		placeID = query.Get("placeId")
	}
	if placeID == "" {
		writeError(w, http.StatusBadRequest, "place_id parameter is required", nil)
		return
	}
	if !h.requireMaps(w) {
		return
	}
	useAI := query.Get("useAI") == "true"
	location := query.Get("location")

	h.serveCached(w, r, "/places/details", func(ctx context.Context) (any, error) {
		place, err := h.maps.Details(ctx, placeID)
		if err != nil {
			return nil, err
		}

		if useAI && h.assist != nil {
			h.enrichPlace(ctx, place, location)
		}
		return map[string]any{"place": place}, nil
	})
}

// enrichPlace attaches the AI description and tips to a details record. The
// enrichment is optional flavor; any failure leaves the place untouched.
func (h *Handler) enrichPlace(ctx context.Context, place *domain.Place, location string) {
	placeType := ""
	if len(place.Types) > 0 {
		placeType = place.Types[0]
	}
	if location == "" {
		location = place.Address
	}

	narrative, err := h.assist.PlaceNarrative(ctx, assist.NarrativeRequest{
		Name:     place.Name,
		Type:     placeType,
		Location: location,
		Rating:   place.Rating,
		Types:    place.Types,
	})
	if err != nil {
		slog.Warn("place enrichment failed", "place_id", place.ID, "error", err)
		return
	}

	place.AIDescription = narrative.Description
	place.AIRecommendations = narrative.Recommendations
}

func (h *Handler) handleTrending(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	coords, err := parseCoordinates(query.Get("location"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if coords == nil {
		writeError(w, http.StatusBadRequest, "location parameter is required", nil)
		return
	}

	category := query.Get("type")
	if category == "" {
		category = "restaurant"
	}
	countOnly := query.Get("countOnly") == "true"

	if !h.requirePlaces(w) {
		return
	}

	h.serveCached(w, r, "/places/trending", func(ctx context.Context) (any, error) {
		if countOnly {
			total, err := h.places.TrendingCount(ctx, *coords, category)
			if err != nil {
				return nil, err
			}
			return map[string]any{"category": category, "totalFound": total}, nil
		}

		results, total, err := h.places.Trending(ctx, *coords, category)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"results":    results,
			"category":   category,
			"totalFound": total,
		}, nil
	})
}

func (h *Handler) handleCategoryCounts(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoordinates(r.URL.Query().Get("location"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if coords == nil {
		writeError(w, http.StatusBadRequest, "location parameter is required", nil)
		return
	}
	if !h.requirePlaces(w) {
		return
	}

	h.serveCached(w, r, "/places/category-counts", func(ctx context.Context) (any, error) {
		counts := h.places.CountByCategory(ctx, *coords, places.CategoryKeys())
		return map[string]any{"counts": counts}, nil
	})
}

func (h *Handler) handleLocationSuggestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	input := query.Get("query")
	if input == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required", nil)
		return
	}
	country := query.Get("country")

	if !h.requireMaps(w) {
		return
	}

	h.serveCached(w, r, "/places/location-suggestions", func(ctx context.Context) (any, error) {
		suggestions, err := h.maps.Autocomplete(ctx, input, country)
		if err != nil {
			return nil, err
		}
		return map[string]any{"suggestions": suggestions}, nil
	})
}

const (
	photoCacheControl = "public, max-age=86400"

	defaultPhotoWidth = 800
	maxPhotoWidth     = 1600
)

// handlePhoto proxies a place photo so the Maps API key never reaches the
// browser. On upstream failure the browser is redirected to a placeholder
// image instead of receiving an error payload, since the photo is decoration.
func (h *Handler) handlePhoto(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	reference := query.Get("reference")
	if reference == "" {
		writeError(w, http.StatusBadRequest, "reference parameter is required", nil)
		return
	}
	if !h.requireMaps(w) {
		return
	}

	maxWidth := defaultPhotoWidth
	if raw := query.Get("maxwidth"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxWidth = n
		}
	}
	if maxWidth > maxPhotoWidth {
		maxWidth = maxPhotoWidth
	}

	body, contentType, err := h.maps.Photo(r.Context(), reference, maxWidth)
	if err != nil {
		slog.Warn("photo proxy failed, redirecting to placeholder", "error", err)
		placeholder := fmt.Sprintf("https://via.placeholder.com/%dx%d?text=Image+Not+Available", maxWidth, maxWidth*3/4)
		http.Redirect(w, r, placeholder, http.StatusTemporaryRedirect)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", photoCacheControl)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("photo stream interrupted", "error", err)
	}
}
