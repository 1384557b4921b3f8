package maps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wanderkit/wanderkit/internal/domain"
)

const (
	findPlaceFields = "formatted_address,name,rating,opening_hours,geometry,photos,place_id,price_level,user_ratings_total,types"
	detailsFields   = "place_id,name,rating,formatted_address,formatted_phone_number,website,opening_hours,photos,reviews,price_level,types,geometry"

	listPhotoWidth   = 400
	detailPhotoWidth = 800
)

// SearchPage is one page of normalized search results.
type SearchPage struct {
	Places        []domain.Place
	Status        string
	NextPageToken string
}

type searchResponse struct {
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"error_message"`
	Results       []rawPlace `json:"results"`
	Candidates    []rawPlace `json:"candidates"`
	NextPageToken string     `json:"next_page_token"`
}

func (r *searchResponse) page() (*SearchPage, error) {
	// findplacefromtext reports an empty candidates array with status OK
	// instead of ZERO_RESULTS; both are normal empty outcomes.
	if r.Status != statusOK && r.Status != statusZeroResults {
		return nil, apiStatusError("places", r.Status, r.ErrorMessage)
	}

	raw := r.Results
	if raw == nil {
		raw = r.Candidates
	}

	page := &SearchPage{
		Places:        make([]domain.Place, 0, len(raw)),
		Status:        r.Status,
		NextPageToken: r.NextPageToken,
	}
	for _, p := range raw {
		page.Places = append(page.Places, formatPlace(p, listPhotoWidth))
	}
	return page, nil
}

type TextSearchParams struct {
	Query    string
	Location *domain.Coordinates
	Radius   int
	Type     string
}

func (c *Client) TextSearch(ctx context.Context, p TextSearchParams) (*SearchPage, error) {
	params := url.Values{}
	params.Set("query", p.Query)
	if p.Location != nil {
		params.Set("location", fmt.Sprintf("%f,%f", p.Location.Lat, p.Location.Lng))
		if p.Radius > 0 {
			params.Set("radius", strconv.Itoa(p.Radius))
		}
	}
	if p.Type != "" {
		params.Set("type", p.Type)
	}

	var resp searchResponse
	if err := c.getJSON(ctx, "places.textsearch", "/maps/api/place/textsearch/json", params, &resp); err != nil {
		return nil, err
	}
	return resp.page()
}

type FindPlaceParams struct {
	Input      string
	Bias       *domain.Coordinates
	BiasRadius int
}

// FindPlace runs a find-place-from-text lookup, the accurate path for
// literal establishment names.
func (c *Client) FindPlace(ctx context.Context, p FindPlaceParams) (*SearchPage, error) {
	params := url.Values{}
	params.Set("input", p.Input)
	params.Set("inputtype", "textquery")
	params.Set("fields", findPlaceFields)
	if p.Bias != nil && p.BiasRadius > 0 {
		params.Set("locationbias", fmt.Sprintf("circle:%d@%f,%f", p.BiasRadius, p.Bias.Lat, p.Bias.Lng))
	}

	var resp searchResponse
	if err := c.getJSON(ctx, "places.findplace", "/maps/api/place/findplacefromtext/json", params, &resp); err != nil {
		return nil, err
	}
	return resp.page()
}

type NearbySearchParams struct {
	Location domain.Coordinates
	Radius   int
	Type     string
	Keyword  string
	RankBy   string
}

func (c *Client) NearbySearch(ctx context.Context, p NearbySearchParams) (*SearchPage, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", p.Location.Lat, p.Location.Lng))
	params.Set("radius", strconv.Itoa(p.Radius))
	if p.Type != "" {
		params.Set("type", p.Type)
	}
	if p.Keyword != "" {
		params.Set("keyword", p.Keyword)
	}
	if p.RankBy != "" {
		params.Set("rankby", p.RankBy)
	}

	var resp searchResponse
	if err := c.getJSON(ctx, "places.nearby", "/maps/api/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}
	return resp.page()
}

type detailsResponse struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
	Result       rawPlace `json:"result"`
}

// Details fetches the full record for one place, including reviews, phone,
// website and weekday opening hours.
func (c *Client) Details(ctx context.Context, placeID string) (*domain.Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailsFields)

	var resp detailsResponse
	if err := c.getJSON(ctx, "places.details", "/maps/api/place/details/json", params, &resp); err != nil {
		return nil, err
	}

	if resp.Status == statusZeroResults || resp.Status == "NOT_FOUND" {
		return nil, fmt.Errorf("place %q: %w", placeID, domain.ErrNotFound)
	}
	if resp.Status != statusOK {
		return nil, apiStatusError("places", resp.Status, resp.ErrorMessage)
	}

	place := formatPlace(resp.Result, detailPhotoWidth)
	if place.ID == "" {
		place.ID = placeID
	}
	return &place, nil
}

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		PlaceID              string `json:"place_id"`
		Description          string `json:"description"`
		StructuredFormatting struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}

// Autocomplete returns city suggestions for a partial query, optionally
// restricted to one country.
func (c *Client) Autocomplete(ctx context.Context, input, country string) ([]domain.LocationSuggestion, error) {
	params := url.Values{}
	params.Set("input", input)
	params.Set("types", "(cities)")
	params.Set("language", "en")
	if country != "" {
		params.Set("components", "country:"+country)
	}

	var resp autocompleteResponse
	if err := c.getJSON(ctx, "places.autocomplete", "/maps/api/place/autocomplete/json", params, &resp); err != nil {
		return nil, err
	}

	if resp.Status != statusOK && resp.Status != statusZeroResults {
		return nil, apiStatusError("places", resp.Status, resp.ErrorMessage)
	}

	suggestions := make([]domain.LocationSuggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		suggestions = append(suggestions, domain.LocationSuggestion{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
		})
	}
	return suggestions, nil
}

// Photo streams the bytes of a place photo. The caller owns closing the
// returned body.
func (c *Client) Photo(ctx context.Context, reference string, maxWidth int) (io.ReadCloser, string, error) {
	params := url.Values{}
	params.Set("photoreference", reference)
	params.Set("maxwidth", strconv.Itoa(maxWidth))
	params.Set("key", c.apiKey)

	endpoint := c.baseURL + "/maps/api/place/photo?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, "", &domain.UpstreamError{
			Provider:   "maps",
			StatusCode: resp.StatusCode,
			RawBody:    string(body),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return resp.Body, contentType, nil
}
