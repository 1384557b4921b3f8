package maps

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wanderkit/wanderkit/internal/domain"
)

type geocodeEntry struct {
	FormattedAddress string      `json:"formatted_address"`
	Geometry         rawGeometry `json:"geometry"`
	Types            []string    `json:"types"`
}

type geocodeResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Results      []geocodeEntry `json:"results"`
}

// Geocode resolves a free-text address into coordinates. Zero results is a
// normal not-found outcome, not an upstream failure.
func (c *Client) Geocode(ctx context.Context, address string) (*domain.GeocodeResult, error) {
	params := url.Values{}
	params.Set("address", address)

	var resp geocodeResponse
	if err := c.getJSON(ctx, "geocode", "/maps/api/geocode/json", params, &resp); err != nil {
		return nil, err
	}

	if resp.Status == statusZeroResults || (resp.Status == statusOK && len(resp.Results) == 0) {
		return nil, fmt.Errorf("no results for address %q: %w", address, domain.ErrNotFound)
	}
	if resp.Status != statusOK {
		return nil, apiStatusError("geocoding", resp.Status, resp.ErrorMessage)
	}

	first := resp.Results[0]
	return &domain.GeocodeResult{
		Location:         first.Geometry.Location,
		FormattedAddress: first.FormattedAddress,
	}, nil
}

// ReverseGeocodeResult keeps the preferred display address alongside the
// full candidate list for callers that want the raw detail.
type ReverseGeocodeResult struct {
	Address string
	Results []domain.GeocodeResult
}

// ReverseGeocode resolves coordinates into a display address. The first
// geocoder hit is often an overly specific street address, so a
// locality-level or region-level candidate is preferred when present.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*ReverseGeocodeResult, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))

	var resp geocodeResponse
	if err := c.getJSON(ctx, "geocode.reverse", "/maps/api/geocode/json", params, &resp); err != nil {
		return nil, err
	}

	if resp.Status == statusZeroResults || (resp.Status == statusOK && len(resp.Results) == 0) {
		return nil, fmt.Errorf("no results for coordinates %f,%f: %w", lat, lng, domain.ErrNotFound)
	}
	if resp.Status != statusOK {
		return nil, apiStatusError("geocoding", resp.Status, resp.ErrorMessage)
	}

	address := resp.Results[0].FormattedAddress
	for _, entry := range resp.Results {
		if hasAnyType(entry.Types, "locality", "administrative_area_level_1") {
			address = entry.FormattedAddress
			break
		}
	}

	out := &ReverseGeocodeResult{Address: address}
	for _, entry := range resp.Results {
		out.Results = append(out.Results, domain.GeocodeResult{
			Location:         entry.Geometry.Location,
			FormattedAddress: entry.FormattedAddress,
		})
	}
	return out, nil
}

func hasAnyType(types []string, wanted ...string) bool {
	for _, t := range types {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}
