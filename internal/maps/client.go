// Package maps wraps the Google Maps web services used by the travel guide:
// geocoding, place search, place details, autocomplete and photos. All
// responses are normalized into domain types; Google's wire shapes never
// leave this package.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/wanderkit/wanderkit/internal/domain"
	"github.com/wanderkit/wanderkit/internal/httputil"
	"github.com/wanderkit/wanderkit/internal/metrics"
	"github.com/wanderkit/wanderkit/internal/telemetry"
)

const DefaultBaseURL = "https://maps.googleapis.com"

// Upstream status strings shared by the geocoding and places services.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey, baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = httputil.NewClientWithTimeout(10 * time.Second)
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
	}
}

// getJSON issues a GET with bounded retry. These are idempotent lookups, so
// transport failures and 5xx responses get up to three attempts; 4xx
// responses do not.
func (c *Client) getJSON(ctx context.Context, name, path string, params url.Values, out any) error {
	ctx, span := telemetry.StartSpan(ctx, "maps."+name)
	defer span.End()

	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	start := time.Now()
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			upErr := &domain.UpstreamError{
				Provider:   "maps",
				StatusCode: resp.StatusCode,
				RawBody:    string(b),
			}
			if resp.StatusCode >= 500 {
				return nil, upErr
			}
			return nil, backoff.Permanent(upErr)
		}

		return b, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	metrics.UpstreamDuration.WithLabelValues("maps").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("maps").Inc()
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// apiStatusError converts a non-OK service status into an error. The
// upstream spoke HTTP 200; the failure lives in the status field, so it is
// surfaced as a gateway-level upstream error.
func apiStatusError(service, status, message string) error {
	msg := fmt.Sprintf("%s: %s", service, status)
	if message != "" {
		msg += " - " + message
	}
	return &domain.UpstreamError{
		Provider:   "maps",
		StatusCode: http.StatusBadGateway,
		Message:    msg,
	}
}
