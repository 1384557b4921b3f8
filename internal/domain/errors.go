package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrMissingCredential = errors.New("credential not configured")
	ErrNotFound          = errors.New("not found")
)

// UpstreamError carries a non-2xx provider response. The original status
// code is preserved so callers can relay it instead of collapsing to 500.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
	RawBody    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s error: status=%d message=%s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: status=%d", e.Provider, e.StatusCode)
}

// MalformedOutputError means a model was asked for structured JSON and
// produced text no JSON value could be recovered from. Raw keeps the full
// model output for diagnostics.
type MalformedOutputError struct {
	Raw string
}

func (e *MalformedOutputError) Error() string {
	return "model output is not parseable JSON"
}
