package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoAPIKey is returned by provider adapters constructed without a key.
var ErrNoAPIKey = errors.New("api key is required")

// ProviderError is an API failure reported by an LLM provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Temporary reports whether the request may succeed if sent again.
func (e *ProviderError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RateLimited reports whether the provider rejected the request for rate.
func (e *ProviderError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
