// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Provider adapters wrap one of the first four so the
// provider client can decide whether to retry.
var (
	// ErrRateLimited means the provider asked us to slow down. Retry with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderUnavailable is a transient provider failure. Retry with backoff.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderRejected is permanent for the query. Do not retry.
	ErrProviderRejected = errors.New("provider rejected query")

	// ErrNotFound means the provider has no record. The client turns it into
	// an empty result.
	ErrNotFound = errors.New("not found")

	// ErrCacheUnavailable means the cache store failed. Treated as a miss.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrQueriesExhausted means the retry ceiling was reached.
	ErrQueriesExhausted = errors.New("queries exhausted")

	// ErrNoProviders is a fatal configuration error.
	ErrNoProviders = errors.New("no providers configured")

	// ErrInvalidConfig marks any other fatal configuration error.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ProviderError describes a failed provider call.
type ProviderError struct {
	Provider   string
	StatusCode int

	// RetryAfter is the provider's requested wait, when it sent one.
	RetryAfter time.Duration

	// Err is one of the provider sentinels, optionally wrapping a cause.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error for errors.Is.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable)
}
