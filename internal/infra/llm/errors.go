package llm

import (
	"errors"
	"fmt"
)

// TransportError is a fatal failure before any stream decoding started:
// a non-2xx initial response (StatusCode > 0) or a network error (StatusCode 0).
type TransportError struct {
	Provider   ProviderKind
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s API error: %d %s", e.Provider, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the failure says something about provider health
// (network, 429, 5xx) rather than about the request itself.
func (e *TransportError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// ErrProviderUnavailable is returned while a provider's circuit is open.
var ErrProviderUnavailable = errors.New("llm: provider temporarily unavailable")

// ErrStopStream may be returned by a FragmentHandler to stop decoding early.
// StreamChat then returns the text received so far without error.
var ErrStopStream = errors.New("llm: stream stopped by consumer")

// ErrNoProvider is returned by Router.Route when no default provider is
// registered and the request carried no config.
var ErrNoProvider = errors.New("llm: no provider configured")
