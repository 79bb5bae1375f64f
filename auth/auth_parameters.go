package auth

import (
	"time"

	"github.com/jrsteele09/go-tumblr-auth/oauth2"
)

// AuthorizationRequest holds the per-attempt inputs to BeginAuth.
// Zero values fall back to the service configuration.
type AuthorizationRequest struct {
	// Scopes is the space separated scope list, e.g. "basic write offline_access".
	// Default: the configured scopes ("basic")
	Scopes string

	// RedirectURI must match the URI registered with the provider.
	// Its path is the only path the listener accepts the redirect on.
	// Default: "http://localhost:8787/"
	RedirectURI string

	// Port the listener binds on 127.0.0.1. 0 picks a free port.
	Port int

	// OnSuccess is invoked exactly once with the tokens of a successful attempt.
	// It runs on the listener's goroutine before Attempt.Wait returns.
	OnSuccess func(*oauth2.TokenResponse)

	// Timeout closes the listener if no redirect arrives in time.
	// Default: the configured listener timeout; negative disables it.
	Timeout time.Duration
}
