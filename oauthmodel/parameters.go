package oauthmodel

import (
	"github.com/jrsteele09/go-tumblr-auth/oauth2"
	xoauth2 "golang.org/x/oauth2"
)

// AuthorizationRequest holds the query parameters sent to the provider's /oauth2/authorize endpoint.
type AuthorizationRequest struct {
	// ClientID identifies the application requesting authorization.
	// Example: "aBcD1234..."
	ClientID string

	// RedirectURI is where the provider sends the user's browser afterwards.
	// Must exactly match the URI registered for the application.
	// Example: "http://localhost:8787/"
	RedirectURI string

	// Scope is the space separated list of requested permissions.
	// Passed through verbatim. Example: "basic write offline_access"
	Scope string

	// State is the anti-forgery token echoed back on the redirect.
	State string
}

// URL returns the authorization URL for the given authorize endpoint.
// All values are query-escaped; nothing is validated.
func (p AuthorizationRequest) URL(authorizeEndpoint string) string {
	cfg := &xoauth2.Config{
		ClientID:    p.ClientID,
		RedirectURL: p.RedirectURI,
		Scopes:      []string{p.Scope},
		Endpoint:    xoauth2.Endpoint{AuthURL: authorizeEndpoint},
	}
	return cfg.AuthCodeURL(p.State,
		xoauth2.SetAuthURLParam("approval_prompt", string(oauth2.ApprovalPromptAuto)),
	)
}

// BuildAuthURL builds the authorization URL from its individual parts.
func BuildAuthURL(authorizeEndpoint, scopes, clientID, redirectURI, state string) string {
	return AuthorizationRequest{
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scope:       scopes,
		State:       state,
	}.URL(authorizeEndpoint)
}
