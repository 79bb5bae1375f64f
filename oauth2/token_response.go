package oauth2

import (
	"time"

	xoauth2 "golang.org/x/oauth2"
)

// TokenResponse represents the response from the provider's token endpoint.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the credential used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token, usually "bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 2520
	ExpiresIn int `json:"expires_in"`

	// Scope indicates the access token's granted permissions, space separated.
	// Note: May be less than requested if some scopes were denied
	Scope string `json:"scope"`

	// IdToken is the OpenID Connect ID token, when the provider issues one.
	IdToken *string `json:"id_token,omitempty"`

	// RefreshToken is a long lived token used to obtain new access tokens.
	// Only present: When "offline_access" scope was granted
	RefreshToken *string `json:"refresh_token,omitempty"`
}

// Token converts the response into an *oauth2.Token with an absolute expiry
// computed from now. The id_token is carried in the token's extra values.
func (t *TokenResponse) Token(now time.Time) *xoauth2.Token {
	tok := &xoauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		ExpiresIn:   int64(t.ExpiresIn),
	}
	if t.RefreshToken != nil {
		tok.RefreshToken = *t.RefreshToken
	}
	if t.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	extra := map[string]any{"scope": t.Scope}
	if t.IdToken != nil {
		extra["id_token"] = *t.IdToken
	}
	return tok.WithExtra(extra)
}
