package oauthmodel

import (
	"fmt"

	"github.com/jrsteele09/go-tumblr-auth/oauth2"
)

// TokenRequest is the JSON body sent to the provider's token endpoint.
// Supports grant types: authorization_code, refresh_token
type TokenRequest struct {
	// GrantType selects which of the other fields are required.
	GrantType oauth2.GrantType `json:"grant_type"`

	// ClientID identifies the OAuth2 client making the request.
	ClientID string `json:"client_id"`

	// ClientSecret is the secret credential for the client.
	// Security: Never log or expose this value
	ClientSecret string `json:"client_secret"`

	// RedirectURI must match the one sent to the authorize endpoint.
	// Required: Yes (only for authorization_code grant)
	RedirectURI string `json:"redirect_uri,omitempty"`

	// Code is the authorization code received on the redirect.
	// Required: Yes (only for authorization_code grant)
	Code string `json:"code,omitempty"`

	// RefreshToken is used to obtain new access tokens without re-authentication.
	// Required: Yes (only for refresh_token grant)
	RefreshToken string `json:"refresh_token,omitempty"`
}

// NewCodeTokenRequest builds an authorization_code grant request.
func NewCodeTokenRequest(creds ClientCredentials, code, redirectURI string) TokenRequest {
	return TokenRequest{
		GrantType:    oauth2.AuthorizationCodeGrant,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURI:  redirectURI,
		Code:         code,
	}
}

// NewRefreshTokenRequest builds a refresh_token grant request.
func NewRefreshTokenRequest(creds ClientCredentials, refreshToken string) TokenRequest {
	return TokenRequest{
		GrantType:    oauth2.RefreshTokenCodeGrant,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RefreshToken: refreshToken,
	}
}

// Validate checks that the fields required by the grant type are present.
func (r TokenRequest) Validate() error {
	switch r.GrantType {
	case oauth2.AuthorizationCodeGrant:
		if r.Code == "" {
			return fmt.Errorf("code is required for %s grant", r.GrantType)
		}
	case oauth2.RefreshTokenCodeGrant:
		if r.RefreshToken == "" {
			return fmt.Errorf("refresh_token is required for %s grant", r.GrantType)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedGrant, r.GrantType)
	}
	return nil
}
