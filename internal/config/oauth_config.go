package config

import (
	"time"

	"github.com/jrsteele09/go-tumblr-auth/oauth2"
	"github.com/jrsteele09/go-tumblr-auth/oauthmodel"
)

const (
	DefaultAuthorizeURL = "https://www.tumblr.com/oauth2/authorize"
	DefaultTokenURL     = "https://api.tumblr.com/v2/oauth2/token"
	DefaultUserAgent    = "go-tumblr-auth/1.0.0"
	DefaultScopes       = oauth2.ScopeBasic
)

type OAuthConfig interface {
	GetCredentials() oauthmodel.ClientCredentials
	GetAuthorizeURL() string
	GetTokenURL() string
	GetUserAgent() string
	GetDefaultScopes() string
	GetHTTPTimeout() time.Duration
	GetOIDCIssuer() string
}

// OAuth holds the client credentials and the provider endpoints.
type OAuth struct {
	ClientID     string        `env:"CONSUMER_ID"`
	ClientSecret string        `env:"CONSUMER_SECRET"`
	AuthorizeURL string        `env:"TUMBLR_AUTHORIZE_URL" envDefault:"https://www.tumblr.com/oauth2/authorize"`
	TokenURL     string        `env:"TUMBLR_TOKEN_URL" envDefault:"https://api.tumblr.com/v2/oauth2/token"`
	UserAgent    string        `env:"TUMBLR_USER_AGENT" envDefault:"go-tumblr-auth/1.0.0"`
	Scopes       string        `env:"TUMBLR_AUTH_SCOPES" envDefault:"basic"`
	HTTPTimeout  time.Duration `env:"TUMBLR_HTTP_TIMEOUT" envDefault:"30s"`
	OIDCIssuer   string        `env:"TUMBLR_OIDC_ISSUER"` // optional, enables id_token verification
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetCredentials() oauthmodel.ClientCredentials {
	return oauthmodel.ClientCredentials{ClientID: o.ClientID, ClientSecret: o.ClientSecret}
}

func (o OAuth) GetAuthorizeURL() string {
	return valueOr(o.AuthorizeURL, DefaultAuthorizeURL)
}

func (o OAuth) GetTokenURL() string {
	return valueOr(o.TokenURL, DefaultTokenURL)
}

func (o OAuth) GetUserAgent() string {
	return valueOr(o.UserAgent, DefaultUserAgent)
}

func (o OAuth) GetDefaultScopes() string {
	return valueOr(o.Scopes, DefaultScopes)
}

func (o OAuth) GetHTTPTimeout() time.Duration {
	if o.HTTPTimeout <= 0 {
		return 30 * time.Second
	}
	return o.HTTPTimeout
}

func (o OAuth) GetOIDCIssuer() string {
	return o.OIDCIssuer
}

func valueOr(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
