package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	autherrors "github.com/jrsteele09/go-tumblr-auth/internal/errors"
)

// Config is everything the authorization flow needs, passed explicitly
// into the auth service. Environment lookups only happen in Load.
type Config interface {
	EnvConfig
	OAuthConfig
	ListenerConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	OAuth
	Listener
}

var _ Config = mainConfig{}

// New returns a Config built from the given values without reading the environment.
func New(envVars EnvVars, oauth OAuth, listener Listener) Config {
	return mainConfig{EnvVars: envVars, OAuth: oauth, Listener: listener}
}

// Load reads the configuration from the process environment, applying defaults.
func Load() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config Load] failed to parse environment: %w", err)
	}
	return c, nil
}

// Validate checks the values that must be present before any listener or
// network activity begins.
func Validate(c OAuthConfig) error {
	creds := c.GetCredentials()
	if strings.TrimSpace(creds.ClientID) == "" {
		return &autherrors.ConfigurationError{Field: clientIDEnvVar}
	}
	if strings.TrimSpace(creds.ClientSecret) == "" {
		return &autherrors.ConfigurationError{Field: clientSecretEnvVar}
	}
	if c.GetAuthorizeURL() == "" {
		return &autherrors.ConfigurationError{Field: "authorize URL"}
	}
	if c.GetTokenURL() == "" {
		return &autherrors.ConfigurationError{Field: "token URL"}
	}
	return nil
}
