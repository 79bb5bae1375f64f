package config

import "time"

const (
	DefaultRedirectURI = "http://localhost:8787/"
	DefaultPort        = 8787

	DefaultListenerTimeout = 5 * time.Minute
)

type ListenerConfig interface {
	GetRedirectURI() string
	GetPort() int
	GetListenerTimeout() time.Duration
}

// Listener configures the local redirect listener.
type Listener struct {
	RedirectURI string `env:"TUMBLR_AUTH_REDIRECT_URI" envDefault:"http://localhost:8787/"`
	Port        int    `env:"TUMBLR_AUTH_PORT" envDefault:"8787"`
	// Timeout closes an abandoned listener. Zero uses the default, negative waits forever.
	Timeout time.Duration `env:"TUMBLR_AUTH_TIMEOUT" envDefault:"5m"`
}

var _ ListenerConfig = Listener{}

func (l Listener) GetRedirectURI() string {
	return valueOr(l.RedirectURI, DefaultRedirectURI)
}

func (l Listener) GetPort() int {
	return l.Port
}

// GetListenerTimeout returns 0 when the timeout is disabled.
func (l Listener) GetListenerTimeout() time.Duration {
	switch {
	case l.Timeout == 0:
		return DefaultListenerTimeout
	case l.Timeout < 0:
		return 0
	}
	return l.Timeout
}
