package auth

import (
	"context"
	"net"

	"github.com/jrsteele09/go-tumblr-auth/oauth2"
	"github.com/jrsteele09/go-tumblr-auth/server"
)

// Attempt is one in-progress authorization. It resolves exactly once, with
// either the tokens or the reason the attempt failed.
type Attempt struct {
	url         string
	state       string
	redirectURI string
	listener    *server.Listener
}

// URL is where the user's browser must be sent.
func (a *Attempt) URL() string {
	return a.url
}

// State is the anti-forgery token embedded in URL.
func (a *Attempt) State() string {
	return a.state
}

// RedirectURI is the redirect_uri sent in URL and again in the code exchange.
func (a *Attempt) RedirectURI() string {
	return a.redirectURI
}

// Addr is the loopback address the listener is bound to.
func (a *Attempt) Addr() net.Addr {
	return a.listener.Addr()
}

// Port is the bound port, which differs from the requested one when it was 0.
func (a *Attempt) Port() int {
	return a.listener.Port()
}

// Status reports the listener's lifecycle state.
func (a *Attempt) Status() server.State {
	return a.listener.State()
}

// Done is closed once the attempt has resolved and the listener socket is closed.
func (a *Attempt) Done() <-chan struct{} {
	return a.listener.Done()
}

// Wait blocks until the attempt resolves or ctx is done.
func (a *Attempt) Wait(ctx context.Context) (*oauth2.TokenResponse, error) {
	return a.listener.Wait(ctx)
}

// Close abandons the attempt and releases its port.
func (a *Attempt) Close() {
	a.listener.Close()
}
