package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-tumblr-auth/internal/errors"
	"github.com/jrsteele09/go-tumblr-auth/oauth2"
	"github.com/rs/zerolog/log"
)

const (
	loopbackHost      = "127.0.0.1"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// State is the lifecycle position of a redirect listener.
type State int

const (
	StateListening  State = iota // waiting for the provider's redirect
	StateExchanging              // redirect accepted, token exchange in flight
	StateRejected                // redirect failed validation
	StateCompleted               // tokens received
	StateFailed                  // token exchange (or the handler) failed
	StateExpired                 // timed out, cancelled or closed before any redirect
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateExchanging:
		return "exchanging"
	case StateRejected:
		return "rejected"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateExpired:
		return "expired"
	}
	return "unknown(" + strconv.Itoa(int(s)) + ")"
}

// Terminal reports whether the listener has released its socket in this state.
func (s State) Terminal() bool {
	return s >= StateRejected
}

// CodeExchanger swaps the authorization code from the redirect for tokens.
type CodeExchanger func(ctx context.Context, code string) (*oauth2.TokenResponse, error)

// ListenerConfig configures a single redirect listener session.
type ListenerConfig struct {
	Port          int    // 0 picks a free port
	ExpectedState string // anti-forgery token the redirect must echo
	RedirectPath  string // path of the redirect URI, defaults to "/"
	Exchange      CodeExchanger
	OnSuccess     func(*oauth2.TokenResponse)
	Timeout       time.Duration // 0 waits forever
	OnClose       func()        // called once the socket is closed
}

// Listener is a one-shot HTTP server on the loopback interface that accepts
// exactly one provider redirect, validates it, exchanges the code and
// shuts itself down.
type Listener struct {
	id  string
	cfg ListenerConfig

	srv    *http.Server
	ln     net.Listener
	ctx    context.Context
	cancel context.CancelFunc
	stops  []func() bool

	mu    sync.Mutex
	state State

	closeOnce sync.Once
	done      chan struct{}
	token     *oauth2.TokenResponse
	err       error
}

// NewListener creates a listener. Nothing is bound until Start.
func NewListener(cfg ListenerConfig) *Listener {
	if cfg.RedirectPath == "" {
		cfg.RedirectPath = "/"
	}
	return &Listener{
		id:    uuid.NewString(),
		cfg:   cfg,
		state: StateListening,
		done:  make(chan struct{}),
	}
}

// ID identifies the session in logs.
func (l *Listener) ID() string {
	return l.id
}

// Start binds 127.0.0.1:<port> and serves in the background. Bind failures are
// returned as *errors.BindError. Cancelling ctx before a redirect arrives
// expires the session; cancelling it during the exchange aborts the exchange.
func (l *Listener) Start(ctx context.Context) error {
	if l.cfg.ExpectedState == "" {
		return &autherrors.ConfigurationError{Field: "state", Reason: "must not be empty"}
	}
	if l.cfg.Exchange == nil {
		return &autherrors.ConfigurationError{Field: "code exchanger"}
	}
	if l.ln != nil {
		return fmt.Errorf("[Listener Start] listener %s already started", l.id)
	}

	addr := net.JoinHostPort(loopbackHost, strconv.Itoa(l.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return &autherrors.BindError{Addr: addr, Err: err}
	}
	l.ln = ln
	l.ctx, l.cancel = context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/", ChainMiddleware(l.handleRedirect, l.middleware()...))
	l.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return l.ctx },
	}
	l.srv.SetKeepAlivesEnabled(false)

	l.stops = append(l.stops, context.AfterFunc(l.ctx, func() {
		l.expire(context.Cause(l.ctx))
	}))
	if l.cfg.Timeout > 0 {
		timeout := l.cfg.Timeout
		timer := time.AfterFunc(timeout, func() {
			l.expire(fmt.Errorf("%w after %s", autherrors.ErrListenerTimeout, timeout))
		})
		l.stops = append(l.stops, timer.Stop)
	}

	log.Info().
		Str("session_id", l.id).
		Str("addr", ln.Addr().String()).
		Str("redirect_path", l.cfg.RedirectPath).
		Dur("timeout", l.cfg.Timeout).
		Msg("Redirect listener started")

	go l.serve()
	return nil
}

func (l *Listener) serve() {
	err := l.srv.Serve(l.ln)
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return
	}
	log.Err(err).Str("session_id", l.id).Msg("Redirect listener stopped unexpectedly")
	if l.transition(StateFailed) {
		l.finish(nil, fmt.Errorf("[Listener serve] %w", err))
	}
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Port returns the bound port, useful when the listener was started on port 0.
func (l *Listener) Port() int {
	if tcp, ok := l.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Done is closed once the listener reaches a terminal state and its socket is closed.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the listener finishes or ctx is done. Giving up on
// the wait does not close the listener.
func (l *Listener) Wait(ctx context.Context) (*oauth2.TokenResponse, error) {
	select {
	case <-l.done:
		return l.token, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close abandons the session. A pending redirect wait resolves with
// ErrListenerClosed; an exchange in flight is cancelled.
func (l *Listener) Close() {
	l.expire(autherrors.ErrListenerClosed)
	if l.cancel != nil {
		l.cancel()
	}
}

// handleRedirect never sees requests net/http cannot parse; those get a 400
// from the server and the session keeps listening.
func (l *Listener) handleRedirect(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != l.cfg.RedirectPath {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	rejectErr := l.validate(query.Get("state"), code, query.Get("error"), query.Get("error_description"))

	next := StateExchanging
	if rejectErr != nil {
		next = StateRejected
	}
	if !l.transitionFrom(StateListening, next) {
		http.Error(w, "This authorization request has already been handled.", http.StatusConflict)
		return
	}

	if rejectErr != nil {
		log.Warn().Str("session_id", l.id).Err(rejectErr).Msg("Redirect rejected")
		writeErrorPage(w, "Invalid response.")
		l.finish(nil, rejectErr)
		return
	}

	tok, err := l.cfg.Exchange(l.ctx, code)
	if err == nil && tok == nil {
		err = fmt.Errorf("[Listener] %w: exchanger returned no token", autherrors.ErrExchange)
	}
	if err != nil {
		l.transition(StateFailed)
		log.Err(err).Str("session_id", l.id).Msg("Token exchange failed")
		writeErrorPage(w, "The authorization code could not be exchanged for a token.")
		l.finish(nil, err)
		return
	}

	l.transition(StateCompleted)
	log.Info().Str("session_id", l.id).Str("scope", tok.Scope).Msg("Authorization completed")
	writeSuccessPage(w)
	l.finish(tok, nil)
}

// validate checks the redirect before any network call is made. The state is
// checked first so a forged redirect is always reported as such.
func (l *Listener) validate(state, code, providerErr, providerErrDesc string) error {
	if subtle.ConstantTimeCompare([]byte(state), []byte(l.cfg.ExpectedState)) != 1 {
		return autherrors.ErrCsrfMismatch
	}
	if providerErr != "" {
		return &autherrors.ProviderError{Code: providerErr, Description: providerErrDesc}
	}
	if code == "" {
		return autherrors.ErrMissingCode
	}
	return nil
}

// transitionFrom moves from one specific state to another.
func (l *Listener) transitionFrom(from, to State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != from {
		return false
	}
	l.state = to
	return true
}

// transition moves to another state unless the listener is already terminal.
func (l *Listener) transition(to State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.Terminal() {
		return false
	}
	l.state = to
	return true
}

func (l *Listener) expire(err error) {
	if !l.transitionFrom(StateListening, StateExpired) {
		return
	}
	if err == nil {
		err = autherrors.ErrListenerClosed
	}
	log.Warn().Str("session_id", l.id).Err(err).Msg("Redirect listener expired before any redirect")
	l.finish(nil, err)
}

// finish releases the socket and publishes the result, exactly once.
// The listening socket is closed before Done is closed so a caller that
// observes Done can rely on the port being free.
func (l *Listener) finish(tok *oauth2.TokenResponse, err error) {
	l.closeOnce.Do(func() {
		defer close(l.done)

		for _, stop := range l.stops {
			stop()
		}
		if l.ln != nil {
			if cerr := l.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
				log.Err(cerr).Str("session_id", l.id).Msg("Failed to close redirect listener socket")
			}
			go l.shutdown()
		}

		l.token, l.err = tok, err
		log.Debug().Str("session_id", l.id).Str("state", l.State().String()).Msg("Redirect listener closed")

		if l.cfg.OnClose != nil {
			l.cfg.OnClose()
		}
		if tok != nil && l.cfg.OnSuccess != nil {
			l.cfg.OnSuccess(tok)
		}
	})
}

// shutdown drains the in-flight response, then cancels the session context.
func (l *Listener) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.srv.Shutdown(ctx); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Debug().Err(err).Str("session_id", l.id).Msg("Forcing redirect listener shutdown")
		_ = l.srv.Close()
	}
	l.cancel()
}
