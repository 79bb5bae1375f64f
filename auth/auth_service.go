package auth

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-tumblr-auth/internal/config"
	autherrors "github.com/jrsteele09/go-tumblr-auth/internal/errors"
	"github.com/jrsteele09/go-tumblr-auth/oauth2"
	"github.com/jrsteele09/go-tumblr-auth/oauthmodel"
	"github.com/jrsteele09/go-tumblr-auth/server"
	"github.com/jrsteele09/go-tumblr-auth/server/authflowrepo"
	"github.com/jrsteele09/go-tumblr-auth/token"
	"github.com/rs/zerolog/log"
)

// TokenExchanger performs the token endpoint calls.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, creds oauthmodel.ClientCredentials, code, redirectURI string) (*oauth2.TokenResponse, error)
	ExchangeRefreshToken(ctx context.Context, creds oauthmodel.ClientCredentials, refreshToken string) (*oauth2.TokenResponse, error)
}

// AuthorizationService drives the authorization code flow: it builds the
// authorization URL, runs the redirect listener and exchanges codes and
// refresh tokens for access tokens.
type AuthorizationService struct {
	config          config.OAuthConfig
	exchanger       TokenExchanger
	flows           authflowrepo.Repo
	newState        func() (string, error)
	listenerTimeout time.Duration
	nowTime         func() time.Time
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithExchanger replaces the token exchanger built from the configuration.
func WithExchanger(exchanger TokenExchanger) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.exchanger = exchanger
	}
}

// WithFlowRepo shares an in-progress flow registry between services.
func WithFlowRepo(flows authflowrepo.Repo) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.flows = flows
	}
}

// WithStateGenerator replaces the anti-forgery token source (primarily for testing)
func WithStateGenerator(gen func() (string, error)) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.newState = gen
	}
}

// WithListenerTimeout sets the default time a listener waits for the redirect.
func WithListenerTimeout(timeout time.Duration) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.listenerTimeout = timeout
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// NewAuthorizationService validates the configuration and returns a service.
// Missing credentials are reported here, before any listener or network activity.
func NewAuthorizationService(cfg config.OAuthConfig, options ...AuthorizationServiceOption) (*AuthorizationService, error) {
	if cfg == nil {
		return nil, &autherrors.ConfigurationError{Field: "config"}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	as := &AuthorizationService{
		config:   cfg,
		flows:    authflowrepo.NewInMemoryRepo(),
		newState: GenerateState,
		nowTime:  time.Now,
	}
	if lc, ok := cfg.(config.ListenerConfig); ok {
		as.listenerTimeout = lc.GetListenerTimeout()
	}

	for _, opt := range options {
		opt(as)
	}

	if as.exchanger == nil {
		as.exchanger = token.NewExchanger(cfg.GetTokenURL(),
			token.WithTimeout(cfg.GetHTTPTimeout()),
			token.WithUserAgent(cfg.GetUserAgent()),
		)
	}
	return as, nil
}

// BeginAuth starts a redirect listener and returns the attempt carrying the
// authorization URL. It does not wait for the redirect; use Attempt.Wait.
// A port that is already in use fails here with a *errors.BindError.
func (as *AuthorizationService) BeginAuth(ctx context.Context, req AuthorizationRequest) (*Attempt, error) {
	if req.Scopes == "" {
		req.Scopes = as.config.GetDefaultScopes()
	}
	if req.RedirectURI == "" {
		req.RedirectURI = config.DefaultRedirectURI
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = as.listenerTimeout
	}
	if timeout < 0 {
		timeout = 0
	}

	state, err := as.newState()
	if err != nil {
		return nil, autherrors.Wrapf(err, "[AuthorizationService BeginAuth] failed to generate state")
	}

	creds := as.config.GetCredentials()
	redirectURI := req.RedirectURI
	var listener *server.Listener
	listener = server.NewListener(server.ListenerConfig{
		Port:          req.Port,
		ExpectedState: state,
		RedirectPath:  redirectPath(redirectURI),
		Timeout:       timeout,
		OnSuccess:     req.OnSuccess,
		Exchange: func(ctx context.Context, code string) (*oauth2.TokenResponse, error) {
			return as.exchanger.ExchangeCode(ctx, creds, code, redirectURI)
		},
		OnClose: func() {
			as.endFlow(state, listener.State())
		},
	})

	flow := &authflowrepo.AuthFlowState{
		SessionID:   listener.ID(),
		Port:        req.Port,
		RedirectURI: redirectURI,
		Scope:       req.Scopes,
		CreatedAt:   as.nowTime(),
	}
	if err := as.flows.Upsert(state, flow); err != nil {
		return nil, &autherrors.BindError{Addr: net.JoinHostPort("127.0.0.1", strconv.Itoa(req.Port)), Err: err}
	}
	if err := listener.Start(ctx); err != nil {
		_ = as.flows.Delete(state)
		return nil, err
	}

	log.Info().
		Str("session_id", listener.ID()).
		Str("scope", req.Scopes).
		Int("port", listener.Port()).
		Msg("Authorization started")

	return &Attempt{
		url:         oauthmodel.BuildAuthURL(as.config.GetAuthorizeURL(), req.Scopes, creds.ClientID, redirectURI, state),
		state:       state,
		redirectURI: redirectURI,
		listener:    listener,
	}, nil
}

// RefreshTokenAuth exchanges a refresh token for new tokens without user
// interaction. onSuccess may be nil. Errors are always returned to the caller.
func (as *AuthorizationService) RefreshTokenAuth(ctx context.Context, refreshToken string, onSuccess func(*oauth2.TokenResponse)) (*oauth2.TokenResponse, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	tok, err := as.exchanger.ExchangeRefreshToken(ctx, as.config.GetCredentials(), refreshToken)
	if err != nil {
		return nil, autherrors.Wrapf(err, "[AuthorizationService RefreshTokenAuth]")
	}
	if onSuccess != nil {
		onSuccess(tok)
	}
	return tok, nil
}

// endFlow releases the attempt's registry entry and records how it ended.
func (as *AuthorizationService) endFlow(state string, outcome server.State) {
	flow, err := as.flows.Get(state)
	if err != nil {
		log.Warn().Err(err).Str("outcome", outcome.String()).Msg("Authorization finished without a registered flow")
		return
	}
	if err := as.flows.Delete(state); err != nil {
		log.Err(err).Str("session_id", flow.SessionID).Msg("Failed to release authorization flow")
	}

	log.Info().
		Str("session_id", flow.SessionID).
		Str("outcome", outcome.String()).
		Str("scope", flow.Scope).
		Str("redirect_uri", flow.RedirectURI).
		Dur("duration", as.nowTime().Sub(flow.CreatedAt)).
		Msg("Authorization finished")
}

// ActiveFlows returns the number of listeners still waiting or exchanging.
func (as *AuthorizationService) ActiveFlows() int {
	return as.flows.Active()
}

// redirectPath is the path the listener accepts the redirect on.
// Unparseable URIs fall back to "/".
func redirectPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
