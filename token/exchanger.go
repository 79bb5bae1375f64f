package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-tumblr-auth/internal/errors"
	"github.com/jrsteele09/go-tumblr-auth/oauth2"
	"github.com/jrsteele09/go-tumblr-auth/oauthmodel"
	"github.com/rs/zerolog/log"
	xoauth2 "golang.org/x/oauth2"
)

// maxResponseBytes caps how much of a token endpoint response is read.
const maxResponseBytes = 1 << 20

// Exchanger talks to the provider's token endpoint. It performs exactly one
// request per call and never retries.
type Exchanger struct {
	tokenURL   string
	userAgent  string
	httpClient *http.Client
}

type ExchangerOption func(*Exchanger)

// WithHTTPClient replaces the exchanger's default HTTP client.
// A client stored in the context under oauth2.HTTPClient still takes precedence.
func WithHTTPClient(client *http.Client) ExchangerOption {
	return func(e *Exchanger) {
		e.httpClient = client
	}
}

func WithUserAgent(userAgent string) ExchangerOption {
	return func(e *Exchanger) {
		e.userAgent = userAgent
	}
}

func WithTimeout(timeout time.Duration) ExchangerOption {
	return func(e *Exchanger) {
		e.httpClient = &http.Client{Timeout: timeout}
	}
}

// NewExchanger creates an exchanger for the given token endpoint.
func NewExchanger(tokenURL string, opts ...ExchangerOption) *Exchanger {
	e := &Exchanger{
		tokenURL:   tokenURL,
		userAgent:  "go-tumblr-auth/1.0.0",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExchangeCode swaps an authorization code for tokens.
func (e *Exchanger) ExchangeCode(ctx context.Context, creds oauthmodel.ClientCredentials, code, redirectURI string) (*oauth2.TokenResponse, error) {
	return e.post(ctx, oauthmodel.NewCodeTokenRequest(creds, code, redirectURI))
}

// ExchangeRefreshToken mints a new access token from a refresh token.
func (e *Exchanger) ExchangeRefreshToken(ctx context.Context, creds oauthmodel.ClientCredentials, refreshToken string) (*oauth2.TokenResponse, error) {
	return e.post(ctx, oauthmodel.NewRefreshTokenRequest(creds, refreshToken))
}

// errorResponse is the RFC 6749 section 5.2 error body.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *Exchanger) post(ctx context.Context, tr oauthmodel.TokenRequest) (*oauth2.TokenResponse, error) {
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("[Exchanger post] invalid token request: %w", err)
	}

	body, err := json.Marshal(tr)
	if err != nil {
		return nil, fmt.Errorf("[Exchanger post] failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("[Exchanger post] failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", e.userAgent)

	logger := log.With().Str("grant_type", string(tr.GrantType)).Logger()
	logger.Debug().Str("token_url", e.tokenURL).Msg("Requesting token")

	resp, err := e.client(ctx).Do(req)
	if err != nil {
		return nil, &autherrors.ExchangeError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &autherrors.ExchangeError{StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}

	var errResp errorResponse
	_ = json.Unmarshal(respBody, &errResp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || errResp.Error != "" {
		exErr := &autherrors.ExchangeError{
			StatusCode:  resp.StatusCode,
			Status:      resp.Status,
			Body:        strings.TrimSpace(string(respBody)),
			ErrorCode:   errResp.Error,
			Description: errResp.ErrorDescription,
		}
		logger.Warn().Int("status", resp.StatusCode).Str("error", errResp.Error).Msg("Token endpoint rejected request")
		return nil, exErr
	}

	var tokenResp oauth2.TokenResponse
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return nil, &autherrors.ExchangeError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(respBody)),
			Err:        fmt.Errorf("failed to decode token response: %w", err),
		}
	}
	if tokenResp.AccessToken == "" {
		return nil, &autherrors.ExchangeError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(respBody)),
			Err:        fmt.Errorf("token response has no access_token"),
		}
	}

	logger.Debug().Int("expires_in", tokenResp.ExpiresIn).Str("scope", tokenResp.Scope).Msg("Token received")
	return &tokenResp, nil
}

func (e *Exchanger) client(ctx context.Context) *http.Client {
	if c, ok := ctx.Value(xoauth2.HTTPClient).(*http.Client); ok && c != nil {
		return c
	}
	return e.httpClient
}
