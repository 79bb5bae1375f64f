package exchangerfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-tumblr-auth/auth"
	"github.com/jrsteele09/go-tumblr-auth/oauth2"
	"github.com/jrsteele09/go-tumblr-auth/oauthmodel"
)

var _ auth.TokenExchanger = (*FakeExchanger)(nil)

// Call records one request made to the fake token endpoint.
type Call struct {
	Creds        oauthmodel.ClientCredentials
	Code         string
	RedirectURI  string
	RefreshToken string
}

// FakeExchanger returns canned responses and records every call.
type FakeExchanger struct {
	lock         sync.Mutex
	codeToken    *oauth2.TokenResponse
	codeErr      error
	refreshToken *oauth2.TokenResponse
	refreshErr   error
	codeCalls    []Call
	refreshCalls []Call
}

func NewFakeExchanger() *FakeExchanger {
	return &FakeExchanger{}
}

// OnCode sets the response to ExchangeCode.
func (f *FakeExchanger) OnCode(tok *oauth2.TokenResponse, err error) *FakeExchanger {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.codeToken, f.codeErr = tok, err
	return f
}

// OnRefresh sets the response to ExchangeRefreshToken.
func (f *FakeExchanger) OnRefresh(tok *oauth2.TokenResponse, err error) *FakeExchanger {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.refreshToken, f.refreshErr = tok, err
	return f
}

func (f *FakeExchanger) ExchangeCode(_ context.Context, creds oauthmodel.ClientCredentials, code, redirectURI string) (*oauth2.TokenResponse, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.codeCalls = append(f.codeCalls, Call{Creds: creds, Code: code, RedirectURI: redirectURI})
	return f.codeToken, f.codeErr
}

func (f *FakeExchanger) ExchangeRefreshToken(_ context.Context, creds oauthmodel.ClientCredentials, refreshToken string) (*oauth2.TokenResponse, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.refreshCalls = append(f.refreshCalls, Call{Creds: creds, RefreshToken: refreshToken})
	return f.refreshToken, f.refreshErr
}

func (f *FakeExchanger) CodeCalls() []Call {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]Call(nil), f.codeCalls...)
}

func (f *FakeExchanger) RefreshCalls() []Call {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]Call(nil), f.refreshCalls...)
}
