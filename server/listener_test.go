package server_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	autherrors "github.com/jrsteele09/go-tumblr-auth/internal/errors"
	"github.com/jrsteele09/go-tumblr-auth/oauth2"
	"github.com/jrsteele09/go-tumblr-auth/server"
	"github.com/stretchr/testify/require"
)

const (
	testState = "expected-state-value-0123456789abcdef"
	testCode  = "auth-code-123"
	waitLimit = 5 * time.Second
)

// exchangeStub counts calls and returns a fixed result.
type exchangeStub struct {
	calls atomic.Int32
	codes chan string
	token *oauth2.TokenResponse
	err   error
	block chan struct{} // when set, Exchange waits for it to close
}

func newExchangeStub(tok *oauth2.TokenResponse, err error) *exchangeStub {
	return &exchangeStub{codes: make(chan string, 10), token: tok, err: err}
}

func (s *exchangeStub) Exchange(ctx context.Context, code string) (*oauth2.TokenResponse, error) {
	s.calls.Add(1)
	s.codes <- code
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.token, s.err
}

type successRecorder struct {
	calls atomic.Int32
	last  atomic.Pointer[oauth2.TokenResponse]
}

func (r *successRecorder) OnSuccess(tok *oauth2.TokenResponse) {
	r.calls.Add(1)
	r.last.Store(tok)
}

func startListener(t *testing.T, cfg server.ListenerConfig) *server.Listener {
	t.Helper()
	if cfg.ExpectedState == "" {
		cfg.ExpectedState = testState
	}
	l := server.NewListener(cfg)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(l.Close)
	return l
}

func redirectURL(l *server.Listener, path string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return fmt.Sprintf("http://%s%s?%s", l.Addr().String(), path, q.Encode())
}

func get(t *testing.T, rawURL string) (int, string) {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func wait(t *testing.T, l *server.Listener) (*oauth2.TokenResponse, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitLimit)
	defer cancel()
	tok, err := l.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "listener never resolved")
	return tok, err
}

// requireClosed asserts a fresh connection to the listener's port is refused.
func requireClosed(t *testing.T, addr string) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err == nil {
		conn.Close()
	}
	require.Error(t, err, "listener socket still accepting connections")
}

func testToken() *oauth2.TokenResponse {
	return &oauth2.TokenResponse{AccessToken: "abc", TokenType: "bearer", ExpiresIn: 3600, Scope: "basic"}
}

func TestListener_Completed(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	rec := &successRecorder{}
	l := startListener(t, server.ListenerConfig{Exchange: stub.Exchange, OnSuccess: rec.OnSuccess})
	addr := l.Addr().String()

	status, body := get(t, redirectURL(l, "/", map[string]string{"code": testCode, "state": testState}))
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "Success")

	tok, err := wait(t, l)
	require.NoError(t, err)
	require.Equal(t, testToken(), tok)
	require.Equal(t, server.StateCompleted, l.State())

	require.EqualValues(t, 1, stub.calls.Load())
	require.Equal(t, testCode, <-stub.codes)
	require.EqualValues(t, 1, rec.calls.Load())
	require.Equal(t, testToken(), rec.last.Load())

	requireClosed(t, addr)
}

func TestListener_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]string
		wantErr error
	}{
		{name: "state mismatch", params: map[string]string{"code": testCode, "state": "forged"}, wantErr: autherrors.ErrCsrfMismatch},
		{name: "state missing", params: map[string]string{"code": testCode}, wantErr: autherrors.ErrCsrfMismatch},
		{name: "state prefix", params: map[string]string{"code": testCode, "state": testState[:10]}, wantErr: autherrors.ErrCsrfMismatch},
		{name: "code missing", params: map[string]string{"state": testState}, wantErr: autherrors.ErrMissingCode},
		{name: "provider denied", params: map[string]string{"state": testState, "error": "access_denied", "error_description": "user said no"}, wantErr: autherrors.ErrProviderDenied},
		{name: "forged provider error", params: map[string]string{"state": "forged", "error": "access_denied"}, wantErr: autherrors.ErrCsrfMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newExchangeStub(testToken(), nil)
			rec := &successRecorder{}
			l := startListener(t, server.ListenerConfig{Exchange: stub.Exchange, OnSuccess: rec.OnSuccess})
			addr := l.Addr().String()

			status, body := get(t, redirectURL(l, "/", tt.params))
			require.Equal(t, http.StatusOK, status)
			require.Contains(t, body, "Invalid response")

			tok, err := wait(t, l)
			require.Nil(t, tok)
			require.ErrorIs(t, err, tt.wantErr)
			require.Equal(t, server.StateRejected, l.State())

			require.Zero(t, stub.calls.Load(), "exchanger must not be called")
			require.Zero(t, rec.calls.Load(), "callback must not be called")
			requireClosed(t, addr)
		})
	}
}

func TestListener_ProviderErrorDetails(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	l := startListener(t, server.ListenerConfig{Exchange: stub.Exchange})

	get(t, redirectURL(l, "/", map[string]string{"state": testState, "error": "access_denied", "error_description": "user said no"}))

	_, err := wait(t, l)
	var providerErr *autherrors.ProviderError
	require.ErrorAs(t, err, &providerErr)
	require.Equal(t, "access_denied", providerErr.Code)
	require.Equal(t, "user said no", providerErr.Description)
}

func TestListener_ExchangeFailed(t *testing.T) {
	exchangeErr := &autherrors.ExchangeError{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", ErrorCode: "invalid_grant"}
	stub := newExchangeStub(nil, exchangeErr)
	rec := &successRecorder{}
	l := startListener(t, server.ListenerConfig{Exchange: stub.Exchange, OnSuccess: rec.OnSuccess})
	addr := l.Addr().String()

	status, body := get(t, redirectURL(l, "/", map[string]string{"code": testCode, "state": testState}))
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "could not be exchanged")

	tok, err := wait(t, l)
	require.Nil(t, tok)
	require.ErrorIs(t, err, autherrors.ErrExchange)
	require.Contains(t, err.Error(), "invalid_grant")
	require.Equal(t, server.StateFailed, l.State())
	require.EqualValues(t, 1, stub.calls.Load())
	require.Zero(t, rec.calls.Load())
	requireClosed(t, addr)
}

func TestListener_ExchangePanics(t *testing.T) {
	l := startListener(t, server.ListenerConfig{
		Exchange: func(context.Context, string) (*oauth2.TokenResponse, error) {
			panic("boom")
		},
	})
	addr := l.Addr().String()

	resp, err := http.Get(redirectURL(l, "/", map[string]string{"code": testCode, "state": testState}))
	if err == nil {
		resp.Body.Close()
	}

	_, err = wait(t, l)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
	require.Equal(t, server.StateFailed, l.State())
	requireClosed(t, addr)
}

func TestListener_IgnoresOtherPathsAndMethods(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	l := startListener(t, server.ListenerConfig{Exchange: stub.Exchange, RedirectPath: "/callback"})

	status, _ := get(t, redirectURL(l, "/favicon.ico", nil))
	require.Equal(t, http.StatusNotFound, status)

	status, _ = get(t, redirectURL(l, "/", map[string]string{"code": testCode, "state": testState}))
	require.Equal(t, http.StatusNotFound, status)

	resp, err := http.Post(redirectURL(l, "/callback", map[string]string{"code": testCode, "state": testState}), "text/plain", strings.NewReader(""))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	require.Equal(t, server.StateListening, l.State())
	require.Zero(t, stub.calls.Load())

	status, _ = get(t, redirectURL(l, "/callback", map[string]string{"code": testCode, "state": testState}))
	require.Equal(t, http.StatusOK, status)

	_, err = wait(t, l)
	require.NoError(t, err)
}

func TestListener_MalformedRequestKeepsListening(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	l := startListener(t, server.ListenerConfig{Exchange: stub.Exchange})

	// HTTP/1.1 without a Host header is refused by net/http before any handler runs.
	conn, err := net.DialTimeout("tcp", l.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()
	_, err = fmt.Fprintf(conn, "GET /?code=%s&state=%s HTTP/1.1\r\n\r\n", testCode, testState)
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.Equal(t, server.StateListening, l.State())
	require.Zero(t, stub.calls.Load())

	status, _ := get(t, redirectURL(l, "/", map[string]string{"code": testCode, "state": testState}))
	require.Equal(t, http.StatusOK, status)
	_, err = wait(t, l)
	require.NoError(t, err)
}

func TestListener_SecondRequestWhileExchanging(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	stub.block = make(chan struct{})
	l := startListener(t, server.ListenerConfig{Exchange: stub.Exchange})
	target := redirectURL(l, "/", map[string]string{"code": testCode, "state": testState})

	firstStatus := make(chan int, 1)
	go func() {
		resp, err := http.Get(target)
		if err != nil {
			firstStatus <- 0
			return
		}
		resp.Body.Close()
		firstStatus <- resp.StatusCode
	}()

	select {
	case <-stub.codes:
	case <-time.After(waitLimit):
		t.Fatal("exchange never started")
	}
	require.Equal(t, server.StateExchanging, l.State())

	status, _ := get(t, target)
	require.Equal(t, http.StatusConflict, status)

	close(stub.block)
	require.Equal(t, http.StatusOK, <-firstStatus)

	_, err := wait(t, l)
	require.NoError(t, err)
	require.EqualValues(t, 1, stub.calls.Load())
}

func TestListener_Timeout(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	l := startListener(t, server.ListenerConfig{Exchange: stub.Exchange, Timeout: 50 * time.Millisecond})
	addr := l.Addr().String()

	_, err := wait(t, l)
	require.ErrorIs(t, err, autherrors.ErrListenerTimeout)
	require.Equal(t, server.StateExpired, l.State())
	require.Zero(t, stub.calls.Load())
	requireClosed(t, addr)
}

func TestListener_ContextCancelled(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	l := server.NewListener(server.ListenerConfig{ExpectedState: testState, Exchange: stub.Exchange})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))
	addr := l.Addr().String()
	cancel()

	_, err := wait(t, l)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, server.StateExpired, l.State())
	requireClosed(t, addr)
}

func TestListener_CancelDuringExchange(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	stub.block = make(chan struct{})
	l := server.NewListener(server.ListenerConfig{ExpectedState: testState, Exchange: stub.Exchange})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))
	target := redirectURL(l, "/", map[string]string{"code": testCode, "state": testState})

	go func() {
		if resp, err := http.Get(target); err == nil {
			resp.Body.Close()
		}
	}()
	<-stub.codes
	cancel()

	_, err := wait(t, l)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, server.StateFailed, l.State())
}

func TestListener_Close(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	l := startListener(t, server.ListenerConfig{Exchange: stub.Exchange})
	addr := l.Addr().String()

	l.Close()
	l.Close()

	_, err := wait(t, l)
	require.ErrorIs(t, err, autherrors.ErrListenerClosed)
	requireClosed(t, addr)

	select {
	case <-l.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestListener_OnCloseCalledOnce(t *testing.T) {
	var closes atomic.Int32
	stub := newExchangeStub(testToken(), nil)
	l := startListener(t, server.ListenerConfig{
		Exchange: stub.Exchange,
		OnClose:  func() { closes.Add(1) },
	})

	get(t, redirectURL(l, "/", map[string]string{"code": testCode, "state": testState}))
	_, err := wait(t, l)
	require.NoError(t, err)

	l.Close()
	require.EqualValues(t, 1, closes.Load())
}

func TestListener_BindsLoopbackOnly(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	l := startListener(t, server.ListenerConfig{Exchange: stub.Exchange})

	tcp, ok := l.Addr().(*net.TCPAddr)
	require.True(t, ok)
	require.True(t, tcp.IP.IsLoopback())
	require.Equal(t, "127.0.0.1", tcp.IP.String())
	require.NotZero(t, l.Port())
}

func TestListener_PortInUse(t *testing.T) {
	stub := newExchangeStub(testToken(), nil)
	first := startListener(t, server.ListenerConfig{Exchange: stub.Exchange})

	second := server.NewListener(server.ListenerConfig{Port: first.Port(), ExpectedState: testState, Exchange: stub.Exchange})
	err := second.Start(context.Background())
	require.ErrorIs(t, err, autherrors.ErrBind)

	var bindErr *autherrors.BindError
	require.True(t, errors.As(err, &bindErr))
	require.Contains(t, bindErr.Addr, fmt.Sprint(first.Port()))

	// The first listener is unaffected.
	require.Equal(t, server.StateListening, first.State())
}

func TestListener_StartValidation(t *testing.T) {
	t.Run("empty state", func(t *testing.T) {
		l := server.NewListener(server.ListenerConfig{Exchange: newExchangeStub(nil, nil).Exchange})
		require.ErrorIs(t, l.Start(context.Background()), autherrors.ErrConfiguration)
	})

	t.Run("no exchanger", func(t *testing.T) {
		l := server.NewListener(server.ListenerConfig{ExpectedState: testState})
		require.ErrorIs(t, l.Start(context.Background()), autherrors.ErrConfiguration)
	})

	t.Run("started twice", func(t *testing.T) {
		l := startListener(t, server.ListenerConfig{Exchange: newExchangeStub(nil, nil).Exchange})
		require.Error(t, l.Start(context.Background()))
	})
}

func TestState_String(t *testing.T) {
	require.Equal(t, "listening", server.StateListening.String())
	require.Equal(t, "completed", server.StateCompleted.String())
	require.False(t, server.StateExchanging.Terminal())
	require.True(t, server.StateRejected.Terminal())
	require.True(t, server.StateExpired.Terminal())
}
