package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/workbench-cloud/workbench-cli/pkg/client"
)

// fakeBrowser records opened URLs instead of launching anything.
type fakeBrowser struct {
	urls chan string
	err  error
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{urls: make(chan string, 1)}
}

func (b *fakeBrowser) Open(url string) error {
	select {
	case b.urls <- url:
	default:
	}
	return b.err
}

func (b *fakeBrowser) opened(t *testing.T) string {
	t.Helper()
	select {
	case u := <-b.urls:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("browser was never opened")
		return ""
	}
}

type loginOutcome struct {
	token *TokenResponse
	err   error
}

func startBrowserLogin(ctx context.Context, cfg Config) chan loginOutcome {
	done := make(chan loginOutcome, 1)
	go func() {
		token, err := BrowserLogin(ctx, cfg)
		done <- loginOutcome{token: token, err: err}
	}()
	return done
}

func awaitLogin(t *testing.T, done chan loginOutcome) loginOutcome {
	t.Helper()
	select {
	case outcome := <-done:
		return outcome
	case <-time.After(10 * time.Second):
		t.Fatal("login did not finish")
		return loginOutcome{}
	}
}

func TestBrowserLogin(t *testing.T) {
	var exchangeCalls int32
	formCh := make(chan url.Values, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		atomic.AddInt32(&exchangeCalls, 1)
		require.NoError(t, r.ParseForm())
		formCh <- r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-123",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "rt-456",
			"scope":         "openid profile",
		})
	}))
	defer server.Close()

	httpClient, err := client.New(client.WithServer(server.URL))
	require.NoError(t, err)

	browser := newFakeBrowser()
	out := &bytes.Buffer{}
	cfg := Config{
		Endpoints: Endpoints{
			AuthorizeURL: "https://auth.example.com/oauth/authorize",
			TokenURL:     server.URL + "/oauth/token",
		},
		ClientID:        "wbctl",
		Scopes:          []string{"openid", "profile"},
		HTTP:            httpClient,
		Browser:         browser,
		Out:             out,
		CallbackTimeout: 5 * time.Second,
		CallbackPorts:   freePorts(t, 1),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := startBrowserLogin(ctx, cfg)

	authURL := browser.opened(t)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "https", parsed.Scheme)
	query := parsed.Query()
	require.Equal(t, "code", query.Get("response_type"))
	require.Equal(t, "wbctl", query.Get("client_id"))
	require.Equal(t, "openid profile", query.Get("scope"))
	require.Equal(t, "S256", query.Get("code_challenge_method"))
	require.NotEmpty(t, query.Get("code_challenge"))
	require.Len(t, query.Get("state"), 43)

	redirectURI := query.Get("redirect_uri")
	require.True(t, strings.HasPrefix(redirectURI, "http://localhost:"), "got %q", redirectURI)
	require.True(t, strings.HasSuffix(redirectURI, "/callback"), "got %q", redirectURI)

	resp, err := http.Get(fmt.Sprintf("%s?code=test-code&state=%s", redirectURI, url.QueryEscape(query.Get("state"))))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	outcome := awaitLogin(t, done)
	require.NoError(t, outcome.err)
	require.Equal(t, "at-123", outcome.token.AccessToken)
	require.Equal(t, "Bearer", outcome.token.TokenType)
	require.Equal(t, "rt-456", outcome.token.RefreshToken)
	require.Equal(t, int32(1), atomic.LoadInt32(&exchangeCalls))

	form := <-formCh
	require.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Equal(t, "test-code", form.Get("code"))
	require.Equal(t, redirectURI, form.Get("redirect_uri"))
	require.Equal(t, "wbctl", form.Get("client_id"))
	require.Len(t, form.Get("code_verifier"), 43)
	require.Equal(t, query.Get("code_challenge"), ChallengeS256(form.Get("code_verifier")))

	require.Contains(t, out.String(), "Open the following URL")

	// The callback port must be free again once the flow returns.
	addr := strings.TrimSuffix(strings.TrimPrefix(redirectURI, "http://"), "/callback")
	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err, "callback port still bound after login")
	_ = ln.Close()
}

func TestBrowserLogin_StateMismatch(t *testing.T) {
	var exchangeCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&exchangeCalls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	httpClient, err := client.New(client.WithServer(server.URL))
	require.NoError(t, err)

	browser := newFakeBrowser()
	cfg := Config{
		Endpoints: Endpoints{
			AuthorizeURL: "https://auth.example.com/oauth/authorize",
			TokenURL:     server.URL + "/oauth/token",
		},
		ClientID:        "wbctl",
		HTTP:            httpClient,
		Browser:         browser,
		CallbackTimeout: 5 * time.Second,
		CallbackPorts:   freePorts(t, 1),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := startBrowserLogin(ctx, cfg)

	authURL := browser.opened(t)
	query := mustParseQuery(t, authURL)
	redirectURI := query.Get("redirect_uri")

	resp, err := http.Get(redirectURI + "?code=test-code&state=not-the-state")
	require.NoError(t, err)
	_ = resp.Body.Close()

	outcome := awaitLogin(t, done)
	require.ErrorIs(t, outcome.err, ErrStateMismatch)
	require.Equal(t, int32(0), atomic.LoadInt32(&exchangeCalls), "exchange must not run on state mismatch")
}

func TestBrowserLogin_AuthorizationDenied(t *testing.T) {
	var exchangeCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&exchangeCalls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	httpClient, err := client.New(client.WithServer(server.URL))
	require.NoError(t, err)

	browser := newFakeBrowser()
	cfg := Config{
		Endpoints: Endpoints{
			AuthorizeURL: "https://auth.example.com/oauth/authorize",
			TokenURL:     server.URL + "/oauth/token",
		},
		ClientID:        "wbctl",
		HTTP:            httpClient,
		Browser:         browser,
		CallbackTimeout: 5 * time.Second,
		CallbackPorts:   freePorts(t, 1),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := startBrowserLogin(ctx, cfg)

	authURL := browser.opened(t)
	redirectURI := mustParseQuery(t, authURL).Get("redirect_uri")

	resp, err := http.Get(redirectURI + "?error=access_denied&error_description=user+rejected")
	require.NoError(t, err)
	_ = resp.Body.Close()

	outcome := awaitLogin(t, done)
	var denied *AuthorizationDeniedError
	require.True(t, errors.As(outcome.err, &denied))
	require.Equal(t, "access_denied", denied.Code)
	require.Equal(t, "user rejected", denied.Description)
	require.Equal(t, int32(0), atomic.LoadInt32(&exchangeCalls))
}

func TestBrowserLogin_ExchangeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "code already redeemed",
		})
	}))
	defer server.Close()

	httpClient, err := client.New(client.WithServer(server.URL))
	require.NoError(t, err)

	browser := newFakeBrowser()
	cfg := Config{
		Endpoints: Endpoints{
			AuthorizeURL: "https://auth.example.com/oauth/authorize",
			TokenURL:     server.URL + "/oauth/token",
		},
		ClientID:        "wbctl",
		HTTP:            httpClient,
		Browser:         browser,
		CallbackTimeout: 5 * time.Second,
		CallbackPorts:   freePorts(t, 1),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := startBrowserLogin(ctx, cfg)

	authURL := browser.opened(t)
	query := mustParseQuery(t, authURL)
	redirectURI := query.Get("redirect_uri")

	resp, err := http.Get(fmt.Sprintf("%s?code=stale&state=%s", redirectURI, url.QueryEscape(query.Get("state"))))
	require.NoError(t, err)
	_ = resp.Body.Close()

	outcome := awaitLogin(t, done)
	var exchErr *TokenExchangeError
	require.True(t, errors.As(outcome.err, &exchErr))
	require.Equal(t, "invalid_grant", exchErr.Code)
	require.Equal(t, "code already redeemed", exchErr.Description)
	require.Contains(t, outcome.err.Error(), "invalid_grant")
}

func TestBrowserLogin_CallbackTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	httpClient, err := client.New(client.WithServer(server.URL))
	require.NoError(t, err)

	cfg := Config{
		Endpoints: Endpoints{
			AuthorizeURL: "https://auth.example.com/oauth/authorize",
			TokenURL:     server.URL + "/oauth/token",
		},
		ClientID:        "wbctl",
		HTTP:            httpClient,
		Browser:         newFakeBrowser(),
		CallbackTimeout: 100 * time.Millisecond,
		CallbackPorts:   freePorts(t, 1),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = BrowserLogin(ctx, cfg)
	require.ErrorIs(t, err, ErrCallbackTimeout)
}

func TestBrowserLogin_BrowserFailureIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1", "token_type": "Bearer"})
	}))
	defer server.Close()

	httpClient, err := client.New(client.WithServer(server.URL))
	require.NoError(t, err)

	browser := newFakeBrowser()
	browser.err = errors.New("no display")
	out := &bytes.Buffer{}
	cfg := Config{
		Endpoints: Endpoints{
			AuthorizeURL: "https://auth.example.com/oauth/authorize",
			TokenURL:     server.URL + "/oauth/token",
		},
		ClientID:        "wbctl",
		HTTP:            httpClient,
		Browser:         browser,
		Out:             out,
		CallbackTimeout: 5 * time.Second,
		CallbackPorts:   freePorts(t, 1),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := startBrowserLogin(ctx, cfg)

	authURL := browser.opened(t)
	query := mustParseQuery(t, authURL)
	resp, err := http.Get(fmt.Sprintf("%s?code=ok&state=%s", query.Get("redirect_uri"), url.QueryEscape(query.Get("state"))))
	require.NoError(t, err)
	_ = resp.Body.Close()

	outcome := awaitLogin(t, done)
	require.NoError(t, outcome.err)
	require.Equal(t, "at-1", outcome.token.AccessToken)
	require.Contains(t, out.String(), "Open the following URL")
}

func TestBrowserLogin_MissingClientID(t *testing.T) {
	httpClient, err := client.New(client.WithServer("https://example.com"))
	require.NoError(t, err)

	_, err = BrowserLogin(context.Background(), Config{
		Endpoints: DefaultEndpoints("https://example.com"),
		HTTP:      httpClient,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "client id is required")
}

func mustParseQuery(t *testing.T, rawURL string) url.Values {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	return parsed.Query()
}
