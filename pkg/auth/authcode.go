package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// BrowserLogin runs the authorization-code grant with PKCE: it starts the
// loopback listener, sends the user's browser to the authorization URL and
// exchanges the returned code for a token. The listener is stopped on
// every exit path.
func BrowserLogin(ctx context.Context, cfg Config) (*TokenResponse, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client id is required")
	}
	if cfg.Endpoints.AuthorizeURL == "" {
		return nil, errors.New("authorize endpoint is required")
	}

	pkce, err := GeneratePKCE()
	if err != nil {
		return nil, err
	}
	state, err := NewStateToken()
	if err != nil {
		return nil, err
	}

	listener := NewCallbackListener(cfg.CallbackPorts)
	redirectURI, err := listener.Start()
	if err != nil {
		return nil, err
	}
	defer listener.Stop()

	authURL := authorizeURL(cfg, pkce, state, redirectURI)
	fmt.Fprintf(cfg.Out, "Open the following URL in your browser to sign in:\n\n  %s\n\n", authURL)
	if cfg.NoBrowser {
		cfg.Log.Debug("browser launch disabled, waiting for manual authorization")
	} else if err := cfg.Browser.Open(authURL); err != nil {
		cfg.Log.Warnw("failed to open browser, follow the printed URL manually", "error", err)
	}

	result, err := listener.Wait(ctx, cfg.CallbackTimeout)
	if err != nil {
		return nil, err
	}
	if result.State != state {
		return nil, ErrStateMismatch
	}

	return exchangeCode(ctx, cfg, result.Code, redirectURI, pkce.Verifier)
}

func authorizeURL(cfg Config, pkce PKCEPair, state, redirectURI string) string {
	oauthCfg := oauth2.Config{
		ClientID:    cfg.ClientID,
		Endpoint:    oauth2.Endpoint{AuthURL: cfg.Endpoints.AuthorizeURL, TokenURL: cfg.Endpoints.TokenURL},
		RedirectURL: redirectURI,
		Scopes:      cfg.Scopes,
	}
	return oauthCfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
	)
}

func exchangeCode(ctx context.Context, cfg Config, code, redirectURI, verifier string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", cfg.ClientID)
	form.Set("code_verifier", verifier)

	resp, err := cfg.HTTP.PostForm(ctx, cfg.Endpoints.TokenURL, form)
	if err != nil {
		return nil, &TokenExchangeError{Err: err}
	}
	return parseTokenResponse(resp)
}
