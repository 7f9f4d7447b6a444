package auth

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/workbench-cloud/workbench-cli/pkg/client"
)

// TokenResponse is the token endpoint's success payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Token converts the response into an oauth2.Token, defaulting the type
// to Bearer and resolving expires_in against the current clock.
func (t *TokenResponse) Token() *oauth2.Token {
	tokenType := t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	token := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    tokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return token
}

type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// parseTokenResponse maps a token endpoint response to either a
// TokenResponse or a TokenExchangeError carrying the server's error code.
func parseTokenResponse(resp *client.Response) (*TokenResponse, error) {
	if resp.StatusCode == http.StatusOK {
		var token TokenResponse
		if err := resp.JSON(&token); err != nil {
			return nil, &TokenExchangeError{Err: err}
		}
		if token.AccessToken == "" {
			return nil, &TokenExchangeError{Description: "response carried no access token"}
		}
		return &token, nil
	}
	var oauthErr oauthErrorBody
	if err := resp.JSON(&oauthErr); err != nil || oauthErr.Error == "" {
		return nil, &TokenExchangeError{Description: fmt.Sprintf("unexpected response (status %d)", resp.StatusCode)}
	}
	return nil, &TokenExchangeError{Code: oauthErr.Error, Description: oauthErr.ErrorDescription}
}
