package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cobra"
)

// NewTokenCommand prints the access token in use, for scripting against the
// API directly (curl -H "Authorization: Bearer $(wbctl token)").
func NewTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the stored access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			token := rt.resolveToken()
			if token == "" {
				stored, ok, err := newStore(rt).Get()
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("not authenticated; run 'wbctl auth login'")
				}
				token = stored
			}
			_, _ = fmt.Fprintln(rt.Writer(), token)
			return nil
		},
	}
}

// claimsIdentity extracts a display name from an unverified JWT. Tokens are
// opaque to the CLI; this only feeds status output, never authorization.
func claimsIdentity(token string) string {
	claims := parseClaims(token)
	if claims == nil {
		return ""
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		return email
	}
	if username, ok := claims["preferred_username"].(string); ok && username != "" {
		return username
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	return ""
}

func tokenExpiry(token string) *time.Time {
	claims := parseClaims(token)
	if claims == nil {
		return nil
	}
	exp, ok := claims["exp"].(float64)
	if !ok || exp == 0 {
		return nil
	}
	expiry := time.Unix(int64(exp), 0)
	return &expiry
}

func parseClaims(token string) jwt.MapClaims {
	parser := jwt.Parser{}
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}
