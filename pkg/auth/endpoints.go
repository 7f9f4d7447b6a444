package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Endpoints are the OAuth endpoints of one Workbench deployment.
type Endpoints struct {
	AuthorizeURL       string
	TokenURL           string
	DeviceAuthorizeURL string
	DeviceTokenURL     string
}

// DefaultEndpoints derives the endpoints hosted by the Workbench server
// itself.
func DefaultEndpoints(server string) Endpoints {
	base := strings.TrimRight(server, "/")
	return Endpoints{
		AuthorizeURL:       base + "/oauth/authorize",
		TokenURL:           base + "/oauth/token",
		DeviceAuthorizeURL: base + "/oauth/device/authorize",
		DeviceTokenURL:     base + "/oauth/device/token",
	}
}

// DiscoverEndpoints resolves endpoints from an OIDC issuer's well-known
// document, for deployments that delegate auth to an external provider.
// Issuers without a device authorization endpoint leave it empty; the
// device token endpoint is the issuer's plain token endpoint.
func DiscoverEndpoints(ctx context.Context, issuer string, httpClient *http.Client) (Endpoints, error) {
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return Endpoints{}, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	var claims struct {
		AuthorizationEndpoint string `json:"authorization_endpoint"`
		TokenEndpoint         string `json:"token_endpoint"`
		DeviceEndpoint        string `json:"device_authorization_endpoint"`
	}
	if err := provider.Claims(&claims); err != nil {
		return Endpoints{}, fmt.Errorf("failed to parse discovery document: %w", err)
	}
	if claims.AuthorizationEndpoint == "" || claims.TokenEndpoint == "" {
		return Endpoints{}, fmt.Errorf("issuer %s does not advertise authorization and token endpoints", issuer)
	}
	return Endpoints{
		AuthorizeURL:       claims.AuthorizationEndpoint,
		TokenURL:           claims.TokenEndpoint,
		DeviceAuthorizeURL: claims.DeviceEndpoint,
		DeviceTokenURL:     claims.TokenEndpoint,
	}, nil
}
