package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/workbench-cloud/workbench-cli/pkg/auth"
	"github.com/workbench-cloud/workbench-cli/pkg/client"
	"github.com/workbench-cloud/workbench-cli/pkg/config"
	"github.com/workbench-cloud/workbench-cli/pkg/logging"
)

// buildClient assembles an authenticated API client from flags, env vars,
// the config file and the credential store, in that order of precedence.
func buildClient(rt *runtimeState) (*client.Client, error) {
	// If both server and token are provided via flags/env vars, we can bypass
	// config and credential resolution entirely
	if rt.serverOverride != "" && rt.tokenOverride != "" {
		options := []client.Option{
			client.WithServer(rt.serverOverride),
			client.WithToken(rt.tokenOverride),
			client.WithUserAgent("wbctl"),
		}
		if rt.cfg != nil {
			options = append(options, client.WithTimeout(rt.cfg.RequestTimeout()))
		}
		// No TLS config when bypassing - user is responsible for providing
		// a valid server URL
		options = append(options, client.WithTLSConfig("", false))
		if rt.verbose {
			options = append(options, client.WithVerbose(debugf))
		}
		return client.New(options...)
	}

	if err := rt.EnsureConfigLoaded(); err != nil {
		return nil, err
	}
	token := rt.resolveToken()
	if token == "" {
		stored, ok, err := newStore(rt).Get()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New("not authenticated; run 'wbctl auth login'")
		}
		token = stored
	}
	return newClientWithToken(rt, token)
}

// buildAnonClient is the unauthenticated client the login flows use to talk
// to the OAuth endpoints.
func buildAnonClient(rt *runtimeState) (*client.Client, error) {
	if err := rt.EnsureConfigLoaded(); err != nil {
		return nil, err
	}
	return newClientWithToken(rt, "")
}

func newClientWithToken(rt *runtimeState, token string) (*client.Client, error) {
	options := []client.Option{
		client.WithServer(rt.resolveServer()),
		client.WithUserAgent("wbctl"),
		client.WithTimeout(rt.cfg.RequestTimeout()),
	}
	if token != "" {
		options = append(options, client.WithToken(token))
	}
	// TLS config is applied after the timeout so it lands on the final
	// http client
	options = append(options, client.WithTLSConfig(rt.cfg.Auth.CAFile, rt.cfg.Auth.InsecureSkipTLSVerify))
	if rt.verbose {
		options = append(options, client.WithVerbose(debugf))
	}
	return client.New(options...)
}

// debugf writes verbose client traces to stderr to avoid corrupting JSON
// output on stdout.
func debugf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
}

// newStore picks the credential backend configured via --token-storage,
// WBCTL_TOKEN_STORAGE or settings.token-storage.
func newStore(rt *runtimeState) auth.Store {
	if rt.TokenStorage() == config.StorageKeyring {
		return auth.NewKeyringStore()
	}
	return auth.NewFileStore(config.DefaultCredentialPath())
}

// resolveEndpoints locates the OAuth endpoints: explicit config overrides
// win, then OIDC discovery when an issuer is configured, then the fixed
// paths on the Workbench server.
func resolveEndpoints(ctx context.Context, rt *runtimeState, httpClient *client.Client) (auth.Endpoints, error) {
	var endpoints auth.Endpoints
	if issuer := rt.cfg.Auth.Issuer; issuer != "" {
		discovered, err := auth.DiscoverEndpoints(ctx, issuer, httpClient.HTTPClient())
		if err != nil {
			return auth.Endpoints{}, err
		}
		endpoints = discovered
	} else {
		endpoints = auth.DefaultEndpoints(rt.resolveServer())
	}
	if v := rt.cfg.Auth.AuthorizeURL; v != "" {
		endpoints.AuthorizeURL = v
	}
	if v := rt.cfg.Auth.TokenURL; v != "" {
		endpoints.TokenURL = v
	}
	if v := rt.cfg.Auth.DeviceAuthorizeURL; v != "" {
		endpoints.DeviceAuthorizeURL = v
	}
	if v := rt.cfg.Auth.DeviceTokenURL; v != "" {
		endpoints.DeviceTokenURL = v
	}
	return endpoints, nil
}

// buildLoginConfig assembles everything a login flow needs. A zero timeout
// leaves the flow defaults in place.
func buildLoginConfig(ctx context.Context, rt *runtimeState, timeout time.Duration) (auth.Config, error) {
	httpClient, err := buildAnonClient(rt)
	if err != nil {
		return auth.Config{}, err
	}
	endpoints, err := resolveEndpoints(ctx, rt, httpClient)
	if err != nil {
		return auth.Config{}, err
	}
	log := logging.Nop()
	if rt.verbose {
		log, err = logging.Setup(true)
		if err != nil {
			return auth.Config{}, err
		}
	}
	return auth.Config{
		Endpoints:       endpoints,
		ClientID:        rt.cfg.ClientID(),
		Scopes:          rt.cfg.Scopes(),
		HTTP:            httpClient,
		Out:             rt.Writer(),
		Log:             log,
		NoBrowser:       rt.noBrowser,
		CallbackTimeout: timeout,
		PollTimeout:     timeout,
	}, nil
}
