package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultPollInterval = 5 * time.Second
	maxPollInterval     = 30 * time.Second
)

type deviceAuthorization struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	Interval        int    `json:"interval"`
}

// DeviceLogin runs the device-authorization grant: it requests a user
// code, points the user at the verification page and polls the device
// token endpoint until the grant is approved, denied or times out.
func DeviceLogin(ctx context.Context, cfg Config) (*TokenResponse, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if cfg.Endpoints.DeviceAuthorizeURL == "" || cfg.Endpoints.DeviceTokenURL == "" {
		return nil, errors.New("device endpoints are required")
	}

	grant, err := initiateDeviceFlow(ctx, cfg)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(cfg.Out, "Visit %s and enter code: %s\n", grant.VerificationURI, grant.UserCode)
	if !cfg.NoBrowser {
		verificationURL := fmt.Sprintf("%s?user_code=%s", grant.VerificationURI, url.QueryEscape(grant.UserCode))
		if err := cfg.Browser.Open(verificationURL); err != nil {
			cfg.Log.Warnw("failed to open browser, follow the printed URL manually", "error", err)
		}
	}

	return pollDeviceToken(ctx, cfg, grant)
}

func initiateDeviceFlow(ctx context.Context, cfg Config) (*deviceAuthorization, error) {
	resp, err := cfg.HTTP.PostJSON(ctx, cfg.Endpoints.DeviceAuthorizeURL, nil)
	if err != nil {
		return nil, &DeviceFlowInitiationError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		reason := fmt.Sprintf("unexpected response (status %d)", resp.StatusCode)
		if body := strings.TrimSpace(string(resp.Body)); body != "" {
			reason = fmt.Sprintf("%s: %s", reason, body)
		}
		return nil, &DeviceFlowInitiationError{Reason: reason}
	}
	var grant deviceAuthorization
	if err := resp.JSON(&grant); err != nil {
		return nil, &DeviceFlowInitiationError{Err: err}
	}
	switch {
	case grant.DeviceCode == "":
		return nil, &DeviceFlowInitiationError{Reason: "response missing device_code"}
	case grant.UserCode == "":
		return nil, &DeviceFlowInitiationError{Reason: "response missing user_code"}
	case grant.VerificationURI == "":
		return nil, &DeviceFlowInitiationError{Reason: "response missing verification_uri"}
	}
	if grant.Interval <= 0 {
		grant.Interval = int(defaultPollInterval / time.Second)
	}
	return &grant, nil
}

func pollDeviceToken(ctx context.Context, cfg Config, grant *deviceAuthorization) (*TokenResponse, error) {
	interval := time.Duration(grant.Interval) * time.Second
	deadline := time.Now().Add(cfg.PollTimeout)

	for {
		if time.Now().After(deadline) {
			return nil, ErrDevicePollTimeout
		}

		form := url.Values{}
		form.Set("device_code", grant.DeviceCode)
		resp, err := cfg.HTTP.PostForm(ctx, cfg.Endpoints.DeviceTokenURL, form)
		if err != nil {
			return nil, err
		}
		token, err := parseTokenResponse(resp)
		if err == nil {
			return token, nil
		}
		var exchErr *TokenExchangeError
		if !errors.As(err, &exchErr) {
			return nil, err
		}
		switch exchErr.Code {
		case "authorization_pending":
		case "slow_down":
			interval *= 2
			if interval > maxPollInterval {
				interval = maxPollInterval
			}
		case "expired_token":
			return nil, ErrDeviceCodeExpired
		case "access_denied":
			return nil, ErrDeviceAccessDenied
		default:
			return nil, exchErr
		}

		cfg.Log.Debugw("waiting for device authorization", "interval", interval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}
