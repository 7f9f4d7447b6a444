package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrStateMismatch means the state echoed on the redirect did not match
	// the one generated for this attempt. Treated as CSRF, never retried.
	ErrStateMismatch = errors.New("authorization state mismatch")

	// ErrCallbackTimeout means the browser never reached the local callback
	// within the configured wait.
	ErrCallbackTimeout = errors.New("timed out waiting for authorization callback")

	// ErrDeviceAccessDenied means the user rejected the device authorization.
	ErrDeviceAccessDenied = errors.New("device authorization denied")

	// ErrDeviceCodeExpired means the device code expired before the user
	// completed authorization.
	ErrDeviceCodeExpired = errors.New("device code expired")

	// ErrDevicePollTimeout means device polling exceeded the overall deadline.
	ErrDevicePollTimeout = errors.New("timed out waiting for device authorization")
)

// PortExhaustedError is returned when every candidate callback port is
// already bound.
type PortExhaustedError struct {
	Ports []int
}

func (e *PortExhaustedError) Error() string {
	if len(e.Ports) == 0 {
		return "no callback ports to try"
	}
	return fmt.Sprintf("no free callback port in %d-%d", e.Ports[0], e.Ports[len(e.Ports)-1])
}

// ListenerStartError reports a callback listener failure other than port
// exhaustion.
type ListenerStartError struct {
	Err error
}

func (e *ListenerStartError) Error() string {
	return fmt.Sprintf("failed to start callback listener: %v", e.Err)
}

func (e *ListenerStartError) Unwrap() error { return e.Err }

// AuthorizationDeniedError carries the error the authorization server
// delivered to the redirect endpoint.
type AuthorizationDeniedError struct {
	Code        string
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization denied: %s", e.Code)
}

// TokenExchangeError reports a failed code-for-token or device-token
// exchange, with the server error code and description when available.
type TokenExchangeError struct {
	Code        string
	Description string
	Err         error
}

func (e *TokenExchangeError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("token exchange failed: %s: %s", e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("token exchange failed: %s", e.Code)
	case e.Description != "":
		return fmt.Sprintf("token exchange failed: %s", e.Description)
	case e.Err != nil:
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	default:
		return "token exchange failed"
	}
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// DeviceFlowInitiationError reports a failed device-authorization request.
type DeviceFlowInitiationError struct {
	Reason string
	Err    error
}

func (e *DeviceFlowInitiationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("device authorization failed: %s", e.Reason)
	}
	return fmt.Sprintf("device authorization failed: %v", e.Err)
}

func (e *DeviceFlowInitiationError) Unwrap() error { return e.Err }
