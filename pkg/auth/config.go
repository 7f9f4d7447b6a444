package auth

import (
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/workbench-cloud/workbench-cli/pkg/client"
)

const (
	defaultCallbackTimeout = 5 * time.Minute
	defaultPollTimeout     = 10 * time.Minute
)

// Config carries everything a login flow needs. HTTP and the relevant
// endpoints are mandatory; zero values elsewhere get defaults.
type Config struct {
	Endpoints Endpoints
	ClientID  string
	Scopes    []string

	HTTP    *client.Client
	Browser BrowserOpener
	Out     io.Writer
	Log     *zap.SugaredLogger

	// NoBrowser suppresses launching the system browser; the user follows
	// the printed URL instead.
	NoBrowser bool

	// CallbackTimeout bounds the wait for the browser redirect.
	CallbackTimeout time.Duration
	// PollTimeout bounds the whole device polling phase.
	PollTimeout time.Duration

	// CallbackPorts overrides the candidate loopback ports.
	CallbackPorts []int
}

func (c *Config) normalize() error {
	if c.HTTP == nil {
		return errors.New("http client is required")
	}
	if c.Endpoints.TokenURL == "" {
		return errors.New("token endpoint is required")
	}
	if c.Browser == nil {
		c.Browser = SystemBrowser{}
	}
	if c.Out == nil {
		c.Out = io.Discard
	}
	if c.Log == nil {
		c.Log = zap.NewNop().Sugar()
	}
	if c.CallbackTimeout <= 0 {
		c.CallbackTimeout = defaultCallbackTimeout
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = defaultPollTimeout
	}
	if len(c.CallbackPorts) == 0 {
		c.CallbackPorts = CallbackPorts()
	}
	return nil
}
