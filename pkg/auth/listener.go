package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"
)

// Callback ports tried in order. The range is registered with the
// authorization server as valid redirect targets, so it is fixed rather
// than ephemeral.
const (
	callbackPortFirst = 14550
	callbackPortLast  = 14559
	callbackPath      = "/callback"
)

const listenerStopTimeout = 5 * time.Second

// CallbackPorts returns the default candidate loopback ports.
func CallbackPorts() []int {
	ports := make([]int, 0, callbackPortLast-callbackPortFirst+1)
	for port := callbackPortFirst; port <= callbackPortLast; port++ {
		ports = append(ports, port)
	}
	return ports
}

// CallbackResult is the successful outcome of one redirect: the
// authorization code and the echoed state.
type CallbackResult struct {
	Code  string
	State string
}

type callbackOutcome struct {
	result *CallbackResult
	err    error
}

// CallbackListener receives a single OAuth redirect on a loopback port.
// Every login attempt gets a fresh listener; instances must not be reused
// after Stop.
type CallbackListener struct {
	ports []int

	ln   net.Listener
	srv  *http.Server
	port int

	resultCh  chan callbackOutcome
	serveErr  chan error
	recordOne sync.Once
	stopOnce  sync.Once
}

// NewCallbackListener prepares a listener over the given candidate ports,
// or the default range when none are given.
func NewCallbackListener(ports []int) *CallbackListener {
	if len(ports) == 0 {
		ports = CallbackPorts()
	}
	return &CallbackListener{
		ports:    ports,
		resultCh: make(chan callbackOutcome, 1),
		serveErr: make(chan error, 1),
	}
}

// Start binds the first free candidate port and serves the callback
// endpoint on its own goroutine. It returns the redirect URI to put in the
// authorization request.
func (l *CallbackListener) Start() (string, error) {
	if l.srv != nil {
		return "", errors.New("listener already started")
	}
	var lastErr error
	for _, port := range l.ports {
		ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err != nil {
			lastErr = err
			continue
		}
		l.ln = ln
		l.port = port
		break
	}
	if l.ln == nil {
		if lastErr != nil && !errors.Is(lastErr, syscall.EADDRINUSE) {
			return "", &ListenerStartError{Err: lastErr}
		}
		return "", &PortExhaustedError{Ports: l.ports}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, l.handleCallback)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case l.serveErr <- err:
			default:
			}
		}
	}()
	return l.RedirectURI(), nil
}

// RedirectURI is the loopback URL the authorization server redirects to.
func (l *CallbackListener) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d%s", l.port, callbackPath)
}

// Wait blocks until the redirect arrives, the timeout passes, the serve
// loop dies, or ctx is cancelled.
func (l *CallbackListener) Wait(ctx context.Context, timeout time.Duration) (*CallbackResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case outcome := <-l.resultCh:
		if outcome.err != nil {
			return nil, outcome.err
		}
		return outcome.result, nil
	case err := <-l.serveErr:
		return nil, fmt.Errorf("callback listener failed: %w", err)
	case <-timer.C:
		return nil, ErrCallbackTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts the server down, waiting briefly for in-flight handlers.
// Safe to call more than once and on a listener that never started.
func (l *CallbackListener) Stop() {
	l.stopOnce.Do(func() {
		if l.srv == nil {
			if l.ln != nil {
				_ = l.ln.Close()
			}
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), listenerStopTimeout)
		defer cancel()
		_ = l.srv.Shutdown(ctx)
	})
}

func (l *CallbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	switch {
	case query.Get("error") != "":
		l.record(callbackOutcome{err: &AuthorizationDeniedError{
			Code:        query.Get("error"),
			Description: query.Get("error_description"),
		}})
		writePage(w, http.StatusBadRequest, "Sign-in failed",
			fmt.Sprintf("The authorization server reported: %s. You can close this window and return to the terminal.", query.Get("error")))
	case query.Get("code") != "":
		l.record(callbackOutcome{result: &CallbackResult{
			Code:  query.Get("code"),
			State: query.Get("state"),
		}})
		writePage(w, http.StatusOK, "Sign-in complete",
			"You are signed in to Workbench. You can close this window and return to the terminal.")
	default:
		l.record(callbackOutcome{err: &AuthorizationDeniedError{Code: "invalid_response"}})
		writePage(w, http.StatusBadRequest, "Sign-in failed",
			"The redirect carried neither a code nor an error. You can close this window and return to the terminal.")
	}
}

// record delivers the first outcome exactly once; later redirects only get
// a page, never a second signal.
func (l *CallbackListener) record(outcome callbackOutcome) {
	l.recordOne.Do(func() {
		l.resultCh <- outcome
	})
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; display: flex; justify-content: center; margin-top: 18vh; background: #f6f8fa; color: #1f2328; }
main { text-align: center; max-width: 30rem; }
h1 { font-size: 1.4rem; }
p { color: #59636e; }
</style>
</head>
<body>
<main>
<h1>%s</h1>
<p>%s</p>
</main>
</body>
</html>
`

func writePage(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, pageTemplate, html.EscapeString(title), html.EscapeString(title), html.EscapeString(detail))
}
