package authflow

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// successPage is served to the browser once the authorization code has been
// exchanged. The window carries no further state; the user returns to the
// terminal.
const successPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Authentication successful</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4rem;">
<h1>Authentication successful</h1>
<p>You are signed in. You can close this window and return to the terminal.</p>
</body>
</html>
`

// FreePort asks the operating system for an ephemeral loopback port and
// releases it again so the callback listener can bind it. Not race-free
// against a third party grabbing the port in between, but it avoids
// double-binding in the common case.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, fmt.Errorf("allocating loopback port: %w", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, fmt.Errorf("releasing loopback port: %w", err)
	}
	return port, nil
}

// flowResult is the single outcome of a callback flow.
type flowResult struct {
	token *oauth2.Token
	err   error
}

// callbackFlow is a running loopback listener awaiting the provider's
// redirect. Exactly one result is delivered on Results; the listener shuts
// itself down after the first delivery, and Done is closed once shutdown
// completes.
type callbackFlow struct {
	// AuthURL is the authorization URL to surface to the user.
	AuthURL string
	// RedirectURL is the loopback target embedded in AuthURL.
	RedirectURL string
	// Results yields the single flow outcome.
	Results <-chan flowResult
	// Done is closed when the listener has fully shut down.
	Done <-chan struct{}

	server *http.Server
}

// Close tears down the listener if it is still running. Safe to call after
// the flow has already shut itself down.
func (f *callbackFlow) Close() {
	_ = f.server.Close()
}

// startCallbackFlow allocates a loopback port, starts the redirect listener
// on it, and returns immediately with the authorization URL and the
// completion signal. The caller surfaces the URL (print or open-browser) and
// awaits the result.
//
// The listener services at most one callback: the first request carrying
// either a code or an error resolves the flow and triggers shutdown on every
// exit path, including token-exchange failures.
func (a *Authenticator) startCallbackFlow(ctx context.Context) (*callbackFlow, error) {
	port, err := FreePort()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return nil, fmt.Errorf("binding callback listener: %w", err)
	}

	redirectURL := fmt.Sprintf("http://localhost:%d/", port)
	conf := a.oauthConfig(redirectURL)

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	results := make(chan flowResult, 1)
	done := make(chan struct{})
	server := &http.Server{}

	var once sync.Once
	resolve := func(r flowResult) {
		once.Do(func() {
			results <- r
			go func() {
				_ = server.Shutdown(context.Background())
				close(done)
			}()
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "Authentication failed: "+q.Get("error"), http.StatusBadRequest)
			resolve(flowResult{err: fmt.Errorf("provider returned error: %s", q.Get("error"))})

		case q.Get("code") != "":
			if q.Get("state") != state {
				http.Error(w, "State mismatch", http.StatusBadRequest)
				resolve(flowResult{err: fmt.Errorf("state mismatch in callback")})
				return
			}
			tok, err := conf.Exchange(r.Context(), q.Get("code"), oauth2.VerifierOption(verifier))
			if err != nil {
				http.Error(w, "Token exchange failed", http.StatusInternalServerError)
				resolve(flowResult{err: fmt.Errorf("exchanging authorization code: %w", err)})
				return
			}
			if err := a.store.Save(r.Context(), tok); err != nil {
				slog.WarnContext(r.Context(), "could not persist credentials", "error", err)
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(successPage))
			resolve(flowResult{token: tok})

		default:
			http.Error(w, "No authorization code received", http.StatusBadRequest)
			resolve(flowResult{err: fmt.Errorf("no authorization code received in callback")})
		}
	})
	server.Handler = mux

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			resolve(flowResult{err: fmt.Errorf("callback listener: %w", err)})
		}
	}()

	return &callbackFlow{
		AuthURL:     authURL,
		RedirectURL: redirectURL,
		Results:     results,
		Done:        done,
		server:      server,
	}, nil
}

// browserFlow runs the full browser/loopback flow: start the listener,
// surface the URL, await the redirect. It blocks until the flow resolves or
// ctx is cancelled; there is no intrinsic timeout.
func (a *Authenticator) browserFlow(ctx context.Context) (*oauth2.Token, error) {
	flow, err := a.startCallbackFlow(ctx)
	if err != nil {
		return nil, err
	}
	defer flow.Close()

	fmt.Fprintf(a.out, "\nYour browser has been opened to complete sign-in:\n\n%s\n\n", flow.AuthURL)
	if err := a.openURL(flow.AuthURL); err != nil {
		// Not fatal: the URL is printed, the user can open it by hand.
		slog.WarnContext(ctx, "could not launch browser", "error", err)
	}

	select {
	case r := <-flow.Results:
		return r.token, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
