// Package proxy implements the local ambassador server: a reverse proxy that
// attaches credentials to requests bound for the Gemini API.
//
// Request and response bodies pass through untouched; the proxy's only job is
// authentication, so local tools can talk to the API without handling OAuth
// themselves.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/florianilch/geminine/internal/observability/middleware"
)

// Proxy represents the forward proxy server
type Proxy struct {
	mux    *http.ServeMux
	server *http.Server
}

// Compile-time check that Proxy implements http.Handler
var _ http.Handler = (*Proxy)(nil)

// New creates a forward proxy for the Gemini API. transport must attach
// credentials to outgoing requests (an oauth2.Transport or an API-key
// transport).
func New(transport http.RoundTripper, baseURL string) (*Proxy, error) {
	upstream, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if transport == nil {
		return nil, errors.New("missing transport")
	}

	reverseProxyHandler := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Scheme = upstream.Scheme
			pr.Out.URL.Host = upstream.Host
			pr.Out.Host = upstream.Host
		},
		// FlushInterval: -1 disables automatic periodic flushing, flushing only when the backend flushes.
		// This eliminates buffering delays, critical for streaming responses (SSE) where clients
		// expect immediate data as soon as the upstream API sends it.
		FlushInterval: -1,
		Transport:     transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			// Covers credential failures surfaced by the transport as
			// well as upstream connectivity problems.
			slog.ErrorContext(r.Context(), "upstream request failed", "error", err)
			writeJSONError(r.Context(), w, "upstream request failed", http.StatusBadGateway)
		},
	}

	logger := slog.Default()

	mux := http.NewServeMux()

	// All Gemini API surfaces (generateContent, streamGenerateContent,
	// model listing) share the same authentication concern, so everything
	// is forwarded.
	mux.Handle("/", applyMiddlewares(reverseProxyHandler,
		middleware.Logging(logger),
		Recovery,
	))

	return &Proxy{mux: mux}, nil
}

// ServeHTTP implements http.Handler interface
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mux.ServeHTTP(w, r)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (p *Proxy) Start(ctx context.Context, address string) (<-chan error, error) {
	// Startup phase: Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	p.server = &http.Server{
		Handler:      p,
		ReadTimeout:  30 * time.Second, // Inbound: Read entire client request (DoS protection against slow clients)
		WriteTimeout: 15 * time.Minute, // Inbound: Write entire response to client (allows long SSE streams, still bounded)
		IdleTimeout:  90 * time.Second, // Inbound: Keep-alive wait for next request from client
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := p.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}

	if err := p.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = p.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
