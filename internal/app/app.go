package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/florianilch/geminine/internal/authflow"
	"github.com/florianilch/geminine/internal/proxy"
)

// App orchestrates the lifecycle of the ambassador server.
type App struct {
	cfg   *Config
	proxy *proxy.Proxy
}

// New creates a new App instance.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// I/O deferred to the first proxied request
	transport, err := newTransport(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential transport: %w", err)
	}

	proxyServer, err := proxy.New(transport, cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	return &App{
		cfg:   cfg,
		proxy: proxyServer,
	}, nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting ambassador server", "address", address)
	proxyErrCh, err := a.proxy.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-proxyErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}

// newTransport builds the credential-injecting transport for the ambassador
// from the authentication configuration. No I/O is performed until the first
// request passes through.
func newTransport(cfg AuthConfig) (http.RoundTripper, error) {
	auth, err := cfg.NewAuthenticator()
	if err != nil {
		return nil, err
	}

	if cfg.Mode == string(authflow.ModeAPIKey) {
		client, err := auth.Client(context.Background(), authflow.ModeAPIKey)
		if err != nil {
			return nil, err
		}
		return client.HTTP.Transport, nil
	}

	return &oauth2.Transport{
		Source: &lazyTokenSource{
			init: sync.OnceValues(func() (oauth2.TokenSource, error) {
				return auth.TokenSource(context.Background(), authflow.Mode(cfg.Mode))
			}),
		},
	}, nil
}

// lazyTokenSource defers credential resolution (cache read or metadata
// lookup) to the first Token call so the server can start before
// authentication state is touched.
type lazyTokenSource struct {
	init func() (oauth2.TokenSource, error)
}

// Compile-time check to ensure lazyTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*lazyTokenSource)(nil)

// Token resolves the underlying token source once and delegates to it.
func (l *lazyTokenSource) Token() (*oauth2.Token, error) {
	ts, err := l.init()
	if err != nil {
		return nil, err
	}
	return ts.Token()
}
