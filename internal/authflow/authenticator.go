package authflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/florianilch/geminine/internal/credstore"
)

// Mode selects how credentials are obtained when no usable cache exists.
type Mode string

const (
	// ModeOAuth is the interactive browser/loopback flow with a manual
	// user-code fallback.
	ModeOAuth Mode = "oauth"
	// ModeMetadata obtains tokens from the local cloud metadata identity
	// service. Non-interactive; never persisted.
	ModeMetadata Mode = "metadata"
	// ModeAPIKey authenticates with a static API key from the
	// environment.
	ModeAPIKey Mode = "api-key"
)

// Client is the outcome of a completed authentication flow: an HTTP client
// that attaches credentials to every request. Source is nil for API-key
// clients.
type Client struct {
	HTTP   *http.Client
	Source oauth2.TokenSource
}

// Authenticator orchestrates credential acquisition. It is designed for a
// single logical flow per process invocation; concurrent overlapping
// authentication attempts are not supported.
type Authenticator struct {
	store   credstore.Store
	profile *credstore.ProfileCache
	apiKey  *credstore.EnvKey

	endpoint    oauth2.Endpoint
	userInfoURL string
	noBrowser   bool

	in      io.Reader
	confirm *bufio.Reader
	out     io.Writer
	openURL func(string) error
	getenv  func(string) string
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithNoBrowser disables browser-launch attempts, forcing the manual
// user-code flow for interactive authentication.
func WithNoBrowser(noBrowser bool) Option {
	return func(a *Authenticator) { a.noBrowser = noBrowser }
}

// WithAPIKey sets the key source consulted in api-key mode.
func WithAPIKey(key *credstore.EnvKey) Option {
	return func(a *Authenticator) { a.apiKey = key }
}

// WithEndpoint overrides the provider's OAuth2 endpoints. Used in tests to
// point the flows at a local server.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(a *Authenticator) { a.endpoint = endpoint }
}

// WithUserInfoURL overrides the userinfo endpoint used to resolve the account
// profile.
func WithUserInfoURL(url string) Option {
	return func(a *Authenticator) { a.userInfoURL = url }
}

// WithInput sets the reader consumed by the manual flow's confirmation
// prompt. Defaults to stdin.
func WithInput(in io.Reader) Option {
	return func(a *Authenticator) { a.in = in }
}

// WithOutput sets the writer for user-facing status lines and authorization
// URLs. Defaults to stdout.
func WithOutput(out io.Writer) Option {
	return func(a *Authenticator) { a.out = out }
}

// WithBrowserOpen overrides how authorization URLs are opened in the user's
// browser.
func WithBrowserOpen(openURL func(url string) error) Option {
	return func(a *Authenticator) { a.openURL = openURL }
}

// WithEnviron overrides environment lookups used for automation detection.
func WithEnviron(getenv func(key string) string) Option {
	return func(a *Authenticator) { a.getenv = getenv }
}

// New creates an Authenticator persisting credentials to store and account
// profiles to profile. profile may be nil to disable profile caching.
func New(store credstore.Store, profile *credstore.ProfileCache, opts ...Option) *Authenticator {
	a := &Authenticator{
		store:       store,
		profile:     profile,
		endpoint:    google.Endpoint,
		userInfoURL: defaultUserInfoURL,
		in:          os.Stdin,
		out:         os.Stdout,
		openURL:     browser.OpenURL,
		getenv:      os.Getenv,
	}
	for _, opt := range opts {
		opt(a)
	}
	// Shared across manual-flow retries so a retry continues the same
	// input stream instead of dropping buffered bytes.
	a.confirm = bufio.NewReader(a.in)
	return a
}

// Client produces an authenticated client for the requested mode.
//
// Cached credentials always take precedence over re-authentication. After
// that the mode and environment decide between the metadata, manual, and
// browser flows; a browser-flow failure falls back once to the manual flow
// before becoming fatal.
func (a *Authenticator) Client(ctx context.Context, mode Mode) (*Client, error) {
	if mode == ModeAPIKey {
		return a.apiKeyClient(ctx)
	}

	if tok, ok := a.store.Load(ctx); ok {
		c := a.clientForToken(ctx, tok)
		a.ensureProfile(ctx, c)
		return c, nil
	}

	if mode == ModeMetadata {
		src, err := a.metadataTokenSource(ctx)
		if err != nil {
			return nil, fmt.Errorf("cloud metadata authentication failed: %w", err)
		}
		return a.clientForSource(ctx, src), nil
	}

	if a.browserSuppressed() {
		if err := a.manualFlowWithRetries(ctx); err != nil {
			return nil, err
		}
		return a.clientAfterManual(ctx), nil
	}

	tok, browserErr := a.browserFlow(ctx)
	if browserErr == nil {
		c := a.clientForToken(ctx, tok)
		a.ensureProfile(ctx, c)
		return c, nil
	}

	slog.WarnContext(ctx, "browser login failed, falling back to manual flow", "error", browserErr)
	if manualErr := a.manualFlow(ctx); manualErr != nil {
		return nil, fmt.Errorf("browser flow failed (%v); manual flow failed: %w", browserErr, manualErr)
	}
	return a.clientAfterManual(ctx), nil
}

// TokenSource returns a token source for the requested mode without running
// an interactive flow. OAuth modes require cached credentials.
func (a *Authenticator) TokenSource(ctx context.Context, mode Mode) (oauth2.TokenSource, error) {
	if mode == ModeMetadata {
		src, err := a.metadataTokenSource(ctx)
		if err != nil {
			return nil, fmt.Errorf("cloud metadata authentication failed: %w", err)
		}
		return src, nil
	}
	return a.CachedTokenSource(ctx)
}

// CachedTokenSource returns a token source backed solely by the credential
// store. It fails if no usable cached bundle exists.
func (a *Authenticator) CachedTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, ok := a.store.Load(ctx)
	if !ok {
		return nil, errors.New(`no cached credentials; run "geminine login" first`)
	}
	return newPersistingSource(ctx, a.oauthConfig(""), tok, a.store), nil
}

// clientAfterManual builds the client handed back after a confirmed manual
// flow. The manual flow only confirms user intent; it cannot observe whether
// the out-of-band authorization actually completed, so the client picks up
// whatever the cache now holds, or starts with empty credentials.
func (a *Authenticator) clientAfterManual(ctx context.Context) *Client {
	if tok, ok := a.store.Load(ctx); ok {
		c := a.clientForToken(ctx, tok)
		a.ensureProfile(ctx, c)
		return c
	}
	return a.clientForToken(ctx, &oauth2.Token{})
}

func (a *Authenticator) clientForToken(ctx context.Context, tok *oauth2.Token) *Client {
	return a.clientForSource(ctx, newPersistingSource(ctx, a.oauthConfig(""), tok, a.store))
}

func (a *Authenticator) clientForSource(ctx context.Context, src oauth2.TokenSource) *Client {
	return &Client{
		HTTP:   oauth2.NewClient(ctx, src),
		Source: src,
	}
}

func (a *Authenticator) apiKeyClient(ctx context.Context) (*Client, error) {
	if a.apiKey == nil {
		return nil, errors.New("api-key mode requires a configured key source")
	}
	key, err := a.apiKey.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading API key: %w", err)
	}
	return &Client{
		HTTP: &http.Client{Transport: NewAPIKeyTransport(key, nil)},
	}, nil
}

// ensureProfile fetches and caches the account profile if it is not cached
// yet. Failures are logged and swallowed; a missing profile never fails
// authentication.
func (a *Authenticator) ensureProfile(ctx context.Context, c *Client) {
	if a.profile == nil {
		return
	}
	if _, ok := a.profile.Load(ctx); ok {
		return
	}

	info, err := a.fetchUserInfo(ctx, c.HTTP)
	if err != nil {
		slog.WarnContext(ctx, "could not fetch account profile", "error", err)
		return
	}
	if err := a.profile.Save(ctx, info); err != nil {
		slog.WarnContext(ctx, "could not cache account profile", "error", err)
	}
}

// oauthConfig assembles the oauth2 configuration for a given redirect target.
// An empty redirectURL produces the out-of-band configuration used by the
// manual flow and by refresh-only token sources.
func (a *Authenticator) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       scopes,
		Endpoint:     a.endpoint,
		RedirectURL:  redirectURL,
	}
}
