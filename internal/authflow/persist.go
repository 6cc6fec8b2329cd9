package authflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/florianilch/geminine/internal/credstore"
)

// persistingTokenSource wraps an oauth2.TokenSource and writes every
// refreshed token bundle back to the credential store. This is the explicit
// form of a token-refresh subscription: the underlying source refreshes
// silently inside Token, and the wrapper observes the change by comparing
// bundles.
type persistingTokenSource struct {
	store credstore.Store
	src   oauth2.TokenSource

	mu   sync.Mutex
	last *oauth2.Token
}

// Compile-time check to ensure persistingTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*persistingTokenSource)(nil)

// newPersistingSource builds a refreshing token source seeded with initial
// that persists new bundles to store for the lifetime of the source.
func newPersistingSource(ctx context.Context, conf *oauth2.Config, initial *oauth2.Token, store credstore.Store) oauth2.TokenSource {
	return &persistingTokenSource{
		store: store,
		src:   conf.TokenSource(ctx, initial),
		last:  initial,
	}
}

// Token returns a valid token, refreshing through the wrapped source if
// necessary. A changed bundle is persisted; a failed cache write is logged as
// a warning and never fails the token request.
func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == nil || tok.AccessToken != p.last.AccessToken || tok.RefreshToken != p.last.RefreshToken {
		// oauth2.TokenSource.Token has no context parameter; the cache
		// write is best-effort background work.
		ctx := context.Background()
		if err := p.store.Save(ctx, tok); err != nil {
			slog.WarnContext(ctx, "could not persist refreshed credentials", "error", err)
		} else {
			p.last = tok
		}
	}

	return tok, nil
}
