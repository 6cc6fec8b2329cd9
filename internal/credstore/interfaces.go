package credstore

import (
	"context"

	"golang.org/x/oauth2"
)

// Store reads and writes an OAuth token bundle to persistent storage.
//
// Interactive authentication requires writable storage.
type Store interface {
	// Load returns the cached token bundle. ok is false when no usable
	// bundle exists; a missing, unreadable, or corrupt cache is absence,
	// not an error.
	Load(ctx context.Context) (tok *oauth2.Token, ok bool)

	// Save persists the token bundle, overwriting any previous bundle
	// wholesale.
	Save(ctx context.Context, tok *oauth2.Token) error

	// Clear removes the stored bundle. Clearing an absent bundle is not
	// an error.
	Clear(ctx context.Context) error
}
